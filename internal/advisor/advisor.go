// internal/advisor/advisor.go

// Package advisor turns a finished parameter sweep into LLM-generated
// tuning advice. The advisor runs after the sweep and never feeds back
// into simulation.
package advisor

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/quantlark/strata/internal/core"
	"github.com/quantlark/strata/internal/llm"
	"github.com/quantlark/strata/internal/optimize"
	"github.com/quantlark/strata/internal/strategy"
)

const (
	DefaultTopRows    = 10
	DefaultBottomRows = 5
)

// Config bounds how much of the sweep table goes into the prompt.
type Config struct {
	TopRows    int
	BottomRows int
}

func (c Config) withDefaults() Config {
	if c.TopRows <= 0 {
		c.TopRows = DefaultTopRows
	}
	if c.BottomRows <= 0 {
		c.BottomRows = DefaultBottomRows
	}
	return c
}

// Advisor asks an LLM to review sweep results and suggest parameter
// values worth exploring next.
type Advisor struct {
	llm    llm.Provider
	logger *zap.Logger
	cfg    Config
}

// New creates an advisor on top of the given provider.
func New(provider llm.Provider, logger *zap.Logger, cfg Config) *Advisor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Advisor{
		llm:    provider,
		logger: logger,
		cfg:    cfg.withDefaults(),
	}
}

// Advice is the parsed LLM response.
type Advice struct {
	ParameterSuggestions []ParameterSuggestion `json:"parameter_suggestions"`
	Observations         []string              `json:"observations"`
	Explanation          string                `json:"explanation"`
}

// ParameterSuggestion names one sweep parameter and a value to try.
type ParameterSuggestion struct {
	Parameter string  `json:"parameter"`
	Value     float64 `json:"value"`
	Rationale string  `json:"rationale"`
}

// Review renders the top and bottom sweep rows into a prompt and parses
// the model's JSON reply. A reply that is not valid JSON degrades to an
// Advice carrying the raw text as the explanation.
func (a *Advisor) Review(ctx context.Context, strat *strategy.Strategy, sweep *optimize.Sweep) (*Advice, error) {
	if sweep == nil || len(sweep.Results) == 0 {
		return nil, core.WrapError(core.ErrNoData, fmt.Errorf("sweep has no results to review"))
	}

	prompt := a.buildPrompt(strat, sweep)
	a.logger.Debug("requesting sweep advice",
		zap.String("provider", a.llm.Name()),
		zap.Int("rows", len(sweep.Results)))

	resp, err := a.llm.Chat(ctx, llm.ChatRequest{
		SystemPrompt: advisorSystemPrompt,
		Messages: []llm.Message{
			{Role: "user", Content: prompt},
		},
		MaxTokens:   2048,
		Temperature: 0.4,
		JSONMode:    true,
	})
	if err != nil {
		return nil, fmt.Errorf("advisor: %w", err)
	}

	var advice Advice
	if err := json.Unmarshal([]byte(resp.Content), &advice); err != nil {
		a.logger.Warn("advice was not valid JSON, keeping raw text", zap.Error(err))
		return &Advice{Explanation: resp.Content}, nil
	}
	return &advice, nil
}

func (a *Advisor) buildPrompt(strat *strategy.Strategy, sweep *optimize.Sweep) string {
	var sb strings.Builder

	if strat != nil {
		name := strat.Name
		if name == "" {
			name = "unnamed"
		}
		sb.WriteString(fmt.Sprintf("## Strategy: %s", name))
		if strat.Symbol != "" {
			sb.WriteString(fmt.Sprintf(" on %s", strat.Symbol))
		}
		sb.WriteString("\n")
		writeConditions(&sb, "entry", strat.EntryConditions)
		writeConditions(&sb, "exit", strat.ExitConditions)
		sb.WriteString("\n")
	}

	sb.WriteString(fmt.Sprintf("## Sweep: %d combinations, %d completed, %d rows kept\n\n",
		sweep.TotalCombinations, sweep.Completed, len(sweep.Results)))

	top, bottom := splitRows(sweep.Results, a.cfg.TopRows, a.cfg.BottomRows)

	sb.WriteString("## Best combinations:\n")
	for i, c := range top {
		writeRow(&sb, i+1, c)
	}

	if len(bottom) > 0 {
		sb.WriteString("\n## Worst combinations among the kept rows:\n")
		offset := len(sweep.Results) - len(bottom)
		for i, c := range bottom {
			writeRow(&sb, offset+i+1, c)
		}
	}

	sb.WriteString("\n## Task:\n")
	sb.WriteString("Compare the best and worst combinations and suggest parameter values to explore next.\n")
	sb.WriteString("Parameter keys follow the side.index.name convention used in the rows above.\n")
	sb.WriteString("Respond with JSON containing: parameter_suggestions, observations, explanation.\n")

	return sb.String()
}

func writeConditions(sb *strings.Builder, side string, conds []strategy.ConditionDescriptor) {
	for i, c := range conds {
		sb.WriteString(fmt.Sprintf("- %s[%d] %s", side, i, c.ID))
		if c.Timeframe > 0 {
			sb.WriteString(fmt.Sprintf(" @%dm", c.Timeframe))
		}
		if len(c.Params) > 0 {
			sb.WriteString(" " + formatParams(c.Params))
		}
		for _, k := range sortedKeys(c.Ranges) {
			sb.WriteString(fmt.Sprintf(" [%s swept %s]", k, c.Ranges[k]))
		}
		sb.WriteString("\n")
	}
}

func writeRow(sb *strings.Builder, rank int, c optimize.Candidate) {
	st := c.Result.Stats
	sb.WriteString(fmt.Sprintf("- rank %d: profit=%.2f trades=%d winRate=%.1f%% profitFactor=%.2f maxDrawdown=%.2f sharpe=%.2f",
		rank, st.TotalProfit, st.TotalTrades, st.WinRate, st.ProfitFactor, st.MaxDrawdown, st.SharpeRatio))
	if len(c.Params) > 0 {
		sb.WriteString(" params: " + formatParams(c.Params))
	}
	sb.WriteString("\n")
}

// splitRows keeps the slices disjoint when the table is shorter than
// topN+bottomN.
func splitRows(results []optimize.Candidate, topN, bottomN int) (top, bottom []optimize.Candidate) {
	if topN > len(results) {
		topN = len(results)
	}
	top = results[:topN]
	start := len(results) - bottomN
	if start < topN {
		start = topN
	}
	bottom = results[start:]
	return top, bottom
}

func formatParams(params map[string]float64) string {
	keys := sortedKeys(params)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%g", k, params[k]))
	}
	return strings.Join(parts, ", ")
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

const advisorSystemPrompt = `You are a quantitative strategy tuning assistant. You review parameter sweep results from a backtest engine and suggest which parameter values to explore next.

Focus on:
1. Parameter regions where the best combinations cluster
2. Parameters whose value separates the best rows from the worst rows
3. Signs of overfitting, such as a single outlier row far ahead of its neighbours
4. Risk, preferring suggestions that keep drawdown low

Always respond with valid JSON:
{
  "parameter_suggestions": [
    {
      "parameter": "entry.0.period",
      "value": 21,
      "rationale": "why this value is worth testing"
    }
  ],
  "observations": [
    "patterns visible in the rows provided"
  ],
  "explanation": "overall summary"
}

Only name parameters that appear in the sweep rows. Be specific and base every suggestion on the rows provided.`
