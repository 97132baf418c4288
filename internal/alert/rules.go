// Package alert evaluates result-quality rules against the statistics
// of a finished run. Fired rules ride along on outgoing notifications so
// the channel message flags concerning results.
package alert

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/quantlark/strata/internal/backtest"
)

// Rule defines a single result-quality rule. Expr compares one stat
// against a constant, e.g. "max_drawdown > 30".
type Rule struct {
	Name     string `mapstructure:"name"`
	Expr     string `mapstructure:"expr"`
	Severity string `mapstructure:"severity"`
	Message  string `mapstructure:"message"`
}

// Expression form: "stat op value".
// Supports: >, <, >=, <=, ==, !=
var exprPattern = regexp.MustCompile(`^(\w+)\s*(>|<|>=|<=|==|!=)\s*(-?[\d.]+)$`)

// Evaluate reports whether the rule fires for the given stats. Unknown
// stats and unparseable expressions never fire.
func (r *Rule) Evaluate(stats map[string]float64) bool {
	matches := exprPattern.FindStringSubmatch(strings.TrimSpace(r.Expr))
	if len(matches) != 4 {
		return false
	}

	statName := matches[1]
	op := matches[2]
	threshold, err := strconv.ParseFloat(matches[3], 64)
	if err != nil {
		return false
	}

	value, exists := stats[statName]
	if !exists {
		return false
	}

	switch op {
	case ">":
		return value > threshold
	case "<":
		return value < threshold
	case ">=":
		return value >= threshold
	case "<=":
		return value <= threshold
	case "==":
		return value == threshold
	case "!=":
		return value != threshold
	default:
		return false
	}
}

// FormatMessage renders the fired rule, appending the observed value of
// the stat the expression names.
func (r *Rule) FormatMessage(stats map[string]float64) string {
	msg := fmt.Sprintf("[%s] %s: %s", strings.ToUpper(r.Severity), r.Name, r.Message)
	if m := exprPattern.FindStringSubmatch(strings.TrimSpace(r.Expr)); len(m) == 4 {
		if value, exists := stats[m[1]]; exists {
			msg = fmt.Sprintf("%s (%s=%.2f)", msg, m[1], value)
		}
	}
	return msg
}

// EvaluateAll runs every rule against the stats and returns the fired
// messages in rule order.
func EvaluateAll(rules []Rule, stats map[string]float64) []string {
	var fired []string
	for _, r := range rules {
		if r.Evaluate(stats) {
			fired = append(fired, r.FormatMessage(stats))
		}
	}
	return fired
}

// RunStats flattens backtest statistics into the stat names rule
// expressions can reference.
func RunStats(st *backtest.Stats) map[string]float64 {
	return map[string]float64{
		"total_trades":   float64(st.TotalTrades),
		"winning_trades": float64(st.WinningTrades),
		"losing_trades":  float64(st.LosingTrades),
		"win_rate":       st.WinRate,
		"total_profit":   st.TotalProfit,
		"gross_profit":   st.GrossProfit,
		"gross_loss":     st.GrossLoss,
		"profit_factor":  st.ProfitFactor,
		"max_drawdown":   st.MaxDrawdown,
		"average_win":    st.AverageWin,
		"average_loss":   st.AverageLoss,
		"largest_win":    st.LargestWin,
		"largest_loss":   st.LargestLoss,
		"sharpe_ratio":   st.SharpeRatio,
	}
}
