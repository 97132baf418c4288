package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/quantlark/strata/internal/core"
	"github.com/quantlark/strata/internal/notifier"
)

const defaultAPIBase = "https://api.telegram.org"

// Telegram announces run summaries through the Telegram Bot API.
type Telegram struct {
	botToken string
	chatID   string
	apiBase  string
	client   *http.Client
}

// New creates a new Telegram notifier.
func New(botToken, chatID string) *Telegram {
	return &Telegram{
		botToken: botToken,
		chatID:   chatID,
		apiBase:  defaultAPIBase,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// NewWithAPIBase creates a Telegram notifier against a custom API base
// URL (for testing).
func NewWithAPIBase(apiBase, botToken, chatID string) *Telegram {
	t := New(botToken, chatID)
	t.apiBase = apiBase
	return t
}

func (t *Telegram) Name() string {
	return "telegram"
}

func (t *Telegram) Init(cfg notifier.Config) error {
	if token, ok := cfg.Params["bot_token"].(string); ok {
		t.botToken = token
	}
	if chatID, ok := cfg.Params["chat_id"].(string); ok {
		t.chatID = chatID
	}
	if t.apiBase == "" {
		t.apiBase = defaultAPIBase
	}
	if t.client == nil {
		t.client = &http.Client{Timeout: 30 * time.Second}
	}

	if t.botToken == "" {
		return fmt.Errorf("telegram: bot_token is required")
	}
	if t.chatID == "" {
		return fmt.Errorf("telegram: chat_id is required")
	}
	return nil
}

func (t *Telegram) Send(ctx context.Context, summary notifier.Summary) error {
	return t.sendMessage(ctx, formatSummary(summary))
}

func formatSummary(s notifier.Summary) string {
	var sb strings.Builder

	profitEmoji := "📈"
	if s.TotalProfit < 0 {
		profitEmoji = "📉"
	}

	if s.Kind == "sweep" {
		sb.WriteString(fmt.Sprintf("🔍 *Sweep finished* - %s\n", s.RunID))
		sb.WriteString(fmt.Sprintf("🧮 Combinations: %d/%d\n", s.Completed, s.Combinations))
	} else {
		sb.WriteString(fmt.Sprintf("%s *Backtest finished* - %s\n", profitEmoji, s.RunID))
	}

	if s.Strategy != "" {
		sb.WriteString(fmt.Sprintf("🎯 Strategy: %s", s.Strategy))
		if s.Symbol != "" {
			sb.WriteString(fmt.Sprintf(" on %s", s.Symbol))
		}
		sb.WriteString("\n")
	}

	sb.WriteString(fmt.Sprintf("💰 Profit: %.2f over %d trades\n", s.TotalProfit, s.TotalTrades))
	sb.WriteString(fmt.Sprintf("📊 Win rate: %.1f%%, PF %.2f, DD %.2f\n", s.WinRate, s.ProfitFactor, s.MaxDrawdown))

	for _, a := range s.Alerts {
		sb.WriteString(fmt.Sprintf("⚠️ %s\n", a))
	}

	if len(s.BestParams) > 0 {
		sb.WriteString(fmt.Sprintf("🏆 Best: %s\n", formatParams(s.BestParams)))
	}

	sb.WriteString(fmt.Sprintf("⏰ Took %s", s.Duration.Round(time.Millisecond)))
	return sb.String()
}

func formatParams(params map[string]float64) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%g", k, params[k]))
	}
	return strings.Join(parts, ", ")
}

func (t *Telegram) sendMessage(ctx context.Context, text string) error {
	url := fmt.Sprintf("%s/bot%s/sendMessage", t.apiBase, t.botToken)

	payload := map[string]any{
		"chat_id":    t.chatID,
		"text":       text,
		"parse_mode": "Markdown",
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return core.WrapError(core.ErrNotifierFailed,
			fmt.Errorf("telegram: marshaling payload: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return core.WrapError(core.ErrNotifierFailed,
			fmt.Errorf("telegram: creating request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return core.WrapError(core.ErrNotifierFailed,
			fmt.Errorf("telegram: sending message: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var result map[string]any
		json.NewDecoder(resp.Body).Decode(&result)
		return core.WrapError(core.ErrNotifierFailed,
			fmt.Errorf("telegram: API error (status %d): %v", resp.StatusCode, result))
	}
	return nil
}
