// Package email implements an SMTP-based email notifier
package email

import (
	"context"
	"fmt"
	"net/smtp"
	"sort"
	"strings"

	"github.com/quantlark/strata/internal/core"
	"github.com/quantlark/strata/internal/notifier"
)

// Email mails run summaries over SMTP.
type Email struct {
	host     string
	port     int
	username string
	password string
	from     string
	to       []string
}

// New creates a new Email notifier.
func New(host string, port int, username, password, from string, to []string) *Email {
	return &Email{
		host:     host,
		port:     port,
		username: username,
		password: password,
		from:     from,
		to:       to,
	}
}

func (e *Email) Name() string { return "email" }

func (e *Email) Init(cfg notifier.Config) error {
	if host, ok := cfg.Params["host"].(string); ok {
		e.host = host
	}
	if port, ok := cfg.Params["port"].(int); ok {
		e.port = port
	}
	if username, ok := cfg.Params["username"].(string); ok {
		e.username = username
	}
	if password, ok := cfg.Params["password"].(string); ok {
		e.password = password
	}
	if from, ok := cfg.Params["from"].(string); ok {
		e.from = from
	}
	if to, ok := cfg.Params["to"].([]string); ok {
		e.to = to
	}

	if e.host == "" || e.from == "" || len(e.to) == 0 {
		return fmt.Errorf("email: host, from, and to are required")
	}
	return nil
}

func (e *Email) Send(_ context.Context, summary notifier.Summary) error {
	subject := subjectLine(summary)
	body := formatSummary(summary)
	if err := e.sendEmail(subject, body); err != nil {
		return core.WrapError(core.ErrNotifierFailed,
			fmt.Errorf("email: %w", err))
	}
	return nil
}

func subjectLine(s notifier.Summary) string {
	if s.Kind == "sweep" {
		return fmt.Sprintf("Strata sweep finished: %s (%d combinations)", s.RunID, s.Completed)
	}
	return fmt.Sprintf("Strata backtest finished: %s %s %+.2f", s.Strategy, s.Symbol, s.TotalProfit)
}

func formatSummary(s notifier.Summary) string {
	var sb strings.Builder

	if s.Kind == "sweep" {
		sb.WriteString("Strata Optimization Sweep\n\n")
		fmt.Fprintf(&sb, "Run:          %s\n", s.RunID)
		fmt.Fprintf(&sb, "Combinations: %d of %d completed\n", s.Completed, s.Combinations)
	} else {
		sb.WriteString("Strata Backtest\n\n")
		fmt.Fprintf(&sb, "Run:          %s\n", s.RunID)
	}

	fmt.Fprintf(&sb, "Strategy:     %s\n", s.Strategy)
	fmt.Fprintf(&sb, "Symbol:       %s\n", s.Symbol)
	fmt.Fprintf(&sb, "Profit:       %.2f\n", s.TotalProfit)
	fmt.Fprintf(&sb, "Trades:       %d (%.1f%% wins)\n", s.TotalTrades, s.WinRate)
	fmt.Fprintf(&sb, "ProfitFactor: %.2f\n", s.ProfitFactor)
	fmt.Fprintf(&sb, "MaxDrawdown:  %.2f\n", s.MaxDrawdown)
	fmt.Fprintf(&sb, "Sharpe:       %.2f\n", s.SharpeRatio)

	if len(s.Alerts) > 0 {
		sb.WriteString("\nAlerts:\n")
		for _, a := range s.Alerts {
			fmt.Fprintf(&sb, "  %s\n", a)
		}
	}

	if len(s.BestParams) > 0 {
		sb.WriteString("\nBest parameters:\n")
		keys := make([]string, 0, len(s.BestParams))
		for k := range s.BestParams {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&sb, "  %s = %g\n", k, s.BestParams[k])
		}
	}

	fmt.Fprintf(&sb, "\nFinished at %s after %s\n",
		s.FinishedAt.Format("2006-01-02 15:04:05"), s.Duration)
	return sb.String()
}

func (e *Email) sendEmail(subject, body string) error {
	addr := fmt.Sprintf("%s:%d", e.host, e.port)

	var auth smtp.Auth
	if e.username != "" {
		auth = smtp.PlainAuth("", e.username, e.password, e.host)
	}

	msg := fmt.Sprintf("From: %s\r\n"+
		"To: %s\r\n"+
		"Subject: %s\r\n"+
		"MIME-Version: 1.0\r\n"+
		"Content-Type: text/plain; charset=UTF-8\r\n"+
		"\r\n"+
		"%s",
		e.from,
		strings.Join(e.to, ","),
		subject,
		body,
	)

	return smtp.SendMail(addr, auth, e.from, e.to, []byte(msg))
}
