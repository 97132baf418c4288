package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/quantlark/strata/internal/alert"
	"github.com/quantlark/strata/internal/backtest"
	"github.com/quantlark/strata/internal/config"
	"github.com/quantlark/strata/internal/core"
	"github.com/quantlark/strata/internal/export"
	"github.com/quantlark/strata/internal/feed"
	"github.com/quantlark/strata/internal/logger"
	"github.com/quantlark/strata/internal/metrics"
	"github.com/quantlark/strata/internal/notifier"
	"github.com/quantlark/strata/internal/notifier/email"
	"github.com/quantlark/strata/internal/notifier/telegram"
	"github.com/quantlark/strata/internal/notifier/webhook"
	"github.com/quantlark/strata/internal/optimize"
	"github.com/quantlark/strata/internal/storage/archive"
)

var (
	cfgFile string
	debug   bool

	appCfg *config.Config
	appLog *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "strata",
	Short: "Strata - multi-timeframe backtest and parameter sweep engine",
	Long: `Strata backtests declarative strategies over close-time labeled bars
and sweeps their parameter ranges in parallel. Results can be exported,
archived, announced, and reviewed by an LLM advisor.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if cfgFile != "" {
			appCfg, err = config.Load(cfgFile)
		} else {
			appCfg, err = config.LoadDefault()
		}
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		if err := appCfg.Validate(); err != nil {
			return fmt.Errorf("config validation failed: %w", err)
		}

		level := appCfg.Logging.Level
		if debug {
			level = "debug"
		}
		appLog, err = logger.NewAt(level, debug || appCfg.Logging.Development)
		if err != nil {
			return fmt.Errorf("building logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if appLog != nil {
			appLog.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug logging")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// runCtx returns a context cancelled by SIGINT or SIGTERM.
func runCtx() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// configMetricsAddr returns the configured scrape address, or empty when
// metrics are disabled.
func configMetricsAddr() string {
	if appCfg.Metrics.Enabled {
		return appCfg.Metrics.Listen
	}
	return ""
}

// startMetrics builds the run's registry and, when addr is set, serves
// /metrics on it until the run context ends.
func startMetrics(ctx context.Context, addr string) *metrics.Registry {
	reg := metrics.NewRegistry()
	if addr == "" {
		return reg
	}
	go func() {
		if err := metrics.Serve(ctx, addr, reg, appLog.Named("metrics")); err != nil {
			appLog.Warn("metrics server", zap.Error(err))
		}
	}()
	return reg
}

func loadBars(ctx context.Context, path string) ([]core.Bar, error) {
	src := &feed.CSVSource{Path: path}
	bars, err := src.Load(ctx)
	if err != nil {
		return nil, err
	}
	appLog.Info("bars loaded", zap.String("file", path), zap.Int("bars", len(bars)))
	return bars, nil
}

// buildArchive opens the configured archive backend and reports its name
// for logs and metrics labels.
func buildArchive() (*archive.Archive, string, error) {
	if appCfg.Archive.Type == "s3" {
		store, err := archive.NewS3(archive.S3Config{
			Bucket:    appCfg.Archive.S3.Bucket,
			Endpoint:  appCfg.Archive.S3.Endpoint,
			Region:    appCfg.Archive.S3.Region,
			AccessKey: appCfg.Archive.S3.AccessKey,
			SecretKey: appCfg.Archive.S3.SecretKey,
			Prefix:    appCfg.Archive.S3.Prefix,
		})
		if err != nil {
			return nil, "", err
		}
		return archive.New(store), "s3", nil
	}

	store, err := archive.NewLocalFS(appCfg.Archive.Path)
	if err != nil {
		return nil, "", err
	}
	return archive.New(store), "localfs", nil
}

// buildNotifiers assembles the registry from the enabled config entries.
// A misconfigured channel is skipped with a warning instead of failing
// the run.
func buildNotifiers() *notifier.Registry {
	reg := notifier.NewRegistry()
	for name, nc := range appCfg.Notifiers {
		if !nc.Enabled {
			continue
		}

		var n notifier.Notifier
		params := map[string]any{}
		switch name {
		case "telegram":
			n = &telegram.Telegram{}
			params["bot_token"] = nc.BotToken
			params["chat_id"] = nc.ChatID
		case "webhook":
			n = &webhook.Webhook{}
			params["url"] = nc.URL
			if len(nc.Headers) > 0 {
				params["headers"] = nc.Headers
			}
		case "email":
			n = &email.Email{}
			params["host"] = nc.Host
			params["port"] = nc.Port
			params["username"] = nc.Username
			params["password"] = nc.Password
			params["from"] = nc.From
			params["to"] = nc.To
		default:
			appLog.Warn("unknown notifier type", zap.String("name", name))
			continue
		}

		if err := n.Init(notifier.Config{Type: name, Params: params}); err != nil {
			appLog.Warn("notifier config invalid", zap.String("name", name), zap.Error(err))
			continue
		}
		if err := reg.Register(n); err != nil {
			appLog.Warn("registering notifier", zap.String("name", name), zap.Error(err))
		}
	}
	return reg
}

func notifyAll(ctx context.Context, summary notifier.Summary, st *backtest.Stats, mreg *metrics.Registry) {
	if st != nil && appCfg.Alerts.Enabled {
		summary.Alerts = alert.EvaluateAll(alertRules(), alert.RunStats(st))
		for _, msg := range summary.Alerts {
			appLog.Warn("alert fired", zap.String("alert", msg))
		}
	}

	reg := buildNotifiers()
	channels := reg.GetAll()
	if len(channels) == 0 {
		appLog.Warn("notify requested but no notifiers are enabled")
		return
	}

	errs := reg.NotifyAll(ctx, summary)
	for _, n := range channels {
		if err, failed := errs[n.Name()]; failed {
			appLog.Warn("notification failed", zap.String("channel", n.Name()), zap.Error(err))
			mreg.RecordNotification(n.Name(), metrics.StatusError)
		} else {
			appLog.Info("notification sent", zap.String("channel", n.Name()))
			mreg.RecordNotification(n.Name(), metrics.StatusOK)
		}
	}
}

// alertRules converts the configured rule entries into evaluator rules.
func alertRules() []alert.Rule {
	rules := make([]alert.Rule, 0, len(appCfg.Alerts.Rules))
	for _, r := range appCfg.Alerts.Rules {
		rules = append(rules, alert.Rule{
			Name:     r.Name,
			Expr:     r.Expr,
			Severity: r.Severity,
			Message:  r.Message,
		})
	}
	return rules
}

// exportTrades picks the format from the file extension.
func exportTrades(path string, trades []backtest.Trade) error {
	if strings.EqualFold(filepath.Ext(path), ".parquet") {
		return export.WriteTradesParquet(path, trades)
	}
	return export.WriteTradesCSV(path, trades)
}

// exportSweepTable picks the format from the file extension.
func exportSweepTable(path string, sweep *optimize.Sweep) error {
	if strings.EqualFold(filepath.Ext(path), ".parquet") {
		return export.WriteSweepParquet(path, sweep)
	}
	return export.WriteSweepCSV(path, sweep)
}
