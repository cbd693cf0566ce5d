package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/quantlab/meanrev/internal/backtest"
	"github.com/quantlab/meanrev/internal/config"
	"github.com/quantlab/meanrev/internal/feed"
	"github.com/quantlab/meanrev/internal/ledger"
	"github.com/quantlab/meanrev/internal/ledger/blob"
	"github.com/quantlab/meanrev/internal/logger"
	"github.com/quantlab/meanrev/internal/metrics"
	"github.com/quantlab/meanrev/internal/strategy"
	"github.com/quantlab/meanrev/internal/strategy/percentile"
)

var (
	backtestData string
	backtestURL  string
	backtestFrom string
	backtestTo   string
	backtestOut  string
)

var backtestCmd = &cobra.Command{
	Use:   "backtest [strategy]",
	Short: "Run a backtest on a strategy",
	Long:  "Replay historical daily bars through a strategy and show performance statistics",
	Args:  cobra.ExactArgs(1),
	RunE:  runBacktest,
}

func init() {
	backtestCmd.Flags().StringVar(&backtestData, "data", "", "CSV file with daily bars (overrides config)")
	backtestCmd.Flags().StringVar(&backtestURL, "url", "", "Kline API endpoint (overrides config)")
	backtestCmd.Flags().StringVar(&backtestFrom, "from", "", "Start date YYYY-MM-DD (optional)")
	backtestCmd.Flags().StringVar(&backtestTo, "to", "", "End date YYYY-MM-DD (optional)")
	backtestCmd.Flags().StringVar(&backtestOut, "out", "", "Output directory (overrides config)")

	rootCmd.AddCommand(backtestCmd)
}

func runBacktest(cmd *cobra.Command, args []string) error {
	stratName := args[0]

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyFlags(cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	start, end, err := parseRange(backtestFrom, backtestTo)
	if err != nil {
		return err
	}

	log := logger.Must(debug || cfg.Log.Development)
	defer log.Sync()

	engine := strategy.NewEngine(log)
	engine.Register(percentile.New(log))

	strat, err := engine.Get(stratName)
	if err != nil {
		return err
	}
	params := cfg.Strategies[stratName].Params
	if err := strat.Init(strategy.Config{Params: params}); err != nil {
		return fmt.Errorf("initializing strategy %s: %w", stratName, err)
	}

	loader, err := newLoader(cfg)
	if err != nil {
		return err
	}
	sink, cleanup, err := newSink(cfg, log)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	bars, err := loader.Load(ctx)
	if err != nil {
		return fmt.Errorf("loading bars: %w", err)
	}
	log.Info("loaded bars", zap.String("source", loader.Name()), zap.Int("count", len(bars)))

	bt := backtest.New(log, metrics.NewRegistry())
	result, err := bt.Run(ctx, strat, bars, backtest.RunParams{
		InitialCash:    cfg.Backtest.InitialCash,
		CommissionRate: cfg.Backtest.CommissionRate,
		SlippageRate:   cfg.Backtest.SlippageRate,
		Start:          start,
		End:            end,
	})
	if err != nil {
		return err
	}

	if err := sink.WriteResult(ctx, result); err != nil {
		return err
	}

	printResult(result)
	return nil
}

func applyFlags(cfg *config.Config) {
	if backtestData != "" {
		cfg.Data.Type = "csv"
		cfg.Data.Path = backtestData
	}
	if backtestURL != "" {
		cfg.Data.Type = "api"
		cfg.Data.URL = backtestURL
	}
	if backtestOut != "" {
		cfg.Output.Type = "localfs"
		cfg.Output.Path = backtestOut
	}
}

func parseRange(from, to string) (start, end time.Time, err error) {
	if from != "" {
		start, err = time.Parse("2006-01-02", from)
		if err != nil {
			return start, end, fmt.Errorf("invalid from date (expected YYYY-MM-DD): %w", err)
		}
	}
	if to != "" {
		end, err = time.Parse("2006-01-02", to)
		if err != nil {
			return start, end, fmt.Errorf("invalid to date (expected YYYY-MM-DD): %w", err)
		}
	}
	if !start.IsZero() && !end.IsZero() && end.Before(start) {
		return start, end, fmt.Errorf("end date must not be before start date")
	}
	return start, end, nil
}

func newLoader(cfg *config.Config) (feed.Loader, error) {
	switch cfg.Data.Type {
	case "csv":
		return feed.NewCSVLoader(cfg.Data.Path), nil
	case "api":
		return feed.NewAPILoader(feed.APIConfig{
			URL:        cfg.Data.URL,
			AuthHeader: cfg.Data.AuthHeader,
		}), nil
	default:
		return nil, fmt.Errorf("unknown data type %q", cfg.Data.Type)
	}
}

func newSink(cfg *config.Config, log *zap.Logger) (ledger.Sink, func(), error) {
	noop := func() {}
	switch cfg.Output.Type {
	case "localfs":
		store, err := blob.NewLocalFS(cfg.Output.Path)
		if err != nil {
			return nil, noop, err
		}
		return ledger.NewCSVSink(store, log), noop, nil
	case "s3":
		store, err := blob.NewS3(blob.S3Config{
			Bucket:    cfg.Output.S3.Bucket,
			Endpoint:  cfg.Output.S3.Endpoint,
			Region:    cfg.Output.S3.Region,
			AccessKey: cfg.Output.S3.AccessKey,
			SecretKey: cfg.Output.S3.SecretKey,
			Prefix:    cfg.Output.S3.Prefix,
		})
		if err != nil {
			return nil, noop, err
		}
		return ledger.NewCSVSink(store, log), noop, nil
	case "sqlite":
		sink, err := ledger.NewSQLiteSink(cfg.Output.DBPath)
		if err != nil {
			return nil, noop, err
		}
		return sink, func() { sink.Close() }, nil
	default:
		return nil, noop, fmt.Errorf("unknown output type %q", cfg.Output.Type)
	}
}

func printResult(result *backtest.Result) {
	p := message.NewPrinter(language.English)

	p.Println("=== Backtest Result ===")
	p.Printf("Strategy:          %s\n", result.Strategy)
	p.Printf("Run ID:            %s\n", result.RunID)
	p.Printf("Period:            %s to %s\n",
		result.StartDate.Format("2006-01-02"), result.EndDate.Format("2006-01-02"))
	p.Println()
	p.Printf("Initial equity:    %.2f\n", result.InitialEquity)
	p.Printf("Final equity:      %.2f\n", result.FinalEquity)
	p.Printf("Total return:      %.2f%%\n", result.TotalReturn*100)
	p.Printf("Annualized return: %.2f%%\n", result.AnnualizedReturn*100)
	p.Println()
	p.Printf("Round trips:       %d (%d won, %d lost)\n",
		result.Stats.TotalTrades, result.Stats.WinningTrades, result.Stats.LosingTrades)
	p.Printf("Win rate:          %.1f%%\n", result.Stats.WinRate)
	p.Printf("Max drawdown:      %.2f%%\n", result.Stats.MaxDrawdown)
	p.Printf("Sharpe ratio:      %.2f\n", result.Stats.SharpeRatio)
}
