package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"solana-tax-engine/internal/domain"
	"solana-tax-engine/internal/fxrate"
	"solana-tax-engine/internal/ingestion"
	"solana-tax-engine/internal/observability"
	"solana-tax-engine/internal/orchestrator"
	"solana-tax-engine/internal/pricing"
	"solana-tax-engine/internal/storage"
	chstore "solana-tax-engine/internal/storage/clickhouse"
	"solana-tax-engine/internal/storage/memory"
	"solana-tax-engine/internal/storage/migrations"
	pgstore "solana-tax-engine/internal/storage/postgres"
	redisstore "solana-tax-engine/internal/storage/redis"
	"solana-tax-engine/internal/taxation"
)

func main() {
	// Load .env file if exists
	_ = godotenv.Load()

	// Parse flags (env vars as defaults)
	recordsFile := flag.String("records", os.Getenv("RECORDS_FILE"), "Path to a swap records JSON export")
	wallet := flag.String("wallet", os.Getenv("WALLET_ADDRESS"), "Wallet address to calculate taxes for")
	year := flag.Int("year", 0, "Tax year (UTC calendar year)")
	fromTime := flag.String("from-time", "", "Period start (RFC3339), overrides -year")
	toTime := flag.String("to-time", "", "Period end (RFC3339), overrides -year")
	configPath := flag.String("config", os.Getenv("TAX_CONFIG"), "Path to a TOML tax configuration file")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string")
	redisDSN := flag.String("redis-dsn", os.Getenv("REDIS_DSN"), "Redis connection string for the quote cache")
	fxEndpoint := flag.String("fx-endpoint", os.Getenv("FX_ENDPOINT"), "Exchange-rate API endpoint (empty for the default)")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of external stores")
	metricsAddr := flag.String("metrics-addr", ":9090", "Prometheus metrics HTTP address (empty to disable)")
	verbose := flag.Bool("verbose", false, "Log every record's classification")

	flag.Parse()

	// Setup logger
	logger := log.New(os.Stdout, "[taxreport] ", log.LstdFlags|log.Lshortfile)

	if *wallet == "" {
		logger.Fatal("No wallet specified. Use -wallet or WALLET_ADDRESS")
	}
	if err := ingestion.ValidateWalletAddress(*wallet); err != nil {
		logger.Fatalf("Invalid wallet: %v", err)
	}
	if *recordsFile == "" && (*useMemory || *postgresDSN == "") {
		logger.Fatal("No record source. Use -records for a file export or -postgres-dsn for stored records")
	}

	periodStart, periodEnd, err := resolvePeriod(*year, *fromTime, *toTime)
	if err != nil {
		logger.Fatalf("Invalid period: %v", err)
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		logger.Fatalf("Config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatalf("Config: %v", err)
	}

	// Start metrics server if enabled
	if *metricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", observability.Handler())
			mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
				w.Write([]byte("ok"))
			})
			logger.Printf("Starting metrics server on %s", *metricsAddr)
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil && err != http.ErrServerClosed {
				logger.Printf("Metrics server error: %v", err)
			}
		}()
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())

	// Handle shutdown signals with graceful timeout
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// Channel to signal main goroutine completion
	done := make(chan error, 1)

	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
		cancel()

		// Wait for second signal for immediate shutdown
		select {
		case sig := <-sigCh:
			logger.Printf("Received second signal %v, forcing immediate shutdown", sig)
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Println("Graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-done:
			// Normal shutdown completed
		}
	}()

	err = run(ctx, logger, cfg, runOptions{
		wallet:        *wallet,
		periodStart:   periodStart,
		periodEnd:     periodEnd,
		recordsFile:   *recordsFile,
		postgresDSN:   *postgresDSN,
		clickhouseDSN: *clickhouseDSN,
		redisDSN:      *redisDSN,
		fxEndpoint:    *fxEndpoint,
		useMemory:     *useMemory,
		verbose:       *verbose,
	})

	// Signal completion to shutdown handler
	done <- err
	cancel()

	if err != nil && err != context.Canceled {
		logger.Fatalf("Error: %v", err)
	}
}

type runOptions struct {
	wallet      string
	periodStart time.Time
	periodEnd   time.Time

	recordsFile   string
	postgresDSN   string
	clickhouseDSN string
	redisDSN      string
	fxEndpoint    string
	useMemory     bool
	verbose       bool
}

// resolvePeriod turns the period flags into [start, end]. An explicit
// RFC3339 pair wins over -year; a bare year covers the whole UTC calendar
// year inclusively.
func resolvePeriod(year int, fromTime, toTime string) (time.Time, time.Time, error) {
	if fromTime != "" || toTime != "" {
		if fromTime == "" || toTime == "" {
			return time.Time{}, time.Time{}, fmt.Errorf("-from-time and -to-time must be set together")
		}
		start, err := time.Parse(time.RFC3339, fromTime)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("parse -from-time: %w", err)
		}
		end, err := time.Parse(time.RFC3339, toTime)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("parse -to-time: %w", err)
		}
		if !end.After(start) {
			return time.Time{}, time.Time{}, fmt.Errorf("period end %s is not after start %s", toTime, fromTime)
		}
		return start, end, nil
	}

	if year == 0 {
		return time.Time{}, time.Time{}, fmt.Errorf("no period specified, use -year or -from-time/-to-time")
	}
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(1, 0, 0).Add(-time.Nanosecond)
	return start, end, nil
}

func run(ctx context.Context, logger *log.Logger, cfg domain.Config, opts runOptions) error {
	stores, cleanup, err := createStores(ctx, opts)
	if err != nil {
		return err
	}
	defer cleanup()

	var source ingestion.RecordSource
	if opts.recordsFile != "" {
		source = ingestion.NewFileSource(ingestion.FileSourceOptions{
			Path:   opts.recordsFile,
			Logger: logger,
		})
	} else {
		source = ingestion.NewStoreSource(stores.records)
	}

	resolver := pricing.NewResolver(pricing.ResolverOptions{
		Config:    cfg,
		Cache:     stores.quotes,
		Primary:   pricing.NewCoinGeckoClient(),
		Secondary: pricing.NewDexScreenerClient(),
		Logger:    logger,
	})

	fx := fxrate.NewConverter(fxrate.ConverterOptions{
		Endpoint: opts.fxEndpoint,
		Currency: cfg.LocalCurrency,
		Fallback: cfg.FallbackFXRate,
		Logger:   logger,
	})

	engine, err := taxation.NewEngine(taxation.EngineOptions{
		Config:   cfg,
		Resolver: resolver,
		FX:       fx,
		Logger:   logger,
		Verbose:  opts.verbose,
	})
	if err != nil {
		return fmt.Errorf("create engine: %w", err)
	}

	orch := orchestrator.New(orchestrator.Options{
		Source:      source,
		Engine:      engine,
		ResultStore: stores.results,
		Wallet:      opts.wallet,
		PeriodStart: opts.periodStart,
		PeriodEnd:   opts.periodEnd,
		Verbose:     opts.verbose,
	})

	fmt.Println("=== Tax Report ===")
	fmt.Printf("Wallet: %s\n", opts.wallet)
	fmt.Printf("Period: %s to %s\n",
		opts.periodStart.Format(time.RFC3339), opts.periodEnd.Format(time.RFC3339))

	result, err := orch.Run(ctx)
	if err != nil {
		return fmt.Errorf("tax run: %w", err)
	}

	printSummary(result)
	return nil
}

// taxStores bundles the storage a report run uses. records stays nil when
// the run reads a file export instead of a database.
type taxStores struct {
	quotes  storage.QuoteStore
	records storage.SwapRecordStore
	results storage.TaxResultStore
}

// createStores assembles storage from the configured DSNs. Everything
// defaults to memory; each DSN swaps in its backend. The returned cleanup
// closes whatever was opened.
func createStores(ctx context.Context, opts runOptions) (*taxStores, func(), error) {
	stores := &taxStores{
		quotes:  memory.NewQuoteStore(),
		results: memory.NewTaxResultStore(),
	}
	if opts.useMemory {
		return stores, func() {}, nil
	}

	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	if opts.postgresDSN != "" {
		pool, err := pgstore.NewPool(ctx, opts.postgresDSN)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("connect to postgres: %w", err)
		}
		closers = append(closers, pool.Close)
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("migrate postgres: %w", err)
		}
		stores.records = pgstore.NewSwapRecordStore(pool)
		stores.quotes = pgstore.NewQuoteStore(pool)
	}

	// Redis wins over Postgres for the quote cache when both are configured.
	if opts.redisDSN != "" {
		client, err := redisstore.NewClient(ctx, opts.redisDSN)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("connect to redis: %w", err)
		}
		closers = append(closers, func() { client.Close() })
		stores.quotes = redisstore.NewQuoteStore(client)
	}

	if opts.clickhouseDSN != "" {
		if err := chstore.EnsureDatabase(ctx, opts.clickhouseDSN); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("ensure clickhouse database: %w", err)
		}
		conn, err := chstore.NewConn(ctx, opts.clickhouseDSN)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("connect to clickhouse: %w", err)
		}
		closers = append(closers, func() { conn.Close() })
		if err := migrations.RunClickhouseMigrations(ctx, conn); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("migrate clickhouse: %w", err)
		}
		stores.results = chstore.NewTaxResultStore(conn)
	}

	return stores, cleanup, nil
}

func printSummary(result *orchestrator.RunResult) {
	s := result.Summary

	fmt.Printf("\nRun %s completed:\n", result.RunID)
	fmt.Printf("  Records: %d (%d acquisitions, %d disposals)\n",
		s.RecordCount, s.AcquisitionCount, s.DisposalCount)
	fmt.Printf("  Acquisition value: %s USD / %s %s\n",
		s.AcquisitionValueUSD, s.AcquisitionValueLocal, s.LocalCurrency)
	fmt.Printf("  Disposal value: %s USD / %s %s\n",
		s.DisposalValueUSD, s.DisposalValueLocal, s.LocalCurrency)
	fmt.Printf("  Gains: %s USD, losses: %s USD, net: %s USD\n",
		s.TotalGainUSD, s.TotalLossUSD, s.NetGainLossUSD)
	fmt.Printf("  FX rate: %s %s/USD\n", s.FXRate, s.LocalCurrency)
	for _, category := range []domain.TaxCategory{domain.TaxCategoryBuy, domain.TaxCategorySell} {
		if tax, ok := s.TaxByCategory[category]; ok {
			fmt.Printf("  Tax (%s): %s %s\n", category, tax, s.LocalCurrency)
		}
	}
	fmt.Printf("  Total tax: %s %s\n", s.TotalTax, s.LocalCurrency)
	if result.Archived {
		fmt.Printf("  Archived under run ID %s\n", result.RunID)
	}
}
