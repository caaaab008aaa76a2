package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"github.com/stocksync/backend/internal/infrastructure/config"
	"github.com/stocksync/backend/internal/infrastructure/logger"
)

//	@title			stocksync admin API
//	@version		1.0
//	@description	Queue supplier to Shopify sync runs, follow their logs, review unmatched variants and export update logs.

//	@BasePath	/api/v1

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Operator token from "stocksync token". Format: "Bearer {token}"

func main() {
	var (
		configFile string
		logLevel   string
	)

	flag.StringVar(&configFile, "config", "", "Config file (default: config.toml in ., /etc/stocksync or /app)")
	flag.StringVar(&logLevel, "log-level", "", "Log level override (debug, info, warn, error)")
	flag.Usage = printUsage
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}
	command, args := args[0], args[1:]

	cfg, err := config.LoadFile(configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}

	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     logOutput(cfg.Log.Output),
		TimeFormat: "2006-01-02 15:04:05",
		Service:    cfg.App.Name,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	// SIGINT raises the cooperative abort of a running sync
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = logger.WithContext(ctx, log)

	switch command {
	case "token":
		exitOnError(log, command, cmdToken(cfg, args))
		return
	case "locations":
		exitOnError(log, command, cmdLocations(ctx, cfg, log, args))
		return
	case "help", "-h", "--help":
		printUsage()
		return
	}

	a, err := newApp(cfg, log)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer a.Close()

	switch command {
	case "run":
		err = cmdRun(ctx, a, args)
	case "run-all":
		err = cmdRunAll(ctx, a, args)
	case "export":
		err = cmdExport(ctx, a, args)
	case "review":
		err = cmdReview(ctx, a, args)
	case "csv":
		err = cmdCSV(ctx, a, args)
	case "sources":
		err = cmdSources(ctx, a, args)
	case "prune-logs":
		err = cmdPruneLogs(ctx, a, args)
	case "serve":
		err = cmdServe(ctx, a)
	default:
		log.Error("Unknown command", zap.String("command", command))
		printUsage()
		a.Close()
		os.Exit(1)
	}
	if err != nil {
		a.Close()
	}
	exitOnError(log, command, err)
}

func exitOnError(log *zap.Logger, command string, err error) {
	if err == nil {
		return
	}
	log.Error("Command failed", zap.String("command", command), zap.Error(err))
	_ = log.Sync()
	os.Exit(1)
}

// logOutput keeps stdout for command output such as CSV exports
func logOutput(output string) string {
	if output == "" || strings.EqualFold(output, "stdout") {
		return "stderr"
	}
	return output
}

func printUsage() {
	fmt.Println(`stocksync reconciles supplier stock feeds with the storefront

Usage:
  stocksync [flags] <command> [arguments]

Commands:
  run -source <id> [-dry] [-no-price] [-no-inventory] [-location <name>]
                        Run one sync; Ctrl-C aborts it after the current batch
  run-all [-dry]        Run every active source in turn
  export [-gid <n>] [-filter matched|unmatched|all] [-out <file>] [-upload]
                        Export an update log group as CSV (default: latest)
  review list [-hidden] List unmatched variants waiting for review
  review hide <product_id> <variant_id>
  review unhide <product_id> <variant_id>
  csv import -file <f> [-name <n>] [-encoding <e>]
                        Store a supplier CSV feed as a custom source catalog
  csv list              List stored CSV feeds
  csv prune [-days <n>] Delete feeds older than the retention
  sources sync [-file sources.yaml]
                        Create or update the declared stock data sources
  sources list          List stock data sources
  prune-logs [-days <n>]
                        Delete update log groups older than the retention
  serve                 Run the scheduler, the daily trigger, metrics and the admin API
  token -operator <name> [-scopes a,b] [-ttl 24h]
                        Issue an admin API token
  locations [-api-key <k>] [-api-url <u>]
                        List the Fuse5 supplier locations

Flags:
  -config string        Config file
  -log-level string     Log level override: debug, info, warn, error

Environment Variables:
  Every setting can be given as STOCKSYNC_<SECTION>_<KEY>, for example
  STOCKSYNC_DATABASE_HOST, STOCKSYNC_SHOPIFY_API_TOKEN, STOCKSYNC_FUSE5_API_KEY,
  STOCKSYNC_REDIS_ENABLED, STOCKSYNC_HTTP_JWT_SECRET`)
}
