package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/stocksync/backend/internal/infrastructure/config"
	"github.com/stocksync/backend/internal/infrastructure/logger"
	"github.com/stocksync/backend/internal/infrastructure/migration"
	"github.com/stocksync/backend/migrations"
)

const defaultMigrationsPath = "migrations"

var errUsage = errors.New("invalid arguments")

// schemaCommands need a database connection
var schemaCommands = map[string]func(m *migration.Migrator, args []string) error{
	"up":   func(m *migration.Migrator, _ []string) error { return m.Up() },
	"down": func(m *migration.Migrator, _ []string) error { return m.Down() },
	"step": func(m *migration.Migrator, args []string) error {
		n, err := intArg(args, "step count")
		if err != nil {
			return err
		}
		return m.Steps(n)
	},
	"force": func(m *migration.Migrator, args []string) error {
		v, err := intArg(args, "version")
		if err != nil {
			return err
		}
		return m.Force(v)
	},
	"version": func(m *migration.Migrator, _ []string) error {
		status, err := m.Status()
		if err != nil {
			return err
		}
		switch {
		case status.Version == 0:
			fmt.Println("no migrations applied")
		case status.Dirty:
			fmt.Printf("version %d (dirty)\n", status.Version)
		default:
			fmt.Printf("version %d\n", status.Version)
		}
		return nil
	},
}

func main() {
	var (
		migrationsPath string
		configFile     string
		logLevel       string
	)
	flag.StringVar(&migrationsPath, "path", "", "Read migrations from this directory instead of the embedded set")
	flag.StringVar(&configFile, "config", "", "Config file holding the database settings")
	flag.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flag.Usage = printUsage
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	log, err := logger.New(&logger.Config{
		Level:      logLevel,
		Format:     "console",
		Output:     "stderr",
		TimeFormat: "2006-01-02 15:04:05",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := run(args[0], args[1:], migrationsPath, configFile, log); err != nil {
		log.Error("Migration command failed", zap.String("command", args[0]), zap.Error(err))
		if errors.Is(err, errUsage) {
			printUsage()
		}
		_ = log.Sync()
		os.Exit(1)
	}
}

func run(command string, args []string, migrationsPath, configFile string, log *zap.Logger) error {
	switch command {
	case "create":
		if len(args) == 0 {
			return fmt.Errorf("%w: migration name required", errUsage)
		}
		description := ""
		if len(args) > 1 {
			description = args[1]
		}
		mf, err := migration.CreateMigration(diskPath(migrationsPath), args[0], description)
		if err != nil {
			return err
		}
		log.Info("Migration created", zap.String("up_file", mf.UpPath), zap.String("down_file", mf.DownPath))
		return nil
	case "list":
		return listMigrations(migrationsPath)
	}

	apply, ok := schemaCommands[command]
	if !ok {
		return fmt.Errorf("%w: unknown command %q", errUsage, command)
	}

	cfg, err := config.LoadFile(configFile)
	if err != nil {
		return err
	}
	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		return err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return fmt.Errorf("ping database: %w", err)
	}

	var m *migration.Migrator
	if migrationsPath != "" {
		m, err = migration.New(db, diskPath(migrationsPath), log)
	} else {
		m, err = migration.NewFromFS(db, migrations.FS, ".", log)
	}
	if err != nil {
		db.Close()
		return err
	}
	defer m.Close()

	return apply(m, args)
}

func listMigrations(migrationsPath string) error {
	var fsys fs.FS = migrations.FS
	if migrationsPath != "" {
		fsys = os.DirFS(diskPath(migrationsPath))
	}
	names, err := migration.ListMigrations(fsys)
	if err != nil {
		return err
	}
	for _, name := range names {
		fmt.Println(name)
	}
	return nil
}

func intArg(args []string, what string) (int, error) {
	if len(args) == 0 {
		return 0, fmt.Errorf("%w: %s required", errUsage, what)
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, fmt.Errorf("%w: %s %q is not a number", errUsage, what, args[0])
	}
	return n, nil
}

// diskPath resolves the migrations directory used by create and -path
func diskPath(p string) string {
	if p == "" {
		p = defaultMigrationsPath
	}
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `stocksync database migration tool

Usage:
  migrate [flags] <command> [arguments]

Commands:
  up                    Apply all pending migrations
  down                  Roll back all migrations
  step <n>              Apply n migrations (negative rolls back)
  version               Show the applied schema version
  force <version>       Record a version after fixing a dirty state by hand
  create <name> [desc]  Write the next migration file pair to disk
  list                  List available migrations

Flags:
  -path string          Migrations directory (default: the set embedded in the binary)
  -config string        Config file (default: config.toml in ., /etc/stocksync or /app)
  -log-level string     Log level: debug, info, warn, error (default: info)

The database settings can also come from STOCKSYNC_DATABASE_HOST,
STOCKSYNC_DATABASE_PORT, STOCKSYNC_DATABASE_USER, STOCKSYNC_DATABASE_PASSWORD,
STOCKSYNC_DATABASE_DBNAME and STOCKSYNC_DATABASE_SSLMODE.`)
}
