// kanban serves a single-user kanban board backed by one DynamoDB table.
//
// # Commands
//
//	kanban serve     Start the HTTP API
//	kanban schema    Print the table layout as YAML
//	kanban version   Print the version
//
// Start against a local badger store:
//
//	kanban serve --backend local --data ./data
//
// Or against DynamoDB Local:
//
//	kanban serve --endpoint http://localhost:8000 --region eu-west-1
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/acksell/kanban/api"
	"github.com/acksell/kanban/dynamodb/schema"
	"github.com/acksell/kanban/kanbanddb"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	log "github.com/sirupsen/logrus"
)

const version = "0.1.0"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd, args := os.Args[1], os.Args[2:]
	var err error
	switch cmd {
	case "serve":
		err = runServe(args)
	case "schema":
		err = runSchema(args, os.Stdout)
	case "help", "-h", "--help":
		printUsage()
		return
	case "version", "-v", "--version":
		fmt.Printf("kanban version %s\n", version)
		return
	default:
		fmt.Fprintf(os.Stderr, "kanban: unknown command %q\n\n", cmd)
		printUsage()
		os.Exit(1)
	}

	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		log.WithError(err).Fatalf("kanban %s", cmd)
	}
}

func runServe(args []string) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}
	wd, _ := os.Getwd()
	cfg, err := LoadConfig(args, os.Getenv, wd)
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	if cfg.ConfigPath != "" {
		logger.WithField("path", cfg.ConfigPath).Info("loaded config file")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeStore(); err != nil {
			logger.WithError(err).Warn("closing store")
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	apiCfg := api.DefaultConfig()
	apiCfg.Addr = cfg.Addr
	return api.New(store, apiCfg, logger, reg).Run(ctx)
}

func runSchema(args []string, w io.Writer) error {
	fs := flag.NewFlagSet("schema", flag.ContinueOnError)
	name := fs.String("table", kanbanddb.DefaultTableName, "DynamoDB table name")
	if err := fs.Parse(args); err != nil {
		return err
	}
	return schema.Encode(w, kanbanddb.Describe(kanbanddb.NewTableDefinition(*name)))
}

func printUsage() {
	fmt.Println(`kanban - kanban board API on DynamoDB

Usage:
  kanban <command> [flags]

Commands:
  serve     Start the HTTP API
  schema    Print the table, index and item layout as YAML
  version   Print the version

Configuration (optional):
  kanban.yaml is searched from the working directory upwards:

    addr: :8080
    backend: local        # aws or local
    table: KanbanApp
    dataDir: ./data       # local backend, empty for in-memory
    redisURL: redis://localhost:6379/0
    delete:
      maxAttempts: 5

  KANBAN_* environment variables (also read from .env) override the file,
  and flags override both. Run 'kanban serve --help' for the flags.`)
}
