// keyverify runs the license verification service.
//
//	keyverify [serve]   run the service (default)
//	keyverify genkey    print fresh ENCRYPTION_KEY and ENCRYPTION_CONTEXT_KEY values
//	keyverify migrate   apply schema migrations to DATABASE_URL
package main

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/dmitrymomot/keyverify/app/keyverify"
	"github.com/dmitrymomot/keyverify/core/config"
	"github.com/dmitrymomot/keyverify/core/logger"
	"github.com/dmitrymomot/keyverify/db/migrations"
	"github.com/dmitrymomot/keyverify/integration/database/pg"
	"github.com/dmitrymomot/keyverify/integration/database/sqlite"
	"github.com/dmitrymomot/keyverify/pkg/secrets"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	flagSet := pflag.NewFlagSet("keyverify", pflag.ContinueOnError)
	logLevel := flagSet.String("log-level", "", "override LOG_LEVEL (debug, info, warn, error)")
	flagSet.BoolP("help", "h", false, "show help")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			printHelp(stdout, flagSet)
			return nil
		}
		return err
	}
	if help, _ := flagSet.GetBool("help"); help {
		printHelp(stdout, flagSet)
		return nil
	}

	command := "serve"
	if flagSet.NArg() > 0 {
		command = flagSet.Arg(0)
	}

	switch command {
	case "serve":
		return serve(ctx, *logLevel)
	case "genkey":
		return genkey(stdout)
	case "migrate":
		return migrate(ctx, *logLevel)
	default:
		printHelp(stdout, flagSet)
		return fmt.Errorf("unknown command %q", command)
	}
}

func serve(ctx context.Context, level string) error {
	var opts []keyverify.AppOption
	if level != "" {
		opts = append(opts, keyverify.WithLogger(logger.New(logger.WithLevelString(level))))
	}

	app, err := keyverify.NewApp(ctx, opts...)
	if err != nil {
		return err
	}
	logger.SetAsDefault(app.Logger())
	return app.Run(ctx)
}

func genkey(stdout io.Writer) error {
	for _, name := range []string{"ENCRYPTION_KEY", "ENCRYPTION_CONTEXT_KEY"} {
		key, err := secrets.GenerateKey()
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "%s=%s\n", name, hex.EncodeToString(key))
	}
	return nil
}

func migrate(ctx context.Context, level string) error {
	var cfg pg.Config
	if err := config.Load(&cfg); err != nil {
		return err
	}
	if level == "" {
		level = "info"
	}
	log := logger.New(logger.WithLevelString(level))

	if sqlite.IsURL(cfg.ConnectionString) {
		path, err := sqlite.PathFromURL(cfg.ConnectionString)
		if err != nil {
			return err
		}
		db, err := sqlite.Open(ctx, path)
		if err != nil {
			return err
		}
		defer db.Close()
		return sqlite.Migrate(ctx, db, migrations.SQLite(), log)
	}

	pool, err := pg.Connect(ctx, cfg)
	if err != nil {
		return err
	}
	defer pool.Close()
	if err := pg.Migrate(ctx, pool, migrations.Postgres(), log); err != nil {
		return err
	}
	log.InfoContext(ctx, "migrations applied", slog.String("backend", "postgres"))
	return nil
}

func printHelp(w io.Writer, flagSet *pflag.FlagSet) {
	fmt.Fprintln(w, "Usage: keyverify [flags] [serve|genkey|migrate]")
	fmt.Fprintln(w)
	fmt.Fprint(w, flagSet.FlagUsages())
}
