// Command worldstore is a small operational tool over a world database:
// create the schema, dump an entity subtree, list autoload roots, delete a
// durable entity.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"go.uber.org/zap"

	"github.com/zeusync/worldstore/internal/config"
	"github.com/zeusync/worldstore/internal/observability/log"
	"github.com/zeusync/worldstore/internal/sqlstore"
	"github.com/zeusync/worldstore/pkg/persist"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML or JSON config file")
	dbPath := flag.String("db", "", "database file (overrides config)")
	flag.Parse()

	if flag.NArg() < 1 {
		usage()
		os.Exit(2)
	}

	cfg := config.Default()
	if *configPath != "" {
		var err error
		cfg, err = config.FromFile(*configPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, "config:", err)
			os.Exit(1)
		}
	}
	if *dbPath != "" {
		cfg.Database.Path = *dbPath
	}

	logger := log.New(cfg.Logging.Level)
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-stopCh
		cancel()
	}()

	store, err := sqlstore.Open(sqlstore.Options{
		Path:         cfg.Database.Path,
		BusyTimeout:  cfg.Database.BusyTimeout,
		WAL:          cfg.Database.WAL,
		MaxOpenConns: cfg.Database.MaxOpenConns,
	}, logger)
	if err != nil {
		logger.Fatal("open store", zap.Error(err))
	}
	defer store.Close()

	if err := run(ctx, store, flag.Args()); err != nil {
		logger.Fatal("command failed", zap.String("command", flag.Arg(0)), zap.Error(err))
	}
}

func run(ctx context.Context, store *sqlstore.Store, args []string) error {
	switch args[0] {
	case "init":
		// Open already created the schema; nothing more to do.
		fmt.Println("schema ready")
		return nil
	case "dump":
		id, err := durableArg(args)
		if err != nil {
			return err
		}
		return dump(ctx, store, id)
	case "autoload":
		ids, err := sqlstore.EntitiesWith(ctx, store.DB(), persist.AutoLoadName)
		if err != nil {
			return err
		}
		for _, id := range ids {
			fmt.Println(id)
		}
		return nil
	case "delete":
		id, err := durableArg(args)
		if err != nil {
			return err
		}
		tx, err := store.Begin(ctx)
		if err != nil {
			return err
		}
		defer tx.Rollback()
		if err := sqlstore.DeleteEntities(ctx, tx, []int64{id}); err != nil {
			return err
		}
		return tx.Commit()
	default:
		usage()
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func dump(ctx context.Context, store *sqlstore.Store, id int64) error {
	ok, err := sqlstore.EntityExists(ctx, store.DB(), id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("entity %d not found", id)
	}
	rows, err := sqlstore.Subtree(ctx, store.DB(), id)
	if err != nil {
		return err
	}
	for _, row := range rows {
		parent := "-"
		if row.Parent.Valid {
			parent = strconv.FormatInt(row.Parent.Int64, 10)
		}
		fmt.Printf("entity %d (parent %s)\n", row.ID, parent)
		data, err := sqlstore.InstanceData(ctx, store.DB(), row.ID)
		if err != nil {
			return err
		}
		for name, payload := range data {
			fmt.Printf("  %s = %s\n", name, payload)
		}
	}
	return nil
}

func durableArg(args []string) (int64, error) {
	if len(args) < 2 {
		return 0, fmt.Errorf("%s: missing durable id", args[0])
	}
	return strconv.ParseInt(args[1], 10, 64)
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: worldstore [-config file] [-db file] <init|dump ID|autoload|delete ID>")
}
