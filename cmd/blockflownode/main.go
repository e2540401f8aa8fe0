// Command blockflownode runs a single BlockFlow broker: it owns a
// contiguous slice of groups, stores every chain originating from them, and
// exposes BlockFlow/BlockTemplateBuilder to the (out-of-scope) miner and
// broker wire layer.
//
// Grounded on the teacher's cmd/kaspad/main.go: parse config, wire a
// logger backend, open the database, construct the domain graph, then
// block on a signal-driven shutdown.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/liuhongchao/alephium/infrastructure/config"
	"github.com/liuhongchao/alephium/infrastructure/db/database/ldb"
	"github.com/liuhongchao/alephium/infrastructure/logger"
	"github.com/liuhongchao/alephium/internal/nodeboot"
	flags "github.com/jessevdk/go-flags"
	"github.com/pkg/errors"
)

var log = logger.RegisterSubsystem("NODE")

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			return nil
		}
		return errors.Wrap(err, "loading configuration")
	}

	backend := logger.DefaultBackend()
	level, ok := logger.LevelFromString(cfg.LogLevel)
	if !ok {
		return errors.Errorf("unrecognized log level %q", cfg.LogLevel)
	}
	if cfg.LogDir != "" {
		if err := backend.AddLogFileWithCustomRotator(filepath.Join(cfg.LogDir, "blockflownode.log"), level, 10*1024, 8); err != nil {
			return errors.Wrap(err, "opening log file")
		}
	}
	if err := backend.AddLogWriter(os.Stdout, level); err != nil {
		return errors.Wrap(err, "attaching stdout logger")
	}
	if err := backend.Run(); err != nil {
		return errors.Wrap(err, "starting logger backend")
	}
	defer backend.Close()

	store, err := ldb.Open(cfg.DataDir)
	if err != nil {
		return errors.Wrap(err, "opening database")
	}
	defer store.Close()

	n, err := nodeboot.Boot(cfg)
	if err != nil {
		return err
	}

	owned := n.Broker.OwnedGroups()
	log.Infof("blockflownode ready: %d groups, owning [%d,%d) of %d brokers", n.Broker.Groups, owned[0], owned[len(owned)-1]+1, n.Broker.BrokerNum)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	<-ctx.Done()
	log.Infof("shutting down")
	return nil
}
