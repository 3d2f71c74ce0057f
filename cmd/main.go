// Command brokersim runs the demo brokerage backend: a synthetic market
// feed, an order execution engine with a per-account ledger and position
// book, and a web dashboard with SSE market streaming.
//
// Usage:
//
//	brokersim --config config.yaml
//	brokersim (uses CLI arguments)
//	brokersim setup (interactive config wizard)
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/brokersim/brokersim/config"
	"github.com/brokersim/brokersim/internal/services/book"
	"github.com/brokersim/brokersim/internal/services/catalog"
	"github.com/brokersim/brokersim/internal/services/exec"
	"github.com/brokersim/brokersim/internal/services/feed"
	"github.com/brokersim/brokersim/internal/services/ledger"
	"github.com/brokersim/brokersim/internal/services/publisher"
	"github.com/brokersim/brokersim/internal/setup"
	"github.com/brokersim/brokersim/internal/storage/txlog"
	"github.com/brokersim/brokersim/internal/web"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "setup" {
		if err := setup.RunTUI(); err != nil {
			log.Fatal(err)
		}
		return
	}

	conf, err := config.Get()
	if err != nil {
		log.Fatal(err)
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	instruments, err := conf.CatalogInstruments()
	if err != nil {
		logger.Fatal("invalid instrument config", zap.Error(err))
	}

	cat := catalog.Default()
	if len(instruments) > 0 {
		cat, err = catalog.New(instruments)
		if err != nil {
			logger.Fatal("failed to build catalog", zap.Error(err))
		}
	}

	journal, err := txlog.New(conf.WalDir)
	if err != nil {
		logger.Fatal("failed to open transaction journal", zap.Error(err))
	}
	defer journal.Close()

	seed := conf.FeedSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	generator := feed.New(cat, seed)
	accounts := ledger.New(journal, logger)
	positions := book.New(cat, generator, logger)
	engine := exec.New(accounts, positions, cat, conf.RecentTxLimit, logger)
	pub := publisher.New(generator, positions, conf.PublishInterval, logger)
	server := web.NewServer(conf.ListenAddr, engine, pub, journal, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return pub.Run(ctx)
	})
	g.Go(func() error {
		return server.Start(ctx)
	})

	logger.Info("brokersim started",
		zap.String("addr", conf.ListenAddr),
		zap.Duration("publish_interval", conf.PublishInterval),
		zap.Int("instruments", cat.Len()))

	if err := g.Wait(); err != nil && err != context.Canceled {
		logger.Error(err.Error())
	}
}
