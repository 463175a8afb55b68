package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/arnac-io/fundquorum/pkg/api"
	"github.com/arnac-io/fundquorum/pkg/app"
	"github.com/arnac-io/fundquorum/pkg/config"
	"github.com/arnac-io/fundquorum/pkg/core"
	"github.com/arnac-io/fundquorum/pkg/indexer"
	"github.com/arnac-io/fundquorum/pkg/ledger"
	"github.com/arnac-io/fundquorum/pkg/multisig"
	"github.com/arnac-io/fundquorum/pkg/pusher/sources"
	"github.com/arnac-io/fundquorum/pkg/reconcile"
	"github.com/arnac-io/fundquorum/pkg/withdrawal"
)

func main() {
	cfg := config.Load()
	log := app.Logger(cfg.App.LogLevel)
	defer log.Sync()

	ctx, stop := app.SignalContext()
	defer stop()

	owners, err := cfg.OwnerSet()
	if err != nil {
		log.Fatal("owners", zap.Error(err))
	}
	if cfg.Indexer.URL == "" {
		log.Fatal("INDEXER_URL is not set")
	}

	dispatcher := sources.NewEventDispatcher(log)
	dispatcher.Run(ctx)

	fund := ledger.NewMemory(core.FundState{Address: cfg.Fund.Address})

	// the registry needs the ledger as its quorum source, the ledger consults the registry
	// before accepting a withdrawal confirmation
	var registry *withdrawal.Registry
	txs, err := multisig.New(log,
		multisig.Config{Owners: owners, Required: cfg.Multisig.Required, Self: cfg.Multisig.Address, Fund: cfg.Fund.Address},
		fund,
		multisig.WithPublisher(dispatcher),
		multisig.WithProposalValidator(func(p core.Proposal) error {
			return registry.ValidateConfirmation(p)
		}))
	if err != nil {
		log.Fatal("multisig", zap.Error(err))
	}
	registry = withdrawal.NewRegistry(log, owners, txs,
		withdrawal.WithCheckPolicy(withdrawal.MinChecks(cfg.Fund.MinChecks)),
		withdrawal.WithPublisher(dispatcher))
	txs.Authorizer().OnExecuted(registry.ObserveExecution)

	client, err := indexer.NewClient(log, cfg.Indexer.URL,
		indexer.WithRetry(cfg.Indexer.Attempts, indexer.DefaultRetryDelay),
		indexer.WithTTL(cfg.Indexer.RefreshInterval))
	if err != nil {
		log.Fatal("indexer client", zap.Error(err))
	}
	view := reconcile.NewView(log, registry, client, cfg.Indexer.RefreshInterval)
	go view.Run(ctx)

	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		if err := http.ListenAndServe(fmt.Sprintf(":%v", cfg.App.MetricsPort), mux); err != nil {
			log.Error("metrics server", zap.Error(err))
		}
	}()

	limits := api.Limits{RateLimit: cfg.API.RateLimit}
	h, err := api.NewHandler(log,
		api.WithTransactions(txs),
		api.WithWithdrawals(registry),
		api.WithReports(view),
		api.WithFund(fund),
		api.WithLimits(limits))
	if err != nil {
		log.Fatal("api handler", zap.Error(err))
	}
	server := api.NewServer(log, h, fmt.Sprintf(":%v", cfg.API.Port),
		api.WithEventSource(dispatcher),
		api.WithCorsOrigins(cfg.API.CorsOrigins),
		api.WithServerLimits(limits))

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), app.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error("shutdown", zap.Error(err))
		}
	}()
	log.Info("fundquorum api started",
		zap.Int("port", cfg.API.Port),
		zap.Int("owners", owners.Len()),
		zap.Int("required", cfg.Multisig.Required))
	server.Run()
}
