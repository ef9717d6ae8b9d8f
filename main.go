package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog/log"

	contractx "github.com/prasertk/shopassist/agent/contract"
	convx "github.com/prasertk/shopassist/agent/conversation"
	llmx "github.com/prasertk/shopassist/agent/llm"
	"github.com/prasertk/shopassist/agent/orchestrator"
	toolx "github.com/prasertk/shopassist/agent/tool"
	"github.com/prasertk/shopassist/cart"
	"github.com/prasertk/shopassist/catalog"
	"github.com/prasertk/shopassist/payment"
	configx "github.com/prasertk/shopassist/pkg/config"
	_ "github.com/prasertk/shopassist/pkg/logger/autoload"
	"github.com/prasertk/shopassist/server"
)

type AppConfig struct {
	// memory, redis, or postgres
	StoreBackend string `envconfig:"STORE_BACKEND" default:"memory"`

	CheckoutSuccessURL string `envconfig:"CHECKOUT_SUCCESS_URL" default:"http://localhost:3000/checkout/success"`
	CheckoutCancelURL  string `envconfig:"CHECKOUT_CANCEL_URL" default:"http://localhost:3000/checkout/cancel"`
}

func main() {
	appCfg := configx.MustNew[AppConfig]("")

	store := newStore(appCfg.StoreBackend)

	llmCfg := configx.MustNew[llmx.Config]("OPENAI")
	llmClient, err := llmx.NewClient(*llmCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize completion client")
	}

	productCatalog := catalog.NewMock()
	cartService := cart.NewMemory(productCatalog)
	gateway := newGateway()
	registry := toolx.NewRegistry(productCatalog, cartService)

	agent, err := orchestrator.New(store, llmClient, registry, productCatalog, cartService, gateway, orchestrator.Config{
		CheckoutSuccessURL: appCfg.CheckoutSuccessURL,
		CheckoutCancelURL:  appCfg.CheckoutCancelURL,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("initialize orchestrator")
	}

	serverCfg := configx.MustNew[server.Config]("SERVER")
	srv := server.New(agent, productCatalog, cartService, gateway, *serverCfg)

	go func() {
		if err := srv.ListenAndServe(); err != nil {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	log.Info().Msg("shutting down")
	if err := srv.Shutdown(context.Background()); err != nil {
		log.Warn().Err(err).Msg("shutdown incomplete")
	}
}

func newStore(backend string) convx.Store {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "", "memory":
		return convx.NewMemoryStore()
	case "redis":
		cfg := configx.MustNew[convx.UpstashRedisConfig]("UPSTASH_REDIS")
		store, err := convx.NewUpstashRedisStore(*cfg)
		if err != nil {
			log.Fatal().Err(err).Msg("initialize redis store")
		}
		return store
	case "postgres":
		cfg := configx.MustNew[convx.PostgresConfig]("POSTGRES")
		store, err := convx.NewPostgresStore(*cfg)
		if err != nil {
			log.Fatal().Err(err).Msg("initialize postgres store")
		}
		if err := store.Migrate(context.Background()); err != nil {
			log.Fatal().Err(err).Msg("migrate postgres store")
		}
		return store
	default:
		log.Fatal().Str("backend", backend).Msg("unknown store backend")
		return nil
	}
}

func newGateway() contractx.PaymentGateway {
	cfg := configx.MustNew[payment.Config]("STRIPE")
	if strings.TrimSpace(cfg.APIKey) == "" {
		log.Warn().Msg("no stripe key configured, using mock payment gateway")
		return payment.NewMockGateway()
	}
	gateway, err := payment.NewStripeGateway(*cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize stripe gateway")
	}
	return gateway
}
