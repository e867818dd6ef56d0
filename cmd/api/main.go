package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/jhoicas/stock-ledger/internal/application/billing"
	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/cache"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/memory"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/postgres"
	httpRouter "github.com/jhoicas/stock-ledger/internal/interfaces/http"
	"github.com/jhoicas/stock-ledger/internal/tracing"
	"github.com/jhoicas/stock-ledger/pkg/config"
	"github.com/jhoicas/stock-ledger/pkg/logger"
	"github.com/jhoicas/stock-ledger/pkg/metrics"
)

// backend piezas de almacenamiento según STORE_DRIVER.
type backend struct {
	runner     inventory.TxRunner
	reader     repository.Repos
	warehouses repository.WarehouseRepository
	catalog    interface {
		billing.CatalogResolver
		inventory.ProductReader
	}
	health func(ctx context.Context) error
	close  func()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: cfg.App.LogLevel,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("store", cfg.App.StoreDriver).
		Msg("iniciando aplicación")

	ctx := context.Background()

	shutdownTracing, err := tracing.Init(cfg.App.Name, cfg.Tracing.JaegerEndpoint, log)
	if err != nil {
		log.Fatal().Err(err).Msg("inicializar tracing")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	be, err := openBackend(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("almacenamiento")
	}
	defer be.close()

	// Caché de disponibilidad: opcional, nunca autoritativa.
	var (
		stockCache inventory.StockViewCache = inventory.NoopStockCache{}
		rdb        *redis.Client
	)
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		defer rdb.Close()
		sc := cache.NewStockCache(rdb, cfg.Redis.TTL())
		if err := sc.Ping(ctx); err != nil {
			log.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("redis no disponible; la caché falla abierta")
		}
		stockCache = sc
	}

	ledger := inventory.NewLedger(m)
	quarantine := inventory.NewQuarantineUseCase(be.runner, stockCache, log, m)
	sequencer := billing.NewInvoiceSequencer(billing.SequencerConfig{
		Prefix:          cfg.Invoice.Prefix,
		Period:          cfg.Invoice.Period,
		FallbackEnabled: cfg.Invoice.FallbackEnabled,
		FallbackRetries: cfg.Invoice.FallbackRetries,
	}, log, m)

	createOrderUC := billing.NewCreateOrderUseCase(
		be.runner, be.catalog, be.warehouses,
		inventory.NewReservationManager(ledger), sequencer, quarantine, stockCache, log, m,
	)
	cancelOrderUC := billing.NewCancelOrderUseCase(be.runner, ledger, quarantine, stockCache, log, m)
	orderQueryUC := billing.NewOrderQueryUseCase(be.reader.Orders)
	registerMovementUC := inventory.NewRegisterMovementUseCase(be.runner, ledger, be.catalog, be.warehouses, quarantine, stockCache, log)
	transferUC := inventory.NewTransferUseCase(be.runner, ledger, be.catalog, be.warehouses, be.reader.Transfers, quarantine, stockCache, log)
	stockQueryUC := inventory.NewStockQueryUseCase(be.reader.Stocks, be.reader.Movements, stockCache, log)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "Stock Ledger API",
	}))

	httpRouter.Router(app, httpRouter.RouterDeps{
		AppName:          cfg.App.Name,
		CreateOrder:      createOrderUC,
		CancelOrder:      cancelOrderUC,
		OrderQuery:       orderQueryUC,
		RegisterMovement: registerMovementUC,
		StockQuery:       stockQueryUC,
		Quarantine:       quarantine,
		Transfers:        transferUC,
		JWTSecret:        cfg.JWT.Secret,
		Gatherer:         reg,
		Health: func(ctx context.Context) error {
			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error { return be.health(gctx) })
			if rdb != nil {
				g.Go(func() error { return rdb.Ping(gctx).Err() })
			}
			return g.Wait()
		},
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del tracing")
	}

	log.Info().Msg("aplicación detenida")
}

func openBackend(ctx context.Context, cfg *config.Config, log *logger.Logger) (*backend, error) {
	switch cfg.App.StoreDriver {
	case "memory":
		store := memory.NewStore(cfg.Stock.LockTimeout())
		if cfg.Memory.SeedFile != "" {
			nw, np, err := memory.LoadSeed(store, cfg.Memory.SeedFile)
			if err != nil {
				return nil, err
			}
			log.Info().Int("warehouses", nw).Int("products", np).Msg("datos iniciales cargados en memoria")
		} else {
			log.Warn().Msg("almacén en memoria sin MEMORY_SEED_FILE: no hay bodegas ni productos")
		}
		return &backend{
			runner:     store,
			reader:     store.Reader(),
			warehouses: store.Warehouses(),
			catalog:    store.Catalog(),
			health:     func(context.Context) error { return nil },
			close:      func() {},
		}, nil
	case "postgres":
		pool, err := postgres.NewPool(ctx, cfg.DB)
		if err != nil {
			return nil, err
		}
		runner := postgres.NewTxRunner(pool, cfg.Stock.LockTimeout())
		return &backend{
			runner:     runner,
			reader:     runner.Reader(),
			warehouses: postgres.NewWarehouseRepository(pool),
			catalog:    postgres.NewCatalogRepository(pool),
			health:     pool.Ping,
			close:      pool.Close,
		}, nil
	}
	return nil, errors.New("STORE_DRIVER desconocido: " + cfg.App.StoreDriver)
}
