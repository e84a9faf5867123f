package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/1Crazymoney/ilp-backend-crypto/backend"
	"github.com/1Crazymoney/ilp-backend-crypto/controller/rate"
	_ "github.com/1Crazymoney/ilp-backend-crypto/docs"
	"github.com/1Crazymoney/ilp-backend-crypto/metrics"
	"github.com/1Crazymoney/ilp-backend-crypto/service/coincap"
	"github.com/1Crazymoney/ilp-backend-crypto/storage/accounts"
	"github.com/1Crazymoney/ilp-backend-crypto/storage/persistence"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/swagger"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const connectTimeout = 30 * time.Second

//go:generate swag init

//	@title			Crypto rate backend
//	@version		1.0
//	@description	Exchange rates between connector accounts priced by CoinCap
//	@host			localhost:3000
func main() {
	cfg, err := loadConfig(os.Getenv("CONFIG_PATH"))
	if err != nil {
		log.Error().Err(err).Msg("unable to read configuration file")
		os.Exit(1)
	}

	if err := New(cfg); err != nil {
		log.Error().Err(err).Msg("unable to initialize application")
		os.Exit(1)
	}
}

func New(cfg Config) error {
	a := Application{cfg: cfg}
	return a.init()
}

type Application struct {
	cfg      Config             // application configuration
	fiberApp *fiber.App         // underlying fiber application
	dbConn   *sql.DB            // underlying persistence connection, nil without db
	registry *accounts.Registry // account info lookup
	backend  *backend.Backend   // rate backend
	stopC    chan os.Signal     // handle interrupt for clean up(close connections, etc)
}

func (a *Application) init() error {
	level, err := zerolog.ParseLevel(a.cfg.LogLevel)
	if err != nil {
		return err
	}
	zerolog.SetGlobalLevel(level)

	spread, err := a.cfg.SpreadValue()
	if err != nil {
		return err
	}

	a.fiberApp = fiber.New()
	a.stopC = make(chan os.Signal, 1)
	signal.Notify(a.stopC, os.Interrupt)

	a.registry = accounts.New(a.cfg.Accounts...)

	if a.cfg.DBHost != "" {
		if err := a.initDB(); err != nil {
			return err
		}
	}

	promRegistry := prometheus.NewRegistry()
	a.backend = backend.New(backend.Opts{
		Spread:    spread,
		CreateAPI: coincap.Connect(a.cfg.Coincap),
		Metrics:   metrics.NewRateMetrics(promRegistry),
	}, backend.Services{
		GetInfo: a.registry.GetInfo,
	})

	ctx, cancelFn := context.WithTimeout(context.Background(), connectTimeout)
	defer cancelFn()

	if err := a.backend.Connect(ctx); err != nil {
		log.Error().Err(err).Msg("unable to connect to price source")
		a.closeDB()
		return err
	}

	a.buildRoutes(promRegistry)
	go a.stop()
	log.Debug().Str("spread", spread.String()).Msg("preparing fiber http server")

	if err := a.fiberApp.Listen(a.cfg.HTTPPort); err != nil {
		log.Error().Err(err).Msg("unable to start http server")
	}

	return nil
}

func (a *Application) initDB() error {
	connStr := fmt.Sprintf("postgresql://%s:%s@%s:%s/%s?sslmode=disable",
		a.cfg.DBUsername,
		a.cfg.DBPassword,
		a.cfg.DBHost,
		a.cfg.DBPort,
		a.cfg.DBName,
	)
	log.Debug().Str("host", a.cfg.DBHost).Str("db", a.cfg.DBName).Msg("initialize db connection")

	dbConn, err := sql.Open("postgres", connStr)
	if err != nil {
		log.Error().Err(err).Msg("unable to connect to db")
		return err
	}
	a.dbConn = dbConn

	ctx, cancelFn := context.WithTimeout(context.Background(), connectTimeout)
	defer cancelFn()

	if err := a.registry.LoadFrom(ctx, persistence.New(dbConn)); err != nil {
		log.Error().Err(err).Msg("unable to load accounts")
		a.closeDB()
		return err
	}

	return nil
}

func (a *Application) buildRoutes(reg *prometheus.Registry) {
	c := rate.New(a.backend)

	a.fiberApp.Get("/swagger/*", swagger.HandlerDefault)
	a.fiberApp.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
	a.fiberApp.Get("/rate", c.Rate)
	a.fiberApp.Post("/payments", c.Payment)
}

func (a *Application) closeDB() {
	if a.dbConn != nil {
		a.dbConn.Close()
	}
}

func (a *Application) stop() {
	<-a.stopC
	a.fiberApp.Shutdown()
	if err := a.backend.Disconnect(); err != nil {
		log.Error().Err(err).Msg("unable to disconnect from price source")
	}
	a.closeDB()
	os.Exit(0)
}
