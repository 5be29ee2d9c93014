package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/swagger"
	"github.com/kylycht/fxrates/controller/rates"
	"github.com/kylycht/fxrates/service"
	"github.com/kylycht/fxrates/source"
	"github.com/kylycht/fxrates/source/fastforex"
	"github.com/kylycht/fxrates/source/frankfurter"
	"github.com/kylycht/fxrates/source/openerapi"
	"github.com/kylycht/fxrates/storage"
	"github.com/kylycht/fxrates/storage/cache"
	"github.com/kylycht/fxrates/storage/persistence"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

//	@title			FX Rates Aggregator
//	@version		1.0
//	@description	Aggregated currency exchange rates with cached lookup and trend analysis

// @host		localhost:3000
func main() {
	content, err := os.ReadFile("config.yaml")
	if err != nil {
		log.Error().Err(err).Msg("unable to read configuration file")
		os.Exit(1)
	}

	cfg := Config{}
	if err := yaml.Unmarshal(content, &cfg); err != nil {
		log.Error().Err(err).Msg("unable to parse configuration file")
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
	cfg         Config              // application configuration
	fiberApp    *fiber.App          // underlying fiber application
	db          storage.Storage     // persistence provider
	dbConn      *sql.DB             // underlying persistence connection
	redisClient *redis.Client       // underlying cache connection
	cache       storage.Cache       // cache provider for rates
	conversion  *service.Conversion // conversion and refresh orchestration
	trend       *service.Trend      // trend analysis
	ticker      *time.Ticker        // drives the periodic refresh cycle
	stopC       chan os.Signal      // handle interrupt for clean up(close connections, etc)
}

func (a *Application) init() error {
	a.fiberApp = fiber.New()
	a.stopC = make(chan os.Signal, 1)
	signal.Notify(a.stopC, os.Interrupt)

	connStr := fmt.Sprintf("postgresql://%s:%s@%s:%s/%s?sslmode=disable",
		a.cfg.DBUsername,
		a.cfg.DBPassword,
		a.cfg.DBHost,
		a.cfg.DBPort,
		a.cfg.DBName,
	)
	log.Debug().Str("connStr", connStr).Msg("initialize db connection")

	dbConn, err := sql.Open("postgres", connStr)
	if err != nil {
		log.Error().Err(err).Msg("unable to connect to db")
		return err
	}

	a.dbConn = dbConn
	a.db = persistence.New(dbConn)

	a.redisClient = redis.NewClient(&redis.Options{
		Addr:     a.cfg.RedisAddr,
		Password: a.cfg.RedisPassword,
		DB:       a.cfg.RedisDB,
	})
	a.cache = cache.New(a.redisClient, minutesOrDefault(a.cfg.CacheTTLMinutes, 120))

	sourceTimeout := secondsOrDefault(a.cfg.SourceTimeoutSeconds, 5)

	forexClient, err := fastforex.New(a.cfg.FastForexAPIKey, sourceTimeout)
	if err != nil {
		log.Error().Err(err).Msg("unable to create fastforex client")
		return err
	}

	sources := []source.RateSource{
		forexClient,
		frankfurter.New(sourceTimeout),
		openerapi.New(sourceTimeout),
	}

	aggregator := service.NewAggregator(sources, a.db, int64(a.cfg.FetchWorkers), sourceTimeout)
	retrieval := service.NewRetrieval(a.cache, a.db)
	a.conversion = service.NewConversion(aggregator, retrieval, a.cache, a.db)
	a.trend = service.NewTrend(a.db)

	a.buildRoutes()
	go a.refreshLoop(minutesOrDefault(a.cfg.RefreshIntervalMinutes, 60))
	go a.stop()
	log.Debug().Msg("preparing fiber http server")

	if err := a.fiberApp.Listen(a.cfg.HTTPPort); err != nil {
		log.Error().Err(err).Msg("unable to start http server")
	}

	return nil
}

func (a *Application) buildRoutes() {
	handler := rates.New(a.conversion, a.trend)

	a.fiberApp.Get("/swagger/*", swagger.HandlerDefault)
	a.fiberApp.Get("/convert", handler.Convert)
	a.fiberApp.Get("/rates/best", handler.BestRate)
	a.fiberApp.Get("/rates/history", handler.History)
	a.fiberApp.Get("/rates/trend", handler.Trend)
	a.fiberApp.Post("/rates/refresh", handler.Refresh)
}

// refreshLoop runs one refresh cycle immediately, then one
// per interval. A failed cycle is only logged; the next tick
// is the retry.
func (a *Application) refreshLoop(interval time.Duration) {
	a.refresh()

	a.ticker = time.NewTicker(interval)
	for t := range a.ticker.C {
		log.Debug().Str("time", t.String()).Msg("starting scheduled refresh")
		a.refresh()
	}
}

func (a *Application) refresh() {
	count, err := a.conversion.RefreshRates(context.Background())
	if err != nil {
		log.Error().Err(err).Msg("refresh cycle failed, will retry on next tick")
		return
	}

	log.Info().Int("observations", count).Msg("refresh cycle completed")
}

func (a *Application) stop() {
	<-a.stopC
	if a.ticker != nil {
		a.ticker.Stop()
	}
	a.fiberApp.Shutdown()
	a.dbConn.Close()
	a.redisClient.Close()
	os.Exit(0)
}

func minutesOrDefault(minutes, fallback int) time.Duration {
	if minutes <= 0 {
		minutes = fallback
	}
	return time.Duration(minutes) * time.Minute
}

func secondsOrDefault(seconds, fallback int) time.Duration {
	if seconds <= 0 {
		seconds = fallback
	}
	return time.Duration(seconds) * time.Second
}
