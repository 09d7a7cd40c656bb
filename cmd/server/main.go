package main // Entry point package

import (
	"context"
	"database/sql"
	"errors"
	"log" // Logging library
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"                // Echo web framework
	echomw "github.com/labstack/echo/v4/middleware" // request logging and panic recovery
	glog "github.com/labstack/gommon/log"

	"github.com/iliyamo/parking-lot/internal/config"     // Internal config loader
	"github.com/iliyamo/parking-lot/internal/database"   // Connection pools and schema
	"github.com/iliyamo/parking-lot/internal/grid"       // Grid engine
	"github.com/iliyamo/parking-lot/internal/handler"    // HTTP handlers
	"github.com/iliyamo/parking-lot/internal/mailbox"    // Per-user notifications
	"github.com/iliyamo/parking-lot/internal/middleware" // Cache and rate limiter
	"github.com/iliyamo/parking-lot/internal/queue"      // Towing event consumer
	"github.com/iliyamo/parking-lot/internal/repository" // Storage
	"github.com/iliyamo/parking-lot/internal/router"     // Internal router setup
	"github.com/iliyamo/parking-lot/internal/service"    // Towing event publisher
)

func main() {
	cfg := config.Load() // Load environment config
	gridCfg, err := config.LoadGridConfig()
	if err != nil {
		log.Fatal(err)
	}
	eventsCfg, err := config.LoadEventsConfig()
	if err != nil {
		log.Fatal(err)
	}

	db, dialect, err := openDB(cfg)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer db.Close()

	prov := repository.NewProvisioner(db, dialect)
	bootCtx, cancelBoot := context.WithTimeout(context.Background(), 10*time.Second)
	if err := prov.Ensure(bootCtx); err != nil {
		// Tables are provisioned again on first use.
		log.Printf("schema: %v", err)
	}
	cancelBoot()

	e := echo.New() // Create Echo instance
	e.HideBanner = true
	if cfg.Env == "dev" {
		e.Logger.SetLevel(glog.DEBUG)
	} else {
		e.Logger.SetLevel(glog.INFO)
	}
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(echomw.Logger())

	users := repository.NewUserRepo(db, prov)
	tokens := repository.NewTokenRepo(db, prov)
	box := mailbox.New(repository.NewUserLogRepo(db, prov), e.Logger)
	engine := grid.NewEngine(gridCfg.Size, repository.NewGridRepo(db, prov), box, e.Logger)

	rdb, err := config.NewRedisClient(config.LoadRedisConfig())
	if err != nil {
		log.Printf("redis unavailable, cache and rate limit disabled: %v", err)
	}
	if rdb != nil {
		defer rdb.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var events handler.TowPublisher
	if eventsCfg.Enabled {
		events = service.NewTowPublisher(eventsCfg.URL, eventsCfg.Queue, gridCfg.Size)
		go func() {
			if err := queue.StartTowingConsumer(ctx, eventsCfg.URL, eventsCfg.Queue, eventsCfg.LogDir); err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("towing consumer stopped: %v", err)
			}
		}()
	}

	router.RegisterRoutes(e, db, middleware.NewRedisCache(config.LoadCacheConfig(), rdb)) // Register application routes
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, users, tokens), cfg.JWTSecret)
	router.RegisterUsers(e, handler.NewUsersHandler(cfg, users), cfg.JWTSecret)
	router.RegisterGrid(e, handler.NewGridHandler(engine, box, users, events), cfg.JWTSecret,
		middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))

	addr := ":" + cfg.Port                                                            // Address string with port
	log.Printf("listening on %s (env=%s, grid=%dx%d)", addr, cfg.Env, gridCfg.Size, gridCfg.Size) // Print startup info

	go func() {
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) { // Start HTTP server
			log.Fatal(err) // Log and exit if server fails
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}

// openDB opens the pool selected by DB_DRIVER.
func openDB(cfg config.Config) (*sql.DB, database.Dialect, error) {
	dialect, err := database.DialectFor(cfg.DBDriver)
	if err != nil {
		return nil, database.Dialect{}, err
	}
	var db *sql.DB
	if dialect.Name == database.SQLite.Name {
		db, err = database.OpenSQLite(cfg.DBPath)
	} else {
		db, err = database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	}
	if err != nil {
		return nil, database.Dialect{}, err
	}
	return db, dialect, nil
}
