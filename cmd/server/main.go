package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"stockroom/internal/adapter/event"
	"stockroom/internal/adapter/handler"
	"stockroom/internal/adapter/storage"
	"stockroom/internal/config"
	"stockroom/internal/core/service"
	"stockroom/internal/port"
)

func main() {
	log.SetFormatter(&log.JSONFormatter{})

	app := &cli.App{
		Name:  "stockroom",
		Usage: "inventory management backend",
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "run the HTTP server",
				Action: runServe,
			},
			{
				Name:   "migrate",
				Usage:  "apply database migrations and exit",
				Action: runMigrate,
			},
			{
				Name:   "seed",
				Usage:  "populate the database with sample catalog data",
				Action: runSeed,
			},
		},
		DefaultCommand: "serve",
	}

	if err := app.Run(os.Args); err != nil {
		log.WithError(err).Fatal("stockroom exited with error")
	}
}

func openMySQL(ctx context.Context, cfg *config.Config) (*sqlx.DB, error) {
	db, err := sqlx.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(cfg.MySQLMaxOpenConns)
	db.SetMaxIdleConns(cfg.MySQLMaxIdleConns)
	db.SetConnMaxLifetime(cfg.MySQLConnLifetime)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func runServe(c *cli.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := openMySQL(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()
	log.Info("connected to mysql")

	if err := storage.RunMigrations(db); err != nil {
		return err
	}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, PoolSize: cfg.RedisPoolSize})
	defer rdb.Close()

	var cache port.AvailabilityCache
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.WithError(err).Warn("redis unavailable, availability cache disabled")
		cache = storage.NopCache{}
	} else {
		log.Info("connected to redis")
		cache = storage.NewRedisCache(rdb, cfg.CacheTTL)
	}

	var events port.EventPublisher = event.NopPublisher{}
	if cfg.AMQPURL != "" {
		publisher, err := event.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			return err
		}
		defer publisher.Close()
		events = publisher
		log.Info("connected to rabbitmq")
	}

	store := storage.NewMySQLStore(db)
	ledger := service.NewStockLedger(store, cache, events)
	orders := service.NewOrderService(store, ledger, cache, events)
	catalog := service.NewCatalogService(store)

	httpHandler := handler.NewHTTPHandler(orders, ledger, catalog)
	server := &http.Server{Addr: cfg.HTTPAddr, Handler: httpHandler.Router()}

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		log.WithField("addr", cfg.HTTPAddr).Info("http server listening")
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-ctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return group.Wait()
}

func runMigrate(c *cli.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	db, err := openMySQL(c.Context, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := storage.RunMigrations(db); err != nil {
		return err
	}
	log.Info("migrations applied")
	return nil
}

func runSeed(c *cli.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	db, err := openMySQL(c.Context, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := storage.RunMigrations(db); err != nil {
		return err
	}
	return seed(c.Context, db)
}

// seed populates a fresh database with a small catalog: a two-level
// category tree, stocked items, one client and one open order. Skips when
// categories already exist.
func seed(ctx context.Context, db *sqlx.DB) error {
	var count int
	if err := db.GetContext(ctx, &count, `SELECT COUNT(*) FROM categories`); err != nil {
		return err
	}
	if count > 0 {
		log.Info("database already seeded")
		return nil
	}

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `INSERT INTO categories (name) VALUES ('Electronics')`)
	if err != nil {
		return err
	}
	electronicsID, _ := res.LastInsertId()

	res, err = tx.ExecContext(ctx, `INSERT INTO categories (name, parent_id) VALUES ('Laptops', ?)`, electronicsID)
	if err != nil {
		return err
	}
	laptopsID, _ := res.LastInsertId()

	res, err = tx.ExecContext(ctx, `INSERT INTO categories (name, parent_id) VALUES ('Phones', ?)`, electronicsID)
	if err != nil {
		return err
	}
	phonesID, _ := res.LastInsertId()

	if _, err = tx.ExecContext(ctx, `INSERT INTO categories (name) VALUES ('Office Supplies')`); err != nil {
		return err
	}

	items := []struct {
		name       string
		categoryID int64
		priceCents int64
		onHand     int
	}{
		{"ThinkPad X1", laptopsID, 189900, 10},
		{"MacBook Air", laptopsID, 119900, 25},
		{"Pixel 9", phonesID, 79900, 40},
		{"iPhone 16", phonesID, 99900, 15},
	}
	for _, it := range items {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO items (name, category_id, price_cents, on_hand, reserved)
			VALUES (?, ?, ?, ?, 0)`,
			it.name, it.categoryID, it.priceCents, it.onHand); err != nil {
			return err
		}
	}

	res, err = tx.ExecContext(ctx, `INSERT INTO clients (name, address) VALUES ('Acme Corp', '1 Industrial Way')`)
	if err != nil {
		return err
	}
	clientID, _ := res.LastInsertId()

	if _, err := tx.ExecContext(ctx, `INSERT INTO orders (client_id, status) VALUES (?, 'open')`, clientID); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	log.Info("seed data inserted")
	return nil
}
