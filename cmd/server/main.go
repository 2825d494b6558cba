package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/comandaapp/comanda/internal/config"
	"github.com/comandaapp/comanda/internal/es"
	"github.com/comandaapp/comanda/internal/handlers"
	"github.com/comandaapp/comanda/internal/logging"
	"github.com/comandaapp/comanda/internal/metrics"
	"github.com/comandaapp/comanda/internal/mykafka"
	"github.com/comandaapp/comanda/internal/repo"
	"github.com/comandaapp/comanda/internal/service"
	httpserver "github.com/comandaapp/comanda/internal/transport/http"
	"github.com/comandaapp/comanda/internal/validation"
	"github.com/comandaapp/comanda/internal/ws"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger := logging.New(cfg.LogLevel)

	db, err := config.InitDB(cfg)
	if err != nil {
		log.Fatalf("database init error: %v", err)
	}

	jwtSecret := []byte(cfg.JWTSecret)

	var producer *mykafka.Producer
	if cfg.KafkaBroker != "" {
		producer = mykafka.NewProducer([]string{cfg.KafkaBroker})
	} else {
		logger.Warn("kafka disabled, KAFKA_ADDRESS not set")
	}

	var esClient *elasticsearch.Client
	if cfg.ESURL != "" {
		esClient, err = es.NewClient(cfg.ESURL, cfg.ESUser, cfg.ESPassword)
		if err != nil {
			logger.Warn("elasticsearch disabled", "error", err)
			esClient = nil
		}
	} else {
		logger.Warn("elasticsearch disabled, ES_URL not set")
	}

	orderRepo := &repo.OrderRepo{DB: db}
	orderSvc := &service.OrderService{Repo: orderRepo, Producer: producer}

	hub := ws.NewHub(func(ctx context.Context, id uint) (interface{}, error) {
		return orderSvc.GetOrder(ctx, id)
	}, logger)
	orderSvc.Notifier = hub

	e := echo.New()
	e.HideBanner = true
	e.Validator = validation.New()
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover(), middleware.RequestID())
	e.Use(logging.RequestLogger(logger))
	e.Use(metrics.Middleware())

	deps := httpserver.Deps{
		DB:        db,
		JWTSecret: jwtSecret,
		Auth:      &handlers.AuthHandler{DB: db, JWTSecret: jwtSecret, Producer: producer},
		Product:   &handlers.ProductHandler{DB: db, ES: esClient},
		Table:     &handlers.TableHandler{DB: db},
		Order:     &handlers.OrderHandler{Svc: orderSvc},
		Checkout:  &handlers.CheckoutHandler{Svc: orderSvc},
		Admin:     &handlers.AdminHandler{DB: db},
		Search:    &handlers.SearchHandler{ES: esClient},
		WS:        &ws.Handler{Hub: hub, JWTSecret: jwtSecret},
	}
	httpserver.Register(e, &deps)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	if sqlDB, err := db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			logger.Error("db close error", "error", err)
		}
	}

	if producer != nil {
		if err := producer.Close(); err != nil {
			logger.Error("kafka close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
