package main

import (
	"context"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/go-redis/redis/v9"
	"golang.org/x/sync/errgroup"

	"safacycle/internal/analytics"
	"safacycle/internal/client"
	"safacycle/internal/configuration"
	"safacycle/internal/database"
	"safacycle/internal/logger"
	"safacycle/internal/server"
)

func main() {
	if err := runApp(); err != nil {
		time.Sleep(10 * time.Second)
		os.Exit(1)
	}
}

func runApp() error {
	appContext := context.Background()
	logOutput := io.Writer(os.Stdout)
	appLogger := logger.NewLogger(logger.LevelInfo, logOutput)

	defer func() {
		if r := recover(); r != nil {
			appLogger.Errorf("APPLICATION CRASHED: %+v", r)
		}
	}()

	config, err := configuration.GetConfig("config.toml")
	if err != nil {
		appLogger.Error("Error getting configuration from config.toml:", err)
		return err
	}

	if config.LogToFile {
		logFile, err := os.OpenFile("safacycle_backend.log", os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			appLogger.Error("Error opening log file:", err)
			return err
		}
		defer func() {
			if err := logFile.Close(); err != nil {
				appLogger.Error("Error closing log file:", err)
			}
		}()
		logOutput = io.MultiWriter(logOutput, logFile)
	}
	appLogger = logger.NewLogger(config.LogLevel, logOutput)

	appLogger.Info("Connecting to postgres at", config.PostgresURI)
	db, err := database.Connect(config.PostgresURI)
	if err != nil {
		appLogger.Error("Error connecting to postgres:", err)
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			appLogger.Error("Error closing postgres connection:", err)
		}
	}()
	if err = db.Migrate(appContext); err != nil {
		appLogger.Error("Error migrating schema:", err)
		return err
	}

	gateway := analytics.NewGateway(config.MongoURI, config.MongoDatabase, config.MongoTimeout, appLogger)
	defer func() {
		if err := gateway.Close(appContext); err != nil {
			appLogger.Error("Error disconnecting from document store:", err)
		}
	}()
	if gateway.IsConnected(appContext) {
		appLogger.Info("Document store connected at", config.MongoURI)
	} else {
		appLogger.Warn("Document store unreachable at startup, analytics mirroring is degraded")
	}

	replicator := analytics.NewReplicator(gateway, config.ReplicationQueueSize, appLogger)

	cache := redis.NewClient(&redis.Options{Addr: config.RedisAddress})
	defer func() {
		if err := cache.Close(); err != nil {
			appLogger.Error("Error closing redis connection:", err)
		}
	}()

	srv := server.Server{
		DB:         db,
		Gateway:    gateway,
		Replicator: replicator,
		Client: client.Client{
			Client: &http.Client{Timeout: 15 * time.Second},
			FCMKey: config.FCMKey,
			Logger: appLogger,
		},
		Cache:         cache,
		Logger:        appLogger,
		AuthSecretKey: config.AuthSecretKey,
		StatsCacheTTL: config.StatsCacheTTL,
	}

	httpSrv := &http.Server{
		Handler:      srv.Router(),
		Addr:         config.ServerAddress,
		WriteTimeout: 15 * time.Second,
		ReadTimeout:  15 * time.Second,
		IdleTimeout:  15 * time.Second,
	}

	g, gCtx := errgroup.WithContext(appContext)
	g.Go(func() error {
		appLogger.Info("Starting replicator with queue size:", config.ReplicationQueueSize)
		return replicator.Run(gCtx)
	})
	g.Go(func() error {
		appLogger.Info("Serving on", httpSrv.Addr)
		return httpSrv.ListenAndServe()
	})
	g.Go(func() error {
		<-gCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
