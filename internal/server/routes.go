package server

import (
	"chograce/internal/config"
	"chograce/internal/db"
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
)

const shutdownTimeout = 5 * time.Second

func Run(cfg config.Config) error {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          "chograce",
		Level:           cfg.Level(),
	})
	log.SetDefault(logger)

	// Optional database connection
	var database *db.DB
	if cfg.DatabaseURL != "" {
		conn, err := db.Connect(cfg.DatabaseURL)
		if err != nil {
			log.Warn("database unavailable, running without database", "err", err)
		} else {
			if err := conn.Migrate(); err != nil {
				log.Error("migration failed", "err", err)
			}
			database = conn
			defer database.Close()
		}
	} else {
		log.Info("DATABASE_URL not set, running without database")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := New(cfg, database)
	if srv.Archive != nil {
		go srv.Archive.Run(ctx)
	}

	httpSrv := &http.Server{
		Addr:    "0.0.0.0:" + cfg.Port,
		Handler: srv.Routes(),
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			log.Error("shutdown", "err", err)
		}
	}()

	log.Info("server listening", "addr", "http://localhost:"+cfg.Port,
		"max_hits", cfg.MaxHits, "ledger", cfg.FinishLedger)
	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
