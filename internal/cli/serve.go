package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/lazypower/lumine/internal/engine"
	"github.com/lazypower/lumine/internal/llm"
	"github.com/lazypower/lumine/internal/server"
)

const gracefulShutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	if cfg.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret (or JWT_SECRET) must be set to serve the API")
	}
	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	reviews, err := newReviewService(db)
	if err != nil {
		return err
	}

	client, err := llm.NewClient(cfg.LLM)
	if err != nil {
		log.Warn().Err(err).Str("provider", cfg.LLM.Provider).Msg("ai-disabled")
		client = nil
	} else {
		log.Info().Str("provider", cfg.LLM.Provider).Str("model", cfg.LLM.Model).Msg("ai-enabled")
	}
	eng := engine.New(db, client, reviews)
	defer eng.Stop()
	if cfg.Reminders.Enabled {
		eng.StartReminderTimer(cfg.Reminders.Interval)
	}

	srv, err := server.New(db, eng, server.Config{
		Version:   VersionString(),
		JWTSecret: []byte(cfg.Auth.JWTSecret),
		Issuer:    cfg.Auth.Issuer,
		Location:  loc,
	})
	if err != nil {
		return fmt.Errorf("create server: %w", err)
	}

	httpServer := &http.Server{
		Addr:              cfg.ListenAddr(),
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
	}

	idleConnsClosed := make(chan struct{})
	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		<-sig
		log.Info().Msg("got quit signal...")
		ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(ctx); err != nil {
			log.Error().Err(err).Msg("http-shutdown-failed")
		}
		close(idleConnsClosed)
	}()

	log.Info().Str("addr", httpServer.Addr).Str("db", db.Path).Msg("lumine-serving")
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve: %w", err)
	}
	<-idleConnsClosed
	log.Info().Msg("server gracefully shut down")
	return nil
}
