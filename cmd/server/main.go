package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	stdhttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vncsmyrnk/rushvote/internal/adapters/handler/http"
	"github.com/vncsmyrnk/rushvote/internal/app"
	"github.com/vncsmyrnk/rushvote/internal/config"
	"github.com/vncsmyrnk/rushvote/internal/logging"
)

func main() {
	cfg, err := config.Load("server", os.Args[1:])
	if err != nil {
		log.Fatal(err)
	}
	logging.Init(logging.ParseLevel(cfg.LogLevel), cfg.LogFormat)
	logger := logging.New("server")

	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer application.Close()

	if err := application.WatchRounds(ctx); err != nil {
		log.Fatal(err)
	}

	handler := http.NewHandler(http.Handlers{
		Rounds:       http.NewRoundHandler(application.Rounds),
		Deliberation: http.NewDeliberationHandler(application.Deliberation),
		Votes:        http.NewVoteHandler(application.Votes),
		Stats:        http.NewStatsHandler(application.Stats, application.Standings),
		Events:       http.NewEventsHandler(application.Bus),
	}, http.NewAuthenticator(cfg.JWTSecret))

	server := &stdhttp.Server{Addr: fmt.Sprintf("0.0.0.0:%d", cfg.Port), Handler: handler}

	go func() {
		logger.Info("listening", "addr", server.Addr, "store", cfg.Store)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	<-ctx.Done()
	logger.Info("gracefully shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal(err)
	}
}
