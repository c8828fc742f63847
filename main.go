package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"vstep-prep-backend/config"
	"vstep-prep-backend/dao"
	"vstep-prep-backend/router"
	"vstep-prep-backend/service/feedback"
	"vstep-prep-backend/service/mq"
)

func main() {
	if err := dao.Init(); err != nil {
		slog.Error("failed to init database", "err", err)
		os.Exit(1)
	}

	if len(config.Cfg.MQ.NameServer) > 0 {
		if err := mq.Run(); err != nil {
			slog.Error("failed to start mq", "err", err)
			os.Exit(1)
		}
		defer mq.Shutdown()
	} else {
		slog.Warn("mq name server not configured, background tasks disabled")
	}

	if err := feedback.Init(); err != nil {
		slog.Error("failed to init feedback workers", "err", err)
		os.Exit(1)
	}
	feedback.Instance.Run()

	engine := router.Register()

	port := config.Cfg.Server.Port
	if port == "" {
		port = "8080"
	}

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: engine,
	}

	go func() {
		slog.Info("server listening", "port", port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("forced shutdown", "err", err)
	}
}
