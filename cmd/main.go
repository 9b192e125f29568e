package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/yungbote/fieldsales-backend/internal/app"
)

func main() {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	a, err := app.New()
	if err != nil {
		fmt.Printf("Failed to init app: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	a.Start()

	errCh := make(chan error, 1)
	go func() { errCh <- a.Run() }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			a.Log.Error("HTTP server stopped", "error", err)
			a.Close()
			os.Exit(1)
		}
	case sig := <-sigCh:
		a.Log.Info("Shutting down", "signal", sig.String())
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := a.Shutdown(ctx); err != nil {
			a.Log.Warn("HTTP shutdown incomplete", "error", err)
		}
		cancel()
	}
}
