package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"chatrelay/internal/app"
)

func main() {
	// a local .env overrides nothing that is already exported.
	_ = godotenv.Load()

	cfg := app.ServerConfig{
		Addr:   getEnv("CHATRELAY_ADDR", ":5000"),
		WSPath: getEnv("CHATRELAY_WS_PATH", "/ws"),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	handle, err := app.RunServer(ctx, cfg)
	if err != nil {
		log.Fatalf("server error: %v", err)
	}
	log.Printf("chatrelay server listening on %s (ws at %s)", handle.Addr(), cfg.WSPath)

	if err := handle.Wait(); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
