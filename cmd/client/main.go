package main

import (
	"flag"
	"fmt"
	"os"

	"chatrelay/internal/app"
)

func main() {
	defaultServer := envOrDefault("CHATRELAY_SERVER", "ws://localhost:5000/ws")
	defaultUser := envOrDefault("CHATRELAY_USER", "")

	serverURL := flag.String("server", defaultServer, "WebSocket URL (e.g., ws://localhost:5000/ws)")
	username := flag.String("user", defaultUser, "default display name for the join prompt")
	flag.Parse()

	var room string
	if args := flag.Args(); len(args) >= 1 {
		room = args[0]
	}

	cfg := app.ClientConfig{
		ServerURL: *serverURL,
		Username:  *username,
		Room:      room,
	}

	if err := app.RunClient(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func envOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
