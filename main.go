package main

import (
	"log"
	"net/http"
	"os"

	"printfast/internal/config"
	"printfast/internal/webserver"
)

func main() {
	cfg, err := config.Load("config.toml")
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	// Create directories for uploaded files and results
	if err := os.MkdirAll(cfg.Files.Uploads, 0755); err != nil {
		log.Fatal("Failed to create uploads directory:", err)
	}

	if err := os.MkdirAll(cfg.Files.Results, 0755); err != nil {
		log.Fatal("Failed to create results directory:", err)
	}

	srv := webserver.New(cfg)
	handler := webserver.CompressionMiddleware(srv.Routes())

	log.Println("Server started on", cfg.Server.Listen)
	log.Println("Open http://localhost" + cfg.Server.Listen + " in your browser")

	if err := http.ListenAndServe(cfg.Server.Listen, handler); err != nil {
		log.Fatal("Server startup error:", err)
	}
}
