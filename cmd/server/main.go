// Package main starts the play real-time service and handles termination.
//
// The process is a transport adapter around room lifecycle, persona
// arbitration, and the choice-round flow; finished games are archived to
// SQLite when a database path is configured.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ashfall-games/parlor/internal/generate"
	"github.com/ashfall-games/parlor/internal/platform/config"
	"github.com/ashfall-games/parlor/internal/platform/timeouts"
	server "github.com/ashfall-games/parlor/internal/services/play/app"
	"github.com/ashfall-games/parlor/internal/storage"
	"github.com/ashfall-games/parlor/internal/storage/sqlite"
)

type envConfig struct {
	HTTPAddr    string `env:"PLAY_HTTP_ADDR" envDefault:":8080"`
	DBPath      string `env:"PLAY_DB_PATH"`
	GeminiKey   string `env:"GEMINI_API_KEY"`
	GeminiModel string `env:"GEMINI_MODEL"`
}

func main() {
	var cfg envConfig
	if err := config.ParseEnv(&cfg); err != nil {
		config.Exitf("play server: %v", err)
	}
	log.SetPrefix("[PLAY] ")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	generator, err := newGenerator(ctx, cfg)
	if err != nil {
		config.Exitf("play server: %v", err)
	}

	var results storage.ResultStore
	if cfg.DBPath != "" {
		store, err := sqlite.Open(cfg.DBPath)
		if err != nil {
			config.Exitf("play server: open database: %v", err)
		}
		defer store.Close()
		results = store
		log.Printf("play: result archive enabled path=%s", cfg.DBPath)
	} else {
		log.Printf("play: result archive disabled; set PLAY_DB_PATH to enable")
	}

	err = server.Run(ctx, server.Config{
		HTTPAddr:          cfg.HTTPAddr,
		ReadHeaderTimeout: timeouts.ReadHeader,
		ShutdownTimeout:   timeouts.Shutdown,
		Generator:         generator,
		Results:           results,
	})
	if err != nil {
		config.Exitf("play server: %v", err)
	}
}

// newGenerator picks the persona backend: Gemini when an API key is set,
// the scripted generator otherwise so the service runs without credentials.
func newGenerator(ctx context.Context, cfg envConfig) (generate.Generator, error) {
	if cfg.GeminiKey == "" {
		log.Printf("play: no GEMINI_API_KEY, using scripted generation")
		return generate.NewScripted(), nil
	}
	genCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	return generate.NewGemini(genCtx, cfg.GeminiKey, cfg.GeminiModel)
}
