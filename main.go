package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/n0madic/go-vertexproxy/internal/config"
	"github.com/n0madic/go-vertexproxy/internal/gcpauth"
	"github.com/n0madic/go-vertexproxy/internal/proxy"
	"github.com/n0madic/go-vertexproxy/internal/runlog"
	"github.com/n0madic/go-vertexproxy/internal/stats"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "Usage: go-vertexproxy <command> [flags]")
		fmt.Fprintln(os.Stderr, "Commands: serve, info")
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		os.Exit(cmdServe())
	case "info":
		os.Exit(cmdInfo())
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		fmt.Fprintln(os.Stderr, "Commands: serve, info")
		os.Exit(1)
	}
}

func cmdServe() int {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	cfg := config.DefaultFromEnv()

	configPath := fs.String("config", config.ConfigFilePath(), "Config file path")
	fs.StringVar(&cfg.Host, "host", cfg.Host, "Bind host")
	fs.IntVar(&cfg.Port, "port", cfg.Port, "Listen port")
	fs.StringVar(&cfg.ProjectID, "project", cfg.ProjectID, "Google Cloud project id")
	fs.StringVar(&cfg.DefaultRegion, "region", cfg.DefaultRegion, "Default Anthropic region")
	fs.StringVar(&cfg.GoogleRegion, "google-region", cfg.GoogleRegion, "Default Google region")
	fs.BoolVar(&cfg.Verbose, "verbose", cfg.Verbose, "Enable verbose logging")
	fs.Parse(os.Args[2:])

	if err := cfg.LoadFile(*configPath); err != nil {
		slog.Error("failed to load config file", "error", err)
		return 1
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		return 1
	}

	logWriter, err := runlog.NewWriter(cfg.LogPath())
	if err != nil {
		slog.Error("failed to open request log", "error", err)
		return 1
	}
	defer logWriter.Close()

	level := slog.LevelInfo
	if cfg.Verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(
		io.MultiWriter(os.Stderr, logWriter),
		&slog.HandlerOptions{Level: level},
	)))

	// Missing credentials are not fatal at startup; requests surface a 500
	// (only a missing project id exits non-zero). Credentials are looked up
	// once here, so a restart is needed to pick them up later.
	var tokens gcpauth.TokenSource
	if adc, err := gcpauth.NewADCSource(context.Background()); err != nil {
		slog.Warn("credential provider unavailable, requests will fail", "error", err)
		tokens = gcpauth.StaticSource("")
	} else {
		tokens = adc
	}

	srv := proxy.New(cfg, tokens)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\nShutting down...")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	}()

	slog.Info("vertexproxy starting",
		"host", cfg.Host,
		"port", cfg.Port,
		"project", cfg.ProjectID,
		"region", cfg.DefaultRegion,
	)
	if err := srv.ListenAndServe(); err != nil && err.Error() != "http: Server closed" {
		slog.Error("server error", "error", err)
		return 1
	}
	return 0
}

func cmdInfo() int {
	fs := flag.NewFlagSet("info", flag.ExitOnError)
	jsonOut := fs.Bool("json", false, "Output raw stats.json contents")
	fs.Parse(os.Args[2:])

	cfg := config.DefaultFromEnv()
	snap, err := stats.Load(cfg.StatsPath())
	if err != nil {
		if *jsonOut {
			fmt.Println("{}")
			return 0
		}
		fmt.Println("No stats available yet. Start the proxy with: go-vertexproxy serve")
		return 0
	}

	if *jsonOut {
		data, _ := json.MarshalIndent(snap, "", "  ")
		fmt.Println(string(data))
		return 0
	}

	fmt.Println("Vertex Proxy")
	fmt.Printf("  Started:      %s\n", snap.StartTime.Local().Format("Jan 02, 2006 15:04 MST"))
	fmt.Printf("  Port:         %d\n", snap.Port)
	fmt.Printf("  Requests:     %d\n", snap.RequestCount)
	if !snap.LastRequestTime.IsZero() {
		fmt.Printf("  Last request: %s\n", snap.LastRequestTime.Local().Format("Jan 02, 2006 15:04 MST"))
	}
	return 0
}
