package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/mdobak/go-xerrors"

	"github.com/ironsheep/level-check-mcp/internal/config"
	"github.com/ironsheep/level-check-mcp/internal/imaging"
	"github.com/ironsheep/level-check-mcp/internal/ocr"
	"github.com/ironsheep/level-check-mcp/internal/server"
	"github.com/ironsheep/level-check-mcp/internal/vision"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	// Handle --version and -v flags
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "--version", "-v", "version":
			fmt.Printf("level-check-mcp %s\n", Version)
			fmt.Printf("  Build time: %s\n", BuildTime)
			fmt.Printf("  Git commit: %s\n", GitCommit)
			return
		case "--help", "-h", "help":
			fmt.Println("level-check-mcp - MCP server for floor level surveys")
			fmt.Println()
			fmt.Println("Usage: level-check-mcp [options]")
			fmt.Println()
			fmt.Println("Options:")
			fmt.Println("  --version, -v    Print version information")
			fmt.Println("  --help, -h       Print this help message")
			fmt.Println()
			fmt.Println("Environment variables (also read from ./.env):")
			fmt.Println("  LEVEL_MCP_LOG_LEVEL=debug          debug, info, warn or error")
			fmt.Println("  LEVEL_MCP_OCR_LANGUAGE=eng         Tesseract language")
			fmt.Println("  LEVEL_MCP_TESSDATA_PREFIX=<dir>    Tesseract language data directory")
			fmt.Println("  LEVEL_MCP_LASER_COLOR=red          red or green")
			fmt.Println("  LEVEL_MCP_LASER_MIN_PIXELS=12      Smallest accepted laser dot")
			fmt.Println("  LEVEL_MCP_PLANE_FIT=vertical       vertical or svd")
			fmt.Println()
			fmt.Println("This server communicates via MCP protocol over stdin/stdout.")
			fmt.Println("Configure it in your MCP client (e.g., Claude Desktop).")
			return
		}
	}

	cfg, err := config.Load(".env")
	if err != nil {
		fmt.Fprintf(os.Stderr, "level-check-mcp: %v\n", err)
		os.Exit(2)
	}

	// Logs go to stderr; stdout is for the MCP protocol.
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		AddSource: true,
		Level:     cfg.LogLevel,
	}))
	logger.Debug("starting",
		slog.String("version", Version),
		slog.String("build_time", BuildTime),
		slog.String("commit", GitCommit))

	engine := ocr.NewEngine(cfg.OCR())
	if info := engine.Info(); !info.Available {
		logger.Warn("OCR unavailable, photo capture will need manual entry or a cached calibration",
			slog.String("error", info.Error))
	}

	analyzer := vision.NewAnalyzer(
		imaging.NewImageCache(imaging.DefaultCacheSize),
		engine,
		vision.Options{Laser: cfg.Laser()},
		logger,
	)

	srv := server.New(server.Options{
		Analyzer: analyzer,
		OCR:      engine,
		PlaneFit: cfg.PlaneFit,
		Logger:   logger,
		Version:  Version,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.Run(ctx); err != nil && ctx.Err() == nil {
		logger.Error("server error", slog.Any("error", xerrors.New(err)))
		os.Exit(1)
	}
}
