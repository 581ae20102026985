package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"grid/internal/config"
	"grid/internal/eagle"
	"grid/internal/graph"
	"grid/internal/logging"
	"grid/internal/models"
	"grid/internal/novelai"
	"grid/internal/services"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cfg := config.Load()
	logger := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stderr)

	if err := run(os.Args[1], os.Args[2:], cfg, logger); err != nil {
		logger.Error("command failed", "command", os.Args[1], "error", err)
		os.Exit(1)
	}
}

func run(command string, args []string, cfg *config.Config, logger *slog.Logger) error {
	if err := os.MkdirAll(filepath.Dir(cfg.DatabasePath), 0o755); err != nil {
		return fmt.Errorf("create database directory: %w", err)
	}
	db, err := graph.Open(graph.Config{Path: cfg.DatabasePath})
	if err != nil {
		return fmt.Errorf("open graph store: %w", err)
	}
	store := graph.NewGraphStore(db)
	defer store.Close()

	ctx := context.Background()
	if !store.CheckConnectivity(ctx) {
		return fmt.Errorf("graph store is not reachable at %s", cfg.DatabasePath)
	}

	provider := novelai.NewClient(cfg.NovelAIBaseURL, cfg.NovelAIAPIKey, logger)
	exporter := eagle.NewClient(cfg.EagleBaseURL, cfg.EagleAPIToken, logger)
	svcs := services.NewServices(store, provider, exporter, cfg, logger)

	switch command {
	case "check":
		info, err := exporter.ApplicationInfo(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("graph store ok, eagle version %v\n", info["version"])
		return nil

	case "generate":
		fs := flag.NewFlagSet("generate", flag.ExitOnError)
		prompt := fs.String("prompt", "", "positive prompt")
		negative := fs.String("negative", "", "negative prompt")
		params := fs.String("params", "{}", "generation parameters as JSON")
		name := fs.String("name", "", "session name")
		notes := fs.String("notes", "", "session notes")
		count := fs.Int("count", 1, "number of provider invocations")
		fs.Parse(args)
		if *prompt == "" {
			return fmt.Errorf("-prompt is required")
		}

		session := &models.GenerationSession{
			ID:                 uuid.NewString(),
			Name:               *name,
			Timestamp:          time.Now(),
			BaseParameters:     *params,
			BasePromptPositive: *prompt,
			BasePromptNegative: *negative,
			Notes:              *notes,
			OverallStatus:      models.SessionPending,
		}
		images, err := svcs.Generation.GenerateBatch(ctx, session, cfg.DefaultUserID, *count)
		if err != nil {
			return err
		}
		fmt.Printf("session %s: %d image(s) generated\n", session.ID, len(images))
		for _, img := range images {
			fmt.Printf("  %s  seed=%d  %s\n", img.ID, img.Seed, img.ImagePath)
		}
		return nil

	case "evaluate":
		fs := flag.NewFlagSet("evaluate", flag.ExitOnError)
		imageID := fs.String("image", "", "image id")
		rating := fs.Int("rating", 0, "rating 0-5")
		fs.Parse(args)
		if *imageID == "" {
			return fmt.Errorf("-image is required")
		}

		image, err := store.GetImage(ctx, *imageID)
		if err != nil {
			return err
		}
		if image == nil {
			return fmt.Errorf("image %s not found", *imageID)
		}
		ok, msg := svcs.Evaluation.EvaluateAndExport(ctx, image, *rating)
		if !ok {
			return fmt.Errorf("evaluation failed: %s", msg)
		}
		fmt.Printf("image %s exported as curation item %s\n", image.ID, image.EagleItemID)
		return nil

	case "register-vibe":
		fs := flag.NewFlagSet("register-vibe", flag.ExitOnError)
		path := fs.String("image", "", "source image path")
		vibeType := fs.String("type", string(models.VibeGeneric), "vibe type: Generic, Parent, or Child")
		ie := fs.Float64("ie", 1.0, "information extracted value")
		notes := fs.String("notes", "", "notes")
		fs.Parse(args)
		if *path == "" {
			return fmt.Errorf("-image is required")
		}

		vibe, err := svcs.Library.RegisterVibe(ctx, *path, models.VibeType(*vibeType), *ie, *notes)
		if err != nil {
			return err
		}
		fmt.Printf("vibe %s registered, blob at %s\n", vibe.ID, vibe.EncodedVibePath)
		return nil

	case "scan-vibes":
		fs := flag.NewFlagSet("scan-vibes", flag.ExitOnError)
		root := fs.String("dir", ".", "directory to scan")
		fs.Parse(args)

		paths, err := svcs.Library.ScanVibeCandidates(*root)
		if err != nil {
			return err
		}
		for _, p := range paths {
			fmt.Println(p)
		}
		return nil

	default:
		usage()
		return fmt.Errorf("unknown command %q", command)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: grid <check|generate|evaluate|register-vibe|scan-vibes> [flags]")
}
