package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"geminialuminium/codec"
	"geminialuminium/common"
	"geminialuminium/config"
	"geminialuminium/manifest"
	"geminialuminium/notify"
	"geminialuminium/pipeline"
	"geminialuminium/watcher"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	watch := flag.Bool("watch", false, "keep running and reprocess a category when its originals change")
	flag.Parse()

	log.SetOutput(os.Stdout)
	log.SetFlags(0)

	if err := run(*configPath, *watch); err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string, watch bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	c := codec.New()
	log.Printf("⚙️  Codec: %s, workers: %d, output: %s", c.Name(), cfg.Workers, cfg.OutputRoot)

	var store *manifest.Store
	var variantStore common.VariantStore
	if cfg.Manifest.Enabled {
		store, err = manifest.Open(cfg.Manifest.Path)
		if err != nil {
			return fmt.Errorf("failed to open manifest: %w", err)
		}
		defer store.Close()
		variantStore = store
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	generator := pipeline.NewGenerator(cfg, c, variantStore)
	processor := pipeline.NewProcessor(cfg, generator, variantStore)
	runner := pipeline.NewRunner(cfg, processor)
	if cfg.Ntfy.Enabled {
		runner.SetNotifier(notify.NewNtfySender(cfg))
	}

	if _, err := runner.Run(ctx); err != nil {
		return err
	}

	if !watch {
		return nil
	}

	w, err := watcher.NewWatcher(cfg, processor, generator.Sizes())
	if err != nil {
		return err
	}
	if store != nil {
		w.SetForgetter(store)
	}
	if err := w.Start(ctx); err != nil {
		w.Stop()
		return err
	}

	log.Println("Press Ctrl+C to stop")

	go func() {
		for event := range w.Events() {
			if event.Type == watcher.EventProcessed && event.Stats != nil {
				log.Printf("🔁 Reprocessed %s: %d/%d images", event.Stats.Category, event.Stats.Processed, event.Stats.Found)
			}
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down...")
	return w.Stop()
}
