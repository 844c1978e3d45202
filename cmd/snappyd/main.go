package main

import (
	"context"
	"errors"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mattn/go-colorable"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"github.com/tobsch/snappy/internal/config"
	"github.com/tobsch/snappy/internal/deploy"
	"github.com/tobsch/snappy/internal/discovery"
	"github.com/tobsch/snappy/internal/handler"
	"github.com/tobsch/snappy/internal/model"
	"github.com/tobsch/snappy/internal/reconcile"
	"github.com/tobsch/snappy/internal/snapcast"
	"github.com/tobsch/snappy/internal/watcher"
)

func main() {
	var (
		configPath   string
		addr         string
		documentPath string
		debug        bool
	)

	flagSet := pflag.NewFlagSet("snappyd", pflag.ExitOnError)
	flagSet.StringVar(&configPath, "config", "", "path to config file (default: search standard locations)")
	flagSet.StringVar(&addr, "addr", "", "HTTP listen address (overrides config)")
	flagSet.StringVar(&documentPath, "document", "", "topology document path (overrides config)")
	flagSet.BoolVar(&debug, "debug", false, "enable debug logging")
	flagSet.Parse(os.Args[1:])

	consoleWriter := zerolog.ConsoleWriter{
		Out: colorable.NewColorableStdout(),
	}
	log := zerolog.New(consoleWriter).With().Timestamp().Logger()
	if debug {
		log = log.Level(zerolog.DebugLevel)
	} else {
		log = log.Level(zerolog.InfoLevel)
	}

	var cfg *config.Config
	var cfgPath string
	var err error
	if configPath != "" {
		cfg, cfgPath, err = config.LoadFromPath(configPath)
	} else {
		cfg, cfgPath, err = config.Load()
	}
	if err != nil {
		log.Fatal().Err(err).Str("path", cfgPath).Msg("failed to load config")
	}
	if cfgPath != "" {
		log.Info().Str("path", cfgPath).Msg("config loaded")
	}
	if addr != "" {
		cfg.HTTP.Listen = addr
	}
	if documentPath != "" {
		cfg.Document.Path = documentPath
	}
	log.Info().Str("summary", cfg.Summary()).Msg("starting snappyd")

	store := model.NewStore(cfg.Document.Path)
	if _, err := store.Load(); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			log.Warn().Str("path", cfg.Document.Path).Msg("no document found, starting with an empty one")
			if err := store.Save(model.NewDocument()); err != nil {
				log.Fatal().Err(err).Msg("failed to create document")
			}
		} else {
			log.Fatal().Err(err).Msg("failed to load document")
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	host, port := cfg.Snapcast.Host, cfg.Snapcast.Port
	if host == "" && cfg.Snapcast.Discover {
		info, err := discovery.Find(ctx, 3*time.Second, log)
		if err != nil {
			log.Warn().Err(err).Msg("snapserver discovery failed, falling back to localhost")
			host = "localhost"
		} else {
			host, port = info.Host, info.Port
		}
	}
	snap := snapcast.New(host, port).WithTimeout(cfg.Snapcast.Timeout.Duration())
	log.Info().Str("addr", snap.Addr()).Msg("snapcast endpoint")

	reconciler := reconcile.New(snap, reconcile.PollPolicy{
		Interval: cfg.Reconcile.PollInterval.Duration(),
		Deadline: cfg.Reconcile.PollDeadline.Duration(),
	}, log)

	var installer deploy.Installer = deploy.FileInstaller{}
	if cfg.Deploy.Sudo {
		installer = deploy.NewSudoInstaller()
	}
	pipeline := deploy.NewPipeline(installer, deploy.NewSystemdRestarter(), reconciler, deploy.Options{
		AsoundPath:     cfg.Deploy.AsoundPath,
		SnapserverPath: cfg.Deploy.SnapserverPath,
		ServerUnit:     cfg.Deploy.ServerUnit,
	}, log)

	h := handler.New(store, snap, pipeline, log)
	mux := http.NewServeMux()
	h.Routes(mux)

	finalHandler := handler.Chain(mux,
		handler.Recover(log),
		handler.CORS,
		handler.Logger(log),
	)

	server := &http.Server{
		Addr:         cfg.HTTP.Listen,
		Handler:      finalHandler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 120 * time.Second, // deploy requests wait on client discovery
		IdleTimeout:  60 * time.Second,
	}

	if cfg.Document.Watch {
		w := watcher.New(store.Path(), func() {
			if _, err := store.Load(); err != nil {
				log.Warn().Err(err).Msg("document reload failed")
				return
			}
			log.Info().Msg("document reloaded")
		}, log)
		go func() {
			if err := w.Watch(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Warn().Err(err).Msg("document watcher stopped")
			}
		}()
	}

	go func() {
		log.Info().Str("addr", cfg.HTTP.Listen).Msg("server listening")
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("server shutdown error")
	}
	log.Info().Msg("server stopped")
}
