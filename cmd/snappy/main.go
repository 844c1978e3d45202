package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mattn/go-colorable"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"github.com/tobsch/snappy/internal/config"
	"github.com/tobsch/snappy/internal/deploy"
	"github.com/tobsch/snappy/internal/model"
	"github.com/tobsch/snappy/internal/reconcile"
	"github.com/tobsch/snappy/internal/snapcast"
)

const usage = `snappy — multiroom audio configuration tool

Usage: snappy <command> [flags]

Commands:
  render-alsa        print the generated ALSA configuration
  render-snapserver  print the generated snapserver configuration
  preview            print both artifacts and any skipped streams
  deploy             install configs, restart snapserver, reconcile clients
  restart-clients    restart the snapclient unit of every expected room client
  status             print the live snapcast server status

Common flags:
  --config <path>    daemon config file (default: search standard locations)
  --document <path>  topology document (overrides config)
`

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	command := os.Args[1]
	if command == "-h" || command == "--help" || command == "help" {
		fmt.Print(usage)
		return nil
	}

	var configPath, documentPath string
	flagSet := pflag.NewFlagSet("snappy "+command, pflag.ExitOnError)
	flagSet.StringVar(&configPath, "config", "", "path to config file")
	flagSet.StringVar(&documentPath, "document", "", "topology document path")
	flagSet.Parse(os.Args[2:])

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if documentPath != "" {
		cfg.Document.Path = documentPath
	}

	switch command {
	case "render-alsa":
		return renderAlsa(cfg)
	case "render-snapserver":
		return renderSnapserver(cfg)
	case "preview":
		return preview(cfg)
	case "deploy":
		return runDeploy(cfg)
	case "restart-clients":
		return restartClients(cfg)
	case "status":
		return status(cfg)
	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", command)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		cfg, _, err := config.LoadFromPath(path)
		return cfg, err
	}
	cfg, _, err := config.Load()
	return cfg, err
}

func loadDocument(cfg *config.Config) (*model.Document, error) {
	return model.NewStore(cfg.Document.Path).Load()
}

func renderAlsa(cfg *config.Config) error {
	doc, err := loadDocument(cfg)
	if err != nil {
		return err
	}
	preview, err := deploy.Render(doc)
	if err != nil {
		return err
	}
	fmt.Print(preview.Asound)
	return nil
}

func renderSnapserver(cfg *config.Config) error {
	doc, err := loadDocument(cfg)
	if err != nil {
		return err
	}
	preview, err := deploy.Render(doc)
	if err != nil {
		return err
	}
	fmt.Print(preview.Snapserver)
	return nil
}

func preview(cfg *config.Config) error {
	doc, err := loadDocument(cfg)
	if err != nil {
		return err
	}
	rendered, err := deploy.Render(doc)
	if err != nil {
		return err
	}
	fmt.Println("# ---- /etc/asound.conf ----")
	fmt.Print(rendered.Asound)
	fmt.Println("# ---- /etc/snapserver.conf ----")
	fmt.Print(rendered.Snapserver)
	for _, id := range rendered.Skipped {
		fmt.Printf("# skipped stream: %s\n", id)
	}
	return nil
}

func runDeploy(cfg *config.Config) error {
	doc, err := loadDocument(cfg)
	if err != nil {
		return err
	}

	consoleWriter := zerolog.ConsoleWriter{
		Out: colorable.NewColorableStderr(),
	}
	log := zerolog.New(consoleWriter).With().Timestamp().Logger()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	snap := newClient(cfg)
	reconciler := reconcile.New(snap, reconcile.PollPolicy{
		Interval: cfg.Reconcile.PollInterval.Duration(),
		Deadline: cfg.Reconcile.PollDeadline.Duration(),
	}, log)

	// The CLI typically runs as an unprivileged user, so default to sudo.
	pipeline := deploy.NewPipeline(deploy.NewSudoInstaller(), deploy.NewSystemdRestarter(), reconciler, deploy.Options{
		AsoundPath:     cfg.Deploy.AsoundPath,
		SnapserverPath: cfg.Deploy.SnapserverPath,
		ServerUnit:     cfg.Deploy.ServerUnit,
	}, log)

	result, err := pipeline.Run(ctx, doc)
	if result != nil {
		printJSON(result)
	}
	return err
}

func restartClients(cfg *config.Config) error {
	doc, err := loadDocument(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	failures := deploy.RestartRoomClients(ctx, deploy.NewSystemdRestarter(), doc)
	for client, err := range failures {
		fmt.Fprintf(os.Stderr, "restart %s: %v\n", client, err)
	}
	if len(failures) > 0 {
		return fmt.Errorf("%d client(s) failed to restart", len(failures))
	}
	return nil
}

func status(cfg *config.Config) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	server, err := newClient(cfg).ServerStatus(ctx)
	if err != nil {
		return err
	}
	printJSON(server)
	return nil
}

func newClient(cfg *config.Config) *snapcast.Client {
	host := cfg.Snapcast.Host
	if host == "" {
		host = "localhost"
	}
	return snapcast.New(host, cfg.Snapcast.Port).WithTimeout(cfg.Snapcast.Timeout.Duration())
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.Encode(v)
}
