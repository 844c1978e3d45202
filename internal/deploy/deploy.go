// Package deploy runs the full configuration rollout: render both artifacts,
// install them, restart the snapserver, and reconcile the live clients.
//
// Rendering and installation failures abort the run. Reconciliation is best
// effort and its partial outcome travels in the result instead.
package deploy

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tobsch/snappy/internal/alsa"
	"github.com/tobsch/snappy/internal/model"
	"github.com/tobsch/snappy/internal/reconcile"
	"github.com/tobsch/snappy/internal/snapserver"
)

// Default system paths and units.
const (
	DefaultAsoundPath     = "/etc/asound.conf"
	DefaultSnapserverPath = "/etc/snapserver.conf"
	DefaultServerUnit     = "snapserver"
)

// Reconciler is the final pipeline stage.
type Reconciler interface {
	Run(ctx context.Context, doc *model.Document) (*reconcile.Result, error)
}

// Options configures a pipeline. Zero values select the system defaults.
type Options struct {
	AsoundPath     string
	SnapserverPath string
	ServerUnit     string
}

func (o Options) withDefaults() Options {
	if o.AsoundPath == "" {
		o.AsoundPath = DefaultAsoundPath
	}
	if o.SnapserverPath == "" {
		o.SnapserverPath = DefaultSnapserverPath
	}
	if o.ServerUnit == "" {
		o.ServerUnit = DefaultServerUnit
	}
	return o
}

// Step is one named stage of a run.
type Step struct {
	Name string `json:"name"`
	OK   bool   `json:"ok"`
}

// Result is the outcome of a deployment run.
type Result struct {
	RunID     string            `json:"run_id"`
	Steps     []Step            `json:"steps"`
	Cards     map[string]string `json:"cards"`
	Skipped   []string          `json:"skipped_streams,omitempty"`
	Reconcile *reconcile.Result `json:"reconcile,omitempty"`
}

// Preview holds both rendered artifacts without touching the system.
type Preview struct {
	Asound     string            `json:"asound"`
	Snapserver string            `json:"snapserver"`
	Cards      map[string]string `json:"cards"`
	Skipped    []string          `json:"skipped_streams,omitempty"`
}

// Render produces both artifacts for inspection.
func Render(doc *model.Document) (*Preview, error) {
	alsaRes, err := alsa.Compile(doc)
	if err != nil {
		return nil, fmt.Errorf("render alsa config: %w", err)
	}
	snapRes := snapserver.Compile(doc)
	return &Preview{
		Asound:     alsaRes.Config,
		Snapserver: snapRes.Config,
		Cards:      alsaRes.Cards,
		Skipped:    snapRes.Skipped,
	}, nil
}

// Pipeline owns the effectful half of a rollout.
type Pipeline struct {
	installer  Installer
	restarter  Restarter
	reconciler Reconciler
	opts       Options
	log        zerolog.Logger
}

func NewPipeline(installer Installer, restarter Restarter, reconciler Reconciler, opts Options, log zerolog.Logger) *Pipeline {
	return &Pipeline{
		installer:  installer,
		restarter:  restarter,
		reconciler: reconciler,
		opts:       opts.withDefaults(),
		log:        log,
	}
}

// Run deploys the document end to end.
func (p *Pipeline) Run(ctx context.Context, doc *model.Document) (*Result, error) {
	result := &Result{RunID: uuid.NewString()}
	log := p.log.With().Str("run", result.RunID).Logger()

	step := func(name string, fn func() error) error {
		log.Info().Str("step", name).Msg("deploy step")
		if err := fn(); err != nil {
			result.Steps = append(result.Steps, Step{Name: name, OK: false})
			return fmt.Errorf("%s: %w", name, err)
		}
		result.Steps = append(result.Steps, Step{Name: name, OK: true})
		return nil
	}

	preview, err := Render(doc)
	if err != nil {
		result.Steps = append(result.Steps, Step{Name: "render", OK: false})
		return result, err
	}
	result.Steps = append(result.Steps, Step{Name: "render", OK: true})
	result.Cards = preview.Cards
	result.Skipped = preview.Skipped

	if err := step("install alsa", func() error {
		return p.installer.Install(p.opts.AsoundPath, []byte(preview.Asound))
	}); err != nil {
		return result, err
	}
	if err := step("install snapserver", func() error {
		return p.installer.Install(p.opts.SnapserverPath, []byte(preview.Snapserver))
	}); err != nil {
		return result, err
	}
	if err := step("restart snapserver", func() error {
		return p.restarter.Restart(ctx, p.opts.ServerUnit)
	}); err != nil {
		return result, err
	}

	recRes, err := p.reconciler.Run(ctx, doc)
	if err != nil {
		result.Steps = append(result.Steps, Step{Name: "reconcile", OK: false})
		return result, fmt.Errorf("reconcile: %w", err)
	}
	result.Steps = append(result.Steps, Step{Name: "reconcile", OK: true})
	result.Reconcile = recRes
	if len(recRes.Missing) > 0 || len(recRes.Failures) > 0 {
		log.Warn().
			Strs("missing", recRes.Missing).
			Int("failures", len(recRes.Failures)).
			Msg("deploy finished with partial reconciliation")
	} else {
		log.Info().Int("assigned", recRes.Assigned).Msg("deploy complete")
	}
	return result, nil
}
