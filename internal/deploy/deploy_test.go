package deploy

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/tobsch/snappy/internal/model"
	"github.com/tobsch/snappy/internal/reconcile"
)

type fakeInstaller struct {
	installed map[string]string
	failPath  string
}

func (f *fakeInstaller) Install(path string, content []byte) error {
	if path == f.failPath {
		return errors.New("permission denied")
	}
	if f.installed == nil {
		f.installed = map[string]string{}
	}
	f.installed[path] = string(content)
	return nil
}

type fakeRestarter struct {
	units []string
	fail  bool
}

func (f *fakeRestarter) Restart(ctx context.Context, unit string) error {
	f.units = append(f.units, unit)
	if f.fail {
		return errors.New("unit failed")
	}
	return nil
}

type fakeReconciler struct {
	ran    bool
	result *reconcile.Result
	err    error
}

func (f *fakeReconciler) Run(ctx context.Context, doc *model.Document) (*reconcile.Result, error) {
	f.ran = true
	return f.result, f.err
}

func intPtr(v int) *int { return &v }

func deployDocument() *model.Document {
	doc := model.NewDocument()
	doc.Amplifiers["amp1"] = &model.Amplifier{Card: "GAB8", Channels: 8}
	doc.Speakers["k_l"] = &model.Speaker{Amplifier: "amp1", Channel: 1, Volume: intPtr(100)}
	doc.Speakers["k_r"] = &model.Speaker{Amplifier: "amp1", Channel: 2, Volume: intPtr(100)}
	doc.Rooms["kitchen"] = &model.Room{Name: "Kitchen", Left: "k_l", Right: "k_r"}
	doc.Snapcast.Streams["default"] = &model.Stream{Type: model.StreamTypePipe}
	return doc
}

func TestRender(t *testing.T) {
	preview, err := Render(deployDocument())
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(preview.Asound, "pcm.room_kitchen") {
		t.Error("asound output missing room device")
	}
	if !strings.Contains(preview.Snapserver, "source = pipe://") {
		t.Error("snapserver output missing pipe source")
	}
	if preview.Cards["amp1"] != "GAB8" {
		t.Errorf("cards = %v", preview.Cards)
	}
}

func TestRenderInvalidDocument(t *testing.T) {
	doc := deployDocument()
	doc.Speakers["k_l"].Channel = 99
	if _, err := Render(doc); err == nil {
		t.Fatal("expected render failure for invalid document")
	}
}

func TestPipelineRun(t *testing.T) {
	installer := &fakeInstaller{}
	restarter := &fakeRestarter{}
	rec := &fakeReconciler{result: &reconcile.Result{Assigned: 1}}
	p := NewPipeline(installer, restarter, rec, Options{}, zerolog.Nop())

	result, err := p.Run(context.Background(), deployDocument())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.RunID == "" {
		t.Error("empty run ID")
	}
	if _, ok := installer.installed[DefaultAsoundPath]; !ok {
		t.Errorf("asound.conf not installed: %v", installer.installed)
	}
	if _, ok := installer.installed[DefaultSnapserverPath]; !ok {
		t.Errorf("snapserver.conf not installed: %v", installer.installed)
	}
	if len(restarter.units) != 1 || restarter.units[0] != "snapserver" {
		t.Errorf("restarted units = %v", restarter.units)
	}
	if !rec.ran {
		t.Error("reconciler never ran")
	}
	if len(result.Steps) != 5 {
		t.Errorf("steps = %+v, want 5", result.Steps)
	}
	for _, s := range result.Steps {
		if !s.OK {
			t.Errorf("step %s not ok", s.Name)
		}
	}
}

func TestPipelineInstallFailureAborts(t *testing.T) {
	installer := &fakeInstaller{failPath: DefaultSnapserverPath}
	restarter := &fakeRestarter{}
	rec := &fakeReconciler{result: &reconcile.Result{}}
	p := NewPipeline(installer, restarter, rec, Options{}, zerolog.Nop())

	_, err := p.Run(context.Background(), deployDocument())
	if err == nil {
		t.Fatal("expected install failure")
	}
	if len(restarter.units) != 0 {
		t.Errorf("restart ran after failed install: %v", restarter.units)
	}
	if rec.ran {
		t.Error("reconciler ran after failed install")
	}
}

func TestPipelineRestartFailureAborts(t *testing.T) {
	installer := &fakeInstaller{}
	restarter := &fakeRestarter{fail: true}
	rec := &fakeReconciler{result: &reconcile.Result{}}
	p := NewPipeline(installer, restarter, rec, Options{}, zerolog.Nop())

	if _, err := p.Run(context.Background(), deployDocument()); err == nil {
		t.Fatal("expected restart failure")
	}
	if rec.ran {
		t.Error("reconciler ran after failed restart")
	}
}

func TestPipelinePartialReconcileIsNotFatal(t *testing.T) {
	installer := &fakeInstaller{}
	restarter := &fakeRestarter{}
	rec := &fakeReconciler{result: &reconcile.Result{Missing: []string{"room_attic"}}}
	p := NewPipeline(installer, restarter, rec, Options{}, zerolog.Nop())

	result, err := p.Run(context.Background(), deployDocument())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(result.Reconcile.Missing) != 1 {
		t.Errorf("reconcile missing = %v", result.Reconcile.Missing)
	}
}

func TestFileInstallerAtomic(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "asound.conf")
	if err := os.WriteFile(target, []byte("old"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := (FileInstaller{}).Install(target, []byte("new contents")); err != nil {
		t.Fatalf("Install: %v", err)
	}
	got, err := os.ReadFile(target)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "new contents" {
		t.Errorf("content = %q", got)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("leftover temp files: %v", entries)
	}
}

func TestRestartClients(t *testing.T) {
	restarter := &fakeRestarter{}
	failures := RestartClients(context.Background(), restarter, []string{"room_kitchen", "room_office_left"})
	if len(failures) != 0 {
		t.Errorf("failures = %v", failures)
	}
	want := []string{"snapclient@room_kitchen.service", "snapclient@room_office_left.service"}
	if len(restarter.units) != len(want) {
		t.Fatalf("units = %v", restarter.units)
	}
	for i, u := range restarter.units {
		if u != want[i] {
			t.Errorf("unit[%d] = %q, want %q", i, u, want[i])
		}
	}
}

func TestRestartRoomClients(t *testing.T) {
	doc := deployDocument()
	doc.Speakers["o_l"] = &model.Speaker{Amplifier: "amp1", Channel: 3, Volume: intPtr(100)}
	doc.Speakers["o_r"] = &model.Speaker{Amplifier: "amp2", Channel: 1, Volume: intPtr(100)}
	doc.Amplifiers["amp2"] = &model.Amplifier{Card: "GAB8", Channels: 8}
	doc.Rooms["office"] = &model.Room{Left: "o_l", Right: "o_r"}
	doc.Rooms["hall"] = &model.Room{Name: "Hall"} // inert, no unit

	restarter := &fakeRestarter{}
	failures := RestartRoomClients(context.Background(), restarter, doc)
	if len(failures) != 0 {
		t.Errorf("failures = %v", failures)
	}
	want := []string{
		"snapclient@room_kitchen.service",
		"snapclient@room_office_left.service",
		"snapclient@room_office_right.service",
	}
	if len(restarter.units) != len(want) {
		t.Fatalf("units = %v, want %v", restarter.units, want)
	}
	for i, u := range restarter.units {
		if u != want[i] {
			t.Errorf("unit[%d] = %q, want %q", i, u, want[i])
		}
	}
}

func TestRestartClientsCollectsFailures(t *testing.T) {
	restarter := &fakeRestarter{fail: true}
	failures := RestartClients(context.Background(), restarter, []string{"a", "b"})
	if len(failures) != 2 {
		t.Errorf("failures = %v, want one per client", failures)
	}
	if len(restarter.units) != 2 {
		t.Errorf("units = %v, want both attempted", restarter.units)
	}
}
