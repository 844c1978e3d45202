package deploy

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/tobsch/snappy/internal/model"
	"github.com/tobsch/snappy/internal/reconcile"
)

// Installer writes a rendered artifact to its system path.
type Installer interface {
	Install(path string, content []byte) error
}

// Restarter restarts a system service and waits for it to settle.
type Restarter interface {
	Restart(ctx context.Context, unit string) error
}

// runCommand executes a system command. Tests swap it out.
type runCommand func(ctx context.Context, name string, args ...string) error

func execCommand(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s %v: %w: %s", name, args, err, out)
	}
	return nil
}

// FileInstaller writes artifacts directly, via a same-directory temp file and
// rename so readers never observe a half-written config.
type FileInstaller struct{}

func (FileInstaller) Install(path string, content []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".snappy-install-*")
	if err != nil {
		return fmt.Errorf("create temp in %s: %w", dir, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", tmpName, err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("install %s: %w", path, err)
	}
	return nil
}

// SudoInstaller elevates through "sudo tee" for targets the daemon user
// cannot write, such as /etc/asound.conf.
type SudoInstaller struct{}

func NewSudoInstaller() *SudoInstaller {
	return &SudoInstaller{}
}

func (s *SudoInstaller) Install(path string, content []byte) error {
	cmd := exec.Command("sudo", "tee", path)
	cmd.Stdin = bytes.NewReader(content)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("sudo tee %s: %w: %s", path, err, out)
	}
	return nil
}

// SystemdRestarter restarts units with "sudo systemctl restart" and gives
// the service a moment to come up before anyone talks to it.
type SystemdRestarter struct {
	run    runCommand
	Settle time.Duration
}

func NewSystemdRestarter() *SystemdRestarter {
	return &SystemdRestarter{run: execCommand, Settle: 2 * time.Second}
}

func (r *SystemdRestarter) Restart(ctx context.Context, unit string) error {
	if err := r.run(ctx, "sudo", "systemctl", "restart", unit); err != nil {
		return err
	}
	if r.Settle > 0 {
		t := time.NewTimer(r.Settle)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
	return nil
}

// RestartClients restarts every templated snapclient unit the document
// expects, "snapclient@<client>.service" per endpoint. Failures are returned
// per unit, not short-circuited.
func RestartClients(ctx context.Context, r Restarter, clients []string) map[string]error {
	failures := map[string]error{}
	for _, name := range clients {
		unit := fmt.Sprintf("snapclient@%s.service", name)
		if err := r.Restart(ctx, unit); err != nil {
			failures[name] = err
		}
	}
	return failures
}

// RestartRoomClients restarts the snapclient unit behind every client the
// document expects, one per room and one per side of a split room. Needed
// after asound.conf changes; snapclient only reopens its ALSA device on
// startup.
func RestartRoomClients(ctx context.Context, r Restarter, doc *model.Document) map[string]error {
	endpoints := reconcile.Endpoints(doc)
	clients := make([]string, len(endpoints))
	for i, e := range endpoints {
		clients[i] = e.ClientID
	}
	return RestartClients(ctx, r, clients)
}
