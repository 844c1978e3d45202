package config

import (
	"time"
)

// Config is the root daemon configuration structure
type Config struct {
	Version   int             `yaml:"version"`
	Document  DocumentConfig  `yaml:"document"`
	HTTP      HTTPConfig      `yaml:"http"`
	Snapcast  SnapcastConfig  `yaml:"snapcast"`
	Deploy    DeployConfig    `yaml:"deploy"`
	Reconcile ReconcileConfig `yaml:"reconcile"`
}

// DocumentConfig locates the topology document
type DocumentConfig struct {
	Path  string `yaml:"path"`
	Watch bool   `yaml:"watch"` // reload on external document edits
}

// HTTPConfig configures the API server
type HTTPConfig struct {
	Listen string `yaml:"listen"`
}

// SnapcastConfig points at the snapserver JSON-RPC endpoint
type SnapcastConfig struct {
	Host     string    `yaml:"host"`
	Port     int       `yaml:"port"`
	Timeout  *Duration `yaml:"timeout,omitempty"`
	Discover bool      `yaml:"discover"` // locate the server via mDNS when host is empty
}

// DeployConfig sets the artifact installation targets
type DeployConfig struct {
	AsoundPath     string `yaml:"asound_path,omitempty"`
	SnapserverPath string `yaml:"snapserver_path,omitempty"`
	ServerUnit     string `yaml:"server_unit,omitempty"`
	Sudo           bool   `yaml:"sudo"` // install via "sudo tee" instead of direct writes
}

// ReconcileConfig bounds the client discovery wait
type ReconcileConfig struct {
	PollInterval *Duration `yaml:"poll_interval,omitempty"`
	PollDeadline *Duration `yaml:"poll_deadline,omitempty"`
}

// Duration wraps time.Duration for YAML unmarshaling
type Duration time.Duration

// UnmarshalYAML parses duration strings like "30s" or "1m"
func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML serializes as a duration string
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Duration converts to the standard type
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}
