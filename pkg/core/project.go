package core

// ProjectConfig holds project-level configuration loaded from sluice.yaml.
type ProjectConfig struct {
	Name       string `koanf:"name"`
	ModelsDir  string `koanf:"models_dir"`
	SourcesDir string `koanf:"sources_dir"`
	StatePath  string `koanf:"state_path"`
	LogLevel   string `koanf:"log_level"`

	// Vars are project variables exposed to template expressions as config.
	Vars map[string]any `koanf:"vars"`

	// Target is the base engine target. Named profiles merge on top of it.
	Target *TargetConfig `koanf:"target"`

	// Targets are named profiles selectable with --target.
	Targets map[string]*TargetConfig `koanf:"targets"`

	// DefaultTarget names the profile used when --target is not given.
	DefaultTarget string `koanf:"default_target"`
}

// Scope is the default naming scope compiled statements render against.
// Resources with their own database/schema overrides ignore it.
type Scope struct {
	Database string
	Schema   string
}

// TargetConfig holds engine connection configuration.
type TargetConfig struct {
	// Engine selects the client implementation: pgwire, httpapi.
	Engine string `koanf:"engine"`

	// Database and Schema scope compiled names.
	Database string `koanf:"database"`
	Schema   string `koanf:"schema"`

	// Wire-protocol engines
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	User     string `koanf:"user"`
	Password string `koanf:"password"`

	// HTTP API engines
	Endpoint string `koanf:"endpoint"`
	Token    string `koanf:"token"`

	// TimeoutSeconds bounds a single statement submission; 0 means the
	// client default.
	TimeoutSeconds int `koanf:"timeout_seconds"`

	// Options are driver-specific string options (sslmode, ...).
	Options map[string]string `koanf:"options"`

	// Params holds engine-specific configuration the clients decode themselves.
	Params map[string]any `koanf:"params"`
}

// Scope returns the naming scope this target compiles against.
func (t TargetConfig) Scope() Scope {
	return Scope{Database: t.Database, Schema: t.Schema}
}
