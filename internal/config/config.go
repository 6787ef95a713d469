// Package config loads project configuration for the CLI.
//
// Configuration is layered: built-in defaults, then sluice.yaml, then
// SLUICE_* environment variables, then command-line flags. Later layers
// win. The loaded project selects one engine target, either the base
// target block or a named profile merged on top of it.
package config

import (
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/leapstack-labs/sluice/internal/template"
	"github.com/leapstack-labs/sluice/pkg/core"
	"github.com/leapstack-labs/sluice/pkg/engine"
)

const (
	// DefaultFileName is the config file looked up in the project root.
	DefaultFileName = "sluice.yaml"

	// altFileName is accepted as a fallback spelling.
	altFileName = "sluice.yml"

	// EnvPrefix scopes environment variable overrides, e.g.
	// SLUICE_LOG_LEVEL=debug.
	EnvPrefix = "SLUICE_"

	defaultModelsDir  = "models"
	defaultSourcesDir = "sources"
	defaultStatePath  = ".sluice/state.db"
	defaultLogLevel   = "info"

	// defaultTargetName labels the unnamed base target in logs and
	// template context.
	defaultTargetName = "default"
)

// Config is the fully resolved project configuration: the decoded file
// plus the selected target and absolute paths.
type Config struct {
	core.ProjectConfig

	// ProjectRoot is the absolute directory the project lives in.
	ProjectRoot string

	// ConfigFile is the file the project was loaded from, empty when
	// running on defaults alone.
	ConfigFile string

	// TargetName is the selected profile name, or "default" for the
	// base target.
	TargetName string

	// Active is the merged target in effect for this run. Never nil;
	// an empty Engine means no engine was configured.
	Active *core.TargetConfig
}

// Scope returns the naming scope compiled statements render against.
func (c *Config) Scope() core.Scope {
	return c.Active.Scope()
}

// TemplateTarget exposes the active target to template expressions.
func (c *Config) TemplateTarget() *template.TargetInfo {
	return &template.TargetInfo{
		Name:     c.TargetName,
		Engine:   c.Active.Engine,
		Database: c.Active.Database,
		Schema:   c.Active.Schema,
	}
}

// selectTarget picks the active target: the named profile merged over
// the base target block, or the base block alone.
func selectTarget(project *core.ProjectConfig, override string) (string, *core.TargetConfig, error) {
	name := project.DefaultTarget
	if override != "" {
		name = override
	}
	if name == "" {
		if project.Target == nil {
			return defaultTargetName, &core.TargetConfig{}, nil
		}
		return defaultTargetName, project.Target, nil
	}

	profile, ok := project.Targets[name]
	if !ok {
		names := make([]string, 0, len(project.Targets))
		for n := range project.Targets {
			names = append(names, n)
		}
		sort.Strings(names)
		if len(names) == 0 {
			return "", nil, fmt.Errorf("unknown target %q: no targets defined", name)
		}
		return "", nil, fmt.Errorf("unknown target %q: defined targets are %s", name, strings.Join(names, ", "))
	}
	return name, MergeTargetConfig(project.Target, profile), nil
}

// MergeTargetConfig overlays a profile on a base target. Profile fields
// that are set win; unset fields keep the base value. Options and Params
// merge key-by-key.
func MergeTargetConfig(base, profile *core.TargetConfig) *core.TargetConfig {
	if base == nil {
		base = &core.TargetConfig{}
	}
	merged := *base

	if profile.Engine != "" {
		merged.Engine = profile.Engine
	}
	if profile.Database != "" {
		merged.Database = profile.Database
	}
	if profile.Schema != "" {
		merged.Schema = profile.Schema
	}
	if profile.Host != "" {
		merged.Host = profile.Host
	}
	if profile.Port != 0 {
		merged.Port = profile.Port
	}
	if profile.User != "" {
		merged.User = profile.User
	}
	if profile.Password != "" {
		merged.Password = profile.Password
	}
	if profile.Endpoint != "" {
		merged.Endpoint = profile.Endpoint
	}
	if profile.Token != "" {
		merged.Token = profile.Token
	}
	if profile.TimeoutSeconds != 0 {
		merged.TimeoutSeconds = profile.TimeoutSeconds
	}
	merged.Options = mergeStringMap(base.Options, profile.Options)
	merged.Params = mergeAnyMap(base.Params, profile.Params)

	return &merged
}

func mergeStringMap(base, over map[string]string) map[string]string {
	if len(base) == 0 && len(over) == 0 {
		return nil
	}
	out := make(map[string]string, len(base)+len(over))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range over {
		out[k] = v
	}
	return out
}

func mergeAnyMap(base, over map[string]any) map[string]any {
	if len(base) == 0 && len(over) == 0 {
		return nil
	}
	out := make(map[string]any, len(base)+len(over))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range over {
		out[k] = v
	}
	return out
}

// envVarPattern matches ${VAR_NAME} placeholders in config values.
var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR} placeholders with the environment value.
// Unset variables leave the placeholder untouched so the error surfaces
// where the value is used instead of silently becoming empty.
func expandEnvVars(value string) string {
	return envVarPattern.ReplaceAllStringFunc(value, func(match string) string {
		name := envVarPattern.FindStringSubmatch(match)[1]
		if v, ok := os.LookupEnv(name); ok {
			return v
		}
		return match
	})
}

// expandTargetEnvVars expands ${VAR} placeholders in the connection
// fields of a target. Credentials usually live in the environment, not
// in a committed sluice.yaml.
func expandTargetEnvVars(t *core.TargetConfig) {
	t.Host = expandEnvVars(t.Host)
	t.User = expandEnvVars(t.User)
	t.Password = expandEnvVars(t.Password)
	t.Database = expandEnvVars(t.Database)
	t.Endpoint = expandEnvVars(t.Endpoint)
	t.Token = expandEnvVars(t.Token)
}

// validate rejects configurations that cannot work before any files are
// loaded or connections opened. An empty engine is allowed: compiling
// needs no connection, and the runner reports it when asked to execute.
func validate(cfg *Config) error {
	if cfg.Active.Engine != "" && !engine.IsRegistered(cfg.Active.Engine) {
		return &engine.UnknownEngineError{Name: cfg.Active.Engine, Available: engine.Engines()}
	}
	if cfg.Active.TimeoutSeconds < 0 {
		return fmt.Errorf("target %s: timeout_seconds must not be negative", cfg.TargetName)
	}
	return nil
}
