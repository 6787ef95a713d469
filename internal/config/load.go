package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// maxUpwardSearchLevels limits how far up the directory tree to search for config files.
const maxUpwardSearchLevels = 10

// findConfigFile finds the config file to use.
// Priority: explicit path > sluice.yaml > sluice.yml
func findConfigFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if _, err := os.Stat(DefaultFileName); err == nil {
		return DefaultFileName
	}
	if _, err := os.Stat(altFileName); err == nil {
		return altFileName
	}
	return ""
}

// configExistsIn checks if a sluice config file exists in the directory.
func configExistsIn(dir string) bool {
	for _, name := range []string{DefaultFileName, altFileName} {
		if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
			return true
		}
	}
	return false
}

// findProjectRootUpward searches upward from startDir for a sluice config file.
// Returns empty string if not found within maxUpwardSearchLevels.
func findProjectRootUpward(startDir string) string {
	dir := startDir
	for i := 0; i < maxUpwardSearchLevels; i++ {
		if configExistsIn(dir) {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached filesystem root
			break
		}
		dir = parent
	}
	return ""
}

// inferProjectRoot determines the project root from CLI flags and filesystem.
// Priority:
//  1. Explicit --project-dir flag
//  2. Infer from --models-dir (parent if it contains a config or is named "models")
//  3. Search upward from CWD for sluice.yaml
//  4. Current working directory
//
// The second return reports whether a flag drove the decision.
func inferProjectRoot(flags *pflag.FlagSet) (string, bool) {
	if flags != nil {
		if projectDir, _ := flags.GetString("project-dir"); projectDir != "" && flags.Changed("project-dir") {
			abs, err := filepath.Abs(projectDir)
			if err == nil {
				return abs, true
			}
			return filepath.Clean(projectDir), true
		}

		if modelsDir, _ := flags.GetString("models-dir"); modelsDir != "" && flags.Changed("models-dir") {
			if absModels, err := filepath.Abs(modelsDir); err == nil {
				parent := filepath.Dir(absModels)

				// If the parent has a config file, it's the project root
				if configExistsIn(parent) {
					return parent, true
				}

				// If the folder is named "models", assume the parent is the root
				if filepath.Base(absModels) == "models" {
					return parent, true
				}
			}
		}
	}

	if cwd, err := os.Getwd(); err == nil {
		if root := findProjectRootUpward(cwd); root != "" {
			return root, false
		}
	}

	cwd, _ := os.Getwd()
	if cwd == "" {
		cwd = "."
	}
	return cwd, false
}

// resolvePathRelativeTo resolves a path relative to baseDir if it's not absolute.
// Returns the path unchanged if it's empty or already absolute.
func resolvePathRelativeTo(path, baseDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}

// Load loads configuration from file, environment variables, and flags.
// Precedence (highest to lowest): flags > env vars > config file > defaults.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	return LoadWithTarget(cfgFile, "", flags)
}

// LoadWithTarget loads configuration with an explicit target profile
// override. An empty override falls back to the default_target key, which
// the --target flag also feeds.
func LoadWithTarget(cfgFile, targetOverride string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	// Infer the project root from flags before loading config, so that
	// --models-dir testdata/models implies the root is testdata/.
	projectRoot, rootFromFlags := inferProjectRoot(flags)

	// Track paths that were explicitly provided as flags (relative to CWD).
	// They are converted to absolute paths up front so the project-root
	// resolution step below does not re-anchor them.
	var flagModelsDir, flagSourcesDir, flagStatePath string
	if flags != nil {
		if flags.Changed("models-dir") {
			if v, _ := flags.GetString("models-dir"); v != "" {
				flagModelsDir, _ = filepath.Abs(v)
			}
		}
		if flags.Changed("sources-dir") {
			if v, _ := flags.GetString("sources-dir"); v != "" {
				flagSourcesDir, _ = filepath.Abs(v)
			}
		}
		if flags.Changed("state") {
			if v, _ := flags.GetString("state"); v != "" {
				flagStatePath, _ = filepath.Abs(v)
			}
		}
	}

	// An explicit config file anchors the project at its directory unless
	// a flag already pinned the root somewhere more specific.
	if cfgFile != "" && !rootFromFlags {
		if absPath, err := filepath.Abs(cfgFile); err == nil {
			projectRoot = filepath.Dir(absPath)
		}
	}

	// 1. Load defaults
	if err := k.Load(confmap.Provider(map[string]interface{}{
		"models_dir":  defaultModelsDir,
		"sources_dir": defaultSourcesDir,
		"state_path":  defaultStatePath,
		"log_level":   defaultLogLevel,
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Find and load the config file.
	// Search in the project root if no explicit config file was provided.
	if cfgFile == "" {
		for _, name := range []string{DefaultFileName, altFileName} {
			candidate := filepath.Join(projectRoot, name)
			if _, err := os.Stat(candidate); err == nil {
				cfgFile = candidate
				break
			}
		}
	}
	configFile := findConfigFile(cfgFile)
	if configFile != "" {
		if err := k.Load(file.Provider(configFile), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", configFile, err)
		}
	}

	// 3. Load environment variables (SLUICE_ prefix)
	// Transform: SLUICE_MODELS_DIR -> models_dir
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Load flags (highest priority, overrides env vars and config file)
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			// Only load flags that were explicitly set
			if !f.Changed {
				return "", nil
			}
			// Transform kebab-case to snake_case for config keys
			key := strings.ReplaceAll(f.Name, "-", "_")

			switch key {
			case "state":
				// The CLI uses --state for brevity; the config key is state_path.
				return "state_path", posflag.FlagVal(flags, f)
			case "target":
				// --target selects a profile; it must not collide with the
				// target config block, so it feeds default_target instead.
				return "default_target", posflag.FlagVal(flags, f)
			}

			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	// 5. Unmarshal into the project config
	var cfg Config
	if err := k.Unmarshal("", &cfg.ProjectConfig); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// 6. Set the project root and resolve relative paths against it.
	// Paths given as flags keep the absolute form computed above.
	cfg.ProjectRoot = projectRoot
	cfg.ConfigFile = configFile

	if flagModelsDir != "" {
		cfg.ModelsDir = flagModelsDir
	} else {
		cfg.ModelsDir = resolvePathRelativeTo(cfg.ModelsDir, projectRoot)
	}
	if flagSourcesDir != "" {
		cfg.SourcesDir = flagSourcesDir
	} else {
		cfg.SourcesDir = resolvePathRelativeTo(cfg.SourcesDir, projectRoot)
	}
	if flagStatePath != "" {
		cfg.StatePath = flagStatePath
	} else {
		cfg.StatePath = resolvePathRelativeTo(cfg.StatePath, projectRoot)
	}

	// 7. Select and merge the active target profile
	name, active, err := selectTarget(&cfg.ProjectConfig, targetOverride)
	if err != nil {
		return nil, err
	}
	cfg.TargetName = name
	cfg.Active = active

	// 8. Expand ${VAR} placeholders in connection fields
	expandTargetEnvVars(cfg.Active)

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
