package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"dhlx/pkg/ddl"
	"dhlx/pkg/encode"
)

// appName is the single source of truth for the application name.
// Env vars and config paths are derived from it.
const appName = "dhlxc"

var (
	envConfigDir = strings.ToUpper(appName) + "_CONFIG_DIR"
	envInclude   = strings.ToUpper(appName) + "_INCLUDE"
)

const configFileName = "config.yml"

// Config holds every compile option. The zero value is not usable; start
// from defaultConfig.
type Config struct {
	CaseSensitive bool     `yaml:"case_sensitive"`
	Strict        bool     `yaml:"strict"`
	ScopedIf      bool     `yaml:"scoped_if"`
	ErrorLimit    int      `yaml:"error_limit"`
	MapName       string   `yaml:"map_name"`
	Precision     int      `yaml:"precision"`
	Seed          uint64   `yaml:"seed"`
	Include       []string `yaml:"include,omitempty"`
	Libraries     []string `yaml:"libraries,omitempty"`
	Formats       []string `yaml:"formats"`
	OutDir        string   `yaml:"out_dir"`
	Namespace     string   `yaml:"namespace,omitempty"`
}

func defaultConfig() Config {
	o := ddl.DefaultOptions()
	return Config{
		ErrorLimit: o.ErrorLimit,
		MapName:    o.MapName,
		Precision:  o.Precision,
		Seed:       o.Seed,
		Formats:    []string{"doom"},
		OutDir:     ".",
	}
}

// resolveConfigDir returns the base config directory for the application.
// Priority: --config-dir > $DHLXC_CONFIG_DIR > $XDG_CONFIG_HOME/dhlxc > ~/.config/dhlxc
func resolveConfigDir() (string, error) {
	if flagConfigDir != "" {
		return flagConfigDir, nil
	}
	if v := os.Getenv(envConfigDir); v != "" {
		return v, nil
	}
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return filepath.Join(v, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".config", appName), nil
}

// readConfig decodes path over the defaults. A missing file yields the
// defaults.
func readConfig(path string) (Config, error) {
	cfg := defaultConfig()
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// loadConfig builds the effective configuration of a command: config.yml,
// then $DHLXC_INCLUDE, then the flags the user actually set.
func loadConfig(fs *pflag.FlagSet) (Config, error) {
	dir, err := resolveConfigDir()
	if err != nil {
		return Config{}, err
	}
	cfg, err := readConfig(filepath.Join(dir, configFileName))
	if err != nil {
		return cfg, err
	}
	cfg.Include = append(cfg.Include, splitColon(os.Getenv(envInclude))...)
	mergeFlags(&cfg, fs, &flagCfg)
	return cfg, cfg.validate()
}

// flagCfg receives the values of the compile flags. Only flags marked
// Changed are copied into the effective configuration.
var flagCfg Config

// bindInterpFlags registers the options that shape interpretation.
func bindInterpFlags(fs *pflag.FlagSet, fv *Config) {
	d := defaultConfig()
	fs.BoolVar(&fv.CaseSensitive, "case-sensitive", false, "keep names and type names as written")
	fs.BoolVar(&fv.Strict, "strict", false, "disable literal inference for fields without a default type")
	fs.BoolVar(&fv.ScopedIf, "scoped-if", false, "give every block its own #if/#else state")
	fs.IntVar(&fv.ErrorLimit, "error-limit", d.ErrorLimit, "abort after this many errors (0: no limit)")
	fs.StringVarP(&fv.MapName, "map", "m", d.MapName, "map name")
	fs.Uint64Var(&fv.Seed, "seed", d.Seed, "seed of the <random> functions")
	fs.StringArrayVarP(&fv.Include, "include", "I", nil, "include directory (repeatable)")
	fs.StringSliceVarP(&fv.Libraries, "lib", "l", nil,
		"library tables to load (default: those of the output formats; common is always loaded)")
	fs.StringSliceVarP(&fv.Formats, "format", "f", d.Formats,
		"output formats: "+strings.Join(formatNames(), ", "))
}

// bindOutputFlags registers the options that shape written output.
func bindOutputFlags(fs *pflag.FlagSet, fv *Config) {
	d := defaultConfig()
	fs.StringVarP(&fv.OutDir, "out", "o", d.OutDir, "output directory")
	fs.IntVar(&fv.Precision, "precision", d.Precision, "fractional digits written for reals")
	fs.StringVar(&fv.Namespace, "namespace", "", "namespace of UDMF and USDF output")
}

// mergeFlags copies the flags set on the command line from fv into cfg.
// Include directories add to the configured ones; every other flag
// replaces its setting.
func mergeFlags(cfg *Config, fs *pflag.FlagSet, fv *Config) {
	fs.VisitAll(func(f *pflag.Flag) {
		if !f.Changed {
			return
		}
		switch f.Name {
		case "case-sensitive":
			cfg.CaseSensitive = fv.CaseSensitive
		case "strict":
			cfg.Strict = fv.Strict
		case "scoped-if":
			cfg.ScopedIf = fv.ScopedIf
		case "error-limit":
			cfg.ErrorLimit = fv.ErrorLimit
		case "map":
			cfg.MapName = fv.MapName
		case "seed":
			cfg.Seed = fv.Seed
		case "include":
			cfg.Include = append(cfg.Include, fv.Include...)
		case "lib":
			cfg.Libraries = fv.Libraries
		case "format":
			cfg.Formats = fv.Formats
		case "out":
			cfg.OutDir = fv.OutDir
		case "precision":
			cfg.Precision = fv.Precision
		case "namespace":
			cfg.Namespace = fv.Namespace
		}
	})
}

func (c Config) validate() error {
	if c.MapName == "" {
		return errors.New("map name must not be empty")
	}
	_, err := c.formats()
	return err
}

// options converts the configuration to interpreter options.
func (c Config) options() ddl.Options {
	return ddl.Options{
		CaseSensitive: c.CaseSensitive,
		Strict:        c.Strict,
		ScopedIf:      c.ScopedIf,
		ErrorLimit:    c.ErrorLimit,
		MapName:       c.MapName,
		Precision:     c.Precision,
		Seed:          c.Seed,
		IncludePaths:  c.Include,
	}
}

func (c Config) formats() ([]encode.Format, error) {
	var out []encode.Format
	for _, name := range c.Formats {
		f, err := encode.Lookup(strings.TrimSpace(name))
		if err != nil {
			return nil, err
		}
		if !slices.ContainsFunc(out, func(g encode.Format) bool { return g.Name == f.Name }) {
			out = append(out, f)
		}
	}
	return out, nil
}

// libraries lists the tables to load: common, then the configured
// libraries or, when none are configured, the libraries of the formats.
func (c Config) libraries(formats []encode.Format) []string {
	libs := []string{"common"}
	if len(c.Libraries) > 0 {
		return append(libs, c.Libraries...)
	}
	for _, f := range formats {
		libs = append(libs, f.Library)
	}
	return libs
}

func formatNames() []string {
	var names []string
	for _, f := range encode.Formats() {
		names = append(names, f.Name)
	}
	return names
}

// splitColon splits a colon-separated string, filtering empty parts.
func splitColon(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ":")
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
