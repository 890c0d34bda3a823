package config

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	"github.com/wippyai/wasm-host/errors"
	"github.com/wippyai/wasm-host/trigger"
	"go.uber.org/zap"
)

// validate is shared; validator caches struct metadata.
var validate = validator.New()

// File mirrors the TOML document.
type File struct {
	App AppSection `toml:"app"`
	Log LogSection `toml:"log"`
}

type AppSection struct {
	Name       string             `toml:"name" validate:"required"`
	Components []ComponentSection `toml:"component" validate:"required,min=1,unique=ID,dive"`
}

type ComponentSection struct {
	Env    map[string]string `toml:"env"`
	ID     string            `toml:"id" validate:"required"`
	Source string            `toml:"source" validate:"required"`
	Args   []string          `toml:"args"`
}

type LogSection struct {
	Dir       string   `toml:"dir"`
	Follow    []string `toml:"follow" validate:"excluded_with=FollowAll,dive,required"`
	Disabled  bool     `toml:"disabled" validate:"excluded_with=Dir"`
	FollowAll bool     `toml:"follow_all"`
}

// Config is a loaded and validated application file.
type Config struct {
	File
	path string
	dir  string
}

// Load reads and validates the file at path.
func Load(path string) (*Config, error) {
	var f File
	meta, err := toml.DecodeFile(path, &f)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "load "+path)
	}
	return newConfig(f, meta, path)
}

// Parse decodes data as if it were read from path. Nothing is read from disk.
func Parse(data, path string) (*Config, error) {
	var f File
	meta, err := toml.Decode(data, &f)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "parse "+path)
	}
	return newConfig(f, meta, path)
}

func newConfig(f File, meta toml.MetaData, path string) (*Config, error) {
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		sort.Strings(keys)
		return nil, errors.New(errors.PhaseConfig, errors.KindInvalidInput).
			Path(path).
			Detail("unknown keys: %s", strings.Join(keys, ", ")).
			Build()
	}
	if err := validate.Struct(f); err != nil {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "validate "+path)
	}

	Logger().Debug("config loaded",
		zap.String("path", path),
		zap.String("app", f.App.Name),
		zap.Int("components", len(f.App.Components)))
	return &Config{File: f, path: path, dir: filepath.Dir(path)}, nil
}

// Path returns the file the configuration came from.
func (c *Config) Path() string { return c.path }

// App returns the application with component sources resolved.
func (c *Config) App() *trigger.App {
	app := &trigger.App{
		Name:       c.File.App.Name,
		Components: make([]trigger.Component, len(c.File.App.Components)),
	}
	for i, comp := range c.File.App.Components {
		app.Components[i] = trigger.Component{
			ID:     comp.ID,
			Source: c.resolve(comp.Source),
			Args:   comp.Args,
			Env:    comp.Env,
		}
	}
	return app
}

// Follow returns the follow selection.
func (c *Config) Follow() trigger.FollowComponents {
	switch {
	case c.Log.FollowAll:
		return trigger.FollowAll()
	case len(c.Log.Follow) > 0:
		return trigger.FollowNamed(c.Log.Follow...)
	default:
		return trigger.FollowNone()
	}
}

// LogDir returns where component output is stored.
func (c *Config) LogDir() trigger.LogDir {
	switch {
	case c.Log.Disabled:
		return trigger.NoLogDir()
	case c.Log.Dir != "":
		return trigger.LogDirAt(c.resolve(c.Log.Dir))
	default:
		return trigger.DefaultLogDir()
	}
}

func (c *Config) resolve(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.dir, p)
}
