// Package config handles jscore.toml engine configuration.
package config

import (
	"os"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
)

// Default limits.
const (
	DefaultStackSize   = 4096
	DefaultEnvLimit    = 1024
	DefaultTryLimit    = 64
	DefaultGCLimit     = 10000
	DefaultRegExpCache = 128
)

// Config is a jscore.toml file.
type Config struct {
	Engine
	Log Log `toml:"log"`
}

// Engine holds the limits of one engine instance.
type Engine struct {
	StackSize   int  `toml:"stack_size"`
	EnvLimit    int  `toml:"env_limit"`
	TryLimit    int  `toml:"try_limit"`
	GCLimit     int  `toml:"gc_limit"`
	MaxObjects  int  `toml:"max_objects"`
	RegExpCache int  `toml:"regexp_cache"`
	Strict      bool `toml:"strict"`
}

// Log configures the logger built by package logs.
type Log struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
	File   string `toml:"file"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Engine: Engine{}.WithDefaults(),
		Log:    Log{Level: "info", Format: "text"},
	}
}

// WithDefaults replaces non-positive limits with the defaults.
func (e Engine) WithDefaults() Engine {
	if e.StackSize <= 0 {
		e.StackSize = DefaultStackSize
	}
	if e.EnvLimit <= 0 {
		e.EnvLimit = DefaultEnvLimit
	}
	if e.TryLimit <= 0 {
		e.TryLimit = DefaultTryLimit
	}
	if e.GCLimit <= 0 {
		e.GCLimit = DefaultGCLimit
	}
	if e.MaxObjects < 0 {
		e.MaxObjects = 0
	}
	if e.RegExpCache <= 0 {
		e.RegExpCache = DefaultRegExpCache
	}
	return e
}

// Parse decodes TOML text. Keys the configuration does not know are an
// error.
func Parse(data string) (Config, error) {
	var c Config
	md, err := toml.Decode(data, &c)
	if err != nil {
		return Config{}, errors.Wrap(err, "parse config")
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		sort.Strings(keys)
		return Config{}, errors.Errorf("unknown config keys: %s", strings.Join(keys, ", "))
	}

	c.Engine = c.Engine.WithDefaults()
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return Config{}, errors.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}
	return c, nil
}

// Load reads and parses the file at path.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrapf(err, "cannot read %s", path)
	}
	c, err := Parse(string(data))
	if err != nil {
		return Config{}, errors.Wrap(err, path)
	}
	return c, nil
}

// Encode renders c as TOML.
func (c Config) Encode() (string, error) {
	var sb strings.Builder
	if err := toml.NewEncoder(&sb).Encode(c); err != nil {
		return "", errors.Wrap(err, "encode config")
	}
	return sb.String(), nil
}
