package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	c := Default()
	assert.Equal(t, DefaultStackSize, c.StackSize)
	assert.Equal(t, DefaultEnvLimit, c.EnvLimit)
	assert.Equal(t, DefaultTryLimit, c.TryLimit)
	assert.Equal(t, DefaultGCLimit, c.GCLimit)
	assert.Equal(t, DefaultRegExpCache, c.RegExpCache)
	assert.Zero(t, c.MaxObjects)
	assert.False(t, c.Strict)
	assert.Equal(t, "info", c.Log.Level)
	assert.Equal(t, "text", c.Log.Format)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	content := `
stack_size = 256
env_limit = 32
try_limit = 8
max_objects = 5000
strict = true

[log]
level = "debug"
format = "json"
file = "engine.log"
`
	path := filepath.Join(dir, "jscore.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	c, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 256, c.StackSize)
	assert.Equal(t, 32, c.EnvLimit)
	assert.Equal(t, 8, c.TryLimit)
	assert.Equal(t, DefaultGCLimit, c.GCLimit, "missing keys take defaults")
	assert.Equal(t, 5000, c.MaxObjects)
	assert.True(t, c.Strict)
	assert.Equal(t, Log{Level: "debug", Format: "json", File: "engine.log"}, c.Log)
}

func TestParse_NonPositiveLimitsFallBack(t *testing.T) {
	c, err := Parse("stack_size = 0\ntry_limit = -3\nmax_objects = -1\n")
	require.NoError(t, err)
	assert.Equal(t, DefaultStackSize, c.StackSize)
	assert.Equal(t, DefaultTryLimit, c.TryLimit)
	assert.Zero(t, c.MaxObjects)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr string
	}{
		{"unknown key", "stack_size = 10\nstak = 3\n", "unknown config keys: stak"},
		{"unknown table key", "[log]\ncolour = true\n", "unknown config keys: log.colour"},
		{"bad format", "[log]\nformat = \"xml\"\n", "log.format must be text or json"},
		{"bad syntax", "stack_size = = 3", "parse config"},
		{"wrong type", "stack_size = \"big\"", "parse config"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.input)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot read")
}

func TestEncode_RoundTrip(t *testing.T) {
	c := Default()
	c.StackSize = 999
	c.Log.File = "x.log"

	text, err := c.Encode()
	require.NoError(t, err)
	assert.Contains(t, text, "stack_size = 999")

	back, err := Parse(text)
	require.NoError(t, err)
	assert.Equal(t, c, back)
}
