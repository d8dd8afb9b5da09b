package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func env(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, 5*time.Second, c.Timeout)
	assert.Equal(t, "info", c.LogLevel)
	assert.Equal(t, "gemini-2.0-flash", c.GeminiModel)
	assert.NotEmpty(t, c.Home)
	assert.False(t, c.Ephemeral)
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name     string
		env      map[string]string
		args     []string
		want     Config
		wantRest []string
	}{
		{
			name:     "env only",
			env:      map[string]string{"MEDREMIND_HOME": "/tmp/mr", "MEDREMIND_TIMEOUT": "2s", "GEMINI_API_KEY": "k1", "MEDREMIND_PROJECT_ID": "p"},
			args:     []string{"login", "a@x.com"},
			want:     Config{Home: "/tmp/mr", Timeout: 2 * time.Second, LogLevel: "info", GeminiAPIKey: "k1", GeminiModel: "gemini-2.0-flash", ProjectID: "p"},
			wantRest: []string{"login", "a@x.com"},
		},
		{
			name:     "flags override env",
			env:      map[string]string{"MEDREMIND_HOME": "/tmp/env", "MEDREMIND_TIMEOUT": "2s"},
			args:     []string{"-home", "/tmp/flag", "-timeout", "9s", "-ephemeral", "whoami"},
			want:     Config{Home: "/tmp/flag", Timeout: 9 * time.Second, Ephemeral: true, LogLevel: "info", GeminiModel: "gemini-2.0-flash"},
			wantRest: []string{"whoami"},
		},
		{
			name:     "expo key fallback",
			env:      map[string]string{"MEDREMIND_HOME": "/h", "EXPO_PUBLIC_GEMINI_API_KEY": "expo"},
			args:     nil,
			want:     Config{Home: "/h", Timeout: 5 * time.Second, LogLevel: "info", GeminiAPIKey: "expo", GeminiModel: "gemini-2.0-flash"},
			wantRest: nil,
		},
		{
			name:     "gemini key wins over expo key",
			env:      map[string]string{"MEDREMIND_HOME": "/h", "GEMINI_API_KEY": "g", "EXPO_PUBLIC_GEMINI_API_KEY": "expo", "MEDREMIND_LOG_LEVEL": "debug"},
			args:     []string{"ask", "hi"},
			want:     Config{Home: "/h", Timeout: 5 * time.Second, LogLevel: "debug", GeminiAPIKey: "g", GeminiModel: "gemini-2.0-flash"},
			wantRest: []string{"ask", "hi"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, rest, err := Load(tt.args, env(tt.env))
			require.NoError(t, err)
			assert.Empty(t, cmp.Diff(&tt.want, cfg))
			assert.Equal(t, tt.wantRest, rest)
		})
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		args []string
	}{
		{"bad env timeout", map[string]string{"MEDREMIND_TIMEOUT": "soon"}, nil},
		{"bad flag timeout", nil, []string{"-timeout", "abc"}},
		{"zero timeout", nil, []string{"-timeout", "0s"}},
		{"unknown flag", nil, []string{"-verbose"}},
		{"bad log level", map[string]string{"MEDREMIND_LOG_LEVEL": "loud"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Load(tt.args, env(tt.env))
			assert.Error(t, err)
		})
	}
}

func TestLevel(t *testing.T) {
	c := Config{LogLevel: "warn"}
	l, err := c.Level()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelWarn, l)
}

func TestSecret_FromEnv(t *testing.T) {
	c := Config{Home: t.TempDir(), StoreSecret: "s3cret"}

	got, err := c.Secret()
	require.NoError(t, err)
	assert.Equal(t, []byte("s3cret"), got)

	_, err = os.Stat(filepath.Join(c.Home, StoreKeyFile))
	assert.True(t, os.IsNotExist(err), "no key file is written when the secret is set")
}

func TestSecret_GeneratedOnceAndReused(t *testing.T) {
	c := Config{Home: filepath.Join(t.TempDir(), "nested", "home")}

	first, err := c.Secret()
	require.NoError(t, err)
	assert.Len(t, first, 64)

	info, err := os.Stat(filepath.Join(c.Home, StoreKeyFile))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	second, err := c.Secret()
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestSecret_EmptyKeyFile(t *testing.T) {
	c := Config{Home: t.TempDir()}
	require.NoError(t, os.WriteFile(filepath.Join(c.Home, StoreKeyFile), []byte("\n"), 0o600))

	_, err := c.Secret()
	assert.Error(t, err)
}
