package confloader

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type testConfig struct {
	Crypto struct {
		Iterations int    `koanf:"iterations"`
		SaltPrefix string `koanf:"salt_prefix"`
	} `koanf:"crypto"`
	Log struct {
		Level string `koanf:"level"`
	} `koanf:"log"`
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "securestore.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

func TestNewLoader(t *testing.T) {
	l := NewLoader()
	if l.envPrefix != DefaultEnvPrefix {
		t.Errorf("envPrefix = %q, want %q", l.envPrefix, DefaultEnvPrefix)
	}

	l = NewLoader(WithEnvPrefix("TEST_"), WithConfigFile("/path/to/config.yaml"))
	if l.envPrefix != "TEST_" || l.FilePath() != "/path/to/config.yaml" {
		t.Errorf("options not applied: prefix=%q file=%q", l.envPrefix, l.FilePath())
	}
}

func TestLoader_FileLayer(t *testing.T) {
	path := writeConfig(t, `
crypto:
  iterations: 20000
  salt_prefix: "custom:v3"
log:
  level: debug
`)

	var cfg testConfig
	if err := NewLoader(WithConfigFile(path)).Load(&cfg); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Crypto.Iterations != 20000 || cfg.Crypto.SaltPrefix != "custom:v3" || cfg.Log.Level != "debug" {
		t.Errorf("Load() = %+v", cfg)
	}
}

func TestLoader_MissingFile(t *testing.T) {
	var cfg testConfig
	if err := NewLoader(WithConfigFile("/nonexistent/securestore.yaml")).Load(&cfg); err == nil {
		t.Error("Load() should fail for a missing required file")
	}
	l := NewLoader(WithConfigFile("/nonexistent/securestore.yaml"), WithOptionalFile())
	if err := l.Load(&cfg); err != nil {
		t.Fatalf("Load() with optional file error = %v", err)
	}
	if got := strings.Join(l.Layers(), ","); got != LayerEnv {
		t.Errorf("Layers() = %q, want %q", got, LayerEnv)
	}
}

func TestLoader_Priority(t *testing.T) {
	path := writeConfig(t, "crypto:\n  iterations: 20000\n  salt_prefix: from-file\nlog:\n  level: warn\n")
	t.Setenv("SSTEST_CRYPTO_SALT_PREFIX", "from-env")
	t.Setenv("SSTEST_LOG_LEVEL", "error")

	l := NewLoader(
		WithEnvPrefix("SSTEST_"),
		WithConfigFile(path),
		WithDefaults(map[string]any{"crypto.iterations": 10000, "crypto.salt_prefix": "default", "log.level": "info"}),
		WithOverrides(map[string]any{"log.level": "debug"}),
	)

	var cfg testConfig
	if err := l.Load(&cfg); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	tests := []struct {
		name string
		got  any
		want any
	}{
		{"file beats default", cfg.Crypto.Iterations, 20000},
		{"env beats file", cfg.Crypto.SaltPrefix, "from-env"},
		{"override beats env", cfg.Log.Level, "debug"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s: got %v, want %v", tt.name, tt.got, tt.want)
		}
	}
	if !l.IsLoaded() {
		t.Error("IsLoaded() = false after Load")
	}
	want := []string{LayerDefaults, LayerFile, LayerEnv, LayerOverrides}
	if got := l.Layers(); strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("Layers() = %v, want %v", got, want)
	}
}

func TestLoader_EnvKey(t *testing.T) {
	l := NewLoader()
	tests := []struct {
		env  string
		want string
	}{
		{"SECURESTORE_LOG_LEVEL", "log.level"},
		{"SECURESTORE_CRYPTO_SALT_PREFIX", "crypto.salt_prefix"},
		{"SECURESTORE_STORAGE_VOLATILE_QUOTA_BYTES", "storage.volatile_quota_bytes"},
		{"SECURESTORE_DEBUG", "debug"},
	}
	for _, tt := range tests {
		if got := l.envKey(tt.env); got != tt.want {
			t.Errorf("envKey(%q) = %q, want %q", tt.env, got, tt.want)
		}
	}
}

func TestLoader_FailedLoadKeepsPreviousTree(t *testing.T) {
	path := writeConfig(t, "log:\n  level: warn\n")
	l := NewLoader(WithConfigFile(path))
	if l.IsLoaded() {
		t.Error("IsLoaded() = true before Load")
	}

	var cfg testConfig
	if err := l.Load(&cfg); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("log: [unterminated\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := l.Load(&cfg); err == nil {
		t.Fatal("Load() should fail on invalid YAML")
	}
	if l.GetString("log.level") != "warn" {
		t.Errorf("GetString() = %q, want the last good value", l.GetString("log.level"))
	}
}

func TestLoader_Reload(t *testing.T) {
	path := writeConfig(t, "log:\n  level: info\n")
	l := NewLoader(WithConfigFile(path))

	var cfg testConfig
	if err := l.Load(&cfg); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("log:\n  level: debug\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	var reloaded testConfig
	if err := l.Load(&reloaded); err != nil {
		t.Fatal(err)
	}
	if reloaded.Log.Level != "debug" {
		t.Errorf("reloaded level = %q, want debug", reloaded.Log.Level)
	}
	if l.GetString("log.level") != "debug" {
		t.Errorf("GetString() = %q", l.GetString("log.level"))
	}
}

func TestMapProvider_Read(t *testing.T) {
	m, err := mapProvider{"a.b.c": 1, "a.d": "x", "e": true}.Read()
	if err != nil {
		t.Fatal(err)
	}
	a := m["a"].(map[string]any)
	if a["d"] != "x" || a["b"].(map[string]any)["c"] != 1 || m["e"] != true {
		t.Errorf("Read() = %v", m)
	}
	if _, err := (mapProvider{}).ReadBytes(); err != ErrReadBytesNotSupported {
		t.Errorf("ReadBytes() error = %v", err)
	}
}
