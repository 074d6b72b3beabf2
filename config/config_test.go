package config

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
)

type testPersistence struct {
	Unit       string            `mapstructure:"unit"`
	MaxRetries int               `mapstructure:"max_retries"`
	Properties map[string]string `mapstructure:"properties"`
}

type testConfig struct {
	ServiceConfig `yaml:",inline" mapstructure:",squash"`
	Persistence   testPersistence `mapstructure:"persistence"`
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestServiceConfigApplyDefaults(t *testing.T) {
	cfg := ServiceConfig{Name: "persistd"}
	cfg.ApplyDefaults()
	if cfg.Environment != "development" {
		t.Errorf("expected 'development', got %q", cfg.Environment)
	}
	if !cfg.Debug {
		t.Error("expected debug=true for development")
	}
	if cfg.Logging.ServiceName != "persistd" {
		t.Errorf("expected logging service name to follow Name, got %q", cfg.Logging.ServiceName)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("expected logging defaults applied, got level %q", cfg.Logging.Level)
	}

	prod := ServiceConfig{Name: "persistd", Environment: "production"}
	prod.ApplyDefaults()
	if prod.Debug {
		t.Error("expected debug=false for production")
	}
}

func TestServiceConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		cfg    ServiceConfig
		errMsg string
	}{
		{"valid", ServiceConfig{Name: "svc", Environment: "staging"}, ""},
		{"missing name", ServiceConfig{Environment: "production"}, "config.name is required"},
		{"invalid environment", ServiceConfig{Name: "svc", Environment: "qa"}, "config.environment must be one of"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tc.cfg.Logging.ApplyDefaults()
			err := tc.cfg.Validate()
			if tc.errMsg == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.errMsg) {
				t.Errorf("expected error containing %q, got %v", tc.errMsg, err)
			}
		})
	}
}

func TestLoadConfigFromYAML(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yml", `
name: persistd
environment: staging
persistence:
  unit: orders
  max_retries: 2
  properties:
    log_level: warn
`)

	var cfg testConfig
	if err := LoadConfig("persistd-yaml-test", &cfg, WithConfigFile(path)); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Name != "persistd" || cfg.Environment != "staging" {
		t.Errorf("unexpected base config: %+v", cfg.ServiceConfig)
	}
	if cfg.Persistence.Unit != "orders" || cfg.Persistence.MaxRetries != 2 {
		t.Errorf("unexpected persistence config: %+v", cfg.Persistence)
	}
	if cfg.Persistence.Properties["log_level"] != "warn" {
		t.Errorf("expected properties to load, got %v", cfg.Persistence.Properties)
	}
}

func TestLoadConfigEnvOverridesYAML(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yml", `
name: persistd
persistence:
  unit: orders
  max_retries: 2
`)
	t.Setenv("PERSISTD_ENV_TEST_PERSISTENCE_UNIT", "billing")
	t.Setenv("PERSISTD_ENV_TEST_PERSISTENCE_MAX_RETRIES", "7")

	var cfg testConfig
	if err := LoadConfig("persistd-env-test", &cfg, WithConfigFile(path)); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Persistence.Unit != "billing" {
		t.Errorf("expected env override for unit, got %q", cfg.Persistence.Unit)
	}
	if cfg.Persistence.MaxRetries != 7 {
		t.Errorf("expected env override for max_retries, got %d", cfg.Persistence.MaxRetries)
	}
}

func TestLoadConfigEnvFile(t *testing.T) {
	dir := t.TempDir()
	envPath := writeFile(t, dir, ".env", "PERSISTD_DOTENV_NAME=from-dotenv\n")
	t.Cleanup(func() { os.Unsetenv("PERSISTD_DOTENV_NAME") })

	var cfg testConfig
	err := LoadConfig("persistd-dotenv", &cfg,
		WithEnvFile(envPath),
		WithFileSystem(&mockFS{files: map[string]bool{envPath: true}, real: true}),
	)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Name != "from-dotenv" {
		t.Errorf("expected name from .env, got %q", cfg.Name)
	}
}

func TestLoadConfigMissingExplicitFile(t *testing.T) {
	var cfg testConfig
	err := LoadConfig("persistd", &cfg, WithConfigFile("/nonexistent/config.yml"))
	if err == nil {
		t.Fatal("expected error for missing explicit config file")
	}
}

type mockFS struct {
	files map[string]bool
	real  bool
}

func (m *mockFS) Exists(path string) bool { return m.files[path] }

func (m *mockFS) LoadEnv(path string) error {
	if m.real {
		return RealFileSystem{}.LoadEnv(path)
	}
	return nil
}

func TestResolverSearchOrder(t *testing.T) {
	fs := &mockFS{files: map[string]bool{
		"./cmd/persistd/config.yml": true,
		"./config.yml":              true,
		".env":                      true,
	}}
	files := (&Resolver{FileSystem: fs}).ResolveFiles("persistd", LoaderConfig{})
	if files.ConfigFile != "./cmd/persistd/config.yml" {
		t.Errorf("expected cmd config first, got %q", files.ConfigFile)
	}
	if files.EnvFile != ".env" {
		t.Errorf("expected .env, got %q", files.EnvFile)
	}

	explicit := (&Resolver{FileSystem: fs}).ResolveFiles("persistd", LoaderConfig{ConfigFile: "custom.yml"})
	if explicit.ConfigFile != "custom.yml" {
		t.Errorf("explicit path should win, got %q", explicit.ConfigFile)
	}
}

func TestEnvPrefix(t *testing.T) {
	if got := EnvPrefix("persist-d"); got != "PERSIST_D" {
		t.Errorf("EnvPrefix() = %q", got)
	}
}

func TestEnvKeyVariants(t *testing.T) {
	got := envKeyVariants("PERSISTENCE_MAX_RETRIES")
	for _, want := range []string{"persistence_max_retries", "persistence.max.retries", "persistence.max_retries"} {
		if !slices.Contains(got, want) {
			t.Errorf("missing variant %q in %v", want, got)
		}
	}
	if single := envKeyVariants("NAME"); len(single) != 1 || single[0] != "name" {
		t.Errorf("single-part key variants = %v", single)
	}
}
