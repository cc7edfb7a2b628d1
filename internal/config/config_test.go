package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	// Camera defaults match the fixed viewport the viewer was tuned for
	if cfg.Render.Width != 400 || cfg.Render.Height != 400 {
		t.Errorf("expected 400x400 render surface, got %dx%d", cfg.Render.Width, cfg.Render.Height)
	}
	if cfg.Render.FOV != 75 {
		t.Errorf("expected fov 75, got %v", cfg.Render.FOV)
	}
	if cfg.Render.Near != 0.1 || cfg.Render.Far != 1000 {
		t.Errorf("expected clip planes 0.1/1000, got %v/%v", cfg.Render.Near, cfg.Render.Far)
	}
	if cfg.Render.PointSize != 0.003 {
		t.Errorf("expected point size 0.003, got %v", cfg.Render.PointSize)
	}

	// Controls: zoom off, auto-rotate on
	if cfg.Controls.EnableZoom {
		t.Error("expected zoom to be disabled by default")
	}
	if !cfg.Controls.AutoRotate {
		t.Error("expected auto-rotate to be enabled by default")
	}

	if cfg.Viewer.LoadTimeout != 0 {
		t.Errorf("expected no load timeout, got %v", cfg.Viewer.LoadTimeout)
	}
	if !cfg.Preview.AutoOrient {
		t.Error("expected preview auto-orient by default")
	}
	if cfg.Preview.FetchTimeout != 30*time.Second {
		t.Errorf("expected 30s preview fetch timeout, got %v", cfg.Preview.FetchTimeout)
	}

	if cfg.Logging.Level != "info" {
		t.Errorf("expected log level 'info', got %s", cfg.Logging.Level)
	}
	if cfg.Logging.LogFile != "" {
		t.Errorf("expected empty log file, got %s", cfg.Logging.LogFile)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	yamlContent := `
viewer:
  model: "https://example.com/scan.ply"
  preview_image: "thumb.jpg"
  load_timeout: 30s

render:
  width: 512
  height: 512
  fov: 60
  point_size: 0.01
  background: [0.1, 0.2, 0.3]

controls:
  enable_zoom: true
  auto_rotate: false

window:
  title: "Scan"
  vsync: false

preview:
  fetch_timeout: 5s

logging:
  level: "debug"
  log_file: "viewer.log"
`

	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg := Default()
	if err := loadFromFile(cfg, configPath); err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Viewer.Model != "https://example.com/scan.ply" {
		t.Errorf("unexpected model %q", cfg.Viewer.Model)
	}
	if cfg.Viewer.PreviewImage != "thumb.jpg" {
		t.Errorf("unexpected preview %q", cfg.Viewer.PreviewImage)
	}
	if cfg.Viewer.LoadTimeout != 30*time.Second {
		t.Errorf("expected timeout 30s, got %v", cfg.Viewer.LoadTimeout)
	}
	if cfg.Render.Width != 512 || cfg.Render.FOV != 60 {
		t.Errorf("render section not applied: %+v", cfg.Render)
	}
	if cfg.Render.Background != [3]float32{0.1, 0.2, 0.3} {
		t.Errorf("unexpected background %v", cfg.Render.Background)
	}
	// Values absent from the file keep their defaults
	if cfg.Render.Near != 0.1 {
		t.Errorf("expected default near plane, got %v", cfg.Render.Near)
	}
	if !cfg.Controls.EnableZoom || cfg.Controls.AutoRotate {
		t.Errorf("controls section not applied: %+v", cfg.Controls)
	}
	if cfg.Window.Title != "Scan" || cfg.Window.VSync {
		t.Errorf("window section not applied: %+v", cfg.Window)
	}
	if cfg.Preview.FetchTimeout != 5*time.Second || !cfg.Preview.AutoOrient {
		t.Errorf("preview section not applied: %+v", cfg.Preview)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.LogFile != "viewer.log" {
		t.Errorf("logging section not applied: %+v", cfg.Logging)
	}
}

func TestLoadFromFileInvalid(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "invalid.yaml")

	invalidYAML := `
render:
  width: not a number
  invalid syntax here
`
	if err := os.WriteFile(configPath, []byte(invalidYAML), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg := Default()
	if err := loadFromFile(cfg, configPath); err == nil {
		t.Error("expected error loading invalid YAML, got nil")
	}
}

func TestLoadFromFileMissing(t *testing.T) {
	cfg := Default()
	if err := loadFromFile(cfg, "/nonexistent/path/config.yaml"); err == nil {
		t.Error("expected error loading missing file, got nil")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"zero width", func(c *Config) { c.Render.Width = 0 }, true},
		{"fov too wide", func(c *Config) { c.Render.FOV = 180 }, true},
		{"near zero", func(c *Config) { c.Render.Near = 0 }, true},
		{"far before near", func(c *Config) { c.Render.Far = 0.05 }, true},
		{"negative timeout", func(c *Config) { c.Viewer.LoadTimeout = -time.Second }, true},
		{"negative fetch timeout", func(c *Config) { c.Preview.FetchTimeout = -time.Second }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfigDir(t *testing.T) {
	dir := ConfigDir()
	if dir == "" {
		t.Error("ConfigDir returned empty string")
	}
	if !filepath.IsAbs(dir) {
		t.Errorf("ConfigDir should return absolute path, got %s", dir)
	}
}

func TestFindConfigFile(t *testing.T) {
	origDir, _ := os.Getwd()
	defer os.Chdir(origDir)

	tmpDir := t.TempDir()
	os.Chdir(tmpDir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(tmpDir, "xdg"))

	if path := findConfigFile(); path != "" {
		t.Errorf("expected empty path when no config exists, got %s", path)
	}

	configPath := filepath.Join(tmpDir, "pointview.yaml")
	if err := os.WriteFile(configPath, []byte("render:\n  width: 800\n"), 0644); err != nil {
		t.Fatalf("failed to create test config: %v", err)
	}

	if path := findConfigFile(); path == "" {
		t.Error("expected to find pointview.yaml in current directory")
	}
}

func TestApplyFlags(t *testing.T) {
	tests := []struct {
		name     string
		setup    func()
		verify   func(*testing.T, *Config)
		teardown func()
	}{
		{
			name:  "debug flag",
			setup: func() { *flagDebug = true },
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Logging.Level != "debug" {
					t.Errorf("expected log level 'debug', got %s", cfg.Logging.Level)
				}
			},
			teardown: func() { *flagDebug = false },
		},
		{
			name: "model and preview flags",
			setup: func() {
				*flagModel = "scan.ply"
				*flagPreview = "scan.jpg"
			},
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Viewer.Model != "scan.ply" {
					t.Errorf("expected model scan.ply, got %s", cfg.Viewer.Model)
				}
				if cfg.Viewer.PreviewImage != "scan.jpg" {
					t.Errorf("expected preview scan.jpg, got %s", cfg.Viewer.PreviewImage)
				}
			},
			teardown: func() {
				*flagModel = ""
				*flagPreview = ""
			},
		},
		{
			name:  "timeout flag",
			setup: func() { *flagTimeout = 5 * time.Second },
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Viewer.LoadTimeout != 5*time.Second {
					t.Errorf("expected timeout 5s, got %v", cfg.Viewer.LoadTimeout)
				}
			},
			teardown: func() { *flagTimeout = 0 },
		},
		{
			name: "width and height flags",
			setup: func() {
				*flagWidth = 1024
				*flagHeight = 768
			},
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Window.Width != 1024 || cfg.Window.Height != 768 {
					t.Errorf("expected 1024x768, got %dx%d", cfg.Window.Width, cfg.Window.Height)
				}
			},
			teardown: func() {
				*flagWidth = 0
				*flagHeight = 0
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.setup()
			defer tt.teardown()

			cfg := Default()
			applyFlags(cfg)
			tt.verify(t, cfg)
		})
	}
}

func TestLoadPriority(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")

	yamlContent := `
viewer:
  model: "from-file.ply"
  preview_image: "from-file.jpg"
`
	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	*flagConfig = configPath
	*flagModel = "from-flag.ply"
	defer func() {
		*flagConfig = ""
		*flagModel = ""
	}()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Viewer.Model != "from-flag.ply" {
		t.Errorf("expected model from flag, got %s", cfg.Viewer.Model)
	}
	if cfg.Viewer.PreviewImage != "from-file.jpg" {
		t.Errorf("expected preview from file, got %s", cfg.Viewer.PreviewImage)
	}
}

func TestSaveToRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := Default()
	cfg.Viewer.Model = "saved.ply"
	cfg.Viewer.LoadTimeout = 2 * time.Second
	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("SaveTo failed: %v", err)
	}

	loaded := Default()
	if err := loadFromFile(loaded, path); err != nil {
		t.Fatalf("loading saved config failed: %v", err)
	}
	if loaded.Viewer.Model != "saved.ply" || loaded.Viewer.LoadTimeout != 2*time.Second {
		t.Errorf("saved viewer section not restored: %+v", loaded.Viewer)
	}
}
