// Package config handles viewer configuration loading and management.
package config

import "time"

// Config holds all viewer settings.
type Config struct {
	Viewer   ViewerConfig   `yaml:"viewer"`
	Render   RenderConfig   `yaml:"render"`
	Controls ControlsConfig `yaml:"controls"`
	Window   WindowConfig   `yaml:"window"`
	Preview  PreviewConfig  `yaml:"preview"`
	Snapshot SnapshotConfig `yaml:"snapshot"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ViewerConfig holds the model reference and load policy.
type ViewerConfig struct {
	Model        string        `yaml:"model"`         // Geometry URL or path (.ply)
	PreviewImage string        `yaml:"preview_image"` // Thumbnail URL or path
	LoadTimeout  time.Duration `yaml:"load_timeout"`  // 0 waits forever
}

// RenderConfig holds camera and point rendering settings.
type RenderConfig struct {
	Width      int        `yaml:"width"`
	Height     int        `yaml:"height"`
	FOV        float32    `yaml:"fov"` // Vertical field of view, degrees
	Near       float32    `yaml:"near"`
	Far        float32    `yaml:"far"`
	PointSize  float32    `yaml:"point_size"` // World units
	Background [3]float32 `yaml:"background"`
}

// ControlsConfig holds orbit control settings.
type ControlsConfig struct {
	EnableZoom      bool    `yaml:"enable_zoom"`
	AutoRotate      bool    `yaml:"auto_rotate"`
	AutoRotateSpeed float32 `yaml:"auto_rotate_speed"` // Degrees per second
	DragSensitivity float32 `yaml:"drag_sensitivity"`
}

// WindowConfig holds host window settings.
type WindowConfig struct {
	Title      string `yaml:"title"`
	Width      int    `yaml:"width"`
	Height     int    `yaml:"height"`
	Fullscreen bool   `yaml:"fullscreen"` // Kiosk only
	VSync      bool   `yaml:"vsync"`
}

// PreviewConfig holds preview image handling settings.
type PreviewConfig struct {
	AutoOrient   bool          `yaml:"auto_orient"`
	CacheDir     string        `yaml:"cache_dir"`     // Where corrected copies go; empty uses the OS temp dir
	FetchTimeout time.Duration `yaml:"fetch_timeout"` // Limit for downloading a remote preview
}

// SnapshotConfig holds render surface capture settings.
type SnapshotConfig struct {
	Dir    string `yaml:"dir"`
	Prefix string `yaml:"prefix"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Viewer: ViewerConfig{
			LoadTimeout: 0,
		},
		Render: RenderConfig{
			Width:      400,
			Height:     400,
			FOV:        75,
			Near:       0.1,
			Far:        1000,
			PointSize:  0.003,
			Background: [3]float32{0, 0, 0},
		},
		Controls: ControlsConfig{
			EnableZoom:      false,
			AutoRotate:      true,
			AutoRotateSpeed: 12,
			DragSensitivity: 0.005,
		},
		Window: WindowConfig{
			Title:  "Point Viewer",
			Width:  640,
			Height: 560,
			VSync:  true,
		},
		Preview: PreviewConfig{
			AutoOrient:   true,
			FetchTimeout: 30 * time.Second,
		},
		Snapshot: SnapshotConfig{
			Dir:    "snapshots",
			Prefix: "pointview",
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}
