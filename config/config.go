package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"

	"github.com/soocke/gem-bot-go/assets"
	"github.com/soocke/gem-bot-go/domain/bot"
	"github.com/soocke/gem-bot-go/domain/region"
	"github.com/soocke/gem-bot-go/domain/vision"
)

const appName = "gem-bot"

var (
	// ErrUnsupportedFormat is returned for config files that are not JSON,
	// TOML or YAML.
	ErrUnsupportedFormat = errors.New("unsupported config format")
	// ErrInvalid wraps structural mistakes that cannot be clamped away.
	ErrInvalid = errors.New("invalid config")
)

const (
	BackendADB     = "adb"
	BackendDesktop = "desktop"
)

// Config holds runtime configuration for the bot.
// Fields may be loaded from a JSON, TOML or YAML file and overridden by
// command-line flags.
type Config struct {
	Debug bool `json:"debug" toml:"debug" yaml:"debug"`

	AssetsDir     string `json:"assets_dir" toml:"assets_dir" yaml:"assets_dir"`
	DumpDir       string `json:"dump_dir" toml:"dump_dir" yaml:"dump_dir"`
	SnapshotDir   string `json:"snapshot_dir" toml:"snapshot_dir" yaml:"snapshot_dir"`
	KeepSnapshots int    `json:"keep_snapshots" toml:"keep_snapshots" yaml:"keep_snapshots"`
	IdleWaitSecs  int    `json:"idle_wait_seconds" toml:"idle_wait_seconds" yaml:"idle_wait_seconds"`

	Device DeviceConfig `json:"device" toml:"device" yaml:"device"`
	Vision VisionConfig `json:"vision" toml:"vision" yaml:"vision"`
	OCR    OCRConfig    `json:"ocr" toml:"ocr" yaml:"ocr"`

	// Regions override or extend the built-in masks by name.
	Regions []region.Mask `json:"regions,omitempty" toml:"regions,omitempty" yaml:"regions,omitempty"`
	// Rules are evaluated in order; the first match wins.
	Rules []RuleConfig `json:"rules" toml:"rules" yaml:"rules"`
}

// DeviceConfig selects how screens are captured and taps delivered.
type DeviceConfig struct {
	Backend    string `json:"backend" toml:"backend" yaml:"backend"`
	ADBPath    string `json:"adb_path" toml:"adb_path" yaml:"adb_path"`
	Serial     string `json:"serial" toml:"serial" yaml:"serial"`
	Waydroid   bool   `json:"waydroid" toml:"waydroid" yaml:"waydroid"`
	WindowSize string `json:"window_size" toml:"window_size" yaml:"window_size"`
	// Display is the desktop display index; -1 captures the primary screen.
	Display int `json:"display" toml:"display" yaml:"display"`
	// OriginX/OriginY offset desktop taps to the emulator window.
	OriginX int `json:"origin_x" toml:"origin_x" yaml:"origin_x"`
	OriginY int `json:"origin_y" toml:"origin_y" yaml:"origin_y"`
}

// VisionConfig holds preprocessing and matching parameters.
type VisionConfig struct {
	Strategy  string  `json:"strategy" toml:"strategy" yaml:"strategy"`
	Threshold float64 `json:"threshold" toml:"threshold" yaml:"threshold"`
	Stride    int     `json:"stride" toml:"stride" yaml:"stride"`
	Refine    bool    `json:"refine" toml:"refine" yaml:"refine"`
	K         int     `json:"k" toml:"k" yaml:"k"`
	Radius    int     `json:"block_radius" toml:"block_radius" yaml:"block_radius"`
	Bias      int     `json:"bias" toml:"bias" yaml:"bias"`
}

// OCRConfig enables text readouts of masked regions for logging.
type OCRConfig struct {
	Enabled   bool     `json:"enabled" toml:"enabled" yaml:"enabled"`
	Language  string   `json:"language" toml:"language" yaml:"language"`
	Whitelist string   `json:"whitelist" toml:"whitelist" yaml:"whitelist"`
	Scale     int      `json:"scale" toml:"scale" yaml:"scale"`
	Regions   []string `json:"regions" toml:"regions" yaml:"regions"`
}

// RuleConfig is the file form of bot.Rule.
type RuleConfig struct {
	Name        string  `json:"name" toml:"name" yaml:"name"`
	Template    string  `json:"template" toml:"template" yaml:"template"`
	Region      string  `json:"region" toml:"region" yaml:"region"`
	Threshold   float64 `json:"threshold,omitempty" toml:"threshold,omitempty" yaml:"threshold,omitempty"`
	Taps        int     `json:"taps" toml:"taps" yaml:"taps"`
	TapPauseMS  int     `json:"tap_pause_ms" toml:"tap_pause_ms" yaml:"tap_pause_ms"`
	WaitSeconds int     `json:"wait_seconds" toml:"wait_seconds" yaml:"wait_seconds"`
}

// DefaultConfig returns a Config populated with standard defaults.
func DefaultConfig() *Config {
	return &Config{
		Debug:         false,
		AssetsDir:     "assets",
		SnapshotDir:   filepath.Join(xdg.CacheHome, appName, "snapshots"),
		KeepSnapshots: 20,
		IdleWaitSecs:  60,
		Device: DeviceConfig{
			Backend:    BackendADB,
			ADBPath:    "adb",
			Waydroid:   true,
			WindowSize: "319x695",
			Display:    -1,
		},
		Vision: VisionConfig{
			Strategy:  vision.StrategyNCC,
			Threshold: vision.DefaultThreshold,
			Stride:    1,
			Refine:    false,
			K:         1,
			Radius:    vision.DefaultBlockRadius,
			Bias:      vision.DefaultBias,
		},
		OCR: OCRConfig{
			Enabled:  false,
			Language: "eng",
			Scale:    2,
			Regions:  []string{region.GemCurrency, region.WaveCount},
		},
		Rules: []RuleConfig{
			{Name: "claim_gems", Template: assets.ClaimGems, Region: region.GemColumn, Taps: 2, TapPauseMS: 500, WaitSeconds: 630},
			{Name: "battle_end", Template: assets.RetryRun, Region: region.BattleEndScreen},
		},
	}
}

// DefaultPath is the config file location under the XDG config home.
func DefaultPath() string {
	return filepath.Join(xdg.ConfigHome, appName, "config.json")
}

// Validate clamps numeric values to safe ranges and reports structural
// mistakes such as rules naming unknown regions.
func (c *Config) Validate() error {
	if c.AssetsDir == "" {
		c.AssetsDir = "assets"
	}
	if c.KeepSnapshots < 0 {
		c.KeepSnapshots = 0
	}
	if c.IdleWaitSecs <= 0 {
		c.IdleWaitSecs = 60
	}
	if c.Device.Backend == "" {
		c.Device.Backend = BackendADB
	}
	if c.Device.ADBPath == "" {
		c.Device.ADBPath = "adb"
	}
	if c.Vision.Strategy == "" {
		c.Vision.Strategy = vision.StrategyNCC
	}
	if c.Vision.Threshold <= 0 || c.Vision.Threshold > 1 {
		c.Vision.Threshold = vision.DefaultThreshold
	}
	if c.Vision.Stride <= 0 {
		c.Vision.Stride = 1
	}
	if c.Vision.K <= 0 {
		c.Vision.K = 1
	}
	if c.Vision.Radius < 0 {
		c.Vision.Radius = vision.DefaultBlockRadius
	}
	if c.OCR.Scale <= 0 {
		c.OCR.Scale = 2
	}
	if c.OCR.Language == "" {
		c.OCR.Language = "eng"
	}

	switch c.Device.Backend {
	case BackendADB, BackendDesktop:
	default:
		return fmt.Errorf("%w: unknown device backend %q", ErrInvalid, c.Device.Backend)
	}
	switch c.Vision.Strategy {
	case vision.StrategyNCC, vision.StrategyNearest:
	default:
		return fmt.Errorf("%w: unknown strategy %q", ErrInvalid, c.Vision.Strategy)
	}
	masks, err := c.Masks()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if len(c.Rules) == 0 {
		return fmt.Errorf("%w: no rules", ErrInvalid)
	}
	seen := make(map[string]bool, len(c.Rules))
	for i, r := range c.Rules {
		if r.Name == "" || r.Template == "" {
			return fmt.Errorf("%w: rule %d needs a name and a template", ErrInvalid, i)
		}
		if seen[r.Name] {
			return fmt.Errorf("%w: duplicate rule %s", ErrInvalid, r.Name)
		}
		seen[r.Name] = true
		if _, err := masks.Get(r.Region); err != nil {
			return fmt.Errorf("%w: rule %s: %w", ErrInvalid, r.Name, err)
		}
		if r.Taps < 0 || r.TapPauseMS < 0 || r.WaitSeconds < 0 {
			return fmt.Errorf("%w: rule %s has negative taps or durations", ErrInvalid, r.Name)
		}
		if r.Threshold < 0 || r.Threshold > 1 {
			return fmt.Errorf("%w: rule %s threshold %v outside [0,1]", ErrInvalid, r.Name, r.Threshold)
		}
	}
	if c.OCR.Enabled {
		for _, name := range c.OCR.Regions {
			if _, err := masks.Get(name); err != nil {
				return fmt.Errorf("%w: ocr: %w", ErrInvalid, err)
			}
		}
	}
	return nil
}

// Masks returns the built-in masks with the configured regions applied on top.
func (c *Config) Masks() (*region.Registry, error) {
	return region.NewRegistry(append(region.DefaultMasks(), c.Regions...)...)
}

// BotRules converts the configured rules in priority order.
func (c *Config) BotRules() []bot.Rule {
	rules := make([]bot.Rule, 0, len(c.Rules))
	for _, r := range c.Rules {
		rules = append(rules, bot.Rule{
			Name:      r.Name,
			Template:  r.Template,
			Region:    r.Region,
			Threshold: r.Threshold,
			Taps:      r.Taps,
			TapPause:  time.Duration(r.TapPauseMS) * time.Millisecond,
			Wait:      time.Duration(r.WaitSeconds) * time.Second,
		})
	}
	return rules
}

// IdleWait is the backoff used when no rule fired.
func (c *Config) IdleWait() time.Duration {
	return time.Duration(c.IdleWaitSecs) * time.Second
}

// MatcherOptions returns the configured matcher selection.
func (c *Config) MatcherOptions() vision.MatcherOptions {
	return vision.MatcherOptions{
		Strategy:  c.Vision.Strategy,
		Threshold: c.Vision.Threshold,
		Stride:    c.Vision.Stride,
		Refine:    c.Vision.Refine,
		K:         c.Vision.K,
	}
}

// ThresholdOptions returns the adaptive threshold parameters.
func (c *Config) ThresholdOptions() vision.ThresholdOptions {
	return vision.ThresholdOptions{Radius: c.Vision.Radius, Bias: c.Vision.Bias}
}

// Load reads configuration from path, choosing the decoder by extension.
// If the file does not exist it returns DefaultConfig(). On decode error it
// returns defaults with the error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}
	// Lists replace the defaults wholesale; decoders would otherwise merge
	// file entries into the default elements field by field.
	parsed := DefaultConfig()
	parsed.Rules, parsed.Regions, parsed.OCR.Regions = nil, nil, nil
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		err = json.Unmarshal(data, parsed)
	case ".toml":
		err = toml.Unmarshal(data, parsed)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, parsed)
	default:
		return cfg, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	if err != nil {
		return cfg, fmt.Errorf("decode %s: %w", path, err)
	}
	if parsed.Rules == nil {
		parsed.Rules = cfg.Rules
	}
	if parsed.OCR.Regions == nil {
		parsed.OCR.Regions = cfg.OCR.Regions
	}
	if err := parsed.Validate(); err != nil {
		return cfg, err
	}
	return parsed, nil
}

// Save writes the configuration to the given path in JSON format.
func (c *Config) Save(path string) error {
	if err := c.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(c)
}
