package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/soocke/gem-bot-go/domain/region"
	"github.com/soocke/gem-bot-go/domain/vision"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestDefaultConfig_Validates(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults invalid: %v", err)
	}
	rules := cfg.BotRules()
	if len(rules) != 2 || rules[0].Name != "claim_gems" || rules[1].Name != "battle_end" {
		t.Fatalf("unexpected default rules %+v", rules)
	}
	claim := rules[0]
	if claim.Region != region.GemColumn || claim.Taps != 2 || claim.TapPause != 500*time.Millisecond || claim.Wait != 630*time.Second {
		t.Fatalf("unexpected claim rule %+v", claim)
	}
	if claim.Wait <= cfg.IdleWait() {
		t.Fatalf("claim backoff %v must exceed idle wait %v", claim.Wait, cfg.IdleWait())
	}
	if rules[1].Taps != 0 || rules[1].Wait != 0 {
		t.Fatalf("battle_end should only log, got %+v", rules[1])
	}
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.IdleWaitSecs != 60 || cfg.Vision.Strategy != vision.StrategyNCC {
		t.Fatalf("expected defaults, got %+v", cfg)
	}
}

func TestLoad_Formats(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"config.json", `{"idle_wait_seconds": 30, "vision": {"strategy": "nearest", "k": 3},
			"rules": [{"name": "only", "template": "t.png", "region": "WAVE_COUNT", "taps": 1, "wait_seconds": 90}]}`},
		{"config.toml", `idle_wait_seconds = 30
[vision]
strategy = "nearest"
k = 3

[[rules]]
name = "only"
template = "t.png"
region = "WAVE_COUNT"
taps = 1
wait_seconds = 90
`},
		{"config.yaml", `idle_wait_seconds: 30
vision:
  strategy: nearest
  k: 3
rules:
  - name: only
    template: t.png
    region: WAVE_COUNT
    taps: 1
    wait_seconds: 90
`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg, err := Load(writeFile(t, tc.name, tc.body))
			if err != nil {
				t.Fatalf("load: %v", err)
			}
			if cfg.IdleWait() != 30*time.Second {
				t.Fatalf("idle wait %v", cfg.IdleWait())
			}
			opts := cfg.MatcherOptions()
			if opts.Strategy != vision.StrategyNearest || opts.K != 3 {
				t.Fatalf("matcher options %+v", opts)
			}
			// unset fields keep their defaults
			if opts.Threshold != vision.DefaultThreshold || cfg.ThresholdOptions().Radius != vision.DefaultBlockRadius {
				t.Fatalf("defaults lost: %+v", cfg.Vision)
			}
			rules := cfg.BotRules()
			if len(rules) != 1 || rules[0].Wait != 90*time.Second || rules[0].Region != region.WaveCount || rules[0].TapPause != 0 {
				t.Fatalf("rules %+v", rules)
			}
		})
	}
}

func TestLoad_RulesReplaceDefaults(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"config.json", `{"rules": [{"name": "log_only", "template": "x.png", "region": "BATTLE_END_SCREEN"}],
			"ocr": {"regions": ["WAVE_COUNT"]}}`},
		{"config.toml", `[ocr]
regions = ["WAVE_COUNT"]

[[rules]]
name = "log_only"
template = "x.png"
region = "BATTLE_END_SCREEN"
`},
		{"config.yaml", `ocr:
  regions: [WAVE_COUNT]
rules:
  - name: log_only
    template: x.png
    region: BATTLE_END_SCREEN
`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg, err := Load(writeFile(t, tc.name, tc.body))
			if err != nil {
				t.Fatalf("load: %v", err)
			}
			rules := cfg.BotRules()
			if len(rules) != 1 {
				t.Fatalf("expected only the file's rule, got %+v", rules)
			}
			r := rules[0]
			if r.Name != "log_only" || r.Taps != 0 || r.TapPause != 0 || r.Wait != 0 || r.Threshold != 0 {
				t.Fatalf("omitted fields inherited defaults: %+v", r)
			}
			if len(cfg.OCR.Regions) != 1 || cfg.OCR.Regions[0] != region.WaveCount {
				t.Fatalf("ocr regions %v", cfg.OCR.Regions)
			}
		})
	}
}

func TestLoad_OmittedListsKeepDefaults(t *testing.T) {
	cfg, err := Load(writeFile(t, "config.json", `{"idle_wait_seconds": 45}`))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(cfg.Rules) != 2 || cfg.Rules[0].Name != "claim_gems" || cfg.Rules[0].Taps != 2 {
		t.Fatalf("default rules lost: %+v", cfg.Rules)
	}
	if len(cfg.OCR.Regions) != 2 {
		t.Fatalf("default ocr regions lost: %v", cfg.OCR.Regions)
	}
}

func TestLoad_Errors(t *testing.T) {
	if _, err := Load(writeFile(t, "config.ini", "x=1")); !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
	if _, err := Load(writeFile(t, "config.json", "{")); err == nil {
		t.Fatalf("expected decode error")
	}
	cfg, err := Load(writeFile(t, "config.json", `{"rules": [{"name": "x", "template": "t.png", "region": "NOPE"}]}`))
	if !errors.Is(err, ErrInvalid) || !errors.Is(err, region.ErrUnknownMask) {
		t.Fatalf("expected unknown region, got %v", err)
	}
	if len(cfg.Rules) != 2 {
		t.Fatalf("failed load should return defaults")
	}
}

func TestValidate_ClampsKnobs(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Vision.Threshold = 3
	cfg.Vision.Stride = 0
	cfg.Vision.K = -1
	cfg.IdleWaitSecs = 0
	cfg.KeepSnapshots = -4
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if cfg.Vision.Threshold != vision.DefaultThreshold || cfg.Vision.Stride != 1 || cfg.Vision.K != 1 {
		t.Fatalf("vision not clamped: %+v", cfg.Vision)
	}
	if cfg.IdleWaitSecs != 60 || cfg.KeepSnapshots != 0 {
		t.Fatalf("loop knobs not clamped: %+v", cfg)
	}
}

func TestValidate_Structural(t *testing.T) {
	cases := map[string]func(c *Config){
		"backend":   func(c *Config) { c.Device.Backend = "serial" },
		"strategy":  func(c *Config) { c.Vision.Strategy = "sift" },
		"no rules":  func(c *Config) { c.Rules = nil },
		"duplicate": func(c *Config) { c.Rules = append(c.Rules, c.Rules[0]) },
		"unnamed":   func(c *Config) { c.Rules[0].Name = "" },
		"negative":  func(c *Config) { c.Rules[0].Taps = -1 },
		"threshold": func(c *Config) { c.Rules[0].Threshold = 1.5 },
		"bad mask":  func(c *Config) { c.Regions = []region.Mask{{Name: "X", Width: 0, Height: 4}} },
		"ocr region": func(c *Config) {
			c.OCR.Enabled = true
			c.OCR.Regions = []string{"NOPE"}
		},
	}
	for name, mutate := range cases {
		cfg := DefaultConfig()
		mutate(cfg)
		if err := cfg.Validate(); !errors.Is(err, ErrInvalid) {
			t.Fatalf("%s: expected ErrInvalid, got %v", name, err)
		}
	}
}

func TestMasks_RegionsOverrideDefaults(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Regions = []region.Mask{
		{Name: region.GemColumn, X: 5, Y: 0, Width: 80, Height: 600},
		{Name: "SHOP_BUTTON", X: 10, Y: 10, Width: 40, Height: 20},
	}
	masks, err := cfg.Masks()
	if err != nil {
		t.Fatalf("masks: %v", err)
	}
	gem, err := masks.Get(region.GemColumn)
	if err != nil || gem.X != 5 || gem.Width != 80 {
		t.Fatalf("override not applied: %+v %v", gem, err)
	}
	if _, err := masks.Get("SHOP_BUTTON"); err != nil {
		t.Fatalf("extra region missing: %v", err)
	}
	if _, err := masks.Get(region.BattleEndScreen); err != nil {
		t.Fatalf("default region lost: %v", err)
	}
}

func TestSave_ThenLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")
	cfg := DefaultConfig()
	cfg.Debug = true
	cfg.Rules[0].WaitSeconds = 700
	if err := cfg.Save(path); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !got.Debug || got.Rules[0].WaitSeconds != 700 {
		t.Fatalf("round trip lost values: %+v", got)
	}
}
