package config

import (
	"fmt"
	"os"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

type Feature int

const (
	FeatProgramExit Feature = iota
	FeatOverflowChecks
	FeatBitwiseOps
	FeatClasses
	FeatCount
)

type Warning int

const (
	WarnShadow Warning = iota
	WarnUnreachableCode
	WarnUnusedFunc
	WarnCount
)

type Info struct {
	Name        string
	Enabled     bool
	Description string
}

// MaxRegisters is the size of the general-purpose pool (r4-r11).
const MaxRegisters = 8

// MinRegisters keeps one register free for statement-level address
// computations on top of the two scratch registers.
const MinRegisters = 3

type Config struct {
	Features   map[Feature]Info
	Warnings   map[Warning]Info
	FeatureMap map[string]Feature
	WarningMap map[string]Warning
	WordSize   int
	Registers  int
	Jobs       int
	CachePath  string
}

func NewConfig() *Config {
	cfg := &Config{
		Features:   make(map[Feature]Info),
		Warnings:   make(map[Warning]Info),
		FeatureMap: make(map[string]Feature),
		WarningMap: make(map[string]Warning),
		WordSize:   4,
		Registers:  MaxRegisters,
		Jobs:       runtime.NumCPU(),
	}

	features := map[Feature]Info{
		FeatProgramExit:    {"program-exit", true, "Require the top-level statement to end in 'exit'."},
		FeatOverflowChecks: {"overflow-checks", true, "Trap on signed overflow in '+', '-', '*' and negation."},
		FeatBitwiseOps:     {"bitwise-ops", true, "Allow the '~', '&', '|', '^', '<<' and '>>' operators."},
		FeatClasses:        {"classes", true, "Allow class declarations, 'new' and method calls."},
	}

	warnings := map[Warning]Info{
		WarnShadow:          {"shadow", false, "Warn when a declaration shadows a variable of an enclosing block."},
		WarnUnreachableCode: {"unreachable-code", true, "Warn about statements following 'return' or 'exit'."},
		WarnUnusedFunc:      {"unused-func", false, "Warn about functions that are never called."},
	}

	cfg.Features, cfg.Warnings = features, warnings
	for ft, info := range features {
		cfg.FeatureMap[info.Name] = ft
	}
	for wt, info := range warnings {
		cfg.WarningMap[info.Name] = wt
	}

	return cfg
}

func (c *Config) SetFeature(ft Feature, enabled bool) {
	if info, ok := c.Features[ft]; ok {
		info.Enabled = enabled
		c.Features[ft] = info
	}
}

func (c *Config) IsFeatureEnabled(ft Feature) bool { return c.Features[ft].Enabled }

func (c *Config) SetWarning(wt Warning, enabled bool) {
	if info, ok := c.Warnings[wt]; ok {
		info.Enabled = enabled
		c.Warnings[wt] = info
	}
}

func (c *Config) IsWarningEnabled(wt Warning) bool { return c.Warnings[wt].Enabled }

// SetRegisters bounds the register pool handed to the code generator.
func (c *Config) SetRegisters(n int) error {
	if n < MinRegisters || n > MaxRegisters {
		return fmt.Errorf("register budget %d out of range [%d, %d]", n, MinRegisters, MaxRegisters)
	}
	c.Registers = n
	return nil
}

func (c *Config) SetJobs(n int) {
	if n < 1 {
		n = 1
	}
	c.Jobs = n
}

// ApplyFlag handles -F<feature>, -Fno-<feature>, -W<warning> and -Wno-<warning>.
func (c *Config) ApplyFlag(flag string) error {
	trimmed := strings.TrimPrefix(flag, "-")
	isNo := strings.HasPrefix(trimmed, "Wno-") || strings.HasPrefix(trimmed, "Fno-")
	enable := !isNo

	var name string
	var isWarning bool

	switch {
	case strings.HasPrefix(trimmed, "W"):
		name, isWarning = strings.TrimPrefix(trimmed, "W"), true
	case strings.HasPrefix(trimmed, "F"):
		name = strings.TrimPrefix(trimmed, "F")
	default:
		return fmt.Errorf("unrecognized flag '%s'", flag)
	}
	if isNo {
		name = strings.TrimPrefix(name, "no-")
	}

	if name == "all" && isWarning {
		for i := Warning(0); i < WarnCount; i++ {
			c.SetWarning(i, enable)
		}
		return nil
	}

	if isWarning {
		w, ok := c.WarningMap[name]
		if !ok { return fmt.Errorf("unknown warning '%s'", name) }
		c.SetWarning(w, enable)
		return nil
	}
	f, ok := c.FeatureMap[name]
	if !ok { return fmt.Errorf("unknown feature '%s'", name) }
	c.SetFeature(f, enable)
	return nil
}

// fileConfig mirrors the YAML configuration file.
type fileConfig struct {
	Registers *int            `yaml:"registers"`
	Jobs      *int            `yaml:"jobs"`
	Cache     string          `yaml:"cache"`
	Features  map[string]bool `yaml:"features"`
	Warnings  map[string]bool `yaml:"warnings"`
}

// LoadFile applies settings from a YAML file on top of the current values.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config: %w", err)
	}
	return c.Load(data)
}

func (c *Config) Load(data []byte) error {
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parsing config: %w", err)
	}

	if fc.Registers != nil {
		if err := c.SetRegisters(*fc.Registers); err != nil { return err }
	}
	if fc.Jobs != nil {
		c.SetJobs(*fc.Jobs)
	}
	if fc.Cache != "" {
		c.CachePath = fc.Cache
	}
	for name, enabled := range fc.Features {
		f, ok := c.FeatureMap[name]
		if !ok { return fmt.Errorf("config: unknown feature '%s'", name) }
		c.SetFeature(f, enabled)
	}
	for name, enabled := range fc.Warnings {
		w, ok := c.WarningMap[name]
		if !ok { return fmt.Errorf("config: unknown warning '%s'", name) }
		c.SetWarning(w, enabled)
	}
	return nil
}

// Fingerprint identifies the settings that influence generated code.
func (c *Config) Fingerprint() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "r%d", c.Registers)
	for i := Feature(0); i < FeatCount; i++ {
		if c.IsFeatureEnabled(i) {
			sb.WriteString("+" + c.Features[i].Name)
		}
	}
	return sb.String()
}
