package config

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/pelletier/go-toml"
	"github.com/xplshn/minic/pkg/cli"
	"modernc.org/libqbe"
)

type Feature int

const (
	FeatLoopRetest Feature = iota
	FeatBareReturn
	FeatRadixLiterals
	FeatCComments
	FeatCount
)

type Warning int

const (
	WarnShadow Warning = iota
	WarnDynamicIndex
	WarnUnreachableCode
	WarnCount
)

type Info struct {
	Name        string
	Enabled     bool
	Description string
}

type Config struct {
	Features      map[Feature]Info
	Warnings      map[Warning]Info
	FeatureMap    map[string]Feature
	WarningMap    map[string]Warning
	BackendName   string
	BackendTarget string
	TargetArch    string
	MaxSteps      int
}

const DefaultMaxSteps = 10_000_000

func NewConfig() *Config {
	cfg := &Config{
		Features:    make(map[Feature]Info),
		Warnings:    make(map[Warning]Info),
		FeatureMap:  make(map[string]Feature),
		WarningMap:  make(map[string]Warning),
		BackendName: "qbe",
		MaxSteps:    DefaultMaxSteps,
	}

	features := map[Feature]Info{
		FeatLoopRetest:    {"loop-retest", true, "Re-test the condition of a 'while' loop after every iteration."},
		FeatBareReturn:    {"bare-return", true, "Emit RET for a 'return' without a value."},
		FeatRadixLiterals: {"radix-literals", true, "Allow 0x, 0o and 0b integer literals."},
		FeatCComments:     {"c-comments", true, "Recognize C++-style '//' line comments."},
	}

	warnings := map[Warning]Info{
		WarnShadow:          {"shadow", true, "Warn when a local or parameter hides a global of the same name."},
		WarnDynamicIndex:    {"dynamic-index", false, "Warn when an array index is not known at compile time."},
		WarnUnreachableCode: {"unreachable-code", true, "Warn about statements after 'return' or 'break'."},
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

// SetTarget configures the backend and QBE target. An empty target selects
// the host's default.
func (c *Config) SetTarget(goos, goarch, target string) {
	c.TargetArch = goarch
	if target == "" || target == "qbe" {
		c.BackendName = "qbe"
		c.BackendTarget = libqbe.DefaultTarget(goos, goarch)
		return
	}
	if backend, tgt, ok := strings.Cut(target, "/"); ok {
		c.BackendName, c.BackendTarget = backend, tgt
		return
	}
	c.BackendName, c.BackendTarget = "qbe", target
	switch target {
	case "amd64_sysv", "amd64_apple", "arm64", "arm64_apple", "rv64":
	default:
		fmt.Fprintf(os.Stderr, "minic: warning: unrecognized QBE target '%s', compilation may fail.\n", target)
	}
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

// ApplyFlag applies a single -W/-F style flag such as "-Wno-shadow" or
// "-Floop-retest". Unknown names are reported as an error.
func (c *Config) ApplyFlag(flag string) error {
	trimmed := strings.TrimPrefix(flag, "-")
	var isWarning bool
	switch {
	case strings.HasPrefix(trimmed, "W"):
		isWarning = true
	case strings.HasPrefix(trimmed, "F"):
	default:
		return fmt.Errorf("flag '%s' is neither a warning (-W) nor a feature (-F)", flag)
	}
	name := trimmed[1:]
	enable := true
	if strings.HasPrefix(name, "no-") {
		name, enable = strings.TrimPrefix(name, "no-"), false
	}

	if name == "all" && isWarning {
		for i := Warning(0); i < WarnCount; i++ {
			c.SetWarning(i, enable)
		}
		return nil
	}

	if isWarning {
		w, ok := c.WarningMap[name]
		if !ok {
			return fmt.Errorf("unknown warning '%s'", name)
		}
		c.SetWarning(w, enable)
		return nil
	}
	f, ok := c.FeatureMap[name]
	if !ok {
		return fmt.Errorf("unknown feature '%s'", name)
	}
	c.SetFeature(f, enable)
	return nil
}

type fileConfig struct {
	Target   string          `toml:"target"`
	MaxSteps int             `toml:"max-steps"`
	Features map[string]bool `toml:"features"`
	Warnings map[string]bool `toml:"warnings"`
}

// LoadFile reads a minic.toml project file and applies it on top of the
// current settings.
func (c *Config) LoadFile(path string) error {
	buf, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return c.Load(buf)
}

func (c *Config) Load(buf []byte) error {
	var fc fileConfig
	if err := toml.Unmarshal(buf, &fc); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if fc.Target != "" {
		c.BackendTarget = fc.Target
	}
	if fc.MaxSteps > 0 {
		c.MaxSteps = fc.MaxSteps
	}
	for _, name := range sortedKeys(fc.Features) {
		ft, ok := c.FeatureMap[name]
		if !ok {
			return fmt.Errorf("invalid config: unknown feature '%s'", name)
		}
		c.SetFeature(ft, fc.Features[name])
	}
	for _, name := range sortedKeys(fc.Warnings) {
		wt, ok := c.WarningMap[name]
		if !ok {
			return fmt.Errorf("invalid config: unknown warning '%s'", name)
		}
		c.SetWarning(wt, fc.Warnings[name])
	}
	return nil
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// SetupFlagGroups registers the -W and -F flag groups on fs. The returned
// entries are indexed by Warning and Feature respectively.
func (c *Config) SetupFlagGroups(fs *cli.FlagSet) ([]cli.FlagGroupEntry, []cli.FlagGroupEntry) {
	warningFlags := make([]cli.FlagGroupEntry, WarnCount)
	for i := Warning(0); i < WarnCount; i++ {
		info := c.Warnings[i]
		warningFlags[i] = cli.FlagGroupEntry{Name: info.Name, Prefix: "W", Usage: info.Description, Enabled: new(bool), Disabled: new(bool)}
	}
	featureFlags := make([]cli.FlagGroupEntry, FeatCount)
	for i := Feature(0); i < FeatCount; i++ {
		info := c.Features[i]
		featureFlags[i] = cli.FlagGroupEntry{Name: info.Name, Prefix: "F", Usage: info.Description, Enabled: new(bool), Disabled: new(bool)}
	}
	fs.AddFlagGroup("Warning Flags", "Enable or disable specific warnings", "warning", "Available Warnings:", warningFlags)
	fs.AddFlagGroup("Feature Flags", "Enable or disable specific features", "feature", "Available Features:", featureFlags)
	return warningFlags, featureFlags
}

// ApplyFlagGroups copies the parsed -W/-F group flags into the config.
func (c *Config) ApplyFlagGroups(warningFlags, featureFlags []cli.FlagGroupEntry) {
	for i, entry := range warningFlags {
		if entry.Enabled != nil && *entry.Enabled {
			c.SetWarning(Warning(i), true)
		}
		if entry.Disabled != nil && *entry.Disabled {
			c.SetWarning(Warning(i), false)
		}
	}
	for i, entry := range featureFlags {
		if entry.Enabled != nil && *entry.Enabled {
			c.SetFeature(Feature(i), true)
		}
		if entry.Disabled != nil && *entry.Disabled {
			c.SetFeature(Feature(i), false)
		}
	}
}
