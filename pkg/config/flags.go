package config

import "github.com/xplshn/gwacc/pkg/cli"

// SetupFlagGroups registers a -W<warning> and -F<feature> switch (plus the
// no- forms) for every known warning and feature. The returned entries are
// indexed by Warning and Feature.
func (c *Config) SetupFlagGroups(fs *cli.FlagSet) (warnings, features []cli.FlagGroupEntry) {
	warnings = make([]cli.FlagGroupEntry, WarnCount)
	for i := Warning(0); i < WarnCount; i++ {
		info := c.Warnings[i]
		warnings[i] = cli.FlagGroupEntry{Name: info.Name, Prefix: "W", Usage: info.Description, Enabled: new(bool), Disabled: new(bool)}
		*warnings[i].Enabled = info.Enabled
	}
	features = make([]cli.FlagGroupEntry, FeatCount)
	for i := Feature(0); i < FeatCount; i++ {
		info := c.Features[i]
		features[i] = cli.FlagGroupEntry{Name: info.Name, Prefix: "F", Usage: info.Description, Enabled: new(bool), Disabled: new(bool)}
		*features[i].Enabled = info.Enabled
	}

	fs.AddFlagGroup("Warning Flags", "warning", warnings)
	fs.AddFlagGroup("Feature Flags", "feature", features)
	return warnings, features
}

// ApplyFlagGroups copies parsed switches back into c. Entries start out at
// the built-in defaults, so only a switch that moves away from its default
// overrides settings loaded from a file. A no- switch wins over the positive
// one.
func (c *Config) ApplyFlagGroups(warnings, features []cli.FlagGroupEntry) {
	defaults := NewConfig()
	for i, e := range warnings {
		switch {
		case *e.Disabled: c.SetWarning(Warning(i), false)
		case *e.Enabled && !defaults.IsWarningEnabled(Warning(i)): c.SetWarning(Warning(i), true)
		}
	}
	for i, e := range features {
		switch {
		case *e.Disabled: c.SetFeature(Feature(i), false)
		case *e.Enabled && !defaults.IsFeatureEnabled(Feature(i)): c.SetFeature(Feature(i), true)
		}
	}
}
