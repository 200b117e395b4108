package config

import (
	"testing"

	"github.com/xplshn/gwacc/pkg/cli"
)

func TestFlagGroups(t *testing.T) {
	cfg := NewConfig()
	fs := cli.NewFlagSet("test")
	warnings, features := cfg.SetupFlagGroups(fs)
	if err := fs.Parse([]string{"-Wshadow", "-Fno-overflow-checks", "-Wunused-func", "-Wno-unused-func", "prog.json"}); err != nil {
		t.Fatal(err)
	}
	cfg.ApplyFlagGroups(warnings, features)

	if !cfg.IsWarningEnabled(WarnShadow) {
		t.Error("-Wshadow was not applied")
	}
	if cfg.IsWarningEnabled(WarnUnusedFunc) {
		t.Error("the no- switch must win")
	}
	if cfg.IsFeatureEnabled(FeatOverflowChecks) {
		t.Error("-Fno-overflow-checks was not applied")
	}
	if !cfg.IsFeatureEnabled(FeatBitwiseOps) || !cfg.IsWarningEnabled(WarnUnreachableCode) {
		t.Error("untouched switches changed their settings")
	}
}

func TestFlagGroupsKeepFileSettings(t *testing.T) {
	cfg := NewConfig()
	fs := cli.NewFlagSet("test")
	warnings, features := cfg.SetupFlagGroups(fs)
	if err := fs.Parse(nil); err != nil {
		t.Fatal(err)
	}
	if err := cfg.Load([]byte("features:\n  classes: false\nwarnings:\n  unreachable-code: false\n")); err != nil {
		t.Fatal(err)
	}
	cfg.ApplyFlagGroups(warnings, features)

	if cfg.IsFeatureEnabled(FeatClasses) || cfg.IsWarningEnabled(WarnUnreachableCode) {
		t.Error("default-valued switches overrode the configuration file")
	}
}
