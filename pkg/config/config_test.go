package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaults(t *testing.T) {
	cfg := NewConfig()
	if cfg.Registers != MaxRegisters || cfg.WordSize != 4 || cfg.Jobs < 1 {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	for _, ft := range []Feature{FeatProgramExit, FeatOverflowChecks, FeatBitwiseOps, FeatClasses} {
		if !cfg.IsFeatureEnabled(ft) {
			t.Errorf("feature %s should be on by default", cfg.Features[ft].Name)
		}
	}
	if cfg.IsWarningEnabled(WarnShadow) {
		t.Error("shadow warning should be off by default")
	}
}

func TestApplyFlag(t *testing.T) {
	cfg := NewConfig()
	for _, flag := range []string{"-Fno-program-exit", "-Wshadow", "-Wno-unreachable-code"} {
		if err := cfg.ApplyFlag(flag); err != nil {
			t.Fatalf("ApplyFlag(%s): %v", flag, err)
		}
	}
	if cfg.IsFeatureEnabled(FeatProgramExit) {
		t.Error("-Fno-program-exit had no effect")
	}
	if !cfg.IsWarningEnabled(WarnShadow) || cfg.IsWarningEnabled(WarnUnreachableCode) {
		t.Error("warning flags had no effect")
	}

	if err := cfg.ApplyFlag("-Wall"); err != nil {
		t.Fatal(err)
	}
	for i := Warning(0); i < WarnCount; i++ {
		if !cfg.IsWarningEnabled(i) {
			t.Errorf("-Wall did not enable %s", cfg.Warnings[i].Name)
		}
	}

	for _, bad := range []string{"-Fwarp-drive", "-Wno-such", "-x"} {
		if err := cfg.ApplyFlag(bad); err == nil {
			t.Errorf("ApplyFlag(%s) should fail", bad)
		}
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gwacc.yaml")
	src := []byte("registers: 4\njobs: 2\ncache: /tmp/gwacc.db\nfeatures:\n  overflow-checks: false\nwarnings:\n  unused-func: true\n")
	if err := os.WriteFile(path, src, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := NewConfig()
	if err := cfg.LoadFile(path); err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Registers != 4 || cfg.Jobs != 2 || cfg.CachePath != "/tmp/gwacc.db" {
		t.Errorf("scalar settings not applied: %+v", cfg)
	}
	if cfg.IsFeatureEnabled(FeatOverflowChecks) || !cfg.IsWarningEnabled(WarnUnusedFunc) {
		t.Error("feature/warning maps not applied")
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	bad := []string{
		"registers: 2\n",
		"registers: 9\n",
		"features:\n  time-travel: true\n",
		"warnings:\n  nope: true\n",
		"registers: [1\n",
	}
	for _, src := range bad {
		if err := NewConfig().Load([]byte(src)); err == nil {
			t.Errorf("Load(%q) should fail", src)
		}
	}
}

func TestFingerprint(t *testing.T) {
	a, b := NewConfig(), NewConfig()
	if a.Fingerprint() != b.Fingerprint() {
		t.Fatal("identical configs should share a fingerprint")
	}
	b.SetFeature(FeatOverflowChecks, false)
	if a.Fingerprint() == b.Fingerprint() {
		t.Error("fingerprint ignores features")
	}
	_ = b.SetRegisters(5)
	b.SetFeature(FeatOverflowChecks, true)
	if a.Fingerprint() == b.Fingerprint() {
		t.Error("fingerprint ignores the register budget")
	}
}
