package main

import (
	"testing"

	"github.com/markhamlong/crawlctl/internal/filter"
)

func TestBuildDomainConfigDefaultsToDeriveFromSeeds(t *testing.T) {
	got, err := buildDomainConfig(flagConfig{})
	if err != nil {
		t.Fatalf("buildDomainConfig() error = %v", err)
	}
	if got.Allowance != filter.DeriveFromSeeds {
		t.Errorf("Allowance = %v, want DeriveFromSeeds", got.Allowance)
	}
}

func TestBuildDomainConfigRejectsUnknownAllowance(t *testing.T) {
	_, err := buildDomainConfig(flagConfig{domainAllowance: "bogus"})
	if err == nil {
		t.Fatal("expected an error for an unknown --domain-allowance value")
	}
}

func TestBuildDomainConfigExplicit(t *testing.T) {
	got, err := buildDomainConfig(flagConfig{domainAllowance: "explicit", allowedDomains: []string{"a.test"}})
	if err != nil {
		t.Fatalf("buildDomainConfig() error = %v", err)
	}
	if got.Allowance != filter.ExplicitAllow {
		t.Errorf("Allowance = %v, want ExplicitAllow", got.Allowance)
	}
	if len(got.Allowed) != 1 || got.Allowed[0] != "a.test" {
		t.Errorf("Allowed = %v, want [a.test]", got.Allowed)
	}
}

func TestBuildSinkDefaultsToMemory(t *testing.T) {
	s, err := buildSink(flagConfig{})
	if err != nil {
		t.Fatalf("buildSink() error = %v", err)
	}
	if s == nil {
		t.Fatal("expected a non-nil sink")
	}
}

func TestBuildSinkWritesToDir(t *testing.T) {
	s, err := buildSink(flagConfig{outputDir: t.TempDir()})
	if err != nil {
		t.Fatalf("buildSink() error = %v", err)
	}
	if s == nil {
		t.Fatal("expected a non-nil sink")
	}
}

func TestRootCmdRequiresSeedURL(t *testing.T) {
	cmd := rootCmd()
	cmd.SetArgs([]string{})
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	if err := cmd.Execute(); err == nil {
		t.Error("expected an error when no seed URL is given")
	}
}
