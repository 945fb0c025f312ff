package config

import (
	"testing"
)

func TestLoadDefaultsWithNoConfigFile(t *testing.T) {
	dir := t.TempDir()
	l, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if l.SourceFile != "" {
		t.Fatalf("SourceFile = %q, want empty", l.SourceFile)
	}
	if l.Presentation.UIMode != UIPaths {
		t.Fatalf("UIMode = %q, want %q", l.Presentation.UIMode, UIPaths)
	}
	if l.Repo.ReposURL != "" {
		t.Fatalf("ReposURL = %q, want empty", l.Repo.ReposURL)
	}
}

func TestWriteThenLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	written := &Loaded{
		Repo:          RepoConfig{ReposURL: "file:///tmp/repo", InfoDir: "", LockTimeout: "15s"},
		Presentation:  PresentationConfig{UIMode: UISerial, Quiet: true},
		FormatVersion: SupportedFormatVersion,
	}
	if err := Write(dir, written); err != nil {
		t.Fatalf("Write: %v", err)
	}

	loaded, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Repo.ReposURL != "file:///tmp/repo" {
		t.Fatalf("ReposURL = %q, want file:///tmp/repo", loaded.Repo.ReposURL)
	}
	if loaded.Presentation.UIMode != UISerial || !loaded.Presentation.Quiet {
		t.Fatalf("Presentation = %+v, want {serial true}", loaded.Presentation)
	}
	if loaded.SourceFile == "" {
		t.Fatalf("SourceFile unset after round trip")
	}
}

func TestCheckFormatVersion(t *testing.T) {
	if err := CheckFormatVersion("v1.0.0"); err != nil {
		t.Fatalf("CheckFormatVersion(v1.0.0) = %v, want nil", err)
	}
	if err := CheckFormatVersion("not-a-version"); err == nil {
		t.Fatalf("CheckFormatVersion(not-a-version) = nil, want error")
	}
	if err := CheckFormatVersion("v2.0.0"); err == nil {
		t.Fatalf("CheckFormatVersion(v2.0.0) = nil, want error on major bump")
	}
}
