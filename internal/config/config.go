// Package config resolves the engine's configuration from, in ascending
// precedence, defaults, .emv/config.toml, environment variables, and
// finally CLI flags (applied by the caller after Load returns).
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/spf13/viper"
)

// UIMode selects how diff/list/status commands render their output.
type UIMode string

const (
	UIEids   UIMode = "eids"
	UIPaths  UIMode = "paths"
	UISerial UIMode = "serial"
)

// RepoConfig is the resolved, core-visible repository configuration:
// the `-U` target URL, the optional info_dir for on-disk branch metadata,
// and the WC lock timeout.
type RepoConfig struct {
	ReposURL    string `toml:"repos_url"`
	InfoDir     string `toml:"info_dir"`
	LockTimeout string `toml:"lock_timeout"`
}

// PresentationConfig is the resolved, core-invisible presentational
// configuration: passed explicitly into cmd/emv, never read by any
// internal/* core package.
type PresentationConfig struct {
	UIMode UIMode `toml:"ui_mode"`
	Quiet  bool   `toml:"quiet"`
}

// fileDocument is the on-disk shape of .emv/config.toml.
type fileDocument struct {
	Repo         RepoConfig          `toml:"repo"`
	Presentation PresentationConfig  `toml:"presentation"`
	FormatVersion string             `toml:"format_version"`
}

// Loaded bundles the resolved configuration plus which file (if any) it
// was read from.
type Loaded struct {
	Repo         RepoConfig
	Presentation PresentationConfig
	FormatVersion string
	SourceFile   string
}

// Load resolves configuration starting from cwd, walking up parent
// directories looking for .emv/config.toml (mirroring the precedence the
// teacher's own config search documents: project-local file first),
// applying environment variable overrides via viper, and filling in
// defaults for anything left unset.
func Load(cwd string) (*Loaded, error) {
	v := viper.New()
	v.SetDefault("repo.repos_url", "")
	v.SetDefault("repo.info_dir", "")
	v.SetDefault("repo.lock_timeout", "30s")
	v.SetDefault("presentation.ui_mode", string(UIPaths))
	v.SetDefault("presentation.quiet", false)
	v.SetDefault("format_version", "v1.0.0")

	v.SetEnvPrefix("EMV")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	sourceFile := ""
	if path := findConfigFile(cwd); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		var doc fileDocument
		if _, err := toml.Decode(string(raw), &doc); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
		sourceFile = path
		if doc.Repo.ReposURL != "" {
			v.SetDefault("repo.repos_url", doc.Repo.ReposURL)
		}
		if doc.Repo.InfoDir != "" {
			v.SetDefault("repo.info_dir", doc.Repo.InfoDir)
		}
		if doc.Repo.LockTimeout != "" {
			v.SetDefault("repo.lock_timeout", doc.Repo.LockTimeout)
		}
		if doc.Presentation.UIMode != "" {
			v.SetDefault("presentation.ui_mode", string(doc.Presentation.UIMode))
		}
		v.SetDefault("presentation.quiet", doc.Presentation.Quiet)
		if doc.FormatVersion != "" {
			v.SetDefault("format_version", doc.FormatVersion)
		}
	}

	return &Loaded{
		Repo: RepoConfig{
			ReposURL:    v.GetString("repo.repos_url"),
			InfoDir:     v.GetString("repo.info_dir"),
			LockTimeout: v.GetString("repo.lock_timeout"),
		},
		Presentation: PresentationConfig{
			UIMode: UIMode(v.GetString("presentation.ui_mode")),
			Quiet:  v.GetBool("presentation.quiet"),
		},
		FormatVersion: v.GetString("format_version"),
		SourceFile:    sourceFile,
	}, nil
}

// findConfigFile walks up from dir looking for .emv/config.toml.
func findConfigFile(dir string) string {
	for d := dir; ; {
		candidate := filepath.Join(d, ".emv", "config.toml")
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
		parent := filepath.Dir(d)
		if parent == d {
			return ""
		}
		d = parent
	}
}

// Write persists cfg to .emv/config.toml under dir, creating the
// directory if needed.
func Write(dir string, l *Loaded) error {
	emvDir := filepath.Join(dir, ".emv")
	if err := os.MkdirAll(emvDir, 0o755); err != nil {
		return fmt.Errorf("config: create %s: %w", emvDir, err)
	}
	doc := fileDocument{
		Repo:          l.Repo,
		Presentation:  l.Presentation,
		FormatVersion: l.FormatVersion,
	}
	f, err := os.Create(filepath.Join(emvDir, "config.toml"))
	if err != nil {
		return fmt.Errorf("config: create config.toml: %w", err)
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(doc)
}
