package reposqlite

import (
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/untoldecay/elembranch/internal/branch"
	"github.com/untoldecay/elembranch/internal/emverrors"
)

// infoDirDocument is the on-disk sibling format for one branch's metadata
// when a revision is committed with info_dir: YAML rather than the
// database, parallel to the TOML-based config format.
type infoDirDocument struct {
	BID  string `yaml:"bid"`
	Body string `yaml:"body"`
}

func infoDirFileName(id branch.ID) string {
	return strings.ReplaceAll(string(id), "/", "_") + ".yaml"
}

func loadInfoDirBranches(dir string) (map[branch.ID]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, emverrors.Wrap(emverrors.KindIO, "load_info_dir", dir, err)
	}
	out := make(map[branch.ID]string)
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yaml") {
			continue
		}
		raw, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, emverrors.Wrap(emverrors.KindIO, "load_info_dir", e.Name(), err)
		}
		var doc infoDirDocument
		if err := yaml.Unmarshal(raw, &doc); err != nil {
			return nil, emverrors.Wrap(emverrors.KindBadFormat, "load_info_dir", e.Name(), err)
		}
		out[branch.ID(doc.BID)] = doc.Body
	}
	return out, nil
}

func writeInfoDirBranches(dir string, texts map[branch.ID]string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return emverrors.Wrap(emverrors.KindIO, "write_info_dir", dir, err)
	}
	for id, body := range texts {
		doc := infoDirDocument{BID: string(id), Body: body}
		raw, err := yaml.Marshal(doc)
		if err != nil {
			return emverrors.Wrap(emverrors.KindIO, "write_info_dir", string(id), err)
		}
		path := filepath.Join(dir, infoDirFileName(id))
		if err := os.WriteFile(path, raw, 0o644); err != nil {
			return emverrors.Wrap(emverrors.KindIO, "write_info_dir", path, err)
		}
	}
	return nil
}
