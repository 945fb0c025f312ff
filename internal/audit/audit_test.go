package audit

import (
	"bufio"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestAppendWritesOneJSONLineWithDefaults(t *testing.T) {
	dir := t.TempDir()
	logger, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer logger.Close()

	if err := logger.Command("commit", []string{"-m", "hi"}, "alice", "B0", 3); err != nil {
		t.Fatalf("Command: %v", err)
	}
	if err := logger.CommandError("mv", []string{"a", "b"}, "alice", "B0", errors.New("boom")); err != nil {
		t.Fatalf("CommandError: %v", err)
	}

	f, err := os.Open(filepath.Join(dir, FileName))
	if err != nil {
		t.Fatalf("open log file: %v", err)
	}
	defer f.Close()

	var entries []Entry
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var e Entry
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			t.Fatalf("unmarshal entry: %v", err)
		}
		entries = append(entries, e)
	}
	if err := scanner.Err(); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}

	first := entries[0]
	if first.ID == "" {
		t.Errorf("Append must assign an ID when unset")
	}
	if first.CreatedAt.IsZero() {
		t.Errorf("Append must assign CreatedAt when unset")
	}
	if first.Command != "commit" || first.Branch != "B0" || first.Revision != 3 {
		t.Errorf("first entry = %+v, want Command=commit Branch=B0 Revision=3", first)
	}
	if first.Error != "" {
		t.Errorf("successful Command entry must have no Error, got %q", first.Error)
	}

	second := entries[1]
	if second.Error != "boom" {
		t.Errorf("CommandError entry Error = %q, want boom", second.Error)
	}
	if second.Revision != 0 {
		t.Errorf("CommandError entry must not set Revision, got %d", second.Revision)
	}
}
