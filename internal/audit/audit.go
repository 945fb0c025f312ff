// Package audit is an append-only JSONL log of dispatched commands: one
// line per invocation, written under .emv/interactions.jsonl.
package audit

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"gopkg.in/natefinch/lumberjack.v2"
)

// FileName is the audit log file stored under the WC's .emv directory.
const FileName = "interactions.jsonl"

// Entry is one recorded command dispatch.
type Entry struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`

	Command  string `json:"command"`
	Args     []string `json:"args,omitempty"`
	Actor    string `json:"actor,omitempty"`
	Branch   string `json:"branch,omitempty"`
	Revision int64  `json:"revision,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Logger appends Entry values to a rotated JSONL file.
type Logger struct {
	out *lumberjack.Logger
}

// Open opens (creating parent directories as needed) the audit log under
// dir, rotating at 10MB and keeping 5 backups.
func Open(dir string) (*Logger, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("audit: create dir: %w", err)
	}
	return &Logger{out: &lumberjack.Logger{
		Filename:   filepath.Join(dir, FileName),
		MaxSize:    10,
		MaxBackups: 5,
		MaxAge:     0,
	}}, nil
}

// Close flushes and closes the underlying rotated file.
func (l *Logger) Close() error { return l.out.Close() }

// Append records e, assigning ID/CreatedAt if unset.
func (l *Logger) Append(e Entry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	} else {
		e.CreatedAt = e.CreatedAt.UTC()
	}

	bw := bufio.NewWriter(l.out)
	enc := json.NewEncoder(bw)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(e); err != nil {
		return fmt.Errorf("audit: encode entry: %w", err)
	}
	return bw.Flush()
}

// Command records a successful dispatch of name with args against branch
// at revision.
func (l *Logger) Command(name string, args []string, actor, branch string, revision int64) error {
	return l.Append(Entry{Command: name, Args: args, Actor: actor, Branch: branch, Revision: revision})
}

// CommandError records a failed dispatch, carrying err's message.
func (l *Logger) CommandError(name string, args []string, actor, branch string, err error) error {
	return l.Append(Entry{Command: name, Args: args, Actor: actor, Branch: branch, Error: err.Error()})
}
