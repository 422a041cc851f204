package learning

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"outreach-service/internal/logging"
	"outreach-service/internal/modal"
)

// FileJournal appends outcomes as JSON lines. Replay applies them in order, so
// a later line for the same (run, contact) supersedes an earlier one.
type FileJournal struct {
	mu     sync.Mutex
	path   string
	logger *logging.Logger
}

// NewFileJournal creates the journal directory. logger may be nil.
func NewFileJournal(path string, logger *logging.Logger) (*FileJournal, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("create journal dir: %w", err)
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &FileJournal{path: path, logger: logger}, nil
}

// Append writes one line. A file left without a trailing newline gets one
// first, so the new record never lands on the end of a partial line.
func (j *FileJournal) Append(_ context.Context, rec modal.OutcomeRecord) error {
	line, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal outcome: %w", err)
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	f, err := os.OpenFile(j.path, os.O_CREATE|os.O_APPEND|os.O_RDWR, 0600)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer f.Close()

	terminated, err := endsWithNewline(f)
	if err != nil {
		return fmt.Errorf("inspect journal: %w", err)
	}
	buf := make([]byte, 0, len(line)+2)
	if !terminated {
		buf = append(buf, '\n')
	}
	buf = append(append(buf, line...), '\n')

	if _, err := f.Write(buf); err != nil {
		return fmt.Errorf("write journal: %w", err)
	}
	return f.Sync()
}

// endsWithNewline reports whether f is empty or ends in '\n'.
func endsWithNewline(f *os.File) (bool, error) {
	info, err := f.Stat()
	if err != nil {
		return false, err
	}
	if info.Size() == 0 {
		return true, nil
	}
	last := make([]byte, 1)
	if _, err := f.ReadAt(last, info.Size()-1); err != nil {
		return false, err
	}
	return last[0] == '\n', nil
}

// Replay decodes every complete line; a bad one is an error. An unterminated
// last line that does not decode is a write cut short by a crash: it is
// logged and truncated away so later appends start on a clean line.
func (j *FileJournal) Replay(ctx context.Context) ([]modal.OutcomeRecord, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	data, err := os.ReadFile(j.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read journal: %w", err)
	}

	complete, tail := data, []byte(nil)
	if n := len(data); n > 0 && data[n-1] != '\n' {
		cut := bytes.LastIndexByte(data, '\n') + 1
		complete, tail = data[:cut], data[cut:]
	}

	var out []modal.OutcomeRecord
	lines := bytes.Split(complete, []byte{'\n'})
	for i, line := range lines {
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		var rec modal.OutcomeRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			return nil, fmt.Errorf("journal line %d: %w", i+1, err)
		}
		out = append(out, rec)
	}

	if len(tail) > 0 {
		var rec modal.OutcomeRecord
		if err := json.Unmarshal(tail, &rec); err == nil {
			out = append(out, rec)
			return out, nil
		}
		j.logger.Warn(ctx, "dropping torn journal tail",
			zap.String("path", j.path),
			zap.Int("line", len(lines)),
			zap.Int("bytes", len(tail)))
		if err := os.Truncate(j.path, int64(len(complete))); err != nil {
			return nil, fmt.Errorf("truncate torn journal tail: %w", err)
		}
	}
	return out, nil
}
