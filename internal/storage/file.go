package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	logx "minirtos/pkg/logx"
)

// fileStore is a dependency-free persistence backend.
//
// Runs are appended as JSON Lines to a single file. An in-memory tail of
// the most recent entries serves RecentRuns without re-reading the file;
// PruneBefore rewrites the file atomically (tmp + rename).
type fileStore struct {
	log logx.Logger

	mu   sync.Mutex
	path string
	file *os.File

	recent []RunEntry // newest last, bounded to recentCap
}

const recentCap = 256

func openFile(cfg Config, log logx.Logger) (Store, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("storage.path is required for file driver")
	}
	if log.IsZero() {
		log = logx.Nop()
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	// Warm the recent tail from whatever already exists.
	recent, _ := replayRuns(path, recentCap)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, err
	}

	return &fileStore{
		log:    log,
		path:   path,
		file:   f,
		recent: recent,
	}, nil
}

func (s *fileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}

func (s *fileStore) AppendRun(ctx context.Context, e RunEntry) error {
	_ = ctx
	if e.At.IsZero() {
		e.At = time.Now()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return errors.New("run file closed")
	}
	if err := json.NewEncoder(s.file).Encode(e); err != nil {
		return err
	}
	s.recent = append(s.recent, e)
	if len(s.recent) > recentCap {
		s.recent = append(s.recent[:0], s.recent[len(s.recent)-recentCap:]...)
	}
	return nil
}

func (s *fileStore) RecentRuns(ctx context.Context, limit int) ([]RunEntry, error) {
	_ = ctx
	if limit <= 0 {
		limit = 50
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.recent)
	if limit > n {
		limit = n
	}
	// Newest first, to match the sqlite backend.
	out := make([]RunEntry, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, s.recent[i])
	}
	return out, nil
}

func (s *fileStore) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return 0, errors.New("run file closed")
	}

	in, err := os.Open(s.path)
	if err != nil {
		return 0, err
	}

	tmp := s.path + ".tmp"
	out, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		_ = in.Close()
		return 0, err
	}

	var removed int64
	enc := json.NewEncoder(out)
	sc := bufio.NewScanner(in)
	for sc.Scan() {
		var e RunEntry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			removed++
			continue
		}
		if e.At.Before(cutoff) {
			removed++
			continue
		}
		if err := enc.Encode(e); err != nil {
			_ = in.Close()
			_ = out.Close()
			return 0, err
		}
	}
	scanErr := sc.Err()
	_ = in.Close()
	if err := out.Close(); err != nil {
		return 0, err
	}
	if scanErr != nil {
		return 0, scanErr
	}

	if err := os.Rename(tmp, s.path); err != nil {
		return 0, err
	}

	// Reopen the append handle on the rewritten file.
	_ = s.file.Close()
	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		s.file = nil
		return removed, err
	}
	s.file = f

	// Drop pruned entries from the tail too.
	kept := s.recent[:0]
	for _, e := range s.recent {
		if !e.At.Before(cutoff) {
			kept = append(kept, e)
		}
	}
	s.recent = kept
	return removed, nil
}

func replayRuns(path string, max int) ([]RunEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var out []RunEntry
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var e RunEntry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			continue
		}
		out = append(out, e)
		if len(out) > max {
			out = append(out[:0], out[len(out)-max:]...)
		}
	}
	return out, sc.Err()
}
