// Package jitlist persists candidate sets in the jit-list file format the
// external command consumes: UTF-8 plain text, one item identifier per line,
// no quoting or escaping. The file is the sole channel by which the command
// learns which items are enabled, so the format is an external byte
// contract and must stay stable.
package jitlist

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"jitbisect/internal/bisect"
)

// Write overwrites the file at path with the given set, one item per line.
// The write is atomic (temp file + rename): the external command never
// observes a partially written list.
func Write(path string, set bisect.CandidateSet) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("jit-list path is empty")
	}

	var buf bytes.Buffer
	for _, item := range set {
		buf.WriteString(string(item))
		buf.WriteByte('\n')
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp.*")
	if err != nil {
		return fmt.Errorf("create temp jit-list: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("write jit-list: %w", err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		return err
	}
	_ = tmp.Sync() // best-effort durability
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// Read returns the items currently persisted at path, in file order. Blank
// lines are skipped. Read exists for inspection and tests; the reduction
// itself never reads the file back.
func Read(path string) (bisect.CandidateSet, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var set bisect.CandidateSet
	for _, line := range strings.Split(string(b), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		set = append(set, bisect.Item(line))
	}
	return set, nil
}
