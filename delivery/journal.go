// Copyright 2026 The gen192 Authors
// SPDX-License-Identifier: Apache-2.0

package delivery

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/gen192-dev/gen192/lib/codec"
)

// RunRecord is one journal entry: the full story of a single run,
// from trigger to outcome. Records are encoded with deterministic
// CBOR and appended to the journal file; the journal is the daemon's
// only durable state and is never read back by the daemon itself.
type RunRecord struct {
	// Commit is the SHA the run built.
	Commit string `cbor:"commit"`

	// Branch is the watched branch the push landed on.
	Branch string `cbor:"branch"`

	// Sender is the GitHub login that pushed.
	Sender string `cbor:"sender"`

	// StartedAt and FinishedAt bound the run in wall-clock time.
	StartedAt  time.Time `cbor:"started_at"`
	FinishedAt time.Time `cbor:"finished_at"`

	// StageDurations holds per-stage wall-clock durations in
	// nanoseconds, keyed by stage name (provision, build, publish).
	StageDurations map[string]int64 `cbor:"stage_durations"`

	// Outcome is "success" or "failure".
	Outcome string `cbor:"outcome"`

	// Error is the run's failure chain, empty on success.
	Error string `cbor:"error,omitempty"`

	// Assets are the published artifacts, in upload order.
	Assets []AssetRecord `cbor:"assets,omitempty"`
}

// AssetRecord is one published artifact in a RunRecord.
type AssetRecord struct {
	Name   string `cbor:"name"`
	Size   int64  `cbor:"size"`
	Digest string `cbor:"digest"`
}

// Journal appends RunRecords to a file. Safe for concurrent use; the
// runner serializes runs anyway, but the journal does not rely on it.
type Journal struct {
	mu      sync.Mutex
	file    *os.File
	encoder *cbor.Encoder
}

// OpenJournal opens (creating if needed) the journal file for
// appending.
func OpenJournal(path string) (*Journal, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening journal: %w", err)
	}
	return &Journal{file: file, encoder: codec.NewEncoder(file)}, nil
}

// newJournalWriter wraps an arbitrary writer. Used by tests to
// journal into a buffer.
func newJournalWriter(w io.Writer) *Journal {
	return &Journal{encoder: codec.NewEncoder(w)}
}

// Append writes one record and flushes it to the file.
func (j *Journal) Append(record RunRecord) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if err := j.encoder.Encode(record); err != nil {
		return fmt.Errorf("encoding journal record: %w", err)
	}
	if j.file != nil {
		if err := j.file.Sync(); err != nil {
			return fmt.Errorf("syncing journal: %w", err)
		}
	}
	return nil
}

// Close closes the underlying file.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.file == nil {
		return nil
	}
	err := j.file.Close()
	j.file = nil
	return err
}
