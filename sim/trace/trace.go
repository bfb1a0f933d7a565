package trace

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/sirupsen/logrus"
)

// JSONLZstdWriter keeps one trajectory file per seed under baseDir. Every
// Append adds a self-contained zstd frame, so a crash can only lose the frame
// being written.
type JSONLZstdWriter struct {
	baseDir string
	prefix  string
	level   zstd.EncoderLevel

	mu sync.Mutex
}

// NewJSONLZstdWriter creates a writer; files are named
// <prefix>-<seed>.jsonl.zst.
func NewJSONLZstdWriter(baseDir, prefix string) *JSONLZstdWriter {
	return &JSONLZstdWriter{
		baseDir: baseDir,
		prefix:  prefix,
		level:   zstd.SpeedDefault,
	}
}

// Path returns the trajectory file of seed.
func (w *JSONLZstdWriter) Path(seed int64) string {
	return filepath.Join(w.baseDir, fmt.Sprintf("%s-%d.jsonl.zst", w.prefix, seed))
}

// Append writes records of one seed as one frame.
func (w *JSONLZstdWriter) Append(seed int64, records []Record) error {
	if len(records) == 0 {
		return nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.writeLocked(seed, records, os.O_CREATE|os.O_WRONLY|os.O_APPEND)
}

func (w *JSONLZstdWriter) writeLocked(seed int64, records []Record, flag int) error {
	if err := os.MkdirAll(w.baseDir, 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(w.Path(seed), flag, 0o644)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(w.level))
	if err != nil {
		_ = f.Close()
		return err
	}
	bw := bufio.NewWriterSize(enc, 128*1024)
	jw := json.NewEncoder(bw)
	for _, r := range records {
		if err := jw.Encode(r); err != nil {
			_ = enc.Close()
			_ = f.Close()
			return err
		}
	}
	if err := bw.Flush(); err != nil {
		_ = enc.Close()
		_ = f.Close()
		return err
	}
	if err := enc.Close(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// Read returns every intact record of seed in file order. A missing file
// yields no records; a corrupt tail is dropped with a warning.
func (w *JSONLZstdWriter) Read(seed int64) ([]Record, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.readLocked(seed)
}

func (w *JSONLZstdWriter) readLocked(seed int64) ([]Record, error) {
	f, err := os.Open(w.Path(seed))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	var out []Record
	jd := json.NewDecoder(dec)
	for {
		var r Record
		if err := jd.Decode(&r); err != nil {
			if !errors.Is(err, io.EOF) {
				logrus.Warnf("trajectory %s: dropping corrupt tail after %d records: %v", w.Path(seed), len(out), err)
			}
			return out, nil
		}
		out = append(out, r)
	}
}

// Truncate rewrites the file of seed keeping only records up to and
// including step.
func (w *JSONLZstdWriter) Truncate(seed int64, step int) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	records, err := w.readLocked(seed)
	if err != nil {
		return err
	}
	kept := records[:0]
	for _, r := range records {
		if r.Step <= step {
			kept = append(kept, r)
		}
	}
	if len(kept) == 0 {
		if err := os.Remove(w.Path(seed)); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
		return nil
	}
	return w.writeLocked(seed, kept, os.O_CREATE|os.O_WRONLY|os.O_TRUNC)
}
