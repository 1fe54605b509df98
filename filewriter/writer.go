// Package filewriter maps piece-index offsets onto one or more backing
// files and writes verified piece bytes to disk.
package filewriter

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/Shreyas-Kamath/torrent-go/metainfo"
	"github.com/Shreyas-Kamath/torrent-go/piece"
)

// ErrWriteFailed wraps any disk I/O failure while writing a piece. It is
// logged and the piece's data is dropped; the piece is not re-queued.
type ErrWriteFailed struct {
	Index int
	Err   error
}

func (e *ErrWriteFailed) Error() string {
	return fmt.Sprintf("write piece %d: %s", e.Index, e.Err)
}

func (e *ErrWriteFailed) Unwrap() error { return e.Err }

// entry is one backing file and its placement within the logical content
// stream.
type entry struct {
	path         string
	length       int64
	globalOffset int64
}

// Writer maps logical piece offsets to backing files and writes piece
// bytes to them. A Writer is safe for concurrent WritePiece calls across
// distinct piece indices.
type Writer struct {
	mu          sync.Mutex // serializes writes to the same backing file.
	entries     []entry
	pieceLength int64
	logger      *zap.SugaredLogger
}

// New pre-creates every backing file under
// config.Dir and returns a Writer ready to receive WritePiece calls.
func New(config Config, info *metainfo.MetaInfo, logger *zap.SugaredLogger) (*Writer, error) {
	config = config.applyDefaults()

	entries, err := buildEntries(config.Dir, info)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		if err := precreate(e.path); err != nil {
			return nil, fmt.Errorf("precreate %s: %s", e.path, err)
		}
	}

	return &Writer{
		entries:     entries,
		pieceLength: info.ConfiguredPieceLength(),
		logger:      logger,
	}, nil
}

func buildEntries(dir string, info *metainfo.MetaInfo) ([]entry, error) {
	if info.Info.SingleFile() {
		return []entry{{
			path:         filepath.Join(dir, info.Info.Name()),
			length:       info.TotalLength(),
			globalOffset: 0,
		}}, nil
	}

	var entries []entry
	var offset int64
	for _, f := range info.Info.Files() {
		parts := append([]string{dir, info.Info.Name()}, f.Path...)
		entries = append(entries, entry{
			path:         filepath.Join(parts...),
			length:       f.Length,
			globalOffset: offset,
		})
		offset += f.Length
	}
	return entries, nil
}

func precreate(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	return f.Close()
}

// WritePiece writes data, the verified bytes of piece index, to every
// backing file it overlaps. Safe to call concurrently for distinct piece
// indices; concurrent calls for overlapping files serialize through
// w.mu.
func (w *Writer) WritePiece(index int, data []byte) error {
	start := int64(index) * w.pieceLength
	end := start + int64(len(data))

	w.mu.Lock()
	defer w.mu.Unlock()

	for _, e := range w.entries {
		fileEnd := e.globalOffset + e.length
		if fileEnd <= start {
			// Entirely to the left of the piece: skip.
			continue
		}
		if e.globalOffset >= end {
			// Entirely to the right: nothing more overlaps.
			break
		}

		overlapStart := max64(start, e.globalOffset)
		overlapEnd := min64(end, fileEnd)
		localOffset := overlapStart - e.globalOffset
		chunk := data[overlapStart-start : overlapEnd-start]

		if err := writeAt(e.path, localOffset, chunk); err != nil {
			return &ErrWriteFailed{Index: index, Err: err}
		}
	}
	return nil
}

func writeAt(path string, offset int64, data []byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		return err
	}
	return nil
}

func max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}

// Run consumes verified pieces off mgr's write channel and persists them
// to disk. Runs as a dedicated goroutine, decoupling hash verification
// from disk I/O. Exits when jobs closes.
func Run(w *Writer, jobs <-chan piece.WriteJob, logger *zap.SugaredLogger) {
	for job := range jobs {
		if err := w.WritePiece(job.Index, job.Data); err != nil {
			logger.With("piece", job.Index).Errorf("Error writing piece to disk: %s", err)
		}
	}
}
