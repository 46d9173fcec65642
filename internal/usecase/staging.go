package usecase

import (
	"encoding/base64"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/gabriel-vasile/mimetype"
)

// StagedFile is an image selected for upload but not uploaded yet.
type StagedFile struct {
	Name        string
	ContentType string
	Data        []byte
}

// Ext returns the extension of the original filename without the dot.
func (f StagedFile) Ext() string {
	if ext := strings.TrimPrefix(filepath.Ext(f.Name), "."); ext != "" {
		return strings.ToLower(ext)
	}
	if len(f.Data) > 0 {
		if ext := strings.TrimPrefix(mimetype.Detect(f.Data).Extension(), "."); ext != "" {
			return ext
		}
	}
	return "bin"
}

// MIME prefers the declared content type unless it is the generic
// octet-stream most clients send for file inputs.
func (f StagedFile) MIME() string {
	if f.ContentType != "" && f.ContentType != "application/octet-stream" {
		return f.ContentType
	}
	return mimetype.Detect(f.Data).String()
}

// PreviewFunc renders the preview shown next to a staged file.
type PreviewFunc func(StagedFile) (string, error)

// DataURLPreview renders an image as a base64 data URL.
func DataURLPreview(f StagedFile) (string, error) {
	if len(f.Data) == 0 {
		return "", errors.New("empty file")
	}
	mt := mimetype.Detect(f.Data)
	if !strings.HasPrefix(mt.String(), "image/") {
		return "", fmt.Errorf("%s is not an image (%s)", f.Name, mt.String())
	}
	return "data:" + mt.String() + ";base64," + base64.StdEncoding.EncodeToString(f.Data), nil
}

// StagingBuffer holds the images of one form session. Previews are derived
// concurrently, one goroutine per file, and may finish in any order; each
// preview is written to the entry it was derived from, so file order is
// never affected by it. A buffer is safe for concurrent use.
type StagingBuffer struct {
	mu      sync.Mutex
	idle    *sync.Cond
	pending int
	entries []*stagingEntry
	preview PreviewFunc
}

type stagingEntry struct {
	file    StagedFile
	preview string
}

func NewStagingBuffer(preview PreviewFunc) *StagingBuffer {
	if preview == nil {
		preview = DataURLPreview
	}
	b := &StagingBuffer{preview: preview}
	b.idle = sync.NewCond(&b.mu)
	return b
}

// Add appends files in the given order. The returned func blocks until
// the previews of this batch are derived.
func (b *StagingBuffer) Add(files ...StagedFile) (wait func()) {
	wait, _ = b.AddWithin(0, files...)
	return wait
}

// AddWithin is Add with a cap on the total number of staged files. The
// check and the append happen atomically; when the cap would be exceeded
// nothing is added and a *ValidationError is returned. A limit <= 0 means
// no cap.
func (b *StagingBuffer) AddWithin(limit int, files ...StagedFile) (wait func(), err error) {
	batch := new(sync.WaitGroup)
	added := make([]*stagingEntry, 0, len(files))

	b.mu.Lock()
	if limit > 0 && len(b.entries)+len(files) > limit {
		b.mu.Unlock()
		return func() {}, &ValidationError{
			Field:  "images",
			Reason: fmt.Sprintf("at most %d images per listing", limit),
		}
	}
	for _, f := range files {
		e := &stagingEntry{file: f}
		b.entries = append(b.entries, e)
		added = append(added, e)
	}
	// counted before any goroutine starts so Wait never sees a gap
	b.pending += len(added)
	batch.Add(len(added))
	b.mu.Unlock()

	for _, e := range added {
		go func() {
			defer batch.Done()
			p, err := b.preview(e.file)

			b.mu.Lock()
			defer b.mu.Unlock()
			if err == nil {
				e.preview = p
			}
			b.pending--
			if b.pending == 0 {
				b.idle.Broadcast()
			}
		}()
	}
	return batch.Wait, nil
}

// Remove drops the file and preview at i. Out of range is a no-op.
func (b *StagingBuffer) Remove(i int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if i < 0 || i >= len(b.entries) {
		return
	}
	b.entries = slices.Delete(b.entries, i, i+1)
}

// Files returns a copy of the staged files in selection order.
func (b *StagingBuffer) Files() []StagedFile {
	b.mu.Lock()
	defer b.mu.Unlock()

	files := make([]StagedFile, 0, len(b.entries))
	for _, e := range b.entries {
		files = append(files, e.file)
	}
	return files
}

// Previews is index-aligned with Files. A preview that is not ready, or
// failed, is an empty string.
func (b *StagingBuffer) Previews() []string {
	b.mu.Lock()
	defer b.mu.Unlock()

	previews := make([]string, 0, len(b.entries))
	for _, e := range b.entries {
		previews = append(previews, e.preview)
	}
	return previews
}

func (b *StagingBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.entries)
}

// Wait blocks until every pending preview, from any batch, has been
// derived.
func (b *StagingBuffer) Wait() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for b.pending > 0 {
		b.idle.Wait()
	}
}

// Clear empties the buffer, typically after a successful submission.
func (b *StagingBuffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries = nil
}
