// Package upload validates incoming file bundles, expands zip archives,
// and persists the surviving files as project assets on disk.
package upload

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/devMohamedYusri/Recruit-Rag/parser"
)

var (
	// ErrTooManyFiles is returned when the bundle exceeds the file count
	// limit, before or after archive expansion.
	ErrTooManyFiles = errors.New("upload: too many files")

	// ErrTooLarge is returned when the bundle exceeds the total byte limit.
	ErrTooLarge = errors.New("upload: total size exceeds limit")

	// ErrBadArchive is returned when an uploaded archive cannot be read.
	ErrBadArchive = errors.New("upload: malformed archive")

	// ErrUnsupportedFile is returned for direct files outside the allowed
	// extension set. Archive entries with bad extensions are silently
	// skipped instead.
	ErrUnsupportedFile = errors.New("upload: unsupported file type")

	// ErrStorageFailed is returned when persisting bytes to disk fails.
	// The whole bundle is rolled back.
	ErrStorageFailed = errors.New("upload: storing file failed")
)

// AllowedExtensions is the resume format allow-list, applied to archive
// entries and direct files alike.
var AllowedExtensions = map[string]bool{
	"pdf":  true,
	"docx": true,
	"txt":  true,
	"epub": true,
	"mobi": true,
}

var archiveMIMETypes = map[string]bool{
	"application/zip":              true,
	"application/x-zip":            true,
	"application/x-zip-compressed": true,
}

// File is one incoming upload. Reader must support seeking; sizes are
// measured by seeking to the end and restoring position.
type File struct {
	Name        string
	ContentType string
	Reader      io.ReadSeeker
}

// Stored describes one persisted asset file.
type Stored struct {
	Name         string // storage name {project_id}_{uuid}.{ext}
	OriginalName string
	ContentType  string
	SizeBytes    int64
	Path         string // absolute or rootDir-relative path on disk
}

// Limits are the bundle-level constraints, enforced pre and post expansion.
type Limits struct {
	MaxFiles      int
	MaxTotalBytes int64
	CopyChunkSize int
}

// Expander expands and persists upload bundles.
type Expander struct {
	limits  Limits
	rootDir string
}

// New creates an Expander writing under rootDir/{project_id}/.
func New(rootDir string, limits Limits) *Expander {
	if limits.CopyChunkSize <= 0 {
		limits.CopyChunkSize = 1 << 20
	}
	return &Expander{limits: limits, rootDir: rootDir}
}

// item is one candidate document after expansion, not yet persisted.
type item struct {
	originalName string
	ext          string
	size         int64
	open         func() (io.ReadCloser, error)
}

// Expand validates the bundle, expands archives, and persists every
// surviving file. Persistence is all-or-nothing: on any failure the files
// already written are removed and the error is returned.
func (e *Expander) Expand(projectID string, files []File) ([]Stored, error) {
	if len(files) > e.limits.MaxFiles {
		return nil, fmt.Errorf("%w: %d files, limit %d", ErrTooManyFiles, len(files), e.limits.MaxFiles)
	}

	var total int64
	for i := range files {
		size, err := measure(files[i].Reader)
		if err != nil {
			return nil, fmt.Errorf("%w: sizing %s: %v", ErrStorageFailed, files[i].Name, err)
		}
		total += size
	}
	if total > e.limits.MaxTotalBytes {
		return nil, fmt.Errorf("%w: %d bytes, limit %d", ErrTooLarge, total, e.limits.MaxTotalBytes)
	}

	var items []item
	var expandedTotal int64
	for i := range files {
		f := &files[i]
		if isArchive(f.Name, f.ContentType) {
			entries, err := e.expandArchive(f)
			if err != nil {
				return nil, err
			}
			items = append(items, entries...)
		} else {
			ext := extOf(f.Name)
			if !AllowedExtensions[ext] {
				return nil, fmt.Errorf("%w: %s", ErrUnsupportedFile, f.Name)
			}
			reader := f.Reader
			items = append(items, item{
				originalName: flatten(f.Name),
				ext:          ext,
				size:         sizeOf(reader),
				open: func() (io.ReadCloser, error) {
					if _, err := reader.Seek(0, io.SeekStart); err != nil {
						return nil, err
					}
					return io.NopCloser(reader), nil
				},
			})
		}
	}

	// Both limits apply again after expansion.
	if len(items) > e.limits.MaxFiles {
		return nil, fmt.Errorf("%w: %d files after expansion, limit %d", ErrTooManyFiles, len(items), e.limits.MaxFiles)
	}
	for _, it := range items {
		expandedTotal += it.size
	}
	if expandedTotal > e.limits.MaxTotalBytes {
		return nil, fmt.Errorf("%w: %d bytes after expansion, limit %d", ErrTooLarge, expandedTotal, e.limits.MaxTotalBytes)
	}

	return e.persist(projectID, items)
}

// expandArchive reads a zip bundle into memory and filters its entries.
func (e *Expander) expandArchive(f *File) ([]item, error) {
	if _, err := f.Reader.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrBadArchive, f.Name, err)
	}
	data, err := io.ReadAll(f.Reader)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrBadArchive, f.Name, err)
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrBadArchive, f.Name, err)
	}

	// Zip-bomb guard: the raw entry count is bounded before any filtering.
	if len(zr.File) > e.limits.MaxFiles {
		return nil, fmt.Errorf("%w: archive %s has %d entries, limit %d",
			ErrTooManyFiles, f.Name, len(zr.File), e.limits.MaxFiles)
	}

	var items []item
	for _, entry := range zr.File {
		if entry.FileInfo().IsDir() {
			continue
		}
		name := flatten(entry.Name)
		if strings.HasPrefix(entry.Name, "__MACOSX") || strings.HasPrefix(name, ".") {
			continue
		}
		ext := extOf(name)
		if !AllowedExtensions[ext] {
			continue
		}
		entry := entry
		items = append(items, item{
			originalName: name,
			ext:          ext,
			size:         int64(entry.UncompressedSize64),
			open:         func() (io.ReadCloser, error) { return entry.Open() },
		})
	}
	return items, nil
}

// persist writes every item to the project's asset directory. On any
// failure all files written so far are removed.
func (e *Expander) persist(projectID string, items []item) ([]Stored, error) {
	dir := filepath.Join(e.rootDir, projectID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageFailed, err)
	}

	var written []string
	rollback := func() {
		for _, p := range written {
			if err := os.Remove(p); err != nil {
				slog.Warn("upload: rollback failed", "path", p, "error", err)
			}
		}
	}

	stored := make([]Stored, 0, len(items))
	for _, it := range items {
		name := fmt.Sprintf("%s_%s.%s", projectID, uuid.NewString(), it.ext)
		dst := filepath.Join(dir, name)

		size, err := e.copyFile(dst, it)
		if err != nil {
			rollback()
			return nil, fmt.Errorf("%w: %s: %v", ErrStorageFailed, it.originalName, err)
		}
		written = append(written, dst)
		stored = append(stored, Stored{
			Name:         name,
			OriginalName: it.originalName,
			ContentType:  parser.MIMEType(it.ext),
			SizeBytes:    size,
			Path:         dst,
		})
	}
	return stored, nil
}

func (e *Expander) copyFile(dst string, it item) (int64, error) {
	src, err := it.open()
	if err != nil {
		return 0, err
	}
	defer src.Close()

	out, err := os.Create(dst)
	if err != nil {
		return 0, err
	}

	buf := make([]byte, e.limits.CopyChunkSize)
	size, err := io.CopyBuffer(out, src, buf)
	if err != nil {
		out.Close()
		return 0, err
	}
	return size, out.Close()
}

// --- helpers ---

// measure returns the stream length, restoring the current position.
func measure(r io.ReadSeeker) (int64, error) {
	cur, err := r.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, err
	}
	end, err := r.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, err
	}
	if _, err := r.Seek(cur, io.SeekStart); err != nil {
		return 0, err
	}
	return end, nil
}

func sizeOf(r io.ReadSeeker) int64 {
	size, err := measure(r)
	if err != nil {
		return 0
	}
	return size
}

// flatten collapses any path structure to the basename, handling both
// separators.
func flatten(name string) string {
	name = strings.ReplaceAll(name, `\`, "/")
	return path.Base(name)
}

func extOf(name string) string {
	return strings.ToLower(strings.TrimPrefix(path.Ext(name), "."))
}

func isArchive(name, contentType string) bool {
	if archiveMIMETypes[strings.ToLower(contentType)] {
		return true
	}
	return strings.HasSuffix(strings.ToLower(name), ".zip")
}
