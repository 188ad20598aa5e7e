package upload

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testExpander(t *testing.T, limits Limits) *Expander {
	t.Helper()
	if limits.MaxFiles == 0 {
		limits.MaxFiles = 200
	}
	if limits.MaxTotalBytes == 0 {
		limits.MaxTotalBytes = 50 << 20
	}
	return New(t.TempDir(), limits)
}

func memFile(name, contentType, body string) File {
	return File{Name: name, ContentType: contentType, Reader: bytes.NewReader([]byte(body))}
}

func zipFile(t *testing.T, name string, entries map[string]string) File {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for entry, body := range entries {
		w, err := zw.Create(entry)
		require.NoError(t, err)
		_, err = w.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return File{Name: name, ContentType: "application/zip", Reader: bytes.NewReader(buf.Bytes())}
}

func TestExpandPlainFiles(t *testing.T) {
	e := testExpander(t, Limits{})

	stored, err := e.Expand("p1", []File{
		memFile("cv_a.pdf", "application/pdf", "pdf bytes"),
		memFile("cv_b.docx", "", "docx bytes"),
	})
	require.NoError(t, err)
	require.Len(t, stored, 2)

	for _, s := range stored {
		assert.True(t, strings.HasPrefix(s.Name, "p1_"), "storage name %q", s.Name)
		data, err := os.ReadFile(s.Path)
		require.NoError(t, err)
		assert.Equal(t, s.SizeBytes, int64(len(data)))
	}
	assert.True(t, strings.HasSuffix(stored[0].Name, ".pdf"))
	assert.Equal(t, "cv_a.pdf", stored[0].OriginalName)
	assert.Equal(t, "application/pdf", stored[0].ContentType)
}

func TestExpandArchiveFiltering(t *testing.T) {
	e := testExpander(t, Limits{})

	bundle := zipFile(t, "archive.zip", map[string]string{
		"cv_c.pdf":          "pdf bytes",
		"nested/cv_e.docx":  "docx bytes",
		"__MACOSX/x":        "junk",
		".DS_Store":         "junk",
		"cv_d.exe":          "binary",
		"docs/.hidden.pdf":  "junk",
		"folder/":           "",
	})

	stored, err := e.Expand("p1", []File{
		memFile("cv_a.pdf", "application/pdf", "pdf bytes"),
		bundle,
	})
	require.NoError(t, err)
	require.Len(t, stored, 3)

	names := make(map[string]bool)
	for _, s := range stored {
		names[s.OriginalName] = true
	}
	assert.True(t, names["cv_a.pdf"])
	assert.True(t, names["cv_c.pdf"])
	assert.True(t, names["cv_e.docx"], "nested entry should be flattened to basename")
	assert.False(t, names["cv_d.exe"])
	assert.False(t, names[".DS_Store"])
}

func TestExpandBackslashFlattening(t *testing.T) {
	e := testExpander(t, Limits{})

	bundle := zipFile(t, "a.zip", map[string]string{
		`win\path\cv_f.txt`: "experience education " + strings.Repeat("x", 100),
	})
	stored, err := e.Expand("p1", []File{bundle})
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "cv_f.txt", stored[0].OriginalName)
}

func TestExpandTooManyFiles(t *testing.T) {
	e := testExpander(t, Limits{MaxFiles: 2})

	files := []File{
		memFile("a.pdf", "", "x"),
		memFile("b.pdf", "", "x"),
		memFile("c.pdf", "", "x"),
	}
	_, err := e.Expand("p1", files)
	assert.ErrorIs(t, err, ErrTooManyFiles)
}

func TestExpandTooManyFilesAfterExpansion(t *testing.T) {
	e := testExpander(t, Limits{MaxFiles: 2})

	bundle := zipFile(t, "a.zip", map[string]string{
		"a.pdf": "x", "b.pdf": "x", "c.pdf": "x",
	})
	_, err := e.Expand("p1", []File{bundle})
	assert.ErrorIs(t, err, ErrTooManyFiles)
}

func TestExpandTooLarge(t *testing.T) {
	e := testExpander(t, Limits{MaxTotalBytes: 10})

	_, err := e.Expand("p1", []File{memFile("a.pdf", "", strings.Repeat("x", 11))})
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestExpandSizeMeasuredNonDestructively(t *testing.T) {
	e := testExpander(t, Limits{})

	body := "pdf content here"
	stored, err := e.Expand("p1", []File{memFile("a.pdf", "", body)})
	require.NoError(t, err)
	data, err := os.ReadFile(stored[0].Path)
	require.NoError(t, err)
	assert.Equal(t, body, string(data), "size probe must restore stream position")
}

func TestExpandBadArchive(t *testing.T) {
	e := testExpander(t, Limits{})

	_, err := e.Expand("p1", []File{memFile("broken.zip", "application/zip", "not a zip")})
	assert.ErrorIs(t, err, ErrBadArchive)

	// A malformed archive fails the whole upload: nothing persisted.
	entries, _ := os.ReadDir(filepath.Join(e.rootDir, "p1"))
	assert.Empty(t, entries)
}

func TestExpandUnsupportedDirectFile(t *testing.T) {
	e := testExpander(t, Limits{})

	_, err := e.Expand("p1", []File{memFile("malware.exe", "", "x")})
	assert.ErrorIs(t, err, ErrUnsupportedFile)
}

func TestArchiveDetection(t *testing.T) {
	assert.True(t, isArchive("bundle.zip", ""))
	assert.True(t, isArchive("bundle.ZIP", ""))
	assert.True(t, isArchive("bundle.bin", "application/x-zip-compressed"))
	assert.False(t, isArchive("cv.pdf", "application/pdf"))
}

func TestFlatten(t *testing.T) {
	assert.Equal(t, "cv.pdf", flatten("a/b/cv.pdf"))
	assert.Equal(t, "cv.pdf", flatten(`a\b\cv.pdf`))
	assert.Equal(t, "cv.pdf", flatten("cv.pdf"))
}
