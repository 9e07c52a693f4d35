package store

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDirStore(t *testing.T) {
	assert.Equal(t, DefaultDir, NewDirStore("").Dir)
	assert.Equal(t, "/tmp/x", NewDirStore("/tmp/x").Dir)
}

func TestDirStore_Path(t *testing.T) {
	s := NewDirStore("downloads")

	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"plain", "invoice.pdf", filepath.Join("downloads", "invoice.pdf"), false},
		{"leading dots", "..hidden", filepath.Join("downloads", "..hidden"), false},
		{"empty", "", "", true},
		{"dot", ".", "", true},
		{"dotdot", "..", "", true},
		{"slash", "a/b.pdf", "", true},
		{"backslash", `a\b.pdf`, "", true},
		{"traversal", "../etc/passwd", "", true},
		{"nul", "a\x00b", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.Path(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidName)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDirStore_SaveAndExists(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "attachments")
	s := NewDirStore(dir)

	exists, err := s.Exists("report.pdf")
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = os.Stat(dir)
	assert.ErrorIs(t, err, os.ErrNotExist, "Exists must not create the directory")

	require.NoError(t, s.Save("report.pdf", []byte("content")))

	exists, err = s.Exists("report.pdf")
	require.NoError(t, err)
	assert.True(t, exists)

	data, err := os.ReadFile(filepath.Join(dir, "report.pdf"))
	require.NoError(t, err)
	assert.Equal(t, []byte("content"), data)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "temp files must not be left behind")
}

func TestDirStore_SaveOverwrites(t *testing.T) {
	s := NewDirStore(t.TempDir())

	require.NoError(t, s.Save("a.txt", []byte("first")))
	require.NoError(t, s.Save("a.txt", []byte("second")))

	data, err := os.ReadFile(filepath.Join(s.Dir, "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))
}

func TestDirStore_SaveEmpty(t *testing.T) {
	s := NewDirStore(t.TempDir())
	require.NoError(t, s.Save("empty.txt", nil))

	info, err := os.Stat(filepath.Join(s.Dir, "empty.txt"))
	require.NoError(t, err)
	assert.Zero(t, info.Size())
}

func TestDirStore_InvalidName(t *testing.T) {
	s := NewDirStore(t.TempDir())

	assert.ErrorIs(t, s.Save("../escape.txt", []byte("x")), ErrInvalidName)
	_, err := s.Exists("../escape.txt")
	assert.ErrorIs(t, err, ErrInvalidName)
}

func TestDirStore_DirectoryCountsAsExisting(t *testing.T) {
	s := NewDirStore(t.TempDir())
	require.NoError(t, os.Mkdir(filepath.Join(s.Dir, "taken"), 0755))

	exists, err := s.Exists("taken")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestDirStore_SaveLongName(t *testing.T) {
	s := NewDirStore(t.TempDir())
	name := strings.Repeat("a", 240) + ".pdf"

	require.NoError(t, s.Save(name, []byte("content")))

	exists, err := s.Exists(name)
	require.NoError(t, err)
	assert.True(t, exists)

	entries, err := os.ReadDir(s.Dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, name, entries[0].Name())
}

func TestDirStore_SaveRenameErrorNamesTempFile(t *testing.T) {
	s := NewDirStore(t.TempDir())
	require.NoError(t, os.Mkdir(filepath.Join(s.Dir, "taken"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(s.Dir, "taken", "child"), nil, 0644))

	err := s.Save("taken", []byte("x"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), ".download-")

	entries, err := os.ReadDir(s.Dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "temp file must be removed after a failed rename")
}
