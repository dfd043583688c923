package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeFilename(t *testing.T) {
	cases := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{"plain", "clip.mp4", "clip.mp4", false},
		{"unix path stripped", "dir/sub/clip.mp4", "clip.mp4", false},
		{"windows path stripped", `C:\videos\clip.mp4`, "clip.mp4", false},
		{"traversal stripped", "../../etc/passwd", "passwd", false},
		{"empty", "", "", true},
		{"dot", ".", "", true},
		{"dotdot", "..", "", true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := SanitizeFilename(tc.in)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestContentStoreLayout(t *testing.T) {
	root := t.TempDir()
	s, err := NewContentStore(root)
	require.NoError(t, err)

	info, err := os.Stat(filepath.Join(root, "processed"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	up, err := s.UploadPath("clip.mp4")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "clip.mp4"), up)

	pp, err := s.ProcessedPath("enhanced_clip.mp4")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "processed", "enhanced_clip.mp4"), pp)
}

func TestContentStoreRejectsEscapingPaths(t *testing.T) {
	s, err := NewContentStore(t.TempDir())
	require.NoError(t, err)

	_, err = s.UploadPath("../outside.mp4")
	assert.Error(t, err)

	_, err = s.ProcessedPath("../../outside.mp4")
	assert.Error(t, err)
}

func TestSaveUploadWritesCompleteContent(t *testing.T) {
	root := t.TempDir()
	s, err := NewContentStore(root)
	require.NoError(t, err)

	content := strings.Repeat("frame-data ", 1024)
	path, err := s.SaveUpload("clip.mp4", strings.NewReader(content))
	require.NoError(t, err)

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, content, string(got))

	// no temp files left behind
	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.HasPrefix(e.Name(), ".upload-"), "leftover temp file %s", e.Name())
	}
}

func TestSaveUploadOverwrites(t *testing.T) {
	s, err := NewContentStore(t.TempDir())
	require.NoError(t, err)

	_, err = s.SaveUpload("clip.mp4", strings.NewReader("first"))
	require.NoError(t, err)
	path, err := s.SaveUpload("clip.mp4", strings.NewReader("second"))
	require.NoError(t, err)

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "second", string(got))
}

func TestEnhancedName(t *testing.T) {
	assert.Equal(t, "enhanced_clip.mp4", EnhancedName("clip.mp4"))
	assert.Equal(t, "enhanced_memecry.webm", EnhancedName("memecry.webm"))
}
