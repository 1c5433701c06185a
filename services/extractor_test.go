package services

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileExtractor(t *testing.T) {
	ctx := context.Background()

	t.Run("plain text", func(t *testing.T) {
		text, err := NewFileExtractor(nil).Extract(ctx, "notice.TXT", []byte("Dear Sir,"))
		require.NoError(t, err)
		assert.Equal(t, "Dear Sir,", text)
	})

	t.Run("image via transcriber", func(t *testing.T) {
		tr := &fakeTranscriber{text: "scanned agreement"}
		text, err := NewFileExtractor(tr).Extract(ctx, "scan.jpeg", []byte{0xff, 0xd8})
		require.NoError(t, err)
		assert.Equal(t, "scanned agreement", text)
		assert.Equal(t, "image/jpeg", tr.mimeType)
	})

	t.Run("image without transcriber", func(t *testing.T) {
		_, err := NewFileExtractor(nil).Extract(ctx, "scan.png", []byte{0x89})
		assert.ErrorIs(t, err, ErrUnsupportedFileType)
	})

	t.Run("unsupported", func(t *testing.T) {
		_, err := NewFileExtractor(&fakeTranscriber{}).Extract(ctx, "deed.docx", []byte("x"))
		assert.ErrorIs(t, err, ErrUnsupportedFileType)
	})
}

func TestExtractTextFromFile(t *testing.T) {
	dir := t.TempDir()

	path := filepath.Join(dir, "act.md")
	require.NoError(t, os.WriteFile(path, []byte("# Act"), 0o644))
	text, err := ExtractTextFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "# Act", text)

	_, err = ExtractTextFromFile(filepath.Join(dir, "act.rtf"))
	assert.ErrorIs(t, err, ErrUnsupportedFileType)
}
