package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/unidoc/unipdf/v3/common/license"
	"github.com/unidoc/unipdf/v3/extractor"
	"github.com/unidoc/unipdf/v3/model"
)

// SetPDFLicense registers the UniPDF metered key. PDF extraction fails
// without it.
func SetPDFLicense(key string) error {
	if key == "" {
		return fmt.Errorf("UniPDF license key is empty")
	}
	return license.SetMeteredKey(key)
}

var imageMIMETypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
}

// FileExtractor turns uploaded files into plain text.
type FileExtractor struct {
	transcriber ImageTranscriber
}

// NewFileExtractor returns an extractor. Images are only supported when a
// transcriber is given.
func NewFileExtractor(transcriber ImageTranscriber) *FileExtractor {
	return &FileExtractor{transcriber: transcriber}
}

// Extract returns the text of a file named filename with the given content.
func (e *FileExtractor) Extract(ctx context.Context, filename string, data []byte) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))

	switch ext {
	case ".txt", ".text", ".md":
		return string(data), nil
	case ".pdf":
		return extractTextFromPDF(bytes.NewReader(data))
	}

	if mimeType, ok := imageMIMETypes[ext]; ok && e.transcriber != nil {
		text, err := e.transcriber.Transcribe(ctx, data, mimeType)
		if err != nil {
			return "", fmt.Errorf("transcribe %s: %w", filename, err)
		}
		return text, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedFileType, ext)
}

// ExtractTextFromFile reads a corpus file from disk and returns its text.
func ExtractTextFromFile(path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))

	switch ext {
	case ".txt", ".md":
		content, err := os.ReadFile(path)
		if err != nil {
			return "", err
		}
		return string(content), nil
	case ".pdf":
		f, err := os.Open(path)
		if err != nil {
			return "", err
		}
		defer f.Close()
		return extractTextFromPDF(f)
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFileType, ext)
	}
}

// extractTextFromPDF uses UniPDF to get all text from a PDF document.
func extractTextFromPDF(rs io.ReadSeeker) (string, error) {
	pdfReader, err := model.NewPdfReader(rs)
	if err != nil {
		return "", err
	}

	numPages, err := pdfReader.GetNumPages()
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	for i := 1; i <= numPages; i++ {
		page, err := pdfReader.GetPage(i)
		if err != nil {
			return "", err
		}

		ex, err := extractor.New(page)
		if err != nil {
			return "", err
		}

		text, err := ex.ExtractText()
		if err != nil {
			return "", err
		}
		sb.WriteString(text)
		sb.WriteString("\n\n")
	}

	return sb.String(), nil
}
