package corpus

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ledongthuc/pdf"
	"gopkg.in/yaml.v3"
)

// loadPDF extracts the plain text of a PDF transcript. Metadata comes from
// an optional metadata.yaml next to it.
func loadPDF(path, defaultChannel string) (Episode, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return Episode{}, fmt.Errorf("opening pdf: %w", err)
	}
	defer f.Close()

	text, err := r.GetPlainText()
	if err != nil {
		return Episode{}, fmt.Errorf("extracting pdf text: %w", err)
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(text); err != nil {
		return Episode{}, fmt.Errorf("reading pdf text: %w", err)
	}

	meta, err := readSidecar(filepath.Join(filepath.Dir(path), pdfMetadata))
	if err != nil {
		return Episode{}, err
	}
	return newEpisode(folderName(path), meta, buf.String(), defaultChannel), nil
}

func readSidecar(path string) (metadata, error) {
	var meta metadata
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return meta, nil
	}
	if err != nil {
		return meta, fmt.Errorf("reading %s: %w", filepath.Base(path), err)
	}
	if err := yaml.Unmarshal(data, &meta); err != nil {
		return meta, fmt.Errorf("parsing %s: %w", filepath.Base(path), err)
	}
	return meta, nil
}
