// Package pdftext extracts plain text from gazette PDFs by shelling out to
// the pdftotext CLI. The gazette publishes digitally-set PDFs, so plain
// layout extraction is enough and no OCR pass is needed.
package pdftext

import (
	"bytes"
	"context"
	"os/exec"

	"github.com/rotisserie/eris"
)

// Converter is satisfied by anything that can turn a PDF file into text.
type Converter interface {
	Text(ctx context.Context, pdfPath string) (string, error)
}

// CLI runs the pdftotext binary from poppler-utils.
type CLI struct {
	binPath string
}

// NewCLI creates a CLI converter. If binPath is empty, "pdftotext" is used.
func NewCLI(binPath string) *CLI {
	if binPath == "" {
		binPath = "pdftotext"
	}
	return &CLI{binPath: binPath}
}

// Text runs pdftotext -layout on the given PDF and returns stdout. The
// -layout flag preserves the gazette's physical line layout, which the
// notice segmenter depends on.
func (c *CLI) Text(ctx context.Context, pdfPath string) (string, error) {
	cmd := exec.CommandContext(ctx, c.binPath, "-layout", pdfPath, "-")

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", eris.Wrapf(err, "pdftext: pdftotext failed for %s: %s", pdfPath, stderr.String())
	}

	return stdout.String(), nil
}
