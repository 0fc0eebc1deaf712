// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package textextract

import (
	"bytes"
	"context"
	"os/exec"

	"github.com/cockroachdb/errors"
)

const binPdftotext = "pdftotext"

// PdftotextExtractor runs a local poppler pdftotext for hosts without a
// container runtime. Output is not sandboxed.
type PdftotextExtractor struct {
	bin string
	run func(ctx context.Context, bin string, args []string, stdin []byte) (stdout, stderr []byte, err error)
}

// NewPdftotextExtractor fails when pdftotext is not on PATH.
func NewPdftotextExtractor() (*PdftotextExtractor, error) {
	bin, err := exec.LookPath(binPdftotext)
	if err != nil {
		return nil, errors.WithHint(
			errors.Wrap(err, "pdftotext not found"),
			"install poppler-utils or use extractor.backend=container")
	}
	return &PdftotextExtractor{bin: bin, run: runCommand}, nil
}

// Extract reads the PDF from stdin and text from stdout ("pdftotext - -").
func (p *PdftotextExtractor) Extract(ctx context.Context, pdf []byte) (string, error) {
	stdout, stderr, err := p.run(ctx, p.bin, []string{"-enc", "UTF-8", "-", "-"}, pdf)
	if err != nil {
		err = errors.Wrap(err, "running pdftotext")
		if len(stderr) > 0 {
			err = errors.WithDetail(err, string(bytes.TrimSpace(stderr)))
		}
		return "", err
	}
	return finish(string(stdout))
}

func runCommand(ctx context.Context, bin string, args []string, stdin []byte) ([]byte, []byte, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Stdin = bytes.NewReader(stdin)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}
