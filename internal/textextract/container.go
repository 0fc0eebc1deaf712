// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package textextract

import (
	"bytes"
	"context"

	"github.com/cockroachdb/errors"

	"github.com/pdiddy/fulltext/internal/container"
)

// ContainerExtractor pipes PDFs through the extractor image. It depends on
// a container.Runtime (docker or podman) injected at construction time.
type ContainerExtractor struct {
	runtime container.Runtime
	image   string
}

// NewContainerExtractor verifies that image exists locally in rt before
// returning.
func NewContainerExtractor(ctx context.Context, rt container.Runtime, image string) (*ContainerExtractor, error) {
	if image == "" {
		return nil, errors.New("extractor image must not be empty")
	}
	if err := rt.ImageExists(ctx, image); err != nil {
		return nil, errors.WithHintf(
			errors.Wrapf(err, "extractor image not available in %s", rt.Name()),
			"pull it with: %s pull %s", rt.Name(), image)
	}
	return &ContainerExtractor{runtime: rt, image: image}, nil
}

// Extract runs the image with pdf on stdin and returns normalized stdout.
func (c *ContainerExtractor) Extract(ctx context.Context, pdf []byte) (string, error) {
	var out bytes.Buffer
	if err := c.runtime.Run(ctx, c.image, bytes.NewReader(pdf), &out); err != nil {
		return "", errors.Wrap(err, "extracting text")
	}
	return finish(out.String())
}
