package loader

import (
	"context"
	"fmt"
)

// textBackendImpl is the containerBackend for .gltf JSON documents.
type textBackendImpl struct{}

// binaryBackendImpl is the containerBackend for .glb containers.
type binaryBackendImpl struct {
	source byteSource
}

var (
	_ containerBackend = &textBackendImpl{}
	_ containerBackend = &binaryBackendImpl{}
)

// newTextBackend creates the backend for .gltf documents.
//
// Returns:
//   - containerBackend: the text backend
func newTextBackend() containerBackend {
	return &textBackendImpl{}
}

// newBinaryBackend creates the backend for .glb containers.
//
// Parameters:
//   - source: resolver used when the first buffer names a URI of its own
//
// Returns:
//   - containerBackend: the binary backend
func newBinaryBackend(source byteSource) containerBackend {
	return &binaryBackendImpl{source: source}
}

func (b *textBackendImpl) Kind() ContainerKind {
	return ContainerText
}

// Demux decodes the document. No buffer is bound: each buffer URI is
// resolved lazily by the loader on first access.
func (b *textBackendImpl) Demux(_ context.Context, data []byte, _ string) (*container, error) {
	text, err := decodeText(data)
	if err != nil {
		return nil, err
	}

	doc, err := parseDocument(text)
	if err != nil {
		return nil, err
	}

	return &container{
		kind:        ContainerText,
		document:    doc,
		bound:       map[int][]byte{},
		unavailable: map[int]bool{},
	}, nil
}

func (b *binaryBackendImpl) Kind() ContainerKind {
	return ContainerBinary
}

// Demux splits the GLB and binds the BIN chunk to buffers[0]. When that buffer
// also declares a URI, the URI wins and is resolved here instead.
func (b *binaryBackendImpl) Demux(ctx context.Context, data []byte, rootDir string) (*container, error) {
	contents, err := parseGLB(data)
	if err != nil {
		return nil, err
	}

	c := &container{
		kind:        ContainerBinary,
		document:    contents.document,
		bound:       map[int][]byte{},
		unavailable: map[int]bool{},
		chunks:      contents.chunks,
	}
	if !contents.hasBinary {
		return c, nil
	}

	if len(c.document.Buffers) == 0 {
		return nil, fmt.Errorf("%w: BIN chunk present but document declares no buffers", ErrFormat)
	}
	first := c.document.Buffers[0]
	if first.ByteLength < 0 {
		return nil, fmt.Errorf("%w: buffer 0 has negative byteLength", ErrFormat)
	}

	if first.URI != "" {
		resolved, err := b.source.Resolve(ctx, first.URI, rootDir)
		if err != nil {
			return nil, fmt.Errorf("buffer 0: %w", err)
		}
		switch {
		case resolved == nil:
			c.unavailable[0] = true
		case len(resolved) > first.ByteLength:
			c.bound[0] = resolved[:first.ByteLength]
		default:
			c.bound[0] = resolved
		}
		return c, nil
	}

	c.bound[0] = fitToLength(contents.binary, first.ByteLength)
	return c, nil
}
