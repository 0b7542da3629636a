package loader

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
)

// ContainerKind identifies the physical form of a glTF asset.
type ContainerKind int

const (
	// ContainerText is a JSON document (.gltf) whose buffers live behind URIs.
	ContainerText ContainerKind = iota

	// ContainerBinary is a GLB container (.glb) embedding the JSON document and
	// an optional binary chunk.
	ContainerBinary
)

func (k ContainerKind) String() string {
	switch k {
	case ContainerText:
		return "gltf"
	case ContainerBinary:
		return "glb"
	default:
		return fmt.Sprintf("ContainerKind(%d)", int(k))
	}
}

// container is the demultiplexed form of an asset: the JSON document plus
// whatever buffer bytes were bound eagerly, keyed by buffer index.
type container struct {
	kind     ContainerKind
	document *Document
	bound    map[int][]byte

	// unavailable marks buffers whose eager resolution was refused.
	unavailable map[int]bool

	// chunks is the number of GLB chunks read; 0 for text containers.
	chunks int
}

// containerBackend defines the interface for demultiplexing one container kind.
// Concrete implementations (textBackend, binaryBackend) handle format-specific details.
type containerBackend interface {
	// Kind returns the container kind this backend reads.
	//
	// Returns:
	//   - ContainerKind: the kind
	Kind() ContainerKind

	// Demux parses a complete container.
	//
	// Parameters:
	//   - ctx: bounds any buffer resolution performed while demuxing
	//   - data: the complete file contents
	//   - rootDir: directory relative buffer URIs are resolved against
	//
	// Returns:
	//   - *container: the document and eagerly bound buffers
	//   - error: error if the container is malformed
	Demux(ctx context.Context, data []byte, rootDir string) (*container, error)
}

// kindForPath selects the container kind from a file extension.
//
// Parameters:
//   - path: the asset path
//
// Returns:
//   - ContainerKind: ContainerText for .gltf, ContainerBinary for .glb
//   - error: ErrUnsupportedFormat for any other extension
func kindForPath(path string) (ContainerKind, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".gltf":
		return ContainerText, nil
	case ".glb":
		return ContainerBinary, nil
	default:
		return 0, fmt.Errorf("%w: %q (want .gltf or .glb)", ErrUnsupportedFormat, ext)
	}
}

// newContainerBackend returns the backend for kind.
//
// Parameters:
//   - kind: the container kind
//   - source: resolver for buffer URIs bound while demuxing
//
// Returns:
//   - containerBackend: the backend
//   - error: ErrUnsupportedFormat for an unknown kind
func newContainerBackend(kind ContainerKind, source byteSource) (containerBackend, error) {
	switch kind {
	case ContainerText:
		return newTextBackend(), nil
	case ContainerBinary:
		return newBinaryBackend(source), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, kind)
	}
}
