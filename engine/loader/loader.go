// Package loader reads glTF 2.0 assets. It demultiplexes .gltf and .glb
// containers, resolves buffer URIs, decodes accessors on demand into a
// per-loader cache and assembles the node, skin and scene graph.
package loader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"

	"github.com/Carmen-Shannon/oxy-gltf/engine/model"
)

// DefaultFetchTimeout bounds each remote buffer fetch unless overridden.
const DefaultFetchTimeout = 30 * time.Second

// defaultDecodeQueueSize is the task queue depth of the prefetch worker pool.
const defaultDecodeQueueSize = 256

// loader is the implementation of the Loader interface.
type loader struct {
	mu sync.RWMutex

	kind    ContainerKind
	rootDir string
	doc     *Document

	source          byteSource
	logger          *slog.Logger
	httpClient      *http.Client
	fetchTimeout    time.Duration
	imageDecoder    ImageDecoder
	strictScene     bool
	decodeWorkers   int
	decodeQueueSize int

	// decodePool runs Prefetch tasks. Its workers live as long as the loader.
	decodePool     worker.DynamicWorkerPool
	decodePoolOnce sync.Once

	// buffers and accessorCache are guarded by mu. Bound buffer bytes are never
	// written again, so readers use them without holding the lock.
	buffers       []bufferSlot
	accessorCache map[int]*AccessorData

	asset        *model.Asset
	images       []*model.Image
	materials    []*model.Material
	meshes       []*model.Mesh
	nodes        []*model.Node
	skins        []*model.Skin
	scenes       []*model.Scene
	animations   []*model.Animation
	mainScene    *model.Scene
	mainSceneErr error
}

// bufferSlot tracks the bytes of one declared buffer.
type bufferSlot struct {
	data        []byte
	bound       bool
	unavailable bool
}

// Loader defines the public-facing interface for a loaded glTF asset.
// It owns the demultiplexed container, the assembled object graph and the
// per-accessor decode cache for its whole lifetime.
type Loader interface {
	// Kind returns the container form the asset was read from.
	//
	// Returns:
	//   - ContainerKind: ContainerText or ContainerBinary
	Kind() ContainerKind

	// RootDir returns the directory relative buffer URIs are resolved against.
	//
	// Returns:
	//   - string: the root directory
	RootDir() string

	// Document returns the parsed JSON document. Callers must not modify it.
	//
	// Returns:
	//   - *Document: the document
	Document() *Document

	// Asset returns the asset metadata.
	//
	// Returns:
	//   - *model.Asset: the metadata, or nil when the document has none
	Asset() *model.Asset

	// Images returns the images in document order.
	Images() []*model.Image

	// Materials returns the materials in document order.
	Materials() []*model.Material

	// Meshes returns the meshes in document order.
	Meshes() []*model.Mesh

	// Nodes returns the nodes in document order.
	Nodes() []*model.Node

	// Skins returns the skins in document order.
	Skins() []*model.Skin

	// Scenes returns the scenes in document order.
	Scenes() []*model.Scene

	// Animations returns the animations in document order.
	Animations() []*model.Animation

	// MainScene returns the default scene: the scene named by the document's
	// scene index, else the first scene.
	//
	// Returns:
	//   - *model.Scene: the main scene, or nil when the document has no scenes
	//   - error: ErrInvalidSceneIndex if the scene index is out of range
	MainScene() (*model.Scene, error)

	// Data decodes an accessor. The result is cached by accessorIndex alone,
	// so a second call with the same index returns the identical *AccessorData
	// without reading any bytes, whatever accessor description is passed.
	//
	// Parameters:
	//   - accessor: the accessor description
	//   - accessorIndex: the cache key, normally the accessor's document index
	//
	// Returns:
	//   - *AccessorData: the decoded elements
	//   - error: error if the accessor cannot be decoded
	Data(accessor Accessor, accessorIndex int) (*AccessorData, error)

	// AccessorData decodes the document accessor at accessorIndex. It shares
	// the cache used by Data.
	//
	// Parameters:
	//   - accessorIndex: the index into Document().Accessors
	//
	// Returns:
	//   - *AccessorData: the decoded elements
	//   - error: ErrIndexOutOfRange or any decode error
	AccessorData(accessorIndex int) (*AccessorData, error)

	// BufferData returns the bytes of a buffer, resolving its URI on first use.
	//
	// Parameters:
	//   - bufferIndex: the index into Document().Buffers
	//
	// Returns:
	//   - []byte: the buffer bytes; callers must not modify them
	//   - error: ErrBufferUnavailable, ErrIndexOutOfRange or a resolution error
	BufferData(bufferIndex int) ([]byte, error)

	// BufferViewData returns the bytes covered by a buffer view.
	//
	// Parameters:
	//   - viewIndex: the index into Document().BufferViews
	//
	// Returns:
	//   - []byte: the view bytes; callers must not modify them
	//   - error: ErrBufferUnderrun, ErrIndexOutOfRange or any BufferData error
	BufferViewData(viewIndex int) ([]byte, error)

	// Prefetch decodes accessors concurrently and fills the cache. With no
	// indices every document accessor is decoded. Decoding stops submitting
	// work once ctx is done.
	//
	// Parameters:
	//   - ctx: cancels outstanding work and bounds remote fetches
	//   - accessorIndices: the accessors to decode
	//
	// Returns:
	//   - error: every decode failure joined, or ctx.Err()
	Prefetch(ctx context.Context, accessorIndices ...int) error
}

// ImageDecoder decodes image entries while the graph is assembled. It receives
// the Loader so it can read buffer views holding embedded images.
type ImageDecoder interface {
	// DecodeImage decodes one image and may store the result in image.Decoded.
	//
	// Parameters:
	//   - l: the loader, for buffer access
	//   - image: the image entry
	//
	// Returns:
	//   - error: aborts loading when non-nil
	DecodeImage(l Loader, image *model.Image) error
}

// ImageDecoderFunc adapts a function to ImageDecoder.
type ImageDecoderFunc func(l Loader, image *model.Image) error

// DecodeImage calls f(l, image).
func (f ImageDecoderFunc) DecodeImage(l Loader, image *model.Image) error {
	return f(l, image)
}

var _ Loader = &loader{}

// NewLoader loads a .gltf or .glb file, demultiplexes it and assembles the
// object graph. Accessor data is decoded later, on demand.
// The container kind is chosen by extension before the file is opened.
//
// Parameters:
//   - path: the asset file path
//   - options: functional options
//
// Returns:
//   - Loader: the loaded asset
//   - error: ErrUnsupportedFormat, ErrNotFound or any demux/assembly error
func NewLoader(path string, options ...LoaderBuilderOption) (Loader, error) {
	kind, err := kindForPath(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	l, err := newLoader(data, kind, filepath.Dir(path), options...)
	if err != nil {
		return nil, err
	}
	return l, nil
}

// NewLoaderFromReader loads an asset from a stream. Use this when loading from
// embedded resources or network streams.
//
// Parameters:
//   - r: reader containing the complete container
//   - kind: the container kind of the stream
//   - rootDir: directory relative buffer URIs are resolved against
//   - options: functional options
//
// Returns:
//   - Loader: the loaded asset
//   - error: error if reading, demuxing or assembly fails
func NewLoaderFromReader(r io.Reader, kind ContainerKind, rootDir string, options ...LoaderBuilderOption) (Loader, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read data: %w", err)
	}
	l, err := newLoader(data, kind, rootDir, options...)
	if err != nil {
		return nil, err
	}
	return l, nil
}

func newLoader(data []byte, kind ContainerKind, rootDir string, options ...LoaderBuilderOption) (*loader, error) {
	l := &loader{
		kind:            kind,
		rootDir:         rootDir,
		logger:          slog.Default(),
		fetchTimeout:    DefaultFetchTimeout,
		strictScene:     true,
		decodeWorkers:   runtime.NumCPU(),
		decodeQueueSize: defaultDecodeQueueSize,
		accessorCache:   make(map[int]*AccessorData),
	}
	for _, opt := range options {
		opt(l)
	}
	if l.httpClient == nil {
		l.httpClient = &http.Client{Timeout: l.fetchTimeout}
	}
	l.source = newByteSource(l.httpClient, l.logger)

	backend, err := newContainerBackend(kind, l.source)
	if err != nil {
		return nil, err
	}
	c, err := backend.Demux(context.Background(), data, rootDir)
	if err != nil {
		return nil, fmt.Errorf("failed to demux %s container: %w", kind, err)
	}

	l.doc = c.document
	l.buffers = make([]bufferSlot, len(l.doc.Buffers))
	for i, b := range c.bound {
		l.buffers[i] = bufferSlot{data: b, bound: true}
	}
	for i := range c.unavailable {
		l.buffers[i].unavailable = true
	}

	l.logger.Debug("container demuxed",
		"kind", kind.String(),
		"bytes", len(data),
		"chunks", c.chunks,
		"buffers", len(l.doc.Buffers),
		"accessors", len(l.doc.Accessors),
	)

	if err := l.assemble(); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *loader) Kind() ContainerKind {
	return l.kind
}

func (l *loader) RootDir() string {
	return l.rootDir
}

func (l *loader) Document() *Document {
	return l.doc
}

func (l *loader) Asset() *model.Asset {
	return l.asset
}

func (l *loader) Images() []*model.Image {
	return l.images
}

func (l *loader) Materials() []*model.Material {
	return l.materials
}

func (l *loader) Meshes() []*model.Mesh {
	return l.meshes
}

func (l *loader) Nodes() []*model.Node {
	return l.nodes
}

func (l *loader) Skins() []*model.Skin {
	return l.skins
}

func (l *loader) Scenes() []*model.Scene {
	return l.scenes
}

func (l *loader) Animations() []*model.Animation {
	return l.animations
}

func (l *loader) MainScene() (*model.Scene, error) {
	return l.mainScene, l.mainSceneErr
}

func (l *loader) Data(accessor Accessor, accessorIndex int) (*AccessorData, error) {
	return l.data(context.Background(), &accessor, accessorIndex)
}

func (l *loader) AccessorData(accessorIndex int) (*AccessorData, error) {
	return l.accessorData(context.Background(), accessorIndex)
}

func (l *loader) accessorData(ctx context.Context, accessorIndex int) (*AccessorData, error) {
	if accessorIndex < 0 || accessorIndex >= len(l.doc.Accessors) {
		return nil, fmt.Errorf("accessor %d: %w", accessorIndex, ErrIndexOutOfRange)
	}
	return l.data(ctx, &l.doc.Accessors[accessorIndex], accessorIndex)
}

// data returns the cached decode for index or decodes acc and caches it.
// Concurrent first decodes of one index may both run; the first stored
// result wins and every caller receives it.
func (l *loader) data(ctx context.Context, acc *Accessor, index int) (*AccessorData, error) {
	l.mu.RLock()
	if cached, ok := l.accessorCache[index]; ok {
		l.mu.RUnlock()
		return cached, nil
	}
	l.mu.RUnlock()

	decoded, err := l.decode(ctx, acc)
	if err != nil {
		return nil, fmt.Errorf("accessor %d: %w", index, err)
	}

	l.mu.Lock()
	if existing, ok := l.accessorCache[index]; ok {
		decoded = existing
	} else {
		l.accessorCache[index] = decoded
	}
	l.mu.Unlock()

	l.logger.Debug("accessor decoded",
		"accessor", index,
		"type", string(acc.Type),
		"component_type", acc.ComponentType.String(),
		"count", acc.Count,
	)
	return decoded, nil
}

// decode validates the accessor layout before touching any buffer bytes.
func (l *loader) decode(ctx context.Context, acc *Accessor) (*AccessorData, error) {
	if acc.BufferView == nil {
		return nil, fmt.Errorf("%w: accessor has no bufferView", ErrFormat)
	}
	viewIndex := *acc.BufferView
	if viewIndex < 0 || viewIndex >= len(l.doc.BufferViews) {
		return nil, fmt.Errorf("buffer view %d: %w", viewIndex, ErrIndexOutOfRange)
	}
	view := &l.doc.BufferViews[viewIndex]

	layout, err := layoutFor(acc, view)
	if err != nil {
		return nil, err
	}

	window, err := l.viewData(ctx, viewIndex)
	if err != nil {
		return nil, err
	}
	return decodeWithLayout(acc, layout, window)
}

func (l *loader) BufferData(bufferIndex int) ([]byte, error) {
	return l.bufferData(context.Background(), bufferIndex)
}

func (l *loader) BufferViewData(viewIndex int) ([]byte, error) {
	if viewIndex < 0 || viewIndex >= len(l.doc.BufferViews) {
		return nil, fmt.Errorf("buffer view %d: %w", viewIndex, ErrIndexOutOfRange)
	}
	return l.viewData(context.Background(), viewIndex)
}

func (l *loader) viewData(ctx context.Context, viewIndex int) ([]byte, error) {
	view := &l.doc.BufferViews[viewIndex]
	buffer, err := l.bufferData(ctx, view.Buffer)
	if err != nil {
		return nil, err
	}
	window, err := viewWindow(view, buffer)
	if err != nil {
		return nil, fmt.Errorf("buffer view %d: %w", viewIndex, err)
	}
	return window, nil
}

// bufferData returns bound bytes or resolves the buffer URI once. A refused
// remote fetch is remembered so later accesses fail without refetching.
func (l *loader) bufferData(ctx context.Context, index int) ([]byte, error) {
	if index < 0 || index >= len(l.buffers) {
		return nil, fmt.Errorf("buffer %d: %w", index, ErrIndexOutOfRange)
	}

	l.mu.RLock()
	slot := l.buffers[index]
	l.mu.RUnlock()
	switch {
	case slot.bound:
		return slot.data, nil
	case slot.unavailable:
		return nil, fmt.Errorf("buffer %d: %w", index, ErrBufferUnavailable)
	}

	info := l.doc.Buffers[index]
	if info.URI == "" {
		return nil, fmt.Errorf("buffer %d: %w: no uri and no binary chunk", index, ErrBufferUnavailable)
	}

	resolved, err := l.source.Resolve(ctx, info.URI, l.rootDir)
	if err != nil {
		return nil, fmt.Errorf("buffer %d: %w", index, err)
	}
	if resolved != nil && info.ByteLength >= 0 && len(resolved) > info.ByteLength {
		resolved = resolved[:info.ByteLength]
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	s := &l.buffers[index]
	switch {
	case s.bound:
		return s.data, nil
	case resolved == nil:
		s.unavailable = true
		return nil, fmt.Errorf("buffer %d: %w", index, ErrBufferUnavailable)
	}
	s.data, s.bound = resolved, true
	return resolved, nil
}
