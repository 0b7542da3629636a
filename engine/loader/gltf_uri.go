package loader

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// byteSourceImpl is the implementation of the byteSource interface.
type byteSourceImpl struct {
	client *http.Client
	logger *slog.Logger
}

// byteSource resolves the URI of a buffer to its raw bytes.
// This is internal to the loader package.
type byteSource interface {
	// Resolve loads the bytes a URI refers to.
	// A data: URI is decoded inline, an http(s) URL is fetched, and anything
	// else is read as a file path relative to rootDir.
	//
	// A remote fetch answered with a non-success status is not an error: it is
	// logged and Resolve returns nil bytes and a nil error, leaving the caller to
	// treat the buffer as unavailable.
	//
	// Parameters:
	//   - ctx: bounds the remote fetch
	//   - uri: the buffer URI
	//   - rootDir: directory relative paths are resolved against
	//
	// Returns:
	//   - []byte: the resolved bytes, nil if a remote fetch was refused
	//   - error: ErrInvalidDataURI, ErrNetwork, ErrNotFound or a wrapped read error
	Resolve(ctx context.Context, uri, rootDir string) ([]byte, error)
}

var _ byteSource = &byteSourceImpl{}

// newByteSource creates a byteSource.
//
// Parameters:
//   - client: HTTP client used for remote URIs; its Timeout bounds each fetch
//   - logger: receives the warning for refused remote fetches
//
// Returns:
//   - byteSource: the resolver
func newByteSource(client *http.Client, logger *slog.Logger) byteSource {
	return &byteSourceImpl{
		client: client,
		logger: logger,
	}
}

func (s *byteSourceImpl) Resolve(ctx context.Context, uri, rootDir string) ([]byte, error) {
	switch {
	case strings.HasPrefix(uri, "data:"):
		return decodeDataURI(uri)
	case isRemoteURI(uri):
		return s.fetch(ctx, uri)
	default:
		return readLocalURI(uri, rootDir)
	}
}

// isRemoteURI reports whether uri uses the http or https scheme.
func isRemoteURI(uri string) bool {
	lower := strings.ToLower(uri)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// decodeDataURI decodes the base64 payload following the first comma.
// Format: data:[<mediatype>][;base64],<data>
func decodeDataURI(uri string) ([]byte, error) {
	commaIdx := strings.IndexByte(uri, ',')
	if commaIdx < 0 {
		return nil, fmt.Errorf("%w: missing ',' separator", ErrInvalidDataURI)
	}

	data, err := base64.StdEncoding.DecodeString(uri[commaIdx+1:])
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDataURI, err)
	}
	return data, nil
}

// fetch performs a blocking GET bounded by ctx and the client timeout.
func (s *byteSourceImpl) fetch(ctx context.Context, uri string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: building request for %s: %w", ErrNetwork, uri, err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: fetching %s: %w", ErrNetwork, uri, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		s.logger.Warn("unable to fetch remote buffer",
			"uri", uri,
			"status", resp.StatusCode,
		)
		return nil, nil
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading body of %s: %w", ErrNetwork, uri, err)
	}
	return data, nil
}

// readLocalURI reads a file named by a relative (or absolute) URI. URIs are
// percent-decoded first; an undecodable URI is used verbatim.
func readLocalURI(uri, rootDir string) ([]byte, error) {
	name := uri
	if unescaped, err := url.PathUnescape(uri); err == nil {
		name = unescaped
	}
	if !filepath.IsAbs(name) {
		name = filepath.Join(rootDir, filepath.FromSlash(name))
	}

	data, err := os.ReadFile(name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, fmt.Errorf("failed to load buffer file %q: %w", uri, err)
	}
	return data, nil
}
