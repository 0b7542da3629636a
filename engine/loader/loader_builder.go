package loader

import (
	"log/slog"
	"net/http"
	"time"
)

// LoaderBuilderOption is a functional option for configuring a Loader via NewLoader.
type LoaderBuilderOption func(*loader)

// WithLogger is an option builder that sets the structured logger.
//
// Parameters:
//   - logger: the logger; nil keeps slog.Default()
//
// Returns:
//   - LoaderBuilderOption: a function that applies the logger option to a loader
func WithLogger(logger *slog.Logger) LoaderBuilderOption {
	return func(l *loader) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithHTTPClient is an option builder that sets the client used for http(s) buffer URIs.
// The client's own Timeout applies; WithFetchTimeout is ignored.
//
// Parameters:
//   - client: the HTTP client
//
// Returns:
//   - LoaderBuilderOption: a function that applies the client option to a loader
func WithHTTPClient(client *http.Client) LoaderBuilderOption {
	return func(l *loader) {
		l.httpClient = client
	}
}

// WithFetchTimeout is an option builder that bounds each remote buffer fetch made
// with the default HTTP client. Expiry surfaces as ErrNetwork.
//
// Parameters:
//   - timeout: the per-fetch timeout; zero or negative keeps DefaultFetchTimeout
//
// Returns:
//   - LoaderBuilderOption: a function that applies the timeout option to a loader
func WithFetchTimeout(timeout time.Duration) LoaderBuilderOption {
	return func(l *loader) {
		if timeout > 0 {
			l.fetchTimeout = timeout
		}
	}
}

// WithImageDecoder is an option builder that hands every image entry to decoder
// while the graph is assembled.
//
// Parameters:
//   - decoder: the image decoder
//
// Returns:
//   - LoaderBuilderOption: a function that applies the decoder option to a loader
func WithImageDecoder(decoder ImageDecoder) LoaderBuilderOption {
	return func(l *loader) {
		l.imageDecoder = decoder
	}
}

// WithStrictScene is an option builder that controls how an out-of-range default
// scene index is reported. Strict (the default) makes MainScene return
// ErrInvalidSceneIndex; permissive logs a warning and reports no main scene.
//
// Parameters:
//   - strict: whether to surface the error
//
// Returns:
//   - LoaderBuilderOption: a function that applies the scene option to a loader
func WithStrictScene(strict bool) LoaderBuilderOption {
	return func(l *loader) {
		l.strictScene = strict
	}
}

// WithDecodeWorkers is an option builder that sizes the Prefetch worker pool.
//
// Parameters:
//   - workers: the number of workers; zero or negative keeps runtime.NumCPU()
//   - queueSize: the task queue depth; zero or negative keeps the default
//
// Returns:
//   - LoaderBuilderOption: a function that applies the pool option to a loader
func WithDecodeWorkers(workers, queueSize int) LoaderBuilderOption {
	return func(l *loader) {
		if workers > 0 {
			l.decodeWorkers = workers
		}
		if queueSize > 0 {
			l.decodeQueueSize = queueSize
		}
	}
}
