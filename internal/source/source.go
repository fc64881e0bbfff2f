// Package source implements the fetch collaborators the engine consumes
// configuration through: a file source with optional watch, and an HTTP
// source that polls with ETag revalidation. The Refresher drives a source
// into the snapshot store; rejected payloads never disturb the snapshot
// currently being served.
package source

import (
	"context"
	"errors"
)

// ErrNotModified signals that the upstream payload has not changed since the
// last fetch. The refresher treats it as a no-op, not a failure.
var ErrNotModified = errors.New("configuration not modified")

// Payload is one raw configuration document plus the validator the transport
// attached to it.
type Payload struct {
	Body []byte
	ETag string
}

// Source fetches raw configuration payloads.
type Source interface {
	// Fetch returns the current payload, or ErrNotModified when the upstream
	// document is unchanged since the previous successful Fetch.
	Fetch(ctx context.Context) (*Payload, error)
}

// Watcher is implemented by sources that can push change hints. The channel
// closes when ctx is cancelled; a hint only means "fetch now", the payload
// still goes through Fetch.
type Watcher interface {
	Watch(ctx context.Context) (<-chan struct{}, error)
}
