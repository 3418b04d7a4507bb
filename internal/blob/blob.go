// Package blob abstracts the binary store documents live in. The platform
// core never serves bytes itself; uploads produce an opaque locator stored on
// the document row, downloads exchange the locator for a short-lived URL.
package blob

import (
	"context"
	"time"
)

// Meta travels with the bytes so the store can set object headers.
type Meta struct {
	Filename    string
	ContentType string
}

// Store is implemented by the object-storage adapter. Locators are opaque to
// callers; only the store that minted one can sign it.
type Store interface {
	// Put stores the payload and returns its locator.
	Put(ctx context.Context, payload []byte, meta Meta) (string, error)

	// Sign returns a URL granting read access to the locator for ttl.
	Sign(ctx context.Context, locator string, ttl time.Duration) (string, error)
}
