package interfaces

import "context"

// SnapshotStore persists small named JSON documents (ledgers, settings, item
// lists). Every Save replaces the whole document.
type SnapshotStore interface {
	// Load returns the stored bytes, or nil without error when the document does
	// not exist
	Load(ctx context.Context, name string) ([]byte, error)

	// Save replaces the document atomically where the backend allows it
	Save(ctx context.Context, name string, data []byte) error

	// Close releases backend resources
	Close() error
}
