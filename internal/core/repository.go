// Package core defines the essential interfaces and data structures that form the
// backbone of the application. These components are designed to be abstract,
// allowing for flexible and decoupled implementations of the application's logic.
package core

import "time"

// IndexStatus is the lifecycle state of a Repository's index.
type IndexStatus string

const (
	IndexPending  IndexStatus = "pending"
	IndexIndexing IndexStatus = "indexing"
	IndexReady    IndexStatus = "ready"
	IndexFailed   IndexStatus = "failed"
)

// Repository is the durable identity `(owner, name)` under which scans,
// indexes, and answers are grouped. Only one indexing operation per
// repository may be in progress at a time; callers enforce this with the
// row-level lock obtained in internal/storage.
type Repository struct {
	ID             int64
	Owner          string
	Name           string
	DefaultBranch  string
	InstallationID int64 // 0 when connected by public URL rather than app install
	IndexStatus    IndexStatus
	LastIndexedSHA string
	FileCount      int
	SymbolCount    int
	DeletedAt      *time.Time // soft-delete tombstone
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// FullName returns the canonical "owner/name" identity string.
func (r *Repository) FullName() string {
	return r.Owner + "/" + r.Name
}
