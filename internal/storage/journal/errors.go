package journal

import "errors"

var (
	ErrNilDB         = errors.New("journal database is nil")
	ErrEntryNotFound = errors.New("journal entry not found")
	ErrBucketMissing = errors.New("journal bucket not found")
)
