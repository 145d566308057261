package dailysends

import "context"

// Repository persists the authoritative daily-send records.
type Repository interface {
	// Insert writes the record unless it already exists. Returns true when
	// a row was inserted; concurrent inserts for the same tuple race
	// through the primary key, exactly one wins.
	Insert(ctx context.Context, userID, groupID, sentOn string) (bool, error)

	// Exists reports whether the record is present.
	Exists(ctx context.Context, userID, groupID, sentOn string) (bool, error)
}
