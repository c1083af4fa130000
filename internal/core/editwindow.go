package core

import "time"

// EditWindow is how long after creation a transaction may be updated or deleted.
const EditWindow = 12 * time.Hour

// AuthorizeEdit returns ErrEditWindowExpired once more than EditWindow has
// elapsed since createdAt. Exactly twelve hours is still allowed.
func AuthorizeEdit(createdAt, now time.Time) error {
	if now.Sub(createdAt) > EditWindow {
		return ErrEditWindowExpired
	}
	return nil
}
