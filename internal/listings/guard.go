package listings

import "errors"

// ErrNotOwner is returned when an authenticated user attempts to mutate a
// listing owned by someone else.
var ErrNotOwner = errors.New("not the owner of this listing")

// ValidationError carries per-field constraint violations out of the service
// so the handler can render them.
type ValidationError struct {
	Fields map[string][]string
}

func (e *ValidationError) Error() string {
	return "listing fields failed validation"
}

// CanMutate reports whether the given user may update or delete the listing.
// It is a pure predicate over the in-memory record so ownership rules can be
// tested without a database.
func CanMutate(userID string, listing *Listing) bool {
	if listing == nil {
		return false
	}
	return listing.UserID == userID
}
