package ledger

import (
	"fmt"
	"time"
)

// Keys is the store layout of one enforcement scope. Every key carries the scope prefix.
type Keys struct {
	Scope string
}

func (k Keys) Poster(postID string) string {
	return fmt.Sprintf("%s:post:%s:poster", k.Scope, postID)
}

func (k Keys) Interacted(postID string) string {
	return fmt.Sprintf("%s:post:%s:interacted", k.Scope, postID)
}

func (k Keys) Index() string {
	return fmt.Sprintf("%s:posts_last_window", k.Scope)
}

// Counter is the daily counter of userID for the UTC calendar day of at.
func (k Keys) Counter(at time.Time, userID string) string {
	return fmt.Sprintf("%s:cnt:%s:%s", k.Scope, at.UTC().Format(time.DateOnly), userID)
}

func (k Keys) Grace() string {
	return fmt.Sprintf("%s:enforce_after", k.Scope)
}
