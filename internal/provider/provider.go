// Package provider wraps the upstream mail service. Implementations must
// surface typed not-found and rate-limited errors; the staging sweep and the
// undo subsystem branch on that distinction.
package provider

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// MessagePatch is a partial update to a message. Nil fields are untouched.
// Categories lists labels to add; RemoveCategories lists labels to take off.
// Removal is explicit rather than implied by an empty add list so that undo
// can strip exactly the categories it recorded applying.
type MessagePatch struct {
	IsRead           *bool
	IsFlagged        *bool
	Categories       *[]string
	RemoveCategories []string
}

// MessageSummary is the metadata returned when listing a folder.
type MessageSummary struct {
	ID         string
	Subject    string
	From       string
	Folder     string
	ReceivedAt time.Time
	IsRead     bool
	IsFlagged  bool
}

// MessagePage is one page of a folder listing.
type MessagePage struct {
	Messages      []MessageSummary
	NextPageToken string
}

// MailProvider is the upstream mail service surface this core depends on.
type MailProvider interface {
	// MoveMessage relocates a message to the named folder.
	MoveMessage(ctx context.Context, messageID, destinationFolder string) error
	// PatchMessage applies a partial update to a message.
	PatchMessage(ctx context.Context, messageID string, patch MessagePatch) error
	// ListMessages pages through a folder. An empty pageToken starts over.
	ListMessages(ctx context.Context, folder, pageToken string) (*MessagePage, error)
	// FindOrCreateFolder resolves a folder by display name, creating it if
	// absent, and returns its provider-side ID.
	FindOrCreateFolder(ctx context.Context, displayName string) (string, error)
}

// NotFoundError means the message or folder no longer exists upstream.
type NotFoundError struct {
	Resource string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("upstream resource not found: %s", e.Resource)
}

// RateLimitedError means the upstream service refused the call; the work is
// deferred to the next sweep rather than failed.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("upstream rate limited, retry after %s", e.RetryAfter)
	}
	return "upstream rate limited"
}

// IsNotFound reports whether err is (or wraps) an upstream not-found.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsRateLimited reports whether err is (or wraps) an upstream rate limit.
func IsRateLimited(err error) bool {
	var rl *RateLimitedError
	return errors.As(err, &rl)
}
