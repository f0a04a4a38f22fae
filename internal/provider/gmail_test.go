package provider

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/api/googleapi"
)

func TestIsFolderLabelExcludesCategories(t *testing.T) {
	p := &GmailProvider{
		labels:         make(map[string]string),
		categoryLabels: make(map[string]struct{}),
	}

	// System annotation labels are never locations.
	assert.False(t, p.isFolderLabel("UNREAD"))
	assert.False(t, p.isFolderLabel("STARRED"))
	assert.False(t, p.isFolderLabel("IMPORTANT"))

	// An unknown custom label is treated as a location.
	assert.True(t, p.isFolderLabel("Label_42"))

	// Once a label has been applied as a category, a later move must not
	// strip it.
	p.markCategoryLabel("Label_42")
	assert.False(t, p.isFolderLabel("Label_42"))
	assert.True(t, p.isFolderLabel("Label_7"))
}

func TestWrapGmailError(t *testing.T) {
	assert.True(t, IsNotFound(wrapGmailError(&googleapi.Error{Code: 404, Message: "message not found"})))
	assert.True(t, IsRateLimited(wrapGmailError(&googleapi.Error{Code: 429})))
	assert.True(t, IsRateLimited(wrapGmailError(&googleapi.Error{Code: 403, Message: "User-rate limit exceeded"})))

	err := wrapGmailError(errors.New("connection reset"))
	assert.False(t, IsNotFound(err))
	assert.False(t, IsRateLimited(err))
}
