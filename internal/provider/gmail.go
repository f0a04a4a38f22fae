package provider

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"inbox-autopilot-go/internal/config"
)

// GmailProvider implements MailProvider on the Gmail API. Folders are Gmail
// labels; moving a message swaps its folder-like labels.
type GmailProvider struct {
	service   *gmail.Service
	userEmail string

	mu             sync.Mutex
	labels         map[string]string   // display name -> label ID
	categoryLabels map[string]struct{} // label IDs applied as categories, not locations
}

// NewGmailProvider creates a Gmail-backed mail provider
func NewGmailProvider(cfg *config.ProviderConfig) (*GmailProvider, error) {
	ctx := context.Background()

	oauth2Config := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Scopes:       []string{gmail.GmailModifyScope},
		Endpoint:     google.Endpoint,
	}

	token := &oauth2.Token{
		RefreshToken: cfg.RefreshToken,
	}

	tokenSource := oauth2Config.TokenSource(ctx, token)

	service, err := gmail.NewService(ctx, option.WithTokenSource(tokenSource))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gmail service: %w", err)
	}

	return &GmailProvider{
		service:        service,
		userEmail:      cfg.UserEmail,
		labels:         make(map[string]string),
		categoryLabels: make(map[string]struct{}),
	}, nil
}

// MoveMessage swaps the message's folder-like labels for the destination.
func (p *GmailProvider) MoveMessage(ctx context.Context, messageID, destinationFolder string) error {
	destID, err := p.resolveLabelID(ctx, destinationFolder)
	if err != nil {
		return err
	}

	msg, err := p.service.Users.Messages.Get(p.userEmail, messageID).Format("minimal").Context(ctx).Do()
	if err != nil {
		return wrapGmailError(err)
	}

	var remove []string
	for _, labelID := range msg.LabelIds {
		if p.isFolderLabel(labelID) && labelID != destID {
			remove = append(remove, labelID)
		}
	}

	req := &gmail.ModifyMessageRequest{
		AddLabelIds:    []string{destID},
		RemoveLabelIds: remove,
	}
	if _, err := p.service.Users.Messages.Modify(p.userEmail, messageID, req).Context(ctx).Do(); err != nil {
		return wrapGmailError(err)
	}
	return nil
}

// PatchMessage applies read/flag/category changes via label modification.
func (p *GmailProvider) PatchMessage(ctx context.Context, messageID string, patch MessagePatch) error {
	req := &gmail.ModifyMessageRequest{}

	if patch.IsRead != nil {
		if *patch.IsRead {
			req.RemoveLabelIds = append(req.RemoveLabelIds, "UNREAD")
		} else {
			req.AddLabelIds = append(req.AddLabelIds, "UNREAD")
		}
	}
	if patch.IsFlagged != nil {
		if *patch.IsFlagged {
			req.AddLabelIds = append(req.AddLabelIds, "STARRED")
		} else {
			req.RemoveLabelIds = append(req.RemoveLabelIds, "STARRED")
		}
	}
	if patch.Categories != nil {
		for _, category := range *patch.Categories {
			labelID, err := p.resolveLabelID(ctx, category)
			if err != nil {
				return err
			}
			p.markCategoryLabel(labelID)
			req.AddLabelIds = append(req.AddLabelIds, labelID)
		}
	}
	for _, category := range patch.RemoveCategories {
		labelID, err := p.resolveLabelID(ctx, category)
		if err != nil {
			return err
		}
		p.markCategoryLabel(labelID)
		req.RemoveLabelIds = append(req.RemoveLabelIds, labelID)
	}

	if len(req.AddLabelIds) == 0 && len(req.RemoveLabelIds) == 0 {
		return nil
	}

	if _, err := p.service.Users.Messages.Modify(p.userEmail, messageID, req).Context(ctx).Do(); err != nil {
		return wrapGmailError(err)
	}
	return nil
}

// ListMessages pages through a label's messages.
func (p *GmailProvider) ListMessages(ctx context.Context, folder, pageToken string) (*MessagePage, error) {
	labelID, err := p.resolveLabelID(ctx, folder)
	if err != nil {
		return nil, err
	}

	call := p.service.Users.Messages.List(p.userEmail).LabelIds(labelID).MaxResults(100).Context(ctx)
	if pageToken != "" {
		call = call.PageToken(pageToken)
	}
	resp, err := call.Do()
	if err != nil {
		return nil, wrapGmailError(err)
	}

	page := &MessagePage{NextPageToken: resp.NextPageToken}
	for _, ref := range resp.Messages {
		msg, err := p.service.Users.Messages.Get(p.userEmail, ref.Id).Format("metadata").MetadataHeaders("Subject", "From").Context(ctx).Do()
		if err != nil {
			return nil, wrapGmailError(err)
		}

		summary := MessageSummary{
			ID:         msg.Id,
			Folder:     folder,
			ReceivedAt: time.UnixMilli(msg.InternalDate),
			IsRead:     true,
		}
		for _, labelID := range msg.LabelIds {
			switch labelID {
			case "UNREAD":
				summary.IsRead = false
			case "STARRED":
				summary.IsFlagged = true
			}
		}
		for _, header := range msg.Payload.Headers {
			switch header.Name {
			case "Subject":
				summary.Subject = header.Value
			case "From":
				summary.From = header.Value
			}
		}
		page.Messages = append(page.Messages, summary)
	}
	return page, nil
}

// FindOrCreateFolder resolves a label by display name, creating it if absent.
func (p *GmailProvider) FindOrCreateFolder(ctx context.Context, displayName string) (string, error) {
	return p.resolveLabelID(ctx, displayName)
}

// resolveLabelID looks up a label ID by name, creating the label on a miss.
// The cache fill is idempotent: a concurrent creator finds the label exists.
func (p *GmailProvider) resolveLabelID(ctx context.Context, displayName string) (string, error) {
	p.mu.Lock()
	if id, ok := p.labels[displayName]; ok {
		p.mu.Unlock()
		return id, nil
	}
	p.mu.Unlock()

	resp, err := p.service.Users.Labels.List(p.userEmail).Context(ctx).Do()
	if err != nil {
		return "", wrapGmailError(err)
	}
	for _, label := range resp.Labels {
		if strings.EqualFold(label.Name, displayName) {
			p.storeLabel(displayName, label.Id)
			return label.Id, nil
		}
	}

	created, err := p.service.Users.Labels.Create(p.userEmail, &gmail.Label{Name: displayName}).Context(ctx).Do()
	if err != nil {
		return "", wrapGmailError(err)
	}
	p.storeLabel(displayName, created.Id)
	return created.Id, nil
}

func (p *GmailProvider) storeLabel(name, id string) {
	p.mu.Lock()
	p.labels[name] = id
	p.mu.Unlock()
}

// markCategoryLabel records that a label ID is used as a category. Moves
// must not strip category labels the automation itself applied.
func (p *GmailProvider) markCategoryLabel(id string) {
	p.mu.Lock()
	p.categoryLabels[id] = struct{}{}
	p.mu.Unlock()
}

// isFolderLabel reports whether a label acts as a message location rather
// than an annotation.
func (p *GmailProvider) isFolderLabel(labelID string) bool {
	switch labelID {
	case "UNREAD", "STARRED", "IMPORTANT":
		return false
	}
	p.mu.Lock()
	_, isCategory := p.categoryLabels[labelID]
	p.mu.Unlock()
	return !isCategory
}

// wrapGmailError converts Gmail API failures into the provider taxonomy.
func wrapGmailError(err error) error {
	if apiErr, ok := err.(*googleapi.Error); ok {
		switch apiErr.Code {
		case 404:
			return &NotFoundError{Resource: apiErr.Message}
		case 429:
			return &RateLimitedError{}
		case 403:
			// Gmail reports quota exhaustion as 403 with a rate reason.
			msg := strings.ToLower(apiErr.Message)
			if strings.Contains(msg, "quota") || strings.Contains(msg, "rate") {
				return &RateLimitedError{}
			}
		}
	}
	return fmt.Errorf("gmail API error: %w", err)
}
