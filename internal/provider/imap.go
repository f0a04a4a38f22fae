package provider

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/emersion/go-message"
	"github.com/sirupsen/logrus"

	"inbox-autopilot-go/internal/config"
)

// IMAPProvider implements MailProvider over IMAP. Messages are addressed by
// their RFC822 Message-Id header, which survives moves between mailboxes.
type IMAPProvider struct {
	mu     sync.Mutex
	client *client.Client
}

// NewIMAPProvider creates an IMAP-backed mail provider
func NewIMAPProvider(cfg *config.ProviderConfig) (*IMAPProvider, error) {
	c, err := client.DialTLS(fmt.Sprintf("%s:%d", cfg.IMAPHost, cfg.IMAPPort), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to IMAP server: %w", err)
	}

	if err := c.Login(cfg.IMAPUser, cfg.IMAPPassword); err != nil {
		c.Logout()
		return nil, fmt.Errorf("failed to login to IMAP server: %w", err)
	}

	return &IMAPProvider{client: c}, nil
}

// MoveMessage locates the message by Message-Id and moves it to the
// destination mailbox.
func (p *IMAPProvider) MoveMessage(ctx context.Context, messageID, destinationFolder string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	folder, uid, err := p.locateMessage(messageID)
	if err != nil {
		return err
	}

	if _, err := p.client.Select(folder, false); err != nil {
		return wrapIMAPError(err)
	}

	seqset := new(imap.SeqSet)
	seqset.AddNum(uid)
	if err := p.client.UidMove(seqset, destinationFolder); err != nil {
		return wrapIMAPError(err)
	}
	return nil
}

// PatchMessage applies flag changes to the located message.
func (p *IMAPProvider) PatchMessage(ctx context.Context, messageID string, patch MessagePatch) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	folder, uid, err := p.locateMessage(messageID)
	if err != nil {
		return err
	}

	if _, err := p.client.Select(folder, false); err != nil {
		return wrapIMAPError(err)
	}

	seqset := new(imap.SeqSet)
	seqset.AddNum(uid)

	apply := func(op imap.FlagsOp, flags []interface{}) error {
		if len(flags) == 0 {
			return nil
		}
		item := imap.FormatFlagsOp(op, true)
		if err := p.client.UidStore(seqset, item, flags, nil); err != nil {
			return wrapIMAPError(err)
		}
		return nil
	}

	var add, remove []interface{}
	if patch.IsRead != nil {
		if *patch.IsRead {
			add = append(add, imap.SeenFlag)
		} else {
			remove = append(remove, imap.SeenFlag)
		}
	}
	if patch.IsFlagged != nil {
		if *patch.IsFlagged {
			add = append(add, imap.FlaggedFlag)
		} else {
			remove = append(remove, imap.FlaggedFlag)
		}
	}
	// Categories map to IMAP keywords.
	if patch.Categories != nil {
		for _, category := range *patch.Categories {
			add = append(add, category)
		}
	}
	for _, category := range patch.RemoveCategories {
		remove = append(remove, category)
	}

	if err := apply(imap.AddFlags, add); err != nil {
		return err
	}
	return apply(imap.RemoveFlags, remove)
}

// ListMessages pages through a mailbox. The page token is a plain offset.
func (p *IMAPProvider) ListMessages(ctx context.Context, folder, pageToken string) (*MessagePage, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	const pageSize = 100

	offset := 0
	if pageToken != "" {
		parsed, err := strconv.Atoi(pageToken)
		if err != nil {
			return nil, fmt.Errorf("invalid page token %q: %w", pageToken, err)
		}
		offset = parsed
	}

	if _, err := p.client.Select(folder, true); err != nil {
		return nil, wrapIMAPError(err)
	}

	uids, err := p.client.UidSearch(imap.NewSearchCriteria())
	if err != nil {
		return nil, wrapIMAPError(err)
	}
	if offset >= len(uids) {
		return &MessagePage{}, nil
	}

	end := offset + pageSize
	if end > len(uids) {
		end = len(uids)
	}

	seqset := new(imap.SeqSet)
	seqset.AddNum(uids[offset:end]...)

	section := &imap.BodySectionName{BodyPartName: imap.BodyPartName{Specifier: imap.HeaderSpecifier}, Peek: true}
	items := []imap.FetchItem{imap.FetchEnvelope, imap.FetchFlags, imap.FetchInternalDate, imap.FetchUid, section.FetchItem()}

	messages := make(chan *imap.Message, pageSize)
	done := make(chan error, 1)
	go func() {
		done <- p.client.UidFetch(seqset, items, messages)
	}()

	page := &MessagePage{}
	for msg := range messages {
		summary, err := p.summarize(msg, folder, section)
		if err != nil {
			logrus.Warnf("Failed to summarize IMAP message: %v", err)
			continue
		}
		page.Messages = append(page.Messages, summary)
	}
	if err := <-done; err != nil {
		return nil, wrapIMAPError(err)
	}

	if end < len(uids) {
		page.NextPageToken = strconv.Itoa(end)
	}
	return page, nil
}

// FindOrCreateFolder resolves a mailbox by name, creating it if absent.
// Mailbox names are their own IDs in IMAP.
func (p *IMAPProvider) FindOrCreateFolder(ctx context.Context, displayName string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	mailboxes := make(chan *imap.MailboxInfo, 20)
	done := make(chan error, 1)
	go func() {
		done <- p.client.List("", "*", mailboxes)
	}()

	found := false
	for mb := range mailboxes {
		if strings.EqualFold(mb.Name, displayName) {
			found = true
		}
	}
	if err := <-done; err != nil {
		return "", wrapIMAPError(err)
	}
	if found {
		return displayName, nil
	}

	if err := p.client.Create(displayName); err != nil {
		return "", wrapIMAPError(err)
	}
	return displayName, nil
}

// Close logs out of the IMAP session.
func (p *IMAPProvider) Close() error {
	return p.client.Logout()
}

// locateMessage finds the mailbox and UID holding the given Message-Id.
func (p *IMAPProvider) locateMessage(messageID string) (string, uint32, error) {
	mailboxes := make(chan *imap.MailboxInfo, 20)
	done := make(chan error, 1)
	go func() {
		done <- p.client.List("", "*", mailboxes)
	}()

	var names []string
	for mb := range mailboxes {
		names = append(names, mb.Name)
	}
	if err := <-done; err != nil {
		return "", 0, wrapIMAPError(err)
	}

	criteria := imap.NewSearchCriteria()
	criteria.Header.Add("Message-Id", messageID)

	for _, name := range names {
		if _, err := p.client.Select(name, true); err != nil {
			continue
		}
		uids, err := p.client.UidSearch(criteria)
		if err != nil {
			continue
		}
		if len(uids) > 0 {
			return name, uids[0], nil
		}
	}

	return "", 0, &NotFoundError{Resource: messageID}
}

// summarize converts a fetched IMAP message into a MessageSummary, parsing
// the header section for the stable Message-Id.
func (p *IMAPProvider) summarize(msg *imap.Message, folder string, section *imap.BodySectionName) (MessageSummary, error) {
	summary := MessageSummary{
		Folder:     folder,
		ReceivedAt: msg.InternalDate,
	}

	if msg.Envelope != nil {
		summary.Subject = msg.Envelope.Subject
		summary.ID = msg.Envelope.MessageId
		if len(msg.Envelope.From) > 0 {
			summary.From = msg.Envelope.From[0].Address()
		}
	}

	for _, flag := range msg.Flags {
		switch flag {
		case imap.SeenFlag:
			summary.IsRead = true
		case imap.FlaggedFlag:
			summary.IsFlagged = true
		}
	}

	// Some servers omit Message-Id from the envelope; fall back to parsing
	// the header section.
	if summary.ID == "" {
		r := msg.GetBody(section)
		if r == nil {
			return summary, fmt.Errorf("no header section for message")
		}
		entity, err := message.Read(r)
		if err != nil {
			return summary, fmt.Errorf("failed to read message header: %w", err)
		}
		summary.ID = entity.Header.Get("Message-Id")
		if summary.Subject == "" {
			summary.Subject = entity.Header.Get("Subject")
		}
	}

	if summary.ID == "" {
		return summary, fmt.Errorf("message has no Message-Id")
	}
	return summary, nil
}

// wrapIMAPError converts IMAP failures into the provider taxonomy. IMAP has
// no response codes for throttling, so server text is matched the same way
// quota errors are detected on the API path.
func wrapIMAPError(err error) error {
	if err == nil {
		return nil
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "rate") || strings.Contains(msg, "throttl") || strings.Contains(msg, "too many") {
		return &RateLimitedError{}
	}
	if strings.Contains(msg, "no such") || strings.Contains(msg, "not found") || strings.Contains(msg, "nonexistent") {
		return &NotFoundError{Resource: msg}
	}
	return fmt.Errorf("IMAP error: %w", err)
}
