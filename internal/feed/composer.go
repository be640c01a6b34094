package feed

import (
	"context"
	"strings"

	"guestbook/api/internal/store"
)

// MessageSource is the slice of the message store the composer reads.
type MessageSource interface {
	ListMessagesPage(ctx context.Context, limit, offset int) ([]store.Message, error)
	ListMessagesByAuthor(ctx context.Context, authorID string, limit, offset int) ([]store.Message, error)
	GetMessage(ctx context.Context, messageID string) (store.Message, error)
	CountMessages(ctx context.Context) (int, error)
	CountMessagesByAuthor(ctx context.Context, authorID string) (int, error)
}

// Composer turns the append-only message store into display pages.
// It never applies ignore lists; see FilterIgnored.
type Composer struct {
	source       MessageSource
	resolver     *Resolver
	creatorLabel string
}

func NewComposer(source MessageSource, creatorLabel string) *Composer {
	return &Composer{
		source:       source,
		resolver:     NewResolver(source),
		creatorLabel: strings.TrimSpace(creatorLabel),
	}
}

// ComposePage returns the requested page of the feed, newest first,
// with reply entries enriched by their immediate parent. Pagination
// totals always count the entire feed.
func (c *Composer) ComposePage(ctx context.Context, page, pageSize int) (Page, error) {
	if page < 1 {
		return Page{}, ErrInvalidPage
	}
	if pageSize < 1 {
		return Page{}, ErrInvalidPageSize
	}

	offset := (page - 1) * pageSize
	messages, err := c.source.ListMessagesPage(ctx, pageSize, offset)
	if err != nil {
		return Page{}, err
	}

	total, err := c.source.CountMessages(ctx)
	if err != nil {
		return Page{}, err
	}

	return c.compose(ctx, messages, total, page, pageSize)
}

// ComposeAuthorPage returns one page of a single author's messages,
// newest first, enriched the same way as the shared feed. Totals count
// that author's messages only.
func (c *Composer) ComposeAuthorPage(ctx context.Context, authorID string, page, pageSize int) (Page, error) {
	if page < 1 {
		return Page{}, ErrInvalidPage
	}
	if pageSize < 1 {
		return Page{}, ErrInvalidPageSize
	}

	offset := (page - 1) * pageSize
	messages, err := c.source.ListMessagesByAuthor(ctx, authorID, pageSize, offset)
	if err != nil {
		return Page{}, err
	}

	total, err := c.source.CountMessagesByAuthor(ctx, authorID)
	if err != nil {
		return Page{}, err
	}

	return c.compose(ctx, messages, total, page, pageSize)
}

// ComposeEntry builds the display form of a single message, with the
// creator flag and, for replies, the resolved parent. A freshly posted
// message renders identically here and on its feed page.
func (c *Composer) ComposeEntry(ctx context.Context, message store.Message) (Entry, error) {
	return c.buildEntry(ctx, message, map[string]*Parent{})
}

func (c *Composer) compose(ctx context.Context, messages []store.Message, total, page, pageSize int) (Page, error) {
	entries := make([]Entry, 0, len(messages))
	resolved := make(map[string]*Parent, len(messages))
	for _, message := range messages {
		entry, err := c.buildEntry(ctx, message, resolved)
		if err != nil {
			return Page{}, err
		}
		entries = append(entries, entry)
	}

	totalPages := (total + pageSize - 1) / pageSize
	return Page{
		Entries: entries,
		Pagination: Pagination{
			Page:       page,
			Limit:      pageSize,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
			HasPrev:    page > 1,
		},
	}, nil
}

// buildEntry memoizes parent lookups through resolved so a page with
// many replies to one message costs a single lookup.
func (c *Composer) buildEntry(ctx context.Context, message store.Message, resolved map[string]*Parent) (Entry, error) {
	entry := Entry{
		ID:          message.ID,
		Text:        message.Body,
		CreatedAt:   message.CreatedAt,
		AuthorLabel: message.AuthorLabel,
		AuthorID:    message.AuthorID,
		ReplyToID:   message.ReplyToID,
		IsCreator:   c.isCreator(message.AuthorLabel),
	}
	if message.ReplyToID != nil {
		parent, cached := resolved[*message.ReplyToID]
		if !cached {
			var err error
			parent, err = c.resolver.Resolve(ctx, *message.ReplyToID)
			if err != nil {
				return Entry{}, err
			}
			resolved[*message.ReplyToID] = parent
		}
		// A missing parent leaves the reply markers present and the
		// resolved fields absent.
		if parent != nil {
			entry.ReplyToText = &parent.Text
			entry.ReplyToAuthorLabel = &parent.AuthorLabel
		}
	}
	return entry, nil
}

func (c *Composer) isCreator(label string) bool {
	if c.creatorLabel == "" {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(label), c.creatorLabel)
}

// FilterIgnored narrows an already-fetched page to entries whose author
// is not on the viewer's ignore list. Matching is case-insensitive on
// author labels. Pagination metadata is deliberately left untouched: a
// filtered page may hold fewer entries than its nominal size.
func FilterIgnored(page Page, ignoredLabels []string) Page {
	if len(ignoredLabels) == 0 {
		return page
	}
	ignored := make(map[string]struct{}, len(ignoredLabels))
	for _, label := range ignoredLabels {
		ignored[strings.ToLower(strings.TrimSpace(label))] = struct{}{}
	}
	kept := make([]Entry, 0, len(page.Entries))
	for _, entry := range page.Entries {
		if _, skip := ignored[strings.ToLower(strings.TrimSpace(entry.AuthorLabel))]; skip {
			continue
		}
		kept = append(kept, entry)
	}
	page.Entries = kept
	return page
}
