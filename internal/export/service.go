package export

import (
	"context"
	"fmt"
	"time"

	"guestbook/api/internal/feed"
)

// FeedSource provides the pages the exporter renders.
type FeedSource interface {
	ComposePage(ctx context.Context, page, pageSize int) (feed.Page, error)
}

// Service renders guestbook feed pages as downloadable archives.
type Service struct {
	source FeedSource
	title  string
	now    func() time.Time
}

// NewService creates a new export service
func NewService(source FeedSource) *Service {
	return &Service{
		source: source,
		title:  "Guestbook",
		now:    time.Now,
	}
}

// Export generates an export of one feed page in the requested format.
// The export is the unfiltered feed; per-viewer ignore lists never apply.
func (s *Service) Export(ctx context.Context, req Request) (*Result, error) {
	page, err := s.source.ComposePage(ctx, req.Page, req.PageSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrContentUnavailable, err)
	}

	data := TemplateData{
		Title:       s.title,
		Page:        page.Pagination.Page,
		TotalPages:  page.Pagination.TotalPages,
		GeneratedAt: s.now().UTC(),
		Entries:     make([]TemplateEntry, 0, len(page.Entries)),
	}
	for _, entry := range page.Entries {
		te := TemplateEntry{
			AuthorLabel: entry.AuthorLabel,
			IsCreator:   entry.IsCreator,
			CreatedAt:   entry.CreatedAt,
			Text:        entry.Text,
		}
		if entry.ReplyToAuthorLabel != nil {
			te.ReplyToAuthorLabel = *entry.ReplyToAuthorLabel
		}
		if entry.ReplyToText != nil {
			te.ReplyToText = *entry.ReplyToText
		}
		data.Entries = append(data.Entries, te)
	}

	html, err := RenderFeedHTML(data)
	if err != nil {
		return nil, fmt.Errorf("render template: %w", err)
	}

	switch req.Format {
	case FormatHTML:
		return &Result{
			Data:     []byte(html),
			Filename: fmt.Sprintf("%s-page-%d.html", sanitizeFilename(s.title), data.Page),
			MimeType: "text/html; charset=utf-8",
		}, nil
	case FormatPDF:
		return exportPDF(html, fmt.Sprintf("%s page %d", s.title, data.Page))
	default:
		return nil, fmt.Errorf("unsupported format: %s", req.Format)
	}
}
