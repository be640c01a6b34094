package feed

import (
	"context"

	"guestbook/api/internal/store"
)

// Parent carries the fields of a reply's immediate parent needed for
// display. Only the direct parent is resolved, never the whole chain.
type Parent struct {
	Text        string
	AuthorLabel string
}

// Resolver looks up reply parents, one lookup per reply entry.
type Resolver struct {
	source MessageSource
}

func NewResolver(source MessageSource) *Resolver {
	return &Resolver{source: source}
}

// Resolve returns the parent message's text and author label, or nil if
// the parent does not exist. The referential invariant makes a missing
// parent unexpected; it is tolerated rather than failed.
func (r *Resolver) Resolve(ctx context.Context, replyToID string) (*Parent, error) {
	message, err := r.source.GetMessage(ctx, replyToID)
	if err != nil {
		if store.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &Parent{Text: message.Body, AuthorLabel: message.AuthorLabel}, nil
}
