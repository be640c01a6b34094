// Package feed assembles display-ready pages of the guestbook.
package feed

import (
	"errors"
	"time"
)

// Entry is one display-ready feed item.
type Entry struct {
	ID                 string    `json:"id"`
	Text               string    `json:"text"`
	CreatedAt          time.Time `json:"createdAt"`
	AuthorLabel        string    `json:"authorLabel"`
	AuthorID           string    `json:"authorId"`
	ReplyToID          *string   `json:"replyToId,omitempty"`
	ReplyToText        *string   `json:"replyToText,omitempty"`
	ReplyToAuthorLabel *string   `json:"replyToAuthorLabel,omitempty"`
	IsCreator          bool      `json:"isCreator"`
}

// Pagination describes the slice a page was cut from.
type Pagination struct {
	Page       int  `json:"page"`
	Limit      int  `json:"limit"`
	Total      int  `json:"total"`
	TotalPages int  `json:"totalPages"`
	HasNext    bool `json:"hasNext"`
	HasPrev    bool `json:"hasPrev"`
}

// Page is the result of composing one feed page.
type Page struct {
	Entries    []Entry    `json:"entries"`
	Pagination Pagination `json:"pagination"`
}

var (
	ErrInvalidPage     = errors.New("page must be at least 1")
	ErrInvalidPageSize = errors.New("page size must be positive")
)
