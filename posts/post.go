package posts

import (
	"errors"
	"time"

	"inkwell/models"
)

// Status is the closed lifecycle set for a post.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusPublished Status = "published"
	StatusArchived  Status = "archived"
)

// ParseStatus maps a string onto the status set. The boolean reports whether
// the input named a known status; callers that read untrusted rows fall back
// to draft when it is false.
func ParseStatus(s string) (Status, bool) {
	switch Status(s) {
	case StatusDraft, StatusPublished, StatusArchived:
		return Status(s), true
	}
	return StatusDraft, false
}

var (
	ErrValidationFailed = errors.New("posts: title must not be empty")
	ErrNotOwner         = errors.New("posts: post belongs to another user")
	ErrNotFound         = errors.New("posts: post not found")
	ErrMalformedRow     = errors.New("posts: malformed post row")
)

// Post is the normalized entity handed to views. Raw rows become a Post only
// through Normalize, so the default policy lives in exactly one place.
type Post struct {
	ID         string   `json:"id"`
	Title      string   `json:"title"`
	Excerpt    string   `json:"excerpt"`
	Content    string   `json:"content"`
	Author     string   `json:"author"`
	Date       string   `json:"date"`
	Status     Status   `json:"status"`
	Categories []string `json:"categories"`
	Views      int64    `json:"views"`
	ReadTime   int      `json:"readTime"`
	UserID     string   `json:"user_id"`
}

const fallbackAuthorName = "Unknown"

// NewDraft is the in-memory template for a post that has never been saved:
// no id, draft status, today's date. It becomes durable on first save.
func NewDraft(actor models.Identity) Post {
	author := actor.Email
	if author == "" {
		author = fallbackAuthorName
	}
	return Post{
		Author:     author,
		Date:       time.Now().Format("2006-01-02"),
		Status:     StatusDraft,
		Categories: []string{},
		ReadTime:   1,
	}
}

// Normalize turns a raw posts row into a fully populated Post. It is total
// over missing fields: empty strings for text, draft for missing or unknown
// status, 0 views, a read time of at least one minute, and fallbackAuthor
// (or "Unknown") when the row carries no author. It fails only on a row that
// claims to be persisted but has no id.
func Normalize(row models.Post, categories []string, fallbackAuthor string) (Post, error) {
	if row.ID == "" {
		return Post{}, ErrMalformedRow
	}

	p := Post{
		ID:         row.ID,
		Title:      row.Title,
		Status:     StatusDraft,
		Categories: []string{},
		ReadTime:   1,
		UserID:     row.UserID,
	}

	if row.Excerpt != nil {
		p.Excerpt = *row.Excerpt
	}
	if row.Content != nil {
		p.Content = *row.Content
	}
	if row.Status != nil {
		p.Status, _ = ParseStatus(*row.Status)
	}
	if row.Author != nil && *row.Author != "" {
		p.Author = *row.Author
	} else if fallbackAuthor != "" {
		p.Author = fallbackAuthor
	} else {
		p.Author = fallbackAuthorName
	}
	if row.Views != nil && *row.Views > 0 {
		p.Views = *row.Views
	}
	if row.ReadTime != nil && *row.ReadTime >= 1 {
		p.ReadTime = *row.ReadTime
	}
	if !row.CreatedAt.IsZero() {
		p.Date = row.CreatedAt.Format("2006-01-02")
	}
	if len(categories) > 0 {
		p.Categories = categories
	}

	return p, nil
}
