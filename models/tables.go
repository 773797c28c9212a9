package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Identity is the acting user as seen by every core operation. Modules pass
// it explicitly; nothing below the HTTP layer reads the session.
type Identity struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type User struct {
	ID                     string `gorm:"primaryKey" json:"id"`
	PasswordHash           string `gorm:"not null" json:"-"` // json:"-" prevents password from being exposed in API
	Email                  string `gorm:"unique;not null" json:"email"`
	EmailVerified          bool   `gorm:"default:false" json:"email_verified"`
	EmailVerificationToken string `json:"-"` // token for email verification
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

// Post is the raw posts row. The content columns are nullable on purpose:
// rows written by older clients may miss any of them, and posts.Normalize is
// the single place where defaults are applied. Handlers never touch a raw
// row directly.
type Post struct {
	ID        string    `gorm:"primaryKey" json:"id"`
	Title     string    `gorm:"not null" json:"title"`
	Excerpt   *string   `gorm:"type:text" json:"excerpt,omitempty"`
	Content   *string   `gorm:"type:text" json:"content,omitempty"`
	Status    *string   `gorm:"index" json:"status,omitempty"`
	Author    *string   `json:"author,omitempty"`
	Views     *int64    `json:"views,omitempty"`
	ReadTime  *int      `json:"read_time,omitempty"`
	UserID    string    `gorm:"not null;index" json:"user_id"` // set once at creation, never reassigned
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate assigns the durable id. Callers must not pre-set it; an id
// exists only once the store has accepted the row.
func (p *Post) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

type Category struct {
	ID          string `gorm:"primaryKey" json:"id"`
	Name        string `gorm:"unique;not null" json:"name"`
	Slug        string `gorm:"unique;not null;index" json:"slug"`
	Description string `gorm:"type:text" json:"description"`
	Count       int64  `json:"count"` // cached member count, informational only
}

func (c *Category) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

type PostCategory struct {
	ID         uint   `gorm:"primaryKey"`
	PostID     string `gorm:"not null;index" json:"post_id"`
	CategoryID string `gorm:"not null;index" json:"category_id"`
}
