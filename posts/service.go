package posts

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"gorm.io/gorm"

	"inkwell/models"
)

// PostService owns every read and write against the posts table. Handlers
// pass the acting identity into each call; the service never reads session
// state on its own.
type PostService struct {
	db *gorm.DB
}

func NewPostService(db *gorm.DB) *PostService {
	return &PostService{db: db}
}

// Save runs the save pipeline for a candidate post: title and status
// validation, read time recomputation, ownership check, then a single insert
// or update. It returns the durable id on success. Errors are surfaced to
// the caller; there are no retries. An editing call without an id takes the
// insert path: the candidate has never been persisted, so the first save
// creates it.
func (s *PostService) Save(p Post, isEditing bool, actor models.Identity) (string, error) {
	if strings.TrimSpace(p.Title) == "" {
		return "", ErrValidationFailed
	}
	if actor.ID == "" {
		return "", ErrNotOwner
	}

	p.ReadTime = EstimateReadTime(p.Content)
	if p.Status == "" {
		p.Status = StatusDraft
	} else if _, ok := ParseStatus(string(p.Status)); !ok {
		// The lenient unknown-to-draft fallback is for rows already in the
		// store; a candidate arriving through Save never writes an unknown
		// status.
		return "", fmt.Errorf("%w: unknown status %q", ErrValidationFailed, p.Status)
	}
	if p.Author == "" {
		p.Author = actor.Email
	}

	now := time.Now()

	if isEditing && p.ID != "" {
		row, err := s.fetchRow(p.ID)
		if err != nil {
			return "", err
		}
		if !OwnedBy(row.UserID, actor.ID) {
			return "", ErrNotOwner
		}
		from := StatusDraft
		if row.Status != nil {
			from, _ = ParseStatus(*row.Status)
		}
		if !IsValidTransition(from, p.Status) {
			return "", ErrValidationFailed
		}

		// The update is keyed by id AND owner: the client-side guard above
		// plus the store-side predicate. id, user_id and created_at are
		// never rewritten.
		res := s.db.Model(&models.Post{}).
			Where("id = ? AND user_id = ?", p.ID, actor.ID).
			Updates(map[string]interface{}{
				"title":      p.Title,
				"excerpt":    p.Excerpt,
				"content":    p.Content,
				"status":     string(p.Status),
				"author":     p.Author,
				"read_time":  p.ReadTime,
				"updated_at": now,
			})
		if res.Error != nil {
			return "", fmt.Errorf("store: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			// row vanished between the guard check and the update
			return "", ErrNotFound
		}

		if err := s.replaceCategories(p.ID, p.Categories); err != nil {
			return "", err
		}
		return p.ID, nil
	}

	views := int64(0)
	status := string(p.Status)
	row := models.Post{
		Title:     p.Title,
		Excerpt:   &p.Excerpt,
		Content:   &p.Content,
		Status:    &status,
		Author:    &p.Author,
		Views:     &views,
		ReadTime:  &p.ReadTime,
		UserID:    actor.ID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.db.Create(&row).Error; err != nil {
		return "", fmt.Errorf("store: %w", err)
	}
	if err := s.replaceCategories(row.ID, p.Categories); err != nil {
		return "", err
	}
	return row.ID, nil
}

// Archive moves an owned post to archived without touching any other column.
// It is the one system-initiated transition and skips title validation since
// content is unchanged.
func (s *PostService) Archive(id string, actor models.Identity) error {
	return s.setStatus(id, StatusArchived, actor)
}

// Restore brings an archived post back as a draft.
func (s *PostService) Restore(id string, actor models.Identity) error {
	return s.setStatus(id, StatusDraft, actor)
}

func (s *PostService) setStatus(id string, to Status, actor models.Identity) error {
	row, err := s.fetchRow(id)
	if err != nil {
		return err
	}
	if !OwnedBy(row.UserID, actor.ID) {
		return ErrNotOwner
	}
	from := StatusDraft
	if row.Status != nil {
		from, _ = ParseStatus(*row.Status)
	}
	if !IsValidTransition(from, to) {
		return ErrValidationFailed
	}

	// UpdateColumn leaves updated_at alone: a status flip is not an edit.
	res := s.db.Model(&models.Post{}).
		Where("id = ? AND user_id = ?", id, actor.ID).
		UpdateColumn("status", string(to))
	if res.Error != nil {
		return fmt.Errorf("store: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete permanently removes an owned post and its category memberships.
func (s *PostService) Delete(id string, actor models.Identity) error {
	row, err := s.fetchRow(id)
	if err != nil {
		return err
	}
	if !OwnedBy(row.UserID, actor.ID) {
		return ErrNotOwner
	}

	res := s.db.Where("id = ? AND user_id = ?", id, actor.ID).Delete(&models.Post{})
	if res.Error != nil {
		return fmt.Errorf("store: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}

	if err := s.db.Where("post_id = ?", id).Delete(&models.PostCategory{}).Error; err != nil {
		return fmt.Errorf("store: %w", err)
	}
	return nil
}

// IncrementViews bumps the public view counter. It is the only mutation path
// for views and is deliberately outside the ownership guard.
func (s *PostService) IncrementViews(id string) error {
	err := s.db.Model(&models.Post{}).Where("id = ?", id).
		UpdateColumn("views", gorm.Expr("COALESCE(views, 0) + 1")).Error
	if err != nil {
		return fmt.Errorf("store: %w", err)
	}
	return nil
}

// ListOwned returns every post belonging to the actor, newest first.
func (s *PostService) ListOwned(actor models.Identity) ([]Post, error) {
	var rows []models.Post
	err := s.db.Where("user_id = ?", actor.ID).
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("store: %w", err)
	}
	return s.normalizeAll(rows, actor.Email)
}

// ListPublished returns every published post, newest first. It takes no
// identity and serves unauthenticated callers.
func (s *PostService) ListPublished() ([]Post, error) {
	var rows []models.Post
	err := s.db.Where("status = ?", string(StatusPublished)).
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("store: %w", err)
	}
	return s.normalizeAll(rows, "")
}

// GetOwned fetches a single post by id, scoped to the actor.
func (s *PostService) GetOwned(id string, actor models.Identity) (Post, error) {
	var row models.Post
	err := s.db.Where("id = ? AND user_id = ?", id, actor.ID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Post{}, ErrNotFound
	}
	if err != nil {
		return Post{}, fmt.Errorf("store: %w", err)
	}
	return Normalize(row, s.categoriesOf(row.ID), actor.Email)
}

// GetPublished fetches a single published post by id, no identity required.
func (s *PostService) GetPublished(id string) (Post, error) {
	var row models.Post
	err := s.db.Where("id = ? AND status = ?", id, string(StatusPublished)).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Post{}, ErrNotFound
	}
	if err != nil {
		return Post{}, fmt.Errorf("store: %w", err)
	}
	return Normalize(row, s.categoriesOf(row.ID), "")
}

func (s *PostService) fetchRow(id string) (models.Post, error) {
	var row models.Post
	err := s.db.Where("id = ?", id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Post{}, ErrNotFound
	}
	if err != nil {
		return models.Post{}, fmt.Errorf("store: %w", err)
	}
	return row, nil
}

func (s *PostService) normalizeAll(rows []models.Post, fallbackAuthor string) ([]Post, error) {
	out := make([]Post, 0, len(rows))
	for _, row := range rows {
		p, err := Normalize(row, s.categoriesOf(row.ID), fallbackAuthor)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// categoriesOf loads the category ids of a post. A query failure is logged
// and yields an empty set; category membership is decoration on the entity
// and must not take a whole listing down.
func (s *PostService) categoriesOf(postID string) []string {
	var memberships []models.PostCategory
	if err := s.db.Where("post_id = ?", postID).Find(&memberships).Error; err != nil {
		log.Printf("loading categories for %s: %v", postID, err)
		return nil
	}
	ids := make([]string, 0, len(memberships))
	for _, m := range memberships {
		ids = append(ids, m.CategoryID)
	}
	return ids
}

// replaceCategories rewrites the post's category memberships as a set:
// existing rows are dropped and the new set inserted.
func (s *PostService) replaceCategories(postID string, categoryIDs []string) error {
	if err := s.db.Where("post_id = ?", postID).Delete(&models.PostCategory{}).Error; err != nil {
		return fmt.Errorf("store: %w", err)
	}
	seen := make(map[string]bool, len(categoryIDs))
	for _, id := range categoryIDs {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		membership := models.PostCategory{PostID: postID, CategoryID: id}
		if err := s.db.Create(&membership).Error; err != nil {
			return fmt.Errorf("store: %w", err)
		}
	}
	return nil
}
