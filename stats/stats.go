package stats

import (
	"log"
	"time"

	"gorm.io/gorm"

	"inkwell/models"
)

// StatsModule computes the dashboard overview for one author. Every query is
// scoped to the acting user; there are no cross-author aggregates.
type StatsModule struct {
	db *gorm.DB
}

func NewStatsModule(db *gorm.DB) *StatsModule {
	return &StatsModule{db: db}
}

type CategoryCount struct {
	Name  string `json:"name"`
	Count int64  `json:"count"`
}

type Activity struct {
	PostID string    `json:"postId"`
	Title  string    `json:"title"`
	Action string    `json:"action"`
	At     time.Time `json:"at"`
}

type Overview struct {
	TotalPosts     int64           `json:"totalPosts"`
	PublishedPosts int64           `json:"publishedPosts"`
	DraftPosts     int64           `json:"draftPosts"`
	ArchivedPosts  int64           `json:"archivedPosts"`
	TotalViews     int64           `json:"totalViews"`
	TopCategories  []CategoryCount `json:"topCategories"`
	RecentActivity []Activity      `json:"recentActivity"`
}

// Overview builds the dashboard numbers for the acting user. Failed queries
// are logged and leave their field at zero rather than failing the page.
func (s *StatsModule) Overview(actor models.Identity) Overview {
	var overview Overview

	s.countByStatus(actor.ID, &overview)
	s.sumViews(actor.ID, &overview)
	overview.TopCategories = s.topCategories(actor.ID)
	overview.RecentActivity = s.recentActivity(actor.ID)

	return overview
}

func (s *StatsModule) countByStatus(userID string, overview *Overview) {
	base := s.db.Model(&models.Post{}).Where("user_id = ?", userID)

	if err := base.Session(&gorm.Session{}).Count(&overview.TotalPosts).Error; err != nil {
		log.Printf("stats: counting posts: %v", err)
		return
	}
	base.Session(&gorm.Session{}).Where("status = ?", "published").Count(&overview.PublishedPosts)
	base.Session(&gorm.Session{}).Where("status = ?", "draft").Count(&overview.DraftPosts)
	base.Session(&gorm.Session{}).Where("status = ?", "archived").Count(&overview.ArchivedPosts)
}

func (s *StatsModule) sumViews(userID string, overview *Overview) {
	err := s.db.Model(&models.Post{}).
		Where("user_id = ?", userID).
		Select("COALESCE(SUM(views), 0)").
		Scan(&overview.TotalViews).Error
	if err != nil {
		log.Printf("stats: summing views: %v", err)
	}
}

func (s *StatsModule) topCategories(userID string) []CategoryCount {
	results := []CategoryCount{}

	err := s.db.Table("post_categories").
		Select("categories.name AS name, COUNT(*) AS count").
		Joins("JOIN categories ON categories.id = post_categories.category_id").
		Joins("JOIN posts ON posts.id = post_categories.post_id").
		Where("posts.user_id = ?", userID).
		Group("categories.name").
		Order("count DESC").
		Limit(5).
		Scan(&results).Error
	if err != nil {
		log.Printf("stats: top categories: %v", err)
	}

	return results
}

func (s *StatsModule) recentActivity(userID string) []Activity {
	var rows []models.Post

	err := s.db.Where("user_id = ?", userID).
		Order("updated_at DESC").
		Limit(5).
		Find(&rows).Error
	if err != nil {
		log.Printf("stats: recent activity: %v", err)
		return []Activity{}
	}

	activity := make([]Activity, 0, len(rows))
	for _, row := range rows {
		action := "updated"
		if !row.UpdatedAt.After(row.CreatedAt) {
			action = "created"
		}
		activity = append(activity, Activity{
			PostID: row.ID,
			Title:  row.Title,
			Action: action,
			At:     row.UpdatedAt,
		})
	}

	return activity
}
