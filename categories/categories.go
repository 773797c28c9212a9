package categories

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gosimple/slug"
	"gorm.io/gorm"

	"inkwell/models"
)

var (
	ErrNameRequired = errors.New("categories: name must not be empty")
	ErrNotFound     = errors.New("categories: category not found")
)

// CategoryService manages the category table and the post membership rows.
type CategoryService struct {
	db *gorm.DB
}

func NewCategoryService(db *gorm.DB) *CategoryService {
	return &CategoryService{db: db}
}

// Create adds a category. The slug is derived from the name when the caller
// does not provide one; a provided slug is still normalized.
func (s *CategoryService) Create(name, slugValue, description string) (models.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.Category{}, ErrNameRequired
	}
	if slugValue == "" {
		slugValue = name
	}

	cat := models.Category{
		Name:        name,
		Slug:        slug.Make(slugValue),
		Description: description,
	}
	if err := s.db.Create(&cat).Error; err != nil {
		return models.Category{}, fmt.Errorf("store: %w", err)
	}
	return cat, nil
}

// Update rewrites name, slug and description of an existing category.
func (s *CategoryService) Update(id, name, slugValue, description string) (models.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.Category{}, ErrNameRequired
	}

	var cat models.Category
	err := s.db.Where("id = ?", id).First(&cat).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Category{}, ErrNotFound
	}
	if err != nil {
		return models.Category{}, fmt.Errorf("store: %w", err)
	}

	if slugValue == "" {
		slugValue = name
	}
	cat.Name = name
	cat.Slug = slug.Make(slugValue)
	cat.Description = description

	if err := s.db.Save(&cat).Error; err != nil {
		return models.Category{}, fmt.Errorf("store: %w", err)
	}
	return cat, nil
}

// Delete removes a category and its post memberships. Posts themselves are
// untouched.
func (s *CategoryService) Delete(id string) error {
	res := s.db.Where("id = ?", id).Delete(&models.Category{})
	if res.Error != nil {
		return fmt.Errorf("store: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}

	if err := s.db.Where("category_id = ?", id).Delete(&models.PostCategory{}).Error; err != nil {
		return fmt.Errorf("store: %w", err)
	}
	return nil
}

// List returns categories matching the search term on name or description,
// with member counts refreshed from the membership table. Counts are
// informational; they are not kept transactionally consistent.
func (s *CategoryService) List(searchTerm string) ([]models.Category, error) {
	query := s.db.Model(&models.Category{}).Order("name ASC")
	if searchTerm != "" {
		like := "%" + searchTerm + "%"
		query = query.Where("name LIKE ? OR description LIKE ?", like, like)
	}

	var cats []models.Category
	if err := query.Find(&cats).Error; err != nil {
		return nil, fmt.Errorf("store: %w", err)
	}

	for i := range cats {
		var count int64
		s.db.Model(&models.PostCategory{}).Where("category_id = ?", cats[i].ID).Count(&count)
		if count != cats[i].Count {
			cats[i].Count = count
			s.db.Model(&models.Category{}).Where("id = ?", cats[i].ID).UpdateColumn("count", count)
		}
	}
	return cats, nil
}

// Get fetches a single category by id.
func (s *CategoryService) Get(id string) (models.Category, error) {
	var cat models.Category
	err := s.db.Where("id = ?", id).First(&cat).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Category{}, ErrNotFound
	}
	if err != nil {
		return models.Category{}, fmt.Errorf("store: %w", err)
	}
	return cat, nil
}
