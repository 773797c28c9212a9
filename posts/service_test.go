package posts

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"inkwell/models"
)

func setupTestDB() *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		panic("failed to connect database")
	}

	db.AutoMigrate(&models.User{}, &models.Post{}, &models.Category{}, &models.PostCategory{})
	return db
}

var (
	ann = models.Identity{ID: "user-ann", Email: "ann@example.com"}
	ben = models.Identity{ID: "user-ben", Email: "ben@example.com"}
)

func createTestPost(db *gorm.DB, owner models.Identity, status, title string) *models.Post {
	content := "some content"
	views := int64(10)
	readTime := 3
	row := &models.Post{
		Title:     title,
		Content:   &content,
		Status:    &status,
		Author:    &owner.Email,
		Views:     &views,
		ReadTime:  &readTime,
		UserID:    owner.ID,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	db.Create(row)
	return row
}

func TestSave_EmptyTitle(t *testing.T) {
	db := setupTestDB()
	svc := NewPostService(db)

	_, err := svc.Save(Post{Title: "   "}, false, ann)

	assert.ErrorIs(t, err, ErrValidationFailed)

	var count int64
	db.Model(&models.Post{}).Count(&count)
	assert.Equal(t, int64(0), count)
}

func TestSave_InsertStampsOwnerAndAssignsID(t *testing.T) {
	db := setupTestDB()
	svc := NewPostService(db)

	candidate := NewDraft(ann)
	candidate.Title = "First Post"
	candidate.Content = "hello world"

	id, err := svc.Save(candidate, false, ann)

	assert.NoError(t, err)
	assert.NotEmpty(t, id)

	var row models.Post
	assert.NoError(t, db.First(&row, "id = ?", id).Error)
	assert.Equal(t, ann.ID, row.UserID)
	assert.Equal(t, "draft", *row.Status)
	assert.Equal(t, int64(0), *row.Views)
	assert.Equal(t, 1, *row.ReadTime)
}

func TestSave_InsertComputesReadTime(t *testing.T) {
	db := setupTestDB()
	svc := NewPostService(db)

	candidate := NewDraft(ann)
	candidate.Title = "Long Read"
	candidate.Content = strings.TrimSpace(strings.Repeat("word ", 450))

	id, err := svc.Save(candidate, false, ann)

	assert.NoError(t, err)

	var row models.Post
	db.First(&row, "id = ?", id)
	assert.Equal(t, 3, *row.ReadTime)
}

func TestSave_UpdateNotOwner(t *testing.T) {
	db := setupTestDB()
	svc := NewPostService(db)

	row := createTestPost(db, ann, "draft", "Ann's Post")

	candidate := Post{ID: row.ID, Title: "Hijacked", Status: StatusDraft}
	_, err := svc.Save(candidate, true, ben)

	assert.ErrorIs(t, err, ErrNotOwner)

	var unchanged models.Post
	db.First(&unchanged, "id = ?", row.ID)
	assert.Equal(t, "Ann's Post", unchanged.Title)
}

func TestSave_UpdateKeepsOwnerAndCreationDate(t *testing.T) {
	db := setupTestDB()
	svc := NewPostService(db)

	row := createTestPost(db, ann, "draft", "Original")
	created := row.CreatedAt

	candidate := Post{
		ID:      row.ID,
		Title:   "Edited",
		Content: "new content body",
		Status:  StatusPublished,
	}
	id, err := svc.Save(candidate, true, ann)

	assert.NoError(t, err)
	assert.Equal(t, row.ID, id)

	var updated models.Post
	db.First(&updated, "id = ?", row.ID)
	assert.Equal(t, "Edited", updated.Title)
	assert.Equal(t, "published", *updated.Status)
	assert.Equal(t, ann.ID, updated.UserID)
	assert.Equal(t, created.Unix(), updated.CreatedAt.Unix())
}

func TestSave_UpdateMissingRow(t *testing.T) {
	db := setupTestDB()
	svc := NewPostService(db)

	candidate := Post{ID: "no-such-id", Title: "Ghost"}
	_, err := svc.Save(candidate, true, ann)

	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSave_ReplacesCategories(t *testing.T) {
	db := setupTestDB()
	svc := NewPostService(db)

	candidate := NewDraft(ann)
	candidate.Title = "Categorized"
	candidate.Categories = []string{"cat-1", "cat-2", "cat-2"}

	id, err := svc.Save(candidate, false, ann)
	assert.NoError(t, err)

	var memberships []models.PostCategory
	db.Where("post_id = ?", id).Find(&memberships)
	assert.Len(t, memberships, 2)

	candidate.ID = id
	candidate.Categories = []string{"cat-3"}
	_, err = svc.Save(candidate, true, ann)
	assert.NoError(t, err)

	db.Where("post_id = ?", id).Find(&memberships)
	assert.Len(t, memberships, 1)
	assert.Equal(t, "cat-3", memberships[0].CategoryID)
}

func TestArchive_SetsStatusOnly(t *testing.T) {
	db := setupTestDB()
	svc := NewPostService(db)

	row := createTestPost(db, ann, "published", "To Archive")

	err := svc.Archive(row.ID, ann)

	assert.NoError(t, err)

	var archived models.Post
	db.First(&archived, "id = ?", row.ID)
	assert.Equal(t, "archived", *archived.Status)
	assert.Equal(t, "To Archive", archived.Title)
	assert.Equal(t, "some content", *archived.Content)
	assert.Equal(t, int64(10), *archived.Views)
	assert.Equal(t, ann.ID, archived.UserID)
}

func TestArchive_NotOwner(t *testing.T) {
	db := setupTestDB()
	svc := NewPostService(db)

	row := createTestPost(db, ann, "published", "Ann's Post")

	err := svc.Archive(row.ID, ben)

	assert.ErrorIs(t, err, ErrNotOwner)

	var unchanged models.Post
	db.First(&unchanged, "id = ?", row.ID)
	assert.Equal(t, "published", *unchanged.Status)
}

func TestArchive_Missing(t *testing.T) {
	db := setupTestDB()
	svc := NewPostService(db)

	err := svc.Archive("no-such-id", ann)

	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRestore_BringsBackAsDraft(t *testing.T) {
	db := setupTestDB()
	svc := NewPostService(db)

	row := createTestPost(db, ann, "archived", "Buried")

	err := svc.Restore(row.ID, ann)

	assert.NoError(t, err)

	var restored models.Post
	db.First(&restored, "id = ?", row.ID)
	assert.Equal(t, "draft", *restored.Status)
}

func TestDelete(t *testing.T) {
	db := setupTestDB()
	svc := NewPostService(db)

	row := createTestPost(db, ann, "draft", "Doomed")
	db.Create(&models.PostCategory{PostID: row.ID, CategoryID: "cat-1"})

	err := svc.Delete(row.ID, ann)

	assert.NoError(t, err)

	var count int64
	db.Model(&models.Post{}).Where("id = ?", row.ID).Count(&count)
	assert.Equal(t, int64(0), count)

	db.Model(&models.PostCategory{}).Where("post_id = ?", row.ID).Count(&count)
	assert.Equal(t, int64(0), count)
}

func TestDelete_NotOwner(t *testing.T) {
	db := setupTestDB()
	svc := NewPostService(db)

	row := createTestPost(db, ann, "draft", "Ann's Post")

	err := svc.Delete(row.ID, ben)

	assert.ErrorIs(t, err, ErrNotOwner)

	var count int64
	db.Model(&models.Post{}).Where("id = ?", row.ID).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestIncrementViews(t *testing.T) {
	db := setupTestDB()
	svc := NewPostService(db)

	row := &models.Post{Title: "Viewed", UserID: ann.ID}
	db.Create(row) // views column left NULL

	assert.NoError(t, svc.IncrementViews(row.ID))
	assert.NoError(t, svc.IncrementViews(row.ID))

	var updated models.Post
	db.First(&updated, "id = ?", row.ID)
	assert.Equal(t, int64(2), *updated.Views)
}

func TestListOwned_ScopedAndOrdered(t *testing.T) {
	db := setupTestDB()
	svc := NewPostService(db)

	older := createTestPost(db, ann, "draft", "Older")
	db.Model(older).UpdateColumn("created_at", time.Now().Add(-2*time.Hour))
	newer := createTestPost(db, ann, "published", "Newer")
	db.Model(newer).UpdateColumn("created_at", time.Now().Add(-1*time.Hour))
	createTestPost(db, ben, "published", "Ben's Post")

	items, err := svc.ListOwned(ann)

	assert.NoError(t, err)
	assert.Len(t, items, 2)
	assert.Equal(t, "Newer", items[0].Title)
	assert.Equal(t, "Older", items[1].Title)
}

func TestListPublished_OnlyPublished(t *testing.T) {
	db := setupTestDB()
	svc := NewPostService(db)

	createTestPost(db, ann, "published", "Visible")
	createTestPost(db, ann, "draft", "Hidden Draft")
	createTestPost(db, ben, "archived", "Hidden Archive")

	items, err := svc.ListPublished()

	assert.NoError(t, err)
	assert.Len(t, items, 1)
	assert.Equal(t, "Visible", items[0].Title)
}

func TestGetOwned(t *testing.T) {
	db := setupTestDB()
	svc := NewPostService(db)

	row := createTestPost(db, ann, "draft", "Mine")

	p, err := svc.GetOwned(row.ID, ann)

	assert.NoError(t, err)
	assert.Equal(t, "Mine", p.Title)

	_, err = svc.GetOwned(row.ID, ben)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetPublished_DraftInvisible(t *testing.T) {
	db := setupTestDB()
	svc := NewPostService(db)

	draft := createTestPost(db, ann, "draft", "Secret")
	published := createTestPost(db, ann, "published", "Public")

	_, err := svc.GetPublished(draft.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	p, err := svc.GetPublished(published.ID)
	assert.NoError(t, err)
	assert.Equal(t, "Public", p.Title)
}

func TestSave_UnknownStatusRejected(t *testing.T) {
	db := setupTestDB()
	svc := NewPostService(db)

	_, err := svc.Save(Post{Title: "Candidate", Status: Status("bogus")}, false, ann)

	assert.ErrorIs(t, err, ErrValidationFailed)

	var count int64
	db.Model(&models.Post{}).Count(&count)
	assert.Equal(t, int64(0), count)
}

func TestSave_EditUnknownStatusLeavesRowAlone(t *testing.T) {
	db := setupTestDB()
	svc := NewPostService(db)

	row := createTestPost(db, ann, "published", "Article")

	candidate := Post{ID: row.ID, Title: "Article", Status: Status("bogus")}
	_, err := svc.Save(candidate, true, ann)

	assert.ErrorIs(t, err, ErrValidationFailed)

	var after models.Post
	db.First(&after, "id = ?", row.ID)
	assert.Equal(t, "published", *after.Status)
}

func TestSave_EditingWithoutIDInserts(t *testing.T) {
	db := setupTestDB()
	svc := NewPostService(db)

	id, err := svc.Save(Post{Title: "Never persisted"}, true, ann)

	assert.NoError(t, err)
	assert.NotEmpty(t, id)

	var row models.Post
	assert.NoError(t, db.First(&row, "id = ?", id).Error)
	assert.Equal(t, ann.ID, row.UserID)
}

func TestListOwned_SurvivesMembershipQueryFailure(t *testing.T) {
	db := setupTestDB()
	svc := NewPostService(db)

	createTestPost(db, ann, "draft", "Still listed")
	db.Migrator().DropTable(&models.PostCategory{})

	listed, err := svc.ListOwned(ann)

	assert.NoError(t, err)
	assert.Len(t, listed, 1)
	assert.Empty(t, listed[0].Categories)
}
