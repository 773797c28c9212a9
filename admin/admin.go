package admin

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"inkwell/auth"
	"inkwell/cache"
	"inkwell/categories"
	"inkwell/posts"
	"inkwell/stats"
)

// AdminModule is the authoring surface. Every route runs behind RequireAuth
// and operates on the acting user's own posts.
type AdminModule struct {
	db    *gorm.DB
	posts *posts.PostService
	cats  *categories.CategoryService
	stats *stats.StatsModule
	auth  *auth.AuthModule
}

func NewAdminModule(db *gorm.DB, postService *posts.PostService, catService *categories.CategoryService, statsModule *stats.StatsModule, authModule *auth.AuthModule) *AdminModule {
	return &AdminModule{
		db:    db,
		posts: postService,
		cats:  catService,
		stats: statsModule,
		auth:  authModule,
	}
}

func (a *AdminModule) RegisterRoutes(router *gin.Engine) {
	admin := router.Group("/admin", a.auth.RequireAuth)

	admin.GET("/posts", a.listPosts)
	admin.POST("/posts", a.savePost)
	admin.GET("/posts/:id", a.getPost)
	admin.POST("/posts/:id/archive", a.archivePost)
	admin.POST("/posts/:id/restore", a.restorePost)
	admin.DELETE("/posts/:id", a.deletePost)
	admin.GET("/archive", a.listArchive)
	admin.GET("/dashboard", a.dashboard)

	admin.GET("/categories", a.listCategories)
	admin.POST("/categories", a.createCategory)
	admin.PUT("/categories/:id", a.updateCategory)
	admin.DELETE("/categories/:id", a.deleteCategory)
}

// statusFor maps service errors onto HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, posts.ErrValidationFailed):
		return http.StatusBadRequest
	case errors.Is(err, posts.ErrNotOwner):
		return http.StatusForbidden
	case errors.Is(err, posts.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func (a *AdminModule) listPosts(c *gin.Context) {
	actor, _ := auth.CurrentIdentity(c)

	owned, err := a.posts.ListOwned(actor)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load posts"})
		return
	}

	var statusFilter *posts.Status
	if raw := c.Query("status"); raw != "" {
		status, ok := posts.ParseStatus(raw)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown status: " + raw})
			return
		}
		statusFilter = &status
	}

	c.JSON(http.StatusOK, gin.H{"posts": posts.Filter(owned, c.Query("q"), statusFilter)})
}

type saveForm struct {
	posts.Post
	Editing bool `json:"editing"`
}

func (a *AdminModule) savePost(c *gin.Context) {
	actor, _ := auth.CurrentIdentity(c)

	var form saveForm
	if err := c.ShouldBindJSON(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	id, err := a.posts.Save(form.Post, form.Editing, actor)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	// Edits invalidate any cached rendering of the old content.
	if form.Editing {
		if err := cache.ClearPost(id); err != nil {
			log.Printf("clearing cache for %s: %v", id, err)
		}
	}

	c.JSON(http.StatusOK, gin.H{"id": id})
}

func (a *AdminModule) getPost(c *gin.Context) {
	actor, _ := auth.CurrentIdentity(c)

	post, err := a.posts.GetOwned(c.Param("id"), actor)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"post": post})
}

func (a *AdminModule) archivePost(c *gin.Context) {
	actor, _ := auth.CurrentIdentity(c)

	if err := a.posts.Archive(c.Param("id"), actor); err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (a *AdminModule) restorePost(c *gin.Context) {
	actor, _ := auth.CurrentIdentity(c)

	if err := a.posts.Restore(c.Param("id"), actor); err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (a *AdminModule) deletePost(c *gin.Context) {
	actor, _ := auth.CurrentIdentity(c)
	id := c.Param("id")

	if err := a.posts.Delete(id, actor); err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	if err := cache.ClearPost(id); err != nil {
		log.Printf("clearing cache for %s: %v", id, err)
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (a *AdminModule) listArchive(c *gin.Context) {
	actor, _ := auth.CurrentIdentity(c)

	owned, err := a.posts.ListOwned(actor)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load posts"})
		return
	}

	archived := posts.StatusArchived
	c.JSON(http.StatusOK, gin.H{"posts": posts.Filter(owned, c.Query("q"), &archived)})
}

func (a *AdminModule) dashboard(c *gin.Context) {
	actor, _ := auth.CurrentIdentity(c)
	c.JSON(http.StatusOK, a.stats.Overview(actor))
}

type categoryForm struct {
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
}

func (a *AdminModule) listCategories(c *gin.Context) {
	cats, err := a.cats.List(c.Query("q"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load categories"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"categories": cats})
}

func (a *AdminModule) createCategory(c *gin.Context) {
	var form categoryForm
	if err := c.ShouldBindJSON(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	category, err := a.cats.Create(form.Name, form.Slug, form.Description)
	if err != nil {
		c.JSON(categoryStatusFor(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"category": category})
}

func (a *AdminModule) updateCategory(c *gin.Context) {
	var form categoryForm
	if err := c.ShouldBindJSON(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	category, err := a.cats.Update(c.Param("id"), form.Name, form.Slug, form.Description)
	if err != nil {
		c.JSON(categoryStatusFor(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"category": category})
}

func (a *AdminModule) deleteCategory(c *gin.Context) {
	if err := a.cats.Delete(c.Param("id")); err != nil {
		c.JSON(categoryStatusFor(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

func categoryStatusFor(err error) int {
	switch {
	case errors.Is(err, categories.ErrNameRequired):
		return http.StatusBadRequest
	case errors.Is(err, categories.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
