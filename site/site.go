package site

import (
	"bytes"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
	"gorm.io/gorm"

	"inkwell/cache"
	"inkwell/categories"
	"inkwell/posts"
)

var md = goldmark.New(
	goldmark.WithExtensions(extension.GFM, extension.Linkify),
	goldmark.WithRendererOptions(html.WithUnsafe()),
)

const renderCacheMaxAge = 24 * time.Hour

// SiteModule is the public reading surface: published posts only, no session
// required.
type SiteModule struct {
	db    *gorm.DB
	posts *posts.PostService
	cats  *categories.CategoryService
}

func NewSiteModule(db *gorm.DB, postService *posts.PostService, catService *categories.CategoryService) *SiteModule {
	return &SiteModule{db: db, posts: postService, cats: catService}
}

func (s *SiteModule) RegisterRoutes(router *gin.Engine) {
	router.GET("/posts", s.listPosts)
	router.GET("/posts/:id", s.getPost)
	router.GET("/categories", s.listCategories)
}

func (s *SiteModule) listPosts(c *gin.Context) {
	published, err := s.posts.ListPublished()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load posts"})
		return
	}

	searchTerm := c.Query("q")
	c.JSON(http.StatusOK, gin.H{"posts": posts.Filter(published, searchTerm, nil)})
}

func (s *SiteModule) getPost(c *gin.Context) {
	post, err := s.posts.GetPublished(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "post not found"})
		return
	}

	if err := s.posts.IncrementViews(post.ID); err != nil {
		log.Printf("incrementing views for %s: %v", post.ID, err)
	}

	c.JSON(http.StatusOK, gin.H{
		"post": post,
		"html": s.renderPost(post),
	})
}

func (s *SiteModule) listCategories(c *gin.Context) {
	cats, err := s.cats.List(c.Query("q"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load categories"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"categories": cats})
}

// renderPost converts the post body from markdown, caching the result under
// the content hash. A render failure falls back to the raw content.
func (s *SiteModule) renderPost(post posts.Post) string {
	sum := cache.ContentSum(post.Content)

	if html, ok := cache.Read(post.ID, sum, renderCacheMaxAge); ok {
		return html
	}

	var buf bytes.Buffer
	if err := md.Convert([]byte(post.Content), &buf); err != nil {
		log.Printf("rendering post %s: %v", post.ID, err)
		return post.Content
	}

	rendered := buf.String()
	if err := cache.Write(post.ID, sum, rendered); err != nil {
		log.Printf("caching post %s: %v", post.ID, err)
	}

	return rendered
}
