package backoffice

import (
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"inkwell/auth"
	"inkwell/cache"
	"inkwell/models"
)

const sessionOperatorKey = "backoffice_user_id"

// BackofficeModule is the operator surface: user administration and cache
// maintenance. Access is limited to accounts on the BACKOFFICE_EMAILS
// allowlist; a regular author session is not enough.
type BackofficeModule struct {
	db *gorm.DB
}

func NewBackofficeModule(db *gorm.DB) *BackofficeModule {
	return &BackofficeModule{db: db}
}

func (b *BackofficeModule) RegisterRoutes(router *gin.Engine) {
	router.POST("/backoffice/login", b.login)
	router.POST("/backoffice/logout", b.logout)

	protected := router.Group("/backoffice", b.requireOperator)
	protected.GET("/users", b.listUsers)
	protected.POST("/users/:id/verify", b.verifyUser)
	protected.POST("/cache/clear", b.clearCache)
	protected.POST("/cache/clear-old", b.clearOldCache)
}

func isBackofficeEmail(email string) bool {
	allowed := strings.Split(os.Getenv("BACKOFFICE_EMAILS"), ",")
	for _, candidate := range allowed {
		if strings.TrimSpace(candidate) == email && email != "" {
			return true
		}
	}
	return false
}

type loginForm struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (b *BackofficeModule) login(c *gin.Context) {
	var form loginForm
	if err := c.ShouldBindJSON(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if !isBackofficeEmail(form.Email) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "wrong email or password"})
		return
	}

	var user models.User
	if err := b.db.Where("email = ?", form.Email).First(&user).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "wrong email or password"})
		return
	}

	if !auth.CheckPasswordHash(form.Password, user.PasswordHash) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "wrong email or password"})
		return
	}

	session := sessions.Default(c)
	session.Set(sessionOperatorKey, user.ID)
	session.Save()

	c.JSON(http.StatusOK, gin.H{"user": models.Identity{ID: user.ID, Email: user.Email}})
}

func (b *BackofficeModule) logout(c *gin.Context) {
	session := sessions.Default(c)
	session.Delete(sessionOperatorKey)
	session.Save()

	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (b *BackofficeModule) requireOperator(c *gin.Context) {
	session := sessions.Default(c)
	userID := session.Get(sessionOperatorKey)

	if userID == nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "operator access required"})
		return
	}

	var user models.User
	if err := b.db.First(&user, "id = ?", userID).Error; err != nil || !isBackofficeEmail(user.Email) {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "operator access required"})
		return
	}

	c.Next()
}

type userSummary struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"emailVerified"`
	PostCount     int64  `json:"postCount"`
}

func (b *BackofficeModule) listUsers(c *gin.Context) {
	summaries := []userSummary{}

	err := b.db.Table("users").
		Select("users.id, users.email, users.email_verified, COUNT(posts.id) AS post_count").
		Joins("LEFT JOIN posts ON posts.user_id = users.id").
		Group("users.id").
		Order("users.email").
		Scan(&summaries).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load users"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"users": summaries})
}

// verifyUser confirms an account by hand, for users whose confirmation mail
// never arrived.
func (b *BackofficeModule) verifyUser(c *gin.Context) {
	var user models.User
	if err := b.db.First(&user, "id = ?", c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}

	user.EmailVerified = true
	user.EmailVerificationToken = ""

	if err := b.db.Save(&user).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not verify user"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (b *BackofficeModule) clearCache(c *gin.Context) {
	if err := cache.ClearAll(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not clear cache"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (b *BackofficeModule) clearOldCache(c *gin.Context) {
	if err := cache.ClearOld(7 * 24 * time.Hour); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not clear cache"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}
