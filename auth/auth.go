package auth

import (
	"crypto/rand"
	"encoding/base64"
	"log"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	emailpkg "inkwell/email"
	"inkwell/models"
)

const (
	sessionUserKey = "user_id"
	identityKey    = "identity"
)

// AuthModule is the session provider: sign-up, sign-in, sign-out and email
// confirmation. It is the only place that reads or writes the session; every
// other module receives the acting identity as a value.
type AuthModule struct {
	db   *gorm.DB
	mail *emailpkg.EmailService
}

func NewAuthModule(db *gorm.DB, mail *emailpkg.EmailService) *AuthModule {
	return &AuthModule{db: db, mail: mail}
}

func (a *AuthModule) RegisterRoutes(router *gin.Engine) {
	router.POST("/auth/signup", a.signup)
	router.POST("/auth/login", a.login)
	router.POST("/auth/logout", a.logout)
	router.GET("/auth/confirm/:token", a.confirmEmail)
	router.GET("/auth/me", a.RequireAuth, a.me)
}

type credentialsForm struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (f credentialsForm) Validate() error {
	return validation.ValidateStruct(&f,
		validation.Field(&f.Email, validation.Required, is.Email),
		validation.Field(&f.Password, validation.Required, validation.Length(6, 64)),
	)
}

func (a *AuthModule) signup(c *gin.Context) {
	var form credentialsForm
	if err := c.ShouldBindJSON(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if err := form.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var existing models.User
	if err := a.db.Where("email = ?", form.Email).First(&existing).Error; err == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email is already registered"})
		return
	}

	passwordHash, err := HashPassword(form.Password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create account"})
		return
	}

	verificationToken, err := generateToken()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create account"})
		return
	}

	user := models.User{
		Email:                  form.Email,
		PasswordHash:           passwordHash,
		EmailVerified:          false,
		EmailVerificationToken: verificationToken,
	}
	if err := a.db.Create(&user).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create account"})
		return
	}

	// The account exists either way; a failed mail delivery is reported but
	// does not roll the signup back.
	if err := a.mail.SendVerificationEmail(user.Email, verificationToken); err != nil {
		log.Printf("sending verification email to %s: %v", user.Email, err)
		c.JSON(http.StatusOK, gin.H{
			"email":      user.Email,
			"emailError": "could not send verification email, contact support",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"email": user.Email})
}

func (a *AuthModule) login(c *gin.Context) {
	var form credentialsForm
	if err := c.ShouldBindJSON(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	var user models.User
	if err := a.db.Where("email = ?", form.Email).First(&user).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "wrong email or password"})
		return
	}

	if !CheckPasswordHash(form.Password, user.PasswordHash) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "wrong email or password"})
		return
	}

	if !user.EmailVerified {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "email not verified, check your inbox"})
		return
	}

	session := sessions.Default(c)
	session.Set(sessionUserKey, user.ID)
	session.Save()

	c.JSON(http.StatusOK, gin.H{"user": models.Identity{ID: user.ID, Email: user.Email}})
}

func (a *AuthModule) logout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	session.Save()

	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (a *AuthModule) confirmEmail(c *gin.Context) {
	token := c.Param("token")

	var user models.User
	if err := a.db.Where("email_verification_token = ?", token).First(&user).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "invalid or expired token"})
		return
	}

	if user.EmailVerified {
		c.JSON(http.StatusOK, gin.H{"message": "email already confirmed"})
		return
	}

	user.EmailVerified = true
	user.EmailVerificationToken = ""

	if err := a.db.Save(&user).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not confirm email"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "email confirmed, you can now log in"})
}

func (a *AuthModule) me(c *gin.Context) {
	identity, _ := CurrentIdentity(c)
	c.JSON(http.StatusOK, gin.H{"user": identity})
}

// RequireAuth loads the session user and stores the acting identity in the
// request context. Requests without a valid session get 401.
func (a *AuthModule) RequireAuth(c *gin.Context) {
	session := sessions.Default(c)
	userID := session.Get(sessionUserKey)

	if userID == nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	var user models.User
	if err := a.db.First(&user, "id = ?", userID).Error; err != nil {
		session.Clear()
		session.Save()
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	c.Set(identityKey, models.Identity{ID: user.ID, Email: user.Email})
	c.Next()
}

// CurrentIdentity returns the acting identity set by RequireAuth.
func CurrentIdentity(c *gin.Context) (models.Identity, bool) {
	v, exists := c.Get(identityKey)
	if !exists {
		return models.Identity{}, false
	}
	identity, ok := v.(models.Identity)
	return identity, ok
}

func generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), 14)
	return string(bytes), err
}

func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}
