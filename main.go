package main

import (
	"log"
	"os"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"inkwell/admin"
	"inkwell/auth"
	"inkwell/backoffice"
	"inkwell/categories"
	"inkwell/common"
	"inkwell/database"
	"inkwell/email"
	"inkwell/posts"
	"inkwell/site"
	"inkwell/stats"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, using environment")
	}

	db := common.ConnectDb()
	if db == nil {
		log.Fatal("Failed to connect to database")
	}

	if err := database.RunMigrations(db); err != nil {
		log.Fatal("Failed to run migrations:", err)
	}

	router := gin.Default()

	sessionSecret := os.Getenv("SESSION_SECRET")
	if sessionSecret == "" {
		log.Fatal("SESSION_SECRET environment variable not set")
	}

	store := cookie.NewStore([]byte(sessionSecret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7,
		HttpOnly: true,
		Secure:   false,
	})

	router.Use(sessions.Sessions("inkwell-session", store))

	postService := posts.NewPostService(db)
	categoryService := categories.NewCategoryService(db)
	statsModule := stats.NewStatsModule(db)
	emailService := email.NewEmailService()

	authModule := auth.NewAuthModule(db, emailService)
	authModule.RegisterRoutes(router)

	adminModule := admin.NewAdminModule(db, postService, categoryService, statsModule, authModule)
	adminModule.RegisterRoutes(router)

	siteModule := site.NewSiteModule(db, postService, categoryService)
	siteModule.RegisterRoutes(router)

	backofficeModule := backoffice.NewBackofficeModule(db)
	backofficeModule.RegisterRoutes(router)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("Starting server on port %s...", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
