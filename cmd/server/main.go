package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/spf13/viper"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/smsrent/backend/docs"
	"github.com/smsrent/backend/internal/database"
	mW "github.com/smsrent/backend/internal/middleware"
	"github.com/smsrent/backend/internal/provider"
	"github.com/smsrent/backend/internal/services"
)

// getOrPost registers a handler under both methods; clients call these
// endpoints either way.
func getOrPost(r chi.Router, pattern string, handler http.HandlerFunc) {
	r.Get(pattern, handler)
	r.Post(pattern, handler)
}

// @title Receive-SMS Rental API
// @version 1.0
// @description REST backend for renting virtual phone numbers and receiving SMS verification codes
// @host localhost:8080
// @BasePath /api
// @schemes http https
func main() {
	viper.SetConfigFile(".env")
	viper.AutomaticEnv()
	viper.SetEnvPrefix("")

	viper.BindEnv("database.host", "DATABASE_HOST")
	viper.BindEnv("database.port", "DATABASE_PORT")
	viper.BindEnv("database.user", "DATABASE_USER")
	viper.BindEnv("database.password", "DATABASE_PASSWORD")
	viper.BindEnv("database.name", "DATABASE_NAME")
	viper.BindEnv("database.ssl_mode", "DATABASE_SSL_MODE")

	viper.BindEnv("redis.host", "REDIS_HOST")
	viper.BindEnv("redis.port", "REDIS_PORT")
	viper.BindEnv("redis.password", "REDIS_PASSWORD")
	viper.BindEnv("redis.db", "REDIS_DB")

	viper.BindEnv("jwt.secret_key", "JWT_SECRET_KEY")
	viper.BindEnv("jwt.expiry_hours", "JWT_EXPIRY_HOURS")
	viper.BindEnv("argon2.time", "ARGON2_TIME")
	viper.BindEnv("argon2.memory", "ARGON2_MEMORY")
	viper.BindEnv("argon2.threads", "ARGON2_THREADS")
	viper.BindEnv("argon2.key_length", "ARGON2_KEY_LENGTH")
	viper.BindEnv("argon2.salt_length", "ARGON2_SALT_LENGTH")

	viper.BindEnv("provider.use_mock", "PROVIDER_USE_MOCK")
	viper.BindEnv("provider.base_url", "PROVIDER_BASE_URL")
	viper.BindEnv("provider.api_key", "PROVIDER_API_KEY")
	viper.BindEnv("provider.timeout", "PROVIDER_TIMEOUT")

	if err := viper.ReadInConfig(); err != nil {
		log.Printf("Config file not found, using defaults: %v", err)
	}

	docs.SwaggerInfo.Title = "Receive-SMS Rental API"
	docs.SwaggerInfo.Description = "REST backend for renting virtual phone numbers and receiving SMS verification codes"
	docs.SwaggerInfo.Version = "1.0"
	docs.SwaggerInfo.Host = "localhost:8080"
	docs.SwaggerInfo.BasePath = "/api"
	docs.SwaggerInfo.Schemes = []string{"http", "https"}

	db := database.InitDatabase()
	defer db.Close()

	if err := services.EnsureDefaultAdmin(db); err != nil {
		log.Fatalf("Failed to seed default admin: %v", err)
	}

	redisClient := database.InitRedis()
	if redisClient != nil {
		defer redisClient.Close()
	}

	providerClient := provider.FromConfig()

	ledgerService := services.NewLedgerService(db)
	authService := services.NewAuthService(db, redisClient)
	numberService := services.NewNumberService(db, ledgerService, providerClient)
	qrService := services.NewQRService(redisClient)
	accountService := services.NewAccountService(db, ledgerService, qrService, providerClient)
	projectService := services.NewProjectService(db)
	statsService := services.NewStatsService(db, redisClient)
	notificationService := services.NewNotificationService(db)
	adminService := services.NewAdminService(db, ledgerService, notificationService, providerClient)

	auth := mW.NewAuth(redisClient)

	r := chi.NewRouter()

	r.Use(mW.SecurityHeaders)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Access-Control-Allow-Origin"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		status := map[string]string{"status": "healthy", "database": "up", "redis": "up"}
		code := http.StatusOK
		if err := db.Ping(); err != nil {
			status["status"] = "degraded"
			status["database"] = "down"
			code = http.StatusServiceUnavailable
		}
		if redisClient == nil {
			status["redis"] = "disabled"
		} else if err := redisClient.Ping(req.Context()).Err(); err != nil {
			status["status"] = "degraded"
			status["redis"] = "down"
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		json.NewEncoder(w).Encode(status)
	})

	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("http://localhost:8080/swagger/doc.json"),
	))

	r.Handle("/static/*", http.StripPrefix("/static/", mW.StaticFileServer("./static")))

	r.Route("/api", func(r chi.Router) {
		// Public endpoints
		r.Post("/auth/register", authService.Register)
		r.Post("/auth/login", authService.Login)
		r.Post("/auth/logout", authService.Logout)

		// Pushed by the upstream platform, authenticated by request id
		r.Post("/numbers/inbound", numberService.InboundSMS)

		// Protected endpoints
		r.Group(func(r chi.Router) {
			r.Use(auth.Authenticate)

			r.Get("/auth/profile", authService.Profile)

			getOrPost(r, "/numbers/get", numberService.GetNumber)
			getOrPost(r, "/numbers/get-specific", numberService.GetSpecificNumber)
			getOrPost(r, "/numbers/sms/{request_id}", numberService.GetSMSCode)
			getOrPost(r, "/numbers/release/{request_id}", numberService.ReleaseNumber)
			getOrPost(r, "/numbers/blacklist", numberService.BlacklistNumber)
			getOrPost(r, "/numbers/batch-get", numberService.BatchGetNumbers)
			getOrPost(r, "/numbers/batch-release", numberService.BatchReleaseNumbers)
			getOrPost(r, "/numbers/my-numbers", numberService.MyNumbers)
			getOrPost(r, "/numbers/export", numberService.ExportNumbers)

			r.Get("/account/balance", accountService.Balance)
			r.Get("/account/transactions", ledgerService.Transactions)
			getOrPost(r, "/account/topup", accountService.Topup)
			getOrPost(r, "/account/create-order", accountService.CreateOrder)
			r.Get("/account/order-status/{order_id}", accountService.OrderStatus)

			r.Get("/projects", projectService.List)
			getOrPost(r, "/projects/search", projectService.Search)
			r.Get("/projects/favorites", projectService.Favorites)
			getOrPost(r, "/projects/favorite/{id}", projectService.ToggleFavorite)
			r.Get("/projects/exclusive", projectService.MyExclusive)
			getOrPost(r, "/projects/exclusive/{id}", projectService.JoinExclusive)
			getOrPost(r, "/projects/exclusive/{id}/cancel", projectService.CancelExclusive)
			r.Get("/projects/{id}", projectService.Detail)

			r.Get("/statistics", statsService.Statistics)

			r.Get("/notifications", notificationService.List)
			getOrPost(r, "/notifications/read/{id}", notificationService.MarkRead)
			getOrPost(r, "/notifications/read-all", notificationService.MarkAllRead)

			// Operator endpoints
			r.Group(func(r chi.Router) {
				r.Use(auth.RequireAdmin)

				r.Get("/admin/users", adminService.ListUsers)
				r.Post("/admin/users", adminService.CreateUser)
				r.Get("/admin/users/{id}", adminService.GetUser)
				r.Put("/admin/users/{id}", adminService.UpdateUser)
				r.Get("/admin/projects", adminService.ListProjects)
				r.Post("/admin/projects", adminService.CreateProject)
				r.Put("/admin/projects/{id}", adminService.UpdateProject)
				r.Delete("/admin/projects/{id}", adminService.DeleteProject)
				r.Get("/admin/numbers", adminService.ListNumbers)
				r.Post("/admin/numbers/{request_id}/release", adminService.ForceRelease)
				r.Post("/admin/notifications", adminService.CreateNotification)
				r.Delete("/admin/notifications/{id}", adminService.DeleteNotification)
				r.Get("/admin/statistics", adminService.PlatformStatistics)
			})
		})
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	server := &http.Server{
		Addr:         ":" + port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on :%s", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server stopped")
}
