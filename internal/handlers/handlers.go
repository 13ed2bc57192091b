package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"globetrackr/api/internal/config"
	"globetrackr/api/internal/mail"
	"globetrackr/api/internal/middleware"
	"globetrackr/api/internal/models"
	"globetrackr/api/internal/ratelimit"
	"globetrackr/api/internal/repository"
	"globetrackr/api/internal/security"
	"globetrackr/api/internal/service"
)

type HandlerSet struct {
	log         zerolog.Logger
	cfg         *config.AppConfig
	authService *service.AuthService
	userService *service.UserService
	tokens      *security.TokenIssuer
	users       *repository.UserRepository
	db          *pgxpool.Pool
	cache       *redis.Client
}

func NewHandlerSet(
	log zerolog.Logger,
	db *pgxpool.Pool,
	cache *redis.Client,
	mailer mail.Sender,
	cfg *config.AppConfig,
) (HandlerSet, error) {
	fieldKey, err := cfg.Security.FieldKey()
	if err != nil {
		return HandlerSet{}, err
	}
	cipher, err := security.NewFieldCipher(fieldKey)
	if err != nil {
		return HandlerSet{}, err
	}

	tokens := security.NewTokenIssuer(cfg.Security.JWTSecret, cfg.Security.JWTTTL)
	userRepo := repository.NewUserRepository(db)

	loginLimiter := ratelimit.New(cache, "login", cfg.RateLimit.LoginMaxAttempts, cfg.RateLimit.LoginWindow)
	forgotLimiter := ratelimit.New(cache, "forgot", cfg.RateLimit.ForgotMaxAttempts, cfg.RateLimit.ForgotWindow)

	auth := service.NewAuthService(userRepo, tokens, cipher, mailer, loginLimiter, forgotLimiter, cfg, log)
	users := service.NewUserService(userRepo, cipher, cfg, log)

	return HandlerSet{
		log:         log,
		cfg:         cfg,
		authService: auth,
		userService: users,
		tokens:      tokens,
		users:       userRepo,
		db:          db,
		cache:       cache,
	}, nil
}

func (h HandlerSet) Register(router *gin.RouterGroup) {
	router.GET("/healthz", h.Health)

	v1 := router.Group("/v1")
	{
		public := v1.Group("/users")
		public.POST("/register", h.RegisterUser)
		public.POST("/login", h.Login)
		public.POST("/logout", h.Logout)
		public.POST("/forgotPassword", h.ForgotPassword)
		public.PATCH("/resetPassword/:token", h.ResetPassword)

		protected := v1.Group("/users")
		protected.Use(middleware.Protect(h.tokens, h.users))
		protected.GET("/me", h.Me)
		protected.PATCH("/updateMyPassword", h.UpdateMyPassword)
		protected.PATCH("/updateMe", h.UpdateMe)
		protected.DELETE("/deleteMe", h.DeleteMe)

		admin := v1.Group("/users")
		admin.Use(
			middleware.Protect(h.tokens, h.users),
			middleware.RequireRoles(models.UserRoleAdmin),
		)
		admin.GET("", h.ListUsers)
		admin.POST("", h.CreateUser)
		admin.GET("/:id", h.GetUser)
		admin.PATCH("/:id", h.UpdateUser)
		admin.DELETE("/:id", h.DeleteUser)
	}
}
