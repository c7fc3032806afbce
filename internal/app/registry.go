package app

import (
	"leave-portal/internal/auth"
	"leave-portal/internal/config"
	"leave-portal/internal/leave"
	"leave-portal/internal/middleware"
	"leave-portal/internal/rbac"
	"leave-portal/internal/rbac/infra"
	"leave-portal/internal/user"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func registerModules(
	router *gin.Engine,
	cfg config.Config,
	gormDB *gorm.DB,
	rdb *redis.Client,
	cacheOpts leave.CacheOptions,
) (user.Repository, error) {
	logger := zap.L()

	// --- Repositories ---
	rbacRepo := rbac.NewStaticRepository()
	userRepo := user.NewRepository(gormDB)
	leaveRepo := leave.NewRepository(gormDB)

	// --- RBAC Core ---
	enforcer, err := infra.NewEnforcer()
	if err != nil {
		return nil, err
	}
	rbacService := rbac.NewService(rbacRepo, enforcer)
	if err := rbacService.LoadPolicy(); err != nil {
		return nil, err
	}

	// --- Services ---
	leaveService := leave.NewService(gormDB, leaveRepo, userRepo, cacheOpts)
	userService := user.NewService(userRepo, leaveService)
	authService := auth.NewService(userRepo, auth.TokenConfig{Secret: cfg.JWTSecret, TTL: cfg.JWTTTL})

	authMiddleware := middleware.AuthMiddleware(cfg.JWTSecret, userService)

	// --- Handlers ---
	authHandler := auth.NewHandler(authService, cfg.IsProduction())
	leaveHandler := leave.NewHandler(leaveService)
	userHandler := user.NewHandler(userService)
	rbacHandler := rbac.NewHandler(rbacService)

	// --- Routes Registration ---
	api := router.Group("/api/v1")
	{
		api.GET("/health", healthHandler(gormDB, rdb))
		auth.RegisterRoutes(api, authHandler, authMiddleware)
		leave.RegisterRoutes(api, leaveHandler, authMiddleware, rbacService, rdb, logger)
		user.RegisterRoutes(api, userHandler, authMiddleware, rbacService, logger)
		rbac.RegisterRoutes(api, rbacHandler, authMiddleware)
	}

	return userRepo, nil
}
