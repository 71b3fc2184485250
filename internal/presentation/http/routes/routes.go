package routes

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sangkips/caja-api/internal/config"
	domainRepo "github.com/sangkips/caja-api/internal/domain/repository"
	"github.com/sangkips/caja-api/internal/presentation/http/dto/request"
	"github.com/sangkips/caja-api/internal/presentation/http/handler"
	"github.com/sangkips/caja-api/internal/presentation/http/middleware"
	"github.com/sangkips/caja-api/pkg/utils"
	"go.uber.org/zap"
)

// Handlers holds all the HTTP handlers used for route registration.
type Handlers struct {
	Auth    *handler.AuthHandler
	Catalog *handler.CatalogHandler
	Cart    *handler.CartHandler
	Sale    *handler.SaleHandler
}

// Deps holds shared dependencies needed by the routes.
type Deps struct {
	JWTManager      *utils.JWTManager
	Cfg             *config.Config
	IdempotencyRepo domainRepo.IdempotencyRepository
	Logger          *zap.Logger
}

// Setup creates the Gin router and registers all routes. Background work
// started for the routes stops when ctx is done.
func Setup(ctx context.Context, h *Handlers, deps *Deps) *gin.Engine {
	request.ConfigureBinding()

	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.LoggerMiddleware(deps.Logger))
	router.Use(middleware.CORSMiddleware(&deps.Cfg.CORS))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"service": deps.Cfg.App.Name,
		})
	})

	v1 := router.Group("/api/v1")
	{
		v1.POST("/auth/login", h.Auth.Login)

		protected := v1.Group("")
		protected.Use(middleware.AuthMiddleware(deps.JWTManager, deps.Cfg.JWT.CookieName))

		rateLimiter := middleware.NewUserRateLimiter(middleware.NewRateLimiterConfig(
			deps.Cfg.RateLimit.Requests,
			deps.Cfg.RateLimit.Duration,
		))
		rateLimiter.StartCleanup(ctx)
		protected.Use(rateLimiter.Middleware())

		registerProtectedRoutes(protected, h, deps)
	}

	return router
}

func registerProtectedRoutes(protected *gin.RouterGroup, h *Handlers, deps *Deps) {
	protected.POST("/auth/logout", h.Auth.Logout)
	protected.GET("/auth/me", h.Auth.Me)

	protected.GET("/productos", h.Catalog.Search)

	cart := protected.Group("/carrito")
	{
		cart.GET("", h.Cart.Get)
		cart.POST("/agregar", h.Cart.AddCatalogItem)
		cart.POST("/agregar-manual", h.Cart.AddManualItem)
		cart.DELETE("/items/:indice", h.Cart.RemoveLine)
		cart.POST("/vaciar", h.Cart.Clear)
	}

	idempotency := middleware.Idempotency(middleware.IdempotencyConfig{
		Repo: deps.IdempotencyRepo,
		TTL:  deps.Cfg.Checkout.IdempotencyTTL,
		Log:  deps.Logger,
	})

	sales := protected.Group("/ventas")
	{
		sales.POST("/registrar", idempotency, h.Sale.Checkout)
		sales.GET("", h.Sale.List)
		sales.GET("/:id", h.Sale.Get)
	}
}
