package api

import (
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/dnstld/desk-buddy-sub000/internal/api/handler"
	"github.com/dnstld/desk-buddy-sub000/internal/api/middleware"
	"github.com/dnstld/desk-buddy-sub000/internal/core/ports"
)

// Deps carries everything the router needs. The Redis client and Mongo
// database are optional and only feed the readiness probe.
type Deps struct {
	Log        zerolog.Logger
	Verifier   ports.TokenVerifier
	Membership ports.MembershipService
	Signup     ports.SignupService
	Redis      *redis.Client
	Mongo      *mongo.Database
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(deps Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(echomiddleware.Logger())
	// Permissive CORS: the mobile client and local dev tools call from
	// arbitrary origins; OPTIONS preflights are answered here.
	e.Use(echomiddleware.CORS())

	// --- Health probes and metrics (no auth required) ---
	healthHandler := handler.NewHealthHandler()
	readinessHandler := handler.NewReadinessHandler(deps.Mongo, deps.Redis)

	e.GET("/health", healthHandler.Liveness)          // liveness  – is the process alive?
	e.GET("/health/ready", readinessHandler.Readiness) // readiness – are side stores up?
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// --- Authenticated mutation endpoints ---
	companyHandler := handler.NewCompanyHandler(deps.Membership)
	userHandler := handler.NewUserHandler(deps.Membership)
	signinHandler := handler.NewSigninHandler(deps.Signup)

	v1 := e.Group("/v1", middleware.Auth(deps.Verifier))
	v1.POST("/signin", signinHandler.SignIn)
	v1.POST("/claim-company-ownership", companyHandler.ClaimOwnership)
	v1.POST("/set-company-manager", companyHandler.SetManager)
	v1.POST("/delete-user", userHandler.Delete)
	v1.POST("/update-user-role", userHandler.UpdateRole)

	return e
}
