// Package router registers the HTTP routes of the placement API.
package router

import (
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/facility-placement/internal/config"
	"github.com/iliyamo/facility-placement/internal/handler"
	"github.com/iliyamo/facility-placement/internal/middleware"
	"github.com/iliyamo/facility-placement/internal/utils"
)

// Deps bundles what the routes need.  Redis may be nil; rate limiting
// and catalog caching are then disabled.
type Deps struct {
	Contracts *handler.ContractHandler
	Catalog   *handler.CatalogHandler
	Auth      middleware.AuthConfig
	RateLimit config.RateLimitConfig
	Cache     config.CacheConfig
	Redis     *redis.Client
}

// New builds the Echo instance with global middleware and all routes.
func New(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(echomw.Recover())
	e.Use(middleware.RequestLogger())

	RegisterRoutes(e)
	RegisterAPI(e, d)
	return e
}

// RegisterRoutes registers routes that do not require authentication.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAPI registers the authenticated /v1 API.  Every caller may
// read; only OPERATOR may issue placement commands.
func RegisterAPI(e *echo.Echo, d Deps) {
	v1 := e.Group("/v1")
	v1.Use(middleware.Authenticate(d.Auth))
	v1.Use(middleware.NewTokenBucket(d.RateLimit, d.Redis))
	v1.Use(middleware.RequireRole(utils.RoleOperator, utils.RoleViewer))

	cache := middleware.NewRedisCache(d.Cache, d.Redis)
	v1.GET("/equipment-types", d.Catalog.ListEquipmentTypes, cache)
	v1.GET("/equipment-types/:code", d.Catalog.GetEquipmentType, cache)

	v1.GET("/facilities", d.Catalog.ListFacilities)
	v1.GET("/facilities/:code", d.Catalog.GetFacility)
	v1.GET("/facilities/:code/contracts", d.Contracts.ByFacility)

	v1.GET("/contracts", d.Contracts.List)
	v1.GET("/contracts/:id", d.Contracts.Get)

	operator := middleware.RequireRole(utils.RoleOperator)
	v1.POST("/contracts", d.Contracts.Create, operator)
	v1.PUT("/contracts/:id", d.Contracts.UpdateQuantity, operator)
	v1.DELETE("/contracts/:id", d.Contracts.Deactivate, operator)
}
