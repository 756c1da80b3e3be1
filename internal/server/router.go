package server

import (
	"github.com/abduss/certvault/internal/auth"
	"github.com/abduss/certvault/internal/certificate"
	"github.com/abduss/certvault/internal/config"
	"github.com/abduss/certvault/internal/gateway"
	"github.com/abduss/certvault/internal/logger"
	"github.com/abduss/certvault/internal/metrics"
	"github.com/abduss/certvault/internal/object"
	"github.com/abduss/certvault/internal/presigned"
	"github.com/abduss/certvault/internal/vault"
	"github.com/abduss/certvault/internal/web"
	"github.com/gin-gonic/gin"
)

// Dependencies groups the services required by the HTTP router.
type Dependencies struct {
	Config             config.Config
	Checks             []ReadinessCheck
	AuthService        *auth.Service
	CertificateService *certificate.Service
	ObjectService      *object.Service
	Signer             *presigned.Service
}

// NewRouter builds the Gin engine serving the REST API under /v1 and the
// web shell at the root.
func NewRouter(deps Dependencies) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(logger.Middleware())
	router.Use(metrics.Middleware())
	router.MaxMultipartMemory = deps.Config.Upload.MaxFileSize + 1<<20

	registerHealthRoutes(router, deps.Checks)
	metrics.Register(router, deps.Config.Metrics.PrometheusPath)

	if deps.AuthService == nil {
		return router
	}

	api := router.Group("/v1")
	auth.RegisterRoutes(api, deps.AuthService)

	protected := router.Group("/v1")
	protected.Use(auth.AuthMiddleware(deps.AuthService))
	auth.RegisterSessionRoutes(protected, deps.AuthService)

	if deps.CertificateService != nil {
		certificate.RegisterRoutes(protected, deps.CertificateService)
	}
	if deps.ObjectService != nil {
		object.RegisterRoutes(protected, deps.ObjectService)
		if deps.Signer != nil {
			presigned.NewHandler(deps.Signer, deps.ObjectService).RegisterRoutes(protected, api)
		}
	}

	if deps.CertificateService != nil && deps.ObjectService != nil && deps.Signer != nil {
		local := gateway.NewLocal(deps.CertificateService, deps.ObjectService, deps.Signer)
		web.NewShell(local, deps.AuthService, web.Config{
			SessionCookie: deps.Config.Web.SessionCookie,
			SecureCookies: deps.Config.Web.SecureCookies,
			Location:      deps.Config.Web.Location(),
			Upload: vault.UploadPolicy{
				MaxSize:      deps.Config.Upload.MaxFileSize,
				AllowedTypes: deps.Config.Upload.AllowedTypes,
				LinkTTL:      deps.Config.Upload.LinkTTL,
			},
		}).RegisterRoutes(router)
	}

	return router
}
