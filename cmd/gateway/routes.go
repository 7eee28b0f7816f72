package main

import (
	"hackathon-gateway/internal/audit"
	"hackathon-gateway/internal/auth"
	"hackathon-gateway/internal/httpapi"
	"hackathon-gateway/internal/rbac"

	"github.com/gin-gonic/gin"
)

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers delegate to internal modules.
func registerRoutes(r *gin.Engine, d deps) {
	r.Use(httpapi.ClientIP())
	r.Use(auth.LoadSession(d.tokens, d.registry, d.cookies))
	r.Use(rbac.GuardPrefix("/admin", rbac.RoleAdmin, audit.DenialRecorder{Audit: d.audit}))

	// public
	r.GET("/healthz", httpapi.Health)

	api := r.Group("/api")
	{
		authGroup := api.Group("/auth")
		authGroup.POST("/signin", d.api.SignIn)
		authGroup.POST("/signout", d.api.SignOut)
		authGroup.GET("/session", d.api.Session)
		authGroup.POST("/refresh", d.api.Refresh)
		authGroup.GET("/check", d.api.Check)

		api.GET("/ping", d.api.Ping)

		// Uploads validate before forwarding; the backend enforces its own auth.
		api.POST("/projects/submit", d.uploads.SubmitProjectVersion)
		api.POST("/users/me/avatar", d.uploads.UploadAvatar)

		api.Any("/backend/*path", d.api.Backend)
	}

	// Pages, behind the /admin role gate above.
	r.NoRoute(httpapi.Pages(d.pagesDir))
}
