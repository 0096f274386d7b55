package main

import (
	"net/http"

	"github.com/cardhaven/bankcards/internal/handler"
	"github.com/cardhaven/bankcards/internal/middleware"
)

type routerDeps struct {
	auth          *handler.AuthHandler
	cards         *handler.CardHandler
	transfers     *handler.TransferHandler
	blockRequests *handler.BlockRequestHandler
	adminCards    *handler.AdminCardHandler
	adminUsers    *handler.AdminUserHandler
	health        *handler.HealthHandler
	jwtSecret     string
	openAPISpec   []byte
}

// newRouter assembles the route table. All /api/v1 routes require a token;
// /api/v1/admin additionally requires the ADMIN role.
func newRouter(deps routerDeps) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", deps.health.Liveness)
	mux.HandleFunc("GET /health/ready", deps.health.Readiness)
	mux.HandleFunc("GET /docs", handler.ServeDocs())
	mux.HandleFunc("GET /docs/openapi.yaml", handler.ServeSpec(deps.openAPISpec))

	mux.HandleFunc("POST /api/v1/auth/login", deps.auth.Login)

	authed := http.NewServeMux()
	authed.HandleFunc("GET /api/v1/cards", deps.cards.List)
	authed.HandleFunc("GET /api/v1/cards/{id}", deps.cards.Get)
	authed.HandleFunc("GET /api/v1/cards/{id}/balance", deps.cards.Balance)
	authed.HandleFunc("GET /api/v1/cards/{id}/transfers", deps.transfers.History)
	authed.HandleFunc("POST /api/v1/transfers", deps.transfers.Create)
	authed.HandleFunc("POST /api/v1/block-requests", deps.blockRequests.Create)

	admin := http.NewServeMux()
	admin.HandleFunc("POST /api/v1/admin/cards", deps.adminCards.Create)
	admin.HandleFunc("GET /api/v1/admin/cards", deps.adminCards.Search)
	admin.HandleFunc("GET /api/v1/admin/cards/{id}", deps.adminCards.Get)
	admin.HandleFunc("POST /api/v1/admin/cards/{id}/block", deps.adminCards.Block)
	admin.HandleFunc("POST /api/v1/admin/cards/{id}/activate", deps.adminCards.Activate)
	admin.HandleFunc("PATCH /api/v1/admin/cards/{id}/expiration", deps.adminCards.UpdateExpiration)
	admin.HandleFunc("DELETE /api/v1/admin/cards/{id}", deps.adminCards.Delete)

	admin.HandleFunc("GET /api/v1/admin/block-requests", deps.blockRequests.List)
	admin.HandleFunc("POST /api/v1/admin/block-requests/{id}/approve", deps.blockRequests.Approve)
	admin.HandleFunc("POST /api/v1/admin/block-requests/{id}/reject", deps.blockRequests.Reject)

	admin.HandleFunc("POST /api/v1/admin/users", deps.adminUsers.Create)
	admin.HandleFunc("GET /api/v1/admin/users", deps.adminUsers.List)
	admin.HandleFunc("PATCH /api/v1/admin/users/{id}/role", deps.adminUsers.UpdateRole)
	admin.HandleFunc("PATCH /api/v1/admin/users/{id}/enabled", deps.adminUsers.SetEnabled)
	admin.HandleFunc("PATCH /api/v1/admin/users/{id}/password", deps.adminUsers.ResetPassword)
	admin.HandleFunc("DELETE /api/v1/admin/users/{id}", deps.adminUsers.Delete)

	withAuth := middleware.Auth(deps.jwtSecret)
	mux.Handle("/api/v1/admin/", withAuth(middleware.RequireAdmin(admin)))
	mux.Handle("/api/v1/", withAuth(authed))

	return middleware.RequestID(middleware.Logging(middleware.Recovery(mux)))
}
