//
//  Copyright © PageSentry Labs. All rights reserved.
//

// Package generic implements an HTTP/REST decision point server.
package generic

import (
	"context"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pagesentry/permengine/pkg/decisionpoint"
	"github.com/pagesentry/permengine/pkg/engine"
	"github.com/pagesentry/permengine/pkg/engine/model"
)

// AuthorizeRequest is the body of POST /v1/authorize.
type AuthorizeRequest struct {
	PrincipalID  string `json:"principal_id"`
	ResourcePath string `json:"resource_path"`
	Action       string `json:"action"`
}

// AuthorizeResponse is the result of an authorization query.
type AuthorizeResponse struct {
	Effect        string `json:"effect"`
	Reason        string `json:"reason"`
	MatchedRuleID string `json:"matched_rule_id,omitempty"`
}

// PermissionsResponse maps each known action to its effect for the
// queried principal and resource.
type PermissionsResponse struct {
	PrincipalID  string            `json:"principal_id"`
	ResourcePath string            `json:"resource_path"`
	Permissions  map[string]string `json:"permissions"`
}

// InvalidateRequest is the body of POST /v1/invalidate.  Scope is one
// of "user", "group", or "all"; ID is required for user and group.
type InvalidateRequest struct {
	Scope string `json:"scope"`
	ID    string `json:"id,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Server is an HTTP decision point backed by an [engine.Engine].
type Server struct {
	echo   *echo.Echo
	engine engine.Engine
}

// CreateServer creates and starts a new HTTP decision point server on
// the given port.  When gatherer is non-nil, Prometheus metrics are
// exposed at /metrics.
func CreateServer(eng engine.Engine, port int, gatherer prometheus.Gatherer) (decisionpoint.Server, error) {
	e := echo.New()
	e.HideBanner = true

	s := &Server{echo: e, engine: eng}

	e.POST("/v1/authorize", s.authorize)
	e.GET("/v1/permissions", s.permissions)
	e.POST("/v1/invalidate", s.invalidate)
	e.GET("/healthz", s.health)

	if gatherer != nil {
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	// Start server in goroutine since e.Start() blocks
	go func() {
		if err := e.Start(fmt.Sprintf(":%d", port)); err != nil && err != http.ErrServerClosed {
			e.Logger.Fatal(err)
		}
	}()

	return s, nil
}

func (s *Server) authorize(c echo.Context) error {
	var req AuthorizeRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "malformed request body"})
	}
	if req.PrincipalID == "" || req.ResourcePath == "" {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "principal_id and resource_path are required"})
	}

	action, perr := model.ParseAction(req.Action)
	if perr != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: perr.Error()})
	}

	decision := s.engine.Authorize(c.Request().Context(), req.PrincipalID, req.ResourcePath, action)

	return c.JSON(http.StatusOK, AuthorizeResponse{
		Effect:        string(decision.Effect),
		Reason:        decision.Reason,
		MatchedRuleID: decision.MatchedRuleID,
	})
}

func (s *Server) permissions(c echo.Context) error {
	principalID := c.QueryParam("principal_id")
	resourcePath := c.QueryParam("resource_path")
	if principalID == "" || resourcePath == "" {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "principal_id and resource_path are required"})
	}

	perms := s.engine.EffectivePermissions(c.Request().Context(), principalID, resourcePath)

	out := make(map[string]string, len(perms))
	for action, effect := range perms {
		out[string(action)] = string(effect)
	}

	return c.JSON(http.StatusOK, PermissionsResponse{
		PrincipalID:  principalID,
		ResourcePath: resourcePath,
		Permissions:  out,
	})
}

func (s *Server) invalidate(c echo.Context) error {
	var req InvalidateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "malformed request body"})
	}

	switch req.Scope {
	case "user":
		if req.ID == "" {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "id is required for scope user"})
		}
		s.engine.InvalidateUser(req.ID)
	case "group":
		if req.ID == "" {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "id is required for scope group"})
		}
		s.engine.InvalidateGroup(req.ID)
	case "all":
		s.engine.InvalidateAll()
	default:
		return c.JSON(http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("unknown scope %q", req.Scope)})
	}

	return c.NoContent(http.StatusNoContent)
}

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// Stop gracefully stops the Server by shutting down the Echo HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
