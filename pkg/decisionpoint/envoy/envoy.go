//
//  Copyright © PageSentry Labs. All rights reserved.
//

// Package envoy implements an Envoy External Authorization (ext_authz)
// decision point.
//
// Envoy forwards each proxied request here as a gRPC Check call.  The
// server extracts the principal from the x-principal-id header (set by
// an upstream authentication filter), maps the HTTP method onto an
// engine action, and evaluates the request path against the permission
// engine.
package envoy

import (
	"context"
	"fmt"
	"net"
	"strings"
	"sync"

	corev3 "github.com/envoyproxy/go-control-plane/envoy/config/core/v3"
	authv3 "github.com/envoyproxy/go-control-plane/envoy/service/auth/v3"
	typev3 "github.com/envoyproxy/go-control-plane/envoy/type/v3"
	"google.golang.org/genproto/googleapis/rpc/status"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/protobuf/encoding/protojson"

	"github.com/pagesentry/permengine/internal/logging"
	"github.com/pagesentry/permengine/pkg/decisionpoint"
	"github.com/pagesentry/permengine/pkg/engine"
	"github.com/pagesentry/permengine/pkg/engine/model"
)

var logger = logging.GetLogger("permengine.decisionpoint")

const agent string = "envoy"

const (
	principalHeader = "x-principal-id"
	resultHeader    = "x-permengine-check-result"
	reasonHeader    = "x-permengine-reason"
	resultAllowed   = "allowed"
	resultDenied    = "denied"
)

// methodActions maps HTTP methods onto engine actions.  Asset reads are
// distinguished by path below.
var methodActions = map[string]model.Action{
	"GET":    model.ActionReadPages,
	"HEAD":   model.ActionReadPages,
	"POST":   model.ActionEditPages,
	"PUT":    model.ActionEditPages,
	"PATCH":  model.ActionEditPages,
	"DELETE": model.ActionDeletePages,
}

// ExtAuthzServer implements the ext_authz v3 gRPC check request API.
type ExtAuthzServer struct {
	grpcServer *grpc.Server
	engine     engine.Engine

	// For test only
	grpcPort chan int
}

func headerValue(key, value string) *corev3.HeaderValueOption {
	return &corev3.HeaderValueOption{
		Header: &corev3.HeaderValue{Key: key, Value: value},
	}
}

func allow(decision model.Decision) *authv3.CheckResponse {
	return &authv3.CheckResponse{
		HttpResponse: &authv3.CheckResponse_OkResponse{
			OkResponse: &authv3.OkHttpResponse{
				Headers: []*corev3.HeaderValueOption{
					headerValue(resultHeader, resultAllowed),
					headerValue(reasonHeader, decision.Reason),
				},
			},
		},
		Status: &status.Status{Code: int32(codes.OK)},
	}
}

func deny(decision model.Decision) *authv3.CheckResponse {
	return &authv3.CheckResponse{
		HttpResponse: &authv3.CheckResponse_DeniedResponse{
			DeniedResponse: &authv3.DeniedHttpResponse{
				Status: &typev3.HttpStatus{Code: typev3.StatusCode_Forbidden},
				Body:   "permission denied",
				Headers: []*corev3.HeaderValueOption{
					headerValue(resultHeader, resultDenied),
					headerValue(reasonHeader, decision.Reason),
				},
			},
		},
		Status: &status.Status{Code: int32(codes.PermissionDenied)},
	}
}

// resourcePath strips the query string from the request path.
func resourcePath(path string) string {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		return path[:i]
	}
	return path
}

// actionFor maps the request onto an engine action.  GETs under /assets
// are asset reads; everything else follows the method table.
func actionFor(method, path string) (model.Action, bool) {
	action, ok := methodActions[strings.ToUpper(method)]
	if !ok {
		return "", false
	}
	if action == model.ActionReadPages && strings.HasPrefix(path, "/assets/") {
		return model.ActionReadAssets, true
	}
	return action, true
}

// Check implements the gRPC v3 check request.
func (s *ExtAuthzServer) Check(ctx context.Context, request *authv3.CheckRequest) (*authv3.CheckResponse, error) {
	httpAttrs := request.GetAttributes().GetRequest().GetHttp()

	if logger.IsDebugEnabled() {
		jattrs, _ := protojson.Marshal(request.GetAttributes())
		logger.Debugf(agent, "check", "attributes: %s", string(jattrs))
	}

	principal := httpAttrs.GetHeaders()[principalHeader]
	path := resourcePath(httpAttrs.GetPath())

	action, ok := actionFor(httpAttrs.GetMethod(), path)
	if !ok {
		logger.Warnf(principal, "check", "unmapped HTTP method %q, denying", httpAttrs.GetMethod())
		return deny(model.Decision{Reason: model.ReasonDenyByDefault}), nil
	}

	decision := s.engine.Authorize(ctx, principal, path, action)
	if decision.Allowed() {
		return allow(decision), nil
	}
	return deny(decision), nil
}

func (s *ExtAuthzServer) startGRPC(address string, wg *sync.WaitGroup) {
	logger.Infof(agent, "start", "Starting Envoy External Authorization gRPC server on %s", address)
	defer func() {
		wg.Done()
		logger.SysInfof("Stopped gRPC server")
	}()

	listener, err := net.Listen("tcp", address)
	if err != nil {
		logger.Fatalf(agent, "net.listen", "Failed to start gRPC server: %v", err)
		return
	}

	s.grpcServer = grpc.NewServer()
	authv3.RegisterAuthorizationServer(s.grpcServer, s)

	// Store the port for test only. Must be after grpcServer is set to avoid race condition.
	s.grpcPort <- listener.Addr().(*net.TCPAddr).Port

	logger.SysInfof("Starting gRPC server at %s", listener.Addr())
	if err := s.grpcServer.Serve(listener); err != nil {
		logger.Fatalf(agent, "grpc.start", "Failed to serve gRPC server: %v", err)
		return
	}
}

func (s *ExtAuthzServer) run(grpcAddr string) {
	var wg sync.WaitGroup
	wg.Add(1)
	go s.startGRPC(grpcAddr, &wg)
	wg.Wait()
}

// CreateServer creates and starts a new Envoy External Authorization
// server on the given port.
func CreateServer(eng engine.Engine, port int) (decisionpoint.Server, error) {
	s := &ExtAuthzServer{
		grpcPort: make(chan int, 1),
		engine:   eng,
	}

	go s.run(fmt.Sprintf(":%d", port))

	return s, nil
}

// Stop gracefully stops the ExtAuthzServer by stopping the underlying gRPC server.
func (s *ExtAuthzServer) Stop(ctx context.Context) error {
	s.grpcServer.GracefulStop()
	logger.SysInfof("GRPC server stopped")

	return nil
}
