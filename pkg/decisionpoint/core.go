//
//  Copyright © PageSentry Labs. All rights reserved.
//

// Package decisionpoint provides network servers that expose the
// permission engine to enforcement points.
//
// A decision point answers authorization queries over the wire so that
// enforcement can live in front-end proxies and application servers
// while the rules live here.
//
// # Available Implementations
//
// The following decision point servers are available:
//   - [generic]: HTTP/REST server
//   - [envoy]: External authorization (ext_authz) server for Envoy proxy
//
// # Usage
//
// Create and start a decision point server:
//
//	eng, _ := engine.New(options.WithBackend(backend))
//	server, _ := generic.CreateServer(eng, 8080, nil)
//	defer server.Stop(ctx)
package decisionpoint

import "context"

// Server is the interface for decision point servers that can be
// gracefully stopped.
//
// Implementations must ensure that [Stop] completes any in-flight
// requests before returning.
type Server interface {
	// Stop gracefully shuts down the server, waiting for active requests
	// to complete or until the context is cancelled.
	Stop(context.Context) error
}
