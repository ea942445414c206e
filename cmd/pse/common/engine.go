//
//  Copyright © PageSentry Labs. All rights reserved.
//

// Package common provides shared helpers for the pse subcommands.
package common

import (
	"fmt"
	"io"

	"github.com/urfave/cli/v3"

	"github.com/pagesentry/permengine/pkg/engine"
	"github.com/pagesentry/permengine/pkg/engine/auditlog"
	"github.com/pagesentry/permengine/pkg/engine/backend/local"
	"github.com/pagesentry/permengine/pkg/engine/options"
)

// NewCliEngine creates an engine configured from CLI command flags.  The
// backend is the local store loaded from the --dataset file, and audit
// records are written to the supplied writer.
func NewCliEngine(cmd *cli.Command, auditOut io.Writer, extra ...options.EngineOption) (engine.Engine, error) {
	dataset := cmd.String("dataset")
	if dataset == "" {
		return nil, fmt.Errorf("a dataset file must be specified")
	}

	pretty := cmd.Root().Bool("pretty")

	opts := append([]options.EngineOption{
		options.WithAuditLog(auditlog.NewIoWriterFactoryWithOptions(auditOut, auditlog.AuditLogOptions{PrettyPrint: pretty})),
		options.WithBackend(local.NewFactory(dataset)),
	}, extra...)

	return engine.New(opts...)
}
