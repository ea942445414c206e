//
//  Copyright © PageSentry Labs. All rights reserved.
//

// Package test implements the pse test subcommands, which exercise the
// decision flow from the command line to simplify rule authoring and
// verification.
package test

import (
	"context"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/pagesentry/permengine/cmd/pse/common"
	pkgcommon "github.com/pagesentry/permengine/pkg/common"
	"github.com/pagesentry/permengine/pkg/engine/model"
	"github.com/pagesentry/permengine/pkg/engine/options"
)

// ExecuteDecision evaluates a single authorization request against a
// dataset file and prints the decision.
func ExecuteDecision(ctx context.Context, cmd *cli.Command) error {
	action, perr := model.ParseAction(cmd.String("action"))
	if perr != nil {
		return perr
	}

	// Audit records go to stderr so stdout carries only the decision.
	eng, err := common.NewCliEngine(cmd, os.Stderr)
	if err != nil {
		return err
	}
	defer eng.Close()

	var authzOpts []options.AuthzOption
	if cmd.Bool("probe") {
		authzOpts = append(authzOpts, options.SetProbeMode())
	}

	decision := eng.Authorize(ctx, cmd.String("principal"), cmd.String("resource"), action, authzOpts...)
	pkgcommon.PrettyPrint(decision)
	return nil
}

// ExecutePermissions computes the effective permissions for a principal
// on a resource and prints them.
func ExecutePermissions(ctx context.Context, cmd *cli.Command) error {
	eng, err := common.NewCliEngine(cmd, os.Stderr)
	if err != nil {
		return err
	}
	defer eng.Close()

	perms := eng.EffectivePermissions(ctx, cmd.String("principal"), cmd.String("resource"))

	out := make(map[string]string, len(perms))
	for action, effect := range perms {
		out[string(action)] = string(effect)
	}
	pkgcommon.PrettyPrint(out)
	return nil
}
