//
//  Copyright © PageSentry Labs. All rights reserved.
//

package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/pagesentry/permengine/cmd/pse/subcommands/lint"
	"github.com/pagesentry/permengine/cmd/pse/subcommands/serve"
	"github.com/pagesentry/permengine/cmd/pse/subcommands/test"
	"github.com/pagesentry/permengine/cmd/pse/version"
)

func datasetFlag() cli.Flag {
	return &cli.StringFlag{
		Name:     "dataset",
		Aliases:  []string{"d"},
		Usage:    "Load users, groups, memberships and rules from `FILE`",
		Required: true,
	}
}

func main() {
	cmd := &cli.Command{
		Name:    "pse",
		Usage:   "A CLI application for working with the PageSentry permission engine",
		Version: version.GetVersion(),
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "pretty",
				Usage: "Pretty-print audit log output",
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "test",
				Usage: "Invokes various aspects of the decision flow, simplifying rule authoring and verification",
				Commands: []*cli.Command{
					{
						Name:  "decision",
						Usage: "Evaluates a single authorization request against a dataset file",
						Flags: []cli.Flag{
							datasetFlag(),
							&cli.StringFlag{
								Name:     "principal",
								Usage:    "The principal requesting access",
								Required: true,
							},
							&cli.StringFlag{
								Name:     "resource",
								Usage:    "The resource path being accessed",
								Required: true,
							},
							&cli.StringFlag{
								Name:     "action",
								Usage:    "The action to evaluate (read_pages, read_assets, edit_pages, delete_pages, manage_folders, admin)",
								Required: true,
							},
							&cli.BoolFlag{
								Name:  "probe",
								Usage: "Evaluate as a probe, suppressing the audit record",
							},
						},
						Action: test.ExecuteDecision,
					},
					{
						Name:  "permissions",
						Usage: "Computes the effective permissions for a principal on a resource",
						Flags: []cli.Flag{
							datasetFlag(),
							&cli.StringFlag{
								Name:     "principal",
								Usage:    "The principal to inspect",
								Required: true,
							},
							&cli.StringFlag{
								Name:     "resource",
								Usage:    "The resource path to inspect",
								Required: true,
							},
						},
						Action: test.ExecutePermissions,
					},
				},
			},
			{
				Name:  "serve",
				Usage: "Creates a decision-point service",
				Flags: []cli.Flag{
					datasetFlag(),
					&cli.IntFlag{
						Name:  "port",
						Usage: "The TCP port to serve on.",
						Value: 9000,
					},
					&cli.StringFlag{
						Name:    "protocol",
						Aliases: []string{"p"},
						Usage:   "The protocol to serve.  Must be one of 'generic' or 'envoy'",
						Value:   "generic",
						Action: func(ctx context.Context, command *cli.Command, s string) error {
							if s != "generic" && s != "envoy" {
								return fmt.Errorf("unsupported protocol: %s", s)
							}
							return nil
						},
					},
					&cli.BoolFlag{
						Name:  "metrics",
						Usage: "Expose Prometheus metrics (generic protocol serves them at /metrics)",
					},
				},
				Action: serve.Execute,
			},
			{
				Name:  "lint",
				Usage: "Validate dataset YAML files for syntax errors, invalid rules, and broken references",
				Flags: []cli.Flag{
					&cli.StringSliceFlag{
						Name:     "file",
						Aliases:  []string{"f"},
						Usage:    "Dataset YAML file to lint (.yml, .yaml). Can be specified multiple times.",
						Required: true,
					},
				},
				Action: lint.Execute,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
