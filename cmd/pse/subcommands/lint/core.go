//
//  Copyright © PageSentry Labs. All rights reserved.
//

// Package lint implements the pse lint subcommand, which validates
// dataset YAML files without starting an engine.
package lint

import (
	"context"
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"

	"github.com/pagesentry/permengine/pkg/engine/backend/local"
)

// lintFile parses and validates a single dataset file.  Validation is
// the same performed at engine startup: YAML syntax, rule patterns,
// actions, effects, and referential integrity.
func lintFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "reading file")
	}

	var ds local.Dataset
	if err := yaml.Unmarshal(raw, &ds); err != nil {
		return errors.Wrap(err, "parsing YAML")
	}

	if _, err := local.NewStore(&ds); err != nil {
		return err
	}
	return nil
}

// Execute validates each --file argument, reporting per-file results.
// It fails if any file is invalid.
func Execute(ctx context.Context, cmd *cli.Command) error {
	var failed bool

	for _, path := range cmd.StringSlice("file") {
		if err := lintFile(path); err != nil {
			failed = true
			fmt.Printf("FAIL %s: %v\n", path, err)
			continue
		}
		fmt.Printf("OK   %s\n", path)
	}

	if failed {
		return fmt.Errorf("one or more files failed validation")
	}
	return nil
}
