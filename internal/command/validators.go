// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

package command

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/staranto/filememo/internal/cache"
	"github.com/staranto/filememo/internal/digest"
)

// GlobalFlagsValidator checks the root flags that every subcommand inherits.
func GlobalFlagsValidator(ctx context.Context, c *cli.Command) error {
	if d := c.Duration("flush-delay"); d < 0 {
		return fmt.Errorf("--flush-delay must not be negative")
	}
	return nil
}

type FlagValidatorType func(any) error

func FlagValidators(value any, validators ...FlagValidatorType) error {
	for _, v := range validators {
		if err := v(value); err != nil {
			return err
		}
	}
	return nil
}

// JammedFlagValidator verifies that the arg following a flag does not begin
// with '--'.  urfave/cli allows this and I don't see how to turn it off.
func JammedFlagValidator(value any) error {
	if strings.HasPrefix(value.(string), "--") {
		return errors.New("must not begin with '--'")
	}
	return nil
}

func OutputValidator(value any) error {
	var validOutputFlagValues = []string{"text", "json", "yaml"}
	if !slices.Contains(validOutputFlagValues, value.(string)) {
		return fmt.Errorf("must be one of %v", validOutputFlagValues)
	}
	return nil
}

func BackendValidator(value any) error {
	_, err := cache.ParseKind(value.(string))
	return err
}

func AlgoValidator(value any) error {
	if !slices.Contains(digest.Algos, digest.Algo(value.(string))) {
		return fmt.Errorf("must be one of %v", digest.Algos)
	}
	return nil
}

func PositiveValidator(value any) error {
	if value.(int) <= 0 {
		return errors.New("must be greater than zero")
	}
	return nil
}
