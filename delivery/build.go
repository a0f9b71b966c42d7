// Copyright 2026 The gen192 Authors
// SPDX-License-Identifier: Apache-2.0

package delivery

import (
	"context"
	"fmt"
	"log/slog"
)

// Builder runs the two build stage steps inside a provisioned
// workspace: dependency installation, then artifact generation. The
// steps are strictly sequential and a non-zero exit from either is
// fatal for the run. The builder does not validate the generator's
// output; artifact discovery happens in the publisher, at publish
// time.
type Builder struct {
	config BuildConfig
	logger *slog.Logger
}

// NewBuilder creates a builder with the given stage commands.
func NewBuilder(config BuildConfig, logger *slog.Logger) *Builder {
	return &Builder{config: config, logger: logger}
}

// Build runs dependency installation then artifact generation in the
// workspace.
func (b *Builder) Build(ctx context.Context, workspace string) error {
	if len(b.config.InstallCommand) > 0 {
		b.logger.Info("installing dependencies", "command", b.config.InstallCommand[0])
		if _, err := runCommand(ctx, workspace, b.config.InstallCommand[0], b.config.InstallCommand[1:]...); err != nil {
			return fmt.Errorf("installing dependencies: %w", err)
		}
	}

	if len(b.config.GenerateCommand) == 0 {
		return fmt.Errorf("no generate command configured")
	}

	b.logger.Info("generating artifacts", "command", b.config.GenerateCommand[0])
	if _, err := runCommand(ctx, workspace, b.config.GenerateCommand[0], b.config.GenerateCommand[1:]...); err != nil {
		return fmt.Errorf("generating artifacts: %w", err)
	}

	return nil
}
