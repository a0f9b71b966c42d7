// Copyright 2026 The gen192 Authors
// SPDX-License-Identifier: Apache-2.0

package generate

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
)

// FromCombination produces one permuted pipeline config: the base
// pipeline with the combination's step subtree replaced by the
// perturbed pipeline's, connectivity extraction forced on, and the
// nuisance toggle applied. The result is renamed after the
// combination and numbered.
func FromCombination(num int, combi Combination, configs ConfigLookup, logger *slog.Logger) (*PipelineConfig, error) {
	base := configs[combi.PipelineID]
	perturb := configs[combi.PerturbID]
	if base == nil || perturb == nil {
		return nil, fmt.Errorf("combination references unknown pipeline (%s, %s)", combi.PipelineID, combi.PerturbID)
	}

	pipeline := base.Clone()

	// Swap in the perturbed pipeline's subtree at each merge path.
	// A path absent from the perturbation source is deleted from the
	// base too: the perturbed pipeline genuinely has no such step, so
	// the combined config must not keep the base's version.
	for _, mergePath := range combi.Step.MergePaths {
		snippet, ok := pathGet(perturb.Config, mergePath)
		if !ok {
			logger.Warn("merge path missing from perturbation source",
				"path", strings.Join(mergePath, "."),
				"pipeline", perturb.Name,
			)
			pathDelete(pipeline.Config, mergePath)
			continue
		}
		pathSet(pipeline.Config, mergePath, deepCopyValue(snippet))
	}

	// Timeseries extraction must run for connectivity matrices to be
	// produced at all.
	pathSet(pipeline.Config, []string{"timeseries_extraction", "run"}, true)
	pathSet(pipeline.Config,
		[]string{"timeseries_extraction", "connectivity_matrix", "using"},
		[]any{combi.ConnectivityMethod})
	pathSet(pipeline.Config,
		[]string{"timeseries_extraction", "connectivity_matrix", "measure"},
		[]any{"Pearson"})

	pathSet(pipeline.Config,
		[]string{"nuisance_corrections", "2-nuisance_regression", "run"},
		[]any{combi.UseNuisance})

	pipeline.SetName(combi.Name(num))
	return pipeline, nil
}

// Run generates every combination in the matrix into outputDir. Each
// generated file is write-once; an existing file with the same name
// fails the run.
func Run(matrix Matrix, configs ConfigLookup, outputDir string, logger *slog.Logger) error {
	if err := configs.Verify(matrix); err != nil {
		return err
	}

	combis := Combinations(matrix)
	logger.Info("generating pipeline configs",
		"combinations", len(combis),
		"output", outputDir,
	)

	for num, combi := range combis {
		pipeline, err := FromCombination(num, combi, configs, logger)
		if err != nil {
			return err
		}
		pipeline.File = filepath.Join(outputDir, combi.Filename(num))

		logger.Debug("generating", "file", combi.Filename(num))
		if err := pipeline.Dump(false); err != nil {
			return err
		}
	}
	return nil
}
