// Copyright 2026 The gen192 Authors
// SPDX-License-Identifier: Apache-2.0

package generate

import (
	"fmt"
	"regexp"
	"strings"
)

// Combination is one point in the permutation space: a base pipeline,
// a perturbed pipeline whose step subtree replaces the base's, and
// the connectivity and nuisance settings.
type Combination struct {
	PipelineLabel string
	PipelineID    string

	PerturbLabel string
	PerturbID    string

	Step Step

	ConnectivityMethod string
	UseNuisance        bool
}

// Name builds the generated pipeline's name:
// p{NNN}_base-…_perturb-…_step-…_conn-…_nuisance-…, with every
// component made file-safe.
func (c Combination) Name(num int) string {
	return fmt.Sprintf("p%03d_base-%s_perturb-%s_step-%s_conn-%s_nuisance-%s",
		num,
		filesafe(c.PipelineLabel),
		filesafe(c.PerturbLabel),
		filesafe(c.Step.Name),
		filesafe(c.ConnectivityMethod),
		filesafe(fmt.Sprintf("%t", c.UseNuisance)),
	)
}

// Filename is Name plus the YAML extension.
func (c Combination) Filename(num int) string {
	return c.Name(num) + ".yml"
}

// Combinations enumerates the matrix in deterministic order:
// base, perturbation, step, connectivity, nuisance, innermost last.
// Combinations where the base and perturbed pipeline are the same are
// skipped; perturbing a pipeline with itself is a no-op.
func Combinations(matrix Matrix) []Combination {
	var combis []Combination
	for _, base := range matrix.Pipelines {
		for _, perturb := range matrix.Pipelines {
			if base.ID == perturb.ID {
				continue
			}
			for _, step := range matrix.Steps {
				for _, method := range matrix.ConnectivityMethods {
					for _, nuisance := range matrix.NuisanceToggles {
						combis = append(combis, Combination{
							PipelineLabel:      base.Label,
							PipelineID:         base.ID,
							PerturbLabel:       perturb.Label,
							PerturbID:          perturb.ID,
							Step:               step,
							ConnectivityMethod: method,
							UseNuisance:        nuisance,
						})
					}
				}
			}
		}
	}
	return combis
}

// nonFilesafe matches every character that is not a word character
// or hyphen.
var nonFilesafe = regexp.MustCompile(`[^\w-]`)

// filesafe lowercases s and replaces every non-word character with a
// hyphen, so combination components survive in filenames.
func filesafe(s string) string {
	return strings.ToLower(nonFilesafe.ReplaceAllString(s, "-"))
}
