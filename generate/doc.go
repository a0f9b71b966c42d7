// Copyright 2026 The gen192 Authors
// SPDX-License-Identifier: Apache-2.0

// Package generate produces permuted C-PAC pipeline configurations.
//
// The generator sweeps a permutation matrix: for every ordered pair
// of distinct base and perturbed pipelines, every pipeline step,
// every connectivity method, and every nuisance setting, it clones
// the base pipeline's config, swaps in the perturbed pipeline's
// subtree for the step, applies the connectivity and nuisance
// settings, and writes the result as a numbered YAML file. The
// default matrix yields 192 configs. Each build subdirectory is then
// zipped into dist/ for publication.
package generate
