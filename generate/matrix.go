// Copyright 2026 The gen192 Authors
// SPDX-License-Identifier: Apache-2.0

package generate

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/tidwall/jsonc"
)

// Matrix defines the permutation space the generator sweeps: which
// base pipelines exist, which steps are swapped between them, and the
// connectivity and nuisance axes. The compiled-in default matches the
// published gen192 set; a JSONC matrix file can narrow or extend it.
type Matrix struct {
	// Pipelines maps display labels to pipeline IDs (the
	// pipeline_name inside the upstream config files).
	Pipelines []Pipeline `json:"pipelines"`

	// Steps are the pipeline steps that get merged from the
	// perturbed pipeline into the base pipeline.
	Steps []Step `json:"steps"`

	// ConnectivityMethods to generate for (e.g. AFNI, Nilearn).
	ConnectivityMethods []string `json:"connectivity_methods"`

	// NuisanceToggles are the nuisance regression settings to
	// generate for.
	NuisanceToggles []bool `json:"nuisance_toggles"`
}

// Pipeline is one base pipeline in the matrix.
type Pipeline struct {
	// Label is the human-readable name used in generated filenames.
	Label string `json:"label"`

	// ID is the pipeline_name of the upstream config file.
	ID string `json:"id"`
}

// Step is a pipeline step swapped from the perturbed pipeline. Each
// merge path is a key path into the nested pipeline config.
type Step struct {
	Name       string     `json:"name"`
	MergePaths [][]string `json:"merge_paths"`
}

// DefaultMatrix returns the compiled-in permutation matrix:
// 4 pipelines x 3 perturbations x 4 steps x 2 connectivity methods
// x 2 nuisance settings = 192 combinations.
func DefaultMatrix() Matrix {
	return Matrix{
		Pipelines: []Pipeline{
			{Label: "ABCD", ID: "cpac_abcd-options"},
			{Label: "CCS", ID: "cpac_ccs-options"},
			{Label: "RBC", ID: "RBCv0"},
			{Label: "fMRIPrep", ID: "cpac_fmriprep-options"},
		},
		Steps: []Step{
			{
				Name:       "Structural Masking",
				MergePaths: [][]string{{"anatomical_preproc"}},
			},
			{
				Name:       "Structural Registration",
				MergePaths: [][]string{{"registration_workflows", "anatomical_registration"}},
			},
			{
				Name:       "Functional Masking",
				MergePaths: [][]string{{"functional_preproc", "func_masking"}},
			},
			{
				Name:       "Functional Registration",
				MergePaths: [][]string{{"registration_workflows", "functional_registration", "coregistration"}},
			},
		},
		ConnectivityMethods: []string{"AFNI", "Nilearn"},
		NuisanceToggles:     []bool{true, false},
	}
}

// LoadMatrix reads a matrix definition from a JSONC file. The format
// is JSON extended with // line comments, /* block comments */, and
// trailing commas.
func LoadMatrix(path string) (Matrix, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Matrix{}, fmt.Errorf("reading matrix: %w", err)
	}

	stripped := jsonc.ToJSON(data)

	var matrix Matrix
	if err := json.Unmarshal(stripped, &matrix); err != nil {
		return Matrix{}, fmt.Errorf("parsing matrix %s: %w", path, err)
	}
	if err := matrix.validate(); err != nil {
		return Matrix{}, fmt.Errorf("matrix %s: %w", path, err)
	}
	return matrix, nil
}

func (m Matrix) validate() error {
	if len(m.Pipelines) == 0 {
		return fmt.Errorf("no pipelines defined")
	}
	if len(m.Steps) == 0 {
		return fmt.Errorf("no steps defined")
	}
	if len(m.ConnectivityMethods) == 0 {
		return fmt.Errorf("no connectivity methods defined")
	}
	if len(m.NuisanceToggles) == 0 {
		return fmt.Errorf("no nuisance toggles defined")
	}
	seen := make(map[string]bool)
	for _, pipeline := range m.Pipelines {
		if pipeline.Label == "" || pipeline.ID == "" {
			return fmt.Errorf("pipeline with empty label or id")
		}
		if seen[pipeline.ID] {
			return fmt.Errorf("duplicate pipeline id %q", pipeline.ID)
		}
		seen[pipeline.ID] = true
	}
	for _, step := range m.Steps {
		if len(step.MergePaths) == 0 {
			return fmt.Errorf("step %q has no merge paths", step.Name)
		}
	}
	return nil
}
