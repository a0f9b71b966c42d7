// Copyright 2026 The gen192 Authors
// SPDX-License-Identifier: Apache-2.0

package generate

import (
	"os"
	"path/filepath"
	"testing"
)

// twoPipelineLookup builds a minimal lookup: a base pipeline with an
// anatomical_preproc subtree and a perturbation with a different one.
func twoPipelineLookup() ConfigLookup {
	return ConfigLookup{
		"base-id": &PipelineConfig{
			Name: "base-id",
			Config: map[string]any{
				"pipeline_setup": map[string]any{"pipeline_name": "base-id"},
				"anatomical_preproc": map[string]any{
					"brain_extraction": map[string]any{"using": []any{"BET"}},
				},
				"registration_workflows": map[string]any{
					"anatomical_registration": map[string]any{"run": true},
				},
			},
		},
		"perturb-id": &PipelineConfig{
			Name: "perturb-id",
			Config: map[string]any{
				"pipeline_setup": map[string]any{"pipeline_name": "perturb-id"},
				"anatomical_preproc": map[string]any{
					"brain_extraction": map[string]any{"using": []any{"3dSkullStrip"}},
				},
			},
		},
	}
}

func testCombination(step Step) Combination {
	return Combination{
		PipelineLabel:      "Base",
		PipelineID:         "base-id",
		PerturbLabel:       "Perturb",
		PerturbID:          "perturb-id",
		Step:               step,
		ConnectivityMethod: "AFNI",
		UseNuisance:        true,
	}
}

func TestFromCombinationMergesStepSubtree(t *testing.T) {
	configs := twoPipelineLookup()
	step := Step{Name: "Structural Masking", MergePaths: [][]string{{"anatomical_preproc"}}}

	pipeline, err := FromCombination(3, testCombination(step), configs, discardLogger())
	if err != nil {
		t.Fatalf("FromCombination: %v", err)
	}

	using, ok := pathGet(pipeline.Config, []string{"anatomical_preproc", "brain_extraction", "using"})
	if !ok {
		t.Fatal("merged subtree missing")
	}
	list, _ := using.([]any)
	if len(list) != 1 || list[0] != "3dSkullStrip" {
		t.Errorf("merged using = %v, want [3dSkullStrip]", using)
	}

	// The merge must not mutate either source config.
	baseUsing, _ := pathGet(configs["base-id"].Config, []string{"anatomical_preproc", "brain_extraction", "using"})
	if baseList, _ := baseUsing.([]any); len(baseList) != 1 || baseList[0] != "BET" {
		t.Errorf("base config mutated: %v", baseUsing)
	}
}

func TestFromCombinationInsulatesFromLaterMutation(t *testing.T) {
	configs := twoPipelineLookup()
	step := Step{Name: "Structural Masking", MergePaths: [][]string{{"anatomical_preproc"}}}

	pipeline, err := FromCombination(0, testCombination(step), configs, discardLogger())
	if err != nil {
		t.Fatal(err)
	}

	pathSet(pipeline.Config, []string{"anatomical_preproc", "brain_extraction", "using"}, []any{"mutated"})

	perturbUsing, _ := pathGet(configs["perturb-id"].Config, []string{"anatomical_preproc", "brain_extraction", "using"})
	if list, _ := perturbUsing.([]any); len(list) != 1 || list[0] != "3dSkullStrip" {
		t.Errorf("mutating the generated config leaked into the perturbation source: %v", perturbUsing)
	}
}

func TestFromCombinationDeletesMissingPath(t *testing.T) {
	configs := twoPipelineLookup()
	// The perturbation source has no registration_workflows subtree, so
	// the base's copy must be removed from the generated config.
	step := Step{
		Name:       "Structural Registration",
		MergePaths: [][]string{{"registration_workflows", "anatomical_registration"}},
	}

	pipeline, err := FromCombination(0, testCombination(step), configs, discardLogger())
	if err != nil {
		t.Fatal(err)
	}

	if _, ok := pathGet(pipeline.Config, []string{"registration_workflows", "anatomical_registration"}); ok {
		t.Error("subtree absent from the perturbation source survived in the output")
	}
	if _, ok := pathGet(configs["base-id"].Config, []string{"registration_workflows", "anatomical_registration"}); !ok {
		t.Error("deletion leaked into the base config")
	}
}

func TestFromCombinationAppliesAnalysisSettings(t *testing.T) {
	configs := twoPipelineLookup()
	step := Step{Name: "Structural Masking", MergePaths: [][]string{{"anatomical_preproc"}}}
	combi := testCombination(step)
	combi.ConnectivityMethod = "Nilearn"
	combi.UseNuisance = false

	pipeline, err := FromCombination(12, combi, configs, discardLogger())
	if err != nil {
		t.Fatal(err)
	}

	if run, _ := pathGet(pipeline.Config, []string{"timeseries_extraction", "run"}); run != true {
		t.Errorf("timeseries_extraction.run = %v, want true", run)
	}
	using, _ := pathGet(pipeline.Config, []string{"timeseries_extraction", "connectivity_matrix", "using"})
	if list, _ := using.([]any); len(list) != 1 || list[0] != "Nilearn" {
		t.Errorf("connectivity using = %v, want [Nilearn]", using)
	}
	measure, _ := pathGet(pipeline.Config, []string{"timeseries_extraction", "connectivity_matrix", "measure"})
	if list, _ := measure.([]any); len(list) != 1 || list[0] != "Pearson" {
		t.Errorf("connectivity measure = %v, want [Pearson]", measure)
	}
	nuisance, _ := pathGet(pipeline.Config, []string{"nuisance_corrections", "2-nuisance_regression", "run"})
	if list, _ := nuisance.([]any); len(list) != 1 || list[0] != false {
		t.Errorf("nuisance run = %v, want [false]", nuisance)
	}

	wantName := combi.Name(12)
	if pipeline.Name != wantName {
		t.Errorf("Name = %q, want %q", pipeline.Name, wantName)
	}
	if embedded, _ := pathGet(pipeline.Config, []string{"pipeline_setup", "pipeline_name"}); embedded != wantName {
		t.Errorf("embedded pipeline name = %v, want %q", embedded, wantName)
	}
}

func TestFromCombinationUnknownPipeline(t *testing.T) {
	configs := twoPipelineLookup()
	combi := testCombination(Step{Name: "x", MergePaths: [][]string{{"anatomical_preproc"}}})
	combi.PerturbID = "missing-id"

	if _, err := FromCombination(0, combi, configs, discardLogger()); err == nil {
		t.Fatal("expected an error for an unknown pipeline id")
	}
}

func TestRunWritesEveryCombination(t *testing.T) {
	configs := twoPipelineLookup()
	matrix := Matrix{
		Pipelines: []Pipeline{
			{Label: "Base", ID: "base-id"},
			{Label: "Perturb", ID: "perturb-id"},
		},
		Steps: []Step{
			{Name: "Structural Masking", MergePaths: [][]string{{"anatomical_preproc"}}},
		},
		ConnectivityMethods: []string{"AFNI"},
		NuisanceToggles:     []bool{true, false},
	}

	outputDir := t.TempDir()
	if err := Run(matrix, configs, outputDir, discardLogger()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	// 2 pipelines x 1 perturbation each x 1 step x 1 method x 2
	// nuisance settings.
	entries, err := os.ReadDir(outputDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 4 {
		t.Fatalf("generated %d files, want 4", len(entries))
	}

	first := filepath.Join(outputDir, Combinations(matrix)[0].Filename(0))
	loaded, err := LoadPipelineConfig(first)
	if err != nil {
		t.Fatalf("loading generated config: %v", err)
	}
	if loaded.Name != Combinations(matrix)[0].Name(0) {
		t.Errorf("generated pipeline name = %q", loaded.Name)
	}
}

func TestRunRefusesExistingOutput(t *testing.T) {
	configs := twoPipelineLookup()
	matrix := Matrix{
		Pipelines: []Pipeline{
			{Label: "Base", ID: "base-id"},
			{Label: "Perturb", ID: "perturb-id"},
		},
		Steps: []Step{
			{Name: "Structural Masking", MergePaths: [][]string{{"anatomical_preproc"}}},
		},
		ConnectivityMethods: []string{"AFNI"},
		NuisanceToggles:     []bool{true},
	}

	outputDir := t.TempDir()
	collision := filepath.Join(outputDir, Combinations(matrix)[0].Filename(0))
	if err := os.WriteFile(collision, []byte("stale"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := Run(matrix, configs, outputDir, discardLogger()); err == nil {
		t.Fatal("Run overwrote an existing output file")
	}
}

func TestRunVerifiesLookup(t *testing.T) {
	matrix := Matrix{
		Pipelines:           []Pipeline{{Label: "Base", ID: "nowhere"}},
		Steps:               []Step{{Name: "x", MergePaths: [][]string{{"a"}}}},
		ConnectivityMethods: []string{"AFNI"},
		NuisanceToggles:     []bool{true},
	}

	if err := Run(matrix, ConfigLookup{}, t.TempDir(), discardLogger()); err == nil {
		t.Fatal("expected a verification error for a missing pipeline")
	}
}
