// Copyright 2026 The gen192 Authors
// SPDX-License-Identifier: Apache-2.0

package generate

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultMatrix(t *testing.T) {
	matrix := DefaultMatrix()

	if len(matrix.Pipelines) != 4 {
		t.Errorf("pipelines = %d, want 4", len(matrix.Pipelines))
	}
	if len(matrix.Steps) != 4 {
		t.Errorf("steps = %d, want 4", len(matrix.Steps))
	}
	if len(matrix.ConnectivityMethods) != 2 {
		t.Errorf("connectivity methods = %d, want 2", len(matrix.ConnectivityMethods))
	}
	if len(matrix.NuisanceToggles) != 2 {
		t.Errorf("nuisance toggles = %d, want 2", len(matrix.NuisanceToggles))
	}
	if err := matrix.validate(); err != nil {
		t.Errorf("default matrix does not validate: %v", err)
	}
}

func writeMatrixFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "matrix.jsonc")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadMatrixJSONC(t *testing.T) {
	path := writeMatrixFile(t, `{
	// A narrowed sweep for smoke testing.
	"pipelines": [
		{"label": "ABCD", "id": "cpac_abcd-options"},
		{"label": "CCS", "id": "cpac_ccs-options"}, // trailing comma next
	],
	"steps": [
		{"name": "Structural Masking", "merge_paths": [["anatomical_preproc"]]},
	],
	/* single method, nuisance always on */
	"connectivity_methods": ["AFNI"],
	"nuisance_toggles": [true],
}`)

	matrix, err := LoadMatrix(path)
	if err != nil {
		t.Fatalf("LoadMatrix: %v", err)
	}
	if len(matrix.Pipelines) != 2 || matrix.Pipelines[1].ID != "cpac_ccs-options" {
		t.Errorf("pipelines = %+v", matrix.Pipelines)
	}
	if len(matrix.Steps) != 1 || matrix.Steps[0].MergePaths[0][0] != "anatomical_preproc" {
		t.Errorf("steps = %+v", matrix.Steps)
	}
	if got := len(Combinations(matrix)); got != 2 {
		t.Errorf("narrowed matrix yields %d combinations, want 2", got)
	}
}

func TestLoadMatrixValidation(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{
			name:    "no pipelines",
			content: `{"pipelines": [], "steps": [{"name": "s", "merge_paths": [["a"]]}], "connectivity_methods": ["AFNI"], "nuisance_toggles": [true]}`,
			want:    "no pipelines",
		},
		{
			name:    "duplicate pipeline id",
			content: `{"pipelines": [{"label": "A", "id": "same"}, {"label": "B", "id": "same"}], "steps": [{"name": "s", "merge_paths": [["a"]]}], "connectivity_methods": ["AFNI"], "nuisance_toggles": [true]}`,
			want:    "duplicate pipeline id",
		},
		{
			name:    "step without merge paths",
			content: `{"pipelines": [{"label": "A", "id": "a"}], "steps": [{"name": "hollow", "merge_paths": []}], "connectivity_methods": ["AFNI"], "nuisance_toggles": [true]}`,
			want:    "no merge paths",
		},
		{
			name:    "no connectivity methods",
			content: `{"pipelines": [{"label": "A", "id": "a"}], "steps": [{"name": "s", "merge_paths": [["a"]]}], "connectivity_methods": [], "nuisance_toggles": [true]}`,
			want:    "no connectivity methods",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			path := writeMatrixFile(t, test.content)
			_, err := LoadMatrix(path)
			if err == nil || !strings.Contains(err.Error(), test.want) {
				t.Errorf("error = %v, want %q", err, test.want)
			}
		})
	}
}

func TestLoadMatrixMissingFile(t *testing.T) {
	if _, err := LoadMatrix(filepath.Join(t.TempDir(), "absent.jsonc")); err == nil {
		t.Fatal("expected an error for a missing matrix file")
	}
}
