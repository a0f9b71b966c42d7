// Copyright 2026 The gen192 Authors
// SPDX-License-Identifier: Apache-2.0

package generate

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

// PipelineConfig is one C-PAC pipeline configuration: its name, the
// file it came from (or will be written to), and the decoded YAML
// tree.
type PipelineConfig struct {
	Name   string
	File   string
	Config map[string]any
}

// LoadPipelineConfig reads a pipeline config file. The pipeline name
// comes from pipeline_setup.pipeline_name inside the document.
func LoadPipelineConfig(path string) (*PipelineConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading pipeline config: %w", err)
	}

	config := make(map[string]any)
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("parsing pipeline config %s: %w", path, err)
	}

	name, ok := pathGet(config, []string{"pipeline_setup", "pipeline_name"})
	nameString, isString := name.(string)
	if !ok || !isString || nameString == "" {
		return nil, fmt.Errorf("pipeline config %s has no pipeline_setup.pipeline_name", path)
	}

	return &PipelineConfig{Name: nameString, File: path, Config: config}, nil
}

// Clone returns a deep copy. Mutating the clone's config never
// touches the original; generation clones the base config once per
// combination.
func (p *PipelineConfig) Clone() *PipelineConfig {
	return &PipelineConfig{
		Name:   p.Name,
		File:   p.File,
		Config: deepCopyValue(p.Config).(map[string]any),
	}
}

// SetName renames the pipeline, keeping the embedded
// pipeline_setup.pipeline_name in sync.
func (p *PipelineConfig) SetName(name string) {
	p.Name = name
	pathSet(p.Config, []string{"pipeline_setup", "pipeline_name"}, name)
}

// Dump writes the config as YAML to its File. Refuses to overwrite an
// existing file unless overwrite is set; generated outputs are
// write-once per run.
func (p *PipelineConfig) Dump(overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(p.File); err == nil {
			return fmt.Errorf("output file %s already exists", p.File)
		}
	}

	data, err := yaml.Marshal(p.Config)
	if err != nil {
		return fmt.Errorf("encoding pipeline %s: %w", p.Name, err)
	}
	if err := os.WriteFile(p.File, data, 0o644); err != nil {
		return fmt.Errorf("writing pipeline config: %w", err)
	}
	return nil
}

// ConfigLookup maps pipeline names to loaded configs.
type ConfigLookup map[string]*PipelineConfig

// LoadConfigDirectory loads every pipeline_config_*.yml in dir into a
// lookup keyed by pipeline name. Duplicate pipeline names get a
// "_dup" suffix appended (repeatedly, if needed) with a warning; the
// upstream config set has historically contained duplicates.
func LoadConfigDirectory(dir string, logger *slog.Logger) (ConfigLookup, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "pipeline_config_*.yml"))
	if err != nil {
		return nil, fmt.Errorf("listing pipeline configs: %w", err)
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("no pipeline_config_*.yml files in %s", dir)
	}
	sort.Strings(matches)

	lookup := make(ConfigLookup, len(matches))
	for _, path := range matches {
		config, err := LoadPipelineConfig(path)
		if err != nil {
			return nil, err
		}

		uniqueName := config.Name
		for lookup[uniqueName] != nil {
			logger.Warn("duplicate pipeline name",
				"name", uniqueName,
				"file", path,
				"existing", lookup[uniqueName].File,
			)
			uniqueName += "_dup"
		}
		lookup[uniqueName] = config
	}
	return lookup, nil
}

// Verify checks that every pipeline the matrix references is present
// in the lookup.
func (c ConfigLookup) Verify(matrix Matrix) error {
	for _, pipeline := range matrix.Pipelines {
		if c[pipeline.ID] == nil {
			return fmt.Errorf("pipeline %s (%s) not found in source configs", pipeline.Label, pipeline.ID)
		}
	}
	return nil
}
