// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"fmt"
	"os"
	"time"

	"go.yaml.in/yaml/v3"
)

// Report is the on-disk representation of a completed run. Saving one is
// optional; it exists so a batch kicked off unattended leaves a machine-
// readable record next to the files it produced.
type Report struct {
	Queries   int            `yaml:"queries"`
	Succeeded int            `yaml:"succeeded"`
	Failed    int            `yaml:"failed"`
	Files     []string       `yaml:"files,omitempty"`
	Outcomes  []QueryOutcome `yaml:"outcomes"`
	Timestamp time.Time      `yaml:"timestamp"`
}

// WriteReport saves the run summary to a YAML file.
func WriteReport(path string, summary RunSummary) error {
	report := Report{
		Queries:   summary.Total(),
		Succeeded: summary.Succeeded,
		Failed:    summary.Failed,
		Files:     summary.Files(),
		Outcomes:  summary.Outcomes,
		Timestamp: time.Now(),
	}

	data, err := yaml.Marshal(&report)
	if err != nil {
		return fmt.Errorf("marshaling run report: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// ReadReport loads a previously saved run report.
func ReadReport(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading run report: %w", err)
	}
	var report Report
	if err := yaml.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("parsing run report: %w", err)
	}
	return &report, nil
}
