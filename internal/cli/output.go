package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/olekukonko/tablewriter"
	"gopkg.in/yaml.v3"

	"github.com/TimurManjosov/configship/internal/snapshot"
)

// OutputFormat specifies the output format for CLI commands
type OutputFormat string

const (
	FormatTable OutputFormat = "table"
	FormatJSON  OutputFormat = "json"
	FormatYAML  OutputFormat = "yaml"
)

// FeatureRow is the printable view of one compiled feature flag.
type FeatureRow struct {
	ID            string `json:"id" yaml:"id"`
	Name          string `json:"name" yaml:"name"`
	Type          string `json:"type" yaml:"type"`
	Enabled       bool   `json:"enabled" yaml:"enabled"`
	EnabledValue  any    `json:"enabledValue" yaml:"enabled_value"`
	DisabledValue any    `json:"disabledValue" yaml:"disabled_value"`
	Rollout       uint32 `json:"rollout" yaml:"rollout"`
	Rules         int    `json:"rules" yaml:"rules"`
}

// PropertyRow is the printable view of one compiled property.
type PropertyRow struct {
	ID    string `json:"id" yaml:"id"`
	Name  string `json:"name" yaml:"name"`
	Type  string `json:"type" yaml:"type"`
	Value any    `json:"value" yaml:"value"`
	Rules int    `json:"rules" yaml:"rules"`
}

// ResultRow is the printable view of one evaluation result.
type ResultRow struct {
	ID             string `json:"id" yaml:"id"`
	Kind           string `json:"kind" yaml:"kind"`
	Value          any    `json:"value" yaml:"value"`
	Reason         string `json:"reason" yaml:"reason"`
	MatchedSegment string `json:"matchedSegment,omitempty" yaml:"matched_segment,omitempty"`
}

// FeatureRows builds sorted printable rows from a snapshot.
func FeatureRows(snap *snapshot.Snapshot) []FeatureRow {
	rows := make([]FeatureRow, 0, len(snap.Features))
	for _, f := range snap.Features {
		rows = append(rows, FeatureRow{
			ID:            f.ID,
			Name:          f.Name,
			Type:          string(f.Kind),
			Enabled:       f.Enabled,
			EnabledValue:  f.EnabledValue.Interface(),
			DisabledValue: f.DisabledValue.Interface(),
			Rollout:       f.Rollout,
			Rules:         len(f.Rules),
		})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].ID < rows[j].ID })
	return rows
}

// PropertyRows builds sorted printable rows from a snapshot.
func PropertyRows(snap *snapshot.Snapshot) []PropertyRow {
	rows := make([]PropertyRow, 0, len(snap.Properties))
	for _, p := range snap.Properties {
		rows = append(rows, PropertyRow{
			ID:    p.ID,
			Name:  p.Name,
			Type:  string(p.Kind),
			Value: p.Value.Interface(),
			Rules: len(p.Rules),
		})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].ID < rows[j].ID })
	return rows
}

// PrintFeatures outputs feature rows in the specified format
func PrintFeatures(rows []FeatureRow, format OutputFormat) error {
	switch format {
	case FormatJSON:
		return printJSON(map[string][]FeatureRow{"features": rows})
	case FormatYAML:
		return printYAML(rows)
	case FormatTable:
		return printFeatureTable(rows)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

// PrintProperties outputs property rows in the specified format
func PrintProperties(rows []PropertyRow, format OutputFormat) error {
	switch format {
	case FormatJSON:
		return printJSON(map[string][]PropertyRow{"properties": rows})
	case FormatYAML:
		return printYAML(rows)
	case FormatTable:
		return printPropertyTable(rows)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

// PrintResults outputs evaluation result rows in the specified format
func PrintResults(rows []ResultRow, format OutputFormat) error {
	switch format {
	case FormatJSON:
		return printJSON(map[string][]ResultRow{"results": rows})
	case FormatYAML:
		return printYAML(rows)
	case FormatTable:
		return printResultTable(rows)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

func printJSON(data interface{}) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

func printYAML(data interface{}) error {
	encoder := yaml.NewEncoder(os.Stdout)
	defer encoder.Close()
	encoder.SetIndent(2)
	return encoder.Encode(data)
}

func printFeatureTable(rows []FeatureRow) error {
	table := tablewriter.NewWriter(os.Stdout)
	table.Header("ID", "Name", "Type", "Enabled", "Rollout", "Rules")

	for _, row := range rows {
		enabled := "false"
		if row.Enabled {
			enabled = "true"
		}
		table.Append(
			row.ID,
			truncate(row.Name, 40),
			row.Type,
			enabled,
			fmt.Sprintf("%d%%", row.Rollout),
			fmt.Sprintf("%d", row.Rules),
		)
	}

	return table.Render()
}

func printPropertyTable(rows []PropertyRow) error {
	table := tablewriter.NewWriter(os.Stdout)
	table.Header("ID", "Name", "Type", "Value", "Rules")

	for _, row := range rows {
		table.Append(
			row.ID,
			truncate(row.Name, 40),
			row.Type,
			fmt.Sprintf("%v", row.Value),
			fmt.Sprintf("%d", row.Rules),
		)
	}

	return table.Render()
}

func printResultTable(rows []ResultRow) error {
	table := tablewriter.NewWriter(os.Stdout)
	table.Header("ID", "Kind", "Value", "Reason", "Segment")

	for _, row := range rows {
		table.Append(
			row.ID,
			row.Kind,
			fmt.Sprintf("%v", row.Value),
			row.Reason,
			row.MatchedSegment,
		)
	}

	return table.Render()
}

func truncate(s string, max int) string {
	if len(s) > max {
		return s[:max-3] + "..."
	}
	return s
}
