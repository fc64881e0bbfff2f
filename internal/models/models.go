// Package models holds the wire representation of a configuration payload as
// served by the configuration service, together with shape validation. The
// snapshot package compiles these raw structures into the immutable form the
// engine evaluates against.
package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

// Operator represents a comparison operator used in segment conditions.
type Operator string

// Supported condition operators (string values for clean JSON serialization).
const (
	OpEquals            Operator = "equals"
	OpNotEquals         Operator = "notEquals"
	OpContains          Operator = "contains"
	OpNotContains       Operator = "notContains"
	OpOneOf             Operator = "oneOf"
	OpNotOneOf          Operator = "notOneOf"
	OpGreaterThan       Operator = "greaterThan"
	OpLessThan          Operator = "lessThan"
	OpGreaterThanEquals Operator = "greaterThanEquals"
	OpLessThanEquals    Operator = "lessThanEquals"
	OpStartsWith        Operator = "startsWith"
	OpEndsWith          Operator = "endsWith"
	OpVersionGT         Operator = "versionGreaterThan"
	OpVersionLT         Operator = "versionLessThan"
)

// Combinator joins the conditions of one segment. All conditions inside a
// segment share the combinator declared on the segment.
type Combinator string

const (
	CombinatorAnd Combinator = "and"
	CombinatorOr  Combinator = "or"
)

// DefaultSentinel marks a rule value or rollout percentage that inherits the
// flag-level value instead of declaring its own.
const DefaultSentinel = "$default"

// Configuration is one full payload: every environment plus the segments they
// share.
type Configuration struct {
	Environments []Environment `json:"environments"`
	Segments     []Segment     `json:"segments"`
}

// Environment groups the features and properties of one deployment target.
type Environment struct {
	Name          string     `json:"name"`
	EnvironmentID string     `json:"environment_id"`
	Features      []Feature  `json:"features"`
	Properties    []Property `json:"properties"`
}

// Feature is the wire form of a feature flag definition.
type Feature struct {
	Name              string          `json:"name"`
	FeatureID         string          `json:"feature_id"`
	Type              string          `json:"type"`
	Format            string          `json:"format,omitempty"`
	EnabledValue      any             `json:"enabled_value"`
	DisabledValue     any             `json:"disabled_value"`
	SegmentRules      []TargetingRule `json:"segment_rules"`
	Enabled           bool            `json:"enabled"`
	RolloutPercentage uint32          `json:"rollout_percentage"`
	Expression        *string         `json:"expression,omitempty"`
	Tags              string          `json:"tags,omitempty"`
}

// Property is the wire form of a property definition. Properties have no
// enabled/disabled toggle and no flag-level rollout.
type Property struct {
	Name         string          `json:"name"`
	PropertyID   string          `json:"property_id"`
	Type         string          `json:"type"`
	Format       string          `json:"format,omitempty"`
	Value        any             `json:"value"`
	SegmentRules []TargetingRule `json:"segment_rules"`
	Expression   *string         `json:"expression,omitempty"`
	Tags         string          `json:"tags,omitempty"`
}

// Segment is a named, reusable predicate grouping over entity attributes.
type Segment struct {
	Name        string        `json:"name"`
	SegmentID   string        `json:"segment_id"`
	Description string        `json:"description,omitempty"`
	Tags        string        `json:"tags,omitempty"`
	Combinator  Combinator    `json:"combinator,omitempty"`
	Rules       []SegmentRule `json:"rules"`
}

// SegmentRule is one condition: attribute, operator, and the declared values
// it compares against. Scalar operators use the first value; the set
// operators use the whole list.
type SegmentRule struct {
	AttributeName string   `json:"attribute_name"`
	Operator      Operator `json:"operator"`
	Values        []any    `json:"values"`
}

// TargetingRule associates segment membership with a served value and a
// rollout percentage. A rule matches an entity when the entity matches ANY of
// the referenced segments.
type TargetingRule struct {
	Rules             []SegmentRef `json:"rules"`
	Value             any          `json:"value"`
	Order             uint32       `json:"order"`
	RolloutPercentage any          `json:"rollout_percentage,omitempty"`
}

// SegmentRef carries the segment ids one targeting rule references.
type SegmentRef struct {
	Segments []string `json:"segments"`
}

// Decode parses a configuration payload. Numbers are decoded as json.Number
// so integer values survive without float rounding.
func Decode(r io.Reader) (*Configuration, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	var cfg Configuration
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode configuration: %w", err)
	}
	return &cfg, nil
}

// DecodeBytes parses a configuration payload held in memory.
func DecodeBytes(b []byte) (*Configuration, error) {
	return Decode(bytes.NewReader(b))
}
