package engine

import (
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/TimurManjosov/configship/internal/models"
	"github.com/TimurManjosov/configship/pkg/values"
)

// OperatorHandler evaluates one condition operator against an entity
// attribute and the condition's declared values. Handlers fail closed: any
// type mismatch is a non-match, never an error.
type OperatorHandler interface {
	Check(attr values.Value, declared []values.Value) bool
}

var operatorHandlers = map[models.Operator]OperatorHandler{
	models.OpEquals:            equalsHandler{},
	models.OpNotEquals:         notEqualsHandler{},
	models.OpContains:          substringHandler{match: strings.Contains},
	models.OpNotContains:       notContainsHandler{},
	models.OpOneOf:             oneOfHandler{},
	models.OpNotOneOf:          notOneOfHandler{},
	models.OpGreaterThan:       numericCompareHandler{cmp: func(a, b float64) bool { return a > b }},
	models.OpLessThan:          numericCompareHandler{cmp: func(a, b float64) bool { return a < b }},
	models.OpGreaterThanEquals: numericCompareHandler{cmp: func(a, b float64) bool { return a >= b }},
	models.OpLessThanEquals:    numericCompareHandler{cmp: func(a, b float64) bool { return a <= b }},
	models.OpStartsWith:        substringHandler{match: strings.HasPrefix},
	models.OpEndsWith:          substringHandler{match: strings.HasSuffix},
	models.OpVersionGT:         semverCompareHandler{cmp: func(a, b *semver.Version) bool { return a.GreaterThan(b) }},
	models.OpVersionLT:         semverCompareHandler{cmp: func(a, b *semver.Version) bool { return a.LessThan(b) }},
}

func getOperatorHandler(op models.Operator) (OperatorHandler, bool) {
	h, ok := operatorHandlers[normalizeOperator(op)]
	return h, ok
}

// normalizeOperator accepts the short aliases older payloads use.
func normalizeOperator(op models.Operator) models.Operator {
	switch strings.ToLower(string(op)) {
	case "is", "eq", "==", "equals":
		return models.OpEquals
	case "neq", "!=", "notequals":
		return models.OpNotEquals
	case "contains":
		return models.OpContains
	case "notcontains":
		return models.OpNotContains
	case "in", "oneof":
		return models.OpOneOf
	case "notin", "nin", "notoneof":
		return models.OpNotOneOf
	case "gt", ">", "greaterthan":
		return models.OpGreaterThan
	case "lt", "<", "lesserthan", "lessthan":
		return models.OpLessThan
	case "gte", ">=", "greaterthanequals":
		return models.OpGreaterThanEquals
	case "lte", "<=", "lesserthanequals", "lessthanequals":
		return models.OpLessThanEquals
	case "startswith":
		return models.OpStartsWith
	case "endswith":
		return models.OpEndsWith
	case "semver_gt", "versiongreaterthan":
		return models.OpVersionGT
	case "semver_lt", "versionlessthan":
		return models.OpVersionLT
	default:
		return op
	}
}

func first(declared []values.Value) (values.Value, bool) {
	if len(declared) == 0 {
		return values.Value{}, false
	}
	return declared[0], true
}

type equalsHandler struct{}

func (equalsHandler) Check(attr values.Value, declared []values.Value) bool {
	want, ok := first(declared)
	return ok && attr.Equal(want)
}

type notEqualsHandler struct{}

func (notEqualsHandler) Check(attr values.Value, declared []values.Value) bool {
	want, ok := first(declared)
	return ok && !attr.Equal(want)
}

type substringHandler struct {
	match func(s, substr string) bool
}

func (h substringHandler) Check(attr values.Value, declared []values.Value) bool {
	s, err := attr.AsString()
	if err != nil {
		return false
	}
	want, ok := first(declared)
	if !ok {
		return false
	}
	sub, err := want.AsString()
	if err != nil {
		return false
	}
	return h.match(s, sub)
}

type notContainsHandler struct{}

func (notContainsHandler) Check(attr values.Value, declared []values.Value) bool {
	// Only defined over strings; a non-string attribute is a non-match for
	// both contains and notContains.
	if _, err := attr.AsString(); err != nil {
		return false
	}
	return !(substringHandler{match: strings.Contains}).Check(attr, declared)
}

type oneOfHandler struct{}

func (oneOfHandler) Check(attr values.Value, declared []values.Value) bool {
	for _, want := range declared {
		if attr.Equal(want) {
			return true
		}
	}
	return false
}

type notOneOfHandler struct{}

func (notOneOfHandler) Check(attr values.Value, declared []values.Value) bool {
	// Set element kinds must match the attribute kind, else non-match.
	matched := false
	sameKind := false
	for _, want := range declared {
		if want.Kind() == attr.Kind() {
			sameKind = true
		}
		if attr.Equal(want) {
			matched = true
		}
	}
	return sameKind && !matched
}

type numericCompareHandler struct {
	cmp func(a, b float64) bool
}

func (h numericCompareHandler) Check(attr values.Value, declared []values.Value) bool {
	a, ok := attr.Numeric()
	if !ok {
		return false
	}
	want, ok := first(declared)
	if !ok {
		return false
	}
	b, ok := want.Numeric()
	if !ok {
		return false
	}
	return h.cmp(a, b)
}

type semverCompareHandler struct {
	cmp func(a, b *semver.Version) bool
}

func (h semverCompareHandler) Check(attr values.Value, declared []values.Value) bool {
	s, err := attr.AsString()
	if err != nil {
		return false
	}
	want, ok := first(declared)
	if !ok {
		return false
	}
	ruleStr, err := want.AsString()
	if err != nil {
		return false
	}
	attrVer, err := semver.NewVersion(s)
	if err != nil {
		return false
	}
	ruleVer, err := semver.NewVersion(ruleStr)
	if err != nil {
		return false
	}
	return h.cmp(attrVer, ruleVer)
}
