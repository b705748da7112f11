package parse

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/casewright/casewright/internal/model"
)

// Normalize coerces a raw parsed record into the canonical UseCase shape.
// It is total: any combination of list, map, scalar, null, or missing values
// in any field produces a valid UseCase with non-nil string slices. Every
// downstream consumer depends on this boundary, so it must never fail.
func Normalize(raw Record) model.UseCase {
	title := strings.TrimSpace(coerceString(raw["title"]))
	if title == "" {
		title = model.PlaceholderTitle
	}

	return model.UseCase{
		Title:          title,
		Preconditions:  ensureList(raw["preconditions"], model.PlaceholderPreconditions),
		MainFlow:       ensureList(raw["main_flow"], model.PlaceholderMainFlow),
		SubFlows:       ensureList(raw["sub_flows"], model.PlaceholderSubFlows),
		AlternateFlows: ensureList(raw["alternate_flows"], model.PlaceholderAlternateFlows),
		Outcomes:       ensureList(raw["outcomes"], model.PlaceholderOutcomes),
		Stakeholders:   ensureList(raw["stakeholders"], model.PlaceholderStakeholders),
	}
}

// ensureList coerces a value of any shape into a non-empty []string:
// sequences have each element coerced to text, mappings flatten to
// "key: value" lines, scalars wrap as a single element, and anything
// absent/empty/null becomes the field placeholder.
func ensureList(value any, placeholder string) []string {
	var out []string

	switch v := value.(type) {
	case nil:
		// fall through to placeholder
	case []any:
		for _, item := range v {
			out = appendCoerced(out, item)
		}
	case []string:
		for _, item := range v {
			if s := strings.TrimSpace(item); s != "" {
				out = append(out, s)
			}
		}
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			out = append(out, k+": "+coerceString(v[k]))
		}
	default:
		if s := strings.TrimSpace(coerceString(v)); s != "" {
			out = append(out, s)
		}
	}

	if len(out) == 0 {
		return []string{placeholder}
	}
	return out
}

// appendCoerced appends one sequence element, flattening nested lists and
// rendering nested maps as JSON text.
func appendCoerced(out []string, item any) []string {
	switch v := item.(type) {
	case string:
		if s := strings.TrimSpace(v); s != "" {
			out = append(out, s)
		}
	case []any:
		for _, nested := range v {
			out = appendCoerced(out, nested)
		}
	case map[string]any:
		if b, err := json.Marshal(v); err == nil {
			out = append(out, string(b))
		}
	case nil:
		// dropped
	default:
		out = append(out, coerceString(v))
	}
	return out
}

// coerceString renders a scalar as text. JSON numbers arrive as float64;
// integral values print without a decimal point.
func coerceString(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case bool:
		return fmt.Sprintf("%t", s)
	case float64:
		if s == float64(int64(s)) {
			return fmt.Sprintf("%d", int64(s))
		}
		return fmt.Sprintf("%g", s)
	default:
		return fmt.Sprintf("%v", s)
	}
}
