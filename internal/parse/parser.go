// Package parse recovers structured use case records from raw generative
// model output. Model output is adversarial input from a parsing standpoint:
// it arrives fenced, truncated, over-escaped, or as plain prose, so every
// strategy here degrades to a weaker one instead of failing hard.
package parse

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"
)

// ErrNoRecords is returned when every extraction strategy yields nothing.
var ErrNoRecords = errors.New("no use case records found in output")

// Record is one raw parsed record before normalization. Field values may be
// strings, lists, maps, numbers, or null.
type Record map[string]any

var (
	fenceOpenRe     = regexp.MustCompile("(?m)^```[a-zA-Z]*\\s*$")
	trailingCommaRe = regexp.MustCompile(`,(\s*[}\]])`)
	numberedSplitRe = regexp.MustCompile(`\n\s*\d+\.\s+`)
	titleLineRe     = regexp.MustCompile(`^([A-Z][^\n]+)`)
	fieldLineRe     = regexp.MustCompile(`-\s*([^:\n]+):\s*(.*)`)
)

// fieldLabels maps the "- Label: value" plain-text labels to record keys.
var fieldLabels = map[string]string{
	"preconditions":   "preconditions",
	"main flow":       "main_flow",
	"sub flows":       "sub_flows",
	"alternate flows": "alternate_flows",
	"outcomes":        "outcomes",
	"stakeholders":    "stakeholders",
}

// Clean repairs raw generation output before extraction. Generation output is
// truncated by token budget and prone to escaping artifacts distinct from
// arbitrary malformed data: leading narration before the first '[', trailing
// narration after the last ']', doubled escapes, literal None/True/False, and
// unbalanced brackets from mid-array truncation.
func Clean(raw string) string {
	s := strings.TrimSpace(raw)

	s = stripFences(s)

	// Cut narration around the outermost array, when one is present.
	if first := strings.Index(s, "["); first > 0 {
		s = s[first:]
	}
	if last := strings.LastIndex(s, "]"); last != -1 {
		s = s[:last+1]
	}

	// Over-escaped quotes from models that escape inside already-quoted text.
	s = strings.ReplaceAll(s, `\\"`, `"`)
	s = strings.ReplaceAll(s, `\"`, `"`)

	s = repairLiterals(s)
	s = trailingCommaRe.ReplaceAllString(s, "$1")

	// Append closers lost to token-budget truncation.
	if open, closed := strings.Count(s, "{"), strings.Count(s, "}"); open > closed {
		s += strings.Repeat("}", open-closed)
	}
	if open, closed := strings.Count(s, "["), strings.Count(s, "]"); open > closed {
		s += strings.Repeat("]", open-closed)
	}

	return s
}

// ExtractRecords extracts structured records from text using three strategies
// in order: strict JSON blocks, repaired JSON blocks, and a plain-text
// heuristic over numbered sections. It fails with ErrNoRecords only when all
// three yield nothing.
func ExtractRecords(raw string) ([]Record, error) {
	cleaned := stripFences(strings.TrimSpace(raw))
	cleaned = strings.ReplaceAll(cleaned, "\n\n", "\n")

	var records []Record

	for _, m := range scanBlocks(cleaned) {
		parsed, ok := parseBlock(m)
		if !ok {
			continue
		}
		records = append(records, parsed...)
	}

	if len(records) == 0 {
		records = parsePlainText(cleaned)
	}

	if len(records) == 0 {
		return nil, ErrNoRecords
	}
	return records, nil
}

// scanBlocks finds top-level bracketed blocks by balance counting. A
// non-greedy regex cannot do this: it stops at the first closer, which for
// any record with a nested array is the wrong one. Quoted strings are skipped
// so brackets inside values do not shift the depth.
func scanBlocks(s string) []string {
	var blocks []string
	depth := 0
	start := -1
	inString := false
	escaped := false

	for i, r := range s {
		if inString {
			switch {
			case escaped:
				escaped = false
			case r == '\\':
				escaped = true
			case r == '"':
				inString = false
			}
			continue
		}

		switch r {
		case '"':
			if depth > 0 {
				inString = true
			}
		case '[', '{':
			if depth == 0 {
				start = i
			}
			depth++
		case ']', '}':
			if depth == 0 {
				continue // stray closer outside any block
			}
			depth--
			if depth == 0 {
				blocks = append(blocks, s[start:i+len(string(r))])
			}
		}
	}
	return blocks
}

// parseBlock attempts strict parsing of one bracketed block, then one repair
// pass. Still-unparseable blocks are discarded.
func parseBlock(block string) ([]Record, bool) {
	if records, ok := unmarshalRecords(block); ok {
		return records, true
	}

	repaired := trailingCommaRe.ReplaceAllString(repairLiterals(block), "$1")
	if records, ok := unmarshalRecords(repaired); ok {
		return records, true
	}
	return nil, false
}

// unmarshalRecords parses a JSON value and keeps only object-shaped entries.
func unmarshalRecords(s string) ([]Record, bool) {
	var value any
	if err := json.Unmarshal([]byte(s), &value); err != nil {
		return nil, false
	}

	switch v := value.(type) {
	case map[string]any:
		return []Record{Record(v)}, true
	case []any:
		var records []Record
		for _, item := range v {
			if m, ok := item.(map[string]any); ok {
				records = append(records, Record(m))
			}
		}
		return records, len(records) > 0
	default:
		return nil, false
	}
}

// parsePlainText is the last-resort heuristic: split on numbered list
// markers, take the first capitalized line of each block as the title, and
// scan for "- Label: value" lines to populate the known fields.
func parsePlainText(text string) []Record {
	var records []Record

	for _, block := range numberedSplitRe.Split(text, -1) {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}
		titleMatch := titleLineRe.FindStringSubmatch(block)
		if titleMatch == nil {
			continue
		}

		record := Record{"title": strings.TrimSpace(titleMatch[1])}
		for _, m := range fieldLineRe.FindAllStringSubmatch(block, -1) {
			label := strings.ToLower(strings.TrimSpace(m[1]))
			if key, ok := fieldLabels[label]; ok {
				record[key] = strings.TrimSpace(m[2])
			}
		}
		// A bare capitalized line is prose, not a record. Require at least
		// one labeled field.
		if len(record) < 2 {
			continue
		}
		records = append(records, record)
	}
	return records
}

// stripFences removes markdown code-fence marker lines.
func stripFences(s string) string {
	s = fenceOpenRe.ReplaceAllString(s, "")
	// Inline fences that share a line with content.
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}

// repairLiterals translates Python-spelled literals into JSON ones. Local
// instruct models trained on mixed corpora emit these routinely.
func repairLiterals(s string) string {
	s = strings.ReplaceAll(s, "None", "null")
	s = strings.ReplaceAll(s, "True", "true")
	s = strings.ReplaceAll(s, "False", "false")
	return s
}
