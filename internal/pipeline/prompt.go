// Package pipeline orchestrates the extraction flow: estimate, chunk,
// generate, parse, validate, deduplicate, store. Generation and parsing
// failures degrade to pattern-based fallback extraction; only storage
// failures surface as errors.
package pipeline

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/casewright/casewright/internal/model"
)

const extractionSystemPrompt = "You are a requirements analyst. Extract use cases from text and return them as JSON."

const refinementSystemPrompt = "You are a requirements analyst refining a use case."

// promptExample is the one-shot example embedded in every extraction prompt.
// Keeping it constant makes generation output cacheable across calls.
const promptExample = `[
  {
    "title": "User searches for restaurants",
    "preconditions": ["User has internet connection", "Location services enabled"],
    "main_flow": ["User opens app", "User enters search criteria", "System queries database", "System displays results", "User views results"],
    "sub_flows": ["User can filter results", "User can sort by rating"],
    "alternate_flows": ["If no results: System suggests nearby areas", "If connection fails: System shows cached results"],
    "outcomes": ["User sees restaurant list", "Search is logged"],
    "stakeholders": ["User", "System", "Database"]
  }
]`

// BuildExtractionPrompt assembles the user prompt for one generation call.
// memoryContext may be empty for fresh sessions.
func BuildExtractionPrompt(memoryContext, text string, maxUseCases int) string {
	var sb strings.Builder

	if memoryContext != "" {
		sb.WriteString(memoryContext)
		sb.WriteString("\n\n")
	}

	sb.WriteString("Requirements:\n")
	sb.WriteString(text)
	sb.WriteString("\n\n")
	fmt.Fprintf(&sb, "Extract approximately %d use cases from the requirements above.\n\n", maxUseCases)
	sb.WriteString(`Return a JSON array of use cases. Each use case must have these fields:
- title: string (format: "Actor action object")
- preconditions: array of strings
- main_flow: array of strings (4-6 steps)
- sub_flows: array of strings
- alternate_flows: array of strings
- outcomes: array of strings
- stakeholders: array of strings

Example format:
`)
	sb.WriteString(promptExample)
	sb.WriteString("\n\nReturn only the JSON array, no other text.")

	return sb.String()
}

// RefinementInstruction maps a refinement type to the instruction given to
// the model. Unknown types get the generic improvement instruction.
func RefinementInstruction(refinementType, custom string) string {
	switch refinementType {
	case "add_detail":
		return "Add more detailed steps to the main flow, breaking down each action into smaller, more specific steps."
	case "add_alternates":
		return "Identify and add alternate flows, including error scenarios, edge cases, and alternative paths through the use case."
	case "add_error_handling":
		return "Add comprehensive error handling scenarios, including what happens when things go wrong, timeouts, validation failures, and system errors."
	case "custom":
		if custom != "" {
			return custom
		}
		return "Improve the use case quality."
	default:
		return "Improve the overall quality and completeness of this use case."
	}
}

// BuildRefinementPrompt assembles the prompt for refining one stored use
// case. sourceContext carries retrieved passages from the session's source
// documents and may be empty.
func BuildRefinementPrompt(uc model.UseCase, instruction, sourceContext string) string {
	current, _ := json.MarshalIndent(uc, "", "  ")

	var sb strings.Builder
	if sourceContext != "" {
		sb.WriteString("Relevant source requirements:\n")
		sb.WriteString(sourceContext)
		sb.WriteString("\n\n")
	}
	sb.WriteString("Current use case:\n")
	sb.Write(current)
	sb.WriteString("\n\nTask: ")
	sb.WriteString(instruction)
	sb.WriteString("\n\nReturn the refined use case in the same JSON format, with improvements applied.")
	return sb.String()
}
