// Package export renders stored use cases as shareable documents:
// a Markdown specification and a PlantUML use case diagram.
package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/casewright/casewright/internal/model"
)

// Markdown renders a complete use case specification document.
func Markdown(useCases []model.UseCase, session *model.Session, now time.Time) string {
	var md strings.Builder

	md.WriteString("# Use Case Specification\n\n")

	if session != nil {
		fmt.Fprintf(&md, "**Project:** %s  \n", orNA(session.ProjectContext))
		fmt.Fprintf(&md, "**Domain:** %s  \n", orNA(session.Domain))
	}
	fmt.Fprintf(&md, "**Generated:** %s  \n", now.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&md, "**Total Use Cases:** %d  \n\n", len(useCases))

	md.WriteString("## Table of Contents\n\n")
	for i, uc := range useCases {
		fmt.Fprintf(&md, "%d. [%s](#%s)\n", i+1, uc.Title, anchor(uc.Title))
	}
	md.WriteString("\n---\n\n")

	for i, uc := range useCases {
		fmt.Fprintf(&md, "## %d. %s\n\n", i+1, uc.Title)

		writeBulletSection(&md, "Preconditions", uc.Preconditions, model.PlaceholderPreconditions, "*None specified*")

		md.WriteString("### Main Flow\n\n")
		if hasContent(uc.MainFlow, model.PlaceholderMainFlow) {
			for n, step := range uc.MainFlow {
				fmt.Fprintf(&md, "%d. %s\n", n+1, step)
			}
		} else {
			md.WriteString("*Not specified*\n")
		}
		md.WriteString("\n")

		writeBulletSection(&md, "Sub Flows (Optional Paths)", uc.SubFlows, model.PlaceholderSubFlows, "*None specified*")
		writeBulletSection(&md, "Alternate Flows (Error Handling)", uc.AlternateFlows, model.PlaceholderAlternateFlows, "*None specified*")
		writeBulletSection(&md, "Expected Outcomes", uc.Outcomes, model.PlaceholderOutcomes, "*Not specified*")

		md.WriteString("### Stakeholders\n\n")
		if hasContent(uc.Stakeholders, model.PlaceholderStakeholders) {
			md.WriteString(strings.Join(uc.Stakeholders, ", ") + "\n")
		} else {
			md.WriteString("*Not specified*\n")
		}
		md.WriteString("\n")

		if i < len(useCases)-1 {
			md.WriteString("---\n\n")
		}
	}

	return md.String()
}

func writeBulletSection(md *strings.Builder, heading string, items []string, placeholder, empty string) {
	fmt.Fprintf(md, "### %s\n\n", heading)
	if hasContent(items, placeholder) {
		for _, item := range items {
			fmt.Fprintf(md, "- %s\n", item)
		}
	} else {
		md.WriteString(empty + "\n")
	}
	md.WriteString("\n")
}

func hasContent(items []string, placeholder string) bool {
	if len(items) == 0 {
		return false
	}
	return !(len(items) == 1 && items[0] == placeholder)
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

func anchor(title string) string {
	a := strings.ToLower(title)
	a = strings.ReplaceAll(a, " ", "-")
	a = strings.ReplaceAll(a, "/", "-")
	return a
}
