// Package memory assembles the session context that precedes the requirements
// text in a generation prompt: project framing, recent conversation turns,
// and previously extracted titles. Feeding titles back is what lets the model
// avoid re-extracting work a previous call already did.
package memory

import (
	"fmt"
	"strings"

	"github.com/casewright/casewright/internal/model"
)

const (
	// DefaultHistoryLimit bounds how many conversation turns are replayed.
	DefaultHistoryLimit = 10

	// maxTitles bounds the previously-extracted list to keep prompts small.
	maxTitles = 20

	// maxTurnChars truncates long conversation turns.
	maxTurnChars = 300
)

// Input is everything the builder folds into one context block.
type Input struct {
	Session  model.Session
	History  []model.ConversationMessage
	Previous []model.UseCase
}

// Builder renders session memory as prompt text.
type Builder struct {
	historyLimit int
}

// NewBuilder creates a context builder.
func NewBuilder() *Builder {
	return &Builder{historyLimit: DefaultHistoryLimit}
}

// Build renders the memory context block. An empty session with no history
// and no previous use cases yields an empty string.
func (b *Builder) Build(in Input) string {
	var sb strings.Builder

	if in.Session.ProjectContext != "" || in.Session.Domain != "" {
		sb.WriteString("PROJECT CONTEXT:\n")
		if in.Session.ProjectContext != "" {
			fmt.Fprintf(&sb, "- Project: %s\n", in.Session.ProjectContext)
		}
		if in.Session.Domain != "" {
			fmt.Fprintf(&sb, "- Domain: %s\n", in.Session.Domain)
		}
		sb.WriteString("\n")
	}

	if len(in.Previous) > 0 {
		sb.WriteString("PREVIOUSLY EXTRACTED USE CASES (do not extract these again):\n")
		titles := in.Previous
		if len(titles) > maxTitles {
			titles = titles[len(titles)-maxTitles:]
		}
		for _, uc := range titles {
			fmt.Fprintf(&sb, "- %s\n", uc.Title)
		}
		sb.WriteString("\n")
	}

	if len(in.History) > 0 {
		sb.WriteString("RECENT CONVERSATION:\n")
		history := in.History
		if len(history) > b.historyLimit {
			history = history[len(history)-b.historyLimit:]
		}
		for _, msg := range history {
			content := msg.Content
			if len(content) > maxTurnChars {
				content = content[:maxTurnChars] + "..."
			}
			fmt.Fprintf(&sb, "%s: %s\n", msg.Role, content)
		}
		sb.WriteString("\n")
	}

	return strings.TrimRight(sb.String(), "\n")
}
