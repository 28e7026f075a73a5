package graph

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/aretw0/storyline/pkg/domain"
)

// maxLabel caps step text shown inside a node.
const maxLabel = 40

// Overlay marks one session's path on the diagram.
type Overlay struct {
	// Choices is the session's choice log; the chosen edge of each step is highlighted.
	Choices []domain.Choice
	// Cursor is the step awaiting a choice; len(steps) means the journey is over.
	Cursor int
}

// GenerateMermaid produces a Mermaid flowchart of the story: a start circle, one node per
// step with both options as edges to the next step, and the shared ending.
func GenerateMermaid(steps []domain.Step, overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")
	sb.WriteString("    start((\"start\"))\n")

	if len(steps) > 0 {
		fmt.Fprintf(&sb, "    start --> %s\n", nodeID(0))
	}

	for i, step := range steps {
		fmt.Fprintf(&sb, "    %s[\"%d. %s\"]\n", nodeID(i), step.ID, escape(truncate(step.Text)))

		next := "finish"
		if i+1 < len(steps) {
			next = nodeID(i + 1)
		}
		fmt.Fprintf(&sb, "    %s -- \"A: %s\" --> %s\n", nodeID(i), escape(step.OptionA), next)
		fmt.Fprintf(&sb, "    %s -- \"B: %s\" --> %s\n", nodeID(i), escape(step.OptionB), next)
	}
	sb.WriteString("    finish((\"end\"))\n")

	if overlay != nil {
		writeOverlay(&sb, steps, overlay)
	}
	return sb.String()
}

func writeOverlay(sb *strings.Builder, steps []domain.Step, overlay *Overlay) {
	sb.WriteString("\n    %% Overlay Styles\n")
	// Black text keeps contrast on light fills in both themes.
	sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
	sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

	for _, c := range overlay.Choices {
		if c.StepIndex < 0 || c.StepIndex >= len(steps) {
			continue
		}
		fmt.Fprintf(sb, "    class %s visited;\n", nodeID(c.StepIndex))
		// Edges are numbered in declaration order: start edge, then A and B per step.
		edge := 1 + 2*c.StepIndex
		if c.Label == domain.LabelB {
			edge++
		}
		fmt.Fprintf(sb, "    linkStyle %d stroke:#01579b,stroke-width:3px;\n", edge)
	}

	switch {
	case overlay.Cursor >= len(steps):
		sb.WriteString("    class finish current;\n")
	case overlay.Cursor >= 0:
		fmt.Fprintf(sb, "    class %s current;\n", nodeID(overlay.Cursor))
	}
}

func nodeID(index int) string {
	return fmt.Sprintf("s%d", index+1)
}

func truncate(s string) string {
	if utf8.RuneCountInString(s) <= maxLabel {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxLabel-1]) + "…"
}

func escape(s string) string {
	s = strings.ReplaceAll(s, "\"", "'")
	return strings.ReplaceAll(s, "\n", " ")
}
