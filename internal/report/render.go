package report

import (
	"fmt"
	"strings"
)

// Render formats doc for a terminal: loss breakdown, then one table row per
// virtual object.
func Render(doc *Document, styles Styles) string {
	var sb strings.Builder
	s := doc.Summary

	sb.WriteString(styles.Title.Render("OPTIMAL HAPTIC PROXY ASSIGNMENT"))
	sb.WriteString("\n")
	sb.WriteString(styles.Muted.Render(fmt.Sprintf("run %s  strategy %s  %d/%d candidates  %.3fs",
		doc.RunID, s.Strategy, s.Candidates, s.TotalCandidates, s.ElapsedSeconds)))
	sb.WriteString("\n\n")

	sb.WriteString(styles.Bold.Render(fmt.Sprintf("Total Loss: %.4f", s.TotalLoss)))
	sb.WriteString("\n")
	for _, c := range []struct {
		name  string
		value float64
	}{
		{"L_realism", s.LossComponents.Realism},
		{"L_priority", s.LossComponents.Priority},
		{"L_interaction", s.LossComponents.Interaction},
	} {
		sb.WriteString(styles.Body.Render(fmt.Sprintf("  %s: %.4f", c.name, c.value)))
		sb.WriteString("\n")
	}
	sb.WriteString("\n")

	if s.Truncated {
		sb.WriteString(styles.Warning.Render("Search stopped early; this is the best assignment found so far."))
		sb.WriteString("\n\n")
	}
	if !s.Exact {
		sb.WriteString(styles.Warning.Render("Interactions were ignored while choosing; this assignment is approximate."))
		sb.WriteString("\n\n")
	}
	if s.Exact && !s.Truncated && len(doc.Assignments) > 0 {
		sb.WriteString(styles.Success.Render("Optimal assignment found."))
		sb.WriteString("\n\n")
	}

	table := NewTable("Virtual Object Assignments", "Virtual", "Physical", "Priority", "Realism", "Object ID", "Image")
	for _, a := range doc.Assignments {
		table.AddRow(
			a.Virtual.Name,
			a.Physical.Name,
			fmt.Sprintf("%.1f", a.Virtual.PriorityWeight),
			fmt.Sprintf("%.3f", a.RealismScore),
			fmt.Sprintf("%d", a.Physical.ObjectID),
			fmt.Sprintf("%d", a.Physical.ImageID),
		)
	}
	if view := table.View(styles); view != "" {
		sb.WriteString(view)
	} else {
		sb.WriteString(styles.Muted.Render("No virtual objects to assign."))
		sb.WriteString("\n")
	}

	if n := len(doc.Skipped); n > 0 {
		sb.WriteString("\n")
		sb.WriteString(styles.Warning.Render(fmt.Sprintf("%d input records were skipped while loading.", n)))
		sb.WriteString("\n")
	}
	return sb.String()
}

// Markdown formats doc as a markdown summary.
func Markdown(doc *Document) string {
	var sb strings.Builder
	s := doc.Summary

	sb.WriteString("# Haptic Proxy Assignment\n\n")
	fmt.Fprintf(&sb, "Run `%s` (%s strategy", doc.RunID, s.Strategy)
	if s.Truncated {
		sb.WriteString(", truncated")
	}
	if !s.Exact {
		sb.WriteString(", approximate")
	}
	fmt.Fprintf(&sb, "), %d of %d candidates evaluated.\n\n", s.Candidates, s.TotalCandidates)

	sb.WriteString("## Loss\n\n")
	sb.WriteString("| Term | Value | Weight |\n|---|---:|---:|\n")
	fmt.Fprintf(&sb, "| L_realism | %.4f | %g |\n", s.LossComponents.Realism, s.Weights.Realism)
	fmt.Fprintf(&sb, "| L_priority | %.4f | %g |\n", s.LossComponents.Priority, s.Weights.Priority)
	fmt.Fprintf(&sb, "| L_interaction | %.4f | %g |\n", s.LossComponents.Interaction, s.Weights.Interaction)
	fmt.Fprintf(&sb, "| **total** | **%.4f** | |\n\n", s.TotalLoss)

	sb.WriteString("## Assignments\n\n")
	if len(doc.Assignments) == 0 {
		sb.WriteString("_No virtual objects to assign._\n")
	} else {
		sb.WriteString("| Virtual | Involvement | Physical | Priority | Realism |\n|---|---|---|---:|---:|\n")
		for _, a := range doc.Assignments {
			fmt.Fprintf(&sb, "| %s | %s | %s (%d, image %d) | %.1f | %.3f |\n",
				a.Virtual.Name, a.Virtual.InvolvementType,
				a.Physical.Name, a.Physical.ObjectID, a.Physical.ImageID,
				a.Virtual.PriorityWeight, a.RealismScore)
		}
	}

	fmt.Fprintf(&sb, "\n%d virtual objects, %d physical objects, exclusivity %v.\n",
		s.NumVirtual, s.NumPhysical, s.Exclusivity)
	if n := len(doc.Skipped); n > 0 {
		fmt.Fprintf(&sb, "%d input records were skipped while loading.\n", n)
	}
	return sb.String()
}
