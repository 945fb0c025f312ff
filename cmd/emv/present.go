package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/untoldecay/elembranch/internal/branch"
	"github.com/untoldecay/elembranch/internal/config"
	"github.com/untoldecay/elembranch/internal/element"
	"github.com/untoldecay/elembranch/internal/replay"
)

var (
	styleAdded    = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	styleDeleted  = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	styleModified = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	styleHeading  = lipgloss.NewStyle().Bold(true)
	styleConflict = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("1"))
)

// renderDiffLine formats one element.Diff entry for `diff`/`status`,
// honoring --ui=eids|paths|serial. pathOf resolves an EID to a display
// path in the relevant tree (best-effort; "" when the element has no
// resolvable path, e.g. an orphan).
func renderDiffLine(ui config.UIMode, eid element.EID, d element.Diff, pathOf func(element.EID) string) string {
	kind, sym := "modified", "M"
	switch {
	case d.Left == nil:
		kind, sym = "added", "A"
	case d.Right == nil:
		kind, sym = "deleted", "D"
	}

	label := fmt.Sprintf("%d", eid)
	if ui != config.UIEids {
		if p := pathOf(eid); p != "" {
			label = p
		}
	}

	line := fmt.Sprintf("%s %s", sym, label)
	if ui == config.UISerial {
		return fmt.Sprintf("%s\t%s\t%d", kind, label, eid)
	}
	if ui == config.UIPaths {
		switch kind {
		case "added":
			return styleAdded.Render(line)
		case "deleted":
			return styleDeleted.Render(line)
		default:
			return styleModified.Render(line)
		}
	}
	return line
}

// renderDiffs prints every diff entry, sorted by EID for determinism.
func renderDiffs(ui config.UIMode, diffs map[element.EID]element.Diff, pathOf func(element.EID) string) string {
	eids := make([]element.EID, 0, len(diffs))
	for eid := range diffs {
		eids = append(eids, eid)
	}
	sort.Slice(eids, func(i, j int) bool { return eids[i] < eids[j] })

	var b strings.Builder
	for _, eid := range eids {
		fmt.Fprintln(&b, renderDiffLine(ui, eid, diffs[eid], pathOf))
	}
	return b.String()
}

// renderConflicts formats a ConflictStorage for display after a failed
// merge/switch, naming every single-element, name-clash and orphan
// conflict so the user knows what to inspect before reverting or
// continuing.
func renderConflicts(ui config.UIMode, c *replay.ConflictStorage) string {
	if c == nil || c.Empty() {
		return ""
	}
	var b strings.Builder
	heading := fmt.Sprintf("%d conflict(s)", c.Count())
	if ui == config.UIPaths {
		heading = styleConflict.Render(heading)
	}
	fmt.Fprintln(&b, heading)

	for _, sc := range c.SingleElement {
		fmt.Fprintf(&b, "  single-element %d: yca=%v src=%v tgt=%v\n", sc.EID, describe(sc.YCA), describe(sc.Src), describe(sc.Tgt))
	}
	for _, nc := range c.NameClash {
		fmt.Fprintf(&b, "  name-clash under %d name %q: %v\n", nc.Parent, nc.Name, nc.EIDs)
	}
	for _, oc := range c.Orphan {
		fmt.Fprintf(&b, "  orphan %d\n", oc.EID)
	}
	return b.String()
}

func describe(c *element.Content) string {
	if c == nil {
		return "<absent>"
	}
	return fmt.Sprintf("(parent=%d name=%q)", c.Parent, c.Name)
}

// renderLogMessage renders a revprop "log" message for the `log` command.
// --ui=paths gets glamour's markdown rendering (svnmover-style log
// messages are free text that may contain markdown); other modes print
// the raw string so `--ui=serial` output stays exactly parseable.
func renderLogMessage(ui config.UIMode, msg string) string {
	if msg == "" {
		return "(no log message)"
	}
	if ui != config.UIPaths {
		return msg
	}
	out, err := glamour.Render(msg, "dark")
	if err != nil {
		return msg
	}
	return strings.TrimRight(out, "\n")
}

func heading(ui config.UIMode, s string) string {
	if ui == config.UIPaths {
		return styleHeading.Render(s)
	}
	return s
}

func branchHeading(ui config.UIMode, bid branch.ID, rev branch.RevNum) string {
	return heading(ui, fmt.Sprintf("branch %s @ r%d", bid, rev))
}
