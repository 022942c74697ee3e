package ui

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"mandala/internal/grid"
	"mandala/internal/mirror"
)

// RenderDisplay renders the default view: headline, board, signature and the
// bias-ordered mapping list.
func RenderDisplay(styles Styles, g *grid.Grid) string {
	var sb strings.Builder
	sb.WriteString(RenderHeadline(styles, g))
	sb.WriteString("\n")
	sb.WriteString(RenderBoard(styles, g))
	sb.WriteString("\n\n")
	sb.WriteString(styles.Bold.Render("Personality Signature:") + " " + g.Signature() + "\n")
	sb.WriteString("\n")
	sb.WriteString(RenderMapping(styles, g))
	return sb.String()
}

// RenderMapping lists every position by descending bias with its symbol.
func RenderMapping(styles Styles, g *grid.Grid) string {
	ps := g.Positions()
	grid.ByBiasDesc(ps)

	var sb strings.Builder
	sb.WriteString(styles.Bold.Render("Eight Consciousnesses Mapping:") + "\n")
	for _, p := range ps {
		symbol := p.SymbolZH
		if symbol == "" {
			symbol = p.Symbol
		}
		fmt.Fprintf(&sb, "  [%d] ", p.Index)
		if symbol != "" {
			sb.WriteString(symbol + " → ")
		}
		fmt.Fprintf(&sb, "%s (bias=%s)\n", p.Label, grid.FormatBias(p.Bias))
	}
	return sb.String()
}

// VerdictStyle picks a status style for v.
func (s Styles) VerdictStyle(v mirror.Verdict) func(...string) string {
	switch v {
	case mirror.VerdictAligned:
		return s.Success.Render
	case mirror.VerdictSimilar:
		return s.Info.Render
	case mirror.VerdictDivergent:
		return s.Warning.Render
	}
	return s.Error.Render
}

// RenderComparison renders a per-position delta table followed by the
// summary verdict and both signatures.
func RenderComparison(styles Styles, res *mirror.Result, a, b *grid.Grid) string {
	var sb strings.Builder
	sb.WriteString(styles.Title.Render(fmt.Sprintf("Comparing [%s] vs [%s]", res.NameA, res.NameB)) + "\n")
	sb.WriteString(styles.RenderDivider("=", 50) + "\n")

	tbl := NewSimpleTable("", []string{"Index", "Label", res.NameA, res.NameB, "Delta"})
	tbl.RightAlign[0] = true
	tbl.RightAlign[2] = true
	tbl.RightAlign[3] = true
	tbl.RightAlign[4] = true
	for _, d := range res.Deltas {
		delta := d.String()
		if d.Delta == 0 {
			delta = "0.00"
		}
		tbl.AddRow(strconv.Itoa(d.Index), d.Label, grid.FormatBias(d.From), grid.FormatBias(d.To), delta)
	}
	sb.WriteString(tbl.View(styles))
	sb.WriteString("\n")

	s := res.Summary
	sb.WriteString(styles.Bold.Render("Verdict:") + " " + styles.VerdictStyle(s.Verdict)(string(s.Verdict)) + "\n")
	fmt.Fprintf(&sb, "  changed positions:          %d/%d\n", s.ChangedCount, len(res.Deltas))
	fmt.Fprintf(&sb, "  mean |delta| (changed):     %.3f\n", s.ChangedMeanAbsDelta)
	fmt.Fprintf(&sb, "  mean |delta| (all):         %.3f\n", s.MeanAbsDelta)
	fmt.Fprintf(&sb, "  max |delta|:                %.3f\n", s.MaxAbsDelta)
	sb.WriteString("\n")
	fmt.Fprintf(&sb, "  %s: %s\n", a.Name(), a.Signature())
	fmt.Fprintf(&sb, "  %s: %s\n", b.Name(), b.Signature())
	return sb.String()
}

// RenderReflection renders the single-grid mirror analysis.
func RenderReflection(styles Styles, r mirror.Reflection) string {
	var sb strings.Builder
	sb.WriteString(styles.Title.Render("═══ Mirror Analysis ═══") + "\n")
	sb.WriteString("\n")
	sb.WriteString(styles.Subtitle.Render("A grid is a self-portrait of how its author thinks.") + "\n")
	sb.WriteString("\n")

	sb.WriteString(styles.Bold.Render("Strongest patterns:") + "\n")
	for _, p := range r.Strongest {
		fmt.Fprintf(&sb, "  ⬆ %s (bias=%s)", p.Label, grid.FormatBias(p.Bias))
		if p.Description != "" {
			sb.WriteString(": you naturally " + lowerFirst(p.Description))
		}
		sb.WriteString("\n")
	}
	sb.WriteString("\n")

	sb.WriteString(styles.Bold.Render("Deprioritized patterns:") + "\n")
	for _, p := range r.Deprioritized {
		fmt.Fprintf(&sb, "  ⬇ %s (bias=%s)", p.Label, grid.FormatBias(p.Bias))
		if p.Function != "" {
			sb.WriteString(": you tend to under-invest in " + p.Function)
		}
		sb.WriteString("\n")
	}
	sb.WriteString("\n")

	sb.WriteString(styles.Bold.Render("Center:") + " " + r.Center.Label)
	if r.Center.Description != "" {
		sb.WriteString(": " + r.Center.Description)
	}
	sb.WriteString("\n")
	return sb.String()
}

func lowerFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToLower(r)) + s[size:]
}
