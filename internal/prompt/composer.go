// Package prompt renders a grid into a weighted reasoning prompt.
//
// A Prompt has two parts. The Header holds per-run data (run id, timestamp)
// between fixed delimiter lines; the Body holds everything derived from the
// grid and topic. Body is byte-identical for identical inputs, so it can be
// diffed or cached across runs.
package prompt

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"mandala/internal/grid"
)

const (
	HeaderBegin = "--- BEGIN HEADER ---"
	HeaderEnd   = "--- END HEADER ---"

	// NoTopic stands in for an empty or blank topic.
	NoTopic = "(no topic specified)"
)

// Order names the sequence in which positions are listed.
type Order string

const (
	// OrderCenterThenBias lists the center first, then the rest by
	// descending bias with ties broken by ascending index.
	OrderCenterThenBias Order = "center-bias"
	// OrderGrid lists positions row by row as they sit on the board.
	OrderGrid Order = "grid"
	// OrderIndex lists positions by ascending index.
	OrderIndex Order = "index"
)

// Orders lists every accepted Order.
var Orders = []Order{OrderCenterThenBias, OrderGrid, OrderIndex}

// ParseOrder maps a user-supplied name onto an Order. Empty selects the default.
func ParseOrder(s string) (Order, error) {
	switch Order(strings.ToLower(strings.TrimSpace(s))) {
	case "", OrderCenterThenBias, "bias":
		return OrderCenterThenBias, nil
	case OrderGrid:
		return OrderGrid, nil
	case OrderIndex:
		return OrderIndex, nil
	}
	return "", fmt.Errorf("unknown prompt order %q (valid: %v)", s, Orders)
}

// Arrange returns g's positions in the given order.
func Arrange(g *grid.Grid, order Order) []grid.Position {
	ps := g.Positions()
	switch order {
	case OrderGrid:
		sort.SliceStable(ps, func(i, j int) bool {
			if ps[i].Cell.Row != ps[j].Cell.Row {
				return ps[i].Cell.Row < ps[j].Cell.Row
			}
			return ps[i].Cell.Col < ps[j].Cell.Col
		})
	case OrderIndex:
		// Positions() is already index-sorted.
	default:
		grid.ByBiasDesc(ps)
		for i, p := range ps {
			if p.IsCenter() {
				copy(ps[1:i+1], ps[:i])
				ps[0] = p
				break
			}
		}
	}
	return ps
}

// Prompt is a composed prompt split into its volatile header and stable body.
type Prompt struct {
	Header string
	Body   string
}

// String joins header and body. An empty header is dropped.
func (p Prompt) String() string {
	if p.Header == "" {
		return p.Body
	}
	return p.Header + "\n" + p.Body
}

// Composer builds prompts. The zero value is not usable; call NewComposer.
type Composer struct {
	order  Order
	header bool
	now    func() time.Time
	runID  func() string
}

// Option configures a Composer.
type Option func(*Composer)

// WithOrder sets the listing order.
func WithOrder(o Order) Option {
	return func(c *Composer) { c.order = o }
}

// WithHeader enables or disables the run header.
func WithHeader(enabled bool) Option {
	return func(c *Composer) { c.header = enabled }
}

// WithClock overrides the header timestamp source.
func WithClock(now func() time.Time) Option {
	return func(c *Composer) { c.now = now }
}

// WithRunID overrides the header run id source.
func WithRunID(id func() string) Option {
	return func(c *Composer) { c.runID = id }
}

// NewComposer creates a composer listing center-then-bias with a header.
func NewComposer(opts ...Option) *Composer {
	c := &Composer{
		order:  OrderCenterThenBias,
		header: true,
		now:    time.Now,
		runID:  func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Order returns the configured listing order.
func (c *Composer) Order() Order {
	return c.order
}

// Compose renders g and topic into a prompt. It never fails; a blank topic
// is replaced with NoTopic.
func (c *Composer) Compose(g *grid.Grid, topic string) Prompt {
	var p Prompt
	if c.header {
		p.Header = c.composeHeader(g)
	}
	p.Body = c.composeBody(g, topic)
	return p
}

func (c *Composer) composeHeader(g *grid.Grid) string {
	var sb strings.Builder
	sb.WriteString(HeaderBegin + "\n")
	fmt.Fprintf(&sb, "run: %s\n", c.runID())
	fmt.Fprintf(&sb, "generated: %s\n", c.now().UTC().Format(time.RFC3339))
	fmt.Fprintf(&sb, "profile: %s\n", g.Name())
	sb.WriteString(HeaderEnd + "\n")
	return sb.String()
}

func (c *Composer) composeBody(g *grid.Grid, topic string) string {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		topic = NoTopic
	}

	var sb strings.Builder
	sb.WriteString("You are reasoning through a mandala grid, a weighted personality framework.\n")
	fmt.Fprintf(&sb, "Grid: %s (v%s)\n", g.Name(), g.Version())
	fmt.Fprintf(&sb, "Topic: %s\n", topic)
	sb.WriteString("\n")
	sb.WriteString("Each position represents a cognitive function with a bias weight.\n")
	sb.WriteString("Higher bias = stronger influence on your reasoning.\n")
	sb.WriteString("\n")

	for _, p := range Arrange(g, c.order) {
		fmt.Fprintf(&sb, "  [%d] %s (bias=%s)", p.Index, p.Label, grid.FormatBias(p.Bias))
		if p.Symbol != "" {
			fmt.Fprintf(&sb, " — %s", p.Symbol)
		}
		sb.WriteString("\n")
		if p.Function != "" || p.Description != "" {
			fmt.Fprintf(&sb, "      %s: %s\n", p.Function, p.Description)
		}
	}

	sb.WriteString("\n")
	sb.WriteString(c.instruction())
	sb.WriteString("\n")
	return sb.String()
}

func (c *Composer) instruction() string {
	const base = "Process this topic through all 9 positions, weighting your reasoning by each position's bias."
	switch c.order {
	case OrderGrid:
		return base + " Positions are listed as they sit on the grid; the center observer anchors the rest."
	case OrderIndex:
		return base + " Positions are listed by index; the center observer anchors the rest."
	}
	return base + " Start from the center observer, then engage positions from highest to lowest bias."
}
