// Package grid holds the mandala grid model: nine labeled, weighted positions
// laid out on a 3x3 board with the center observer at (1,1).
//
// A Grid is immutable once built. Accessors hand out copies, and profiles are
// swapped wholesale rather than edited field by field.
package grid

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

const (
	// Size is the number of positions in a grid.
	Size = 9
	// CenterIndex is the index pinned to the middle cell.
	CenterIndex = 0

	// DefaultVersion is the document version written for new grids.
	DefaultVersion = "2.0"
	// DefaultName names the canonical profile.
	DefaultName = "quan-default"
)

// Cell is a (row, column) coordinate on the 3x3 board.
type Cell struct {
	Row int `json:"row" yaml:"row"`
	Col int `json:"col" yaml:"col"`
}

// Center is the cell reserved for CenterIndex.
var Center = Cell{Row: 1, Col: 1}

// InBounds reports whether c lies on the 3x3 board.
func (c Cell) InBounds() bool {
	return c.Row >= 0 && c.Row < 3 && c.Col >= 0 && c.Col < 3
}

func (c Cell) String() string {
	return fmt.Sprintf("(%d,%d)", c.Row, c.Col)
}

// canonicalLayout maps each index to its cell:
//
//	1 2 3
//	6 0 5
//	7 8 4
var canonicalLayout = [Size]Cell{
	0: {1, 1},
	1: {0, 0},
	2: {0, 1},
	3: {0, 2},
	4: {2, 2},
	5: {1, 2},
	6: {1, 0},
	7: {2, 0},
	8: {2, 1},
}

// CanonicalCell returns the default cell for index and whether index is in range.
func CanonicalCell(index int) (Cell, bool) {
	if index < 0 || index >= Size {
		return Cell{}, false
	}
	return canonicalLayout[index], true
}

// Position is one labeled, weighted cell of the grid.
// Symbol, LabelZH, SymbolZH, Function and Description are decorative; nothing
// in validation, ordering or comparison looks at them.
type Position struct {
	Index       int
	Label       string
	LabelZH     string
	Symbol      string
	SymbolZH    string
	Function    string
	Bias        float64
	Description string
	Cell        Cell
}

// IsCenter reports whether p is the center observer.
func (p Position) IsCenter() bool {
	return p.Index == CenterIndex
}

// Grid is the complete set of nine positions plus profile metadata.
type Grid struct {
	version     string
	name        string
	description string
	positions   []Position // sorted by index
}

// New builds a Grid from positions. The slice is copied and sorted by index;
// call Validate before trusting the result.
func New(version, name, description string, positions []Position) *Grid {
	ps := make([]Position, len(positions))
	copy(ps, positions)
	sort.SliceStable(ps, func(i, j int) bool { return ps[i].Index < ps[j].Index })
	return &Grid{
		version:     version,
		name:        name,
		description: description,
		positions:   ps,
	}
}

// Default returns the canonical Quan-style grid. Each call builds a fresh value.
func Default() *Grid {
	at := func(i int) Cell { return canonicalLayout[i] }
	return New(DefaultVersion, DefaultName,
		"The canonical Quan personality grid with Eight Consciousnesses mapping.",
		[]Position{
			{0, "Center Observer", "中心觀測者", "ālayavijñāna", "第八識（阿賴耶識）", "core_identity", 1.00,
				"The silent witness. Observes all positions without attachment.", at(0)},
			{1, "Logic Gate", "邏輯門", "manovijñāna", "第六識（意識）", "logical_consistency", 0.90,
				"Rejects any output that contradicts established logic chains.", at(1)},
			{2, "Evidence Filter", "證據過濾", "cakṣur-vijñāna", "眼識", "critical_evidence", 0.80,
				"Demands verifiable evidence before accepting claims.", at(2)},
			{3, "Minimal Reasoner", "極簡推理", "ghrāṇa-vijñāna", "鼻識", "minimal_reasoning", 0.70,
				"Strips arguments to their simplest valid form.", at(3)},
			{4, "Pragmatic Executor", "實踐執行", "kāya-vijñāna", "身識", "practical_execution", 0.60,
				"Converts reasoning into actionable steps.", at(4)},
			{5, "Precision Output", "精準產出", "jihvā-vijñāna", "舌識", "precise_output", 0.80,
				"Ensures output matches the required format and depth.", at(5)},
			{6, "Boundary Sentinel", "認知邊界", "śrotra-vijñāna", "耳識", "cognitive_boundary", 0.90,
				"Flags when reasoning exceeds model capabilities or data.", at(6)},
			{7, "Deconstructor", "解構者", "manas", "第七識（末那識）", "deconstruction", 0.95,
				"Actively seeks counter-examples and hidden assumptions.", at(7)},
			{8, "Legacy Keeper", "傳承守護", "beyond-eight", "傳承（超八識）", "core_record_relay", 0.50,
				"Ensures continuity across sessions and generations.", at(8)},
		})
}

// Version returns the document version tag.
func (g *Grid) Version() string { return g.version }

// Name returns the profile name.
func (g *Grid) Name() string { return g.name }

// Description returns the free-text profile description.
func (g *Grid) Description() string { return g.description }

// Len returns the number of positions held.
func (g *Grid) Len() int { return len(g.positions) }

// Positions returns a copy of the positions sorted by index.
func (g *Grid) Positions() []Position {
	out := make([]Position, len(g.positions))
	copy(out, g.positions)
	return out
}

// Indices returns the sorted position indices.
func (g *Grid) Indices() []int {
	out := make([]int, len(g.positions))
	for i, p := range g.positions {
		out[i] = p.Index
	}
	return out
}

// Get returns the position with the given index.
func (g *Grid) Get(index int) (Position, error) {
	if index < 0 || index >= Size {
		return Position{}, Errorf(KindNotFound, "index %d outside 0..%d", index, Size-1)
	}
	for _, p := range g.positions {
		if p.Index == index {
			return p, nil
		}
	}
	return Position{}, Errorf(KindNotFound, "no position with index %d", index)
}

// At returns the position placed in cell, if any.
func (g *Grid) At(c Cell) (Position, bool) {
	for _, p := range g.positions {
		if p.Cell == c {
			return p, true
		}
	}
	return Position{}, false
}

// Center returns the center observer.
func (g *Grid) Center() (Position, error) {
	return g.Get(CenterIndex)
}

// Validate checks index completeness, bias range and the board layout.
// The first violation found is returned as a KindInvalidGrid error.
func (g *Grid) Validate() error {
	seenIndex := make(map[int]bool, Size)
	seenCell := make(map[Cell]int, Size)
	for _, p := range g.positions {
		if p.Index < 0 || p.Index >= Size {
			return Errorf(KindInvalidGrid, "position index %d outside 0..%d", p.Index, Size-1)
		}
		if seenIndex[p.Index] {
			return Errorf(KindInvalidGrid, "duplicate position index %d", p.Index)
		}
		seenIndex[p.Index] = true

		if math.IsNaN(p.Bias) || p.Bias < 0 || p.Bias > 1 {
			return Errorf(KindInvalidGrid, "position %d (%s) bias %v outside [0,1]", p.Index, p.Label, p.Bias)
		}

		if !p.Cell.InBounds() {
			return Errorf(KindInvalidGrid, "position %d cell %s outside 3x3 board", p.Index, p.Cell)
		}
		if other, dup := seenCell[p.Cell]; dup {
			return Errorf(KindInvalidGrid, "positions %d and %d share cell %s", other, p.Index, p.Cell)
		}
		seenCell[p.Cell] = p.Index

		if p.IsCenter() && p.Cell != Center {
			return Errorf(KindInvalidGrid, "center position must sit at %s, found %s", Center, p.Cell)
		}
	}

	// Distinct in-range indices with no gap means exactly Size positions.
	for i := 0; i < Size; i++ {
		if !seenIndex[i] {
			return Errorf(KindInvalidGrid, "missing position index %d", i)
		}
	}
	return nil
}

// Equal reports whether g and other hold the same metadata and positions.
func (g *Grid) Equal(other *Grid) bool {
	if g == nil || other == nil {
		return g == other
	}
	if g.version != other.version || g.name != other.name || g.description != other.description {
		return false
	}
	if len(g.positions) != len(other.positions) {
		return false
	}
	for i := range g.positions {
		if g.positions[i] != other.positions[i] {
			return false
		}
	}
	return true
}

// WithBias returns a copy of g with one position's bias replaced.
// It exists for building variant profiles; g itself is untouched.
func (g *Grid) WithBias(index int, bias float64) (*Grid, error) {
	ps := g.Positions()
	for i := range ps {
		if ps[i].Index == index {
			ps[i].Bias = bias
			return New(g.version, g.name, g.description, ps), nil
		}
	}
	return nil, Errorf(KindNotFound, "no position with index %d", index)
}

// WithName returns a copy of g under a different profile name.
func (g *Grid) WithName(name string) *Grid {
	return New(g.version, name, g.description, g.positions)
}

// ByBiasDesc orders positions by descending bias, ties broken by ascending index.
func ByBiasDesc(ps []Position) {
	sort.SliceStable(ps, func(i, j int) bool {
		if ps[i].Bias != ps[j].Bias {
			return ps[i].Bias > ps[j].Bias
		}
		return ps[i].Index < ps[j].Index
	})
}

// TopN returns the n highest-bias positions excluding the center.
func (g *Grid) TopN(n int) []Position {
	var rest []Position
	for _, p := range g.positions {
		if !p.IsCenter() {
			rest = append(rest, p)
		}
	}
	ByBiasDesc(rest)
	if n < len(rest) {
		rest = rest[:n]
	}
	return rest
}

// Signature is a one-line summary built from the top three biases, e.g.
// "[quan-default] Deconstructor(0.95) > Logic Gate(0.90) > Boundary Sentinel(0.90)".
func (g *Grid) Signature() string {
	top := g.TopN(3)
	parts := make([]string, len(top))
	for i, p := range top {
		parts[i] = fmt.Sprintf("%s(%s)", p.Label, FormatBias(p.Bias))
	}
	return fmt.Sprintf("[%s] %s", g.name, strings.Join(parts, " > "))
}

// FormatBias renders a bias with at least two decimals and no more digits
// than needed to read the same float64 back: 1 -> "1.00", 0.955 -> "0.955".
func FormatBias(b float64) string {
	s := strconv.FormatFloat(b, 'f', -1, 64)
	dot := strings.IndexByte(s, '.')
	switch {
	case dot < 0:
		return s + ".00"
	case len(s)-dot-1 < 2:
		return s + strings.Repeat("0", 2-(len(s)-dot-1))
	}
	return s
}
