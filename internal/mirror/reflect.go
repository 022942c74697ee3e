package mirror

import (
	"sort"

	"mandala/internal/grid"
)

// Reflection is the single-grid view of a profile: where it leans hardest,
// what it deprioritizes, and what sits at its center.
type Reflection struct {
	Name          string
	Center        grid.Position
	Strongest     []grid.Position // descending bias, ties by ascending index
	Deprioritized []grid.Position // ascending bias, ties by ascending index
}

const (
	strongestCount     = 3
	deprioritizedCount = 2
)

// Reflect builds a Reflection of g. g must be valid.
func Reflect(g *grid.Grid) (Reflection, error) {
	center, err := g.Center()
	if err != nil {
		return Reflection{}, err
	}

	var rest []grid.Position
	for _, p := range g.Positions() {
		if !p.IsCenter() {
			rest = append(rest, p)
		}
	}
	sort.SliceStable(rest, func(i, j int) bool {
		if rest[i].Bias != rest[j].Bias {
			return rest[i].Bias < rest[j].Bias
		}
		return rest[i].Index < rest[j].Index
	})
	low := rest
	if len(low) > deprioritizedCount {
		low = low[:deprioritizedCount]
	}

	return Reflection{
		Name:          g.Name(),
		Center:        center,
		Strongest:     g.TopN(strongestCount),
		Deprioritized: append([]grid.Position(nil), low...),
	}, nil
}
