// Package layout assigns deterministic canvas bounds to generated elements
// so that elements created together do not stack at the origin.
package layout

import (
	"hash/fnv"
	"math/rand/v2"

	"github.com/starford/modeler/internal/models"
)

// Sizing constants shared with the editor's class renderer.
const (
	HeaderHeight    = 60
	AttrRowHeight   = 25
	MethodRowHeight = 25
	SectionGutter   = 10
	ElementWidth    = 220
)

// Workspace placement. Each element gets a grid cell; inside the cell it is
// moved by a seeded spread that is always smaller than the cell padding.
const (
	BaseX   = 50
	BaseY   = 50
	SpreadX = 40
	SpreadY = 30
	Columns = 4
	CellW   = ElementWidth + 80
	CellH   = 320
	RowGap  = 60
)

// Content is the number of rows an element renders. For classes these are
// attributes and methods; other element kinds map their list sections here.
type Content struct {
	Attributes int
	Methods    int
}

// Height returns the exact height of an element with the given content:
// header + N·attrRow + gutter(N>0) + M·methodRow + gutter(M>0).
func Height(c Content) int {
	h := HeaderHeight + c.Attributes*AttrRowHeight + c.Methods*MethodRowHeight
	if c.Attributes > 0 {
		h += SectionGutter
	}
	if c.Methods > 0 {
		h += SectionGutter
	}
	return h
}

// Place returns bounds for the element identified by id, which is the
// existingCount-th element placed in the current batch. The result depends
// only on its arguments.
func Place(id string, existingCount int, c Content) models.Bounds {
	if existingCount < 0 {
		existingCount = 0
	}
	dx, dy := spread(id)
	col := existingCount % Columns
	row := existingCount / Columns
	return models.Bounds{
		X:      BaseX + col*CellW + dx,
		Y:      BaseY + row*CellH + dy,
		Width:  ElementWidth,
		Height: Height(c),
	}
}

// Item is one element of a batch passed to Arrange.
type Item struct {
	ID      string
	Content Content
}

// Arrange places a batch in rows of Columns cells. Row offsets grow with the
// tallest element of the previous row, so tall elements never overlap the
// row below.
func Arrange(items []Item) []models.Bounds {
	out := make([]models.Bounds, len(items))
	y := BaseY
	rowHeight := 0
	for i, it := range items {
		col := i % Columns
		if col == 0 && i > 0 {
			y += rowHeight + RowGap + SpreadY
			rowHeight = 0
		}
		dx, dy := spread(it.ID)
		h := Height(it.Content)
		out[i] = models.Bounds{
			X:      BaseX + col*CellW + dx,
			Y:      y + dy,
			Width:  ElementWidth,
			Height: h,
		}
		if h > rowHeight {
			rowHeight = h
		}
	}
	return out
}

// spread derives a reproducible offset from the element id.
func spread(id string) (int, int) {
	h := fnv.New64a()
	_, _ = h.Write([]byte(id))
	seed := h.Sum64()
	r := rand.New(rand.NewPCG(seed, seed>>1|1))
	return r.IntN(SpreadX + 1), r.IntN(SpreadY + 1)
}

// Members returns bounds for the rows of a placed element: attribute rows
// start below the header, method rows follow after the gutter.
func Members(parent models.Bounds, c Content) (attrs, methods []models.Bounds) {
	x := parent.X + 1
	w := parent.Width - 2
	y := parent.Y + HeaderHeight
	for i := 0; i < c.Attributes; i++ {
		attrs = append(attrs, models.Bounds{X: x, Y: y, Width: w, Height: AttrRowHeight})
		y += AttrRowHeight
	}
	if c.Attributes > 0 {
		y += SectionGutter
	}
	for i := 0; i < c.Methods; i++ {
		methods = append(methods, models.Bounds{X: x, Y: y, Width: w, Height: MethodRowHeight})
		y += MethodRowHeight
	}
	return attrs, methods
}
