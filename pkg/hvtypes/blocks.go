package hvtypes

// A small starter catalog of materials the terrain generator paints chunks
// with. Real content would load a much larger registry; these three are
// enough to exercise grass/dirt/stone layering.
const (
	Grass BlockID = 1
	Dirt  BlockID = 2
	Stone BlockID = 3
)
