package format

// MaxLineWidth is the width source excerpts are shortened to.
const MaxLineWidth = 92

// Indentation: two spaces per tree level
const (
	IndentWidth  = 2
	IndentString = "  "
)

// Markers
const (
	SpeculativeMarker = "~"
	ErrorMarker       = "!"
	Ellipsis          = "…"
)
