// Package color assigns a persistent color to every color key,
// either from a cyclic palette or from the dominant color of an image.
package color

// DefaultPalette is the palette cycled when no image color is available.
var DefaultPalette = []string{
	"#27C", "#FB0", "#FFF", "#2C8", "#D23", "#0CE", "#F72",
	"#C8C", "#C86", "#F8B", "#DDA", "#BCA", "#F27",
}

// Cycler returns the colors of a palette in order,
// restarting from the first one when exhausted.
type Cycler struct {
	palette []string
	next    int
}

// NewCycler returns a new cycler over the palette.
// An empty palette falls back to DefaultPalette.
func NewCycler(palette []string) *Cycler {
	if len(palette) == 0 {
		palette = DefaultPalette
	}

	return &Cycler{
		palette: palette,
	}
}

// Next returns the next color of the palette.
func (c *Cycler) Next() string {
	col := c.palette[c.next%len(c.palette)]
	c.next++
	return col
}

