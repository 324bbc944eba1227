package color

import (
	"fmt"
	"image/color"
	"strconv"
)

// Hex returns the #rrggbb notation of the color.
func Hex(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// ParseHex parses the #rgb, #rgba, #rrggbb and #rrggbbaa notations.
func ParseHex(s string) (color.NRGBA, error) {
	if len(s) == 0 || s[0] != '#' {
		return color.NRGBA{}, fmt.Errorf("invalid color %q: missing #", s)
	}

	digits := s[1:]

	var expanded string
	switch len(digits) {
	case 3, 4:
		buf := make([]byte, 0, len(digits)*2)
		for i := range len(digits) {
			buf = append(buf, digits[i], digits[i])
		}
		expanded = string(buf)
	case 6, 8:
		expanded = digits
	default:
		return color.NRGBA{}, fmt.Errorf("invalid color %q: unexpected length", s)
	}

	if len(expanded) == 6 {
		expanded += "ff"
	}

	v, err := strconv.ParseUint(expanded, 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("invalid color %q: %w", s, err)
	}

	return color.NRGBA{
		R: uint8(v >> 24),
		G: uint8(v >> 16),
		B: uint8(v >> 8),
		A: uint8(v),
	}, nil
}
