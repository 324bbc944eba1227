package ingress

import (
	"errors"
	"strings"
	"unicode/utf8"
)

///////////////
//  DECODER  //
///////////////

type csvDecoder struct {
	comma byte
}

func newCSVDecoder(comma byte) *csvDecoder {
	return &csvDecoder{
		comma: comma,
	}
}

// decode splits the data into rows of columns.
// Quoted columns may contain the separator, new lines and escaped quotes ("").
// Empty rows are skipped.
func (d *csvDecoder) decode(data []byte) ([][]string, error) {
	// Skip the UTF-8 byte order mark
	data = trimBOM(data)

	acc := &strings.Builder{}
	acc.Grow(16)

	rows := [][]string{}
	row := []string{}

	inQuotes := false
	rowStarted := false

	idx := 0
	for idx < len(data) {
		// Check if we have a multi-byte rune
		if data[idx] >= utf8.RuneSelf {
			r, size := utf8.DecodeRune(data[idx:])
			idx += size
			acc.WriteRune(r)
			rowStarted = true
			continue
		}

		b := data[idx]
		idx++

		if inQuotes {
			if b != '"' {
				acc.WriteByte(b)
				continue
			}

			// Escaped quote
			if idx < len(data) && data[idx] == '"' {
				acc.WriteByte('"')
				idx++
				continue
			}

			inQuotes = false
			continue
		}

		switch b {
		case '"':
			inQuotes = true
			rowStarted = true

		case d.comma:
			// Found a column
			row = append(row, acc.String())
			acc.Reset()
			rowStarted = true

		case '\n':
			// Check if it is an empty row
			if !rowStarted {
				continue
			}

			row = append(row, acc.String())
			acc.Reset()

			rows = append(rows, row)
			row = []string{}
			rowStarted = false

		case '\r':
			// Ignore carriage return
			continue

		default:
			acc.WriteByte(b)
			rowStarted = true
		}
	}

	if inQuotes {
		return nil, errors.New("invalid CSV format: unterminated quoted column")
	}

	// The last row may not end with a new line
	if rowStarted {
		row = append(row, acc.String())
		rows = append(rows, row)
	}

	return rows, nil
}

func trimBOM(data []byte) []byte {
	if len(data) >= 3 && data[0] == 0xEF && data[1] == 0xBB && data[2] == 0xBF {
		return data[3:]
	}
	return data
}
