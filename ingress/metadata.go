package ingress

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// Metadata contains the extra columns of every id, keyed by id then column.
type Metadata map[string]map[string]string

// Get returns the column of the id, or an empty string.
func (md Metadata) Get(id, column string) string {
	return md[id][column]
}

// LoadMetadata reads a metadata CSV file.
// The first row is the header, and it must contain the id field.
func LoadMetadata(ctx context.Context, path, idField string) (Metadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	return decodeMetadata(data, idField)
}

func decodeMetadata(data []byte, idField string) (Metadata, error) {
	rows, err := newCSVDecoder(DefaultCSVConfigComma).decode(data)
	if err != nil {
		return nil, err
	}

	idCol := -1
	var header []string
	if len(rows) > 0 {
		header = rows[0]
		for i, name := range header {
			header[i] = strings.TrimSpace(name)
			if header[i] == idField {
				idCol = i
			}
		}
	}

	if idCol < 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, idField)
	}

	md := make(Metadata, len(rows)-1)
	for _, row := range rows[1:] {
		if idCol >= len(row) {
			continue
		}

		entry := make(map[string]string, len(header))
		for i, col := range row {
			if i >= len(header) {
				break
			}
			entry[header[i]] = strings.TrimSpace(col)
		}

		md[entry[idField]] = entry
	}

	return md, nil
}
