package cli

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/viant/sqlite-kdtree/vector"
)

// pointsFile is the TOML layout accepted by kdq load:
//
//	[[points]]
//	id = "d"
//	label = "depot"
//	coords = [6.0, 12.0]
type pointsFile struct {
	Points []pointEntry `toml:"points"`
}

type pointEntry struct {
	ID     string    `toml:"id"`
	Label  string    `toml:"label"`
	Meta   string    `toml:"meta"`
	Coords []float32 `toml:"coords"`
}

func readPointsFile(path string) ([]vector.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return parsePoints(data)
}

func parsePoints(data []byte) ([]vector.Record, error) {
	var file pointsFile
	if err := toml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("invalid points file: %w", err)
	}
	records := make([]vector.Record, 0, len(file.Points))
	for i, p := range file.Points {
		if len(p.Coords) == 0 {
			return nil, fmt.Errorf("point %d (%q) has no coords", i, p.ID)
		}
		records = append(records, vector.Record{ID: p.ID, Label: p.Label, Meta: p.Meta, Coords: p.Coords})
	}
	return records, nil
}

// parseCoords reads a query point written as "x,y,...".
func parseCoords(raw string) ([]float32, error) {
	parts := strings.Split(raw, ",")
	coords := make([]float32, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		f, err := strconv.ParseFloat(part, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid coordinate %q: %w", part, err)
		}
		coords = append(coords, float32(f))
	}
	if len(coords) == 0 {
		return nil, fmt.Errorf("query point %q has no coordinates", raw)
	}
	return coords, nil
}
