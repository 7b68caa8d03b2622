package importer

import (
	"bufio"
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/golang/geo/r2"

	"spatialdoc/core-go/internal/geometry"
	"spatialdoc/core-go/internal/spatial"
)

// parseText reads the line format:
//
//	# comment
//	layer Walls
//	0 0 10 0
//	poly 0 0 10 0 10 10
//	path 0 0 5 5 10 0
//	point 3 3
//
// Shapes before the first layer header go to a layer named after the file.
func parseText(base string, data []byte) ([]*spatial.ShapeMap, error) {
	ls := newLayers()
	current := base

	sc := bufio.NewScanner(bytes.NewReader(data))
	for n := 1; sc.Scan(); n++ {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		switch fields[0] {
		case "layer":
			name := strings.TrimSpace(strings.TrimPrefix(line, "layer"))
			if name == "" {
				return nil, fmt.Errorf("line %d: layer needs a name", n)
			}
			current = name
			ls.get(current)
		case "poly", "path":
			pts, err := points(fields[1:])
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", n, err)
			}
			if len(pts) < 3 {
				return nil, fmt.Errorf("line %d: %s needs at least three points", n, fields[0])
			}
			ls.get(current).MakeShape(geometry.PolyShape(pts, fields[0] == "poly"))
		case "point":
			pts, err := points(fields[1:])
			if err != nil || len(pts) != 1 {
				return nil, fmt.Errorf("line %d: point needs exactly two numbers", n)
			}
			ls.get(current).MakePointShape(pts[0])
		default:
			pts, err := points(fields)
			if err != nil || len(pts) != 2 {
				return nil, fmt.Errorf("line %d: expected x1 y1 x2 y2, got %q", n, line)
			}
			ls.get(current).MakeLineShape(geometry.Line{Start: pts[0], End: pts[1]})
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return ls.order, nil
}

func points(fields []string) ([]r2.Point, error) {
	if len(fields)%2 != 0 {
		return nil, fmt.Errorf("odd number of coordinates")
	}
	pts := make([]r2.Point, 0, len(fields)/2)
	for i := 0; i < len(fields); i += 2 {
		x, err := strconv.ParseFloat(fields[i], 64)
		if err != nil {
			return nil, err
		}
		y, err := strconv.ParseFloat(fields[i+1], 64)
		if err != nil {
			return nil, err
		}
		pts = append(pts, r2.Point{X: x, Y: y})
	}
	return pts, nil
}
