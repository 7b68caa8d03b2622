// Package importer turns drawing files into drawing layers. Files are fetched
// through afs, so any URL scheme it supports (file://, mem://, s3://, ...)
// can be imported.
package importer

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/viant/afs"

	"spatialdoc/core-go/internal/spatial"
)

var ErrEmpty = errors.New("drawing has no shapes")

type Importer struct {
	fs afs.Service
}

func New() *Importer {
	return &Importer{fs: afs.New()}
}

// NewWithService is New over an existing afs service.
func NewWithService(fs afs.Service) *Importer {
	return &Importer{fs: fs}
}

// Load downloads url and parses it by extension: .json and .geojson as GeoJSON,
// anything else as line text. Layers without shapes are dropped.
func (i *Importer) Load(ctx context.Context, url string) ([]*spatial.ShapeMap, error) {
	data, err := i.fs.DownloadWithURL(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", url, err)
	}
	return Parse(FileName(url), data)
}

// Parse is Load without the download; name picks the format and the default
// layer name.
func Parse(name string, data []byte) ([]*spatial.ShapeMap, error) {
	base := strings.TrimSuffix(name, path.Ext(name))
	var (
		layers []*spatial.ShapeMap
		err    error
	)
	switch strings.ToLower(path.Ext(name)) {
	case ".json", ".geojson":
		layers, err = parseGeoJSON(base, data)
	default:
		layers, err = parseText(base, data)
	}
	if err != nil {
		return nil, err
	}

	out := layers[:0]
	for _, l := range layers {
		if l.NumShapes() > 0 {
			out = append(out, l)
		}
	}
	if len(out) == 0 {
		return nil, ErrEmpty
	}
	return out, nil
}

// FileName is the last element of a URL path, without any query.
func FileName(url string) string {
	if i := strings.IndexAny(url, "?#"); i >= 0 {
		url = url[:i]
	}
	return path.Base(url)
}

// layerSet keeps layers in first-seen order.
type layerSet struct {
	order  []*spatial.ShapeMap
	byName map[string]*spatial.ShapeMap
}

func newLayers() *layerSet {
	return &layerSet{byName: make(map[string]*spatial.ShapeMap)}
}

func (l *layerSet) get(name string) *spatial.ShapeMap {
	if m, ok := l.byName[name]; ok {
		return m
	}
	m := spatial.NewShapeMap(name, spatial.TypeDrawing)
	l.byName[name] = m
	l.order = append(l.order, m)
	return m
}
