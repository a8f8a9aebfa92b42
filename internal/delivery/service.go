// Package delivery chains the processing steps behind the CLI: it reads
// inputs, runs a step, writes every artefact and reports what it produced.
package delivery

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cyhsu/AgriGeoSpatial/internal/cache"
	"github.com/cyhsu/AgriGeoSpatial/internal/grid"
	"github.com/cyhsu/AgriGeoSpatial/internal/properties"
	"github.com/cyhsu/AgriGeoSpatial/internal/raster"
	"github.com/cyhsu/AgriGeoSpatial/output"
)

// RasterStore reads and writes raster files.
type RasterStore interface {
	Load(path string) (*raster.Raster, error)
	Save(r *raster.Raster, path string) error
}

type Service struct {
	cfg     properties.Config
	rasters RasterStore
	grids   *cache.FileCache[grid.Snapshot]
}

func NewService(cfg properties.Config, rasters RasterStore) *Service {
	return &Service{
		cfg:     cfg,
		rasters: rasters,
		grids:   cache.NewFileCache[grid.Snapshot](filepath.Join(cfg.CacheDir, "grids")),
	}
}

// Report lists the files a run wrote and a few figures worth showing.
type Report struct {
	Command string
	Outputs []string
	Summary map[string]string
}

func newReport(command string) *Report {
	return &Report{Command: command, Summary: map[string]string{}}
}

func (r *Report) add(path string) {
	r.Outputs = append(r.Outputs, path)
}

// resultDir creates <OutputDir>/<name>.
func (s *Service) resultDir(name string) (string, error) {
	dir := filepath.Join(s.cfg.OutputDir, name)
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return "", fmt.Errorf("failed to create result folder: %v", err)
	}
	return dir, nil
}

// RunName derives a result folder name from an input path.
func RunName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// tableFormat pairs a file extension with the writer producing it.
type tableFormat struct {
	ext   string
	write func(*output.Table, string) error
}

var (
	csvFormat       = tableFormat{".csv", output.WriteCSV}
	geojsonFormat   = tableFormat{".geojson", output.WriteGeoJSON}
	shapefileFormat = tableFormat{".shp", output.WriteShapefile}
)

// writeTable writes t as <dir>/<base><ext> once per format.
func writeTable(rep *Report, dir string, t *output.Table, base string, formats ...tableFormat) error {
	for _, f := range formats {
		path := filepath.Join(dir, base+f.ext)
		if err := f.write(t, path); err != nil {
			return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
		}
		rep.add(path)
	}
	return nil
}
