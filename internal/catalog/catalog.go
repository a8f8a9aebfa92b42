// Package catalog finds the vector, archive and raster inputs of a survey
// under a data directory.
package catalog

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/cyhsu/AgriGeoSpatial/internal/utils"
	"github.com/sirupsen/logrus"
)

var datePattern = regexp.MustCompile(`\d{4}-\d{2}-\d{2}`)

type Catalog struct {
	Keyword    string
	Shapefiles []string
	Archives   []string
	// Rasters groups .tif paths by the YYYY-MM-DD date found in their
	// directory name.
	Rasters map[string][]string
}

// Dates returns the raster acquisition dates in ascending order.
func (c *Catalog) Dates() []string {
	return utils.SortedKeys(c.Rasters, true)
}

// Collect walks root. Inside directories whose path contains keyword every
// .shp and .zip is taken, and .tif files are grouped by the date in the
// directory path. Elsewhere only .shp and .zip files whose name contains
// keyword are taken.
func Collect(root, keyword string) (*Catalog, error) {
	c := &Catalog{Keyword: keyword, Rasters: map[string][]string{}}
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		dir, name := filepath.Dir(path), d.Name()
		ext := strings.ToLower(filepath.Ext(name))
		inKeywordDir := strings.Contains(dir, keyword)
		if !inKeywordDir && !strings.Contains(name, keyword) {
			return nil
		}
		switch ext {
		case ".shp":
			c.Shapefiles = append(c.Shapefiles, path)
		case ".zip":
			c.Archives = append(c.Archives, path)
		case ".tif", ".tiff":
			if !inKeywordDir {
				return nil
			}
			date := datePattern.FindString(dir)
			if date == "" {
				logrus.WithField("path", path).Debug("raster outside a dated directory, skipped")
				return nil
			}
			c.Rasters[date] = append(c.Rasters[date], path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", root, err)
	}
	logrus.WithFields(logrus.Fields{
		"root":       root,
		"shapefiles": len(c.Shapefiles),
		"archives":   len(c.Archives),
		"dates":      len(c.Rasters),
	}).Debug("catalog collected")
	return c, nil
}
