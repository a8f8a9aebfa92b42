package properties

import (
	"errors"
	"fmt"
	"math"
	"os"
	"runtime"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// PTTM06 is EPSG:3763 (ETRS89 / Portugal TM06), the default metric CRS.
const PTTM06 = "+proj=tmerc +lat_0=39.66825833333333 +lon_0=-8.133108333333334 +k=1 +x_0=0 +y_0=0 +ellps=GRS80 +units=m +no_defs"

// WGS84 is the CRS assumed for GeoJSON input.
const WGS84 = "+proj=longlat +datum=WGS84 +no_defs"

// Config holds the tunables of every processing step. Zero values are never
// valid; start from Default.
type Config struct {
	MetricCRS        string  `toml:"metric_crs"`
	GridResolution   float64 `toml:"grid_resolution"`
	MinAreaFraction  float64 `toml:"min_area_fraction"`
	NDVIThreshold    float64 `toml:"ndvi_threshold"`
	GaussianSigma    float64 `toml:"gaussian_sigma"`
	GaussianTruncate float64 `toml:"gaussian_truncate"`
	Quantile         float64 `toml:"quantile"`
	Workers          int     `toml:"workers"`
	CacheDir         string  `toml:"cache_dir"`
	OutputDir        string  `toml:"output_dir"`
	LogLevel         string  `toml:"log_level"`
	Progress         bool    `toml:"progress"`
}

func Default() Config {
	return Config{
		MetricCRS:        PTTM06,
		GridResolution:   20,
		MinAreaFraction:  0.6,
		NDVIThreshold:    0.1,
		GaussianSigma:    3,
		GaussianTruncate: 4,
		Quantile:         0.5,
		Workers:          runtime.NumCPU(),
		CacheDir:         DataPath("cache"),
		OutputDir:        DataPath("result"),
		LogLevel:         "info",
		Progress:         true,
	}
}

// LoadEnv loads the first .env file found among paths. Missing files are not
// an error; a malformed one is.
func LoadEnv(paths ...string) error {
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("failed to load env file %s: %w", p, err)
		}
		return nil
	}
	return nil
}

// Load builds a Config from defaults, the optional TOML file at path and
// AGRIGEO_* environment variables, in that order of precedence.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to decode config %s: %w", path, err)
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func applyEnv(cfg *Config) error {
	strs := map[string]*string{
		"AGRIGEO_METRIC_CRS": &cfg.MetricCRS,
		"AGRIGEO_CACHE_DIR":  &cfg.CacheDir,
		"AGRIGEO_OUTPUT_DIR": &cfg.OutputDir,
		"AGRIGEO_LOG_LEVEL":  &cfg.LogLevel,
	}
	for k, dst := range strs {
		if v, ok := os.LookupEnv(k); ok && v != "" {
			*dst = v
		}
	}

	floats := map[string]*float64{
		"AGRIGEO_GRID_RESOLUTION":   &cfg.GridResolution,
		"AGRIGEO_MIN_AREA_FRACTION": &cfg.MinAreaFraction,
		"AGRIGEO_NDVI_THRESHOLD":    &cfg.NDVIThreshold,
		"AGRIGEO_GAUSSIAN_SIGMA":    &cfg.GaussianSigma,
		"AGRIGEO_GAUSSIAN_TRUNCATE": &cfg.GaussianTruncate,
		"AGRIGEO_QUANTILE":          &cfg.Quantile,
	}
	for k, dst := range floats {
		v, ok := os.LookupEnv(k)
		if !ok || v == "" {
			continue
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return fmt.Errorf("invalid %s value %q: %w", k, v, err)
		}
		*dst = f
	}

	if v, ok := os.LookupEnv("AGRIGEO_WORKERS"); ok && v != "" {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("invalid AGRIGEO_WORKERS value %q: %w", v, err)
		}
		cfg.Workers = n
	}
	if v, ok := os.LookupEnv("AGRIGEO_PROGRESS"); ok && v != "" {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("invalid AGRIGEO_PROGRESS value %q: %w", v, err)
		}
		cfg.Progress = b
	}
	return nil
}

func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.MetricCRS) == "" {
		errs = append(errs, errors.New("metric_crs must be set"))
	}
	if c.GridResolution <= 0 {
		errs = append(errs, fmt.Errorf("grid_resolution must be positive, got %v", c.GridResolution))
	}
	if !(c.MinAreaFraction >= 0) || math.IsInf(c.MinAreaFraction, 0) {
		errs = append(errs, fmt.Errorf("min_area_fraction must be a finite number >= 0, got %v", c.MinAreaFraction))
	}
	if c.GaussianSigma <= 0 {
		errs = append(errs, fmt.Errorf("gaussian_sigma must be positive, got %v", c.GaussianSigma))
	}
	if c.GaussianTruncate <= 0 {
		errs = append(errs, fmt.Errorf("gaussian_truncate must be positive, got %v", c.GaussianTruncate))
	}
	if c.Quantile < 0 || c.Quantile > 1 {
		errs = append(errs, fmt.Errorf("quantile must be within [0, 1], got %v", c.Quantile))
	}
	if c.Workers < 1 {
		errs = append(errs, fmt.Errorf("workers must be at least 1, got %d", c.Workers))
	}
	return errors.Join(errs...)
}
