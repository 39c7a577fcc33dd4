package config

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/tailscale/hujson"
)

// DefaultConfigPath is the path to the canonical calibration defaults file.
const DefaultConfigPath = "config/calibration.defaults.json"

// CalibrationConfig holds the tunable parameters of the interval overlap
// calibration. Every field is optional; the Get* methods fall back to the
// defaults below for fields that are not set.
//
// Seeds are normally left unset so that the solver seeds are derived from
// the grid scan. They exist to reproduce a run with hand-picked seeds.
type CalibrationConfig struct {
	// Interval construction
	Eps *float64 `json:"eps,omitempty"` // global half-width scale

	// R grid
	RMin       *float64 `json:"r_min,omitempty"`
	RMax       *float64 `json:"r_max,omitempty"`
	GridPoints *int     `json:"grid_points,omitempty"`
	Workers    *int     `json:"workers,omitempty"` // 0 = GOMAXPROCS

	// Solver seeds (optional)
	OptimumSeed *float64  `json:"optimum_seed,omitempty"`
	RootSeeds   []float64 `json:"root_seeds,omitempty"` // [left, right]

	// Solver budgets
	MaxIterations *int     `json:"max_iterations,omitempty"`
	Tolerance     *float64 `json:"tolerance,omitempty"`
	RootStep      *float64 `json:"root_step,omitempty"`

	// Reporting
	HistogramBins *int  `json:"histogram_bins,omitempty"`
	Strict        *bool `json:"strict,omitempty"` // return solver failures as errors
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrBool(v bool) *bool          { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyCalibrationConfig returns a CalibrationConfig with all fields unset.
func EmptyCalibrationConfig() *CalibrationConfig {
	return &CalibrationConfig{}
}

// DefaultCalibrationConfig returns a CalibrationConfig with every field set
// to its default value.
func DefaultCalibrationConfig() *CalibrationConfig {
	c := EmptyCalibrationConfig()
	return &CalibrationConfig{
		Eps:           ptrFloat64(c.GetEps()),
		RMin:          ptrFloat64(c.GetRMin()),
		RMax:          ptrFloat64(c.GetRMax()),
		GridPoints:    ptrInt(c.GetGridPoints()),
		Workers:       ptrInt(c.GetWorkers()),
		MaxIterations: ptrInt(c.GetMaxIterations()),
		Tolerance:     ptrFloat64(c.GetTolerance()),
		RootStep:      ptrFloat64(c.GetRootStep()),
		HistogramBins: ptrInt(c.GetHistogramBins()),
		Strict:        ptrBool(c.GetStrict()),
	}
}

// ParseCalibrationConfig decodes a configuration from JSON. Comments and
// trailing commas are accepted.
func ParseCalibrationConfig(data []byte) (*CalibrationConfig, error) {
	std, err := hujson.Standardize(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg := EmptyCalibrationConfig()
	if err := json.Unmarshal(std, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// LoadCalibrationConfig loads a CalibrationConfig from a .json or .hujson
// file of at most 1MB. Fields omitted from the file keep their defaults.
func LoadCalibrationConfig(path string) (*CalibrationConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" && ext != ".hujson" {
		return nil, fmt.Errorf("config file must have .json or .hujson extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return ParseCalibrationConfig(data)
}

// MustLoadDefaultConfig loads the canonical defaults from DefaultConfigPath,
// searching the current directory and its parents up to the repository root.
// Panics if the file cannot be loaded, intended for test setup.
func MustLoadDefaultConfig() *CalibrationConfig {
	candidates := []string{
		DefaultConfigPath,
		"../" + DefaultConfigPath,
		"../../" + DefaultConfigPath,    // from internal/config/
		"../../../" + DefaultConfigPath, // deeper packages
	}
	for _, path := range candidates {
		if cfg, err := LoadCalibrationConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

func positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0)
}

// Validate checks that the configured values are usable. Unset fields are
// not checked.
func (c *CalibrationConfig) Validate() error {
	if c.Eps != nil && !positive(*c.Eps) {
		return fmt.Errorf("eps must be positive, got %g", *c.Eps)
	}
	if rMin, rMax := c.GetRMin(), c.GetRMax(); !(rMax > rMin) {
		return fmt.Errorf("r_max (%g) must be greater than r_min (%g)", rMax, rMin)
	}
	if c.GridPoints != nil && *c.GridPoints < 2 {
		return fmt.Errorf("grid_points must be at least 2, got %d", *c.GridPoints)
	}
	if c.Workers != nil && *c.Workers < 0 {
		return fmt.Errorf("workers must be non-negative, got %d", *c.Workers)
	}
	if c.OptimumSeed != nil && !positive(*c.OptimumSeed) {
		return fmt.Errorf("optimum_seed must be positive, got %g", *c.OptimumSeed)
	}
	if c.RootSeeds != nil {
		if len(c.RootSeeds) != 2 {
			return fmt.Errorf("root_seeds must hold exactly 2 values, got %d", len(c.RootSeeds))
		}
		for _, s := range c.RootSeeds {
			if !positive(s) {
				return fmt.Errorf("root_seeds must be positive, got %g", s)
			}
		}
	}
	if c.MaxIterations != nil && *c.MaxIterations < 1 {
		return fmt.Errorf("max_iterations must be at least 1, got %d", *c.MaxIterations)
	}
	if c.Tolerance != nil && !positive(*c.Tolerance) {
		return fmt.Errorf("tolerance must be positive, got %g", *c.Tolerance)
	}
	if c.RootStep != nil && !positive(*c.RootStep) {
		return fmt.Errorf("root_step must be positive, got %g", *c.RootStep)
	}
	if c.HistogramBins != nil && *c.HistogramBins < 1 {
		return fmt.Errorf("histogram_bins must be at least 1, got %d", *c.HistogramBins)
	}
	return nil
}

// GetEps returns the eps value or the default.
func (c *CalibrationConfig) GetEps() float64 {
	if c.Eps == nil {
		return 1e-4
	}
	return *c.Eps
}

// GetRMin returns the r_min value or the default.
func (c *CalibrationConfig) GetRMin() float64 {
	if c.RMin == nil {
		return 1.0
	}
	return *c.RMin
}

// GetRMax returns the r_max value or the default.
func (c *CalibrationConfig) GetRMax() float64 {
	if c.RMax == nil {
		return 1.29997 // 10000 points spaced 3e-5 apart from 1.0
	}
	return *c.RMax
}

// GetGridPoints returns the grid_points value or the default.
func (c *CalibrationConfig) GetGridPoints() int {
	if c.GridPoints == nil {
		return 10000
	}
	return *c.GridPoints
}

// GetWorkers returns the workers value or the default.
func (c *CalibrationConfig) GetWorkers() int {
	if c.Workers == nil {
		return 0
	}
	return *c.Workers
}

// GetOptimumSeed returns the optimum seed and whether one is configured.
func (c *CalibrationConfig) GetOptimumSeed() (float64, bool) {
	if c.OptimumSeed == nil {
		return 0, false
	}
	return *c.OptimumSeed, true
}

// GetRootSeeds returns the left and right root seeds and whether they are
// configured.
func (c *CalibrationConfig) GetRootSeeds() ([2]float64, bool) {
	if len(c.RootSeeds) != 2 {
		return [2]float64{}, false
	}
	return [2]float64{c.RootSeeds[0], c.RootSeeds[1]}, true
}

// GetMaxIterations returns the max_iterations value or the default.
func (c *CalibrationConfig) GetMaxIterations() int {
	if c.MaxIterations == nil {
		return 500
	}
	return *c.MaxIterations
}

// GetTolerance returns the tolerance value or the default.
func (c *CalibrationConfig) GetTolerance() float64 {
	if c.Tolerance == nil {
		return 1e-9
	}
	return *c.Tolerance
}

// GetRootStep returns the root_step value or the default.
func (c *CalibrationConfig) GetRootStep() float64 {
	if c.RootStep == nil {
		return 1e-3
	}
	return *c.RootStep
}

// GetHistogramBins returns the histogram_bins value or the default.
func (c *CalibrationConfig) GetHistogramBins() int {
	if c.HistogramBins == nil {
		return 10
	}
	return *c.HistogramBins
}

// GetStrict returns the strict value or the default.
func (c *CalibrationConfig) GetStrict() bool {
	if c.Strict == nil {
		return false
	}
	return *c.Strict
}
