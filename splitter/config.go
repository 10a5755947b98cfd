package splitter

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Defaults for the splitting thresholds. Distances are in meters; they are
// converted to degrees at the AOI centroid by DegreesAt.
const (
	DefaultTargetClusterSize = 10
	DefaultSegmentizeMeters  = 4.0
	DefaultSimplifyMeters    = 7.5
)

// SplitTagRule qualifies a linear feature as a splitter. A line matches when
// its tag map has a non-empty value for Key that is not listed in Exclude.
type SplitTagRule struct {
	Key     string   `yaml:"key" json:"key"`
	Exclude []string `yaml:"exclude,omitempty" json:"exclude,omitempty"`
}

// Matches reports whether the tag map qualifies under this rule.
func (r SplitTagRule) Matches(tags map[string]string) bool {
	v, ok := tags[r.Key]
	if !ok || v == "" {
		return false
	}
	for _, ex := range r.Exclude {
		if v == ex {
			return false
		}
	}
	return true
}

// Config holds the splitting parameters. Zero values are replaced by
// defaults in ApplyDefaults.
type Config struct {
	// TargetClusterSize is the desired number of buildings per task (T).
	TargetClusterSize int `yaml:"target_cluster_size" json:"target_cluster_size"`

	// MinFeatures is the low-count / small-task threshold (N_min).
	// Defaults to TargetClusterSize/2.
	MinFeatures int `yaml:"min_features" json:"min_features"`

	// SegmentizeMeters is the maximum perimeter segment length used when
	// densifying building boundaries before the Voronoi stage.
	SegmentizeMeters float64 `yaml:"segmentize_m" json:"segmentize_m"`

	// SimplifyMeters is the Douglas-Peucker tolerance applied to the shared
	// task boundary linework.
	SimplifyMeters float64 `yaml:"simplify_m" json:"simplify_m"`

	// SplitTags is the predicate selecting linear splitters. An empty list
	// means no linear splitting.
	SplitTags []SplitTagRule `yaml:"split_tags" json:"split_tags"`

	// KMeansSeed seeds the deterministic clustering stream.
	KMeansSeed int64 `yaml:"kmeans_seed" json:"kmeans_seed"`

	// ZeroCountMergeSmallest switches the merge target for zero-building
	// regions to the neighbour with the fewest buildings instead of the
	// most. Off by default.
	ZeroCountMergeSmallest bool `yaml:"zero_count_merge_smallest" json:"zero_count_merge_smallest"`

	// DumpIntermediate writes each stage's collection to GeoJSON files in
	// DumpDir, named by a per-run id, for inspection.
	DumpIntermediate bool   `yaml:"dump_intermediate" json:"dump_intermediate"`
	DumpDir          string `yaml:"dump_dir" json:"dump_dir"`
}

// DefaultSplitTags returns the standard splitter predicate: highways other
// than minor access classes, plus all waterways and railways.
func DefaultSplitTags() []SplitTagRule {
	return []SplitTagRule{
		{Key: "highway", Exclude: []string{"service", "pedestrian", "track", "bus_guideway"}},
		{Key: "waterway"},
		{Key: "railway"},
	}
}

// DefaultConfig returns a Config populated with all defaults.
func DefaultConfig() Config {
	cfg := Config{SplitTags: DefaultSplitTags()}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills unset fields. MinFeatures tracks TargetClusterSize
// unless explicitly configured.
func (c *Config) ApplyDefaults() {
	if c.TargetClusterSize <= 0 {
		c.TargetClusterSize = DefaultTargetClusterSize
	}
	if c.MinFeatures <= 0 {
		c.MinFeatures = c.TargetClusterSize / 2
	}
	if c.SegmentizeMeters <= 0 {
		c.SegmentizeMeters = DefaultSegmentizeMeters
	}
	if c.SimplifyMeters <= 0 {
		c.SimplifyMeters = DefaultSimplifyMeters
	}
	if c.DumpDir == "" {
		c.DumpDir = "."
	}
}

// MatchesSplitLine reports whether the tags qualify a line as a splitter
// under any configured rule.
func (c *Config) MatchesSplitLine(tags map[string]string) bool {
	for _, rule := range c.SplitTags {
		if rule.Matches(tags) {
			return true
		}
	}
	return false
}

// LoadConfig loads configuration from a YAML file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", path)
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}

	if config.SplitTags == nil {
		config.SplitTags = DefaultSplitTags()
	}
	config.ApplyDefaults()

	if config.MinFeatures > config.TargetClusterSize {
		return nil, fmt.Errorf("min_features (%d) cannot exceed target_cluster_size (%d)",
			config.MinFeatures, config.TargetClusterSize)
	}

	return &config, nil
}

// SaveConfig writes the configuration to a YAML file.
func SaveConfig(path string, config *Config) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("marshaling config YAML: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
