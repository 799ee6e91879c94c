package config

import (
	"fmt"
	"math"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// StatDefinition describes one statistic column taken from a provider file.
// A zero/omitted weight excludes the statistic from bucket aggregation and
// the composite index; it is still normalized and ranked for display.
type StatDefinition struct {
	Name        string  `mapstructure:"name"`
	Bucket      string  `mapstructure:"bucket"`
	Weight      float64 `mapstructure:"weight"`
	ReverseSign bool    `mapstructure:"reverse_sign"`
	SortOrder   string  `mapstructure:"sort_order"`
}

// FileSpec describes one dated input file expected from a provider.
type FileSpec struct {
	FilenameTemplate string           `mapstructure:"filename_template"`
	HeaderRow        int              `mapstructure:"header_row"`
	TeamColumn       *int             `mapstructure:"team_column"`
	RowsToExclude    []string         `mapstructure:"rows_to_exclude"`
	Stats            []StatDefinition `mapstructure:"stats"`
}

// Provider groups the file specs for one data source.
type Provider struct {
	Name  string     `mapstructure:"name"`
	Files []FileSpec `mapstructure:"files"`
}

// MappingRule rewrites a raw team name matching Pattern (fnmatch-style glob)
// to Replacement. Rules apply in order; the first match wins.
type MappingRule struct {
	Pattern     string `mapstructure:"pattern"`
	Replacement string `mapstructure:"replacement"`
}

// GOIWeights is the split between matchup-specific offense and shared game
// pace in the opportunity formula.
type GOIWeights struct {
	Offense float64 `mapstructure:"offense"`
	Pace    float64 `mapstructure:"pace"`
}

type Config struct {
	DataDir      string `mapstructure:"data_dir"`
	OutputDir    string `mapstructure:"output_dir"`
	ArchiveDir   string `mapstructure:"archive_dir"`
	ScheduleFile string `mapstructure:"schedule_file"`

	CanonicalTeams   []string           `mapstructure:"canonical_teams"`
	TeamNameMappings []MappingRule      `mapstructure:"team_name_mappings"`
	BucketWeights    map[string]float64 `mapstructure:"bucket_weights"`
	GOIWeights       GOIWeights         `mapstructure:"goi_weights"`
	Providers        []Provider         `mapstructure:"providers"`
}

// CanonicalTeamCount is the enforced size of the canonical team universe.
const CanonicalTeamCount = 32

// LoadConfig reads and validates the pipeline configuration from a YAML file.
func LoadConfig(path string, logger *logrus.Logger) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetDefault("data_dir", ".")
	v.SetDefault("output_dir", ".")
	v.SetDefault("archive_dir", "archive")
	v.SetDefault("schedule_file", "schedule.csv")
	v.SetDefault("goi_weights.offense", 0.6)
	v.SetDefault("goi_weights.pace", 0.4)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := config.Validate(logger); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate checks the structural invariants the pipeline depends on: a full
// 32-team canonical set, every statistic resolving to a known bucket, and
// non-negative weights throughout.
func (c *Config) Validate(logger *logrus.Logger) error {
	if len(c.CanonicalTeams) != CanonicalTeamCount {
		return fmt.Errorf("canonical_teams must list exactly %d teams, got %d", CanonicalTeamCount, len(c.CanonicalTeams))
	}

	seen := make(map[string]bool, len(c.CanonicalTeams))
	for _, team := range c.CanonicalTeams {
		if seen[team] {
			return fmt.Errorf("duplicate canonical team %q", team)
		}
		seen[team] = true
	}

	if len(c.BucketWeights) == 0 {
		return fmt.Errorf("bucket_weights must not be empty")
	}
	weightSum := 0.0
	for bucket, weight := range c.BucketWeights {
		if weight < 0 {
			return fmt.Errorf("bucket_weights[%s] is negative: %f", bucket, weight)
		}
		weightSum += weight
	}
	if math.Abs(weightSum-1.0) > 0.01 {
		logger.Warnf("bucket weights sum to %.4f, expected ~1.0", weightSum)
	}

	if len(c.Providers) == 0 {
		return fmt.Errorf("at least one provider must be configured")
	}

	statNames := make(map[string]bool)
	for _, provider := range c.Providers {
		if provider.Name == "" {
			return fmt.Errorf("provider with empty name")
		}
		for _, file := range provider.Files {
			if file.FilenameTemplate == "" {
				return fmt.Errorf("provider %s: file with empty filename_template", provider.Name)
			}
			if len(file.Stats) == 0 {
				return fmt.Errorf("provider %s: file %s defines no stats", provider.Name, file.FilenameTemplate)
			}
			for _, stat := range file.Stats {
				if stat.Name == "" {
					return fmt.Errorf("provider %s: file %s has a stat with empty name", provider.Name, file.FilenameTemplate)
				}
				if statNames[stat.Name] {
					return fmt.Errorf("duplicate stat %q across provider files", stat.Name)
				}
				statNames[stat.Name] = true
				if stat.Weight < 0 {
					return fmt.Errorf("stat %s has negative weight %f", stat.Name, stat.Weight)
				}
				if _, ok := c.BucketWeights[stat.Bucket]; !ok {
					return fmt.Errorf("stat %s references unknown bucket %q", stat.Name, stat.Bucket)
				}
				if stat.SortOrder != "" && stat.SortOrder != "asc" && stat.SortOrder != "desc" {
					return fmt.Errorf("stat %s has invalid sort_order %q", stat.Name, stat.SortOrder)
				}
			}
		}
	}

	if c.GOIWeights.Offense < 0 || c.GOIWeights.Pace < 0 {
		return fmt.Errorf("goi_weights must be non-negative")
	}

	return nil
}

// AllStats returns every statistic definition across all providers.
func (c *Config) AllStats() []StatDefinition {
	var stats []StatDefinition
	for _, provider := range c.Providers {
		for _, file := range provider.Files {
			stats = append(stats, file.Stats...)
		}
	}
	return stats
}

// StatWeights maps statistic name to its aggregation weight.
func (c *Config) StatWeights() map[string]float64 {
	weights := make(map[string]float64)
	for _, stat := range c.AllStats() {
		weights[stat.Name] = stat.Weight
	}
	return weights
}

// StatBuckets maps statistic name to its bucket tag.
func (c *Config) StatBuckets() map[string]string {
	buckets := make(map[string]string)
	for _, stat := range c.AllStats() {
		buckets[stat.Name] = stat.Bucket
	}
	return buckets
}
