package pipeline

import (
	"math"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat"

	"github.com/jhenk/nhl-dfs-model/internal/dfs"
	"github.com/jhenk/nhl-dfs-model/pkg/config"
)

// Normalizer converts raw statistic columns into standardized z-scores.
// Scores use the population mean/stddev across the teams present, missing
// values are excluded from the moments and propagated as NaN, and
// reverse-sign statistics are negated so a higher z-score is always better.
type Normalizer struct {
	logger *logrus.Logger
}

func NewNormalizer(logger *logrus.Logger) *Normalizer {
	return &Normalizer{logger: logger}
}

// Normalize produces one NormalizedStat per (team, statistic) pair, in
// statistic-major order matching the table's row order.
func (n *Normalizer) Normalize(table *dfs.TeamStatTable, stats []config.StatDefinition) []dfs.NormalizedStat {
	rows := make([]dfs.NormalizedStat, 0, len(stats)*len(table.Teams))

	for _, statDef := range stats {
		values, ok := table.Columns[statDef.Name]
		if !ok {
			n.logger.Warnf("Stat %q not present in table from %s, skipping", statDef.Name, table.Source)
			continue
		}

		zscores := columnZScores(values)
		if allNaN(zscores) && !allNaN(values) {
			n.logger.Warnf("Stat %q has zero variance, z-scores undefined for all teams", statDef.Name)
		}

		if statDef.ReverseSign {
			for i := range zscores {
				zscores[i] = -zscores[i]
			}
			n.logger.Debugf("Reversed sign for %q", statDef.Name)
		}

		// Ranking uses the sign-corrected score, never the raw value, so
		// rank 1 is always the most favorable team.
		ranks := dfs.MinRanksDescending(zscores)

		for i, team := range table.Teams {
			rows = append(rows, dfs.NormalizedStat{
				Team:   team,
				Stat:   statDef.Name,
				Value:  values[i],
				ZScore: zscores[i],
				Rank:   ranks[i],
			})
		}
	}

	return rows
}

// columnZScores standardizes one column with population moments. Missing
// inputs stay NaN, and a zero-variance column yields NaN for every team.
func columnZScores(values []float64) []float64 {
	present := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			present = append(present, v)
		}
	}

	zscores := make([]float64, len(values))
	if len(present) == 0 {
		for i := range zscores {
			zscores[i] = math.NaN()
		}
		return zscores
	}

	mean := stat.Mean(present, nil)
	stddev := stat.PopStdDev(present, nil)

	for i, v := range values {
		if math.IsNaN(v) || stddev == 0 {
			zscores[i] = math.NaN()
			continue
		}
		zscores[i] = (v - mean) / stddev
	}
	return zscores
}

func allNaN(values []float64) bool {
	for _, v := range values {
		if !math.IsNaN(v) {
			return false
		}
	}
	return len(values) > 0
}
