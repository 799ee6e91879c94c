package pipeline

import (
	"math"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/jhenk/nhl-dfs-model/internal/dfs"
)

// Aggregator folds individual statistic z-scores into weighted category
// (bucket) averages per team.
type Aggregator struct {
	logger *logrus.Logger
}

func NewAggregator(logger *logrus.Logger) *Aggregator {
	return &Aggregator{logger: logger}
}

// Aggregate computes one BucketScore per (team, bucket): the weighted mean of
// the team's sign-corrected z-scores over the bucket's statistics, counting
// only statistics with positive weight and a non-missing z-score. A
// team-bucket pair with zero eligible weight is reported and excluded rather
// than divided by zero; the downstream coverage checks catch the gap.
func (a *Aggregator) Aggregate(rows []dfs.NormalizedStat, statBuckets map[string]string, statWeights map[string]float64) []dfs.BucketScore {
	type accumulator struct {
		weightedSum float64
		totalWeight float64
	}

	sums := make(map[string]map[string]*accumulator)
	teamsSeen := make(map[string]map[string]bool)

	for _, row := range rows {
		bucket, ok := statBuckets[row.Stat]
		if !ok {
			a.logger.Warnf("Stat %q has no bucket mapping, skipping", row.Stat)
			continue
		}
		if teamsSeen[bucket] == nil {
			teamsSeen[bucket] = make(map[string]bool)
			sums[bucket] = make(map[string]*accumulator)
		}
		teamsSeen[bucket][row.Team] = true

		weight := statWeights[row.Stat]
		if weight <= 0 || row.Missing() {
			continue
		}
		acc := sums[bucket][row.Team]
		if acc == nil {
			acc = &accumulator{}
			sums[bucket][row.Team] = acc
		}
		acc.weightedSum += row.ZScore * weight
		acc.totalWeight += weight
	}

	buckets := make([]string, 0, len(sums))
	for bucket := range sums {
		buckets = append(buckets, bucket)
	}
	sort.Strings(buckets)

	var scores []dfs.BucketScore
	for _, bucket := range buckets {
		teams := make([]string, 0, len(teamsSeen[bucket]))
		for team := range teamsSeen[bucket] {
			teams = append(teams, team)
		}
		sort.Strings(teams)

		bucketScores := make([]dfs.BucketScore, 0, len(teams))
		zscores := make([]float64, 0, len(teams))
		for _, team := range teams {
			acc := sums[bucket][team]
			if acc == nil || acc.totalWeight == 0 {
				a.logger.Errorf("Team %s has no eligible weighted stats in bucket %s, excluding", team, bucket)
				continue
			}
			bucketScores = append(bucketScores, dfs.BucketScore{
				Team:   team,
				Bucket: bucket,
				ZScore: acc.weightedSum / acc.totalWeight,
			})
			zscores = append(zscores, acc.weightedSum/acc.totalWeight)
		}

		ranks := dfs.MinRanksDescending(zscores)
		for i := range bucketScores {
			bucketScores[i].Rank = ranks[i]
		}
		scores = append(scores, bucketScores...)

		a.logger.Infof("Bucket %s: %d teams aggregated", bucket, len(bucketScores))
	}

	// NaN bucket scores cannot occur here (missing inputs are filtered), but
	// guard against propagation all the same.
	for _, score := range scores {
		if math.IsNaN(score.ZScore) {
			a.logger.Errorf("NaN bucket score for team %s in bucket %s", score.Team, score.Bucket)
		}
	}

	return scores
}
