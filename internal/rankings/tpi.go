package rankings

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/jhenk/nhl-dfs-model/internal/dfs"
	"github.com/jhenk/nhl-dfs-model/pkg/config"
)

// TPIBuilder combines bucket-level scores into the Team Power Index: one
// weighted scalar per team, ranked descending.
type TPIBuilder struct {
	bucketWeights map[string]float64
	logger        *logrus.Logger
}

func NewTPIBuilder(bucketWeights map[string]float64, logger *logrus.Logger) *TPIBuilder {
	return &TPIBuilder{
		bucketWeights: bucketWeights,
		logger:        logger,
	}
}

// Build computes TPI = Σ bucket_weight × bucket_zscore for every team with
// full bucket coverage. Teams missing any configured bucket are excluded
// with a warning; the build fails outright if coverage drops below the
// canonical 32 teams, since a short composite table would silently misrank.
func (b *TPIBuilder) Build(scores []dfs.BucketScore, date string) ([]dfs.TeamPowerIndex, error) {
	perTeam := make(map[string]map[string]float64)
	for _, score := range scores {
		if perTeam[score.Team] == nil {
			perTeam[score.Team] = make(map[string]float64)
		}
		perTeam[score.Team][score.Bucket] = score.ZScore
	}

	teams := make([]string, 0, len(perTeam))
	for team := range perTeam {
		teams = append(teams, team)
	}
	sort.Strings(teams)

	var rows []dfs.TeamPowerIndex
	for _, team := range teams {
		buckets := perTeam[team]
		var missing []string
		for bucket := range b.bucketWeights {
			if _, ok := buckets[bucket]; !ok {
				missing = append(missing, bucket)
			}
		}
		if len(missing) > 0 {
			sort.Strings(missing)
			b.logger.Warnf("Team %s missing bucket scores (%s), excluded from TPI", team, strings.Join(missing, ", "))
			continue
		}

		tpi := 0.0
		rounded := make(map[string]float64, len(buckets))
		for bucket, weight := range b.bucketWeights {
			tpi += buckets[bucket] * weight
			rounded[bucket] = dfs.Round4(buckets[bucket])
		}

		rows = append(rows, dfs.TeamPowerIndex{
			Team:    team,
			TPI:     dfs.Round4(tpi),
			Buckets: rounded,
			Date:    date,
		})
	}

	if len(rows) < config.CanonicalTeamCount {
		return nil, fmt.Errorf("TPI covers %d teams, expected %d", len(rows), config.CanonicalTeamCount)
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].TPI != rows[j].TPI {
			return rows[i].TPI > rows[j].TPI
		}
		return rows[i].Team < rows[j].Team
	})

	// Exact composite ties are unlikely at double precision but share the
	// minimum rank when they occur.
	tpis := make([]float64, len(rows))
	for i, row := range rows {
		tpis[i] = row.TPI
	}
	ranks := dfs.MinRanksDescending(tpis)
	for i := range rows {
		rows[i].Rank = ranks[i]
	}

	b.logger.Infof("TPI rankings built for %d teams", len(rows))
	return rows, nil
}
