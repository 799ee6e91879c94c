package pipeline

import (
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/jhenk/nhl-dfs-model/internal/dfs"
	"github.com/jhenk/nhl-dfs-model/pkg/config"
)

// IntegrityReport summarizes the post-normalization sanity checks: every
// team must carry an identical statistic count, and every statistic must
// cover exactly the canonical 32 teams. Silent partial coverage is the most
// damaging failure mode of the pipeline, so every violation names its
// offender.
type IntegrityReport struct {
	StatsPerTeam map[string]int
	TeamsPerStat map[string]int
	Violations   []string
}

// OK reports whether the run passed every integrity check.
func (r *IntegrityReport) OK() bool {
	return len(r.Violations) == 0
}

// CheckIntegrity inspects the full normalized row collection for a run and
// logs every violation it finds. Callers decide whether to gate on the
// result; the aggregation stages re-verify coverage independently.
func CheckIntegrity(rows []dfs.NormalizedStat, logger *logrus.Logger) *IntegrityReport {
	report := &IntegrityReport{
		StatsPerTeam: make(map[string]int),
		TeamsPerStat: make(map[string]int),
	}

	for _, row := range rows {
		report.StatsPerTeam[row.Team]++
		report.TeamsPerStat[row.Stat]++
	}

	counts := make(map[int][]string)
	for team, count := range report.StatsPerTeam {
		counts[count] = append(counts[count], team)
	}
	if len(counts) > 1 {
		// Report the minority count(s) as the offenders.
		majority, majoritySize := 0, 0
		for count, teams := range counts {
			if len(teams) > majoritySize {
				majority, majoritySize = count, len(teams)
			}
		}
		for count, teams := range counts {
			if count == majority {
				continue
			}
			sort.Strings(teams)
			for _, team := range teams {
				report.Violations = append(report.Violations,
					fmt.Sprintf("team %s has %d stat rows, expected %d", team, count, majority))
			}
		}
	}

	stats := make([]string, 0, len(report.TeamsPerStat))
	for stat := range report.TeamsPerStat {
		stats = append(stats, stat)
	}
	sort.Strings(stats)
	for _, stat := range stats {
		if count := report.TeamsPerStat[stat]; count != config.CanonicalTeamCount {
			report.Violations = append(report.Violations,
				fmt.Sprintf("stat %s covers %d teams, expected %d", stat, count, config.CanonicalTeamCount))
		}
	}

	if report.OK() {
		logger.Infof("Integrity checks passed: %d teams x %d stats", len(report.StatsPerTeam), len(report.TeamsPerStat))
	} else {
		for _, violation := range report.Violations {
			logger.Warnf("Integrity violation: %s", violation)
		}
	}

	return report
}
