package rankings

import (
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/jhenk/nhl-dfs-model/internal/dfs"
	"github.com/jhenk/nhl-dfs-model/pkg/config"
)

// GOICalculator derives the Game Opportunity Index for scheduled matchups
// from the composite table's bucket breakdowns. Offensive opportunity is the
// defensive-resistance differential between the two sides; pace is shared
// because it is a property of the matchup, not either team alone.
type GOICalculator struct {
	weights config.GOIWeights
	logger  *logrus.Logger
}

func NewGOICalculator(weights config.GOIWeights, logger *logrus.Logger) *GOICalculator {
	return &GOICalculator{
		weights: weights,
		logger:  logger,
	}
}

// Calculate produces one GameOpportunity per scheduled game. A game whose
// home or away team is absent from the composite table, or whose bucket
// breakdown lacks the defense/pace scores the formula needs, is skipped with
// a warning; one bad matchup must never abort the whole schedule.
func (c *GOICalculator) Calculate(tpi []dfs.TeamPowerIndex, schedule []dfs.ScheduledGame) []dfs.GameOpportunity {
	byTeam := make(map[string]map[string]float64, len(tpi))
	for _, row := range tpi {
		byTeam[row.Team] = row.Buckets
	}

	results := make([]dfs.GameOpportunity, 0, len(schedule))
	for _, game := range schedule {
		home, homeOK := byTeam[game.Home]
		away, awayOK := byTeam[game.Away]
		if !homeOK || !awayOK {
			c.logger.Warnf("Skipping game %s - %s @ %s (team not found in TPI data)", game.Date, game.Away, game.Home)
			continue
		}

		homeDef, homePace, homeOK := formulaBuckets(home)
		awayDef, awayPace, awayOK := formulaBuckets(away)
		if !homeOK || !awayOK {
			c.logger.Warnf("Skipping game %s - %s @ %s (missing %s/%s bucket scores in TPI data)",
				game.Date, game.Away, game.Home, dfs.BucketDefense, dfs.BucketPace)
			continue
		}

		homeOffense := awayDef - homeDef
		awayOffense := homeDef - awayDef
		gamePace := (homePace + awayPace) / 2

		homeGOI := c.weights.Offense*homeOffense + c.weights.Pace*gamePace
		awayGOI := c.weights.Offense*awayOffense + c.weights.Pace*gamePace

		results = append(results, dfs.GameOpportunity{
			Date:             game.Date,
			Home:             game.Home,
			Away:             game.Away,
			HomeGOI:          dfs.Round4(homeGOI),
			AwayGOI:          dfs.Round4(awayGOI),
			GamePace:         dfs.Round4(gamePace),
			TotalOpportunity: dfs.Round4(homeGOI + awayGOI),
		})
	}

	c.logger.Infof("Calculated GOI for %d of %d scheduled games", len(results), len(schedule))
	return results
}

// formulaBuckets extracts the two bucket scores the opportunity formula
// depends on. Bucket membership is configuration, but a breakdown without
// defense and pace cannot be scored; treating absent buckets as zero would
// emit a plausible-looking all-zero table.
func formulaBuckets(buckets map[string]float64) (defense, pace float64, ok bool) {
	defense, hasDefense := buckets[dfs.BucketDefense]
	pace, hasPace := buckets[dfs.BucketPace]
	return defense, pace, hasDefense && hasPace
}

// TopGames returns the n games with the highest total opportunity.
func TopGames(games []dfs.GameOpportunity, n int) []dfs.GameOpportunity {
	sorted := make([]dfs.GameOpportunity, len(games))
	copy(sorted, games)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].TotalOpportunity > sorted[j].TotalOpportunity
	})
	if n > len(sorted) {
		n = len(sorted)
	}
	return sorted[:n]
}
