package output

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhenk/nhl-dfs-model/internal/dfs"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func testWriter(t *testing.T) (*Writer, string, string) {
	t.Helper()
	base := t.TempDir()
	outputDir := filepath.Join(base, "output")
	archiveDir := filepath.Join(base, "archive")
	return NewWriter(outputDir, archiveDir, testLogger()), outputDir, archiveDir
}

func sampleTPI() []dfs.TeamPowerIndex {
	return []dfs.TeamPowerIndex{
		{
			Rank: 1, Team: "Colorado Avalanche", TPI: 0.8123, Date: "20251023",
			Buckets: map[string]float64{
				dfs.BucketOffense: 0.9,
				dfs.BucketDefense: 0.7,
				dfs.BucketPace:    0.8,
			},
		},
		{
			Rank: 2, Team: "Dallas Stars", TPI: 0.5, Date: "20251023",
			Buckets: map[string]float64{
				dfs.BucketOffense: 0.6,
				dfs.BucketDefense: 0.45,
				dfs.BucketPace:    0.4,
			},
		},
	}
}

func TestWriteTPIRankingsRoundTrip(t *testing.T) {
	writer, outputDir, _ := testWriter(t)
	require.NoError(t, writer.WriteTPIRankings(sampleTPI()))

	rows, err := ReadTPITable(filepath.Join(outputDir, TPIRankingsFile))
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, 1, rows[0].Rank)
	assert.Equal(t, "Colorado Avalanche", rows[0].Team)
	assert.InDelta(t, 0.8123, rows[0].TPI, 1e-9)
	assert.InDelta(t, 0.7, rows[0].Buckets[dfs.BucketDefense], 1e-9)
	assert.InDelta(t, 0.8, rows[0].Buckets[dfs.BucketPace], 1e-9)
	assert.Equal(t, "20251023", rows[0].Date)
}

func TestWriteTPIRankingsColumnOrder(t *testing.T) {
	writer, outputDir, _ := testWriter(t)
	require.NoError(t, writer.WriteTPIRankings(sampleTPI()))

	raw, err := os.ReadFile(filepath.Join(outputDir, TPIRankingsFile))
	require.NoError(t, err)
	first := strings.SplitN(string(raw), "\n", 2)[0]
	assert.Equal(t,
		"Rank,team,TPI,offensive_creation,defensive_resistance,pace_drivers,Date",
		first)
}

func TestWriteGOIRankingsRoundTrip(t *testing.T) {
	writer, outputDir, _ := testWriter(t)
	games := []dfs.GameOpportunity{
		{Date: "2025-10-23", Home: "Dallas Stars", Away: "Los Angeles Kings", HomeGOI: -0.14, AwayGOI: 0.22, GamePace: 0.1, TotalOpportunity: 0.08},
	}
	require.NoError(t, writer.WriteGOIRankings(games))

	read, err := ReadGOITable(filepath.Join(outputDir, GOIRankingsFile))
	require.NoError(t, err)
	require.Len(t, read, 1)
	assert.Equal(t, "Los Angeles Kings", read[0].Away)
	assert.InDelta(t, -0.14, read[0].HomeGOI, 1e-9)
	assert.InDelta(t, 0.08, read[0].TotalOpportunity, 1e-9)
}

func TestWriteZOverallSortsAndBlanksMissing(t *testing.T) {
	writer, outputDir, _ := testWriter(t)
	rows := []dfs.NormalizedStat{
		{Team: "A", Stat: "GF/G", Value: 3.1, ZScore: 0.5, Rank: 2},
		{Team: "B", Stat: "GF/G", Value: 3.4, ZScore: 1.5, Rank: 1},
		{Team: "C", Stat: "xGF", Value: math.NaN(), ZScore: math.NaN()},
	}
	scores := []dfs.BucketScore{
		{Team: "B", Bucket: dfs.BucketOffense, ZScore: 2.0, Rank: 1},
	}
	require.NoError(t, writer.WriteZOverall(rows, scores, "20251023"))

	raw, err := os.ReadFile(filepath.Join(outputDir, ZOverallFile))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.Len(t, lines, 5)

	assert.Equal(t, "zOverallRank,Date,team,stat,value,zscore,rank", lines[0])
	// Bucket average row sorts first at z=2.0, NaN row sinks to the bottom
	// with blank value/zscore/rank cells.
	assert.Equal(t, "1,20251023,B,offensive_creation_avg,2,2.0000,1", lines[1])
	assert.Equal(t, "4,20251023,C,xGF,,,", lines[4])
}

func TestWriteTeamTotals(t *testing.T) {
	writer, outputDir, _ := testWriter(t)
	require.NoError(t, writer.WriteTeamTotals(sampleTPI()))

	raw, err := os.ReadFile(filepath.Join(outputDir, TeamTotalsFile))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Rank,team,zTotal,Date", lines[0])
	assert.Equal(t, "1,Colorado Avalanche,0.8123,20251023", lines[1])
}

func TestWriteArchivesPreviousCopy(t *testing.T) {
	writer, outputDir, archiveDir := testWriter(t)

	require.NoError(t, writer.WriteTeamTotals(sampleTPI()[:1]))
	require.NoError(t, writer.WriteTeamTotals(sampleTPI()))

	current, err := os.ReadFile(filepath.Join(outputDir, TeamTotalsFile))
	require.NoError(t, err)
	assert.Contains(t, string(current), "Dallas Stars")

	archived, err := os.ReadDir(archiveDir)
	require.NoError(t, err)
	require.Len(t, archived, 1)
	assert.True(t, strings.HasSuffix(archived[0].Name(), "_"+TeamTotalsFile), archived[0].Name())

	previous, err := os.ReadFile(filepath.Join(archiveDir, archived[0].Name()))
	require.NoError(t, err)
	assert.NotContains(t, string(previous), "Dallas Stars")
}

func TestWriteLeavesNoTempFiles(t *testing.T) {
	writer, outputDir, _ := testWriter(t)
	require.NoError(t, writer.WriteTeamTotals(sampleTPI()))

	entries, err := os.ReadDir(outputDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, TeamTotalsFile, entries[0].Name())
}

func TestReadScheduleAcceptsVisitorOrAway(t *testing.T) {
	dir := t.TempDir()

	visitor := filepath.Join(dir, "visitor.csv")
	require.NoError(t, os.WriteFile(visitor, []byte("Date,Visitor,Home\n2025-10-23,Los Angeles Kings,Dallas Stars\n"), 0o644))
	games, err := ReadSchedule(visitor)
	require.NoError(t, err)
	require.Len(t, games, 1)
	assert.Equal(t, "Los Angeles Kings", games[0].Away)

	away := filepath.Join(dir, "away.csv")
	require.NoError(t, os.WriteFile(away, []byte("Date,Away,Home\n2025-10-23,Los Angeles Kings,Dallas Stars\n"), 0o644))
	games, err = ReadSchedule(away)
	require.NoError(t, err)
	require.Len(t, games, 1)
	assert.Equal(t, "Dallas Stars", games[0].Home)

	neither := filepath.Join(dir, "neither.csv")
	require.NoError(t, os.WriteFile(neither, []byte("Date,Opponent,Home\n2025-10-23,X,Y\n"), 0o644))
	_, err = ReadSchedule(neither)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Visitor (or Away)")
}

func TestReadTPITableMissingColumns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.csv")
	require.NoError(t, os.WriteFile(path, []byte("Rank,team\n1,Dallas Stars\n"), 0o644))

	_, err := ReadTPITable(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing required columns")
	assert.Contains(t, err.Error(), "TPI")
}
