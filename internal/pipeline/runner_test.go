package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhenk/nhl-dfs-model/internal/output"
	"github.com/jhenk/nhl-dfs-model/pkg/config"
)

var runDate = time.Date(2025, 10, 23, 7, 0, 0, 0, time.UTC)

func canonicalTeams() []string {
	names := make([]string, 32)
	for i := range names {
		names[i] = fmt.Sprintf("Team %02d", i+1)
	}
	return names
}

func runnerConfig(t *testing.T) *config.Config {
	t.Helper()
	base := t.TempDir()
	cfg := &config.Config{
		DataDir:        filepath.Join(base, "data"),
		OutputDir:      filepath.Join(base, "out"),
		ArchiveDir:     filepath.Join(base, "out", "archive"),
		ScheduleFile:   "schedule.csv",
		CanonicalTeams: canonicalTeams(),
		BucketWeights: map[string]float64{
			"offensive_creation":   0.4,
			"defensive_resistance": 0.3,
			"pace_drivers":         0.3,
		},
		GOIWeights: config.GOIWeights{Offense: 0.6, Pace: 0.4},
		Providers: []config.Provider{
			{
				Name: "alpha",
				Files: []config.FileSpec{{
					FilenameTemplate: "alpha_stats.csv",
					Stats: []config.StatDefinition{
						{Name: "GF/G", Bucket: "offensive_creation", Weight: 1},
						{Name: "GA/G", Bucket: "defensive_resistance", Weight: 1, ReverseSign: true},
					},
				}},
			},
			{
				Name: "beta",
				Files: []config.FileSpec{{
					FilenameTemplate: "beta_stats.csv",
					Stats: []config.StatDefinition{
						{Name: "Shots/GP", Bucket: "pace_drivers", Weight: 1},
					},
				}},
			},
		},
	}
	require.NoError(t, cfg.Validate(testLogger()))
	require.NoError(t, os.MkdirAll(cfg.DataDir, 0o755))
	return cfg
}

func writeDataFile(t *testing.T, cfg *config.Config, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(cfg.DataDir, name), []byte(content), 0o644))
}

// seedInputs writes both dated provider files and the schedule. Every
// statistic improves with team number, so Team 32 should rank first.
func seedInputs(t *testing.T, cfg *config.Config) {
	t.Helper()

	var alpha, beta strings.Builder
	alpha.WriteString("Team,GF/G,GA/G\n")
	beta.WriteString("Team,Shots/GP\n")
	for i, team := range cfg.CanonicalTeams {
		fmt.Fprintf(&alpha, "%s,%.2f,%.2f\n", team, 2.0+float64(i)*0.1, 4.0-float64(i)*0.1)
		fmt.Fprintf(&beta, "%s,%.1f\n", team, 25.0+float64(i)*0.2)
	}
	writeDataFile(t, cfg, "20251023_alpha_stats.csv", alpha.String())
	writeDataFile(t, cfg, "20251023_beta_stats.csv", beta.String())

	writeDataFile(t, cfg, "schedule.csv",
		"Date,Visitor,Home\n"+
			"2025-10-23,Team 01,Team 32\n"+
			"2025-10-23,Team 15,Team 16\n"+
			"2025-10-24,Quebec Nordiques,Team 05\n")
}

func TestRunFullPipeline(t *testing.T) {
	cfg := runnerConfig(t)
	seedInputs(t, cfg)

	runner, err := NewRunner(cfg, testLogger())
	require.NoError(t, err)
	require.NoError(t, runner.Run(runDate))

	tpi, err := output.ReadTPITable(filepath.Join(cfg.OutputDir, output.TPIRankingsFile))
	require.NoError(t, err)
	require.Len(t, tpi, 32)
	assert.Equal(t, "Team 32", tpi[0].Team)
	assert.Equal(t, 1, tpi[0].Rank)
	assert.Equal(t, "Team 01", tpi[31].Team)
	assert.Greater(t, tpi[0].TPI, tpi[31].TPI)
	assert.Equal(t, "20251023", tpi[0].Date)

	games, err := output.ReadGOITable(filepath.Join(cfg.OutputDir, output.GOIRankingsFile))
	require.NoError(t, err)
	require.Len(t, games, 2, "the matchup with an unknown team is skipped")
	// Schedule order is preserved. The visitor drawing the league's top
	// defense carries the larger matchup edge in the formula.
	assert.Equal(t, "Team 32", games[0].Home)
	assert.Greater(t, games[0].AwayGOI, games[0].HomeGOI)

	for _, name := range []string{output.ZOverallFile, output.TeamTotalsFile} {
		_, err := os.Stat(filepath.Join(cfg.OutputDir, name))
		assert.NoError(t, err, name)
	}
}

func TestRunTPIIntegrityReport(t *testing.T) {
	cfg := runnerConfig(t)
	seedInputs(t, cfg)

	runner, err := NewRunner(cfg, testLogger())
	require.NoError(t, err)

	result, err := runner.RunTPI(runDate)
	require.NoError(t, err)
	assert.True(t, result.Integrity.OK())
	assert.Len(t, result.Normalized, 32*3)
	assert.Len(t, result.BucketScores, 32*3)
}

func TestRunTPIMissingInputFileAborts(t *testing.T) {
	cfg := runnerConfig(t)
	seedInputs(t, cfg)
	require.NoError(t, os.Remove(filepath.Join(cfg.DataDir, "20251023_beta_stats.csv")))

	runner, err := NewRunner(cfg, testLogger())
	require.NoError(t, err)

	_, err = runner.RunTPI(runDate)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing required input files")
	assert.Contains(t, err.Error(), "20251023_beta_stats.csv")

	_, statErr := os.Stat(filepath.Join(cfg.OutputDir, output.TPIRankingsFile))
	assert.True(t, os.IsNotExist(statErr), "nothing may be written on an aborted run")
}

func TestRunTPIBadProviderFileAbortsWithoutOutput(t *testing.T) {
	cfg := runnerConfig(t)
	seedInputs(t, cfg)
	// Column header renamed: the beta file no longer carries Shots/GP.
	var beta strings.Builder
	beta.WriteString("Team,SOG\n")
	for _, team := range cfg.CanonicalTeams {
		fmt.Fprintf(&beta, "%s,30.0\n", team)
	}
	writeDataFile(t, cfg, "20251023_beta_stats.csv", beta.String())

	runner, err := NewRunner(cfg, testLogger())
	require.NoError(t, err)

	_, err = runner.RunTPI(runDate)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "provider file(s) failed")
	assert.Contains(t, err.Error(), "Shots/GP")

	_, statErr := os.Stat(filepath.Join(cfg.OutputDir, output.ZOverallFile))
	assert.True(t, os.IsNotExist(statErr), "nothing may be written on an aborted run")
}

func TestRunGOIRequiresTPIStage(t *testing.T) {
	cfg := runnerConfig(t)
	seedInputs(t, cfg)

	runner, err := NewRunner(cfg, testLogger())
	require.NoError(t, err)

	_, err = runner.RunGOI()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load TPI rankings")
}
