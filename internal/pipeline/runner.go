package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/jhenk/nhl-dfs-model/internal/dfs"
	"github.com/jhenk/nhl-dfs-model/internal/output"
	"github.com/jhenk/nhl-dfs-model/internal/providers"
	"github.com/jhenk/nhl-dfs-model/internal/rankings"
	"github.com/jhenk/nhl-dfs-model/internal/teams"
	"github.com/jhenk/nhl-dfs-model/pkg/config"
)

// Runner orchestrates a full batch run: dated input discovery, per-provider
// loading, normalization, bucket aggregation, composite ranking, and output
// generation. Runs are stateless; everything is rebuilt from configuration
// and the input files each time.
type Runner struct {
	cfg        *config.Config
	loader     *providers.Loader
	normalizer *Normalizer
	aggregator *Aggregator
	tpiBuilder *rankings.TPIBuilder
	goiCalc    *rankings.GOICalculator
	writer     *output.Writer
	logger     *logrus.Logger
}

// TPIResult carries a run's in-memory result set. Outputs are only written
// once the whole set has been computed and validated.
type TPIResult struct {
	Normalized   []dfs.NormalizedStat
	BucketScores []dfs.BucketScore
	TPI          []dfs.TeamPowerIndex
	Integrity    *IntegrityReport
}

// NewRunner wires the pipeline stages from configuration.
func NewRunner(cfg *config.Config, logger *logrus.Logger) (*Runner, error) {
	resolver, err := teams.NewResolver(cfg.CanonicalTeams, cfg.TeamNameMappings, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to build team resolver: %w", err)
	}

	return &Runner{
		cfg:        cfg,
		loader:     providers.NewLoader(resolver, logger),
		normalizer: NewNormalizer(logger),
		aggregator: NewAggregator(logger),
		tpiBuilder: rankings.NewTPIBuilder(cfg.BucketWeights, logger),
		goiCalc:    rankings.NewGOICalculator(cfg.GOIWeights, logger),
		writer:     output.NewWriter(cfg.OutputDir, cfg.ArchiveDir, logger),
		logger:     logger,
	}, nil
}

// RunTPI executes the normalization and composite-ranking stage for the
// given run date and writes zoverall.csv, team_total_zscores.csv, and
// tpi_rankings.csv. Any structural failure (missing file, missing column,
// team-identity violation) aborts the run before anything is written.
func (r *Runner) RunTPI(asOf time.Time) (*TPIResult, error) {
	files, err := r.discoverFiles(asOf)
	if err != nil {
		return nil, err
	}

	var allRows []dfs.NormalizedStat
	var failures []string
	for _, file := range files {
		r.logger.WithFields(logrus.Fields{
			"provider": file.provider,
			"file":     file.path,
		}).Info("Processing provider file")

		table, err := r.loader.LoadTable(file.path, file.spec)
		if err != nil {
			r.logger.Errorf("Failed to process %s: %v", file.path, err)
			failures = append(failures, err.Error())
			continue
		}
		allRows = append(allRows, r.normalizer.Normalize(table, file.spec.Stats)...)
	}
	if len(failures) > 0 {
		// Partial statistic coverage would silently bias the composite, so
		// a single bad source fails the whole run.
		return nil, fmt.Errorf("%d provider file(s) failed, aborting run:\n%s", len(failures), strings.Join(failures, "\n"))
	}

	report := CheckIntegrity(allRows, r.logger)

	bucketScores := r.aggregator.Aggregate(allRows, r.cfg.StatBuckets(), r.cfg.StatWeights())

	tpi, err := r.tpiBuilder.Build(bucketScores, dfs.RunDate(asOf))
	if err != nil {
		return nil, err
	}

	if err := r.writer.WriteZOverall(allRows, bucketScores, dfs.RunDate(asOf)); err != nil {
		return nil, err
	}
	if err := r.writer.WriteTeamTotals(tpi); err != nil {
		return nil, err
	}
	if err := r.writer.WriteTPIRankings(tpi); err != nil {
		return nil, err
	}

	return &TPIResult{
		Normalized:   allRows,
		BucketScores: bucketScores,
		TPI:          tpi,
		Integrity:    report,
	}, nil
}

// RunGOI computes the opportunity table for the full schedule from the
// latest composite rankings and writes goi_rankings.csv.
func (r *Runner) RunGOI() ([]dfs.GameOpportunity, error) {
	tpi, err := output.ReadTPITable(filepath.Join(r.cfg.OutputDir, output.TPIRankingsFile))
	if err != nil {
		return nil, fmt.Errorf("failed to load TPI rankings (run the tpi stage first?): %w", err)
	}

	schedule, err := output.ReadSchedule(r.schedulePath())
	if err != nil {
		return nil, fmt.Errorf("failed to load schedule: %w", err)
	}

	games := r.goiCalc.Calculate(tpi, schedule)
	if err := r.writer.WriteGOIRankings(games); err != nil {
		return nil, err
	}

	for i, game := range rankings.TopGames(games, 10) {
		r.logger.Infof("Top opportunity #%d: %s %s @ %s (total %.4f)",
			i+1, game.Date, game.Away, game.Home, game.TotalOpportunity)
	}

	return games, nil
}

// Run executes the full pipeline: TPI stage then GOI stage.
func (r *Runner) Run(asOf time.Time) error {
	if _, err := r.RunTPI(asOf); err != nil {
		return err
	}
	if _, err := r.RunGOI(); err != nil {
		return err
	}
	return nil
}

func (r *Runner) schedulePath() string {
	if filepath.IsAbs(r.cfg.ScheduleFile) {
		return r.cfg.ScheduleFile
	}
	return filepath.Join(r.cfg.DataDir, r.cfg.ScheduleFile)
}

type inputFile struct {
	provider string
	path     string
	spec     config.FileSpec
}

// discoverFiles builds the expected dated file name for every configured
// provider file and verifies all of them exist. A single absent source
// aborts the run: partial coverage is worse than no output.
func (r *Runner) discoverFiles(asOf time.Time) ([]inputFile, error) {
	prefix := dfs.RunDate(asOf)
	var files []inputFile
	var missing []string

	for _, provider := range r.cfg.Providers {
		for _, spec := range provider.Files {
			name := fmt.Sprintf("%s_%s", prefix, spec.FilenameTemplate)
			path := filepath.Join(r.cfg.DataDir, name)
			if _, err := os.Stat(path); err != nil {
				missing = append(missing, name)
				continue
			}
			files = append(files, inputFile{
				provider: provider.Name,
				path:     path,
				spec:     spec,
			})
		}
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required input files: %s", strings.Join(missing, ", "))
	}

	r.logger.Infof("All %d input files found for %s", len(files), prefix)
	return files, nil
}
