package output

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/jhenk/nhl-dfs-model/internal/dfs"
)

// Default output file names. Every file is regenerated wholesale each run;
// nothing is appended or patched.
const (
	ZOverallFile     = "zoverall.csv"
	TeamTotalsFile   = "team_total_zscores.csv"
	TPIRankingsFile  = "tpi_rankings.csv"
	GOIRankingsFile  = "goi_rankings.csv"
	slateFilePattern = "slate_analysis_%s.csv"
)

// Writer persists pipeline results as delimited tables. Files are written
// atomically (temp file + rename) so a failed run never leaves a partial
// table, and any previous copy is moved into the archive directory first.
type Writer struct {
	outputDir  string
	archiveDir string
	logger     *logrus.Logger
}

func NewWriter(outputDir, archiveDir string, logger *logrus.Logger) *Writer {
	return &Writer{
		outputDir:  outputDir,
		archiveDir: archiveDir,
		logger:     logger,
	}
}

// SlateFile returns the output file name for a slate analysis date.
func SlateFile(date string) string {
	return fmt.Sprintf(slateFilePattern, date)
}

// WriteZOverall writes the combined normalized table: every individual
// statistic row plus the bucket-average rows, sorted by z-score descending
// with an overall index and the run date.
func (w *Writer) WriteZOverall(rows []dfs.NormalizedStat, bucketScores []dfs.BucketScore, date string) error {
	combined := make([]dfs.NormalizedStat, 0, len(rows)+len(bucketScores))
	combined = append(combined, rows...)
	for _, score := range bucketScores {
		combined = append(combined, dfs.NormalizedStat{
			Team:   score.Team,
			Stat:   score.Bucket + "_avg",
			Value:  score.ZScore,
			ZScore: score.ZScore,
			Rank:   score.Rank,
		})
	}

	sort.SliceStable(combined, func(i, j int) bool {
		zi, zj := combined[i].ZScore, combined[j].ZScore
		if math.IsNaN(zi) {
			return false
		}
		if math.IsNaN(zj) {
			return true
		}
		return zi > zj
	})

	records := make([][]string, 0, len(combined))
	for i, row := range combined {
		records = append(records, []string{
			strconv.Itoa(i + 1),
			date,
			row.Team,
			row.Stat,
			formatValue(row.Value),
			formatScore(row.ZScore),
			formatRank(row.Rank),
		})
	}

	header := []string{"zOverallRank", "Date", "team", "stat", "value", "zscore", "rank"}
	return w.writeCSV(ZOverallFile, header, records)
}

// WriteTeamTotals writes the single-scalar composite table.
func (w *Writer) WriteTeamTotals(tpi []dfs.TeamPowerIndex) error {
	records := make([][]string, 0, len(tpi))
	for _, row := range tpi {
		records = append(records, []string{
			strconv.Itoa(row.Rank),
			row.Team,
			formatScore(row.TPI),
			row.Date,
		})
	}
	header := []string{"Rank", "team", "zTotal", "Date"}
	return w.writeCSV(TeamTotalsFile, header, records)
}

// WriteTPIRankings writes the detailed composite table with per-bucket
// breakdowns.
func (w *Writer) WriteTPIRankings(tpi []dfs.TeamPowerIndex) error {
	buckets := bucketColumns(tpi)

	header := append([]string{"Rank", "team", "TPI"}, buckets...)
	header = append(header, "Date")

	records := make([][]string, 0, len(tpi))
	for _, row := range tpi {
		record := []string{strconv.Itoa(row.Rank), row.Team, formatScore(row.TPI)}
		for _, bucket := range buckets {
			record = append(record, formatScore(row.Buckets[bucket]))
		}
		record = append(record, row.Date)
		records = append(records, record)
	}
	return w.writeCSV(TPIRankingsFile, header, records)
}

// WriteGOIRankings writes the per-game opportunity table for the full
// schedule.
func (w *Writer) WriteGOIRankings(games []dfs.GameOpportunity) error {
	records := make([][]string, 0, len(games))
	for _, game := range games {
		records = append(records, []string{
			game.Date,
			game.Home,
			game.Away,
			formatScore(game.HomeGOI),
			formatScore(game.AwayGOI),
			formatScore(game.GamePace),
			formatScore(game.TotalOpportunity),
		})
	}
	header := []string{"Date", "Home", "Away", "Home_GOI", "Away_GOI", "Game_Pace", "Total_Opportunity"}
	return w.writeCSV(GOIRankingsFile, header, records)
}

// WriteTable writes an arbitrary pre-formatted table, used by the slate
// analyzer.
func (w *Writer) WriteTable(name string, header []string, records [][]string) error {
	return w.writeCSV(name, header, records)
}

// bucketColumns orders bucket names with the three formula buckets first,
// then anything else alphabetically.
func bucketColumns(tpi []dfs.TeamPowerIndex) []string {
	if len(tpi) == 0 {
		return nil
	}
	known := map[string]bool{}
	var extra []string
	for bucket := range tpi[0].Buckets {
		known[bucket] = true
	}
	var columns []string
	for _, bucket := range []string{dfs.BucketOffense, dfs.BucketDefense, dfs.BucketPace} {
		if known[bucket] {
			columns = append(columns, bucket)
			delete(known, bucket)
		}
	}
	for bucket := range known {
		extra = append(extra, bucket)
	}
	sort.Strings(extra)
	return append(columns, extra...)
}

func (w *Writer) writeCSV(name string, header []string, records [][]string) error {
	if err := os.MkdirAll(w.outputDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	target := filepath.Join(w.outputDir, name)
	if err := w.archiveExisting(target, name); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(w.outputDir, name+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s: %w", name, err)
	}
	defer os.Remove(tmp.Name())

	writer := csv.NewWriter(tmp)
	if err := writer.Write(header); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s header: %w", name, err)
	}
	if err := writer.WriteAll(records); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s rows: %w", name, err)
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to flush %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file for %s: %w", name, err)
	}

	if err := os.Rename(tmp.Name(), target); err != nil {
		return fmt.Errorf("failed to replace %s: %w", name, err)
	}

	w.logger.Infof("Wrote %s (%d rows)", target, len(records))
	return nil
}

// archiveExisting moves a previous run's copy of the file into the archive
// directory, stamped with its modification time.
func (w *Writer) archiveExisting(target, name string) error {
	info, err := os.Stat(target)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to stat %s: %w", target, err)
	}

	if err := os.MkdirAll(w.archiveDir, 0o755); err != nil {
		return fmt.Errorf("failed to create archive directory: %w", err)
	}

	stamp := info.ModTime().Format("20060102-150405")
	archived := filepath.Join(w.archiveDir, stamp+"_"+name)
	if err := os.Rename(target, archived); err != nil {
		return fmt.Errorf("failed to archive %s: %w", target, err)
	}
	w.logger.Debugf("Archived previous %s to %s", name, archived)
	return nil
}

// formatScore renders a score at the fixed 4-decimal output precision, with
// missing values left empty.
func formatScore(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', 4, 64)
}

// formatValue renders a raw statistic value without forcing a precision.
func formatValue(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatRank(rank int) string {
	if rank == 0 {
		return ""
	}
	return strconv.Itoa(rank)
}
