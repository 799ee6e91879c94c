package providers

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/jhenk/nhl-dfs-model/internal/dfs"
	"github.com/jhenk/nhl-dfs-model/internal/teams"
	"github.com/jhenk/nhl-dfs-model/pkg/config"
)

// TeamColumnLabel is the canonical header every loaded table ends up with
// for its identity column.
const TeamColumnLabel = "Team"

// MissingColumnsError reports the exact statistic columns a provider file
// failed to supply. The whole file is rejected; no partial table is built.
type MissingColumnsError struct {
	File    string
	Columns []string
}

func (e *MissingColumnsError) Error() string {
	return fmt.Sprintf("%s: missing required stat columns: %s", e.File, strings.Join(e.Columns, ", "))
}

// Loader extracts a rectangular team-by-statistic table from one provider
// file. Provider differences (header offset, identity-column location,
// excluded summary rows) are carried in the FileSpec; the extraction logic
// is shared.
type Loader struct {
	resolver *teams.Resolver
	logger   *logrus.Logger
}

// NewLoader creates a table loader that canonicalizes team names through the
// given resolver.
func NewLoader(resolver *teams.Resolver, logger *logrus.Logger) *Loader {
	return &Loader{
		resolver: resolver,
		logger:   logger,
	}
}

// LoadTable reads a delimited provider file and returns a validated
// TeamStatTable with one column per configured statistic. Any read error,
// missing column, or team-identity failure rejects the whole file.
func (l *Loader) LoadTable(path string, spec config.FileSpec) (*dfs.TeamStatTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	if spec.HeaderRow >= len(records) {
		return nil, fmt.Errorf("%s: header row %d beyond end of file (%d rows)", path, spec.HeaderRow, len(records))
	}
	header := records[spec.HeaderRow]
	rows := records[spec.HeaderRow+1:]
	if len(rows) == 0 {
		return nil, fmt.Errorf("%s: no data rows below header", path)
	}

	teamCol, err := l.findTeamColumn(path, header, rows, spec.TeamColumn)
	if err != nil {
		return nil, err
	}

	// Drop summary rows (e.g. "League Average") by exact label match.
	if len(spec.RowsToExclude) > 0 {
		excluded := make(map[string]bool, len(spec.RowsToExclude))
		for _, label := range spec.RowsToExclude {
			excluded[label] = true
		}
		kept := rows[:0]
		for _, row := range rows {
			if teamCol < len(row) && excluded[row[teamCol]] {
				continue
			}
			kept = append(kept, row)
		}
		if dropped := len(rows) - len(kept); dropped > 0 {
			l.logger.Debugf("%s: removed %d excluded rows", path, dropped)
		}
		rows = kept
	}

	columnIndex := make(map[string]int, len(header))
	for i, name := range header {
		columnIndex[strings.TrimSpace(name)] = i
	}

	var missing []string
	for _, stat := range spec.Stats {
		if _, ok := columnIndex[stat.Name]; !ok {
			missing = append(missing, stat.Name)
		}
	}
	if len(missing) > 0 {
		l.logger.Errorf("%s: available columns: %s", path, strings.Join(header, ", "))
		return nil, &MissingColumnsError{File: path, Columns: missing}
	}

	rawNames := make([]string, len(rows))
	for i, row := range rows {
		if teamCol >= len(row) {
			return nil, fmt.Errorf("%s: row %d has no team column", path, spec.HeaderRow+1+i)
		}
		rawNames[i] = row[teamCol]
	}

	resolved, err := l.resolver.Resolve(rawNames)
	if err != nil {
		return nil, fmt.Errorf("%s: team validation failed: %w", path, err)
	}

	seen := make(map[string]bool, len(resolved))
	for _, team := range resolved {
		if seen[team] {
			return nil, fmt.Errorf("%s: duplicate rows for team %s", path, team)
		}
		seen[team] = true
	}

	table := &dfs.TeamStatTable{
		Source:  path,
		Teams:   resolved,
		Columns: make(map[string][]float64, len(spec.Stats)),
	}
	for _, stat := range spec.Stats {
		col := columnIndex[stat.Name]
		values := make([]float64, len(rows))
		for i, row := range rows {
			values[i] = parseValue(row, col)
		}
		table.Columns[stat.Name] = values
	}

	return table, nil
}

// findTeamColumn locates the identity column: an explicitly configured
// index, an existing "Team" header, or the first column whose data is
// non-numeric text.
func (l *Loader) findTeamColumn(path string, header []string, rows [][]string, configured *int) (int, error) {
	if configured != nil {
		if *configured < 0 || *configured >= len(header) {
			return 0, fmt.Errorf("%s: configured team_column %d out of range (file has %d columns)", path, *configured, len(header))
		}
		if strings.TrimSpace(header[*configured]) != TeamColumnLabel {
			l.logger.Debugf("%s: renamed column %d (%q) to %q", path, *configured, header[*configured], TeamColumnLabel)
			header[*configured] = TeamColumnLabel
		}
		return *configured, nil
	}

	for i, name := range header {
		if strings.TrimSpace(name) == TeamColumnLabel {
			return i, nil
		}
	}

	for i := range header {
		if isTextColumn(rows, i) {
			l.logger.Debugf("%s: using column %d (%q) as %q", path, i, header[i], TeamColumnLabel)
			header[i] = TeamColumnLabel
			return i, nil
		}
	}

	return 0, fmt.Errorf("%s: %q column not found", path, TeamColumnLabel)
}

// isTextColumn reports whether every non-empty value in the column fails to
// parse as a number.
func isTextColumn(rows [][]string, col int) bool {
	nonEmpty := 0
	for _, row := range rows {
		if col >= len(row) {
			return false
		}
		value := strings.TrimSpace(row[col])
		if value == "" {
			continue
		}
		nonEmpty++
		if _, err := strconv.ParseFloat(value, 64); err == nil {
			return false
		}
	}
	return nonEmpty > 0
}

// parseValue reads a cell as a float, with absent or unparsable cells
// becoming NaN so they propagate as missing rather than zero.
func parseValue(row []string, col int) float64 {
	if col >= len(row) {
		return math.NaN()
	}
	value := strings.TrimSpace(row[col])
	if value == "" || value == "-" {
		return math.NaN()
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return math.NaN()
	}
	return parsed
}
