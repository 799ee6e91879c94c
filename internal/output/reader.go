package output

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/jhenk/nhl-dfs-model/internal/dfs"
)

// ReadTPITable loads a previously written tpi_rankings.csv back into memory
// for the GOI stage. Columns other than Rank/team/TPI/Date are treated as
// bucket breakdowns.
func ReadTPITable(path string) ([]dfs.TeamPowerIndex, error) {
	header, records, err := readCSV(path)
	if err != nil {
		return nil, err
	}

	index, err := columnIndex(path, header, "Rank", "team", "TPI", "Date")
	if err != nil {
		return nil, err
	}

	fixed := map[string]bool{"Rank": true, "team": true, "TPI": true, "Date": true}
	bucketCols := make(map[string]int)
	for i, name := range header {
		if !fixed[name] {
			bucketCols[name] = i
		}
	}

	rows := make([]dfs.TeamPowerIndex, 0, len(records))
	for lineNo, record := range records {
		rank, err := strconv.Atoi(record[index["Rank"]])
		if err != nil {
			return nil, fmt.Errorf("%s row %d: invalid rank %q", path, lineNo+2, record[index["Rank"]])
		}
		tpi, err := strconv.ParseFloat(record[index["TPI"]], 64)
		if err != nil {
			return nil, fmt.Errorf("%s row %d: invalid TPI %q", path, lineNo+2, record[index["TPI"]])
		}

		buckets := make(map[string]float64, len(bucketCols))
		for bucket, col := range bucketCols {
			value, err := strconv.ParseFloat(record[col], 64)
			if err != nil {
				return nil, fmt.Errorf("%s row %d: invalid %s value %q", path, lineNo+2, bucket, record[col])
			}
			buckets[bucket] = value
		}

		rows = append(rows, dfs.TeamPowerIndex{
			Rank:    rank,
			Team:    record[index["team"]],
			TPI:     tpi,
			Buckets: buckets,
			Date:    record[index["Date"]],
		})
	}
	return rows, nil
}

// ReadSchedule loads the season schedule: Date, Home, and the visiting side
// under either a "Visitor" or "Away" header.
func ReadSchedule(path string) ([]dfs.ScheduledGame, error) {
	header, records, err := readCSV(path)
	if err != nil {
		return nil, err
	}

	index, err := columnIndex(path, header, "Date", "Home")
	if err != nil {
		return nil, err
	}
	awayCol := -1
	for i, name := range header {
		if name == "Visitor" || name == "Away" {
			awayCol = i
			break
		}
	}
	if awayCol < 0 {
		return nil, fmt.Errorf("%s: missing required columns: Visitor (or Away)", path)
	}

	games := make([]dfs.ScheduledGame, 0, len(records))
	for _, record := range records {
		games = append(games, dfs.ScheduledGame{
			Date: record[index["Date"]],
			Home: record[index["Home"]],
			Away: record[awayCol],
		})
	}
	return games, nil
}

// ReadGOITable loads a previously written goi_rankings.csv for slate
// analysis.
func ReadGOITable(path string) ([]dfs.GameOpportunity, error) {
	header, records, err := readCSV(path)
	if err != nil {
		return nil, err
	}

	index, err := columnIndex(path, header,
		"Date", "Home", "Away", "Home_GOI", "Away_GOI", "Game_Pace", "Total_Opportunity")
	if err != nil {
		return nil, err
	}

	games := make([]dfs.GameOpportunity, 0, len(records))
	for lineNo, record := range records {
		parse := func(column string) (float64, error) {
			value, err := strconv.ParseFloat(record[index[column]], 64)
			if err != nil {
				return 0, fmt.Errorf("%s row %d: invalid %s value %q", path, lineNo+2, column, record[index[column]])
			}
			return value, nil
		}

		homeGOI, err := parse("Home_GOI")
		if err != nil {
			return nil, err
		}
		awayGOI, err := parse("Away_GOI")
		if err != nil {
			return nil, err
		}
		pace, err := parse("Game_Pace")
		if err != nil {
			return nil, err
		}
		total, err := parse("Total_Opportunity")
		if err != nil {
			return nil, err
		}

		games = append(games, dfs.GameOpportunity{
			Date:             record[index["Date"]],
			Home:             record[index["Home"]],
			Away:             record[index["Away"]],
			HomeGOI:          homeGOI,
			AwayGOI:          awayGOI,
			GamePace:         pace,
			TotalOpportunity: total,
		})
	}
	return games, nil
}

func readCSV(path string) ([]string, [][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, nil, fmt.Errorf("%s: empty file", path)
	}

	header := records[0]
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}
	return header, records[1:], nil
}

func columnIndex(path string, header []string, required ...string) (map[string]int, error) {
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[name] = i
	}
	var missing []string
	for _, name := range required {
		if _, ok := index[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%s: missing required columns: %s", path, strings.Join(missing, ", "))
	}
	return index, nil
}
