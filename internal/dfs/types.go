package dfs

import (
	"math"
	"time"
)

// RunDateLayout is the YYYYMMDD stamp used for input file discovery and
// output rows.
const RunDateLayout = "20060102"

// ScheduleDateLayout is the layout used by the season schedule and the
// per-game outputs derived from it.
const ScheduleDateLayout = "2006-01-02"

// Bucket names with fixed semantics in the opportunity formula. Bucket
// membership and weights are configuration, but GOI needs to know which
// bucket carries defense and which carries pace.
const (
	BucketOffense = "offensive_creation"
	BucketDefense = "defensive_resistance"
	BucketPace    = "pace_drivers"
)

// TeamStatTable is a rectangular team-by-statistic table extracted from one
// provider file. Teams holds canonical names in row order; Columns maps a
// statistic name to its per-team values aligned with Teams. Missing values
// are NaN.
type TeamStatTable struct {
	Source  string
	Teams   []string
	Columns map[string][]float64
}

// NormalizedStat is one team's standardized value for one statistic. ZScore
// is sign-corrected so that higher is always better; it is NaN when the raw
// value is missing or the statistic column had zero variance. Rank is 1..N
// with ties sharing the minimum rank, or 0 when ZScore is NaN.
type NormalizedStat struct {
	Team   string  `json:"team"`
	Stat   string  `json:"stat"`
	Value  float64 `json:"value"`
	ZScore float64 `json:"zscore"`
	Rank   int     `json:"rank"`
}

// Missing reports whether the row carries no usable standardized value.
func (n NormalizedStat) Missing() bool {
	return math.IsNaN(n.ZScore)
}

// BucketScore is a team's weighted-average z-score across all statistics
// tagged with one bucket.
type BucketScore struct {
	Team   string  `json:"team"`
	Bucket string  `json:"bucket"`
	ZScore float64 `json:"zscore"`
	Rank   int     `json:"rank"`
}

// TeamPowerIndex is the composite ranking row for one team: the weighted sum
// of its bucket scores plus the per-bucket breakdown.
type TeamPowerIndex struct {
	Rank    int                `json:"rank"`
	Team    string             `json:"team"`
	TPI     float64            `json:"tpi"`
	Buckets map[string]float64 `json:"buckets"`
	Date    string             `json:"date"`
}

// ScheduledGame is one entry from the season schedule.
type ScheduledGame struct {
	Date string `json:"date"`
	Home string `json:"home"`
	Away string `json:"away"`
}

// GameOpportunity is the per-game opportunity row derived from two teams'
// bucket scores. HomeGOI/AwayGOI blend offensive mismatch with shared game
// pace; TotalOpportunity is their sum.
type GameOpportunity struct {
	Date             string  `json:"date"`
	Home             string  `json:"home"`
	Away             string  `json:"away"`
	HomeGOI          float64 `json:"home_goi"`
	AwayGOI          float64 `json:"away_goi"`
	GamePace         float64 `json:"game_pace"`
	TotalOpportunity float64 `json:"total_opportunity"`
}

// RunDate formats a run timestamp with the YYYYMMDD layout.
func RunDate(t time.Time) string {
	return t.Format(RunDateLayout)
}

// Round4 rounds to the fixed 4-decimal precision used for all stored and
// displayed scores.
func Round4(v float64) float64 {
	if math.IsNaN(v) {
		return v
	}
	return math.Round(v*10000) / 10000
}
