package slate

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/jhenk/nhl-dfs-model/internal/dfs"
)

// Thresholds for the stack-priority tiers and insight lines.
const (
	stackThreshold   = 0.5
	offenseThreshold = 0.4
	paceThreshold    = 0.3
)

// Game is one slate entry: an opportunity row plus DFS guidance.
type Game struct {
	dfs.GameOpportunity
	SlateRank     int
	StackPriority string
	Insight       string
}

// Analyzer filters the season's opportunity table down to one slate and
// attaches stack-priority tiers and matchup rationale.
type Analyzer struct {
	logger *logrus.Logger
}

func NewAnalyzer(logger *logrus.Logger) *Analyzer {
	return &Analyzer{logger: logger}
}

// Analyze selects the slate for a date. With no explicit selections every
// game on the date is used; otherwise selections are matched as
// "Away @ Home" or "Home vs Away", case-insensitive with substring team
// matching, and unrecognized entries are skipped with a warning.
func (a *Analyzer) Analyze(games []dfs.GameOpportunity, date string, selections []string) ([]Game, error) {
	var onDate []dfs.GameOpportunity
	for _, game := range games {
		if game.Date == date {
			onDate = append(onDate, game)
		}
	}
	if len(onDate) == 0 {
		return nil, fmt.Errorf("no games found for %s in opportunity data", date)
	}

	selected := onDate
	if len(selections) > 0 {
		selected = nil
		for _, selection := range selections {
			game, ok := a.matchSelection(onDate, selection)
			if !ok {
				a.logger.Warnf("Game %q not found for %s; use 'Away @ Home' format", selection, date)
				continue
			}
			selected = append(selected, game)
		}
		if len(selected) == 0 {
			return nil, fmt.Errorf("none of the selected games matched the %s slate", date)
		}
	}

	sort.SliceStable(selected, func(i, j int) bool {
		return selected[i].TotalOpportunity > selected[j].TotalOpportunity
	})

	slate := make([]Game, len(selected))
	for i, game := range selected {
		slate[i] = Game{
			GameOpportunity: game,
			SlateRank:       i + 1,
			StackPriority:   stackPriority(game),
			Insight:         insight(game),
		}
	}
	return slate, nil
}

// matchSelection resolves a user-entered game against the slate, trying
// both orderings in case home and away were swapped.
func (a *Analyzer) matchSelection(games []dfs.GameOpportunity, selection string) (dfs.GameOpportunity, bool) {
	var home, away string
	switch {
	case strings.Contains(selection, " vs "):
		parts := strings.SplitN(selection, " vs ", 2)
		home, away = strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
	case strings.Contains(selection, " @ "):
		parts := strings.SplitN(selection, " @ ", 2)
		away, home = strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
	default:
		return dfs.GameOpportunity{}, false
	}

	for _, game := range games {
		if containsFold(game.Home, home) && containsFold(game.Away, away) {
			return game, true
		}
	}
	for _, game := range games {
		if containsFold(game.Away, home) && containsFold(game.Home, away) {
			return game, true
		}
	}
	return dfs.GameOpportunity{}, false
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

func stackPriority(game dfs.GameOpportunity) string {
	switch {
	case game.AwayGOI > stackThreshold:
		return fmt.Sprintf("HIGH: Stack %s", game.Away)
	case game.HomeGOI > stackThreshold:
		return fmt.Sprintf("HIGH: Stack %s", game.Home)
	case game.GamePace > paceThreshold:
		return "MEDIUM: Target PP/one-offs"
	default:
		return "LOW: Fade or value only"
	}
}

func insight(game dfs.GameOpportunity) string {
	var edge string
	switch {
	case game.AwayGOI > offenseThreshold:
		edge = fmt.Sprintf("%s offense smash vs %s defense", game.Away, game.Home)
	case game.HomeGOI > offenseThreshold:
		edge = fmt.Sprintf("%s offense smash vs %s defense", game.Home, game.Away)
	default:
		edge = "Balanced matchup"
	}

	pace := "Low pace (fewer events)"
	if game.GamePace > paceThreshold {
		pace = "High pace (more events)"
	}

	return fmt.Sprintf("%s. %s. For limited LUs, prioritize stacks in HIGH games.", edge, pace)
}

// Table renders the slate as a delimited table for the per-date analysis
// output file.
func Table(slate []Game) ([]string, [][]string) {
	header := []string{
		"Slate_Rank", "Date", "Away", "Home",
		"Away_GOI", "Home_GOI", "Game_Pace", "Total_Opportunity",
		"Stack_Priority", "DFS_Insight",
	}
	records := make([][]string, 0, len(slate))
	for _, game := range slate {
		records = append(records, []string{
			strconv.Itoa(game.SlateRank),
			game.Date,
			game.Away,
			game.Home,
			strconv.FormatFloat(game.AwayGOI, 'f', 4, 64),
			strconv.FormatFloat(game.HomeGOI, 'f', 4, 64),
			strconv.FormatFloat(game.GamePace, 'f', 4, 64),
			strconv.FormatFloat(game.TotalOpportunity, 'f', 4, 64),
			game.StackPriority,
			game.Insight,
		})
	}
	return header, records
}
