// Command nhldfs is the NHL DFS team model pipeline CLI.
//
// Usage:
//
//	nhldfs tpi --date 20251023
//	nhldfs goi
//	nhldfs run
//	nhldfs slate --date 2025-10-23
//	nhldfs slate --date 2025-10-23 --games "Los Angeles Kings @ Dallas Stars"
//	nhldfs watch --schedule "0 7 * * *"
package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/jhenk/nhl-dfs-model/internal/dfs"
	"github.com/jhenk/nhl-dfs-model/internal/output"
	"github.com/jhenk/nhl-dfs-model/internal/pipeline"
	"github.com/jhenk/nhl-dfs-model/internal/services"
	"github.com/jhenk/nhl-dfs-model/internal/slate"
	"github.com/jhenk/nhl-dfs-model/pkg/config"
)

var (
	configPath string
	verbose    bool
)

func main() {
	_ = godotenv.Load(".env")

	root := &cobra.Command{
		Use:   "nhldfs",
		Short: "NHL DFS team ranking pipeline",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if verbose {
				logrus.SetLevel(logrus.DebugLevel)
			} else {
				logrus.SetLevel(logrus.InfoLevel)
			}
		},
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "pipeline configuration file")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(tpiCmd())
	root.AddCommand(goiCmd())
	root.AddCommand(runCmd())
	root.AddCommand(slateCmd())
	root.AddCommand(watchCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRunner() (*config.Config, *pipeline.Runner, error) {
	cfg, err := config.LoadConfig(configPath, logrus.StandardLogger())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	runner, err := pipeline.NewRunner(cfg, logrus.StandardLogger())
	if err != nil {
		return nil, nil, err
	}
	return cfg, runner, nil
}

func parseRunDate(value string) (time.Time, error) {
	if value == "" {
		return time.Now(), nil
	}
	asOf, err := time.Parse(dfs.RunDateLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --date %q, expected YYYYMMDD", value)
	}
	return asOf, nil
}

func tpiCmd() *cobra.Command {
	var date string
	cmd := &cobra.Command{
		Use:   "tpi",
		Short: "Normalize provider stats and build Team Power Index rankings",
		RunE: func(cmd *cobra.Command, args []string) error {
			asOf, err := parseRunDate(date)
			if err != nil {
				return err
			}
			_, runner, err := newRunner()
			if err != nil {
				return err
			}
			result, err := runner.RunTPI(asOf)
			if err != nil {
				return err
			}
			if !result.Integrity.OK() {
				logrus.Warnf("Run completed with %d integrity violations, review before trusting rankings", len(result.Integrity.Violations))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "run date as YYYYMMDD (default today)")
	return cmd
}

func goiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "goi",
		Short: "Calculate Game Opportunity Index for the full schedule",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, runner, err := newRunner()
			if err != nil {
				return err
			}
			_, err = runner.RunGOI()
			return err
		},
	}
}

func runCmd() *cobra.Command {
	var date string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the full pipeline (tpi then goi)",
		RunE: func(cmd *cobra.Command, args []string) error {
			asOf, err := parseRunDate(date)
			if err != nil {
				return err
			}
			_, runner, err := newRunner()
			if err != nil {
				return err
			}
			return runner.Run(asOf)
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "run date as YYYYMMDD (default today)")
	return cmd
}

func slateCmd() *cobra.Command {
	var date string
	var games string
	cmd := &cobra.Command{
		Use:   "slate",
		Short: "Analyze the opportunity slate for one date",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(configPath, logrus.StandardLogger())
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if date == "" {
				date = time.Now().Format(dfs.ScheduleDateLayout)
			}

			allGames, err := output.ReadGOITable(filepath.Join(cfg.OutputDir, output.GOIRankingsFile))
			if err != nil {
				return fmt.Errorf("failed to load GOI rankings (run the goi stage first?): %w", err)
			}

			var selections []string
			if games != "" {
				for _, selection := range strings.Split(games, ",") {
					selections = append(selections, strings.TrimSpace(selection))
				}
			}

			analyzer := slate.NewAnalyzer(logrus.StandardLogger())
			result, err := analyzer.Analyze(allGames, date, selections)
			if err != nil {
				return err
			}

			printSlate(date, result)

			writer := output.NewWriter(cfg.OutputDir, cfg.ArchiveDir, logrus.StandardLogger())
			header, records := slate.Table(result)
			return writer.WriteTable(output.SlateFile(date), header, records)
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "slate date as YYYY-MM-DD (default today)")
	cmd.Flags().StringVar(&games, "games", "", "comma-separated games as 'Away @ Home' (default: all games on date)")
	return cmd
}

func watchCmd() *cobra.Command {
	var schedule string
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Run the full pipeline on a cron schedule",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, runner, err := newRunner()
			if err != nil {
				return err
			}

			refresher := services.NewRefresherService(runner, logrus.StandardLogger())
			if err := refresher.Start(schedule); err != nil {
				return err
			}
			defer refresher.Stop()

			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
			<-quit
			logrus.Info("Shutting down...")
			return nil
		},
	}
	cmd.Flags().StringVar(&schedule, "schedule", "0 7 * * *", "cron schedule for pipeline runs")
	return cmd
}

func printSlate(date string, result []slate.Game) {
	fmt.Printf("\nDFS SLATE ANALYSIS: %s (%d games)\n\n", date, len(result))
	for _, game := range result {
		fmt.Printf("%2d. %s @ %s | Away %.4f | Home %.4f | Pace %.4f | Total %.4f\n",
			game.SlateRank, game.Away, game.Home,
			game.AwayGOI, game.HomeGOI, game.GamePace, game.TotalOpportunity)
		fmt.Printf("    %s\n    %s\n\n", game.StackPriority, game.Insight)
	}
}
