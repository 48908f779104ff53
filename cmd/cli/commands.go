package main

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"

	"github.com/spf13/cobra"
)

var (
	windowMode   string
	windowStart  string
	windowEnd    string
	windowSeason string
	windowRound  string
	recomputeAll bool
	closeAll     bool
	importFile   string
)

func init() {
	standingsCmd.Flags().StringVar(&windowMode, "mode", "all", "Window mode: all, range, season or upto")
	standingsCmd.Flags().StringVar(&windowStart, "start", "", "Window start date (range mode)")
	standingsCmd.Flags().StringVar(&windowEnd, "end", "", "Window end date (range mode)")
	standingsCmd.Flags().StringVar(&windowSeason, "season", "", "Season tag (season mode)")
	standingsCmd.Flags().StringVar(&windowRound, "round-id", "", "Round id (upto mode)")

	recomputeCmd.Flags().BoolVar(&recomputeAll, "all", false, "Recompute every round")
	recomputeCmd.Flags().BoolVar(&closeAll, "close-all", false, "Mark every round closed after recomputing")

	importCmd.Flags().StringVar(&importFile, "file", "", "Path to a JSON file with the import rows")
	importCmd.MarkFlagRequired("file")

	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(playersCmd)
	rootCmd.AddCommand(roundsCmd)
	rootCmd.AddCommand(standingsCmd)
	rootCmd.AddCommand(recomputeCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(metricsCmd)
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check the health of the server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return performGetRequest("/health")
	},
}

var playersCmd = &cobra.Command{
	Use:   "players",
	Short: "List the registered players",
	RunE: func(cmd *cobra.Command, args []string) error {
		return performGetRequest("/players")
	},
}

var roundsCmd = &cobra.Command{
	Use:   "rounds",
	Short: "List every round in chronological order",
	RunE: func(cmd *cobra.Command, args []string) error {
		return performGetRequest("/rounds")
	},
}

var standingsCmd = &cobra.Command{
	Use:   "standings",
	Short: "Fetch a windowed standings table",
	RunE: func(cmd *cobra.Command, args []string) error {
		params := url.Values{}
		params.Set("mode", windowMode)
		if windowStart != "" {
			params.Set("start", windowStart)
		}
		if windowEnd != "" {
			params.Set("end", windowEnd)
		}
		if windowSeason != "" {
			params.Set("season", windowSeason)
		}
		if windowRound != "" {
			params.Set("round_id", windowRound)
		}
		return performGetRequest("/standings?" + params.Encode())
	},
}

var recomputeCmd = &cobra.Command{
	Use:   "recompute [round-id]",
	Short: "Recompute one round, or every round with --all",
	RunE: func(cmd *cobra.Command, args []string) error {
		if recomputeAll {
			endpoint := "/recompute?all=true"
			if closeAll {
				endpoint += "&close_all=true"
			}
			return performPostRequest(endpoint, nil)
		}
		if len(args) != 1 {
			return fmt.Errorf("a round id is required unless --all is given")
		}
		return performPostRequest("/recompute?round_id="+url.QueryEscape(args[0]), nil)
	},
}

var importCmd = &cobra.Command{
	Use:       "import [kind]",
	Short:     "Run a bulk import from a JSON rows file",
	ValidArgs: []string{"players", "teams", "links", "cards", "goalkeepers"},
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		payload, err := os.ReadFile(importFile)
		if err != nil {
			return fmt.Errorf("failed to read rows file: %w", err)
		}
		return performPostRequest("/import/"+args[0], payload)
	},
}

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Get application metrics",
	RunE: func(cmd *cobra.Command, args []string) error {
		return performGetRequest("/metrics")
	},
}

func performGetRequest(endpoint string) error {
	url := host + endpoint
	fmt.Printf("Making request to %s\n", url)

	resp, err := http.Get(url)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	return printResponse(resp)
}

func performPostRequest(endpoint string, payload []byte) error {
	url := host + endpoint
	fmt.Printf("Making request to %s\n", url)

	resp, err := http.Post(url, "application/json", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	return printResponse(resp)
}

func printResponse(resp *http.Response) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	fmt.Printf("Status Code: %d\n", resp.StatusCode)
	fmt.Println("Response Body:")
	fmt.Println(string(body))

	return nil
}
