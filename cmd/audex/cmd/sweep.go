package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/spf13/cobra"
)

// sweepCmd represents the sweep command
var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Trigger a retention sweep on the server",
	Long:  `Asks the server to remove job directories older than its configured retention age immediately, instead of waiting for the next scheduled sweep.`,
	RunE:  runSweep,
}

func init() {
	rootCmd.AddCommand(sweepCmd)
}

// sweepResult mirrors the server's sweep response
type sweepResult struct {
	Removed      int   `json:"removed"`
	TotalSweeps  int64 `json:"total_sweeps"`
	TotalRemoved int64 `json:"total_removed"`
}

func runSweep(cmd *cobra.Command, args []string) error {
	url := fmt.Sprintf("%s/sweep", GetServerURL())
	resp, err := http.Post(url, "application/json", nil)
	if err != nil {
		return fmt.Errorf("failed to connect to server: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
	}

	var result sweepResult
	if err := json.Unmarshal(body, &result); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	if IsJSONOutput() {
		return printJSON(result)
	}
	fmt.Printf("Removed %d job directories (%d total across %d sweeps)\n",
		result.Removed, result.TotalRemoved, result.TotalSweeps)
	return nil
}
