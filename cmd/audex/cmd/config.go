package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/mfigueroa/audex/pkg/hardware"
)

var configOutput string

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration helpers",
	Long:  `Commands for generating daemon configuration based on hardware capabilities.`,
}

var configRecommendCmd = &cobra.Command{
	Use:   "recommend",
	Short: "Generate recommended daemon configuration",
	Long: `Analyzes system hardware (CPU, RAM) and generates a recommended
concurrency bound and daemon configuration snippet.`,
	RunE: runConfigRecommend,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective client configuration",
	Long:  `Prints the server URL and config file currently in effect.`,
	RunE:  runConfigShow,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configRecommendCmd)
	configCmd.AddCommand(configShowCmd)

	configRecommendCmd.Flags().StringVarP(&configOutput, "format", "f", "text",
		"Output format: text, json, yaml")
}

// Recommendation pairs detected hardware with suggested daemon settings
type Recommendation struct {
	Hardware  hardware.Info  `json:"hardware" yaml:"hardware"`
	Suggested DaemonSettings `json:"suggested" yaml:"suggested"`
	Rationale string         `json:"rationale" yaml:"rationale"`
}

// DaemonSettings is the config snippet emitted for audexd
type DaemonSettings struct {
	MaxConcurrentJobs int    `json:"max_concurrent_jobs" yaml:"max_concurrent_jobs"`
	JobTimeout        string `json:"job_timeout" yaml:"job_timeout"`
	CleanupDelay      string `json:"cleanup_delay" yaml:"cleanup_delay"`
	SweepMaxAge       string `json:"sweep_max_age" yaml:"sweep_max_age"`
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	settings := map[string]string{
		"server_url":  GetServerURL(),
		"config_file": viper.ConfigFileUsed(),
	}
	if IsJSONOutput() {
		output, err := json.MarshalIndent(settings, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		fmt.Println(string(output))
		return nil
	}
	fmt.Printf("Server URL:  %s\n", settings["server_url"])
	if settings["config_file"] != "" {
		fmt.Printf("Config file: %s\n", settings["config_file"])
	} else {
		fmt.Println("Config file: (none)")
	}
	return nil
}

func runConfigRecommend(cmd *cobra.Command, args []string) error {
	info := hardware.Detect()
	concurrent := hardware.RecommendConcurrency(info)

	rec := Recommendation{
		Hardware: info,
		Suggested: DaemonSettings{
			MaxConcurrentJobs: concurrent,
			JobTimeout:        "30m",
			CleanupDelay:      "1h",
			SweepMaxAge:       "24h",
		},
		Rationale: fmt.Sprintf(
			"%d CPU threads detected; audio extraction is mostly single-threaded per job, so one slot per two threads keeps the host responsive.",
			info.CPUThreads),
	}

	switch configOutput {
	case "json":
		output, err := json.MarshalIndent(rec, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		fmt.Println(string(output))
	case "yaml":
		output, err := yaml.Marshal(rec)
		if err != nil {
			return fmt.Errorf("failed to marshal YAML: %w", err)
		}
		fmt.Print(string(output))
	default:
		fmt.Printf("Hardware: %s (%d threads, %.1f GB RAM)\n",
			rec.Hardware.CPUModel, rec.Hardware.CPUThreads, float64(rec.Hardware.RAMBytes)/(1<<30))
		fmt.Printf("Recommended max_concurrent_jobs: %d\n", rec.Suggested.MaxConcurrentJobs)
		fmt.Printf("Rationale: %s\n", rec.Rationale)
	}
	return nil
}
