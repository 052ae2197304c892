package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

var (
	followStatus   bool
	downloadOutput string
)

// jobsCmd represents the jobs command
var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Manage jobs",
	Long:  `Commands for submitting, listing, and managing audio extraction jobs.`,
}

// jobsSubmitCmd represents the jobs submit command
var jobsSubmitCmd = &cobra.Command{
	Use:   "submit <media-file>",
	Short: "Submit a new job",
	Long:  `Upload a media file to the server and queue an audio extraction job.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runJobsSubmit,
}

// jobsStatusCmd represents the jobs status command
var jobsStatusCmd = &cobra.Command{
	Use:   "status [job-id]",
	Short: "Get job status",
	Long:  `Retrieve the status of a specific job by its ID. If no ID is provided, lists all jobs.`,
	Args:  cobra.MaximumNArgs(1),
	RunE:  runJobsStatus,
}

// jobsCancelCmd represents the jobs cancel command
var jobsCancelCmd = &cobra.Command{
	Use:   "cancel <job-id>",
	Short: "Cancel a job",
	Long:  `Cancel a queued or processing job.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runJobsCancel,
}

// jobsDownloadCmd represents the jobs download command
var jobsDownloadCmd = &cobra.Command{
	Use:   "download <job-id>",
	Short: "Download the extracted audio",
	Long:  `Download the output file of a completed job.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runJobsDownload,
}

func init() {
	rootCmd.AddCommand(jobsCmd)
	jobsCmd.AddCommand(jobsSubmitCmd)
	jobsCmd.AddCommand(jobsStatusCmd)
	jobsCmd.AddCommand(jobsCancelCmd)
	jobsCmd.AddCommand(jobsDownloadCmd)

	jobsStatusCmd.Flags().BoolVar(&followStatus, "follow", false, "poll job status every 2 seconds until completion")
	jobsDownloadCmd.Flags().StringVarP(&downloadOutput, "output-file", "o", "", "write the audio to this path instead of the server-suggested name")
}

// jobView mirrors the server's job projection
type jobView struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Status     string `json:"status"`
	Progress   int    `json:"progress"`
	Message    string `json:"message"`
	OutputPath string `json:"output_path,omitempty"`
	Error      string `json:"error,omitempty"`
}

func runJobsSubmit(cmd *cobra.Command, args []string) error {
	mediaPath := args[0]
	file, err := os.Open(mediaPath)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", mediaPath, err)
	}
	defer file.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filepath.Base(mediaPath))
	if err != nil {
		return fmt.Errorf("failed to build upload: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return fmt.Errorf("failed to read %s: %w", mediaPath, err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finish upload: %w", err)
	}

	url := fmt.Sprintf("%s/jobs", GetServerURL())
	resp, err := http.Post(url, writer.FormDataContentType(), &body)
	if err != nil {
		return fmt.Errorf("failed to connect to server: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var result jobView
	if err := json.Unmarshal(respBody, &result); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if IsJSONOutput() {
		return printJSON(result)
	}
	printJobTable(result)
	fmt.Printf("\nJob submitted: %s\n", result.ID)
	return nil
}

func runJobsStatus(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return listAllJobs()
	}
	jobID := args[0]

	if followStatus {
		fmt.Printf("Following job %s (press Ctrl+C to stop)...\n\n", jobID)
		for {
			result, err := fetchJobStatus(jobID)
			if err != nil {
				return err
			}
			fmt.Printf("[%s] %s %3d%% - %s\n",
				time.Now().Format("15:04:05"), result.Status, result.Progress, result.Message)
			if result.Status == "completed" || result.Status == "failed" || result.Status == "cancelled" {
				return nil
			}
			time.Sleep(2 * time.Second)
		}
	}

	result, err := fetchJobStatus(jobID)
	if err != nil {
		return err
	}
	if IsJSONOutput() {
		return printJSON(result)
	}
	printJobTable(*result)
	return nil
}

func runJobsCancel(cmd *cobra.Command, args []string) error {
	url := fmt.Sprintf("%s/jobs/%s/cancel", GetServerURL(), args[0])
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

	var result jobView
	if err := json.Unmarshal(body, &result); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	if IsJSONOutput() {
		return printJSON(result)
	}
	fmt.Printf("Job %s cancelled\n", result.ID)
	return nil
}

func runJobsDownload(cmd *cobra.Command, args []string) error {
	jobID := args[0]
	url := fmt.Sprintf("%s/jobs/%s/download", GetServerURL(), jobID)
	resp, err := http.Get(url)
	if err != nil {
		return fmt.Errorf("failed to connect to server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
	}

	target := downloadOutput
	if target == "" {
		target = jobID + ".mp3"
	}
	out, err := os.Create(target)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", target, err)
	}
	defer out.Close()

	n, err := io.Copy(out, resp.Body)
	if err != nil {
		return fmt.Errorf("failed to save audio: %w", err)
	}
	fmt.Printf("Saved %d bytes to %s\n", n, target)
	return nil
}

// fetchJobStatus retrieves a single job view from the server
func fetchJobStatus(jobID string) (*jobView, error) {
	url := fmt.Sprintf("%s/jobs/%s", GetServerURL(), jobID)
	resp, err := http.Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to server: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
	}

	var result jobView
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return &result, nil
}

// listAllJobs renders every job on the server
func listAllJobs() error {
	url := fmt.Sprintf("%s/jobs", GetServerURL())
	resp, err := http.Get(url)
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

	var jobs []jobView
	if err := json.Unmarshal(body, &jobs); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if IsJSONOutput() {
		return printJSON(jobs)
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("ID", "Name", "Status", "Progress", "Message")
	for _, job := range jobs {
		table.Append(job.ID, job.Name, job.Status, fmt.Sprintf("%d%%", job.Progress), job.Message)
	}
	table.Render()
	fmt.Printf("\nTotal: %d jobs\n", len(jobs))
	return nil
}

// printJobTable renders one job as a field/value table
func printJobTable(job jobView) {
	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Field", "Value")
	table.Append("ID", job.ID)
	table.Append("Name", job.Name)
	table.Append("Status", job.Status)
	table.Append("Progress", fmt.Sprintf("%d%%", job.Progress))
	table.Append("Message", job.Message)
	if job.Error != "" {
		table.Append("Error", job.Error)
	}
	table.Render()
}

func printJSON(v interface{}) error {
	output, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	fmt.Println(string(output))
	return nil
}
