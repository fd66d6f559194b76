package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func estimateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "estimate <term>",
		Short: "Estimate the resale price of an item",
		Long:  "Sends an estimate request to the API server and prints the aggregated statistics.",
		Example: `  scanworth estimate "EarthBound SNES"
  scanworth estimate 045496830434`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEstimate(cmd, args[0])
		},
	}

	return cmd
}

type estimatePayload struct {
	Query string `json:"query"`
}

func runEstimate(cmd *cobra.Command, term string) error {
	payload, err := json.Marshal(estimatePayload{Query: term})
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}

	apiURL := viper.GetString("server") + "/api/v1/estimate"

	req, err := http.NewRequestWithContext(
		cmd.Context(),
		http.MethodPost,
		apiURL,
		bytes.NewReader(payload),
	)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("calling estimate API: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("API returned %d: %s", resp.StatusCode, body)
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, body, "", "  "); err != nil {
		fmt.Println(string(body))
		return nil
	}

	fmt.Println(pretty.String())
	return nil
}
