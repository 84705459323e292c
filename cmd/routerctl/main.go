// Command routerctl inspects a running routerd instance through its
// diagnostics endpoints.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"time"

	"github.com/spf13/cobra"
)

var addr string

func main() {
	root := &cobra.Command{
		Use:   "routerctl",
		Short: "Inspect a running request router",
	}
	root.PersistentFlags().StringVar(&addr, "addr", "http://localhost:8080", "routerd base URL")

	root.AddCommand(modelsCmd())
	root.AddCommand(usageCmd())
	root.AddCommand(blacklistCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func fetchJSON(path string, dest interface{}) error {
	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Get(addr + path)
	if err != nil {
		return fmt.Errorf("request %s: %w", path, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s returned %d: %s", path, resp.StatusCode, body)
	}
	return json.Unmarshal(body, dest)
}

func modelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List the model catalogue in selection order",
		RunE: func(cmd *cobra.Command, args []string) error {
			var out struct {
				Models []struct {
					ID        string   `json:"id"`
					Provider  string   `json:"provider"`
					TaskTypes []string `json:"task_types"`
					Priority  int      `json:"priority"`
					RPM       int      `json:"rpm"`
					TPM       int      `json:"tpm"`
					RPD       int      `json:"rpd"`
				} `json:"models"`
			}
			if err := fetchJSON("/v1/models", &out); err != nil {
				return err
			}
			fmt.Printf("%-32s %-12s %-8s %-8s %-10s %-8s\n",
				"MODEL", "PROVIDER", "PRIO", "RPM", "TPM", "RPD")
			for _, m := range out.Models {
				fmt.Printf("%-32s %-12s %-8d %-8d %-10d %-8d\n",
					m.ID, m.Provider, m.Priority, m.RPM, m.TPM, m.RPD)
			}
			return nil
		},
	}
}

func usageCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "usage <model-id>",
		Short: "Show current quota usage for a model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var out struct {
				Model          string    `json:"model"`
				RPMCount       int       `json:"rpm_count"`
				RPMLimit       int       `json:"rpm_limit"`
				RPMWindowStart time.Time `json:"rpm_window_start"`
				TPMCount       int       `json:"tpm_count"`
				TPMLimit       int       `json:"tpm_limit"`
				RPDCount       int       `json:"rpd_count"`
				RPDLimit       int       `json:"rpd_limit"`
				RPDWindowStart time.Time `json:"rpd_window_start"`
			}
			if err := fetchJSON("/v1/diagnostics/usage/"+args[0], &out); err != nil {
				return err
			}
			fmt.Printf("model: %s\n", out.Model)
			fmt.Printf("  rpm: %d / %d\n", out.RPMCount, out.RPMLimit)
			fmt.Printf("  tpm: %d / %d\n", out.TPMCount, out.TPMLimit)
			fmt.Printf("  rpd: %d / %d\n", out.RPDCount, out.RPDLimit)
			if !out.RPMWindowStart.IsZero() {
				fmt.Printf("  minute window started: %s\n", out.RPMWindowStart.Format(time.RFC3339))
			}
			if !out.RPDWindowStart.IsZero() {
				fmt.Printf("  day window started: %s\n", out.RPDWindowStart.Format(time.RFC3339))
			}
			return nil
		},
	}
}

func blacklistCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "blacklist",
		Short: "Show currently banned models with remaining TTLs",
		RunE: func(cmd *cobra.Command, args []string) error {
			var out struct {
				Banned map[string]float64 `json:"banned"`
			}
			if err := fetchJSON("/v1/diagnostics/blacklist", &out); err != nil {
				return err
			}
			if len(out.Banned) == 0 {
				fmt.Println("no models blacklisted")
				return nil
			}
			ids := make([]string, 0, len(out.Banned))
			for id := range out.Banned {
				ids = append(ids, id)
			}
			sort.Strings(ids)
			fmt.Printf("%-32s %s\n", "MODEL", "REMAINING")
			for _, id := range ids {
				remaining := time.Duration(out.Banned[id] * float64(time.Second))
				fmt.Printf("%-32s %s\n", id, remaining.Round(time.Second))
			}
			return nil
		},
	}
}
