package cmd

import (
	"encoding/json"

	"syncbridge/pkg/api"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect and manage sync history entries",
	Long:  `Every sync attempt leaves a history entry holding the submitted payload, its outcome and the failure reason.`,
}

var historyGetCmd = &cobra.Command{
	Use:   "get [history_id]",
	Short: "Show a sync history entry",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		output, _ := cmd.Flags().GetString("output")

		client := NewSyncClient(viper.GetString("url"))
		entry, err := client.GetHistory(args[0])
		if err != nil {
			cmd.Printf("Error fetching history entry: %v\n", err)
			return
		}

		switch output {
		case "json":
			b, _ := json.MarshalIndent(entry, "", "  ")
			cmd.Println(string(b))
		case "yaml":
			b, err := yaml.Marshal(entry)
			if err != nil {
				cmd.Printf("Failed to render yaml: %v\n", err)
				return
			}
			cmd.Print(string(b))
		default:
			printEntry(cmd, *entry)
		}
	},
}

var historyRetryCmd = &cobra.Command{
	Use:   "retry [history_id]",
	Short: "Mark a failed sync for retry",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		client := NewSyncClient(viper.GetString("url"))
		entry, err := client.RetryHistory(args[0])
		if err != nil {
			cmd.Printf("Error retrying history entry: %v\n", err)
			return
		}
		cmd.Printf("%s✓%s Entry %d will be retried (retries: %d)\n", colorGreen, colorReset, entry.ID, entry.Retries)
	},
}

var historyDeleteCmd = &cobra.Command{
	Use:   "delete [history_id]",
	Short: "Delete a sync history entry",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		client := NewSyncClient(viper.GetString("url"))
		if err := client.DeleteHistory(args[0]); err != nil {
			cmd.Printf("Error deleting history entry: %v\n", err)
			return
		}
		cmd.Printf("%s✓%s Entry %s deleted\n", colorGreen, colorReset, args[0])
	},
}

func printEntry(cmd *cobra.Command, e api.HistoryEntry) {
	cmd.Printf("%s %sSync History Entry%s\n", statusIcon(e.Status), colorBold, colorReset)
	cmd.Println("──────────────────────────────")
	cmd.Printf("%sID:%s          %d\n", colorDim, colorReset, e.ID)
	cmd.Printf("%sStatus:%s      %s\n", colorDim, colorReset, colorizeStatus(e.Status))
	cmd.Printf("%sRetries:%s     %d\n", colorDim, colorReset, e.Retries)
	if e.FailureReason != nil {
		cmd.Printf("%sReason:%s      %s%s%s\n", colorDim, colorReset, colorRed, *e.FailureReason, colorReset)
	}
	cmd.Printf("%sCreated:%s     %s\n", colorDim, colorReset, formatTimeWithRelative(&e.CreatedAt))
	cmd.Printf("%sUpdated:%s     %s\n", colorDim, colorReset, formatTimeWithRelative(&e.UpdatedAt))
	cmd.Printf("%sPayload:%s     %s\n", colorDim, colorReset, truncate(e.Payload, 200))
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyGetCmd, historyRetryCmd, historyDeleteCmd)

	historyGetCmd.Flags().StringP("output", "o", "text", "Output format: text, json or yaml")
}
