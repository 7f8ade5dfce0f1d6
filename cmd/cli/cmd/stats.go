package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// statsOrder lists statuses in display order; "total" is printed last.
var statsOrder = []string{"successful", "failed", "invalid", "pending_retry"}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show sync history counts per status",
	Run: func(cmd *cobra.Command, args []string) {
		client := NewSyncClient(viper.GetString("url"))
		stats, err := client.Stats()
		if err != nil {
			cmd.Printf("Error fetching stats: %v\n", err)
			return
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "STATUS\tCOUNT")
		for _, status := range statsOrder {
			if n, ok := stats[status]; ok {
				fmt.Fprintf(w, "%s\t%d\n", status, n)
			}
		}
		fmt.Fprintf(w, "total\t%d\n", stats["total"])
		w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
}
