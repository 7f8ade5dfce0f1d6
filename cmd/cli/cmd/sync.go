package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Push a batch of items to syncbridge",
	Long: `Send a JSON array of objects as one sync batch. The batch is applied atomically:
either every item is created or updated, or none is.

Example:
  syncctl sync --model customers --file customers.json
  cat orders.json | syncctl sync --model orders --file -`,
	Run: func(cmd *cobra.Command, args []string) {
		flags := cmd.Flags()
		model, _ := flags.GetString("model")
		file, _ := flags.GetString("file")

		if model == "" {
			cmd.Println("Error: --model is required")
			return
		}
		if file == "" {
			cmd.Println("Error: --file is required")
			return
		}

		data, err := readBatch(cmd, file)
		if err != nil {
			cmd.Printf("Error: %v\n", err)
			return
		}

		client := NewSyncClient(viper.GetString("url"))
		result, err := client.Sync(model, data)
		if err != nil {
			cmd.Printf("Sync failed: %v\n", err)
			return
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "#\tID\tSTATUS")
		for i, r := range result.Results {
			fmt.Fprintf(w, "%d\t%d\t%s\n", i, r.ID, r.Status)
		}
		w.Flush()
		cmd.Printf("%s✓%s Synced %d %s\n", colorGreen, colorReset, len(result.Results), model)
	},
}

// readBatch loads a JSON array of items from path, or from stdin when path is "-".
func readBatch(cmd *cobra.Command, path string) ([]json.RawMessage, error) {
	var r io.Reader
	if path == "-" {
		r = cmd.InOrStdin()
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", path, err)
		}
		defer f.Close()
		r = f
	}

	var data []json.RawMessage
	if err := json.NewDecoder(r).Decode(&data); err != nil {
		return nil, fmt.Errorf("file must contain a JSON array of objects: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("file contains no items")
	}
	return data, nil
}

func init() {
	rootCmd.AddCommand(syncCmd)

	syncCmd.Flags().StringP("model", "m", "", "Entity kind: customers, products, orders or employees")
	syncCmd.Flags().StringP("file", "f", "", "JSON file holding an array of items, or - for stdin")
}
