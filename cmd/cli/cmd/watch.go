package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"time"

	"syncbridge/internal/notify"
	"syncbridge/internal/notify/natsstan"

	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow created-entity events",
	Long: `Subscribe to the events syncbridge publishes on NATS Streaming after a batch
commits, one per created entity. Runs until interrupted.`,
	Run: func(cmd *cobra.Command, args []string) {
		flags := cmd.Flags()
		natsURL, _ := flags.GetString("nats-url")
		cluster, _ := flags.GetString("cluster")
		clientID, _ := flags.GetString("client-id")
		prefix, _ := flags.GetString("prefix")
		durable, _ := flags.GetString("durable")
		full, _ := flags.GetBool("full")

		// Trap Ctrl+C to exit gracefully
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		sub := &natsstan.Subscriber{
			ClusterID: cluster,
			ClientID:  clientID,
			URL:       natsURL,
			Prefix:    prefix,
			Durable:   durable,
		}

		cmd.Printf("Watching %s.*.created on %s (Ctrl+C to stop)\n", prefix, natsURL)
		err := sub.Subscribe(ctx, func(ctx context.Context, e notify.Event) error {
			printEvent(cmd.OutOrStdout(), e, full)
			return nil
		})
		if err != nil {
			cmd.Printf("Error: %v\n", err)
			return
		}
		<-ctx.Done()
	},
}

func printEvent(w io.Writer, e notify.Event, full bool) {
	fmt.Fprintf(w, "%s %s%-10s%s id=%d\n",
		e.CreatedAt.Local().Format(time.TimeOnly), colorCyan, e.Kind.Singular(), colorReset, e.ID)
	if full && e.Entity != nil {
		b, err := json.MarshalIndent(e.Entity, "  ", "  ")
		if err == nil {
			fmt.Fprintf(w, "  %s\n", b)
		}
	}
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().String("nats-url", "nats://localhost:4222", "NATS server URL")
	watchCmd.Flags().String("cluster", "test-cluster", "NATS Streaming cluster id")
	watchCmd.Flags().String("client-id", "syncctl-watch", "NATS Streaming client id")
	watchCmd.Flags().String("prefix", "syncbridge", "Subject prefix")
	watchCmd.Flags().String("durable", "", "Durable subscription name; replays missed events")
	watchCmd.Flags().Bool("full", false, "Print the created entity")
}
