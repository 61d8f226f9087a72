package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

var watchInterval time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stay running and sync periodically until interrupted",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireSession(); err != nil {
			return err
		}

		// Sync once up front so the device is current before idling.
		if err := orch.Push(); err != nil {
			return err
		}
		if err := orch.StartAutoSync(watchInterval); err != nil {
			return err
		}
		fmt.Printf("syncing every %s, ctrl-c to stop\n", watchInterval)

		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit

		orch.StopAutoSync()
		return nil
	},
}

func init() {
	watchCmd.Flags().DurationVar(&watchInterval, "interval", 5*time.Minute, "sync interval")
	rootCmd.AddCommand(watchCmd)
}
