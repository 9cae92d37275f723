package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nhle/mail-assistant/internal/journal"
)

var failuresLimit int

var failuresCmd = &cobra.Command{
	Use:   "failures",
	Short: "List messages that failed processing",
	Long: `List the most recent messages that reached a failed terminal state,
with the stage they failed at, for manual reprocessing.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		jnl, err := journal.Open(cfg.Storage.JournalPath)
		if err != nil {
			return err
		}
		defer jnl.Close()

		records, err := jnl.Failures(context.Background(), failuresLimit)
		if err != nil {
			return err
		}

		if len(records) == 0 {
			fmt.Println("No failures recorded.")
			return nil
		}

		for _, rec := range records {
			fmt.Printf("%s  uid=%d  sender=%s  stage=%s\n",
				rec.CreatedAt.Format("2006-01-02 15:04"),
				rec.MessageUID, rec.Sender, rec.Stage,
			)
			fmt.Printf("    subject: %s\n", rec.Subject)
			fmt.Printf("    error:   %s\n", rec.Error)
		}

		return nil
	},
}

func init() {
	failuresCmd.Flags().IntVar(&failuresLimit, "limit", 20, "maximum records to show")
	rootCmd.AddCommand(failuresCmd)
}
