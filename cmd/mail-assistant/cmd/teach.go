package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nhle/mail-assistant/internal/model"
)

var instructCmd = &cobra.Command{
	Use:   "instruct <text>",
	Short: "Add a standing instruction for future drafts",
	Long: `Add a free-text instruction that shapes every future draft, e.g.:

  mail-assistant instruct "When responding to technical questions, include code examples."

Instructions accumulate; repeating one adds a second record.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		store, err := openLearningStore(cfg)
		if err != nil {
			return err
		}

		text := strings.Join(args, " ")
		if err := store.AddInstruction(text); err != nil {
			return err
		}

		fmt.Printf("Added instruction (%d total)\n", len(store.State().Instructions))
		return nil
	},
}

var (
	exampleSender   string
	exampleSubject  string
	exampleOriginal string
	exampleReply    string
)

var exampleCmd = &cobra.Command{
	Use:   "example",
	Short: "Record a sent reply as a learning example",
	Long: `Record a real sent (or edited) reply so future drafts can imitate it.
The oldest examples are evicted beyond the configured cap.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		store, err := openLearningStore(cfg)
		if err != nil {
			return err
		}

		err = store.AddExample(model.ExampleResponse{
			Sender:  exampleSender,
			Subject: exampleSubject,
			Excerpt: exampleOriginal,
			Reply:   exampleReply,
		})
		if err != nil {
			return err
		}

		fmt.Printf("Added example response (%d retained)\n", len(store.State().Examples))
		return nil
	},
}

func init() {
	exampleCmd.Flags().StringVar(&exampleSender, "sender", "", "original sender address")
	exampleCmd.Flags().StringVar(&exampleSubject, "subject", "", "original subject")
	exampleCmd.Flags().StringVar(&exampleOriginal, "original", "", "original message body or excerpt")
	exampleCmd.Flags().StringVar(&exampleReply, "reply", "", "the reply that was actually sent")
	_ = exampleCmd.MarkFlagRequired("original")
	_ = exampleCmd.MarkFlagRequired("reply")

	rootCmd.AddCommand(instructCmd)
	rootCmd.AddCommand(exampleCmd)
}
