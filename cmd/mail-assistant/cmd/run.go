package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nhle/mail-assistant/internal/assistant"
	"github.com/nhle/mail-assistant/internal/filter"
	"github.com/nhle/mail-assistant/internal/journal"
	"github.com/nhle/mail-assistant/internal/mailbox"
	"github.com/nhle/mail-assistant/internal/observability"
	"github.com/nhle/mail-assistant/internal/prompt"
	"github.com/nhle/mail-assistant/internal/provider"
)

var runCriteria string

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Poll the mailbox and draft replies until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if runCriteria != "" {
			cfg.Assistant.SearchCriteria = runCriteria
		}
		// Reject a bad criteria string at startup, not mid-poll.
		if _, err := mailbox.ParseCriteria(cfg.Assistant.SearchCriteria); err != nil {
			return err
		}

		store, err := openLearningStore(cfg)
		if err != nil {
			return err
		}

		jnl, err := journal.Open(cfg.Storage.JournalPath)
		if err != nil {
			return err
		}
		defer jnl.Close()

		gen, err := provider.New(cfg.Provider)
		if err != nil {
			return err
		}

		log := observability.WithComponent("assistant")
		mb := mailbox.NewClient(cfg.IMAP)

		orch := assistant.NewOrchestrator(
			mb,
			gen,
			filter.New(cfg.Assistant.Blacklist),
			prompt.NewAssembler(cfg.Provider, cfg.Assistant),
			store,
			jnl,
			cfg.Assistant,
			log,
		)
		runner := assistant.NewRunner(orch, mb, cfg.Assistant, log)

		ctx, stop := signal.NotifyContext(
			context.Background(), syscall.SIGINT, syscall.SIGTERM,
		)
		defer stop()

		return runner.Run(ctx)
	},
}

func init() {
	runCmd.Flags().StringVar(
		&runCriteria, "criteria", "",
		"IMAP search criteria (overrides assistant.search_criteria)",
	)
	rootCmd.AddCommand(runCmd)
}
