package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nhle/mail-assistant/internal/credential"
	"github.com/nhle/mail-assistant/internal/learning"
	"github.com/nhle/mail-assistant/internal/model"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "mail-assistant",
	Short: "Draft AI replies to incoming mail",
	Long: `mail-assistant polls an IMAP mailbox, drafts replies to new messages
with a hosted language model, and saves them to the drafts folder for
review before sending.

It learns from the operator: standing instructions and confirmed
sent replies shape future drafts.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&configPath, "config", model.DefaultConfigPath(),
		"path to the configuration file",
	)
}

// loadConfig reads the configuration, resolves keyring references, and
// validates it. Configuration problems abort the command before any
// network or state access.
func loadConfig() (*model.AppConfig, error) {
	cfg, err := model.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}

	cfg.IMAP.Password, err = credential.Resolve(cfg.IMAP.Password)
	if err != nil {
		return nil, fmt.Errorf("resolving imap password: %w", err)
	}
	cfg.Provider.APIKey, err = credential.Resolve(cfg.Provider.APIKey)
	if err != nil {
		return nil, fmt.Errorf("resolving provider api key: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// openLearningStore opens the durable learning state for the given
// configuration. A corrupt state file refuses to open rather than
// overwrite operator data.
func openLearningStore(cfg *model.AppConfig) (*learning.Store, error) {
	return learning.Open(cfg.Storage.StateDir, learning.Options{
		SystemPrompt: cfg.Assistant.SystemPrompt,
		MaxExamples:  cfg.Assistant.MaxExamples,
		MaxHistory:   cfg.Assistant.MaxHistory,
	})
}
