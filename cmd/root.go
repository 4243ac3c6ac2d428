package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/jackpot-predict/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "jackpot",
	Short: "Multi-agent trivia prediction engine",
	Long:  "Runs five specialist LLM agents per clue, weights their votes by turn, and layers an Oracle synthesizer and a background deep-analysis Thinker on top.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
