package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/jackpot-predict/internal/model"
	"github.com/sells-group/jackpot-predict/internal/store"
)

var importFile string

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Bulk-load historical solved puzzles into the archive",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		n, err := importExamples(ctx, st, importFile)
		if err != nil {
			return err
		}
		fmt.Printf("Imported %d puzzle examples\n", n)
		return nil
	},
}

// importExamples reads a JSON array of puzzle examples and upserts them.
// Duplicate answers within the file or against existing rows collapse.
func importExamples(ctx context.Context, st store.Store, path string) (int64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, eris.Wrapf(err, "read %s", path)
	}

	var examples []model.PuzzleExample
	if err := json.Unmarshal(data, &examples); err != nil {
		return 0, eris.Wrapf(err, "parse %s", path)
	}
	if len(examples) == 0 {
		return 0, eris.Errorf("%s contains no examples", path)
	}
	for i, ex := range examples {
		if ex.Answer == "" {
			return 0, eris.Errorf("%s: example %d has no answer", path, i)
		}
	}

	n, err := st.SaveExamples(ctx, examples)
	if err != nil {
		return 0, err
	}
	zap.L().Info("examples imported", zap.String("file", path), zap.Int64("count", n))
	return n, nil
}

func init() {
	importCmd.Flags().StringVar(&importFile, "file", "", "JSON file of puzzle examples (required)")
	importCmd.MarkFlagRequired("file") //nolint:errcheck
	rootCmd.AddCommand(importCmd)
}
