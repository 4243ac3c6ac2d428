package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sells-group/jackpot-predict/internal/model"
	"github.com/sells-group/jackpot-predict/internal/vote"
)

var playCategory string

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Play a puzzle interactively, one clue per turn",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initService(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		sessionID := env.Service.StartOrResume("")
		fmt.Printf("Session %s", sessionID)
		if playCategory != "" {
			fmt.Printf("  [category: %s]", playCategory)
		}
		fmt.Println()
		fmt.Println("Enter one clue per turn. Empty line or Ctrl-D quits.")

		scanner := bufio.NewScanner(os.Stdin)
		for turn := 1; turn <= model.MaxTurns; turn++ {
			fmt.Printf("\nClue %d/%d > ", turn, model.MaxTurns)
			if !scanner.Scan() {
				break
			}
			clue := strings.TrimSpace(scanner.Text())
			if clue == "" {
				break
			}

			result, err := env.Service.SubmitClue(ctx, sessionID, clue, playCategory)
			if err != nil {
				return err
			}
			printTurn(result)

			if result.ShouldGuess {
				fmt.Printf("\n>>> GUESS NOW: %s\n", result.Voting.RecommendedPick)
			}
		}

		newID := env.Service.Reset(ctx, sessionID)
		fmt.Printf("\nPuzzle over. Next session: %s\n", newID)
		return scanner.Err()
	},
}

func printTurn(result *model.TurnResult) {
	fmt.Printf("\n--- Turn %d (%dms, %d/%d agents) ---\n",
		result.TurnNumber,
		result.TotalLatency.Milliseconds(),
		result.AgentsResponded,
		model.SpecialistCount,
	)

	for _, name := range vote.OrderedAgents(result.Predictions) {
		p := result.Predictions[name]
		if p == nil {
			continue
		}
		fmt.Printf("  %-11s %s (%.0f%%)  %s\n", p.AgentName, p.Answer, p.Confidence*100, p.Reasoning)
	}
	for _, name := range result.AgentsFailed {
		fmt.Printf("  %-11s (no result)\n", name)
	}

	fmt.Printf("  VOTE: %s  [%s, %.1f votes]  %s\n",
		result.Voting.RecommendedPick,
		result.Voting.AgreementStrength,
		weightedVotes(result.Voting),
		result.Rationale,
	)

	if result.Oracle != nil {
		fmt.Println("  ORACLE:")
		for i, g := range result.Oracle.Top3 {
			fmt.Printf("    %d. %s (%d%%) - %s\n", i+1, g.Answer, g.Confidence, g.Explanation)
		}
		if result.Oracle.KeyTheme != "" {
			fmt.Printf("    theme: %s\n", result.Oracle.KeyTheme)
		}
	}
}

func weightedVotes(vr model.VotingResult) float64 {
	if len(vr.Clusters) == 0 {
		return 0
	}
	return vr.Clusters[0].TotalWeightedVotes
}

func init() {
	playCmd.Flags().StringVar(&playCategory, "category", "", "category hint (person, place, or thing)")
	rootCmd.AddCommand(playCmd)
}
