package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/viant/sqlite-kdtree/vector"
)

var (
	queryJSON bool
	knnK      int
)

var nearestCmd = &cobra.Command{
	Use:   "nearest [x,y,...]",
	Short: "Find the nearest point",
	Args:  cobra.ExactArgs(1),
	RunE:  runNearest,
}

var knnCmd = &cobra.Command{
	Use:   "knn [x,y,...]",
	Short: "Find the k nearest points",
	Long: `Returns up to k points ordered by ascending Euclidean distance from the
query point. Ties keep the first point found.`,
	Args: cobra.ExactArgs(1),
	RunE: runKNN,
}

func init() {
	nearestCmd.Flags().BoolVar(&queryJSON, "json", false, "output results as JSON")
	knnCmd.Flags().BoolVar(&queryJSON, "json", false, "output results as JSON")
	knnCmd.Flags().IntVarP(&knnK, "k", "k", 3, "number of neighbors")
	rootCmd.AddCommand(nearestCmd, knnCmd)
}

type matchOutput struct {
	ID       string    `json:"id"`
	Label    string    `json:"label,omitempty"`
	Coords   []float32 `json:"coords"`
	Distance float64   `json:"distance"`
}

func runNearest(cmd *cobra.Command, args []string) error {
	query, err := parseCoords(args[0])
	if err != nil {
		return err
	}
	store, closeDB, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer closeDB()

	match, err := store.Nearest(context.Background(), query)
	if err != nil {
		return fmt.Errorf("nearest failed: %w", err)
	}
	var matches []vector.Match
	if match != nil {
		matches = append(matches, *match)
	}
	return outputMatches(cmd, matches)
}

func runKNN(cmd *cobra.Command, args []string) error {
	query, err := parseCoords(args[0])
	if err != nil {
		return err
	}
	store, closeDB, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer closeDB()

	matches, err := store.KNearest(context.Background(), query, knnK)
	if err != nil {
		return fmt.Errorf("knn failed: %w", err)
	}
	return outputMatches(cmd, matches)
}

func outputMatches(cmd *cobra.Command, matches []vector.Match) error {
	if queryJSON {
		out := make([]matchOutput, len(matches))
		for i, m := range matches {
			out[i] = matchOutput{ID: m.ID, Label: m.Label, Coords: m.Coords, Distance: m.Distance}
		}
		data, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal results: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}
	if len(matches) == 0 {
		cmd.Println("No points found.")
		return nil
	}
	for i, m := range matches {
		name := m.ID
		if m.Label != "" {
			name += " (" + m.Label + ")"
		}
		cmd.Printf("  [%d] %s %v %.4f\n", i+1, name, m.Coords, m.Distance)
	}
	return nil
}
