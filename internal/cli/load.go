package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var loadCmd = &cobra.Command{
	Use:   "load [points.toml]",
	Short: "Load points from a TOML file",
	Long: `Reads [[points]] entries (id, label, meta, coords) from a TOML file and
adds them to the point store. Points without an id get a generated UUID.`,
	Args: cobra.ExactArgs(1),
	RunE: runLoad,
}

func init() {
	rootCmd.AddCommand(loadCmd)
}

func runLoad(cmd *cobra.Command, args []string) error {
	records, err := readPointsFile(args[0])
	if err != nil {
		return err
	}
	store, closeDB, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer closeDB()

	ids, err := store.AddPoints(context.Background(), records)
	if err != nil {
		return fmt.Errorf("load failed: %w", err)
	}
	cmd.Printf("loaded %d points\n", len(ids))
	return nil
}
