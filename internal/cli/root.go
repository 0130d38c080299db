// Package cli implements the kdq command line: loading points into a SQLite
// point store and running nearest neighbor queries against its k-d index.
package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/viant/sqlite-kdtree/engine"
	"github.com/viant/sqlite-kdtree/index/kd"
	"github.com/viant/sqlite-kdtree/vector"
)

var (
	dbPath    string
	buildMode string
	pruneRule string
	verbose   bool
)

var rootCmd = &cobra.Command{
	Use:   "kdq",
	Short: "Query points with a k-d tree",
	Long: `kdq stores points in a SQLite database and answers nearest and
k-nearest neighbor queries with an in-memory k-d tree.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "kdq.sqlite", "path to the SQLite database")
	rootCmd.PersistentFlags().StringVar(&buildMode, "build", kd.Balanced.String(), "index build mode (balanced|incremental)")
	rootCmd.PersistentFlags().StringVar(&pruneRule, "prune", kd.PrunePlaneDistance.String(), "hyperplane prune rule (plane|squared_plane)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log index activity to stderr")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func newLogger(cmd *cobra.Command) *slog.Logger {
	if !verbose {
		return slog.New(slog.DiscardHandler)
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// openStore opens the database named by --db and wraps it in a point store
// configured from the index flags. The returned func closes the database.
func openStore(cmd *cobra.Command) (*vector.SQLiteStore, func(), error) {
	mode, err := kd.ParseBuildMode(buildMode)
	if err != nil {
		return nil, nil, err
	}
	rule, err := kd.ParsePruneRule(pruneRule)
	if err != nil {
		return nil, nil, err
	}
	db, err := engine.Open(dbPath, "busy_timeout(5000)")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open %s: %w", dbPath, err)
	}
	closeDB := func() { _ = db.Close() }
	store, err := vector.NewSQLiteStore(db,
		vector.WithIndexOptions(kd.WithBuildMode(mode), kd.WithPruneRule(rule)),
		vector.WithLogger(newLogger(cmd)))
	if err != nil {
		closeDB()
		return nil, nil, err
	}
	return store, closeDB, nil
}
