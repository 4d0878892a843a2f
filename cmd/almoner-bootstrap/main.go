// almoner-bootstrap connects to the graph store, ensures the schema
// (indexes, full-text indexes, uniqueness constraints), and reports
// connectivity. Run it once per deployment before pointing ingestion at
// the graph.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/almoner/almoner/internal/config"
	"github.com/almoner/almoner/internal/graph"
	"github.com/almoner/almoner/internal/logging"
)

var (
	// Version information (set by build flags)
	Version = "dev"

	cfgFile string
	verbose bool
	cfg     *config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "almoner-bootstrap",
	Short:   "Bootstrap the Almoner grant graph",
	Long:    `Connects to the FalkorDB graph store, idempotently ensures indexes and uniqueness constraints, and reports graph health.`,
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return err
		}

		level := logging.ParseLevel(cfg.Log.Level)
		if verbose {
			level = logging.DEBUG
		}
		return logging.Initialize(logging.Config{
			Level:      level,
			JSONFormat: cfg.Log.JSON,
			OutputFile: cfg.Log.File,
		})
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()

		conn := graph.New(cfg.Graph)
		if err := conn.Connect(ctx); err != nil {
			return err
		}
		defer conn.Disconnect(context.Background())

		if err := graph.EnsureSchema(ctx, conn, graph.DefaultSchema()); err != nil {
			return err
		}

		store := graph.NewStore(conn)
		nodes, rels, err := store.Counts(ctx)
		if err != nil {
			return err
		}

		fmt.Printf("graph %q ready: %d nodes, %d relationships\n",
			conn.GraphName(), nodes, rels)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: .almoner/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
