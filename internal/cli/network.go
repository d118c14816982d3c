package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kmatzaris/periegete/internal/network"
)

var (
	minCooccurrence int
	rankBy          string
	rankTop         int
)

// networkCmd represents the network command
var networkCmd = &cobra.Command{
	Use:   "network",
	Short: "Build the proper-noun co-occurrence network",
	Long: `Network builds the weighted co-occurrence graph of extracted proper
nouns (an edge per pair of nouns sharing a passage, weighted by how
many passages they share), computes degree, betweenness, eigenvector
and PageRank centralities, and stores the per-noun results.

Nouns appearing in no shared passage are kept as isolated nodes.

Example:
  periegete network
  periegete network --min-cooccurrence 2 --rank-by betweenness`,
	RunE: runNetwork,
}

func init() {
	rootCmd.AddCommand(networkCmd)

	networkCmd.Flags().IntVar(&minCooccurrence, "min-cooccurrence", 0, "minimum shared passages for an edge (default from config)")
	networkCmd.Flags().StringVar(&rankBy, "rank-by", string(network.ByDegree), "centrality to rank by (degree, betweenness, eigenvector, pagerank)")
	networkCmd.Flags().IntVar(&rankTop, "top", 15, "nodes to show in the ranking")
}

func runNetwork(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	if minCooccurrence > 0 {
		cfg.Network.MinCooccurrence = minCooccurrence
	}

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	nouns, err := st.ProperNouns()
	if err != nil {
		return err
	}
	if len(nouns) == 0 {
		return fmt.Errorf("no proper nouns in corpus; run 'periegete nouns' first")
	}

	g := network.Build(nouns, cfg.Network.MinCooccurrence)
	if err := st.ReplaceCentrality(g.Rows()); err != nil {
		return fmt.Errorf("store centralities: %w", err)
	}

	fmt.Fprintf(os.Stderr, "✓ Network: %d nouns, %d edges\n", len(g.Nodes), len(g.Edges))

	ranked := g.Ranked(network.Measure(rankBy))
	if len(ranked) > rankTop {
		ranked = ranked[:rankTop]
	}
	fmt.Fprintf(os.Stderr, "\nTop %d by %s:\n", len(ranked), rankBy)
	for i, n := range ranked {
		fmt.Printf("%3d. %-20s %-7s %8.4f\n", i+1, n.CanonicalForm, n.EntityType, n.Value(network.Measure(rankBy)))
	}
	return nil
}
