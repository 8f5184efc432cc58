package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/evertrace/memtree/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search memories by keyword",
		Long:  "Substring search over paths and content, aliases deduplicated.",
		Args:  cobra.MinimumNArgs(1),
		Run:   runSearch,
	}

	cmd.Flags().StringP("ns", "n", "", "Restrict to one namespace")
	cmd.Flags().IntP("limit", "l", 20, "Max results")

	RootCmd.AddCommand(cmd)
}

func runSearch(cmd *cobra.Command, args []string) {
	ns, _ := cmd.Flags().GetString("ns")
	limit, _ := cmd.Flags().GetInt("limit")
	query := strings.Join(args, " ")

	s, cfg := openStore()
	defer s.Close()

	if ns != "" && !cfg.ValidNS(ns) {
		exitErr("search", fmt.Errorf("unknown namespace %q", ns))
	}

	matches, err := s.Search(cmd.Context(), store.SearchParams{
		Query: query,
		NS:    ns,
		Limit: limit,
	})
	if err != nil {
		exitErr("search", err)
	}

	if len(matches) == 0 {
		fmt.Println("[]")
		return
	}
	printJSON(matches)
}
