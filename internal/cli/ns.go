package cli

import (
	"github.com/spf13/cobra"
)

func init() {
	nsCmd := &cobra.Command{
		Use:   "ns",
		Short: "Namespace management",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List configured namespaces with usage counts",
		Run:   runNSList,
	}

	nsCmd.AddCommand(listCmd)
	RootCmd.AddCommand(nsCmd)
}

func runNSList(cmd *cobra.Command, args []string) {
	s, cfg := openStore()
	defer s.Close()

	stats, err := s.Stats(cmd.Context(), cfg.DBPath)
	if err != nil {
		exitErr("ns list", err)
	}

	type nsRow struct {
		NS       string `json:"ns"`
		Paths    int    `json:"paths"`
		Memories int    `json:"memories"`
	}

	// Configured namespaces first, zero counts included; then any extras
	// the database picked up before a config change.
	counts := map[string]nsRow{}
	for _, n := range stats.Namespaces {
		counts[n.NS] = nsRow{NS: n.NS, Paths: n.Paths, Memories: n.Memories}
	}

	var rows []nsRow
	for _, name := range cfg.Namespaces {
		if row, ok := counts[name]; ok {
			rows = append(rows, row)
			delete(counts, name)
		} else {
			rows = append(rows, nsRow{NS: name})
		}
	}
	for _, row := range counts {
		rows = append(rows, row)
	}

	printJSON(rows)
}
