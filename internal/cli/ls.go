package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	lsCmd := &cobra.Command{
		Use:   "ls [uri]",
		Short: "List root memories or the children of a path",
		Long: `Without an argument, list the root memories of a namespace. With a URI,
list the direct children of that path across all of its aliases.`,
		Args: cobra.MaximumNArgs(1),
		Run:  runLs,
	}
	lsCmd.Flags().StringP("ns", "n", "", "Namespace for the root listing (default: core)")

	indexCmd := &cobra.Command{
		Use:   "index",
		Short: "List every path in a namespace",
		Run:   runIndex,
	}
	indexCmd.Flags().StringP("ns", "n", "", "Restrict to one namespace")

	recentCmd := &cobra.Command{
		Use:   "recent",
		Short: "List recently created memories",
		Run:   runRecent,
	}
	recentCmd.Flags().IntP("limit", "l", 10, "Max results")

	RootCmd.AddCommand(lsCmd)
	RootCmd.AddCommand(indexCmd)
	RootCmd.AddCommand(recentCmd)
}

func runLs(cmd *cobra.Command, args []string) {
	s, cfg := openStore()
	defer s.Close()

	if len(args) == 0 {
		ns, _ := cmd.Flags().GetString("ns")
		if ns == "" {
			ns = cfg.Namespaces[0]
		}
		if !cfg.ValidNS(ns) {
			exitErr("ls", fmt.Errorf("unknown namespace %q", ns))
		}
		roots, err := s.Roots(cmd.Context(), ns)
		if err != nil {
			exitErr("ls", err)
		}
		printJSON(roots)
		return
	}

	ns, path := parseURI(cfg, args[0])
	rec, err := s.GetByPath(cmd.Context(), path, ns)
	if err != nil {
		exitErr("ls", err)
	}
	children, err := s.Children(cmd.Context(), rec.ID)
	if err != nil {
		exitErr("ls", err)
	}
	printJSON(children)
}

func runIndex(cmd *cobra.Command, args []string) {
	ns, _ := cmd.Flags().GetString("ns")

	s, cfg := openStore()
	defer s.Close()

	if ns != "" && !cfg.ValidNS(ns) {
		exitErr("index", fmt.Errorf("unknown namespace %q", ns))
	}

	entries, err := s.AllPaths(cmd.Context(), ns)
	if err != nil {
		exitErr("index", err)
	}
	printJSON(entries)
}

func runRecent(cmd *cobra.Command, args []string) {
	limit, _ := cmd.Flags().GetInt("limit")

	s, _ := openStore()
	defer s.Close()

	entries, err := s.Recent(cmd.Context(), limit)
	if err != nil {
		exitErr("recent", err)
	}
	printJSON(entries)
}
