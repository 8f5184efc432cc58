package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func init() {
	orphansCmd := &cobra.Command{
		Use:   "orphans",
		Short: "Review memories eligible for permanent deletion",
		Long: `Orphans are memories no address can reach: old versions left behind by
updates, and live memories whose last path was deleted. They linger for
review until purged.`,
		Run: runOrphansList,
	}

	showCmd := &cobra.Command{
		Use:   "show <memory-id>",
		Short: "Show an orphan's full content and migration target",
		Args:  cobra.ExactArgs(1),
		Run:   runOrphanShow,
	}

	purgeCmd := &cobra.Command{
		Use:   "purge <memory-id>",
		Short: "Permanently delete an orphan (irreversible)",
		Long: `Permanently delete a memory row. The version chain is repaired around it,
so walking from older versions still reaches the live end. Refuses
non-orphans unless --force is given.`,
		Args: cobra.ExactArgs(1),
		Run:  runOrphanPurge,
	}
	purgeCmd.Flags().Bool("force", false, "Delete even if active paths still reference the memory")

	orphansCmd.AddCommand(showCmd)
	orphansCmd.AddCommand(purgeCmd)
	RootCmd.AddCommand(orphansCmd)
}

func runOrphansList(cmd *cobra.Command, args []string) {
	s, _ := openStore()
	defer s.Close()

	orphans, err := s.Orphans(cmd.Context())
	if err != nil {
		exitErr("orphans", err)
	}
	if len(orphans) == 0 {
		fmt.Println("[]")
		return
	}
	printJSON(orphans)
}

func runOrphanShow(cmd *cobra.Command, args []string) {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		exitErr("orphans show", err)
	}

	s, _ := openStore()
	defer s.Close()

	detail, err := s.OrphanDetail(cmd.Context(), id)
	if err != nil {
		exitErr("orphans show", err)
	}
	printJSON(detail)
}

func runOrphanPurge(cmd *cobra.Command, args []string) {
	force, _ := cmd.Flags().GetBool("force")

	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		exitErr("orphans purge", err)
	}

	s, _ := openStore()
	defer s.Close()

	successor, err := s.PermanentlyDelete(cmd.Context(), id, !force)
	if err != nil {
		exitErr("orphans purge", err)
	}

	if successor != nil {
		fmt.Printf(`{"ok":true,"deleted":%d,"chain_repaired_to":%d}`+"\n", id, *successor)
	} else {
		fmt.Printf(`{"ok":true,"deleted":%d}`+"\n", id)
	}
}
