package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	diffCmd := &cobra.Command{
		Use:   "diff <session-id> <resource-id>",
		Short: "Diff a snapshot against the current state",
		Long: `Show what changed since a snapshot was captured. Resource ids are URIs
for path snapshots and "memory:{id}" for content snapshots (see
'sessions snapshots').`,
		Args: cobra.ExactArgs(2),
		Run:  runDiff,
	}
	diffCmd.Flags().Bool("unified", false, "Print only the unified diff text")

	rollbackCmd := &cobra.Command{
		Use:   "rollback <session-id> <resource-id>",
		Short: "Restore a resource to its snapshot state",
		Long: `Undo one captured change: deletes what the session created, restores what
it deleted, and repoints what it modified. The snapshot stays until
removed with 'sessions rm'.`,
		Args: cobra.ExactArgs(2),
		Run:  runRollback,
	}

	RootCmd.AddCommand(diffCmd)
	RootCmd.AddCommand(rollbackCmd)
}

func runDiff(cmd *cobra.Command, args []string) {
	unifiedOnly, _ := cmd.Flags().GetBool("unified")

	engine, s, _ := openEngine()
	defer s.Close()

	d, err := engine.Diff(cmd.Context(), args[0], args[1])
	if err != nil {
		exitErr("diff", err)
	}

	if unifiedOnly {
		fmt.Print(d.Unified)
		return
	}
	printJSON(d)
}

func runRollback(cmd *cobra.Command, args []string) {
	engine, s, _ := openEngine()
	defer s.Close()

	res, err := engine.Rollback(cmd.Context(), args[0], args[1])
	if err != nil {
		exitErr("rollback", err)
	}
	printJSON(res)
}
