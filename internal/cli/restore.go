package cli

import (
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "restore <uri>",
		Short: "Re-create a deleted path pointing at a memory",
		Long: `Restore an address to a specific memory version, reactivating the memory
if an update deprecated it. Fails if the address was re-created since.`,
		Args: cobra.ExactArgs(1),
		Run:  runRestore,
	}

	cmd.Flags().Int64P("memory", "m", 0, "Memory id to point the path at (required)")
	cmd.Flags().IntP("priority", "p", 0, "Priority of the restored address")
	cmd.Flags().String("disclosure", "", "Disclosure condition of the restored address")
	cmd.MarkFlagRequired("memory")

	RootCmd.AddCommand(cmd)
}

func runRestore(cmd *cobra.Command, args []string) {
	memoryID, _ := cmd.Flags().GetInt64("memory")
	priority, _ := cmd.Flags().GetInt("priority")
	disclosure, _ := cmd.Flags().GetString("disclosure")

	s, cfg := openStore()
	defer s.Close()

	ns, path := parseURI(cfg, args[0])
	entry, err := s.RestorePath(cmd.Context(), path, ns, memoryID, priority, disclosure)
	if err != nil {
		exitErr("restore", err)
	}
	printJSON(entry)
}
