package cli

import (
	"strconv"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "revert <uri> <memory-id>",
		Short: "Point a URI back at an earlier version",
		Long: `Repoint a URI and all its aliases at an earlier memory version. The
skipped version is deprecated, not lost; it shows up under orphans.`,
		Args: cobra.ExactArgs(2),
		Run:  runRevert,
	}

	RootCmd.AddCommand(cmd)
}

func runRevert(cmd *cobra.Command, args []string) {
	targetID, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		exitErr("revert", err)
	}

	s, cfg := openStore()
	defer s.Close()

	ns, path := parseURI(cfg, args[0])
	res, err := s.RollbackToVersion(cmd.Context(), path, ns, targetID)
	if err != nil {
		exitErr("revert", err)
	}
	printJSON(res)
}
