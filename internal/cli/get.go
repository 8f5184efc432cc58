package cli

import (
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "get <uri>",
		Short: "Retrieve a memory by URI",
		Long:  "Retrieve the live memory at a URI, or a specific version by id with --version.",
		Args:  cobra.ExactArgs(1),
		Run:   runGet,
	}

	cmd.Flags().Int64("version", 0, "Read a specific memory version by id instead of the live one")

	RootCmd.AddCommand(cmd)
}

func runGet(cmd *cobra.Command, args []string) {
	version, _ := cmd.Flags().GetInt64("version")

	s, cfg := openStore()
	defer s.Close()

	if version != 0 {
		mem, err := s.GetVersion(cmd.Context(), version)
		if err != nil {
			exitErr("get version", err)
		}
		printJSON(mem)
		return
	}

	ns, path := parseURI(cfg, args[0])
	rec, err := s.GetByPath(cmd.Context(), path, ns)
	if err != nil {
		exitErr("get", err)
	}
	printJSON(rec)
}
