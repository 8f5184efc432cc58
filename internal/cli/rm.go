package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/evertrace/memtree/internal/model"
)

func init() {
	cmd := &cobra.Command{
		Use:   "rm <uri>",
		Short: "Delete a path",
		Long: `Delete an address. The memory it referenced survives in the store as an
orphan until purged. Paths with children must be deleted bottom-up.`,
		Args: cobra.ExactArgs(1),
		Run:  runRm,
	}

	RootCmd.AddCommand(cmd)
}

func runRm(cmd *cobra.Command, args []string) {
	engine, s, cfg := openEngine()
	defer s.Close()

	ns, path := parseURI(cfg, args[0])

	cancelled, err := engine.CaptureDelete(cmd.Context(), ns, path)
	if err != nil {
		exitErr("snapshot", err)
	}

	memoryID, err := s.RemovePath(cmd.Context(), path, ns)
	if err != nil {
		exitErr("rm", err)
	}

	fmt.Printf(`{"ok":true,"uri":%q,"memory_id":%d,"snapshot_cancelled":%v}`+"\n",
		model.MakeURI(ns, path), memoryID, cancelled)
}
