package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/evertrace/memtree/internal/store"
)

func init() {
	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Export live memories as JSON",
		Long:  "Export every addressed, live memory as JSON, parents before children. Filter by namespace with -n.",
		Run:   runExport,
	}
	exportCmd.Flags().StringP("ns", "n", "", "Filter by namespace")

	importCmd := &cobra.Command{
		Use:   "import",
		Short: "Import memories from JSON",
		Long:  "Import memories from stdin in the format produced by export. Existing paths are skipped.",
		Run:   runImport,
	}

	RootCmd.AddCommand(exportCmd)
	RootCmd.AddCommand(importCmd)
}

func runExport(cmd *cobra.Command, args []string) {
	ns, _ := cmd.Flags().GetString("ns")

	s, cfg := openStore()
	defer s.Close()

	if ns != "" && !cfg.ValidNS(ns) {
		exitErr("export", fmt.Errorf("unknown namespace %q", ns))
	}

	entries, err := s.ExportAll(cmd.Context(), ns)
	if err != nil {
		exitErr("export", err)
	}
	printJSON(entries)
}

func runImport(cmd *cobra.Command, args []string) {
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		exitErr("read stdin", err)
	}

	var entries []store.Export
	if err := json.Unmarshal(data, &entries); err != nil {
		exitErr("parse json", err)
	}

	s, _ := openStore()
	defer s.Close()

	imported, skipped, err := s.Import(cmd.Context(), entries)
	if err != nil {
		exitErr("import", err)
	}

	fmt.Printf(`{"ok":true,"imported":%d,"skipped":%d}`+"\n", imported, skipped)
}
