package cli

import (
	"github.com/spf13/cobra"

	"github.com/evertrace/memtree/internal/model"
	"github.com/evertrace/memtree/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "alias <target-uri> <new-uri>",
		Short: "Create an alias path to an existing memory",
		Long: `Create a second address resolving to the same memory. Aliases may cross
namespaces; content updates through either address repoint both.`,
		Args: cobra.ExactArgs(2),
		Run:  runAlias,
	}

	cmd.Flags().IntP("priority", "p", 0, "Priority of the new address")
	cmd.Flags().String("disclosure", "", "Disclosure condition of the new address")

	RootCmd.AddCommand(cmd)
}

func runAlias(cmd *cobra.Command, args []string) {
	priority, _ := cmd.Flags().GetInt("priority")
	disclosure, _ := cmd.Flags().GetString("disclosure")

	engine, s, cfg := openEngine()
	defer s.Close()

	targetNS, targetPath := parseURI(cfg, args[0])
	newNS, newPath := parseURI(cfg, args[1])

	entry, err := s.AddAlias(cmd.Context(), store.AliasParams{
		NewPath:    newPath,
		NewNS:      newNS,
		TargetPath: targetPath,
		TargetNS:   targetNS,
		Priority:   priority,
		Disclosure: disclosure,
	})
	if err != nil {
		exitErr("alias", err)
	}

	targetURI := model.MakeURI(targetNS, targetPath)
	if err := engine.CaptureAlias(cmd.Context(), newNS, newPath, entry.MemoryID, targetURI); err != nil {
		exitErr("snapshot", err)
	}
	printJSON(entry)
}
