package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/evertrace/memtree/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "create [content]",
		Short: "Create a memory",
		Long: `Create a memory. Content can be a positional arg or piped via stdin.

With --under the memory becomes a child of an existing path; without it the
memory lands at the namespace root. Omitting --name auto-numbers the child
(parent/1, parent/2, ...).`,
		Run: runCreate,
	}

	cmd.Flags().StringP("under", "u", "", "Parent URI (e.g. core://characters)")
	cmd.Flags().StringP("ns", "n", "", "Namespace when --under is not given (default: core)")
	cmd.Flags().String("name", "", "Path segment for the new memory")
	cmd.Flags().IntP("priority", "p", 0, "Priority (lower loads earlier)")
	cmd.Flags().String("disclosure", "", "Disclosure condition hint")

	RootCmd.AddCommand(cmd)
}

func runCreate(cmd *cobra.Command, args []string) {
	under, _ := cmd.Flags().GetString("under")
	nsFlag, _ := cmd.Flags().GetString("ns")
	name, _ := cmd.Flags().GetString("name")
	priority, _ := cmd.Flags().GetInt("priority")
	disclosure, _ := cmd.Flags().GetString("disclosure")

	content := readContent(args)
	if strings.TrimSpace(content) == "" {
		exitErr("create", fmt.Errorf("content is required (positional arg or stdin)"))
	}

	engine, s, cfg := openEngine()
	defer s.Close()

	ns := cfg.Namespaces[0]
	parentPath := ""
	if under != "" {
		ns, parentPath = parseURI(cfg, under)
	} else if nsFlag != "" {
		if !cfg.ValidNS(nsFlag) {
			exitErr("create", fmt.Errorf("unknown namespace %q", nsFlag))
		}
		ns = nsFlag
	}

	rec, err := s.Create(cmd.Context(), store.CreateParams{
		ParentPath: parentPath,
		NS:         ns,
		Content:    content,
		Priority:   priority,
		Name:       name,
		Disclosure: disclosure,
	})
	if err != nil {
		exitErr("create", err)
	}

	if err := engine.CaptureCreate(cmd.Context(), rec.NS, rec.Path, rec.ID); err != nil {
		exitErr("snapshot", err)
	}
	printJSON(rec)
}
