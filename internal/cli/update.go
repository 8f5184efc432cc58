package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/evertrace/memtree/internal/model"
	"github.com/evertrace/memtree/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "update <uri>",
		Short: "Update a memory's content or metadata",
		Long: `Update a memory. Content edits mint a new version; the old version stays
in the store, deprecated, until purged.

Two content-editing modes, mutually exclusive:

  Patch mode:  --old <text> --new <text>. The old text must match exactly
               one location. Use --new "" to delete a section.
  Append mode: --append <text>, added to the end of the content.

There is no full-replace mode: spell out what changes. Metadata
(--priority, --disclosure) can ride along with either mode or alone.`,
		Args: cobra.ExactArgs(1),
		Run:  runUpdate,
	}

	cmd.Flags().String("old", "", "Patch mode: text to find (must be unique in the content)")
	cmd.Flags().String("new", "", "Patch mode: replacement text")
	cmd.Flags().String("append", "", "Append mode: text appended to the content")
	cmd.Flags().IntP("priority", "p", 0, "New priority")
	cmd.Flags().String("disclosure", "", "New disclosure condition")

	RootCmd.AddCommand(cmd)
}

func runUpdate(cmd *cobra.Command, args []string) {
	oldStr, _ := cmd.Flags().GetString("old")
	newStr, _ := cmd.Flags().GetString("new")
	appendStr, _ := cmd.Flags().GetString("append")

	oldSet := cmd.Flags().Changed("old")
	newSet := cmd.Flags().Changed("new")
	appendSet := cmd.Flags().Changed("append")
	prioritySet := cmd.Flags().Changed("priority")
	disclosureSet := cmd.Flags().Changed("disclosure")

	if oldSet && appendSet {
		exitErr("update", fmt.Errorf("--old/--new (patch) and --append are mutually exclusive"))
	}
	if oldSet != newSet {
		exitErr("update", fmt.Errorf("patch mode needs both --old and --new (use --new \"\" to delete a section)"))
	}
	if !oldSet && !appendSet && !prioritySet && !disclosureSet {
		exitErr("update", fmt.Errorf("nothing to update: use --old/--new, --append, --priority, or --disclosure"))
	}

	engine, s, cfg := openEngine()
	defer s.Close()

	ns, path := parseURI(cfg, args[0])
	uri := model.MakeURI(ns, path)

	var content *string
	if oldSet {
		if oldStr == newStr {
			exitErr("update", fmt.Errorf("--old and --new are identical, no change would be made"))
		}
		cur, err := s.GetByPath(cmd.Context(), path, ns)
		if err != nil {
			exitErr("update", err)
		}
		switch n := strings.Count(cur.Content, oldStr); {
		case n == 0:
			exitErr("update", fmt.Errorf("--old text not found in %s, make sure it matches exactly", uri))
		case n > 1:
			exitErr("update", fmt.Errorf("--old text found %d times in %s, add surrounding context to make it unique", n, uri))
		}
		patched := strings.Replace(cur.Content, oldStr, newStr, 1)
		if patched == cur.Content {
			exitErr("update", fmt.Errorf("replacement produced identical content, check for whitespace differences"))
		}
		content = &patched
	} else if appendSet {
		if appendStr == "" {
			exitErr("update", fmt.Errorf("empty --append, provide non-empty text"))
		}
		cur, err := s.GetByPath(cmd.Context(), path, ns)
		if err != nil {
			exitErr("update", err)
		}
		appended := cur.Content + appendStr
		content = &appended
	}

	if content != nil {
		if err := engine.CaptureContentChange(cmd.Context(), ns, path); err != nil {
			exitErr("snapshot", err)
		}
	}
	if prioritySet || disclosureSet {
		if err := engine.CaptureMetaChange(cmd.Context(), ns, path); err != nil {
			exitErr("snapshot", err)
		}
	}

	params := store.UpdateParams{Path: path, NS: ns, Content: content}
	if prioritySet {
		p, _ := cmd.Flags().GetInt("priority")
		params.Priority = &p
	}
	if disclosureSet {
		d, _ := cmd.Flags().GetString("disclosure")
		params.Disclosure = &d
	}

	res, err := s.Update(cmd.Context(), params)
	if err != nil {
		exitErr("update", err)
	}
	printJSON(res)
}
