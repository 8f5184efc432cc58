package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/evertrace/memtree/internal/snapshot"
)

func init() {
	sessionsCmd := &cobra.Command{
		Use:   "sessions",
		Short: "Review sessions and their snapshots",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List sessions holding snapshots, newest first",
		Run:   runSessionsList,
	}

	newCmd := &cobra.Command{
		Use:   "new",
		Short: "Mint a session id for MEMTREE_SESSION",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(snapshot.NewSessionID())
		},
	}

	snapshotsCmd := &cobra.Command{
		Use:   "snapshots <session-id>",
		Short: "List the snapshots captured in a session",
		Args:  cobra.ExactArgs(1),
		Run:   runSessionSnapshots,
	}

	rmCmd := &cobra.Command{
		Use:   "rm <session-id> <resource-id>",
		Short: "Delete one snapshot after reviewing it",
		Args:  cobra.ExactArgs(2),
		Run:   runSessionRm,
	}

	clearCmd := &cobra.Command{
		Use:   "clear <session-id>",
		Short: "Delete every snapshot in a session",
		Args:  cobra.ExactArgs(1),
		Run:   runSessionClear,
	}

	sessionsCmd.AddCommand(listCmd)
	sessionsCmd.AddCommand(newCmd)
	sessionsCmd.AddCommand(snapshotsCmd)
	sessionsCmd.AddCommand(rmCmd)
	sessionsCmd.AddCommand(clearCmd)
	RootCmd.AddCommand(sessionsCmd)
}

func openSnapshots() *snapshot.Manager {
	cfg := loadConfig()
	snaps, err := snapshot.NewManager(cfg.SnapshotDir)
	if err != nil {
		exitErr("open snapshots", err)
	}
	return snaps
}

func runSessionsList(cmd *cobra.Command, args []string) {
	snaps := openSnapshots()

	sessions, err := snaps.ListSessions()
	if err != nil {
		exitErr("sessions", err)
	}
	if len(sessions) == 0 {
		fmt.Println("[]")
		return
	}
	printJSON(sessions)
}

func runSessionSnapshots(cmd *cobra.Command, args []string) {
	snaps := openSnapshots()

	infos, err := snaps.ListSnapshots(args[0])
	if err != nil {
		exitErr("sessions snapshots", err)
	}
	if len(infos) == 0 {
		exitErr("sessions snapshots", fmt.Errorf("session %q not found or empty", args[0]))
	}
	printJSON(infos)
}

func runSessionRm(cmd *cobra.Command, args []string) {
	snaps := openSnapshots()

	deleted, err := snaps.Delete(args[0], args[1])
	if err != nil {
		exitErr("sessions rm", err)
	}
	if !deleted {
		exitErr("sessions rm", fmt.Errorf("snapshot %q not found in session %q", args[1], args[0]))
	}
	fmt.Printf(`{"ok":true,"session":%q,"resource":%q}`+"\n", args[0], args[1])
}

func runSessionClear(cmd *cobra.Command, args []string) {
	snaps := openSnapshots()

	count, err := snaps.ClearSession(args[0])
	if err != nil {
		exitErr("sessions clear", err)
	}
	if count == 0 {
		exitErr("sessions clear", fmt.Errorf("session %q not found or already empty", args[0]))
	}
	fmt.Printf(`{"ok":true,"session":%q,"cleared":%d}`+"\n", args[0], count)
}
