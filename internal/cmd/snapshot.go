package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/foldertalk/foldertalk/internal/session"
	"github.com/foldertalk/foldertalk/internal/snapshot"
	"github.com/foldertalk/foldertalk/internal/storage"
)

var snapshotRefresh bool

var snapshotCmd = &cobra.Command{
	Use:   "snapshot <folder>",
	Short: "Check whether the folder's context is stale",
	Args:  cobra.ExactArgs(1),
	RunE:  runSnapshot,
}

func init() {
	snapshotCmd.Flags().BoolVar(&snapshotRefresh, "refresh", false, "archive stale context and take a fresh snapshot")
	rootCmd.AddCommand(snapshotCmd)
}

func runSnapshot(cmd *cobra.Command, args []string) error {
	folder := args[0]
	blobs := storage.NewFileStore(folder)
	current, err := scanFolder(folder)
	if err != nil {
		return fmt.Errorf("failed to scan folder: %w", err)
	}

	tracker := snapshot.NewTracker(blobs, snapshotFile)

	if snapshotRefresh {
		eval, err := session.PrepareFolder(tracker, current, []string{chatLogFile, summaryFile})
		if err != nil {
			return err
		}
		switch {
		case !eval.Exists:
			fmt.Println("No prior snapshot; fresh snapshot written.")
		case eval.Changed:
			fmt.Println("Context was stale; prior log archived and snapshot refreshed.")
		default:
			fmt.Println("Snapshot already up to date.")
		}
		return nil
	}

	eval := tracker.Evaluate(current)
	switch {
	case !eval.Exists:
		fmt.Println("No snapshot recorded for this folder.")
	case eval.Changed:
		fmt.Printf("Stale: %d files tracked, contents have drifted.\n", len(current))
	default:
		fmt.Printf("Fresh: %d files match the recorded snapshot.\n", len(current))
	}
	return nil
}
