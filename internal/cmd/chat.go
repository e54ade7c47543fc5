package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/foldertalk/foldertalk/internal/chatlog"
	"github.com/foldertalk/foldertalk/internal/logger"
	"github.com/foldertalk/foldertalk/internal/reveal"
	"github.com/foldertalk/foldertalk/internal/session"
	"github.com/foldertalk/foldertalk/internal/snapshot"
	"github.com/foldertalk/foldertalk/internal/storage"
	"github.com/foldertalk/foldertalk/internal/transport"
)

const defaultSystemPrompt = "You are an assistant answering questions about the contents of a folder. Use the provided summary as context."

var chatCmd = &cobra.Command{
	Use:   "chat <folder>",
	Short: "Open a streaming conversation about a folder",
	Args:  cobra.ExactArgs(1),
	RunE:  runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	folder := args[0]

	blobs := storage.NewFileStore(folder)
	current, err := scanFolder(folder)
	if err != nil {
		return fmt.Errorf("failed to scan folder: %w", err)
	}

	tracker := snapshot.NewTracker(blobs, snapshotFile)
	eval, err := session.PrepareFolder(tracker, current, []string{chatLogFile, summaryFile})
	if err != nil {
		return err
	}
	if eval.Changed {
		fmt.Println("Folder contents changed since the last session; previous chat log was archived.")
	}

	summary := ""
	if blobs.Exists(summaryFile) {
		if summary, err = blobs.Read(summaryFile); err != nil {
			logger.Warnf("summary unreadable, continuing without it: %v", err)
		}
	}

	printed := 0
	sched := reveal.NewScheduler(cfg.Reveal.BaseStep, cfg.Reveal.CatchupWindow, func(visible string) {
		if len(visible) < printed {
			printed = 0
		}
		fmt.Print(visible[printed:])
		printed = len(visible)
	})
	go sched.Run(cfg.Reveal.Interval)
	defer sched.Stop()

	client := transport.NewClient(transport.Config{
		BaseURL:        cfg.ServerURL,
		ChatPath:       cfg.ChatPath,
		APIKey:         cfg.APIKey,
		ConnectTimeout: cfg.ConnectTimeout,
	})

	chat := session.New(client, chatlog.NewStore(blobs, chatLogFile), session.Options{
		SystemPrompt: defaultSystemPrompt,
		Summary:      summary,
		Reveal:       sched,
	})

	watcher, err := snapshot.NewWatcher(folder)
	if err != nil {
		logger.Warnf("folder watching unavailable: %v", err)
	} else {
		defer watcher.Close()
		go func() {
			for range watcher.Hints() {
				logger.Infof("folder contents changed; context may be stale")
			}
		}()
	}

	// Ctrl-C cancels the in-flight request instead of killing the process.
	interrupts := make(chan os.Signal, 1)
	signal.Notify(interrupts, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(interrupts)
	go func() {
		for range interrupts {
			chat.Cancel()
		}
	}()

	fmt.Printf("Chatting about %s (%d messages of history). Empty line to quit.\n", folder, len(chat.History()))

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			return nil
		}

		result, err := chat.Send(cmd.Context(), line, nil)
		switch {
		case errors.Is(err, transport.ErrCanceled):
			fmt.Println("\n(canceled)")
			continue
		case err != nil:
			fmt.Printf("\nrequest failed: %v\n", err)
			continue
		}

		fmt.Println()
		for _, path := range result.ArtifactPaths {
			fmt.Printf("  artifact: %s\n", path)
		}
	}
}
