package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"github.com/foldertalk/foldertalk/internal/chatlog"
	"github.com/foldertalk/foldertalk/internal/storage"
)

var logPlain bool

var logCmd = &cobra.Command{
	Use:   "log <folder>",
	Short: "Show the folder's chat history",
	Args:  cobra.ExactArgs(1),
	RunE:  runLog,
}

func init() {
	logCmd.Flags().BoolVar(&logPlain, "plain", false, "print raw markdown without rendering")
	rootCmd.AddCommand(logCmd)
}

func runLog(cmd *cobra.Command, args []string) error {
	blobs := storage.NewFileStore(args[0])
	entries := chatlog.NewStore(blobs, chatLogFile).Load()
	if len(entries) == 0 {
		fmt.Println("No chat history for this folder.")
		return nil
	}

	var doc strings.Builder
	doc.WriteString("# Chat history\n\n")
	for _, entry := range entries {
		when := ""
		if !entry.Timestamp.IsZero() {
			when = entry.Timestamp.Local().Format(time.RFC822)
		}
		doc.WriteString(fmt.Sprintf("## %s %s\n\n%s\n\n", entry.Role, when, entry.Content))
	}

	if logPlain {
		fmt.Print(doc.String())
		return nil
	}

	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		fmt.Print(doc.String())
		return nil
	}
	rendered, err := renderer.Render(doc.String())
	if err != nil {
		fmt.Print(doc.String())
		return nil
	}
	fmt.Print(rendered)
	return nil
}
