package main

import (
	"context"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/oleksiiilienko/mxtoo/internal/viewer"
)

var version = "dev"

var (
	urlFlag       string
	reconnectFlag bool
)

var rootCmd = &cobra.Command{
	Use:   "mxtoo-top",
	Short: "Live per-core CPU and memory view of an mxtoo server",
	Long: `Connect to an mxtoo server's realtime stream and draw one bar per core
plus a memory line, updated on every snapshot.

Examples:
  mxtoo-top
  mxtoo-top --url ws://box.local:7032/realtime/data
  mxtoo-top --reconnect=false`,
	Version:       version,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runViewer(cmd.Context(), urlFlag, reconnectFlag)
	},
}

func init() {
	rootCmd.Flags().StringVar(&urlFlag, "url", viewer.DefaultURL, "WebSocket URL of the /realtime/data endpoint")
	rootCmd.Flags().BoolVar(&reconnectFlag, "reconnect", true, "Reconnect with backoff when the stream closes")
}

func runViewer(parent context.Context, url string, reconnect bool) error {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	p := tea.NewProgram(viewer.NewModel(url), tea.WithAltScreen())

	client := viewer.NewClient(url, reconnect)
	go func() { _ = client.Run(ctx, p.Send) }()

	final, err := p.Run()
	if err != nil {
		return fmt.Errorf("running viewer: %w", err)
	}
	if m, ok := final.(viewer.Model); ok && m.Err() != nil {
		return m.Err()
	}
	return nil
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "mxtoo-top: %v\n", err)
		os.Exit(1)
	}
}
