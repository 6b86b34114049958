package cliplugins

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"valkyrie/internal/storage/journal"

	"github.com/spf13/cobra"
	"go.etcd.io/bbolt"
)

type JournalCommand struct {
	cmd *cobra.Command
	app *App
}

func NewJournalCommand(app *App) *JournalCommand {
	return &JournalCommand{app: app}
}

func (c *JournalCommand) Meta() *cobra.Command {
	if c.cmd != nil {
		return c.cmd
	}
	c.cmd = &cobra.Command{
		Use:   "journal",
		Short: "Print frames recorded by listen",
		Args:  cobra.NoArgs,
	}
	c.cmd.Flags().IntP("limit", "l", 20, "Number of newest entries to print (0 for all)")
	return c.cmd
}

func (c *JournalCommand) Execute(_ context.Context, cmd *cobra.Command, args []string) error {
	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}

	path := c.app.Config.Journal.Path
	if path == "" {
		return fmt.Errorf("journal path is not configured")
	}

	j, err := journal.Open(journal.Config{
		Path:    path,
		Options: &bbolt.Options{ReadOnly: true, Timeout: time.Second},
	})
	if err != nil {
		return err
	}
	defer j.Close()

	entries, err := j.List(limit)
	if err != nil {
		return err
	}

	return printEntries(cmd, entries)
}

func printEntries(cmd *cobra.Command, entries []journal.Entry) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SEQ\tRECEIVED\tNETWORK\tFROM\tID\tTYPE\tBYTES")
	for _, e := range entries {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d\t%d\t%d\n",
			e.Seq, e.ReceivedAt.Format(time.RFC3339), e.Network, e.From,
			e.MessageID, e.MessageType, e.DataLength)
	}
	return w.Flush()
}
