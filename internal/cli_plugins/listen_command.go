package cliplugins

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"valkyrie/internal/dispatch"
	"valkyrie/internal/message"
	"valkyrie/internal/network"
	"valkyrie/internal/storage/journal"

	"github.com/spf13/cobra"
)

type ListenCommand struct {
	cmd *cobra.Command
	app *App
}

func NewListenCommand(app *App) *ListenCommand {
	return &ListenCommand{app: app}
}

func (c *ListenCommand) Meta() *cobra.Command {
	if c.cmd != nil {
		return c.cmd
	}
	c.cmd = &cobra.Command{
		Use:   "listen",
		Short: "Join the peer network and print inbound messages",
		Long:  "Joins the configured multicast group and prints text messages and announcements until interrupted.",
		Args:  cobra.NoArgs,
	}
	return c.cmd
}

func (c *ListenCommand) Execute(ctx context.Context, cmd *cobra.Command, args []string) error {
	cfg := c.app.Config
	log := c.app.Log.With(slog.String("op", "cliplugins.listen"))

	opts := []dispatch.Option{dispatch.WithMetrics(c.app.Metrics)}
	if cfg.Journal.Path != "" {
		j, err := journal.Open(journal.Config{Path: cfg.Journal.Path})
		if err != nil {
			return err
		}
		defer j.Close()
		opts = append(opts, dispatch.WithJournal(j))
	}

	d := dispatch.New(cfg.Network.Identifier, NewMessageRegistry(), c.app.Log, opts...)

	n, err := c.app.NewNetwork(d, network.OnJoined(func(n *network.PeerNetwork) {
		log.Info("listening", slog.String("group", n.Group().String()))
	}))
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	d.Handle(message.TypeText, printText(out))
	d.Handle(message.TypeAnnouncement, printAnnouncement(out, n))

	if err := n.Join(); err != nil {
		return err
	}
	if cfg.Metrics.Address != "" {
		serveMetrics(ctx, cfg.Metrics.Address, c.app.Registry, c.app.Log)
	}

	<-ctx.Done()
	return n.Leave()
}

func printText(out io.Writer) dispatch.HandlerFunc {
	return func(in dispatch.Inbound) error {
		text, ok := in.Message.(*message.Text)
		if !ok {
			return fmt.Errorf("unexpected message %T", in.Message)
		}
		_, err := fmt.Fprintf(out, "%s [%s] #%d: %s\n",
			in.ReceivedAt.Format("15:04:05"), in.From, text.ID(), text.Body)
		return err
	}
}

// printAnnouncement skips announcements sent by this node.
func printAnnouncement(out io.Writer, n *network.PeerNetwork) dispatch.HandlerFunc {
	return func(in dispatch.Inbound) error {
		a, ok := in.Message.(*message.Announcement)
		if !ok {
			return fmt.Errorf("unexpected message %T", in.Message)
		}
		if a.NodeID == n.NodeID() {
			return nil
		}
		_, err := fmt.Fprintf(out, "%s * node %s %s %q from %s\n",
			in.ReceivedAt.Format("15:04:05"), a.NodeID, a.Kind, a.Network, in.From)
		return err
	}
}
