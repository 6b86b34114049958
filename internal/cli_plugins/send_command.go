package cliplugins

import (
	"context"
	"fmt"
	"time"

	"valkyrie/internal/message"
	"valkyrie/internal/network"

	"github.com/spf13/cobra"
)

const sendTimeout = 2 * time.Second

type SendCommand struct {
	cmd *cobra.Command
	app *App
}

func NewSendCommand(app *App) *SendCommand {
	return &SendCommand{app: app}
}

func (c *SendCommand) Meta() *cobra.Command {
	if c.cmd != nil {
		return c.cmd
	}
	c.cmd = &cobra.Command{
		Use:   "send",
		Short: "Multicast one text message to the peer network",
		Args:  cobra.NoArgs,
		Annotations: map[string]string{
			cobra.BashCompOneRequiredFlag: "true",
		},
	}
	c.cmd.Flags().StringP("text", "t", "", "Message text (required)")
	return c.cmd
}

func (c *SendCommand) Execute(ctx context.Context, cmd *cobra.Command, args []string) error {
	text, err := cmd.Flags().GetString("text")
	if err != nil || text == "" {
		return fmt.Errorf("flag --text is required")
	}

	n, err := c.app.NewNetwork(nil, network.WithAnnouncements(false))
	if err != nil {
		return err
	}
	if err := n.Join(); err != nil {
		return err
	}
	defer n.Leave()

	ctx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	msg := message.NewText(text)
	if err := n.Send(ctx, msg); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "sent message #%d (%d bytes) to %s\n",
		msg.ID(), message.HeaderLen+msg.Header().DataLength, n.Group())
	return nil
}
