package cliplugins

import (
	"log/slog"

	"valkyrie/internal/config"
	"valkyrie/internal/message"
	"valkyrie/internal/metrics"
	"valkyrie/internal/network"

	"github.com/prometheus/client_golang/prometheus"
)

// App is the state shared by commands. It is filled in before a command
// runs.
type App struct {
	Config   *config.Config
	Log      *slog.Logger
	Registry *prometheus.Registry
	Metrics  *metrics.Metrics
}

// NewNetwork builds the configured peer network. extra options are applied
// after the configured ones.
func (a *App) NewNetwork(handler network.DatagramHandler, extra ...network.Option) (*network.PeerNetwork, error) {
	cfg := a.Config.Network

	opts := []network.Option{
		network.WithAddress(cfg.Address),
		network.WithPort(cfg.Port),
		network.WithLogger(a.Log),
		network.WithMetrics(a.Metrics),
		network.WithAnnouncements(!cfg.DisableAnnounce),
	}
	if cfg.Interface != "" {
		opts = append(opts, network.WithInterface(cfg.Interface))
	}
	if handler != nil {
		opts = append(opts, network.WithHandler(handler))
	}

	return network.New(cfg.Identifier, append(opts, extra...)...)
}

// NewMessageRegistry knows the system messages and every application message
// the CLI understands.
func NewMessageRegistry() *message.Registry {
	r := message.NewRegistry()
	r.MustRegister(message.TypeText, func() message.Message { return &message.Text{} })
	return r
}
