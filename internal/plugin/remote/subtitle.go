package remote

import (
	"context"
	"net/rpc"

	goplugin "github.com/hashicorp/go-plugin"

	"vividfusion/internal/clients"
	"vividfusion/internal/media"
)

// SubtitlePlugin exposes a SubtitleClient.
type SubtitlePlugin struct {
	Impl  clients.SubtitleClient
	Class string
}

func (p *SubtitlePlugin) Server(*goplugin.MuxBroker) (any, error) {
	return &SubtitleServer{baseServer: baseServer{impl: p.Impl, class: p.Class}, impl: p.Impl}, nil
}

func (*SubtitlePlugin) Client(_ *goplugin.MuxBroker, c *rpc.Client) (any, error) {
	return &SubtitleRPC{baseRPC{client: c}}, nil
}

type SubtitleServer struct {
	baseServer
	impl clients.SubtitleClient
}

func (s *SubtitleServer) LoadSubtitles(p media.Playable, reply *[]media.Subtitle) error {
	subs, err := s.impl.LoadSubtitles(context.Background(), p)
	*reply = subs
	return err
}

// SubtitleRPC is the host-side SubtitleClient.
type SubtitleRPC struct {
	baseRPC
}

func (c *SubtitleRPC) LoadSubtitles(ctx context.Context, p media.Playable) ([]media.Subtitle, error) {
	var subs []media.Subtitle
	err := call(ctx, c.client, "LoadSubtitles", p, &subs)
	return subs, err
}
