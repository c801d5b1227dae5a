package remote

import (
	"context"
	"net/rpc"

	goplugin "github.com/hashicorp/go-plugin"

	"vividfusion/internal/clients"
	"vividfusion/internal/media"
)

// StreamPlugin exposes a StreamClient.
type StreamPlugin struct {
	Impl  clients.StreamClient
	Class string
}

func (p *StreamPlugin) Server(*goplugin.MuxBroker) (any, error) {
	return &StreamServer{baseServer: baseServer{impl: p.Impl, class: p.Class}, impl: p.Impl}, nil
}

func (*StreamPlugin) Client(_ *goplugin.MuxBroker, c *rpc.Client) (any, error) {
	return &StreamRPC{baseRPC{client: c}}, nil
}

type StreamServer struct {
	baseServer
	impl clients.StreamClient
}

func (s *StreamServer) LoadLinks(p media.Playable, reply *media.Links) error {
	links, err := s.impl.LoadLinks(context.Background(), p)
	*reply = links
	return err
}

// StreamRPC is the host-side StreamClient.
type StreamRPC struct {
	baseRPC
}

func (c *StreamRPC) LoadLinks(ctx context.Context, p media.Playable) (media.Links, error) {
	var links media.Links
	err := call(ctx, c.client, "LoadLinks", p, &links)
	return links, err
}
