package remote

import (
	"context"
	"net/rpc"

	goplugin "github.com/hashicorp/go-plugin"

	"vividfusion/internal/clients"
	"vividfusion/internal/media"
	"vividfusion/internal/paging"
)

// FeedArgs selects a home feed (Home set) or a search feed, and the page
// to load.
type FeedArgs struct {
	Home  bool
	Tab   media.Tab
	Query string
	Token *string
}

// FeedReply is one page of a feed.
type FeedReply struct {
	Data         []media.Item
	Continuation *string
}

// EpisodesArgs names the season to list.
type EpisodesArgs struct {
	Item   media.Item
	Season media.Season
}

// DatabasePlugin exposes a DatabaseClient.
type DatabasePlugin struct {
	Impl  clients.DatabaseClient
	Class string
}

func (p *DatabasePlugin) Server(*goplugin.MuxBroker) (any, error) {
	return &DatabaseServer{baseServer: baseServer{impl: p.Impl, class: p.Class}, impl: p.Impl}, nil
}

func (*DatabasePlugin) Client(_ *goplugin.MuxBroker, c *rpc.Client) (any, error) {
	return &DatabaseRPC{baseRPC{client: c}}, nil
}

// DatabaseServer runs inside the plugin process. Feeds are rebuilt per
// call; the host caches pages.
type DatabaseServer struct {
	baseServer
	impl clients.DatabaseClient
}

func (s *DatabaseServer) HomeTabs(_ any, reply *[]media.Tab) error {
	tabs, err := s.impl.HomeTabs(context.Background())
	*reply = tabs
	return err
}

func (s *DatabaseServer) Feed(args FeedArgs, reply *FeedReply) error {
	var data paging.PagedData[media.Item]
	if args.Home {
		data = s.impl.HomeFeed(args.Tab)
	} else {
		data = s.impl.Search(args.Query)
	}

	ctx := context.Background()
	switch d := data.(type) {
	case *paging.Continuous[media.Item]:
		p, err := d.LoadPage(ctx, args.Token)
		if err != nil {
			return err
		}
		reply.Data, reply.Continuation = p.Data, p.Continuation
	default:
		if args.Token != nil {
			return nil
		}
		items, err := data.LoadAll(ctx)
		if err != nil {
			return err
		}
		reply.Data = items
	}
	return nil
}

func (s *DatabaseServer) Seasons(item media.Item, reply *[]media.Season) error {
	seasons, err := s.impl.Seasons(context.Background(), item)
	*reply = seasons
	return err
}

func (s *DatabaseServer) Episodes(args EpisodesArgs, reply *[]media.Episode) error {
	episodes, err := s.impl.Episodes(context.Background(), args.Item, args.Season)
	*reply = episodes
	return err
}

// DatabaseRPC is the host-side DatabaseClient.
type DatabaseRPC struct {
	baseRPC
}

func (c *DatabaseRPC) HomeTabs(ctx context.Context) ([]media.Tab, error) {
	var tabs []media.Tab
	err := call(ctx, c.client, "HomeTabs", new(any), &tabs)
	return tabs, err
}

func (c *DatabaseRPC) HomeFeed(tab media.Tab) paging.PagedData[media.Item] {
	return c.feed(FeedArgs{Home: true, Tab: tab})
}

func (c *DatabaseRPC) Search(query string) paging.PagedData[media.Item] {
	return c.feed(FeedArgs{Query: query})
}

func (c *DatabaseRPC) feed(base FeedArgs) *paging.Continuous[media.Item] {
	return paging.NewContinuous(func(ctx context.Context, token *string) (paging.Page[media.Item], error) {
		args := base
		args.Token = token
		var reply FeedReply
		if err := call(ctx, c.client, "Feed", args, &reply); err != nil {
			return paging.Page[media.Item]{}, err
		}
		return paging.Page[media.Item]{Data: reply.Data, Continuation: reply.Continuation}, nil
	})
}

func (c *DatabaseRPC) Seasons(ctx context.Context, item media.Item) ([]media.Season, error) {
	var seasons []media.Season
	err := call(ctx, c.client, "Seasons", item, &seasons)
	return seasons, err
}

func (c *DatabaseRPC) Episodes(ctx context.Context, item media.Item, season media.Season) ([]media.Episode, error) {
	var episodes []media.Episode
	err := call(ctx, c.client, "Episodes", EpisodesArgs{Item: item, Season: season}, &episodes)
	return episodes, err
}
