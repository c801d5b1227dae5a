package remote

import (
	"context"
	"net/http"
	"net/rpc"

	"vividfusion/internal/clients"
	"vividfusion/internal/httputil"
)

// InitArgs carries a settings snapshot into the plugin process.
type InitArgs struct {
	Settings map[string]string
}

type baseServer struct {
	impl  clients.BaseClient
	class string
}

func (s *baseServer) ClassName(_ any, reply *string) error {
	*reply = s.class
	return nil
}

func (s *baseServer) DefaultSettings(_ any, reply *[]clients.Setting) error {
	*reply = s.impl.DefaultSettings()
	return nil
}

func (s *baseServer) Init(args InitArgs, reply *bool) error {
	if err := s.impl.Init(clients.NewMapSettings(args.Settings), httputil.NewClient()); err != nil {
		return err
	}
	*reply = true
	return nil
}

func (s *baseServer) Selected(_ any, reply *bool) error {
	if err := s.impl.OnExtensionSelected(context.Background()); err != nil {
		return err
	}
	*reply = true
	return nil
}

type baseRPC struct {
	client *rpc.Client
}

func (c *baseRPC) ClassName() (string, error) {
	var class string
	err := c.client.Call("Plugin.ClassName", new(any), &class)
	return class, err
}

// DefaultSettings returns nil when the plugin cannot be reached.
func (c *baseRPC) DefaultSettings() []clients.Setting {
	var settings []clients.Setting
	if err := c.client.Call("Plugin.DefaultSettings", new(any), &settings); err != nil {
		return nil
	}
	return settings
}

// Init sends a snapshot of settings; the plugin builds its own HTTP client.
func (c *baseRPC) Init(settings clients.PrefSettings, _ *http.Client) error {
	args := InitArgs{Settings: map[string]string{}}
	if settings != nil {
		args.Settings = settings.All()
	}
	var ok bool
	return c.client.Call("Plugin.Init", args, &ok)
}

func (c *baseRPC) OnExtensionSelected(ctx context.Context) error {
	var ok bool
	return call(ctx, c.client, "Selected", new(any), &ok)
}
