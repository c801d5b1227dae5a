// Package remote carries extensions across a process boundary using
// hashicorp/go-plugin's net/rpc transport. A plugin binary calls Serve with
// its implementation; the host dispenses one RPC client per capability.
package remote

import (
	"context"
	"net/rpc"
	"os"

	"github.com/hashicorp/go-hclog"
	goplugin "github.com/hashicorp/go-plugin"

	"vividfusion/internal/clients"
)

// Handshake must match between host and plugin binaries.
var Handshake = goplugin.HandshakeConfig{
	ProtocolVersion:  1,
	MagicCookieKey:   "VIVIDFUSION_PLUGIN",
	MagicCookieValue: "vividfusion-extension",
}

// Named is implemented by every dispensed client. It reports the class the
// plugin process was started for.
type Named interface {
	ClassName() (string, error)
}

// PluginMap is the host-side plugin set, one entry per capability.
func PluginMap() goplugin.PluginSet {
	return goplugin.PluginSet{
		clients.Database.String(): &DatabasePlugin{},
		clients.Stream.String():   &StreamPlugin{},
		clients.Subtitle.String(): &SubtitlePlugin{},
	}
}

// Plugins builds the plugin-side set for impl. Only the capabilities impl
// actually implements are served, so dispensing anything else fails.
func Plugins(class string, impl clients.BaseClient) goplugin.PluginSet {
	set := goplugin.PluginSet{}
	if db, ok := impl.(clients.DatabaseClient); ok {
		set[clients.Database.String()] = &DatabasePlugin{Impl: db, Class: class}
	}
	if st, ok := impl.(clients.StreamClient); ok {
		set[clients.Stream.String()] = &StreamPlugin{Impl: st, Class: class}
	}
	if sub, ok := impl.(clients.SubtitleClient); ok {
		set[clients.Subtitle.String()] = &SubtitlePlugin{Impl: sub, Class: class}
	}
	return set
}

// Serve runs impl as a plugin process. It blocks until the host
// disconnects.
func Serve(class string, impl clients.BaseClient) {
	goplugin.Serve(&goplugin.ServeConfig{
		HandshakeConfig: Handshake,
		Plugins:         Plugins(class, impl),
		Logger: hclog.New(&hclog.LoggerOptions{
			Name:       class,
			Level:      hclog.Info,
			Output:     os.Stderr,
			JSONFormat: true,
		}),
	})
}

// call issues an RPC and waits for it unless ctx ends first.
func call(ctx context.Context, c *rpc.Client, method string, args, reply any) error {
	pending := c.Go("Plugin."+method, args, reply, make(chan *rpc.Call, 1))
	select {
	case done := <-pending.Done:
		return done.Error
	case <-ctx.Done():
		return ctx.Err()
	}
}
