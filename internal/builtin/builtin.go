// Package builtin registers the extensions compiled into the binary.
package builtin

import (
	"vividfusion/internal/builtin/flixhq"
	"vividfusion/internal/clients"
	"vividfusion/internal/plugin"
)

// Version is reported as the version of every built-in extension.
const Version = "1.0.0"

// Registry returns a registry holding every built-in extension.
// flixhqBase is the default FlixHQ mirror domain.
func Registry(flixhqBase string) *plugin.Registry {
	reg := plugin.NewRegistry()
	reg.Register(plugin.Metadata{
		ClassName:   flixhq.ClassName,
		ID:          flixhq.ID,
		Name:        "FlixHQ",
		Version:     Version,
		Description: "Movies and shows scraped from FlixHQ",
		Author:      "vividfusion",
		Enabled:     true,
		Types:       []clients.ExtensionType{clients.Database, clients.Stream},
	}, func() *flixhq.Client {
		return flixhq.New(flixhqBase)
	})
	return reg
}
