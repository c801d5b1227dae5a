package builtin

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vividfusion/internal/builtin/flixhq"
	"vividfusion/internal/clients"
	"vividfusion/internal/plugin"
)

func TestRegistryLoadsFlixHQ(t *testing.T) {
	reg := Registry("flixhq.to")
	assert.Equal(t, []string{flixhq.ClassName}, reg.Classes())

	builtins := reg.Builtins()
	require.Len(t, builtins, 1)
	md := builtins[0]
	assert.Equal(t, plugin.BuiltIn, md.ImportType)
	assert.True(t, md.Supports(clients.Database))
	assert.True(t, md.Supports(clients.Stream))
	assert.False(t, md.Supports(clients.Subtitle))

	db, err := plugin.LoadAs[clients.DatabaseClient](reg, md, clients.Database)
	require.NoError(t, err)
	assert.IsType(t, &flixhq.Client{}, db)

	_, err = plugin.LoadAs[clients.SubtitleClient](reg, md, clients.Subtitle)
	assert.ErrorIs(t, err, plugin.ErrCapabilityMismatch)
}
