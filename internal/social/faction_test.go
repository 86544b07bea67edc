package social

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFactionForReputationBands(t *testing.T) {
	tests := []struct {
		rep  int
		want Faction
	}{
		{0, ShadowSyndicate},
		{40, ShadowSyndicate},
		{41, FreeAgents},
		{59, FreeAgents},
		{60, LuminaCollective},
		{100, LuminaCollective},
		{-5, ShadowSyndicate},
		{150, LuminaCollective},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FactionForReputation(tt.rep), "reputation %d", tt.rep)
	}
}

func TestParseFaction(t *testing.T) {
	for _, in := range []string{"Shadow Syndicate", "shadow_syndicate", "SHADOW-SYNDICATE"} {
		f, err := ParseFaction(in)
		require.NoError(t, err, in)
		assert.Equal(t, ShadowSyndicate, f)
	}
	f, err := ParseFaction("lumina collective")
	require.NoError(t, err)
	assert.Equal(t, LuminaCollective, f)

	_, err = ParseFaction("pirates")
	assert.Error(t, err)
}

func TestFactionTextRoundTrip(t *testing.T) {
	for _, f := range Factions() {
		b, err := f.MarshalText()
		require.NoError(t, err)
		var got Faction
		require.NoError(t, got.UnmarshalText(b))
		assert.Equal(t, f, got)
	}
	assert.Equal(t, "Faction(9)", Faction(9).String())
}
