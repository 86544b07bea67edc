// Package social groups players into factions by reputation.
// Factions are labels for reporting and token targeting; they carry no state.
package social

import (
	"fmt"
	"strings"
)

// Faction is a reputation band.
type Faction uint8

const (
	ShadowSyndicate  Faction = iota // reputation 0–40
	FreeAgents                      // reputation 41–59
	LuminaCollective                // reputation 60–100
)

// Band edges, inclusive.
const (
	ShadowSyndicateMax = 40
	FreeAgentsMax      = 59
)

var factionNames = [...]string{
	ShadowSyndicate:  "Shadow Syndicate",
	FreeAgents:       "Free Agents",
	LuminaCollective: "Lumina Collective",
}

// FactionForReputation derives a faction from a reputation value. Values below
// zero fall in the lowest band and values above 100 in the highest.
func FactionForReputation(reputation int) Faction {
	switch {
	case reputation <= ShadowSyndicateMax:
		return ShadowSyndicate
	case reputation <= FreeAgentsMax:
		return FreeAgents
	default:
		return LuminaCollective
	}
}

// Factions lists every faction from lowest to highest reputation band.
func Factions() []Faction {
	return []Faction{ShadowSyndicate, FreeAgents, LuminaCollective}
}

func (f Faction) String() string {
	if int(f) < len(factionNames) {
		return factionNames[f]
	}
	return fmt.Sprintf("Faction(%d)", uint8(f))
}

// ParseFaction accepts the display name or a snake/kebab variant
// ("shadow_syndicate", "free-agents").
func ParseFaction(s string) (Faction, error) {
	norm := strings.NewReplacer("_", " ", "-", " ").Replace(strings.ToLower(strings.TrimSpace(s)))
	for _, f := range Factions() {
		if strings.ToLower(f.String()) == norm {
			return f, nil
		}
	}
	return 0, fmt.Errorf("unknown faction %q", s)
}

// MarshalText writes the display name.
func (f Faction) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

// UnmarshalText reads any form ParseFaction accepts.
func (f *Faction) UnmarshalText(b []byte) error {
	parsed, err := ParseFaction(string(b))
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}
