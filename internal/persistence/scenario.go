package persistence

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/talgya/trustfall/internal/agents"
	"github.com/talgya/trustfall/internal/engine"
)

// ScenarioVersion is the only scenario format version this package reads.
const ScenarioVersion = "1.0"

// ScenarioExport is a portable snapshot of a simulation: roster, match log and
// config.
type ScenarioExport struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Tags        []string  `json:"tags"`
	Version     string    `json:"version"`
	ExportDate  time.Time `json:"export_date"`

	StartDate   time.Time `json:"start_date"`
	CurrentDate time.Time `json:"current_date"`

	Players    []*agents.Player  `json:"players"`
	Matches    []engine.Match    `json:"matches"`
	Config     engine.Config     `json:"config"`
	Statistics engine.Statistics `json:"statistics"`
}

// ExportScenario captures sim. tags is a comma separated list.
func ExportScenario(sim *engine.Simulation, name, description, tags string, now time.Time) ScenarioExport {
	return ScenarioExport{
		ID:          uuid.NewString(),
		Name:        name,
		Description: description,
		Tags:        splitTags(tags),
		Version:     ScenarioVersion,
		ExportDate:  now,
		StartDate:   sim.StartDate,
		CurrentDate: sim.CurrentDate,
		Players:     agents.CloneRoster(sim.Players),
		Matches:     append([]engine.Match(nil), sim.Matches...),
		Config:      sim.Config,
		Statistics:  sim.Stats,
	}
}

func splitTags(tags string) []string {
	var out []string
	for _, t := range strings.Split(tags, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// Encode writes the scenario as indented JSON.
func (s ScenarioExport) Encode(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}

// DecodeScenario reads a scenario and checks its version.
func DecodeScenario(r io.Reader) (ScenarioExport, error) {
	var s ScenarioExport
	if err := json.NewDecoder(r).Decode(&s); err != nil {
		return ScenarioExport{}, fmt.Errorf("decode scenario: %w", err)
	}
	if s.Version != ScenarioVersion {
		return ScenarioExport{}, fmt.Errorf("unsupported scenario version %q", s.Version)
	}
	return s, nil
}

// Simulation rebuilds a simulation from the scenario. Yield calculations,
// token distributions, protocol revenue and the round counter start over;
// the reputation log is rebuilt from the players' own histories and the
// statistics are recomputed.
func (s ScenarioExport) Simulation() (*engine.Simulation, error) {
	if err := s.Config.Validate(); err != nil {
		return nil, fmt.Errorf("scenario config: %w", err)
	}
	sim := engine.NewSimulation(s.Config, s.StartDate)
	if !s.CurrentDate.IsZero() {
		sim.CurrentDate = s.CurrentDate
	}
	sim.Players = agents.CloneRoster(s.Players)
	sim.Matches = append([]engine.Match(nil), s.Matches...)

	seen := make(map[agents.PlayerID]bool, len(sim.Players))
	for _, p := range sim.Players {
		if seen[p.ID] {
			return nil, fmt.Errorf("scenario lists player %q twice", p.ID)
		}
		seen[p.ID] = true
		if err := p.Strategy.Validate(); err != nil {
			return nil, fmt.Errorf("player %q: %w", p.ID, err)
		}
		p.SetReputation(p.Reputation)
		if p.TokenBalances == nil {
			p.TokenBalances = make(map[string]float64)
		}
		if p.History == nil {
			p.History = make(map[agents.PlayerID][]agents.Interaction)
		}
		sim.ReputationEvents = append(sim.ReputationEvents, p.ReputationHistory...)
	}
	sort.SliceStable(sim.ReputationEvents, func(i, j int) bool {
		return sim.ReputationEvents[i].Timestamp.Before(sim.ReputationEvents[j].Timestamp)
	})

	sim.Reindex()
	sim.UpdateStatistics()
	return sim, nil
}
