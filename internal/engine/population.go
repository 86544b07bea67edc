// Player lifecycle: creation, bulk spawning, edits, resets and removal.
package engine

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/talgya/trustfall/internal/agents"
	"github.com/talgya/trustfall/internal/entropy"
)

// AddPlayer validates spec, adds the player and records its initial_setup
// reputation event.
func (s *Simulation) AddPlayer(spec agents.PlayerSpec) (*agents.Player, error) {
	if err := spec.Validate(); err != nil {
		return nil, classify(err)
	}
	if s.nameTaken(spec.Name) {
		return nil, newError(CodeInvalidPlayer, fmt.Sprintf("a player named %q already exists", strings.TrimSpace(spec.Name)))
	}

	p := agents.NewPlayer(agents.PlayerID(s.ids()), spec, s.CurrentDate)
	ev := agents.ReputationEvent{
		ID:            s.ids(),
		PlayerID:      p.ID,
		Timestamp:     s.CurrentDate,
		OldReputation: 0,
		NewReputation: p.Reputation,
		Change:        p.Reputation,
		Reason:        agents.ReasonInitialSetup,
		Details:       "player created with initial reputation",
	}
	p.ReputationHistory = append(p.ReputationHistory, ev)

	s.Players = append(s.Players, p)
	s.index[p.ID] = p
	s.ReputationEvents = append(s.ReputationEvents, ev)

	slog.Debug("player added", "id", p.ID, "name", p.Name, "strategy", p.Strategy.Label(), "reputation", p.Reputation)
	return p, nil
}

// AddPlayers spawns a randomized batch described by b, continuing the
// "<prefix> N" numbering of existing players.
func (s *Simulation) AddPlayers(b agents.BulkSpec, src entropy.Source) ([]*agents.Player, error) {
	specs, err := agents.NewSpawner(src).Spawn(b, s.PlayerNames())
	if err != nil {
		return nil, classify(err)
	}
	added := make([]*agents.Player, 0, len(specs))
	for _, spec := range specs {
		p, err := s.AddPlayer(spec)
		if err != nil {
			return added, err
		}
		added = append(added, p)
	}
	slog.Info("players spawned", "count", len(added), "prefix", b.NamePrefix, "assignment", b.Assignment)
	return added, nil
}

// PlayerNames lists current names in roster order.
func (s *Simulation) PlayerNames() []string {
	names := make([]string, len(s.Players))
	for i, p := range s.Players {
		names[i] = p.Name
	}
	return names
}

func (s *Simulation) nameTaken(name string) bool {
	name = strings.TrimSpace(name)
	for _, p := range s.Players {
		if strings.EqualFold(p.Name, name) {
			return true
		}
	}
	return false
}

// RemovePlayer deletes a player with its yield calculations and token
// distributions. Matches and reputation events stay in the logs.
func (s *Simulation) RemovePlayer(id agents.PlayerID) error {
	p, err := s.player(id)
	if err != nil {
		return err
	}
	for i, existing := range s.Players {
		if existing.ID == id {
			s.Players = append(s.Players[:i], s.Players[i+1:]...)
			break
		}
	}
	delete(s.index, id)
	for _, other := range s.Players {
		other.Forget(id)
	}
	s.purgeDerived(id)
	s.UpdateStatistics()

	slog.Info("player removed", "id", id, "name", p.Name)
	return nil
}

func (s *Simulation) purgeDerived(id agents.PlayerID) {
	yields := s.YieldCalculations[:0]
	for _, y := range s.YieldCalculations {
		if y.PlayerID != id {
			yields = append(yields, y)
		}
	}
	s.YieldCalculations = yields

	dists := s.TokenDistributions[:0]
	for _, d := range s.TokenDistributions {
		if d.PlayerID != id {
			dists = append(dists, d)
		}
	}
	s.TokenDistributions = dists
}

// PlayerUpdate holds the fields to change; nil fields are left alone.
type PlayerUpdate struct {
	Name       *string
	Principal  *float64
	Reputation *int
	Strategy   *agents.Strategy
}

// UpdatePlayer edits a player. A reputation change is recorded as a manual
// adjustment.
func (s *Simulation) UpdatePlayer(id agents.PlayerID, u PlayerUpdate) (*agents.Player, error) {
	p, err := s.player(id)
	if err != nil {
		return nil, err
	}

	// Validate the merged result before touching the player.
	spec := agents.PlayerSpec{Name: p.Name, Principal: p.CurrentPrincipal, Reputation: p.Reputation, Strategy: p.Strategy}
	if u.Name != nil {
		spec.Name = *u.Name
	}
	if u.Principal != nil {
		spec.Principal = *u.Principal
	}
	if u.Reputation != nil {
		spec.Reputation = *u.Reputation
	}
	if u.Strategy != nil {
		spec.Strategy = *u.Strategy
	}
	if err := spec.Validate(); err != nil {
		return nil, classify(err)
	}
	if u.Name != nil && !strings.EqualFold(strings.TrimSpace(*u.Name), p.Name) && s.nameTaken(*u.Name) {
		return nil, newError(CodeInvalidPlayer, fmt.Sprintf("a player named %q already exists", strings.TrimSpace(*u.Name)))
	}

	p.Name = strings.TrimSpace(spec.Name)
	p.CurrentPrincipal = spec.Principal
	p.Strategy = spec.Strategy
	if u.Reputation != nil {
		s.setReputation(p, spec.Reputation, agents.ReasonManualAdjustment, "reputation edited")
	}
	s.UpdateStatistics()
	return p, nil
}

// AdjustReputation shifts a player's reputation by delta, clamped to
// [0, 100], and records a manual adjustment when the value moved.
func (s *Simulation) AdjustReputation(id agents.PlayerID, delta int, details string) (*agents.Player, error) {
	p, err := s.player(id)
	if err != nil {
		return nil, err
	}
	if details == "" {
		details = "manual adjustment"
	}
	s.setReputation(p, p.Reputation+delta, agents.ReasonManualAdjustment, details)
	return p, nil
}

func (s *Simulation) setReputation(p *agents.Player, v int, reason agents.ReputationReason, details string) {
	old := p.Reputation
	now := p.SetReputation(v)
	if now == old {
		return
	}
	ev := agents.ReputationEvent{
		ID:            s.ids(),
		PlayerID:      p.ID,
		Timestamp:     s.CurrentDate,
		OldReputation: old,
		NewReputation: now,
		Change:        now - old,
		Reason:        reason,
		Details:       details,
	}
	p.ReputationHistory = append(p.ReputationHistory, ev)
	s.ReputationEvents = append(s.ReputationEvents, ev)
}

// ResetPlayer returns a player to its starting principal and clears its
// score, matches played, yield, tokens and pairwise history. Reputation and
// the logs are kept.
func (s *Simulation) ResetPlayer(id agents.PlayerID) (*agents.Player, error) {
	p, err := s.player(id)
	if err != nil {
		return nil, err
	}
	p.CurrentPrincipal = p.InitialPrincipal
	p.Score = 0
	p.TotalMatches = 0
	p.CumulativeYield = 0
	p.TokenBalances = make(map[string]float64)
	p.History = make(map[agents.PlayerID][]agents.Interaction)
	s.purgeDerived(id)
	s.UpdateStatistics()
	return p, nil
}

// ClearPlayers removes every player along with the match log and derived
// records and rewinds the round counter. Config and calendar are kept.
func (s *Simulation) ClearPlayers() {
	s.Players = nil
	s.index = make(map[agents.PlayerID]*agents.Player)
	s.Matches = nil
	s.Revenue = nil
	s.YieldCalculations = nil
	s.TokenDistributions = nil
	s.CurrentRound = 0
	s.UpdateStatistics()
	slog.Info("players cleared")
}

// Reset discards all state and rewinds the calendar to the start date. The
// config is kept.
func (s *Simulation) Reset() {
	s.ClearPlayers()
	s.ReputationEvents = nil
	s.CurrentDate = s.StartDate
	s.Stats = Statistics{}
	slog.Info("simulation reset", "start", s.StartDate.Format("2006-01-02"))
}
