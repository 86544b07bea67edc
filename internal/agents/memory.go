// Pairwise interaction memory. Strategies only ever see the slice of history
// shared with the opponent they are facing.
package agents

// HistoryAgainst returns a copy of the player's interactions with opponent,
// oldest first. Mutating the result does not affect the player.
func (p *Player) HistoryAgainst(opponent PlayerID) []Interaction {
	h := p.History[opponent]
	if len(h) == 0 {
		return nil
	}
	out := make([]Interaction, len(h))
	copy(out, h)
	return out
}

// Remember appends an interaction with opponent to the player's history.
func (p *Player) Remember(opponent PlayerID, own, theirs Action) {
	if p.History == nil {
		p.History = make(map[PlayerID][]Interaction)
	}
	p.History[opponent] = append(p.History[opponent], Interaction{
		Own:      own,
		Opponent: theirs,
		Outcome:  Classify(own, theirs),
	})
}

// Forget drops all history with opponent, used when the opponent leaves the roster.
func (p *Player) Forget(opponent PlayerID) {
	delete(p.History, opponent)
}

// Opponents returns how many distinct opponents the player has faced.
func (p *Player) Opponents() int {
	return len(p.History)
}

// TrustRate is the share of the player's own moves that were trust, across all
// opponents. It is 0 for a player with no history.
func (p *Player) TrustRate() float64 {
	total, trusts := 0, 0
	for _, h := range p.History {
		for _, in := range h {
			total++
			if in.Own == Trust {
				trusts++
			}
		}
	}
	if total == 0 {
		return 0
	}
	return float64(trusts) / float64(total)
}
