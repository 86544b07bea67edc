// Token distribution: the monthly incentive pool weighted by deposit and
// score, and ad hoc grants to chosen recipients.
package economy

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/talgya/trustfall/internal/agents"
	"github.com/talgya/trustfall/internal/social"
)

// ErrInvalidGrant is wrapped by every token grant validation failure.
var ErrInvalidGrant = errors.New("invalid token grant")

// Incentive token identity.
const (
	IncentiveToken       = "HOOPS"
	IncentiveTokenSymbol = "$HOOPS"
)

// DefaultTopPerformers is how many players a top performer grant reaches when
// the caller does not say.
const DefaultTopPerformers = 5

// TokenDistribution records tokens credited to one player.
type TokenDistribution struct {
	PlayerID      agents.PlayerID `json:"player_id"`
	WeightedClaim float64         `json:"weighted_claim"`
	TokenReward   float64         `json:"token_reward"`
	TokenType     string          `json:"token_type"`
	TokenSymbol   string          `json:"token_symbol"`
	Month         int             `json:"month"`
	Year          int             `json:"year"`
}

// WeightedClaim is a player's share weight in the monthly pool. Negative
// scores claim nothing.
func WeightedClaim(p *agents.Player) float64 {
	score := p.Score
	if score < 0 {
		score = 0
	}
	return p.CurrentPrincipal * float64(score)
}

// MonthlyDistribution splits pool across players by weighted claim. It returns
// nil when no player has a positive claim.
func MonthlyDistribution(players []*agents.Player, pool float64, now time.Time) []TokenDistribution {
	total := 0.0
	for _, p := range players {
		total += WeightedClaim(p)
	}
	if total == 0 {
		return nil
	}
	out := make([]TokenDistribution, 0, len(players))
	for _, p := range players {
		claim := WeightedClaim(p)
		out = append(out, TokenDistribution{
			PlayerID:      p.ID,
			WeightedClaim: claim,
			TokenReward:   claim / total * pool,
			TokenType:     IncentiveToken,
			TokenSymbol:   IncentiveTokenSymbol,
			Month:         int(now.Month()),
			Year:          now.Year(),
		})
	}
	return out
}

// GrantTarget selects who receives a grant.
type GrantTarget string

const (
	GrantSpecific      GrantTarget = "specific"
	GrantAll           GrantTarget = "all"
	GrantTopPerformers GrantTarget = "top_performers"
	GrantFaction       GrantTarget = "faction"
)

// ExtraTokens is an ad hoc grant split evenly among its recipients.
type ExtraTokens struct {
	TokenType   string          `json:"token_type"`
	TokenSymbol string          `json:"token_symbol"`
	Amount      float64         `json:"amount"`
	Target      GrantTarget     `json:"target"`
	Player      agents.PlayerID `json:"player,omitempty"`
	TopCount    int             `json:"top_count,omitempty"`
	Faction     social.Faction  `json:"faction"`
}

// Validate checks the token identity, the amount and the target.
func (g ExtraTokens) Validate() error {
	if g.TokenType == "" {
		return fmt.Errorf("%w: token type is required", ErrInvalidGrant)
	}
	if g.Amount <= 0 {
		return fmt.Errorf("%w: amount must be positive", ErrInvalidGrant)
	}
	switch g.Target {
	case GrantSpecific:
		if g.Player == "" {
			return fmt.Errorf("%w: specific grant needs a player", ErrInvalidGrant)
		}
	case GrantAll, GrantFaction:
	case GrantTopPerformers:
		if g.TopCount < 0 {
			return fmt.Errorf("%w: negative top performer count", ErrInvalidGrant)
		}
	default:
		return fmt.Errorf("%w: unknown target %q", ErrInvalidGrant, g.Target)
	}
	return nil
}

// Recipients picks the grant's recipients from players. Top performers are
// ranked by score, highest first, ties kept in roster order.
func (g ExtraTokens) Recipients(players []*agents.Player) []agents.PlayerID {
	var out []agents.PlayerID
	switch g.Target {
	case GrantSpecific:
		for _, p := range players {
			if p.ID == g.Player {
				out = append(out, p.ID)
			}
		}
	case GrantAll:
		for _, p := range players {
			out = append(out, p.ID)
		}
	case GrantTopPerformers:
		n := g.TopCount
		if n == 0 {
			n = DefaultTopPerformers
		}
		ranked := append([]*agents.Player(nil), players...)
		sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Score > ranked[j].Score })
		if n > len(ranked) {
			n = len(ranked)
		}
		for _, p := range ranked[:n] {
			out = append(out, p.ID)
		}
	case GrantFaction:
		for _, p := range players {
			if p.Faction() == g.Faction {
				out = append(out, p.ID)
			}
		}
	}
	return out
}

// Distribute splits the grant evenly among its recipients. It returns nil when
// nobody qualifies.
func (g ExtraTokens) Distribute(players []*agents.Player, now time.Time) []TokenDistribution {
	recipients := g.Recipients(players)
	if len(recipients) == 0 {
		return nil
	}
	each := g.Amount / float64(len(recipients))
	out := make([]TokenDistribution, 0, len(recipients))
	for _, id := range recipients {
		out = append(out, TokenDistribution{
			PlayerID:    id,
			TokenReward: each,
			TokenType:   g.TokenType,
			TokenSymbol: g.TokenSymbol,
			Month:       int(now.Month()),
			Year:        now.Year(),
		})
	}
	return out
}

// Credit adds each distribution to the matching player's balance.
func Credit(players []*agents.Player, dists []TokenDistribution) {
	byID := make(map[agents.PlayerID]*agents.Player, len(players))
	for _, p := range players {
		byID[p.ID] = p
	}
	for _, d := range dists {
		p, ok := byID[d.PlayerID]
		if !ok {
			continue
		}
		if p.TokenBalances == nil {
			p.TokenBalances = make(map[string]float64)
		}
		p.TokenBalances[d.TokenType] += d.TokenReward
	}
}
