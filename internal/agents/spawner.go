// Player spawning: validated construction of single players and randomized
// bulk populations.
package agents

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/talgya/trustfall/internal/entropy"
)

// ErrInvalidPlayer is wrapped by every player validation failure.
var ErrInvalidPlayer = errors.New("invalid player")

// Limits applied to player input.
const (
	MaxNameLength = 50
	MinPrincipal  = 1
	MaxPrincipal  = 1_000_000
	MaxBulkCount  = 100
)

// PlayerSpec is the caller-supplied description of a new player.
type PlayerSpec struct {
	Name       string   `json:"name" yaml:"name"`
	Principal  float64  `json:"principal" yaml:"principal"`
	Reputation int      `json:"reputation" yaml:"reputation"`
	Strategy   Strategy `json:"strategy" yaml:"strategy"`
}

// Validate checks name, principal, reputation and strategy.
func (s PlayerSpec) Validate() error {
	name := strings.TrimSpace(s.Name)
	if name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidPlayer)
	}
	if len(name) > MaxNameLength {
		return fmt.Errorf("%w: name longer than %d characters", ErrInvalidPlayer, MaxNameLength)
	}
	if s.Principal < MinPrincipal || s.Principal > MaxPrincipal {
		return fmt.Errorf("%w: principal %v outside [%d, %d]", ErrInvalidPlayer, s.Principal, MinPrincipal, MaxPrincipal)
	}
	if s.Reputation < MinReputation || s.Reputation > MaxReputation {
		return fmt.Errorf("%w: reputation %d outside [0, 100]", ErrInvalidPlayer, s.Reputation)
	}
	return s.Strategy.Validate()
}

// NewPlayer builds a player from a validated spec. The caller records the
// initial reputation event.
func NewPlayer(id PlayerID, spec PlayerSpec, now time.Time) *Player {
	return &Player{
		ID:               id,
		Name:             strings.TrimSpace(spec.Name),
		InitialPrincipal: spec.Principal,
		CurrentPrincipal: spec.Principal,
		Reputation:       spec.Reputation,
		Strategy:         spec.Strategy,
		TokenBalances:    make(map[string]float64),
		History:          make(map[PlayerID][]Interaction),
		CreatedAt:        now,
	}
}

// StrategyAssignment controls how bulk players receive strategies.
type StrategyAssignment string

const (
	AssignPercentage StrategyAssignment = "percentage"
	AssignRandom     StrategyAssignment = "random"
	AssignSpecific   StrategyAssignment = "specific"
)

// BulkSpec describes a randomized batch of players.
type BulkSpec struct {
	Count      int    `json:"count" yaml:"count"`
	NamePrefix string `json:"name_prefix" yaml:"name_prefix"`

	DepositMin      float64 `json:"deposit_min" yaml:"deposit_min"`
	DepositMax      float64 `json:"deposit_max" yaml:"deposit_max"`
	DepositVariance float64 `json:"deposit_variance" yaml:"deposit_variance"` // percent of the range

	ReputationMin int `json:"reputation_min" yaml:"reputation_min"`
	ReputationMax int `json:"reputation_max" yaml:"reputation_max"`

	Assignment StrategyAssignment `json:"assignment" yaml:"assignment"`
	Specific   StrategyKind       `json:"specific,omitempty" yaml:"specific,omitempty"`

	TrustMin float64 `json:"trust_min" yaml:"trust_min"`
	TrustMax float64 `json:"trust_max" yaml:"trust_max"`
}

// DefaultBulkSpec mirrors the defaults offered by the bulk creation form.
func DefaultBulkSpec() BulkSpec {
	return BulkSpec{
		Count:           10,
		NamePrefix:      "Player",
		DepositMin:      100,
		DepositMax:      10000,
		DepositVariance: 20,
		ReputationMin:   20,
		ReputationMax:   80,
		Assignment:      AssignRandom,
		TrustMin:        20,
		TrustMax:        80,
	}
}

// Validate checks ranges and the strategy assignment.
func (b BulkSpec) Validate() error {
	switch {
	case b.Count < 1 || b.Count > MaxBulkCount:
		return fmt.Errorf("%w: bulk count %d outside [1, %d]", ErrInvalidPlayer, b.Count, MaxBulkCount)
	case strings.TrimSpace(b.NamePrefix) == "":
		return fmt.Errorf("%w: name prefix is required", ErrInvalidPlayer)
	case b.DepositMin < MinPrincipal || b.DepositMax > MaxPrincipal || b.DepositMin > b.DepositMax:
		return fmt.Errorf("%w: deposit range [%v, %v]", ErrInvalidPlayer, b.DepositMin, b.DepositMax)
	case b.DepositVariance < 0 || b.DepositVariance > 100:
		return fmt.Errorf("%w: deposit variance %v", ErrInvalidPlayer, b.DepositVariance)
	case b.ReputationMin < MinReputation || b.ReputationMax > MaxReputation || b.ReputationMin > b.ReputationMax:
		return fmt.Errorf("%w: reputation range [%d, %d]", ErrInvalidPlayer, b.ReputationMin, b.ReputationMax)
	}
	switch b.Assignment {
	case AssignPercentage:
		if b.TrustMin < 0 || b.TrustMax > 100 || b.TrustMin > b.TrustMax {
			return fmt.Errorf("%w: trust range [%v, %v]", ErrInvalidPlayer, b.TrustMin, b.TrustMax)
		}
	case AssignRandom:
	case AssignSpecific:
		if !b.Specific.Valid() {
			return fmt.Errorf("%w: %d", ErrUnknownStrategy, uint8(b.Specific))
		}
	default:
		return fmt.Errorf("%w: strategy assignment %q", ErrInvalidPlayer, b.Assignment)
	}
	return nil
}

// Spawner turns bulk specs into player specs using a random source.
type Spawner struct {
	rng entropy.Source
}

// NewSpawner creates a spawner drawing from src.
func NewSpawner(src entropy.Source) *Spawner {
	return &Spawner{rng: src}
}

// Spawn generates b.Count player specs. existing holds names already in the
// roster so numbering continues after the highest "<prefix> N".
func (s *Spawner) Spawn(b BulkSpec, existing []string) ([]PlayerSpec, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}
	prefix := strings.TrimSpace(b.NamePrefix)
	start := NextNameNumber(prefix, existing)

	specs := make([]PlayerSpec, 0, b.Count)
	for i := 0; i < b.Count; i++ {
		specs = append(specs, PlayerSpec{
			Name:       prefix + " " + strconv.Itoa(start+i),
			Principal:  s.deposit(b),
			Reputation: s.reputation(b),
			Strategy:   s.strategy(b),
		})
	}
	return specs, nil
}

func (s *Spawner) deposit(b BulkSpec) float64 {
	span := b.DepositMax - b.DepositMin
	variance := span * b.DepositVariance / 100
	jitter := s.rng.Float64()*variance*2 - variance
	d := math.Round(b.DepositMin + span*s.rng.Float64() + jitter)
	return math.Min(MaxPrincipal, math.Max(MinPrincipal, d))
}

func (s *Spawner) reputation(b BulkSpec) int {
	span := float64(b.ReputationMax - b.ReputationMin)
	return ClampReputation(int(math.Round(float64(b.ReputationMin) + s.rng.Float64()*span)))
}

func (s *Spawner) strategy(b BulkSpec) Strategy {
	switch b.Assignment {
	case AssignPercentage:
		p := math.Round(b.TrustMin + (b.TrustMax-b.TrustMin)*s.rng.Float64())
		return Percentage(math.Min(100, math.Max(0, p)))
	case AssignSpecific:
		return Fixed(b.Specific)
	default:
		// Every catalogue entry except percentage.
		pick := StrategyKind(s.rng.Intn(int(numStrategyKinds)-2)) + StrategyAlwaysCooperate
		return Fixed(pick)
	}
}

// NextNameNumber returns one past the highest N among names of the form
// "<prefix> N", or 1 when there are none.
func NextNameNumber(prefix string, names []string) int {
	highest := 0
	for _, name := range names {
		rest, ok := strings.CutPrefix(name, prefix+" ")
		if !ok {
			continue
		}
		n, err := strconv.Atoi(rest)
		if err != nil || n < 0 || strconv.Itoa(n) != rest {
			continue
		}
		if n > highest {
			highest = n
		}
	}
	return highest + 1
}
