// Population scheduler: pairs players from a working pool and resolves matches
// in fixed-size batches. All work happens on clones of the caller's roster.
package engine

import (
	"fmt"
	"time"

	"github.com/talgya/trustfall/internal/agents"
	"github.com/talgya/trustfall/internal/economy"
	"github.com/talgya/trustfall/internal/entropy"
)

const (
	// DefaultBatchSize is the number of matches a Run plays per Next call.
	DefaultBatchSize = 100

	// ArbiterTrustChance is the probability the Arbiter trusts.
	ArbiterTrustChance = 0.7
)

// RunOptions configures a scheduler run. Rand is required.
type RunOptions struct {
	Payout     economy.PayoutMatrix
	Reputation economy.ReputationTable
	Protocol   economy.ProtocolConfig

	APY           float64
	MatchDuration time.Duration
	BatchSize     int

	// Start is the simulated time of the first match; match k is stamped
	// Start + k*MatchDuration.
	Start time.Time
	// StartRound is the number of rounds already played.
	StartRound int

	Rand entropy.Source
	IDs  entropy.IDFunc
}

// DefaultRunOptions returns the standard tables, a 10% APY and 10 minute
// matches. The caller supplies Rand.
func DefaultRunOptions() RunOptions {
	return RunOptions{
		Payout:        economy.DefaultPayoutMatrix(),
		Reputation:    economy.DefaultReputationTable(),
		Protocol:      economy.DefaultProtocolConfig(),
		APY:           10,
		MatchDuration: 10 * time.Minute,
		BatchSize:     DefaultBatchSize,
		IDs:           entropy.UUIDs(),
	}
}

func (o RunOptions) prepare() (RunOptions, error) {
	if o.Rand == nil {
		return o, fmt.Errorf("run options: random source is required")
	}
	if err := o.Payout.Validate(); err != nil {
		return o, classify(err)
	}
	if err := o.Protocol.Validate(); err != nil {
		return o, classify(err)
	}
	if o.BatchSize <= 0 {
		o.BatchSize = DefaultBatchSize
	}
	if o.IDs == nil {
		o.IDs = entropy.UUIDs()
	}
	return o, nil
}

// ForcedActions overrides both strategies for a single match.
type ForcedActions struct {
	A agents.Action
	B agents.Action
}

// Result is everything a run produced. Roster holds the updated clones in the
// order of the input roster.
type Result struct {
	Matches          []Match
	ReputationEvents []agents.ReputationEvent
	Revenue          []economy.ProtocolRevenue
	Roster           []*agents.Player

	// Rounds is how far the round counter advances.
	Rounds int
	// End is the simulated time after the last match.
	End time.Time
	// OverAllocated is set when any match's fee split allocated more than
	// the whole fee.
	OverAllocated bool
}

// runner plays matches on its own clones and collects the records.
type runner struct {
	opts    RunOptions
	minutes float64
	res     Result
}

func newRunner(roster []*agents.Player, opts RunOptions) (*runner, error) {
	if len(roster) == 0 {
		return nil, newError(CodeEmptyPopulation, "no players to schedule")
	}
	opts, err := opts.prepare()
	if err != nil {
		return nil, err
	}
	for _, p := range roster {
		if err := p.Strategy.Validate(); err != nil {
			return nil, wrapError(CodeUnknownStrategy, fmt.Sprintf("player %s", p.Name), err)
		}
	}
	return &runner{
		opts:    opts,
		minutes: opts.MatchDuration.Minutes(),
		res:     Result{Roster: agents.CloneRoster(roster), End: opts.Start},
	}, nil
}

func (r *runner) clock(k int) time.Time {
	return r.opts.Start.Add(time.Duration(k) * r.opts.MatchDuration)
}

// play resolves one match between a and b, or a and the Arbiter when b is nil,
// and applies it to both clones.
func (r *runner) play(a, b *agents.Player, round int, at time.Time, forced *ForcedActions) error {
	opponent := agents.ArbiterID
	if b != nil {
		opponent = b.ID
	}

	var actA, actB agents.Action
	if forced != nil {
		actA, actB = forced.A, forced.B
	} else {
		var err error
		if actA, err = agents.Decide(a.HistoryAgainst(opponent), a.Strategy, r.opts.Rand); err != nil {
			return classify(err)
		}
		if b != nil {
			if actB, err = agents.Decide(b.HistoryAgainst(a.ID), b.Strategy, r.opts.Rand); err != nil {
				return classify(err)
			}
		} else {
			actB = arbiterAction(r.opts.Rand)
		}
	}

	in := ResolveInput{
		ActionA:      actA,
		ActionB:      actB,
		Payout:       r.opts.Payout,
		Reputation:   r.opts.Reputation,
		Protocol:     r.opts.Protocol,
		PrincipalA:   a.CurrentPrincipal,
		APY:          r.opts.APY,
		MatchMinutes: r.minutes,
	}
	if b != nil {
		in.PrincipalB = b.CurrentPrincipal
	}
	out := resolve(in)

	m := Match{
		ID:                  r.opts.IDs(),
		Round:               round,
		PlayerA:             a.Snapshot(),
		ActionA:             actA,
		ActionB:             actB,
		Result:              out.Result,
		ScoreChangeA:        out.ScoreA,
		ScoreChangeB:        out.ScoreB,
		ReputationChangeA:   out.ReputationA,
		ReputationChangeB:   out.ReputationB,
		YieldShareA:         out.YieldA,
		YieldShareB:         out.YieldB,
		YieldBurned:         out.Burned,
		TotalYieldGenerated: out.BaseYield,
		Timestamp:           at,
	}
	if b != nil {
		m.PlayerB = b.Snapshot()
	}

	r.settle(a, &m, out.ScoreA, out.ReputationA, out.YieldA)
	a.Remember(opponent, actA, actB)
	if b != nil {
		r.settle(b, &m, out.ScoreB, out.ReputationB, out.YieldB)
		b.Remember(a.ID, actB, actA)
	}

	r.res.Revenue = append(r.res.Revenue,
		economy.NewProtocolRevenue(r.opts.IDs(), m.ID, at, r.opts.Protocol, out.BaseYield, out.Fee))
	if out.Fee.OverAllocated {
		r.res.OverAllocated = true
	}
	r.res.Matches = append(r.res.Matches, m)
	return nil
}

// settle applies one side's deltas. Score never drops below zero and a
// reputation event is only recorded when the clamped value moved.
func (r *runner) settle(p *agents.Player, m *Match, score, reputation int, yield float64) {
	p.Score += score
	if p.Score < 0 {
		p.Score = 0
	}
	p.TotalMatches++
	p.CumulativeYield += yield

	old := p.Reputation
	if now := p.SetReputation(old + reputation); now != old {
		ev := agents.ReputationEvent{
			ID:            r.opts.IDs(),
			PlayerID:      p.ID,
			Timestamp:     m.Timestamp,
			OldReputation: old,
			NewReputation: now,
			Change:        now - old,
			Reason:        agents.ReasonMatchResult,
			MatchID:       m.ID,
			Details:       "match result: " + m.Result.String(),
		}
		p.ReputationHistory = append(p.ReputationHistory, ev)
		r.res.ReputationEvents = append(r.res.ReputationEvents, ev)
	}
}

func arbiterAction(src entropy.Source) agents.Action {
	if entropy.Chance(src, ArbiterTrustChance) {
		return agents.Trust
	}
	return agents.Betray
}

// pool is the working set of roster indices players are drawn from.
type pool []int

func (p *pool) fill(n int) {
	*p = (*p)[:0]
	for i := 0; i < n; i++ {
		*p = append(*p, i)
	}
}

// draw removes and returns a uniformly chosen index.
func (p *pool) draw(src entropy.Source) int {
	i := src.Intn(len(*p))
	idx := (*p)[i]
	*p = append((*p)[:i], (*p)[i+1:]...)
	return idx
}

// matchesPerRound is the number of matches one round is worth for n players.
func matchesPerRound(n int) int {
	if n/2 < 1 {
		return 1
	}
	return n / 2
}

// Run is a resumable bulk run. Pool, clones and clock carry over between Next
// calls, so a run played in batches produces exactly what one unbatched call
// would.
type Run struct {
	*runner
	pool     pool
	total    int
	done     int
	perRound int
}

// NewRun prepares a run of matchCount matches over clones of roster.
func NewRun(roster []*agents.Player, matchCount int, opts RunOptions) (*Run, error) {
	if matchCount < 0 {
		return nil, newError(CodeInvalidMatchCount, fmt.Sprintf("match count %d is negative", matchCount))
	}
	r, err := newRunner(roster, opts)
	if err != nil {
		return nil, err
	}
	run := &Run{
		runner:   r,
		pool:     make(pool, 0, len(roster)),
		total:    matchCount,
		perRound: matchesPerRound(len(roster)),
	}
	run.pool.fill(len(roster))
	return run, nil
}

// BatchSize is the number of matches each Next call plays at most.
func (r *Run) BatchSize() int { return r.opts.BatchSize }

// Total is the number of matches the run was asked for.
func (r *Run) Total() int { return r.total }

// Remaining is the number of matches not yet played.
func (r *Run) Remaining() int { return r.total - r.done }

// Done reports whether every match has been played.
func (r *Run) Done() bool { return r.done >= r.total }

// Next plays up to one batch and returns how many matches it played. It
// returns 0 once the run is complete.
func (r *Run) Next() (int, error) {
	n := r.Remaining()
	if n > r.opts.BatchSize {
		n = r.opts.BatchSize
	}
	for i := 0; i < n; i++ {
		if err := r.step(); err != nil {
			return i, err
		}
	}
	return n, nil
}

func (r *Run) step() error {
	roster := r.res.Roster
	k := r.done
	round := r.opts.StartRound + 1 + k/r.perRound

	var a, b *agents.Player
	if len(roster) == 1 {
		a = roster[0]
	} else {
		if len(r.pool) < 2 {
			r.pool.fill(len(roster))
		}
		a = roster[r.pool.draw(r.opts.Rand)]
		b = roster[r.pool.draw(r.opts.Rand)]
	}
	r.done++
	return r.play(a, b, round, r.clock(k), nil)
}

// Result returns what the run has produced so far.
func (r *Run) Result() Result {
	res := r.res
	res.End = r.clock(r.done)
	res.Rounds = (r.done + r.perRound - 1) / r.perRound
	return res
}

// RunMatches plays matchCount matches over clones of roster and returns the
// records and the updated clones. A zero count returns an empty result.
func RunMatches(roster []*agents.Player, matchCount int, opts RunOptions) (Result, error) {
	run, err := NewRun(roster, matchCount, opts)
	if err != nil {
		return Result{}, err
	}
	for !run.Done() {
		if _, err := run.Next(); err != nil {
			return Result{}, err
		}
	}
	return run.Result(), nil
}

// RunRounds plays rounds full rounds: every player plays exactly once per
// round, and with an odd roster the player left over faces the Arbiter.
func RunRounds(roster []*agents.Player, rounds int, opts RunOptions) (Result, error) {
	if rounds < 0 {
		return Result{}, newError(CodeInvalidMatchCount, fmt.Sprintf("round count %d is negative", rounds))
	}
	r, err := newRunner(roster, opts)
	if err != nil {
		return Result{}, err
	}

	players := r.res.Roster
	p := make(pool, 0, len(players))
	k := 0
	for round := 1; round <= rounds; round++ {
		p.fill(len(players))
		for len(p) > 1 {
			a := players[p.draw(r.opts.Rand)]
			b := players[p.draw(r.opts.Rand)]
			if err := r.play(a, b, r.opts.StartRound+round, r.clock(k), nil); err != nil {
				return Result{}, err
			}
			k++
		}
		if len(p) == 1 {
			if err := r.play(players[p[0]], nil, r.opts.StartRound+round, r.clock(k), nil); err != nil {
				return Result{}, err
			}
			k++
		}
	}

	res := r.res
	res.Rounds = rounds
	res.End = r.clock(k)
	return res, nil
}

// PlayMatch resolves a single match between a and b, or a and the Arbiter
// when b is nil. forced, when set, replaces both strategies.
func PlayMatch(a, b *agents.Player, forced *ForcedActions, opts RunOptions) (Result, error) {
	roster := []*agents.Player{a}
	if b != nil {
		roster = append(roster, b)
	}
	r, err := newRunner(roster, opts)
	if err != nil {
		return Result{}, err
	}
	var clone *agents.Player
	if b != nil {
		clone = r.res.Roster[1]
	}
	if err := r.play(r.res.Roster[0], clone, r.opts.StartRound+1, r.clock(0), forced); err != nil {
		return Result{}, err
	}
	res := r.res
	res.Rounds = 1
	res.End = r.clock(1)
	return res, nil
}
