package agents

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/trustfall/internal/entropy"
)

// scriptedSource replays fixed draws and fails the test when it runs dry.
type scriptedSource struct {
	t      *testing.T
	floats []float64
}

func (s *scriptedSource) Float64() float64 {
	s.t.Helper()
	require.NotEmpty(s.t, s.floats, "unexpected random draw")
	f := s.floats[0]
	s.floats = s.floats[1:]
	return f
}

func (s *scriptedSource) Intn(n int) int { return 0 }

// noDraws fails on any random draw, for deterministic strategies.
func noDraws(t *testing.T) *scriptedSource { return &scriptedSource{t: t} }

// hist builds a history from (own, opponent) pairs written as "TB" strings.
func hist(pairs ...string) []Interaction {
	out := make([]Interaction, 0, len(pairs))
	for _, p := range pairs {
		own, opp := Trust, Trust
		if p[0] == 'B' {
			own = Betray
		}
		if p[1] == 'B' {
			opp = Betray
		}
		out = append(out, Interaction{Own: own, Opponent: opp, Outcome: Classify(own, opp)})
	}
	return out
}

func decide(t *testing.T, h []Interaction, k StrategyKind) Action {
	t.Helper()
	a, err := Decide(h, Fixed(k), noDraws(t))
	require.NoError(t, err)
	return a
}

func TestDeterministicStrategies(t *testing.T) {
	tests := []struct {
		name    string
		kind    StrategyKind
		history []Interaction
		want    Action
	}{
		{"cooperate", StrategyAlwaysCooperate, hist("TB", "TB"), Trust},
		{"defect", StrategyAlwaysDefect, hist("TT"), Betray},

		{"tft opens with trust", StrategyTitForTat, nil, Trust},
		{"tft copies betray", StrategyTitForTat, hist("TT", "TB"), Betray},
		{"tft copies trust", StrategyTitForTat, hist("TB", "BT"), Trust},

		{"stft opens with betray", StrategySuspiciousTitForTat, nil, Betray},
		{"stft copies trust", StrategySuspiciousTitForTat, hist("BT"), Trust},

		{"tf2t one betray", StrategyTitForTwoTats, hist("TT", "TB"), Trust},
		{"tf2t two betrays", StrategyTitForTwoTats, hist("TB", "TB"), Betray},
		{"tf2t broken run", StrategyTitForTwoTats, hist("TB", "TT", "TB"), Trust},

		{"grim clean", StrategyGrimTrigger, hist("TT", "TT"), Trust},
		{"grim triggered long ago", StrategyGrimTrigger, hist("TB", "BT", "BT", "BT"), Betray},

		{"pavlov opens with trust", StrategyPavlov, nil, Trust},
		{"pavlov stays after TT", StrategyPavlov, hist("TT"), Trust},
		{"pavlov stays after BB", StrategyPavlov, hist("BB"), Betray},
		{"pavlov shifts after sucker", StrategyPavlov, hist("TB"), Betray},
		{"pavlov shifts after temptation", StrategyPavlov, hist("BT"), Trust},

		{"fbf clean", StrategyFirmButFair, hist("TT"), Trust},
		{"fbf answers first betray", StrategyFirmButFair, hist("TT", "TB"), Betray},
		{"fbf resumes", StrategyFirmButFair, hist("TB", "BT"), Trust},
		{"fbf ignores later betrays", StrategyFirmButFair, hist("TB", "BT", "TB"), Trust},

		{"soft majority empty", StrategySoftMajority, nil, Trust},
		{"soft majority tie", StrategySoftMajority, hist("TT", "TB"), Trust},
		{"soft majority minority", StrategySoftMajority, hist("TT", "TB", "TB"), Betray},

		{"hard majority empty", StrategyHardMajority, nil, Betray},
		{"hard majority tie", StrategyHardMajority, hist("TT", "TB"), Betray},
		{"hard majority majority", StrategyHardMajority, hist("TT", "TT", "TB"), Trust},

		{"contrite repairs", StrategyContriteTitForTat, hist("TT", "BB"), Trust},
		{"contrite copies", StrategyContriteTitForTat, hist("TB"), Betray},
		{"contrite opens with trust", StrategyContriteTitForTat, nil, Trust},

		{"adaptive tft", StrategyAdaptive, hist("TT", "TB"), Betray},
		{"adaptive forgives below threshold", StrategyAdaptive, hist("TB", "TB", "BT"), Trust},
		{"adaptive switches", StrategyAdaptive, hist("TB", "TT", "TB", "TT", "TB", "BT"), Betray},
		{"adaptive stays switched", StrategyAdaptive, hist("TB", "TB", "TB", "BT", "BT", "BT", "BT", "BT", "BT"), Betray},
		{"adaptive window slides", StrategyAdaptive, hist("TB", "TT", "TT", "TT", "TT", "TB", "TB", "BT"), Trust},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, decide(t, tt.history, tt.kind))
		})
	}
}

func TestProberOpening(t *testing.T) {
	// Moves 1, 3 and 4 betray; move 2 trusts.
	assert.Equal(t, Betray, decide(t, nil, StrategyProber))
	assert.Equal(t, Trust, decide(t, hist("BB"), StrategyProber))
	assert.Equal(t, Betray, decide(t, hist("BB", "TB"), StrategyProber))
	assert.Equal(t, Betray, decide(t, hist("BB", "TB", "BB"), StrategyProber))
}

func TestProberAfterOpening(t *testing.T) {
	exploited := hist("BB", "TB", "BB", "BB")
	assert.Equal(t, Betray, decide(t, exploited, StrategyProber))
	assert.Equal(t, Betray, decide(t, append(exploited, hist("BT")...), StrategyProber),
		"no trust during the opening means betray forever")

	mirrored := hist("BT", "TB", "BB", "BB")
	assert.Equal(t, Betray, decide(t, mirrored, StrategyProber))
	assert.Equal(t, Trust, decide(t, append(mirrored, hist("BT")...), StrategyProber))
}

func TestGrimTriggerNeverTrustsAfterBetrayal(t *testing.T) {
	src := entropy.NewSource(7)
	h := hist("TT", "TB")
	for i := 0; i < 50; i++ {
		a, err := Decide(h, Fixed(StrategyGrimTrigger), src)
		require.NoError(t, err)
		require.Equal(t, Betray, a)
		opp := Trust
		if src.Intn(2) == 0 {
			opp = Betray
		}
		h = append(h, Interaction{Own: a, Opponent: opp, Outcome: Classify(a, opp)})
	}
}

func TestPercentageStrategy(t *testing.T) {
	src := &scriptedSource{t: t, floats: []float64{0.299, 0.3, 0.0, 0.999}}
	s := Percentage(30)
	want := []Action{Trust, Betray, Trust, Betray}
	for i, w := range want {
		a, err := Decide(nil, s, src)
		require.NoError(t, err)
		assert.Equal(t, w, a, "draw %d", i)
	}

	a, err := Decide(nil, Percentage(0), &scriptedSource{t: t, floats: []float64{0}})
	require.NoError(t, err)
	assert.Equal(t, Betray, a, "0% never trusts")

	a, err = Decide(nil, Percentage(100), &scriptedSource{t: t, floats: []float64{0.9999}})
	require.NoError(t, err)
	assert.Equal(t, Trust, a, "100% always trusts")
}

func TestRandomStrategy(t *testing.T) {
	src := &scriptedSource{t: t, floats: []float64{0.49, 0.5}}
	a, _ := Decide(nil, Fixed(StrategyRandom), src)
	assert.Equal(t, Trust, a)
	a, _ = Decide(nil, Fixed(StrategyRandom), src)
	assert.Equal(t, Betray, a)
}

func TestGenerousTitForTat(t *testing.T) {
	// No draw when the opponent last trusted.
	assert.Equal(t, Trust, decide(t, hist("TT"), StrategyGenerousTitForTat))

	src := &scriptedSource{t: t, floats: []float64{0.05, 0.5}}
	a, _ := Decide(hist("TB"), Fixed(StrategyGenerousTitForTat), src)
	assert.Equal(t, Trust, a, "forgiven")
	a, _ = Decide(hist("TB"), Fixed(StrategyGenerousTitForTat), src)
	assert.Equal(t, Betray, a, "not forgiven")
}

func TestRandomTitForTat(t *testing.T) {
	src := &scriptedSource{t: t, floats: []float64{0.09, 0.1, 0.5}}
	a, _ := Decide(hist("TB"), Fixed(StrategyRandomTitForTat), src)
	assert.Equal(t, Trust, a, "random trust")
	a, _ = Decide(hist("TB"), Fixed(StrategyRandomTitForTat), src)
	assert.Equal(t, Betray, a, "falls back to tit for tat")
	a, _ = Decide(nil, Fixed(StrategyRandomTitForTat), src)
	assert.Equal(t, Trust, a)
}

func TestDecideUnknownStrategy(t *testing.T) {
	_, err := Decide(nil, Strategy{Kind: StrategyUnknown}, noDraws(t))
	assert.ErrorIs(t, err, ErrUnknownStrategy)

	_, err = Decide(nil, Strategy{Kind: numStrategyKinds + 3}, noDraws(t))
	assert.ErrorIs(t, err, ErrUnknownStrategy)
}

func TestDecideDoesNotMutateHistory(t *testing.T) {
	h := hist("TT", "TB", "BB")
	before := append([]Interaction(nil), h...)
	for _, info := range Strategies() {
		_, err := Decide(h, Strategy{Kind: info.Kind, TrustPercentage: 50}, entropy.NewSource(1))
		require.NoError(t, err, info.Key)
	}
	assert.Equal(t, before, h)
}
