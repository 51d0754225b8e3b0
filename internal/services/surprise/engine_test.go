package surprise

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hermes/internal/adapters/catalog"
	"hermes/internal/domain/diagnosis"
	"hermes/internal/domain/event"
	"hermes/internal/domain/indicator"
)

// fakeEventRepo keeps releases and snapshots in memory, mirroring the
// one-release-per-event constraint of the real store
type fakeEventRepo struct {
	releases  map[uuid.UUID]*event.EconomicRelease
	snapshots map[uuid.UUID]*event.ImpactSnapshot
}

func newFakeEventRepo() *fakeEventRepo {
	return &fakeEventRepo{
		releases:  make(map[uuid.UUID]*event.EconomicRelease),
		snapshots: make(map[uuid.UUID]*event.ImpactSnapshot),
	}
}

func (f *fakeEventRepo) UpsertEvent(context.Context, *event.EconomicEvent) error { return nil }
func (f *fakeEventRepo) GetPendingEvents(context.Context, time.Time, time.Time) ([]event.EconomicEvent, error) {
	return nil, nil
}
func (f *fakeEventRepo) GetEvent(context.Context, uuid.UUID) (*event.EconomicEvent, error) {
	return nil, nil
}

func (f *fakeEventRepo) InsertRelease(_ context.Context, r *event.EconomicRelease) (*event.EconomicRelease, bool, error) {
	if existing, ok := f.releases[r.EventID]; ok {
		return existing, false, nil
	}
	f.releases[r.EventID] = r
	return r, true, nil
}

func (f *fakeEventRepo) GetReleaseByEvent(_ context.Context, eventID uuid.UUID) (*event.EconomicRelease, error) {
	return f.releases[eventID], nil
}

func (f *fakeEventRepo) GetUnexpiredReleases(context.Context, string, time.Time) ([]event.EconomicRelease, error) {
	return nil, nil
}

func (f *fakeEventRepo) InsertImpactSnapshot(_ context.Context, s *event.ImpactSnapshot) error {
	if _, ok := f.snapshots[s.ReleaseID]; !ok {
		f.snapshots[s.ReleaseID] = s
	}
	return nil
}

func (f *fakeEventRepo) GetImpactSnapshot(_ context.Context, releaseID uuid.UUID) (*event.ImpactSnapshot, error) {
	return f.snapshots[releaseID], nil
}

// fakeReruner records call order so the before-snapshot ordering is provable
type fakeReruner struct {
	calls      []string
	before     diagnosis.CurrencyScore
	after      diagnosis.CurrencyScore
	rerunCount int
}

func (f *fakeReruner) CurrentState(_ context.Context, currency string) (diagnosis.CurrencyScore, string, error) {
	f.calls = append(f.calls, "current_state")
	return f.before, "neutral", nil
}

func (f *fakeReruner) RerunForCurrency(_ context.Context, currency string) (diagnosis.CurrencyScore, string, error) {
	f.calls = append(f.calls, "rerun")
	f.rerunCount++
	return f.after, "bullish", nil
}

func dptr(v string) *decimal.Decimal {
	d := decimal.RequireFromString(v)
	return &d
}

func nfpEvent() *event.EconomicEvent {
	return &event.EconomicEvent{
		ID:             uuid.New(),
		Currency:       "USD",
		IndicatorKey:   "us_nfp_delta",
		Title:          "US Nonfarm Payrolls",
		ScheduledTime:  time.Now(),
		Previous:       dptr("160"),
		Consensus:      dptr("150"),
		Directionality: indicator.HigherIsPositive,
	}
}

func TestProcessRelease_PositiveSurprise(t *testing.T) {
	repo := newFakeEventRepo()
	reruner := &fakeReruner{
		before: diagnosis.CurrencyScore{Currency: "USD", TotalScore: 0.1, Regime: diagnosis.RegimeNeutral},
		after:  diagnosis.CurrencyScore{Currency: "USD", TotalScore: 0.4, Regime: diagnosis.RegimeHawkish},
	}
	engine := NewEngine(repo, catalog.NewDefault(), reruner)

	result, err := engine.ProcessRelease(context.Background(), nfpEvent(), decimal.RequireFromString("180"))
	require.NoError(t, err)
	require.True(t, result.Created)

	rel := result.Release
	assert.True(t, rel.SurpriseRaw.Equal(decimal.RequireFromString("30")))
	assert.Equal(t, event.SurprisePositive, rel.SurpriseDirection)
	require.NotNil(t, rel.SurprisePct)
	assert.True(t, rel.SurprisePct.Equal(decimal.RequireFromString("0.2")))

	snap := result.ImpactSnapshot
	require.NotNil(t, snap)
	assert.Equal(t, 0.1, snap.ScoreBefore)
	assert.Equal(t, 0.4, snap.ScoreAfter)
	assert.Equal(t, diagnosis.RegimeNeutral, snap.RegimeBefore)
	assert.Equal(t, diagnosis.RegimeHawkish, snap.RegimeAfter)

	// Before-state must be captured strictly before the rerun fires
	require.Len(t, reruner.calls, 2)
	assert.Equal(t, []string{"current_state", "rerun"}, reruner.calls)
}

func TestProcessRelease_Idempotent(t *testing.T) {
	repo := newFakeEventRepo()
	reruner := &fakeReruner{
		before: diagnosis.CurrencyScore{Currency: "USD", TotalScore: 0.1},
		after:  diagnosis.CurrencyScore{Currency: "USD", TotalScore: 0.4},
	}
	engine := NewEngine(repo, catalog.NewDefault(), reruner)
	ev := nfpEvent()

	first, err := engine.ProcessRelease(context.Background(), ev, decimal.RequireFromString("180"))
	require.NoError(t, err)
	require.True(t, first.Created)

	second, err := engine.ProcessRelease(context.Background(), ev, decimal.RequireFromString("180"))
	require.NoError(t, err)

	assert.False(t, second.Created)
	assert.Equal(t, first.Release.ID, second.Release.ID)
	assert.Equal(t, first.ImpactSnapshot.ID, second.ImpactSnapshot.ID)
	assert.Equal(t, 1, reruner.rerunCount, "duplicate observation must not re-trigger the rerun")
}

func TestProcessRelease_NilConsensus(t *testing.T) {
	repo := newFakeEventRepo()
	reruner := &fakeReruner{}
	engine := NewEngine(repo, catalog.NewDefault(), reruner)

	ev := nfpEvent()
	ev.Consensus = nil

	result, err := engine.ProcessRelease(context.Background(), ev, decimal.RequireFromString("180"))
	require.NoError(t, err)

	rel := result.Release
	assert.Equal(t, event.SurpriseFlat, rel.SurpriseDirection)
	assert.Nil(t, rel.SurprisePct)
	assert.Equal(t, 0.0, rel.SurpriseScore)
}

func TestProcessRelease_ZeroConsensus(t *testing.T) {
	repo := newFakeEventRepo()
	engine := NewEngine(repo, catalog.NewDefault(), &fakeReruner{})

	ev := nfpEvent()
	ev.Consensus = dptr("0")

	result, err := engine.ProcessRelease(context.Background(), ev, decimal.RequireFromString("5"))
	require.NoError(t, err)

	rel := result.Release
	assert.Nil(t, rel.SurprisePct, "division by zero consensus must yield null pct")
	assert.True(t, rel.SurpriseRaw.Equal(decimal.RequireFromString("5")))
	assert.Equal(t, event.SurprisePositive, rel.SurpriseDirection,
		"direction depends only on the raw surprise, not on pct")
	assert.Equal(t, 0.0, rel.SurpriseScore)
}

func TestProcessRelease_LowerIsPositive(t *testing.T) {
	repo := newFakeEventRepo()
	engine := NewEngine(repo, catalog.NewDefault(), &fakeReruner{})

	// Unemployment above consensus is unfavorable
	ev := &event.EconomicEvent{
		ID:             uuid.New(),
		Currency:       "USD",
		IndicatorKey:   "us_unemployment",
		ScheduledTime:  time.Now(),
		Consensus:      dptr("4.0"),
		Directionality: indicator.LowerIsPositive,
	}

	result, err := engine.ProcessRelease(context.Background(), ev, decimal.RequireFromString("4.3"))
	require.NoError(t, err)
	assert.Equal(t, event.SurpriseNegative, result.Release.SurpriseDirection)
}

func TestProcessRelease_ScoreClamped(t *testing.T) {
	repo := newFakeEventRepo()
	engine := NewEngine(repo, catalog.NewDefault(), &fakeReruner{})

	// NFP typical surprise is 25 (raw pct units); a massive beat clamps to 1
	ev := nfpEvent()
	result, err := engine.ProcessRelease(context.Background(), ev, decimal.RequireFromString("9000"))
	require.NoError(t, err)
	assert.Equal(t, 1.0, result.Release.SurpriseScore)
}
