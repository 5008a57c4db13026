package tui

import (
	"context"
	"strings"
	"testing"
	"time"

	tui "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	app "github.com/okian/kolarena/internal/app"
	"github.com/okian/kolarena/internal/config"
	"github.com/okian/kolarena/internal/domain/types"
	"github.com/okian/kolarena/pkg/logger"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func newTestModel(t *testing.T, opts ...Option) (*Model, *app.Service) {
	t.Helper()
	cfg := config.New()
	cfg.Seed = 42
	svc, err := app.New(app.WithConfig(cfg))
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.Close() })

	m, err := New(context.Background(), svc, opts...)
	require.NoError(t, err)
	t.Cleanup(m.Close)
	return m, svc
}

func runes(s string) tui.KeyMsg {
	return tui.KeyMsg{Type: tui.KeyRunes, Runes: []rune(s)}
}

func TestNewLoadsSnapshot(t *testing.T) {
	m, _ := newTestModel(t)

	view := m.View()
	for _, name := range []string{"CryptoGPT", "GeminiCrypto", "QwenCoin", "GrokCrypto"} {
		assert.Contains(t, view, name)
	}
	assert.Contains(t, view, "Leaderboard")
	assert.Contains(t, view, "graceful")
	assert.Len(t, m.chart.Samples, 21)
	assert.Len(t, m.feed, feedRows)
	assert.Equal(t, "CryptoGPT", m.Focused())
}

func TestUpdateRefreshesFromSource(t *testing.T) {
	m, svc := newTestModel(t)
	ctx := context.Background()

	before := 0
	for _, a := range m.agents {
		before += a.Followers
	}
	require.NoError(t, svc.Advance(ctx, app.SimFollowers))

	next, cmd := m.Update(updateMsg(types.Update{Topic: types.TopicAgent, Seq: 1}))
	assert.Same(t, m, next)
	assert.NotNil(t, cmd)
	assert.EqualValues(t, 1, m.updates)

	after := 0
	for _, a := range m.agents {
		after += a.Followers
	}
	assert.Equal(t, 1, abs(after-before))
}

func TestPauseSuspendsRefresh(t *testing.T) {
	m, svc := newTestModel(t)
	ctx := context.Background()

	m.Update(runes("p"))
	require.True(t, m.Paused())

	oldest := m.chart.Samples[0].Time
	require.NoError(t, svc.Advance(ctx, app.SimChart))
	m.Update(updateMsg(types.Update{Topic: types.TopicChart}))
	assert.Equal(t, oldest, m.chart.Samples[0].Time)
	assert.Contains(t, m.View(), "PAUSED")

	m.Update(runes("p"))
	assert.False(t, m.Paused())
	// The tick evicted the oldest sample.
	assert.NotEqual(t, oldest, m.chart.Samples[0].Time)
}

func TestFocusCycles(t *testing.T) {
	m, _ := newTestModel(t)
	series := m.chart.Series
	require.Len(t, series, 4)

	m.Update(tui.KeyMsg{Type: tui.KeyTab})
	assert.Equal(t, series[1], m.Focused())
	m.Update(tui.KeyMsg{Type: tui.KeyShiftTab})
	m.Update(tui.KeyMsg{Type: tui.KeyShiftTab})
	assert.Equal(t, series[3], m.Focused())
	assert.Contains(t, m.View(), "Followers · "+series[3])
}

func TestQuit(t *testing.T) {
	m, _ := newTestModel(t)
	_, cmd := m.Update(runes("q"))
	require.NotNil(t, cmd)
	assert.IsType(t, tui.QuitMsg{}, cmd())
}

func TestStreamClosed(t *testing.T) {
	m, _ := newTestModel(t)
	_, cmd := m.Update(closedMsg{})
	assert.Nil(t, cmd)
	assert.ErrorIs(t, m.err, ErrStreamClosed)
	assert.Contains(t, m.View(), "update stream closed")
}

func TestWaitForUpdateDeliversHubMessages(t *testing.T) {
	m, svc := newTestModel(t)
	require.NoError(t, svc.Advance(context.Background(), app.SimFeed))

	msg := m.waitForUpdate()()
	u, ok := msg.(updateMsg)
	require.True(t, ok)
	assert.Equal(t, types.TopicFeed, u.Topic)

	m.Close()
	assert.IsType(t, closedMsg{}, m.waitForUpdate()())
}

func TestBlipFrames(t *testing.T) {
	created := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	now := created
	m, _ := newTestModel(t, WithNow(func() time.Time { return now }))

	a := types.Agent{ID: "1", Name: "CryptoGPT", Label: "GPT-4o", Followers: 1235,
		Blip: &types.Blip{Key: "1", Kind: "gain", Glyph: "+1", CreatedAt: created}}

	assert.Contains(t, m.card(a), "+1")

	now = created.Add(m.choreo.Duration)
	assert.NotContains(t, m.card(a), "+1")
	assert.True(t, m.blipFrame(*a.Blip).Done)

	a.Blip = nil
	assert.Contains(t, m.card(a), "1235")
}

func TestResize(t *testing.T) {
	m, _ := newTestModel(t)
	assert.NotPanics(t, func() {
		m.Update(tui.WindowSizeMsg{Width: 160, Height: 50})
		_ = m.View()
		m.Update(tui.WindowSizeMsg{Width: 20, Height: 5})
		_ = m.View()
	})
	assert.Equal(t, 20, m.width)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	got := truncate(strings.Repeat("x", 20), 10)
	assert.Equal(t, 10, len([]rune(got)))
	assert.True(t, strings.HasSuffix(got, "…"))
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
