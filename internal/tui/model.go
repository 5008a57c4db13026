// Package tui renders the arena in a terminal.
//
// The model holds a hub subscription and re-reads every widget snapshot
// when an update arrives. Transient events are drawn frame by frame from
// the active choreography between updates.
package tui

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tui "github.com/charmbracelet/bubbletea"
	styles "github.com/charmbracelet/lipgloss"
	plot "github.com/chriskim06/drawille-go"

	"github.com/okian/kolarena/internal/adapters/broadcast"
	"github.com/okian/kolarena/internal/domain/blip"
	"github.com/okian/kolarena/internal/domain/model"
	"github.com/okian/kolarena/internal/domain/types"
	"github.com/okian/kolarena/pkg/logger"
)

const (
	defaultWidth  = 100
	defaultHeight = 32
	cardWidth     = 22
	frameRate     = 15
	feedRows      = 5
	moverRows     = 4
)

// ErrStreamClosed is reported when the update subscription ends.
var ErrStreamClosed = errors.New("update stream closed")

// Source is the read side of the arena service.
type Source interface {
	Agents(ctx context.Context) []types.Agent
	Chart(ctx context.Context) types.Chart
	Leaderboard(ctx context.Context, limit int) []types.RankEntry
	Feed(ctx context.Context, limit int) []types.Post
	Movers(ctx context.Context, limit int) []types.Mover
	Choreography() blip.Choreography
	Subscribe(topics ...string) (*broadcast.Subscription, error)
}

type (
	updateMsg types.Update
	closedMsg struct{}
	frameMsg  time.Time
)

// Option configures a Model.
type Option func(*Model)

// WithNow overrides the clock used to draw transient events.
func WithNow(now func() time.Time) Option {
	return func(m *Model) {
		if now != nil {
			m.now = now
		}
	}
}

// WithLogger sets the model logger.
func WithLogger(l logger.Logger) Option {
	return func(m *Model) {
		if l != nil {
			m.logger = l
		}
	}
}

// Model is the bubbletea model for the arena.
type Model struct {
	ctx    context.Context
	src    Source
	sub    *broadcast.Subscription
	choreo blip.Choreography
	now    func() time.Time
	logger logger.Logger

	agents []types.Agent
	chart  types.Chart
	feed   []types.Post
	movers []types.Mover

	board    list.Model
	help     help.Model
	plot     *plot.Canvas
	plotData [][]float64

	width, height int
	focus         int
	paused        bool
	updates       uint64
	err           error
}

// New subscribes to src and loads the first snapshot.
func New(ctx context.Context, src Source, opts ...Option) (*Model, error) {
	sub, err := src.Subscribe()
	if err != nil {
		return nil, fmt.Errorf("tui: %w", err)
	}

	d := list.NewDefaultDelegate()
	d.Styles.SelectedTitle = styles.NewStyle().
		Border(styles.NormalBorder(), false, false, false, true).
		BorderForeground(colorTitle).
		Foreground(colorTitle).
		Padding(0, 0, 0, 1)
	d.Styles.SelectedDesc = d.Styles.SelectedTitle.Foreground(colorFg)
	d.ShowDescription = true

	l := list.New(nil, d, defaultWidth/3, defaultHeight/2)
	l.SetShowHelp(false)
	l.SetShowTitle(false)
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)

	m := &Model{
		ctx:    ctx,
		src:    src,
		sub:    sub,
		choreo: src.Choreography(),
		now:    time.Now,
		board:  l,
		help:   help.New(),
		width:  defaultWidth,
		height: defaultHeight,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.logger == nil {
		m.logger = logger.Get().Named("tui")
	}
	m.refresh()
	m.resize(m.width, m.height)
	return m, nil
}

// Close releases the subscription.
func (m *Model) Close() { m.sub.Close() }

func (m *Model) waitForUpdate() tui.Cmd {
	return func() tui.Msg {
		u, ok := <-m.sub.C
		if !ok {
			return closedMsg{}
		}
		return updateMsg(u)
	}
}

func frameTick() tui.Cmd {
	return tui.Tick(time.Second/frameRate, func(t time.Time) tui.Msg { return frameMsg(t) })
}

func (m *Model) Init() tui.Cmd {
	return tui.Batch(m.waitForUpdate(), frameTick())
}

func (m *Model) Update(msg tui.Msg) (tui.Model, tui.Cmd) {
	switch msg := msg.(type) {
	case updateMsg:
		m.updates++
		if !m.paused {
			m.refresh()
		}
		return m, m.waitForUpdate()
	case closedMsg:
		m.err = ErrStreamClosed
		return m, nil
	case frameMsg:
		return m, frameTick()
	case tui.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil
	case tui.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			return m, tui.Quit
		case key.Matches(msg, keys.Pause):
			m.paused = !m.paused
			if !m.paused {
				m.refresh()
			}
			return m, nil
		case key.Matches(msg, keys.Next):
			m.cycleFocus(1)
			return m, nil
		case key.Matches(msg, keys.Prev):
			m.cycleFocus(-1)
			return m, nil
		case key.Matches(msg, keys.Help):
			m.help.ShowAll = !m.help.ShowAll
			return m, nil
		}
	}
	var cmd tui.Cmd
	m.board, cmd = m.board.Update(msg)
	return m, cmd
}

// refresh re-reads every widget from the source.
func (m *Model) refresh() {
	m.agents = m.src.Agents(m.ctx)
	m.chart = m.src.Chart(m.ctx)
	m.feed = m.src.Feed(m.ctx, feedRows)
	m.movers = m.src.Movers(m.ctx, moverRows)

	entries := m.src.Leaderboard(m.ctx, 0)
	var selected string
	if it, ok := m.board.SelectedItem().(rankItem); ok {
		selected = it.Name
	}
	items := make([]list.Item, len(entries))
	for i, e := range entries {
		items[i] = rankItem(e)
	}
	m.board.SetItems(items)
	// Keep the cursor on the same agent across re-ranks.
	for i, e := range entries {
		if e.Name == selected {
			m.board.Select(i)
			break
		}
	}
	if n := len(m.chart.Series); n > 0 && m.focus >= n {
		m.focus = 0
	}
	m.fillPlot()
}

func (m *Model) cycleFocus(step int) {
	n := len(m.chart.Series)
	if n == 0 {
		return
	}
	m.focus = ((m.focus+step)%n + n) % n
	m.fillPlot()
}

func (m *Model) resize(w, h int) {
	m.width, m.height = w, h
	boardW := max(24, w/3)
	plotW := max(20, w-boardW-6)
	plotH := max(6, h/3)
	m.board.SetSize(boardW, plotH)
	p := plot.NewCanvas(plotW, plotH)
	p.ShowAxis = false
	m.plot = &p
	m.help.Width = w
	m.fillPlot()
}

// fillPlot loads the chart window into the canvas with the focused series
// drawn last so it stays on top.
func (m *Model) fillPlot() {
	if m.plot == nil || len(m.chart.Series) == 0 {
		return
	}
	n := len(m.chart.Series)
	order := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		order = append(order, m.chart.Series[(m.focus+i)%n])
	}

	if len(m.plotData) != n {
		m.plotData = make([][]float64, n)
	}
	colors := make([]plot.Color, n)
	for i, name := range order {
		series := m.plotData[i][:0]
		for _, s := range m.chart.Samples {
			series = append(series, float64(s.Values[name]))
		}
		m.plotData[i] = series
		colors[i] = plot.DimGray
	}
	colors[n-1] = plot.Red
	m.plot.NumDataPoints = len(m.chart.Samples)
	m.plot.LineColors = colors
	m.plot.Fill(m.plotData)
}

// Focused returns the highlighted chart series.
func (m *Model) Focused() string {
	if len(m.chart.Series) == 0 {
		return ""
	}
	return m.chart.Series[m.focus]
}

// Paused reports whether snapshot refreshes are suspended.
func (m *Model) Paused() bool { return m.paused }

func (m *Model) View() string {
	header := titleStyle.Render("KOL Arena") + dimStyle.Render(fmt.Sprintf("  %s · %d updates", m.choreo.Name, m.updates))
	if m.paused {
		header += "  " + errStyle.Render("PAUSED")
	}

	cards := make([]string, 0, len(m.agents))
	for _, a := range m.agents {
		cards = append(cards, m.card(a))
	}
	agents := styles.JoinHorizontal(styles.Top, cards...)

	chartTitle := "Followers"
	if f := m.Focused(); f != "" {
		chartTitle += " · " + f
	}
	var labels string
	if n := len(m.chart.Samples); n > 0 {
		labels = dimStyle.Render(m.chart.Samples[0].Label + " … " + m.chart.Samples[n-1].Label)
	}
	chart := panelStyle.Render(styles.JoinVertical(styles.Left, titleStyle.Render(chartTitle), m.plot.String(), labels))
	board := panelStyle.Render(styles.JoinVertical(styles.Left, titleStyle.Render("Leaderboard"), m.board.View()))
	middle := styles.JoinHorizontal(styles.Top, chart, board)

	bottom := styles.JoinHorizontal(styles.Top,
		panelStyle.Render(m.feedView()),
		panelStyle.Render(m.moversView()),
	)

	parts := []string{header, agents, middle, bottom}
	if m.err != nil {
		parts = append(parts, errStyle.Render("ERROR: "+m.err.Error()))
	}
	parts = append(parts, m.help.View(keys))
	return styles.JoinVertical(styles.Left, parts...)
}

// card draws one agent with its transient event, if any.
func (m *Model) card(a types.Agent) string {
	style := cardStyle
	glyph := " "
	if a.Blip != nil {
		f := m.blipFrame(*a.Blip)
		if !f.Done {
			c := styles.Color(f.Color)
			if slices.ContainsFunc(f.Phases, borderPhase) {
				style = style.BorderForeground(c)
			}
			if slices.Contains(f.Phases, "float") {
				glyph = styles.NewStyle().Foreground(c).Bold(true).Render(f.Glyph)
			}
		}
	}
	head := fgStyle.Bold(true).Render(a.Name)
	pad := cardWidth - 2 - styles.Width(head) - styles.Width(glyph)
	if pad < 1 {
		pad = 1
	}
	body := []string{
		head + strings.Repeat(" ", pad) + glyph,
		dimStyle.Render(a.Label),
		fgStyle.Render(strconv.Itoa(a.Followers)) + " " + signed(a.LastDelta),
	}
	return style.Render(strings.Join(body, "\n"))
}

func borderPhase(name string) bool {
	switch name {
	case "glow", "border-pulse", "ring", "flash":
		return true
	}
	return false
}

func (m *Model) blipFrame(b types.Blip) blip.Frame {
	return m.choreo.Frame(model.EventKind(b.Kind), m.now().Sub(b.CreatedAt))
}

func (m *Model) feedView() string {
	lines := []string{titleStyle.Render("Feed")}
	for _, p := range m.feed {
		lines = append(lines,
			fgStyle.Bold(true).Render(p.Author)+dimStyle.Render(" · "+p.Source+" · "+p.Age),
			fgStyle.Render(truncate(p.Body, m.width/2)),
			dimStyle.Render(fmt.Sprintf("♥ %d  ⟳ %d  ↩ %d", p.Likes, p.Reposts, p.Replies)),
		)
	}
	return strings.Join(lines, "\n")
}

func (m *Model) moversView() string {
	lines := []string{titleStyle.Render("Trending")}
	if len(m.movers) == 0 {
		lines = append(lines, dimStyle.Render("quiet"))
	}
	for _, mv := range m.movers {
		lines = append(lines, fmt.Sprintf("%-14s %3d  %s", mv.Name, mv.Events, signed(mv.Net)))
	}
	return strings.Join(lines, "\n")
}

func truncate(s string, n int) string {
	if n < 4 {
		n = 4
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func itoa(v int) string { return strconv.Itoa(v) }

type rankItem types.RankEntry

func (i rankItem) Title() string { return fmt.Sprintf("#%d %s", i.Rank, i.Name) }
func (i rankItem) Description() string {
	return fmt.Sprintf("%d followers  24h %+d", i.Followers, i.Change24h)
}
func (i rankItem) FilterValue() string { return i.Name }
