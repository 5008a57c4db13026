// Package types contains the JSON shapes shared by the HTTP API, the push
// stream, the terminal dashboard and the probe.
package types

import (
	"time"

	"github.com/okian/kolarena/internal/domain/model"
)

// Update topics.
const (
	TopicAgent       = "agent.updated"
	TopicBlipCreated = "blip.created"
	TopicBlipExpired = "blip.expired"
	TopicChart       = "chart.sample"
	TopicLeaderboard = "leaderboard.ranked"
	TopicFeed        = "feed.post"
)

// Topics lists every topic in publish order.
func Topics() []string {
	return []string{TopicAgent, TopicBlipCreated, TopicBlipExpired, TopicChart, TopicLeaderboard, TopicFeed}
}

// Agent is one tracked entity.
type Agent struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Label      string     `json:"label"`
	Followers  int        `json:"followers"`
	LastDelta  int        `json:"last_delta"`
	LastUpdate *time.Time `json:"last_update,omitempty"`
	Blip       *Blip      `json:"blip,omitempty"`
}

// Blip is an active transient event.
type Blip struct {
	Key          string    `json:"key"`
	Kind         string    `json:"kind"`
	Glyph        string    `json:"glyph"`
	CreatedAt    time.Time `json:"created_at"`
	ExpiresAt    time.Time `json:"expires_at"`
	Seq          uint64    `json:"seq"`
	Choreography string    `json:"choreography,omitempty"`
}

// Sample is one chart point.
type Sample struct {
	Time   time.Time      `json:"time"`
	Label  string         `json:"label"`
	Values map[string]int `json:"values"`
}

// Chart is the full chart window, oldest sample first.
type Chart struct {
	Series  []string `json:"series"`
	Samples []Sample `json:"samples"`
}

// RankEntry is one leaderboard row.
type RankEntry struct {
	Rank      int    `json:"rank"`
	Name      string `json:"name"`
	Followers int    `json:"followers"`
	Change24h int    `json:"change_24h"`
}

// Post is one feed entry.
type Post struct {
	ID        string    `json:"id"`
	Author    string    `json:"author"`
	Source    string    `json:"source"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
	Age       string    `json:"age"`
	Likes     int       `json:"likes"`
	Reposts   int       `json:"reposts"`
	Replies   int       `json:"replies"`
}

// Mover is one trending agent.
type Mover struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Events uint32 `json:"events"`
	Gains  uint32 `json:"gains"`
	Losses uint32 `json:"losses"`
	Net    int    `json:"net"`
}

// Update is one change notification.
type Update struct {
	Topic   string    `json:"topic"`
	Seq     uint64    `json:"seq"`
	At      time.Time `json:"at"`
	Payload any       `json:"payload"`
}

// Stats summarises service state.
type Stats struct {
	Started      bool              `json:"started"`
	Uptime       string            `json:"uptime"`
	Ticks        map[string]uint64 `json:"ticks"`
	TickErrors   map[string]uint64 `json:"tick_errors"`
	Agents       int               `json:"agents"`
	ActiveBlips  int               `json:"active_blips"`
	Removals     int               `json:"pending_removals"`
	WindowLength int               `json:"window_length"`
	LogLength    int               `json:"log_length"`
	Subscribers  int               `json:"subscribers"`
	Published    uint64            `json:"published"`
	Dropped      uint64            `json:"dropped"`
	Choreography string            `json:"choreography"`
}

// FromEntity converts a tracked entity.
func FromEntity(e model.TrackedEntity) Agent {
	a := Agent{ID: e.ID, Name: e.Name, Label: e.Label, Followers: e.Counter, LastDelta: e.LastDelta}
	if !e.LastUpdate.IsZero() {
		t := e.LastUpdate
		a.LastUpdate = &t
	}
	return a
}

// FromEvent converts a transient event.
func FromEvent(ev model.TransientEvent, choreography string) Blip {
	glyph := "-1"
	if ev.Kind == model.KindGain {
		glyph = "+1"
	}
	return Blip{
		Key:          ev.Key,
		Kind:         string(ev.Kind),
		Glyph:        glyph,
		CreatedAt:    ev.CreatedAt,
		ExpiresAt:    ev.ExpiresAt,
		Seq:          ev.Seq,
		Choreography: choreography,
	}
}

// FromSample converts a chart sample.
func FromSample(s model.Sample) Sample {
	s = s.Clone()
	return Sample{Time: s.At, Label: s.Label, Values: s.Values}
}

// FromRanked converts a leaderboard row.
func FromRanked(e model.RankedEntry) RankEntry {
	return RankEntry{Rank: e.Rank, Name: e.Name, Followers: e.Primary, Change24h: e.Secondary}
}

// FromLogEntry converts a feed entry. age is the rendered relative time.
func FromLogEntry(e model.LogEntry, age string) Post {
	return Post{
		ID:        e.ID,
		Author:    e.Author,
		Source:    e.Source,
		Body:      e.Body,
		CreatedAt: e.CreatedAt,
		Age:       age,
		Likes:     e.Reactions.Likes,
		Reposts:   e.Reactions.Reposts,
		Replies:   e.Reactions.Replies,
	}
}
