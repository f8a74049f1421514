// Package local keeps the per-device state that survives restarts: the game
// in progress, the last roster, deck size, custom stages and archived games.
package local

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dremmer8/poker/internal/engine"
	"github.com/dremmer8/poker/internal/gamesync"
	"github.com/dremmer8/poker/internal/history"
	"github.com/dremmer8/poker/internal/store"
)

const (
	keyCurrentGame  = "local/currentGame"
	keyPlayers      = "local/players"
	keyDeckSize     = "local/deckSize"
	keyCustomStages = "local/customStages"
	keyHistory      = "local/gameHistory"
)

type Cache struct {
	docs store.Documents
}

func NewCache(docs store.Documents) *Cache {
	return &Cache{docs: docs}
}

func (c *Cache) getJSON(ctx context.Context, key string, v any) (bool, error) {
	body, err := c.docs.Get(ctx, key)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

func (c *Cache) setJSON(ctx context.Context, key string, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.docs.Set(ctx, key, body)
}

func (c *Cache) SaveSession(ctx context.Context, s *engine.GameSession) error {
	body, err := gamesync.Encode(s)
	if err != nil {
		return err
	}
	return c.docs.Set(ctx, keyCurrentGame, body)
}

// LoadSession returns nil when no game is cached.
func (c *Cache) LoadSession(ctx context.Context) (*engine.GameSession, error) {
	body, err := c.docs.Get(ctx, keyCurrentGame)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return gamesync.Decode(body)
}

func (c *Cache) ClearSession(ctx context.Context) error {
	return c.docs.Delete(ctx, keyCurrentGame)
}

func (c *Cache) SavePlayers(ctx context.Context, players []string) error {
	return c.setJSON(ctx, keyPlayers, players)
}

func (c *Cache) LoadPlayers(ctx context.Context) ([]string, error) {
	var players []string
	if _, err := c.getJSON(ctx, keyPlayers, &players); err != nil {
		return nil, err
	}
	return players, nil
}

func (c *Cache) SaveDeckSize(ctx context.Context, n int) error {
	return c.setJSON(ctx, keyDeckSize, n)
}

// LoadDeckSize falls back to the 36-card deck.
func (c *Cache) LoadDeckSize(ctx context.Context) (int, error) {
	n := engine.DefaultDeckSize
	if _, err := c.getJSON(ctx, keyDeckSize, &n); err != nil {
		return engine.DefaultDeckSize, err
	}
	if !engine.ValidDeckSize(n) {
		return engine.DefaultDeckSize, nil
	}
	return n, nil
}

type customStagesDoc struct {
	Preset string   `json:"preset"`
	Stages []string `json:"stages"`
}

func (c *Cache) SaveCustomStages(ctx context.Context, preset string, stages []engine.StageType) error {
	doc := customStagesDoc{Preset: preset, Stages: []string{}}
	for _, t := range stages {
		doc.Stages = append(doc.Stages, string(t))
	}
	return c.setJSON(ctx, keyCustomStages, doc)
}

// LoadCustomStages returns the saved preset name and stage list. Unknown
// stage names are dropped. No saved stages means the default preset.
func (c *Cache) LoadCustomStages(ctx context.Context) (string, []engine.StageType, error) {
	var doc customStagesDoc
	ok, err := c.getJSON(ctx, keyCustomStages, &doc)
	if err != nil || !ok {
		return engine.PresetDefault, nil, err
	}
	var stages []engine.StageType
	for _, name := range doc.Stages {
		if t, err := engine.ParseStageType(name); err == nil {
			stages = append(stages, t)
		}
	}
	if doc.Preset == "" {
		doc.Preset = engine.PresetCustom
	}
	return doc.Preset, stages, nil
}

func (c *Cache) ResetCustomStages(ctx context.Context) error {
	return c.docs.Delete(ctx, keyCustomStages)
}

// AppendHistory stores a finished game, newest first.
func (c *Cache) AppendHistory(ctx context.Context, r history.Record) error {
	records, err := c.LoadHistory(ctx)
	if err != nil {
		return err
	}
	records = append([]history.Record{r}, records...)
	return c.setJSON(ctx, keyHistory, records)
}

func (c *Cache) LoadHistory(ctx context.Context) ([]history.Record, error) {
	records := []history.Record{}
	if _, err := c.getJSON(ctx, keyHistory, &records); err != nil {
		return nil, err
	}
	return records, nil
}
