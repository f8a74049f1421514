package server

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/dremmer8/poker/internal/bots"
	"github.com/dremmer8/poker/internal/engine"
	"github.com/dremmer8/poker/internal/gamesync"
	"github.com/dremmer8/poker/internal/history"
	"github.com/dremmer8/poker/internal/local"
)

var ErrNoSession = errors.New("no active session")

type ConsoleOptions struct {
	Cache   *local.Cache
	Channel gamesync.Channel
	// Archive is the shared game history. Nil keeps history on this device
	// only.
	Archive      history.Archive
	DeviceID     string
	ShuffleSeats bool
}

// Console is the single writer of the active game. Every mutation goes
// through the engine under one lock, is saved to the device cache and then
// published to the sync channel in the background.
type Console struct {
	mu        sync.Mutex
	session   *engine.GameSession
	actionIds map[string]bool

	cache    *local.Cache
	archive  history.Archive
	pub      *publisher
	deviceID string
	shuffle  bool

	now   func() time.Time
	newID func() string
}

func NewConsole(opts ConsoleOptions) *Console {
	return &Console{
		actionIds: map[string]bool{},
		cache:     opts.Cache,
		archive:   opts.Archive,
		pub:       newPublisher(opts.Channel),
		deviceID:  opts.DeviceID,
		shuffle:   opts.ShuffleSeats,
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// Restore picks up the game this device was running, falling back to
// whatever the sync channel holds.
func (c *Console) Restore(ctx context.Context, ch gamesync.Channel) error {
	s, err := c.cache.LoadSession(ctx)
	if err != nil {
		return fmt.Errorf("loading cached session: %w", err)
	}
	if s == nil && ch != nil {
		s, err = ch.LoadSession(ctx)
		if err != nil {
			log.Warn().Err(err).Msg("no shared session to restore")
			s = nil
		}
		if s != nil {
			if err := c.cache.SaveSession(ctx, s); err != nil {
				log.Warn().Err(err).Msg("caching restored session")
			}
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.session = s
	if s != nil {
		log.Info().Str("game", s.ID).Int("round", s.CurrentRound).Str("phase", s.Phase.String()).Msg("session restored")
	}
	return nil
}

// Session returns a copy of the active game, or nil.
func (c *Console) Session() *engine.GameSession {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return nil
	}
	return c.session.Clone()
}

// Apply runs one action. A repeated non-empty actionID is acknowledged
// without being applied again.
func (c *Console) Apply(ctx context.Context, actionID string, a engine.Action) (*engine.GameSession, []Event, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session == nil {
		return nil, nil, ErrNoSession
	}
	if actionID != "" && c.actionIds[actionID] {
		return c.session.Clone(), []Event{}, nil
	}
	if a.At.IsZero() {
		a.At = c.now()
	}

	prev := c.session.Clone()
	if err := engine.ApplyAction(c.session, a); err != nil {
		log.Debug().Err(err).Str("action", a.Type.String()).Str("player", a.Player).Msg("action rejected")
		return nil, nil, err
	}
	if actionID != "" {
		c.actionIds[actionID] = true
	}
	events := buildEvents(prev, c.session, a)

	switch a.Type {
	case engine.ActionAddPlayer, engine.ActionRemovePlayer:
		c.saveRoster(ctx)
		warnDefaultStages(c.session)
	case engine.ActionSetDeckSize:
		if err := c.cache.SaveDeckSize(ctx, c.session.DeckSize); err != nil {
			log.Warn().Err(err).Msg("caching deck size")
		}
		warnDefaultStages(c.session)
	}

	if c.session.Phase == engine.PhaseFinished && prev.Phase != engine.PhaseFinished {
		log.Info().Str("game", c.session.ID).Str("winner", c.session.Winner).Msg("game finished")
		c.pub.save(c.session)
		c.finishLocked(ctx, false)
	} else {
		c.persistLocked(ctx)
	}
	return c.session.Clone(), events, nil
}

func warnDefaultStages(s *engine.GameSession) {
	if s.UsesDefaultStages() {
		log.Warn().Str("game", s.ID).Int("players", len(s.Players)).Int("deck", s.DeckSize).Msg("no built-in stage config, using default")
	}
}

func (c *Console) saveRoster(ctx context.Context) {
	if err := c.cache.SavePlayers(ctx, c.session.Players); err != nil {
		log.Warn().Err(err).Msg("caching roster")
	}
}

// persistLocked writes the device copy and queues the shared one. The
// device copy is authoritative, so neither failure is returned.
func (c *Console) persistLocked(ctx context.Context) {
	if err := c.cache.SaveSession(ctx, c.session); err != nil {
		log.Warn().Err(err).Str("game", c.session.ID).Msg("caching session")
	}
	c.pub.save(c.session)
}

// finishLocked archives the active game and clears it from active
// storage. The in-memory session stays so the console can show the result.
func (c *Console) finishLocked(ctx context.Context, premature bool) {
	rec := history.FromSession(c.session, premature, c.now())
	rec.DeviceID = c.deviceID

	if err := c.cache.AppendHistory(ctx, rec); err != nil {
		log.Warn().Err(err).Str("game", rec.ID).Msg("archiving game locally")
	}
	if c.archive != nil {
		err := c.archive.Save(ctx, rec)
		if err != nil && !errors.Is(err, history.ErrDuplicateRecord) {
			log.Warn().Err(err).Str("game", rec.ID).Msg("archiving game")
		}
	}
	if err := c.cache.ClearSession(ctx); err != nil {
		log.Warn().Err(err).Msg("clearing cached session")
	}
	c.pub.clear()
}

func hasScores(s *engine.GameSession) bool {
	for _, v := range s.Scores {
		if v != 0 {
			return true
		}
	}
	return false
}

// NewGame replaces the active game with a fresh one in setup. A game left
// unfinished with points on the board is archived as ended early. Empty
// request fields fall back to the cached roster and deck size.
func (c *Console) NewGame(ctx context.Context, req NewGameRequest) (*engine.GameSession, error) {
	players := req.Players
	if len(players) == 0 {
		cached, err := c.cache.LoadPlayers(ctx)
		if err != nil {
			return nil, err
		}
		players = cached
	}
	deck := req.DeckSize
	if deck == 0 {
		cached, err := c.cache.LoadDeckSize(ctx)
		if err != nil {
			return nil, err
		}
		deck = cached
	}
	_, custom, err := c.cache.LoadCustomStages(ctx)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.shuffle {
		players = engine.ShuffleSeats(players, c.now().UnixNano())
	}
	next, err := engine.NewSession(c.newID(), players, deck, custom, c.now())
	if err != nil {
		return nil, err
	}
	if req.Start {
		if err := engine.ApplyAction(next, engine.Action{Type: engine.ActionStart, At: c.now()}); err != nil {
			return nil, err
		}
	}

	if c.session != nil && c.session.Phase != engine.PhaseFinished && hasScores(c.session) {
		log.Info().Str("game", c.session.ID).Int("round", c.session.CurrentRound).Msg("archiving unfinished game")
		c.finishLocked(ctx, true)
	}

	c.session = next
	c.actionIds = map[string]bool{}
	c.saveRoster(ctx)
	if err := c.cache.SaveDeckSize(ctx, next.DeckSize); err != nil {
		log.Warn().Err(err).Msg("caching deck size")
	}
	c.persistLocked(ctx)
	log.Info().Str("game", next.ID).Strs("players", next.Players).Int("deck", next.DeckSize).Msg("new game")
	warnDefaultStages(next)
	return next.Clone(), nil
}

// Reset zeroes the active game in place without archiving it.
func (c *Console) Reset(ctx context.Context) (*engine.GameSession, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return nil, ErrNoSession
	}
	next, err := engine.Reset(c.session, c.newID(), c.now())
	if err != nil {
		return nil, err
	}
	c.session = next
	c.actionIds = map[string]bool{}
	c.persistLocked(ctx)
	return next.Clone(), nil
}

// Stages describes the stage config the next (or unlocked current) game
// plays with.
func (c *Console) Stages(ctx context.Context) (StagesView, error) {
	preset, custom, err := c.cache.LoadCustomStages(ctx)
	if err != nil {
		return StagesView{}, err
	}
	c.mu.Lock()
	s := c.session
	players, deck := 0, 0
	if s != nil {
		players, deck = len(s.Players), s.DeckSize
		if s.IsLocked {
			custom = s.CustomStages
		}
	}
	c.mu.Unlock()

	if s == nil {
		roster, err := c.cache.LoadPlayers(ctx)
		if err != nil {
			return StagesView{}, err
		}
		if deck, err = c.cache.LoadDeckSize(ctx); err != nil {
			return StagesView{}, err
		}
		players = len(roster)
	}
	return BuildStagesView(preset, custom, players, deck), nil
}

func (c *Console) SetCustomStages(ctx context.Context, stages []engine.StageType) (StagesView, error) {
	if len(stages) == 0 {
		return c.ResetStages(ctx)
	}
	return c.saveStages(ctx, engine.PresetCustom, stages)
}

func (c *Console) LoadPreset(ctx context.Context, name string) (StagesView, error) {
	stages, err := engine.PresetStages(name)
	if err != nil {
		return StagesView{}, err
	}
	if len(stages) == 0 {
		return c.ResetStages(ctx)
	}
	return c.saveStages(ctx, name, stages)
}

func (c *Console) ResetStages(ctx context.Context) (StagesView, error) {
	if err := c.cache.ResetCustomStages(ctx); err != nil {
		return StagesView{}, err
	}
	c.applyStages(ctx, nil)
	return c.Stages(ctx)
}

func (c *Console) saveStages(ctx context.Context, preset string, stages []engine.StageType) (StagesView, error) {
	if err := c.cache.SaveCustomStages(ctx, preset, stages); err != nil {
		return StagesView{}, err
	}
	c.applyStages(ctx, stages)
	return c.Stages(ctx)
}

// applyStages carries a stage edit into the active game while its layout
// is still open, that is before the first round closes.
func (c *Console) applyStages(ctx context.Context, stages []engine.StageType) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil || c.session.IsLocked || c.session.Phase == engine.PhaseFinished {
		return
	}
	c.session.CustomStages = append([]engine.StageType(nil), stages...)
	c.session.ResolveStages()
	warnDefaultStages(c.session)
	c.persistLocked(ctx)
}

// History lists archived games, newest first. The shared archive is
// preferred; the device list is used when it is missing or unreachable.
func (c *Console) History(ctx context.Context, criteria history.Criteria) ([]history.Record, error) {
	if c.archive != nil {
		records, err := c.archive.List(ctx, criteria)
		if err == nil {
			return records, nil
		}
		log.Warn().Err(err).Msg("shared history unavailable, using device history")
	}
	records, err := c.cache.LoadHistory(ctx)
	if err != nil {
		return nil, err
	}
	return history.Search(records, criteria), nil
}

// SuggestBid proposes a bid for player that keeps the round total off the
// hand size.
func (c *Console) SuggestBid(player string) (engine.Action, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return engine.Action{}, ErrNoSession
	}
	if c.session.Phase != engine.PhaseBidding {
		return engine.Action{}, engine.ErrWrongPhase
	}
	if !c.session.HasPlayer(player) {
		return engine.Action{}, fmt.Errorf("%w: %q", engine.ErrUnknownPlayer, player)
	}
	bot := bots.NewNormal(c.now().UnixNano())
	return bot.ChooseAction(*c.session, player), nil
}

// Flush waits for queued channel writes.
func (c *Console) Flush() {
	c.pub.flush()
}
