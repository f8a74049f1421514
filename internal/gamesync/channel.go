package gamesync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dremmer8/poker/internal/engine"
	"github.com/dremmer8/poker/internal/store"
)

// SessionKey is the single shared slot every device reads and writes.
const SessionKey = "globalSession/currentGame"

var ErrSyncUnavailable = errors.New("sync channel unavailable")

type Unsubscribe func()

// ChangeFunc receives the latest session, or nil when the slot was
// cleared. A non-nil err means the channel is unreachable; the session is
// nil in that case.
type ChangeFunc func(s *engine.GameSession, err error)

type Channel interface {
	SaveSession(ctx context.Context, s *engine.GameSession) error
	LoadSession(ctx context.Context) (*engine.GameSession, error)
	Subscribe(ctx context.Context, onChange ChangeFunc) (Unsubscribe, error)
	ClearSession(ctx context.Context) error
}

// DocumentChannel implements Channel on a document store. Writes are last
// writer wins; each payload is stamped with the writing device.
type DocumentChannel struct {
	docs     store.Documents
	deviceID string
	now      func() time.Time
}

func NewDocumentChannel(docs store.Documents, deviceID string) *DocumentChannel {
	return &DocumentChannel{docs: docs, deviceID: deviceID, now: time.Now}
}

func unavailable(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrSyncUnavailable, err)
}

func (c *DocumentChannel) SaveSession(ctx context.Context, s *engine.GameSession) error {
	snap := FromSession(s)
	snap.LastUpdated = formatTime(c.now())
	snap.DeviceID = c.deviceID
	body, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	if err := c.docs.Set(ctx, SessionKey, body); err != nil {
		return unavailable(err)
	}
	return nil
}

func (c *DocumentChannel) LoadSession(ctx context.Context) (*engine.GameSession, error) {
	body, err := c.docs.Get(ctx, SessionKey)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, unavailable(err)
	}
	return Decode(body)
}

func (c *DocumentChannel) ClearSession(ctx context.Context) error {
	if err := c.docs.Delete(ctx, SessionKey); err != nil {
		return unavailable(err)
	}
	return nil
}

func (c *DocumentChannel) Subscribe(ctx context.Context, onChange ChangeFunc) (Unsubscribe, error) {
	cancel, err := c.docs.Watch(ctx, SessionKey, func(body []byte, err error) {
		switch {
		case errors.Is(err, store.ErrNotFound):
			onChange(nil, nil)
		case err != nil:
			onChange(nil, unavailable(err))
		default:
			s, derr := Decode(body)
			if derr != nil {
				log.Warn().Err(derr).Msg("ignoring unreadable session snapshot")
				return
			}
			onChange(s, nil)
		}
	})
	if err != nil {
		return nil, unavailable(err)
	}
	return Unsubscribe(cancel), nil
}
