package server

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/dremmer8/poker/internal/auth"
	"github.com/dremmer8/poker/internal/engine"
	"github.com/dremmer8/poker/internal/gamesync"
	"github.com/dremmer8/poker/internal/history"
	"github.com/dremmer8/poker/internal/store"
	"github.com/dremmer8/poker/internal/visualizer"
)

type Server struct {
	console  *Console
	observer *visualizer.Observer
	gate     *auth.Gate

	// WSRate limits inbound websocket messages per connection.
	WSRate  rate.Limit
	WSBurst int
	// StaticDir holds the built frontend; empty disables it.
	StaticDir string
}

func NewServer(console *Console, observer *visualizer.Observer, gate *auth.Gate) *Server {
	return &Server{
		console:  console,
		observer: observer,
		gate:     gate,
		WSRate:   2,
		WSBurst:  5,
	}
}

// CreateServer builds the router. Requests carrying an Origin outside
// allowedOrigins are refused before any route runs.
func (s *Server) CreateServer(allowedOrigins []string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.Use(func(ctx *gin.Context) {
		origin := ctx.Request.Header.Get("Origin")
		if origin == "" || slices.Contains(allowedOrigins, origin) {
			ctx.Next()
			return
		}
		ctx.JSON(http.StatusForbidden, gin.H{"error": "forbidden-origin"})
		ctx.Abort()
	})

	r.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowCredentials: true,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE"},
		AllowHeaders:     []string{"Content-Type", "Origin", "Authorization"},
	}))

	r.POST("/console/login", s.gate.LoginHandler)
	r.POST("/console/logout", s.gate.LogoutHandler)

	api := r.Group("/api")
	api.GET("/session", s.getSession)
	api.GET("/view", s.getView)
	api.GET("/stages", s.getStages)
	api.GET("/history", s.getHistory)
	api.GET("/history/stats", s.getHistoryStats)
	api.GET("/players/:name/stats", s.getPlayerStats)

	console := api.Group("", s.gate.RequireConsole())
	console.POST("/session/new", s.newGame)
	console.POST("/session/reset", s.resetGame)
	console.POST("/session/actions", s.applyAction)
	console.GET("/session/suggest/:player", s.suggestBid)
	console.PUT("/stages", s.putStages)
	console.POST("/stages/preset/:name", s.loadPreset)
	console.DELETE("/stages", s.resetStages)

	r.GET("/ws", s.wsHandler)

	if s.StaticDir != "" {
		r.NoRoute(s.serveStatic)
	}
	return r
}

// serveStatic serves the frontend build with SPA fallback.
func (s *Server) serveStatic(ctx *gin.Context) {
	if ctx.Request.Method != http.MethodGet {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "not-found"})
		return
	}
	path := filepath.Join(s.StaticDir, filepath.Clean("/"+ctx.Request.URL.Path))
	if info, err := os.Stat(path); err == nil && !info.IsDir() {
		ctx.File(path)
		return
	}
	ctx.File(filepath.Join(s.StaticDir, "index.html"))
}

type errorCode struct {
	err    error
	status int
	code   string
}

var errorCodes = []errorCode{
	{ErrNoSession, http.StatusNotFound, "no-session"},
	{engine.ErrUnknownPlayer, http.StatusNotFound, "unknown-player"},
	{engine.ErrWrongPhase, http.StatusConflict, "wrong-phase"},
	{engine.ErrLocked, http.StatusConflict, "locked"},
	{engine.ErrDuplicatePlayer, http.StatusConflict, "duplicate-player"},
	{engine.ErrInvalidPlayerName, http.StatusBadRequest, "invalid-player-name"},
	{engine.ErrTooFewPlayers, http.StatusBadRequest, "too-few-players"},
	{engine.ErrNegativeValue, http.StatusBadRequest, "negative-value"},
	{engine.ErrBlindNotAllowed, http.StatusBadRequest, "blind-not-allowed"},
	{engine.ErrUnknownAction, http.StatusBadRequest, "unknown-action"},
	{engine.ErrUnknownSpecialGame, http.StatusBadRequest, "unknown-special-game"},
	{engine.ErrUnknownStageType, http.StatusBadRequest, "unknown-stage-type"},
	{engine.ErrInvalidDeckSize, http.StatusBadRequest, "invalid-deck-size"},
	{engine.ErrInvalidStages, http.StatusBadRequest, "invalid-stages"},
	{engine.ErrRoundOutOfRange, http.StatusConflict, "round-out-of-range"},
	{errBadAction, http.StatusBadRequest, "bad-action"},
	{gamesync.ErrSyncUnavailable, http.StatusServiceUnavailable, "sync-unavailable"},
	{store.ErrUnexpectedDatabase, http.StatusServiceUnavailable, "storage-unavailable"},
	{history.ErrUnexpectedDatabase, http.StatusServiceUnavailable, "storage-unavailable"},
}

func writeError(ctx *gin.Context, err error) {
	var bidErr *engine.BidError
	if errors.As(err, &bidErr) {
		ctx.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{
			"error":  "validation-rejected",
			"reason": bidErr.Reason.String(),
			"player": bidErr.Player,
			"total":  bidErr.Total,
			"limit":  bidErr.Limit,
		})
		return
	}
	var sumErr *engine.TrickSumError
	if errors.As(err, &sumErr) {
		ctx.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{
			"error": "trick-sum-mismatch",
			"got":   sumErr.Got,
			"want":  sumErr.Want,
		})
		return
	}
	for _, ec := range errorCodes {
		if errors.Is(err, ec.err) {
			ctx.AbortWithStatusJSON(ec.status, gin.H{"error": ec.code, "message": err.Error()})
			return
		}
	}
	log.Error().Err(err).Str("path", ctx.FullPath()).Msg("request failed")
	ctx.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "unknown-error"})
}

func badRequest(ctx *gin.Context) {
	ctx.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "bad-request-format"})
}

func (s *Server) getSession(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{"session": BuildSessionView(s.console.Session())})
}

func (s *Server) getView(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, s.observer.Display())
}

func (s *Server) newGame(ctx *gin.Context) {
	var req NewGameRequest
	if ctx.Request.ContentLength != 0 {
		if err := ctx.ShouldBindJSON(&req); err != nil {
			badRequest(ctx)
			return
		}
	}
	session, err := s.console.NewGame(ctx.Request.Context(), req)
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, gin.H{"session": BuildSessionView(session)})
}

func (s *Server) resetGame(ctx *gin.Context) {
	session, err := s.console.Reset(ctx.Request.Context())
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"session": BuildSessionView(session)})
}

func (s *Server) applyAction(ctx *gin.Context) {
	var req ActionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx)
		return
	}
	action, err := req.Action.ToEngine()
	if err != nil {
		writeError(ctx, err)
		return
	}
	session, events, err := s.console.Apply(ctx.Request.Context(), req.ActionID, action)
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"session": BuildSessionView(session), "events": events})
}

func (s *Server) suggestBid(ctx *gin.Context) {
	action, err := s.console.SuggestBid(ctx.Param("player"))
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"action": ActionFromEngine(action)})
}

func (s *Server) getStages(ctx *gin.Context) {
	view, err := s.console.Stages(ctx.Request.Context())
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, view)
}

func (s *Server) putStages(ctx *gin.Context) {
	var req StagesRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx)
		return
	}
	stages, err := parseStageTypes(req.Stages)
	if err != nil {
		writeError(ctx, err)
		return
	}
	view, err := s.console.SetCustomStages(ctx.Request.Context(), stages)
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, view)
}

func (s *Server) loadPreset(ctx *gin.Context) {
	view, err := s.console.LoadPreset(ctx.Request.Context(), ctx.Param("name"))
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, view)
}

func (s *Server) resetStages(ctx *gin.Context) {
	view, err := s.console.ResetStages(ctx.Request.Context())
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, view)
}

type historyQuery struct {
	Player    string    `form:"player"`
	Winner    string    `form:"winner"`
	Premature *bool     `form:"premature"`
	Since     time.Time `form:"since" time_format:"2006-01-02T15:04:05Z07:00"`
	Until     time.Time `form:"until" time_format:"2006-01-02T15:04:05Z07:00"`
	Limit     int       `form:"limit" binding:"gte=0"`
}

func (q historyQuery) criteria() history.Criteria {
	return history.Criteria{
		Player:    q.Player,
		Winner:    q.Winner,
		Premature: q.Premature,
		Since:     q.Since,
		Until:     q.Until,
		Limit:     q.Limit,
	}
}

func (s *Server) records(ctx *gin.Context) ([]history.Record, bool) {
	var q historyQuery
	if err := ctx.ShouldBindQuery(&q); err != nil {
		badRequest(ctx)
		return nil, false
	}
	records, err := s.console.History(ctx.Request.Context(), q.criteria())
	if err != nil {
		writeError(ctx, err)
		return nil, false
	}
	return records, true
}

func (s *Server) getHistory(ctx *gin.Context) {
	records, ok := s.records(ctx)
	if !ok {
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"games": records})
}

type gameStatsView struct {
	ID    string                 `json:"id"`
	Stats history.GameStatistics `json:"stats"`
}

func (s *Server) getHistoryStats(ctx *gin.Context) {
	records, ok := s.records(ctx)
	if !ok {
		return
	}
	games := make([]gameStatsView, 0, len(records))
	for _, r := range records {
		games = append(games, gameStatsView{ID: r.ID, Stats: history.GameStats(r)})
	}
	ctx.JSON(http.StatusOK, gin.H{"players": history.PlayerStats(records), "games": games})
}

func (s *Server) getPlayerStats(ctx *gin.Context) {
	records, err := s.console.History(ctx.Request.Context(), history.Criteria{})
	if err != nil {
		writeError(ctx, err)
		return
	}
	stats, ok := history.PlayerStat(records, ctx.Param("name"))
	if !ok {
		ctx.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "unknown-player"})
		return
	}
	ctx.JSON(http.StatusOK, stats)
}
