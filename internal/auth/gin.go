package auth

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const CookieName = "token"

var (
	errorMissingTokenJson         = gin.H{"error": "missing-token"}
	errorInvalidTokenJson         = gin.H{"error": "invalid-token"}
	errorInvalidRequestFormatJson = gin.H{"error": "bad-request-format"}
	errorInvalidPINJson           = gin.H{"error": "invalid-pin"}
	errorUnknownErrorJson         = gin.H{"error": "unknown-error"}
)

// Gate decides who may drive the console. With an empty pinHash the
// console is open and every request passes.
type Gate struct {
	hasher  *Argon2idHasher
	pinHash string
	tokens  *JWTManager
	maxAge  time.Duration
	Secure  bool
	now     func() time.Time
}

func NewGate(hasher *Argon2idHasher, pinHash string, tokens *JWTManager, maxAge time.Duration) *Gate {
	return &Gate{hasher: hasher, pinHash: pinHash, tokens: tokens, maxAge: maxAge, Secure: true, now: time.Now}
}

func (g *Gate) Open() bool { return g.pinHash == "" }

// Login exchanges the console PIN for a token.
func (g *Gate) Login(pin string) (string, error) {
	if !g.Open() && !g.hasher.Compare(g.pinHash, pin) {
		return "", ErrInvalidPIN
	}
	return g.tokens.Generate(g.now())
}

func tokenFrom(ctx *gin.Context) string {
	if token, err := ctx.Cookie(CookieName); err == nil && token != "" {
		return token
	}
	if h := ctx.GetHeader("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return ""
}

func (g *Gate) RequireConsole() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if g.Open() {
			ctx.Next()
			return
		}
		token := tokenFrom(ctx)
		if token == "" {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, errorMissingTokenJson)
			return
		}
		if err := g.tokens.Verify(token); err != nil {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, errorInvalidTokenJson)
			return
		}
		ctx.Next()
	}
}

func (g *Gate) LoginHandler(ctx *gin.Context) {
	var body struct {
		PIN string `json:"pin"`
	}
	if err := ctx.ShouldBindJSON(&body); err != nil {
		ctx.AbortWithStatusJSON(http.StatusBadRequest, errorInvalidRequestFormatJson)
		return
	}

	token, err := g.Login(body.PIN)
	switch {
	case err == ErrInvalidPIN:
		log.Warn().Str("ip", ctx.ClientIP()).Msg("console login rejected")
		ctx.AbortWithStatusJSON(http.StatusUnauthorized, errorInvalidPINJson)
		return
	case err != nil:
		log.Error().Err(err).Msg("issuing console token")
		ctx.AbortWithStatusJSON(http.StatusInternalServerError, errorUnknownErrorJson)
		return
	}

	ctx.SetSameSite(http.SameSiteNoneMode)
	ctx.SetCookie(CookieName, token, int(g.maxAge.Seconds()), "/", "", g.Secure, true)
	ctx.JSON(http.StatusOK, gin.H{"token": token})
}

func (g *Gate) LogoutHandler(ctx *gin.Context) {
	ctx.SetCookie(CookieName, "", -1, "/", "", g.Secure, true)
	ctx.Status(http.StatusNoContent)
}
