package echoapi

import (
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/mahadhurio/core"
	"github.com/trezcool/mahadhurio/core/attendance"
)

var jwtContextKey = "actorToken"

// Claims represents the authorization claims transmitted via a JWT.
// Identity is managed by the university SSO; we only consume its claims.
type Claims struct {
	jwt.StandardClaims
	Role         string `json:"role,omitempty"`
	ClassGroupID string `json:"class_group_id,omitempty"`
	Name         string `json:"name,omitempty"`
	Email        string `json:"email,omitempty"`
}

func newJWTConfig(conf *core.Config) middleware.JWTConfig {
	return middleware.JWTConfig{
		SigningKey:    []byte(conf.SecretKey),
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    jwtContextKey,
		Claims:        new(Claims),
	}
}

func GetActorClaims(conf *core.Config, actor attendance.Actor) *Claims {
	now := time.Now()
	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    conf.AppName,
			Subject:   actor.ID,
			Audience:  "Academia",
			ExpiresAt: now.Add(conf.Server.JWTExpirationDelta).Unix(),
			IssuedAt:  now.Unix(),
		},
		Role:         actor.Role,
		ClassGroupID: actor.ClassGroupID,
		Name:         actor.Name,
		Email:        actor.Email,
	}
}

// GenerateToken generates a signed JWT token string representing the Claims.
func GenerateToken(conf *core.Config, claims *Claims) (string, error) {
	method := jwt.GetSigningMethod(middleware.AlgorithmHS256)
	token := jwt.NewWithClaims(method, claims)

	ss, err := token.SignedString([]byte(conf.SecretKey))
	if err != nil {
		return "", errors.New("signing token")
	}
	return ss, nil
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(jwtContextKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	// the JWT middleware guards every route reaching here, so a missing
	// token value means the middleware chain itself is broken
	return Claims{}, core.NewShutdownError("auth token missing from request context")
}

func getContextActor(ctx echo.Context) (attendance.Actor, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return attendance.Actor{}, err
	}
	return attendance.Actor{
		ID:           claims.Subject,
		Role:         claims.Role,
		ClassGroupID: claims.ClassGroupID,
		Name:         claims.Name,
		Email:        claims.Email,
	}, nil
}
