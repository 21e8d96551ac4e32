package apiv1

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"jobboard-billing/internal/domain/model"
	"jobboard-billing/internal/infra/logging"
)

var errMissingToken = errors.New("missing bearer token")

// Claims is the principal token issued by the job-board auth layer.
type Claims struct {
	Kind string `json:"kind"`
	UID  int64  `json:"uid"`
	jwt.RegisteredClaims
}

// Authenticator verifies HS256 bearer tokens and resolves them to holders.
type Authenticator struct {
	secret []byte
	issuer string
}

func NewAuthenticator(secret, issuer string) *Authenticator {
	return &Authenticator{secret: []byte(secret), issuer: issuer}
}

// Mint signs a token for holder. The billing service never issues tokens in
// production; this backs tests and local tooling.
func (a *Authenticator) Mint(holder model.Holder, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Kind: string(holder.Kind),
		UID:  holder.ID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    a.issuer,
			Subject:   holder.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

func (a *Authenticator) ParseFromRequest(r *http.Request) (model.Holder, error) {
	hdr := r.Header.Get("Authorization")
	if len(hdr) < 7 || !strings.EqualFold(hdr[:7], "bearer ") {
		return model.Holder{}, errMissingToken
	}
	return a.parse(strings.TrimSpace(hdr[7:]))
}

func (a *Authenticator) parse(tok string) (model.Holder, error) {
	claims := &Claims{}
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if a.issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.issuer))
	}
	tkn, err := jwt.ParseWithClaims(tok, claims, func(t *jwt.Token) (any, error) {
		return a.secret, nil
	}, opts...)
	if err != nil || !tkn.Valid {
		return model.Holder{}, errors.New("invalid token")
	}
	return model.NewHolder(claims.Kind, claims.UID)
}

type holderKey struct{}

// Middleware rejects unauthenticated requests and stores the holder in the
// request context.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		holder, err := a.ParseFromRequest(r)
		if err != nil {
			writeError(w, r, nil, errUnauthorized)
			return
		}
		ctx := context.WithValue(r.Context(), holderKey{}, holder)
		ctx = logging.WithHolder(ctx, holder.String())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// HolderFrom returns the authenticated holder placed by Middleware.
func HolderFrom(ctx context.Context) (model.Holder, bool) {
	h, ok := ctx.Value(holderKey{}).(model.Holder)
	return h, ok
}
