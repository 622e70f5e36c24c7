package service

import (
	"context"
	"crypto"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/JanssenProject/jans-sub050/internal/auth/domain"
	"github.com/JanssenProject/jans-sub050/internal/auth/store"
	"github.com/JanssenProject/jans-sub050/pkg/authsdk"
	"github.com/JanssenProject/jans-sub050/pkg/jwtx"
	"github.com/JanssenProject/jans-sub050/pkg/slogx"
	"github.com/golang-jwt/jwt/v5"
)

// DefaultLoginHintClaims are the directory attributes login_hint is matched
// against.
var DefaultLoginHintClaims = []string{domain.AttrMail, domain.AttrUID}

// KeyFetcher returns a client's public key from its JWKS by key ID and
// algorithm family.
type KeyFetcher interface {
	FetchPublicKey(ctx context.Context, jwksURI, kid string, family jwtx.KeyFamily) (crypto.PublicKey, error)
}

// GrantFinder maps an ID token this server issued to the still-live record
// of its issuance.
type GrantFinder interface {
	FindGrantByIDToken(ctx context.Context, idToken string) (domain.IssuedToken, error)
}

// UserResolver turns backchannel hints into a single end-user. Every hint
// on the request must resolve, and all of them to the same user.
type UserResolver struct {
	Store           store.Store
	Grants          GrantFinder
	Keys            KeyFetcher
	LoginHintClaims []string
	Now             func() time.Time
}

// clockSkew is tolerated on the time claims of client-signed tokens.
const clockSkew = 5 * time.Second

var errExpiredLoginHintToken = cibaError(http.StatusBadRequest, authsdk.ErrorCodeExpiredLoginHintToken,
	"login_hint_token has expired")

// Resolve returns the end-user named by the request hints. Failures are
// 400 unknown_user_id, or expired_login_hint_token for a lapsed token.
func (r *UserResolver) Resolve(ctx context.Context, client domain.Client, req BackchannelRequest) (domain.User, error) {
	var (
		user  domain.User
		found bool
	)
	for _, h := range req.Hints() {
		u, err := r.resolveHint(ctx, client, h, req)
		if err != nil {
			var ce *CIBAError
			if !errors.As(err, &ce) {
				slogx.FromContext(ctx).Info("user resolution failed",
					slog.String("client_id", client.ID),
					slog.String("hint", string(h)),
					slog.Any("err", err),
				)
				err = errUnknownUser(fmt.Sprintf("%s does not identify a user", h))
			}
			return domain.User{}, err
		}
		if found && u.ID != user.ID {
			return domain.User{}, errUnknownUser("hints identify different users")
		}
		user, found = u, true
	}
	if !found {
		return domain.User{}, errUnknownUser("no hint identifies a user")
	}
	return user, nil
}

func (r *UserResolver) resolveHint(ctx context.Context, client domain.Client, h domain.HintType, req BackchannelRequest) (domain.User, error) {
	switch h {
	case domain.HintLoginToken:
		return r.fromLoginHintToken(ctx, client, req.LoginHintToken)
	case domain.HintIDToken:
		return r.fromIDTokenHint(ctx, req.IDTokenHint)
	case domain.HintLogin:
		return r.findUser(ctx, req.LoginHint)
	default:
		return domain.User{}, fmt.Errorf("unsupported hint %q", h)
	}
}

func (r *UserResolver) claims() []string {
	if len(r.LoginHintClaims) == 0 {
		return DefaultLoginHintClaims
	}
	return r.LoginHintClaims
}

func (r *UserResolver) findUser(ctx context.Context, value string) (domain.User, error) {
	u, err := r.Store.Users().FindUniqueUser(ctx, r.claims(), value)
	if err != nil {
		return domain.User{}, fmt.Errorf("find user: %w", err)
	}
	return u, nil
}

// fromIDTokenHint takes the subject of the live grant that issued the token.
func (r *UserResolver) fromIDTokenHint(ctx context.Context, idToken string) (domain.User, error) {
	return userFromIDToken(ctx, r.Store, r.Grants, idToken)
}

func userFromIDToken(ctx context.Context, s store.Store, grants GrantFinder, idToken string) (domain.User, error) {
	rec, err := grants.FindGrantByIDToken(ctx, idToken)
	if err != nil {
		return domain.User{}, fmt.Errorf("id_token_hint: %w", err)
	}
	u, err := s.Users().GetUserByID(ctx, rec.UserID)
	if err != nil {
		return domain.User{}, fmt.Errorf("id_token_hint subject: %w", err)
	}
	return u, nil
}

// fetcherSource adapts a KeyFetcher bound to one JWKS URI to jwtx.KeySource.
type fetcherSource struct {
	keys KeyFetcher
	uri  string
}

func (f fetcherSource) PublicKey(ctx context.Context, kid string, family jwtx.KeyFamily) (crypto.PublicKey, error) {
	return f.keys.FetchPublicKey(ctx, f.uri, kid, family)
}

// fromLoginHintToken verifies a client-signed login_hint_token and looks
// up its subject identifier.
func (r *UserResolver) fromLoginHintToken(ctx context.Context, client domain.Client, token string) (domain.User, error) {
	h, err := jwtx.ParseHeader(token)
	if err != nil {
		return domain.User{}, err
	}
	if client.JWKSURI == "" {
		return domain.User{}, errors.New("client has no jwks_uri")
	}

	claims := jwt.MapClaims{}
	_, err = jwtx.Verify(ctx, token, claims, fetcherSource{keys: r.Keys, uri: client.JWKSURI}, jwtx.VerifyOptions{
		AllowedAlgs: []string{h.Alg},
		Leeway:      clockSkew,
		Now:         r.Now,
	})
	if err != nil {
		if errors.Is(err, jwtx.ErrExpired) {
			return domain.User{}, errExpiredLoginHintToken
		}
		return domain.User{}, err
	}

	value, err := subjectIdentifier(claims)
	if err != nil {
		return domain.User{}, err
	}
	return r.findUser(ctx, value)
}

// subjectIdentifier reads {"subject": {"subject_type": T, T: value}}.
func subjectIdentifier(claims jwt.MapClaims) (string, error) {
	subject, ok := claims["subject"].(map[string]any)
	if !ok {
		return "", errors.New("login_hint_token has no subject")
	}
	typ, ok := subject["subject_type"].(string)
	if !ok || typ == "" {
		return "", errors.New("login_hint_token subject has no subject_type")
	}
	value, ok := subject[typ].(string)
	if !ok || value == "" {
		return "", fmt.Errorf("login_hint_token subject has no %q", typ)
	}
	return value, nil
}
