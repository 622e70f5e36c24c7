package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/JanssenProject/jans-sub050/internal/auth/domain"
	"github.com/JanssenProject/jans-sub050/internal/auth/store"
	"github.com/JanssenProject/jans-sub050/pkg/cryptox"
	"github.com/JanssenProject/jans-sub050/pkg/idx"
	"github.com/JanssenProject/jans-sub050/pkg/jwtx"
	"github.com/JanssenProject/jans-sub050/pkg/slogx"
)

var ErrInvalidIDToken = errors.New("id token is unknown, expired or revoked")

// TokenService issues tokens for granted backchannel requests and keeps
// durable records of the refresh and ID tokens it hands out.
type TokenService struct {
	KeyManager *jwtx.KeyManager
	Store      store.Store
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	IDTokenTTL time.Duration
	Now        func() time.Time
}

func (s *TokenService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// IssueCIBATokens signs an access token and an ID token for g and mints a
// refresh token when the grant type allows one. withAuthReqID stamps the
// auth_req_id claim into the ID token, as push delivery requires.
func (s *TokenService) IssueCIBATokens(ctx context.Context, g *domain.CIBAGrant, withAuthReqID bool) (domain.TokenSet, error) {
	now := s.now()
	l := slogx.FromContext(ctx)

	accessToken, err := s.KeyManager.Sign(jwtx.NewAccessClaims(
		s.KeyManager.Issuer(), g.UserID, g.ClientID, g.Scopes, s.AccessTTL, now,
	))
	if err != nil {
		return domain.TokenSet{}, fmt.Errorf("sign access token: %w", err)
	}
	if _, err := g.CreateAccessToken(idx.New().String(), cryptox.FingerprintToken(accessToken), s.AccessTTL, now); err != nil {
		return domain.TokenSet{}, err
	}

	var refreshToken string
	if g.Type().AllowsRefreshToken() {
		refreshToken, err = cryptox.GenerateToken(cryptox.TokenSize256)
		if err != nil {
			return domain.TokenSet{}, err
		}
		if _, err := g.CreateRefreshToken(idx.New().String(), cryptox.FingerprintToken(refreshToken), s.RefreshTTL, now); err != nil {
			return domain.TokenSet{}, err
		}
	}

	idClaims := jwtx.NewIDClaims(s.KeyManager.Issuer(), g.UserID, g.ClientID, g.AuthTime, s.IDTokenTTL, now)
	idClaims.ACR = g.ACR
	idClaims.AtHash = cryptox.HalfHash(accessToken)
	if refreshToken != "" {
		idClaims.RtHash = cryptox.HalfHash(refreshToken)
	}
	if withAuthReqID {
		idClaims.AuthReqID = g.AuthReqID.Code
	}
	idToken, err := s.KeyManager.Sign(idClaims)
	if err != nil {
		return domain.TokenSet{}, fmt.Errorf("sign id token: %w", err)
	}
	if _, err := g.CreateIDToken(idx.New().String(), cryptox.FingerprintToken(idToken), s.IDTokenTTL, now); err != nil {
		return domain.TokenSet{}, err
	}

	// Access tokens are self-contained JWTs; only refresh and ID tokens
	// need a record.
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		for _, t := range g.Tokens() {
			if t.Kind == domain.TokenKindAccess {
				continue
			}
			t.AuthReqID = g.AuthReqID.Code
			if err := tx.Tokens().CreateToken(ctx, t); err != nil {
				return fmt.Errorf("store %s: %w", t.Kind, err)
			}
		}
		return nil
	})
	if err != nil {
		return domain.TokenSet{}, err
	}

	l.Info("backchannel tokens issued",
		slog.String("client_id", g.ClientID),
		slog.String("user_id", g.UserID),
		slog.String("grant_id", g.ID),
	)

	return domain.TokenSet{
		AccessToken:  accessToken,
		TokenType:    "Bearer",
		ExpiresIn:    int(s.AccessTTL.Seconds()),
		RefreshToken: refreshToken,
		IDToken:      idToken,
		Scope:        strings.Join(g.Scopes, " "),
	}, nil
}

// FindGrantByIDToken verifies an ID token issued by this server and
// returns the record of its issuance, which must still be live.
func (s *TokenService) FindGrantByIDToken(ctx context.Context, idToken string) (domain.IssuedToken, error) {
	var claims jwtx.IDClaims
	if err := s.KeyManager.Verify(ctx, idToken, &claims, ""); err != nil {
		return domain.IssuedToken{}, fmt.Errorf("%w: %w", ErrInvalidIDToken, err)
	}

	rec, err := s.Store.Tokens().GetTokenByFingerprint(ctx, domain.TokenKindID, cryptox.FingerprintToken(idToken))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.IssuedToken{}, ErrInvalidIDToken
		}
		return domain.IssuedToken{}, err
	}
	if !rec.IsLive(s.now()) || rec.UserID != claims.Subject {
		return domain.IssuedToken{}, ErrInvalidIDToken
	}
	return rec, nil
}

// RevokeRefreshToken revokes the whole grant the refresh token was issued
// under. Unknown tokens and tokens of other clients are ignored.
func (s *TokenService) RevokeRefreshToken(ctx context.Context, clientID, refreshOpaque string) error {
	rec, err := s.Store.Tokens().GetTokenByFingerprint(ctx, domain.TokenKindRefresh, cryptox.FingerprintToken(refreshOpaque))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		return err
	}
	if rec.ClientID != clientID {
		slogx.FromContext(ctx).Warn("refusing to revoke another client's token",
			slog.String("client_id", clientID),
			slog.String("owner_client_id", rec.ClientID),
		)
		return nil
	}

	n, err := s.Store.Tokens().RevokeGrant(ctx, rec.GrantID)
	if err != nil {
		return err
	}
	slogx.FromContext(ctx).Info("grant revoked",
		slog.String("client_id", clientID),
		slog.String("grant_id", rec.GrantID),
		slog.Int64("tokens", n),
	)
	return nil
}
