package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/JanssenProject/jans-sub050/internal/auth/service"
	"github.com/JanssenProject/jans-sub050/pkg/authsdk"
	"github.com/JanssenProject/jans-sub050/pkg/httpx"
	"github.com/JanssenProject/jans-sub050/pkg/slogx"
)

// RevokeHandler serves POST /revoke following RFC 7009. Revoking a refresh
// token revokes the whole grant it was issued under. Access tokens expire
// naturally. Unknown tokens return 200 OK to prevent token scanning.
type RevokeHandler struct {
	Clients *service.ClientAuthenticator
	Tokens  *service.TokenService
}

// ServeHTTP godoc
//
//	@Summary		OAuth2 Token Revocation Endpoint
//	@Description	Revokes a refresh token and every token of its grant (RFC 7009).
//	@Description	The endpoint is idempotent and returns 200 OK even for invalid/unknown tokens to prevent token scanning attacks.
//	@Tags			OAuth2
//	@Accept			application/x-www-form-urlencoded
//	@Produce		json
//	@Param			token			formData	string					true	"The token to revoke"
//	@Param			token_type_hint	formData	string					false	"Hint about token type"	Enums(access_token, refresh_token)
//	@Param			client_id		formData	string					true	"Client identifier (or HTTP Basic)"
//	@Param			client_secret	formData	string					false	"Client secret (or HTTP Basic)"
//	@Success		200				"Token revoked successfully (or was already invalid)"
//	@Failure		400				{object}	authsdk.ErrorResponse	"error, error_description"
//	@Failure		401				{object}	authsdk.ErrorResponse	"error, error_description"
//	@Header			200				{string}	Cache-Control			"no-store"
//	@Header			200				{string}	Pragma					"no-cache"
//	@Router			/revoke [post].
func (h *RevokeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	if !parseForm(w, r) {
		return
	}

	clientID, clientSecret := httpx.ClientCredentials(r)
	client, err := h.Clients.Authenticate(ctx, strings.TrimSpace(clientID), clientSecret)
	if err != nil {
		if errors.Is(err, service.ErrInvalidClient) {
			authsdk.ErrInvalidClient.WriteError(w)
			return
		}
		log.Error("revoke client authentication failed", "err", err)
		authsdk.ErrServerError.WriteError(w)
		return
	}

	token := r.PostForm.Get("token")
	if token == "" {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	switch r.PostForm.Get("token_type_hint") {
	case "", "refresh_token":
		if err := h.Tokens.RevokeRefreshToken(ctx, client.ID, token); err != nil {
			// RFC 7009 answers 200 even when revocation fails.
			log.Warn("revoke refresh failed", "err", err)
		}
	case "access_token":
	default:
		authsdk.NewOAuth2Error(http.StatusBadRequest, authsdk.ErrorCodeUnsupportedTokenType,
			"token_type_hint is not supported").WriteError(w)
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, struct{}{})
}
