package http

import (
	"net/http"
	"strings"

	"github.com/JanssenProject/jans-sub050/internal/auth/domain"
	"github.com/JanssenProject/jans-sub050/internal/auth/service"
	"github.com/JanssenProject/jans-sub050/pkg/authsdk"
	"github.com/JanssenProject/jans-sub050/pkg/httpx"
	"github.com/JanssenProject/jans-sub050/pkg/slogx"
)

// TokenHandler serves POST /token
// Accepts application/x-www-form-urlencoded per the RFC 6749 framework.
type TokenHandler struct {
	CIBA *service.CIBAService
}

// ServeHTTP godoc
//
//	@Summary		OAuth2 Token Endpoint
//	@Description	Exchanges a granted auth_req_id for tokens (CIBA grant). While the end-user has not decided the
//	@Description	endpoint answers authorization_pending, or slow_down when polled faster than the interval.
//	@Tags			OAuth2
//	@Accept			application/x-www-form-urlencoded
//	@Produce		json
//	@Param			grant_type		formData	string					true	"Grant type"	Enums(urn:openid:params:grant-type:ciba)
//	@Param			auth_req_id		formData	string					true	"Backchannel request identifier"
//	@Param			client_id		formData	string					true	"Client identifier (or HTTP Basic)"
//	@Param			client_secret	formData	string					false	"Client secret (or HTTP Basic)"
//	@Success		200				{object}	authsdk.TokenResponse	"access_token, id_token, refresh_token, token_type, expires_in, scope"
//	@Failure		400				{object}	authsdk.ErrorResponse	"error, error_description"
//	@Failure		401				{object}	authsdk.ErrorResponse	"error, error_description"
//	@Header			200				{string}	Cache-Control			"no-store"
//	@Header			200				{string}	Pragma					"no-cache"
//	@Router			/token [post].
func (h *TokenHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !parseForm(w, r) {
		return
	}

	switch domain.GrantType(r.PostForm.Get("grant_type")) {
	case domain.GrantCIBA:
		h.handleCIBAGrant(w, r)
	default:
		authsdk.ErrUnsupportedGrantType.WriteError(w)
	}
}

func (h *TokenHandler) handleCIBAGrant(w http.ResponseWriter, r *http.Request) {
	clientID, clientSecret := httpx.ClientCredentials(r)
	authReqID := strings.TrimSpace(r.PostForm.Get("auth_req_id"))

	clientID = strings.TrimSpace(clientID)
	r = r.WithContext(slogx.With(r.Context(), "client_id", clientID, "auth_req_id", authReqID))

	set, err := h.CIBA.PollToken(r.Context(), clientID, clientSecret, authReqID)
	if err != nil {
		writeError(w, r, "ciba token poll", err)
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, tokenResponse(set))
}

func tokenResponse(set domain.TokenSet) authsdk.TokenResponse {
	return authsdk.TokenResponse{
		AccessToken:  set.AccessToken,
		RefreshToken: set.RefreshToken,
		IDToken:      set.IDToken,
		TokenType:    set.TokenType,
		ExpiresIn:    set.ExpiresIn,
		Scope:        strings.TrimSpace(set.Scope),
	}
}
