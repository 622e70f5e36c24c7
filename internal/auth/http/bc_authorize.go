package http

import (
	"net/http"
	"strings"

	"github.com/JanssenProject/jans-sub050/internal/auth/service"
	"github.com/JanssenProject/jans-sub050/pkg/authsdk"
	"github.com/JanssenProject/jans-sub050/pkg/httpx"
)

// BackchannelAuthHandler serves POST /bc-authorize, the CIBA backchannel
// authentication endpoint.
type BackchannelAuthHandler struct {
	CIBA *service.CIBAService
}

// ServeHTTP godoc
//
//	@Summary		Backchannel Authentication Endpoint
//	@Description	Opens a CIBA request for the end-user named by its hints and asks their device for consent.
//	@Description	The client then polls the token endpoint, or waits for a ping or push callback.
//	@Tags			CIBA
//	@Accept			application/x-www-form-urlencoded
//	@Produce		json
//	@Param			client_id					formData	string							true	"Client identifier (or HTTP Basic)"
//	@Param			client_secret				formData	string							false	"Client secret (or HTTP Basic)"
//	@Param			scope						formData	string							true	"Space-delimited scopes, must include openid"
//	@Param			client_notification_token	formData	string							false	"Bearer token for ping and push callbacks"
//	@Param			acr_values					formData	string							false	"Space-delimited requested ACR values"
//	@Param			login_hint_token			formData	string							false	"Signed JWT identifying the end-user"
//	@Param			id_token_hint				formData	string							false	"ID token previously issued to the client"
//	@Param			login_hint					formData	string							false	"End-user identifier"
//	@Param			binding_message				formData	string							false	"Short message shown on both devices"
//	@Param			user_code					formData	string							false	"Secret code known only to the end-user"
//	@Param			requested_expiry			formData	integer							false	"Requested auth_req_id lifetime in seconds"
//	@Param			request						formData	string							false	"Signed request object; its claims replace the parameters above"
//	@Success		200							{object}	authsdk.BackchannelAuthResponse	"auth_req_id, expires_in, interval"
//	@Failure		400							{object}	authsdk.ErrorResponse			"error, error_description"
//	@Failure		401							{object}	authsdk.ErrorResponse			"error, error_description"
//	@Failure		403							{object}	authsdk.ErrorResponse			"error, error_description"
//	@Header			200							{string}	Cache-Control					"no-store"
//	@Router			/bc-authorize [post].
func (h *BackchannelAuthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if err := h.CIBA.CheckEnabled(); err != nil {
		writeError(w, r, "backchannel authentication", err)
		return
	}
	if !parseForm(w, r) {
		return
	}

	clientID, clientSecret := httpx.ClientCredentials(r)
	form := r.PostForm
	req := service.BackchannelRequest{
		ClientID:                strings.TrimSpace(clientID),
		ClientSecret:            clientSecret,
		Scopes:                  httpx.SpaceList(form.Get("scope")),
		ClientNotificationToken: form.Get("client_notification_token"),
		ACRValues:               httpx.SpaceList(form.Get("acr_values")),
		LoginHintToken:          strings.TrimSpace(form.Get("login_hint_token")),
		IDTokenHint:             strings.TrimSpace(form.Get("id_token_hint")),
		LoginHint:               strings.TrimSpace(form.Get("login_hint")),
		BindingMessage:          form.Get("binding_message"),
		UserCode:                form.Get("user_code"),
		RequestedExpiry:         strings.TrimSpace(form.Get("requested_expiry")),
		Request:                 strings.TrimSpace(form.Get("request")),
	}

	resp, err := h.CIBA.BackchannelAuthorize(r.Context(), req)
	if err != nil {
		writeError(w, r, "backchannel authentication", err)
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, authsdk.BackchannelAuthResponse{
		AuthReqID: resp.AuthReqID,
		ExpiresIn: resp.ExpiresIn,
		Interval:  resp.Interval,
	})
}
