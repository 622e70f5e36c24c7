package http

import (
	"net/http"
	"strings"

	"github.com/JanssenProject/jans-sub050/internal/auth/service"
	"github.com/JanssenProject/jans-sub050/pkg/httpx"
)

// DeviceRegistrationHandler serves POST /bc-deviceRegistration. It binds
// the end-user named by an ID token to the push token of their
// authentication device.
type DeviceRegistrationHandler struct {
	CIBA *service.CIBAService
}

// ServeHTTP godoc
//
//	@Summary		Backchannel Device Registration
//	@Description	Registers the authentication device of the end-user named by id_token_hint.
//	@Tags			CIBA
//	@Accept			application/x-www-form-urlencoded
//	@Produce		json
//	@Param			client_id					formData	string					true	"Client identifier (or HTTP Basic)"
//	@Param			client_secret				formData	string					false	"Client secret (or HTTP Basic)"
//	@Param			id_token_hint				formData	string					true	"ID token issued to the client for the end-user"
//	@Param			device_registration_token	formData	string					true	"Push token of the authentication device"
//	@Success		200							"Device registered"
//	@Failure		400							{object}	authsdk.ErrorResponse	"error, error_description"
//	@Failure		401							{object}	authsdk.ErrorResponse	"error, error_description"
//	@Failure		403							{object}	authsdk.ErrorResponse	"error, error_description"
//	@Router			/bc-deviceRegistration [post].
func (h *DeviceRegistrationHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !parseForm(w, r) {
		return
	}

	clientID, clientSecret := httpx.ClientCredentials(r)
	err := h.CIBA.RegisterDevice(r.Context(),
		strings.TrimSpace(clientID),
		clientSecret,
		strings.TrimSpace(r.PostForm.Get("id_token_hint")),
		strings.TrimSpace(r.PostForm.Get("device_registration_token")),
	)
	if err != nil {
		writeError(w, r, "device registration", err)
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, struct{}{})
}
