package http

import (
	"net/http"
	"strings"

	"github.com/JanssenProject/jans-sub050/internal/auth/service"
	"github.com/JanssenProject/jans-sub050/pkg/authsdk"
	"github.com/JanssenProject/jans-sub050/pkg/httpx"
)

// ConsentHandler serves the endpoints the end-user's authentication device
// calls. The device authenticates with its registration token, either as a
// bearer token or in the device_registration_token form field.
type ConsentHandler struct {
	CIBA *service.CIBAService
}

func deviceToken(r *http.Request) string {
	if tok := bearerToken(r); tok != "" {
		return tok
	}
	return strings.TrimSpace(r.PostForm.Get("device_registration_token"))
}

// HandleBegin godoc
//
//	@Summary		Begin Consent
//	@Description	Marks a pending backchannel request as being shown to the end-user and returns what to display.
//	@Tags			CIBA
//	@Accept			application/x-www-form-urlencoded
//	@Produce		json
//	@Param			auth_req_id	formData	string					true	"Backchannel request identifier"
//	@Success		200			{object}	authsdk.ConsentResponse	"The request to show"
//	@Failure		400			{object}	authsdk.ErrorResponse	"error, error_description"
//	@Failure		401			{object}	authsdk.ErrorResponse	"error, error_description"
//	@Failure		403			{object}	authsdk.ErrorResponse	"error, error_description"
//	@Security		BearerAuth
//	@Router			/bc-consent/begin [post].
func (h *ConsentHandler) HandleBegin(w http.ResponseWriter, r *http.Request) {
	if !parseForm(w, r) {
		return
	}

	view, err := h.CIBA.BeginConsent(r.Context(), deviceToken(r), strings.TrimSpace(r.PostForm.Get("auth_req_id")))
	if err != nil {
		writeError(w, r, "begin consent", err)
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, authsdk.ConsentResponse{
		AuthReqID:      view.AuthReqID,
		ClientID:       view.ClientID,
		ClientName:     view.ClientName,
		Scopes:         view.Scopes,
		ACRValues:      view.ACRValues,
		BindingMessage: view.BindingMessage,
		ExpiresIn:      view.ExpiresIn,
	})
}

// HandleDecide godoc
//
//	@Summary		Decide Consent
//	@Description	Records the end-user's decision on a backchannel request and notifies ping and push clients.
//	@Tags			CIBA
//	@Accept			application/x-www-form-urlencoded
//	@Produce		json
//	@Param			auth_req_id	formData	string					true	"Backchannel request identifier"
//	@Param			decision	formData	string					true	"End-user decision"	Enums(approve, deny)
//	@Success		204			"Decision recorded"
//	@Failure		400			{object}	authsdk.ErrorResponse	"error, error_description"
//	@Failure		401			{object}	authsdk.ErrorResponse	"error, error_description"
//	@Failure		403			{object}	authsdk.ErrorResponse	"error, error_description"
//	@Security		BearerAuth
//	@Router			/bc-consent [post].
func (h *ConsentHandler) HandleDecide(w http.ResponseWriter, r *http.Request) {
	if !parseForm(w, r) {
		return
	}

	var approve bool
	switch r.PostForm.Get("decision") {
	case "approve":
		approve = true
	case "deny":
	default:
		authsdk.NewOAuth2Error(http.StatusBadRequest, authsdk.ErrorCodeInvalidRequest,
			"decision must be approve or deny").WriteError(w)
		return
	}

	err := h.CIBA.Decide(r.Context(), deviceToken(r), strings.TrimSpace(r.PostForm.Get("auth_req_id")), approve)
	if err != nil {
		writeError(w, r, "consent decision", err)
		return
	}

	httpx.NoCache(w)
	w.WriteHeader(http.StatusNoContent)
}
