package authsdk

import (
	"github.com/JanssenProject/jans-sub050/pkg/jwtx"
)

// ErrorResponse is the JSON body of an error answer. Callers see it as an
// *OAuth2Error.
type ErrorResponse struct {
	Error            string `json:"error" example:"authorization_pending"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// BackchannelAuthRequest carries the parameters of a backchannel
// authentication request. At least one of LoginHint, LoginHintToken and
// IDTokenHint must be set, and all that are set must name the same user.
type BackchannelAuthRequest struct {
	Scopes                  []string
	ClientNotificationToken string
	ACRValues               []string
	LoginHintToken          string
	IDTokenHint             string
	LoginHint               string
	BindingMessage          string
	UserCode                string

	// RequestedExpiry is sent as requested_expiry when positive.
	RequestedExpiry int

	// Request is a signed request object. The server takes every parameter
	// it carries over the fields above.
	Request string
}

// BackchannelAuthResponse is returned from POST /bc-authorize.
type BackchannelAuthResponse struct {
	AuthReqID string `json:"auth_req_id" example:"9f3c2e51d7a04b6c8e1f0a2b3c4d5e6f"`
	ExpiresIn int    `json:"expires_in" example:"3600"`

	// Interval is the minimum poll interval in seconds. Push clients never
	// poll and get none.
	Interval *int `json:"interval,omitempty" example:"5"`
}

// TokenResponse is the token endpoint's answer to a granted request, and
// the token part of a push callback.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	IDToken      string `json:"id_token,omitempty"`
	TokenType    string `json:"token_type" example:"Bearer"`
	ExpiresIn    int    `json:"expires_in" example:"3600"`
	Scope        string `json:"scope,omitempty" example:"openid profile"`
}

// ConsentResponse describes a pending request to the authentication
// device that will approve or deny it.
type ConsentResponse struct {
	AuthReqID      string   `json:"auth_req_id"`
	ClientID       string   `json:"client_id"`
	ClientName     string   `json:"client_name,omitempty"`
	Scopes         []string `json:"scopes"`
	ACRValues      []string `json:"acr_values,omitempty"`
	BindingMessage string   `json:"binding_message,omitempty"`
	ExpiresIn      int      `json:"expires_in"`
}

// HealthResponse is the body of /livez and /readyz. Only /readyz fills
// Checks.
type HealthResponse struct {
	Status  string        `json:"status" example:"ok"`
	Uptime  string        `json:"uptime,omitempty" example:"1h23m45s"`
	Version string        `json:"version,omitempty"`
	Checks  *HealthChecks `json:"checks,omitempty"`
}

// HealthChecks holds one "ok" or error string per dependency.
type HealthChecks struct {
	Database string `json:"database"`
	Cache    string `json:"cache"`
	Signer   string `json:"signer"`
}

// JWKSResponse is the document served at /.well-known/jwks.json.
type JWKSResponse jwtx.JWKS
