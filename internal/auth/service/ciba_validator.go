package service

import (
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/JanssenProject/jans-sub050/internal/auth/domain"
	"github.com/JanssenProject/jans-sub050/pkg/authsdk"
	"github.com/JanssenProject/jans-sub050/pkg/cryptox"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

const (
	DefaultBindingMessagePattern = `^[a-zA-Z0-9 ]{1,20}$`

	// maxNotificationTokenLen bounds client_notification_token.
	maxNotificationTokenLen = 1024
)

// BackchannelRequest is a parsed backchannel authentication request.
type BackchannelRequest struct {
	ClientID     string
	ClientSecret string

	Scopes                  []string
	ClientNotificationToken string
	ACRValues               []string
	LoginHintToken          string
	IDTokenHint             string
	LoginHint               string
	BindingMessage          string
	UserCode                string

	// RequestedExpiry is the raw requested_expiry value; empty means the
	// default lifetime.
	RequestedExpiry string

	// Request is a signed request object. Its claims take precedence over
	// the fields above.
	Request string
}

// Hints returns the hint mechanisms present on the request in the order
// they are resolved.
func (r BackchannelRequest) Hints() []domain.HintType {
	var hints []domain.HintType
	if r.LoginHintToken != "" {
		hints = append(hints, domain.HintLoginToken)
	}
	if r.IDTokenHint != "" {
		hints = append(hints, domain.HintIDToken)
	}
	if r.LoginHint != "" {
		hints = append(hints, domain.HintLogin)
	}
	return hints
}

// RequestValidator performs the checks that need only the client and the
// request itself.
type RequestValidator struct {
	BindingMessage   *regexp.Regexp
	DefaultExpiresIn time.Duration
	MaxExpiresIn     time.Duration
}

// NewRequestValidator compiles the binding message pattern.
func NewRequestValidator(bindingPattern string, defaultExpiresIn, maxExpiresIn time.Duration) (*RequestValidator, error) {
	if bindingPattern == "" {
		bindingPattern = DefaultBindingMessagePattern
	}
	re, err := regexp.Compile(bindingPattern)
	if err != nil {
		return nil, fmt.Errorf("binding message pattern: %w", err)
	}
	return &RequestValidator{
		BindingMessage:   re,
		DefaultExpiresIn: defaultExpiresIn,
		MaxExpiresIn:     maxExpiresIn,
	}, nil
}

// Validate checks req against client and returns the lifetime the request
// will get.
func (v *RequestValidator) Validate(client domain.Client, req BackchannelRequest) (time.Duration, error) {
	hints := req.Hints()
	if len(hints) == 0 {
		return 0, errInvalidRequest("one of login_hint_token, id_token_hint or login_hint is required")
	}
	for _, h := range hints {
		if !client.AcceptsHint(h) {
			return 0, errInvalidRequest(fmt.Sprintf("client does not accept %s", h))
		}
	}

	if client.DeliveryMode.RequiresNotificationToken() {
		if req.ClientNotificationToken == "" {
			return 0, &CIBAError{
				Kind:   authsdk.ErrorCodeInvalidRequest,
				Reason: "client_notification_token is required for ping and push delivery",
				Status: http.StatusBadRequest,
				Cause:  ErrMissingNotificationToken,
			}
		}
		if len(req.ClientNotificationToken) > maxNotificationTokenLen {
			return 0, errInvalidRequest("client_notification_token is too long")
		}
	}

	if client.UserCodeParameter && req.UserCode == "" {
		return 0, cibaError(http.StatusBadRequest, authsdk.ErrorCodeMissingUserCode, "user_code is required")
	}

	if req.BindingMessage != "" && !v.BindingMessage.MatchString(req.BindingMessage) {
		return 0, cibaError(http.StatusBadRequest, authsdk.ErrorCodeInvalidBindingMessage,
			"binding_message must be short and contain only letters, digits and spaces")
	}

	return v.expiresIn(req.RequestedExpiry)
}

// expiresIn honours requested_expiry when it is within (0, MaxExpiresIn]
// and falls back to the default otherwise.
func (v *RequestValidator) expiresIn(raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return v.DefaultExpiresIn, nil
	}
	secs, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errInvalidRequest("requested_expiry must be a whole number of seconds")
	}
	requested := time.Duration(secs) * time.Second
	if requested <= 0 || requested > v.MaxExpiresIn {
		return v.DefaultExpiresIn, nil
	}
	return requested, nil
}

// UserCodeChecker verifies a user_code against the end-user's secret.
type UserCodeChecker interface {
	CheckUserCode(u domain.User, code string, now time.Time) bool
}

// UserCodePolicy accepts a current TOTP code when the user has enrolled an
// authenticator and otherwise the user's static code, stored hashed.
type UserCodePolicy struct {
	Hasher *cryptox.Hasher
}

func (p UserCodePolicy) CheckUserCode(u domain.User, code string, now time.Time) bool {
	code = strings.TrimSpace(code)
	if code == "" {
		return false
	}

	if u.TOTPSecret != nil {
		ok, err := totp.ValidateCustom(code, *u.TOTPSecret, now, totp.ValidateOpts{
			Period:    30,
			Skew:      1,
			Digits:    otp.DigitsSix,
			Algorithm: otp.AlgorithmSHA1,
		})
		return err == nil && ok
	}

	if u.UserCodeHash != nil && p.Hasher != nil {
		return p.Hasher.Verify(code, *u.UserCodeHash) == nil
	}
	return false
}

func errInvalidUserCode() *CIBAError {
	return cibaError(http.StatusBadRequest, authsdk.ErrorCodeInvalidUserCode, "user_code is invalid")
}
