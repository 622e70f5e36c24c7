package domain

import (
	"slices"
	"time"
)

// HintType names a mechanism a client may use to identify the end-user.
type HintType string

const (
	HintLogin      HintType = "login_hint"
	HintIDToken    HintType = "id_token_hint"
	HintLoginToken HintType = "login_hint_token"
)

// Client is a registered relying party with its backchannel settings.
type Client struct {
	ID         string
	Name       string
	SecretHash string
	Scopes     []string
	GrantTypes []GrantType

	DeliveryMode DeliveryMode
	// NotificationEndpoint receives ping and push callbacks.
	NotificationEndpoint string
	// JWKSURI publishes the keys that sign the client's login_hint_tokens.
	JWKSURI string
	// UserCodeParameter requires a user_code on every backchannel request.
	UserCodeParameter bool
	// AcceptedHints restricts the hint mechanisms; empty accepts all three.
	AcceptedHints []HintType

	CreatedAt time.Time
	UpdatedAt time.Time
}

// AcceptsHint reports whether the client may identify users with h.
func (c Client) AcceptsHint(h HintType) bool {
	return len(c.AcceptedHints) == 0 || slices.Contains(c.AcceptedHints, h)
}

// AllowsGrantType reports whether the client is registered for g.
func (c Client) AllowsGrantType(g GrantType) bool {
	return slices.Contains(c.GrantTypes, g)
}

// IsConfidential reports whether the client authenticates with a secret.
func (c Client) IsConfidential() bool { return c.SecretHash != "" }
