package authsdk

import (
	"net/http"
	"strings"
	"time"
)

// SDKClient talks to the backchannel authentication server. A relying party
// uses it to start requests and collect tokens; an authentication device
// uses it to register and to answer consent prompts.
type SDKClient struct {
	BaseURL    string
	HTTPClient *http.Client

	// ClientID and ClientSecret authenticate the relying party on the
	// client-facing endpoints. They are sent with HTTP Basic.
	ClientID     string
	ClientSecret string
}

// NewSDKClient creates a client for the server at baseURL.
func NewSDKClient(baseURL string) *SDKClient {
	return &SDKClient{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// WithClientCredentials returns a copy of c that authenticates as the
// given client.
func (c *SDKClient) WithClientCredentials(clientID, clientSecret string) *SDKClient {
	cp := *c
	cp.ClientID = clientID
	cp.ClientSecret = clientSecret
	return &cp
}
