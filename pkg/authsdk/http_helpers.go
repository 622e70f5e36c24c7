package authsdk

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// call describes one request to the server.
type call struct {
	method string
	path   string
	form   url.Values

	// asClient sends the client credentials as HTTP Basic, form-encoded
	// per RFC 6749 section 2.3.1.
	asClient bool
	// bearer, when set, is sent as "Authorization: Bearer".
	bearer string

	// want is the success status. Zero means 200.
	want int
}

// do sends cl and decodes a successful body into out, which may be nil.
// Any other status comes back as an *OAuth2Error.
func (c *SDKClient) do(ctx context.Context, cl call, out any) error {
	var body io.Reader
	if cl.form != nil {
		body = strings.NewReader(cl.form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, cl.method, c.BaseURL+cl.path, body)
	if err != nil {
		return fmt.Errorf("build %s %s: %w", cl.method, cl.path, err)
	}
	req.Header.Set("Accept", "application/json")
	if cl.form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	switch {
	case cl.asClient:
		req.SetBasicAuth(url.QueryEscape(c.ClientID), url.QueryEscape(c.ClientSecret))
	case cl.bearer != "":
		req.Header.Set("Authorization", "Bearer "+cl.bearer)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", cl.method, cl.path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read %s response: %w", cl.path, err)
	}

	want := cl.want
	if want == 0 {
		want = http.StatusOK
	}
	if resp.StatusCode != want {
		if err := parseErrorResponse(resp, raw); err != nil {
			return err
		}
		return NewOAuth2Error(resp.StatusCode, ErrorCodeServerError, "unexpected status "+resp.Status)
	}

	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s response: %w", cl.path, err)
	}
	return nil
}

func (c *SDKClient) get(ctx context.Context, path string, out any) error {
	return c.do(ctx, call{method: http.MethodGet, path: path}, out)
}
