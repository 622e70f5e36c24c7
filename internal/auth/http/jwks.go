package http

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/JanssenProject/jans-sub050/pkg/authsdk"
	"github.com/JanssenProject/jans-sub050/pkg/jwtx"
)

// jwksMaxAge bounds how long relying parties may cache the key set.
const jwksMaxAge = 5 * time.Minute

// JWKSHandler publishes the public half of the signing keys so relying
// parties can verify ID tokens and pushed tokens. Unlike every other
// answer it is cacheable, revalidated by ETag.
//
//	@Summary		Get JWKS
//	@Description	Returns the JSON Web Key Set used to verify ID tokens and access tokens.
//	@Tags			well-known
//	@Produce		json
//	@Success		200	{object}	authsdk.JWKSResponse	"The JSON Web Key Set"
//	@Success		304	"Key set unchanged since the presented ETag"
//	@Router			/.well-known/jwks.json [get].
func JWKSHandler(keys *jwtx.KeySet) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := json.Marshal(authsdk.JWKSResponse(keys.PublicJWKS()))
		if err != nil {
			writeError(w, r, "encode jwks", err)
			return
		}
		sum := sha256.Sum256(body)
		etag := `"` + hex.EncodeToString(sum[:8]) + `"`

		h := w.Header()
		h.Set("Cache-Control", "public, max-age="+strconv.Itoa(int(jwksMaxAge.Seconds())))
		h.Set("ETag", etag)
		if r.Header.Get("If-None-Match") == etag {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		h.Set("Content-Type", "application/json")
		_, _ = w.Write(body)
	}
}
