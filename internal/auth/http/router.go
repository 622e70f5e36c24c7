package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/JanssenProject/jans-sub050/internal/auth/service"
	"github.com/JanssenProject/jans-sub050/internal/auth/store"
	"github.com/JanssenProject/jans-sub050/pkg/httpx"
	"github.com/JanssenProject/jans-sub050/pkg/jwtx"
	"github.com/JanssenProject/jans-sub050/pkg/slogx"

	_ "github.com/JanssenProject/jans-sub050/api/auth" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	keys         *jwtx.KeySet
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	store store.Store
	cache store.GrantCache

	CIBA    *service.CIBAService
	Clients *service.ClientAuthenticator
	Tokens  *service.TokenService

	// Limits is read by ApplyRoutes.
	Limits httpx.RateLimits
}

func NewRouter(
	keys *jwtx.KeySet,
	buildVersion string,
	st store.Store,
	cache store.GrantCache,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		keys:         keys,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		cache:        cache,
		logger:       logger,
		Limits:       httpx.DefaultRateLimits(),
	}

	// Set default middleware chain
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerBackchannel()
	r.registerOAuth2()
	r.registerSystem()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			Janssen CIBA Authorization Server API
//	@version		0.1.0
//	@description	OpenID Connect Client-Initiated Backchannel Authentication (CIBA) in poll, ping and push modes.
//	@description
//	@description				ID tokens and access tokens are signed JWTs that can be verified using the JWKS endpoint.
//
//	@contact.name				Janssen Project
//	@contact.url				https://github.com/JanssenProject/jans-sub050
//
//	@license.name				Apache 2.0
//	@license.url				https://www.apache.org/licenses/LICENSE-2.0
//
//	@host						localhost:8080
//	@BasePath					/
//
//	@schemes					http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Device registration token of the authentication device. Format: "Bearer {token}".
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerBackchannel() {
	// POST /bc-authorize - strict rate limit per client and IP
	r.Mux.Handle("POST /bc-authorize",
		httpx.Chain(&BackchannelAuthHandler{CIBA: r.CIBA},
			httpx.ClaimedClient(),
			httpx.RateLimitByClient(r.Limits.Strict),
		),
	)

	// POST /bc-deviceRegistration - strict rate limit per client and IP
	r.Mux.Handle("POST /bc-deviceRegistration",
		httpx.Chain(&DeviceRegistrationHandler{CIBA: r.CIBA},
			httpx.ClaimedClient(),
			httpx.RateLimitByClient(r.Limits.Strict),
		),
	)

	// Consent endpoints are called by the end-user's device
	consent := &ConsentHandler{CIBA: r.CIBA}
	r.Mux.Handle("POST /bc-consent/begin",
		httpx.Chain(http.HandlerFunc(consent.HandleBegin),
			httpx.RateLimitByIPAndFormField(r.Limits.Moderate, "auth_req_id"),
		),
	)
	r.Mux.Handle("POST /bc-consent",
		httpx.Chain(http.HandlerFunc(consent.HandleDecide),
			httpx.RateLimitByIPAndFormField(r.Limits.Moderate, "auth_req_id"),
		),
	)
}

func (r *Router) registerOAuth2() {
	// POST /token - polled at the backchannel interval, limited per request
	r.Mux.Handle("POST /token",
		httpx.Chain(&TokenHandler{CIBA: r.CIBA},
			httpx.RateLimitByIPAndFormField(r.Limits.Lenient, "auth_req_id"),
		),
	)

	// POST /revoke - moderate rate limit per client and IP
	r.Mux.Handle("POST /revoke",
		httpx.Chain(&RevokeHandler{Clients: r.Clients, Tokens: r.Tokens},
			httpx.ClaimedClient(),
			httpx.RateLimitByClient(r.Limits.Moderate),
		),
	)

	// GET /jwks.json - public endpoint with high limit
	r.Mux.Handle("GET /.well-known/jwks.json",
		httpx.Chain(JWKSHandler(r.keys),
			httpx.RateLimitByIP(r.Limits.Public),
		),
	)
}

func (r *Router) registerSystem() {
	// Health check endpoints - lenient rate limits (monitoring systems may poll frequently)
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(r.Limits.Lenient),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store, r.cache, r.keys),
			httpx.RateLimitByIP(r.Limits.Lenient),
		),
	)
}
