package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/aussiebroadwan/tabchat/internal/chat/domain"
	"github.com/aussiebroadwan/tabchat/internal/chat/service"
	"github.com/aussiebroadwan/tabchat/internal/chat/store"
	"github.com/aussiebroadwan/tabchat/pkg/httpx"
	"github.com/aussiebroadwan/tabchat/pkg/ratelimit"
	"github.com/aussiebroadwan/tabchat/pkg/slogx"

	_ "github.com/aussiebroadwan/tabchat/api/chat" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// Cooldowns applied ahead of the handlers.
const (
	SignupCooldown = 5 * time.Second
	LoginCooldown  = time.Second
	PostCooldown   = time.Second
)

// Scopes an app refresh session must hold for each guarded route.
const (
	ScopeProfileRead   = "profile:read"
	ScopePostsWrite    = "posts:write"
	ScopeSessionRenew  = "session:renew"
	ScopeSessionRevoke = "session:revoke"
)

// EncryptionStatus reports whether sealed records can currently be read.
type EncryptionStatus interface {
	Available() bool
}

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	buildVersion string
	startTime    time.Time
	logger       *slog.Logger
	store        store.Store

	Sessions *service.SessionService
	Guard    *service.Guard
	Users    *service.UserService
	Posts    *service.PostService
	Limiter  ratelimit.Limiter

	// Gateway serves the websocket upgrade. Optional.
	Gateway http.Handler

	// Encryption is checked by /readyz. Nil reports encryption as disabled.
	Encryption EncryptionStatus
}

func NewRouter(buildVersion string, st store.Store, logger *slog.Logger) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		logger:       logger,
	}

	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerUsers()
	r.registerSessions()
	r.registerMe()
	r.registerPosts()
	r.registerAdmin()
	r.registerGateway()
	r.registerSystem()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title						tabchat API
//	@version					0.1.0
//	@description				Session, profile and post endpoints for tabchat. Realtime traffic uses the websocket gateway at /v1/gateway.
//
//	@contact.name				AussieBroadWAN Team
//	@contact.url				https://github.com/aussiebroadwan/tabchat
//
//	@license.name				MIT
//	@license.url				https://opensource.org/licenses/MIT
//
//	@host						localhost:8080
//	@BasePath					/
//
//	@schemes					http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Opaque session token. Format: "Bearer {token}".
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

// guarded wraps h with the guard for p and a per-user flood limit.
func (r *Router) guarded(h http.Handler, p service.Policy, limit httpx.RateLimitConfig) http.Handler {
	return httpx.Chain(h,
		httpx.AuthnMiddleware(guardAuthenticator{guard: r.Guard, policy: p}, writeAuthError),
		httpx.RateLimitByUser(limit),
	)
}

func (r *Router) registerUsers() {
	h := &SignupHandler{Users: r.Users}

	// POST /v1/users - one signup per address per cooldown
	r.Mux.Handle("POST /v1/users",
		httpx.Chain(h,
			httpx.RateLimitByIP(httpx.StrictLimit),
			httpx.CooldownMiddleware(r.Limiter, ratelimit.CategorySignup, SignupCooldown, httpx.IPKeyExtractor),
		),
	)
}

func (r *Router) registerSessions() {
	h := &SessionsHandler{Sessions: r.Sessions, Users: r.Users}

	r.Mux.Handle("POST /v1/sessions",
		httpx.Chain(http.HandlerFunc(h.HandleLogin),
			httpx.RateLimitByIP(httpx.StrictLimit),
			httpx.CooldownMiddleware(r.Limiter, ratelimit.CategoryLogin, LoginCooldown, httpx.IPKeyExtractor),
		),
	)

	r.Mux.Handle("POST /v1/sessions/refresh",
		httpx.Chain(http.HandlerFunc(h.HandleRefresh),
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)

	userOnly := service.Policy{Kinds: []domain.SessionKind{domain.KindUser}}
	renew := service.Policy{
		Kinds: []domain.SessionKind{domain.KindUser, domain.KindAppRefresh},
		Scope: ScopeSessionRenew,
	}
	revoke := service.Policy{
		Kinds: []domain.SessionKind{domain.KindUser, domain.KindAppRefresh},
		Scope: ScopeSessionRevoke,
	}

	r.Mux.Handle("POST /v1/sessions/app", r.guarded(http.HandlerFunc(h.HandleCreateApp), userOnly, httpx.ModerateLimit))
	r.Mux.Handle("POST /v1/sessions/renew", r.guarded(http.HandlerFunc(h.HandleRenew), renew, httpx.ModerateLimit))
	r.Mux.Handle("DELETE /v1/sessions/current", r.guarded(http.HandlerFunc(h.HandleRevoke), revoke, httpx.ModerateLimit))
}

func (r *Router) registerMe() {
	h := &MeHandler{Users: r.Users}

	r.Mux.Handle("GET /v1/me", r.guarded(http.HandlerFunc(h.HandleGet), service.Policy{
		Kinds: []domain.SessionKind{domain.KindUser, domain.KindAppRefresh},
		Scope: ScopeProfileRead,
	}, httpx.LenientLimit))

	r.Mux.Handle("PUT /v1/me/email", r.guarded(http.HandlerFunc(h.HandleUpdateEmail), service.Policy{
		Kinds:           []domain.SessionKind{domain.KindUser},
		CheckSuspension: true,
	}, httpx.StrictLimit))

	r.Mux.Handle("POST /v1/me/delete", r.guarded(http.HandlerFunc(h.HandleScheduleDeletion), service.Policy{
		Kinds: []domain.SessionKind{domain.KindUser},
	}, httpx.StrictLimit))
}

func (r *Router) registerPosts() {
	h := &PostsHandler{Posts: r.Posts}

	r.Mux.Handle("POST /v1/home", r.guarded(h, service.Policy{
		Kinds:           []domain.SessionKind{domain.KindUser, domain.KindAppRefresh},
		Scope:           ScopePostsWrite,
		CheckSuspension: true,
		RateCategory:    ratelimit.CategoryPost,
		RateWindow:      PostCooldown,
	}, httpx.ModerateLimit))
}

func (r *Router) registerAdmin() {
	h := &AdminHandler{Users: r.Users}

	r.Mux.Handle("POST /v1/admin/users/{id}/ban", r.guarded(http.HandlerFunc(h.HandleBan), service.Policy{
		Kinds:  []domain.SessionKind{domain.KindUser},
		Levels: []int{domain.LevelModerator, domain.LevelAdmin},
	}, httpx.ModerateLimit))
}

func (r *Router) registerGateway() {
	if r.Gateway == nil {
		return
	}
	r.Mux.Handle("GET /v1/gateway",
		httpx.Chain(r.Gateway,
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)
}

func (r *Router) registerSystem() {
	// Health check endpoints - lenient rate limits (monitoring systems may poll frequently)
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store, r.Encryption),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
}
