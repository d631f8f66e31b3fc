package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/jmoiron/sqlx"
	"github.com/rehearsal-scheduler/app/internal/auth"
	"github.com/rehearsal-scheduler/app/internal/docs"
	"github.com/rehearsal-scheduler/app/internal/metrics"
	"github.com/sirupsen/logrus"
)

// Env holds what the handlers share.
type Env struct {
	DB     *sqlx.DB
	Tokens *auth.TokenManager
	Log    *logrus.Logger
}

// RouterOptions configures the middleware around the API.
type RouterOptions struct {
	APIURL         string
	AllowedOrigins []string
	RateLimitRPS   float64
	RateLimitBurst int
}

// NewRouter builds the full HTTP handler: middleware chain, public routes,
// and the bearer-protected API.
func NewRouter(env *Env, opts RouterOptions) (http.Handler, error) {
	apiDocs, err := docs.New(opts.APIURL, "/api/docs/openapi.json")
	if err != nil {
		return nil, err
	}

	r := mux.NewRouter()
	r.NotFoundHandler = Handle(func(w http.ResponseWriter, r *http.Request) error {
		return NotFound("Route not found")
	})
	r.MethodNotAllowedHandler = Handle(func(w http.ResponseWriter, r *http.Request) error {
		return &HTTPError{Status: http.StatusMethodNotAllowed, Message: "Method not allowed"}
	})

	r.HandleFunc("/health", Health).Methods(http.MethodGet)
	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/api/docs", apiDocs.ServeUI).Methods(http.MethodGet)
	r.HandleFunc("/api/docs/openapi.yaml", apiDocs.ServeYAML).Methods(http.MethodGet)
	r.HandleFunc("/api/docs/openapi.json", apiDocs.ServeJSON).Methods(http.MethodGet)

	requireAuth := RequireAuth(env.Tokens)
	limiter := NewRateLimiter(opts.RateLimitRPS, opts.RateLimitBurst)

	authRoutes := r.PathPrefix("/api/auth").Subrouter()
	authRoutes.Handle("/register", limiter.Handler(Handle(Register(env)))).Methods(http.MethodPost)
	authRoutes.Handle("/login", limiter.Handler(Handle(Login(env)))).Methods(http.MethodPost)
	authRoutes.Handle("/me", requireAuth(Handle(Me(env)))).Methods(http.MethodGet)
	authRoutes.Handle("/logout", requireAuth(http.HandlerFunc(Logout))).Methods(http.MethodPost)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(requireAuth)

	api.Handle("/users", Handle(ListUsers(env))).Methods(http.MethodGet)
	api.Handle("/users/me", Handle(UpdateProfile(env))).Methods(http.MethodPut)
	api.Handle("/users/{id:[0-9]+}", Handle(GetUser(env))).Methods(http.MethodGet)

	api.Handle("/bands", Handle(ListBands(env))).Methods(http.MethodGet)
	api.Handle("/bands", Handle(CreateBand(env))).Methods(http.MethodPost)
	api.Handle("/bands/{id:[0-9]+}", Handle(GetBand(env))).Methods(http.MethodGet)
	api.Handle("/bands/{id:[0-9]+}", Handle(UpdateBand(env))).Methods(http.MethodPut)
	api.Handle("/bands/{id:[0-9]+}", Handle(DeleteBand(env))).Methods(http.MethodDelete)
	api.Handle("/bands/{id:[0-9]+}/members", Handle(ListBandMembers(env))).Methods(http.MethodGet)
	api.Handle("/bands/{id:[0-9]+}/members", Handle(AddBandMember(env))).Methods(http.MethodPost)
	api.Handle("/bands/{id:[0-9]+}/members/{userId:[0-9]+}", Handle(RemoveBandMember(env))).Methods(http.MethodDelete)

	// "upcoming" is registered before {id} so it is not parsed as an id.
	api.Handle("/rehearsals/upcoming", Handle(UpcomingRehearsals(env))).Methods(http.MethodGet)
	api.Handle("/rehearsals", Handle(ListRehearsals(env))).Methods(http.MethodGet)
	api.Handle("/rehearsals", Handle(CreateRehearsal(env))).Methods(http.MethodPost)
	api.Handle("/rehearsals/{id:[0-9]+}", Handle(GetRehearsal(env))).Methods(http.MethodGet)
	api.Handle("/rehearsals/{id:[0-9]+}", Handle(UpdateRehearsal(env))).Methods(http.MethodPut)
	api.Handle("/rehearsals/{id:[0-9]+}", Handle(DeleteRehearsal(env))).Methods(http.MethodDelete)
	api.Handle("/rehearsals/{id:[0-9]+}/attendance", Handle(GetAttendance(env))).Methods(http.MethodGet)
	api.Handle("/rehearsals/{id:[0-9]+}/attendance", Handle(SetAttendance(env))).Methods(http.MethodPut)
	api.Handle("/rehearsals/{id:[0-9]+}/attendance/me", Handle(MyAttendance(env))).Methods(http.MethodGet)

	api.Handle("/setlists", Handle(ListSetlists(env))).Methods(http.MethodGet)
	api.Handle("/setlists", Handle(CreateSetlist(env))).Methods(http.MethodPost)
	api.Handle("/setlists/{id:[0-9]+}", Handle(GetSetlist(env))).Methods(http.MethodGet)
	api.Handle("/setlists/{id:[0-9]+}", Handle(UpdateSetlist(env))).Methods(http.MethodPut)
	api.Handle("/setlists/{id:[0-9]+}", Handle(DeleteSetlist(env))).Methods(http.MethodDelete)

	api.Handle("/resources", Handle(ListResources(env))).Methods(http.MethodGet)
	api.Handle("/resources", Handle(CreateResource(env))).Methods(http.MethodPost)
	api.Handle("/resources/{id:[0-9]+}", Handle(GetResource(env))).Methods(http.MethodGet)
	api.Handle("/resources/{id:[0-9]+}", Handle(UpdateResource(env))).Methods(http.MethodPut)
	api.Handle("/resources/{id:[0-9]+}", Handle(DeleteResource(env))).Methods(http.MethodDelete)

	return withMiddleware(r, env.Log, opts.AllowedOrigins), nil
}

// withMiddleware wraps next, innermost first. CORS sits outside the router so
// preflight requests are answered before route method matching. Recoverer
// stays inside the logger and metrics so a panicking request is still logged
// and counted.
func withMiddleware(next http.Handler, log *logrus.Logger, allowedOrigins []string) http.Handler {
	h := NewCORS(allowedOrigins).Handler(next)
	h = SecurityHeaders(h)
	h = Recoverer(log)(h)
	h = metrics.InstrumentHandler(h)
	h = RequestLogger(log)(h)
	return h
}

// Health reports that the process is up.
func Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
