package api

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"time"

	"dental-registration/registration"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// Options configures the HTTP surface. Zero rate limits disable limiting
// and a zero MaxBodyBytes means 10MB. TrustProxy takes the client address
// from X-Forwarded-For and X-Real-IP; enable it only behind a proxy that
// sets those headers.
type Options struct {
	StaticDir             string
	AllowedOrigins        []string
	AllowAllOrigins       bool
	TrustProxy            bool
	RateLimitWindow       time.Duration
	APIRateLimit          int
	RegistrationRateLimit int
	TxTimeout             time.Duration
	MaxBodyBytes          int64
}

const defaultMaxBodyBytes = 10 << 20

type API struct {
	root      *mux.Router
	router    *mux.Router
	db        *sql.DB
	log       *logrus.Logger
	opts      Options
	registrar *registration.Registrar
	started   time.Time
	now       func() time.Time
}

func NewAPI(db *sql.DB, log *logrus.Logger, opts Options) *API {
	root := mux.NewRouter()
	return &API{
		root:      root,
		router:    root.PathPrefix("/api").Subrouter(),
		db:        db,
		log:       log,
		opts:      opts,
		registrar: registration.NewRegistrar(db, log, registration.WithTxTimeout(opts.TxTimeout)),
		started:   time.Now(),
		now:       time.Now,
	}
}

// Router returns the bare router without the middleware chain.
func (a *API) Router() *mux.Router {
	return a.root
}

// Handler wraps the router with access logging, panic recovery, CORS and
// security headers. Proxy headers are honoured only with TrustProxy.
func (a *API) Handler() http.Handler {
	cors := []handlers.CORSOption{
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type"}),
	}
	if a.opts.AllowAllOrigins {
		// browsers reject credentials with a wildcard origin
		cors = append(cors, handlers.AllowedOrigins([]string{"*"}))
	} else {
		cors = append(cors, handlers.AllowedOrigins(a.opts.AllowedOrigins), handlers.AllowCredentials())
	}

	var h http.Handler = securityHeaders(a.root)
	h = handlers.CORS(cors...)(h)
	h = handlers.RecoveryHandler(handlers.RecoveryLogger(a.log), handlers.PrintRecoveryStack(false))(h)
	if a.opts.TrustProxy {
		h = handlers.ProxyHeaders(h)
	}
	return handlers.LoggingHandler(a.log.Writer(), h)
}

func (a *API) maxBodyBytes() int64 {
	if a.opts.MaxBodyBytes > 0 {
		return a.opts.MaxBodyBytes
	}
	return defaultMaxBodyBytes
}

type Response struct {
	Status   int `json:"status"`
	Response any `json:"response"`
}

// ErrorBody is the payload of every non-2xx response.
type ErrorBody struct {
	Error   string         `json:"error"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

func (a *API) Response(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	err := json.NewEncoder(w).Encode(Response{
		Status:   status,
		Response: data,
	})
	if err != nil {
		a.log.WithError(err).Error("failed to encode response")
	}
}

func (a *API) Error(w http.ResponseWriter, status int, class, message string, details map[string]any) {
	a.Response(w, status, ErrorBody{Error: class, Message: message, Details: details})
}

func (a *API) RegisterRoutes() {
	a.root.HandleFunc("/health", a.health).Methods(http.MethodGet)
	a.root.HandleFunc("/api", a.info).Methods(http.MethodGet)

	if l := newIPRateLimiter(a.opts.APIRateLimit, a.opts.RateLimitWindow, a.tooManyRequests); l != nil {
		a.router.Use(l.Middleware)
	}
	limitRegistration := func(h http.HandlerFunc) http.Handler { return h }
	if l := newIPRateLimiter(a.opts.RegistrationRateLimit, a.opts.RateLimitWindow, a.tooManyRequests); l != nil {
		limitRegistration = func(h http.HandlerFunc) http.Handler { return l.Middleware(h) }
	}

	a.router.HandleFunc("/estudiantes", a.getStudents).Methods(http.MethodGet)
	a.router.Handle("/estudiantes", limitRegistration(a.registerBasic)).Methods(http.MethodPost)
	a.router.Handle("/estudiantes/registro-completo", limitRegistration(a.registerComplete)).Methods(http.MethodPost)
	a.router.HandleFunc("/estudiantes/verificar-email/{email}", a.checkEmail).Methods(http.MethodGet)
	a.router.HandleFunc("/estudiantes/estadisticas", a.getStats).Methods(http.MethodGet)
	a.router.HandleFunc("/estudiantes/{id}", a.getStudent).Methods(http.MethodGet)

	a.root.NotFoundHandler = http.HandlerFunc(a.notFound)
	if a.opts.StaticDir != "" {
		a.root.PathPrefix("/").Handler(http.FileServer(http.Dir(a.opts.StaticDir))).Methods(http.MethodGet, http.MethodHead)
	}
}

func (a *API) notFound(w http.ResponseWriter, r *http.Request) {
	a.Error(w, http.StatusNotFound, "not_found", "route not found", map[string]any{"path": r.URL.Path})
}

func (a *API) tooManyRequests(w http.ResponseWriter, _ *http.Request) {
	a.Error(w, http.StatusTooManyRequests, "rate_limited", "too many requests, try again later", nil)
}
