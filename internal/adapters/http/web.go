package web

import (
	"context"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"coachdesk/internal/adapters/cache"
	"coachdesk/internal/adapters/email"
	"coachdesk/internal/adapters/events"
	"coachdesk/internal/adapters/http/middleware"
	"coachdesk/internal/adapters/images"
	"coachdesk/internal/adapters/metrics"
	checkInStore "coachdesk/internal/adapters/storage/checkin"
	clientTemplateStore "coachdesk/internal/adapters/storage/clienttemplate"
	coachTemplateStore "coachdesk/internal/adapters/storage/coachtemplate"
	exerciseStore "coachdesk/internal/adapters/storage/exercise"
	userStore "coachdesk/internal/adapters/storage/user"
	"coachdesk/internal/application/orchestrators"
)

// Stores holds all storage dependencies.
type Stores struct {
	Users           userStore.Store
	Exercises       exerciseStore.Store
	CoachTemplates  coachTemplateStore.Store
	ClientTemplates clientTemplateStore.Store
	CheckIns        checkInStore.Store
}

// Services holds the outbound adapters. Nil fields fall back to no-op implementations.
type Services struct {
	Email   email.Sender
	Events  events.Publisher
	Cache   cache.TrainingLog
	Images  images.Store
	Metrics *metrics.Collector
	AppURL  string
}

// Options tunes the middleware chain.
type Options struct {
	JWTSecret          []byte
	CSRFKey            []byte // 32 bytes
	SecureCookies      bool
	RateLimitPerSecond int
	SlowRequest        time.Duration
	// Now and GenerateID default to time.Now and uuid.NewString.
	Now        func() time.Time
	GenerateID func() string
}

// app carries the wiring shared by every handler.
type app struct {
	stores     Stores
	services   Services
	validate   *validator.Validate
	now        func() time.Time
	generateID func() string
}

func (a *app) effects() orchestrators.SideEffects {
	return orchestrators.SideEffects{
		Email:  a.services.Email,
		Events: a.services.Events,
		Cache:  a.services.Cache,
		AppURL: a.services.AppURL,
	}
}

// NewMux wires HTTP handlers for the API. The rate limiter's sweeper stops when ctx is done.
// PRE: every Stores field is set; opts.JWTSecret is non-empty
// POST: returns the handler with the full middleware chain applied
func NewMux(ctx context.Context, s Stores, svc Services, opts Options) http.Handler {
	if svc.Email == nil {
		svc.Email = email.NewNoopSender()
	}
	if svc.Events == nil {
		svc.Events = events.Noop{}
	}
	if svc.Cache == nil {
		svc.Cache = cache.Noop{}
	}
	if svc.Images == nil {
		svc.Images = images.Noop{}
	}
	a := &app{
		stores:     s,
		services:   svc,
		validate:   newValidator(),
		now:        opts.Now,
		generateID: opts.GenerateID,
	}
	if a.now == nil {
		a.now = time.Now
	}
	if a.generateID == nil {
		a.generateID = uuid.NewString
	}

	mux := http.NewServeMux()
	a.registerRoutes(mux)

	limiter := middleware.NewRateLimiter(ctx, opts.RateLimitPerSecond, time.Second)

	// Apply middleware: Timing -> Auth -> CSRF -> SecurityHeaders -> RateLimit -> Mux
	return middleware.Chain(mux,
		middleware.RateLimit(limiter),
		middleware.SecurityHeaders,
		middleware.CSRF(opts.CSRFKey, opts.SecureCookies),
		middleware.Auth(middleware.NewTokenVerifier(opts.JWTSecret)),
		middleware.Timing(svc.Metrics, opts.SlowRequest),
	)
}

// newValidator reports fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}
