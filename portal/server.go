// Package portal serves the member-facing web front door: login via the
// chapter identity provider, the home card grid, the Slack invite flow and
// the published Zoom meeting listing.
package portal

import (
	"context"
	"embed"
	"html/template"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/BostonDSA/members/config"
	"github.com/BostonDSA/members/meetings"
	"github.com/BostonDSA/members/metrics"
)

//go:embed templates/*.html
var templateFS embed.FS

// MemberLookup reports whether an email belongs to a Slack workspace member.
type MemberLookup interface {
	LookupByEmail(ctx context.Context, email string) (bool, error)
}

// InviteRequester submits an invite request for moderation.
type InviteRequester interface {
	RequestInvite(ctx context.Context, name, email string) error
}

// InviteStore records invite requests for the run history.
type InviteStore interface {
	RecordInviteRequest(name, email string) error
}

// ArtifactSource reads published artifacts.
type ArtifactSource interface {
	Get(ctx context.Context, key string) ([]byte, error)
}

// Server holds the portal's dependencies and handlers.
type Server struct {
	cfg       config.PortalConfig
	slackURL  string
	artKey    string
	sessions  *SessionManager
	idp       IdentityProvider
	lookup    MemberLookup
	inviter   InviteRequester
	store     InviteStore
	artifacts ArtifactSource
	tmpl      *template.Template
	log       zerolog.Logger
}

// New creates a portal Server.
func New(cfg config.Config, idp IdentityProvider, lookup MemberLookup, inviter InviteRequester, store InviteStore, artifacts ArtifactSource, log zerolog.Logger) (*Server, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}

	return &Server{
		cfg:       cfg.Portal,
		slackURL:  cfg.Slack.URL,
		artKey:    cfg.AWS.ArtifactKey,
		sessions:  NewSessionManager(cfg.Portal.SessionSecret, time.Duration(cfg.Portal.SessionTTLHours)*time.Hour),
		idp:       idp,
		lookup:    lookup,
		inviter:   inviter,
		store:     store,
		artifacts: artifacts,
		tmpl:      tmpl,
		log:       log,
	}, nil
}

// Routes returns the portal's HTTP routes.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/", s.handleLanding)
	r.Get("/login", s.handleLogin)
	r.Get("/auth/callback", s.handleCallback)
	r.Get("/logout", s.handleLogout)
	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(s.RequireSession)
		r.Get("/home", s.handleHome)
		r.Get("/home/slack", s.handleSlack)
		r.Get("/home/slack/join", s.handleSlackJoinForm)
		r.Post("/home/slack/join", s.handleSlackJoin)
		r.Get("/home/zoom", s.handleZoom)
	})

	return r
}

func (s *Server) handleLanding(w http.ResponseWriter, r *http.Request) {
	s.render(w, "maint.html", nil)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	state := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   300,
		HttpOnly: true,
	})
	http.Redirect(w, r, s.idp.AuthURL(state), http.StatusFound)
}

func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	state, err := r.Cookie(stateCookie)
	if err != nil || state.Value == "" || state.Value != r.URL.Query().Get("state") {
		http.Error(w, "state mismatch", http.StatusBadRequest)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		http.Error(w, "missing code", http.StatusBadRequest)
		return
	}

	id, err := s.idp.Exchange(r.Context(), code)
	if err != nil {
		s.log.Error().Err(err).Msg("code exchange failed")
		http.Error(w, "login failed", http.StatusBadGateway)
		return
	}

	token, err := s.sessions.Issue(id.Email, id.Name)
	if err != nil {
		s.log.Error().Err(err).Msg("issuing session failed")
		http.Error(w, "login failed", http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   s.cfg.SessionTTLHours * 3600,
		HttpOnly: true,
	})
	s.log.Info().Str("email", id.Email).Msg("member logged in")
	http.Redirect(w, r, "/home", http.StatusFound)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	http.Redirect(w, r, "/", http.StatusFound)
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	claims, _ := claimsFrom(r.Context())
	s.render(w, "index.html", struct {
		Name string
		Rows [][]Card
	}{
		Name: claims.Name,
		Rows: cardRows(homeCards, cardsPerRow),
	})
}

// handleSlack sends workspace members straight to Slack and everyone else to
// the join form.
func (s *Server) handleSlack(w http.ResponseWriter, r *http.Request) {
	claims, _ := claimsFrom(r.Context())

	member, err := s.lookup.LookupByEmail(r.Context(), claims.Email)
	if err != nil {
		s.log.Error().Err(err).Str("email", claims.Email).Msg("slack lookup failed")
		http.Redirect(w, r, "/home/slack/join", http.StatusFound)
		return
	}
	if member {
		http.Redirect(w, r, s.slackURL, http.StatusFound)
		return
	}
	http.Redirect(w, r, "/home/slack/join", http.StatusFound)
}

type joinPage struct {
	Name  string
	Email string
	Alert string
}

func (s *Server) handleSlackJoinForm(w http.ResponseWriter, r *http.Request) {
	claims, _ := claimsFrom(r.Context())
	s.render(w, "slack.html", joinPage{Name: claims.Name, Email: claims.Email})
}

func (s *Server) handleSlackJoin(w http.ResponseWriter, r *http.Request) {
	claims, _ := claimsFrom(r.Context())

	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	name := r.PostFormValue("name")
	if name == "" {
		name = claims.Name
	}

	if err := s.inviter.RequestInvite(r.Context(), name, claims.Email); err != nil {
		s.log.Error().Err(err).Str("email", claims.Email).Msg("invite request failed")
		s.render(w, "slack.html", joinPage{
			Name:  name,
			Email: claims.Email,
			Alert: "Something went wrong sending your request. Please try again later.",
		})
		return
	}

	if err := s.store.RecordInviteRequest(name, claims.Email); err != nil {
		s.log.Error().Err(err).Msg("recording invite request failed")
	}
	metrics.InviteRequests.Inc()

	s.render(w, "slack.html", joinPage{
		Name:  name,
		Email: claims.Email,
		Alert: "Your request has been sent! Watch your inbox for an invitation.",
	})
}

func (s *Server) handleZoom(w http.ResponseWriter, r *http.Request) {
	body, err := s.artifacts.Get(r.Context(), s.artKey)
	if err != nil {
		s.log.Error().Err(err).Msg("reading meeting listing failed")
		http.Error(w, "meeting listing unavailable", http.StatusServiceUnavailable)
		return
	}

	var result meetings.AggregateResult
	if err := json.Unmarshal(body, &result); err != nil {
		s.log.Error().Err(err).Msg("decoding meeting listing failed")
		http.Error(w, "meeting listing unavailable", http.StatusServiceUnavailable)
		return
	}

	s.render(w, "zoom.html", result)
}

func (s *Server) render(w http.ResponseWriter, name string, data interface{}) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.tmpl.ExecuteTemplate(w, name, data); err != nil {
		s.log.Error().Err(err).Str("template", name).Msg("rendering failed")
	}
}
