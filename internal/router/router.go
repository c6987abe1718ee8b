// Package router wires the HTTP surface of the service: route registration,
// middleware order, request decoding/validation, and the mapping of business
// errors to JSON error responses. Business rules live in the session,
// shortcode and storage packages; handlers only translate their sentinel
// errors to apperror kinds.
package router

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	validator "github.com/go-playground/validator/v10"
	"github.com/thoas/go-funk"

	"github.com/patric-chuzhbe/shrtnr/internal/apperror"
	"github.com/patric-chuzhbe/shrtnr/internal/auth"
	"github.com/patric-chuzhbe/shrtnr/internal/db/storage"
	"github.com/patric-chuzhbe/shrtnr/internal/gzippedhttp"
	"github.com/patric-chuzhbe/shrtnr/internal/logger"
	"github.com/patric-chuzhbe/shrtnr/internal/models"
	"github.com/patric-chuzhbe/shrtnr/internal/session"
	"github.com/patric-chuzhbe/shrtnr/internal/shortcode"
	"github.com/patric-chuzhbe/shrtnr/internal/token"
	"github.com/patric-chuzhbe/shrtnr/internal/user"
)

type userKeeper interface {
	CreateUser(ctx context.Context, username, passwordHash string) (int64, error)
	FindUserByUsername(ctx context.Context, username string) (*user.User, bool, error)
}

type linkKeeper interface {
	FindLinkByCode(ctx context.Context, code string) (*models.Link, bool, error)
	FindUserLinks(ctx context.Context, ownerID int64) ([]models.Link, error)
}

type pinger interface {
	Ping(ctx context.Context) error
}

type store interface {
	userKeeper
	linkKeeper
	pinger
}

type sessioner interface {
	Login(ctx context.Context, username, password string, persistent bool) (string, *http.Cookie, error)
	Refresh(refreshToken string) (string, *http.Cookie, error)
	LogoutCookie() *http.Cookie
}

type codeAllocator interface {
	Allocate(ctx context.Context, longURL, requestedCode string, ownerID int64) (string, error)
}

type passwordHasher interface {
	Hash(password string) (string, error)
}

type authenticator interface {
	RequireAuth(h http.Handler) http.Handler
}

// Options carries the optional collaborators and settings of the router.
type Options struct {
	// ShortURLBase prefixes the short URLs reported by /get-user-links.
	ShortURLBase string

	// CORSAllowedOrigin configures the CORS policy; the frontend is served
	// from a different origin and sends credentials.
	CORSAllowedOrigin string

	// StaticFilesDir, when non-empty, is served at the root for unmatched paths.
	StaticFilesDir string

	// MetricsHandler, when non-nil, is mounted at /metrics behind TrustedOnly.
	MetricsHandler http.Handler

	// MetricsMiddleware, when non-nil, observes every request.
	MetricsMiddleware func(http.Handler) http.Handler

	// TrustedOnly guards operational endpoints; required when MetricsHandler is set.
	TrustedOnly func(http.Handler) http.Handler
}

type router struct {
	db        store
	sessions  sessioner
	allocator codeAllocator
	hasher    passwordHasher
	validator *validator.Validate
	options   Options
}

// New builds the chi mux with all routes and middleware registered.
func New(
	db store,
	sessions sessioner,
	guard authenticator,
	allocator codeAllocator,
	hasher passwordHasher,
	options Options,
) *chi.Mux {
	rt := &router{
		db:        db,
		sessions:  sessions,
		allocator: allocator,
		hasher:    hasher,
		validator: validator.New(),
		options:   options,
	}

	mux := chi.NewRouter()
	mux.Use(logger.WithRequestIDMiddleware)
	mux.Use(logger.WithLoggingHTTPMiddleware)
	if options.MetricsMiddleware != nil {
		mux.Use(options.MetricsMiddleware)
	}
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{options.CORSAllowedOrigin},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	mux.Use(gzippedhttp.UngzipRequest)
	mux.Use(gzippedhttp.GzipResponse)

	mux.Post(`/login`, rt.postLogin)
	mux.Get(`/refresh`, rt.getRefresh)
	mux.Post(`/create-user`, rt.postCreateUser)
	mux.Get(`/link/{code}`, rt.getRedirect)
	mux.Get(`/ping`, rt.getPing)

	if options.MetricsHandler != nil && options.TrustedOnly != nil {
		mux.With(options.TrustedOnly).Handle(`/metrics`, options.MetricsHandler)
	}

	mux.Group(func(protected chi.Router) {
		protected.Use(guard.RequireAuth)
		protected.Get(`/logout`, rt.getLogout)
		protected.Get(`/whoami`, rt.getWhoami)
		protected.Post(`/shorten-link`, rt.postShortenLink)
		protected.Get(`/get-user-links`, rt.getUserLinks)
	})

	if options.StaticFilesDir != "" {
		mux.Handle(`/*`, http.FileServer(http.Dir(options.StaticFilesDir)))
	}

	return mux
}

func (rt *router) postLogin(response http.ResponseWriter, request *http.Request) {
	var loginRequest models.LoginRequest
	if err := rt.decodeAndValidate(request, &loginRequest); err != nil {
		WriteError(response, request, err)
		return
	}

	accessToken, refreshCookie, err := rt.sessions.Login(
		request.Context(),
		loginRequest.Username,
		loginRequest.Password,
		loginRequest.Persistent,
	)
	if err != nil {
		switch {
		case errors.Is(err, session.ErrInvalidCredentials):
			WriteError(response, request, apperror.NewInvalidCredentials(err))
		case errors.Is(err, token.ErrCannotSign):
			WriteError(response, request, apperror.NewCannotGenerateToken(err))
		default:
			WriteError(response, request, apperror.NewInternal(err))
		}
		return
	}

	http.SetCookie(response, refreshCookie)
	writeData(response, http.StatusOK, models.TokenResponse{Token: accessToken})
}

func (rt *router) getRefresh(response http.ResponseWriter, request *http.Request) {
	cookie, err := request.Cookie(session.RefreshCookieName)
	if err != nil {
		WriteError(response, request, apperror.NewAuth(err))
		return
	}

	accessToken, refreshCookie, err := rt.sessions.Refresh(cookie.Value)
	if err != nil {
		switch {
		case errors.Is(err, session.ErrInvalidRefreshToken):
			WriteError(response, request, apperror.NewAuth(err))
		case errors.Is(err, token.ErrCannotSign):
			WriteError(response, request, apperror.NewCannotGenerateToken(err))
		default:
			WriteError(response, request, apperror.NewInternal(err))
		}
		return
	}

	http.SetCookie(response, refreshCookie)
	writeData(response, http.StatusOK, models.TokenResponse{Token: accessToken})
}

func (rt *router) getLogout(response http.ResponseWriter, request *http.Request) {
	if _, err := request.Cookie(session.RefreshCookieName); err != nil {
		http.Redirect(response, request, "/", http.StatusTemporaryRedirect)
		return
	}

	http.SetCookie(response, rt.sessions.LogoutCookie())
	writeData(response, http.StatusOK, models.MessageResponse{Message: "logged out"})
}

func (rt *router) getWhoami(response http.ResponseWriter, request *http.Request) {
	claims, ok := auth.ClaimsFromContext(request.Context())
	if !ok {
		WriteError(response, request, apperror.NewAuth(nil))
		return
	}

	writeData(response, http.StatusOK, claims)
}

func (rt *router) postCreateUser(response http.ResponseWriter, request *http.Request) {
	var createRequest models.CreateUserRequest
	if err := rt.decodeAndValidate(request, &createRequest); err != nil {
		WriteError(response, request, err)
		return
	}

	passwordHash, err := rt.hasher.Hash(createRequest.Password)
	if err != nil {
		WriteError(response, request, apperror.NewInternal(err))
		return
	}

	if _, err := rt.db.CreateUser(request.Context(), createRequest.Username, passwordHash); err != nil {
		if errors.Is(err, storage.ErrUserExists) {
			WriteError(response, request, apperror.NewUserAlreadyExists(err))
			return
		}
		WriteError(response, request, apperror.NewInternal(err))
		return
	}

	writeData(response, http.StatusCreated, models.CreateUserResponse{Username: createRequest.Username})
}

func (rt *router) postShortenLink(response http.ResponseWriter, request *http.Request) {
	var shortenRequest models.ShortenRequest
	if err := rt.decodeAndValidate(request, &shortenRequest); err != nil {
		WriteError(response, request, err)
		return
	}

	owner, appErr := rt.authenticatedUser(request)
	if appErr != nil {
		WriteError(response, request, appErr)
		return
	}

	code, err := rt.allocator.Allocate(request.Context(), shortenRequest.URL, shortenRequest.Code, owner.ID)
	if err != nil {
		switch {
		case errors.Is(err, shortcode.ErrCodeTaken):
			WriteError(response, request, apperror.NewConflict(err))
		case errors.Is(err, shortcode.ErrInvalidCode):
			WriteError(response, request, apperror.NewValidation(err.Error(), err))
		default:
			WriteError(response, request, apperror.NewInternal(err))
		}
		return
	}

	writeData(response, http.StatusOK, models.ShortenResponse{ShortURL: code})
}

func (rt *router) getRedirect(response http.ResponseWriter, request *http.Request) {
	code := chi.URLParam(request, "code")

	link, found, err := rt.db.FindLinkByCode(request.Context(), code)
	if err != nil {
		WriteError(response, request, apperror.NewInternal(err))
		return
	}
	if !found {
		http.Redirect(response, request, "/", http.StatusTemporaryRedirect)
		return
	}

	http.Redirect(response, request, link.LongURL, http.StatusTemporaryRedirect)
}

func (rt *router) getUserLinks(response http.ResponseWriter, request *http.Request) {
	owner, appErr := rt.authenticatedUser(request)
	if appErr != nil {
		WriteError(response, request, appErr)
		return
	}

	links, err := rt.db.FindUserLinks(request.Context(), owner.ID)
	if err != nil {
		WriteError(response, request, apperror.NewInternal(err))
		return
	}

	userLinks := funk.Map(links, func(link models.Link) models.UserLink {
		return models.UserLink{
			ShortURL: rt.options.ShortURLBase + "/link/" + link.Code,
			LongURL:  link.LongURL,
		}
	}).([]models.UserLink)

	writeData(response, http.StatusOK, userLinks)
}

func (rt *router) getPing(response http.ResponseWriter, request *http.Request) {
	if err := rt.db.Ping(request.Context()); err != nil {
		WriteError(response, request, apperror.NewInternal(err))
		return
	}

	response.WriteHeader(http.StatusOK)
}

// authenticatedUser resolves the guard-injected claims to the stored account.
// A subject that no longer exists is rejected the same way as a bad token.
func (rt *router) authenticatedUser(request *http.Request) (*user.User, *apperror.AppError) {
	claims, ok := auth.ClaimsFromContext(request.Context())
	if !ok {
		return nil, apperror.NewAuth(nil)
	}

	usr, found, err := rt.db.FindUserByUsername(request.Context(), claims.Subject)
	if err != nil {
		return nil, apperror.NewInternal(err)
	}
	if !found {
		return nil, apperror.NewAuth(nil)
	}

	return usr, nil
}

func (rt *router) decodeAndValidate(request *http.Request, target interface{}) *apperror.AppError {
	if err := json.NewDecoder(request.Body).Decode(target); err != nil {
		return apperror.NewValidation("malformed request body", err)
	}
	if err := rt.validator.Struct(target); err != nil {
		return apperror.NewValidation("invalid request body", err)
	}
	return nil
}

type okResponse struct {
	Data      interface{} `json:"data"`
	Timestamp string      `json:"timestamp"`
}

type errResponse struct {
	Error     string `json:"error"`
	Timestamp string `json:"timestamp"`
}

func writeData(response http.ResponseWriter, status int, data interface{}) {
	writeJSON(response, status, okResponse{
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// WriteError renders err in the `{error, timestamp}` envelope with the status
// of its apperror kind. It is exported so collaborators outside the handler
// set (the auth guard's reject callback) produce the same error shape.
func WriteError(response http.ResponseWriter, request *http.Request, err error) {
	appErr := apperror.From(err)

	logger.Log.Debugw(
		"request failed",
		"error", appErr.Error(),
		"status", appErr.StatusCode(),
		"request_id", logger.RequestIDFromContext(request.Context()),
	)

	writeJSON(response, appErr.StatusCode(), errResponse{
		Error:     appErr.Message,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func writeJSON(response http.ResponseWriter, status int, body interface{}) {
	response.Header().Set("Content-Type", "application/json")
	response.WriteHeader(status)
	if err := json.NewEncoder(response).Encode(body); err != nil {
		logger.Log.Debugw("writing response body", "error", err)
	}
}
