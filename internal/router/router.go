// Package router wires the HTTP surface of the biolink server: the public
// page, the document API, the admin login flow and the operational endpoints.
package router

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/patric-chuzhbe/biolink/internal/gzippedhttp"
	"github.com/patric-chuzhbe/biolink/internal/logger"
	"github.com/patric-chuzhbe/biolink/internal/metrics"
	"github.com/patric-chuzhbe/biolink/internal/models"
	"github.com/patric-chuzhbe/biolink/internal/service"
)

//go:embed admin
var adminFiles embed.FS

const errorPage = `<!DOCTYPE html>
<html lang="en">
<head><meta charset="UTF-8"><title>Error</title></head>
<body><h1>Something went wrong</h1><p>Please try again later.</p></body>
</html>
`

type documentService interface {
	GetDocument(ctx context.Context) (*models.Document, error)

	SaveDocumentFrom(ctx context.Context, body io.Reader) error

	RenderPage(ctx context.Context) ([]byte, error)

	Ping(ctx context.Context) error
}

type authenticator interface {
	Login(ctx context.Context, response http.ResponseWriter, password string) error

	Logout(response http.ResponseWriter, request *http.Request) error

	IsAuthenticated(request *http.Request) bool

	RequireAuthenticated(h http.Handler) http.Handler
}

type Router struct {
	service      documentService
	auth         authenticator
	metrics      *metrics.Metrics
	gatherer     prometheus.Gatherer
	loginLimiter func(http.Handler) http.Handler
	trustedOnly  func(http.Handler) http.Handler
	validate     *validator.Validate
	admin        fs.FS
}

type Option func(*Router)

// WithMetrics counts requests into m and serves gatherer on /metrics.
func WithMetrics(m *metrics.Metrics, gatherer prometheus.Gatherer) Option {
	return func(r *Router) {
		r.metrics = m
		r.gatherer = gatherer
	}
}

// WithLoginLimiter puts mw in front of POST /api/login.
func WithLoginLimiter(mw func(http.Handler) http.Handler) Option {
	return func(r *Router) {
		r.loginLimiter = mw
	}
}

// WithTrustedOnly puts mw in front of /metrics.
func WithTrustedOnly(mw func(http.Handler) http.Handler) Option {
	return func(r *Router) {
		r.trustedOnly = mw
	}
}

func New(
	documents documentService,
	auth authenticator,
	optionsProto ...Option,
) *chi.Mux {
	admin, err := fs.Sub(adminFiles, "admin")
	if err != nil {
		panic(err)
	}

	r := &Router{
		service:  documents,
		auth:     auth,
		validate: validator.New(),
		admin:    admin,
	}
	for _, protoOption := range optionsProto {
		protoOption(r)
	}
	if r.metrics == nil {
		r.metrics = metrics.New(nil)
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(logger.WithLoggingHTTPMiddleware)
	router.Use(middleware.Recoverer)
	router.Use(gzippedhttp.UngzipRequest)
	router.Use(gzippedhttp.GzipResponse)

	router.Get(`/`, r.GetRoot)
	router.Get(`/ping`, r.GetPing)

	for _, path := range []string{`/api/document`, `/api/biolink`} {
		router.Get(path, r.GetApidocument)
		router.With(r.auth.RequireAuthenticated).Post(path, r.PostApidocument)
	}

	if r.loginLimiter != nil {
		router.With(r.loginLimiter).Post(`/api/login`, r.PostApilogin)
	} else {
		router.Post(`/api/login`, r.PostApilogin)
	}
	router.Post(`/api/logout`, r.PostApilogout)

	router.Get(`/admin`, r.GetAdmin)
	router.Handle(`/admin/assets/*`, http.StripPrefix(`/admin/`, http.FileServer(http.FS(r.admin))))

	if r.gatherer != nil {
		metricsHandler := promhttp.HandlerFor(r.gatherer, promhttp.HandlerOpts{})
		if r.trustedOnly != nil {
			metricsHandler = r.trustedOnly(metricsHandler)
		}
		router.Handle(`/metrics`, metricsHandler)
	}

	return router
}

func writeResult(response http.ResponseWriter, statusCode int, result models.Result) {
	response.Header().Set("Content-Type", "application/json")
	response.WriteHeader(statusCode)
	if err := json.NewEncoder(response).Encode(result); err != nil {
		logger.Log.Debugln("Error encoding the result: ", zap.Error(err))
	}
}

// GetRoot renders the public page. A storage failure yields a generic
// error page that carries nothing from the document.
func (r *Router) GetRoot(response http.ResponseWriter, request *http.Request) {
	page, err := r.service.RenderPage(request.Context())
	if err != nil {
		logger.Log.Errorw("error rendering the public page", zap.Error(err))
		r.metrics.PageRenders.WithLabelValues(metrics.ResultError).Inc()
		response.Header().Set("Content-Type", "text/html; charset=utf-8")
		response.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(response, errorPage)
		return
	}

	r.metrics.PageRenders.WithLabelValues(metrics.ResultOK).Inc()
	response.Header().Set("Content-Type", "text/html; charset=utf-8")
	response.WriteHeader(http.StatusOK)
	if _, err := response.Write(page); err != nil {
		logger.Log.Debugln("Error writing the public page: ", zap.Error(err))
	}
}

func (r *Router) GetApidocument(response http.ResponseWriter, request *http.Request) {
	doc, err := r.service.GetDocument(request.Context())
	if err != nil {
		logger.Log.Errorw("error reading the document", zap.Error(err))
		r.metrics.DocumentReads.WithLabelValues(metrics.ResultError).Inc()
		writeResult(response, http.StatusInternalServerError, models.Result{Success: false})
		return
	}

	data, err := models.EncodeDocument(doc)
	if err != nil {
		logger.Log.Errorw("error encoding the document", zap.Error(err))
		r.metrics.DocumentReads.WithLabelValues(metrics.ResultError).Inc()
		writeResult(response, http.StatusInternalServerError, models.Result{Success: false})
		return
	}

	r.metrics.DocumentReads.WithLabelValues(metrics.ResultOK).Inc()
	response.Header().Set("Content-Type", "application/json")
	response.WriteHeader(http.StatusOK)
	if _, err := response.Write(data); err != nil {
		logger.Log.Debugln("Error writing the document: ", zap.Error(err))
	}
}

// PostApidocument replaces the stored document. It is only reachable through
// the authentication guard.
func (r *Router) PostApidocument(response http.ResponseWriter, request *http.Request) {
	err := r.service.SaveDocumentFrom(request.Context(), request.Body)
	switch {
	case errors.Is(err, service.ErrInvalidDocument):
		logger.Log.Debugln("Rejected document body: ", zap.Error(err))
		r.metrics.DocumentWrites.WithLabelValues(metrics.ResultBadRequest).Inc()
		writeResult(response, http.StatusBadRequest, models.Result{Success: false, Message: "Invalid document"})

	case err != nil:
		logger.Log.Errorw("error saving the document", zap.Error(err))
		r.metrics.DocumentWrites.WithLabelValues(metrics.ResultError).Inc()
		writeResult(response, http.StatusInternalServerError, models.Result{Success: false})

	default:
		r.metrics.DocumentWrites.WithLabelValues(metrics.ResultOK).Inc()
		writeResult(response, http.StatusOK, models.Result{Success: true})
	}
}

func (r *Router) PostApilogin(response http.ResponseWriter, request *http.Request) {
	var credentials models.LoginRequest
	if err := json.NewDecoder(request.Body).Decode(&credentials); err != nil {
		r.metrics.LoginAttempts.WithLabelValues(metrics.ResultBadRequest).Inc()
		writeResult(response, http.StatusBadRequest, models.Result{Success: false, Message: "Invalid request"})
		return
	}

	err := r.validate.Struct(credentials)
	if err == nil {
		err = r.auth.Login(request.Context(), response, credentials.Password)
	}
	var validationErrors validator.ValidationErrors
	switch {
	case errors.As(err, &validationErrors), errors.Is(err, models.ErrCredentialMismatch):
		r.metrics.LoginAttempts.WithLabelValues(metrics.ResultMismatch).Inc()
		writeResult(response, http.StatusUnauthorized, models.Result{Success: false, Message: "Invalid password"})

	case err != nil:
		logger.Log.Errorw("error logging in", zap.Error(err))
		r.metrics.LoginAttempts.WithLabelValues(metrics.ResultError).Inc()
		writeResult(response, http.StatusInternalServerError, models.Result{Success: false})

	default:
		r.metrics.LoginAttempts.WithLabelValues(metrics.ResultOK).Inc()
		writeResult(response, http.StatusOK, models.Result{Success: true})
	}
}

func (r *Router) PostApilogout(response http.ResponseWriter, request *http.Request) {
	if err := r.auth.Logout(response, request); err != nil {
		logger.Log.Errorw("error ending the session", zap.Error(err))
	}

	writeResult(response, http.StatusOK, models.Result{Success: true})
}

// GetAdmin serves the editor to an authenticated session and the login page otherwise.
func (r *Router) GetAdmin(response http.ResponseWriter, request *http.Request) {
	page := "login.html"
	if r.auth.IsAuthenticated(request) {
		page = "index.html"
	}

	data, err := fs.ReadFile(r.admin, page)
	if err != nil {
		logger.Log.Errorw("error reading the admin page", "page", page, zap.Error(err))
		response.WriteHeader(http.StatusInternalServerError)
		return
	}

	response.Header().Set("Content-Type", "text/html; charset=utf-8")
	response.Header().Set("Cache-Control", "no-store")
	response.WriteHeader(http.StatusOK)
	_, _ = response.Write(data)
}

func (r *Router) GetPing(response http.ResponseWriter, request *http.Request) {
	if err := r.service.Ping(request.Context()); err != nil {
		logger.Log.Errorw("storage ping failed", zap.Error(err))
		response.WriteHeader(http.StatusInternalServerError)
		return
	}

	response.WriteHeader(http.StatusOK)
}
