package server

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"grayblend/internal/blend"
	"grayblend/internal/packager"
)

// Server serves the conversion API. It keeps no per-batch state, so one
// instance handles any number of concurrent requests.
type Server struct {
	corsOrigin  string
	maxUploadMB int64
	maxFiles    int
	timeout     time.Duration
	options     packager.Options
	logger      *slog.Logger
	validate    *validator.Validate
}

// Config holds server configuration.
type Config struct {
	Host        string
	Port        int
	CORSOrigin  string
	MaxUploadMB int64
	MaxFiles    int
	TimeoutSec  int

	// Intensity is used when a request does not carry one.
	Intensity  int
	Workers    int
	AutoOrient bool
	MaxPixels  int

	Logger *slog.Logger
}

// Addr returns host:port for http.Server.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Response types for API endpoints.
type HealthResponse struct {
	Status string `json:"status"`
	Time   string `json:"time"`
}

// ErrorResponse is the JSON body of every non-2xx answer.
type ErrorResponse struct {
	Error    string        `json:"error"`
	Message  string        `json:"message"`
	Failures []ItemFailure `json:"failures,omitempty"`
}

// ItemFailure names one input that could not be converted.
type ItemFailure struct {
	Name  string `json:"name"`
	Error string `json:"error"`
}

// Error codes carried in ErrorResponse.Error.
const (
	codeBadRequest       = "bad_request"
	codeEmptyBatch       = "empty_batch"
	codeInvalidIntensity = "invalid_intensity"
	codeTooManyFiles     = "too_many_files"
	codeTooLarge         = "payload_too_large"
	codeDecodeFailed     = "decode_failed"
	codeTimeout          = "timeout"
	codeInternal         = "internal_error"
)

// NewServer validates cfg and fills in defaults for unset limits.
func NewServer(cfg Config) (*Server, error) {
	if err := blend.ValidateIntensity(cfg.Intensity); err != nil {
		return nil, fmt.Errorf("default intensity: %w", err)
	}

	s := &Server{
		corsOrigin:  cfg.CORSOrigin,
		maxUploadMB: cfg.MaxUploadMB,
		maxFiles:    cfg.MaxFiles,
		timeout:     time.Duration(cfg.TimeoutSec) * time.Second,
		logger:      cfg.Logger,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
	}
	if s.maxUploadMB <= 0 {
		s.maxUploadMB = 50
	}
	if s.maxFiles <= 0 {
		s.maxFiles = 100
	}
	if s.timeout <= 0 {
		s.timeout = time.Minute
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.options = packager.Options{
		Intensity:  cfg.Intensity,
		Workers:    cfg.Workers,
		AutoOrient: cfg.AutoOrient,
		MaxPixels:  cfg.MaxPixels,
		Logger:     s.logger,
	}
	return s, nil
}

// SetupRoutes registers every endpoint on mux.
func (s *Server) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", s.wrap("/health", s.healthHandler))
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/v1/convert", s.wrap("/v1/convert", s.convertHandler))
	mux.HandleFunc("/v1/preview", s.wrap("/v1/preview", s.previewHandler))
	mux.HandleFunc("/v1/ws", s.wrap("/v1/ws", s.websocketHandler))
}

func (s *Server) maxUploadBytes() int64 {
	return s.maxUploadMB * 1024 * 1024
}
