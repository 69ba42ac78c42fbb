package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"

	"grayblend/internal/packager"
)

const (
	wsReadTimeout  = 60 * time.Second
	wsPingInterval = 30 * time.Second
	wsWriteTimeout = 10 * time.Second
)

// WebSocket message types sent by the server.
const (
	wsTypeProgress  = "progress"
	wsTypeCompleted = "completed"
	wsTypeError     = "error"
)

// WebSocketRequest is one batch submitted over the socket.
type WebSocketRequest struct {
	// Intensity falls back to the server default when omitted.
	Intensity *int             `json:"intensity,omitempty"`
	Images    []WebSocketImage `json:"images" validate:"required,min=1,dive"`
}

// WebSocketImage carries one upload; Data is base64 in JSON.
type WebSocketImage struct {
	Name string `json:"name" validate:"required"`
	Data []byte `json:"data" validate:"required"`
}

// WebSocketResponse is every message the server sends. Fields are filled
// according to Type.
type WebSocketResponse struct {
	Type      string  `json:"type"`
	Fraction  float64 `json:"fraction"`
	Completed int     `json:"completed,omitempty"`
	Total     int     `json:"total,omitempty"`
	Failed    int     `json:"failed,omitempty"`

	// progress
	Name  string `json:"name,omitempty"`
	Error string `json:"error,omitempty"`

	// error
	ErrorType string        `json:"error_type,omitempty"`
	Failures  []ItemFailure `json:"failures,omitempty"`

	// completed
	Filename string   `json:"filename,omitempty"`
	MIMEType string   `json:"mime_type,omitempty"`
	Entries  []string `json:"entries,omitempty"`
	Data     []byte   `json:"data,omitempty"`
}

// WebSocketConnWriter is an interface for writing WebSocket messages.
type WebSocketConnWriter interface {
	WriteMessage(messageType int, data []byte) error
}

func (s *Server) upgrader() *websocket.Upgrader {
	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}
}

// checkOrigin applies the configured CORS origin to browser handshakes.
func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	return origin == "" || s.corsOrigin == "*" || origin == s.corsOrigin
}

// websocketHandler streams batch progress to the client.
func (s *Server) websocketHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader().Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("Failed to upgrade connection to WebSocket", "error", err)
		return
	}
	defer func() { _ = conn.Close() }()

	websocketConnections.Inc()
	defer websocketConnections.Dec()

	log := s.logger.With("request_id", RequestID(r.Context()), "remote_addr", r.RemoteAddr)
	log.Info("WebSocket connection established")
	s.handleWebSocketConnection(r.Context(), conn, log)
	log.Info("WebSocket connection closed")
}

type wsMessage struct {
	messageType int
	data        []byte
}

// handleWebSocketConnection keeps a reader running for the whole connection
// so that a client going away cancels the batch in flight.
func (s *Server) handleWebSocketConnection(ctx context.Context, conn *websocket.Conn, log *slog.Logger) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	})

	go func() {
		ticker := time.NewTicker(wsPingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteTimeout)); err != nil {
					return
				}
			}
		}
	}()

	messages := make(chan wsMessage)
	go func() {
		defer close(messages)
		defer cancel()
		for {
			messageType, data, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Warn("WebSocket read failed", "error", err)
				}
				return
			}
			websocketMessagesTotal.WithLabelValues("received").Inc()

			select {
			case messages <- wsMessage{messageType: messageType, data: data}:
			case <-ctx.Done():
				return
			}
			// A queued message may have waited out a whole batch.
			_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
		}
	}()

	for msg := range messages {
		if msg.messageType != websocket.TextMessage {
			s.sendWebSocketError(conn, "invalid_request", "only text messages are accepted", nil)
			continue
		}
		s.handleWebSocketMessage(ctx, conn, msg.data, log)
	}
}

// handleWebSocketMessage runs one batch, forwarding progress as it happens.
func (s *Server) handleWebSocketMessage(ctx context.Context, conn WebSocketConnWriter, data []byte, log *slog.Logger) {
	req, err := s.parseWebSocketRequest(data)
	if err != nil {
		s.sendWebSocketError(conn, "invalid_request", err.Error(), nil)
		return
	}

	opts := s.options
	if req.Intensity != nil {
		opts.Intensity = *req.Intensity
	}
	opts.Logger = log

	inputs := make([]packager.InputImage, len(req.Images))
	for i, img := range req.Images {
		inputs[i] = packager.InputImage{Name: img.Name, Data: img.Data}
		uploadSizeBytes.Observe(float64(len(img.Data)))
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	// The first failed write means nobody is listening; stop the batch.
	var writeErr error

	updates := make(chan packager.ProgressUpdate, len(inputs))
	var (
		result *packager.BatchResult
		runErr error
	)
	start := time.Now()
	go func() {
		defer close(updates)
		result, runErr = packager.Run(ctx, inputs, opts, updates)
	}()

	for u := range updates {
		msg := WebSocketResponse{
			Type:      wsTypeProgress,
			Fraction:  u.Fraction(),
			Completed: u.Completed,
			Total:     u.Total,
			Failed:    u.Failed,
			Name:      u.Name,
		}
		if u.Err != nil {
			msg.Error = u.Err.Error()
		}
		if writeErr != nil {
			continue
		}
		if writeErr = s.sendWebSocketResponse(conn, msg); writeErr != nil {
			cancel()
		}
	}
	batchDuration.WithLabelValues("websocket").Observe(time.Since(start).Seconds())

	if runErr != nil {
		batchesTotal.WithLabelValues("websocket", "error").Inc()
		if errors.Is(runErr, context.Canceled) {
			log.Info("WebSocket batch cancelled", "images", len(inputs))
			return
		}
		s.sendBatchError(conn, runErr)
		return
	}
	if writeErr != nil {
		batchesTotal.WithLabelValues("websocket", "error").Inc()
		return
	}
	batchesTotal.WithLabelValues("websocket", "success").Inc()

	failed := len(result.Failures())
	observeItems(result.Succeeded(), failed)

	filename, payload, mimeType := result.Artifact()
	resp := WebSocketResponse{
		Type:      wsTypeCompleted,
		Fraction:  1,
		Completed: len(inputs),
		Total:     len(inputs),
		Failed:    failed,
		Filename:  filename,
		MIMEType:  mimeType,
		Data:      payload,
	}
	if result.Kind == packager.KindArchive {
		resp.Entries = result.Archive.Entries
	} else {
		resp.Entries = []string{filename}
	}
	_ = s.sendWebSocketResponse(conn, resp)
}

func (s *Server) parseWebSocketRequest(data []byte) (*WebSocketRequest, error) {
	var req WebSocketRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("failed to parse request: %w", err)
	}
	if err := s.validate.Struct(&req); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return nil, fmt.Errorf("invalid request: %s failed %q", fe.Namespace(), fe.Tag())
		}
		return nil, err
	}
	return &req, nil
}

func (s *Server) sendBatchError(conn WebSocketConnWriter, err error) {
	var empty *packager.EmptyBatchError
	switch {
	case errors.Is(err, packager.ErrInvalidIntensity):
		s.sendWebSocketError(conn, codeInvalidIntensity, err.Error(), nil)
	case errors.As(err, &empty):
		observeItems(0, len(empty.Failures))
		s.sendWebSocketError(conn, codeEmptyBatch, err.Error(), itemFailures(empty.Failures))
	case errors.Is(err, context.DeadlineExceeded):
		s.sendWebSocketError(conn, codeTimeout, "processing timed out", nil)
	default:
		s.logger.Error("WebSocket batch failed", "error", err)
		s.sendWebSocketError(conn, codeInternal, "processing failed", nil)
	}
}

// sendWebSocketResponse sends a response message over WebSocket and reports
// whether the write failed.
func (s *Server) sendWebSocketResponse(conn WebSocketConnWriter, response WebSocketResponse) error {
	data, err := json.Marshal(response)
	if err != nil {
		s.logger.Error("Failed to marshal WebSocket response", "error", err)
		return err
	}

	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		s.logger.Warn("Failed to send WebSocket message", "error", err)
		return err
	}

	websocketMessagesTotal.WithLabelValues("sent").Inc()
	return nil
}

// sendWebSocketError sends an error message over WebSocket.
func (s *Server) sendWebSocketError(conn WebSocketConnWriter, errorType, message string, failures []ItemFailure) {
	_ = s.sendWebSocketResponse(conn, WebSocketResponse{
		Type:      wsTypeError,
		Error:     message,
		ErrorType: errorType,
		Failures:  failures,
	})
}
