package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/disintegration/imaging"

	"grayblend/internal/naming"
	"grayblend/internal/packager"
	"grayblend/pkg/imgutil"
)

const (
	// uploadField is the repeatable multipart field holding images.
	uploadField    = "images"
	intensityField = "intensity"
	failedHeader   = "X-Grayblend-Failed"
)

// Request-level failures, reported before any image work starts.
var (
	errTooManyFiles          = errors.New("too many files")
	errInvalidIntensityValue = errors.New("intensity must be an integer")
	errNoImages              = errors.New("no image files provided")
)

// healthHandler returns server health status.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := HealthResponse{
		Status: "healthy",
		Time:   time.Now().UTC().Format(time.RFC3339),
	}
	s.writeJSON(w, http.StatusOK, response)
}

// convertHandler runs a multipart batch and answers with the PNG or zip.
func (s *Server) convertHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	inputs, intensity, ok := s.parseUpload(w, r)
	if !ok {
		return
	}
	if len(inputs) > s.maxFiles {
		s.writeErrorResponse(w, http.StatusBadRequest, codeTooManyFiles,
			fmt.Sprintf("%v: %d uploaded, limit is %d", errTooManyFiles, len(inputs), s.maxFiles))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()

	opts := s.options
	opts.Intensity = intensity
	opts.Logger = s.logger.With("request_id", RequestID(r.Context()))

	start := time.Now()
	result, err := packager.Run(ctx, inputs, opts, nil)
	batchDuration.WithLabelValues("http").Observe(time.Since(start).Seconds())
	if err != nil {
		batchesTotal.WithLabelValues("http", "error").Inc()
		s.writeBatchError(w, err)
		return
	}
	batchesTotal.WithLabelValues("http", "success").Inc()

	failed := len(result.Failures())
	observeItems(result.Succeeded(), failed)

	filename, data, mimeType := result.Artifact()
	w.Header().Set("Content-Type", mimeType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set(failedHeader, strconv.Itoa(failed))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		s.logger.Error("Error writing artifact", "filename", filename, "error", err)
	}
}

// previewHandler blends the first uploaded image and returns it as PNG.
func (s *Server) previewHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	inputs, intensity, ok := s.parseUpload(w, r)
	if !ok {
		return
	}
	if len(inputs) == 0 {
		s.writeErrorResponse(w, http.StatusBadRequest, codeBadRequest, errNoImages.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()

	opts := s.options
	opts.Intensity = intensity
	opts.Logger = s.logger.With("request_id", RequestID(r.Context()))

	img, err := packager.Preview(ctx, inputs[0], opts)
	if err != nil {
		batchesTotal.WithLabelValues("preview", "error").Inc()
		s.writeBatchError(w, err)
		return
	}
	batchesTotal.WithLabelValues("preview", "success").Inc()

	filename := naming.PreviewName(inputs[0].Name, intensity)
	w.Header().Set("Content-Type", packager.MIMETypePNG)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("inline", map[string]string{"filename": filename}))
	w.WriteHeader(http.StatusOK)
	if err := imaging.Encode(w, img, imaging.PNG); err != nil {
		s.logger.Error("Error encoding preview", "filename", filename, "error", err)
	}
}

// parseUpload reads the multipart body. On failure it has already written
// the error response and returns ok=false.
func (s *Server) parseUpload(w http.ResponseWriter, r *http.Request) ([]packager.InputImage, int, bool) {
	limit := s.maxUploadBytes()
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	if err := r.ParseMultipartForm(limit); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large") {
			s.writeErrorResponse(w, http.StatusRequestEntityTooLarge, codeTooLarge,
				fmt.Sprintf("request body exceeds %d MB", s.maxUploadMB))
			return nil, 0, false
		}
		s.writeErrorResponse(w, http.StatusBadRequest, codeBadRequest, "Failed to parse form data")
		return nil, 0, false
	}

	intensity, err := s.parseIntensity(r.FormValue(intensityField))
	if err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, codeInvalidIntensity, err.Error())
		return nil, 0, false
	}

	inputs, err := s.readUploads(r, r.MultipartForm.File[uploadField])
	if err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return nil, 0, false
	}
	return inputs, intensity, true
}

func (s *Server) parseIntensity(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return s.options.Intensity, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", errInvalidIntensityValue, raw)
	}
	return v, nil
}

// readUploads keeps the client's upload order.
func (s *Server) readUploads(r *http.Request, headers []*multipart.FileHeader) ([]packager.InputImage, error) {
	inputs := make([]packager.InputImage, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", fh.Filename, err)
		}
		data, err := io.ReadAll(f)
		_ = f.Close()
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", fh.Filename, err)
		}
		uploadSizeBytes.Observe(float64(len(data)))
		kind, _ := imgutil.Sniff(data)
		s.logger.Debug("upload received",
			"request_id", RequestID(r.Context()),
			"name", fh.Filename,
			"size", len(data),
			"mime_type", kind.MIMEType(),
		)
		inputs = append(inputs, packager.InputImage{Name: fh.Filename, Data: data})
	}
	return inputs, nil
}

// writeBatchError maps packager errors to HTTP status codes.
func (s *Server) writeBatchError(w http.ResponseWriter, err error) {
	var empty *packager.EmptyBatchError
	switch {
	case errors.Is(err, packager.ErrInvalidIntensity):
		s.writeErrorResponse(w, http.StatusBadRequest, codeInvalidIntensity, err.Error())
	case errors.As(err, &empty):
		observeItems(0, len(empty.Failures))
		s.writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
			Error:    codeEmptyBatch,
			Message:  err.Error(),
			Failures: itemFailures(empty.Failures),
		})
	case errors.Is(err, packager.ErrDecode):
		s.writeErrorResponse(w, http.StatusUnprocessableEntity, codeDecodeFailed, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		s.writeErrorResponse(w, http.StatusGatewayTimeout, codeTimeout, "processing timed out")
	default:
		s.logger.Error("batch failed", "error", err)
		s.writeErrorResponse(w, http.StatusInternalServerError, codeInternal, "processing failed")
	}
}

func itemFailures(items []packager.ItemResult) []ItemFailure {
	out := make([]ItemFailure, 0, len(items))
	for _, item := range items {
		msg := ""
		if item.Err != nil {
			msg = item.Err.Error()
		}
		out = append(out, ItemFailure{Name: item.Name, Error: msg})
	}
	return out
}

// writeErrorResponse writes a JSON error response.
func (s *Server) writeErrorResponse(w http.ResponseWriter, statusCode int, code, message string) {
	s.writeJSON(w, statusCode, ErrorResponse{Error: code, Message: message})
}

func (s *Server) writeJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error("Error encoding response", "error", err)
	}
}
