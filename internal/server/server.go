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
	"strings"
	"time"

	"imageapi/internal/app"
	"imageapi/internal/metrics"
	"imageapi/internal/ratelimit"
	"imageapi/internal/storage"
	"imageapi/internal/util"
	"imageapi/pkg/domain"
)

const multipartMemoryLimit = 32 << 20

// Config wires required dependencies for the HTTP server.
type Config struct {
	App                      *app.App
	Files                    *storage.FileStore
	MaxUploadBytes           int64
	RedisAddr                string
	RedisPassword            string
	UploadRateLimitPerMinute int
	TrustedProxyCIDRs        []string
}

// Server exposes the upload endpoints and static image serving.
type Server struct {
	app            *app.App
	files          *storage.FileStore
	mux            *http.ServeMux
	maxUploadBytes int64
	uploadLimiter  *ratelimit.FixedWindowLimiter
	trustedProxies *util.TrustedProxies
}

// New constructs the server with routes configured. Rate limiting is enabled
// only when a Redis address is supplied.
func New(cfg Config) (*Server, error) {
	if cfg.App == nil {
		return nil, fmt.Errorf("app is required")
	}
	if cfg.Files == nil {
		return nil, fmt.Errorf("file store is required")
	}
	trusted, err := util.NewTrustedProxies(cfg.TrustedProxyCIDRs)
	if err != nil {
		return nil, fmt.Errorf("parse trusted proxies: %w", err)
	}
	var limiter *ratelimit.FixedWindowLimiter
	if cfg.RedisAddr != "" {
		limit := cfg.UploadRateLimitPerMinute
		if limit <= 0 {
			limit = 60
		}
		limiter, err = ratelimit.NewRedisFixedWindowLimiter(cfg.RedisAddr, cfg.RedisPassword, "imageapi:ratelimit:upload", limit, time.Minute)
		if err != nil {
			return nil, fmt.Errorf("init upload limiter: %w", err)
		}
	}
	s := &Server{
		app:            cfg.App,
		files:          cfg.Files,
		mux:            http.NewServeMux(),
		maxUploadBytes: normalizeMaxBytes(cfg.MaxUploadBytes),
		uploadLimiter:  limiter,
		trustedProxies: trusted,
	}
	s.routes()
	return s, nil
}

// Router returns the configured handler with the middleware chain applied.
func (s *Server) Router() http.Handler {
	return util.WithSecurityHeaders(
		util.WithCORS(
			util.WithRequestID(
				util.WithRequestLog("imageapi", s.mux),
			),
		),
	)
}

func (s *Server) routes() {
	s.mux.HandleFunc("/", s.handleIndex)
	s.mux.HandleFunc("/healthz", s.handleHealth)
	s.mux.Handle("/metrics", metrics.Handler())

	// uploads
	s.mux.Handle("/user_profile_pic_upload", s.instrument("user_profile_pic_upload", s.handleUserProfileUpload))
	s.mux.Handle("/business_profile_pic_upload", s.instrument("business_profile_pic_upload", s.handleBusinessProfileUpload))
	s.mux.Handle("/business_gallery_pic_upload", s.instrument("business_gallery_pic_upload", s.handleGalleryUpload))
	s.mux.Handle("/business_gallery_pic_update", s.instrument("business_gallery_pic_update", s.handleGalleryUpdate))
	s.mux.Handle("/delete_business_gallery_pic", s.instrument("delete_business_gallery_pic", s.handleGalleryDelete))

	// stored images, served read-only under the category prefix
	for _, cat := range domain.Categories() {
		prefix := "/" + cat.Dir() + "/"
		s.mux.Handle(prefix, http.StripPrefix(prefix, http.FileServer(http.Dir(s.files.Dir(cat)))))
	}
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprint(w, "Image APIv1!")
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleUserProfileUpload(w http.ResponseWriter, r *http.Request) {
	fields, up, ok := s.parseUploadForm(w, r, "guid")
	if !ok {
		return
	}
	res, err := s.app.SaveUserProfilePic(r.Context(), fields["guid"], up)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeUploadSuccess(w, res)
}

func (s *Server) handleBusinessProfileUpload(w http.ResponseWriter, r *http.Request) {
	fields, up, ok := s.parseUploadForm(w, r, "guid", "bid")
	if !ok {
		return
	}
	res, err := s.app.SaveBusinessProfilePic(r.Context(), fields["guid"], fields["bid"], up)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeUploadSuccess(w, res)
}

func (s *Server) handleGalleryUpload(w http.ResponseWriter, r *http.Request) {
	fields, up, ok := s.parseUploadForm(w, r, "guid", "bid")
	if !ok {
		return
	}
	res, err := s.app.AddGalleryPic(r.Context(), fields["guid"], fields["bid"], r.FormValue("image_title"), up)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeUploadSuccess(w, res)
}

func (s *Server) handleGalleryUpdate(w http.ResponseWriter, r *http.Request) {
	fields, up, ok := s.parseUploadForm(w, r, "guid", "bid", "image_guid")
	if !ok {
		return
	}
	// An omitted image_title preserves the stored title, an empty value
	// clears it. Only the form value set can tell the two apart.
	var title *string
	if values, present := r.MultipartForm.Value["image_title"]; present && len(values) > 0 {
		title = &values[0]
	}
	res, err := s.app.UpdateGalleryPic(r.Context(), fields["guid"], fields["bid"], fields["image_guid"], title, up)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeUploadSuccess(w, res)
}

type deleteRequest struct {
	GUID      string `json:"guid"`
	BID       string `json:"bid"`
	ImageGUID string `json:"image_guid"`
}

func (s *Server) handleGalleryDelete(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if !s.allowUpload(w, r) {
		return
	}
	if !hasJSONContentType(r) {
		writeError(w, http.StatusBadRequest, "invalid content type, expected application/json")
		return
	}
	var req deleteRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	res, err := s.app.DeleteGalleryPic(r.Context(), req.GUID, req.BID, req.ImageGUID)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, uploadResponse{
		Message:  "File deleted successfully",
		InsertID: res.RecordID,
	})
}

// parseUploadForm handles the shared multipart plumbing: method and rate
// checks, size cap, required identity fields, and the optional file part.
// A missing file part yields a nil Upload; the engine decides whether that is
// acceptable for the operation.
func (s *Server) parseUploadForm(w http.ResponseWriter, r *http.Request, required ...string) (map[string]string, *app.Upload, bool) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return nil, nil, false
	}
	if !s.allowUpload(w, r) {
		return nil, nil, false
	}
	if s.maxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	}
	if err := r.ParseMultipartForm(multipartMemoryLimit); err != nil {
		writeError(w, http.StatusBadRequest, "invalid form data")
		return nil, nil, false
	}
	fields := make(map[string]string, len(required))
	for _, name := range required {
		value := strings.TrimSpace(r.FormValue(name))
		if value == "" {
			writeError(w, http.StatusBadRequest, name+" is required")
			return nil, nil, false
		}
		fields[name] = value
	}
	up, ok := uploadFromForm(w, r)
	if !ok {
		return nil, nil, false
	}
	return fields, up, true
}

func uploadFromForm(w http.ResponseWriter, r *http.Request) (*app.Upload, bool) {
	file, header, err := r.FormFile("file")
	if errors.Is(err, http.ErrMissingFile) {
		return nil, true
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid file part (field: file)")
		return nil, false
	}
	return &app.Upload{
		Reader:   file,
		Filename: header.Filename,
		MimeType: partMimeType(header),
	}, true
}

func partMimeType(header *multipart.FileHeader) string {
	ct := strings.TrimSpace(header.Header.Get("Content-Type"))
	if ct == "" {
		return "application/octet-stream"
	}
	return ct
}

func hasJSONContentType(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return false
	}
	return mediaType == "application/json"
}

func (s *Server) allowUpload(w http.ResponseWriter, r *http.Request) bool {
	if s.uploadLimiter == nil {
		return true
	}
	key := r.URL.Path + "|" + util.ClientIP(r, s.trustedProxies)
	if s.uploadLimiter.Allow(key) {
		return true
	}
	w.Header().Set("Retry-After", "60")
	writeError(w, http.StatusTooManyRequests, "too many uploads")
	return false
}

// instrument records the request counter and duration for one operation.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(statusCode int) {
	r.status = statusCode
	r.ResponseWriter.WriteHeader(statusCode)
}

func (s *Server) instrument(operation string, h http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w}
		h(rec, r)
		status := rec.status
		if status == 0 {
			status = http.StatusOK
		}
		metrics.ObserveRequest(operation, status, time.Since(start))
	})
}

type uploadResponse struct {
	Message  string `json:"message"`
	FileURL  string `json:"fileUrl,omitempty"`
	InsertID int64  `json:"insertId"`
}

func writeUploadSuccess(w http.ResponseWriter, res app.Result) {
	writeJSON(w, http.StatusOK, uploadResponse{
		Message:  "File uploaded and saved to database successfully",
		FileURL:  res.URL,
		InsertID: res.RecordID,
	})
}

// writeAppError maps engine failures to statuses: validation to 400, absent
// keys to 404, everything else to a generic 500 with the detail kept in logs.
func writeAppError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, app.ErrNoFile), errors.Is(err, app.ErrBadRequest):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, app.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		util.LoggerFromContext(r.Context()).Error("request timed out", "path", r.URL.Path, "err", err)
		writeError(w, http.StatusInternalServerError, "storage operation timed out")
	default:
		util.LoggerFromContext(r.Context()).Error("request failed", "path", r.URL.Path, "err", err)
		writeError(w, http.StatusInternalServerError, "storage or database failure")
	}
}

func methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func normalizeMaxBytes(value int64) int64 {
	if value <= 0 {
		return 50 * 1024 * 1024
	}
	return value
}
