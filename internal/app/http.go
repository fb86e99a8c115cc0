package app

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"sitedocs/internal/doccache"
	"sitedocs/internal/media"
	"sitedocs/internal/move"
	"sitedocs/internal/resolver"
	"sitedocs/internal/search"
	"sitedocs/internal/store"
	"sitedocs/internal/util"
)

const maxMultipartMemory = 32 << 20

type HTTPServer struct {
	service *Service
	logger  *slog.Logger
}

func NewHTTPServer(service *Service, logger *slog.Logger) *HTTPServer {
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPServer{service: service, logger: logger}
}

func (s *HTTPServer) Handler() http.Handler {
	return s.withMiddleware(http.HandlerFunc(s.handle))
}

func (s *HTTPServer) handle(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		writeJSON(w, http.StatusNoContent, map[string]any{})
		return
	}

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/api/health" {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/api/ready" {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		ready, checks := s.service.Readiness(ctx)
		status := "ready"
		statusCode := http.StatusOK
		if !ready {
			status = "not_ready"
			statusCode = http.StatusServiceUnavailable
		}
		writeJSON(w, statusCode, map[string]any{
			"ok":     ready,
			"status": status,
			"checks": checks,
		})
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/search" {
		s.handleSearch(w, r)
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/pool" {
		view, err := s.service.Pool(r.Context(), wantsRefresh(r))
		if err != nil {
			writeMappedError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, view)
		return
	}

	if r.URL.Path == "/api/moves" && r.Method == http.MethodPost {
		var intent move.Intent
		if err := decodeBody(r, &intent); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		result, err := s.service.Move(r.Context(), intent)
		if err != nil {
			writeMappedError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, result)
		return
	}

	if r.URL.Path == "/api/moves/busy" && r.Method == http.MethodGet {
		writeJSON(w, http.StatusOK, map[string]any{"busy": s.service.MoveBusy()})
		return
	}

	if r.URL.Path == "/api/errors" && r.Method == http.MethodGet {
		writeJSON(w, http.StatusOK, map[string]any{"errors": s.service.LoadErrors()})
		return
	}

	if r.URL.Path == "/api/folders" {
		switch r.Method {
		case http.MethodGet:
			folders, err := s.service.ListFolders(r.Context())
			if err != nil {
				writeMappedError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"folders": folders})
		case http.MethodPost:
			var body CreateFolderInput
			if err := decodeBody(r, &body); err != nil {
				writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
				return
			}
			folder, err := s.service.CreateFolder(r.Context(), body)
			if err != nil {
				writeMappedError(w, err)
				return
			}
			writeJSON(w, http.StatusCreated, map[string]any{"folder": folder})
		default:
			writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
		}
		return
	}

	if r.URL.Path == "/api/documents" && r.Method == http.MethodPost {
		s.handleCreateDocument(w, r)
		return
	}

	parts := splitPath(r.URL.Path)
	if len(parts) < 3 || parts[0] != "api" {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Route not found", nil)
		return
	}

	switch parts[1] {
	case "folders":
		s.handleFolder(w, r, parts[2], parts)
	case "documents":
		s.handleDocument(w, r, parts[2], parts)
	case "pairings":
		s.handlePairing(w, r, parts[2], parts)
	case "errors":
		if len(parts) == 3 && r.Method == http.MethodDelete {
			if err := s.service.DismissLoadError(parts[2]); err != nil {
				writeMappedError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"ok": true})
			return
		}
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Route not found", nil)
	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Route not found", nil)
	}
}

func (s *HTTPServer) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	q := search.Query{
		Text:      strings.TrimSpace(query.Get("q")),
		Container: strings.TrimSpace(query.Get("container")),
		Limit:     20,
	}
	if raw := strings.TrimSpace(query.Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "limit must be an integer", nil)
			return
		}
		q.Limit = parsed
	}
	if raw := strings.TrimSpace(query.Get("offset")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "offset must be an integer", nil)
			return
		}
		q.Offset = parsed
	}
	writeJSON(w, http.StatusOK, s.service.Search(r.Context(), q))
}

func (s *HTTPServer) handleFolder(w http.ResponseWriter, r *http.Request, folderID string, parts []string) {
	if len(parts) == 3 && r.Method == http.MethodGet {
		folder, err := s.service.GetFolder(r.Context(), folderID)
		if err != nil {
			writeMappedError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"folder": folder})
		return
	}

	if len(parts) == 4 && parts[3] == "documents" && r.Method == http.MethodGet {
		view, err := s.service.FolderDocuments(r.Context(), folderID, wantsRefresh(r))
		if err != nil {
			writeMappedError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, view)
		return
	}

	if len(parts) == 4 && parts[3] == "order" && r.Method == http.MethodPut {
		var body FolderOrderInput
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		payload, err := s.service.SaveFolderOrder(r.Context(), folderID, body)
		if err != nil {
			writeMappedError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, payload)
		return
	}

	if len(parts) == 4 && parts[3] == "pairings" {
		switch r.Method {
		case http.MethodGet:
			rows, loadErr, err := s.service.PairingRows(r.Context(), folderID, wantsRefresh(r))
			if err != nil {
				writeMappedError(w, err)
				return
			}
			payload := map[string]any{"rows": rows}
			if loadErr != nil {
				payload["error"] = loadErr
			}
			writeJSON(w, http.StatusOK, payload)
		case http.MethodPost:
			row, err := s.service.CreatePairingRow(r.Context(), folderID)
			if err != nil {
				writeMappedError(w, err)
				return
			}
			writeJSON(w, http.StatusCreated, map[string]any{"row": row})
		default:
			writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
		}
		return
	}

	writeError(w, http.StatusNotFound, "NOT_FOUND", "Route not found", nil)
}

func (s *HTTPServer) handleDocument(w http.ResponseWriter, r *http.Request, documentID string, parts []string) {
	if len(parts) == 3 && r.Method == http.MethodGet {
		doc, err := s.service.GetDocument(r.Context(), documentID)
		if err != nil {
			writeMappedError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"document": doc})
		return
	}

	if len(parts) == 4 && parts[3] == "associated" && r.Method == http.MethodGet {
		view, err := s.service.Associated(r.Context(), documentID, wantsRefresh(r))
		if err != nil {
			writeMappedError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, view)
		return
	}

	if len(parts) == 4 && parts[3] == "media" && r.Method == http.MethodGet {
		url, err := s.service.MediaURL(r.Context(), documentID)
		if err != nil {
			writeMappedError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"url": url})
		return
	}

	writeError(w, http.StatusNotFound, "NOT_FOUND", "Route not found", nil)
}

// handlePairing serves /api/pairings/{rowId}/slots/{slot}.
func (s *HTTPServer) handlePairing(w http.ResponseWriter, r *http.Request, rowID string, parts []string) {
	if len(parts) != 5 || parts[3] != "slots" || r.Method != http.MethodGet {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Route not found", nil)
		return
	}
	slot, err := strconv.Atoi(parts[4])
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "slot must be an integer", nil)
		return
	}
	activeFolder := strings.TrimSpace(r.URL.Query().Get("activeFolder"))
	doc, err := s.service.ResolveSlot(r.Context(), rowID, slot, activeFolder)
	if errors.Is(err, resolver.ErrNoMatch) {
		writeJSON(w, http.StatusOK, map[string]any{"document": nil, "resolved": false})
		return
	}
	if err != nil {
		writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"document": doc, "resolved": true})
}

func (s *HTTPServer) handleCreateDocument(w http.ResponseWriter, r *http.Request) {
	var (
		body   CreateDocumentInput
		upload *Upload
	)
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", "invalid multipart body", nil)
			return
		}
		body = CreateDocumentInput{
			Title:       r.FormValue("title"),
			Description: r.FormValue("description"),
			Kind:        r.FormValue("kind"),
			MediaType:   r.FormValue("mediaType"),
			URL:         r.FormValue("url"),
			Tag:         r.FormValue("tag"),
		}
		geo, err := parseGeo(r.FormValue("lat"), r.FormValue("lng"), r.FormValue("alt"))
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", err.Error(), nil)
			return
		}
		body.Geo = geo

		file, header, err := r.FormFile("file")
		switch {
		case errors.Is(err, http.ErrMissingFile):
		case err != nil:
			writeError(w, http.StatusBadRequest, "INVALID_BODY", "invalid file part", nil)
			return
		default:
			defer file.Close()
			upload = &Upload{
				Filename:    header.Filename,
				ContentType: header.Header.Get("Content-Type"),
				Body:        file,
			}
		}
	} else if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}

	doc, err := s.service.CreateDocument(r.Context(), body, upload)
	if err != nil {
		writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"document": doc})
}

func parseGeo(lat, lng, alt string) (*store.Geo, error) {
	if strings.TrimSpace(lat) == "" && strings.TrimSpace(lng) == "" {
		return nil, nil
	}
	latitude, err := strconv.ParseFloat(strings.TrimSpace(lat), 64)
	if err != nil {
		return nil, fmt.Errorf("lat must be a number")
	}
	longitude, err := strconv.ParseFloat(strings.TrimSpace(lng), 64)
	if err != nil {
		return nil, fmt.Errorf("lng must be a number")
	}
	geo := &store.Geo{Latitude: latitude, Longitude: longitude}
	if strings.TrimSpace(alt) != "" {
		altitude, err := strconv.ParseFloat(strings.TrimSpace(alt), 64)
		if err != nil {
			return nil, fmt.Errorf("alt must be a number")
		}
		geo.Altitude = &altitude
	}
	return geo, nil
}

func wantsRefresh(r *http.Request) bool {
	refresh, _ := strconv.ParseBool(r.URL.Query().Get("refresh"))
	return refresh
}

func (s *HTTPServer) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = util.NewID("")
		}
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		started := time.Now()
		writer := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		setResponseHeaders(writer.Header())
		writer.Header().Set("X-Request-ID", requestID)

		next.ServeHTTP(writer, r)

		s.logger.Info("request",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", writer.status,
			"duration_ms", time.Since(started).Milliseconds(),
		)
	})
}

type requestIDKey struct{}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func setResponseHeaders(header http.Header) {
	header.Set("Cache-Control", "no-store")
	header.Set("Content-Type", "application/json")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string, details any) {
	response := map[string]any{
		"code":  code,
		"error": message,
	}
	if details != nil {
		response["details"] = details
	}
	writeJSON(w, status, response)
}

func writeMappedError(w http.ResponseWriter, err error) {
	status, code, message, details := mapError(err)
	writeError(w, status, code, message, details)
}

func decodeBody(r *http.Request, target any) error {
	if r.Body == nil {
		return nil
	}
	defer r.Body.Close()
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(target); err != nil {
		if errors.Is(err, http.ErrBodyReadAfterClose) {
			return nil
		}
		return fmt.Errorf("invalid JSON body")
	}
	return nil
}

func splitPath(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

func mapError(err error) (status int, code, message string, details any) {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Status, domainErr.Code, domainErr.Message, domainErr.Details
	}
	var validationErrs validation.Errors
	if errors.As(err, &validationErrs) {
		return http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Validation failed", validationErrs
	}
	if errors.Is(err, move.ErrBusy) {
		return http.StatusConflict, "BUSY", "Another move is in progress", nil
	}
	var moveErr *move.MoveError
	if errors.As(err, &moveErr) {
		return http.StatusBadGateway, moveErr.Code, moveErr.Err.Error(), map[string]any{"transition": moveErr.Transition}
	}
	var loadErr *doccache.LoadError
	if errors.As(err, &loadErr) {
		return http.StatusServiceUnavailable, doccache.CodeLoadError, "Could not load list", map[string]any{"scope": loadErr.Scope}
	}
	if errors.Is(err, store.ErrInvalidSlot) {
		return http.StatusUnprocessableEntity, "VALIDATION_ERROR", "slot must be 1 or 2", nil
	}
	if errors.Is(err, media.ErrTooLarge) {
		return http.StatusRequestEntityTooLarge, "TOO_LARGE", "File exceeds upload limit", nil
	}
	if errors.Is(err, store.ErrConflict) {
		return http.StatusConflict, "CONFLICT", "Already exists", nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return http.StatusNotFound, "NOT_FOUND", "Not found", nil
	}
	return http.StatusInternalServerError, "SERVER_ERROR", "Server error", nil
}
