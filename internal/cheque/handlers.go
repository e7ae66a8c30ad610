package cheque

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"path/filepath"

	"github.com/checkmate-io/checkmate/internal/pages"
)

// corsError writes an error response with CORS headers set
func corsError(w http.ResponseWriter, message string, code int) {
	setCORSHeaders(w)
	http.Error(w, message, code)
}

// setCORSHeaders sets CORS headers on a response
func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	w.Header().Set("Access-Control-Max-Age", "3600")
}

// writeJSON writes a JSON response body with the given status code
func writeJSON(w http.ResponseWriter, code int, v any) {
	setCORSHeaders(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// handleIndex serves the HTML interface
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	setCORSHeaders(w)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(indexHTML)
}

// handleListCheques returns all persisted cheque records
func (s *Server) handleListCheques(w http.ResponseWriter, r *http.Request) {
	records, err := s.service.ListCheques()
	if err != nil {
		slog.Error("Error listing cheques", "error", err)
		corsError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, records)
}

// handleStats returns dashboard headline numbers
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.service.GetStats()
	if err != nil {
		slog.Error("Error computing stats", "error", err)
		corsError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

// handleUploadCheque accepts a cheque image or PDF and runs it through the
// intake pipeline. Partial failures still return 200 with per-page outcomes;
// duplicates return 409 and unsupported uploads 415.
func (s *Server) handleUploadCheque(w http.ResponseWriter, r *http.Request) {
	// 50MB cap to handle high-resolution phone photos
	maxFormSize := int64(50 << 20)
	if err := r.ParseMultipartForm(maxFormSize); err != nil {
		slog.Error("Error parsing multipart form", "error", err)
		errorMsg := "Error parsing form"
		if err.Error() == "http: request body too large" {
			errorMsg = "File is too large. Maximum size is 50MB."
		}
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": errorMsg})
		return
	}

	f, header, err := r.FormFile("file")
	if err != nil {
		slog.Error("Error getting file from form", "error", err)
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "No file provided"})
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		slog.Error("Error reading uploaded file", "error", err)
		corsError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	mediaType := header.Header.Get("Content-Type")
	if mediaType == "" || mediaType == "application/octet-stream" {
		mediaType = mime.TypeByExtension(filepath.Ext(header.Filename))
	}

	sess := s.getSession(w, r)
	result, err := s.service.ProcessSubmission(r.Context(), sess, data, mediaType)
	if err != nil {
		if errors.Is(err, pages.ErrUnsupportedFormat) {
			writeJSON(w, http.StatusUnsupportedMediaType, map[string]string{
				"error":  err.Error(),
				"reason": string(FailureUnsupportedFormat),
			})
			return
		}
		slog.Error("Error processing submission", "filename", header.Filename, "error", err)
		corsError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	if result.Duplicate {
		writeJSON(w, http.StatusConflict, result)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// exportContentTypes maps export formats to their MIME types
var exportContentTypes = map[string]string{
	"csv":  "text/csv",
	"xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	"pdf":  "application/pdf",
}

// handleExportCheques serializes all records to the requested flat format
func (s *Server) handleExportCheques(w http.ResponseWriter, r *http.Request) {
	format := r.PathValue("format")
	contentType, ok := exportContentTypes[format]
	if !ok {
		corsError(w, "Unknown export format: "+format, http.StatusBadRequest)
		return
	}

	records, err := s.service.ListCheques()
	if err != nil {
		slog.Error("Error listing cheques for export", "error", err)
		corsError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	var body []byte
	switch format {
	case "csv":
		body, err = ExportCSV(records)
	case "xlsx":
		body, err = ExportXLSX(records)
	case "pdf":
		body, err = ExportPDF(records)
	}
	if err != nil {
		slog.Error("Error exporting cheques", "format", format, "error", err)
		corsError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	setCORSHeaders(w)
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="cheque_records.`+format+`"`)
	w.Write(body)
}
