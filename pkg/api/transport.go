package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/wavesentry/wavesentry/pkg/serializer"
)

// errorResponse is the JSON body written for rejected requests.
type errorResponse struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
}

// Router returns the HTTP surface for the device query endpoints. Responses
// are buffered before writing so a failure mid-production can still be
// reported with an error status.
func (h *Handler) Router() *mux.Router {
	r := mux.NewRouter()

	r.PathPrefix("/devices/").HandlerFunc(h.serveHTTP).Methods("GET", "POST")
	r.PathPrefix("/phy/").HandlerFunc(h.serveHTTP).Methods("GET")

	return r
}

func (h *Handler) serveHTTP(w http.ResponseWriter, req *http.Request) {
	path := req.URL.Path

	if !h.VerifyRequest(req.Method, path) {
		writeError(w, "Invalid request", http.StatusBadRequest)
		return
	}

	var buf bytes.Buffer

	var err error

	switch req.Method {
	case http.MethodGet:
		err = h.ServeGet(path, &buf)
	case http.MethodPost:
		if err = req.ParseForm(); err != nil {
			writeError(w, "Invalid request: unparseable form", http.StatusBadRequest)
			return
		}

		err = h.ServePost(path, req.PostForm, bearerToken(req), &buf)
	}

	if err != nil {
		var apiErr *Error
		if errors.As(err, &apiErr) {
			writeError(w, apiErr.Message, apiErr.Status)
			return
		}

		h.log.Error().Err(err).Str("path", path).Msg("request production failed")
		writeError(w, "Internal error", http.StatusInternalServerError)

		return
	}

	w.Header().Set("Content-Type", contentTypeFor(serializer.Suffix(path)))

	if _, err = w.Write(buf.Bytes()); err != nil {
		h.log.Debug().Err(err).Str("path", path).Msg("response write aborted")
	}
}

// bearerToken extracts the session token from the Authorization header.
func bearerToken(req *http.Request) string {
	auth := req.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}

	return ""
}

func contentTypeFor(suffix string) string {
	switch suffix {
	case "json":
		return "application/json"
	case "ekjson":
		return "application/json"
	case "msgpack":
		return "application/msgpack"
	default:
		return "application/octet-stream"
	}
}

func writeError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")

	w.WriteHeader(statusCode)

	errResponse := errorResponse{
		Message: message,
		Status:  statusCode,
	}

	if err := json.NewEncoder(w).Encode(errResponse); err != nil {
		http.Error(w, "Failed to encode error response", http.StatusInternalServerError)
	}
}
