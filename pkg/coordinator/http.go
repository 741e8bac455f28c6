package coordinator

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/vanguard-health/pulse/pkg/common/logger"
	"github.com/vanguard-health/pulse/pkg/documents"
)

type HTTPHandler struct {
	coord   *Coordinator
	maxBody int64
}

func NewHTTPHandler(coord *Coordinator, maxBody int64) *HTTPHandler {
	return &HTTPHandler{coord: coord, maxBody: maxBody}
}

func (h *HTTPHandler) Register(router *mux.Router) {
	router.HandleFunc("/patients", h.handleListPatients).Methods(http.MethodGet)
	router.HandleFunc("/patients", h.handleOnboard).Methods(http.MethodPost)
	router.HandleFunc("/patients/{id}", h.handleGetPatient).Methods(http.MethodGet)
	router.HandleFunc("/patients/{id}/select", h.handleSelect).Methods(http.MethodPost)
	router.HandleFunc("/analysis", h.handleAnalysis).Methods(http.MethodPost)
	router.HandleFunc("/session", h.handleSession).Methods(http.MethodGet)
	router.HandleFunc("/session/view", h.handleSetView).Methods(http.MethodPost)
	router.HandleFunc("/vault/challenge", h.handleChallenge).Methods(http.MethodPost)
	router.HandleFunc("/vault/verify", h.handleVerify).Methods(http.MethodPost)
	router.HandleFunc("/vault/cancel", h.handleCancel).Methods(http.MethodPost)
	router.HandleFunc("/vault/documents", h.handleListDocuments).Methods(http.MethodGet)
	router.HandleFunc("/vault/documents", h.handleUpload).Methods(http.MethodPost)
}

func (h *HTTPHandler) handleListPatients(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	if query.Has("search") {
		h.coord.SetSearch(query.Get("search"))
	}
	if query.Has("filter") {
		if err := h.coord.SetFilter(query.Get("filter")); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	writeJSON(w, http.StatusOK, h.coord.FilteredPatients())
}

func (h *HTTPHandler) handleOnboard(w http.ResponseWriter, r *http.Request) {
	if h.maxBody > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBody)
	}

	var req OnboardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	patient, err := h.coord.Onboard(r.Context(), req)
	if err != nil {
		if IsValidationError(err) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		logger.Log.WithError(err).Error("failed to onboard patient")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, patient)
}

func (h *HTTPHandler) handleGetPatient(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	patient, ok := h.coord.Patient(id)
	if !ok {
		http.Error(w, "patient not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, patient)
}

func (h *HTTPHandler) handleSelect(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	patient, err := h.coord.SelectPatient(id)
	if err != nil {
		if errors.Is(err, ErrPatientNotFound) {
			http.Error(w, "patient not found", http.StatusNotFound)
			return
		}
		logger.Log.WithError(err).Error("failed to select patient")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, patient)
}

func (h *HTTPHandler) handleAnalysis(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ContextNote string `json:"contextNote"`
	}
	if r.Body != nil {
		// An empty body means an analysis without an additional note.
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	patient, err := h.coord.RunAnalysis(r.Context(), req.ContextNote)
	if err != nil {
		switch {
		case errors.Is(err, ErrAnalysisInProgress):
			http.Error(w, "analysis already in progress", http.StatusConflict)
		case errors.Is(err, ErrNoPatientSelected):
			http.Error(w, "no patient selected", http.StatusBadRequest)
		default:
			logger.Log.WithError(err).Error("failed to run analysis")
			http.Error(w, "internal error", http.StatusInternalServerError)
		}
		return
	}

	writeJSON(w, http.StatusOK, patient)
}

func (h *HTTPHandler) handleSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.coord.Snapshot())
}

func (h *HTTPHandler) handleSetView(w http.ResponseWriter, r *http.Request) {
	var req struct {
		View View `json:"view"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := h.coord.SetView(req.View); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, h.coord.Snapshot())
}

func (h *HTTPHandler) handleChallenge(w http.ResponseWriter, r *http.Request) {
	challenge, err := h.coord.RequestVaultAccess(r.Context())
	if err != nil {
		if errors.Is(err, ErrNoPatientSelected) {
			http.Error(w, "no patient selected", http.StatusBadRequest)
			return
		}
		logger.Log.WithError(err).Error("failed to open vault challenge")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, challenge)
}

func (h *HTTPHandler) handleVerify(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	unlocked := h.coord.SubmitAccessCode(req.Code)
	status := http.StatusOK
	if !unlocked {
		// Retryable; the challenge stays open.
		status = http.StatusUnauthorized
	}
	writeJSON(w, status, map[string]bool{"unlocked": unlocked})
}

func (h *HTTPHandler) handleCancel(w http.ResponseWriter, r *http.Request) {
	h.coord.CancelChallenge()
	w.WriteHeader(http.StatusNoContent)
}

func (h *HTTPHandler) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := h.coord.Documents(r.URL.Query().Get("category"))
	if err != nil {
		writeVaultError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, docs)
}

func (h *HTTPHandler) handleUpload(w http.ResponseWriter, r *http.Request) {
	if h.maxBody > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBody)
	}

	var req struct {
		FileName  string `json:"fileName"`
		MIMEType  string `json:"mimeType"`
		SizeBytes int64  `json:"sizeBytes"`
		Category  string `json:"category"`
		Content   string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	doc, err := h.coord.UploadDocument(r.Context(), documents.Upload{
		FileName:  req.FileName,
		MIMEType:  req.MIMEType,
		SizeBytes: req.SizeBytes,
		Category:  req.Category,
		Content:   req.Content,
	})
	if err != nil {
		if IsValidationError(err) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		writeVaultError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, doc)
}

func writeVaultError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNoPatientSelected):
		http.Error(w, "no patient selected", http.StatusBadRequest)
	case errors.Is(err, ErrVaultLocked):
		http.Error(w, "vault is locked", http.StatusForbidden)
	default:
		logger.Log.WithError(err).Error("vault operation failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
