package http

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"quiz-session-service/internal/app"
)

// AdminHandler serves the quiz owner's session endpoints.
type AdminHandler struct {
	service *app.QuizService
}

func NewAdminHandler(service *app.QuizService) *AdminHandler {
	return &AdminHandler{service: service}
}

type startSessionRequest struct {
	AutoStartNum int `json:"autoStartNum"`
}

type startSessionResponse struct {
	SessionID int `json:"sessionId"`
}

type updateStateRequest struct {
	Action string `json:"action"`
}

type csvResponse struct {
	URL string `json:"url"`
}

func (h *AdminHandler) StartSession(w http.ResponseWriter, r *http.Request) {
	quizID, err := intParam(r, "quizid")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req startSessionRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	id, err := h.service.StartSession(r.Context(), ownerFrom(r.Context()), quizID, req.AutoStartNum)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, startSessionResponse{SessionID: id})
}

func (h *AdminHandler) UpdateSessionState(w http.ResponseWriter, r *http.Request) {
	quizID, sessionID, err := sessionParams(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req updateStateRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.service.UpdateSessionState(r.Context(), ownerFrom(r.Context()), quizID, sessionID, req.Action); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct{}{})
}

func (h *AdminHandler) SessionStatus(w http.ResponseWriter, r *http.Request) {
	quizID, sessionID, err := sessionParams(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	status, err := h.service.SessionStatus(r.Context(), ownerFrom(r.Context()), quizID, sessionID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (h *AdminHandler) ViewSessions(w http.ResponseWriter, r *http.Request) {
	quizID, err := intParam(r, "quizid")
	if err != nil {
		writeError(w, r, err)
		return
	}
	list, err := h.service.ViewSessions(r.Context(), ownerFrom(r.Context()), quizID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *AdminHandler) FinalResults(w http.ResponseWriter, r *http.Request) {
	quizID, sessionID, err := sessionParams(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	results, err := h.service.SessionFinalResults(r.Context(), ownerFrom(r.Context()), quizID, sessionID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

func (h *AdminHandler) ResultsCSV(w http.ResponseWriter, r *http.Request) {
	quizID, sessionID, err := sessionParams(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	url, err := h.service.SessionResultsCSV(r.Context(), ownerFrom(r.Context()), quizID, sessionID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, csvResponse{URL: url})
}

// DownloadCSV streams a previously exported results file.
func (h *AdminHandler) DownloadCSV(w http.ResponseWriter, r *http.Request) {
	rc, err := h.service.OpenCSV(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer rc.Close()
	w.Header().Set("Content-Type", "text/csv")
	w.WriteHeader(http.StatusOK)
	_, _ = io.Copy(w, rc)
}

// Clear resets every session. Used by test harnesses.
func (h *AdminHandler) Clear(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Reset(r.Context()); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct{}{})
}

func sessionParams(r *http.Request) (int, int, error) {
	quizID, err := intParam(r, "quizid")
	if err != nil {
		return 0, 0, err
	}
	sessionID, err := intParam(r, "sessionid")
	if err != nil {
		return 0, 0, err
	}
	return quizID, sessionID, nil
}
