package http

import (
	"net/http"

	"quiz-session-service/internal/app"
)

// PlayerHandler serves the player-facing endpoints.
type PlayerHandler struct {
	service *app.QuizService
}

func NewPlayerHandler(service *app.QuizService) *PlayerHandler {
	return &PlayerHandler{service: service}
}

type joinRequest struct {
	SessionID int    `json:"sessionId"`
	Name      string `json:"name"`
}

type joinResponse struct {
	PlayerID int `json:"playerId"`
}

type answerRequest struct {
	AnswerIDs []int `json:"answerIds"`
}

type chatRequest struct {
	Message struct {
		MessageBody string `json:"messageBody"`
	} `json:"message"`
}

func (h *PlayerHandler) Join(w http.ResponseWriter, r *http.Request) {
	var req joinRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	id, err := h.service.Join(r.Context(), req.SessionID, req.Name)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, joinResponse{PlayerID: id})
}

func (h *PlayerHandler) Status(w http.ResponseWriter, r *http.Request) {
	playerID, err := intParam(r, "playerid")
	if err != nil {
		writeError(w, r, err)
		return
	}
	status, err := h.service.Status(r.Context(), playerID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (h *PlayerHandler) CurrentQuestion(w http.ResponseWriter, r *http.Request) {
	playerID, position, err := questionParams(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	view, err := h.service.CurrentQuestion(r.Context(), playerID, position)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *PlayerHandler) SubmitAnswer(w http.ResponseWriter, r *http.Request) {
	playerID, position, err := questionParams(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req answerRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.service.SubmitAnswer(r.Context(), playerID, position, req.AnswerIDs); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct{}{})
}

func (h *PlayerHandler) QuestionResults(w http.ResponseWriter, r *http.Request) {
	playerID, position, err := questionParams(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	result, err := h.service.QuestionResults(r.Context(), playerID, position)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *PlayerHandler) FinalResults(w http.ResponseWriter, r *http.Request) {
	playerID, err := intParam(r, "playerid")
	if err != nil {
		writeError(w, r, err)
		return
	}
	results, err := h.service.PlayerFinalResults(r.Context(), playerID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

func (h *PlayerHandler) ChatMessages(w http.ResponseWriter, r *http.Request) {
	playerID, err := intParam(r, "playerid")
	if err != nil {
		writeError(w, r, err)
		return
	}
	messages, err := h.service.ChatMessages(r.Context(), playerID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"messages": messages})
}

func (h *PlayerHandler) SendChat(w http.ResponseWriter, r *http.Request) {
	playerID, err := intParam(r, "playerid")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req chatRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.service.SendChat(r.Context(), playerID, req.Message.MessageBody); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct{}{})
}

func questionParams(r *http.Request) (int, int, error) {
	playerID, err := intParam(r, "playerid")
	if err != nil {
		return 0, 0, err
	}
	position, err := intParam(r, "position")
	if err != nil {
		return 0, 0, err
	}
	return playerID, position, nil
}
