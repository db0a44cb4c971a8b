package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"quiz-session-service/internal/app"
)

// NewRouter wires the admin, player and websocket endpoints.
func NewRouter(service *app.QuizService, l *slog.Logger) http.Handler {
	admin := NewAdminHandler(service)
	player := NewPlayerHandler(service)
	ws := NewWSHandler(service, l)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(l))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "token"},
		MaxAge:         300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	r.Get("/ws", ws.ServeWS)
	r.Get("/csv/{name}", admin.DownloadCSV)
	r.Delete("/v1/clear", admin.Clear)

	r.Route("/v1/admin/quiz/{quizid}", func(r chi.Router) {
		r.Use(OwnerToken)
		r.Post("/session/start", admin.StartSession)
		r.Get("/sessions", admin.ViewSessions)
		r.Put("/session/{sessionid}", admin.UpdateSessionState)
		r.Get("/session/{sessionid}", admin.SessionStatus)
		r.Get("/session/{sessionid}/results", admin.FinalResults)
		r.Get("/session/{sessionid}/results/csv", admin.ResultsCSV)
	})

	r.Route("/v1/player", func(r chi.Router) {
		r.Post("/join", player.Join)
		r.Get("/{playerid}", player.Status)
		r.Get("/{playerid}/question/{position}", player.CurrentQuestion)
		r.Put("/{playerid}/question/{position}/answer", player.SubmitAnswer)
		r.Get("/{playerid}/question/{position}/results", player.QuestionResults)
		r.Get("/{playerid}/results", player.FinalResults)
		r.Get("/{playerid}/chat", player.ChatMessages)
		r.Post("/{playerid}/chat", player.SendChat)
	})

	return r
}
