package routers

import (
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"careercoach/ai/internal/handlers"
	"careercoach/ai/internal/middleware"
	"careercoach/ai/internal/models"
)

// Handlers groups everything mounted under /api/v1. A nil Feedback disables the rating routes.
type Handlers struct {
	Interview *handlers.InterviewHandler
	Career    *handlers.CareerHandler
	Jobs      *handlers.JobHandler
	History   *handlers.HistoryHandler
	Feedback  *handlers.FeedbackHandler
}

// APIRoutes registers the agent routes. Writes to one record are serialized
// through locker when it is non-nil.
func APIRoutes(router *chi.Mux, h Handlers, locker middleware.RecordLocker, logger *zap.Logger) {
	router.Route("/api/v1", func(r chi.Router) {
		r.Route("/interviews", func(r chi.Router) {
			r.With(middleware.ValidateRequest[*models.StartInterviewRequest]()).Post("/", h.Interview.StartHandler)
			r.Get("/{interview_id}", h.Interview.GetHandler)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RecordLock(locker, "interview_id", logger))
				r.With(middleware.ValidateRequest[*models.SubmitAnswerRequest]()).Post("/{interview_id}/answer", h.Interview.AnswerHandler)
				r.With(middleware.ValidateRequest[*models.TickRequest]()).Post("/{interview_id}/tick", h.Interview.TickHandler)
				r.Post("/{interview_id}/end", h.Interview.EndHandler)
				r.Post("/{interview_id}/complete", h.Interview.CompleteHandler)
			})
		})

		r.With(middleware.RecordLock(locker, "thread_id", logger), middleware.ValidateRequest[*models.ChatMessageRequest]()).
			Post("/chat/{thread_id}/messages", h.Career.ChatHandler)
		r.With(middleware.RecordLock(locker, "record_id", logger), middleware.ValidateRequest[*models.ResumeAnalysisRequest]()).
			Post("/resume/{record_id}/analyze", h.Career.ResumeHandler)
		r.With(middleware.RecordLock(locker, "roadmap_id", logger), middleware.ValidateRequest[*models.RoadmapRequest]()).
			Post("/roadmaps/{roadmap_id}", h.Career.RoadmapHandler)

		r.Get("/jobs/{job_id}", h.Jobs.StatusHandler)

		r.Route("/history", func(r chi.Router) {
			r.Get("/", h.History.ListHandler)
			r.With(middleware.ValidateRequest[*models.CreateHistoryRequest]()).Post("/", h.History.CreateHandler)
			r.Get("/{record_id}", h.History.GetHandler)
		})

		if h.Feedback != nil {
			r.Route("/feedback", func(r chi.Router) {
				r.Get("/stats", h.Feedback.GetFeedbackStats)
				r.Get("/export", h.Feedback.ExportFeedback)
				r.Post("/{request_id}", h.Feedback.SubmitFeedback)
			})
		}
	})
}
