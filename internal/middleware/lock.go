package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"careercoach/ai/internal/history"
	"careercoach/ai/internal/models"
	"careercoach/ai/internal/utils"
)

// RecordLocker is satisfied by history.Locker.
type RecordLocker interface {
	Acquire(ctx context.Context, recordID string) (func(), error)
}

// RecordLock serializes requests that mutate the record named by the URL param.
// A nil locker makes it a pass-through.
func RecordLock(locker RecordLocker, param string, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if locker == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := chi.URLParam(r, param)
			if id == "" {
				next.ServeHTTP(w, r)
				return
			}

			release, err := locker.Acquire(r.Context(), id)
			if err != nil {
				if errors.Is(err, history.ErrLocked) {
					utils.JSON(w, http.StatusConflict, models.ErrorResponse{
						Code:    "record_locked",
						Message: "Another request is already updating this record",
					})
					return
				}
				logger.Error("Failed to acquire record lock", zap.String("record_id", id), zap.Error(err))
				utils.JSON(w, http.StatusServiceUnavailable, models.ErrorResponse{
					Code:    "lock_unavailable",
					Message: "Could not acquire record lock",
				})
				return
			}
			defer release()

			next.ServeHTTP(w, r)
		})
	}
}
