package ratelimit

import (
	"math"
	"net/http"
	"strconv"
	"time"

	dErrors "prs/pkg/domain-errors"
	"prs/pkg/platform/httputil"
	"prs/pkg/requestcontext"
)

// Middleware limits requests per authenticated actor. It must run after the
// auth middleware. A nil limiter disables limiting.
func Middleware(l *Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if l == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			actor := requestcontext.ActorID(ctx)
			if actor == "" {
				next.ServeHTTP(w, r)
				return
			}

			res, degraded, err := l.Allow(ctx, "actor:"+actor)
			if err != nil {
				// fail open
				l.logger.ErrorContext(ctx, "rate limit check failed", "error", err, "actor_id", actor)
				next.ServeHTTP(w, r)
				return
			}
			writeHeaders(w, res, degraded)
			if !res.Allowed {
				w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds(res.ResetAt)))
				httputil.WriteError(w, dErrors.New(dErrors.CodeRateLimited, "too many requests"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeHeaders(w http.ResponseWriter, res *Result, degraded bool) {
	h := w.Header()
	h.Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
	h.Set("X-RateLimit-Reset", strconv.FormatInt(res.ResetAt.Unix(), 10))
	if degraded {
		h.Set("X-RateLimit-Status", "degraded")
	}
}

func retryAfterSeconds(resetAt time.Time) int {
	secs := int(math.Ceil(time.Until(resetAt).Seconds()))
	return max(secs, 1)
}
