package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rflorenc/deploy-ledger/internal/logger"
)

// requestLogger logs every request at a level chosen by its status code.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		elapsed := time.Since(start)
		id := middleware.GetReqID(r.Context())
		switch {
		case status >= 500:
			logger.Errorf("HTTP %s %s - %d in %v [%s]", r.Method, r.URL.Path, status, elapsed, id)
		case status >= 400:
			logger.Warnf("HTTP %s %s - %d in %v [%s]", r.Method, r.URL.Path, status, elapsed, id)
		default:
			logger.Infof("HTTP %s %s - %d in %v [%s]", r.Method, r.URL.Path, status, elapsed, id)
		}
	})
}
