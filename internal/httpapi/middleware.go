package httpapi

import (
	"expvar"
	"log"
	"net/http"
	"time"
)

var (
	requestsTotal  = expvar.NewInt("http_requests_total")
	requestsErrors = expvar.NewInt("http_requests_errors_total")
)

type statusWriter struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	n, err := w.ResponseWriter.Write(b)
	w.bytes += n
	return n, err
}

func loggingMiddleware(logger *log.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now().UTC()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)

		requestsTotal.Add(1)
		if sw.status >= http.StatusBadRequest {
			requestsErrors.Add(1)
		}
		logger.Printf("%s %s status=%d bytes=%d from=%s dur=%s",
			r.Method, r.URL.Path, sw.status, sw.bytes, r.RemoteAddr, time.Since(start))
	})
}
