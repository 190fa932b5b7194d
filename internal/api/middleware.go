package api

import (
	"bytes"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// maxLoggedLine keeps request log lines short enough to scan.
const maxLoggedLine = 120

// capturingWriter records the status code and the response body so the
// request log can include what the API answered.
type capturingWriter struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (w *capturingWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func (w *capturingWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

// RequestLogger logs method, path, status, duration and a truncated copy of
// the JSON response for API routes. Non-API routes (health, static) pass
// through unlogged.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/api") {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		cw := &capturingWriter{ResponseWriter: w}
		next.ServeHTTP(cw, r)

		line := r.Method + " " + r.URL.Path + " " +
			strconv.Itoa(cw.status) + " in " + time.Since(start).Round(time.Millisecond).String()
		if cw.body.Len() > 0 {
			line += " :: " + cw.body.String()
		}
		if len(line) > maxLoggedLine {
			line = line[:maxLoggedLine-1] + "…"
		}
		log.Println(line)
	})
}
