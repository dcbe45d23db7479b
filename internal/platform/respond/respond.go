// Package respond renders RFC 9457 problem details for failures that happen
// outside huma operations: unknown routes, wrong methods and panics.
package respond

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/fxamacker/cbor/v2"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/janisto/analytics-status/internal/platform/logging"
)

const (
	// ProblemJSON is the RFC 9457 JSON media type.
	ProblemJSON = "application/problem+json"
	// ProblemCBOR is the RFC 9457 CBOR media type.
	ProblemCBOR = "application/problem+cbor"

	msgNotFound      = "resource not found"
	msgInternalError = "internal server error"
)

// candidateMethods are the methods checked when computing the Allow header.
var candidateMethods = []string{
	http.MethodGet,
	http.MethodHead,
	http.MethodPost,
	http.MethodPut,
	http.MethodPatch,
	http.MethodDelete,
	http.MethodOptions,
}

// Problem builds a problem document for status. Non-nil errs become entries of
// the errors array.
func Problem(status int, detail string, errs ...error) *huma.ErrorModel {
	p := &huma.ErrorModel{
		Title:  http.StatusText(status),
		Status: status,
		Detail: detail,
	}
	for _, err := range errs {
		if err == nil {
			continue
		}
		p.Errors = append(p.Errors, &huma.ErrorDetail{Message: err.Error()})
	}
	return p
}

// MarshalJSON encodes p without HTML escaping.
func MarshalJSON(p *huma.ErrorModel) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(p); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// WriteProblem negotiates JSON or CBOR from the Accept header and writes p.
func WriteProblem(w http.ResponseWriter, r *http.Request, p *huma.ErrorModel) {
	ct := ProblemJSON
	var (
		body []byte
		err  error
	)
	if PrefersCBOR(r.Header.Get("Accept")) {
		ct = ProblemCBOR
		body, err = cbor.Marshal(p)
	} else {
		body, err = MarshalJSON(p)
	}
	if err != nil {
		logging.LogError(r.Context(), "failed to encode problem", err)
		http.Error(w, http.StatusText(p.Status), p.Status)
		return
	}

	w.Header().Set("Content-Type", ct)
	w.WriteHeader(p.Status)
	if _, err := w.Write(body); err != nil {
		logging.LogWarn(r.Context(), "failed to write problem", zap.Error(err))
	}
}

// NotFoundHandler answers unknown routes with a 404 problem.
func NotFoundHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p := Problem(http.StatusNotFound, msgNotFound)
		logProblem(r, p)
		WriteProblem(w, r, p)
	}
}

// MethodNotAllowedHandler answers with a 405 problem and an Allow header
// listing the methods the matched path does support.
func MethodNotAllowedHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if allow := allowedMethods(r); len(allow) > 0 {
			w.Header().Set("Allow", strings.Join(allow, ", "))
		}
		p := Problem(http.StatusMethodNotAllowed, fmt.Sprintf("method %s not allowed", r.Method))
		logProblem(r, p)
		WriteProblem(w, r, p)
	}
}

// Recoverer converts panics into 500 problems. http.ErrAbortHandler is
// re-panicked so net/http can abort the connection, and nothing is written
// when the handler already sent a response header.
func Recoverer() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				err, ok := rec.(error)
				if !ok {
					err = fmt.Errorf("%v", rec)
				}
				if errors.Is(err, http.ErrAbortHandler) {
					panic(rec)
				}
				logging.LogError(r.Context(), "panic recovered", err, zap.ByteString("stack", debug.Stack()))
				if ww.Status() != 0 {
					return
				}
				WriteProblem(ww, r, Problem(http.StatusInternalServerError, msgInternalError))
			}()
			next.ServeHTTP(ww, r)
		})
	}
}

func logProblem(r *http.Request, p *huma.ErrorModel) {
	fields := []zap.Field{
		zap.Int("status", p.Status),
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
	}
	logging.LogWarn(r.Context(), p.Detail, fields...)
}

// allowedMethods asks chi which methods route the current path.
func allowedMethods(r *http.Request) []string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil || rctx.Routes == nil {
		return nil
	}
	path := rctx.RoutePath
	if path == "" {
		path = r.URL.RawPath
	}
	if path == "" {
		path = r.URL.Path
	}
	if path == "" {
		path = "/"
	}

	allowed := make([]string, 0, len(candidateMethods))
	for _, m := range candidateMethods {
		if rctx.Routes.Match(chi.NewRouteContext(), m, path) {
			allowed = append(allowed, m)
		}
	}
	return allowed
}
