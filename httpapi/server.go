// SPDX-License-Identifier: GPL-3.0-or-later

package httpapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/netip"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rbmk-project/common/runtimex"
	"github.com/rbmk-project/pkttrace/netsim"
	"github.com/rbmk-project/pkttrace/netsim/packet"
)

// OutcomeHeader is the response header containing the trace outcome.
const OutcomeHeader = "X-Trace-Outcome"

// maxBodySize is the maximum size of a request body.
const maxBodySize = 1 << 16

// Server serves the HTTP API.
//
// Construct using [NewServer].
type Server struct {
	// Logger is the optional structured logger for emitting
	// structured diagnostic events. If this field is nil, we
	// will not be emitting structured logs.
	Logger *slog.Logger

	// TimeNow is an optional function that returns the current time.
	// If this field is nil, the [time.Now] function will be used.
	TimeNow func() time.Time

	// metrics contains the trace metrics.
	metrics *Metrics

	// registry is the registry exposed by /metrics.
	registry *prometheus.Registry

	// scenario is the scenario to trace packets through.
	scenario *netsim.Scenario
}

// NewServer creates a new [*Server] using the given scenario and
// a dedicated Prometheus registry.
func NewServer(scenario *netsim.Scenario) *Server {
	runtimex.Assert(scenario != nil, "nil scenario")
	registry := prometheus.NewRegistry()
	return &Server{
		metrics:  NewMetrics(registry),
		registry: registry,
		scenario: scenario,
	}
}

// Metrics returns the trace metrics.
func (s *Server) Metrics() *Metrics {
	return s.metrics
}

// Handler returns the [http.Handler] serving the API.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)
	r.Post("/trace", s.handleTrace)
	r.Get("/healthz", s.handleHealthz)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	return r
}

// handleHealthz handles GET /healthz.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	io.WriteString(w, "ok")
}

// handleTrace handles POST /trace.
func (s *Server) handleTrace(w http.ResponseWriter, r *http.Request) {
	req, err := decodeRequest(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	res := s.scenario.Trace(r.Context(), req)
	s.metrics.observe(res)
	w.Header().Set(OutcomeHeader, res.Outcome.String())
	writeJSON(w, http.StatusOK, res.Events)
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, value any) {
	data := runtimex.Try1(json.Marshal(value))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(append(data, '\n'))
}

// requiredFields lists the request fields in the order we check them.
var requiredFields = []string{"src_ip", "dst", "dst_port", "protocol", "ttl"}

// errInvalidBody indicates that the body is not a JSON object.
var errInvalidBody = errors.New("invalid request body: expected a JSON object")

// decodeRequest decodes and validates the body of POST /trace.
func decodeRequest(body io.Reader) (*netsim.Request, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("invalid request body: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var fields map[string]any
	if err := dec.Decode(&fields); err != nil || fields == nil {
		return nil, errInvalidBody
	}
	for _, name := range requiredFields {
		if _, found := fields[name]; !found {
			return nil, fmt.Errorf("missing field %s", name)
		}
	}

	srcValue, err := stringField(fields, "src_ip")
	if err != nil {
		return nil, err
	}
	src, err := netip.ParseAddr(strings.TrimSpace(srcValue))
	if err != nil {
		return nil, invalidField("src_ip", "not an IP address")
	}
	dst, err := stringField(fields, "dst")
	if err != nil {
		return nil, err
	}
	port, err := intField(fields, "dst_port")
	if err != nil {
		return nil, err
	}
	if port < 0 || port > math.MaxUint16 {
		return nil, invalidField("dst_port", "out of range")
	}
	proto, err := stringField(fields, "protocol")
	if err != nil {
		return nil, err
	}
	ttl, err := intField(fields, "ttl")
	if err != nil {
		return nil, err
	}
	if ttl < math.MinInt32 || ttl > math.MaxInt32 {
		return nil, invalidField("ttl", "out of range")
	}

	return &netsim.Request{
		Src:      src,
		Dst:      dst,
		DstPort:  uint16(port),
		Protocol: packet.ParseProtocol(proto),
		TTL:      int(ttl),
	}, nil
}

// invalidField returns the error for a malformed field.
func invalidField(name, reason string) error {
	return fmt.Errorf("invalid field %s: %s", name, reason)
}

// stringField returns the value of a string field.
func stringField(fields map[string]any, name string) (string, error) {
	value, ok := fields[name].(string)
	if !ok {
		return "", invalidField(name, "expected a string")
	}
	return value, nil
}

// intField returns the value of a field containing
// either an integer or an integer string.
func intField(fields map[string]any, name string) (int64, error) {
	var text string
	switch v := fields[name].(type) {
	case json.Number:
		text = v.String()
	case string:
		text = strings.TrimSpace(v)
	default:
		return 0, invalidField(name, "expected an integer")
	}
	value, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return 0, invalidField(name, "expected an integer")
	}
	return value, nil
}

// logRequests is the middleware emitting an httpRequest event per request.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.Logger == nil {
			next.ServeHTTP(w, r)
			return
		}
		t0 := s.timeNow()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		s.Logger.InfoContext(
			r.Context(),
			"httpRequest",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("remoteAddr", r.RemoteAddr),
			slog.Int("status", status),
			slog.String("outcome", ww.Header().Get(OutcomeHeader)),
			slog.Int("bytes", ww.BytesWritten()),
			slog.Time("t0", t0),
			slog.Time("t", s.timeNow()),
		)
	})
}

// timeNow returns the current time.
func (s *Server) timeNow() time.Time {
	if s.TimeNow != nil {
		return s.TimeNow()
	}
	return time.Now()
}
