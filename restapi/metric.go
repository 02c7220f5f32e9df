package restapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/AustralianCyberSecurityCentre/azul-numberlog.git/prom"
	st "github.com/AustralianCyberSecurityCentre/azul-numberlog.git/settings"
	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
)

// statusRecorder remembers the response code and, for failures, the body written.
type statusRecorder struct {
	gin.ResponseWriter
	statusCode int
	errorBody  []byte
}

func (r *statusRecorder) WriteHeader(code int) {
	r.statusCode = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(data []byte) (int, error) {
	if r.statusCode >= 400 {
		r.errorBody = append(r.errorBody, data...)
	}
	return r.ResponseWriter.Write(data)
}

type AccessLogLine struct {
	Time      string `json:"time"`
	DurationS string `json:"duration_s"`
	Status    int    `json:"status"`
	Method    string `json:"method"`
	Route     string `json:"route"`
	Path      string `json:"path"`
	Query     string `json:"query"`
	Remote    string `json:"remote"`
	Useragent string `json:"user_agent"`
	ErrorBody string `json:"error_body,omitempty"`
}

// MetricHandler times a handler for prometheus and writes an access log line.
// The route template is not available from the request so it is supplied on registration.
func MetricHandler(tpath string, fn gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		rec := &statusRecorder{ResponseWriter: c.Writer, statusCode: http.StatusOK}
		c.Writer = rec

		start := time.Now()
		fn(c)
		elapsed := time.Since(start).Seconds()
		code := strconv.Itoa(rec.statusCode)
		prom.RestapiTimes.WithLabelValues(c.Request.Method, tpath).Observe(elapsed)
		prom.RestapiCodes.WithLabelValues(c.Request.Method, tpath, code).Inc()

		// json rather than logfmt so odd client input can't break the line
		logline, err := json.Marshal(AccessLogLine{
			Time:      start.Format(time.RFC3339),
			DurationS: strconv.FormatFloat(elapsed, 'f', 4, 64),
			Status:    rec.statusCode,
			Method:    c.Request.Method,
			Route:     tpath,
			Path:      c.Request.URL.Path,
			Query:     c.Request.URL.RawQuery,
			Remote:    c.Request.RemoteAddr,
			Useragent: c.Request.UserAgent(),
			ErrorBody: string(rec.errorBody),
		})
		if err != nil {
			st.Logger.Warn().Err(err).Str("route", tpath).Msg("could not marshal restapi access log line")
			return
		}
		if rec.statusCode < 400 {
			st.TryLog(st.ChLogRestapiOk, logline)
		} else {
			st.TryLog(st.ChLogRestapiErr, logline)
		}
	}
}
