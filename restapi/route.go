package restapi

import (
	"net/http"

	"github.com/AustralianCyberSecurityCentre/azul-numberlog.git/numbers/counters"
	st "github.com/AustralianCyberSecurityCentre/azul-numberlog.git/settings"
	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// StatsSource is the read only view of the pipeline the restapi reports on.
type StatsSource interface {
	Counters() *counters.Counters
	QueueDepths() map[string]int
	SinkFailed() bool
}

type API struct {
	Router *gin.Engine
	stats  StatsSource
}

type StatsResponse struct {
	Unique     uint64         `json:"unique"`
	Duplicate  uint64         `json:"duplicate"`
	Queues     map[string]int `json:"queues"`
	SinkFailed bool           `json:"sink_failed"`
}

// response to hitting '/' on the server
func GetRoot(c *gin.Context) {
	c.Writer.Header().Set("Content-Type", "text/plain")
	_, err := c.Writer.Write([]byte("Azul Numberlog"))
	if err != nil {
		st.Logger.Err(err).Msg("get root")
	}
}

// Basic middleware to log errors.
func ErrorLoggerMiddleware(c *gin.Context) {
	if c == nil {
		st.Logger.Error().Msg("gin error, couldn't provide error info as context was nil.")
		return
	}
	c.Next()

	for _, err := range c.Errors {
		if c.Request == nil || c.Request.URL == nil {
			st.Logger.Error().Err(err).Msg("gin error, limited detail was Request or Request URL was nil.")
		} else {
			st.Logger.Error().Err(err).Msgf("gin error on route %s %s with query params %v", c.Request.Method, c.Request.URL, c.Request.URL.Query())
		}
	}
}

// GetStats returns the running counters and queue depths.
func (a *API) GetStats(c *gin.Context) {
	snap := a.stats.Counters().Snapshot()
	body, err := json.Marshal(StatsResponse{
		Unique:     snap.Unique,
		Duplicate:  snap.Duplicate,
		Queues:     a.stats.QueueDepths(),
		SinkFailed: a.stats.SinkFailed(),
	})
	if err != nil {
		_ = c.Error(err)
		c.Status(http.StatusInternalServerError)
		return
	}
	c.Data(http.StatusOK, "application/json", body)
}

func NewAPI(stats StatsSource) *API {
	gin.SetMode(gin.ReleaseMode) // don't print route list on start

	st.Logger.Info().Msg("Start Numberlog RestAPI")
	a := &API{stats: stats}
	router := gin.New()
	router.Use(ErrorLoggerMiddleware)

	lpath := "/api/v1/stats"
	router.GET(lpath, MetricHandler(lpath, a.GetStats))

	// base response
	router.GET("/", GetRoot)

	// memory monitoring, the bitmap and hash backends can be large
	pprof.Register(router, "debug/pprof")

	// prometheus metrics endpoint
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	a.Router = router
	return a
}
