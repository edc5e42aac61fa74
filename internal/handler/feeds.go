package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"confeed/internal/client/cms"
	"confeed/internal/config"
	"confeed/internal/feed"
	"confeed/internal/schedule"
)

// FeedHandler serves the three schedule feeds. Each request runs the
// whole pipeline: resolve edition, fetch concurrently, normalize,
// render. Nothing is cached between invocations.
type FeedHandler struct {
	Loader        *schedule.Loader
	Event         config.EventConfig
	ParallelRooms []string
	Location      *time.Location
	Logger        *zap.Logger
}

func (h *FeedHandler) Register(r *gin.Engine) {
	r.GET("/slavcon/:year", h.condroid)
	r.GET("/conbot/:year", h.conbot)
	r.GET("/calendar/:year", h.calendar)
}

func (h *FeedHandler) condroid(c *gin.Context) {
	year, ok := yearParam(c)
	if !ok {
		return
	}
	bundle, err := h.Loader.Load(c.Request.Context(), year, false)
	if err != nil {
		h.fail(c, "condroid", err)
		return
	}
	entries := schedule.Normalize(bundle.Primary, bundle.Authors, bundle.Rooms, bundle.Lines)
	body, err := feed.Condroid(entries)
	if err != nil {
		h.fail(c, "condroid", err)
		return
	}
	XML(c, body)
}

func (h *FeedHandler) conbot(c *gin.Context) {
	year, ok := yearParam(c)
	if !ok {
		return
	}
	bundle, err := h.Loader.Load(c.Request.Context(), year, true)
	if err != nil {
		h.fail(c, "conbot", err)
		return
	}
	body, err := feed.Conbot(feed.ConbotInput{
		Primary:       schedule.Normalize(bundle.Primary, bundle.Authors, bundle.Rooms, bundle.Lines),
		Extra:         schedule.Normalize(bundle.Extra, bundle.Authors, bundle.Rooms, bundle.Lines),
		Event:         h.Event,
		ParallelRooms: h.ParallelRooms,
		Location:      h.Location,
	})
	if err != nil {
		h.fail(c, "conbot", err)
		return
	}
	XML(c, body)
}

func (h *FeedHandler) calendar(c *gin.Context) {
	year, ok := yearParam(c)
	if !ok {
		return
	}
	bundle, err := h.Loader.Load(c.Request.Context(), year, false)
	if err != nil {
		h.fail(c, "calendar", err)
		return
	}
	entries := schedule.Normalize(bundle.Primary, bundle.Authors, bundle.Rooms, bundle.Lines)
	body, err := feed.Calendar(entries, h.Event.Title)
	if err != nil {
		h.fail(c, "calendar", err)
		return
	}
	c.Data(http.StatusOK, "text/calendar; charset=utf-8", []byte(body))
}

// yearParam rejects non-numeric years before any pipeline work.
func yearParam(c *gin.Context) (int, bool) {
	year, err := strconv.Atoi(c.Param("year"))
	if err != nil || year <= 0 {
		Error(c, http.StatusBadRequest, "year must be a positive integer")
		return 0, false
	}
	return year, true
}

func (h *FeedHandler) fail(c *gin.Context, feedName string, err error) {
	if h.Logger != nil {
		h.Logger.Warn("feed request failed", zap.String("feed", feedName), zap.Error(err))
	}
	var apiErr *cms.APIError
	switch {
	case errors.Is(err, schedule.ErrEditionNotFound):
		Error(c, http.StatusNotFound, err.Error())
	case errors.As(err, &apiErr):
		Error(c, http.StatusBadGateway, "upstream fetch failed: "+apiErr.Resource)
	default:
		Error(c, http.StatusInternalServerError, "feed generation failed")
	}
}
