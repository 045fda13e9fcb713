package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/FranksOps/newsprobe/internal/gnews"
	"github.com/FranksOps/newsprobe/internal/storage"
)

type queryJSON struct {
	Terms      string `json:"terms"`
	Language   string `json:"language"`
	Country    string `json:"country"`
	TimeRange  string `json:"time_range,omitempty"`
	SafeSearch string `json:"safesearch"`
}

type searchResponse struct {
	ID      string         `json:"id"`
	Query   queryJSON      `json:"query"`
	Results []gnews.Result `json:"results"`
}

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

func parseLimit(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 || n > maxLimit {
		return 0, fmt.Errorf("limit must be an integer in [0, %d]", maxLimit)
	}
	return n, nil
}

func parseQuery(c *gin.Context) (gnews.Query, int, error) {
	q := gnews.Query{
		Terms:    c.Query("q"),
		Language: c.Query("language"),
		Country:  c.Query("country"),
	}
	if q.Terms == "" {
		return q, 0, errors.New("missing q parameter")
	}
	tr, err := gnews.ParseTimeRange(c.Query("time_range"))
	if err != nil {
		return q, 0, err
	}
	q.TimeRange = tr
	ss, err := gnews.ParseSafeSearch(c.Query("safesearch"))
	if err != nil {
		return q, 0, err
	}
	q.SafeSearch = ss
	limit, err := parseLimit(c.Query("limit"))
	if err != nil {
		return q, 0, err
	}
	return q, limit, nil
}

func (s *Server) handleSearch(c *gin.Context) {
	q, limit, err := parseQuery(c)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	rec, err := s.provider.Search(c.Request.Context(), q, limit)
	if rec != nil && s.backend != nil {
		if saveErr := s.backend.Save(c.Request.Context(), rec); saveErr != nil {
			s.logger.Error("failed to save record", "id", rec.ID, "err", saveErr)
		}
	}

	var ie *gnews.InterceptionError
	switch {
	case errors.As(err, &ie):
		_ = c.Error(err)
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, errorResponse{Error: ie.Error(), Kind: ie.Kind.String()})
		return
	case err != nil:
		_ = c.Error(err)
		c.AbortWithStatusJSON(http.StatusBadGateway, errorResponse{Error: err.Error()})
		return
	}

	c.JSON(http.StatusOK, searchResponse{
		ID: rec.ID,
		Query: queryJSON{
			Terms:      rec.Terms,
			Language:   rec.Language,
			Country:    rec.Country,
			TimeRange:  rec.TimeRange,
			SafeSearch: q.SafeSearch.String(),
		},
		Results: rec.Results,
	})
}

func (s *Server) handleRecords(c *gin.Context) {
	filter := storage.Filter{Terms: c.Query("terms")}

	limit, err := parseLimit(c.DefaultQuery("limit", "20"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	filter.Limit = limit
	if raw := c.Query("offset"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{Error: "offset must be a non-negative integer"})
			return
		}
		filter.Offset = n
	}
	if raw := c.Query("intercepted"); raw != "" {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{Error: "intercepted must be a boolean"})
			return
		}
		filter.Intercepted = &b
	}
	if raw := c.Query("since"); raw != "" {
		ts, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{Error: "since must be an RFC 3339 timestamp"})
			return
		}
		filter.Since = &ts
	}

	records, err := s.backend.Query(c.Request.Context(), filter)
	if err != nil {
		_ = c.Error(err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, errorResponse{Error: "query records failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": records})
}
