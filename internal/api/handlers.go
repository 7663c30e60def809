package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// GET /health
func healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// GET /api/status
func statusHandler(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":           "ok",
			"corpusSize":       len(d.Corpus),
			"blacklistedCount": d.BlacklistedCount,
		})
	}
}

// GET /api/stats
func statsHandler(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, d.Metrics.Snapshot())
	}
}

// POST /api/rank
func rankHandler(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req rankRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
			return
		}
		if req.Query == "" {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "query must not be empty"})
			return
		}

		resp := runRanking(c.Request.Context(), d, req)
		c.JSON(http.StatusOK, resp)
	}
}

// GET /api/search?q=...&specialty=...&limit=...
// A thin wrapper: same semantics as POST /api/rank with variant=v2,
// per the specification's §6.1.
func searchHandler(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		q := c.Query("q")
		if q == "" {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "q must not be empty"})
			return
		}

		req := rankRequest{
			Query:     q,
			Specialty: c.Query("specialty"),
			Variant:   "v2",
		}
		if limitStr := c.Query("limit"); limitStr != "" {
			if limit, err := strconv.Atoi(limitStr); err == nil && limit > 0 {
				req.ShortlistSize = limit
			}
		}

		resp := runRanking(c.Request.Context(), d, req)
		c.JSON(http.StatusOK, resp)
	}
}
