package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"echopost/types"
)

// RegisterDuplicateRoutes registers the on-demand duplicate check endpoint.
func RegisterDuplicateRoutes(r *gin.Engine, deps Deps) {
	g := r.Group("/api/duplicate")
	g.POST("/check", func(c *gin.Context) {
		handleCheckDuplicate(c, deps)
	})
}

// CheckDuplicateRequest is a candidate message to check against history.
type CheckDuplicateRequest struct {
	Text  string                  `json:"text"`
	Media []types.MediaDescriptor `json:"media_info"`
}

// CheckDuplicateResponse reports the layered decision.
type CheckDuplicateResponse struct {
	IsDuplicate     bool   `json:"is_duplicate"`
	Method          string `json:"method"`
	MatchedLocation string `json:"matched_location,omitempty"`
	CheckedAt       string `json:"checked_at"`
}

// handleCheckDuplicate runs the layered check without writing a decision
// artifact; ad-hoc API checks must not pollute group directories.
func handleCheckDuplicate(c *gin.Context, deps Deps) {
	var req CheckDuplicateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Text == "" && len(req.Media) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "text or media_info is required"})
		return
	}

	decision := deps.Checker.Check(c.Request.Context(), req.Text, req.Media, deps.HistoryDir, "")

	c.JSON(http.StatusOK, CheckDuplicateResponse{
		IsDuplicate:     decision.IsDuplicate,
		Method:          decision.Method,
		MatchedLocation: decision.MatchedLocation,
		CheckedAt:       decision.Timestamp,
	})
}
