package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/louisbranch/dotgrid/internal/coordinator"
	apperrors "github.com/louisbranch/dotgrid/internal/errors"
)

// submitRequest is the submission endpoint payload. TeamID comes
// pre-validated from the external identity mechanism.
type submitRequest struct {
	EdgeID int `json:"edge_id"`
	TeamID int `json:"team_id"`
}

// submitResponse reports one submission outcome.
type submitResponse struct {
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
}

// stateResponse summarizes the derived game state.
type stateResponse struct {
	Phase         string    `json:"phase"`
	EventsApplied uint64    `json:"events_applied"`
	Scores        [4]uint64 `json:"scores"`
	EdgeCount     int       `json:"edge_count"`
	BoxCount      int       `json:"box_count"`
	GridWidth     int       `json:"grid_width"`
	GridHeight    int       `json:"grid_height"`
}

func (s *Server) submitEdge(c *gin.Context) {
	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, submitResponse{
			Code:    string(apperrors.CodeOutOfRange),
			Message: "body must be JSON with edge_id and team_id",
		})
		return
	}
	if !s.limiter.Allow(c.ClientIP()) {
		c.JSON(http.StatusTooManyRequests, submitResponse{
			Code:    string(apperrors.CodeRateLimited),
			Message: "submission rate exceeded",
		})
		s.metrics.Submission(string(apperrors.CodeRateLimited))
		return
	}

	if err := s.coord.Submit(c.Request.Context(), req.EdgeID, req.TeamID); err != nil {
		code := apperrors.GetCode(err)
		c.JSON(code.HTTPStatus(), submitResponse{Code: string(code), Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, submitResponse{Code: "ACCEPTED"})
}

func (s *Server) getEdge(c *gin.Context) {
	edgeID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, submitResponse{
			Code:    string(apperrors.CodeOutOfRange),
			Message: "edge id must be an integer",
		})
		return
	}
	taken, err := s.coord.EdgeTaken(edgeID)
	if err != nil {
		code := apperrors.GetCode(err)
		c.JSON(code.HTTPStatus(), submitResponse{Code: string(code), Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"edge_id": edgeID, "taken": taken})
}

func (s *Server) getState(c *gin.Context) {
	params := s.coord.Params()
	c.JSON(http.StatusOK, stateResponse{
		Phase:         s.coord.Phase().String(),
		EventsApplied: s.coord.EventsApplied(),
		Scores:        s.coord.Scores(),
		EdgeCount:     params.EdgeCount(),
		BoxCount:      params.BoxCount(),
		GridWidth:     params.Width,
		GridHeight:    params.Height,
	})
}

func (s *Server) getSnapshot(c *gin.Context) {
	if s.coord.Phase() == coordinator.PhaseBooting {
		c.JSON(http.StatusServiceUnavailable, submitResponse{
			Code:    string(apperrors.CodeWarmingUp),
			Message: "coordinator is replaying the log",
		})
		return
	}
	blob, err := s.coord.Snapshot()
	if err != nil {
		c.JSON(http.StatusInternalServerError, submitResponse{
			Code:    string(apperrors.CodeUnknown),
			Message: err.Error(),
		})
		return
	}
	c.Data(http.StatusOK, "application/octet-stream", blob)
}

func (s *Server) health(c *gin.Context) {
	phase := s.coord.Phase()
	if phase == coordinator.PhaseBooting {
		c.JSON(http.StatusServiceUnavailable, gin.H{"phase": phase.String()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"phase": phase.String()})
}
