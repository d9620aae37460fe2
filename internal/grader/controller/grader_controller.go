// Package controller exposes the grading and leaderboard HTTP API.
package controller

import (
	"github.com/gin-gonic/gin"

	"codearena/internal/grader/model"
	"codearena/internal/grader/service"
	"codearena/internal/leaderboard"
	appErr "codearena/pkg/errors"
	"codearena/pkg/utils/response"
)

// GraderController handles submission and leaderboard endpoints.
type GraderController struct {
	grader     *service.GraderService
	aggregator *leaderboard.Aggregator
}

// NewGraderController creates the controller.
func NewGraderController(grader *service.GraderService, aggregator *leaderboard.Aggregator) *GraderController {
	return &GraderController{grader: grader, aggregator: aggregator}
}

// RegisterRoutes mounts all endpoints on the given router group.
func (ctl *GraderController) RegisterRoutes(api *gin.RouterGroup) {
	api.POST("/submissions", ctl.Submit)
	api.GET("/submissions/:id", ctl.GetSubmission)
	api.GET("/users/:id/submissions", ctl.ListUserSubmissions)
	api.GET("/events/:id/leaderboard", ctl.GetLeaderboard)
	api.GET("/languages", ctl.ListLanguages)
}

// Submit accepts a submission and returns it in the pending state.
func (ctl *GraderController) Submit(c *gin.Context) {
	var req service.SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErr.BadRequest("invalid request body: "+err.Error()))
		return
	}

	sub, err := ctl.grader.Submit(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, sub)
}

// GetSubmission returns a submission by ID, terminal or pending.
func (ctl *GraderController) GetSubmission(c *gin.Context) {
	sub, err := ctl.grader.GetResult(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, sub)
}

// ListUserSubmissions returns a user's submissions, optionally filtered
// by the question_id query parameter.
func (ctl *GraderController) ListUserSubmissions(c *gin.Context) {
	subs, err := ctl.grader.ListUserSubmissions(c.Request.Context(), c.Param("id"), c.Query("question_id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	if subs == nil {
		subs = []*model.Submission{}
	}
	response.Success(c, subs)
}

// GetLeaderboard returns the event's current standings.
func (ctl *GraderController) GetLeaderboard(c *gin.Context) {
	entries, err := ctl.aggregator.Rank(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, entries)
}

// ListLanguages returns the supported language identifiers.
func (ctl *GraderController) ListLanguages(c *gin.Context) {
	response.Success(c, gin.H{"languages": ctl.grader.Languages()})
}
