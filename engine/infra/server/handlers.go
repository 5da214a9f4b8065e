package server

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tubechat/tubechat/engine/chat"
	"github.com/tubechat/tubechat/engine/core"
	"github.com/tubechat/tubechat/engine/transcript"
)

// VideoService is the application surface the HTTP API exposes.
type VideoService interface {
	Process(ctx context.Context, ref, userID string) core.Result[*transcript.Record]
	Get(ctx context.Context, videoID string) core.Result[*transcript.Record]
	FullTranscript(ctx context.Context, videoID string) core.Result[string]
	Ask(ctx context.Context, videoID string, history []chat.Turn, message string) core.Result[chat.Reply]
}

type processRequest struct {
	URL     string `json:"url"     binding:"required_without=VideoID"`
	VideoID string `json:"videoId" binding:"required_without=URL"`
	UserID  string `json:"userId"  binding:"omitempty,max=128"`
}

func (r processRequest) ref() string {
	if r.VideoID != "" {
		return r.VideoID
	}
	return r.URL
}

type chatRequest struct {
	Message string      `json:"message" binding:"required,max=4000"`
	History []chat.Turn `json:"history" binding:"omitempty,dive"`
}

type transcriptResponse struct {
	VideoID string `json:"videoId"`
	Text    string `json:"text"`
}

type handlers struct {
	videos VideoService
}

func (h *handlers) processVideo(c *gin.Context) {
	var req processRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	res := h.videos.Process(c.Request.Context(), req.ref(), req.UserID)
	if !res.IsOk() {
		RespondProblem(c, res.Error())
		return
	}
	c.JSON(http.StatusCreated, res.Value())
}

func (h *handlers) getVideo(c *gin.Context) {
	res := h.videos.Get(c.Request.Context(), c.Param("id"))
	if !res.IsOk() {
		RespondProblem(c, res.Error())
		return
	}
	c.JSON(http.StatusOK, res.Value())
}

func (h *handlers) getTranscript(c *gin.Context) {
	id := c.Param("id")
	res := h.videos.FullTranscript(c.Request.Context(), id)
	if !res.IsOk() {
		RespondProblem(c, res.Error())
		return
	}
	c.JSON(http.StatusOK, transcriptResponse{VideoID: id, Text: res.Value()})
}

func (h *handlers) chat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	res := h.videos.Ask(c.Request.Context(), c.Param("id"), req.History, req.Message)
	if !res.IsOk() {
		RespondProblem(c, res.Error())
		return
	}
	c.JSON(http.StatusOK, res.Value())
}
