package handler

import (
	"net/http"
	"time"

	"Lee_Meet/internal/model"
	"Lee_Meet/internal/service"

	"github.com/gin-gonic/gin"
)

type RequestHandler struct {
	svc *service.RequestService
}

func NewRequestHandler(svc *service.RequestService) *RequestHandler {
	return &RequestHandler{svc: svc}
}

type RequestSubmitReq struct {
	MeetName    string  `json:"meet_name"`
	Visibility  string  `json:"visibility"`
	CommunityID *uint64 `json:"community_id"`
}

func (h *RequestHandler) Submit(c *gin.Context) {
	var req RequestSubmitReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": "invalid params"})
		return
	}

	result, err := h.svc.Submit(c.Request.Context(), viewerFrom(c), req.MeetName,
		model.RoomVisibility(req.Visibility), req.CommunityID)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"request": requestJSON(result, time.Now())})
}

func (h *RequestHandler) ListPending(c *gin.Context) {
	list, err := h.svc.ListPending(c.Request.Context(), viewerFrom(c))
	if err != nil {
		respondErr(c, err)
		return
	}

	now := time.Now()
	requests := make([]gin.H, 0, len(list))
	for i := range list {
		requests = append(requests, requestJSON(&list[i], now))
	}
	c.JSON(http.StatusOK, gin.H{"list": requests})
}

type ResolveReq struct {
	Note string `json:"note"`
}

func (h *RequestHandler) Approve(c *gin.Context) {
	var req ResolveReq
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"msg": "invalid params"})
			return
		}
	}

	result, err := h.svc.Approve(c.Request.Context(), viewerFrom(c), c.Param("id"), req.Note)
	if err != nil {
		respondErr(c, err)
		return
	}

	body := gin.H{"room": roomJSON(result.Room)}
	if result.InviteLink != "" {
		body["invite_link"] = result.InviteLink
	}
	c.JSON(http.StatusOK, body)
}

func (h *RequestHandler) Reject(c *gin.Context) {
	var req ResolveReq
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"msg": "invalid params"})
			return
		}
	}

	result, err := h.svc.Reject(c.Request.Context(), viewerFrom(c), c.Param("id"), req.Note)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"request": requestJSON(result, time.Now())})
}
