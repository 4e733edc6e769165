package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"Lee_Meet/internal/model"
	"Lee_Meet/internal/service"

	"github.com/gin-gonic/gin"
)

type RoomHandler struct {
	svc     *service.RoomService
	joinSvc *service.JoinService
}

func NewRoomHandler(svc *service.RoomService, joinSvc *service.JoinService) *RoomHandler {
	return &RoomHandler{svc: svc, joinSvc: joinSvc}
}

type RoomCreateReq struct {
	MeetName        string  `json:"meet_name"`
	Visibility      string  `json:"visibility"`
	CommunityID     *uint64 `json:"community_id"`
	MaxParticipants int     `json:"max_participants"`
	ScheduledAt     *int64  `json:"scheduled_at"` // unix 秒
	Password        string  `json:"password"`
	AllowMic        *bool   `json:"allow_mic"`
	AllowVideo      *bool   `json:"allow_video"`
	AllowScreen     *bool   `json:"allow_screen"`
}

func boolOr(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}

func (h *RoomHandler) Create(c *gin.Context) {
	var req RoomCreateReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": "invalid params"})
		return
	}

	params := service.CreateRoomParams{
		MeetName:        req.MeetName,
		Visibility:      model.RoomVisibility(req.Visibility),
		CommunityID:     req.CommunityID,
		MaxParticipants: req.MaxParticipants,
		Password:        req.Password,
		AllowMic:        boolOr(req.AllowMic, true),
		AllowVideo:      boolOr(req.AllowVideo, true),
		AllowScreen:     boolOr(req.AllowScreen, true),
	}
	if req.ScheduledAt != nil {
		t := time.Unix(*req.ScheduledAt, 0)
		params.ScheduledAt = &t
	}

	room, invite, err := h.svc.Create(c.Request.Context(), viewerFrom(c), params)
	if err != nil {
		respondErr(c, err)
		return
	}

	body := gin.H{"room": roomJSON(room)}
	if invite != nil {
		body["invite_token"] = invite.Token
	}
	c.JSON(http.StatusOK, body)
}

func (h *RoomHandler) List(c *gin.Context) {
	var communityID *uint64
	if s := c.Query("community_id"); s != "" {
		id, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"msg": "invalid community_id"})
			return
		}
		communityID = &id
	}

	var states []model.RoomState
	if s := c.Query("state"); s != "" {
		for _, part := range strings.Split(s, ",") {
			states = append(states, model.RoomState(part))
		}
	}

	page, size := pageParams(c)
	list, err := h.svc.List(c.Request.Context(), viewerFrom(c), communityID, states,
		c.Query("mine") == "1", page, size)
	if err != nil {
		respondErr(c, err)
		return
	}

	rooms := make([]gin.H, 0, len(list))
	for i := range list {
		rooms = append(rooms, roomJSON(&list[i]))
	}
	c.JSON(http.StatusOK, gin.H{"list": rooms})
}

func (h *RoomHandler) Start(c *gin.Context) {
	room, err := h.svc.Start(c.Request.Context(), viewerFrom(c), c.Param("id"))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"room": roomJSON(room)})
}

func (h *RoomHandler) End(c *gin.Context) {
	room, err := h.svc.End(c.Request.Context(), viewerFrom(c), c.Param("id"))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"room": roomJSON(room)})
}

func (h *RoomHandler) Cancel(c *gin.Context) {
	room, err := h.svc.Cancel(c.Request.Context(), viewerFrom(c), c.Param("id"))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"room": roomJSON(room)})
}

type RoomJoinReq struct {
	InviteToken string `json:"invite_token"`
	Password    string `json:"password"`
}

func (h *RoomHandler) Join(c *gin.Context) {
	var req RoomJoinReq
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"msg": "invalid params"})
			return
		}
	}

	res, err := h.joinSvc.Join(c.Request.Context(), viewerFrom(c), c.Param("id"), req.InviteToken, req.Password)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"join_url": res.JoinURL, "room": roomJSON(res.Room)})
}

func (h *RoomHandler) Leave(c *gin.Context) {
	if err := h.joinSvc.Leave(c.Request.Context(), viewerFrom(c), c.Param("id")); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"msg": "ok"})
}

func (h *RoomHandler) RotateInvite(c *gin.Context) {
	link, err := h.svc.RotateInvite(c.Request.Context(), viewerFrom(c), c.Param("id"))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"invite_link": link})
}
