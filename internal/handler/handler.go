package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"Lee_Meet/internal/middleware"
	"Lee_Meet/internal/model"
	"Lee_Meet/internal/pkg"
	"Lee_Meet/internal/service"

	"github.com/gin-gonic/gin"
)

func viewerFrom(c *gin.Context) service.Viewer {
	uidAny, _ := c.Get(middleware.ContextUserIDKey)
	roleAny, _ := c.Get(middleware.ContextRoleKey)
	uid, _ := uidAny.(uint64)
	role, _ := roleAny.(int)
	return service.Viewer{UID: uid, Role: role}
}

// 错误种类 → HTTP 状态码
var kindStatus = map[pkg.Kind]int{
	pkg.KindNotFound:            http.StatusNotFound,
	pkg.KindUnauthorized:        http.StatusForbidden,
	pkg.KindInvalidTransition:   http.StatusConflict,
	pkg.KindInvalidVisibility:   http.StatusBadRequest,
	pkg.KindRoomNotStarted:      http.StatusConflict,
	pkg.KindRoomClosed:          http.StatusGone,
	pkg.KindRoomFull:            http.StatusConflict,
	pkg.KindNotCommunityMember:  http.StatusForbidden,
	pkg.KindInvalidInviteToken:  http.StatusForbidden,
	pkg.KindInvalidPassword:     http.StatusForbidden,
	pkg.KindAlreadyResolved:     http.StatusConflict,
	pkg.KindRequestExpired:      http.StatusGone,
	pkg.KindProviderUnavailable: http.StatusServiceUnavailable,
	pkg.KindCredentialRequired:  http.StatusUnauthorized,
	pkg.KindInvalidParams:       http.StatusBadRequest,
}

// respondErr 稳定的 error 种类给客户端判断，msg 给人看
func respondErr(c *gin.Context, err error) {
	var ae *pkg.AppError
	if errors.As(err, &ae) {
		status, ok := kindStatus[ae.Kind]
		if !ok {
			status = http.StatusBadRequest
		}
		body := gin.H{"error": string(ae.Kind), "msg": ae.Msg}
		if len(ae.Missing) > 0 {
			body["missing"] = ae.Missing
		}
		c.JSON(status, body)
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"msg": err.Error()})
}

func roomJSON(room *model.Room) gin.H {
	var scheduledAt *int64
	if room.ScheduledAt != nil {
		ts := room.ScheduledAt.Unix()
		scheduledAt = &ts
	}
	return gin.H{
		"id":               room.ID,
		"meet_id":          room.MeetID,
		"meet_name":        room.MeetName,
		"visibility":       room.Visibility,
		"community_id":     room.CommunityID,
		"state":            room.State,
		"creator_uid":      room.CreatorUID,
		"max_participants": room.MaxParticipants,
		"scheduled_at":     scheduledAt,
		"has_password":     room.HasPassword(),
		"allow_mic":        room.AllowMic,
		"allow_video":      room.AllowVideo,
		"allow_screen":     room.AllowScreen,
		"created_at":       room.CreatedAt.Unix(),
	}
}

func pageParams(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.Query("page"))
	size, _ := strconv.Atoi(c.Query("size"))
	return page, size
}

func requestJSON(req *model.RoomRequest, now time.Time) gin.H {
	return gin.H{
		"id":              req.ID,
		"meet_name":       req.MeetName,
		"visibility":      req.Visibility,
		"community_id":    req.CommunityID,
		"requester_uid":   req.RequesterUID,
		"status":          req.EffectiveStatus(now),
		"expires_at":      req.ExpiresAt.Unix(),
		"resolution_note": req.ResolutionNote,
	}
}
