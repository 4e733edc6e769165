package handler

import (
	"net/http"

	"Lee_Meet/internal/service"

	"github.com/gin-gonic/gin"
)

// BootstrapHandler 客户端首屏：逐上下文的直建权、社区清单、待审数
type BootstrapHandler struct {
	communitySvc *service.CommunityService
	requestSvc   *service.RequestService
}

func NewBootstrapHandler(communitySvc *service.CommunityService, requestSvc *service.RequestService) *BootstrapHandler {
	return &BootstrapHandler{communitySvc: communitySvc, requestSvc: requestSvc}
}

func (h *BootstrapHandler) Bootstrap(c *gin.Context) {
	v := viewerFrom(c)
	ctx := c.Request.Context()

	memberships, err := h.communitySvc.MembershipsOf(ctx, v)
	if err != nil {
		respondErr(c, err)
		return
	}

	pending, err := h.requestSvc.CountPending(ctx, v)
	if err != nil {
		respondErr(c, err)
		return
	}

	moderatesAny := false
	for _, m := range memberships {
		if m.CanCreateDirectly {
			moderatesAny = true
			break
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"viewer": gin.H{
			"uid":  v.UID,
			"role": v.Role,
		},
		"can_create_public":  v.PlatformAdmin(),
		"can_create_private": v.PlatformAdmin() || moderatesAny,
		"communities":        memberships,
		"pending_review":     pending,
	})
}
