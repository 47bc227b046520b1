package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/damoang/angple-qualitygate/internal/common"
	"github.com/damoang/angple-qualitygate/internal/domain"
	"github.com/damoang/angple-qualitygate/internal/middleware"
	"github.com/damoang/angple-qualitygate/internal/service"
)

// ScheduleHandler handles scheduled post requests
type ScheduleHandler struct {
	service *service.ScheduleService
}

// NewScheduleHandler creates a new ScheduleHandler
func NewScheduleHandler(service *service.ScheduleService) *ScheduleHandler {
	return &ScheduleHandler{service: service}
}

// CreateSchedule godoc
// @Summary      예약 게시물 생성
// @Description  Stores the post and runs the quality gate before answering
// @Tags         schedule
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body  domain.CreateScheduleRequest  true  "Scheduled post"
// @Success      201  {object}  domain.PostResponse
// @Failure      400  {object}  common.ErrorBody
// @Failure      500  {object}  common.ErrorBody
// @Router       /schedule [post]
func (h *ScheduleHandler) CreateSchedule(c *gin.Context) {
	var req domain.CreateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	post, err := h.service.Create(c.Request.Context(), middleware.GetTenantID(c), middleware.GetUserID(c), &req)
	if err != nil {
		common.HandleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, domain.PostResponse{Post: *post})
}

// GetSchedule godoc
// @Summary      예약 게시물 조회
// @Tags         schedule
// @Produce      json
// @Security     BearerAuth
// @Param        postId  path  string  true  "Post ID"
// @Success      200  {object}  domain.PostResponse
// @Failure      404  {object}  common.ErrorBody
// @Router       /schedule/{postId} [get]
func (h *ScheduleHandler) GetSchedule(c *gin.Context) {
	post, err := h.service.Get(c.Request.Context(), middleware.GetTenantID(c), c.Param("postId"))
	if err != nil {
		common.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, domain.PostResponse{Post: *post})
}

// DeleteSchedule godoc
// @Summary      예약 게시물 삭제
// @Tags         schedule
// @Produce      json
// @Security     BearerAuth
// @Param        postId  path  string  true  "Post ID"
// @Success      200  {object}  common.SuccessBody
// @Failure      404  {object}  common.ErrorBody
// @Router       /schedule/{postId} [delete]
func (h *ScheduleHandler) DeleteSchedule(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), middleware.GetTenantID(c), c.Param("postId")); err != nil {
		common.HandleError(c, err)
		return
	}
	common.Success(c)
}
