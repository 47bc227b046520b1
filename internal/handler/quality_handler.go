package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/damoang/angple-qualitygate/internal/common"
	"github.com/damoang/angple-qualitygate/internal/domain"
	"github.com/damoang/angple-qualitygate/internal/middleware"
	"github.com/damoang/angple-qualitygate/internal/service"
)

var brandKitValidator = validator.New()

// QualityHandler handles quality gate, review queue and audit requests
type QualityHandler struct {
	gate      *service.QualityGateService
	approvals *service.ApprovalService
	audit     *service.AuditService
	scheduler *service.SchedulerGate
	brandKits *service.BrandKitService
	now       func() time.Time
}

// NewQualityHandler creates a new QualityHandler
func NewQualityHandler(
	gate *service.QualityGateService,
	approvals *service.ApprovalService,
	audit *service.AuditService,
	scheduler *service.SchedulerGate,
	brandKits *service.BrandKitService,
) *QualityHandler {
	return &QualityHandler{
		gate:      gate,
		approvals: approvals,
		audit:     audit,
		scheduler: scheduler,
		brandKits: brandKits,
		now:       time.Now,
	}
}

// ListPendingReview godoc
// @Summary      리뷰 대기 목록
// @Description  Pending review entries of the caller's tenant, oldest first
// @Tags         quality
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  domain.PendingReviewResponse
// @Failure      401  {object}  common.ErrorBody
// @Router       /quality/pending-review [get]
func (h *QualityHandler) ListPendingReview(c *gin.Context) {
	entries, err := h.approvals.ListPending(c.Request.Context(), middleware.GetTenantID(c))
	if err != nil {
		common.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, domain.PendingReviewResponse{Posts: entries})
}

// GetReport godoc
// @Summary      품질 리포트 조회
// @Description  Latest evaluation of a post with its review entry
// @Tags         quality
// @Produce      json
// @Security     BearerAuth
// @Param        postId  path  string  true  "Post ID"
// @Success      200  {object}  domain.ReportResponse
// @Failure      404  {object}  common.ErrorBody
// @Router       /quality/{postId}/report [get]
func (h *QualityHandler) GetReport(c *gin.Context) {
	report, err := h.gate.Report(c.Request.Context(), middleware.GetTenantID(c), c.Param("postId"))
	if err != nil {
		common.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, domain.ReportResponse{Report: *report})
}

// Evaluate godoc
// @Summary      품질 재평가
// @Description  Re-runs every analyzer and replaces the post's approval status
// @Tags         quality
// @Produce      json
// @Security     BearerAuth
// @Param        postId  path  string  true  "Post ID"
// @Success      200  {object}  domain.ReportResponse
// @Failure      404  {object}  common.ErrorBody
// @Failure      500  {object}  common.ErrorBody
// @Router       /quality/{postId}/evaluate [post]
func (h *QualityHandler) Evaluate(c *gin.Context) {
	tenantID := middleware.GetTenantID(c)
	postID := c.Param("postId")

	if _, err := h.gate.Reevaluate(c.Request.Context(), tenantID, postID); err != nil {
		common.HandleError(c, err)
		return
	}
	report, err := h.gate.Report(c.Request.Context(), tenantID, postID)
	if err != nil {
		common.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, domain.ReportResponse{Report: *report})
}

// Approve godoc
// @Summary      리뷰 승인
// @Tags         quality
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        postId  path  string                 true   "Post ID"
// @Param        body    body  domain.ApproveRequest  false  "Reviewer notes"
// @Success      200  {object}  common.SuccessBody
// @Failure      404  {object}  common.ErrorBody
// @Failure      409  {object}  common.ErrorBody
// @Router       /quality/{postId}/approve [post]
func (h *QualityHandler) Approve(c *gin.Context) {
	var req domain.ApproveRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			common.ErrorResponse(c, http.StatusBadRequest, "Invalid request body", err)
			return
		}
	}

	err := h.approvals.Approve(c.Request.Context(), middleware.GetTenantID(c), c.Param("postId"), middleware.GetUserID(c), req.Notes)
	if err != nil {
		common.HandleError(c, err)
		return
	}
	common.Success(c)
}

// Reject godoc
// @Summary      리뷰 반려
// @Tags         quality
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        postId  path  string                true  "Post ID"
// @Param        body    body  domain.RejectRequest  true  "Rejection reason"
// @Success      200  {object}  common.SuccessBody
// @Failure      400  {object}  common.ErrorBody
// @Failure      404  {object}  common.ErrorBody
// @Failure      409  {object}  common.ErrorBody
// @Router       /quality/{postId}/reject [post]
func (h *QualityHandler) Reject(c *gin.Context) {
	var req domain.RejectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := req.Validate(); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, err.Error(), nil)
		return
	}

	err := h.approvals.Reject(c.Request.Context(), middleware.GetTenantID(c), c.Param("postId"), middleware.GetUserID(c), req.Reason, req.Notes)
	if err != nil {
		common.HandleError(c, err)
		return
	}
	common.Success(c)
}

// GetAudit godoc
// @Summary      감사 로그 조회
// @Description  Audit events of a post in sequence order
// @Tags         quality
// @Produce      json
// @Security     BearerAuth
// @Param        postId  path  string  true  "Post ID"
// @Success      200  {object}  domain.AuditResponse
// @Failure      404  {object}  common.ErrorBody
// @Router       /quality/{postId}/audit [get]
func (h *QualityHandler) GetAudit(c *gin.Context) {
	evts, err := h.audit.QueryByPost(c.Request.Context(), middleware.GetTenantID(c), c.Param("postId"))
	if err != nil {
		common.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, domain.AuditResponse{Events: evts})
}

// CanPublish godoc
// @Summary      발행 가능 여부
// @Description  Scheduler gate answer; "at" defaults to now (RFC3339)
// @Tags         scheduler
// @Produce      json
// @Security     BearerAuth
// @Param        postId  path   string  true   "Post ID"
// @Param        at      query  string  false  "Evaluation instant (RFC3339)"
// @Success      200  {object}  domain.GateAnswer
// @Failure      400  {object}  common.ErrorBody
// @Failure      404  {object}  common.ErrorBody
// @Router       /quality/{postId}/can-publish [get]
func (h *QualityHandler) CanPublish(c *gin.Context) {
	at, ok := h.instant(c)
	if !ok {
		return
	}
	answer, err := h.scheduler.CanPublish(c.Request.Context(), middleware.GetTenantID(c), c.Param("postId"), at)
	if err != nil {
		common.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, answer)
}

// MarkPublished godoc
// @Summary      발행 완료 기록
// @Tags         scheduler
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        postId  path  string                        true  "Post ID"
// @Param        body    body  domain.PublishOutcomeRequest  true  "Publisher outcome"
// @Success      200  {object}  common.SuccessBody
// @Failure      409  {object}  common.ErrorBody
// @Router       /quality/{postId}/published [post]
func (h *QualityHandler) MarkPublished(c *gin.Context) {
	var req domain.PublishOutcomeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	err := h.scheduler.MarkPublished(c.Request.Context(), middleware.GetTenantID(c), c.Param("postId"), middleware.GetUserID(c), req.ExternalID, h.now())
	if err != nil {
		common.HandleError(c, err)
		return
	}
	common.Success(c)
}

// MarkPublishFailed godoc
// @Summary      발행 실패 기록
// @Tags         scheduler
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        postId  path  string                        true  "Post ID"
// @Param        body    body  domain.PublishOutcomeRequest  true  "Publisher outcome"
// @Success      200  {object}  common.SuccessBody
// @Failure      404  {object}  common.ErrorBody
// @Router       /quality/{postId}/publish-failed [post]
func (h *QualityHandler) MarkPublishFailed(c *gin.Context) {
	var req domain.PublishOutcomeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	err := h.scheduler.MarkPublishFailed(c.Request.Context(), middleware.GetTenantID(c), c.Param("postId"), middleware.GetUserID(c), req.Error)
	if err != nil {
		common.HandleError(c, err)
		return
	}
	common.Success(c)
}

// GetBrandKit godoc
// @Summary      브랜드 키트 조회
// @Tags         quality
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  domain.BrandKit
// @Router       /quality/brand-kit [get]
func (h *QualityHandler) GetBrandKit(c *gin.Context) {
	kit, err := h.brandKits.Get(c.Request.Context(), middleware.GetTenantID(c))
	if err != nil {
		common.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, kit)
}

// PutBrandKit godoc
// @Summary      브랜드 키트 저장
// @Tags         quality
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body  domain.BrandKitRequest  true  "Brand kit"
// @Success      200  {object}  domain.BrandKit
// @Failure      400  {object}  common.ErrorBody
// @Router       /quality/brand-kit [put]
func (h *QualityHandler) PutBrandKit(c *gin.Context) {
	var req domain.BrandKitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := brandKitValidator.Struct(&req); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "Validation failed", err)
		return
	}

	kit, err := h.brandKits.Put(c.Request.Context(), middleware.GetTenantID(c), &req)
	if err != nil {
		common.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, kit)
}

func (h *QualityHandler) instant(c *gin.Context) (time.Time, bool) {
	raw := c.Query("at")
	if raw == "" {
		return h.now(), true
	}
	at, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "at must be RFC3339", err)
		return time.Time{}, false
	}
	return at, true
}
