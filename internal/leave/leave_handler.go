package leave

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"leave-portal/internal/middleware"
	"leave-portal/internal/shared/apperror"
	"leave-portal/internal/shared/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const HeaderCache = "X-Cache"

type Handler struct {
	service Service
	logger  *zap.Logger
}

func NewHandler(service Service, logger ...*zap.Logger) *Handler {
	l := zap.L().Named("leave.handler")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("leave.handler")
	}
	return &Handler{service: service, logger: l}
}

func (h *Handler) writeServiceError(c *gin.Context, err error) {
	httpErr := apperror.ToHTTP(err)
	h.logger.Warn("leave request failed",
		zap.String("method", c.Request.Method),
		zap.String("path", c.FullPath()),
		zap.Int("status", httpErr.Status),
		zap.String("code", httpErr.Code),
		zap.String("message", httpErr.Message),
	)
	response.Error(c, httpErr.Status, httpErr.Code, httpErr.Message, httpErr.Details)
}

// isForced reports whether the caller asked to skip the cache.
func isForced(c *gin.Context) bool {
	v := strings.ToLower(strings.TrimSpace(c.Query("force")))
	return v == "1" || v == "true"
}

func (h *Handler) Create(c *gin.Context) {
	actor, ok := middleware.PrincipalFromContext(c)
	if !ok {
		h.writeServiceError(c, apperror.ErrUnauthorized)
		return
	}
	h.logger.Debug("http create leave", zap.String("actor_id", actor.ID))

	var req CreateLeaveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("http create leave validation failed", zap.Error(err))
		h.writeServiceError(c, apperror.MapValidationError(err))
		return
	}

	resp, err := h.service.Create(c.Request.Context(), actor, req)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, resp, nil)
}

func (h *Handler) GetAll(c *gin.Context) {
	actor, ok := middleware.PrincipalFromContext(c)
	if !ok {
		h.writeServiceError(c, apperror.ErrUnauthorized)
		return
	}

	force := isForced(c)
	if force {
		c.Header(HeaderCache, "bypass")
	}

	resp, err := h.service.List(c.Request.Context(), actor, c.Query("user_id"), force)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	items, meta := response.Paginate(c, resp)
	response.Success(c, http.StatusOK, items, &meta)
}

func (h *Handler) Approve(c *gin.Context) {
	actor, ok := middleware.PrincipalFromContext(c)
	if !ok {
		h.writeServiceError(c, apperror.ErrUnauthorized)
		return
	}

	req, err := bindDecision(c)
	if err != nil {
		h.writeServiceError(c, apperror.MapValidationError(err))
		return
	}

	resp, err := h.service.Approve(c.Request.Context(), actor, c.Param("id"), req.Reason)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	response.Success(c, http.StatusOK, resp, nil)
}

// Reject answers 409 for a leave that is already approved, since its days
// were deducted from the owner's balance. Rejecting a rejected leave again
// only updates the remark.
func (h *Handler) Reject(c *gin.Context) {
	actor, ok := middleware.PrincipalFromContext(c)
	if !ok {
		h.writeServiceError(c, apperror.ErrUnauthorized)
		return
	}

	req, err := bindDecision(c)
	if err != nil {
		h.writeServiceError(c, apperror.MapValidationError(err))
		return
	}

	resp, err := h.service.Reject(c.Request.Context(), actor, c.Param("id"), req.Reason)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	response.Success(c, http.StatusOK, resp, nil)
}

func (h *Handler) GetBalance(c *gin.Context) {
	actor, ok := middleware.PrincipalFromContext(c)
	if !ok {
		h.writeServiceError(c, apperror.ErrUnauthorized)
		return
	}

	force := isForced(c)
	if force {
		c.Header(HeaderCache, "bypass")
	}

	resp, err := h.service.GetBalance(c.Request.Context(), actor, c.Param("userId"), force)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	response.Success(c, http.StatusOK, resp, nil)
}

// bindDecision reads the optional reason body. Chunked requests report
// ContentLength -1, so presence is judged by the body itself.
func bindDecision(c *gin.Context) (DecisionRequest, error) {
	var req DecisionRequest
	if c.Request.Body == nil || c.Request.Body == http.NoBody {
		return req, nil
	}
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		return req, err
	}
	return req, nil
}
