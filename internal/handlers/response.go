package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/venuebooking/booking-backend/internal/middleware"
	"github.com/venuebooking/booking-backend/internal/services"
	"github.com/venuebooking/booking-backend/internal/utils"
)

// Response is the envelope every endpoint answers with
type Response struct {
	Status  bool        `json:"status"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func respondSuccess(c *gin.Context, code int, message string, data interface{}) {
	c.JSON(code, Response{Status: true, Message: message, Data: data})
}

func respondFailure(c *gin.Context, code int, message string) {
	c.JSON(code, Response{Status: false, Message: message})
}

// statusFor maps a service error kind to its HTTP status. Conflicts are
// reported as 400 like other client mistakes.
func statusFor(kind services.ErrorKind) int {
	switch kind {
	case services.KindValidation, services.KindConflict:
		return http.StatusBadRequest
	case services.KindUnauthenticated:
		return http.StatusUnauthorized
	case services.KindForbidden:
		return http.StatusForbidden
	case services.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// respondError converts err into the envelope. Internal details are logged, never returned.
func respondError(c *gin.Context, logger *logrus.Logger, err error) {
	kind := services.KindOf(err)
	code := statusFor(kind)

	message := "An unexpected error occurred"
	var svcErr *services.ServiceError
	if kind != services.KindInternal && errors.As(err, &svcErr) {
		message = svcErr.Message
	}

	entry := logger.WithError(err).WithFields(logrus.Fields{
		"path":   c.Request.URL.Path,
		"method": c.Request.Method,
		"kind":   kind.String(),
	})
	if code >= http.StatusInternalServerError {
		entry.Error("Request failed")
	} else {
		entry.Debug("Request rejected")
	}

	_ = c.Error(err)
	respondFailure(c, code, message)
}

// actorFrom builds the service actor from the authenticated user context
func actorFrom(c *gin.Context) services.Actor {
	userCtx := middleware.MustGetUserContext(c)
	roles := make([]string, 0, len(userCtx.Roles))
	for _, r := range userCtx.Roles {
		roles = append(roles, strings.ToUpper(r))
	}
	return services.Actor{UserID: userCtx.UserID, Roles: roles}
}

// requestContext carries the request deadline and client metadata into services
func requestContext(c *gin.Context) context.Context {
	userAgent := utils.GetUserAgent(c)
	return services.WithRequestMeta(c.Request.Context(), services.RequestMeta{
		IPAddress:  utils.GetRealIP(c),
		UserAgent:  userAgent,
		DeviceInfo: utils.ParseUserAgent(userAgent).Summary(),
	})
}

// uuidParam parses a path parameter, answering 400 when it is malformed
func uuidParam(c *gin.Context, name, label string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		respondFailure(c, http.StatusBadRequest, "Invalid "+label+" ID")
		return uuid.Nil, false
	}
	return id, true
}
