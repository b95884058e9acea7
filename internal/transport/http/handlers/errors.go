package handlers

import (
	"errors"
	"menu-service/internal/service"
	"menu-service/internal/transport/http/dto"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// statusFor maps every service.Kind to an HTTP status.
func statusFor(k service.Kind) int {
	switch k {
	case service.KindValidation, service.KindInvalidStatus, service.KindEmptyCart, service.KindCouponInactive:
		return http.StatusBadRequest
	case service.KindNotAuthenticated:
		return http.StatusUnauthorized
	case service.KindNotAuthorized:
		return http.StatusForbidden
	case service.KindNotFound:
		return http.StatusNotFound
	case service.KindInvalidTransition, service.KindStatusMismatch, service.KindConflict:
		return http.StatusConflict
	case service.KindTimeout:
		return http.StatusGatewayTimeout
	case service.KindStore, service.KindUnknown:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c *gin.Context, log *zap.Logger, op string, err error) {
	kind := service.KindOf(err)
	code := statusFor(kind)

	body := dto.NewError(kind.String(), err.Error())
	var ve *service.ValidationError
	if errors.As(err, &ve) {
		body = dto.NewValidationError("validation failed", fieldErrors(ve))
	}
	switch {
	case kind == service.KindUnknown:
		log.Error(op+" failed", zap.Error(err))
		body = dto.NewInternalError("")
	case code >= http.StatusInternalServerError:
		log.Error(op+" failed", zap.String("kind", kind.String()), zap.Error(err))
	default:
		log.Warn(op+" rejected", zap.String("kind", kind.String()), zap.Error(err))
	}
	c.JSON(code, body)
}

func fieldErrors(ve *service.ValidationError) []dto.FieldError {
	out := make([]dto.FieldError, 0, len(ve.Fields))
	for _, f := range ve.Fields {
		out = append(out, dto.FieldError{Field: f.Field, Message: f.Message})
	}
	return out
}

// writeBindError turns gin binding failures into a validation envelope.
func writeBindError(c *gin.Context, log *zap.Logger, err error) {
	log.Warn("invalid request", zap.String("path", c.FullPath()), zap.Error(err))
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		c.JSON(http.StatusBadRequest, dto.NewValidationError("invalid request body", nil))
		return
	}
	fields := make([]dto.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, dto.FieldError{
			Field:   jsonPath(fe.Namespace()),
			Message: validationMessage(fe),
			Tag:     fe.Tag(),
		})
	}
	c.JSON(http.StatusBadRequest, dto.NewValidationError("validation failed", fields))
}

// jsonPath turns "CreateOrderRequest.Items[0].ProductID" into "items[0].product_id".
func jsonPath(ns string) string {
	parts := strings.Split(ns, ".")
	if len(parts) > 1 {
		parts = parts[1:]
	}
	for i, p := range parts {
		parts[i] = snake(p)
	}
	return strings.Join(parts, ".")
}

func snake(s string) string {
	var b strings.Builder
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 && s[i-1] != '[' && !(s[i-1] >= 'A' && s[i-1] <= 'Z') {
				b.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "uuid":
		return "must be a uuid"
	case "oneof":
		return "must be one of: " + fe.Param()
	case "min", "gt":
		return "is too small"
	case "max":
		return "is too large"
	default:
		return "is invalid"
	}
}
