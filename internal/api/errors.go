package api

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/lalith-99/medroster/internal/apperr"
	"go.uber.org/zap"
)

// errorResponse is the body of every non-2xx reply.
//
// Field and Expected are only set for validation failures, so a client
// can point at the offending input without parsing the message.
type errorResponse struct {
	Error    string `json:"error"`
	Field    string `json:"field,omitempty"`
	Expected string `json:"expected,omitempty"`
}

// writeError maps err onto its HTTP status and aborts the request.
// Internal errors are logged with their cause and answered with a generic
// message; nothing about the cause reaches the client.
func writeError(c *gin.Context, logger *zap.Logger, err error) {
	var ae *apperr.Error
	if !errors.As(err, &ae) {
		ae = apperr.Internal(err)
	}
	_ = c.Error(err)

	status := apperr.HTTPStatus(ae)
	if ae.Kind == apperr.KindInternal {
		logger.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		c.AbortWithStatusJSON(status, errorResponse{Error: "internal error"})
		return
	}
	c.AbortWithStatusJSON(status, errorResponse{Error: ae.Message, Field: ae.Field, Expected: ae.Expected})
}

var registerTagNames sync.Once

// useJSONFieldNames makes validator report the json tag ("timeSlot")
// instead of the Go field name ("TimeSlot").
func useJSONFieldNames() {
	registerTagNames.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
}

// bindError turns a ShouldBindJSON / ShouldBindQuery failure into a
// validation error naming the first bad field.
func bindError(err error) *apperr.Error {
	var ve validator.ValidationErrors
	if errors.As(err, &ve) && len(ve) > 0 {
		fe := ve[0]
		msg, expected := describe(fe)
		return apperr.ValidationExpected(fe.Field(), msg, expected)
	}
	return apperr.Validation("body", "malformed request body")
}

func describe(fe validator.FieldError) (msg, expected string) {
	switch fe.Tag() {
	case "required":
		return "is required", ""
	case "uuid":
		return "is not a valid id", "UUID"
	case "oneof":
		return "is not supported", "one of: " + strings.Join(strings.Fields(fe.Param()), ", ")
	case "min":
		return "is too short", "at least " + fe.Param()
	case "max":
		return "is too long", "at most " + fe.Param()
	case "dive":
		return "contains an invalid value", ""
	}
	return "is invalid", ""
}

// pathID parses a uuid path parameter.
func pathID(c *gin.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, apperr.ValidationExpected(name, "is not a valid id", "UUID")
	}
	return id, nil
}

// queryID parses an optional uuid query parameter; empty is uuid.Nil.
func queryID(c *gin.Context, name string) (uuid.UUID, error) {
	raw := c.Query(name)
	if raw == "" {
		return uuid.Nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, apperr.ValidationExpected(name, "is not a valid id", "UUID")
	}
	return id, nil
}

// mustUUID is for strings already checked by the "uuid" binding tag.
func mustUUID(s string) uuid.UUID {
	id, _ := uuid.Parse(s)
	return id
}
