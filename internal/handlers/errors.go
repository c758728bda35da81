// internal/handlers/errors.go
package handlers

import (
	"encoding/json"
	"errors"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"ermakplan-back/internal/apperr"
	"ermakplan-back/internal/logs"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var registerOnce sync.Once

// RegisterValidation makes validation errors report JSON field names.
func RegisterValidation() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name == "" {
				return f.Name
			}
			return name
		})
	})
}

// respondError writes err as {"message": ...}. Internal and dependency
// failures are logged with their cause and never shown to the client.
func respondError(c *gin.Context, err error) {
	appErr := apperr.From(err)

	if appErr.Kind == apperr.KindInternal || appErr.Kind == apperr.KindDependency {
		logs.Log.WithFields(logrus.Fields{
			"method":  c.Request.Method,
			"path":    c.FullPath(),
			"user_id": c.GetUint("userID"),
		}).WithError(appErr.Err).Error(appErr.Message)
	}

	body := gin.H{"message": appErr.Message}
	if len(appErr.Fields) > 0 {
		body["fields"] = appErr.Fields
	}
	c.AbortWithStatusJSON(appErr.Status(), body)
}

// dbError maps gorm errors onto the API taxonomy.
func dbError(err error, notFound string) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return apperr.NotFound(notFound)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return apperr.Conflict("Resource already exists")
	default:
		return apperr.Internal(err)
	}
}

// bindJSON decodes and validates the request body.
func bindJSON(c *gin.Context, obj interface{}) error {
	if err := c.ShouldBindBodyWith(obj, binding.JSON); err != nil {
		return bindError(err)
	}
	return nil
}

// bindPatch is bindJSON for partial updates. The returned set names the
// keys the client sent as an explicit null.
func bindPatch(c *gin.Context, obj interface{}) (map[string]bool, error) {
	if err := bindJSON(c, obj); err != nil {
		return nil, err
	}

	var raw map[string]json.RawMessage
	if err := c.ShouldBindBodyWith(&raw, binding.JSON); err != nil {
		return nil, apperr.Validation("Invalid request body", nil)
	}

	nulls := make(map[string]bool)
	for k, v := range raw {
		if string(v) == "null" {
			nulls[k] = true
		}
	}
	return nulls, nil
}

func bindError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperr.Validation("Invalid request body", nil)
	}

	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fieldPath(fe)] = describe(fe)
	}
	return apperr.Validation("Validation failed", fields)
}

// fieldPath drops the request struct name from the namespace.
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "oneof":
		return "must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "min", "gte":
		return "must be at least " + fe.Param()
	case "max", "lte":
		return "must be at most " + fe.Param()
	case "email":
		return "must be a valid email address"
	case "contains":
		return "must contain " + fe.Param()
	default:
		return "is invalid"
	}
}

// parseID reads a positive integer path parameter.
func parseID(c *gin.Context, param string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(param), 10, 64)
	if err != nil || id == 0 {
		return 0, apperr.Validation("Invalid id", map[string]string{param: "must be a positive integer"})
	}
	return uint(id), nil
}
