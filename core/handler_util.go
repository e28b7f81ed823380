package core

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
)

// fail records err for ErrorTranslation and stops the handler chain.
func fail(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

// bindFailure renders request binding problems as 422 with the offending
// fields listed under details.validation_errors.
func bindFailure(err error) *HTTPError {
	var issues any = err.Error()
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		list := make([]gin.H, 0, len(verrs))
		for _, fe := range verrs {
			list = append(list, gin.H{"field": fe.Field(), "rule": fe.Tag(), "param": fe.Param()})
		}
		issues = list
	}
	code := CodeValidation
	return NewHTTPError(http.StatusUnprocessableEntity, ErrorBody{
		Message:   "Error de validación en los datos proporcionados",
		ErrorCode: &code,
		Details:   map[string]any{"validation_errors": issues},
	})
}

func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		fail(c, bindFailure(err))
		return false
	}
	return true
}

// queryWindow reads skip and limit, defaulting to 0 and 100.
func queryWindow(c *gin.Context) (int, int, bool) {
	skip, err := strconv.Atoi(c.DefaultQuery("skip", "0"))
	if err != nil {
		fail(c, bindFailure(errors.New("skip debe ser un entero")))
		return 0, 0, false
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "100"))
	if err != nil {
		fail(c, bindFailure(errors.New("limit debe ser un entero")))
		return 0, 0, false
	}
	return skip, limit, true
}

func principalFrom(c *gin.Context) (Principal, bool) {
	v, ok := c.Get(ctxPrincipal)
	if !ok {
		return Principal{}, false
	}
	p, ok := v.(Principal)
	return p, ok
}

// mustPrincipal is for handlers mounted behind RequireAuth.
func mustPrincipal(c *gin.Context) Principal {
	p, ok := principalFrom(c)
	if !ok {
		panic("principal missing from context")
	}
	return p
}

func requestLogger(c *gin.Context) *logrus.Entry {
	return logrus.WithFields(logrus.Fields{
		"request_id": c.GetString(ctxRequestID),
		"method":     c.Request.Method,
		"path":       c.Request.URL.Path,
		"client_ip":  c.ClientIP(),
	})
}
