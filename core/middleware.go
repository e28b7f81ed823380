package core

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const (
	ctxRequestID = "request_id"
	ctxPrincipal = "principal"
)

const contentSecurityPolicy = "default-src 'self'; " +
	"script-src 'self' 'unsafe-inline' https://cdn.jsdelivr.net; " +
	"style-src 'self' 'unsafe-inline' https://cdn.jsdelivr.net; " +
	"img-src 'self' data: https:; " +
	"font-src 'self' https://cdn.jsdelivr.net; " +
	"connect-src 'self';"

// stampingWriter runs stamp on the response headers right before they are
// sent, so values computed at the end of the request still reach the client.
type stampingWriter struct {
	gin.ResponseWriter
	stamp   func(http.Header)
	stamped bool
}

func (w *stampingWriter) apply() {
	if w.stamped || w.Written() {
		return
	}
	w.stamped = true
	w.stamp(w.Header())
}

func (w *stampingWriter) WriteHeaderNow() {
	w.apply()
	w.ResponseWriter.WriteHeaderNow()
}

func (w *stampingWriter) Write(b []byte) (int, error) {
	w.apply()
	return w.ResponseWriter.Write(b)
}

func (w *stampingWriter) WriteString(s string) (int, error) {
	w.apply()
	return w.ResponseWriter.WriteString(s)
}

// RequestLogging is the outermost layer. It logs the start and end of every
// request and adds X-Request-ID and X-Process-Time to the response.
func RequestLogging() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		requestID := newRequestID()
		c.Set(ctxRequestID, requestID)

		entry := logrus.WithFields(logrus.Fields{
			"request_id": requestID,
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"client_ip":  c.ClientIP(),
		})
		entry.WithFields(logrus.Fields{
			"user_agent":   c.Request.UserAgent(),
			"query_params": c.Request.URL.RawQuery,
		}).Info("request started")

		c.Writer = &stampingWriter{
			ResponseWriter: c.Writer,
			stamp: func(h http.Header) {
				h.Set("X-Request-ID", requestID)
				h.Set("X-Process-Time", fmt.Sprintf("%.4f", time.Since(start).Seconds()))
			},
		}

		defer func() {
			if r := recover(); r != nil {
				entry.WithFields(logrus.Fields{
					"process_time": time.Since(start).Seconds(),
					"panic":        r,
				}).Error("request failed")
				panic(r)
			}
		}()

		c.Next()
		if !c.Writer.Written() {
			c.Writer.WriteHeaderNow()
		}

		entry.WithFields(logrus.Fields{
			"status_code":  c.Writer.Status(),
			"process_time": time.Since(start).Seconds(),
		}).Info("request completed")
	}
}

// ErrorTranslation renders the last error recorded on the context, and any
// panic, as the uniform error body.
func ErrorTranslation() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				requestLogger(c).WithFields(logrus.Fields{
					"panic": r,
					"stack": string(debug.Stack()),
				}).Error("unhandled panic")
				c.Abort()
				if !c.Writer.Written() {
					c.JSON(http.StatusInternalServerError, internalErrorBody())
				}
			}
		}()

		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		renderError(c, c.Errors.Last().Err)
	}
}

func renderError(c *gin.Context, err error) {
	entry := requestLogger(c)

	var appErr *AppError
	var httpErr *HTTPError
	switch {
	case errors.As(err, &appErr):
		entry = entry.WithFields(logrus.Fields{
			"error_code": appErr.Code,
			"details":    appErr.Details,
			"category":   appErr.Category.String(),
		})
		if appErr.Category == CategoryPersistence {
			entry.WithError(err).Error(appErr.Message)
		} else {
			entry.Warn(appErr.Message)
		}
		if appErr.Category == CategoryAuthentication {
			c.Header("WWW-Authenticate", "Bearer")
		}
		c.JSON(appErr.StatusCode(), appErr.Body())
	case errors.As(err, &httpErr):
		entry.WithField("status_code", httpErr.Status).Warn(httpErr.Error())
		c.JSON(httpErr.Status, httpErr.Body())
	default:
		entry.WithError(err).Error("unexpected error")
		c.JSON(http.StatusInternalServerError, internalErrorBody())
	}
}

// errorStatus predicts the status renderError will use for err.
func errorStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode()
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Status
	}
	return http.StatusInternalServerError
}

// SecurityHeaders stamps the hardening headers on every response. They are
// set before the handler runs so error and panic responses carry them too.
func SecurityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("X-XSS-Protection", "1; mode=block")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		h.Set("Content-Security-Policy", contentSecurityPolicy)
		c.Next()
	}
}

// MutationAudit logs state-changing requests at debug level and, when sink
// is non-nil, records them once the outcome is known. A handler panic is
// recorded as a 500 and then re-raised for ErrorTranslation.
func MutationAudit(sink AuditSink) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !isMutation(c.Request.Method) {
			c.Next()
			return
		}
		requestLogger(c).WithField("operation_type", "database").Debug("data mutation")

		if sink != nil {
			defer func() {
				r := recover()
				recordMutation(c, sink, r != nil)
				if r != nil {
					panic(r)
				}
			}()
		}
		c.Next()
	}
}

func recordMutation(c *gin.Context, sink AuditSink, panicked bool) {
	status := c.Writer.Status()
	switch {
	case panicked && !c.Writer.Written():
		status = http.StatusInternalServerError
	case len(c.Errors) > 0 && !c.Writer.Written():
		status = errorStatus(c.Errors.Last().Err)
	}
	ev := AuditEvent{
		Timestamp:  time.Now().UTC(),
		RequestID:  c.GetString(ctxRequestID),
		Method:     c.Request.Method,
		Path:       c.Request.URL.Path,
		StatusCode: status,
	}
	if p, ok := principalFrom(c); ok {
		ev.Subject = p.AcademicID
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(c.Request.Context()), 2*time.Second)
	defer cancel()
	if err := sink.Record(ctx, ev); err != nil {
		requestLogger(c).WithError(err).Warn("audit sink failed")
	}
}

// CORS sets cross-origin headers. With no configured origins every origin is
// accepted; preflight requests are answered directly.
func CORS(cfg Config) gin.HandlerFunc {
	allowed := map[string]struct{}{}
	for _, o := range cfg.AllowedOrigins {
		allowed[strings.ToLower(strings.TrimSpace(o))] = struct{}{}
	}
	_, star := allowed["*"]
	wildcard := len(allowed) == 0 || star

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin == "" {
			c.Next()
			return
		}
		if !wildcard {
			if _, ok := allowed[strings.ToLower(origin)]; !ok {
				if c.Request.Method == http.MethodOptions {
					fail(c, NewHTTPError(http.StatusForbidden, "Origen no permitido"))
					return
				}
				c.Next()
				return
			}
		}

		h := c.Writer.Header()
		if wildcard {
			h.Set("Access-Control-Allow-Origin", "*")
		} else {
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Credentials", "true")
			h.Add("Vary", "Origin")
		}
		h.Set("Access-Control-Expose-Headers", "X-Request-ID, X-Process-Time")

		if c.Request.Method == http.MethodOptions && c.GetHeader("Access-Control-Request-Method") != "" {
			h.Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
			h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
			h.Set("Access-Control-Max-Age", "600")
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// RequireAuth resolves the bearer token into a Principal stored on the
// context. A missing or malformed header fails like a bad token.
func RequireAuth(auth AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			fail(c, InvalidToken())
			return
		}
		p, err := auth.ResolvePrincipal(c.Request.Context(), token)
		if err != nil {
			fail(c, err)
			return
		}
		c.Set(ctxPrincipal, p)
		c.Next()
	}
}

func bearerToken(value string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(value), " ")
	if !found || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", false
	}
	return token, true
}
