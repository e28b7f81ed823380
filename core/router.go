package core

import (
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// RouterDeps carries the collaborators the HTTP layer needs. Audit and
// entries of Health may be nil.
type RouterDeps struct {
	Auth     AuthService
	Students StudentStore
	Payments PaymentStore
	Blocks   BlockStore
	Audit    AuditSink
	Health   map[string]Pinger
}

// NewRouter constructs the Gin engine with routes wired.
func NewRouter(cfg Config, deps RouterDeps) *gin.Engine {
	startedAt := time.Now()
	r := gin.New()
	r.HandleMethodNotAllowed = true
	// gin answers trailing-slash redirects before any middleware runs; the
	// collection routes are registered in both forms instead.
	r.RedirectTrailingSlash = false

	// Global middleware, outermost first: logging -> translation -> security headers -> audit -> CORS
	r.Use(RequestLogging())
	r.Use(ErrorTranslation())
	r.Use(SecurityHeaders())
	r.Use(MutationAudit(deps.Audit))
	r.Use(CORS(cfg))

	r.NoRoute(func(c *gin.Context) {
		fail(c, NewHTTPError(http.StatusNotFound, "Not Found"))
	})
	r.NoMethod(func(c *gin.Context) {
		fail(c, NewHTTPError(http.StatusMethodNotAllowed, "Method Not Allowed"))
	})

	authRequired := RequireAuth(deps.Auth)

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "Microservicio Estudiantil - API funcionando correctamente"})
	})

	r.GET("/health", func(c *gin.Context) {
		st := CollectHealth(c.Request.Context(), deps.Health, startedAt)
		status := http.StatusOK
		if !st.Healthy() {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, st)
	})

	auth := r.Group("/auth")
	{
		auth.POST("/login", func(c *gin.Context) {
			var form struct {
				Username string `form:"username" binding:"required"`
				Password string `form:"password" binding:"required"`
			}
			if err := c.ShouldBind(&form); err != nil {
				fail(c, bindFailure(err))
				return
			}
			issueLogin(c, deps.Auth, form.Username, form.Password)
		})

		auth.POST("/login-estudiante", func(c *gin.Context) {
			var req struct {
				RegistroAcademico string `json:"registro_academico" binding:"required"`
				Contrasena        string `json:"contrasena" binding:"required"`
			}
			if !bindJSON(c, &req) {
				return
			}
			issueLogin(c, deps.Auth, req.RegistroAcademico, req.Contrasena)
		})

		auth.GET("/me", authRequired, func(c *gin.Context) {
			c.JSON(http.StatusOK, mustPrincipal(c).Profile())
		})
	}

	students := r.Group("/estudiantes")
	{
		collection(students, http.MethodPost, func(c *gin.Context) {
			var req StudentCreate
			if !bindJSON(c, &req) {
				return
			}
			s, err := deps.Students.Create(c.Request.Context(), req)
			if err != nil {
				fail(c, err)
				return
			}
			c.JSON(http.StatusCreated, s)
		})

		collection(students, http.MethodGet, func(c *gin.Context) {
			skip, limit, ok := queryWindow(c)
			if !ok {
				return
			}
			items, err := deps.Students.List(c.Request.Context(), skip, limit)
			if err != nil {
				fail(c, err)
				return
			}
			c.JSON(http.StatusOK, items)
		})

		students.GET("/me", authRequired, func(c *gin.Context) {
			c.JSON(http.StatusOK, mustPrincipal(c).Student())
		})

		students.GET("/:registro_academico", func(c *gin.Context) {
			id := c.Param("registro_academico")
			s, err := deps.Students.FindByAcademicID(c.Request.Context(), id)
			if err != nil {
				fail(c, err)
				return
			}
			if s == nil {
				fail(c, StudentNotFound(id, ""))
				return
			}
			c.JSON(http.StatusOK, s)
		})

		students.PUT("/:registro_academico", authRequired, func(c *gin.Context) {
			id := c.Param("registro_academico")
			if err := RequireSelf(mustPrincipal(c), id, "actualizar datos de otro estudiante"); err != nil {
				fail(c, err)
				return
			}
			var patch StudentPatch
			if !bindJSON(c, &patch) {
				return
			}
			if patch.Contrasena.Value != nil {
				if n := utf8.RuneCountInString(*patch.Contrasena.Value); n < 4 || n > 50 {
					fail(c, NewValidationError("La contraseña debe tener entre 4 y 50 caracteres"))
					return
				}
			}
			s, err := deps.Students.Update(c.Request.Context(), id, patch)
			if err != nil {
				fail(c, err)
				return
			}
			c.JSON(http.StatusOK, s)
		})

		students.DELETE("/:registro_academico", authRequired, func(c *gin.Context) {
			id := c.Param("registro_academico")
			if err := RequireSelf(mustPrincipal(c), id, "eliminar datos de otro estudiante"); err != nil {
				fail(c, err)
				return
			}
			if err := deps.Students.Delete(c.Request.Context(), id); err != nil {
				fail(c, err)
				return
			}
			c.JSON(http.StatusOK, gin.H{"message": "Estudiante eliminado exitosamente"})
		})
	}

	payments := r.Group("/pagos")
	{
		collection(payments, http.MethodPost, authRequired, func(c *gin.Context) {
			var req PaymentCreate
			if !bindJSON(c, &req) {
				return
			}
			owner := ""
			if req.RegistroAcademico != nil {
				owner = *req.RegistroAcademico
			}
			if err := RequireSelf(mustPrincipal(c), owner, "crear pago para otro estudiante"); err != nil {
				fail(c, err)
				return
			}
			p, err := deps.Payments.Create(c.Request.Context(), req)
			if err != nil {
				fail(c, err)
				return
			}
			c.JSON(http.StatusCreated, p)
		})

		collection(payments, http.MethodGet, func(c *gin.Context) {
			skip, limit, ok := queryWindow(c)
			if !ok {
				return
			}
			items, err := deps.Payments.List(c.Request.Context(), skip, limit)
			if err != nil {
				fail(c, err)
				return
			}
			c.JSON(http.StatusOK, items)
		})

		payments.GET("/estudiante/:registro_academico", func(c *gin.Context) {
			items, err := deps.Payments.ListByStudent(c.Request.Context(), c.Param("registro_academico"))
			if err != nil {
				fail(c, err)
				return
			}
			c.JSON(http.StatusOK, items)
		})

		payments.GET("/:codigo_pago", authRequired, func(c *gin.Context) {
			p, err := deps.Payments.Get(c.Request.Context(), c.Param("codigo_pago"))
			if err != nil {
				fail(c, err)
				return
			}
			if err := RequireSelf(mustPrincipal(c), p.Owner(), "ver pago de otro estudiante"); err != nil {
				fail(c, err)
				return
			}
			c.JSON(http.StatusOK, p)
		})
	}

	// Block management has no guard yet; these routes are public.
	blocks := r.Group("/bloqueos")
	{
		collection(blocks, http.MethodPost, func(c *gin.Context) {
			var req BlockCreate
			if !bindJSON(c, &req) {
				return
			}
			b, err := deps.Blocks.Create(c.Request.Context(), req)
			if err != nil {
				fail(c, err)
				return
			}
			c.JSON(http.StatusCreated, b)
		})

		collection(blocks, http.MethodGet, func(c *gin.Context) {
			skip, limit, ok := queryWindow(c)
			if !ok {
				return
			}
			items, err := deps.Blocks.List(c.Request.Context(), skip, limit)
			if err != nil {
				fail(c, err)
				return
			}
			c.JSON(http.StatusOK, items)
		})

		blocks.GET("/estudiante/:registro_academico", func(c *gin.Context) {
			items, err := deps.Blocks.ListByStudent(c.Request.Context(), c.Param("registro_academico"))
			if err != nil {
				fail(c, err)
				return
			}
			c.JSON(http.StatusOK, items)
		})

		blocks.GET("/:codigo_bloqueo", func(c *gin.Context) {
			b, err := deps.Blocks.Get(c.Request.Context(), c.Param("codigo_bloqueo"))
			if err != nil {
				fail(c, err)
				return
			}
			c.JSON(http.StatusOK, b)
		})

		blocks.PUT("/:codigo_bloqueo", func(c *gin.Context) {
			var patch BlockPatch
			if !bindJSON(c, &patch) {
				return
			}
			b, err := deps.Blocks.Update(c.Request.Context(), c.Param("codigo_bloqueo"), patch)
			if err != nil {
				fail(c, err)
				return
			}
			c.JSON(http.StatusOK, b)
		})
	}

	return r
}

// collection mounts handlers on both "/group" and "/group/".
func collection(g *gin.RouterGroup, method string, handlers ...gin.HandlerFunc) {
	g.Handle(method, "", handlers...)
	g.Handle(method, "/", handlers...)
}

func issueLogin(c *gin.Context, auth AuthService, registroAcademico, password string) {
	resp, err := Login(c.Request.Context(), auth, registroAcademico, password)
	if err != nil {
		fail(c, err)
		return
	}
	logrus.WithField("registro_academico", registroAcademico).Info("login succeeded")
	c.JSON(http.StatusOK, resp)
}
