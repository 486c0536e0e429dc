// Package httpapi exposes the credential service over HTTP using gin.
package httpapi

import (
	"context"
	"errors"
	"net/http"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/logging"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
	"github.com/dmitrijs2005/authkeeper/internal/server/services"
	"github.com/gin-gonic/gin"
)

const currentUserKey = "currentUser"

// CredentialService is the part of services.UserService used by the handlers.
type CredentialService interface {
	Register(ctx context.Context, in services.RegisterInput) (*models.PublicUser, error)
	Login(ctx context.Context, username, password string) (*services.Token, error)
	ResolveSession(ctx context.Context, token string) (*models.PublicUser, error)
}

type registerRequest struct {
	Username string  `json:"username" binding:"required"`
	Password string  `json:"password" binding:"required"`
	FullName *string `json:"full_name"`
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Handler holds the HTTP handlers for the /auth routes.
type Handler struct {
	svc    CredentialService
	logger logging.Logger
}

func NewHandler(svc CredentialService, logger logging.Logger) *Handler {
	return &Handler{svc: svc, logger: logger.With("module", "httpapi")}
}

// NewRouter builds the gin engine with all routes and middleware attached.
func NewRouter(h *Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), RequestLogger(h.logger), CORS())

	r.GET("/", h.Health)

	g := r.Group("/auth")
	g.POST("/register", h.Register)
	g.POST("/login", h.Login)
	g.GET("/me", BearerAuth(h.svc), h.Me)

	return r
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Register handles POST /auth/register.
func (h *Handler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithDetail(c, http.StatusUnprocessableEntity, "invalid request body")
		return
	}

	user, err := h.svc.Register(c.Request.Context(), services.RegisterInput{
		Username: req.Username,
		Password: req.Password,
		FullName: req.FullName,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, user)
}

// Login handles POST /auth/login.
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithDetail(c, http.StatusUnprocessableEntity, "invalid request body")
		return
	}

	token, err := h.svc.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, token)
}

// Me handles GET /auth/me. BearerAuth has already resolved the user.
func (h *Handler) Me(c *gin.Context) {
	user, ok := c.Get(currentUserKey)
	if !ok {
		abortWithDetail(c, http.StatusUnauthorized, common.ErrInvalidCredentials.Error())
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *Handler) writeError(c *gin.Context, err error) {
	status, detail := statusFor(err)
	if status == http.StatusInternalServerError {
		h.logger.Error(c.Request.Context(), "request failed", "path", c.FullPath(), "error", err)
	}
	abortWithDetail(c, status, detail)
}

// statusFor maps the service error kinds onto HTTP responses.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, common.ErrUserAlreadyExists):
		return http.StatusBadRequest, common.ErrUserAlreadyExists.Error()
	case errors.Is(err, common.ErrValidation):
		return http.StatusUnprocessableEntity, common.ErrValidation.Error()
	case errors.Is(err, common.ErrInvalidCredentials):
		return http.StatusUnauthorized, common.ErrInvalidCredentials.Error()
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

func abortWithDetail(c *gin.Context, status int, detail string) {
	if status == http.StatusUnauthorized {
		c.Header("WWW-Authenticate", common.BearerScheme)
	}
	c.AbortWithStatusJSON(status, gin.H{"detail": detail})
}
