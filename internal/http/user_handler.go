package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"google.golang.org/grpc/status"

	"user-auth/internal/apperr"
	"user-auth/internal/domain"
	"user-auth/internal/email"
	"user-auth/internal/service"
)

// Sanitizer limpia la entrada cruda antes de pasarla al modelo.
type Sanitizer interface {
	Username(raw string) (string, error)
	Email(raw string) (string, error)
	Password(raw string) (string, error)
}

// UserHandler mantiene dependencias para endpoints de usuarios y autenticacion.
type UserHandler struct {
	logger    *zap.Logger
	model     *service.AuthenticationModel
	tokens    *service.TokenService
	sanitizer Sanitizer
	mailer    email.Sender
}

// NewUserHandler crea una instancia de UserHandler con dependencias necesarias.
func NewUserHandler(logger *zap.Logger, model *service.AuthenticationModel, tokens *service.TokenService, sanitizer Sanitizer, mailer email.Sender) *UserHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserHandler{
		logger:    logger,
		model:     model,
		tokens:    tokens,
		sanitizer: sanitizer,
		mailer:    mailer,
	}
}

type sessionResponse struct {
	User  domain.UserProfile `json:"user"`
	Token string             `json:"token"`
}

// Register maneja POST /users.
func (h *UserHandler) Register(c *gin.Context) {
	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !h.bind(c, &req, "register") {
		return
	}

	username, err := h.sanitizer.Username(req.Username)
	if err != nil {
		h.writeError(c, err)
		return
	}
	emailAddr, err := h.sanitizer.Email(req.Email)
	if err != nil {
		h.writeError(c, err)
		return
	}
	password, err := h.sanitizer.Password(req.Password)
	if err != nil {
		h.writeError(c, err)
		return
	}

	user, err := h.model.Create(c.Request.Context(), username, emailAddr, password)
	if err != nil {
		h.writeError(c, err)
		return
	}
	h.writeSession(c, http.StatusCreated, user)
}

// Login maneja POST /auth/login.
func (h *UserHandler) Login(c *gin.Context) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if !h.bind(c, &req, "login") {
		return
	}

	username, err := h.sanitizer.Username(req.Username)
	if err != nil {
		h.writeError(c, err)
		return
	}
	password, err := h.sanitizer.Password(req.Password)
	if err != nil {
		h.writeError(c, err)
		return
	}

	user, err := h.model.LoginVerification(c.Request.Context(), username, password)
	if err != nil {
		switch apperr.KindOf(err) {
		case apperr.NotFound, apperr.Unauthenticated:
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		default:
			h.writeError(c, err)
		}
		return
	}
	h.writeSession(c, http.StatusOK, user)
}

// Me maneja GET /users/me.
func (h *UserHandler) Me(c *gin.Context) {
	claims, ok := h.claims(c)
	if !ok {
		return
	}
	data, err := h.model.RecoverUserData(c.Request.Context(), claims.Subject)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": domain.UserProfile{ID: claims.Subject, UserData: data}})
}

// UpdateMe maneja PATCH /users/me. Los campos que no pasan la limpieza se ignoran.
func (h *UserHandler) UpdateMe(c *gin.Context) {
	claims, ok := h.claims(c)
	if !ok {
		return
	}
	var req struct {
		Username *string `json:"username"`
		Email    *string `json:"email"`
	}
	if !h.bind(c, &req, "update user") {
		return
	}

	var input service.UpdateInput
	if req.Username != nil {
		if v, err := h.sanitizer.Username(*req.Username); err == nil {
			input.Username = &v
		}
	}
	if req.Email != nil {
		if v, err := h.sanitizer.Email(*req.Email); err == nil {
			input.Email = &v
		}
	}

	msg, err := h.model.Update(c.Request.Context(), claims.Subject, input)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": msg})
}

// UpdatePassword maneja PUT /users/me/password.
func (h *UserHandler) UpdatePassword(c *gin.Context) {
	claims, ok := h.claims(c)
	if !ok {
		return
	}
	var req struct {
		OldPassword string `json:"old_password"`
		NewPassword string `json:"new_password"`
	}
	if !h.bind(c, &req, "update password") {
		return
	}

	newPassword, err := h.sanitizer.Password(req.NewPassword)
	if err != nil {
		h.writeError(c, err)
		return
	}
	oldPassword, err := h.sanitizer.Password(req.OldPassword)
	if err != nil {
		h.writeError(c, err)
		return
	}

	msg, err := h.model.UpdatePassword(c.Request.Context(), claims.Subject, newPassword, oldPassword)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": msg})
}

// DeleteMe maneja DELETE /users/me.
func (h *UserHandler) DeleteMe(c *gin.Context) {
	claims, ok := h.claims(c)
	if !ok {
		return
	}
	msg, err := h.model.DeleteUser(c.Request.Context(), claims.Subject)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": msg})
}

// SendActivationCode maneja POST /users/me/activation-code.
func (h *UserHandler) SendActivationCode(c *gin.Context) {
	claims, ok := h.claims(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	data, err := h.model.RecoverUserData(ctx, claims.Subject)
	if err != nil {
		h.writeError(c, err)
		return
	}
	code, err := h.model.CreateCodeByUserID(ctx, claims.Subject)
	if err != nil {
		h.writeError(c, err)
		return
	}
	h.sendCode(c, data.Email, code)
}

// Activate maneja POST /users/me/activate.
func (h *UserHandler) Activate(c *gin.Context) {
	claims, ok := h.claims(c)
	if !ok {
		return
	}
	var req struct {
		Code string `json:"code" binding:"required"`
	}
	if !h.bind(c, &req, "activate") {
		return
	}
	msg, err := h.model.ActivateUser(c.Request.Context(), claims.Subject, req.Code)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": msg})
}

// SendRecoveryCode maneja POST /auth/recovery-code.
func (h *UserHandler) SendRecoveryCode(c *gin.Context) {
	var req struct {
		Email string `json:"email"`
	}
	if !h.bind(c, &req, "recovery code") {
		return
	}
	emailAddr, err := h.sanitizer.Email(req.Email)
	if err != nil {
		h.writeError(c, err)
		return
	}
	code, err := h.model.CreateCodeByEmail(c.Request.Context(), emailAddr)
	if err != nil {
		h.writeError(c, err)
		return
	}
	h.sendCode(c, emailAddr, code)
}

// RecoverPassword maneja POST /auth/recover-password.
func (h *UserHandler) RecoverPassword(c *gin.Context) {
	var req struct {
		Email       string `json:"email"`
		Code        string `json:"code" binding:"required"`
		NewPassword string `json:"new_password"`
	}
	if !h.bind(c, &req, "recover password") {
		return
	}
	emailAddr, err := h.sanitizer.Email(req.Email)
	if err != nil {
		h.writeError(c, err)
		return
	}
	password, err := h.sanitizer.Password(req.NewPassword)
	if err != nil {
		h.writeError(c, err)
		return
	}
	msg, err := h.model.RecoverUserPassword(c.Request.Context(), emailAddr, password, req.Code)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": msg})
}

func (h *UserHandler) sendCode(c *gin.Context, to, code string) {
	if err := h.mailer.Send(c.Request.Context(), to, email.CodeSubject, email.CodeBody(code)); err != nil {
		h.logger.Error("send code email failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "email delivery unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Code sent successfully"})
}

func (h *UserHandler) writeSession(c *gin.Context, status int, user domain.UserProfile) {
	token, err := h.tokens.Encode(user.ID, user.Activated, user.Blocked)
	if err != nil {
		h.logger.Error("token issue failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not issue token"})
		return
	}
	c.JSON(status, sessionResponse{User: user, Token: token})
}

func (h *UserHandler) bind(c *gin.Context, req any, op string) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		h.logger.Warn("invalid "+op+" request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return false
	}
	return true
}

func (h *UserHandler) claims(c *gin.Context) (service.Claims, bool) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return service.Claims{}, false
	}
	return claims, true
}

// writeError traduce el kind del error a status HTTP sin exponer detalles internos.
func (h *UserHandler) writeError(c *gin.Context, err error) {
	kind := apperr.KindOf(err)
	fields := []zap.Field{
		zap.String("path", c.Request.URL.Path),
		zap.Stringer("kind", kind),
		zap.Stringer("grpc_code", status.Code(err)),
		zap.Error(err),
	}
	if kind == apperr.Internal {
		h.logger.Error("request failed", fields...)
	} else {
		h.logger.Debug("request rejected", fields...)
	}
	c.JSON(kind.HTTPStatus(), gin.H{"error": apperr.PublicMessage(err)})
}
