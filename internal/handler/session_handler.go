package handler

import (
	"net/http"

	"taxtracker/internal/model"
	"taxtracker/internal/service"
	"taxtracker/pkg/response"

	"github.com/gin-gonic/gin"
)

type SessionHandler struct {
	sessionService service.SessionService
	requireSession gin.HandlerFunc
}

// NewSessionHandler sets up the routing dependencies for session endpoints
func NewSessionHandler(sessionService service.SessionService, requireSession gin.HandlerFunc) *SessionHandler {
	return &SessionHandler{sessionService: sessionService, requireSession: requireSession}
}

// LoginResponse carries the token so browser clients can open /ws
type LoginResponse struct {
	User  model.Identity `json:"user"`
	Token string         `json:"token"`
}

type SignupResponse struct {
	Message string `json:"message"`
}

func (h *SessionHandler) RegisterRoutes(router *gin.RouterGroup) {
	s := router.Group("/api/session")
	{
		s.POST("/login", h.Login)
		s.POST("/signup/:accountType", h.Signup)

		s.GET("/me", h.requireSession, h.Me)
		s.DELETE("", h.requireSession, h.Logout)
		s.PATCH("/profile", h.requireSession, h.UpdateProfile)
		s.GET("/preferences/reminders", h.requireSession, h.GetReminderPreference)
		s.PUT("/preferences/reminders", h.requireSession, h.SetReminderPreference)
	}
}

// Login signs in against the remote API
// @Summary      Sign in
// @Description  Signs in against the remote API and stores the identity as the active session
// @Tags         session
// @Accept       json
// @Produce      json
// @Param        payload  body      model.Credentials  true  "Credentials"
// @Success      200      {object}  response.Response{data=LoginResponse}
// @Failure      400      {object}  response.Response
// @Failure      502      {object}  response.Response
// @Router       /api/session/login [post]
func (h *SessionHandler) Login(c *gin.Context) {
	var req model.Credentials
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	identity, err := h.sessionService.Login(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, LoginResponse{User: identity, Token: identity.AuthToken}))
}

// Signup registers a new account
// @Summary      Sign up
// @Tags         session
// @Accept       json
// @Produce      json
// @Param        accountType  path      string               true  "individual or business"
// @Param        payload      body      model.SignUpRequest  true  "Account details"
// @Success      201          {object}  response.Response{data=SignupResponse}
// @Failure      400          {object}  response.Response
// @Failure      502          {object}  response.Response
// @Router       /api/session/signup/{accountType} [post]
func (h *SessionHandler) Signup(c *gin.Context) {
	var req model.SignUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	msg, err := h.sessionService.Signup(c.Request.Context(), c.Param("accountType"), req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, SignupResponse{Message: msg}))
}

// Me returns the canonical identity of the active session
// @Summary      Current identity
// @Tags         session
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=model.Identity}
// @Failure      401  {object}  response.Response
// @Router       /api/session/me [get]
func (h *SessionHandler) Me(c *gin.Context) {
	c.JSON(http.StatusOK, response.Success(http.StatusOK, h.sessionService.Me(c.Request.Context())))
}

// Logout clears the session
// @Summary      Sign out
// @Tags         session
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response
// @Router       /api/session [delete]
func (h *SessionHandler) Logout(c *gin.Context) {
	if err := h.sessionService.Logout(c.Request.Context()); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "Logged out successfully"}))
}

// UpdateProfile changes the display name
// @Summary      Update profile
// @Tags         session
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      model.ProfileUpdate  true  "Profile fields"
// @Success      200      {object}  response.Response{data=model.Identity}
// @Failure      400      {object}  response.Response
// @Failure      502      {object}  response.Response
// @Router       /api/session/profile [patch]
func (h *SessionHandler) UpdateProfile(c *gin.Context) {
	var req model.ProfileUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	identity, err := h.sessionService.UpdateProfile(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, identity))
}

// GetReminderPreference
// @Summary      Reminder preference
// @Tags         session
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=service.ReminderPreferenceResponse}
// @Router       /api/session/preferences/reminders [get]
func (h *SessionHandler) GetReminderPreference(c *gin.Context) {
	c.JSON(http.StatusOK, response.Success(http.StatusOK, h.sessionService.ReminderEnabled(c.Request.Context())))
}

// SetReminderPreference
// @Summary      Change reminder preference
// @Tags         session
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      model.ReminderPreference  true  "Preference"
// @Success      200      {object}  response.Response{data=service.ReminderPreferenceResponse}
// @Failure      502      {object}  response.Response
// @Router       /api/session/preferences/reminders [put]
func (h *SessionHandler) SetReminderPreference(c *gin.Context) {
	var req model.ReminderPreference
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	pref, err := h.sessionService.SetReminder(c.Request.Context(), req.TaxReminder)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, pref))
}
