package api

import (
	"net/http"
	"strings"

	"github.com/cloudfinch-harshad/rampart/database"
	"github.com/cloudfinch-harshad/rampart/logger"
	"github.com/cloudfinch-harshad/rampart/session"
	gin "github.com/gin-gonic/gin"
)

func AddAuthRoutes(rg *gin.RouterGroup, s *Server) {
	rg.POST("/login", s.apiLogin)
	rg.POST("/register-company", s.apiRegisterCompany)
	rg.POST("/logout", s.apiLogout)
	rg.GET("/get-user", s.apiGetUser)
	rg.POST("/forgot-password", s.apiForgotPassword)
}

type userData struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	Role        string `json:"role"`
	CompanyID   string `json:"companyId"`
	CompanyName string `json:"companyName"`
}

func newUserData(user database.User) userData {
	data := userData{
		ID:        user.ID,
		Email:     user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Role:      user.Role,
		CompanyID: user.CompanyID,
	}
	if company, err := database.GetCompany(user.CompanyID); err == nil {
		data.CompanyName = company.Name
	}
	return data
}

func (s *Server) writeSession(c *gin.Context, sess session.Session) {
	cfg := s.config().Session
	session.WriteCookie(c.Writer, c.Request, cfg.CookieName, sess.Token, s.Sessions.TTL(), cfg.SecureCookie)
}

// @Summary      Login
// @Description  Opens a session for the credentials. The token is returned and set as cookie
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      session.LoginInput  true  "credentials"
// @Success      200   {object}  string
// @Failure      400   {object}  string
// @Failure      401   {object}  string
// @Failure      429   {object}  string
// @Router       /api/login [post]
func (s *Server) apiLogin(c *gin.Context) {
	var input session.LoginInput
	if !bindJSON(c, &input) {
		return
	}
	sess, user, err := s.Sessions.Login(c.Request.Context(), input)
	if err != nil {
		failErr(c, err)
		return
	}
	s.writeSession(c, sess)
	success(c, "Login successful", gin.H{"jwtToken": sess.Token, "data": newUserData(user)})
}

// @Summary      Register company
// @Description  Creates a company with its first user and logs the user in
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      session.RegisterInput  true  "company and user"
// @Success      200   {object}  string
// @Failure      400   {object}  string
// @Failure      409   {object}  string
// @Router       /api/register-company [post]
func (s *Server) apiRegisterCompany(c *gin.Context) {
	var input session.RegisterInput
	if !bindJSON(c, &input) {
		return
	}
	sess, user, err := s.Sessions.Register(c.Request.Context(), input)
	if err != nil {
		failErr(c, err)
		return
	}
	s.writeSession(c, sess)
	success(c, "Company registered successfully", gin.H{"jwtToken": sess.Token, "data": newUserData(user)})
}

// @Summary      Logout
// @Description  Ends the current session and clears the cookie
// @Tags         auth
// @Produce      json
// @Success      200  {object}  string
// @Failure      401  {object}  string
// @Router       /api/logout [post]
func (s *Server) apiLogout(c *gin.Context) {
	cfg := s.config().Session
	if err := s.Sessions.Logout(session.TokenFromRequest(c.Request, cfg.CookieName)); err != nil {
		failErr(c, err)
		return
	}
	session.ClearCookie(c.Writer, c.Request, cfg.CookieName, cfg.SecureCookie)
	success(c, "Logged out", nil)
}

// @Summary      Current user
// @Description  Returns the user of the session
// @Tags         auth
// @Produce      json
// @Success      200  {object}  string
// @Failure      401  {object}  string
// @Router       /api/get-user [get]
func (s *Server) apiGetUser(c *gin.Context) {
	_, user, found := currentUser(c)
	if !found {
		fail(c, http.StatusUnauthorized, "Unauthorized")
		return
	}
	success(c, "User fetched successfully", gin.H{"data": newUserData(user)})
}

// @Summary      Forgot password
// @Description  Accepts a reset request. The answer does not reveal whether the account exists
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      session.ForgotPasswordInput  true  "email"
// @Success      200   {object}  string
// @Failure      400   {object}  string
// @Router       /api/forgot-password [post]
func (s *Server) apiForgotPassword(c *gin.Context) {
	var input session.ForgotPasswordInput
	if !bindJSON(c, &input) {
		return
	}
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	if err := session.Validate(input); err != nil {
		failErr(c, err)
		return
	}
	if _, err := database.GetUserByEmail(input.Email); err == nil {
		logger.Log.WithField("email", input.Email).Infoln("password reset requested")
	}
	success(c, "Password reset instructions sent to your email", nil)
}
