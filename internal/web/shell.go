package web

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/abduss/certvault/internal/auth"
	"github.com/abduss/certvault/internal/certificate"
	"github.com/abduss/certvault/internal/logger"
	"github.com/abduss/certvault/internal/vault"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const recentLimit = 5

type authService interface {
	Register(ctx context.Context, input auth.RegisterInput) (auth.AuthResult, error)
	Login(ctx context.Context, input auth.LoginInput) (auth.AuthResult, error)
	Refresh(ctx context.Context, refreshToken string) (auth.AuthResult, error)
	Logout(ctx context.Context, userID uuid.UUID, refreshToken string) error
	ValidateAccessToken(token string) (auth.UserClaims, error)
}

// Config parameterizes the shell.
type Config struct {
	SessionCookie string
	SecureCookies bool
	Location      *time.Location
	Upload        vault.UploadPolicy
}

// Shell is the browser-facing front of the vault: a routing guard, theme and
// the dashboard, list and upload screens rendered as JSON view models.
type Shell struct {
	gateway vault.Gateway
	auth    authService
	cfg     Config
	nowFunc func() time.Time
}

// NewShell builds the shell over a gateway and the auth service that issues
// its session cookies.
func NewShell(gateway vault.Gateway, authService authService, cfg Config) *Shell {
	if cfg.SessionCookie == "" {
		cfg.SessionCookie = "certvault_session"
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &Shell{gateway: gateway, auth: authService, cfg: cfg, nowFunc: time.Now}
}

// RegisterRoutes mounts the shell on router, including its fallback route.
func (s *Shell) RegisterRoutes(router *gin.Engine) {
	router.Use(s.guard())

	public := router.Group("/")
	public.GET("/auth", s.redirectSignedIn(), s.signInPage)
	public.POST("/auth", s.redirectSignedIn(), s.signIn)
	public.POST("/auth/register", s.redirectSignedIn(), s.signUp)
	public.POST("/signout", s.signOut)
	public.POST("/theme", s.toggleTheme)

	protected := router.Group("/")
	protected.Use(s.requireSession())
	protected.GET("/", func(c *gin.Context) { c.Redirect(http.StatusFound, "/dashboard") })
	protected.GET("/dashboard", s.dashboard)
	protected.GET("/certificates", s.certificates)
	protected.POST("/certificates/:certificateID", s.editCertificate)
	protected.POST("/certificates/:certificateID/delete", s.deleteCertificate)
	protected.GET("/upload", s.uploadPage)
	protected.POST("/upload", s.upload)

	router.NoRoute(s.fallback)
}

type viewUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type view struct {
	View    string         `json:"view"`
	Theme   string         `json:"theme"`
	User    *viewUser      `json:"user,omitempty"`
	Notices []vault.Notice `json:"notices"`
	Data    any            `json:"data,omitempty"`
}

func (s *Shell) render(c *gin.Context, status int, name string, notices []vault.Notice, data any) {
	v := view{View: name, Theme: themeOf(c), Notices: append(s.takeFlash(c), notices...), Data: data}
	if v.Notices == nil {
		v.Notices = []vault.Notice{}
	}
	if session, ok := s.currentSession(c); ok {
		v.User = &viewUser{ID: session.UserID.String(), Email: session.Email}
	}
	c.JSON(status, v)
}

func (s *Shell) fallback(c *gin.Context) {
	if strings.HasPrefix(c.Request.URL.Path, "/v1/") {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	if _, ok := s.currentSession(c); ok {
		c.Redirect(http.StatusFound, "/dashboard")
		return
	}
	c.Redirect(http.StatusFound, "/auth")
}

func (s *Shell) signInPage(c *gin.Context) {
	s.render(c, http.StatusOK, "auth", nil, nil)
}

type signInForm struct {
	Email    string `form:"email" binding:"required,email"`
	Password string `form:"password" binding:"required"`
}

func (s *Shell) signIn(c *gin.Context) {
	var form signInForm
	if err := c.ShouldBind(&form); err != nil {
		s.render(c, http.StatusBadRequest, "auth", []vault.Notice{{Level: vault.LevelError, Message: "Email and password are required"}}, nil)
		return
	}

	result, err := s.auth.Login(c.Request.Context(), auth.LoginInput{Email: form.Email, Password: form.Password})
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			s.render(c, http.StatusUnauthorized, "auth", []vault.Notice{{Level: vault.LevelError, Message: "Invalid login credentials"}}, nil)
			return
		}
		logger.FromContext(c.Request.Context()).Error("web sign in", zap.Error(err))
		s.render(c, http.StatusInternalServerError, "auth", []vault.Notice{{Level: vault.LevelError, Message: "Failed to sign in"}}, nil)
		return
	}

	s.issueSession(c, result)
	c.Redirect(http.StatusSeeOther, "/dashboard")
}

func (s *Shell) signUp(c *gin.Context) {
	var form signInForm
	if err := c.ShouldBind(&form); err != nil {
		s.render(c, http.StatusBadRequest, "auth", []vault.Notice{{Level: vault.LevelError, Message: "Email and password are required"}}, nil)
		return
	}

	result, err := s.auth.Register(c.Request.Context(), auth.RegisterInput{Email: form.Email, Password: form.Password})
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrEmailAlreadyExists):
			s.render(c, http.StatusConflict, "auth", []vault.Notice{{Level: vault.LevelError, Message: "An account with this email already exists"}}, nil)
		case errors.Is(err, auth.ErrInvalidCredentials):
			s.render(c, http.StatusBadRequest, "auth", []vault.Notice{{Level: vault.LevelError, Message: "Password must be between 8 and 72 characters"}}, nil)
		default:
			logger.FromContext(c.Request.Context()).Error("web sign up", zap.Error(err))
			s.render(c, http.StatusInternalServerError, "auth", []vault.Notice{{Level: vault.LevelError, Message: "Failed to create account"}}, nil)
		}
		return
	}

	s.issueSession(c, result)
	c.Redirect(http.StatusSeeOther, "/dashboard")
}

func (s *Shell) signOut(c *gin.Context) {
	if session, ok := s.currentSession(c); ok && session.RefreshToken != "" {
		if err := s.auth.Logout(c.Request.Context(), session.UserID, session.RefreshToken); err != nil {
			logger.FromContext(c.Request.Context()).Warn("revoke refresh token", zap.Error(err))
		}
	}
	s.clearSession(c)
	c.Redirect(http.StatusSeeOther, "/auth")
}

func (s *Shell) toggleTheme(c *gin.Context) {
	next := themeDark
	switch c.PostForm("theme") {
	case themeLight, themeDark:
		next = c.PostForm("theme")
	default:
		if themeOf(c) == themeDark {
			next = themeLight
		}
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(themeCookie, next, 365*24*60*60, "/", "", s.cfg.SecureCookies, false)
	c.JSON(http.StatusOK, gin.H{"theme": next})
}

func (s *Shell) library(c *gin.Context, notices vault.Notifier) (*vault.Library, error) {
	session, _ := s.currentSession(c)
	lib := vault.NewLibrary(s.gateway, session, notices)
	return lib, lib.Load(c.Request.Context())
}

func (s *Shell) dashboard(c *gin.Context) {
	notices := &vault.Notices{}
	lib, err := s.library(c, notices)
	if err != nil {
		s.render(c, http.StatusOK, "dashboard", notices.Drain(), vault.Summarize(nil, s.nowFunc(), s.cfg.Location, recentLimit))
		return
	}
	summary := vault.Summarize(lib.Certificates(), s.nowFunc(), s.cfg.Location, recentLimit)
	s.render(c, http.StatusOK, "dashboard", notices.Drain(), summary)
}

type certificatesData struct {
	Query  string        `json:"query"`
	Total  int           `json:"total"`
	Groups []vault.Group `json:"groups"`
}

func (s *Shell) certificates(c *gin.Context) {
	notices := &vault.Notices{}
	query := c.Query("q")
	lib, _ := s.library(c, notices)
	s.render(c, http.StatusOK, "certificates", notices.Drain(), certificatesData{
		Query:  query,
		Total:  len(lib.Certificates()),
		Groups: lib.Groups(query, s.cfg.Location),
	})
}

type editForm struct {
	Title       string `form:"title"`
	Description string `form:"description"`
}

func (s *Shell) editCertificate(c *gin.Context) {
	id, err := uuid.Parse(c.Param("certificateID"))
	if err != nil {
		s.render(c, http.StatusNotFound, "not_found", nil, nil)
		return
	}

	var form editForm
	if err := c.ShouldBind(&form); err != nil {
		s.render(c, http.StatusBadRequest, "certificates", []vault.Notice{{Level: vault.LevelError, Message: "Invalid form"}}, nil)
		return
	}

	notices := &vault.Notices{}
	lib, err := s.library(c, notices)
	if err != nil {
		s.render(c, http.StatusBadGateway, "certificates", notices.Drain(), nil)
		return
	}
	if _, err := lib.BeginEdit(id); err != nil {
		s.render(c, http.StatusNotFound, "not_found", nil, nil)
		return
	}
	_ = lib.SetDraft(form.Title, form.Description)

	if err := lib.Save(c.Request.Context()); err != nil {
		status := http.StatusBadGateway
		var validation *vault.ValidationError
		if errors.As(err, &validation) {
			status = http.StatusUnprocessableEntity
		}
		draft, _ := lib.Editing()
		s.render(c, status, "edit_certificate", notices.Drain(), draft)
		return
	}

	s.flash(c, lastNotice(notices))
	c.Redirect(http.StatusSeeOther, "/certificates")
}

func (s *Shell) deleteCertificate(c *gin.Context) {
	id, err := uuid.Parse(c.Param("certificateID"))
	if err != nil {
		s.render(c, http.StatusNotFound, "not_found", nil, nil)
		return
	}

	notices := &vault.Notices{}
	lib, err := s.library(c, notices)
	if err != nil {
		s.render(c, http.StatusBadGateway, "certificates", notices.Drain(), nil)
		return
	}

	confirmed := strings.EqualFold(c.PostForm("confirm"), "yes")
	var pending certificate.Certificate
	deleted, err := lib.Delete(c.Request.Context(), id, func(cert certificate.Certificate) bool {
		pending = cert
		return confirmed
	})
	switch {
	case errors.Is(err, certificate.ErrCertificateNotFound):
		s.render(c, http.StatusNotFound, "not_found", nil, nil)
	case err != nil:
		s.render(c, http.StatusBadGateway, "certificates", notices.Drain(), nil)
	case !deleted:
		s.render(c, http.StatusOK, "confirm_delete", nil, gin.H{
			"certificate": pending,
			"prompt":      "Are you sure you want to delete this certificate?",
		})
	default:
		s.flash(c, lastNotice(notices))
		c.Redirect(http.StatusSeeOther, "/certificates")
	}
}

type uploadData struct {
	State        string                   `json:"state"`
	MaxSize      int64                    `json:"max_size"`
	AllowedTypes []string                 `json:"allowed_types"`
	Certificate  *certificate.Certificate `json:"certificate,omitempty"`
}

func (s *Shell) uploadData(up *vault.Upload) uploadData {
	policy := s.cfg.Upload
	defaults := vault.DefaultUploadPolicy()
	if policy.MaxSize <= 0 {
		policy.MaxSize = defaults.MaxSize
	}
	if len(policy.AllowedTypes) == 0 {
		policy.AllowedTypes = defaults.AllowedTypes
	}
	data := uploadData{State: vault.Idle.String(), MaxSize: policy.MaxSize, AllowedTypes: policy.AllowedTypes}
	if up != nil {
		data.State = up.State().String()
	}
	return data
}

func (s *Shell) uploadPage(c *gin.Context) {
	s.render(c, http.StatusOK, "upload", nil, s.uploadData(nil))
}

func (s *Shell) upload(c *gin.Context) {
	session, _ := s.currentSession(c)
	notices := &vault.Notices{}
	up := vault.NewUpload(s.gateway, session, notices, s.cfg.Upload)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		s.render(c, http.StatusBadRequest, "upload", []vault.Notice{{Level: vault.LevelError, Message: "Please select a file"}}, s.uploadData(up))
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		s.render(c, http.StatusBadRequest, "upload", []vault.Notice{{Level: vault.LevelError, Message: "Could not read the selected file"}}, s.uploadData(up))
		return
	}
	defer file.Close()

	if err := up.Select(vault.File{
		Name:        fileHeader.Filename,
		ContentType: fileHeader.Header.Get("Content-Type"),
		Size:        fileHeader.Size,
		Content:     file,
	}); err != nil {
		s.render(c, http.StatusUnprocessableEntity, "upload", notices.Drain(), s.uploadData(up))
		return
	}

	title := c.PostForm("title")
	if !up.CanSubmit(title) {
		s.render(c, http.StatusUnprocessableEntity, "upload", []vault.Notice{{Level: vault.LevelError, Message: "Title is required"}}, s.uploadData(up))
		return
	}

	if _, err := up.Submit(c.Request.Context(), title, c.PostForm("description")); err != nil {
		s.render(c, http.StatusBadGateway, "upload", notices.Drain(), s.uploadData(up))
		return
	}

	s.flash(c, lastNotice(notices))
	c.Redirect(http.StatusSeeOther, "/certificates")
}

func lastNotice(notices *vault.Notices) vault.Notice {
	items := notices.Drain()
	if len(items) == 0 {
		return vault.Notice{}
	}
	return items[len(items)-1]
}
