package web

import (
	"fmt"
	"net/http"
	"strings"

	appsession "marketing-export/application/session"
	"marketing-export/domain/content"
	"marketing-export/domain/credential"
	"marketing-export/domain/distribution"
	"marketing-export/domain/session"

	"github.com/gin-gonic/gin"
)

// pageData is what the form template renders
type pageData struct {
	SignedIn   bool
	Strategy   string
	Identity   string
	State      string
	Form       session.Form
	Text       string
	Headline   string
	HasContent bool
	ResultName string
	ResultLink string
	Message    string
	IsError    bool
}

// currentSession returns the caller's session, creating one and setting the
// cookie when the request has none or it has expired
func (s *Server) currentSession(c *gin.Context) *session.Session {
	if id, err := c.Cookie(CookieName); err == nil {
		if sess, ok := s.sessions.Get(id); ok {
			return sess
		}
	}

	sess := s.controller.NewSession(s.now())
	sess.Form.Tone = s.config.DefaultTone
	s.sessions.Put(sess)

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(CookieName, sess.ID, int(s.config.SessionTTL.Seconds()), "/", "", s.config.SecureCookies, true)
	return sess
}

func (s *Server) handleIndex(c *gin.Context) {
	sess := s.currentSession(c)

	sess.Lock()
	data := pageData{
		SignedIn: sess.State.Authenticated(),
		Strategy: s.controller.Strategy().String(),
		State:    sess.State.String(),
		Form:     sess.Form,
		Message:  sess.Message,
		IsError:  sess.IsError,
	}
	if sess.Credential != nil {
		data.Identity = sess.Credential.Identity()
	}
	if sess.Content != nil {
		data.HasContent = true
		data.Text = sess.Content.Text
		data.Headline = sess.Content.Headline()
	}
	if sess.LastResult != nil {
		data.ResultName = sess.LastResult.FileName
		data.ResultLink = sess.LastResult.WebViewLink
	}
	sess.Unlock()

	c.HTML(http.StatusOK, "index.html", data)
}

func (s *Server) handleSignIn(c *gin.Context) {
	sess := s.currentSession(c)

	authURL, _ := s.controller.SignIn(c.Request.Context(), sess)
	if authURL != "" {
		c.Redirect(http.StatusFound, authURL)
		return
	}
	s.backToForm(c)
}

func (s *Server) handleCallback(c *gin.Context) {
	sess := s.currentSession(c)

	if e := c.Query("error"); e != "" {
		sess.Lock()
		sess.SetMessage(appsession.UserMessage(fmt.Errorf("%w: %s", credential.ErrAuth, e)), true)
		sess.Unlock()
		s.backToForm(c)
		return
	}

	_ = s.controller.CompleteSignIn(c.Request.Context(), sess, c.Query("state"), c.Query("code"))
	s.backToForm(c)
}

func (s *Server) handleGenerate(c *gin.Context) {
	sess := s.currentSession(c)

	tone, err := content.ParseTone(c.PostForm("tone"), s.config.DefaultTone)
	if err != nil {
		sess.Lock()
		sess.SetMessage(appsession.UserMessage(err), true)
		sess.Unlock()
		s.backToForm(c)
		return
	}

	params := content.Parameters{
		Product:  c.PostForm("product"),
		Audience: c.PostForm("audience"),
		Tone:     tone,
	}
	_, _ = s.controller.Generate(c.Request.Context(), sess, params)
	s.backToForm(c)
}

func (s *Server) handleEdit(c *gin.Context) {
	sess := s.currentSession(c)
	_ = s.controller.Edit(sess, c.PostForm("text"))
	s.backToForm(c)
}

func (s *Server) handleUpload(c *gin.Context) {
	sess := s.currentSession(c)

	// Save any edits made in the preview before uploading
	if text, ok := c.GetPostForm("text"); ok {
		sess.Lock()
		changed := sess.Content != nil && sess.Content.Text != text
		sess.Unlock()
		if changed {
			if err := s.controller.Edit(sess, text); err != nil {
				s.backToForm(c)
				return
			}
		}
	}

	if name, ok := c.GetPostForm("file_name"); ok && strings.TrimSpace(name) == "" {
		sess.Lock()
		sess.SetMessage(appsession.UserMessage(distribution.ErrInvalidFileName), true)
		sess.Unlock()
		s.backToForm(c)
		return
	}

	opts := appsession.UploadOptions{
		FolderName:      strings.TrimSpace(c.PostForm("folder_name")),
		FileName:        c.PostForm("file_name"),
		SharedDrive:     strings.TrimSpace(c.PostForm("shared_drive")),
		ToRoot:          c.PostForm("to_root") == "on",
		ReplaceExisting: c.PostForm("replace") == "on",
	}
	_, _ = s.controller.Upload(c.Request.Context(), sess, opts)
	s.backToForm(c)
}

func (s *Server) handleDownload(c *gin.Context) {
	sess := s.currentSession(c)

	sess.Lock()
	var text, name string
	if sess.Content != nil {
		text = sess.Content.Text
		name = sess.Form.FileName
	}
	sess.Unlock()

	if text == "" {
		c.String(http.StatusNotFound, "nothing generated yet")
		return
	}
	if name == "" {
		name = "marketing_copy.txt"
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(text))
}

func (s *Server) handleLogout(c *gin.Context) {
	sess := s.currentSession(c)
	_ = s.controller.Logout(c.Request.Context(), sess)
	s.backToForm(c)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"sessions": s.sessions.Len(),
	})
}

// backToForm redirects after a POST so reloading does not repeat it
func (s *Server) backToForm(c *gin.Context) {
	c.Redirect(http.StatusSeeOther, "/")
}
