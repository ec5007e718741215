package api

import (
	"io"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/sraza0098/wisp-backend/internal/auth"
	"github.com/sraza0098/wisp-backend/internal/domain"
)

func (s *server) registerUserRoutes(users fiber.Router, protect fiber.Handler) {
	limit := s.authLimiter()

	users.Post("/signup", limit, s.signup)
	users.Post("/login", limit, s.login)
	users.Post("/oauth/:provider", limit, s.oauthLogin)
	users.Get("/logout", s.logout)
	users.Get("/isLoggedin", s.isLoggedIn)
	users.Get("/isLoggedin/:token", s.isLoggedIn)

	users.Get("/getMe", protect, s.getMe)
	users.Patch("/updateMe", protect, s.updateMe)
	users.Delete("/deleteMe", protect, s.deleteMe)
	users.Patch("/updatePassword", protect, s.updatePassword)
}

// sendToken sets the session cookie and answers with the token and user.
func (s *server) sendToken(c *fiber.Ctx, code int, u *domain.User, tok auth.Token) error {
	c.Cookie(&fiber.Cookie{
		Name:     auth.CookieName,
		Value:    tok.Value,
		Expires:  tok.ExpiresAt,
		HTTPOnly: true,
		Secure:   s.Config.Auth.CookieSecure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	return success(c, code, fiber.Map{
		"token": tok.Value,
		"data":  fiber.Map{"user": u},
	})
}

func (s *server) clearCookie(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     auth.CookieName,
		Value:    auth.LogoutCookieValue(),
		Expires:  time.Now().Add(10 * time.Second),
		HTTPOnly: true,
		Secure:   s.Config.Auth.CookieSecure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

func (s *server) signup(c *fiber.Ctx) error {
	var in domain.Signup
	if err := c.BodyParser(&in); err != nil {
		return newAppError(fiber.StatusBadRequest, "invalid request body")
	}
	u, tok, err := s.Auth.Signup(c.UserContext(), in)
	if err != nil {
		return err
	}
	return s.sendToken(c, fiber.StatusCreated, u, tok)
}

func (s *server) login(c *fiber.Ctx) error {
	var in struct {
		Email    string `json:"email" form:"email"`
		Password string `json:"password" form:"password"`
	}
	if err := c.BodyParser(&in); err != nil {
		return newAppError(fiber.StatusBadRequest, "invalid request body")
	}
	if in.Email == "" || in.Password == "" {
		return newAppError(fiber.StatusBadRequest, "please provide email and password")
	}
	u, tok, err := s.Auth.Login(c.UserContext(), domain.NormalizeEmail(in.Email), in.Password)
	if err != nil {
		return err
	}
	return s.sendToken(c, fiber.StatusOK, u, tok)
}

func (s *server) oauthLogin(c *fiber.Ctx) error {
	var in struct {
		IDToken     string `json:"idToken"`
		AccessToken string `json:"accessToken"`
	}
	if err := c.BodyParser(&in); err != nil {
		return newAppError(fiber.StatusBadRequest, "invalid request body")
	}

	provider := c.Params("provider")
	credential := in.AccessToken
	if provider == domain.OAuthGoogle {
		credential = in.IDToken
	}
	if credential == "" {
		return newAppError(fiber.StatusBadRequest, "missing provider credential")
	}

	u, tok, err := s.Auth.OAuthLogin(c.UserContext(), provider, credential)
	if err != nil {
		return err
	}
	return s.sendToken(c, fiber.StatusOK, u, tok)
}

func (s *server) logout(c *fiber.Ctx) error {
	if err := s.Auth.Logout(c.UserContext(), auth.TokenFromRequest(c)); err != nil {
		s.Log.Warn("token revocation failed", zap.Error(err))
	}
	s.clearCookie(c)
	return success(c, fiber.StatusOK, nil)
}

// isLoggedIn never fails; clients use it to check their session.
func (s *server) isLoggedIn(c *fiber.Ctx) error {
	token := c.Params("token")
	if token == "" {
		token = auth.TokenFromRequest(c)
	}
	if token == "" {
		return c.JSON(fiber.Map{"user": nil, "isAuth": false})
	}
	u, _, err := s.Auth.Authenticate(c.UserContext(), token)
	if err != nil {
		return c.JSON(fiber.Map{"user": nil, "isAuth": false})
	}
	return c.JSON(fiber.Map{"user": u, "isAuth": true})
}

func (s *server) getMe(c *fiber.Ctx) error {
	return success(c, fiber.StatusOK, fiber.Map{"data": fiber.Map{"user": currentUser(c)}})
}

func (s *server) updateMe(c *fiber.Ctx) error {
	var in struct {
		FirstName       *string `json:"firstName" form:"firstName"`
		LastName        *string `json:"lastName" form:"lastName"`
		Email           *string `json:"email" form:"email"`
		About           *string `json:"about" form:"about"`
		Password        *string `json:"password" form:"password"`
		PasswordConfirm *string `json:"passwordConfirm" form:"passwordConfirm"`
	}
	if err := c.BodyParser(&in); err != nil {
		return newAppError(fiber.StatusBadRequest, "invalid request body")
	}
	if in.Password != nil || in.PasswordConfirm != nil {
		return newAppError(fiber.StatusBadRequest, "this route is not for password updates, please use /updatePassword")
	}

	update := domain.ProfileUpdate{
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Email:     in.Email,
		About:     in.About,
	}
	if url := s.uploadPhoto(c); url != "" {
		update.Picture = &url
	}
	update.Normalize()
	if err := update.Validate(); err != nil {
		return err
	}

	u, err := s.Store.UpdateUser(c.UserContext(), currentUser(c).ID, update)
	if err != nil {
		return err
	}
	return success(c, fiber.StatusOK, fiber.Map{"data": fiber.Map{"user": u}})
}

// uploadPhoto pushes the optional multipart "photo" to the image host.
// Failures are logged and the profile update goes ahead without it.
func (s *server) uploadPhoto(c *fiber.Ctx) string {
	fh, err := c.FormFile("photo")
	if err != nil {
		return ""
	}
	f, err := fh.Open()
	if err != nil {
		s.Log.Warn("open photo", zap.Error(err))
		return ""
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		s.Log.Warn("read photo", zap.Error(err))
		return ""
	}
	url, err := s.Uploader.Upload(c.UserContext(), fh.Filename, data)
	if err != nil {
		s.Log.Warn("photo upload failed", zap.String("user", currentUser(c).ID), zap.Error(err))
		return ""
	}
	return url
}

func (s *server) deleteMe(c *fiber.Ctx) error {
	var in struct {
		Password string `json:"password"`
	}
	if err := c.BodyParser(&in); err != nil || in.Password == "" {
		return newAppError(fiber.StatusBadRequest, "please provide your password")
	}
	if err := s.Auth.DeleteAccount(c.UserContext(), currentUser(c).ID, in.Password); err != nil {
		return err
	}
	s.clearCookie(c)
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *server) updatePassword(c *fiber.Ctx) error {
	var in struct {
		CurrentPass     string `json:"currentPass"`
		Password        string `json:"password"`
		PasswordConfirm string `json:"passwordConfirm"`
	}
	if err := c.BodyParser(&in); err != nil {
		return newAppError(fiber.StatusBadRequest, "invalid request body")
	}
	u, tok, err := s.Auth.ChangePassword(c.UserContext(), currentUser(c).ID, in.CurrentPass, in.Password, in.PasswordConfirm)
	if err != nil {
		return err
	}
	return s.sendToken(c, fiber.StatusOK, u, tok)
}
