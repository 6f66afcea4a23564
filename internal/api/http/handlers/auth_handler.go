package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/estates-web/internal/api/dto"
	"github.com/spec-kit/estates-web/internal/auth"
	"github.com/spec-kit/estates-web/internal/service"
	apperrors "github.com/spec-kit/estates-web/pkg/util/errorutil"
)

// CSRFContextKey is where the csrf middleware stores the per-request token
// that rendered forms echo back in the _csrf field.
const CSRFContextKey = "csrf_token"

// AuthHandler renders the auth forms and drives the account flows. Every
// POST follows the same shape: validate, re-render the originating form
// with accumulated errors on failure, otherwise perform exactly one store
// mutation and respond.
type AuthHandler struct {
	accounts *service.AccountService
}

// NewAuthHandler constructs the handler.
func NewAuthHandler(accounts *service.AccountService) *AuthHandler {
	return &AuthHandler{accounts: accounts}
}

// ShowLogin handles GET /auth/login. Any stale session cookie is cleared so
// the form always starts from an anonymous state.
func (h *AuthHandler) ShowLogin(c *fiber.Ctx) error {
	auth.ClearSessionCookie(c)
	return c.Render("auth/login", h.pageData(c, "Iniciar Sesión", nil))
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var form dto.LoginForm
	if err := c.BodyParser(&form); err != nil {
		return apperrors.NewDomainError("BAD_FORM", "invalid form payload", fiber.StatusBadRequest)
	}

	if errs := form.Validate(); len(errs) > 0 {
		return c.Render("auth/login", h.pageData(c, "Iniciar Sesión", errs))
	}

	_, token, expiresAt, err := h.accounts.Authenticate(c.Context(), form.Email, form.Password)
	if err != nil {
		msg, known := loginErrorMessage(err)
		if !known {
			return err
		}
		return c.Render("auth/login", h.pageData(c, "Iniciar Sesión",
			[]dto.FieldError{{Message: msg}}))
	}

	auth.WriteSessionCookie(c, token, expiresAt)
	return c.Redirect("/", fiber.StatusSeeOther)
}

// ShowRegister handles GET /auth/registro.
func (h *AuthHandler) ShowRegister(c *fiber.Ctx) error {
	return c.Render("auth/registro", h.pageData(c, "Crear Cuenta", nil))
}

// Register handles POST /auth/registro. Validation failures echo back name,
// email and phone but never the passwords.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var form dto.RegisterForm
	if err := c.BodyParser(&form); err != nil {
		return apperrors.NewDomainError("BAD_FORM", "invalid form payload", fiber.StatusBadRequest)
	}

	if errs := form.Validate(); len(errs) > 0 {
		data := h.pageData(c, "Crear Cuenta", errs)
		data["Form"] = fiber.Map{"Nombre": form.Name, "Email": form.Email, "Telefono": form.Phone}
		return c.Render("auth/registro", data)
	}

	if _, err := h.accounts.Register(c.Context(), form.Name, form.Email, form.Phone, form.Password); err != nil {
		if errors.Is(err, service.ErrEmailTaken) {
			data := h.pageData(c, "Crear Cuenta",
				[]dto.FieldError{{Field: "email", Message: "El Email ya esta registrado"}})
			// duplicate-email re-render echoes name and email only
			data["Form"] = fiber.Map{"Nombre": form.Name, "Email": form.Email, "Telefono": ""}
			return c.Render("auth/registro", data)
		}
		return err
	}

	return c.Render("templates/mensaje", fiber.Map{
		"Title":   "Cuenta Creada Correctamente",
		"Message": "Te hemos enviado un Email de Confirmación, haz click en el enlace del Email",
	})
}

// Confirm handles GET /auth/confirmar/:token. A consumed or unknown token
// falls into the error branch of the same template family.
func (h *AuthHandler) Confirm(c *fiber.Ctx) error {
	tokenStr := c.Params("token")

	if _, err := h.accounts.Confirm(c.Context(), tokenStr); err != nil {
		if errors.Is(err, service.ErrTokenInvalid) {
			return c.Render("auth/confirmar", fiber.Map{
				"Title":   "Error al confirmar la cuenta",
				"Message": "Hubo un error al confirmar la cuenta. Intente de nuevo",
				"Error":   true,
			})
		}
		return err
	}

	return c.Render("auth/confirmar", fiber.Map{
		"Title":   "Cuenta Confirmada",
		"Message": "La cuenta se confirmó correctamente",
	})
}

// ShowForgotPassword handles GET /auth/olvide-password.
func (h *AuthHandler) ShowForgotPassword(c *fiber.Ctx) error {
	return c.Render("auth/olvide-password", h.pageData(c, "Recupera tu Contraseña", nil))
}

// ForgotPassword handles POST /auth/olvide-password.
func (h *AuthHandler) ForgotPassword(c *fiber.Ctx) error {
	var form dto.ForgotPasswordForm
	if err := c.BodyParser(&form); err != nil {
		return apperrors.NewDomainError("BAD_FORM", "invalid form payload", fiber.StatusBadRequest)
	}

	if errs := form.Validate(); len(errs) > 0 {
		return c.Render("auth/olvide-password", h.pageData(c, "Recupera tu acceso", errs))
	}

	if _, err := h.accounts.RequestPasswordReset(c.Context(), form.Email); err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			return c.Render("auth/olvide-password", h.pageData(c, "Recupera tu acceso",
				[]dto.FieldError{{Field: "email", Message: "El email no pertenece a ningún usuario"}}))
		}
		return err
	}

	return c.Render("templates/mensaje", fiber.Map{
		"Title":   "Restablece tu Contraseña",
		"Message": "Hemos enviado un email con las instrucciones",
	})
}

// ShowResetPassword handles GET /auth/olvide-password/:token, the read-only
// gate before the new-password form.
func (h *AuthHandler) ShowResetPassword(c *fiber.Ctx) error {
	tokenStr := c.Params("token")

	if _, err := h.accounts.VerifyResetToken(c.Context(), tokenStr); err != nil {
		if errors.Is(err, service.ErrTokenInvalid) {
			return c.Render("auth/confirmar", fiber.Map{
				"Title":   "Restablece tu Contraseña",
				"Message": "Hubo un error al validar tu información, intenta de nuevo",
				"Error":   true,
			})
		}
		return err
	}

	return c.Render("auth/reset-password", h.pageData(c, "Restablece tu contraseña", nil))
}

// ResetPassword handles POST /auth/olvide-password/:token.
func (h *AuthHandler) ResetPassword(c *fiber.Ctx) error {
	tokenStr := c.Params("token")

	var form dto.ResetPasswordForm
	if err := c.BodyParser(&form); err != nil {
		return apperrors.NewDomainError("BAD_FORM", "invalid form payload", fiber.StatusBadRequest)
	}

	if errs := form.Validate(); len(errs) > 0 {
		return c.Render("auth/reset-password", h.pageData(c, "Restablece tu contraseña", errs))
	}

	if err := h.accounts.CompleteReset(c.Context(), tokenStr, form.Password); err != nil {
		if errors.Is(err, service.ErrTokenInvalid) {
			return c.Render("auth/confirmar", fiber.Map{
				"Title":   "Restablece tu Contraseña",
				"Message": "Hubo un error al validar tu información, intenta de nuevo",
				"Error":   true,
			})
		}
		return err
	}

	return c.Render("auth/confirmar", fiber.Map{
		"Title":   "Contraseña Restablecida",
		"Message": "La Contraseña se guardó correctamente",
	})
}

// Logout handles GET /auth/logout.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	auth.ClearSessionCookie(c)
	return c.Redirect("/auth/login", fiber.StatusSeeOther)
}

func (h *AuthHandler) pageData(c *fiber.Ctx, title string, errs []dto.FieldError) fiber.Map {
	data := fiber.Map{"Title": title, "CSRFToken": ""}
	if token, ok := c.Locals(CSRFContextKey).(string); ok {
		data["CSRFToken"] = token
	}
	if len(errs) > 0 {
		data["Errors"] = errs
	}
	return data
}

// loginErrorMessage maps the sequential login checks to their distinct
// user-visible messages, in check order: existence, confirmation, password.
func loginErrorMessage(err error) (string, bool) {
	switch {
	case errors.Is(err, service.ErrUserNotFound):
		return "El Usuario no existe", true
	case errors.Is(err, service.ErrNotConfirmed):
		return "La Cuenta no ha sido confirmada", true
	case errors.Is(err, service.ErrInvalidPassword):
		return "La Contraseña es incorrecta", true
	default:
		return "", false
	}
}
