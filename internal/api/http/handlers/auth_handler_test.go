package handlers

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/template/html/v2"
	"github.com/jackc/pgx/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/estates-web/internal/config"
	"github.com/spec-kit/estates-web/internal/domain"
	"github.com/spec-kit/estates-web/internal/service"
)

type memoryUserRepo struct {
	mu   sync.Mutex
	byID map[string]*domain.User
	seq  int
}

func newMemoryUserRepo() *memoryUserRepo {
	return &memoryUserRepo{byID: make(map[string]*domain.User)}
}

func (r *memoryUserRepo) Create(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	user.ID = fmt.Sprintf("u%d", r.seq)
	clone := *user
	r.byID[user.ID] = &clone
	return nil
}

func (r *memoryUserRepo) Update(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[user.ID]; !ok {
		return pgx.ErrNoRows
	}
	clone := *user
	r.byID[user.ID] = &clone
	return nil
}

func (r *memoryUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if user, ok := r.byID[id]; ok {
		clone := *user
		return &clone, nil
	}
	return nil, pgx.ErrNoRows
}

func (r *memoryUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.byID {
		if user.Email == email {
			clone := *user
			return &clone, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *memoryUserRepo) GetByToken(_ context.Context, token string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.byID {
		if user.Token != nil && *user.Token == token {
			clone := *user
			return &clone, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *memoryUserRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byID)
}

func newTestApp(t *testing.T) (*fiber.App, *memoryUserRepo, *service.AccountService) {
	t.Helper()

	cfg := config.Config{
		Auth: config.AuthConfig{
			JWTSecret:         "test-secret",
			SessionTTLMinutes: 60,
			BcryptCost:        bcrypt.MinCost,
		},
	}

	repo := newMemoryUserRepo()
	svc := service.NewAccountService(cfg, service.AccountDependencies{Users: repo})

	engine := html.New("../../../../views", ".html")
	app := fiber.New(fiber.Config{Views: engine, ViewsLayout: "layouts/main"})

	h := NewAuthHandler(svc)
	app.Get("/auth/login", h.ShowLogin)
	app.Post("/auth/login", h.Login)
	app.Get("/auth/registro", h.ShowRegister)
	app.Post("/auth/registro", h.Register)
	app.Get("/auth/confirmar/:token", h.Confirm)
	app.Get("/auth/olvide-password", h.ShowForgotPassword)
	app.Post("/auth/olvide-password", h.ForgotPassword)
	app.Get("/auth/olvide-password/:token", h.ShowResetPassword)
	app.Post("/auth/olvide-password/:token", h.ResetPassword)

	return app, repo, svc
}

func postForm(t *testing.T, app *fiber.App, path string, values url.Values) (*http.Response, string) {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test error: %v", err)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, string(body)
}

func get(t *testing.T, app *fiber.App, path string) (*http.Response, string) {
	t.Helper()

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, path, nil))
	if err != nil {
		t.Fatalf("app.Test error: %v", err)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, string(body)
}

func TestShowLoginRenders(t *testing.T) {
	t.Parallel()

	app, _, _ := newTestApp(t)
	resp, body := get(t, app, "/auth/login")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if !strings.Contains(body, "Iniciar Sesión") {
		t.Error("login page missing title")
	}
}

func TestLoginUnknownUserRendersDistinctMessage(t *testing.T) {
	t.Parallel()

	app, _, _ := newTestApp(t)
	resp, body := postForm(t, app, "/auth/login", url.Values{
		"email":      {"nadie@x.com"},
		"contrasena": {"abcde"},
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if !strings.Contains(body, "El Usuario no existe") {
		t.Errorf("body missing user-not-found message:\n%s", body)
	}
}

func TestLoginUnconfirmedBeatsWrongPassword(t *testing.T) {
	t.Parallel()

	app, _, svc := newTestApp(t)
	if _, err := svc.Register(context.Background(), "Ana", "ana@x.com", "12345678", "abcde"); err != nil {
		t.Fatalf("Register error: %v", err)
	}

	// correct password, still unconfirmed: the message must be the
	// not-confirmed one, not wrong-password
	_, body := postForm(t, app, "/auth/login", url.Values{
		"email":      {"ana@x.com"},
		"contrasena": {"abcde"},
	})
	if !strings.Contains(body, "La Cuenta no ha sido confirmada") {
		t.Errorf("body missing not-confirmed message:\n%s", body)
	}
	if strings.Contains(body, "La Contraseña es incorrecta") {
		t.Error("wrong-password message shown for unconfirmed account")
	}
}

func TestLoginSuccessSetsCookieAndRedirects(t *testing.T) {
	t.Parallel()

	app, _, svc := newTestApp(t)
	ctx := context.Background()
	user, err := svc.Register(ctx, "Ana", "ana@x.com", "12345678", "abcde")
	if err != nil {
		t.Fatalf("Register error: %v", err)
	}
	if _, err := svc.Confirm(ctx, *user.Token); err != nil {
		t.Fatalf("Confirm error: %v", err)
	}

	resp, _ := postForm(t, app, "/auth/login", url.Values{
		"email":      {"ana@x.com"},
		"contrasena": {"abcde"},
	})
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", resp.StatusCode)
	}
	if loc := resp.Header.Get("Location"); loc != "/" {
		t.Errorf("Location = %q, want /", loc)
	}

	var sessionCookie string
	for _, cookie := range resp.Cookies() {
		if cookie.Name == "_token" {
			sessionCookie = cookie.Value
			if !cookie.HttpOnly {
				t.Error("session cookie not HTTP-only")
			}
		}
	}
	if sessionCookie == "" {
		t.Fatal("no session cookie set")
	}
	if _, err := svc.SessionManager().Parse(sessionCookie); err != nil {
		t.Errorf("session cookie does not parse: %v", err)
	}
}

func TestRegisterMismatchedPasswordsCreatesNoUser(t *testing.T) {
	t.Parallel()

	app, repo, _ := newTestApp(t)
	_, body := postForm(t, app, "/auth/registro", url.Values{
		"nombre":             {"Ana"},
		"email":              {"ana@x.com"},
		"telefono":           {"12345678"},
		"contrasena":         {"abcde"},
		"repetir_contrasena": {"abcdf"},
	})
	if !strings.Contains(body, "Las contraseñas no son iguales") {
		t.Errorf("body missing mismatch message:\n%s", body)
	}
	// the failed form echoes name, email and phone, never the passwords
	if !strings.Contains(body, `value="Ana"`) || !strings.Contains(body, `value="12345678"`) {
		t.Error("re-rendered form does not echo submitted fields")
	}
	if strings.Contains(body, "abcde") {
		t.Error("re-rendered form leaks a password value")
	}
	if repo.count() != 0 {
		t.Errorf("user count = %d, want 0", repo.count())
	}
}

func TestRegisterDuplicateEmailKeepsSingleUser(t *testing.T) {
	t.Parallel()

	app, repo, _ := newTestApp(t)
	form := url.Values{
		"nombre":             {"Ana"},
		"email":              {"ana@x.com"},
		"telefono":           {"12345678"},
		"contrasena":         {"abcde"},
		"repetir_contrasena": {"abcde"},
	}

	_, body := postForm(t, app, "/auth/registro", form)
	if !strings.Contains(body, "Te hemos enviado un Email de Confirmación") {
		t.Errorf("first registration did not render the check-your-email page:\n%s", body)
	}

	_, body = postForm(t, app, "/auth/registro", form)
	if !strings.Contains(body, "El Email ya esta registrado") {
		t.Errorf("body missing duplicate-email message:\n%s", body)
	}
	if repo.count() != 1 {
		t.Errorf("user count = %d, want exactly 1", repo.count())
	}
}

func TestConfirmFlowEndToEnd(t *testing.T) {
	t.Parallel()

	app, repo, svc := newTestApp(t)
	user, err := svc.Register(context.Background(), "Ana", "ana@x.com", "12345678", "abcde")
	if err != nil {
		t.Fatalf("Register error: %v", err)
	}
	tokenValue := *user.Token

	_, body := get(t, app, "/auth/confirmar/"+tokenValue)
	if !strings.Contains(body, "La cuenta se confirmó correctamente") {
		t.Errorf("body missing confirmation success:\n%s", body)
	}

	stored, err := repo.GetByID(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("GetByID error: %v", err)
	}
	if !stored.Confirmed || stored.Token != nil {
		t.Errorf("persisted state confirmed=%v token=%v", stored.Confirmed, stored.Token)
	}

	// same link again: the consumed token falls into the error branch
	_, body = get(t, app, "/auth/confirmar/"+tokenValue)
	if !strings.Contains(body, "Hubo un error al confirmar la cuenta") {
		t.Errorf("second confirm did not render the error branch:\n%s", body)
	}
}

func TestForgotPasswordUnknownEmail(t *testing.T) {
	t.Parallel()

	app, _, _ := newTestApp(t)
	_, body := postForm(t, app, "/auth/olvide-password", url.Values{"email": {"nadie@x.com"}})
	if !strings.Contains(body, "El email no pertenece a ningún usuario") {
		t.Errorf("body missing unknown-email message:\n%s", body)
	}
}

func TestResetPasswordFlowEndToEnd(t *testing.T) {
	t.Parallel()

	app, _, svc := newTestApp(t)
	ctx := context.Background()
	user, err := svc.Register(ctx, "Ana", "ana@x.com", "12345678", "abcde")
	if err != nil {
		t.Fatalf("Register error: %v", err)
	}
	if _, err := svc.Confirm(ctx, *user.Token); err != nil {
		t.Fatalf("Confirm error: %v", err)
	}
	updated, err := svc.RequestPasswordReset(ctx, "ana@x.com")
	if err != nil {
		t.Fatalf("RequestPasswordReset error: %v", err)
	}
	resetToken := *updated.Token

	// the token gate renders the new-password form without consuming it
	_, body := get(t, app, "/auth/olvide-password/"+resetToken)
	if !strings.Contains(body, "contrasenaRepetida") {
		t.Errorf("gate did not render the new-password form:\n%s", body)
	}

	_, body = postForm(t, app, "/auth/olvide-password/"+resetToken, url.Values{
		"contrasena":         {"nueva"},
		"contrasenaRepetida": {"nueva"},
	})
	if !strings.Contains(body, "La Contraseña se guardó correctamente") {
		t.Errorf("reset completion did not render success:\n%s", body)
	}

	if _, _, _, err := svc.Authenticate(ctx, "ana@x.com", "nueva"); err != nil {
		t.Errorf("login with new password failed: %v", err)
	}
	if _, _, _, err := svc.Authenticate(ctx, "ana@x.com", "abcde"); err == nil {
		t.Error("old password still logs in after reset")
	}
}

func TestResetGateInvalidToken(t *testing.T) {
	t.Parallel()

	app, _, _ := newTestApp(t)
	_, body := get(t, app, "/auth/olvide-password/no-such-token")
	if !strings.Contains(body, "Hubo un error al validar tu información") {
		t.Errorf("invalid token did not render the error page:\n%s", body)
	}
}
