// Package handler contains HTTP handlers for the Artisia application.
//
// This file implements authentication handlers for user registration, login,
// logout, email verification and password reset.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tbouquin/artisia/internal/csrf"
	"github.com/tbouquin/artisia/internal/domain"
	"github.com/tbouquin/artisia/internal/email"
	"github.com/tbouquin/artisia/internal/invite"
	"github.com/tbouquin/artisia/internal/service"
	"github.com/tbouquin/artisia/internal/session"
)

// =============================================================================
// Handler Configuration
// =============================================================================

// TemplateRenderer is the interface for rendering HTML templates.
// This interface allows for mocking in tests.
type TemplateRenderer interface {
	RenderHTTP(w http.ResponseWriter, name string, data interface{})
	RenderHTTPWithToast(w http.ResponseWriter, name string, data interface{}, toast ToastData)
	RenderPartial(w http.ResponseWriter, name string, data interface{})
}

// AuthHandler handles authentication-related HTTP requests.
type AuthHandler struct {
	userService     service.UserService
	emailService    email.EmailService
	inviteValidator *invite.Validator
	renderer        TemplateRenderer
	logger          *slog.Logger
	isSecure        bool
}

// NewAuthHandler creates a new AuthHandler with the required dependencies.
// isSecure should be true in production (enables the Secure cookie flag).
func NewAuthHandler(
	userService service.UserService,
	emailService email.EmailService,
	inviteValidator *invite.Validator,
	renderer TemplateRenderer,
	logger *slog.Logger,
	isSecure bool,
) *AuthHandler {
	return &AuthHandler{
		userService:     userService,
		emailService:    emailService,
		inviteValidator: inviteValidator,
		renderer:        renderer,
		logger:          logger,
		isSecure:        isSecure,
	}
}

// =============================================================================
// Template Data Types
// =============================================================================

// Flash represents a flash message to display to the user.
//
// The Type field determines styling in templates:
// - "success" -> green background
// - "error"   -> red background
// - "info"    -> blue background
type Flash struct {
	Type    string // "success", "error", or "info"
	Message string
}

// AuthPageData contains common data for authentication pages.
type AuthPageData struct {
	CurrentPath        string            // Current URL path for navigation highlighting
	CSRFToken          string            // CSRF token for form protection
	Form               map[string]string // Form field values for re-populating on error
	Errors             map[string]string // Field-level validation errors
	Flash              *Flash            // Flash message to display
	ReturnTo           string            // URL to redirect to after successful login
	InviteCodesEnabled bool              // Whether invite codes are required
}

// =============================================================================
// GET /register - Show Registration Form
// =============================================================================

// ShowRegister renders the registration form.
func (h *AuthHandler) ShowRegister(w http.ResponseWriter, r *http.Request) {
	data := AuthPageData{
		CurrentPath:        r.URL.Path,
		CSRFToken:          csrf.EnsureToken(w, r, h.isSecure),
		Form:               make(map[string]string),
		Errors:             make(map[string]string),
		ReturnTo:           r.URL.Query().Get("return_to"),
		InviteCodesEnabled: h.inviteValidator.IsEnabled(),
	}

	h.renderer.RenderHTTP(w, "auth/register", data)
}

// =============================================================================
// POST /register - Process Registration
// =============================================================================

// Register processes the registration form submission.
//
// On success the user is created, a verification email is sent
// asynchronously and the user is logged in right away. On error the form
// is re-rendered with the original values (passwords excepted).
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.logger.Error("failed to parse form", "error", err)
		h.renderRegisterError(w, r, nil, nil, &Flash{
			Type:    "error",
			Message: "Formulaire invalide. Veuillez réessayer.",
		})
		return
	}

	name := strings.TrimSpace(r.FormValue("name"))
	emailAddr := strings.ToLower(strings.TrimSpace(r.FormValue("email")))
	password := r.FormValue("password")
	passwordConfirmation := r.FormValue("password_confirmation")
	terms := r.FormValue("terms")
	inviteCode := strings.TrimSpace(r.FormValue("invite_code"))
	returnTo := r.FormValue("return_to")

	// Never seed passwords back into the form
	formValues := map[string]string{
		"Name":       name,
		"Email":      emailAddr,
		"InviteCode": inviteCode,
	}

	if !csrf.ValidateRequest(r) {
		h.renderRegisterError(w, r, formValues, nil, &Flash{
			Type:    "error",
			Message: "Jeton de sécurité invalide. Veuillez réessayer.",
		})
		return
	}

	errors := make(map[string]string)

	if name == "" {
		errors["name"] = "Le nom est requis"
	}

	if emailAddr == "" {
		errors["email"] = "L'email est requis"
	} else if !isValidEmail(emailAddr) {
		errors["email"] = "Veuillez saisir une adresse email valide"
	}

	if password == "" {
		errors["password"] = "Le mot de passe est requis"
	} else if len(password) < 8 {
		errors["password"] = "Le mot de passe doit contenir au moins 8 caractères"
	}

	if passwordConfirmation == "" {
		errors["password_confirmation"] = "Veuillez confirmer votre mot de passe"
	} else if password != passwordConfirmation {
		errors["password_confirmation"] = "Les mots de passe ne correspondent pas"
	}

	if terms != "on" {
		errors["terms"] = "Vous devez accepter les conditions d'utilisation"
	}

	if h.inviteValidator.IsEnabled() {
		if inviteCode == "" {
			errors["invite_code"] = "Le code d'invitation est requis"
		} else if !h.inviteValidator.ValidateCode(inviteCode) {
			errors["invite_code"] = "Code d'invitation invalide"
		}
	}

	if len(errors) > 0 {
		h.renderRegisterError(w, r, formValues, errors, nil)
		return
	}

	user, err := h.userService.Register(r.Context(), domain.RegisterParams{
		Email:    emailAddr,
		Password: password,
		Name:     name,
	})
	if err != nil {
		switch domain.ErrorCode(err) {
		case domain.ECONFLICT:
			errors["email"] = "Un compte existe déjà avec cet email"
			h.renderRegisterError(w, r, formValues, errors, nil)
		case domain.EINVALID:
			h.renderRegisterError(w, r, formValues, nil, &Flash{
				Type:    "error",
				Message: domain.ErrorMessage(err),
			})
		default:
			h.logger.Error("registration failed", "error", err, "email", emailAddr)
			h.renderRegisterError(w, r, formValues, nil, &Flash{
				Type:    "error",
				Message: "L'inscription a échoué. Veuillez réessayer plus tard.",
			})
		}
		return
	}

	go h.sendVerificationEmail(r.Context(), user.ID, user.Email, user.Name)

	// Registration successful, log the user in automatically
	loginResult, err := h.userService.Login(r.Context(), emailAddr, password)
	if err != nil {
		h.logger.Error("auto-login after registration failed", "error", err, "email", emailAddr)
		http.Redirect(w, r, "/login?registered=1", http.StatusSeeOther)
		return
	}

	setSessionCookie(w, loginResult.Token, h.isSecure)

	h.logger.Info("user registered and logged in",
		"user_id", loginResult.User.ID,
		"email", loginResult.User.Email,
	)

	redirectURL := "/dashboard"
	if returnTo != "" && isSafeRedirectURL(returnTo) {
		redirectURL = returnTo
	}
	http.Redirect(w, r, redirectURL, http.StatusSeeOther)
}

// renderRegisterError re-renders the registration form with errors.
func (h *AuthHandler) renderRegisterError(
	w http.ResponseWriter,
	r *http.Request,
	formValues map[string]string,
	errors map[string]string,
	flash *Flash,
) {
	if formValues == nil {
		formValues = make(map[string]string)
	}
	if errors == nil {
		errors = make(map[string]string)
	}

	data := AuthPageData{
		CurrentPath:        "/register",
		CSRFToken:          csrf.RefreshToken(w, h.isSecure),
		Form:               formValues,
		Errors:             errors,
		Flash:              flash,
		ReturnTo:           r.FormValue("return_to"),
		InviteCodesEnabled: h.inviteValidator.IsEnabled(),
	}

	h.renderer.RenderHTTP(w, "auth/register", data)
}

// =============================================================================
// GET /login - Show Login Form
// =============================================================================

// ShowLogin renders the login form. The registered/reset/logout query
// params trigger the matching success flash after a redirect.
func (h *AuthHandler) ShowLogin(w http.ResponseWriter, r *http.Request) {
	var flash *Flash
	if r.URL.Query().Get("registered") == "1" {
		flash = &Flash{
			Type:    "success",
			Message: "Compte créé ! Vous pouvez maintenant vous connecter.",
		}
	} else if r.URL.Query().Get("reset") == "1" {
		flash = &Flash{
			Type:    "success",
			Message: "Mot de passe réinitialisé ! Connectez-vous avec votre nouveau mot de passe.",
		}
	} else if r.URL.Query().Get("logout") == "1" {
		flash = &Flash{
			Type:    "success",
			Message: "Vous avez été déconnecté.",
		}
	}

	data := AuthPageData{
		CurrentPath: r.URL.Path,
		CSRFToken:   csrf.EnsureToken(w, r, h.isSecure),
		Form:        make(map[string]string),
		Errors:      make(map[string]string),
		Flash:       flash,
		ReturnTo:    r.URL.Query().Get("return_to"),
	}

	h.renderer.RenderHTTP(w, "auth/login", data)
}

// =============================================================================
// POST /login - Process Login
// =============================================================================

// Login processes the login form submission.
//
// Invalid credentials always produce the same generic message so the
// response does not reveal whether the email exists.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.logger.Error("failed to parse form", "error", err)
		h.renderLoginError(w, r, nil, nil, &Flash{
			Type:    "error",
			Message: "Formulaire invalide. Veuillez réessayer.",
		})
		return
	}

	emailAddr := strings.ToLower(strings.TrimSpace(r.FormValue("email")))
	password := r.FormValue("password")
	returnTo := r.FormValue("return_to")

	formValues := map[string]string{
		"Email": emailAddr,
	}

	if !csrf.ValidateRequest(r) {
		h.renderLoginError(w, r, formValues, nil, &Flash{
			Type:    "error",
			Message: "Jeton de sécurité invalide. Veuillez réessayer.",
		})
		return
	}

	errors := make(map[string]string)

	if emailAddr == "" {
		errors["email"] = "L'email est requis"
	}

	if password == "" {
		errors["password"] = "Le mot de passe est requis"
	}

	if len(errors) > 0 {
		h.renderLoginError(w, r, formValues, errors, nil)
		return
	}

	loginResult, err := h.userService.Login(r.Context(), emailAddr, password)
	if err != nil {
		switch domain.ErrorCode(err) {
		case domain.EUNAUTHORIZED:
			h.renderLoginError(w, r, formValues, nil, &Flash{
				Type:    "error",
				Message: "Email ou mot de passe incorrect",
			})
		default:
			h.logger.Error("login failed", "error", err, "email", emailAddr)
			h.renderLoginError(w, r, formValues, nil, &Flash{
				Type:    "error",
				Message: "La connexion a échoué. Veuillez réessayer plus tard.",
			})
		}
		return
	}

	setSessionCookie(w, loginResult.Token, h.isSecure)

	h.logger.Info("user logged in",
		"user_id", loginResult.User.ID,
		"email", loginResult.User.Email,
	)

	redirectURL := "/dashboard"
	if returnTo != "" && isSafeRedirectURL(returnTo) {
		redirectURL = returnTo
	}
	http.Redirect(w, r, redirectURL, http.StatusSeeOther)
}

// renderLoginError re-renders the login form with errors.
func (h *AuthHandler) renderLoginError(
	w http.ResponseWriter,
	r *http.Request,
	formValues map[string]string,
	errors map[string]string,
	flash *Flash,
) {
	if formValues == nil {
		formValues = make(map[string]string)
	}
	if errors == nil {
		errors = make(map[string]string)
	}

	data := AuthPageData{
		CurrentPath: "/login",
		CSRFToken:   csrf.RefreshToken(w, h.isSecure),
		Form:        formValues,
		Errors:      errors,
		Flash:       flash,
		ReturnTo:    r.FormValue("return_to"),
	}

	h.renderer.RenderHTTP(w, "auth/login", data)
}

// =============================================================================
// POST /logout - Process Logout
// =============================================================================

// Logout invalidates the user's session and clears the session cookie.
// The operation is idempotent; the cookie is cleared even when the
// database logout fails.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(session.CookieName)
	if err == nil && cookie.Value != "" {
		if err := h.userService.Logout(r.Context(), cookie.Value); err != nil {
			h.logger.Warn("failed to invalidate session in database", "error", err)
		}
	}

	clearSessionCookie(w, h.isSecure)

	h.logger.Debug("user logged out")

	http.Redirect(w, r, "/login?logout=1", http.StatusSeeOther)
}

// =============================================================================
// Email Helpers
// =============================================================================

// sendVerificationEmail creates a verification token and sends the
// verification email. Runs in its own goroutine with a detached context
// so a slow SMTP server never blocks the HTTP response.
func (h *AuthHandler) sendVerificationEmail(_ context.Context, userID uuid.UUID, emailAddr, name string) {
	asyncCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	result, err := h.userService.CreateEmailVerificationToken(asyncCtx, userID)
	if err != nil {
		h.logger.Error("failed to create verification token",
			"error", err,
			"user_id", userID,
			"email", emailAddr,
		)
		return
	}

	if err := h.emailService.SendVerificationEmail(asyncCtx, emailAddr, name, result.Token); err != nil {
		h.logger.Error("failed to send verification email",
			"error", err,
			"user_id", userID,
			"email", emailAddr,
		)
		return
	}

	h.logger.Info("verification email sent",
		"user_id", userID,
		"email", emailAddr,
	)
}

// =============================================================================
// Session Cookie Helpers
// =============================================================================

// setSessionCookie sets the session cookie on the response.
//
// Cookie settings:
// - HttpOnly: true - not readable from JavaScript
// - Secure: true in production (HTTPS only)
// - SameSite: Lax - blocks cross-site POSTs while allowing normal navigation
func setSessionCookie(w http.ResponseWriter, token string, isSecure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     session.CookieName,
		Value:    token,
		Path:     session.CookiePath,
		MaxAge:   session.CookieMaxAge,
		HttpOnly: true,
		Secure:   isSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// clearSessionCookie removes the session cookie from the client.
func clearSessionCookie(w http.ResponseWriter, isSecure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     session.CookieName,
		Value:    "",
		Path:     session.CookiePath,
		MaxAge:   -1, // Delete immediately
		HttpOnly: true,
		Secure:   isSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// =============================================================================
// Helper Functions
// =============================================================================

// isValidEmail performs basic email format validation. The UserService
// performs the thorough validation; this only gives immediate feedback.
func isValidEmail(email string) bool {
	atIndex := strings.Index(email, "@")
	if atIndex < 1 {
		return false
	}
	if atIndex >= len(email)-1 {
		return false
	}

	domainPart := email[atIndex+1:]
	return strings.Contains(domainPart, ".")
}

// isSafeRedirectURL checks if a URL is safe to redirect to, preventing
// open redirects: the URL must be relative, not protocol-relative, and
// carry no scheme or host.
func isSafeRedirectURL(rawURL string) bool {
	if !strings.HasPrefix(rawURL, "/") {
		return false
	}
	if strings.HasPrefix(rawURL, "//") {
		return false
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}

	return parsed.Scheme == "" && parsed.Host == ""
}

// =============================================================================
// Route Registration
// =============================================================================

// RegisterRoutes registers all auth routes on the provided ServeMux.
// The limit middleware is applied to credential-bearing POST endpoints
// to slow down brute-force attempts.
func (h *AuthHandler) RegisterRoutes(mux *http.ServeMux, limit func(http.Handler) http.Handler) {
	mux.HandleFunc("GET /register", h.ShowRegister)
	mux.Handle("POST /register", limit(http.HandlerFunc(h.Register)))
	mux.HandleFunc("GET /login", h.ShowLogin)
	mux.Handle("POST /login", limit(http.HandlerFunc(h.Login)))
	mux.HandleFunc("POST /logout", h.Logout)

	// Email verification
	mux.HandleFunc("GET /verify-email", h.ShowVerifyEmail)
	mux.HandleFunc("GET /resend-verification", h.ShowResendVerification)
	mux.Handle("POST /resend-verification", limit(http.HandlerFunc(h.ResendVerification)))

	// Password reset
	mux.HandleFunc("GET /forgot-password", h.ShowForgotPassword)
	mux.Handle("POST /forgot-password", limit(http.HandlerFunc(h.ForgotPassword)))
	mux.HandleFunc("GET /reset-password", h.ShowResetPassword)
	mux.Handle("POST /reset-password", limit(http.HandlerFunc(h.ResetPassword)))
}

// =============================================================================
// GET /verify-email - Verify Email Token
// =============================================================================

// ShowVerifyEmail handles the email verification link click. This is a
// GET handler because email links must be clickable; the token is
// validated server-side.
func (h *AuthHandler) ShowVerifyEmail(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		h.renderVerifyEmailError(w, r, "Lien de vérification invalide. Vérifiez le lien reçu par email.")
		return
	}

	err := h.userService.VerifyEmail(r.Context(), token)
	if err != nil {
		switch domain.ErrorCode(err) {
		case domain.ENOTFOUND:
			h.renderVerifyEmailError(w, r, "Ce lien de vérification a expiré ou est invalide. Demandez un nouvel email de vérification.")
		case domain.ECONFLICT:
			h.renderVerifyEmailSuccess(w, r, "Votre email est déjà vérifié. Vous pouvez vous connecter.")
		default:
			h.logger.Error("email verification failed", "error", err)
			h.renderVerifyEmailError(w, r, "La vérification a échoué. Veuillez réessayer plus tard.")
		}
		return
	}

	h.renderVerifyEmailSuccess(w, r, "Votre email a été vérifié ! Vous pouvez maintenant vous connecter.")
}

// VerifyEmailPageData contains data for the verify email template.
type VerifyEmailPageData struct {
	CurrentPath string
	Success     bool   // true = verification succeeded, false = error
	Message     string // Success or error message
	CanResend   bool   // Show resend verification option
	Flash       *Flash // Required by auth layout
}

func (h *AuthHandler) renderVerifyEmailSuccess(w http.ResponseWriter, r *http.Request, message string) {
	data := VerifyEmailPageData{
		CurrentPath: r.URL.Path,
		Success:     true,
		Message:     message,
	}
	h.renderer.RenderHTTP(w, "auth/verify_email", data)
}

func (h *AuthHandler) renderVerifyEmailError(w http.ResponseWriter, r *http.Request, message string) {
	data := VerifyEmailPageData{
		CurrentPath: r.URL.Path,
		Success:     false,
		Message:     message,
		CanResend:   true,
	}
	h.renderer.RenderHTTP(w, "auth/verify_email", data)
}

// =============================================================================
// Resend Verification
// =============================================================================

// ResendVerificationPageData contains data for the resend verification template.
type ResendVerificationPageData struct {
	CurrentPath string
	CSRFToken   string
	Form        map[string]string
	Errors      map[string]string
	Flash       *Flash
	Success     bool
	Message     string
}

// ShowResendVerification renders the resend verification form.
func (h *AuthHandler) ShowResendVerification(w http.ResponseWriter, r *http.Request) {
	data := ResendVerificationPageData{
		CurrentPath: r.URL.Path,
		CSRFToken:   csrf.EnsureToken(w, r, h.isSecure),
		Form:        make(map[string]string),
		Errors:      make(map[string]string),
	}
	h.renderer.RenderHTTP(w, "auth/resend_verification", data)
}

// ResendVerification handles requests to resend the verification email.
// The response is identical whether or not the account exists, which
// prevents email enumeration.
func (h *AuthHandler) ResendVerification(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderResendVerificationError(w, r, "Formulaire invalide")
		return
	}

	emailAddr := strings.ToLower(strings.TrimSpace(r.FormValue("email")))
	if emailAddr == "" {
		h.renderResendVerificationError(w, r, "L'email est requis")
		return
	}

	result, err := h.userService.ResendVerificationEmail(r.Context(), emailAddr)
	if err != nil {
		h.logger.Debug("resend verification failed", "error", err, "email", emailAddr)
	} else {
		user, err := h.userService.GetByID(r.Context(), result.UserID)
		if err != nil {
			h.logger.Error("failed to get user for resend verification", "error", err, "user_id", result.UserID)
		} else {
			go func() {
				ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				defer cancel()

				if err := h.emailService.SendVerificationEmail(ctx, emailAddr, user.Name, result.Token); err != nil {
					h.logger.Error("failed to send verification email", "error", err, "email", emailAddr)
				} else {
					h.logger.Info("verification email sent", "email", emailAddr)
				}
			}()
		}
	}

	h.renderResendVerificationSuccess(w, r)
}

func (h *AuthHandler) renderResendVerificationSuccess(w http.ResponseWriter, r *http.Request) {
	data := ResendVerificationPageData{
		CurrentPath: r.URL.Path,
		Success:     true,
		Message:     "Si un compte existe avec cet email, un lien de vérification a été envoyé.",
		Form:        make(map[string]string),
		Errors:      make(map[string]string),
	}
	h.renderer.RenderHTTP(w, "auth/resend_verification", data)
}

func (h *AuthHandler) renderResendVerificationError(w http.ResponseWriter, r *http.Request, message string) {
	data := ResendVerificationPageData{
		CurrentPath: r.URL.Path,
		Success:     false,
		Message:     message,
		Form:        make(map[string]string),
		Errors:      make(map[string]string),
		Flash: &Flash{
			Type:    "error",
			Message: message,
		},
	}
	h.renderer.RenderHTTP(w, "auth/resend_verification", data)
}

// =============================================================================
// Forgot Password
// =============================================================================

// ForgotPasswordPageData contains data for the forgot password template.
type ForgotPasswordPageData struct {
	CurrentPath string
	CSRFToken   string
	Form        map[string]string
	Errors      map[string]string
	Flash       *Flash
}

// ShowForgotPassword renders the forgot password form.
func (h *AuthHandler) ShowForgotPassword(w http.ResponseWriter, r *http.Request) {
	data := ForgotPasswordPageData{
		CurrentPath: r.URL.Path,
		CSRFToken:   csrf.EnsureToken(w, r, h.isSecure),
		Form:        make(map[string]string),
		Errors:      make(map[string]string),
	}

	h.renderer.RenderHTTP(w, "auth/forgot_password", data)
}

// ForgotPassword processes the forgot password form submission. The
// response never reveals whether the email exists.
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.logger.Error("failed to parse form", "error", err)
		h.renderForgotPasswordError(w, r, nil, nil, &Flash{
			Type:    "error",
			Message: "Formulaire invalide. Veuillez réessayer.",
		})
		return
	}

	emailAddr := strings.ToLower(strings.TrimSpace(r.FormValue("email")))

	formValues := map[string]string{
		"Email": emailAddr,
	}

	if emailAddr == "" {
		h.renderForgotPasswordError(w, r, formValues, map[string]string{
			"email": "L'email est requis",
		}, nil)
		return
	}

	if !isValidEmail(emailAddr) {
		h.renderForgotPasswordError(w, r, formValues, map[string]string{
			"email": "Veuillez saisir une adresse email valide",
		}, nil)
		return
	}

	result, err := h.userService.CreatePasswordResetToken(r.Context(), emailAddr)
	if err != nil {
		h.logger.Debug("password reset token creation failed", "error", err, "email", emailAddr)
	} else {
		user, err := h.userService.GetByID(r.Context(), result.UserID)
		if err != nil {
			h.logger.Error("failed to get user for password reset", "error", err, "user_id", result.UserID)
		} else {
			go func() {
				ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				defer cancel()

				if err := h.emailService.SendPasswordResetEmail(ctx, emailAddr, user.Name, result.Token); err != nil {
					h.logger.Error("failed to send password reset email", "error", err, "email", emailAddr)
				} else {
					h.logger.Info("password reset email sent", "email", emailAddr)
				}
			}()
		}
	}

	h.renderer.RenderHTTP(w, "auth/forgot_password_sent", map[string]interface{}{
		"CurrentPath": r.URL.Path,
	})
}

// renderForgotPasswordError re-renders the forgot password form with errors.
func (h *AuthHandler) renderForgotPasswordError(
	w http.ResponseWriter,
	r *http.Request,
	formValues map[string]string,
	errors map[string]string,
	flash *Flash,
) {
	if formValues == nil {
		formValues = make(map[string]string)
	}
	if errors == nil {
		errors = make(map[string]string)
	}

	data := ForgotPasswordPageData{
		CurrentPath: "/forgot-password",
		CSRFToken:   csrf.RefreshToken(w, h.isSecure),
		Form:        formValues,
		Errors:      errors,
		Flash:       flash,
	}

	h.renderer.RenderHTTP(w, "auth/forgot_password", data)
}

// =============================================================================
// Reset Password
// =============================================================================

// ResetPasswordPageData contains data for the reset password template.
type ResetPasswordPageData struct {
	CurrentPath string
	CSRFToken   string
	Token       string // The reset token from URL
	Form        map[string]string
	Errors      map[string]string
	Flash       *Flash
}

// ShowResetPassword renders the reset password form when the token is
// valid, or an error page with a link to request a new reset.
func (h *AuthHandler) ShowResetPassword(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		h.renderResetPasswordInvalid(w, r, "Lien de réinitialisation invalide. Vérifiez le lien reçu par email.")
		return
	}

	_, err := h.userService.ValidatePasswordResetToken(r.Context(), token)
	if err != nil {
		switch domain.ErrorCode(err) {
		case domain.ENOTFOUND, domain.EINVALID:
			h.renderResetPasswordInvalid(w, r, "Ce lien a expiré ou est invalide. Demandez une nouvelle réinitialisation.")
		default:
			h.logger.Error("password reset token validation failed", "error", err)
			h.renderResetPasswordInvalid(w, r, "Une erreur est survenue. Demandez une nouvelle réinitialisation.")
		}
		return
	}

	data := ResetPasswordPageData{
		CurrentPath: r.URL.Path,
		CSRFToken:   csrf.EnsureToken(w, r, h.isSecure),
		Token:       token,
		Form:        make(map[string]string),
		Errors:      make(map[string]string),
	}

	h.renderer.RenderHTTP(w, "auth/reset_password", data)
}

func (h *AuthHandler) renderResetPasswordInvalid(w http.ResponseWriter, r *http.Request, message string) {
	data := map[string]interface{}{
		"CurrentPath": r.URL.Path,
		"Message":     message,
	}
	h.renderer.RenderHTTP(w, "auth/reset_password_invalid", data)
}

// ResetPassword processes the password reset form submission. The token
// is re-validated inside the reset operation, and all existing sessions
// are invalidated after the password change.
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.logger.Error("failed to parse form", "error", err)
		h.renderResetPasswordInvalid(w, r, "Formulaire invalide. Veuillez réessayer.")
		return
	}

	token := r.FormValue("token")
	password := r.FormValue("password")
	passwordConfirmation := r.FormValue("password_confirmation")

	if token == "" {
		h.renderResetPasswordInvalid(w, r, "Lien de réinitialisation invalide. Demandez une nouvelle réinitialisation.")
		return
	}

	errors := make(map[string]string)

	if password == "" {
		errors["password"] = "Le mot de passe est requis"
	} else if len(password) < 8 {
		errors["password"] = "Le mot de passe doit contenir au moins 8 caractères"
	}

	if passwordConfirmation == "" {
		errors["password_confirmation"] = "Veuillez confirmer votre mot de passe"
	} else if password != passwordConfirmation {
		errors["password_confirmation"] = "Les mots de passe ne correspondent pas"
	}

	if len(errors) > 0 {
		data := ResetPasswordPageData{
			CurrentPath: "/reset-password",
			CSRFToken:   csrf.RefreshToken(w, h.isSecure),
			Token:       token,
			Form:        make(map[string]string),
			Errors:      errors,
		}
		h.renderer.RenderHTTP(w, "auth/reset_password", data)
		return
	}

	err := h.userService.ResetPassword(r.Context(), domain.ResetPasswordParams{
		Token:       token,
		NewPassword: password,
	})
	if err != nil {
		switch domain.ErrorCode(err) {
		case domain.ENOTFOUND:
			h.renderResetPasswordInvalid(w, r, "Ce lien a expiré ou est invalide. Demandez une nouvelle réinitialisation.")
		case domain.EINVALID:
			data := ResetPasswordPageData{
				CurrentPath: "/reset-password",
				CSRFToken:   csrf.RefreshToken(w, h.isSecure),
				Token:       token,
				Form:        make(map[string]string),
				Errors:      make(map[string]string),
				Flash: &Flash{
					Type:    "error",
					Message: domain.ErrorMessage(err),
				},
			}
			h.renderer.RenderHTTP(w, "auth/reset_password", data)
		default:
			h.logger.Error("password reset failed", "error", err)
			h.renderResetPasswordInvalid(w, r, "Une erreur est survenue. Veuillez réessayer.")
		}
		return
	}

	h.logger.Info("password reset completed")
	http.Redirect(w, r, "/login?reset=1", http.StatusSeeOther)
}
