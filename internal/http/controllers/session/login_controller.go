package session

import (
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	dto "github.com/dropDatabas3/hellojohn-oidc/internal/http/dto/session"
	httperrors "github.com/dropDatabas3/hellojohn-oidc/internal/http/errors"
	svc "github.com/dropDatabas3/hellojohn-oidc/internal/http/services/session"
	"github.com/dropDatabas3/hellojohn-oidc/internal/observability/logger"
	"github.com/dropDatabas3/hellojohn-oidc/internal/validation"
)

// LoginController maneja POST /connect/login.
type LoginController struct {
	service  svc.LoginService
	cookie   dto.CookieConfig
	validate *validator.Validate
}

// NewLoginController crea el controller de login.
func NewLoginController(s svc.LoginService, cookie dto.CookieConfig) *LoginController {
	if cookie.Name == "" {
		cookie.Name = "sid"
	}
	return &LoginController{service: s, cookie: cookie, validate: validation.New()}
}

type loginResponse struct {
	Subject   string    `json:"sub"`
	ExpiresAt time.Time `json:"expires_at"`
	ReturnTo  string    `json:"return_to,omitempty"`
}

// Login acepta form (desde la página de login) o JSON.
// Form con return_to redirige; JSON responde el resultado.
func (c *LoginController) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("LoginController.Login"))

	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		httperrors.WriteError(w, httperrors.ErrMethodNotAllowed)
		return
	}

	var req dto.LoginRequest
	isJSON := false
	if ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type")); ct == "application/json" {
		isJSON = true
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				httperrors.WriteError(w, httperrors.ErrBodyTooLarge)
				return
			}
			httperrors.WriteError(w, httperrors.ErrBadRequest.WithDetail("invalid JSON body"))
			return
		}
	} else {
		if err := r.ParseForm(); err != nil {
			httperrors.WriteError(w, httperrors.ErrBadRequest.WithDetail("malformed form body"))
			return
		}
		req = dto.LoginRequest{
			Login:    r.PostForm.Get("login"),
			Password: r.PostForm.Get("password"),
			ReturnTo: r.PostForm.Get("return_to"),
		}
		if req.ReturnTo == "" {
			req.ReturnTo = r.URL.Query().Get("return_to")
		}
	}

	if err := c.validate.Struct(req); err != nil {
		httperrors.WriteError(w, httperrors.ErrMissingFields.WithDetail("login and password are required"))
		return
	}

	res, err := c.service.Login(ctx, req)
	if err != nil {
		httperrors.WriteError(w, mapLoginError(err))
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     c.cookie.Name,
		Value:    res.SessionID,
		Path:     "/",
		Domain:   c.cookie.Domain,
		Expires:  res.ExpiresAt,
		HttpOnly: true,
		Secure:   c.cookie.Secure,
		SameSite: svc.ParseSameSite(c.cookie.SameSite),
	})
	w.Header().Set("Cache-Control", "no-store")
	log.Debug("session opened", logger.Subject(res.Subject))

	if !isJSON && res.ReturnTo != "" {
		http.Redirect(w, r, res.ReturnTo, http.StatusFound)
		return
	}
	httperrors.WriteJSON(w, http.StatusOK, loginResponse{Subject: res.Subject, ExpiresAt: res.ExpiresAt, ReturnTo: res.ReturnTo})
}

func mapLoginError(err error) *httperrors.AppError {
	switch {
	case errors.Is(err, svc.ErrMissingCredentials):
		return httperrors.ErrMissingFields.WithDetail("login and password are required")
	case errors.Is(err, svc.ErrInvalidCredentials):
		return httperrors.ErrInvalidCredentials
	case errors.Is(err, svc.ErrLockedOut):
		return httperrors.ErrUserLocked
	case errors.Is(err, svc.ErrNotAllowed):
		return httperrors.ErrUserDisabled
	case errors.Is(err, svc.ErrInvalidReturnTo):
		return httperrors.ErrBadRequest.WithDetail("return_to must be a relative path")
	default:
		return httperrors.ErrInternalServerError.WithCause(err)
	}
}
