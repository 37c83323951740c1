package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/md-rashed-zaman/apptbook/libs/auth"
	"github.com/md-rashed-zaman/apptbook/libs/httpx"
	"github.com/md-rashed-zaman/apptbook/services/auth-service/internal/storage"
)

const minPasswordLength = 6

// bcrypt refuses passwords longer than 72 bytes.
const maxPasswordBytes = 72

// UserStore is implemented by storage.UserRepository and storage.MemoryUserRepository.
type UserStore interface {
	Create(ctx context.Context, user *storage.User) error
	GetByEmail(ctx context.Context, email string) (storage.User, error)
	GetByID(ctx context.Context, id string) (storage.User, error)
}

type AuthHandler struct {
	users    UserStore
	secret   string
	tokenTTL time.Duration
	validate *validator.Validate
	logger   *slog.Logger
}

func NewAuthHandler(users UserStore, secret string, tokenTTL time.Duration, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		users:    users,
		secret:   secret,
		tokenTTL: tokenTTL,
		validate: newValidator(),
		logger:   logger,
	}
}

type signupRequest struct {
	Name                 string `json:"name" validate:"required"`
	Email                string `json:"email" validate:"required,email"`
	Password             string `json:"password" validate:"required,min=6,bcryptlen"`
	PasswordConfirmation string `json:"password_confirmation" validate:"omitempty,eqfield=Password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type tokenResponse struct {
	Token string       `json:"token"`
	User  userResponse `json:"user"`
}

// Routes mounts signup and login publicly and /me behind requireAuth.
func (h *AuthHandler) Routes(r chi.Router, requireAuth func(http.Handler) http.Handler) {
	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Post("/signup", h.Signup)
		r.Post("/login", h.Login)
		r.With(requireAuth).Get("/me", h.Me)
	})
}

func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)

	if err := h.validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			httpx.WriteError(w, http.StatusInternalServerError, "failed to validate request")
			return
		}
		writeErrors(w, signupMessages(verrs))
		return
	}

	hash, err := hashPassword(req.Password)
	if err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, "failed to hash password")
		return
	}
	user := storage.User{Name: req.Name, Email: req.Email, PasswordHash: hash}
	if err := h.users.Create(r.Context(), &user); err != nil {
		if errors.Is(err, storage.ErrEmailTaken) {
			writeErrors(w, []string{"Email has already been taken"})
			return
		}
		h.logger.Error("create user failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "failed to create user")
		return
	}
	h.logger.Info("user signed up", "user_id", user.ID)
	h.writeToken(w, http.StatusCreated, user)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid json body")
		return
	}

	user, err := h.users.GetByEmail(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			httpx.WriteError(w, http.StatusUnauthorized, "Invalid credentials")
			return
		}
		h.logger.Error("lookup user failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "failed to lookup user")
		return
	}
	if err := verifyPassword(user.PasswordHash, req.Password); err != nil {
		httpx.WriteError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	h.writeToken(w, http.StatusOK, user)
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.GetByID(r.Context(), auth.OwnerFromContext(r.Context()))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			httpx.WriteError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		httpx.WriteError(w, http.StatusInternalServerError, "failed to lookup user")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toUserResponse(user))
}

func (h *AuthHandler) writeToken(w http.ResponseWriter, status int, user storage.User) {
	token, err := auth.SignHS256(auth.NewClaims(user.ID, user.Email, time.Now(), h.tokenTTL), h.secret)
	if err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, "failed to issue token")
		return
	}
	httpx.WriteJSON(w, status, tokenResponse{Token: token, User: toUserResponse(user)})
}

func toUserResponse(u storage.User) userResponse {
	return userResponse{ID: u.ID, Name: u.Name, Email: u.Email}
}

func writeErrors(w http.ResponseWriter, msgs []string) {
	httpx.WriteJSON(w, http.StatusUnprocessableEntity, map[string][]string{"errors": msgs})
}

func signupMessages(verrs validator.ValidationErrors) []string {
	labels := map[string]string{
		"Name":                 "Name",
		"Email":                "Email",
		"Password":             "Password",
		"PasswordConfirmation": "Password confirmation",
	}
	out := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		label := labels[fe.Field()]
		switch fe.Tag() {
		case "required":
			out = append(out, label+" can't be blank")
		case "email":
			out = append(out, label+" is invalid")
		case "min":
			out = append(out, fmt.Sprintf("%s is too short (minimum is %d characters)", label, minPasswordLength))
		case "bcryptlen":
			out = append(out, fmt.Sprintf("%s is too long (maximum is %d bytes)", label, maxPasswordBytes))
		case "eqfield":
			out = append(out, label+" doesn't match Password")
		default:
			out = append(out, label+" is invalid")
		}
	}
	return out
}

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("bcryptlen", func(fl validator.FieldLevel) bool {
		return len(fl.Field().String()) <= maxPasswordBytes
	})
	return v
}
