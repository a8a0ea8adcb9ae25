package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/regform/apiserver/internal/events"
	"github.com/regform/apiserver/internal/services"
	"github.com/regform/apiserver/internal/storage"
	"github.com/regform/apiserver/internal/store"
	"github.com/regform/apiserver/types"
	"go.uber.org/zap"
)

const maxAvatarBytes = 5 << 20

// UserHandler provides the administrative user CRUD endpoints.
type UserHandler struct {
	userService *services.UserService
	avatars     *storage.AvatarStore
	publisher   *events.Publisher
	log         *zap.Logger
}

// NewUserHandler constructs a UserHandler. avatars may be nil when no
// object storage backend is configured.
func NewUserHandler(userService *services.UserService, avatars *storage.AvatarStore, publisher *events.Publisher, log *zap.Logger) *UserHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &UserHandler{
		userService: userService,
		avatars:     avatars,
		publisher:   publisher,
		log:         log,
	}
}

// UserRouter registers user routes on the given router. Mutations are
// guarded by authMiddleware; listing and avatar reads stay open.
func UserRouter(r chi.Router, handler *UserHandler, authMiddleware func(http.Handler) http.Handler) {
	r.Get("/", handler.ListUsers)
	r.With(authMiddleware).Post("/", handler.CreateUser)
	r.Route("/{userID}", func(r chi.Router) {
		r.With(authMiddleware).Put("/", handler.UpdateUser)
		r.With(authMiddleware).Delete("/", handler.DeleteUser)
		r.Get("/avatar", handler.GetAvatar)
		r.With(authMiddleware).Put("/avatar", handler.UploadAvatar)
	})
}

// ListUsers returns every user record in insertion order.
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.userService.List(r.Context())
	if err != nil {
		h.log.Error("list users", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to fetch users")
		return
	}
	writeJSON(w, http.StatusOK, users)
}

// CreateUser creates a record without a credential.
func (h *UserHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	req.Gender = strings.TrimSpace(req.Gender)
	req.DOB = strings.TrimSpace(req.DOB)
	req.Address = strings.TrimSpace(req.Address)
	req.Pincode = strings.TrimSpace(req.Pincode)

	if req.Name == "" || req.Email == "" || req.Gender == "" ||
		req.DOB == "" || req.Address == "" || req.Pincode == "" {
		writeError(w, http.StatusBadRequest, "All fields (name, email, gender, dob, address, pincode) are required")
		return
	}
	if !validEmail(req.Email) {
		writeError(w, http.StatusBadRequest, "Invalid email format")
		return
	}
	if !types.ValidGender(req.Gender) {
		writeError(w, http.StatusBadRequest, "Gender must be Male, Female or Other")
		return
	}
	if !validDOB(req.DOB) {
		writeError(w, http.StatusBadRequest, "DOB must be a valid date in YYYY-MM-DD format")
		return
	}

	user, err := h.userService.Create(r.Context(), types.User{
		Email:   req.Email,
		Name:    req.Name,
		Gender:  req.Gender,
		DOB:     req.DOB,
		Address: req.Address,
		Pincode: req.Pincode,
	})
	if err != nil {
		if errors.Is(err, store.ErrDuplicateEmail) {
			writeError(w, http.StatusBadRequest, "User already registered")
			return
		}
		h.log.Error("create user", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Error creating user")
		return
	}

	h.publisher.PublishUser(r.Context(), events.TypeUserCreated, user)
	writeJSON(w, http.StatusCreated, CreateUserResponse{
		Message: "User created successfully",
		User:    user,
	})
}

// UpdateUser replaces the fields present in the request body; absent
// fields keep their current value.
func (h *UserHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	id, err := parseUserID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req UpdateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	user, err := h.userService.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "User not found")
			return
		}
		h.log.Error("load user", zap.Int("user_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Error updating user")
		return
	}

	if req.Email != nil {
		email := strings.TrimSpace(*req.Email)
		if !validEmail(email) {
			writeError(w, http.StatusBadRequest, "Invalid email format")
			return
		}
		user.Email = email
	}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			writeError(w, http.StatusBadRequest, "Name cannot be empty")
			return
		}
		user.Name = name
	}
	if req.Gender != nil {
		gender := strings.TrimSpace(*req.Gender)
		if !types.ValidGender(gender) {
			writeError(w, http.StatusBadRequest, "Gender must be Male, Female or Other")
			return
		}
		user.Gender = gender
	}
	if req.DOB != nil {
		dob := strings.TrimSpace(*req.DOB)
		if !validDOB(dob) {
			writeError(w, http.StatusBadRequest, "DOB must be a valid date in YYYY-MM-DD format")
			return
		}
		user.DOB = dob
	}
	if req.Address != nil {
		user.Address = strings.TrimSpace(*req.Address)
	}
	if req.Pincode != nil {
		user.Pincode = strings.TrimSpace(*req.Pincode)
	}

	updated, err := h.userService.Update(r.Context(), user)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			writeError(w, http.StatusNotFound, "User not found")
		case errors.Is(err, store.ErrDuplicateEmail):
			writeError(w, http.StatusBadRequest, "Email already in use")
		default:
			h.log.Error("update user", zap.Int("user_id", id), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "Error updating user")
		}
		return
	}

	h.publisher.PublishUser(r.Context(), events.TypeUserUpdated, updated)
	writeJSON(w, http.StatusOK, updated)
}

// DeleteUser removes the record matching the path ID.
func (h *UserHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := parseUserID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.userService.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "User not found")
			return
		}
		h.log.Error("load user", zap.Int("user_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to delete user")
		return
	}

	if err := h.userService.Delete(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "User not found")
			return
		}
		h.log.Error("delete user", zap.Int("user_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to delete user")
		return
	}

	if h.avatars != nil {
		if err := h.avatars.Remove(r.Context(), id); err != nil {
			h.log.Warn("remove avatar", zap.Int("user_id", id), zap.Error(err))
		}
	}

	h.publisher.PublishUser(r.Context(), events.TypeUserDeleted, user)
	writeJSON(w, http.StatusOK, MessageResponse{Message: "User deleted successfully"})
}

// UploadAvatar stores an avatar image for the user in object storage.
func (h *UserHandler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	if h.avatars == nil {
		writeError(w, http.StatusServiceUnavailable, "Avatar storage is not configured")
		return
	}

	id, err := parseUserID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if _, err := h.userService.GetByID(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "User not found")
			return
		}
		h.log.Error("load user", zap.Int("user_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to store avatar")
		return
	}

	contentType := r.Header.Get("Content-Type")
	if contentType == "" || !strings.HasPrefix(contentType, "image/") {
		writeError(w, http.StatusBadRequest, "Avatar must be an image")
		return
	}

	body := http.MaxBytesReader(w, r.Body, maxAvatarBytes)
	key, err := h.avatars.Save(r.Context(), id, body, r.ContentLength, contentType)
	if err != nil {
		h.log.Error("store avatar", zap.Int("user_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to store avatar")
		return
	}

	writeJSON(w, http.StatusOK, AvatarResponse{
		Message: "Avatar uploaded successfully",
		Key:     key,
	})
}

// GetAvatar streams the stored avatar image for the user.
func (h *UserHandler) GetAvatar(w http.ResponseWriter, r *http.Request) {
	if h.avatars == nil {
		writeError(w, http.StatusServiceUnavailable, "Avatar storage is not configured")
		return
	}

	id, err := parseUserID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	reader, err := h.avatars.Open(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusNotFound, "Avatar not found")
		return
	}
	defer reader.Close()

	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, reader); err != nil {
		h.log.Warn("stream avatar", zap.Int("user_id", id), zap.Error(err))
	}
}

type CreateUserRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Gender  string `json:"gender"`
	DOB     string `json:"dob"`
	Address string `json:"address"`
	Pincode string `json:"pincode"`
}

type CreateUserResponse struct {
	Message string     `json:"message"`
	User    types.User `json:"user"`
}

type UpdateUserRequest struct {
	Name    *string `json:"name"`
	Email   *string `json:"email"`
	Gender  *string `json:"gender"`
	DOB     *string `json:"dob"`
	Address *string `json:"address"`
	Pincode *string `json:"pincode"`
}

type AvatarResponse struct {
	Message string `json:"message"`
	Key     string `json:"key"`
}
