package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/regform/apiserver/internal/events"
	"github.com/regform/apiserver/internal/handlers"
	"github.com/regform/apiserver/internal/services"
	"github.com/regform/apiserver/internal/store"
	"github.com/regform/apiserver/types"
)

const testJWTSecret = "handlers-test-secret"

// fakeUserRepo is an in-memory stand-in for the Postgres repository.
// It mirrors the store's semantics: ErrNotFound for missing rows and
// ErrDuplicateEmail for case-insensitive email collisions.
type fakeUserRepo struct {
	mu     sync.Mutex
	nextID int
	users  map[int]types.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{nextID: 1, users: map[int]types.User{}}
}

func (f *fakeUserRepo) List(ctx context.Context) ([]types.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	users := make([]types.User, 0, len(f.users))
	for _, u := range f.users {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

func (f *fakeUserRepo) GetByID(ctx context.Context, id int) (types.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return user, nil
}

func (f *fakeUserRepo) GetByEmail(ctx context.Context, email string) (types.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (f *fakeUserRepo) Create(ctx context.Context, user types.User) (types.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if strings.EqualFold(u.Email, user.Email) {
			return types.User{}, store.ErrDuplicateEmail
		}
	}
	user.ID = f.nextID
	f.nextID++
	f.users[user.ID] = user
	return user, nil
}

func (f *fakeUserRepo) Update(ctx context.Context, user types.User) (types.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[user.ID]; !ok {
		return types.User{}, store.ErrNotFound
	}
	for id, u := range f.users {
		if id != user.ID && strings.EqualFold(u.Email, user.Email) {
			return types.User{}, store.ErrDuplicateEmail
		}
	}
	f.users[user.ID] = user
	return user, nil
}

func (f *fakeUserRepo) Delete(ctx context.Context, id int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[id]; !ok {
		return store.ErrNotFound
	}
	delete(f.users, id)
	return nil
}

func newTestRouter(t *testing.T) (*chi.Mux, *fakeUserRepo) {
	t.Helper()

	repo := newFakeUserRepo()
	userService := services.NewUserService(repo)
	publisher := events.NewPublisher(nil, "user-events", nil)

	authHandler := handlers.NewAuthHandler(userService, publisher, nil, testJWTSecret)
	userHandler := handlers.NewUserHandler(userService, nil, publisher, nil)
	authMiddleware := handlers.RequireAuth(testJWTSecret)

	router := chi.NewRouter()
	router.Get("/healthz", handlers.Healthz)
	handlers.AuthRouter(router, authHandler)
	router.Route("/users", func(r chi.Router) {
		handlers.UserRouter(r, userHandler, authMiddleware)
	})
	return router, repo
}

func doJSON(t *testing.T, router http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}

func itoa(id int) string {
	return strconv.Itoa(id)
}

func validRegisterBody() map[string]string {
	return map[string]string{
		"email":    "a@b.com",
		"password": "secret1",
		"name":     "A",
		"gender":   "Male",
		"dob":      "2000-01-01",
		"address":  "X",
		"pincode":  "12345",
	}
}

// registerAndToken registers a fresh account and returns its token.
func registerAndToken(t *testing.T, router http.Handler, email string) string {
	t.Helper()

	body := validRegisterBody()
	body["email"] = email
	rec := doJSON(t, router, http.MethodPost, "/register", "", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("register returned %d: %s", rec.Code, rec.Body.String())
	}
	var resp handlers.AuthResponse
	decodeBody(t, rec, &resp)
	if resp.Token == "" {
		t.Fatal("expected non-empty token")
	}
	return resp.Token
}
