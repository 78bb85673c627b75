package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/comecon/api/internal/database"
	"github.com/comecon/api/internal/enum"
	"github.com/comecon/api/internal/handler"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/crypto/bcrypt"
)

// --- Mock store ---

type mockUserStore struct {
	users map[uuid.UUID]database.User
}

func newMockUserStore() *mockUserStore {
	return &mockUserStore{users: make(map[uuid.UUID]database.User)}
}

func (m *mockUserStore) emailTaken(email string, exclude uuid.UUID) bool {
	for _, u := range m.users {
		if u.Email == email && u.ID != exclude {
			return true
		}
	}
	return false
}

func (m *mockUserStore) CreateUser(_ context.Context, arg database.CreateUserParams) (database.User, error) {
	if m.emailTaken(arg.Email, uuid.Nil) {
		return database.User{}, &pgconn.PgError{Code: "23505"}
	}
	now := time.Now()
	u := database.User{
		ID:             uuid.New(),
		Email:          arg.Email,
		HashedPassword: arg.HashedPassword,
		FullName:       arg.FullName,
		Role:           arg.Role,
		Phone:          arg.Phone,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	m.users[u.ID] = u
	return u, nil
}

func (m *mockUserStore) GetUser(_ context.Context, id uuid.UUID) (database.User, error) {
	u, ok := m.users[id]
	if !ok {
		return database.User{}, pgx.ErrNoRows
	}
	return u, nil
}

func (m *mockUserStore) UpdateUserProfile(_ context.Context, arg database.UpdateUserProfileParams) (database.User, error) {
	u, ok := m.users[arg.ID]
	if !ok {
		return database.User{}, pgx.ErrNoRows
	}
	if m.emailTaken(arg.Email, arg.ID) {
		return database.User{}, &pgconn.PgError{Code: "23505"}
	}
	u.Email = arg.Email
	u.FullName = arg.FullName
	u.Phone = arg.Phone
	u.UpdatedAt = time.Now()
	m.users[u.ID] = u
	return u, nil
}

func (m *mockUserStore) UpdateUserPassword(_ context.Context, arg database.UpdateUserPasswordParams) (uuid.UUID, error) {
	u, ok := m.users[arg.ID]
	if !ok {
		return uuid.Nil, pgx.ErrNoRows
	}
	u.HashedPassword = arg.HashedPassword
	u.UpdatedAt = time.Now()
	m.users[u.ID] = u
	return u.ID, nil
}

// --- Helpers ---

func doRequest(t *testing.T, router http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request: %v", err)
		}
		req = httptest.NewRequest(method, path, bytes.NewReader(b))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func setupUserRouter(store *mockUserStore) *chi.Mux {
	h := handler.NewUserHandler(store)
	r := chi.NewRouter()
	r.Route("/users", h.RegisterRoutes)
	return r
}

func decodeUserResponse(t *testing.T, rr *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp map[string]interface{}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp
}

func testUser(store *mockUserStore, email, role string) database.User {
	hashed, _ := bcrypt.GenerateFromPassword([]byte("secreto123"), bcrypt.MinCost)
	now := time.Now()
	u := database.User{
		ID:             uuid.New(),
		Email:          email,
		HashedPassword: string(hashed),
		FullName:       "Ana Lopez",
		Role:           role,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	store.users[u.ID] = u
	return u
}

// --- Create tests ---

func TestUserCreate_Success(t *testing.T) {
	store := newMockUserStore()
	router := setupUserRouter(store)

	rr := doRequest(t, router, "POST", "/users", map[string]interface{}{
		"email":     "admin@comecon.app",
		"password":  "secreto123",
		"full_name": "Ana Lopez",
		"role":      enum.UserRoleAdmin,
	})

	if rr.Code != http.StatusCreated {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusCreated, rr.Body.String())
	}

	resp := decodeUserResponse(t, rr)
	if resp["email"] != "admin@comecon.app" {
		t.Errorf("email: got %q, want %q", resp["email"], "admin@comecon.app")
	}
	if resp["role"] != enum.UserRoleAdmin {
		t.Errorf("role: got %q, want %q", resp["role"], enum.UserRoleAdmin)
	}
	if _, ok := resp["hashed_password"]; ok {
		t.Errorf("response must not expose the password hash")
	}
	if _, ok := resp["password"]; ok {
		t.Errorf("response must not expose the password")
	}
}

func TestUserCreate_RoleDefaultsToCustomer(t *testing.T) {
	store := newMockUserStore()
	router := setupUserRouter(store)

	rr := doRequest(t, router, "POST", "/users", map[string]interface{}{
		"email":     "cliente@comecon.app",
		"password":  "secreto123",
		"full_name": "Juan Perez",
	})

	if rr.Code != http.StatusCreated {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusCreated)
	}

	resp := decodeUserResponse(t, rr)
	if resp["role"] != enum.UserRoleCustomer {
		t.Errorf("role: got %q, want %q", resp["role"], enum.UserRoleCustomer)
	}
}

func TestUserCreate_StoresBcryptHash(t *testing.T) {
	store := newMockUserStore()
	router := setupUserRouter(store)

	rr := doRequest(t, router, "POST", "/users", map[string]interface{}{
		"email":     "cliente@comecon.app",
		"password":  "secreto123",
		"full_name": "Juan Perez",
	})

	if rr.Code != http.StatusCreated {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusCreated)
	}

	var stored database.User
	for _, u := range store.users {
		stored = u
	}
	if stored.HashedPassword == "secreto123" {
		t.Fatalf("password stored in plaintext")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(stored.HashedPassword), []byte("secreto123")); err != nil {
		t.Errorf("stored hash does not match password: %v", err)
	}
}

func TestUserCreate_DuplicateEmail(t *testing.T) {
	store := newMockUserStore()
	testUser(store, "admin@comecon.app", enum.UserRoleAdmin)
	router := setupUserRouter(store)

	rr := doRequest(t, router, "POST", "/users", map[string]interface{}{
		"email":     "admin@comecon.app",
		"password":  "secreto123",
		"full_name": "Otro Admin",
	})

	if rr.Code != http.StatusConflict {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusConflict)
	}
}

func TestUserCreate_MissingFields(t *testing.T) {
	store := newMockUserStore()
	router := setupUserRouter(store)

	rr := doRequest(t, router, "POST", "/users", map[string]interface{}{
		"email": "admin@comecon.app",
	})

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestUserCreate_InvalidEmail(t *testing.T) {
	store := newMockUserStore()
	router := setupUserRouter(store)

	rr := doRequest(t, router, "POST", "/users", map[string]interface{}{
		"email":     "not-an-email",
		"password":  "secreto123",
		"full_name": "Ana Lopez",
	})

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestUserCreate_ShortPassword(t *testing.T) {
	store := newMockUserStore()
	router := setupUserRouter(store)

	rr := doRequest(t, router, "POST", "/users", map[string]interface{}{
		"email":     "admin@comecon.app",
		"password":  "corto",
		"full_name": "Ana Lopez",
	})

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestUserCreate_InvalidRole(t *testing.T) {
	store := newMockUserStore()
	router := setupUserRouter(store)

	rr := doRequest(t, router, "POST", "/users", map[string]interface{}{
		"email":     "admin@comecon.app",
		"password":  "secreto123",
		"full_name": "Ana Lopez",
		"role":      "superuser",
	})

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

// --- Get tests ---

func TestUserGet_Found(t *testing.T) {
	store := newMockUserStore()
	u := testUser(store, "admin@comecon.app", enum.UserRoleAdmin)
	router := setupUserRouter(store)

	rr := doRequest(t, router, "GET", "/users/"+u.ID.String(), nil)

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusOK)
	}

	resp := decodeUserResponse(t, rr)
	if resp["full_name"] != "Ana Lopez" {
		t.Errorf("full_name: got %q, want %q", resp["full_name"], "Ana Lopez")
	}
}

func TestUserGet_NotFound(t *testing.T) {
	store := newMockUserStore()
	router := setupUserRouter(store)

	rr := doRequest(t, router, "GET", "/users/"+uuid.NewString(), nil)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusNotFound)
	}
}

// --- Profile update tests ---

func TestUserUpdateProfile_Success(t *testing.T) {
	store := newMockUserStore()
	u := testUser(store, "admin@comecon.app", enum.UserRoleAdmin)
	router := setupUserRouter(store)

	rr := doRequest(t, router, "PUT", "/users/"+u.ID.String(), map[string]interface{}{
		"email":     "admin@comecon.mx",
		"full_name": "Ana Maria Lopez",
		"phone":     "5512345678",
	})

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}

	resp := decodeUserResponse(t, rr)
	if resp["email"] != "admin@comecon.mx" {
		t.Errorf("email: got %q, want %q", resp["email"], "admin@comecon.mx")
	}
	if resp["phone"] != "5512345678" {
		t.Errorf("phone: got %q, want %q", resp["phone"], "5512345678")
	}
}

func TestUserUpdateProfile_RoleImmutable(t *testing.T) {
	store := newMockUserStore()
	u := testUser(store, "admin@comecon.app", enum.UserRoleAdmin)
	router := setupUserRouter(store)

	// The profile update shape has no role field; even if a caller sends
	// one, the stored role stays what it was at creation.
	rr := doRequest(t, router, "PUT", "/users/"+u.ID.String(), map[string]interface{}{
		"email":     "admin@comecon.app",
		"full_name": "Ana Lopez",
		"role":      enum.UserRoleCustomer,
	})

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusOK)
	}

	resp := decodeUserResponse(t, rr)
	if resp["role"] != enum.UserRoleAdmin {
		t.Errorf("role: got %q, want %q", resp["role"], enum.UserRoleAdmin)
	}
}

func TestUserUpdateProfile_DuplicateEmail(t *testing.T) {
	store := newMockUserStore()
	testUser(store, "ocupado@comecon.app", enum.UserRoleCustomer)
	u := testUser(store, "admin@comecon.app", enum.UserRoleAdmin)
	router := setupUserRouter(store)

	rr := doRequest(t, router, "PUT", "/users/"+u.ID.String(), map[string]interface{}{
		"email":     "ocupado@comecon.app",
		"full_name": "Ana Lopez",
	})

	if rr.Code != http.StatusConflict {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusConflict)
	}
}

func TestUserUpdateProfile_NotFound(t *testing.T) {
	store := newMockUserStore()
	router := setupUserRouter(store)

	rr := doRequest(t, router, "PUT", "/users/"+uuid.NewString(), map[string]interface{}{
		"email":     "admin@comecon.app",
		"full_name": "Ana Lopez",
	})

	if rr.Code != http.StatusNotFound {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusNotFound)
	}
}

// --- Password update tests ---

func TestUserUpdatePassword_Success(t *testing.T) {
	store := newMockUserStore()
	u := testUser(store, "admin@comecon.app", enum.UserRoleAdmin)
	oldHash := u.HashedPassword
	router := setupUserRouter(store)

	rr := doRequest(t, router, "PUT", "/users/"+u.ID.String()+"/password", map[string]interface{}{
		"password": "nuevaclave99",
	})

	if rr.Code != http.StatusNoContent {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusNoContent, rr.Body.String())
	}

	stored := store.users[u.ID]
	if stored.HashedPassword == oldHash {
		t.Fatalf("expected the stored hash to change")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(stored.HashedPassword), []byte("nuevaclave99")); err != nil {
		t.Errorf("new hash does not match new password: %v", err)
	}
}

func TestUserUpdatePassword_TooShort(t *testing.T) {
	store := newMockUserStore()
	u := testUser(store, "admin@comecon.app", enum.UserRoleAdmin)
	router := setupUserRouter(store)

	rr := doRequest(t, router, "PUT", "/users/"+u.ID.String()+"/password", map[string]interface{}{
		"password": "corto",
	})

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestUserUpdatePassword_NotFound(t *testing.T) {
	store := newMockUserStore()
	router := setupUserRouter(store)

	rr := doRequest(t, router, "PUT", "/users/"+uuid.NewString()+"/password", map[string]interface{}{
		"password": "nuevaclave99",
	})

	if rr.Code != http.StatusNotFound {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusNotFound)
	}
}
