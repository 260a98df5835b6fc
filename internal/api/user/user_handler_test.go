package user

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/go-user-management/internal/types"
)

// MockUserService is a mock implementation of the UserService interface
type MockUserService struct {
	mock.Mock
}

func (m *MockUserService) GetByID(ctx context.Context, id int64) (*types.UserView, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.UserView), args.Error(1)
}

func (m *MockUserService) GetAll(ctx context.Context) ([]types.UserView, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.UserView), args.Error(1)
}

func (m *MockUserService) Create(ctx context.Context, params types.CreateUserParams, actor string) (*types.UserView, error) {
	args := m.Called(ctx, params, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.UserView), args.Error(1)
}

func (m *MockUserService) Update(ctx context.Context, id int64, params types.UpdateUserParams, actor string) (*types.UserView, error) {
	args := m.Called(ctx, id, params, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.UserView), args.Error(1)
}

func (m *MockUserService) Delete(ctx context.Context, id int64, actor string) error {
	args := m.Called(ctx, id, actor)
	return args.Error(0)
}

func (m *MockUserService) Authenticate(ctx context.Context, username, password string) (*types.User, error) {
	args := m.Called(ctx, username, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.User), args.Error(1)
}

func (m *MockUserService) EnsureAdminUser(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// newTestRouter mounts the handler the same way the real router does so
// chi.URLParam resolution works in tests.
func newTestRouter(h Handler) *chi.Mux {
	r := chi.NewRouter()
	r.Get("/users", h.GetAll)
	r.Post("/users", h.Create)
	r.Get("/users/{id}", h.GetByID)
	r.Put("/users/{id}", h.Update)
	r.Delete("/users/{id}", h.Delete)
	return r
}

func TestGetByIDHandler(t *testing.T) {
	mockService := new(MockUserService)
	router := newTestRouter(NewHandlerImpl(mockService, slog.Default()))

	t.Run("Found", func(t *testing.T) {
		view := &types.UserView{ID: 1, Username: "alice", Email: "alice@example.com", Role: types.RoleUser}
		mockService.On("GetByID", mock.Anything, int64(1)).Return(view, nil).Once()

		req := httptest.NewRequest(http.MethodGet, "/users/1", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		var got types.UserView
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
		assert.Equal(t, "alice", got.Username)
		mockService.AssertExpectations(t)
	})

	t.Run("NotFound", func(t *testing.T) {
		mockService.On("GetByID", mock.Anything, int64(99)).Return(nil, types.ErrNotFound).Once()

		req := httptest.NewRequest(http.MethodGet, "/users/99", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
		mockService.AssertExpectations(t)
	})

	t.Run("BadID", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/users/not-a-number", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		mockService.AssertNotCalled(t, "GetByID")
	})

	t.Run("SoftDeletedStillServed", func(t *testing.T) {
		deletedAt := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
		deletedBy := "admin"
		view := &types.UserView{
			ID:        2,
			Username:  "bob",
			Email:     "bob@example.com",
			Role:      types.RoleUser,
			DeletedAt: &deletedAt,
			DeletedBy: &deletedBy,
		}
		mockService.On("GetByID", mock.Anything, int64(2)).Return(view, nil).Once()

		req := httptest.NewRequest(http.MethodGet, "/users/2", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		var got types.UserView
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
		require.NotNil(t, got.DeletedBy)
		assert.Equal(t, "admin", *got.DeletedBy)
		mockService.AssertExpectations(t)
	})
}

func TestGetAllHandler(t *testing.T) {
	mockService := new(MockUserService)
	router := newTestRouter(NewHandlerImpl(mockService, slog.Default()))

	views := []types.UserView{
		{ID: 1, Username: "admin", Role: types.RoleAdmin},
		{ID: 2, Username: "alice", Role: types.RoleUser},
	}
	mockService.On("GetAll", mock.Anything).Return(views, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/users", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var got []types.UserView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Len(t, got, 2)
	assert.Equal(t, "admin", got[0].Username)
	mockService.AssertExpectations(t)
}

func TestCreateHandler(t *testing.T) {
	mockService := new(MockUserService)
	router := newTestRouter(NewHandlerImpl(mockService, slog.Default()))

	t.Run("Created", func(t *testing.T) {
		params := types.CreateUserParams{Username: "alice", Email: "alice@example.com", Password: "password123"}
		view := &types.UserView{ID: 5, Username: "alice", Email: "alice@example.com", Role: types.RoleUser}
		mockService.On("Create", mock.Anything, params, types.SystemActor).Return(view, nil).Once()

		body, _ := json.Marshal(params)
		req := httptest.NewRequest(http.MethodPost, "/users", bytes.NewBuffer(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusCreated, w.Code)
		var got types.UserView
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
		assert.Equal(t, int64(5), got.ID)
		mockService.AssertExpectations(t)
	})

	t.Run("Conflict", func(t *testing.T) {
		params := types.CreateUserParams{Username: "alice", Email: "alice@example.com", Password: "password123"}
		mockService.On("Create", mock.Anything, params, types.SystemActor).
			Return(nil, types.ErrConflict).Once()

		body, _ := json.Marshal(params)
		req := httptest.NewRequest(http.MethodPost, "/users", bytes.NewBuffer(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusConflict, w.Code)
		mockService.AssertExpectations(t)
	})

	t.Run("ValidationError", func(t *testing.T) {
		params := types.CreateUserParams{Username: "alice"}
		mockService.On("Create", mock.Anything, params, types.SystemActor).
			Return(nil, types.ErrValidation).Once()

		body, _ := json.Marshal(params)
		req := httptest.NewRequest(http.MethodPost, "/users", bytes.NewBuffer(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		mockService.AssertExpectations(t)
	})

	t.Run("BadJSON", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/users", bytes.NewBufferString(`{"username":`))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		mockService.AssertNotCalled(t, "Create")
	})
}

func TestUpdateHandler(t *testing.T) {
	mockService := new(MockUserService)
	router := newTestRouter(NewHandlerImpl(mockService, slog.Default()))

	t.Run("Updated", func(t *testing.T) {
		firstname := "Alice"
		params := types.UpdateUserParams{
			Username:  "alice",
			Email:     "alice@example.com",
			Role:      types.RoleUser,
			Firstname: &firstname,
		}
		view := &types.UserView{ID: 1, Username: "alice", Email: "alice@example.com", Role: types.RoleUser, Firstname: &firstname}
		mockService.On("Update", mock.Anything, int64(1), params, types.SystemActor).Return(view, nil).Once()

		body, _ := json.Marshal(params)
		req := httptest.NewRequest(http.MethodPut, "/users/1", bytes.NewBuffer(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		var got types.UserView
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
		require.NotNil(t, got.Firstname)
		assert.Equal(t, "Alice", *got.Firstname)
		mockService.AssertExpectations(t)
	})

	t.Run("NotFound", func(t *testing.T) {
		params := types.UpdateUserParams{Username: "ghost", Email: "ghost@example.com"}
		mockService.On("Update", mock.Anything, int64(99), params, types.SystemActor).
			Return(nil, types.ErrNotFound).Once()

		body, _ := json.Marshal(params)
		req := httptest.NewRequest(http.MethodPut, "/users/99", bytes.NewBuffer(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
		mockService.AssertExpectations(t)
	})
}

func TestDeleteHandler(t *testing.T) {
	mockService := new(MockUserService)
	router := newTestRouter(NewHandlerImpl(mockService, slog.Default()))

	t.Run("Deleted", func(t *testing.T) {
		mockService.On("Delete", mock.Anything, int64(1), types.SystemActor).Return(nil).Once()

		req := httptest.NewRequest(http.MethodDelete, "/users/1", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		var got types.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
		assert.True(t, got.Success)
		mockService.AssertExpectations(t)
	})

	t.Run("AlreadyDeleted", func(t *testing.T) {
		mockService.On("Delete", mock.Anything, int64(1), types.SystemActor).
			Return(types.ErrNotFound).Once()

		req := httptest.NewRequest(http.MethodDelete, "/users/1", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
		mockService.AssertExpectations(t)
	})
}
