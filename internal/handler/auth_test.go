package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/cardhaven/bankcards/internal/domain"
)

type stubUserReader struct {
	user *domain.User
}

func (s *stubUserReader) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	if s.user == nil || s.user.Email != strings.ToLower(email) {
		return nil, fmt.Errorf("GetByEmail: %w", domain.ErrUserNotFound)
	}
	return s.user, nil
}

func seedStubUser(t *testing.T, enabled bool) *domain.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	require.NoError(t, err)
	return &domain.User{
		ID:           uuid.New(),
		Name:         "Alice",
		Email:        "alice@test.com",
		PasswordHash: string(hash),
		Role:         domain.UserRoleUser,
		Enabled:      enabled,
		CreatedAt:    time.Now().UTC(),
	}
}

func doLogin(t *testing.T, h *AuthHandler, body string) (*httptest.ResponseRecorder, APIResponse) {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.Login(rec, req)

	var resp APIResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return rec, resp
}

func TestLogin(t *testing.T) {
	h := NewAuthHandler(&stubUserReader{user: seedStubUser(t, true)}, "test-secret", time.Hour)

	rec, resp := doLogin(t, h, `{"email":"alice@test.com","password":"password123"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, resp.Success)

	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	assert.NotEmpty(t, data["token"])
}

func TestLogin_Failures(t *testing.T) {
	tests := []struct {
		name     string
		enabled  bool
		body     string
		wantCode string
	}{
		{
			name:     "wrong password",
			enabled:  true,
			body:     `{"email":"alice@test.com","password":"wrong"}`,
			wantCode: "INVALID_CREDENTIALS",
		},
		{
			name:     "unknown email",
			enabled:  true,
			body:     `{"email":"nobody@test.com","password":"password123"}`,
			wantCode: "INVALID_CREDENTIALS",
		},
		{
			name:     "disabled account",
			enabled:  false,
			body:     `{"email":"alice@test.com","password":"password123"}`,
			wantCode: "USER_DISABLED",
		},
		{
			name:     "missing fields",
			enabled:  true,
			body:     `{}`,
			wantCode: "VALIDATION_FAILED",
		},
		{
			name:     "malformed body",
			enabled:  true,
			body:     `{not json`,
			wantCode: "INVALID_REQUEST",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := NewAuthHandler(&stubUserReader{user: seedStubUser(t, tc.enabled)}, "test-secret", time.Hour)

			rec, resp := doLogin(t, h, tc.body)
			assert.False(t, resp.Success)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tc.wantCode, resp.Error.Code)
			assert.GreaterOrEqual(t, rec.Code, 400)
		})
	}
}
