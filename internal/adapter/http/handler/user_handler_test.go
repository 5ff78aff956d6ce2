package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/iho/bankledger/internal/adapter/http/dto"
	"github.com/iho/bankledger/internal/domain"
	"github.com/iho/bankledger/internal/usecase"
)

type userServiceStub struct {
	registerFn func(ctx context.Context, input usecase.RegisterUserInput) (*domain.User, error)
	resolveFn  func(ctx context.Context, username string) (*domain.User, error)
}

func (s *userServiceStub) Register(ctx context.Context, input usecase.RegisterUserInput) (*domain.User, error) {
	return s.registerFn(ctx, input)
}

func (s *userServiceStub) ResolveUser(ctx context.Context, username string) (*domain.User, error) {
	return s.resolveFn(ctx, username)
}

func TestUserHandler_Register(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		err        error
		wantStatus int
		wantEmail  string
	}{
		{name: "with email", body: `{"email":"alice@example.com"}`, wantStatus: http.StatusCreated, wantEmail: "alice@example.com"},
		{name: "empty body", body: "", wantStatus: http.StatusCreated},
		{name: "malformed body", body: "{", wantStatus: http.StatusBadRequest},
		{name: "already registered", body: `{}`, err: domain.ErrUserAlreadyExists, wantStatus: http.StatusConflict},
		{name: "bad email", body: `{"email":"x"}`, err: domain.ErrInvalidEmail, wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var captured usecase.RegisterUserInput
			handler := NewUserHandler(&userServiceStub{
				registerFn: func(ctx context.Context, input usecase.RegisterUserInput) (*domain.User, error) {
					captured = input
					if tt.err != nil {
						return nil, tt.err
					}
					return &domain.User{ID: "u1", Username: input.Username, Email: input.Email}, nil
				},
			})

			req := asUser(httptest.NewRequest(http.MethodPost, "/users/me", bytes.NewBufferString(tt.body)), "alice", nil)
			rec := httptest.NewRecorder()
			handler.Register(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d: %s", tt.wantStatus, rec.Code, rec.Body.String())
			}
			if tt.wantStatus != http.StatusCreated {
				return
			}
			if captured.Username != "alice" || captured.Email != tt.wantEmail {
				t.Errorf("unexpected input %+v", captured)
			}

			var resp dto.UserResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if resp.Username != "alice" {
				t.Errorf("expected username alice, got %s", resp.Username)
			}
		})
	}
}

func TestUserHandler_Me(t *testing.T) {
	handler := NewUserHandler(&userServiceStub{
		resolveFn: func(ctx context.Context, username string) (*domain.User, error) {
			if username == "alice" {
				return &domain.User{ID: "u1", Username: "alice"}, nil
			}
			return nil, domain.ErrUserNotFound
		},
	})

	rec := httptest.NewRecorder()
	handler.Me(rec, asUser(httptest.NewRequest(http.MethodGet, "/users/me", nil), "alice", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	handler.Me(rec, asUser(httptest.NewRequest(http.MethodGet, "/users/me", nil), "ghost", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if got := decodeError(t, rec).Code; got != dto.CodeNotFound {
		t.Errorf("expected %s, got %s", dto.CodeNotFound, got)
	}
}
