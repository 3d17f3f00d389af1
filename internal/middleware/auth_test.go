package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/gatekeeper/internal/model"
	"github.com/hitoshi/gatekeeper/internal/token"
)

var testSecret = []byte("middleware-test-secret")

// --- モック定義 ---

type mockUserFinder struct {
	findByIDFn func(ctx context.Context, id uuid.UUID) (*model.User, error)
}

func (m *mockUserFinder) FindByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

// --- ヘルパー ---

func finderReturning(user *model.User) *mockUserFinder {
	return &mockUserFinder{
		findByIDFn: func(ctx context.Context, id uuid.UUID) (*model.User, error) {
			if user != nil && id == user.ID {
				return user, nil
			}
			return nil, nil
		},
	}
}

func issueFor(t *testing.T, userID uuid.UUID) string {
	t.Helper()
	issued, err := token.Issue(userID.String(), testSecret, time.Hour)
	if err != nil {
		t.Fatalf("token.Issue() error = %v", err)
	}
	return issued
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) ErrorResponseBody {
	t.Helper()
	var body ErrorResponseBody
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response body: %v", err)
	}
	return body
}

func testUser(role model.UserRole) *model.User {
	return &model.User{
		ID:    uuid.New(),
		Name:  "Taro Test",
		Email: "taro@example.com",
		Role:  role,
	}
}

// --- テスト ---

func TestAuthMiddleware_NoCredential_Returns401TokenNotProvided(t *testing.T) {
	mw := NewAuthMiddleware(AuthDeps{Users: &mockUserFinder{}, Secret: testSecret}, model.RoleUser)

	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be called")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
	body := decodeBody(t, w)
	if body.Status != "fail" || body.Message != "Token not provided" {
		t.Errorf("body = %+v, want fail/Token not provided", body)
	}
}

func TestAuthMiddleware_MalformedAuthorizationHeader_Returns401TokenNotProvided(t *testing.T) {
	// Bearer接頭辞のないヘッダーは資格情報なしとして扱う（プロセスは落とさない）
	tests := []struct {
		name   string
		header string
	}{
		{"no bearer prefix", "Basic dXNlcjpwYXNz"},
		{"lowercase bearer", "bearer some-token"},
		{"too short", "Bear"},
		{"empty", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mw := NewAuthMiddleware(AuthDeps{Users: &mockUserFinder{}, Secret: testSecret}, model.RoleUser)
			handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				t.Fatal("handler should not be called")
			}))

			req := httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			if w.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
			}
			if body := decodeBody(t, w); body.Message != "Token not provided" {
				t.Errorf("message = %q, want %q", body.Message, "Token not provided")
			}
		})
	}
}

func TestAuthMiddleware_InvalidToken_Returns401(t *testing.T) {
	mw := NewAuthMiddleware(AuthDeps{Users: &mockUserFinder{}, Secret: testSecret}, model.RoleUser)
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be called")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
	req.Header.Set("Authorization", "Bearer not-a-valid-jwt")
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
	if body := decodeBody(t, w); body.Message != "Invalid token" {
		t.Errorf("message = %q, want %q", body.Message, "Invalid token")
	}
}

func TestAuthMiddleware_NonUUIDSubject_Returns401InvalidToken(t *testing.T) {
	// subjectがUUIDでないトークンは当該リクエストのみ拒否する
	issued, err := token.Issue("not-a-uuid", testSecret, time.Hour)
	if err != nil {
		t.Fatalf("token.Issue() error = %v", err)
	}

	mw := NewAuthMiddleware(AuthDeps{Users: &mockUserFinder{}, Secret: testSecret}, model.RoleUser)
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be called")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
	req.Header.Set("Authorization", "Bearer "+issued)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
	if body := decodeBody(t, w); body.Message != "Invalid token" {
		t.Errorf("message = %q, want %q", body.Message, "Invalid token")
	}
}

func TestAuthMiddleware_UserGone_Returns401UserNoLongerExist(t *testing.T) {
	mw := NewAuthMiddleware(AuthDeps{Users: finderReturning(nil), Secret: testSecret}, model.RoleUser)
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be called")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
	req.Header.Set("Authorization", "Bearer "+issueFor(t, uuid.New()))
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
	if body := decodeBody(t, w); body.Message != "User no longer exist" {
		t.Errorf("message = %q, want %q", body.Message, "User no longer exist")
	}
}

func TestAuthMiddleware_FinderError_Returns500WithoutDetail(t *testing.T) {
	finder := &mockUserFinder{
		findByIDFn: func(ctx context.Context, id uuid.UUID) (*model.User, error) {
			return nil, errors.New("pq: connection refused at 10.0.0.5:5432")
		},
	}

	mw := NewAuthMiddleware(AuthDeps{Users: finder, Secret: testSecret}, model.RoleUser)
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be called")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
	req.Header.Set("Authorization", "Bearer "+issueFor(t, uuid.New()))
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
	body := decodeBody(t, w)
	if body.Message != "Server error, Please try again later" {
		t.Errorf("message = %q, internal error detail must not leak", body.Message)
	}
}

func TestAuthMiddleware_RoleNotAllowed_Returns403PermissionDenied(t *testing.T) {
	// roleがUserのユーザーがAdmin専用ルートにアクセス → 403（401ではない）
	user := testUser(model.RoleUser)
	mw := NewAuthMiddleware(AuthDeps{Users: finderReturning(user), Secret: testSecret}, model.RoleAdmin)
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be called")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/users", nil)
	req.Header.Set("Authorization", "Bearer "+issueFor(t, user.ID))
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Errorf("status = %d, want %d", w.Code, http.StatusForbidden)
	}
	if body := decodeBody(t, w); body.Message != "Permission denied" {
		t.Errorf("message = %q, want %q", body.Message, "Permission denied")
	}
}

func TestAuthMiddleware_AllowedRole_ForwardsWithIdentity(t *testing.T) {
	// Adminが{Admin, Moderator}許可ルートを通過し、下流でCurrentUserが取れる
	user := testUser(model.RoleAdmin)
	mw := NewAuthMiddleware(
		AuthDeps{Users: finderReturning(user), Secret: testSecret},
		model.RoleAdmin, model.RoleModerator,
	)

	var captured *model.User
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		current, err := CurrentUser(r.Context())
		if err != nil {
			t.Errorf("CurrentUser() error = %v", err)
		}
		captured = current
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
	req.Header.Set("Authorization", "Bearer "+issueFor(t, user.ID))
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if captured == nil || captured.ID != user.ID {
		t.Errorf("captured user = %+v, want ID %s", captured, user.ID)
	}
}

func TestAuthMiddleware_CookieCredential(t *testing.T) {
	user := testUser(model.RoleUser)
	mw := NewAuthMiddleware(AuthDeps{Users: finderReturning(user), Secret: testSecret}, model.RoleUser)

	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
	req.AddCookie(&http.Cookie{Name: "token", Value: issueFor(t, user.ID)})
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
}

func TestAuthMiddleware_CookieTakesPrecedenceOverHeader(t *testing.T) {
	user := testUser(model.RoleUser)
	mw := NewAuthMiddleware(AuthDeps{Users: finderReturning(user), Secret: testSecret}, model.RoleUser)

	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	// Cookieに有効なトークン、ヘッダーにゴミ → Cookieが優先され成功
	req := httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
	req.AddCookie(&http.Cookie{Name: "token", Value: issueFor(t, user.ID)})
	req.Header.Set("Authorization", "Bearer garbage")
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
}

func TestAuthMiddleware_ExpiredToken_Returns401(t *testing.T) {
	user := testUser(model.RoleUser)
	expired, err := token.Issue(user.ID.String(), testSecret, -time.Minute)
	if err != nil {
		t.Fatalf("token.Issue() error = %v", err)
	}

	mw := NewAuthMiddleware(AuthDeps{Users: finderReturning(user), Secret: testSecret}, model.RoleUser)
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be called")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
	req.Header.Set("Authorization", "Bearer "+expired)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
	if body := decodeBody(t, w); body.Message != "Invalid token" {
		t.Errorf("message = %q, want %q", body.Message, "Invalid token")
	}
}

func TestAuthMiddleware_DistinctSecretsPerInstance(t *testing.T) {
	// 別々のシークレットで構築したインスタンスが互いのトークンを拒否する
	user := testUser(model.RoleUser)
	otherSecret := []byte("another-instance-secret")

	mwA := NewAuthMiddleware(AuthDeps{Users: finderReturning(user), Secret: testSecret}, model.RoleUser)
	mwB := NewAuthMiddleware(AuthDeps{Users: finderReturning(user), Secret: otherSecret}, model.RoleUser)

	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
	req.Header.Set("Authorization", "Bearer "+issueFor(t, user.ID))

	wA := httptest.NewRecorder()
	mwA(ok).ServeHTTP(wA, req)
	if wA.Code != http.StatusOK {
		t.Errorf("same-secret instance: status = %d, want 200", wA.Code)
	}

	wB := httptest.NewRecorder()
	mwB(ok).ServeHTTP(wB, req)
	if wB.Code != http.StatusUnauthorized {
		t.Errorf("cross-secret instance: status = %d, want 401", wB.Code)
	}
}

func TestCurrentUser_WithoutMiddleware_ReturnsError(t *testing.T) {
	if _, err := CurrentUser(context.Background()); err == nil {
		t.Error("CurrentUser() on bare context should return an error")
	}
}

func TestContextWithUser_RoundTrip(t *testing.T) {
	user := testUser(model.RoleModerator)
	ctx := ContextWithUser(context.Background(), user)

	got, err := CurrentUser(ctx)
	if err != nil {
		t.Fatalf("CurrentUser() error = %v", err)
	}
	if got.ID != user.ID {
		t.Errorf("user ID = %s, want %s", got.ID, user.ID)
	}
}

func TestAuthMiddleware_RecordsRejectionMetrics(t *testing.T) {
	recorder := &mockRejectionRecorder{}
	mw := NewAuthMiddleware(AuthDeps{Users: &mockUserFinder{}, Secret: testSecret, Metrics: recorder}, model.RoleUser)

	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if len(recorder.reasons) != 1 || recorder.reasons[0] != "token_not_provided" {
		t.Errorf("recorded reasons = %v, want [token_not_provided]", recorder.reasons)
	}
}

type mockRejectionRecorder struct {
	reasons []string
}

func (m *mockRejectionRecorder) RecordAuthRejected(reason string) {
	m.reasons = append(m.reasons, reason)
}
