package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go-recruitment-scheduler/internal/domain"
	"go-recruitment-scheduler/pkg/apperror"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

func signToken(t *testing.T, method jwt.SigningMethod, key interface{}, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return s
}

type errorBody struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   struct {
		Kind    string                 `json:"kind"`
		Details map[string]interface{} `json:"details"`
	} `json:"error"`
	RequestID string `json:"request_id"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func newAuthRouter() *gin.Engine {
	r := gin.New()
	r.Use(RequestID(), ErrorHandler())
	r.GET("/me", AuthMiddleware(testSecret), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"user_id": c.GetString(string(domain.KeyUserID)),
			"role":    c.GetString(string(domain.KeyUserRole)),
		})
	})
	r.GET("/admin", AuthMiddleware(testSecret), RequireRole("admin"), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return r
}

func TestAuthMiddleware(t *testing.T) {
	r := newAuthRouter()
	exp := time.Now().Add(time.Hour).Unix()

	t.Run("Should accept a valid HS256 token", func(t *testing.T) {
		token := signToken(t, jwt.SigningMethodHS256, []byte(testSecret), jwt.MapClaims{"sub": "int-1", "role": "employer", "exp": exp})
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"user_id":"int-1","role":"employer"}`, w.Body.String())
	})

	t.Run("Should default the role to candidate", func(t *testing.T) {
		token := signToken(t, jwt.SigningMethodHS256, []byte(testSecret), jwt.MapClaims{"sub": "cand-1", "exp": exp})
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"role":"candidate"`)
	})

	t.Run("Should reject a missing header", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me", nil))

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		body := decode(t, w)
		assert.False(t, body.Success)
		assert.Equal(t, string(apperror.KindUnauthorized), body.Error.Kind)
		assert.NotEmpty(t, body.RequestID)
	})

	t.Run("Should reject a token signed with another secret", func(t *testing.T) {
		token := signToken(t, jwt.SigningMethodHS256, []byte("other"), jwt.MapClaims{"sub": "int-1", "exp": exp})
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("Should reject other HMAC algorithms", func(t *testing.T) {
		token := signToken(t, jwt.SigningMethodHS512, []byte(testSecret), jwt.MapClaims{"sub": "int-1", "exp": exp})
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("Should reject an expired token", func(t *testing.T) {
		token := signToken(t, jwt.SigningMethodHS256, []byte(testSecret), jwt.MapClaims{"sub": "int-1", "exp": time.Now().Add(-time.Minute).Unix()})
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("Should forbid a role outside the list", func(t *testing.T) {
		token := signToken(t, jwt.SigningMethodHS256, []byte(testSecret), jwt.MapClaims{"sub": "cand-1", "role": "candidate", "exp": exp})
		req := httptest.NewRequest(http.MethodGet, "/admin", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, string(apperror.KindForbidden), decode(t, w).Error.Kind)
	})
}

func TestErrorHandler(t *testing.T) {
	r := gin.New()
	r.Use(RequestID(), ErrorHandler())
	r.GET("/conflict", func(c *gin.Context) {
		c.Error(apperror.Conflict("Interviewer is not available").WithDetail("conflicting_interview_id", "iv-1"))
	})
	r.GET("/internal", func(c *gin.Context) {
		c.Error(apperror.Internal(errors.New("pq: connection reset")))
	})
	r.GET("/plain", func(c *gin.Context) {
		c.Error(errors.New("unexpected"))
	})

	t.Run("Should render kind and details", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/conflict", nil)
		req.Header.Set(RequestIDHeader, "req-123")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, "req-123", w.Header().Get(RequestIDHeader))
		body := decode(t, w)
		assert.Equal(t, "req-123", body.RequestID)
		assert.Equal(t, "Interviewer is not available", body.Message)
		assert.Equal(t, string(apperror.KindConflict), body.Error.Kind)
		assert.Equal(t, "iv-1", body.Error.Details["conflicting_interview_id"])
	})

	for _, path := range []string{"/internal", "/plain"} {
		t.Run("Should hide internal errors on "+path, func(t *testing.T) {
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))

			assert.Equal(t, http.StatusInternalServerError, w.Code)
			assert.NotContains(t, w.Body.String(), "pq:")
			assert.Equal(t, string(apperror.KindInternal), decode(t, w).Error.Kind)
		})
	}
}

func TestRateLimitFallback(t *testing.T) {
	r := gin.New()
	r.Use(ErrorHandler())
	r.POST("/book", RateLimitMiddleware(nil, WriteRateLimitConfig(2, time.Minute), nil), func(c *gin.Context) {
		c.Status(http.StatusCreated)
	})

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/book", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		codes = append(codes, w.Code)
		if w.Code == http.StatusTooManyRequests {
			assert.NotEmpty(t, w.Header().Get("Retry-After"))
		}
	}
	assert.Equal(t, []int{http.StatusCreated, http.StatusCreated, http.StatusTooManyRequests}, codes)

	req := httptest.NewRequest(http.MethodPost, "/book", nil)
	req.RemoteAddr = "10.0.0.2:1234"
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusCreated, w.Code)
}
