package middleware

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vimoda/web3-oauth-api/internal/models"
	"github.com/vimoda/web3-oauth-api/internal/services"
)

type fakeDeveloperService struct {
	developers map[string]*models.Developer
	err        error
}

func (f *fakeDeveloperService) FindByAPIKey(ctx context.Context, apiKey string) (*models.Developer, error) {
	if f.err != nil {
		return nil, f.err
	}
	developer, ok := f.developers[apiKey]
	if !ok {
		return nil, services.ErrUnknownAPIKey
	}
	return developer, nil
}

func signBody(secret string, body []byte, nonce string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	mac.Write([]byte(nonce))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func newHMACTestRouter(developers services.DeveloperServiceInterface) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.POST("/protected", HMACAuthMiddleware(developers), func(c *gin.Context) {
		developer, ok := DeveloperFromContext(c)
		if !ok {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "developer missing from context"})
			return
		}

		// Binding must still see the body the middleware consumed
		var payload map[string]interface{}
		if err := c.ShouldBindJSON(&payload); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{"app": developer.AppName})
	})
	return engine
}

func testDevelopers() *fakeDeveloperService {
	return &fakeDeveloperService{developers: map[string]*models.Developer{
		"key-1": {APIKey: "key-1", APISecret: "secret-1", AppName: "demo-app"},
	}}
}

func signedRequest(apiKey, secret string, body []byte, nonce string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/protected", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", apiKey)
	req.Header.Set("X-Nonce", nonce)
	req.Header.Set("X-Signature", signBody(secret, body, nonce))
	return req
}

func TestHMACAuthAcceptsValidSignature(t *testing.T) {
	engine := newHMACTestRouter(testDevelopers())

	body := []byte(`{"publicKey":"abc"}`)
	recorder := httptest.NewRecorder()
	engine.ServeHTTP(recorder, signedRequest("key-1", "secret-1", body, "1756700000000"))

	require.Equal(t, http.StatusOK, recorder.Code)

	var response map[string]string
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &response))
	assert.Equal(t, "demo-app", response["app"])
}

func TestHMACAuthRejectsMissingHeaders(t *testing.T) {
	engine := newHMACTestRouter(testDevelopers())

	cases := []struct {
		name string
		omit string
	}{
		{"missing api key", "X-API-Key"},
		{"missing nonce", "X-Nonce"},
		{"missing signature", "X-Signature"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			body := []byte(`{}`)
			req := signedRequest("key-1", "secret-1", body, "1")
			req.Header.Del(tc.omit)

			recorder := httptest.NewRecorder()
			engine.ServeHTTP(recorder, req)

			assert.Equal(t, http.StatusUnauthorized, recorder.Code)
			assert.Contains(t, recorder.Body.String(), string(models.ErrorCodeMissingCredentials))
		})
	}
}

func TestHMACAuthRejectsUnknownAPIKey(t *testing.T) {
	engine := newHMACTestRouter(testDevelopers())

	body := []byte(`{}`)
	recorder := httptest.NewRecorder()
	engine.ServeHTTP(recorder, signedRequest("nope", "secret-1", body, "1"))

	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	assert.Contains(t, recorder.Body.String(), string(models.ErrorCodeUnknownApplication))
}

func TestHMACAuthRejectsBodyMutation(t *testing.T) {
	engine := newHMACTestRouter(testDevelopers())

	body := []byte(`{"publicKey":"abc"}`)
	req := signedRequest("key-1", "secret-1", body, "1")

	// Replay the signature over a body that differs by one byte
	mutated := []byte(`{"publicKey":"abd"}`)
	req.Body = httptest.NewRequest(http.MethodPost, "/protected", bytes.NewReader(mutated)).Body
	req.ContentLength = int64(len(mutated))

	recorder := httptest.NewRecorder()
	engine.ServeHTTP(recorder, req)

	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	assert.Contains(t, recorder.Body.String(), string(models.ErrorCodeInvalidSignature))
}

func TestHMACAuthRejectsNonceMutation(t *testing.T) {
	engine := newHMACTestRouter(testDevelopers())

	body := []byte(`{}`)
	req := signedRequest("key-1", "secret-1", body, "1756700000000")
	req.Header.Set("X-Nonce", "1756700000001")

	recorder := httptest.NewRecorder()
	engine.ServeHTTP(recorder, req)

	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	assert.Contains(t, recorder.Body.String(), string(models.ErrorCodeInvalidSignature))
}

func TestHMACAuthRejectsWrongSecret(t *testing.T) {
	engine := newHMACTestRouter(testDevelopers())

	body := []byte(`{}`)
	recorder := httptest.NewRecorder()
	engine.ServeHTTP(recorder, signedRequest("key-1", "wrong-secret", body, "1"))

	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	assert.Contains(t, recorder.Body.String(), string(models.ErrorCodeInvalidSignature))
}

func TestHMACAuthReportsStoreFailureAsServiceError(t *testing.T) {
	engine := newHMACTestRouter(&fakeDeveloperService{err: services.ErrDatabaseError})

	body := []byte(`{}`)
	recorder := httptest.NewRecorder()
	engine.ServeHTTP(recorder, signedRequest("key-1", "secret-1", body, "1"))

	assert.Equal(t, http.StatusInternalServerError, recorder.Code)
}
