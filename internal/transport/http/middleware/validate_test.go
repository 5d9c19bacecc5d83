package middleware

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-bff-auth/internal/domain"
	"github.com/go-bff-auth/internal/transport/http/upload"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type profileBody struct {
	Name     string  `json:"name" form:"name" validate:"required,min=2,max=50"`
	Username *string `json:"username" form:"username" validate:"omitempty,min=3,max=30,username"`
}

type usernameParams struct {
	Username string `param:"username" validate:"required,min=3,max=30,username"`
}

type pageQuery struct {
	Detailed bool `query:"detailed"`
	Limit    int  `query:"limit"`
}

func jsonRequest(body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestValidate_JSONBody(t *testing.T) {
	var got profileBody
	h := Validate(Schema{Body: profileBody{}})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = Valid[profileBody](r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, jsonRequest(`{"name":"Ada","username":"ada_l"}`))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Ada", got.Name)
	require.NotNil(t, got.Username)
	assert.Equal(t, "ada_l", *got.Username)
}

func TestValidate_JoinsAllErrors(t *testing.T) {
	h := Validate(Schema{Body: profileBody{}})(http.HandlerFunc(okHandler))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, jsonRequest(`{"name":"A","username":"no spaces"}`))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	msg := message(t, rr)
	assert.Contains(t, msg, `"name" must be at least 2 characters`)
	assert.Contains(t, msg, `"username" may only contain letters, numbers and underscores`)
}

func TestValidate_EmptyBodyReportsRequired(t *testing.T) {
	h := Validate(Schema{Body: profileBody{}})(http.HandlerFunc(okHandler))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, jsonRequest(``))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, `"name" is required`, message(t, rr))
}

func TestValidate_RejectsUnknownField(t *testing.T) {
	h := Validate(Schema{Body: profileBody{}})(http.HandlerFunc(okHandler))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, jsonRequest(`{"name":"Ada","role":"Admin"}`))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, `"role" is not allowed`, message(t, rr))
}

func TestValidate_MultipartFields(t *testing.T) {
	var got profileBody
	h := Validate(Schema{Body: profileBody{}})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = Valid[profileBody](r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, multipartRequest(t, map[string]string{"name": "Grace"}, nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Grace", got.Name)
	assert.Nil(t, got.Username)
}

func TestValidate_RouteParams(t *testing.T) {
	r := chi.NewRouter()
	r.With(Validate(Schema{Params: usernameParams{}})).Get("/users/{username}", func(w http.ResponseWriter, r *http.Request) {
		p, ok := Valid[usernameParams](r.Context())
		assert.True(t, ok)
		assert.Equal(t, "ada_l", p.Username)
		w.WriteHeader(http.StatusOK)
	})

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/users/ada_l", nil))
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/users/ab", nil))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestValidate_QueryCoercion(t *testing.T) {
	var got pageQuery
	h := Validate(Schema{Query: pageQuery{}})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = Valid[pageQuery](r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/?detailed=true&limit=5", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, got.Detailed)
	assert.Equal(t, 5, got.Limit)

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/?limit=many", nil))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, `"limit" must be a number`, message(t, rr))
}

func TestValidate_RequiredFileAndCleanup(t *testing.T) {
	p := filepath.Join(t.TempDir(), "upload-1.png")
	require.NoError(t, os.WriteFile(p, pngBytes, 0o600))

	req := jsonRequest(`{"name":"A"}`)
	ctx := upload.WithRegistry(req.Context())
	upload.Track(ctx, &domain.FileUpload{Field: "avatar", Path: p})

	h := Validate(Schema{Body: profileBody{}, Files: []string{"avatar", "cover"}})(http.HandlerFunc(okHandler))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req.WithContext(ctx))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, `"name" must be at least 2 characters; "cover" is required`, message(t, rr))
	_, err := os.Stat(p)
	assert.True(t, os.IsNotExist(err))
}

func TestValidate_OversizedJSONBodyIs413(t *testing.T) {
	h := LimitJSONBody(64)(Validate(Schema{Body: profileBody{}})(http.HandlerFunc(okHandler)))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, jsonRequest(`{"name":"`+strings.Repeat("a", 200)+`"}`))

	assert.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
	assert.Equal(t, "Request body too large", message(t, rr))
}

func TestLimitJSONBody_SmallBodyPasses(t *testing.T) {
	h := LimitJSONBody(64)(Validate(Schema{Body: profileBody{}})(http.HandlerFunc(okHandler)))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, jsonRequest(`{"name":"Ada"}`))
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestLimitJSONBody_SkipsMultipart(t *testing.T) {
	var limited bool
	h := LimitJSONBody(4)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, err := io.ReadAll(r.Body)
		limited = err != nil
		w.WriteHeader(http.StatusOK)
	}))
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(strings.Repeat("x", 100)))
	req.Header.Set("Content-Type", "multipart/form-data; boundary=xyz")
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.False(t, limited)
}
