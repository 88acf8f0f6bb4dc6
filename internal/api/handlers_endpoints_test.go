package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (e *testEnv) apiRequest(t *testing.T, method, path, token string, body interface{}) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, e.ts.URL+path, reader)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func TestEndpointCreateAndGet(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.loginUser(t, "dev@example.com")

	resp := env.apiRequest(t, http.MethodPost, "/api/v1/endpoints", token, map[string]string{
		"target": "http://localhost:9000/cb",
		"method": "post",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created struct {
		ID     string `json:"id"`
		Target string `json:"target"`
		Method string `json:"method"`
		URL    string `json:"url"`
	}
	decode(t, resp, &created)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "http://localhost:9000/cb", created.Target)
	assert.Equal(t, "POST", created.Method, "method normalized to upper case")
	assert.Equal(t, "http://localhost:8080/hook/"+created.ID, created.URL)

	resp = env.apiRequest(t, http.MethodGet, "/api/v1/endpoints/"+created.ID, token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var got struct {
		ID     string `json:"id"`
		Target string `json:"target"`
		Method string `json:"method"`
	}
	decode(t, resp, &got)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, created.Target, got.Target)
	assert.Equal(t, created.Method, got.Method)
}

func TestEndpointCreateValidation(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.loginUser(t, "dev@example.com")

	cases := []struct {
		name   string
		target string
		method string
	}{
		{"non-localhost host", "http://evil.example/x", "POST"},
		{"https scheme", "https://localhost/x", "POST"},
		{"method not allowed", "http://localhost/x", "TRACE"},
		{"empty method", "http://localhost/x", ""},
		{"not a url", "nope", "POST"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := env.apiRequest(t, http.MethodPost, "/api/v1/endpoints", token, map[string]string{
				"target": tc.target,
				"method": tc.method,
			})
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		})
	}
}

func TestEndpointListAndDelete(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.loginUser(t, "dev@example.com")

	resp := env.apiRequest(t, http.MethodPost, "/api/v1/endpoints", token, map[string]string{
		"target": "http://localhost:9000/cb",
		"method": "POST",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created struct {
		ID string `json:"id"`
	}
	decode(t, resp, &created)

	resp = env.apiRequest(t, http.MethodGet, "/api/v1/endpoints", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list []json.RawMessage
	decode(t, resp, &list)
	assert.Len(t, list, 1)

	resp = env.apiRequest(t, http.MethodDelete, "/api/v1/endpoints/"+created.ID, token, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = env.apiRequest(t, http.MethodGet, "/api/v1/endpoints/"+created.ID, token, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestEndpointOwnership(t *testing.T) {
	env := newTestEnv(t)
	ownerID, _ := env.loginUser(t, "owner@example.com")
	_, otherToken := env.loginUser(t, "other@example.com")

	ep := env.createEndpoint(t, ownerID, "http://localhost:9000/cb", "POST")

	// Another user cannot see or delete it.
	resp := env.apiRequest(t, http.MethodGet, "/api/v1/endpoints/"+ep.ID, otherToken, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp = env.apiRequest(t, http.MethodDelete, "/api/v1/endpoints/"+ep.ID, otherToken, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = env.apiRequest(t, http.MethodGet, "/api/v1/endpoints", otherToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list []json.RawMessage
	decode(t, resp, &list)
	assert.Empty(t, list)
}

func TestEndpointRoutesRequireAuth(t *testing.T) {
	env := newTestEnv(t)

	resp := env.apiRequest(t, http.MethodGet, "/api/v1/endpoints", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = env.apiRequest(t, http.MethodPost, "/api/v1/endpoints", "lhs_bogus", map[string]string{
		"target": "http://localhost:9000/cb",
		"method": "POST",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
