//go:build integration

package integration

import (
	"bytes"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpload(t *testing.T) {
	env := SetupTestEnv(t)

	result := RegisterUser(t, env, "upload@example.com", "password123")
	token, apiKey := RegisterData(t, result)

	t.Run("upload with api key", func(t *testing.T) {
		resp := UploadFile(t, env, "", apiKey, "office-lease.txt", []byte("tenant rents the office"))
		require.Equal(t, http.StatusCreated, resp.StatusCode)

		data := ParseResponse(t, resp)["data"].(map[string]any)
		assert.Equal(t, "office-lease.txt", data["filename"])
		assert.EqualValues(t, 23, data["size_bytes"])
		assert.NotEmpty(t, data["id"])

		// Extraction is present with null fields and an explanatory note
		// because no LLM is configured in this environment.
		extraction := data["extraction"].(map[string]any)
		assert.Nil(t, extraction["tenant_name"])
		assert.NotEmpty(t, extraction["_note"])
	})

	t.Run("upload with bearer token", func(t *testing.T) {
		resp := UploadFile(t, env, token, "", "bearer-lease.txt", []byte("lease body"))
		assert.Equal(t, http.StatusCreated, resp.StatusCode)
	})

	t.Run("duplicate names get a numeric suffix", func(t *testing.T) {
		resp := UploadFile(t, env, "", apiKey, "office-lease.txt", []byte("second copy"))
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		data := ParseResponse(t, resp)["data"].(map[string]any)
		assert.Equal(t, "office-lease(1).txt", data["filename"])

		resp = UploadFile(t, env, "", apiKey, "office-lease.txt", []byte("third copy"))
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		data = ParseResponse(t, resp)["data"].(map[string]any)
		assert.Equal(t, "office-lease(2).txt", data["filename"])
	})

	t.Run("oversized file rejected", func(t *testing.T) {
		big := bytes.Repeat([]byte("x"), testMaxFileBytes+1)
		resp := UploadFile(t, env, "", apiKey, "big.txt", big)
		assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
	})

	t.Run("no credentials", func(t *testing.T) {
		resp := UploadFile(t, env, "", "", "anon.txt", []byte("hello"))
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("unknown api key", func(t *testing.T) {
		resp := UploadFile(t, env, "", "sk_does_not_exist", "anon.txt", []byte("hello"))
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})
}

func TestUploadListAndGet(t *testing.T) {
	env := SetupTestEnv(t)

	result := RegisterUser(t, env, "listing@example.com", "password123")
	_, apiKey := RegisterData(t, result)

	resp := UploadFile(t, env, "", apiKey, "a.txt", []byte("first"))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	uploaded := ParseResponse(t, resp)["data"].(map[string]any)
	artifactID := uploaded["id"].(string)

	resp = UploadFile(t, env, "", apiKey, "b.txt", []byte("second"))
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	t.Run("list shows both summaries", func(t *testing.T) {
		listResp := DoRequestWithAPIKey(t, env, "GET", "/api/v1/uploads", apiKey)
		require.Equal(t, http.StatusOK, listResp.StatusCode)

		data := ParseResponse(t, listResp)["data"].([]any)
		require.GreaterOrEqual(t, len(data), 2)
		names := []string{}
		for _, item := range data {
			names = append(names, item.(map[string]any)["filename"].(string))
		}
		assert.Contains(t, names, "a.txt")
		assert.Contains(t, names, "b.txt")
	})

	t.Run("get returns the full artifact", func(t *testing.T) {
		resp := DoRequestWithAPIKey(t, env, "GET", "/api/v1/uploads/"+artifactID, apiKey)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		data := ParseResponse(t, resp)["data"].(map[string]any)
		assert.Equal(t, "a.txt", data["filename"])
		assert.Equal(t, "first", data["text_excerpt"])
	})

	t.Run("other users cannot read it", func(t *testing.T) {
		otherResult := RegisterUser(t, env, "listing-other@example.com", "password123")
		_, otherKey := RegisterData(t, otherResult)

		resp := DoRequestWithAPIKey(t, env, "GET", "/api/v1/uploads/"+artifactID, otherKey)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestQuotaSnapshot(t *testing.T) {
	env := SetupTestEnv(t)

	result := RegisterUser(t, env, "quota@example.com", "password123")
	_, apiKey := RegisterData(t, result)

	resp := UploadFile(t, env, "", apiKey, "lease.txt", []byte("0123456789"))
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	quotaResp := DoRequestWithAPIKey(t, env, "GET", "/api/v1/quota", apiKey)
	require.Equal(t, http.StatusOK, quotaResp.StatusCode)

	data := ParseResponse(t, quotaResp)["data"].(map[string]any)
	assert.Equal(t, "free", data["plan"])
	assert.EqualValues(t, 10, data["storage_used_bytes"])
	assert.EqualValues(t, 100*1024*1024, data["storage_limit_bytes"])
	assert.EqualValues(t, 1, data["extraction_calls_used"])
	assert.EqualValues(t, 10, data["extraction_calls_limit"])
}
