//go:build integration
// +build integration

package integration

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func putJSON(t *testing.T, path, body string) (*http.Response, string) {
	t.Helper()

	req, err := http.NewRequestWithContext(context.Background(), http.MethodPut,
		testServerURL+path, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() {
		assert.NoError(t, resp.Body.Close(), "Failed to close response body")
	}()

	bodyBytes, err := io.ReadAll(resp.Body)
	require.NoError(t, err, "Failed to read response body")
	return resp, string(bodyBytes)
}

func getJSON(t *testing.T, path string) (*http.Response, string) {
	t.Helper()

	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet,
		testServerURL+path, nil)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() {
		assert.NoError(t, resp.Body.Close(), "Failed to close response body")
	}()

	bodyBytes, err := io.ReadAll(resp.Body)
	require.NoError(t, err, "Failed to read response body")
	return resp, string(bodyBytes)
}

func TestManageLinkFlow(t *testing.T) {
	require.NoError(t, resetTables(db))

	subscribeAndConfirm(t, "jane@example.com", "Jane Doe")

	resp, body := postJSON(t, "/api/preferences/manage-link", `{"email":"jane@example.com"}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "If this address is subscribed")

	mail, ok := outbox.lastTo("jane@example.com")
	require.True(t, ok, "expected a manage-link email")
	assert.Equal(t, "Manage your newsletter preferences", mail.Subject)
	assert.Contains(t, mail.Body,
		frontendBaseURL+"/manage-preferences?email="+url.QueryEscape("jane@example.com"))

	// an unknown address gets the same answer and no email
	outbox.reset()
	resp, body = postJSON(t, "/api/preferences/manage-link", `{"email":"nobody@example.com"}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "If this address is subscribed")
	_, ok = outbox.lastTo("nobody@example.com")
	assert.False(t, ok, "unknown address must not receive email")
}

func TestPreferencesFlow(t *testing.T) {
	require.NoError(t, resetTables(db))

	subscribeAndConfirm(t, "jane@example.com", "Jane Doe")

	resp, _ := postJSON(t, "/api/preferences/manage-link", `{"email":"jane@example.com"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	token := fetchToken(t, "jane@example.com")

	// reading preferences does not consume the token
	getResp, body := getJSON(t, "/api/preferences?email="+url.QueryEscape("jane@example.com")+"&token="+token)
	assert.Equal(t, http.StatusOK, getResp.StatusCode)
	assert.Contains(t, body, `"frequency":"WEEKLY"`)

	getResp, _ = getJSON(t, "/api/preferences?email="+url.QueryEscape("jane@example.com")+"&token="+token)
	assert.Equal(t, http.StatusOK, getResp.StatusCode, "token must survive reads")

	// updating consumes it
	putResp, body := putJSON(t, "/api/preferences",
		`{"email":"jane@example.com","token":"`+token+`","frequency":"MONTHLY","categories":["product"]}`)
	assert.Equal(t, http.StatusOK, putResp.StatusCode)
	assert.Contains(t, body, "Your preferences have been updated.")

	sub := fetchSubscriber(t, "jane@example.com")
	assert.Equal(t, "MONTHLY", sub["frequency"])
	assert.Contains(t, sub["categories"], "product")

	putResp, body = putJSON(t, "/api/preferences",
		`{"email":"jane@example.com","token":"`+token+`","frequency":"DAILY"}`)
	assert.Equal(t, http.StatusBadRequest, putResp.StatusCode)
	assert.Contains(t, body, "invalid or was already used")
}

func TestPreferencesWrongToken(t *testing.T) {
	require.NoError(t, resetTables(db))

	subscribeAndConfirm(t, "jane@example.com", "Jane Doe")

	resp, body := getJSON(t,
		"/api/preferences?email="+url.QueryEscape("jane@example.com")+"&token=deadbeef")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body, "invalid or was already used")
}
