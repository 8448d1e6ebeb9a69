package unlock

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// errTransport always fails, simulating DNS failures, refused
// connections and the like.
type errTransport struct{}

func (errTransport) Send(context.Context, string, url.Values) (int, []byte, error) {
	return 0, nil, errors.New("dial tcp: connection refused")
}

func newTestStatus(t *testing.T, cfg *stubConfig, serverURL string) *Status {
	t.Helper()
	cfg.Endpoint = serverURL
	return NewStatus(cfg, WithTransport(NewHTTPTransport()))
}

func TestAttemptWebserverUnlock_Success(t *testing.T) {
	cfg, priv := newTestConfig(t)
	key := mustSignKeyFile(t, priv, KeyPayload{
		ProductID:  "test-synth",
		MachineIDs: []string{"XJ4P2"},
		Email:      "confirmed@example.com",
	})

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "user@example.com", r.PostForm.Get("email"))
		assert.Equal(t, "hunter2", r.PostForm.Get("pw"))
		assert.Equal(t, "test-synth", r.PostForm.Get("product"))
		assert.Equal(t, "XJ4P2", r.PostForm.Get("mach"), "primary machine id is registered")

		fmt.Fprintf(w, `<UNLOCK status="succeeded"><KEY>%s</KEY></UNLOCK>`, key)
	}))
	defer server.Close()

	status := newTestStatus(t, cfg, server.URL)
	res := status.AttemptWebserverUnlock(context.Background(), "user@example.com", "hunter2")

	require.True(t, res.Succeeded)
	assert.Empty(t, res.ErrorMessage)
	assert.True(t, status.IsUnlocked())
	assert.Equal(t, "confirmed@example.com", status.UserEmail(), "server-confirmed email wins")
}

func TestAttemptWebserverUnlock_SuccessStoresSubmittedEmail(t *testing.T) {
	cfg, priv := newTestConfig(t)
	key := mustSignKeyFile(t, priv, KeyPayload{ProductID: "test-synth"})

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `<UNLOCK status="succeeded"><KEY>%s</KEY></UNLOCK>`, key)
	}))
	defer server.Close()

	status := newTestStatus(t, cfg, server.URL)
	res := status.AttemptWebserverUnlock(context.Background(), "typed@example.com", "pw")

	require.True(t, res.Succeeded)
	assert.Equal(t, "typed@example.com", status.UserEmail(), "falls back to the submitted address")
}

func TestAttemptWebserverUnlock_MachineMismatch(t *testing.T) {
	cfg, priv := newTestConfig(t)
	// Bound to ZZ99 while this "machine" is {XJ4P2, AA11}.
	key := mustSignKeyFile(t, priv, KeyPayload{
		ProductID:  "test-synth",
		MachineIDs: []string{"ZZ99"},
	})

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `<UNLOCK status="succeeded"><KEY>%s</KEY></UNLOCK>`, key)
	}))
	defer server.Close()

	status := newTestStatus(t, cfg, server.URL)
	res := status.AttemptWebserverUnlock(context.Background(), "user@example.com", "pw")

	assert.False(t, res.Succeeded)
	assert.NotEmpty(t, res.ErrorMessage)
	assert.False(t, status.IsUnlocked(), "mismatched key must not unlock")
}

func TestAttemptWebserverUnlock_ServerDeclines(t *testing.T) {
	cfg, _ := newTestConfig(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<UNLOCK status="failed">`+
			`<ERROR>No purchases found for this account.</ERROR>`+
			`<MESSAGE>Version 2.1 is now available.</MESSAGE>`+
			`<URL>https://store.example.com/download</URL>`+
			`</UNLOCK>`)
	}))
	defer server.Close()

	status := newTestStatus(t, cfg, server.URL)
	res := status.AttemptWebserverUnlock(context.Background(), "user@example.com", "pw")

	assert.False(t, res.Succeeded)
	assert.Equal(t, "No purchases found for this account.", res.ErrorMessage)
	// Informative fields travel regardless of the outcome.
	assert.Equal(t, "Version 2.1 is now available.", res.InformativeMessage)
	assert.Equal(t, "https://store.example.com/download", res.URLToLaunch)
	assert.False(t, status.IsUnlocked())
}

func TestAttemptWebserverUnlock_MessageOnSuccess(t *testing.T) {
	cfg, priv := newTestConfig(t)
	key := mustSignKeyFile(t, priv, KeyPayload{ProductID: "test-synth"})

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `<UNLOCK status="succeeded"><KEY>%s</KEY>`+
			`<MESSAGE>Thanks for registering!</MESSAGE></UNLOCK>`, key)
	}))
	defer server.Close()

	status := newTestStatus(t, cfg, server.URL)
	res := status.AttemptWebserverUnlock(context.Background(), "user@example.com", "pw")

	require.True(t, res.Succeeded)
	assert.Equal(t, "Thanks for registering!", res.InformativeMessage)
}

func TestAttemptWebserverUnlock_HTTP500(t *testing.T) {
	cfg, _ := newTestConfig(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "internal error", http.StatusInternalServerError)
	}))
	defer server.Close()

	status := newTestStatus(t, cfg, server.URL)
	res := status.AttemptWebserverUnlock(context.Background(), "user@example.com", "pw")

	assert.False(t, res.Succeeded)
	assert.Equal(t, connectionFailedMessage, res.ErrorMessage)
	assert.False(t, status.IsUnlocked())
}

func TestAttemptWebserverUnlock_TransportError(t *testing.T) {
	cfg, _ := newTestConfig(t)
	status := NewStatus(cfg, WithTransport(errTransport{}))

	res := status.AttemptWebserverUnlock(context.Background(), "user@example.com", "pw")

	assert.False(t, res.Succeeded)
	assert.Equal(t, connectionFailedMessage, res.ErrorMessage)
	assert.False(t, status.IsUnlocked())
}

func TestAttemptWebserverUnlock_MalformedReply(t *testing.T) {
	cfg, _ := newTestConfig(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html>this is not the reply you are looking for")
	}))
	defer server.Close()

	status := newTestStatus(t, cfg, server.URL)
	res := status.AttemptWebserverUnlock(context.Background(), "user@example.com", "pw")

	// Bad reply shape and bad network degrade to the same coarse outcome.
	assert.False(t, res.Succeeded)
	assert.Equal(t, connectionFailedMessage, res.ErrorMessage)
	assert.False(t, status.IsUnlocked())
}

func TestParseServerReply(t *testing.T) {
	reply, err := parseServerReply([]byte(`<UNLOCK status="succeeded"><KEY>k</KEY></UNLOCK>`))
	require.NoError(t, err)
	assert.True(t, reply.succeeded())
	assert.Equal(t, "k", reply.Key)

	reply, err = parseServerReply([]byte(`<UNLOCK status="failed"><ERROR>nope</ERROR></UNLOCK>`))
	require.NoError(t, err)
	assert.False(t, reply.succeeded())
	assert.Equal(t, "nope", reply.Error)

	_, err = parseServerReply([]byte(`{"json": "instead"}`))
	assert.ErrorIs(t, err, ErrReplyInvalid)
}
