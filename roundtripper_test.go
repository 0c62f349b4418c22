package snapwyr

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/snapwyr/snapwyr-go/pkg/event"
)

func TestWrap_logsOutgoingRequest(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		// the wrapped transport must see the original body
		require.Equal(t, `{"name":"A"}`, string(body))
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id":7}`))
	}))
	defer upstream.Close()

	s, out := newService(t, &Options{LogBody: true, Format: FormatJSON})
	client := s.Wrap(&http.Client{})

	resp, err := client.Post(upstream.URL, "application/json", bytes.NewBufferString(`{"name":"A"}`))
	require.NoError(t, err)
	respBody, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()

	// the caller still gets the full response body
	require.Equal(t, `{"id":7}`, string(respBody))

	var got map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	require.Equal(t, "POST", got["method"])
	require.Equal(t, float64(201), got["status"])
	require.Equal(t, `{"name":"A"}`, got["requestBody"])
	require.Equal(t, `{"id":7}`, got["responseBody"])
	require.Equal(t, "outgoing", got["direction"])
}

func TestWrap_transportFailureProducesErrorEvent(t *testing.T) {
	s, out := newService(t, &Options{Format: FormatJSON})
	client := s.Wrap(&http.Client{})

	_, err := client.Get("http://127.0.0.1:1/unreachable")
	require.Error(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	require.NotContains(t, got, "status")
	require.NotEmpty(t, got["error"])
}

func TestWrap_disabledPassesThrough(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))
	defer upstream.Close()

	s, out := newService(t, &Options{Disabled: true})
	client := s.Wrap(&http.Client{})

	resp, err := client.Get(upstream.URL)
	require.NoError(t, err)
	resp.Body.Close()
	require.Empty(t, out.String())
}

func TestWrap_eventsReachSubscribers(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))
	defer upstream.Close()

	s, _ := newService(t, &Options{Silent: true})
	var seen []event.Event
	s.Subscribe(func(e event.Event) { seen = append(seen, e) })

	client := s.Wrap(&http.Client{})
	resp, err := client.Get(upstream.URL)
	require.NoError(t, err)
	resp.Body.Close()

	require.Len(t, seen, 1)
	require.Equal(t, event.Outgoing, seen[0].Direction)
	require.Equal(t, 200, seen[0].Status)
	require.NotEmpty(t, seen[0].ID)
}
