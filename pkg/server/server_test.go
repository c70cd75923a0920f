package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tagview "tagview/engine/core"
	"tagview/engine/pubsub"
	"tagview/pkg/client"
)

const deviceSnapshot = `{"elements": {
	"thermostat": {
		"comment": "Hall",
		"config": [
			{"name": "setpoint", "value": 21.5, "type": 2},
			{"name": "serial", "value": "T-1", "readOnly": true},
			{"name": "eco", "type": 1}
		],
		"data": [{"name": "temperature", "value": 20.0, "readOnly": 1}],
		"cmd": [{"name": "reboot", "value": false}]
	}
}}`

func setupTestServer(t *testing.T, config Config) *Server {
	t.Helper()
	s := New(config)
	s.setupRoutes()
	t.Cleanup(func() { s.Close() })
	return s
}

func serve(s *Server, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestHealthCheck(t *testing.T) {
	s := setupTestServer(t, Config{})

	w := serve(s, "GET", "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)

	resp := decode[client.HealthResponse](t, w)
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, "tagview", resp.Server)
	assert.Zero(t, resp.Elements)
}

func TestPushSnapshotAndList(t *testing.T) {
	s := setupTestServer(t, Config{})

	w := serve(s, "POST", "/api/v1/snapshots", deviceSnapshot)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	render := decode[client.RenderResponse](t, w)
	assert.Equal(t, 5, render.Stats.TagsCreated)

	w = serve(s, "GET", "/api/v1/elements", "")
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[client.ElementListResponse](t, w)
	require.Equal(t, 1, list.Count)
	assert.Equal(t, "Hall", list.Elements[0].Comment)

	var names []string
	for _, tag := range list.Elements[0].Tags {
		names = append(names, tag.Name)
	}
	assert.Equal(t, []string{"setpoint", "serial", "eco", "temperature", "reboot"}, names)

	w = serve(s, "GET", "/api/v1/elements/thermostat/tags/reboot", "")
	require.Equal(t, http.StatusOK, w.Code)
	reboot := decode[tagview.TagView](t, w)
	assert.True(t, reboot.Command)
	assert.Equal(t, "click", reboot.Hook)
}

func TestPushSnapshot_SingleGroup(t *testing.T) {
	s := setupTestServer(t, Config{})

	w := serve(s, "POST", "/api/v1/snapshots?group=data", deviceSnapshot)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "data", decode[client.RenderResponse](t, w).Group)

	w = serve(s, "GET", "/api/v1/elements/thermostat", "")
	require.Equal(t, http.StatusOK, w.Code)
	el := decode[tagview.ElementView](t, w)
	require.Len(t, el.Tags, 1)
	assert.Equal(t, "temperature", el.Tags[0].Name)
}

func TestPushSnapshot_Invalid(t *testing.T) {
	s := setupTestServer(t, Config{})

	w := serve(s, "POST", "/api/v1/snapshots", `{"elements": [1, 2]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUnknownNodes(t *testing.T) {
	s := setupTestServer(t, Config{})
	serve(s, "POST", "/api/v1/snapshots", deviceSnapshot)

	assert.Equal(t, http.StatusNotFound, serve(s, "GET", "/api/v1/elements/lamp", "").Code)
	assert.Equal(t, http.StatusNotFound, serve(s, "GET", "/api/v1/elements/thermostat/tags/nope", "").Code)
	assert.Equal(t, http.StatusNotFound, serve(s, "POST", "/api/v1/elements/lamp/tags/x/click", "").Code)
}

func TestFocusGuardOverAPI(t *testing.T) {
	s := setupTestServer(t, Config{})
	serve(s, "POST", "/api/v1/snapshots", deviceSnapshot)

	require.Equal(t, http.StatusOK, serve(s, "POST", "/api/v1/elements/thermostat/tags/setpoint/focus", "").Code)
	w := serve(s, "POST", "/api/v1/elements/thermostat/tags/setpoint/input", `{"display": "23"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decode[tagview.TagView](t, w).Pending)

	w = serve(s, "POST", "/api/v1/snapshots", `{"elements":{"thermostat":{"config":{"setpoint":18}}}}`)
	assert.Equal(t, 1, decode[client.RenderResponse](t, w).Stats.ValuesDeferred)

	w = serve(s, "GET", "/api/v1/elements/thermostat/tags/setpoint", "")
	assert.Equal(t, "23", decode[tagview.TagView](t, w).Display)

	w = serve(s, "POST", "/api/v1/elements/thermostat/tags/setpoint/blur", "")
	assert.False(t, decode[tagview.TagView](t, w).Pending)

	serve(s, "POST", "/api/v1/snapshots", `{"elements":{"thermostat":{"config":{"setpoint":18}}}}`)
	w = serve(s, "GET", "/api/v1/elements/thermostat/tags/setpoint", "")
	assert.Equal(t, "18", decode[tagview.TagView](t, w).Display)
}

func TestEditQueuesMutation(t *testing.T) {
	s := setupTestServer(t, Config{})
	serve(s, "POST", "/api/v1/snapshots", deviceSnapshot)

	w := serve(s, "POST", "/api/v1/elements/thermostat/tags/setpoint/edit", `{"display": "22"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decode[client.InteractionResponse](t, w)
	require.NotNil(t, resp.Mutation)
	assert.NotEmpty(t, resp.RequestID)
	v, ok := resp.Mutation.Value("thermostat", "config", "setpoint")
	require.True(t, ok)
	assert.Equal(t, float64(22), v)
	assert.False(t, resp.Tag.Pending)

	sub, err := s.bus.Subscribe(pubsub.TopicMutations, "test")
	require.NoError(t, err)
	select {
	case msg := <-sub.Chan():
		out := msg.Payload.(*outbound)
		assert.Equal(t, resp.RequestID, out.ID)
	case <-time.After(time.Second):
		t.Fatal("mutation was not queued")
	}
}

func TestClickToggleWithoutState(t *testing.T) {
	s := setupTestServer(t, Config{})
	serve(s, "POST", "/api/v1/snapshots", deviceSnapshot)

	w := serve(s, "POST", "/api/v1/elements/thermostat/tags/eco/click", "")
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[client.InteractionResponse](t, w)
	assert.Nil(t, resp.Mutation)
	assert.Empty(t, resp.RequestID)

	w = serve(s, "POST", "/api/v1/elements/thermostat/tags/reboot/click", "")
	resp = decode[client.InteractionResponse](t, w)
	v, _ := resp.Mutation.Value("thermostat", "cmd", "reboot")
	assert.Equal(t, true, v)
}

func TestInteractionErrors(t *testing.T) {
	s := setupTestServer(t, Config{})
	serve(s, "POST", "/api/v1/snapshots", deviceSnapshot)

	tests := []struct {
		name   string
		path   string
		body   string
		status int
	}{
		{"read-only input", "/api/v1/elements/thermostat/tags/serial/input", `{"display": "x"}`, http.StatusConflict},
		{"read-only focus", "/api/v1/elements/thermostat/tags/temperature/focus", "", http.StatusConflict},
		{"click a value widget", "/api/v1/elements/thermostat/tags/setpoint/click", "", http.StatusConflict},
		{"edit a toggle", "/api/v1/elements/thermostat/tags/eco/edit", "", http.StatusConflict},
		{"undecodable display", "/api/v1/elements/thermostat/tags/setpoint/edit", `{"display": "warm"}`, http.StatusUnprocessableEntity},
		{"input without display", "/api/v1/elements/thermostat/tags/setpoint/input", `{}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(s, "POST", tt.path, tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
		})
	}
}

func TestDeleteElement(t *testing.T) {
	s := setupTestServer(t, Config{})
	serve(s, "POST", "/api/v1/snapshots", deviceSnapshot)

	assert.Equal(t, http.StatusNoContent, serve(s, "DELETE", "/api/v1/elements/thermostat", "").Code)
	assert.Equal(t, http.StatusNotFound, serve(s, "DELETE", "/api/v1/elements/thermostat", "").Code)
	assert.Zero(t, decode[client.HealthResponse](t, serve(s, "GET", "/health", "")).Elements)
}

func TestLogs(t *testing.T) {
	s := setupTestServer(t, Config{LogCapacity: 2})
	serve(s, "POST", "/api/v1/snapshots", deviceSnapshot)
	serve(s, "GET", "/api/v1/elements/thermostat/tags/nope", "")
	serve(s, "DELETE", "/api/v1/elements/thermostat", "")

	w := serve(s, "GET", "/api/v1/logs", "")
	require.Equal(t, http.StatusOK, w.Code)
	logs := decode[client.APILogsResponse](t, w)
	require.Equal(t, 2, logs.Count)
	assert.Equal(t, "error", logs.Logs[0].Status)
	assert.Equal(t, http.StatusNotFound, logs.Logs[0].StatusCode)
	assert.Equal(t, "thermostat", logs.Logs[1].Resource)
	assert.NotEmpty(t, logs.Logs[1].ID)

	assert.Equal(t, http.StatusOK, serve(s, "DELETE", "/api/v1/logs", "").Code)
	assert.Zero(t, decode[client.APILogsResponse](t, serve(s, "GET", "/api/v1/logs", "")).Count)
}

func TestCORSPreflight(t *testing.T) {
	s := setupTestServer(t, Config{})
	w := serve(s, "OPTIONS", "/api/v1/elements/thermostat/tags/setpoint/edit", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

// fakeDevice serves a snapshot over REST and records posted mutations.
type fakeDevice struct {
	mu        sync.Mutex
	snapshot  string
	mutations []string
	ids       []string
	push      chan string
}

func (d *fakeDevice) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == "/api" && r.Method == "GET":
		d.mu.Lock()
		body := d.snapshot
		d.mu.Unlock()
		fmt.Fprint(w, body)
	case r.URL.Path == "/api" && r.Method == "POST":
		var m map[string]any
		json.NewDecoder(r.Body).Decode(&m)
		raw, _ := json.Marshal(m)
		d.mu.Lock()
		d.mutations = append(d.mutations, string(raw))
		d.ids = append(d.ids, r.Header.Get(client.RequestIDHeader))
		d.mu.Unlock()
	case r.URL.Path == "/ws":
		upgrader := websocket.Upgrader{}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for frame := range d.push {
			if conn.WriteMessage(websocket.TextMessage, []byte(frame)) != nil {
				return
			}
		}
	default:
		http.NotFound(w, r)
	}
}

func (d *fakeDevice) sent() ([]string, []string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.mutations...), append([]string(nil), d.ids...)
}

func startHost(t *testing.T, config Config) *Server {
	t.Helper()
	s := setupTestServer(t, config)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	require.NoError(t, s.startWorkers(ctx))
	return s
}

func elementCount(s *Server) int {
	var n int
	s.loop.do(context.Background(), func() { n = s.reconciler.Tree().Len() })
	return n
}

func TestPollAndSend(t *testing.T) {
	device := &fakeDevice{snapshot: deviceSnapshot}
	ts := httptest.NewServer(device)
	defer ts.Close()

	s := startHost(t, Config{DeviceURL: ts.URL, Transport: TransportPoll, PollInterval: 20 * time.Millisecond})
	require.Eventually(t, func() bool { return elementCount(s) == 1 }, 2*time.Second, 10*time.Millisecond)

	w := serve(s, "POST", "/api/v1/elements/thermostat/tags/reboot/click", "")
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[client.InteractionResponse](t, w)

	require.Eventually(t, func() bool {
		bodies, _ := device.sent()
		return len(bodies) == 1
	}, 2*time.Second, 10*time.Millisecond)
	bodies, ids := device.sent()
	assert.JSONEq(t, `{"elements":{"thermostat":{"cmd":[{"name":"reboot","value":true}]}}}`, bodies[0])
	assert.Equal(t, resp.RequestID, ids[0])
}

func TestRepeatedClicksAllReachDevice(t *testing.T) {
	device := &fakeDevice{snapshot: deviceSnapshot}
	ts := httptest.NewServer(device)
	defer ts.Close()

	s := startHost(t, Config{DeviceURL: ts.URL, Transport: TransportPoll, PollInterval: 20 * time.Millisecond})
	require.Eventually(t, func() bool { return elementCount(s) == 1 }, 2*time.Second, 10*time.Millisecond)

	var want []string
	for i := 0; i < 5; i++ {
		w := serve(s, "POST", "/api/v1/elements/thermostat/tags/reboot/click", "")
		require.Equal(t, http.StatusOK, w.Code)
		resp := decode[client.InteractionResponse](t, w)
		require.NotEmpty(t, resp.RequestID)
		want = append(want, resp.RequestID)
	}

	require.Eventually(t, func() bool {
		bodies, _ := device.sent()
		return len(bodies) >= 5
	}, 2*time.Second, 10*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	_, ids := device.sent()
	assert.Equal(t, want, ids)
}

func TestStreamTransport(t *testing.T) {
	device := &fakeDevice{
		snapshot: `{"elements":{"lamp":{"config":[{"name":"power","value":false}]}}}`,
		push:     make(chan string, 1),
	}
	ts := httptest.NewServer(device)
	defer ts.Close()
	defer close(device.push)

	s := startHost(t, Config{DeviceURL: ts.URL, Transport: TransportWS})
	require.Eventually(t, func() bool { return elementCount(s) == 1 }, 2*time.Second, 10*time.Millisecond)

	device.push <- `{"elements":{"lamp":{"config":{"power":true}}}}`
	require.Eventually(t, func() bool {
		w := serve(s, "GET", "/api/v1/elements/lamp/tags/power", "")
		var view tagview.TagView
		return json.Unmarshal(w.Body.Bytes(), &view) == nil && view.Display == tagview.DefaultOnLabel
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSendWithoutDeviceIsDropped(t *testing.T) {
	s := startHost(t, Config{})
	serve(s, "POST", "/api/v1/snapshots", deviceSnapshot)

	w := serve(s, "POST", "/api/v1/elements/thermostat/tags/reboot/click", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSendFailureIsLogged(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == "GET" {
			fmt.Fprint(w, deviceSnapshot)
			return
		}
		http.Error(w, "rejected", http.StatusBadRequest)
	}))
	defer ts.Close()

	s := startHost(t, Config{DeviceURL: ts.URL, Transport: TransportNone})
	serve(s, "POST", "/api/v1/snapshots", deviceSnapshot)
	serve(s, "POST", "/api/v1/elements/thermostat/tags/reboot/click", "")

	require.Eventually(t, func() bool {
		for _, entry := range s.apiLogs.Snapshot(0) {
			if entry.Endpoint == client.DeviceAPIPath && entry.Status == "error" {
				return true
			}
		}
		return false
	}, 2*time.Second, 10*time.Millisecond)
}

func TestEventLoop_StoppedLoop(t *testing.T) {
	l := newEventLoop()
	ctx, cancel := context.WithCancel(context.Background())
	go l.run(ctx)

	ran := false
	require.NoError(t, l.do(context.Background(), func() { ran = true }))
	assert.True(t, ran)

	cancel()
	<-l.done
	assert.ErrorIs(t, l.do(context.Background(), func() {}), errLoopStopped)
}

func TestRingBuffer(t *testing.T) {
	r := newRingBuffer[int](3)
	assert.Nil(t, r.Snapshot(0))
	for i := 1; i <= 5; i++ {
		r.Append(i)
	}
	assert.Equal(t, []int{3, 4, 5}, r.Snapshot(0))
	assert.Equal(t, []int{4, 5}, r.Snapshot(2))
	assert.Equal(t, 3, r.Len())

	out, err := json.Marshal(r)
	require.NoError(t, err)
	assert.JSONEq(t, `[3,4,5]`, string(out))

	r.Clear()
	assert.Zero(t, r.Len())
}
