package api

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/randalmurphal/plank/internal/schema"
)

func dialWS(t *testing.T, srv *Server) *websocket.Conn {
	t.Helper()
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/ws"
	ws, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	t.Cleanup(func() { _ = ws.Close() })
	return ws
}

// readUntil reads messages until match returns true or the deadline passes.
func readUntil(t *testing.T, ws *websocket.Conn, match func(map[string]any) bool) map[string]any {
	t.Helper()
	_ = ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			t.Fatalf("failed to read message: %v", err)
		}
		var msg map[string]any
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("failed to parse message: %v", err)
		}
		if match(msg) {
			return msg
		}
	}
}

func isEvent(name string) func(map[string]any) bool {
	return func(m map[string]any) bool {
		return m["type"] == "event" && m["event"] == name
	}
}

func TestWSHandler_InitialSnapshot(t *testing.T) {
	srv, _ := newTestServer(t)
	ws := dialWS(t, srv)

	msg := readUntil(t, ws, isEvent("snapshot"))
	data, ok := msg["data"].(map[string]any)
	if !ok {
		t.Fatalf("snapshot data = %T, want object", msg["data"])
	}
	workspaces, _ := data["workspaces"].([]any)
	if len(workspaces) != 1 {
		t.Errorf("expected 1 workspace in snapshot, got %d", len(workspaces))
	}
	if srv.wsHandler.ConnectionCount() != 1 {
		t.Errorf("expected 1 connection, got %d", srv.wsHandler.ConnectionCount())
	}
}

func TestWSHandler_StreamsMutations(t *testing.T) {
	srv, st := newTestServer(t)
	ws := dialWS(t, srv)
	readUntil(t, ws, isEvent("snapshot"))

	if _, err := st.CreateProject(context.Background(), schema.ProjectInput{Name: "Launch"}); err != nil {
		t.Fatalf("CreateProject: %v", err)
	}

	notice := readUntil(t, ws, isEvent("notice"))
	data := notice["data"].(map[string]any)
	if data["level"] != "success" || data["op"] != "createProject" {
		t.Errorf("unexpected notice: %v", data)
	}

	snap := readUntil(t, ws, isEvent("snapshot"))
	projects, _ := snap["data"].(map[string]any)["projects"].([]any)
	if len(projects) != 1 {
		t.Errorf("expected 1 project in snapshot, got %d", len(projects))
	}
}

func TestWSHandler_Ping(t *testing.T) {
	srv, _ := newTestServer(t)
	ws := dialWS(t, srv)

	if err := ws.WriteJSON(WSMessage{Type: "ping"}); err != nil {
		t.Fatalf("failed to send ping: %v", err)
	}
	readUntil(t, ws, func(m map[string]any) bool { return m["type"] == "pong" })
}

func TestWSHandler_Select(t *testing.T) {
	srv, st := newTestServer(t)
	p, err := st.CreateProject(context.Background(), schema.ProjectInput{Name: "Launch"})
	if err != nil {
		t.Fatal(err)
	}
	ws := dialWS(t, srv)
	readUntil(t, ws, isEvent("snapshot"))

	if err := ws.WriteJSON(WSMessage{Type: "select", ProjectID: "p-missing"}); err != nil {
		t.Fatal(err)
	}
	readUntil(t, ws, func(m map[string]any) bool { return m["type"] == "error" })

	if err := ws.WriteJSON(WSMessage{Type: "select", ProjectID: p.ID}); err != nil {
		t.Fatal(err)
	}
	snap := readUntil(t, ws, func(m map[string]any) bool {
		if !isEvent("snapshot")(m) {
			return false
		}
		cur, _ := m["data"].(map[string]any)["currentProject"].(map[string]any)
		return cur != nil
	})
	cur := snap["data"].(map[string]any)["currentProject"].(map[string]any)
	if cur["id"] != p.ID {
		t.Errorf("currentProject = %v, want %s", cur["id"], p.ID)
	}
}

func TestWSHandler_UnknownMessage(t *testing.T) {
	srv, _ := newTestServer(t)
	ws := dialWS(t, srv)

	if err := ws.WriteJSON(map[string]string{"type": "bogus"}); err != nil {
		t.Fatal(err)
	}
	msg := readUntil(t, ws, func(m map[string]any) bool { return m["type"] == "error" })
	if !strings.Contains(msg["error"].(string), "bogus") {
		t.Errorf("error = %v, want mention of message type", msg["error"])
	}
}

func TestWSHandler_Close(t *testing.T) {
	srv, _ := newTestServer(t)
	ws := dialWS(t, srv)
	readUntil(t, ws, isEvent("snapshot"))

	srv.wsHandler.Close()
	if n := srv.wsHandler.ConnectionCount(); n != 0 {
		t.Errorf("expected 0 connections after Close, got %d", n)
	}
}
