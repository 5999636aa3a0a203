package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"condash/internal/models"
)

func TestLogStream_RelaysJournalLines(t *testing.T) {
	services := &fakeServices{streamLines: []string{"line one", "line two"}}
	cfg := testConfig()
	cfg.Services = services
	srv := httptest.NewServer(NewRouter(cfg))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/services/user/comfyui.service/logs?lines=50"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()

	want := []string{
		"--- Streaming journal for comfyui.service ---",
		"line one",
		"line two",
	}
	for _, expect := range want {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read failed: %v", err)
		}
		if string(msg) != expect {
			t.Fatalf("expected %q, got %q", expect, msg)
		}
	}

	// Server closes once the journal channel drains.
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Fatal("expected stream to end after channel close")
	}

	streams := services.streams()
	if len(streams) != 1 {
		t.Fatalf("expected 1 StreamLogs call, got %d", len(streams))
	}
	call := streams[0]
	if call.spec != (models.ServiceSpec{Scope: models.ScopeUser, Name: "comfyui.service"}) {
		t.Fatalf("unexpected stream spec: %+v", call.spec)
	}
	if call.lines != 50 {
		t.Fatalf("expected lines=50, got %d", call.lines)
	}
}

func TestLogStream_InvalidScopeRejectedBeforeUpgrade(t *testing.T) {
	router := NewRouter(testConfig())

	req := httptest.NewRequest(http.MethodGet, "/api/services/global/x.service/logs", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, rr.Code)
	}
}
