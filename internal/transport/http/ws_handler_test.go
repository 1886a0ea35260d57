package http

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"vibecheck-service/internal/llm"
)

func dialGenerate(t *testing.T, serverURL, token string) *websocket.Conn {
	t.Helper()
	u := "ws" + strings.TrimPrefix(serverURL, "http") + "/ws/generate?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	return conn
}

func TestWebSocketGenerationFlow(t *testing.T) {
	router, client := newTestRouter(t)
	client.script(scoredReply, nil)
	server := httptest.NewServer(router)
	defer server.Close()

	conn := dialGenerate(t, server.URL, tokenFor(t, "owner-1"))
	defer conn.Close()

	if err := conn.WriteJSON(map[string]any{"type": "generate", "payload": generateBody}); err != nil {
		t.Fatalf("write generate: %v", err)
	}

	var stages []string
	for {
		typ, payload := readNext(conn, t, "")
		if typ == "status" {
			stages = append(stages, payload["stage"].(string))
			continue
		}
		if typ != "generated" {
			t.Fatalf("expected generated, got %s %v", typ, payload)
		}
		if payload["quizId"] == "" || payload["questionsInserted"] != float64(1) {
			t.Fatalf("unexpected generated payload %v", payload)
		}
		break
	}
	want := []string{"prompting", "generating", "parsing", "persisting"}
	if strings.Join(stages, ",") != strings.Join(want, ",") {
		t.Fatalf("expected stages %v, got %v", want, stages)
	}
}

func TestWebSocketReportsErrors(t *testing.T) {
	router, client := newTestRouter(t)
	client.script("", llm.ErrMissingCredentials)
	server := httptest.NewServer(router)
	defer server.Close()

	conn := dialGenerate(t, server.URL, tokenFor(t, "owner-1"))
	defer conn.Close()

	if err := conn.WriteJSON(map[string]any{"type": "ping"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, payload := readNext(conn, t, "error"); payload["message"] != "unsupported message type" {
		t.Fatalf("unexpected error payload %v", payload)
	}

	if err := conn.WriteJSON(map[string]any{"type": "generate", "payload": generateBody}); err != nil {
		t.Fatalf("write generate: %v", err)
	}
	for {
		typ, payload := readNext(conn, t, "")
		if typ == "status" {
			continue
		}
		if typ != "error" || !strings.Contains(payload["message"].(string), "API key") {
			t.Fatalf("expected credentials error, got %s %v", typ, payload)
		}
		break
	}
}

func TestWebSocketRequiresUser(t *testing.T) {
	router, _ := newTestRouter(t)
	server := httptest.NewServer(router)
	defer server.Close()

	u := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/generate"
	_, resp, err := websocket.DefaultDialer.Dial(u, nil)
	if err == nil {
		t.Fatalf("expected dial to fail without a token")
	}
	if resp == nil || resp.StatusCode != 401 {
		t.Fatalf("expected 401 response, got %+v", resp)
	}
}

func readNext(conn *websocket.Conn, t *testing.T, expect string) (string, map[string]any) {
	t.Helper()
	var msg struct {
		Type    string         `json:"type"`
		Payload map[string]any `json:"payload"`
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read json: %v", err)
	}
	if expect != "" && msg.Type != expect {
		t.Fatalf("expected type %s, got %s", expect, msg.Type)
	}
	return msg.Type, msg.Payload
}

func TestWebSocketAcceptsBackToBackGenerations(t *testing.T) {
	router, client := newTestRouter(t)
	client.script(scoredReply, nil)
	server := httptest.NewServer(router)
	defer server.Close()

	conn := dialGenerate(t, server.URL, tokenFor(t, "owner-1"))
	defer conn.Close()

	for i := 0; i < 5; i++ {
		if err := conn.WriteJSON(map[string]any{"type": "generate", "payload": generateBody}); err != nil {
			t.Fatalf("write generate %d: %v", i, err)
		}
		for {
			typ, payload := readNext(conn, t, "")
			if typ == "status" {
				continue
			}
			if typ != "generated" {
				t.Fatalf("generation %d: expected generated, got %s %v", i, typ, payload)
			}
			break
		}
	}
}
