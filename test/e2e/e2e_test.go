//go:build e2e
// +build e2e

package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/joho/godotenv"
)

const (
	defaultBaseURL = "http://localhost:8080/api/v1"
	defaultWSURL   = "ws://localhost:8080/ws/v1"
	userPass       = "password123"
)

var (
	baseURL   string
	wsURL     string
	userEmail string
	userToken string
)

func TestMain(m *testing.M) {
	// Load .env if present (ignore error)
	_ = godotenv.Load("../../.env")

	baseURL = os.Getenv("BASE_URL")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	wsURL = os.Getenv("WS_URL")
	if wsURL == "" {
		wsURL = defaultWSURL
	}
	userEmail = fmt.Sprintf("e2e_%s@example.com", uuid.NewString()[:8])

	os.Exit(m.Run())
}

type envelope[T any] struct {
	Data  T `json:"data"`
	Error *struct {
		Code string `json:"code"`
	} `json:"error"`
}

type category struct {
	ID            string `json:"id"`
	Section       string `json:"section"`
	QuestionCount int    `json:"question_count"`
}

type practiceView struct {
	CategoryKey string `json:"category_key"`
	Index       int    `json:"index"`
	Total       int    `json:"total"`
	Question    struct {
		ID      string   `json:"id"`
		Type    string   `json:"type"`
		Options []string `json:"options"`
	} `json:"question"`
	ShowExplanation bool `json:"show_explanation"`
}

func TestE2EFlow(t *testing.T) {
	t.Run("Sign Up", func(t *testing.T) {
		resp, err := post("/auth/sign-up", map[string]string{
			"email":    userEmail,
			"password": userPass,
			"nickname": "E2E Learner",
		}, "")
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", resp.StatusCode, readBody(resp))
		}
		var body envelope[struct {
			Token string `json:"token"`
		}]
		decodeJSON(t, resp, &body)
		if body.Data.Token == "" {
			t.Fatal("token is empty")
		}
		userToken = body.Data.Token
	})

	t.Run("Duplicate Sign Up", func(t *testing.T) {
		resp, err := post("/auth/sign-up", map[string]string{"email": userEmail, "password": userPass}, "")
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusConflict {
			t.Fatalf("expected 409, got %d: %s", resp.StatusCode, readBody(resp))
		}
	})

	t.Run("Session", func(t *testing.T) {
		resp, err := get("/auth/me", userToken)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", resp.StatusCode, readBody(resp))
		}
		var body envelope[struct {
			Profile struct {
				Name string `json:"name"`
			} `json:"profile"`
		}]
		decodeJSON(t, resp, &body)
		if body.Data.Profile.Name != "E2E Learner" {
			t.Errorf("expected nickname as profile name, got %q", body.Data.Profile.Name)
		}
	})

	var theory []category
	t.Run("List Categories", func(t *testing.T) {
		resp, err := get("/categories", "")
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", resp.StatusCode, readBody(resp))
		}
		var body envelope[struct {
			Theoretical []category `json:"theoretical"`
			Operational []category `json:"operational"`
		}]
		decodeJSON(t, resp, &body)
		if len(body.Data.Theoretical) == 0 {
			t.Fatal("expected at least one theoretical category")
		}
		theory = body.Data.Theoretical
	})

	t.Run("Practice Flow", func(t *testing.T) {
		if len(theory) == 0 {
			t.Skip("no categories")
		}
		cat := theory[0].ID
		base := "/practice/" + url.PathEscape(cat)

		resp, err := post(base+"/start", nil, userToken)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("start: expected 200, got %d: %s", resp.StatusCode, readBody(resp))
		}
		var start envelope[practiceView]
		decodeJSON(t, resp, &start)
		resp.Body.Close()
		if start.Data.Total != theory[0].QuestionCount {
			t.Errorf("expected %d questions, got %d", theory[0].QuestionCount, start.Data.Total)
		}

		var answer any
		if len(start.Data.Question.Options) > 0 {
			answer = start.Data.Question.Options[0]
			if start.Data.Question.Type == "multipleChoice" {
				answer = []string{start.Data.Question.Options[0]}
			}
		}
		resp, err = post(base+"/answer", map[string]any{"answer": answer}, userToken)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("answer: expected 200, got %d: %s", resp.StatusCode, readBody(resp))
		}
		var outcome envelope[struct {
			Correct bool         `json:"correct"`
			View    practiceView `json:"view"`
		}]
		decodeJSON(t, resp, &outcome)
		resp.Body.Close()
		if !outcome.Data.View.ShowExplanation {
			t.Error("explanation should show after answering")
		}

		// A second answer to the same question is rejected.
		resp, err = post(base+"/answer", map[string]any{"answer": answer}, userToken)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		if resp.StatusCode != http.StatusConflict {
			t.Errorf("re-answer: expected 409, got %d: %s", resp.StatusCode, readBody(resp))
		}
		resp.Body.Close()

		resp, err = post(base+"/reset", nil, userToken)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("reset: expected 200, got %d: %s", resp.StatusCode, readBody(resp))
		}
		var reset envelope[practiceView]
		decodeJSON(t, resp, &reset)
		resp.Body.Close()
		if reset.Data.Index != 0 {
			t.Errorf("reset should move to the first question, got index %d", reset.Data.Index)
		}
	})

	t.Run("Mock Exam Over WebSocket", func(t *testing.T) {
		resp, err := get("/exam/availability", userToken)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		var av envelope[struct {
			Ready bool `json:"ready"`
		}]
		decodeJSON(t, resp, &av)
		resp.Body.Close()
		if !av.Data.Ready {
			t.Skip("bank cannot fill a paper")
		}

		resp, err = post("/exam/start", nil, userToken)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("start: expected 200, got %d: %s", resp.StatusCode, readBody(resp))
		}
		resp.Body.Close()

		conn, _, err := websocket.DefaultDialer.Dial(wsURL+"/exam/stream?token="+url.QueryEscape(userToken), nil)
		if err != nil {
			t.Fatalf("dial: %v", err)
		}
		defer conn.Close()
		conn.SetReadDeadline(time.Now().Add(10 * time.Second))

		var first struct {
			Event string `json:"event"`
		}
		if err := conn.ReadJSON(&first); err != nil {
			t.Fatalf("read state: %v", err)
		}
		if first.Event != "state" {
			t.Fatalf("expected initial state, got %q", first.Event)
		}

		if err := conn.WriteJSON(map[string]string{"action": "ping"}); err != nil {
			t.Fatalf("write ping: %v", err)
		}
		if !awaitEvent(conn, "pong") {
			t.Error("no pong received")
		}

		resp, err = post("/exam/abandon", nil, userToken)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		if resp.StatusCode != http.StatusOK {
			t.Errorf("abandon: expected 200, got %d: %s", resp.StatusCode, readBody(resp))
		}
		resp.Body.Close()
	})

	t.Run("Single Device Session", func(t *testing.T) {
		old := userToken

		resp, err := post("/auth/sign-in", map[string]string{"email": userEmail, "password": userPass}, "")
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("sign-in: expected 200, got %d: %s", resp.StatusCode, readBody(resp))
		}
		var body envelope[struct {
			Token string `json:"token"`
		}]
		decodeJSON(t, resp, &body)
		resp.Body.Close()
		userToken = body.Data.Token

		resp, err = get("/dashboard", old)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("old token: expected 401, got %d", resp.StatusCode)
		}
		if !strings.Contains(readBody(resp), "SESSION_INVALIDATED") {
			t.Error("expected SESSION_INVALIDATED")
		}
	})

	t.Run("Sign Out", func(t *testing.T) {
		resp, err := post("/auth/sign-out", nil, userToken)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d", resp.StatusCode)
		}

		resp, err = get("/dashboard", userToken)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("expected 401 after sign-out, got %d", resp.StatusCode)
		}
	})
}

// Helpers

// awaitEvent reads until ev arrives, skipping ticks.
func awaitEvent(conn *websocket.Conn, ev string) bool {
	for i := 0; i < 10; i++ {
		var msg struct {
			Event string `json:"event"`
		}
		if err := conn.ReadJSON(&msg); err != nil {
			return false
		}
		if msg.Event == ev {
			return true
		}
	}
	return false
}

func post(path string, body interface{}, token string) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBytes, _ := json.Marshal(body)
		bodyReader = bytes.NewBuffer(jsonBytes)
	}

	req, err := http.NewRequest("POST", baseURL+path, bodyReader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	client := &http.Client{Timeout: 10 * time.Second}
	return client.Do(req)
}

func get(path string, token string) (*http.Response, error) {
	req, err := http.NewRequest("GET", baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	client := &http.Client{Timeout: 10 * time.Second}
	return client.Do(req)
}

func readBody(resp *http.Response) string {
	b, _ := io.ReadAll(resp.Body)
	return string(b)
}

func decodeJSON(t *testing.T, resp *http.Response, v interface{}) {
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("json decode: %v", err)
	}
}
