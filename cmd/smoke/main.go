package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/gorilla/websocket"
)

// Pretty print JSON helper
func prettyPrint(v interface{}) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Printf("%v\n", v)
		return
	}
	fmt.Println(string(b))
}

type smoke struct {
	baseURL string
	client  *http.Client
	failed  int
}

func (s *smoke) send(method, path string, body interface{}) (int, map[string]interface{}, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		bodyReader = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequest(method, s.baseURL+"/api"+path, bodyReader)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, err
	}
	var out map[string]interface{}
	_ = json.Unmarshal(raw, &out)
	return resp.StatusCode, out, nil
}

// step runs one request and checks the status code.
func (s *smoke) step(title, method, path string, body interface{}, want int) map[string]interface{} {
	color.Yellow("\n%s", title)
	status, res, err := s.send(method, path, body)
	if err != nil {
		color.Red("Failed: %v", err)
		s.failed++
		return nil
	}
	if status != want {
		color.Red("Status: %d (want %d)", status, want)
		s.failed++
	} else {
		color.Green("Status: %d", status)
	}
	if verbose {
		prettyPrint(res)
	}
	return res
}

var verbose bool

func dataField(res map[string]interface{}, key string) string {
	data, ok := res["data"].(map[string]interface{})
	if !ok {
		return ""
	}
	v, _ := data[key].(string)
	return v
}

func (s *smoke) realtime() {
	color.Yellow("\nRealtime echo")

	u, err := url.Parse(s.baseURL)
	if err != nil {
		color.Red("Failed: %v", err)
		s.failed++
		return
	}
	if u.Scheme == "https" {
		u.Scheme = "wss"
	} else {
		u.Scheme = "ws"
	}
	u.Path = "/ws"

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		color.Red("Failed: %v", err)
		s.failed++
		return
	}
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var hello map[string]interface{}
	if err := conn.ReadJSON(&hello); err != nil {
		color.Red("Failed: %v", err)
		s.failed++
		return
	}
	_ = conn.WriteJSON(map[string]interface{}{"type": "message", "data": map[string]interface{}{"text": "ping"}})

	var echo map[string]interface{}
	if err := conn.ReadJSON(&echo); err != nil {
		color.Red("Failed: %v", err)
		s.failed++
		return
	}
	color.Green("Connected: %v", hello["data"])
	color.Green("Echo: %v", echo["data"])
}

func main() {
	base := flag.String("base", "http://localhost:3000", "backend base URL")
	message := flag.String("message", "Hello from the smoke test", "chat message to send")
	flag.BoolVar(&verbose, "v", false, "print response bodies")
	flag.Parse()

	s := &smoke{baseURL: *base, client: &http.Client{Timeout: 60 * time.Second}}

	color.Cyan("Starting flowchat-be smoke test against %s\n", *base)

	s.step("1. Health", http.MethodGet, "/health", nil, http.StatusOK)
	created := s.step("2. Create session", http.MethodPost, "/sessions", nil, http.StatusCreated)
	sessionID := dataField(created, "id")

	if sessionID == "" {
		color.Red("Skipping chat steps: failed to create session")
		s.failed++
	} else {
		fmt.Printf("Created Session ID: %s\n", sessionID)

		reply := s.step("3. Send chat", http.MethodPost, "/chat/send", map[string]interface{}{
			"message":   *message,
			"sessionId": sessionID,
		}, http.StatusOK)
		if data, ok := reply["data"].(map[string]interface{}); ok {
			if assistant, ok := data["assistantMessage"].(map[string]interface{}); ok {
				fmt.Printf("Reply: %v\n", assistant["content"])
			}
		}

		s.step("4. History", http.MethodGet, "/chat/messages/"+sessionID, nil, http.StatusOK)
		s.step("5. Rename", http.MethodPatch, "/sessions/"+sessionID, map[string]interface{}{"title": "Smoke"}, http.StatusOK)
		s.step("6. Cleanup", http.MethodDelete, "/sessions/"+sessionID, nil, http.StatusOK)
		s.step("7. Deleted session is gone", http.MethodGet, "/sessions/"+sessionID, nil, http.StatusNotFound)
	}

	s.step("8. Flows", http.MethodGet, "/flows", nil, http.StatusOK)
	s.realtime()

	if s.failed > 0 {
		color.Red("\n%d step(s) failed", s.failed)
		os.Exit(1)
	}
	color.Cyan("\nAll steps passed")
}
