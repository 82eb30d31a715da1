// Command test_integration drives a running view server through one full
// research session and a search.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

func baseURL() string {
	if u := os.Getenv("CHRONO_SERVER_URL"); u != "" {
		return u
	}
	return "http://localhost:8080"
}

func main() {
	// Wait for server to start
	time.Sleep(2 * time.Second)

	fmt.Println("Starting Integration Test...")

	topic := "History of the iPhone"
	if len(os.Args) > 1 {
		topic = os.Args[1]
	}

	fmt.Println("1. Creating session...")
	var created struct {
		SessionID string `json:"session_id"`
	}
	if !sendRequest("POST", "/sessions", map[string]string{"topic": topic}, &created) || created.SessionID == "" {
		fmt.Println("FAILED: Create session")
		os.Exit(1)
	}
	fmt.Printf("PASSED: Create session (%s)\n", created.SessionID)

	fmt.Println("2. Streaming...")
	if !sendRequest("POST", "/sessions/"+created.SessionID+"/start", nil, nil) {
		fmt.Println("FAILED: Start stream")
		os.Exit(1)
	}

	var timeline struct {
		State string            `json:"state"`
		Nodes []json.RawMessage `json:"nodes"`
	}
	deadline := time.Now().Add(10 * time.Minute)
	for time.Now().Before(deadline) {
		if !sendRequest("GET", "/timeline", nil, &timeline) {
			os.Exit(1)
		}
		if timeline.State == "complete" || timeline.State == "failed" {
			break
		}
		time.Sleep(2 * time.Second)
	}
	if timeline.State != "complete" || len(timeline.Nodes) == 0 {
		fmt.Printf("FAILED: Stream ended in state %q with %d nodes\n", timeline.State, len(timeline.Nodes))
		os.Exit(1)
	}
	fmt.Printf("PASSED: Stream (%d nodes)\n", len(timeline.Nodes))

	fmt.Println("3. Searching...")
	var result struct {
		Visible []string `json:"visible"`
		Matches []string `json:"matches"`
	}
	if !sendRequest("POST", "/filter/search", map[string]any{"query": "a", "immediate": true}, &result) {
		fmt.Println("FAILED: Search")
		os.Exit(1)
	}
	fmt.Printf("PASSED: Search (%d of %d visible nodes match)\n", len(result.Matches), len(result.Visible))
}

func sendRequest(method, endpoint string, payload, out any) bool {
	var body io.Reader
	if payload != nil {
		jsonBytes, _ := json.Marshal(payload)
		body = bytes.NewBuffer(jsonBytes)
	}

	req, err := http.NewRequest(method, baseURL()+endpoint, body)
	if err != nil {
		fmt.Printf("Error creating request: %v\n", err)
		return false
	}
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{}
	resp, err := client.Do(req)
	if err != nil {
		fmt.Printf("Error sending request: %v\n", err)
		return false
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 300 {
		fmt.Printf("Request failed with status %d: %s\n", resp.StatusCode, string(data))
		return false
	}
	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			fmt.Printf("Error decoding response: %v\n", err)
			return false
		}
	}
	return true
}
