// Package main provides a text-to-speech plugin.
// It speaks the recognized label with say on macOS and espeak-ng elsewhere.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
)

// Request represents the input from the plugin executor.
type Request struct {
	Action     string          `json:"action"`
	Label      string          `json:"label"`
	Confidence float64         `json:"confidence"`
	Config     json.RawMessage `json:"config"`
	Params     json.RawMessage `json:"params"`
}

// Response represents the output to the plugin executor.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// SpeakParams overrides what is spoken and how.
type SpeakParams struct {
	Text  string `json:"text"`
	Voice string `json:"voice"`
	Rate  int    `json:"rate"` // words per minute
}

func main() {
	var req Request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		writeErrorResponse(fmt.Sprintf("failed to decode request: %v", err))
		return
	}

	switch req.Action {
	case "speak", "say":
		text, err := handleSpeak(req)
		if err != nil {
			writeErrorResponse(fmt.Sprintf("action %s failed: %v", req.Action, err))
			return
		}
		data, _ := json.Marshal(map[string]string{"spoken": text})
		writeSuccessResponse(data)
	default:
		writeErrorResponse(fmt.Sprintf("unknown action: %s", req.Action))
	}
}

func handleSpeak(req Request) (string, error) {
	var p SpeakParams
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &p); err != nil {
			return "", fmt.Errorf("failed to parse params: %w", err)
		}
	}

	text := p.Text
	if text == "" {
		text = spokenForm(req.Label)
	}
	if text == "" {
		return "", errors.New("nothing to speak")
	}

	name, args := speechCommand(text, p)
	cmd := exec.Command(name, args...)
	if output, err := cmd.CombinedOutput(); err != nil {
		return "", fmt.Errorf("%s: %w: %s", name, err, string(output))
	}
	return text, nil
}

// spokenForm turns "Fist (No/Stop)" into "Fist" and "Hello/Hi" into "Hello".
func spokenForm(label string) string {
	if i := strings.Index(label, " ("); i > 0 {
		label = label[:i]
	}
	if i := strings.Index(label, "/"); i > 0 {
		label = label[:i]
	}
	return strings.TrimSpace(label)
}

func speechCommand(text string, p SpeakParams) (string, []string) {
	if runtime.GOOS == "darwin" {
		args := []string{}
		if p.Voice != "" {
			args = append(args, "-v", p.Voice)
		}
		if p.Rate > 0 {
			args = append(args, "-r", strconv.Itoa(p.Rate))
		}
		return "say", append(args, text)
	}

	name := "espeak-ng"
	if _, err := exec.LookPath(name); err != nil {
		name = "espeak"
	}
	args := []string{}
	if p.Voice != "" {
		args = append(args, "-v", p.Voice)
	}
	if p.Rate > 0 {
		args = append(args, "-s", strconv.Itoa(p.Rate))
	}
	return name, append(args, text)
}

// writeErrorResponse writes an error response to stdout.
func writeErrorResponse(errMsg string) {
	json.NewEncoder(os.Stdout).Encode(Response{Success: false, Error: errMsg})
}

// writeSuccessResponse writes a success response to stdout.
func writeSuccessResponse(data json.RawMessage) {
	json.NewEncoder(os.Stdout).Encode(Response{Success: true, Data: data})
}
