// chatcli is a terminal chat client for a running medichat server. It
// drives the same session controller the browser widget uses: type to
// chat, pick quick replies by number, upload a voice clip with
// /voice <file.wav>, toggle the saved theme with /theme.
package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/samcomdev/medichat/internal/client"
	"github.com/samcomdev/medichat/internal/model/chat"
)

func main() {
	log.SetFlags(0)

	server := flag.String("server", "http://localhost:8080", "medichat server base URL")
	flag.Parse()

	jar, err := cookiejar.New(nil)
	if err != nil {
		log.Fatalf("cookie jar: %v", err)
	}

	transport := &httpTransport{
		base: strings.TrimRight(*server, "/"),
		http: &http.Client{Jar: jar, Timeout: 60 * time.Second},
	}

	theme := client.NewTheme(newFileStorage(), false)

	var buttons []*client.DisplayNode
	ctrl := client.NewController(transport, func(node *client.DisplayNode) {
		buttons = printNode(node, buttons, theme.Dark())
	})

	ctx := context.Background()
	fmt.Println("Connected to", *server)
	fmt.Println("Type a message, a quick-reply number, /voice <file.wav>, /theme, or exit.")

	if err := ctrl.SubmitText(ctx, "hello"); err != nil {
		log.Fatalf("server unreachable: %v", err)
	}

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return
		}
		line := strings.TrimSpace(scanner.Text())

		switch {
		case line == "":
			continue
		case line == "exit" || line == "bye" || line == "quit":
			_ = ctrl.SubmitText(ctx, line)
			return
		case line == "/theme":
			if theme.Toggle() {
				fmt.Println("Theme: dark")
			} else {
				fmt.Println("Theme: light")
			}
			continue
		case strings.HasPrefix(line, "/voice "):
			uploadClip(ctx, ctrl, strings.TrimSpace(strings.TrimPrefix(line, "/voice ")))
			continue
		}

		// A bare number activates the matching quick reply.
		if n, err := strconv.Atoi(line); err == nil && n >= 1 && n <= len(buttons) {
			buttons[n-1].OnClick()
			continue
		}

		if err := ctrl.SubmitText(ctx, line); err != nil {
			log.Printf("send failed: %v", err)
		}
	}
}

// uploadClip plays the voice path end to end: the recorder "captures" by
// reading the file, then the capture machine uploads it.
func uploadClip(ctx context.Context, ctrl *client.Controller, path string) {
	capture := client.NewVoiceCapture(&fileRecorder{path: path}, ctrl, func(m string) {
		fmt.Println(m)
	})
	if err := capture.Start(); err != nil {
		return
	}
	if err := capture.Stop(ctx); err != nil {
		log.Printf("upload failed: %v", err)
	}
}

// httpTransport is the wire half of the controller: /chat as a form post,
// /speech as a multipart upload, both sharing the session cookie.
type httpTransport struct {
	base string
	http *http.Client
}

func (t *httpTransport) SendText(ctx context.Context, message string) (chat.Payload, error) {
	form := url.Values{"message": {message}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.base+"/chat",
		strings.NewReader(form.Encode()))
	if err != nil {
		return chat.Payload{}, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return t.do(req)
}

func (t *httpTransport) SendAudio(ctx context.Context, clip []byte) (chat.Payload, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("audio", "clip.wav")
	if err != nil {
		return chat.Payload{}, err
	}
	if _, err := part.Write(clip); err != nil {
		return chat.Payload{}, err
	}
	if err := mw.Close(); err != nil {
		return chat.Payload{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.base+"/speech", &body)
	if err != nil {
		return chat.Payload{}, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return t.do(req)
}

func (t *httpTransport) do(req *http.Request) (chat.Payload, error) {
	resp, err := t.http.Do(req)
	if err != nil {
		return chat.Payload{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return chat.Payload{}, fmt.Errorf("server returned %d: %s", resp.StatusCode, body)
	}

	var payload chat.Payload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return chat.Payload{}, fmt.Errorf("decode payload: %w", err)
	}
	return payload, nil
}

// fileRecorder stands in for the microphone: the clip comes from a wav
// file on disk.
type fileRecorder struct {
	path string
	open bool
}

func (f *fileRecorder) Start() error {
	info, err := os.Stat(f.path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return errors.New("path is a directory")
	}
	f.open = true
	return nil
}

func (f *fileRecorder) Stop() ([]byte, error) {
	f.open = false
	return os.ReadFile(f.path)
}

// printNode flattens a display node into terminal lines and returns the
// currently actionable quick replies.
func printNode(node *client.DisplayNode, buttons []*client.DisplayNode, dark bool) []*client.DisplayNode {
	if node.Class == "quick-replies" {
		next := make([]*client.DisplayNode, 0, len(node.Children))
		for i, b := range node.Children {
			fmt.Printf("  [%d] %s\n", i+1, b.Text)
			next = append(next, b)
		}
		return next
	}

	role := "bot"
	if strings.Contains(node.Class, "user") {
		role = "you"
	}
	prefix := fmt.Sprintf("%s: ", role)
	if dark {
		prefix = fmt.Sprintf("\033[1m%s\033[0m: ", role)
	}

	var lines []string
	collectText(node, &lines)
	for i, line := range lines {
		if i == 0 {
			fmt.Printf("%s%s\n", prefix, line)
			continue
		}
		fmt.Printf("%s%s\n", strings.Repeat(" ", len(role)+2), line)
	}
	return buttons
}

func collectText(node *client.DisplayNode, lines *[]string) {
	if node.Class == "meta" {
		return
	}
	if node.Tag == "span" || (node.Text != "" && len(node.Children) == 0) {
		*lines = append(*lines, node.Text)
	}
	for _, child := range node.Children {
		collectText(child, lines)
	}
}

// fileStorage persists the theme under the user config dir; any failure
// lets the theme degrade to memory.
type fileStorage struct {
	path string
}

func newFileStorage() *fileStorage {
	dir, err := os.UserConfigDir()
	if err != nil {
		return &fileStorage{}
	}
	return &fileStorage{path: filepath.Join(dir, "medichat", "theme")}
}

func (s *fileStorage) Get(key string) (string, bool) {
	if s.path == "" {
		return "", false
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		return "", false
	}
	return strings.TrimSpace(string(data)), true
}

func (s *fileStorage) Set(key, value string) error {
	if s.path == "" {
		return errors.New("no config directory")
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(s.path, []byte(value), 0o644)
}
