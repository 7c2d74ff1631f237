package internal

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

var httpTimeout = 5 * time.Second

// apiProvisionRoom hits POST /{room} on the HTTP side of the server.
// 200 means the room now exists with that password; 401 means it exists
// with a different one.
func apiProvisionRoom(wsURL, room, password string) (int, error) {
	base, err := httpBaseFromWSURL(wsURL)
	if err != nil {
		return 0, err
	}
	payload, err := json.Marshal(map[string]string{"password": password})
	if err != nil {
		return 0, err
	}
	endpoint := base + "/" + url.PathEscape(room)
	req, err := http.NewRequest(http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	client := &http.Client{Timeout: httpTimeout}
	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	_ = resp.Body.Close()
	return resp.StatusCode, nil
}

// httpBaseFromWSURL turns ws(s)://host/path into http(s)://host.
func httpBaseFromWSURL(wsURL string) (string, error) {
	parsed, err := url.Parse(wsURL)
	if err != nil {
		return "", err
	}
	switch parsed.Scheme {
	case "ws":
		parsed.Scheme = "http"
	case "wss":
		parsed.Scheme = "https"
	default:
		return "", fmt.Errorf("unsupported scheme %s", parsed.Scheme)
	}
	parsed.Path = ""
	parsed.RawQuery = ""
	parsed.Fragment = ""
	return strings.TrimRight(parsed.String(), "/"), nil
}
