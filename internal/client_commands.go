package internal

import (
	"crypto/rand"
	"encoding/base32"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gorilla/websocket"
)

func (model *TUIModel) scheduleReconnect() tea.Cmd {
	const retryDelay = 2 * time.Second
	// schedule a future poke that nudges Update to try the connection again.
	return tea.Tick(retryDelay, func(time.Time) tea.Msg {
		return reconnectMsg{}
	})
}

// provisionCmd creates the room (or verifies its password) over HTTP
// before any websocket traffic happens.
func (model *TUIModel) provisionCmd() tea.Cmd {
	room, password := model.room, model.password
	return func() tea.Msg {
		status, err := apiProvisionRoom(model.serverURL, room, password)
		return provisionedMsg{status: status, err: err}
	}
}

// websocket dial
func (model *TUIModel) connectCmd() tea.Cmd {
	return func() tea.Msg {
		conn, _, err := websocket.DefaultDialer.Dial(model.serverURL, http.Header{})
		if err != nil {
			return connectFailedMsg{err: err}
		}
		model.websocketConn = conn
		return connectedMsg{}
	}
}

// joinCmd sends the newuser envelope for the configured room.
func (model *TUIModel) joinCmd() tea.Cmd {
	event := ClientEvent{
		Type:     EventNewUser,
		Room:     model.room,
		Name:     model.username,
		Password: model.password,
	}
	return model.sendEventCmd(event, false)
}

func (model *TUIModel) sendChatCmd(body string) tea.Cmd {
	event := ClientEvent{
		Type: EventChatMessage,
		Body: body,
		Time: time.Now().Format(time.RFC3339),
	}
	return model.sendEventCmd(event, true)
}

func (model *TUIModel) sendWhisperCmd(recipient, body string) tea.Cmd {
	event := ClientEvent{
		Type: EventWhisper,
		Body: body,
		To:   recipient,
		Time: time.Now().Format(time.RFC3339),
	}
	return model.sendEventCmd(event, true)
}

func (model *TUIModel) sendEventCmd(event ClientEvent, clearInput bool) tea.Cmd {
	return func() tea.Msg {
		if model.websocketConn == nil {
			return errorMsg(fmt.Errorf("websocket not connected"))
		}
		encoded, err := json.Marshal(event)
		if err != nil {
			return errorMsg(err)
		}
		model.writeMutex.Lock()
		err = model.websocketConn.WriteMessage(websocket.TextMessage, encoded)
		model.writeMutex.Unlock()
		if err != nil {
			return errorMsg(err)
		}
		if clearInput {
			model.textInput.SetValue("")
		}
		return nil
	}
}

// readOnceCmd reads a single server envelope and feeds it back into Update.
func (model *TUIModel) readOnceCmd() tea.Cmd {
	return func() tea.Msg {
		if model.websocketConn == nil {
			return errorMsg(fmt.Errorf("websocket not connected"))
		}
		messageType, payload, err := model.websocketConn.ReadMessage()
		if err != nil {
			return connectFailedMsg{err: err}
		}
		if messageType != websocket.TextMessage {
			return incomingMsg(ServerEvent{})
		}
		var event ServerEvent
		if err := json.Unmarshal(payload, &event); err != nil {
			return incomingMsg(ServerEvent{Type: EventError, Body: string(payload)})
		}
		return incomingMsg(event)
	}
}

// entry for bubbletea
func RunClient(serverURL, room, username string) error {
	program := tea.NewProgram(NewTUIModel(serverURL, room, username))
	_, err := program.Run()
	return err
}

// make shareable room name using base32
func generateRoomKey(length int) string {
	if length < 8 {
		length = 8
	}
	byteLen := (length * 5) / 8
	if (length*5)%8 != 0 {
		byteLen++
	}
	b := make([]byte, byteLen)
	_, _ = rand.Read(b)
	enc := base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(b)
	if len(enc) >= length {
		return enc[:length]
	}
	return enc
}
