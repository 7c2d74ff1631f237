package internal

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gorilla/websocket"
)

type (
	connectedMsg     struct{}
	incomingMsg      ServerEvent
	errorMsg         error
	connectFailedMsg struct{ err error }
	reconnectMsg     struct{}
	provisionedMsg   struct {
		status int
		err    error
	}
)

func (model *TUIModel) Update(message tea.Msg) (tea.Model, tea.Cmd) {
	switch typedMessage := message.(type) {
	case tea.KeyMsg:
		// Any mode should respect Ctrl+C so the user can bail out quickly.
		if typedMessage.Type == tea.KeyCtrlC {
			model.closeConn()
			return model, tea.Quit
		}
		switch model.mode {
		case modeMenu:
			switch typedMessage.String() {
			case "1", "j", "J":
				model.pendingAction = actionJoin
				model.promptForName()
				return model, nil
			case "2", "c", "C":
				model.pendingAction = actionCreate
				model.promptForName()
				return model, nil
			case "q", "Q", "3":
				return model, tea.Quit
			}
			return model, nil
		case modeNamePrompt:
			switch typedMessage.Type {
			case tea.KeyEnter:
				trimmed := strings.TrimSpace(model.textInput.Value())
				if trimmed == "" {
					model.systemNotice("Display name cannot be empty.")
					return model, nil
				}
				model.username = trimmed
				if model.pendingAction == actionCreate {
					model.room = generateRoomKey(12)
					model.systemNotice(fmt.Sprintf("New room: %s — share this name with the others.", model.room))
					model.promptForPassword()
					return model, nil
				}
				if model.room != "" {
					model.promptForPassword()
					return model, nil
				}
				model.promptForRoom()
				return model, nil
			case tea.KeyEsc:
				model.backToMenu()
				return model, nil
			}
		case modeRoomPrompt:
			switch typedMessage.Type {
			case tea.KeyEnter:
				trimmed := strings.TrimSpace(model.textInput.Value())
				if trimmed == "" {
					return model, nil
				}
				model.room = trimmed
				model.promptForPassword()
				return model, nil
			case tea.KeyEsc:
				model.backToMenu()
				return model, nil
			}
		case modePasswordPrompt:
			switch typedMessage.Type {
			case tea.KeyEnter:
				model.password = model.textInput.Value()
				if model.password == "" {
					model.systemNotice("Password cannot be empty.")
					return model, nil
				}
				// provision first: creates the room or verifies the password.
				return model, model.provisionCmd()
			case tea.KeyEsc:
				model.backToMenu()
				return model, nil
			}
		case modeChat:
			if typedMessage.Type == tea.KeyEnter {
				trimmed := strings.TrimSpace(model.textInput.Value())
				if cmd, handled := model.handleChatInput(trimmed); handled {
					return model, cmd
				}
			}
		}
		var command tea.Cmd
		model.textInput, command = model.textInput.Update(typedMessage)
		return model, command

	case provisionedMsg:
		if typedMessage.err != nil {
			model.systemNotice(fmt.Sprintf("Error reaching server: %v", typedMessage.err))
			return model, nil
		}
		if typedMessage.status == 401 {
			model.systemNotice("Wrong password for this room. Try again.")
			model.promptForPassword()
			return model, nil
		}
		if typedMessage.status != 200 {
			model.systemNotice(fmt.Sprintf("Server refused provisioning (status %d).", typedMessage.status))
			return model, nil
		}
		model.enterChat()
		return model, model.connectCmd()

	case connectedMsg:
		model.isConnected = true
		model.connectionError = nil
		// announce ourselves; the server answers with the room history.
		return model, tea.Batch(model.joinCmd(), model.readOnceCmd())

	case incomingMsg:
		model.applyServerEvent(ServerEvent(typedMessage))
		return model, model.readOnceCmd()

	case errorMsg:
		model.connectionError = typedMessage
		return model, tea.Quit

	case connectFailedMsg:
		model.connectionError = typedMessage.err
		model.isConnected = false
		if model.mode == modeChat {
			return model, model.scheduleReconnect()
		}
		return model, nil

	case reconnectMsg:
		if model.mode == modeChat && !model.isConnected {
			return model, model.connectCmd()
		}
		return model, nil
	}
	return model, nil
}

// handleChatInput interprets the chat prompt: /quit, /w whispers, or a
// plain broadcast message. Returns handled=false when the key press should
// fall through to the text input.
func (model *TUIModel) handleChatInput(trimmed string) (tea.Cmd, bool) {
	if strings.HasPrefix(trimmed, "/") {
		lower := strings.ToLower(trimmed)
		if lower == "/quit" || lower == "/exit" {
			model.closeConn()
			return tea.Quit, true
		}
		if strings.HasPrefix(lower, "/w ") {
			parts := strings.SplitN(trimmed, " ", 3)
			if len(parts) < 3 {
				model.systemNotice("Usage: /w <name> <message>")
				model.textInput.SetValue("")
				return nil, true
			}
			recipient, body := parts[1], parts[2]
			model.lines = append(model.lines, chatLine{
				from:    model.username,
				body:    fmt.Sprintf("(to %s) %s", recipient, body),
				time:    localClock(),
				kind:    lineSelf,
				whisper: true,
			})
			return model.sendWhisperCmd(recipient, body), true
		}
		model.systemNotice("Unknown command.")
		model.textInput.SetValue("")
		return nil, true
	}
	if trimmed != "" && model.isConnected {
		// the live broadcast excludes the sender, so echo locally.
		model.lines = append(model.lines, chatLine{
			from: model.username,
			body: trimmed,
			time: localClock(),
			kind: lineSelf,
		})
		return model.sendChatCmd(trimmed), true
	}
	return nil, false
}

// applyServerEvent folds one outbound server event into the transcript.
func (model *TUIModel) applyServerEvent(event ServerEvent) {
	switch event.Type {
	case EventChatHistory:
		// full replay on join; it replaces whatever a dropped connection
		// had accumulated.
		replay := make([]chatLine, 0, len(event.Messages)+4)
		for _, msg := range event.Messages {
			line := chatLine{from: msg.Author, body: msg.Body, time: displayClock(msg.Time)}
			if msg.Kind == KindInfo {
				line.kind = lineSystem
			}
			replay = append(replay, line)
		}
		model.lines = replay
	case EventChatMessage:
		model.lines = append(model.lines, chatLine{from: event.From, body: event.Body, time: displayClock(event.Time)})
	case EventWhisper:
		model.lines = append(model.lines, chatLine{
			from:    event.From,
			body:    event.Body,
			time:    displayClock(event.Time),
			whisper: true,
		})
	case EventPersonJoined:
		model.systemNotice(event.Name + " joined the room.")
	case EventUserDisconnected:
		model.systemNotice(event.Name + " left the room.")
	case EventError:
		model.systemNotice("Server: " + event.Body)
		if event.Body == "name taken" || event.Body == "unauthorized user" {
			// join was rejected; reconnecting with the same details would
			// loop, so fall back to the prompts.
			model.closeConn()
			model.isConnected = false
			model.promptForName()
		}
	}
}

func (model *TUIModel) closeConn() {
	if model.websocketConn != nil {
		_ = model.websocketConn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		_ = model.websocketConn.Close()
		model.websocketConn = nil
	}
}

func localClock() string {
	return time.Now().Format("15:04:05")
}

// displayClock compacts a canonical UTC wire timestamp into a local
// HH:MM:SS. Unparseable values render as-is.
func displayClock(wire string) string {
	if parsed, err := time.Parse(utcLayout, wire); err == nil {
		return parsed.Local().Format("15:04:05")
	}
	if parsed, err := time.Parse(time.RFC3339, wire); err == nil {
		return parsed.Local().Format("15:04:05")
	}
	return wire
}
