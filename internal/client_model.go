package internal

import (
	"os"
	"sync"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/gorilla/websocket"
)

// tui model struct for all the components and modes
type TUIModel struct {
	textInput       textinput.Model
	lines           []chatLine
	serverURL       string
	room            string
	username        string
	password        string
	websocketConn   *websocket.Conn
	writeMutex      sync.Mutex
	isConnected     bool
	connectionError error
	mode            appMode
	pendingAction   actionType
}

// chatLine is one rendered row of the transcript.
type chatLine struct {
	from    string
	body    string
	time    string
	kind    lineKind
	whisper bool
}

type lineKind int

const (
	lineChat lineKind = iota
	lineSelf
	lineSystem
)

type appMode int

const (
	modeMenu appMode = iota
	modeNamePrompt
	modeRoomPrompt
	modePasswordPrompt
	modeChat
)

type actionType int

const (
	actionNone actionType = iota
	actionJoin
	actionCreate
)

func NewTUIModel(serverURL, room, username string) *TUIModel {
	input := textinput.New()
	input.Placeholder = ""
	input.CharLimit = 0

	if username == "" {
		username = defaultUsername()
	}

	model := &TUIModel{
		textInput: input,
		lines:     make([]chatLine, 0, 64),
		serverURL: serverURL,
		room:      room,
		username:  username,
		mode:      modeMenu,
	}
	if room != "" {
		// room given on the command line: only the name and password are missing.
		model.pendingAction = actionJoin
		model.promptForName()
	}
	return model
}

func defaultUsername() string {
	if user := os.Getenv("CHATRELAY_USER"); user != "" {
		return user
	}
	if user := os.Getenv("USER"); user != "" {
		return user
	}
	return "anon"
}

func (model *TUIModel) promptForName() {
	model.mode = modeNamePrompt
	model.textInput.SetValue(model.username)
	model.textInput.Placeholder = "Enter display name…"
	model.textInput.Prompt = "name> "
	model.textInput.EchoMode = textinput.EchoNormal
	model.textInput.Focus()
}

func (model *TUIModel) promptForRoom() {
	model.mode = modeRoomPrompt
	model.textInput.SetValue("")
	model.textInput.Placeholder = "Enter room name…"
	model.textInput.Prompt = "room> "
	model.textInput.EchoMode = textinput.EchoNormal
	model.textInput.Focus()
}

func (model *TUIModel) promptForPassword() {
	model.mode = modePasswordPrompt
	model.textInput.SetValue("")
	model.textInput.Placeholder = "Enter room password…"
	model.textInput.Prompt = "password> "
	model.textInput.EchoMode = textinput.EchoPassword
	model.textInput.Focus()
}

func (model *TUIModel) enterChat() {
	model.mode = modeChat
	model.textInput.SetValue("")
	model.textInput.Placeholder = "Type a message… (/w name text to whisper)"
	model.textInput.Prompt = "> "
	model.textInput.EchoMode = textinput.EchoNormal
	model.textInput.Focus()
}

func (model *TUIModel) backToMenu() {
	model.mode = modeMenu
	model.pendingAction = actionNone
	model.textInput.SetValue("")
	model.textInput.Blur()
	model.textInput.Placeholder = ""
	model.textInput.Prompt = ""
}

func (model *TUIModel) systemNotice(text string) {
	model.lines = append(model.lines, chatLine{body: text, kind: lineSystem})
}

func (model *TUIModel) Init() tea.Cmd {
	return nil
}
