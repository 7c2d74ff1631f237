package internal

import (
	"log"
	"sync"
	"time"
)

type sessionState int

const (
	stateUnjoined sessionState = iota
	stateJoined
)

type session struct {
	state sessionState
	room  string
}

// Router is the protocol state machine. It interprets inbound client
// events, validates them against the registry, mutates room state, and
// returns the deliveries the transport should execute. Connection
// identities come in as plain values; the router holds no sockets.
//
// Per connection the lifecycle is Unjoined -> Joined(room) -> gone. The
// transport issues a fresh identity for every connection, so an identity
// that has disconnected never comes back.
type Router struct {
	registry *Registry

	mu       sync.Mutex
	sessions map[string]*session

	now func() time.Time
}

func NewRouter(registry *Registry) *Router {
	return &Router{
		registry: registry,
		sessions: make(map[string]*session),
		now:      time.Now,
	}
}

// Dispatch routes one inbound envelope. Unknown types are dropped with a
// warning; the protocol has no response for them.
func (router *Router) Dispatch(identity string, event ClientEvent) []Delivery {
	switch event.Type {
	case EventNewUser:
		return router.handleJoin(identity, event)
	case EventChatMessage:
		return router.handleChat(identity, event)
	case EventWhisper:
		return router.handleWhisper(identity, event)
	default:
		log.Printf("router: dropping event with unknown type %q from %s", event.Type, identity)
		return nil
	}
}

func (router *Router) currentRoom(identity string) (string, bool) {
	router.mu.Lock()
	defer router.mu.Unlock()
	sess, ok := router.sessions[identity]
	if !ok || sess.state != stateJoined {
		return "", false
	}
	return sess.room, true
}

func (router *Router) handleJoin(identity string, event ClientEvent) []Delivery {
	if _, joined := router.currentRoom(identity); joined {
		// One room per connection for its whole life; a second join is a
		// client bug, not a protocol transition.
		log.Printf("router: %s attempted a second join, ignoring", identity)
		return nil
	}

	roomName := event.Room
	if router.registry.NameTaken(roomName, event.Name) {
		return []Delivery{deliverTo(identity, errorEvent("name taken"))}
	}
	if !router.registry.VerifyPassword(roomName, HashSecret(event.Password)) {
		return []Delivery{deliverTo(identity, errorEvent("unauthorized user"))}
	}
	if !router.registry.HasAdminPassword(roomName) {
		// Informational only: nothing in the chat protocol claims the admin
		// secret, it arrives through the provisioning surface.
		log.Printf("router: room %q has no admin password set", roomName)
	}

	// JoinRoom rechecks the name under the room lock, so two racing joins
	// with the same candidate name cannot both get in.
	if err := router.registry.JoinRoom(roomName, identity, event.Name); err != nil {
		return []Delivery{deliverTo(identity, errorEvent("name taken"))}
	}

	router.mu.Lock()
	router.sessions[identity] = &session{state: stateJoined, room: roomName}
	router.mu.Unlock()

	return []Delivery{
		broadcastExcept(roomName, identity, ServerEvent{Type: EventPersonJoined, Name: event.Name}),
		deliverTo(identity, ServerEvent{Type: EventChatHistory, Messages: router.registry.History(roomName)}),
	}
}

func (router *Router) handleChat(identity string, event ClientEvent) []Delivery {
	roomName, joined := router.currentRoom(identity)
	if !joined {
		log.Printf("router: chat from unjoined connection %s, dropping", identity)
		return nil
	}
	sender, _ := router.registry.DisplayName(roomName, identity)

	// The client's claimed instant is kept, only rewritten in UTC. Server
	// receipt time never replaces it.
	utcTime := CanonicalUTC(event.Time)

	if err := router.registry.AppendMessage(roomName, Message{
		Author: sender,
		Body:   event.Body,
		Time:   utcTime,
		Kind:   KindChat,
	}); err != nil {
		log.Printf("router: append to %q failed: %v", roomName, err)
	}

	// The sender already has its own copy locally.
	return []Delivery{
		broadcastExcept(roomName, identity, ServerEvent{
			Type: EventChatMessage,
			From: sender,
			Body: event.Body,
			Time: utcTime,
		}),
	}
}

func (router *Router) handleWhisper(identity string, event ClientEvent) []Delivery {
	roomName, joined := router.currentRoom(identity)
	if !joined {
		log.Printf("router: whisper from unjoined connection %s, dropping", identity)
		return nil
	}

	recipient, found := router.registry.IdentityOf(roomName, event.To)
	if !found {
		// Strictly terminal: nothing is delivered and nothing is stored.
		return []Delivery{deliverTo(identity, errorEvent("cannot whisper"))}
	}

	sender, _ := router.registry.DisplayName(roomName, identity)
	// Whispers are private by design: no history entry, no sender echo,
	// and the timestamp passes through untouched.
	return []Delivery{
		deliverTo(recipient, ServerEvent{
			Type: EventWhisper,
			From: sender,
			Body: event.Body,
			Time: event.Time,
		}),
	}
}

// Disconnect handles the transport signal that a connection ended. It is
// idempotent: once the identity is gone, repeat calls are no-ops.
func (router *Router) Disconnect(identity string) []Delivery {
	router.mu.Lock()
	sess, ok := router.sessions[identity]
	if ok {
		delete(router.sessions, identity)
	}
	router.mu.Unlock()
	if !ok || sess.state != stateJoined {
		return nil
	}

	roomName, found := router.registry.RoomOf(identity)
	if !found {
		// Session said joined but no room holds the identity. Non-fatal;
		// nothing to tear down.
		log.Printf("router: no room found for disconnecting connection %s", identity)
		return nil
	}

	name, _ := router.registry.DisplayName(roomName, identity)
	if err := router.registry.AppendMessage(roomName, Message{
		Body: name + " has left the chat",
		Time: FormatUTC(router.now()),
		Kind: KindInfo,
	}); err != nil {
		log.Printf("router: append leave notice to %q failed: %v", roomName, err)
	}
	router.registry.Leave(roomName, identity)

	return []Delivery{
		broadcastExcept(roomName, identity, ServerEvent{Type: EventUserDisconnected, Name: name}),
	}
}
