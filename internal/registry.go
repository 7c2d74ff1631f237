package internal

import (
	"errors"
	"sync"
)

// ErrRoomExists is returned when creating a room whose name is occupied.
var ErrRoomExists = errors.New("room already exists")

// ErrNoSuchRoom is returned by mutations that require an existing room.
var ErrNoSuchRoom = errors.New("room does not exist")

// ErrNameTaken is returned when a display name is already in use in a room.
var ErrNameTaken = errors.New("name taken")

// Registry owns every room: its password digests, its live members and its
// message history. It is the single shared structure behind all concurrent
// connections, so the locking discipline matters: the registry mutex only
// guards the room table, while each room carries its own mutex so traffic
// in different rooms never contends.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]*room
}

// room state is only ever touched through Registry methods while holding
// room.mu, which makes every protocol transition atomic per room.
type room struct {
	mu          sync.Mutex
	password    Digest
	adminSecret Digest
	members     map[string]string // connection identity -> display name
	history     []Message
}

func NewRegistry() *Registry {
	return &Registry{rooms: make(map[string]*room)}
}

func (reg *Registry) lookup(name string) *room {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	return reg.rooms[name]
}

// CreateRoom registers a new room with empty members and history. Creating
// over an occupied name is a caller bug; the registry refuses rather than
// silently overwriting.
func (reg *Registry) CreateRoom(name string, password Digest) error {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	if _, occupied := reg.rooms[name]; occupied {
		return ErrRoomExists
	}
	reg.rooms[name] = &room{
		password: password,
		members:  make(map[string]string),
	}
	return nil
}

// Exists reports whether a room with the given name is registered.
func (reg *Registry) Exists(name string) bool {
	return reg.lookup(name) != nil
}

// VerifyPassword compares a candidate digest against the room's. Unknown
// rooms always fail.
func (reg *Registry) VerifyPassword(name string, candidate Digest) bool {
	rm := reg.lookup(name)
	if rm == nil {
		return false
	}
	return DigestsEqual(rm.password, candidate)
}

// VerifyAdminPassword is false if the room is unknown or no admin digest
// has been set yet.
func (reg *Registry) VerifyAdminPassword(name string, candidate Digest) bool {
	rm := reg.lookup(name)
	if rm == nil {
		return false
	}
	rm.mu.Lock()
	defer rm.mu.Unlock()
	if rm.adminSecret == "" {
		return false
	}
	return DigestsEqual(rm.adminSecret, candidate)
}

// SetAdminPassword stores the elevated digest for a room. By protocol
// convention it is only set once; a repeat call overwrites (last writer
// wins).
func (reg *Registry) SetAdminPassword(name string, admin Digest) error {
	rm := reg.lookup(name)
	if rm == nil {
		return ErrNoSuchRoom
	}
	rm.mu.Lock()
	defer rm.mu.Unlock()
	rm.adminSecret = admin
	return nil
}

// HasAdminPassword reports whether an admin digest has been claimed.
func (reg *Registry) HasAdminPassword(name string) bool {
	rm := reg.lookup(name)
	if rm == nil {
		return false
	}
	rm.mu.Lock()
	defer rm.mu.Unlock()
	return rm.adminSecret != ""
}

// ClearHistory drops every stored message. Maintenance only; the normal
// protocol flow never calls it.
func (reg *Registry) ClearHistory(name string) error {
	rm := reg.lookup(name)
	if rm == nil {
		return ErrNoSuchRoom
	}
	rm.mu.Lock()
	defer rm.mu.Unlock()
	rm.history = nil
	return nil
}

// membership

// NameTaken reports whether any live member of the room uses the display
// name. Unknown rooms have no members.
func (reg *Registry) NameTaken(name, displayName string) bool {
	rm := reg.lookup(name)
	if rm == nil {
		return false
	}
	rm.mu.Lock()
	defer rm.mu.Unlock()
	for _, member := range rm.members {
		if member == displayName {
			return true
		}
	}
	return false
}

// JoinRoom inserts identity -> displayName. The uniqueness check and the
// insert happen under one lock, so two racing joins with the same
// candidate name can never both succeed.
func (reg *Registry) JoinRoom(name, identity, displayName string) error {
	rm := reg.lookup(name)
	if rm == nil {
		return ErrNoSuchRoom
	}
	rm.mu.Lock()
	defer rm.mu.Unlock()
	for _, member := range rm.members {
		if member == displayName {
			return ErrNameTaken
		}
	}
	rm.members[identity] = displayName
	return nil
}

// Leave removes the member. Removing an absent identity is a no-op, which
// keeps disconnect idempotent.
func (reg *Registry) Leave(name, identity string) {
	rm := reg.lookup(name)
	if rm == nil {
		return
	}
	rm.mu.Lock()
	defer rm.mu.Unlock()
	delete(rm.members, identity)
}

// DisplayName resolves a connection identity to its display name.
func (reg *Registry) DisplayName(name, identity string) (string, bool) {
	rm := reg.lookup(name)
	if rm == nil {
		return "", false
	}
	rm.mu.Lock()
	defer rm.mu.Unlock()
	displayName, ok := rm.members[identity]
	return displayName, ok
}

// IdentityOf resolves a display name back to a connection identity. Names
// are unique per room, so the first match is the only match.
func (reg *Registry) IdentityOf(name, displayName string) (string, bool) {
	rm := reg.lookup(name)
	if rm == nil {
		return "", false
	}
	rm.mu.Lock()
	defer rm.mu.Unlock()
	for identity, member := range rm.members {
		if member == displayName {
			return identity, true
		}
	}
	return "", false
}

// RoomOf scans all rooms for the identity. It is only used at disconnect
// time, so the linear scan is acceptable; the registry read lock plus one
// short room lock at a time cannot deadlock against concurrent joins.
func (reg *Registry) RoomOf(identity string) (string, bool) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	for name, rm := range reg.rooms {
		rm.mu.Lock()
		_, ok := rm.members[identity]
		rm.mu.Unlock()
		if ok {
			return name, true
		}
	}
	return "", false
}

// NamesInRoom returns the display names of every live member.
func (reg *Registry) NamesInRoom(name string) []string {
	rm := reg.lookup(name)
	if rm == nil {
		return nil
	}
	rm.mu.Lock()
	defer rm.mu.Unlock()
	names := make([]string, 0, len(rm.members))
	for _, member := range rm.members {
		names = append(names, member)
	}
	return names
}

// MemberIdentities returns the connection identities of every member
// except the excluded one. The transport uses it to fan a broadcast out.
func (reg *Registry) MemberIdentities(name, exclude string) []string {
	rm := reg.lookup(name)
	if rm == nil {
		return nil
	}
	rm.mu.Lock()
	defer rm.mu.Unlock()
	identities := make([]string, 0, len(rm.members))
	for identity := range rm.members {
		if identity == exclude {
			continue
		}
		identities = append(identities, identity)
	}
	return identities
}

// history

// AppendMessage adds a record to the end of the room's history.
func (reg *Registry) AppendMessage(name string, msg Message) error {
	rm := reg.lookup(name)
	if rm == nil {
		return ErrNoSuchRoom
	}
	rm.mu.Lock()
	defer rm.mu.Unlock()
	rm.history = append(rm.history, msg)
	return nil
}

// History returns the full replay, oldest first. The slice is a copy so
// callers can hold it without racing later appends.
func (reg *Registry) History(name string) []Message {
	rm := reg.lookup(name)
	if rm == nil {
		return nil
	}
	rm.mu.Lock()
	defer rm.mu.Unlock()
	out := make([]Message, len(rm.history))
	copy(out, rm.history)
	return out
}

// HistoryLen avoids copying when only the count matters (metrics).
func (reg *Registry) HistoryLen(name string) int {
	rm := reg.lookup(name)
	if rm == nil {
		return 0
	}
	rm.mu.Lock()
	defer rm.mu.Unlock()
	return len(rm.history)
}
