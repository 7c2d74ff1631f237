package internal

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCreateRoomAndExists(t *testing.T) {
	req := require.New(t)
	reg := NewRegistry()

	req.False(reg.Exists("r1"))
	req.NoError(reg.CreateRoom("r1", HashSecret("pw")))
	req.True(reg.Exists("r1"))

	// occupied names are never silently overwritten.
	req.ErrorIs(reg.CreateRoom("r1", HashSecret("other")), ErrRoomExists)
	req.True(reg.VerifyPassword("r1", HashSecret("pw")))
}

func TestRoomNamesAreCaseSensitive(t *testing.T) {
	req := require.New(t)
	reg := NewRegistry()
	req.NoError(reg.CreateRoom("Lobby", HashSecret("pw")))
	req.False(reg.Exists("lobby"))
}

func TestVerifyPassword(t *testing.T) {
	req := require.New(t)
	reg := NewRegistry()
	req.NoError(reg.CreateRoom("r1", HashSecret("pw")))

	req.True(reg.VerifyPassword("r1", HashSecret("pw")))
	req.False(reg.VerifyPassword("r1", HashSecret("wrong")))
	req.False(reg.VerifyPassword("ghost", HashSecret("pw")))
}

func TestAdminPassword(t *testing.T) {
	req := require.New(t)
	reg := NewRegistry()
	req.NoError(reg.CreateRoom("r1", HashSecret("pw")))

	req.False(reg.HasAdminPassword("r1"))
	req.False(reg.VerifyAdminPassword("r1", HashSecret("admin")))

	req.NoError(reg.SetAdminPassword("r1", HashSecret("admin")))
	req.True(reg.HasAdminPassword("r1"))
	req.True(reg.VerifyAdminPassword("r1", HashSecret("admin")))
	req.False(reg.VerifyAdminPassword("r1", HashSecret("nope")))

	// last writer wins.
	req.NoError(reg.SetAdminPassword("r1", HashSecret("rotated")))
	req.True(reg.VerifyAdminPassword("r1", HashSecret("rotated")))

	req.ErrorIs(reg.SetAdminPassword("ghost", HashSecret("admin")), ErrNoSuchRoom)
	req.False(reg.VerifyAdminPassword("ghost", HashSecret("admin")))
}

func TestMembershipLifecycle(t *testing.T) {
	req := require.New(t)
	reg := NewRegistry()
	req.NoError(reg.CreateRoom("r1", HashSecret("pw")))

	req.False(reg.NameTaken("r1", "alice"))
	req.NoError(reg.JoinRoom("r1", "conn-a", "alice"))
	req.True(reg.NameTaken("r1", "alice"))

	name, ok := reg.DisplayName("r1", "conn-a")
	req.True(ok)
	req.Equal("alice", name)

	identity, ok := reg.IdentityOf("r1", "alice")
	req.True(ok)
	req.Equal("conn-a", identity)

	roomName, ok := reg.RoomOf("conn-a")
	req.True(ok)
	req.Equal("r1", roomName)

	reg.Leave("r1", "conn-a")
	_, ok = reg.DisplayName("r1", "conn-a")
	req.False(ok)
	_, ok = reg.RoomOf("conn-a")
	req.False(ok)

	// leaving twice is a no-op.
	reg.Leave("r1", "conn-a")
}

func TestJoinRoomRejectsDuplicateNames(t *testing.T) {
	req := require.New(t)
	reg := NewRegistry()
	req.NoError(reg.CreateRoom("r1", HashSecret("pw")))

	req.NoError(reg.JoinRoom("r1", "conn-a", "alice"))
	req.ErrorIs(reg.JoinRoom("r1", "conn-b", "alice"), ErrNameTaken)
	req.ElementsMatch([]string{"alice"}, reg.NamesInRoom("r1"))
}

func TestConcurrentJoinsNeverDuplicateNames(t *testing.T) {
	req := require.New(t)
	reg := NewRegistry()
	req.NoError(reg.CreateRoom("r1", HashSecret("pw")))

	const contenders = 32
	var wg sync.WaitGroup
	wins := make(chan string, contenders)
	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func(identity string) {
			defer wg.Done()
			if reg.JoinRoom("r1", identity, "alice") == nil {
				wins <- identity
			}
		}(fmt.Sprintf("conn-%d", i))
	}
	wg.Wait()
	close(wins)

	var winners []string
	for identity := range wins {
		winners = append(winners, identity)
	}
	req.Len(winners, 1)
	req.ElementsMatch([]string{"alice"}, reg.NamesInRoom("r1"))
}

func TestNamesInRoomNeverContainsDuplicates(t *testing.T) {
	req := require.New(t)
	reg := NewRegistry()
	req.NoError(reg.CreateRoom("r1", HashSecret("pw")))

	names := []string{"alice", "bob", "carol", "dave"}
	for i, name := range names {
		req.NoError(reg.JoinRoom("r1", fmt.Sprintf("conn-%d", i), name))
	}
	got := reg.NamesInRoom("r1")
	seen := make(map[string]bool, len(got))
	for _, name := range got {
		req.False(seen[name], "duplicate display name %q", name)
		seen[name] = true
	}
	req.ElementsMatch(names, got)
}

func TestMemberIdentitiesExcludes(t *testing.T) {
	req := require.New(t)
	reg := NewRegistry()
	req.NoError(reg.CreateRoom("r1", HashSecret("pw")))
	req.NoError(reg.JoinRoom("r1", "conn-a", "alice"))
	req.NoError(reg.JoinRoom("r1", "conn-b", "bob"))

	req.ElementsMatch([]string{"conn-b"}, reg.MemberIdentities("r1", "conn-a"))
	req.ElementsMatch([]string{"conn-a", "conn-b"}, reg.MemberIdentities("r1", ""))
	req.Empty(reg.MemberIdentities("ghost", ""))
}

func TestHistoryPreservesAppendOrder(t *testing.T) {
	req := require.New(t)
	reg := NewRegistry()
	req.NoError(reg.CreateRoom("r1", HashSecret("pw")))

	const count = 25
	for i := 0; i < count; i++ {
		req.NoError(reg.AppendMessage("r1", Message{
			Author: "alice",
			Body:   fmt.Sprintf("msg-%d", i),
			Kind:   KindChat,
		}))
	}

	history := reg.History("r1")
	req.Len(history, count)
	for i, msg := range history {
		req.Equal(fmt.Sprintf("msg-%d", i), msg.Body)
	}
	req.Equal(count, reg.HistoryLen("r1"))
}

func TestHistoryReturnsCopy(t *testing.T) {
	req := require.New(t)
	reg := NewRegistry()
	req.NoError(reg.CreateRoom("r1", HashSecret("pw")))
	req.NoError(reg.AppendMessage("r1", Message{Body: "one", Kind: KindChat}))

	snapshot := reg.History("r1")
	req.NoError(reg.AppendMessage("r1", Message{Body: "two", Kind: KindChat}))
	req.Len(snapshot, 1)
	req.Len(reg.History("r1"), 2)
}

func TestClearHistory(t *testing.T) {
	req := require.New(t)
	reg := NewRegistry()
	req.NoError(reg.CreateRoom("r1", HashSecret("pw")))
	req.NoError(reg.AppendMessage("r1", Message{Body: "one", Kind: KindChat}))

	req.NoError(reg.ClearHistory("r1"))
	req.Empty(reg.History("r1"))
	req.ErrorIs(reg.ClearHistory("ghost"), ErrNoSuchRoom)
}

func TestUnknownRoomOperations(t *testing.T) {
	req := require.New(t)
	reg := NewRegistry()

	req.False(reg.NameTaken("ghost", "alice"))
	req.ErrorIs(reg.JoinRoom("ghost", "conn-a", "alice"), ErrNoSuchRoom)
	req.ErrorIs(reg.AppendMessage("ghost", Message{}), ErrNoSuchRoom)
	req.Nil(reg.History("ghost"))
	req.Nil(reg.NamesInRoom("ghost"))
	_, ok := reg.IdentityOf("ghost", "alice")
	req.False(ok)
}
