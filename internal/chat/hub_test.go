package chat_test

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Tyrowin/livechat/internal/chat"
)

func TestHub_JoinAnnouncesAndPublishesCount(t *testing.T) {
	h := newTestHub(t)
	a, b := newMockConn("a"), newMockConn("b")
	h.Connect(a)
	h.Connect(b)

	h.HandleMessage(a, joinFrame(t, "Alice"))

	gotA := a.events(t)
	require.Len(t, gotA, 2)
	assert.Equal(t, chat.ChatMessage{Text: "Welcome to the chat, Alice!", User: "System", Time: fixedTime}, gotA[0].message(t))
	assert.Equal(t, 2, gotA[1].count(t))

	gotB := b.events(t)
	require.Len(t, gotB, 2)
	assert.Equal(t, chat.ChatMessage{Text: "Alice has joined the chat", User: "System", Time: fixedTime}, gotB[0].message(t))
	assert.Equal(t, 2, gotB[1].count(t))
}

func TestHub_SecondJoinKeepsCountAtRegistrySize(t *testing.T) {
	h := newTestHub(t)
	a, b := newMockConn("a"), newMockConn("b")
	h.Connect(a)
	h.Connect(b)
	h.HandleMessage(a, joinFrame(t, "Alice"))
	a.events(t)
	b.events(t)

	h.HandleMessage(b, joinFrame(t, "Bob"))

	gotA := a.events(t)
	require.Len(t, gotA, 2)
	assert.Equal(t, "Bob has joined the chat", gotA[0].message(t).Text)
	assert.Equal(t, 2, gotA[1].count(t))

	gotB := b.events(t)
	require.Len(t, gotB, 2)
	assert.Equal(t, "Welcome to the chat, Bob!", gotB[0].message(t).Text)
	assert.Equal(t, 2, gotB[1].count(t))
}

func TestHub_MessageReachesEveryoneWithServerTime(t *testing.T) {
	h := newTestHub(t)
	a, b := newMockConn("a"), newMockConn("b")
	h.Connect(a)
	h.Connect(b)

	h.HandleMessage(a, messageFrame(t, "hi", "Alice"))

	want := chat.ChatMessage{Text: "hi", User: "Alice", Time: fixedTime}
	for _, c := range []*mockConn{a, b} {
		got := c.events(t)
		require.Len(t, got, 1, "connection %s", c.ID())
		assert.Equal(t, want, got[0].message(t))
	}
}

func TestHub_CloseAnnouncesLeave(t *testing.T) {
	h := newTestHub(t)
	a, b := newMockConn("a"), newMockConn("b")
	h.Connect(a)
	h.Connect(b)
	h.HandleMessage(a, joinFrame(t, "Alice"))
	b.events(t)

	h.Disconnect(a)

	gotB := b.events(t)
	require.Len(t, gotB, 2)
	assert.Equal(t, chat.ChatMessage{Text: "Alice has left the chat", User: "System", Time: fixedTime}, gotB[0].message(t))
	assert.Equal(t, 1, gotB[1].count(t))
	assert.Equal(t, 1, h.Online())
}

func TestHub_UnjoinedCloseOnlyPublishesCount(t *testing.T) {
	h := newTestHub(t)
	a, b := newMockConn("a"), newMockConn("b")
	h.Connect(a)
	h.Connect(b)

	h.Disconnect(a)

	gotB := b.events(t)
	require.Len(t, gotB, 1)
	assert.Equal(t, 1, gotB[0].count(t))
}

func TestHub_DisconnectTwiceIsNoop(t *testing.T) {
	h := newTestHub(t)
	a, b := newMockConn("a"), newMockConn("b")
	h.Connect(a)
	h.Connect(b)
	h.HandleMessage(a, joinFrame(t, "Alice"))
	b.events(t)

	h.Disconnect(a)
	first := b.events(t)
	h.Disconnect(a)
	second := b.events(t)

	assert.Len(t, first, 2)
	assert.Empty(t, second)
	assert.Equal(t, 1, h.Online())
}

func TestHub_TypingExcludesSender(t *testing.T) {
	h := newTestHub(t)
	a, b, c := newMockConn("a"), newMockConn("b"), newMockConn("c")
	for _, conn := range []*mockConn{a, b, c} {
		h.Connect(conn)
	}
	h.HandleMessage(a, joinFrame(t, "Alice"))
	a.events(t)
	b.events(t)
	c.events(t)

	h.HandleMessage(a, typingFrame(t, "Mallory"))

	assert.Empty(t, a.events(t))
	for _, conn := range []*mockConn{b, c} {
		got := conn.events(t)
		require.Len(t, got, 1)
		assert.Equal(t, "Alice", got[0].typingUser(t), "typing uses the registered name")
	}
}

func TestHub_TypingBeforeJoinIsSuppressed(t *testing.T) {
	h := newTestHub(t)
	a, c := newMockConn("a"), newMockConn("c")
	h.Connect(a)
	h.Connect(c)

	h.HandleMessage(c, typingFrame(t, "Carol"))

	assert.Empty(t, a.events(t))
	assert.Empty(t, c.events(t))
}

func TestHub_JoinThenMessageOrderingForThirdParty(t *testing.T) {
	h := newTestHub(t)
	a, third := newMockConn("a"), newMockConn("third")
	h.Connect(a)
	h.Connect(third)

	h.HandleMessage(a, joinFrame(t, "Alice"))
	h.HandleMessage(a, messageFrame(t, "first", "Alice"))

	gotA := a.events(t)
	require.Len(t, gotA, 3)
	assert.Equal(t, "Welcome to the chat, Alice!", gotA[0].message(t).Text)

	got := third.events(t)
	require.Len(t, got, 3)
	assert.Equal(t, "Alice has joined the chat", got[0].message(t).Text)
	assert.Equal(t, 2, got[1].count(t))
	assert.Equal(t, "first", got[2].message(t).Text)
}

func TestHub_RejoinRunsFullSequence(t *testing.T) {
	h := newTestHub(t)
	a, b := newMockConn("a"), newMockConn("b")
	h.Connect(a)
	h.Connect(b)
	h.HandleMessage(a, joinFrame(t, "Alice"))
	a.events(t)
	b.events(t)

	h.HandleMessage(a, joinFrame(t, "Alicia"))

	name, ok := h.Registry().Identity(a)
	require.True(t, ok)
	assert.Equal(t, "Alicia", name)
	assert.Equal(t, "Welcome to the chat, Alicia!", a.events(t)[0].message(t).Text)
	assert.Equal(t, "Alicia has joined the chat", b.events(t)[0].message(t).Text)
}

func TestHub_FailedBroadcastEvictsAndAnnounces(t *testing.T) {
	h := newTestHub(t)
	a, b, dead := newMockConn("a"), newMockConn("b"), newMockConn("dead")
	for _, conn := range []*mockConn{a, b, dead} {
		h.Connect(conn)
	}
	h.HandleMessage(dead, joinFrame(t, "Dave"))
	a.events(t)
	b.events(t)
	dead.failSends(errPeerGone)

	h.HandleMessage(a, messageFrame(t, "anyone there?", "Alice"))

	gotB := b.events(t)
	require.Len(t, gotB, 3)
	assert.Equal(t, "anyone there?", gotB[0].message(t).Text)
	assert.Equal(t, "Dave has left the chat", gotB[1].message(t).Text)
	assert.Equal(t, 2, gotB[2].count(t))
	assert.True(t, dead.isClosed())

	// The transport's own close handler runs afterwards and must stay silent.
	h.Disconnect(dead)
	assert.Empty(t, b.events(t))
	assert.Equal(t, 2, h.Online())
}

func TestHub_MalformedFrameIsDroppedAndLogged(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	h := chat.NewHub(zap.New(core), func() string { return fixedTime })
	a, b := newMockConn("a"), newMockConn("b")
	h.Connect(a)
	h.Connect(b)

	h.HandleMessage(a, []byte("not json"))
	h.HandleMessage(a, []byte(`{"type":"dance","data":"now"}`))

	assert.Empty(t, a.events(t))
	assert.Empty(t, b.events(t))
	assert.Equal(t, 2, h.Online())
	assert.Equal(t, 2, logs.FilterMessage("dropping inbound frame").Len())
	_, ok := h.Registry().Identity(a)
	assert.False(t, ok)
}

func TestHub_CloseAll(t *testing.T) {
	h := newTestHub(t)
	a, b := newMockConn("a"), newMockConn("b")
	h.Connect(a)
	h.Connect(b)

	assert.Equal(t, 2, h.CloseAll())
	assert.True(t, a.isClosed())
	assert.True(t, b.isClosed())
}

func TestHub_IdentitySubsetOfRegistryUnderConcurrency(t *testing.T) {
	h := newTestHub(t)
	const clients = 30

	var wg sync.WaitGroup
	wg.Add(clients)
	for i := 0; i < clients; i++ {
		go func(i int) {
			defer wg.Done()
			c := newMockConn(fmt.Sprintf("c%d", i))
			h.Connect(c)
			h.HandleMessage(c, joinFrame(t, c.ID()))
			h.HandleMessage(c, messageFrame(t, "hello", c.ID()))
			h.HandleMessage(c, typingFrame(t, c.ID()))
			if i%3 == 0 {
				h.Disconnect(c)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, clients-clients/3, h.Online())
	assert.Equal(t, h.Online(), h.Joined())
	assert.LessOrEqual(t, h.Joined(), h.Registry().Size())
}
