package conversation

import (
	"context"
	"encoding/json"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketsauce-agent/internal/apiclient"
	"marketsauce-agent/internal/demo"
	"marketsauce-agent/internal/mode"
)

var fast = Options{Timeout: time.Second, MinDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}

func seeded() *demo.Replies { return demo.NewReplies(rand.New(rand.NewSource(7))) }

func liveSession(t *testing.T, h http.HandlerFunc) (*Session, *mode.Switch) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	sw := mode.Fixed(mode.Live)
	return New(Config{API: apiclient.New(srv.URL), Mode: sw, Replies: seeded(), Context: "# Acme report", Options: fast}), sw
}

func TestDemoSendAlternatesRoles(t *testing.T) {
	s := New(Config{Mode: mode.Fixed(mode.Demo), Replies: seeded(), Options: fast})
	for i := 0; i < 3; i++ {
		reply, err := s.Send(context.Background(), "question")
		require.NoError(t, err)
		assert.Contains(t, demo.CannedReplies(), reply.Content)
	}

	msgs := s.Messages()
	require.Len(t, msgs, 7)
	assert.Equal(t, RoleAssistant, msgs[0].Role)
	assert.Equal(t, demoGreeting, msgs[0].Content)
	for i := 1; i < len(msgs); i++ {
		want := RoleUser
		if i%2 == 0 {
			want = RoleAssistant
		}
		assert.Equal(t, want, msgs[i].Role, "message %d", i)
	}
	assert.Empty(t, s.ID())
}

func TestLiveSendPinsSessionID(t *testing.T) {
	var (
		mu   sync.Mutex
		seen []string
		n    atomic.Int32
	)
	s, _ := liveSession(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat/message", r.URL.Path)
		var req messageRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		mu.Lock()
		seen = append(seen, req.SessionID)
		mu.Unlock()
		assert.Equal(t, "# Acme report", req.DiagnosticContext)
		id := "sess-1"
		if n.Add(1) > 1 {
			id = "sess-other"
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"session_id": id, "response": "answer " + req.Message})
	})

	first, err := s.Send(context.Background(), "one")
	require.NoError(t, err)
	assert.Equal(t, "answer one", first.Content)
	assert.Equal(t, "sess-1", s.ID())

	_, err = s.Send(context.Background(), "two")
	require.NoError(t, err)
	assert.Equal(t, "sess-1", s.ID(), "a later response never overwrites the id")

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"new", "sess-1"}, seen)
	assert.Equal(t, liveGreeting, s.Messages()[0].Content)
}

func TestLiveFailureFallsBackWithoutDegrading(t *testing.T) {
	s, sw := liveSession(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	reply, err := s.Send(context.Background(), "hello")
	require.NoError(t, err)
	assert.Contains(t, demo.CannedReplies(), reply.Content)
	assert.Equal(t, mode.Live, sw.Mode())
	assert.Empty(t, s.ID())
	assert.Len(t, s.Messages(), 3)
}

func TestSendIsSingleFlight(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	s, _ := liveSession(t, func(w http.ResponseWriter, r *http.Request) {
		close(entered)
		<-release
		_ = json.NewEncoder(w).Encode(map[string]string{"session_id": "s", "response": "ok"})
	})

	done := make(chan error, 1)
	go func() {
		_, err := s.Send(context.Background(), "first")
		done <- err
	}()
	<-entered

	assert.True(t, s.Busy())
	_, err := s.Send(context.Background(), "second")
	assert.ErrorIs(t, err, ErrBusy)
	assert.Len(t, s.Messages(), 2, "a rejected send appends nothing")

	close(release)
	require.NoError(t, <-done)
	assert.Len(t, s.Messages(), 3)
}

func TestSendRejectsEmptyText(t *testing.T) {
	s := New(Config{Mode: mode.Fixed(mode.Demo), Options: fast})
	_, err := s.Send(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrEmptyMessage)
	assert.Len(t, s.Messages(), 1)
}

func TestCloseDiscardsInFlightReply(t *testing.T) {
	s := New(Config{Mode: mode.Fixed(mode.Demo), Replies: seeded(), Options: Options{MinDelay: 50 * time.Millisecond, MaxDelay: 50 * time.Millisecond}})
	done := make(chan error, 1)
	go func() {
		_, err := s.Send(context.Background(), "hi")
		done <- err
	}()
	require.Eventually(t, s.Busy, time.Second, time.Millisecond)
	s.Close()

	assert.ErrorIs(t, <-done, ErrClosed)
	assert.Len(t, s.Messages(), 2, "only the greeting and the user message remain")

	_, err := s.Send(context.Background(), "again")
	assert.ErrorIs(t, err, ErrClosed)
}

func TestCancelledSendStillPairsTurns(t *testing.T) {
	s := New(Config{Mode: mode.Fixed(mode.Demo), Replies: seeded(), Options: Options{MinDelay: time.Hour, MaxDelay: time.Hour}})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	reply, err := s.Send(ctx, "hi")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, RoleAssistant, reply.Role)
	assert.Len(t, s.Messages(), 3)
	assert.False(t, s.Busy())
}
