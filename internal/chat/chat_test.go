package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/klytics/invoicechat/internal/dataset"
	"github.com/klytics/invoicechat/internal/metrics"
)

// recordingAgent answers every input with reply (or err) and keeps the inputs.
type recordingAgent struct {
	mu     sync.Mutex
	inputs []string
	reply  func(n int) string
	err    error
}

func (a *recordingAgent) Invoke(_ context.Context, input string) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.inputs = append(a.inputs, input)
	if a.err != nil {
		return "", a.err
	}
	if a.reply == nil {
		return "answer", nil
	}
	return a.reply(len(a.inputs)), nil
}

func newTestManager(t *testing.T, a *recordingAgent) *Manager {
	t.Helper()
	return NewManager(a, NewMemoryStore(), time.Minute, nil)
}

func TestBuildInput(t *testing.T) {
	q := "How many invoices are unpaid?"
	want := "Refer to the following data dictionary for context:\n\n" + dataset.DataDictionary + "\n\n" + q
	assert.Equal(t, want, BuildInput(q))
}

func TestSubmitSendsPreambleDictionaryAndQuestion(t *testing.T) {
	a := &recordingAgent{}
	m := newTestManager(t, a)
	ctx := context.Background()

	s, created, err := m.Open(ctx, "")
	require.NoError(t, err)
	require.True(t, created)

	q := "  كم عدد الفواتير غير المدفوعة؟ "
	_, err = s.Submit(ctx, q)
	require.NoError(t, err)

	require.Len(t, a.inputs, 1)
	input := a.inputs[0]
	assert.True(t, strings.HasPrefix(input, Preamble+"\n\n"))
	assert.True(t, strings.HasSuffix(input, "\n\n"+q))
	assert.Contains(t, input, dataset.DataDictionary)
	assert.Equal(t, Preamble+"\n\n"+dataset.DataDictionary+"\n\n"+q, input)
}

func TestTranscriptAlternatesInOrder(t *testing.T) {
	a := &recordingAgent{reply: func(n int) string { return fmt.Sprintf("answer %d", n) }}
	m := newTestManager(t, a)
	ctx := context.Background()

	s, _, err := m.Open(ctx, "")
	require.NoError(t, err)

	const k = 4
	for i := 1; i <= k; i++ {
		entries, err := s.Submit(ctx, fmt.Sprintf("question %d", i))
		require.NoError(t, err)
		require.Equal(t, []Entry{
			{Role: RoleUser, Content: fmt.Sprintf("question %d", i)},
			{Role: RoleAssistant, Content: fmt.Sprintf("answer %d", i)},
		}, entries)
	}

	transcript, err := s.Transcript(ctx)
	require.NoError(t, err)
	require.Len(t, transcript, 2*k)
	for i, e := range transcript {
		turn := i/2 + 1
		if i%2 == 0 {
			assert.Equal(t, Entry{Role: RoleUser, Content: fmt.Sprintf("question %d", turn)}, e)
		} else {
			assert.Equal(t, Entry{Role: RoleAssistant, Content: fmt.Sprintf("answer %d", turn)}, e)
		}
	}
}

func TestSubmitEmptyQuestion(t *testing.T) {
	a := &recordingAgent{}
	m := newTestManager(t, a)
	s, _, err := m.Open(context.Background(), "")
	require.NoError(t, err)

	for _, q := range []string{"", "   ", "\n\t"} {
		_, err := s.Submit(context.Background(), q)
		assert.ErrorIs(t, err, ErrEmptyQuestion)
	}
	assert.Empty(t, a.inputs)
}

func TestSubmitAgentFailureLeavesTranscriptUnchanged(t *testing.T) {
	boom := errors.New("model unavailable")
	a := &recordingAgent{}
	m := newTestManager(t, a)
	ctx := context.Background()
	s, _, err := m.Open(ctx, "")
	require.NoError(t, err)

	_, err = s.Submit(ctx, "first")
	require.NoError(t, err)

	a.err = boom
	entries, err := s.Submit(ctx, "second")
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Nil(t, entries)

	transcript, err := s.Transcript(ctx)
	require.NoError(t, err)
	assert.Len(t, transcript, 2)
}

type blockingAgent struct {
	started chan struct{}
	release chan struct{}
}

func (a *blockingAgent) Invoke(ctx context.Context, _ string) (string, error) {
	close(a.started)
	select {
	case <-a.release:
		return "done", nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func TestSubmitRejectsConcurrentTurn(t *testing.T) {
	a := &blockingAgent{started: make(chan struct{}), release: make(chan struct{})}
	m := NewManager(a, NewMemoryStore(), time.Minute, nil)
	ctx := context.Background()
	s, _, err := m.Open(ctx, "")
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := s.Submit(ctx, "slow question")
		done <- err
	}()
	<-a.started

	_, err = s.Submit(ctx, "impatient question")
	assert.ErrorIs(t, err, ErrTurnInProgress)

	close(a.release)
	require.NoError(t, <-done)

	transcript, err := s.Transcript(ctx)
	require.NoError(t, err)
	assert.Len(t, transcript, 2)
}

func TestSessionsAreIndependent(t *testing.T) {
	m := newTestManager(t, &recordingAgent{})
	ctx := context.Background()

	s1, _, err := m.Open(ctx, "")
	require.NoError(t, err)
	s2, _, err := m.Open(ctx, "")
	require.NoError(t, err)
	require.NotEqual(t, s1.ID, s2.ID)

	_, err = s1.Submit(ctx, "only in one")
	require.NoError(t, err)

	t2, err := s2.Transcript(ctx)
	require.NoError(t, err)
	assert.Empty(t, t2)
}

func TestOpenReusesKnownSession(t *testing.T) {
	m := newTestManager(t, &recordingAgent{})
	ctx := context.Background()

	s, created, err := m.Open(ctx, "")
	require.NoError(t, err)
	require.True(t, created)

	again, created, err := m.Open(ctx, s.ID)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, s.ID, again.ID)

	fresh, created, err := m.Open(ctx, "no-such-session")
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEqual(t, "no-such-session", fresh.ID)
}

func TestEndDiscardsTranscript(t *testing.T) {
	m := newTestManager(t, &recordingAgent{})
	ctx := context.Background()
	s, _, err := m.Open(ctx, "")
	require.NoError(t, err)
	_, err = s.Submit(ctx, "hello")
	require.NoError(t, err)

	require.NoError(t, s.End(ctx))
	_, err = s.Transcript(ctx)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	_, err = s.Submit(ctx, "after end")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	// Ending twice is harmless.
	assert.NoError(t, s.End(ctx))
}

func TestMemoryStoreSweepsIdleSessions(t *testing.T) {
	store := NewMemoryStore()
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, "old"))
	now = now.Add(20 * time.Minute)
	require.NoError(t, store.Create(ctx, "new"))
	now = now.Add(15 * time.Minute)

	removed := store.Sweep(30 * time.Minute)
	assert.Equal(t, []string{"old"}, removed)
	n, err := store.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	ok, err := store.Exists(ctx, "new")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	store, err := NewRedisStore(ctx, RedisOptions{Addr: mr.Addr()}, 10*time.Minute)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	a := &recordingAgent{reply: func(n int) string { return fmt.Sprintf("answer %d", n) }}
	m := NewManager(a, store, 10*time.Minute, nil)

	s, created, err := m.Open(ctx, "")
	require.NoError(t, err)
	require.True(t, created)

	for i := 1; i <= 2; i++ {
		_, err := s.Submit(ctx, fmt.Sprintf("question %d", i))
		require.NoError(t, err)
	}

	transcript, err := s.Transcript(ctx)
	require.NoError(t, err)
	assert.Equal(t, []Entry{
		{Role: RoleUser, Content: "question 1"},
		{Role: RoleAssistant, Content: "answer 1"},
		{Role: RoleUser, Content: "question 2"},
		{Role: RoleAssistant, Content: "answer 2"},
	}, transcript)

	assert.True(t, mr.Exists(transcriptKey(s.ID)))
	assert.Greater(t, mr.TTL(transcriptKey(s.ID)), time.Duration(0))

	// Idle expiry is the teardown.
	mr.FastForward(11 * time.Minute)
	_, err = s.Transcript(ctx)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	reopened, created, err := m.Open(ctx, s.ID)
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEqual(t, s.ID, reopened.ID)
}

func TestRedisStoreEnd(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()
	store, err := NewRedisStore(ctx, RedisOptions{Addr: mr.Addr()}, time.Minute)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	m := NewManager(&recordingAgent{}, store, time.Minute, nil)
	s, _, err := m.Open(ctx, "")
	require.NoError(t, err)
	_, err = s.Submit(ctx, "hello")
	require.NoError(t, err)

	require.NoError(t, s.End(ctx))
	assert.False(t, mr.Exists(metaKey(s.ID)))
	assert.False(t, mr.Exists(transcriptKey(s.ID)))
}

func TestSessionGaugeFollowsRedisExpiry(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()
	store, err := NewRedisStore(ctx, RedisOptions{Addr: mr.Addr()}, time.Minute)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	m := NewManager(&recordingAgent{}, store, time.Minute, nil)
	for i := 0; i < 2; i++ {
		s, _, err := m.Open(ctx, "")
		require.NoError(t, err)
		_, err = s.Submit(ctx, "hello")
		require.NoError(t, err)
	}
	assert.Equal(t, float64(2), testutil.ToFloat64(metrics.ActiveSessions))

	mr.FastForward(2 * time.Minute)
	m.observe(ctx)
	assert.Equal(t, float64(0), testutil.ToFloat64(metrics.ActiveSessions))

	_, _, err = m.Open(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.ActiveSessions))
}

func TestSessionGaugeFollowsMemorySweep(t *testing.T) {
	store := NewMemoryStore()
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	ctx := context.Background()

	m := NewManager(&recordingAgent{}, store, 30*time.Minute, nil)
	s, _, err := m.Open(ctx, "")
	require.NoError(t, err)
	_, _, err = m.Open(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, float64(2), testutil.ToFloat64(metrics.ActiveSessions))

	require.NoError(t, s.End(ctx))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.ActiveSessions))

	now = now.Add(time.Hour)
	m.expire(store)
	m.observe(ctx)
	assert.Equal(t, float64(0), testutil.ToFloat64(metrics.ActiveSessions))
}

func TestNewRedisStoreUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := NewRedisStore(context.Background(), RedisOptions{Addr: addr}, time.Minute)
	assert.Error(t, err)
}
