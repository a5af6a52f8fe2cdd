package conversation

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eldtechnologies/anonq/internal/models"
	"github.com/eldtechnologies/anonq/internal/store"
)

// fakeClock hands out strictly increasing times, one second apart.
type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time {
	c.t = c.t.Add(time.Second)
	return c.t
}

var admin = &models.AdminSession{ID: "s1", Username: "admin"}

func newTestService(t *testing.T) (*Service, store.DataStore, *fakeClock) {
	t.Helper()
	ds, err := store.NewSQLiteStore(context.Background(), filepath.Join(t.TempDir(), "anonq.db"))
	require.NoError(t, err)
	t.Cleanup(ds.Close)

	clock := &fakeClock{t: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
	tokens := 0
	svc := NewService(ds,
		WithClock(clock.Now),
		WithTokenGenerator(func() string {
			tokens++
			return "token-" + string(rune('0'+tokens))
		}),
	)
	return svc, ds, clock
}

func TestNormalizeBody(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr error
	}{
		{name: "plain", in: "hello", want: "hello"},
		{name: "trimmed", in: "  hello there \n", want: "hello there"},
		{name: "inner whitespace kept", in: "a  \t b", want: "a  \t b"},
		{name: "empty", in: "", wantErr: ErrEmptyBody},
		{name: "spaces", in: "   ", wantErr: ErrEmptyBody},
		{name: "mixed whitespace", in: "\t\r\n ", wantErr: ErrEmptyBody},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeBody(tt.in)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveWithoutToken(t *testing.T) {
	svc, _, _ := newTestService(t)

	res, err := svc.Resolve(context.Background(), "")
	require.NoError(t, err)
	assert.True(t, res.NewToken)
	assert.Equal(t, "token-1", res.Token)
	assert.Nil(t, res.Conversation)
	assert.Empty(t, res.Messages)
}

func TestResolveUnknownToken(t *testing.T) {
	svc, _, _ := newTestService(t)

	res, err := svc.Resolve(context.Background(), "issued-but-unused")
	require.NoError(t, err)
	assert.False(t, res.NewToken)
	assert.Equal(t, "issued-but-unused", res.Token)
	assert.Nil(t, res.Conversation)
	assert.Empty(t, res.Messages)
}

func TestVisitorToken(t *testing.T) {
	svc, _, _ := newTestService(t)

	tok, fresh := svc.VisitorToken("kept")
	assert.False(t, fresh)
	assert.Equal(t, "kept", tok)

	longest := strings.Repeat("x", MaxTokenLength)
	tok, fresh = svc.VisitorToken(longest)
	assert.False(t, fresh)
	assert.Equal(t, longest, tok)

	tok, fresh = svc.VisitorToken("")
	assert.True(t, fresh)
	assert.Equal(t, "token-1", tok)

	tok, fresh = svc.VisitorToken(longest + "x")
	assert.True(t, fresh)
	assert.Equal(t, "token-2", tok)
}

func TestOverlongTokenIsReplaced(t *testing.T) {
	svc, ds, _ := newTestService(t)
	ctx := context.Background()
	overlong := strings.Repeat("a", MaxTokenLength+1)

	res, err := svc.Resolve(ctx, overlong)
	require.NoError(t, err)
	assert.True(t, res.NewToken)
	assert.Equal(t, "token-1", res.Token)
	assert.Nil(t, res.Conversation)

	_, err = svc.SendVisitorMessage(ctx, overlong, "hello")
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = svc.SendVisitorMessage(ctx, "", "hello")
	assert.ErrorIs(t, err, ErrInvalidToken)

	summaries, err := ds.ListConversationSummaries(ctx)
	require.NoError(t, err)
	assert.Empty(t, summaries)
}

func TestFirstVisitorMessage(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	res, err := svc.Resolve(ctx, "")
	require.NoError(t, err)

	msg, err := svc.SendVisitorMessage(ctx, res.Token, "hello")
	require.NoError(t, err)
	assert.False(t, msg.IsAdminReply)

	res, err = svc.Resolve(ctx, res.Token)
	require.NoError(t, err)
	require.NotNil(t, res.Conversation)
	assert.Equal(t, res.Token, res.Conversation.SessionToken)
	require.Len(t, res.Messages, 1)
	assert.Equal(t, "hello", res.Messages[0].Body)
	assert.False(t, res.Messages[0].IsAdminReply)
}

func TestSameTokenSharesConversation(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	first, err := svc.SendVisitorMessage(ctx, "tok", "one")
	require.NoError(t, err)
	second, err := svc.SendVisitorMessage(ctx, "tok", "  two  ")
	require.NoError(t, err)
	assert.Equal(t, first.ConversationID, second.ConversationID)

	summaries, err := svc.ListConversationsSummary(ctx, admin)
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.EqualValues(t, 2, summaries[0].MessageCount)

	msgs, err := svc.ListByConversation(ctx, first.ConversationID)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "one", msgs[0].Body)
	assert.Equal(t, "two", msgs[1].Body)
}

func TestSendVisitorMessageRejectsEmpty(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	for _, body := range []string{"", "   ", "\n\t"} {
		_, err := svc.SendVisitorMessage(ctx, "tok", body)
		assert.ErrorIs(t, err, ErrEmptyBody)
	}

	// Rejected before the conversation is created
	summaries, err := svc.ListConversationsSummary(ctx, admin)
	require.NoError(t, err)
	assert.Empty(t, summaries)
}

func TestAppendRejectsEmptyWithoutWriting(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	msg, err := svc.SendVisitorMessage(ctx, "tok", "hi")
	require.NoError(t, err)

	_, err = svc.Append(ctx, msg.ConversationID, "  ", true)
	assert.ErrorIs(t, err, ErrEmptyBody)

	msgs, err := svc.ListByConversation(ctx, msg.ConversationID)
	require.NoError(t, err)
	assert.Len(t, msgs, 1)
}

func TestAppendPreservesTrimmedBody(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	first, err := svc.SendVisitorMessage(ctx, "tok", "seed")
	require.NoError(t, err)

	bodies := []string{"x", "  multi\nline  ", "ünïcödé ✓", "<b>not html</b>"}
	for _, body := range bodies {
		_, err := svc.Append(ctx, first.ConversationID, body, false)
		require.NoError(t, err)
	}

	msgs, err := svc.ListByConversation(ctx, first.ConversationID)
	require.NoError(t, err)
	require.Len(t, msgs, len(bodies)+1)
	for i, body := range bodies {
		want, _ := NormalizeBody(body)
		assert.Equal(t, want, msgs[i+1].Body)
	}
}

func TestAdminReplyMovesConversationToTop(t *testing.T) {
	svc, ds, _ := newTestService(t)
	ctx := context.Background()

	visitor, err := svc.SendVisitorMessage(ctx, "visitor", "hello")
	require.NoError(t, err)
	_, err = svc.SendVisitorMessage(ctx, "someone-else", "later message")
	require.NoError(t, err)

	summaries, err := svc.ListConversationsSummary(ctx, admin)
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	assert.NotEqual(t, visitor.ConversationID, summaries[0].ID)

	reply, err := svc.Reply(ctx, admin, visitor.ConversationID, "hi there")
	require.NoError(t, err)
	assert.True(t, reply.IsAdminReply)

	conv, msgs, err := svc.ConversationDetail(ctx, admin, visitor.ConversationID)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.True(t, msgs[1].IsAdminReply)
	assert.Equal(t, "hi there", msgs[1].Body)
	assert.True(t, reply.CreatedAt.Equal(conv.LastActivity))

	stored, err := ds.GetConversation(ctx, visitor.ConversationID)
	require.NoError(t, err)
	assert.True(t, reply.CreatedAt.Equal(stored.LastActivity))

	summaries, err = svc.ListConversationsSummary(ctx, admin)
	require.NoError(t, err)
	assert.Equal(t, visitor.ConversationID, summaries[0].ID)
	assert.EqualValues(t, 2, summaries[0].MessageCount)
}

func TestSummaryOrderingByActivity(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	m1, err := svc.SendVisitorMessage(ctx, "t1", "at T1")
	require.NoError(t, err)
	m2, err := svc.SendVisitorMessage(ctx, "t2", "at T2")
	require.NoError(t, err)
	m3, err := svc.SendVisitorMessage(ctx, "t3", "at T3")
	require.NoError(t, err)

	summaries, err := svc.ListConversationsSummary(ctx, admin)
	require.NoError(t, err)
	require.Len(t, summaries, 3)
	assert.Equal(t, m3.ConversationID, summaries[0].ID)
	assert.Equal(t, m2.ConversationID, summaries[1].ID)
	assert.Equal(t, m1.ConversationID, summaries[2].ID)
}

func TestZeroMessageConversationInSummary(t *testing.T) {
	svc, ds, _ := newTestService(t)
	ctx := context.Background()

	// A conversation whose first append failed still shows up.
	_, err := ds.EnsureConversation(ctx, "orphan", time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	summaries, err := svc.ListConversationsSummary(ctx, admin)
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.EqualValues(t, 0, summaries[0].MessageCount)
	assert.Nil(t, summaries[0].LastMessageAt)
}

func TestConversationDetailNotFound(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, _, err := svc.ConversationDetail(ctx, admin, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReplyUnknownConversation(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	missing := uuid.New()
	_, err := svc.Reply(ctx, admin, missing, "hello?")
	assert.ErrorIs(t, err, ErrNotFound)

	msgs, err := svc.ListByConversation(ctx, missing)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestAdminOperationsRequireSession(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	msg, err := svc.SendVisitorMessage(ctx, "tok", "hello")
	require.NoError(t, err)

	_, err = svc.ListConversationsSummary(ctx, nil)
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, _, err = svc.ConversationDetail(ctx, nil, msg.ConversationID)
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = svc.Reply(ctx, nil, msg.ConversationID, "sneaky")
	assert.ErrorIs(t, err, ErrUnauthorized)

	msgs, err := svc.ListByConversation(ctx, msg.ConversationID)
	require.NoError(t, err)
	assert.Len(t, msgs, 1)
}

// failingStore fails every call; used to check errors are surfaced.
type failingStore struct {
	store.DataStore
	err error
}

func (f failingStore) GetConversationByToken(ctx context.Context, token string) (*models.Conversation, error) {
	return nil, f.err
}

func (f failingStore) EnsureConversation(ctx context.Context, token string, at time.Time) (*models.Conversation, error) {
	return nil, f.err
}

func (f failingStore) ListConversationSummaries(ctx context.Context) ([]models.ConversationSummary, error) {
	return nil, f.err
}

func TestStorageErrorsSurface(t *testing.T) {
	boom := errors.New("connection refused")
	svc := NewService(failingStore{err: boom})
	ctx := context.Background()

	_, err := svc.Resolve(ctx, "tok")
	assert.ErrorIs(t, err, boom)

	_, err = svc.SendVisitorMessage(ctx, "tok", "hello")
	assert.ErrorIs(t, err, boom)

	_, err = svc.ListConversationsSummary(ctx, admin)
	assert.ErrorIs(t, err, boom)
}
