package core

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/socialnet/internal/config"
	"github.com/JonMunkholm/socialnet/internal/logging"
	"github.com/JonMunkholm/socialnet/internal/store"
)

const goodUsers = `USER_ID,EMAIL,NAME,LASTNAME
evmiles97,eve.miles@uw.edu,Eve,Miles
dave03,david.yuen@gmail.com,David,Yuen
mbakke63,marcus.bakke@gmail.com,Marcus,Bakke
`

const goodStatuses = `STATUS_ID,USER_ID,STATUS_TEXT
evmiles97_00001,evmiles97,"Code is finally compiling"
dave03_00001,dave03,"Sunny in Seattle this morning"
evmiles97_00002,evmiles97,"Perfect weather for a hike"
`

func newTestService(t *testing.T, cfg config.LoadConfig) (*Service, store.Store) {
	t.Helper()
	st, err := store.OpenSQLite(context.Background(), store.MemoryPath)
	require.NoError(t, err)
	t.Cleanup(st.Close)

	svc, err := NewService(st, cfg)
	require.NoError(t, err)
	return svc, st
}

func writeFeed(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func count(t *testing.T, st store.Store, c store.Collection) int64 {
	t.Helper()
	n, err := st.Count(context.Background(), c)
	require.NoError(t, err)
	return n
}

func TestLoad_UsersRoundTrip(t *testing.T) {
	ctx := context.Background()
	svc, st := newTestService(t, config.LoadConfig{})

	result, err := svc.Load(ctx, writeFeed(t, "accounts.csv", goodUsers), UserFeed)
	require.NoError(t, err)
	assert.EqualValues(t, 3, result.RowsRead)
	assert.EqualValues(t, 3, result.Inserted)
	assert.EqualValues(t, 0, result.Skipped)
	assert.Equal(t, 1, result.Chunks)
	assert.Equal(t, "accounts.csv", result.FileName)
	assert.NotEmpty(t, result.LoadID)

	got, err := st.GetUser(ctx, "dave03")
	require.NoError(t, err)
	assert.Equal(t, store.User{UserID: "dave03", Email: "david.yuen@gmail.com", FirstName: "David", LastName: "Yuen"}, got)
}

func TestLoad_StatusesRoundTrip(t *testing.T) {
	ctx := context.Background()
	svc, st := newTestService(t, config.LoadConfig{})
	require.True(t, svc.LoadUsers(ctx, writeFeed(t, "accounts.csv", goodUsers)))
	require.True(t, svc.LoadStatuses(ctx, writeFeed(t, "status_updates.csv", goodStatuses)))

	got, err := st.GetStatus(ctx, "evmiles97_00002")
	require.NoError(t, err)
	assert.Equal(t, store.Status{StatusID: "evmiles97_00002", UserID: "evmiles97", Text: "Perfect weather for a hike"}, got)
	assert.EqualValues(t, 3, count(t, st, store.Statuses))
}

func TestLoad_EmptyCellLeavesStoreUnchanged(t *testing.T) {
	ctx := context.Background()
	svc, st := newTestService(t, config.LoadConfig{ChunkSize: 1})
	require.True(t, svc.LoadUsers(ctx, writeFeed(t, "accounts.csv", goodUsers)))
	before := count(t, st, store.Users)

	feed := `USER_ID,EMAIL,NAME,LASTNAME
newbie01,new.bie@uw.edu,New,Bie
newbie02,,Second,Bie
newbie03,third@uw.edu,Third,Bie
`
	_, err := svc.Load(ctx, writeFeed(t, "bad.csv", feed), UserFeed)
	require.ErrorIs(t, err, ErrMissingField)

	var e *Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, "EMAIL", e.Field)
	assert.Equal(t, 3, e.Line)

	assert.Equal(t, before, count(t, st, store.Users))
	_, err = st.GetUser(ctx, "newbie01")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestLoad_DuplicateKeySkipsOnlyThatRow(t *testing.T) {
	ctx := context.Background()
	svc, st := newTestService(t, config.LoadConfig{ChunkSize: 2})
	require.NoError(t, st.AddUser(ctx, store.User{UserID: "dave03", Email: "old@mail.com", FirstName: "Old", LastName: "Dave"}))

	result, err := svc.Load(ctx, writeFeed(t, "accounts.csv", goodUsers), UserFeed)
	require.NoError(t, err)
	assert.EqualValues(t, 3, result.RowsRead)
	assert.EqualValues(t, 2, result.Inserted)
	assert.EqualValues(t, 1, result.Skipped)
	assert.Equal(t, 2, result.Chunks)

	assert.EqualValues(t, 3, count(t, st, store.Users))
	got, err := st.GetUser(ctx, "dave03")
	require.NoError(t, err)
	assert.Equal(t, "old@mail.com", got.Email, "existing record must be kept")
}

func TestLoad_MissingUserRollsBackEveryChunk(t *testing.T) {
	ctx := context.Background()
	svc, st := newTestService(t, config.LoadConfig{ChunkSize: 1})
	require.True(t, svc.LoadUsers(ctx, writeFeed(t, "accounts.csv", goodUsers)))
	require.NoError(t, st.AddStatus(ctx, store.Status{StatusID: "mbakke63_00001", UserID: "mbakke63", Text: "already here"}))
	before := count(t, st, store.Statuses)

	feed := goodStatuses + "ghost42_00001,ghost42,\"Nobody home\"\n"
	_, err := svc.Load(ctx, writeFeed(t, "status_updates.csv", feed), StatusFeed)
	require.ErrorIs(t, err, ErrStorageIntegrity)
	assert.ErrorIs(t, err, store.ErrIntegrity)
	assert.Contains(t, err.Error(), "chunk 4")

	assert.Equal(t, before, count(t, st, store.Statuses))
	_, err = st.GetStatus(ctx, "evmiles97_00001")
	assert.ErrorIs(t, err, store.ErrNotFound, "earlier chunks must be rolled back")
}

func TestLoad_ChunkBoundaries(t *testing.T) {
	ctx := context.Background()
	svc, st := newTestService(t, config.LoadConfig{ChunkSize: 2})

	var b strings.Builder
	b.WriteString("USER_ID,EMAIL,NAME,LASTNAME\n")
	for i := 1; i <= 5; i++ {
		fmt.Fprintf(&b, "user%02d,user%02d@example.com,User,Number\n", i, i)
	}

	result, err := svc.Load(ctx, writeFeed(t, "five.csv", b.String()), UserFeed)
	require.NoError(t, err)
	assert.Equal(t, 3, result.Chunks)
	assert.EqualValues(t, 5, result.Inserted)
	assert.EqualValues(t, 5, count(t, st, store.Users))
}

func TestLoad_FeedErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		feed    Feed
		wantErr error
		line    int
		field   string
		value   string
	}{
		{
			name:    "unexpected column",
			content: "USER_ID,EMAIL,NAME,LASTNAME,AGE\nevmiles97,eve.miles@uw.edu,Eve,Miles,27\n",
			feed:    UserFeed,
			wantErr: ErrUnexpectedColumn,
			line:    1,
			field:   "AGE",
		},
		{
			name:    "missing column",
			content: "USER_ID,EMAIL,NAME\nevmiles97,eve.miles@uw.edu,Eve\n",
			feed:    UserFeed,
			wantErr: ErrMissingField,
			line:    1,
			field:   "LASTNAME",
		},
		{
			name:    "invalid email",
			content: "USER_ID,EMAIL,NAME,LASTNAME\nevmiles97,eve.miles@uw.edu,Eve,Miles\ndave03,dave@gmail,David,Yuen\n",
			feed:    UserFeed,
			wantErr: ErrValidation,
			line:    3,
			field:   "EMAIL",
			value:   "dave@gmail",
		},
		{
			name:    "whitespace-only cell",
			content: "STATUS_ID,USER_ID,STATUS_TEXT\nevmiles97_00001,evmiles97,\"   \"\n",
			feed:    StatusFeed,
			wantErr: ErrMissingField,
			line:    2,
			field:   "STATUS_TEXT",
		},
		{
			name:    "short row",
			content: "STATUS_ID,USER_ID,STATUS_TEXT\nevmiles97_00001,evmiles97\n",
			feed:    StatusFeed,
			wantErr: ErrMissingField,
			line:    2,
			field:   "STATUS_TEXT",
		},
		{
			name:    "long row",
			content: "STATUS_ID,USER_ID,STATUS_TEXT\nevmiles97_00001,evmiles97,hello,extra\n",
			feed:    StatusFeed,
			wantErr: ErrUnexpectedColumn,
			line:    2,
			field:   "column 4",
			value:   "extra",
		},
		{
			name:    "bare quote",
			content: "STATUS_ID,USER_ID,STATUS_TEXT\nevmiles97_00001,evmiles97,say \"hi\"\n",
			feed:    StatusFeed,
			wantErr: ErrFeedUnavailable,
			line:    2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			svc, st := newTestService(t, config.LoadConfig{})
			require.True(t, svc.LoadUsers(ctx, writeFeed(t, "accounts.csv", goodUsers)))
			users, statuses := count(t, st, store.Users), count(t, st, store.Statuses)

			_, err := svc.Load(ctx, writeFeed(t, "feed.csv", tt.content), tt.feed)
			require.ErrorIs(t, err, tt.wantErr)

			var e *Error
			require.ErrorAs(t, err, &e)
			assert.Equal(t, tt.line, e.Line)
			assert.Equal(t, tt.field, e.Field)
			assert.Equal(t, tt.value, e.Value)

			assert.Equal(t, users, count(t, st, store.Users))
			assert.Equal(t, statuses, count(t, st, store.Statuses))
		})
	}
}

func TestLoad_FeedUnavailable(t *testing.T) {
	ctx := context.Background()
	svc, st := newTestService(t, config.LoadConfig{})

	_, err := svc.Load(ctx, filepath.Join(t.TempDir(), "missing.csv"), UserFeed)
	require.ErrorIs(t, err, ErrFeedUnavailable)
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.False(t, svc.LoadUsers(ctx, t.TempDir()), "a directory is not a feed")

	assert.EqualValues(t, 0, count(t, st, store.Users))
}

func TestLoad_FeedTooLarge(t *testing.T) {
	ctx := context.Background()
	svc, st := newTestService(t, config.LoadConfig{MaxFeedSize: 32})

	_, err := svc.Load(ctx, writeFeed(t, "accounts.csv", goodUsers), UserFeed)
	require.ErrorIs(t, err, ErrFeedUnavailable)
	assert.ErrorIs(t, err, ErrFeedTooLarge)
	assert.Equal(t, "FEED002", MapError(err).Code)
	assert.EqualValues(t, 0, count(t, st, store.Users))
}

func TestLoad_EmptyAndHeaderOnlyFeeds(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, config.LoadConfig{})

	for name, content := range map[string]string{
		"empty.csv":  "",
		"header.csv": "USER_ID,EMAIL,NAME,LASTNAME\n",
	} {
		result, err := svc.Load(ctx, writeFeed(t, name, content), UserFeed)
		require.NoError(t, err, name)
		assert.EqualValues(t, 0, result.RowsRead, name)
		assert.Equal(t, 0, result.Chunks, name)
	}
}

func TestLoad_BOMWithReorderedHeader(t *testing.T) {
	ctx := context.Background()
	svc, st := newTestService(t, config.LoadConfig{})

	content := "\xEF\xBB\xBFEMAIL,USER_ID,LASTNAME,NAME\r\neve.miles@uw.edu,evmiles97,Miles,Eve\r\n"
	_, err := svc.Load(ctx, writeFeed(t, "windows.csv", content), UserFeed)
	require.NoError(t, err)

	got, err := st.GetUser(ctx, "evmiles97")
	require.NoError(t, err)
	assert.Equal(t, store.User{UserID: "evmiles97", Email: "eve.miles@uw.edu", FirstName: "Eve", LastName: "Miles"}, got)
}

func TestLoad_HeaderMustMatchExactly(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })
	var logs bytes.Buffer
	logging.SetupWriter(&logs, "info", "json", false)

	ctx := context.Background()
	svc, st := newTestService(t, config.LoadConfig{})

	content := "user_id, email ,Name,lastname\nevmiles97,eve.miles@uw.edu,Eve,Miles\n"
	_, err := svc.Load(ctx, writeFeed(t, "accounts.csv", content), UserFeed)
	require.ErrorIs(t, err, ErrUnexpectedColumn)

	var e *Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, "user_id", e.Field)
	assert.Equal(t, 1, e.Line)
	assert.EqualValues(t, 0, count(t, st, store.Users))

	assert.Contains(t, logs.String(), `"msg":"load failed"`)
	assert.Contains(t, logs.String(), `"kind":"unexpected column"`)
}

func TestLoad_Cancelled(t *testing.T) {
	svc, st := newTestService(t, config.LoadConfig{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Load(ctx, writeFeed(t, "accounts.csv", goodUsers), UserFeed)
	require.ErrorIs(t, err, context.Canceled)
	assert.EqualValues(t, 0, count(t, st, store.Users))
}

func TestLoad_RecordsHistory(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, config.LoadConfig{HistoryLimit: 10})

	require.True(t, svc.LoadUsers(ctx, writeFeed(t, "accounts.csv", goodUsers)))
	require.False(t, svc.LoadStatuses(ctx, writeFeed(t, "bad_status.csv", "STATUS_ID,USER_ID,STATUS_TEXT\nnope,evmiles97,hi\n")))

	history, err := svc.History(ctx, 0)
	require.NoError(t, err)
	require.Len(t, history, 2)

	byCollection := map[store.Collection]store.LoadRecord{}
	for _, h := range history {
		byCollection[h.Collection] = h
	}

	users := byCollection[store.Users]
	assert.Equal(t, store.LoadCommitted, users.Status)
	assert.Equal(t, "accounts.csv", users.FileName)
	assert.EqualValues(t, 3, users.RowsInserted)
	assert.Empty(t, users.Error)

	statuses := byCollection[store.Statuses]
	assert.Equal(t, store.LoadFailed, statuses.Status)
	assert.EqualValues(t, 0, statuses.RowsInserted)
	assert.Contains(t, statuses.Error, "STATUS_ID")
}

func TestLoadFeed(t *testing.T) {
	ctx := context.Background()
	svc, st := newTestService(t, config.LoadConfig{})

	result, err := svc.LoadFeed(ctx, store.Users, writeFeed(t, "accounts.csv", goodUsers))
	require.NoError(t, err)
	assert.Equal(t, store.Users, result.Collection)
	assert.EqualValues(t, 3, count(t, st, store.Users))

	_, err = svc.LoadFeed(ctx, store.Collection("posts"), writeFeed(t, "posts.csv", "X\n"))
	assert.ErrorIs(t, err, ErrFeedUnavailable)
}

func TestChunkRecords(t *testing.T) {
	rows := make([]store.Record, 7)
	chunks := chunkRecords(rows, 3)
	require.Len(t, chunks, 3)
	assert.Len(t, chunks[0], 3)
	assert.Len(t, chunks[2], 1)

	assert.Empty(t, chunkRecords(nil, 3))
	assert.Len(t, chunkRecords(rows, 0), 1, "non-positive size falls back to the default")
}
