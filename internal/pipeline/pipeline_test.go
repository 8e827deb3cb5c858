package pipeline

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loevda/datalake/internal/config"
	"github.com/loevda/datalake/internal/parquet"
	"github.com/loevda/datalake/internal/schema"
	"github.com/loevda/datalake/internal/storage"
)

const (
	songMax = `{"song_id": "S1", "title": "One", "artist_id": "A1", "year": 2000, "duration": 200.0, "artist_name": "Max", "artist_location": "Berlin", "artist_latitude": 52.52, "artist_longitude": 13.4}`
	songAnn = `{"song_id": "S2", "title": "Two", "artist_id": "A2", "year": 2010, "duration": 180.0, "artist_name": "Ann", "artist_location": "", "artist_latitude": null, "artist_longitude": null}`
	// song_id is null: dropped from songs, artist still lands in artists.
	songNullID = `{"song_id": null, "title": "Lost", "artist_id": "A3", "year": 0, "duration": 90.0, "artist_name": "Bob", "artist_location": "", "artist_latitude": null, "artist_longitude": null}`

	playMax = `{"userId": "U1", "firstName": "Lily", "lastName": "K", "gender": "F", "level": "free", "ts": 1000000, "page": "NextSong", "sessionId": 5, "location": "X", "userAgent": "UA", "artist": "Max"}`
	playAnn = `{"userId": "U2", "firstName": "Joe", "lastName": "M", "gender": "M", "level": "paid", "ts": 1542241826796, "page": "NextSong", "sessionId": 6, "location": "Y", "userAgent": "UB", "artist": "Ann"}`
	// No catalog match: silently dropped from songplays only.
	playUnknown = `{"userId": "U3", "firstName": "Pat", "lastName": "R", "gender": "F", "level": "free", "ts": 1542241826796, "page": "NextSong", "sessionId": 7, "location": "Z", "userAgent": "UC", "artist": "Nobody"}`
	pageHome    = `{"userId": "U9", "firstName": "Sam", "lastName": "T", "gender": "M", "level": "free", "ts": 1542241826796, "page": "Home", "sessionId": 8, "location": "W", "userAgent": "UD", "artist": null}`
)

func testContext(t *testing.T, songs, logs map[string]string) (*Context, storage.ObjectStore) {
	t.Helper()
	ctx := context.Background()

	in := storage.NewDirStore(t.TempDir())
	for key, body := range songs {
		require.NoError(t, in.Upload(ctx, key, strings.NewReader(body)))
	}
	for key, body := range logs {
		require.NoError(t, in.Upload(ctx, key, strings.NewReader(body)))
	}

	out := storage.NewDirStore(t.TempDir())
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return &Context{In: in, Out: out, Log: log}, out
}

func defaultSongs() map[string]string {
	return map[string]string{
		"song_data/A/A/A/TRAAA.json": songMax,
		"song_data/A/A/B/TRAAB.json": songAnn,
		"song_data/A/B/A/TRABA.json": songNullID,
	}
}

func defaultLogs() map[string]string {
	return map[string]string{
		"log_data/2018/11/2018-11-15-events.json": strings.Join(
			[]string{playMax, playAnn, playUnknown, pageHome}, "\n"),
	}
}

func TestEndToEnd(t *testing.T) {
	ctx := context.Background()
	p, out := testContext(t, defaultSongs(), defaultLogs())

	require.NoError(t, p.Run(ctx))

	songs, err := parquet.Read[schema.SongRow](ctx, out, "songs.parquet")
	require.NoError(t, err)
	require.Len(t, songs, 2)
	for _, s := range songs {
		assert.NotEmpty(t, s.SongID, "null song_id rows must be dropped")
	}

	artists, err := parquet.Read[schema.ArtistRow](ctx, out, "artists.parquet")
	require.NoError(t, err)
	require.Len(t, artists, 3, "artist of the null-song_id record is retained")
	names := map[string]bool{}
	for _, a := range artists {
		names[a.Name] = true
	}
	assert.True(t, names["Bob"])

	users, err := parquet.Read[schema.UserRow](ctx, out, "users.parquet")
	require.NoError(t, err)
	require.Len(t, users, 3)
	for _, u := range users {
		assert.NotEqual(t, "U9", u.UserID, "non-NextSong events must not reach users")
	}

	times, err := parquet.Read[schema.TimeRow](ctx, out, "time.parquet")
	require.NoError(t, err)
	require.Len(t, times, 2, "two distinct timestamps among NextSong events")
	for _, row := range times {
		assert.GreaterOrEqual(t, row.Weekday, int32(1))
		assert.LessOrEqual(t, row.Weekday, int32(7))
	}

	plays, err := parquet.Read[schema.SongplayRow](ctx, out, "songplays.parquet")
	require.NoError(t, err)
	require.Len(t, plays, 2, "one row per NextSong event with a catalog match")

	sort.Slice(plays, func(i, j int) bool { return plays[i].UserID < plays[j].UserID })
	first := plays[0]
	assert.Equal(t, "S1", first.SongID)
	assert.Equal(t, "A1", first.ArtistID)
	assert.Equal(t, "U1", first.UserID)
	assert.Equal(t, "free", first.Level)
	assert.Equal(t, int64(5), first.SessionID)
	assert.Equal(t, 1000.0, first.StartTime)
	assert.Equal(t, int32(1970), first.Year)
	assert.Equal(t, int32(1), first.Month)
	assert.NotEqual(t, plays[0].SongplayID, plays[1].SongplayID)
}

func TestRunIdempotent(t *testing.T) {
	ctx := context.Background()
	p, out := testContext(t, defaultSongs(), defaultLogs())

	require.NoError(t, p.Run(ctx))
	firstSongs, err := parquet.Read[schema.SongRow](ctx, out, "songs.parquet")
	require.NoError(t, err)
	firstUsers, err := parquet.Read[schema.UserRow](ctx, out, "users.parquet")
	require.NoError(t, err)

	require.NoError(t, p.Run(ctx))
	secondSongs, err := parquet.Read[schema.SongRow](ctx, out, "songs.parquet")
	require.NoError(t, err)
	secondUsers, err := parquet.Read[schema.UserRow](ctx, out, "users.parquet")
	require.NoError(t, err)

	assert.ElementsMatch(t, firstSongs, secondSongs)
	assert.ElementsMatch(t, firstUsers, secondUsers)
}

func TestCatalogPipelineNoInput(t *testing.T) {
	ctx := context.Background()
	p, _ := testContext(t, nil, defaultLogs())

	err := p.RunCatalog(ctx)
	require.ErrorIs(t, err, ErrNoInput)
}

func TestLogPipelineNoInput(t *testing.T) {
	ctx := context.Background()
	p, _ := testContext(t, defaultSongs(), nil)

	err := p.RunLog(ctx)
	require.ErrorIs(t, err, ErrNoInput)
}

func TestSchemaErrorOnMissingField(t *testing.T) {
	ctx := context.Background()
	songs := defaultSongs()
	songs["song_data/A/A/A/TRAAA.json"] = `{"title": "One", "artist_id": "A1"}`
	p, _ := testContext(t, songs, defaultLogs())

	err := p.RunCatalog(ctx)
	var fieldErr *schema.FieldError
	require.ErrorAs(t, err, &fieldErr)
	assert.Equal(t, "song_data/A/A/A/TRAAA.json", fieldErr.Source)
}

func TestEmptyJoinStillWritesSongplays(t *testing.T) {
	ctx := context.Background()
	logs := map[string]string{
		"log_data/2018/11/2018-11-15-events.json": playUnknown,
	}
	p, out := testContext(t, defaultSongs(), logs)

	require.NoError(t, p.RunLog(ctx))

	plays, err := parquet.Read[schema.SongplayRow](ctx, out, "songplays.parquet")
	require.NoError(t, err)
	assert.Empty(t, plays)

	keys, err := out.List(ctx, "songplays.parquet/")
	require.NoError(t, err)
	assert.Len(t, keys, 1, "the empty table is still materialized")
}

func TestLogPipelineIndependentOfCatalogRun(t *testing.T) {
	// The join re-reads the catalog source, so RunLog alone must produce
	// the same songplays as a full run.
	ctx := context.Background()
	p, out := testContext(t, defaultSongs(), defaultLogs())

	require.NoError(t, p.RunLog(ctx))

	plays, err := parquet.Read[schema.SongplayRow](ctx, out, "songplays.parquet")
	require.NoError(t, err)
	assert.Len(t, plays, 2)

	keys, err := out.List(ctx, "songs.parquet/")
	require.NoError(t, err)
	assert.Empty(t, keys, "RunLog must not write catalog tables")
}

func TestNewContextRejectsInvalidConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.AWS.OutputBucket = ""

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	_, err := NewContext(context.Background(), cfg, log)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestNewContextLocalPaths(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.AWS.InputPath = t.TempDir()
	cfg.AWS.OutputBucket = t.TempDir()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	p, err := NewContext(context.Background(), cfg, log)
	require.NoError(t, err)
	assert.NotNil(t, p.In)
	assert.NotNil(t, p.Out)
}

func TestUsersLevelQuirkEndToEnd(t *testing.T) {
	ctx := context.Background()
	paidPlay := strings.Replace(playMax, `"level": "free"`, `"level": "paid"`, 1)
	logs := map[string]string{
		"log_data/2018/11/2018-11-15-events.json": playMax + "\n" + playMax + "\n" + paidPlay,
	}
	p, out := testContext(t, defaultSongs(), logs)

	require.NoError(t, p.RunLog(ctx))

	users, err := parquet.Read[schema.UserRow](ctx, out, "users.parquet")
	require.NoError(t, err)
	require.Len(t, users, 2, "same user at two levels keeps both rows")
	assert.Equal(t, users[0].UserID, users[1].UserID)
}
