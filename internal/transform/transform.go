// Package transform holds the table builders: pure functions from decoded
// source records to output table rows. All projection, renaming, null-key
// filtering, duplicate collapsing, and the artist-name join live here.
package transform

import (
	"time"

	"github.com/loevda/datalake/internal/schema"
)

// NextSongPage marks the log events that represent actual song plays; every
// log-derived table is built from this subset only.
const NextSongPage = "NextSong"

// FilterNextSong returns the events with page == "NextSong", in input order.
func FilterNextSong(events []schema.LogRecord) []schema.LogRecord {
	var out []schema.LogRecord
	for _, e := range events {
		if e.Page == NextSongPage {
			out = append(out, e)
		}
	}
	return out
}

// Songs projects the songs table from catalog records: rows with an empty
// song_id are dropped and exact duplicates collapsed, first occurrence wins.
func Songs(catalog []schema.CatalogRecord) []schema.SongRow {
	var rows []schema.SongRow
	for _, c := range catalog {
		if c.SongID == "" {
			continue
		}
		rows = append(rows, schema.SongRow{
			SongID:   c.SongID,
			Title:    c.Title,
			ArtistID: c.ArtistID,
			Year:     c.Year,
			Duration: c.Duration,
		})
	}
	return distinct(rows)
}

// Artists projects the artists table. A record with an empty artist_id is
// dropped even when its song row survived, and vice versa.
func Artists(catalog []schema.CatalogRecord) []schema.ArtistRow {
	type key struct {
		id, name, location string
		lat, lon           float64
		hasLat, hasLon     bool
	}
	seen := make(map[key]struct{}, len(catalog))
	var rows []schema.ArtistRow
	for _, c := range catalog {
		if c.ArtistID == "" {
			continue
		}
		k := key{id: c.ArtistID, name: c.ArtistName, location: c.ArtistLocation}
		if c.ArtistLatitude != nil {
			k.lat, k.hasLat = *c.ArtistLatitude, true
		}
		if c.ArtistLongitude != nil {
			k.lon, k.hasLon = *c.ArtistLongitude, true
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		rows = append(rows, schema.ArtistRow{
			ArtistID:  c.ArtistID,
			Name:      c.ArtistName,
			Location:  c.ArtistLocation,
			Latitude:  c.ArtistLatitude,
			Longitude: c.ArtistLongitude,
		})
	}
	return rows
}

// Users projects the users table from NextSong-filtered events. Distinct is
// applied to the full row, so a user whose level changed keeps one row per
// level. That mirrors the upstream warehouse tables and is deliberate.
func Users(events []schema.LogRecord) []schema.UserRow {
	var rows []schema.UserRow
	for _, e := range events {
		if e.UserID == "" {
			continue
		}
		rows = append(rows, schema.UserRow{
			UserID:    e.UserID,
			FirstName: e.FirstName,
			LastName:  e.LastName,
			Gender:    e.Gender,
			Level:     e.Level,
		})
	}
	return distinct(rows)
}

// SplitTimestamp converts an epoch-millisecond event time into the float
// epoch-second start_time plus its UTC calendar fields. week is the ISO
// week of year and weekday the ISO day of week (1=Monday .. 7=Sunday).
func SplitTimestamp(tsMillis int64) (float64, schema.TimeRow) {
	t := time.UnixMilli(tsMillis).UTC()
	_, week := t.ISOWeek()
	weekday := int32(t.Weekday())
	if weekday == 0 {
		weekday = 7
	}
	start := float64(tsMillis) / 1000.0
	return start, schema.TimeRow{
		StartTime: start,
		Hour:      int32(t.Hour()),
		Day:       int32(t.Day()),
		Week:      int32(week),
		Month:     int32(t.Month()),
		Year:      int32(t.Year()),
		Weekday:   weekday,
	}
}

// TimeRows derives the time table from NextSong-filtered events.
func TimeRows(events []schema.LogRecord) []schema.TimeRow {
	rows := make([]schema.TimeRow, 0, len(events))
	for _, e := range events {
		_, row := SplitTimestamp(e.TS)
		rows = append(rows, row)
	}
	return distinct(rows)
}

// Songplays joins NextSong-filtered events against the catalog on
// event.artist == catalog.artist_name (exact string match). Each artist
// name resolves to its first catalog record, so the output holds exactly
// one row per matched event; unmatched events are dropped and counted.
// Songplay IDs increase monotonically from zero within the run.
func Songplays(events []schema.LogRecord, catalog []schema.CatalogRecord) (rows []schema.SongplayRow, unmatched int) {
	byName := make(map[string]schema.CatalogRecord, len(catalog))
	for _, c := range catalog {
		if _, ok := byName[c.ArtistName]; !ok {
			byName[c.ArtistName] = c
		}
	}

	var nextID int64
	for _, e := range events {
		c, ok := byName[e.Artist]
		if !ok {
			unmatched++
			continue
		}
		start, t := SplitTimestamp(e.TS)
		rows = append(rows, schema.SongplayRow{
			SongplayID: nextID,
			StartTime:  start,
			UserID:     e.UserID,
			Level:      e.Level,
			SongID:     c.SongID,
			ArtistID:   c.ArtistID,
			SessionID:  e.SessionID,
			Location:   e.Location,
			UserAgent:  e.UserAgent,
			Year:       t.Year,
			Month:      t.Month,
		})
		nextID++
	}
	return rows, unmatched
}

// distinct collapses exact-duplicate rows, preserving first-seen order.
func distinct[T comparable](rows []T) []T {
	seen := make(map[T]struct{}, len(rows))
	out := rows[:0]
	for _, r := range rows {
		if _, ok := seen[r]; ok {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}
	return out
}
