// Package schema defines the raw record shapes read from the source JSON
// datasets and the row types of the five output tables.
package schema

import "fmt"

// CatalogRecord is one song-catalog document. Each catalog file carries a
// single record; the artist attributes are embedded in it.
type CatalogRecord struct {
	SongID          string   `json:"song_id"`
	Title           string   `json:"title"`
	ArtistID        string   `json:"artist_id"`
	Year            int32    `json:"year"`
	Duration        float64  `json:"duration"`
	ArtistName      string   `json:"artist_name"`
	ArtistLocation  string   `json:"artist_location"`
	ArtistLatitude  *float64 `json:"artist_latitude"`
	ArtistLongitude *float64 `json:"artist_longitude"`
}

// LogRecord is one user-app interaction event. TS is epoch milliseconds.
type LogRecord struct {
	UserID    string `json:"userId"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Gender    string `json:"gender"`
	Level     string `json:"level"`
	TS        int64  `json:"ts"`
	Page      string `json:"page"`
	SessionID int64  `json:"sessionId"`
	Location  string `json:"location"`
	UserAgent string `json:"userAgent"`
	Artist    string `json:"artist"`
}

// CatalogFields and LogFields are the keys every source record must carry.
// A JSON null still counts as present; null business keys are dropped later
// by the table builders, not here.
var (
	CatalogFields = []string{
		"song_id", "title", "artist_id", "year", "duration",
		"artist_name", "artist_location", "artist_latitude", "artist_longitude",
	}
	LogFields = []string{
		"userId", "firstName", "lastName", "gender", "level",
		"ts", "page", "sessionId", "location", "userAgent", "artist",
	}
)

// FieldError reports a required field missing from a source record.
type FieldError struct {
	Field  string
	Source string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("schema: field %q missing from %s", e.Field, e.Source)
}

// SongRow is one row of the songs table, partitioned by (year, artist_id).
type SongRow struct {
	SongID   string  `parquet:"name=song_id, type=BYTE_ARRAY, convertedtype=UTF8"`
	Title    string  `parquet:"name=title, type=BYTE_ARRAY, convertedtype=UTF8"`
	ArtistID string  `parquet:"name=artist_id, type=BYTE_ARRAY, convertedtype=UTF8"`
	Year     int32   `parquet:"name=year, type=INT32"`
	Duration float64 `parquet:"name=duration, type=DOUBLE"`
}

// ArtistRow is one row of the artists table. Latitude and longitude are
// optional because the catalog carries null coordinates for many artists.
type ArtistRow struct {
	ArtistID  string   `parquet:"name=artist_id, type=BYTE_ARRAY, convertedtype=UTF8"`
	Name      string   `parquet:"name=name, type=BYTE_ARRAY, convertedtype=UTF8"`
	Location  string   `parquet:"name=location, type=BYTE_ARRAY, convertedtype=UTF8"`
	Latitude  *float64 `parquet:"name=latitude, type=DOUBLE, repetitiontype=OPTIONAL"`
	Longitude *float64 `parquet:"name=longitude, type=DOUBLE, repetitiontype=OPTIONAL"`
}

// UserRow is one row of the users table. Distinct is applied on the full
// row, so a user seen at both "free" and "paid" keeps both rows.
type UserRow struct {
	UserID    string `parquet:"name=user_id, type=BYTE_ARRAY, convertedtype=UTF8"`
	FirstName string `parquet:"name=first_name, type=BYTE_ARRAY, convertedtype=UTF8"`
	LastName  string `parquet:"name=last_name, type=BYTE_ARRAY, convertedtype=UTF8"`
	Gender    string `parquet:"name=gender, type=BYTE_ARRAY, convertedtype=UTF8"`
	Level     string `parquet:"name=level, type=BYTE_ARRAY, convertedtype=UTF8"`
}

// TimeRow is one row of the time table, partitioned by (year, month).
// StartTime is epoch seconds as a float, exactly ts/1000.
type TimeRow struct {
	StartTime float64 `parquet:"name=start_time, type=DOUBLE"`
	Hour      int32   `parquet:"name=hour, type=INT32"`
	Day       int32   `parquet:"name=day, type=INT32"`
	Week      int32   `parquet:"name=week, type=INT32"`
	Month     int32   `parquet:"name=month, type=INT32"`
	Year      int32   `parquet:"name=year, type=INT32"`
	Weekday   int32   `parquet:"name=weekday, type=INT32"`
}

// SongplayRow is one row of the songplays table, partitioned by
// (year, month). No dedup: one row per matched log event.
type SongplayRow struct {
	SongplayID int64   `parquet:"name=songplay_id, type=INT64"`
	StartTime  float64 `parquet:"name=start_time, type=DOUBLE"`
	UserID     string  `parquet:"name=user_id, type=BYTE_ARRAY, convertedtype=UTF8"`
	Level      string  `parquet:"name=level, type=BYTE_ARRAY, convertedtype=UTF8"`
	SongID     string  `parquet:"name=song_id, type=BYTE_ARRAY, convertedtype=UTF8"`
	ArtistID   string  `parquet:"name=artist_id, type=BYTE_ARRAY, convertedtype=UTF8"`
	SessionID  int64   `parquet:"name=session_id, type=INT64"`
	Location   string  `parquet:"name=location, type=BYTE_ARRAY, convertedtype=UTF8"`
	UserAgent  string  `parquet:"name=user_agent, type=BYTE_ARRAY, convertedtype=UTF8"`
	Year       int32   `parquet:"name=year, type=INT32"`
	Month      int32   `parquet:"name=month, type=INT32"`
}
