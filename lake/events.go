package lake

import (
	"hash/fnv"
	"log"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"github.com/soundlake/soundlake"
)

// LogSchema is the fixed schema applied to activity-log records.
var LogSchema = soundlake.Schema{
	{Name: "artist", Type: soundlake.String},
	{Name: "auth", Type: soundlake.String, Nullable: true},
	{Name: "firstName", Type: soundlake.String, Nullable: true},
	{Name: "gender", Type: soundlake.String, Nullable: true},
	{Name: "itemInSession", Type: soundlake.Int, Nullable: true},
	{Name: "lastName", Type: soundlake.String, Nullable: true},
	{Name: "length", Type: soundlake.Double, Nullable: true},
	{Name: "level", Type: soundlake.String},
	{Name: "location", Type: soundlake.String},
	{Name: "method", Type: soundlake.String, Nullable: true},
	{Name: "page", Type: soundlake.String, Nullable: true},
	{Name: "registration", Type: soundlake.Double, Nullable: true},
	{Name: "sessionId", Type: soundlake.Int},
	{Name: "song", Type: soundlake.String, Nullable: true},
	{Name: "status", Type: soundlake.Int, Nullable: true},
	{Name: "ts", Type: soundlake.Long},
	{Name: "userAgent", Type: soundlake.String},
	{Name: "userId", Type: soundlake.String},
}

var userSchema = soundlake.Schema{
	{Name: "user_id", Type: soundlake.String},
	{Name: "first_name", Type: soundlake.String, Nullable: true},
	{Name: "last_name", Type: soundlake.String, Nullable: true},
	{Name: "gender", Type: soundlake.String, Nullable: true},
	{Name: "level", Type: soundlake.String},
}

var timeSchema = soundlake.Schema{
	{Name: "start_time", Type: soundlake.Timestamp},
	{Name: "hour", Type: soundlake.Int},
	{Name: "day", Type: soundlake.Int},
	{Name: "week", Type: soundlake.Int},
	{Name: "month", Type: soundlake.Int},
	{Name: "year", Type: soundlake.Int},
	{Name: "weekday", Type: soundlake.Int},
}

var songplaySchema = soundlake.Schema{
	{Name: "songplay_id", Type: soundlake.Long},
	{Name: "start_time", Type: soundlake.Timestamp},
	{Name: "user_id", Type: soundlake.String},
	{Name: "level", Type: soundlake.String},
	{Name: "song_id", Type: soundlake.String, Nullable: true},
	{Name: "artist_id", Type: soundlake.String, Nullable: true},
	{Name: "session_id", Type: soundlake.Int},
	{Name: "location", Type: soundlake.String},
	{Name: "user_agent", Type: soundlake.String},
	{Name: "year", Type: soundlake.Int},
	{Name: "month", Type: soundlake.Int},
}

// LoadEventLog reads the activity-log tree, writes the users and time
// dimension tables, and joins against the catalog view to write the
// songplays fact table. LoadSongCatalog must have run first.
func (j *Job) LoadEventLog() error {
	src, err := j.open("log_data/*/*/*")
	if err != nil {
		return errors.Wrap(err, "opening log data source")
	}
	raw, err := j.readFrame(src, LogSchema)
	if err != nil {
		return errors.Wrap(err, "reading log data")
	}

	// "NextSong" page actions are the operative definition of a song play.
	plays := raw.Filter(func(r soundlake.Row) bool {
		return r["page"] == "NextSong"
	})
	log.Printf("event log: %d records, %d song plays", raw.Len(), plays.Len())

	if err := j.loadUsers(plays); err != nil {
		return err
	}

	withStart := plays.WithColumn("start_time", func(r soundlake.Row) interface{} {
		ms, ok := r["ts"].(int64)
		if !ok {
			return nil
		}
		return startTime(ms)
	})

	if err := j.loadTime(withStart); err != nil {
		return err
	}
	return j.loadSongplays(withStart)
}

func (j *Job) loadUsers(plays *soundlake.Frame) error {
	users, err := plays.Select("userId", "firstName", "lastName", "gender", "level")
	if err != nil {
		return errors.Wrap(err, "projecting users")
	}
	for _, r := range [][2]string{
		{"userId", "user_id"},
		{"firstName", "first_name"},
		{"lastName", "last_name"},
	} {
		if users, err = users.Rename(r[0], r[1]); err != nil {
			return errors.Wrap(err, "renaming user columns")
		}
	}
	return j.writeTable("users_table", userSchema, users.DropDuplicates())
}

func (j *Job) loadTime(withStart *soundlake.Frame) error {
	timeFrame := withStart
	for _, d := range []struct {
		col string
		fn  func(t time.Time) int64
	}{
		{"hour", func(t time.Time) int64 { return int64(t.Hour()) }},
		{"day", func(t time.Time) int64 { return int64(t.Day()) }},
		{"week", weekOfYear},
		{"month", func(t time.Time) int64 { return int64(t.Month()) }},
		{"year", func(t time.Time) int64 { return int64(t.Year()) }},
		{"weekday", dayOfWeek},
	} {
		fn := d.fn
		timeFrame = timeFrame.WithColumn(d.col, func(r soundlake.Row) interface{} {
			t, ok := r["start_time"].(time.Time)
			if !ok {
				return nil
			}
			return fn(t)
		})
	}
	timeFrame, err := timeFrame.Select(timeSchema.Columns()...)
	if err != nil {
		return errors.Wrap(err, "projecting time table")
	}
	// every derived field is a function of start_time, so deduplicating on
	// it deduplicates the whole row
	timeFrame = timeFrame.DropDuplicates("start_time")
	return j.writeTable("time_table", timeSchema, timeFrame, "year", "month")
}

func (j *Job) loadSongplays(withStart *soundlake.Frame) error {
	catalog, err := j.views.Get(catalogView)
	if err != nil {
		return errors.Wrap(err, "getting catalog view")
	}
	songCat, err := catalog.Select("song_id", "title", "artist_id", "artist_name", "duration")
	if err != nil {
		return errors.Wrap(err, "projecting catalog")
	}
	songCat = songCat.DropDuplicates()

	joined, err := withStart.LeftJoin(songCat, []soundlake.JoinKey{
		{Left: "song", Right: "title"},
		{Left: "artist", Right: "artist_name"},
		{Left: "length", Right: "duration"},
	})
	if err != nil {
		return errors.Wrap(err, "joining events against catalog")
	}
	joined = joined.DropDuplicates()

	plays := joined.WithColumn("songplay_id", j.songplayID)
	plays = plays.WithColumn("year", func(r soundlake.Row) interface{} {
		t, ok := r["start_time"].(time.Time)
		if !ok {
			return nil
		}
		return int64(t.Year())
	})
	plays = plays.WithColumn("month", func(r soundlake.Row) interface{} {
		t, ok := r["start_time"].(time.Time)
		if !ok {
			return nil
		}
		return int64(t.Month())
	})

	plays, err = plays.Select("songplay_id", "start_time", "userId", "level",
		"song_id", "artist_id", "sessionId", "location", "userAgent", "year", "month")
	if err != nil {
		return errors.Wrap(err, "projecting songplays")
	}
	for _, r := range [][2]string{
		{"userId", "user_id"},
		{"sessionId", "session_id"},
		{"userAgent", "user_agent"},
	} {
		if plays, err = plays.Rename(r[0], r[1]); err != nil {
			return errors.Wrap(err, "renaming songplay columns")
		}
	}
	return j.writeTable("songplays_table", songplaySchema, plays, "year", "month")
}

// songplayID assigns the synthetic fact row identifier: a per-run
// monotonic counter by default, or a content hash of the natural key
// (start_time, user_id, session_id) when stable ids are requested.
func (j *Job) songplayID(r soundlake.Row) interface{} {
	if !j.hashIDs {
		return int64(j.nexter.Next())
	}
	h := fnv.New64a()
	if t, ok := r["start_time"].(time.Time); ok {
		h.Write([]byte(strconv.FormatInt(t.UnixNano(), 10)))
	}
	h.Write([]byte{'|'})
	if u, ok := r["userId"].(string); ok {
		h.Write([]byte(u))
	}
	h.Write([]byte{'|'})
	if s, ok := r["sessionId"].(int64); ok {
		h.Write([]byte(strconv.FormatInt(s, 10)))
	}
	return int64(h.Sum64())
}
