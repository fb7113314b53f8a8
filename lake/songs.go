package lake

import (
	"log"

	"github.com/pkg/errors"

	"github.com/soundlake/soundlake"
)

// catalogView is the name the raw song dataset is registered under for the
// event log stage's join.
const catalogView = "song_catalog"

// SongSchema is the fixed schema applied to song-metadata records.
// Nullability mirrors the source contract; it is not enforced on read.
var SongSchema = soundlake.Schema{
	{Name: "artist_id", Type: soundlake.String},
	{Name: "artist_latitude", Type: soundlake.Double, Nullable: true},
	{Name: "artist_location", Type: soundlake.String, Nullable: true},
	{Name: "artist_longitude", Type: soundlake.Double, Nullable: true},
	{Name: "artist_name", Type: soundlake.String, Nullable: true},
	{Name: "duration", Type: soundlake.Double, Nullable: true},
	{Name: "num_songs", Type: soundlake.Int, Nullable: true},
	{Name: "song_id", Type: soundlake.String},
	{Name: "title", Type: soundlake.String},
	{Name: "year", Type: soundlake.Int},
}

// LoadSongCatalog reads the song-metadata tree, writes the songs and
// artists dimension tables, and registers the raw dataset as the catalog
// view.
func (j *Job) LoadSongCatalog() error {
	src, err := j.open("song_data/*/*/*/*")
	if err != nil {
		return errors.Wrap(err, "opening song data source")
	}
	raw, err := j.readFrame(src, SongSchema)
	if err != nil {
		return errors.Wrap(err, "reading song data")
	}
	log.Printf("song catalog: %d records", raw.Len())

	songCols := []string{"song_id", "title", "artist_id", "year", "duration"}
	songs, err := raw.Select(songCols...)
	if err != nil {
		return errors.Wrap(err, "projecting songs")
	}
	songsSchema, err := SongSchema.Select(songCols...)
	if err != nil {
		return errors.Wrap(err, "projecting songs schema")
	}
	if err := j.writeTable("songs_table", songsSchema, songs.DropDuplicates(), "year", "artist_id"); err != nil {
		return err
	}

	artistCols := []string{"artist_id", "artist_name", "artist_location", "artist_latitude", "artist_longitude"}
	artists, err := raw.Select(artistCols...)
	if err != nil {
		return errors.Wrap(err, "projecting artists")
	}
	artistsSchema, err := SongSchema.Select(artistCols...)
	if err != nil {
		return errors.Wrap(err, "projecting artists schema")
	}
	if err := j.writeTable("artists_table", artistsSchema, artists.DropDuplicates()); err != nil {
		return err
	}

	j.views.Register(catalogView, raw)
	return nil
}
