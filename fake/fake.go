// Package fake generates synthetic song metadata and activity-log records
// shaped like the loader's inputs, for demos and tests that shouldn't
// depend on the real datasets.
package fake

import (
	"fmt"
	"time"
)

// Song is one song-metadata record.
type Song struct {
	NumSongs        int      `json:"num_songs"`
	ArtistID        string   `json:"artist_id"`
	ArtistLatitude  *float64 `json:"artist_latitude"`
	ArtistLongitude *float64 `json:"artist_longitude"`
	ArtistLocation  string   `json:"artist_location"`
	ArtistName      string   `json:"artist_name"`
	SongID          string   `json:"song_id"`
	Title           string   `json:"title"`
	Duration        float64  `json:"duration"`
	Year            int      `json:"year"`
}

// Event is one activity-log record.
type Event struct {
	Artist        string  `json:"artist"`
	Auth          string  `json:"auth"`
	FirstName     string  `json:"firstName"`
	Gender        string  `json:"gender"`
	ItemInSession int     `json:"itemInSession"`
	LastName      string  `json:"lastName"`
	Length        float64 `json:"length"`
	Level         string  `json:"level"`
	Location      string  `json:"location"`
	Method        string  `json:"method"`
	Page          string  `json:"page"`
	Registration  float64 `json:"registration"`
	SessionID     int     `json:"sessionId"`
	Song          string  `json:"song"`
	Status        int     `json:"status"`
	TS            int64   `json:"ts"`
	UserAgent     string  `json:"userAgent"`
	UserID        string  `json:"userId"`
}

var (
	titleWords = []string{
		"Midnight", "Silver", "Broken", "Electric", "Golden", "Lonely",
		"Summer", "Winter", "Neon", "Velvet", "Crimson", "Hollow",
		"River", "Train", "Mirror", "Window", "Garden", "Highway",
		"Lights", "Shadows", "Dreams", "Echoes", "Hearts", "Stars",
	}
	artistWords = []string{
		"The", "Royal", "Silent", "Glass", "Paper", "Iron", "Wild",
		"Foxes", "Wolves", "Orchestra", "Club", "Sisters", "Brothers",
		"Machine", "Parade", "Union", "Collective", "Quartet",
	}
	firstNames = []string{
		"Lily", "Jacob", "Sylvie", "Kaylee", "Maia", "Ryan", "Tegan",
		"Chloe", "Aleena", "Jacqueline", "Mohammad", "Kate", "Noah",
	}
	lastNames = []string{
		"Koch", "Klein", "Cruz", "Summers", "Burke", "Smith", "Levine",
		"Cuevas", "Kirby", "Lynch", "Rodriguez", "Harrell", "Chavez",
	}
	locations = []string{
		"San Francisco-Oakland-Hayward, CA",
		"Portland-South Portland, ME",
		"Chicago-Naperville-Elgin, IL-IN-WI",
		"Atlanta-Sandy Springs-Roswell, GA",
		"Lansing-East Lansing, MI",
		"Tampa-St. Petersburg-Clearwater, FL",
	}
	userAgents = []string{
		`"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_9_4) AppleWebKit/537.36"`,
		`"Mozilla/5.0 (Windows NT 6.1; WOW64) AppleWebKit/537.36"`,
		`Mozilla/5.0 (X11; Linux x86_64) Gecko/20100101 Firefox/31.0`,
	}
)

type user struct {
	id        string
	first     string
	last      string
	gender    string
	level     string
	location  string
	userAgent string
	reg       float64
	session   int
	item      int
}

// Dataset is a generated song catalog plus an activity log drawn against
// it. Most plays reference catalog songs so the loader's join finds
// matches; the rest use titles the catalog doesn't have.
type Dataset struct {
	Songs  []Song
	Events []Event

	g     *generator
	users []user
}

// NewDataset generates songs catalog entries and events plays from the
// given seed. The same seed gives the same dataset on a given version of
// Go.
func NewDataset(seed int64, songs, events int) *Dataset {
	d := &Dataset{
		g: newGenerator(seed, time.Date(2018, time.November, 1, 0, 0, 0, 0, time.UTC)),
	}
	d.genSongs(songs)
	d.genUsers(songs/4 + 2)
	d.genEvents(events)
	return d
}

func (d *Dataset) genSongs(n int) {
	// fewer artists than songs, so some artists have several songs
	artists := make([]Song, 0, n/2+1)
	for i := 0; i < n/2+1; i++ {
		a := Song{
			ArtistID:       d.g.id("AR"),
			ArtistName:     d.word(artistWords) + " " + d.word(artistWords),
			ArtistLocation: d.word(locations),
		}
		if d.g.r.Intn(3) > 0 {
			lat := float64(d.g.r.Intn(180000))/1000.0 - 90.0
			lon := float64(d.g.r.Intn(360000))/1000.0 - 180.0
			a.ArtistLatitude = &lat
			a.ArtistLongitude = &lon
		}
		artists = append(artists, a)
	}
	d.Songs = make([]Song, n)
	for i := range d.Songs {
		s := artists[d.g.r.Intn(len(artists))]
		s.NumSongs = 1
		s.SongID = d.g.id("SO")
		s.Title = d.word(titleWords) + " " + d.word(titleWords)
		s.Duration = 90.0 + float64(d.g.r.Intn(240000))/1000.0
		if d.g.r.Intn(5) > 0 {
			s.Year = 1960 + d.g.r.Intn(59)
		}
		d.Songs[i] = s
	}
}

func (d *Dataset) genUsers(n int) {
	d.users = make([]user, n)
	for i := range d.users {
		level := "free"
		if d.g.r.Intn(3) == 0 {
			level = "paid"
		}
		d.users[i] = user{
			id:        fmt.Sprintf("%d", d.g.r.Intn(300)+1),
			first:     d.word(firstNames),
			last:      d.word(lastNames),
			gender:    []string{"F", "M"}[d.g.r.Intn(2)],
			level:     level,
			location:  d.word(locations),
			userAgent: d.word(userAgents),
			reg:       1.540e12 + float64(d.g.r.Intn(1e9)),
			session:   d.g.r.Intn(1000),
		}
	}
}

func (d *Dataset) genEvents(n int) {
	d.Events = make([]Event, 0, n)
	for len(d.Events) < n {
		u := &d.users[d.g.pick(len(d.users))]
		ev := Event{
			Auth:          "Logged In",
			FirstName:     u.first,
			Gender:        u.gender,
			ItemInSession: u.item,
			LastName:      u.last,
			Level:         u.level,
			Location:      u.location,
			Method:        "PUT",
			Page:          "NextSong",
			Registration:  u.reg,
			SessionID:     u.session,
			Status:        200,
			TS:            d.g.next(90*time.Second).UnixNano() / int64(time.Millisecond),
			UserAgent:     u.userAgent,
			UserID:        u.id,
		}
		u.item++
		switch d.g.r.Intn(8) {
		case 0:
			// page views the loader filters out
			ev.Page = "Home"
			ev.Method = "GET"
			u.session = d.g.r.Intn(1000)
			u.item = 0
		case 1:
			// a play of something the catalog doesn't know
			ev.Artist = d.word(artistWords) + " " + d.word(artistWords)
			ev.Song = d.word(titleWords) + " " + d.word(titleWords) + " " + d.word(titleWords)
			ev.Length = 90.0 + float64(d.g.r.Intn(240000))/1000.0
		default:
			s := d.Songs[d.g.pick(len(d.Songs))]
			ev.Artist = s.ArtistName
			ev.Song = s.Title
			ev.Length = s.Duration
		}
		d.Events = append(d.Events, ev)
	}
}

func (d *Dataset) word(from []string) string {
	return from[d.g.r.Intn(len(from))]
}
