package lake

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/soundlake/soundlake"
	"github.com/soundlake/soundlake/parquet"
)

func mustWriteFile(t *testing.T, root, name, contents string) {
	t.Helper()
	full := filepath.Join(root, name)
	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		t.Fatalf("making dirs: %v", err)
	}
	if err := ioutil.WriteFile(full, []byte(contents), 0644); err != nil {
		t.Fatalf("writing file: %v", err)
	}
}

func writeFixtures(t *testing.T, in string) {
	t.Helper()
	mustWriteFile(t, in, "song_data/A/A/A/TRAAAAW128F429D538.json",
		`{"num_songs": 1, "artist_id": "AR5KOSW1187FB35FF4", "artist_latitude": 49.80388, "artist_longitude": 15.47491, "artist_location": "Dubai UAE", "artist_name": "Elena", "song_id": "SOZCTXZ12AB0182364", "title": "Setanta matins", "duration": 269.58447, "year": 0}`)
	// same song again with a different unselected column, plus a second song
	mustWriteFile(t, in, "song_data/A/B/C/TRABCEI128F424C983.json",
		`{"num_songs": 2, "artist_id": "AR5KOSW1187FB35FF4", "artist_latitude": 49.80388, "artist_longitude": 15.47491, "artist_location": "Dubai UAE", "artist_name": "Elena", "song_id": "SOZCTXZ12AB0182364", "title": "Setanta matins", "duration": 269.58447, "year": 0}
{"num_songs": 1, "artist_id": "ARJIE2Y1187B994AB7", "artist_latitude": null, "artist_longitude": null, "artist_location": "", "artist_name": "Line Renaud", "song_id": "SOUPIRU12A6D4FA1E1", "title": "Der Kleine Dompfaff", "duration": 152.92036, "year": 0}`)

	matched := `{"artist": "Elena", "auth": "Logged In", "firstName": "Lily", "gender": "F", "itemInSession": 5, "lastName": "Koch", "length": 269.58447, "level": "paid", "location": "Chicago-Naperville-Elgin, IL-IN-WI", "method": "PUT", "page": "NextSong", "registration": 1541048010796.0, "sessionId": 583, "song": "Setanta matins", "status": 200, "ts": 1541121934796, "userAgent": "mozilla", "userId": "15"}`
	mustWriteFile(t, in, "log_data/2018/11/2018-11-01-events.json",
		matched+"\n"+
			`{"artist": null, "auth": "Logged In", "firstName": "Lily", "gender": "F", "itemInSession": 6, "lastName": "Koch", "length": null, "level": "paid", "location": "Chicago-Naperville-Elgin, IL-IN-WI", "method": "GET", "page": "Home", "registration": 1541048010796.0, "sessionId": 583, "song": null, "status": 200, "ts": 1541121984796, "userAgent": "mozilla", "userId": "15"}`)
	// the matched event duplicated in another file, and an unmatched play
	mustWriteFile(t, in, "log_data/2018/11/2018-11-21-events.json",
		matched+"\n"+
			`{"artist": "Nobody", "auth": "Logged In", "firstName": "Ryan", "gender": "M", "itemInSession": 0, "lastName": "Smith", "length": 100.5, "level": "free", "location": "San Jose-Sunnyvale-Santa Clara, CA", "method": "PUT", "page": "NextSong", "registration": 1541016707796.0, "sessionId": 584, "song": "Unknown Tune", "status": 200, "ts": 1542837407796, "userAgent": "mozilla", "userId": "26"}`)
}

func readTable(t *testing.T, out, name string) []soundlake.Row {
	t.Helper()
	rows, err := parquet.ReadTable(filepath.Join(out, name))
	if err != nil {
		t.Fatalf("reading %s: %v", name, err)
	}
	return rows
}

func TestMainRun(t *testing.T) {
	tmp, err := ioutil.TempDir("", "laketest")
	if err != nil {
		t.Fatal("getting temp dir")
	}
	defer os.RemoveAll(tmp)
	in := filepath.Join(tmp, "in")
	out := filepath.Join(tmp, "out")
	writeFixtures(t, in)

	m := NewMain()
	m.InputRoot = in
	m.OutputRoot = out
	m.ManifestPath = filepath.Join(tmp, "runs.db")
	if err := m.Run(); err != nil {
		t.Fatalf("running: %v", err)
	}

	songs := readTable(t, out, "songs_table")
	if len(songs) != 2 {
		t.Fatalf("expected 2 deduplicated songs, got %d: %v", len(songs), songs)
	}
	if _, err := os.Stat(filepath.Join(out, "songs_table", "year=0", "artist_id=AR5KOSW1187FB35FF4")); err != nil {
		t.Fatalf("missing songs partition: %v", err)
	}

	artists := readTable(t, out, "artists_table")
	if len(artists) != 2 {
		t.Fatalf("expected 2 deduplicated artists, got %d", len(artists))
	}

	users := readTable(t, out, "users_table")
	if len(users) != 2 {
		t.Fatalf("expected 2 users, got %d: %v", len(users), users)
	}
	byUser := map[string]soundlake.Row{}
	for _, r := range users {
		byUser[r["user_id"].(string)] = r
	}
	if byUser["15"]["level"] != "paid" || byUser["15"]["first_name"] != "Lily" {
		t.Fatalf("unexpected user 15: %v", byUser["15"])
	}

	times := readTable(t, out, "time_table")
	if len(times) != 2 {
		t.Fatalf("expected 2 distinct start times, got %d", len(times))
	}
	byStart := map[int64]soundlake.Row{}
	for _, r := range times {
		byStart[r["start_time"].(int64)] = r
	}
	r, ok := byStart[1541121934796]
	if !ok {
		t.Fatalf("missing time row for 1541121934796: %v", times)
	}
	if r["year"] != int64(2018) || r["month"] != int64(11) || r["day"] != int64(1) || r["hour"] != int64(21) {
		t.Fatalf("wrong time decomposition: %v", r)
	}
	if r["week"] != int64(44) || r["weekday"] != int64(5) {
		t.Fatalf("wrong week fields: %v", r)
	}

	plays := readTable(t, out, "songplays_table")
	if len(plays) != 2 {
		t.Fatalf("expected 2 songplays (duplicate event dropped), got %d: %v", len(plays), plays)
	}
	bySession := map[int64]soundlake.Row{}
	ids := map[int64]struct{}{}
	for _, r := range plays {
		bySession[r["session_id"].(int64)] = r
		ids[r["songplay_id"].(int64)] = struct{}{}
	}
	if len(ids) != 2 {
		t.Fatalf("songplay ids not unique: %v", ids)
	}
	matched := bySession[583]
	if matched["song_id"] != "SOZCTXZ12AB0182364" || matched["artist_id"] != "AR5KOSW1187FB35FF4" {
		t.Fatalf("matched play missing catalog keys: %v", matched)
	}
	if matched["start_time"] != int64(1541121934796) || matched["user_id"] != "15" {
		t.Fatalf("unexpected matched play: %v", matched)
	}
	unmatched := bySession[584]
	if unmatched["song_id"] != nil || unmatched["artist_id"] != nil {
		t.Fatalf("unmatched play should have null keys: %v", unmatched)
	}
	if unmatched["user_agent"] != "mozilla" || unmatched["level"] != "free" {
		t.Fatalf("unmatched play lost event fields: %v", unmatched)
	}
	if unmatched["year"] != int64(2018) || unmatched["month"] != int64(11) {
		t.Fatalf("wrong songplay partition values: %v", unmatched)
	}

	man, err := OpenManifest(m.ManifestPath)
	if err != nil {
		t.Fatalf("opening manifest: %v", err)
	}
	defer man.Close()
	runs, err := man.Runs()
	if err != nil || len(runs) != 1 {
		t.Fatalf("expected 1 recorded run, got %v, %v", runs, err)
	}
	tables, err := man.Tables(runs[0])
	if err != nil {
		t.Fatalf("getting manifest tables: %v", err)
	}
	if len(tables) != 5 {
		t.Fatalf("expected 5 recorded tables, got %v", tables)
	}
	if tables["songplays_table"].Rows != 2 {
		t.Fatalf("wrong recorded row count: %+v", tables["songplays_table"])
	}
}

func TestLoadCredentials(t *testing.T) {
	tmp, err := ioutil.TempDir("", "credstest")
	if err != nil {
		t.Fatal("getting temp dir")
	}
	defer os.RemoveAll(tmp)

	creds, err := loadCredentials("")
	if err != nil || creds != nil {
		t.Fatalf("empty path should mean default chain, got %v, %v", creds, err)
	}

	path := filepath.Join(tmp, "dl.toml")
	if err := ioutil.WriteFile(path, []byte("[aws]\naccess_key_id = \"AKIATEST\"\nsecret_access_key = \"sekrit\"\n"), 0600); err != nil {
		t.Fatalf("writing creds file: %v", err)
	}
	creds, err = loadCredentials(path)
	if err != nil {
		t.Fatalf("loading credentials: %v", err)
	}
	val, err := creds.Get()
	if err != nil {
		t.Fatalf("getting credentials: %v", err)
	}
	if val.AccessKeyID != "AKIATEST" || val.SecretAccessKey != "sekrit" {
		t.Fatalf("wrong credentials: %+v", val)
	}

	bad := filepath.Join(tmp, "bad.toml")
	if err := ioutil.WriteFile(bad, []byte("[aws]\naccess_key_id = \"AKIATEST\"\n"), 0600); err != nil {
		t.Fatalf("writing creds file: %v", err)
	}
	if _, err := loadCredentials(bad); err == nil {
		t.Fatal("expected error for incomplete credentials file")
	}
}

func TestSongplayIDs(t *testing.T) {
	hashed := &Job{hashIDs: true}
	row := soundlake.Row{
		"start_time": startTime(1541121934796),
		"userId":     "15",
		"sessionId":  int64(583),
	}
	a := hashed.songplayID(row).(int64)
	b := hashed.songplayID(row).(int64)
	if a != b {
		t.Fatalf("hashed ids not stable: %d vs %d", a, b)
	}
	other := soundlake.Row{
		"start_time": startTime(1541121934796),
		"userId":     "15",
		"sessionId":  int64(584),
	}
	if c := hashed.songplayID(other).(int64); c == a {
		t.Fatalf("different natural keys hashed to same id: %d", c)
	}

	counted := &Job{nexter: soundlake.NewNexter()}
	if id := counted.songplayID(row).(int64); id != 0 {
		t.Fatalf("expected first counter id 0, got %d", id)
	}
	if id := counted.songplayID(row).(int64); id != 1 {
		t.Fatalf("expected second counter id 1, got %d", id)
	}
}
