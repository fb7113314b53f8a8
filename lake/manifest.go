package lake

import (
	"encoding/json"
	"time"

	"github.com/boltdb/bolt"
	"github.com/pkg/errors"
)

// Manifest is a bolt-backed record of what each run wrote: one bucket per
// run id, one entry per table.
type Manifest struct {
	db *bolt.DB
}

// TableEntry describes one table written during a run.
type TableEntry struct {
	Rows      int       `json:"rows"`
	Path      string    `json:"path"`
	ElapsedMS int64     `json:"elapsed_ms"`
	WrittenAt time.Time `json:"written_at"`
}

// OpenManifest opens (creating if needed) the manifest database at path.
func OpenManifest(path string) (*Manifest, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, errors.Wrap(err, "opening bolt db")
	}
	return &Manifest{db: db}, nil
}

// RecordTable records a table written by the given run.
func (m *Manifest) RecordTable(run, table string, e TableEntry) error {
	return m.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(run))
		if err != nil {
			return errors.Wrap(err, "creating run bucket")
		}
		buf, err := json.Marshal(e)
		if err != nil {
			return errors.Wrap(err, "marshaling entry")
		}
		return errors.Wrap(b.Put([]byte(table), buf), "putting entry")
	})
}

// Tables returns everything recorded for a run, keyed by table name.
func (m *Manifest) Tables(run string) (map[string]TableEntry, error) {
	out := map[string]TableEntry{}
	err := m.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(run))
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, v []byte) error {
			var e TableEntry
			if err := json.Unmarshal(v, &e); err != nil {
				return errors.Wrapf(err, "unmarshaling entry %s", k)
			}
			out[string(k)] = e
			return nil
		})
	})
	return out, err
}

// Runs returns the recorded run ids in key order.
func (m *Manifest) Runs() ([]string, error) {
	runs := []string{}
	err := m.db.View(func(tx *bolt.Tx) error {
		return tx.ForEach(func(name []byte, _ *bolt.Bucket) error {
			runs = append(runs, string(name))
			return nil
		})
	})
	return runs, err
}

// Close closes the underlying database.
func (m *Manifest) Close() error {
	return errors.Wrap(m.db.Close(), "closing bolt db")
}
