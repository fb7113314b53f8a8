package lake

import (
	"io"
	"io/ioutil"
	"log"
	"os"
	"time"

	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"github.com/soundlake/soundlake"
	awss3 "github.com/soundlake/soundlake/aws/s3"
	"github.com/soundlake/soundlake/file"
	"github.com/soundlake/soundlake/parquet"
	"github.com/soundlake/soundlake/termstat"
)

// Main contains the configuration for the full star-schema load: the song
// catalog stage followed by the event log stage.
type Main struct {
	InputRoot    string `help:"Root under which the song_data/ and log_data/ trees are found. Local path or s3:// URL."`
	OutputRoot   string `help:"Root under which the five output tables are written. Local path or s3:// URL."`
	Region       string `help:"AWS region for S3 roots."`
	CredsFile    string `help:"TOML file with aws.access_key_id and aws.secret_access_key. Empty uses the SDK's default chain."`
	ManifestPath string `help:"Bolt database file recording per-run table stats. Empty disables the manifest."`
	HashIDs      bool   `flag:"hash-ids" help:"Derive songplay_id from a hash of (start_time, user_id, session_id) instead of a per-run counter, making ids stable across reruns."`
	BufSize      int    `help:"Number of records to buffer between reading and transforming."`
}

// NewMain gets a new Main with the default configuration.
func NewMain() *Main {
	return &Main{
		InputRoot:    "s3://udacity-dend/",
		OutputRoot:   "s3://soundlake-tables/",
		Region:       "us-west-2",
		ManifestPath: "soundlake-runs.db",
		BufSize:      1000,
	}
}

// Run runs both loader stages in order against one shared Job context. The
// song catalog must load first; the event log stage joins against the view
// it registers. Any stage error aborts the run.
func (m *Main) Run() error {
	creds, err := loadCredentials(m.CredsFile)
	if err != nil {
		return errors.Wrap(err, "loading credentials")
	}
	job, err := m.job(creds)
	if err != nil {
		return err
	}
	if job.man != nil {
		defer job.man.Close()
	}

	if err := job.LoadSongCatalog(); err != nil {
		return errors.Wrap(err, "loading song catalog")
	}
	if err := job.LoadEventLog(); err != nil {
		return errors.Wrap(err, "loading event log")
	}
	return nil
}

// Job is the execution context shared by the two loader stages: the view
// registry, the id generator, the record sources, and the table publisher.
type Job struct {
	views   *soundlake.Views
	nexter  *soundlake.Nexter
	hashIDs bool
	bufSize int

	open  func(glob string) (soundlake.Source, error)
	pub   publisher
	man   *Manifest
	stats *termstat.Collector
	runID string
}

func (m *Main) job(creds *credentials.Credentials) (*Job, error) {
	j := &Job{
		views:   soundlake.NewViews(),
		nexter:  soundlake.NewNexter(),
		hashIDs: m.HashIDs,
		bufSize: m.BufSize,
		stats:   termstat.NewCollector(os.Stderr),
		runID:   time.Now().UTC().Format(time.RFC3339),
	}
	j.open = func(glob string) (soundlake.Source, error) {
		if bucket, prefix, ok := awss3.ParseURL(m.InputRoot); ok {
			return awss3.NewSource(
				awss3.OptSrcRegion(m.Region),
				awss3.OptSrcBucket(bucket),
				awss3.OptSrcGlob(awss3.JoinPrefix(prefix, glob)),
				awss3.OptSrcCredentials(creds),
				awss3.OptSrcBufSize(j.bufSize),
			)
		}
		return file.NewSource(
			file.OptSrcRoot(m.InputRoot),
			file.OptSrcGlob(glob),
			file.OptSrcBufSize(j.bufSize),
		)
	}

	if bucket, prefix, ok := awss3.ParseURL(m.OutputRoot); ok {
		sink, err := awss3.NewSink(m.Region, bucket, creds)
		if err != nil {
			return nil, errors.Wrap(err, "getting s3 sink")
		}
		j.pub = &s3Publisher{sink: sink, bucket: bucket, prefix: prefix}
	} else {
		if err := os.MkdirAll(m.OutputRoot, 0755); err != nil {
			return nil, errors.Wrap(err, "making output root")
		}
		j.pub = &localPublisher{root: m.OutputRoot}
	}

	if m.ManifestPath != "" {
		man, err := OpenManifest(m.ManifestPath)
		if err != nil {
			return nil, errors.Wrap(err, "opening manifest")
		}
		j.man = man
	}
	return j, nil
}

// writeTable publishes a table and records it in the run manifest.
func (j *Job) writeTable(name string, schema soundlake.Schema, f *soundlake.Frame, partitionBy ...string) error {
	start := time.Now()
	path, err := j.pub.Publish(name, schema, f, partitionBy...)
	if err != nil {
		return errors.Wrapf(err, "publishing %s", name)
	}
	elapsed := time.Since(start)
	log.Printf("wrote %s: %d rows to %s in %v", name, f.Len(), path, elapsed)
	if j.man == nil {
		return nil
	}
	err = j.man.RecordTable(j.runID, name, TableEntry{
		Rows:      f.Len(),
		Path:      path,
		ElapsedMS: int64(elapsed / time.Millisecond),
		WrittenAt: start.UTC(),
	})
	return errors.Wrapf(err, "recording %s in manifest", name)
}

// readFrame pulls every record from a source through a schema into a frame.
// Records the schema cannot coerce are logged and skipped.
func (j *Job) readFrame(src soundlake.Source, schema soundlake.Schema) (*soundlake.Frame, error) {
	f := soundlake.NewFrame(schema.Columns()...)
	for {
		rec, err := src.Record()
		if err == io.EOF {
			return f, nil
		}
		if err != nil {
			return nil, errors.Wrap(err, "reading record")
		}
		j.stats.Count("records", 1)
		row, err := schema.Row(rec)
		if err != nil {
			j.stats.Count("skipped", 1)
			log.Printf("skipping malformed record: %v", err)
			continue
		}
		f.Append(row)
	}
}

// publisher writes one table's worth of rows under the output root with
// overwrite semantics.
type publisher interface {
	Publish(table string, schema soundlake.Schema, f *soundlake.Frame, partitionBy ...string) (string, error)
}

type localPublisher struct {
	root string
}

func (p *localPublisher) Publish(table string, schema soundlake.Schema, f *soundlake.Frame, partitionBy ...string) (string, error) {
	return parquet.WriteTable(p.root, table, schema, f, partitionBy...)
}

// s3Publisher stages the table locally, then replaces the table's key
// prefix in the bucket with the staged tree.
type s3Publisher struct {
	sink   *awss3.Sink
	bucket string
	prefix string
}

func (p *s3Publisher) Publish(table string, schema soundlake.Schema, f *soundlake.Frame, partitionBy ...string) (string, error) {
	dir, err := ioutil.TempDir("", "soundlake-"+table)
	if err != nil {
		return "", errors.Wrap(err, "getting staging dir")
	}
	defer os.RemoveAll(dir)
	if err := parquet.WriteDir(dir, schema, f, partitionBy...); err != nil {
		return "", errors.Wrap(err, "staging table")
	}
	key := awss3.JoinPrefix(p.prefix, table)
	if err := p.sink.DeletePrefix(key + "/"); err != nil {
		return "", errors.Wrap(err, "clearing previous table")
	}
	if err := p.sink.UploadDir(dir, key); err != nil {
		return "", errors.Wrap(err, "uploading table")
	}
	return "s3://" + p.bucket + "/" + key, nil
}

// loadCredentials reads explicit storage credentials from a TOML file and
// returns them for injection into the session constructors. A nil return
// with nil error means the SDK's default chain should be used.
func loadCredentials(path string) (*credentials.Credentials, error) {
	if path == "" {
		return nil, nil
	}
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrap(err, "reading credentials file")
	}
	id := v.GetString("aws.access_key_id")
	secret := v.GetString("aws.secret_access_key")
	if id == "" || secret == "" {
		return nil, errors.Errorf("%s must set aws.access_key_id and aws.secret_access_key", path)
	}
	return credentials.NewStaticCredentials(id, secret, ""), nil
}
