package s3

import (
	"io"
	"path"
	"strings"
	"sync/atomic"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/pkg/errors"

	"github.com/soundlake/soundlake"
	"github.com/soundlake/soundlake/avro"
	"github.com/soundlake/soundlake/json"
)

// ParseURL splits an s3:// or s3a:// URL into bucket and key prefix. ok is
// false if the URL is not an S3 one.
func ParseURL(url string) (bucket, prefix string, ok bool) {
	rest := ""
	switch {
	case strings.HasPrefix(url, "s3://"):
		rest = strings.TrimPrefix(url, "s3://")
	case strings.HasPrefix(url, "s3a://"):
		rest = strings.TrimPrefix(url, "s3a://")
	case strings.HasPrefix(url, "s3n://"):
		rest = strings.TrimPrefix(url, "s3n://")
	default:
		return "", "", false
	}
	parts := strings.SplitN(rest, "/", 2)
	bucket = parts[0]
	if bucket == "" {
		return "", "", false
	}
	if len(parts) == 2 {
		prefix = parts[1]
	}
	return bucket, prefix, true
}

// SrcOption is a functional option type for s3.Source.
type SrcOption func(s *Source)

// OptSrcBucket is a SrcOption which sets the S3 bucket for a Source.
func OptSrcBucket(bucket string) SrcOption {
	return func(s *Source) {
		s.bucket = bucket
	}
}

// OptSrcRegion is a SrcOption which sets the AWS region for a Source.
func OptSrcRegion(region string) SrcOption {
	return func(s *Source) {
		s.region = region
	}
}

// OptSrcGlob is a SrcOption which sets the glob pattern object keys must
// match, relative to the bucket root (including any fixed prefix, e.g.
// "data/song_data/*/*/*/*.json"). A '*' does not cross '/' boundaries.
func OptSrcGlob(pattern string) SrcOption {
	return func(s *Source) {
		s.glob = pattern
	}
}

// OptSrcCredentials is a SrcOption which sets explicit credentials for a
// Source. Without it the SDK's default chain is used.
func OptSrcCredentials(creds *credentials.Credentials) SrcOption {
	return func(s *Source) {
		s.creds = creds
	}
}

// OptSrcBufSize sets the number of records to buffer while waiting for
// Record to be called.
func OptSrcBufSize(bufsize int) SrcOption {
	return func(s *Source) {
		s.records = make(chan record, bufsize)
	}
}

// Source is a soundlake.Source which reads records from objects in an S3
// bucket. Objects with keys ending in ".avro" are decoded as Avro object
// container files, everything else as streams of json objects.
type Source struct {
	bucket string
	glob   string
	region string
	creds  *credentials.Credentials

	rs      *RawSource
	records chan record
}

type record struct {
	data map[string]interface{}
	err  error
}

// NewSource returns a new Source with the options applied.
func NewSource(opts ...SrcOption) (*Source, error) {
	s := &Source{
		glob:    "*",
		records: make(chan record, 100),
	}
	for _, opt := range opts {
		opt(s)
	}
	var err error
	s.rs, err = NewRawSource(s.region, s.bucket, s.glob, s.creds)
	if err != nil {
		return nil, errors.Wrap(err, "getting raw s3 source")
	}
	go s.run()
	return s, nil
}

func (s *Source) run() {
	reader, err := s.rs.NextReader()
	for ; err == nil; reader, err = s.rs.NextReader() {
		var src soundlake.Source
		if strings.HasSuffix(reader.Name(), ".avro") {
			src, err = avro.NewSource(reader)
			if err != nil {
				s.records <- record{err: errors.Wrapf(err, "opening %s", reader.Name())}
				reader.Close()
				err = nil
				continue
			}
		} else {
			src = json.NewSource(reader)
		}
		for {
			rec, rerr := src.Record()
			if rerr == io.EOF {
				reader.Close()
				break
			}
			if rerr != nil {
				s.records <- record{err: errors.Wrapf(rerr, "decoding %s", reader.Name())}
				reader.Close()
				break
			}
			s.records <- record{data: rec}
		}
	}
	if err != io.EOF {
		s.records <- record{err: errors.Wrap(err, "getting next object")}
	}
	close(s.records)
}

// Record returns the next record from the current object in the bucket, or
// moves on to the next object.
func (s *Source) Record() (map[string]interface{}, error) {
	rec, ok := <-s.records
	if !ok {
		return nil, io.EOF
	}
	return rec.data, rec.err
}

// RawSource hands out a reader per S3 object whose key matches a glob
// pattern.
type RawSource struct {
	bucket string
	glob   string
	region string

	s3      *s3.S3
	sess    *session.Session
	objects []string
	objIdx  *uint64
}

// NewRawSource lists the objects in the bucket matching pattern and returns
// a RawSource over them. creds may be nil to use the SDK's default chain.
func NewRawSource(region, bucket, pattern string, creds *credentials.Credentials) (*RawSource, error) {
	idx := uint64(0)
	rs := &RawSource{
		region: region,
		bucket: bucket,
		glob:   pattern,
		objIdx: &idx,
	}
	cfg := &aws.Config{Region: aws.String(rs.region)}
	if creds != nil {
		cfg.Credentials = creds
	}
	var err error
	rs.sess, err = session.NewSession(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "getting session")
	}
	rs.s3 = s3.New(rs.sess)

	err = rs.s3.ListObjectsPages(&s3.ListObjectsInput{
		Bucket: aws.String(rs.bucket),
		Prefix: aws.String(globPrefix(pattern)),
	}, func(page *s3.ListObjectsOutput, last bool) bool {
		for _, obj := range page.Contents {
			if match, _ := path.Match(pattern, *obj.Key); match {
				rs.objects = append(rs.objects, *obj.Key)
			}
		}
		return true
	})
	if err != nil {
		return nil, errors.Wrap(err, "listing objects")
	}
	return rs, nil
}

// globPrefix returns the fixed leading portion of a glob pattern, used to
// limit the S3 listing.
func globPrefix(pattern string) string {
	if i := strings.IndexAny(pattern, "*?["); i >= 0 {
		return pattern[:i]
	}
	return pattern
}

// NextReader returns a reader for the next matched object, or io.EOF.
func (rs *RawSource) NextReader() (soundlake.NamedReadCloser, error) {
	idx := atomic.AddUint64(rs.objIdx, 1) - 1
	if int(idx) >= len(rs.objects) {
		return nil, io.EOF
	}
	key := rs.objects[idx]
	result, err := rs.s3.GetObject(&s3.GetObjectInput{
		Bucket: aws.String(rs.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, errors.Wrapf(err, "fetching %v", key)
	}
	return &objReader{name: key, body: result.Body}, nil
}

type objReader struct {
	name string
	body io.ReadCloser
}

func (o *objReader) Read(buf []byte) (n int, err error) {
	return o.body.Read(buf)
}

func (o *objReader) Close() error {
	return o.body.Close()
}

func (o *objReader) Name() string {
	return o.name
}
