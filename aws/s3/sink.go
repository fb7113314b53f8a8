package s3

import (
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/pkg/errors"
)

// Sink writes local directory trees to an S3 bucket with overwrite
// semantics: DeletePrefix discards the prior contents of a key prefix and
// UploadDir uploads a tree under it.
type Sink struct {
	bucket string

	s3       *s3.S3
	uploader *s3manager.Uploader
}

// NewSink returns a Sink for the given bucket. creds may be nil to use the
// SDK's default chain.
func NewSink(region, bucket string, creds *credentials.Credentials) (*Sink, error) {
	cfg := &aws.Config{Region: aws.String(region)}
	if creds != nil {
		cfg.Credentials = creds
	}
	sess, err := session.NewSession(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "getting session")
	}
	return &Sink{
		bucket:   bucket,
		s3:       s3.New(sess),
		uploader: s3manager.NewUploader(sess),
	}, nil
}

// DeletePrefix removes every object under the given key prefix.
func (s *Sink) DeletePrefix(prefix string) error {
	var delErr error
	err := s.s3.ListObjectsPages(&s3.ListObjectsInput{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	}, func(page *s3.ListObjectsOutput, last bool) bool {
		if len(page.Contents) == 0 {
			return true
		}
		objects := make([]*s3.ObjectIdentifier, len(page.Contents))
		for i, obj := range page.Contents {
			objects[i] = &s3.ObjectIdentifier{Key: obj.Key}
		}
		_, delErr = s.s3.DeleteObjects(&s3.DeleteObjectsInput{
			Bucket: aws.String(s.bucket),
			Delete: &s3.Delete{Objects: objects},
		})
		return delErr == nil
	})
	if err != nil {
		return errors.Wrap(err, "listing objects to delete")
	}
	return errors.Wrap(delErr, "deleting objects")
}

// UploadDir uploads every file under dir to the bucket, rooted at the given
// key prefix and preserving the relative directory structure.
func (s *Sink) UploadDir(dir, prefix string) error {
	return filepath.Walk(dir, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return errors.Wrap(err, "relativizing path")
		}
		f, err := os.Open(p)
		if err != nil {
			return errors.Wrapf(err, "opening %s", p)
		}
		defer f.Close()
		key := path.Join(prefix, filepath.ToSlash(rel))
		_, err = s.uploader.Upload(&s3manager.UploadInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(key),
			Body:   f,
		})
		return errors.Wrapf(err, "uploading %s", key)
	})
}

// JoinPrefix joins S3 key prefix segments with single slashes, dropping
// empty segments.
func JoinPrefix(parts ...string) string {
	cleaned := parts[:0]
	for _, p := range parts {
		p = strings.Trim(p, "/")
		if p != "" {
			cleaned = append(cleaned, p)
		}
	}
	return strings.Join(cleaned, "/")
}
