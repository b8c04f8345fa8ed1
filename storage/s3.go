package storage

import (
	"bytes"
	"context"
	"fmt"
	"io/ioutil"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/client"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	log "github.com/sirupsen/logrus"
)

// s3ExpiresAtKey is the user metadata entry holding an object's deadline in
// Unix nanoseconds. S3 cannot expire single objects, so the deadline is
// enforced on read; a bucket lifecycle rule should delete old objects.
const s3ExpiresAtKey = "Expires-At"

// S3 is an implementation of Store backed by AWS S3, or by anything speaking
// its protocol when an endpoint is given.
type S3 struct {
	bucket string
	client *s3.S3
	opts   options
}

// NewS3 builds a client using the named shared credentials profile. A
// non-empty endpoint switches to path-style addressing against that endpoint.
func NewS3(profile, region, endpoint, bucket string, opts ...Option) (*S3, error) {
	config := &aws.Config{
		Region:      aws.String(region),
		Credentials: credentials.NewSharedCredentials("", profile),
	}
	if endpoint != "" {
		config.Endpoint = aws.String(endpoint)
		config.S3ForcePathStyle = aws.Bool(true)
	}
	sess, err := session.NewSession(config)
	if err != nil {
		return nil, err
	}
	return NewS3FromSession(sess, bucket, opts...), nil
}

func NewS3FromSession(sess client.ConfigProvider, bucket string, opts ...Option) *S3 {
	return &S3{
		bucket: bucket,
		client: s3.New(sess),
		opts:   newOptions(opts),
	}
}

func (s *S3) Get(ctx context.Context, key string) (value []byte, err error) {
	value, _, _, err = s.getWithTTL(ctx, key)
	return value, err
}

func (s *S3) getWithTTL(ctx context.Context, key string) (value []byte, left time.Duration, ok bool, err error) {
	output, err := s.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if rfErr, ok := err.(awserr.RequestFailure); ok {
			if rfErr.StatusCode() == http.StatusNotFound {
				return nil, 0, false, fmt.Errorf("%.40q: %w", key, ErrNotFound)
			}
		}
		return nil, 0, false, err
	}
	defer func() {
		if err := output.Body.Close(); err != nil {
			log.WithFields(log.Fields{
				"op":  "get",
				"key": key,
			}).Warning("Could not close response body")
		}
	}()
	d, now := s3Deadline(output.Metadata), s.opts.now()
	if expired(d, now) {
		return nil, 0, false, fmt.Errorf("%.40q: expired: %w", key, ErrNotFound)
	}
	value, err = ioutil.ReadAll(output.Body)
	if err != nil {
		return nil, 0, false, err
	}
	if value == nil {
		value = []byte{}
	}
	return value, remaining(d, now), true, nil
}

func (s *S3) Put(ctx context.Context, key string, value []byte, ttl time.Duration) (err error) {
	input := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(value),
	}
	if d := deadline(s.opts.now(), ttl); !d.IsZero() {
		input.Expires = aws.Time(d)
		input.Metadata = map[string]*string{
			s3ExpiresAtKey: aws.String(strconv.FormatInt(d.UnixNano(), 10)),
		}
	}
	if _, err = s.client.PutObjectWithContext(ctx, input); err != nil {
		return fmt.Errorf("could not put %.40q: %w", key, err)
	}
	return nil
}

// s3Deadline reads the deadline back from object metadata, whose keys come
// back with whatever casing the server chose.
func s3Deadline(metadata map[string]*string) time.Time {
	for k, v := range metadata {
		if !strings.EqualFold(k, s3ExpiresAtKey) || v == nil {
			continue
		}
		ns, err := strconv.ParseInt(*v, 10, 64)
		if err != nil || ns == 0 {
			return time.Time{}
		}
		return time.Unix(0, ns)
	}
	return time.Time{}
}
