package s3

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/hashicorp/golang-lru/simplelru"
)

// S3Interface is the subset of the S3 client that Persist uses.
type S3Interface interface {
	GetObjectWithContext(ctx aws.Context, input *s3.GetObjectInput, opts ...request.Option) (*s3.GetObjectOutput, error)
	PutObjectWithContext(ctx aws.Context, input *s3.PutObjectInput, opts ...request.Option) (*s3.PutObjectOutput, error)
}

// DefaultKnownNames is how many recently stored or loaded names Persist
// remembers, to skip re-uploading them.
const DefaultKnownNames = 1000

// Persist implements the pathtree.Persist interface for storing and loading
// serialized nodes as objects in an S3 bucket.
type Persist struct {
	s3         S3Interface
	BucketName string
	Prefix     string

	mu    sync.Mutex
	known *simplelru.LRU
}

func (p *Persist) remember(name string) {
	p.mu.Lock()
	p.known.Add(name, nil)
	p.mu.Unlock()
}

func (p *Persist) knows(name string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.known.Contains(name)
}

func (p *Persist) key(name string) *string {
	return aws.String(p.Prefix + name)
}

// Load loads the bytes persisted in the named object.
func (p *Persist) Load(ctx context.Context, name string) ([]byte, error) {
	output, err := p.s3.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(p.BucketName),
		Key:    p.key(name),
	})
	if err != nil {
		return nil, fmt.Errorf("s3 get %s: %w", p.Prefix+name, err)
	}
	defer output.Body.Close()
	b, err := io.ReadAll(output.Body)
	if err != nil {
		return nil, fmt.Errorf("s3 read %s: %w", p.Prefix+name, err)
	}
	p.remember(name)
	return b, nil
}

// Store persists the given bytes in an object of the given name, unless it
// was recently stored or loaded through this Persist.
func (p *Persist) Store(ctx context.Context, name string, b []byte) error {
	if p.knows(name) {
		return nil
	}
	_, err := p.s3.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket: aws.String(p.BucketName),
		Key:    p.key(name),
		Body:   bytes.NewReader(b),
	})
	if err != nil {
		return fmt.Errorf("s3 put %s: %w", p.Prefix+name, err)
	}
	p.remember(name)
	return nil
}

// NewPersist returns a Persist that loads and stores nodes as
// objects with the given S3 client, bucket name and key prefix.
func NewPersist(client S3Interface, bucketName, prefix string) *Persist {
	known, err := simplelru.NewLRU(DefaultKnownNames, nil)
	if err != nil {
		panic(err)
	}
	return &Persist{
		s3:         client,
		BucketName: bucketName,
		Prefix:     prefix,
		known:      known,
	}
}
