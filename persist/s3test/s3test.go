// Package s3test provides S3 clients for tests: an in-process fake by
// default, or a real endpoint when PATHTREE_TEST_S3_ENDPOINT is set.
package s3test

import (
	"crypto/rand"
	"fmt"
	"math"
	"math/big"
	"net/http/httptest"
	"os"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/johannesboyne/gofakes3"
	"github.com/johannesboyne/gofakes3/backend/s3mem"
)

const (
	endpointEnv = "PATHTREE_TEST_S3_ENDPOINT"
	bucketEnv   = "PATHTREE_TEST_S3_BUCKET"
)

// Client returns an S3 client, a bucket to use, and a func that releases
// them. With PATHTREE_TEST_S3_BUCKET set, that bucket is emptied before
// and after use instead of creating and deleting a random one.
func Client() (*s3.S3, string, func()) {
	var client *s3.S3
	closer := func() {}
	if os.Getenv(endpointEnv) != "" {
		config := aws.Config{
			Credentials: credentials.NewStaticCredentials(
				getEnv("AWS_ACCESS_KEY_ID"),
				getEnv("AWS_SECRET_ACCESS_KEY"),
				getEnvOrDefault("AWS_SESSION_TOKEN", ""),
			),
			Endpoint:         aws.String(getEnv(endpointEnv)),
			S3ForcePathStyle: aws.Bool(true),
		}
		// A real AWS region lets the SDK pick the endpoint. Other
		// S3-compatible services need the explicit endpoint and only a
		// nonempty region.
		config.Region = aws.String(getEnvOrDefault("AWS_REGION", "not-using-AWS"))
		if *config.Region != "not-using-AWS" {
			config.Endpoint = nil
		}

		sess, err := session.NewSession(&config)
		if err != nil {
			panic(err)
		}
		client = s3.New(sess)
	} else {
		faker := gofakes3.New(s3mem.New())
		ts := httptest.NewServer(faker.Server())
		closer = ts.Close

		sess, err := session.NewSession(&aws.Config{
			Credentials: credentials.NewStaticCredentials(
				"TEST-ACCESSKEYID",
				"TEST-SECRETACCESSKEY",
				"",
			),
			Endpoint:         aws.String(ts.URL),
			Region:           aws.String("ca-west-1"),
			DisableSSL:       aws.Bool(true),
			S3ForcePathStyle: aws.Bool(true),
		})
		if err != nil {
			panic(err)
		}
		client = s3.New(sess)
	}

	bucketName := os.Getenv(bucketEnv)
	ownBucket := bucketName == ""
	if ownBucket {
		bucketName = randBucketName()
		_, err := client.CreateBucket(&s3.CreateBucketInput{
			Bucket: aws.String(bucketName),
		})
		if err != nil {
			panic(err)
		}
	} else if err := emptyBucket(client, bucketName); err != nil {
		panic(err)
	}

	release := closer
	closer = func() {
		_ = emptyBucket(client, bucketName)
		if ownBucket {
			_, _ = client.DeleteBucket(&s3.DeleteBucketInput{
				Bucket: aws.String(bucketName),
			})
		}
		release()
	}
	return client, bucketName, closer
}

func getEnv(key string) string {
	res := os.Getenv(key)
	if res == "" {
		panic(fmt.Sprintf("environment '%s' unset", key))
	}
	return res
}

func getEnvOrDefault(key, def string) string {
	res := os.Getenv(key)
	if res == "" {
		return def
	}
	return res
}

func randBucketName() string {
	i, err := rand.Int(rand.Reader, big.NewInt(math.MaxUint32))
	if err != nil {
		panic(err)
	}
	return fmt.Sprintf("bucket-%s", i)
}

func emptyBucket(s *s3.S3, bucket string) error {
	params := &s3.ListObjectsInput{
		Bucket: aws.String(bucket),
	}
	for {
		objects, err := s.ListObjects(params)
		if err != nil {
			return err
		}
		if len(objects.Contents) == 0 {
			return nil
		}
		ids := make([]*s3.ObjectIdentifier, 0, len(objects.Contents))
		for _, object := range objects.Contents {
			ids = append(ids, &s3.ObjectIdentifier{Key: object.Key})
		}
		_, err = s.DeleteObjects(&s3.DeleteObjectsInput{
			Bucket: aws.String(bucket),
			Delete: &s3.Delete{Objects: ids},
		})
		if err != nil {
			return err
		}
		if !aws.BoolValue(objects.IsTruncated) {
			return nil
		}
		params.Marker = ids[len(ids)-1].Key
	}
}
