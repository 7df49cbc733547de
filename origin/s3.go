package origin

import (
	"context"
	"fmt"
	log "log/slog"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	photarium "github.com/bleeckerj/nfl-photarium-sub000"
)

// S3Config holds connection settings for an S3-compatible origin bucket.
type S3Config struct {
	// "http://127.0.0.1:9000"
	HostEndpointUrl string
	// "us-east-1"
	Region   string
	Username string
	Password string
}

// Connect to the S3-compatible server endpoint.
func Connect(config S3Config) *s3.Client {
	client := s3.NewFromConfig(aws.Config{Region: config.Region}, func(o *s3.Options) {
		if config.HostEndpointUrl != "" {
			o.BaseEndpoint = aws.String(config.HostEndpointUrl)
		}
		o.Credentials = credentials.NewStaticCredentialsProvider(config.Username, config.Password, "")
	})
	return client
}

// S3Lister treats an S3-compatible bucket as the origin: objects are images,
// object metadata is the opaque blob. HeadObject per key makes this listing
// slow, which is exactly why the cache sits in front of it.
type S3Lister struct {
	client *s3.Client
	bucket string
}

// NewS3Lister creates an origin lister over the given bucket.
func NewS3Lister(client *s3.Client, bucket string) *S3Lister {
	return &S3Lister{client: client, bucket: bucket}
}

// ListImages pages through the bucket with continuation tokens. pageSize maps
// to MaxKeys; maxPages, when positive, caps the number of listing calls.
func (l *S3Lister) ListImages(ctx context.Context, pageSize, maxPages int) ([]photarium.ImageRecord, error) {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	var out []photarium.ImageRecord
	var token *string
	for page := 1; ; page++ {
		if maxPages > 0 && page > maxPages {
			log.Warn(fmt.Sprintf("bucket listing stopped at page guard, %d pages fetched", maxPages))
			break
		}
		res, err := l.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(l.bucket),
			MaxKeys:           aws.Int32(int32(pageSize)),
			ContinuationToken: token,
		})
		if err != nil {
			return nil, fmt.Errorf("bucket listing page %d failed: %w", page, err)
		}
		for _, obj := range res.Contents {
			key := aws.ToString(obj.Key)
			rec := photarium.ImageRecord{
				ID:       key,
				Filename: path.Base(key),
				Uploaded: aws.ToTime(obj.LastModified),
			}
			head, err := l.client.HeadObject(ctx, &s3.HeadObjectInput{
				Bucket: aws.String(l.bucket),
				Key:    obj.Key,
			})
			if err != nil {
				log.Warn(fmt.Sprintf("head for object %s failed, keeping bare record, details: %v", key, err))
			} else {
				rec.Meta = ExtractMetadata(stringMapToAny(head.Metadata))
			}
			out = append(out, rec)
		}
		if res.IsTruncated == nil || !*res.IsTruncated {
			break
		}
		token = res.NextContinuationToken
	}
	return out, nil
}

func stringMapToAny(m map[string]string) map[string]any {
	if len(m) == 0 {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
