// Package media resolves illustration images for event drafts and
// stores them in S3.
package media

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"

	"github.com/gamima/eventforge/internal/models"
	"github.com/gamima/eventforge/internal/search"
)

// imageSearcher is the slice of the search client the resolver needs.
type imageSearcher interface {
	SearchImage(ctx context.Context, query string) (string, error)
}

var _ imageSearcher = (*search.Client)(nil)

// Resolver finds an image for a draft question and uploads it to S3,
// returning a public object URL.
type Resolver struct {
	searcher imageSearcher
	http     *resty.Client
	s3       *s3.Client
	bucket   string
	region   string
}

// Config holds the S3 destination settings.
type Config struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
}

// NewResolver creates a media resolver. It fails when the AWS
// configuration cannot be assembled.
func NewResolver(ctx context.Context, searcher imageSearcher, cfg Config) (*Resolver, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &Resolver{
		searcher: searcher,
		http: resty.New().
			SetTimeout(30 * time.Second),
		s3:     s3.NewFromConfig(awsCfg),
		bucket: cfg.Bucket,
		region: cfg.Region,
	}, nil
}

// Resolve finds, downloads, and re-hosts an image for the draft. Any
// failure returns an error; callers treat resolution as best effort.
func (r *Resolver) Resolve(ctx context.Context, draft *models.EventDraft) (string, error) {
	imageURL, err := r.searcher.SearchImage(ctx, draft.Question)
	if err != nil {
		return "", fmt.Errorf("image search failed: %w", err)
	}
	if imageURL == "" {
		return "", fmt.Errorf("no image found for question")
	}

	resp, err := r.http.R().SetContext(ctx).Get(imageURL)
	if err != nil {
		return "", fmt.Errorf("failed to download image: %w", err)
	}
	if resp.StatusCode() != 200 {
		return "", fmt.Errorf("image download returned %d", resp.StatusCode())
	}

	body := resp.Body()
	if len(body) == 0 {
		return "", fmt.Errorf("image download returned empty body")
	}

	key := objectKey(imageURL)
	contentType := resp.Header().Get("Content-Type")
	if contentType == "" || !strings.HasPrefix(contentType, "image/") {
		contentType = "image/jpeg"
	}

	_, err = r.s3.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(r.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload image to S3: %w", err)
	}

	url := fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", r.bucket, r.region, key)
	log.Debug().Str("key", key).Msg("Uploaded event image")
	return url, nil
}

// objectKey builds a unique key from the upload time, keeping the
// source extension when it looks like an image extension.
func objectKey(sourceURL string) string {
	ext := strings.ToLower(path.Ext(strings.SplitN(path.Base(sourceURL), "?", 2)[0]))
	switch ext {
	case ".jpg", ".jpeg", ".png", ".gif", ".webp":
	default:
		ext = ".jpg"
	}
	return fmt.Sprintf("events/%d%s", time.Now().UnixMilli(), ext)
}
