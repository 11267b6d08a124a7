// Package storage deletes recording files from S3-compatible object storage.
package storage

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	awsmiddleware "github.com/aws/smithy-go/middleware"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
)

// ErrUnavailable is returned while the breaker is open.
var ErrUnavailable = errors.New("storage unavailable")

// Deleter removes the object a recording locator points at.
type Deleter interface {
	Delete(ctx context.Context, locator string) error
}

// ObjectAPI is the subset of the S3 client the deleter uses.
type ObjectAPI interface {
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// Settings configure the S3 client.
type Settings struct {
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
}

// NewS3Client builds a path-style client for an S3-compatible endpoint.
func NewS3Client(ctx context.Context, s Settings) (*s3.Client, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(s.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(s.AccessKey, s.SecretKey, "")),
		awsconfig.WithAPIOptions([]func(*awsmiddleware.Stack) error{removeDisableGzip()}),
	)
	if err != nil {
		return nil, fmt.Errorf("load S3 config: %w", err)
	}
	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(s.Endpoint)
		o.UsePathStyle = true
	}), nil
}

// removeDisableGzip is a workaround for S3 signature errors with some S3-compatible services.
// See: https://github.com/supabase/storage/issues/577
func removeDisableGzip() func(*awsmiddleware.Stack) error {
	return func(stack *awsmiddleware.Stack) error {
		if _, ok := stack.Finalize.Get("DisableAcceptEncodingGzip"); ok {
			_, err := stack.Finalize.Remove("DisableAcceptEncodingGzip")
			return err
		}
		return nil
	}
}

// S3Deleter deletes objects from one bucket behind a circuit breaker, so a
// store that keeps failing is skipped quickly for the rest of a sweep.
type S3Deleter struct {
	api     ObjectAPI
	bucket  string
	breaker *gobreaker.CircuitBreaker[struct{}]
	logger  zerolog.Logger
}

// NewS3Deleter wraps api for bucket.
func NewS3Deleter(api ObjectAPI, bucket string, logger zerolog.Logger) *S3Deleter {
	lg := logger.With().Str("service", "S3Deleter").Logger()
	cb := gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        "storage-delete",
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			lg.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("Circuit breaker state changed")
		},
	})
	return &S3Deleter{api: api, bucket: bucket, breaker: cb, logger: lg}
}

// Delete removes the object for locator. Deleting a missing object succeeds.
func (d *S3Deleter) Delete(ctx context.Context, locator string) error {
	key, err := KeyFromLocator(locator, d.bucket)
	if err != nil {
		return err
	}
	_, err = d.breaker.Execute(func() (struct{}, error) {
		_, err := d.api.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(d.bucket),
			Key:    aws.String(key),
		})
		return struct{}{}, err
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("delete %s: %w", key, ErrUnavailable)
	}
	if err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// KeyFromLocator turns a stored locator into an object key. Locators are
// either bare keys or URLs; for URLs the host, a leading bucket segment and
// the Supabase public object prefix are stripped.
func KeyFromLocator(locator, bucket string) (string, error) {
	locator = strings.TrimSpace(locator)
	if locator == "" {
		return "", errors.New("empty storage locator")
	}
	path := locator
	if strings.Contains(locator, "://") {
		u, err := url.Parse(locator)
		if err != nil {
			return "", fmt.Errorf("parse storage locator: %w", err)
		}
		path = u.Path
	}
	path = strings.TrimPrefix(path, "/")
	for _, prefix := range []string{
		"storage/v1/object/public/" + bucket + "/",
		"storage/v1/object/" + bucket + "/",
		bucket + "/",
	} {
		if bucket != "" && strings.HasPrefix(path, prefix) {
			path = strings.TrimPrefix(path, prefix)
			break
		}
	}
	if path == "" {
		return "", fmt.Errorf("storage locator %q has no object key", locator)
	}
	return path, nil
}
