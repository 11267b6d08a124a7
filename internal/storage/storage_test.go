package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeObjects struct {
	keys []string
	err  error
}

func (f *fakeObjects) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.keys = append(f.keys, aws.ToString(in.Key))
	if f.err != nil {
		return nil, f.err
	}
	return &s3.DeleteObjectOutput{}, nil
}

func TestKeyFromLocator(t *testing.T) {
	tests := []struct {
		locator string
		want    string
	}{
		{"recordings/abc.webm", "recordings/abc.webm"},
		{"/recordings/abc.webm", "recordings/abc.webm"},
		{"media/recordings/abc.webm", "recordings/abc.webm"},
		{"http://localhost:9000/media/recordings/abc.webm", "recordings/abc.webm"},
		{"https://x.supabase.co/storage/v1/object/public/media/recordings/abc.webm", "recordings/abc.webm"},
		{"https://cdn.example.com/other/abc.webm", "other/abc.webm"},
	}
	for _, tt := range tests {
		got, err := KeyFromLocator(tt.locator, "media")
		require.NoError(t, err, tt.locator)
		assert.Equal(t, tt.want, got, tt.locator)
	}

	_, err := KeyFromLocator("  ", "media")
	assert.Error(t, err)
	_, err = KeyFromLocator("https://x.supabase.co/media/", "media")
	assert.Error(t, err)
}

func TestS3DeleterDeletesKey(t *testing.T) {
	api := &fakeObjects{}
	d := NewS3Deleter(api, "media", zerolog.Nop())

	require.NoError(t, d.Delete(context.Background(), "http://localhost:9000/media/recordings/r1.webm"))
	assert.Equal(t, []string{"recordings/r1.webm"}, api.keys)
}

func TestS3DeleterBreakerOpens(t *testing.T) {
	api := &fakeObjects{err: errors.New("connection refused")}
	d := NewS3Deleter(api, "media", zerolog.Nop())

	for i := 0; i < 6; i++ {
		err := d.Delete(context.Background(), "recordings/r.webm")
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrUnavailable)
	}
	err := d.Delete(context.Background(), "recordings/r.webm")
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Len(t, api.keys, 6)
}
