package s3store

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUploader struct {
	err   error
	calls int
	input *s3.PutObjectInput
}

func (f *fakeUploader) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.calls++
	f.input = params
	if f.err != nil {
		return nil, f.err
	}

	return &s3.PutObjectOutput{}, nil
}

type fakePresigner struct {
	url   string
	err   error
	calls int
	input *s3.GetObjectInput
}

func (f *fakePresigner) PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
	f.calls++
	f.input = params
	if f.err != nil {
		return nil, f.err
	}

	return &v4.PresignedHTTPRequest{URL: f.url, Method: "GET"}, nil
}

func quietClient(uploader PutObjectAPI, presigner PresignAPI) *Client {
	return NewClientFromAPI(uploader, presigner, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestPresignedGetURL(t *testing.T) {
	presigner := &fakePresigner{url: "https://s3.us-east-1.amazonaws.com/results/abc-123.json?X-Amz-Signature=deadbeef"}
	c := quietClient(&fakeUploader{}, presigner)

	url := c.PresignedGetURL(context.Background(), "results", "abc-123.json", time.Hour)

	assert.Equal(t, presigner.url, url)
	require.NotNil(t, presigner.input)
	assert.Equal(t, "results", *presigner.input.Bucket)
	assert.Equal(t, "abc-123.json", *presigner.input.Key)
}

func TestPresignedGetURL_ClientError(t *testing.T) {
	presigner := &fakePresigner{err: errors.New("no credentials")}
	c := quietClient(&fakeUploader{}, presigner)

	url := c.PresignedGetURL(context.Background(), "results", "abc-123.json", time.Hour)

	assert.Equal(t, "", url)
}

func TestUploadText(t *testing.T) {
	uploader := &fakeUploader{}
	presigner := &fakePresigner{url: "https://s3.us-east-1.amazonaws.com/results/abc-123.json?X-Amz-Signature=deadbeef"}
	c := quietClient(uploader, presigner)

	url := c.UploadText(context.Background(), `{"summary":"ok"}`, "application/json", "results", "abc-123.json", 0)

	assert.Equal(t, presigner.url, url)
	require.NotNil(t, uploader.input)
	assert.Equal(t, "results", *uploader.input.Bucket)
	assert.Equal(t, "abc-123.json", *uploader.input.Key)
	assert.Equal(t, "application/json", *uploader.input.ContentType)

	body, err := io.ReadAll(uploader.input.Body)
	require.NoError(t, err)
	assert.Equal(t, `{"summary":"ok"}`, string(body))
}

func TestUploadText_UploadErrorSkipsPresign(t *testing.T) {
	uploader := &fakeUploader{err: errors.New("access denied")}
	presigner := &fakePresigner{url: "https://unused"}
	c := quietClient(uploader, presigner)

	url := c.UploadText(context.Background(), "contents", "text/plain", "results", "abc-123.txt", time.Hour)

	assert.Equal(t, "", url)
	assert.Equal(t, 1, uploader.calls)
	assert.Equal(t, 0, presigner.calls)
}
