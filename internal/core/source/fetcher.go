package source

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	cfg "github.com/bookcast/ingest/internal/config"
	"github.com/bookcast/ingest/internal/core"
)

// Fetcher downloads a remote document to a local scratch file. It speaks
// plain https and, when AWS credentials are configured, s3:// URIs for
// documents sitting in a storage bucket.
type Fetcher struct {
	httpClient *http.Client
	s3Client   *s3.Client
}

func NewFetcher(ctx context.Context, conf *cfg.Config) (*Fetcher, error) {
	f := &Fetcher{
		httpClient: &http.Client{Timeout: 5 * time.Minute},
	}

	if conf.AwsAccessKey != "" && conf.AwsSecretKey != "" {
		awsCfg, err := awsconfig.LoadDefaultConfig(
			ctx,
			awsconfig.WithRegion(conf.AwsRegion),
			awsconfig.WithCredentialsProvider(
				credentials.NewStaticCredentialsProvider(conf.AwsAccessKey, conf.AwsSecretKey, ""),
			),
		)
		if err != nil {
			return nil, fmt.Errorf("load aws config: %w", err)
		}
		f.s3Client = s3.NewFromConfig(awsCfg)
	}

	return f, nil
}

// Fetch streams the document at rawURL into a scratch file and returns the
// handle. The body is copied in fixed-size chunks; the whole file is never
// held in memory.
func (f *Fetcher) Fetch(ctx context.Context, rawURL, kind string) (*ScratchFile, error) {
	suffix, err := suffixFor(kind)
	if err != nil {
		return nil, err
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid url: %v", core.ErrTransfer, err)
	}

	var body io.ReadCloser
	switch u.Scheme {
	case "s3":
		body, err = f.openS3(ctx, u)
	default:
		body, err = f.openHTTP(ctx, rawURL, kind)
	}
	if err != nil {
		return nil, err
	}
	defer body.Close()

	tmp, err := os.CreateTemp("", "book-*"+suffix)
	if err != nil {
		return nil, fmt.Errorf("create scratch file: %w", err)
	}

	if _, err := io.Copy(tmp, body); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return nil, fmt.Errorf("%w: %v", core.ErrTransfer, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return nil, fmt.Errorf("close scratch file: %w", err)
	}

	log.Printf("Source: downloaded %s %s to %s", kind, rawURL, tmp.Name())
	return &ScratchFile{Path: tmp.Name()}, nil
}

func (f *Fetcher) openHTTP(ctx context.Context, rawURL, kind string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrTransfer, err)
	}
	// Some hosts refuse requests without browser-looking headers.
	req.Header.Set("User-Agent", "Mozilla/5.0")
	req.Header.Set("Accept", "application/"+kind)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrTransfer, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("%w: unexpected status %d", core.ErrTransfer, resp.StatusCode)
	}
	return resp.Body, nil
}

func (f *Fetcher) openS3(ctx context.Context, u *url.URL) (io.ReadCloser, error) {
	if f.s3Client == nil {
		return nil, fmt.Errorf("%w: s3 source requested but AWS credentials not configured", core.ErrTransfer)
	}

	bucket := u.Host
	key := u.Path
	if len(key) > 0 && key[0] == '/' {
		key = key[1:]
	}

	out, err := f.s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: s3 get %s/%s: %v", core.ErrTransfer, bucket, key, err)
	}
	return out.Body, nil
}
