// Package publish uploads an exported site to S3-compatible storage
// (AWS S3, MinIO, Cloudflare R2, DigitalOcean Spaces, ...).
package publish

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"golang.org/x/sync/errgroup"
)

// Uploader is the subset of *s3.Client the publisher uses.
type Uploader interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Config holds configuration for S3 publishing.
type Config struct {
	Region    string
	Bucket    string
	Prefix    string // Optional key prefix, e.g. "blog/"
	AccessKey string
	SecretKey string
	Endpoint  string // Optional: for S3-compatible services
	// Concurrency bounds parallel uploads (default 8).
	Concurrency int
	Logger      *slog.Logger
}

// S3Publisher uploads a directory tree to a bucket.
type S3Publisher struct {
	client  Uploader
	bucket  string
	prefix  string
	workers int
	log     *slog.Logger
}

// Result summarizes a publish run.
type Result struct {
	Files int
	Bytes int64
}

// NewS3Publisher creates a publisher backed by a real S3 client.
func NewS3Publisher(ctx context.Context, cfg Config) (*S3Publisher, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("publish: bucket is required")
	}

	var opts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("publish: load AWS config: %w", err)
	}

	var client *s3.Client
	if cfg.Endpoint != "" {
		client = s3.NewFromConfig(awsCfg, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		})
	} else {
		client = s3.NewFromConfig(awsCfg)
	}
	return NewWithClient(client, cfg), nil
}

// NewWithClient creates a publisher using an existing client.
func NewWithClient(client Uploader, cfg Config) *S3Publisher {
	workers := cfg.Concurrency
	if workers <= 0 {
		workers = 8
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	prefix := strings.Trim(cfg.Prefix, "/")
	if prefix != "" {
		prefix += "/"
	}
	return &S3Publisher{
		client:  client,
		bucket:  cfg.Bucket,
		prefix:  prefix,
		workers: workers,
		log:     log.With("component", "publish", "bucket", cfg.Bucket),
	}
}

// Publish uploads every file under dir. Keys mirror the relative paths.
func (p *S3Publisher) Publish(ctx context.Context, dir string) (Result, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return Result{}, fmt.Errorf("publish: walk %s: %w", dir, err)
	}

	var total atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for _, file := range files {
		g.Go(func() error {
			rel, err := filepath.Rel(dir, file)
			if err != nil {
				return err
			}
			n, err := p.upload(gctx, file, p.prefix+filepath.ToSlash(rel))
			if err != nil {
				return err
			}
			total.Add(n)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	res := Result{Files: len(files), Bytes: total.Load()}
	p.log.Info("published site", "files", res.Files, "bytes", res.Bytes)
	return res, nil
}

func (p *S3Publisher) upload(ctx context.Context, file, key string) (int64, error) {
	f, err := os.Open(file)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return 0, err
	}

	_, err = p.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(p.bucket),
		Key:           aws.String(key),
		Body:          f,
		ContentLength: aws.Int64(info.Size()),
		ContentType:   aws.String(ContentType(key)),
		CacheControl:  aws.String(CacheControl(key)),
	})
	if err != nil {
		return 0, fmt.Errorf("publish: upload %s: %w", key, err)
	}
	p.log.Debug("uploaded", "key", key, "bytes", info.Size())
	return info.Size(), nil
}

// ContentType returns the MIME type for key by extension.
func ContentType(key string) string {
	if t := mime.TypeByExtension(path.Ext(key)); t != "" {
		return t
	}
	return "application/octet-stream"
}

// CacheControl mirrors the live server's caching: long-lived assets,
// daily feeds and short-lived pages.
func CacheControl(key string) string {
	base := path.Base(key)
	switch {
	case strings.Contains(key, "public/"):
		return "public, max-age=31536000, immutable"
	case base == "sitemap.xml" || base == "feed.xml" || base == "robots.txt":
		return "public, max-age=86400"
	case base == "manifest.json":
		return "no-cache"
	default:
		return "public, max-age=3600"
	}
}
