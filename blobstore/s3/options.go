package s3

import "github.com/aws/aws-sdk-go-v2/service/s3"

type options struct {
	prefix       string
	region       string
	endpoint     string
	usePathStyle bool
	partSize     int64
	concurrency  int
	client       Client
}

// Option configures a Store created by New.
type Option func(*options)

// WithPrefix sets the key prefix prepended to every blob name.
func WithPrefix(prefix string) Option {
	return func(o *options) { o.prefix = prefix }
}

// WithRegion overrides the region from the default AWS config chain.
func WithRegion(region string) Option {
	return func(o *options) { o.region = region }
}

// WithEndpoint points the client at an S3-compatible endpoint and enables
// path-style addressing.
func WithEndpoint(endpoint string) Option {
	return func(o *options) {
		o.endpoint = endpoint
		o.usePathStyle = true
	}
}

// WithPartSize sets the multipart upload part size. Default: 8MB.
func WithPartSize(n int64) Option {
	return func(o *options) { o.partSize = n }
}

// WithUploadConcurrency sets the number of concurrent part uploads. Default: 5.
func WithUploadConcurrency(n int) Option {
	return func(o *options) { o.concurrency = n }
}

// WithClient uses an existing client instead of loading the default config.
func WithClient(c Client) Option {
	return func(o *options) { o.client = c }
}

func (o *options) s3Options(so *s3.Options) {
	if o.region != "" {
		so.Region = o.region
	}
	if o.endpoint != "" {
		so.BaseEndpoint = &o.endpoint
	}
	so.UsePathStyle = o.usePathStyle
}
