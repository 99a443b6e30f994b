package gcs

import (
	"context"
	"errors"
	"io"
	"path"

	"cloud.google.com/go/storage"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/tradescout/pkg/domain/interfaces"
	"google.golang.org/api/option"
)

// GCS stores each snapshot as gs://<bucket>/<prefix>/<name>.json
type GCS struct {
	client        *storage.Client
	bucket        string
	prefix        string
	clientOptions []option.ClientOption
}

var _ interfaces.SnapshotStore = &GCS{}

type Option func(*GCS)

func WithPrefix(prefix string) Option {
	return func(g *GCS) {
		g.prefix = prefix
	}
}

func WithClientOptions(opts ...option.ClientOption) Option {
	return func(g *GCS) {
		g.clientOptions = append(g.clientOptions, opts...)
	}
}

func New(ctx context.Context, bucket string, opts ...Option) (*GCS, error) {
	if bucket == "" {
		return nil, goerr.New("bucket name is empty")
	}

	g := &GCS{bucket: bucket}
	for _, opt := range opts {
		opt(g)
	}

	client, err := storage.NewClient(ctx, g.clientOptions...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create storage client", goerr.V("bucket", bucket))
	}
	g.client = client

	return g, nil
}

func (g *GCS) object(name string) *storage.ObjectHandle {
	return g.client.Bucket(g.bucket).Object(path.Join(g.prefix, name+".json"))
}

func (g *GCS) Load(ctx context.Context, name string) ([]byte, error) {
	r, err := g.object(name).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, nil
		}
		return nil, goerr.Wrap(err, "failed to open snapshot object",
			goerr.V("bucket", g.bucket),
			goerr.V("name", name))
	}
	defer func() { _ = r.Close() }()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read snapshot object",
			goerr.V("bucket", g.bucket),
			goerr.V("name", name))
	}
	return data, nil
}

func (g *GCS) Save(ctx context.Context, name string, data []byte) error {
	w := g.object(name).NewWriter(ctx)
	w.ContentType = "application/json"

	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return goerr.Wrap(err, "failed to write snapshot object",
			goerr.V("bucket", g.bucket),
			goerr.V("name", name))
	}
	// The object is committed on Close
	if err := w.Close(); err != nil {
		return goerr.Wrap(err, "failed to commit snapshot object",
			goerr.V("bucket", g.bucket),
			goerr.V("name", name))
	}
	return nil
}

func (g *GCS) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}
