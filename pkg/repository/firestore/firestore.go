package firestore

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/tradescout/pkg/domain/interfaces"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const snapshotsCollection = "snapshots"

type Firestore struct {
	client           *firestore.Client
	collectionPrefix string
	databaseID       string
	clientOptions    []option.ClientOption
}

var _ interfaces.SnapshotStore = &Firestore{}

// snapshotDoc is the Firestore persistence model
type snapshotDoc struct {
	Data      string    `firestore:"data"`
	UpdatedAt time.Time `firestore:"updated_at"`
}

type Option func(*Firestore)

func WithCollectionPrefix(prefix string) Option {
	return func(f *Firestore) {
		f.collectionPrefix = prefix
	}
}

// WithDatabaseID selects a named database instead of "(default)"
func WithDatabaseID(databaseID string) Option {
	return func(f *Firestore) {
		f.databaseID = databaseID
	}
}

func WithClientOptions(opts ...option.ClientOption) Option {
	return func(f *Firestore) {
		f.clientOptions = append(f.clientOptions, opts...)
	}
}

func New(ctx context.Context, projectID string, opts ...Option) (*Firestore, error) {
	f := &Firestore{
		databaseID: firestore.DefaultDatabaseID,
	}
	for _, opt := range opts {
		opt(f)
	}

	client, err := firestore.NewClientWithDatabase(ctx, projectID, f.databaseID, f.clientOptions...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create firestore client",
			goerr.V("projectID", projectID),
			goerr.V("databaseID", f.databaseID))
	}
	f.client = client

	return f, nil
}

func (f *Firestore) collection() *firestore.CollectionRef {
	if f.collectionPrefix != "" {
		return f.client.Collection(f.collectionPrefix + "_" + snapshotsCollection)
	}
	return f.client.Collection(snapshotsCollection)
}

func (f *Firestore) Load(ctx context.Context, name string) ([]byte, error) {
	doc, err := f.collection().Doc(name).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, nil
		}
		return nil, goerr.Wrap(err, "failed to get snapshot", goerr.V("name", name))
	}

	var snapshot snapshotDoc
	if err := doc.DataTo(&snapshot); err != nil {
		return nil, goerr.Wrap(err, "failed to decode snapshot document", goerr.V("name", name))
	}

	return []byte(snapshot.Data), nil
}

func (f *Firestore) Save(ctx context.Context, name string, data []byte) error {
	doc := &snapshotDoc{
		Data:      string(data),
		UpdatedAt: time.Now().UTC(),
	}
	if _, err := f.collection().Doc(name).Set(ctx, doc); err != nil {
		return goerr.Wrap(err, "failed to save snapshot", goerr.V("name", name))
	}
	return nil
}

func (f *Firestore) Close() error {
	if f.client != nil {
		return f.client.Close()
	}
	return nil
}
