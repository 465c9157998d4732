package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/HillPhelmuth/WhiteBoard/pkg/imagecatalog"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// DefaultCollection is the collection used when none is configured
const DefaultCollection = "images"

// document is the stored shape of an image record. The record id is the
// document _id, so an upsert replaces by id.
type document struct {
	ID            string     `bson:"_id"`
	UserName      string     `bson:"userName"`
	Category      string     `bson:"category"`
	ImageName     string     `bson:"imageName"`
	Description   string     `bson:"description"`
	CreatedOnDate *time.Time `bson:"createdOnDate,omitempty"`
}

func toDocument(rec *imagecatalog.ImageRecord) document {
	return document{
		ID:            rec.ID,
		UserName:      rec.UserName,
		Category:      rec.Category,
		ImageName:     rec.ImageName,
		Description:   rec.Description,
		CreatedOnDate: rec.CreatedOnDate,
	}
}

func (d document) record() *imagecatalog.ImageRecord {
	return &imagecatalog.ImageRecord{
		ID:            d.ID,
		UserName:      d.UserName,
		Category:      d.Category,
		ImageName:     d.ImageName,
		Description:   d.Description,
		CreatedOnDate: d.CreatedOnDate,
	}
}

// Repository implements imagecatalog.MetadataStore on a MongoDB collection
type Repository struct {
	coll *mongo.Collection
}

// Connect dials uri and returns a repository on database/collection. The
// returned close function disconnects the client.
func Connect(ctx context.Context, uri, database, collection string) (*Repository, func(context.Context) error, error) {
	if database == "" {
		return nil, nil, errors.New("database name is required")
	}
	if collection == "" {
		collection = DefaultCollection
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, nil, fmt.Errorf("connect mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, nil, fmt.Errorf("ping mongodb: %w", err)
	}

	repo := New(client.Database(database).Collection(collection))
	if err := repo.EnsureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, nil, err
	}
	return repo, client.Disconnect, nil
}

// New wraps an existing collection
func New(coll *mongo.Collection) *Repository {
	return &Repository{coll: coll}
}

// EnsureIndexes creates the owner/category index used by the queries.
func (r *Repository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "userName", Value: 1}, {Key: "category", Value: 1}},
		Options: options.Index().SetName("userName_category"),
	})
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	return nil
}

func (r *Repository) Upsert(ctx context.Context, record *imagecatalog.ImageRecord) (*imagecatalog.ImageRecord, error) {
	if record == nil || record.ID == "" {
		return nil, errors.New("record id is required")
	}

	doc := toDocument(record)
	_, err := r.coll.ReplaceOne(ctx, idFilter(doc.ID), doc, options.Replace().SetUpsert(true))
	if err != nil {
		return nil, fmt.Errorf("upsert image record %s: %w", doc.ID, err)
	}
	return doc.record(), nil
}

func (r *Repository) QueryByOwner(ctx context.Context, owner string) ([]*imagecatalog.ImageRecord, error) {
	return r.find(ctx, ownerFilter(owner, nil))
}

func (r *Repository) QueryByOwnerAndCategory(ctx context.Context, owner, category string) ([]*imagecatalog.ImageRecord, error) {
	return r.find(ctx, ownerFilter(owner, &category))
}

func (r *Repository) QueryAll(ctx context.Context) ([]*imagecatalog.ImageRecord, error) {
	return r.find(ctx, bson.M{})
}

func (r *Repository) find(ctx context.Context, filter bson.M) ([]*imagecatalog.ImageRecord, error) {
	cursor, err := r.coll.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("find image records: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []document
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode image records: %w", err)
	}

	records := make([]*imagecatalog.ImageRecord, 0, len(docs))
	for _, d := range docs {
		records = append(records, d.record())
	}
	return records, nil
}

func idFilter(id string) bson.M {
	return bson.M{"_id": id}
}

// ownerFilter matches an exact userName and, when category is non-nil, an
// exact category.
func ownerFilter(owner string, category *string) bson.M {
	filter := bson.M{"userName": owner}
	if category != nil {
		filter["category"] = *category
	}
	return filter
}
