package store

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"product-catalog/internal/catalog"
)

type productDoc struct {
	ID    primitive.ObjectID `bson:"_id,omitempty"`
	Name  string             `bson:"name"`
	Price float64            `bson:"price"`
}

func (d productDoc) toProduct() catalog.Product {
	return catalog.Product{ID: d.ID.Hex(), Name: d.Name, Price: d.Price}
}

// Mongo persists products in a schemaless collection with ObjectID ids.
type Mongo struct {
	client *mongo.Client
	coll   *mongo.Collection
}

func NewMongo(client *mongo.Client, database, collection string) *Mongo {
	return &Mongo{
		client: client,
		coll:   client.Database(database).Collection(collection),
	}
}

// parseObjectID rejects anything that is not a well-formed hex ObjectID.
func parseObjectID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, catalog.ErrInvalidID
	}
	return oid, nil
}

func (s *Mongo) List(ctx context.Context) ([]catalog.Product, error) {
	cursor, err := s.coll.Find(ctx, bson.D{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("find products: %w", err)
	}
	defer cursor.Close(ctx)

	list := make([]catalog.Product, 0)
	for cursor.Next(ctx) {
		var doc productDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode product: %w", err)
		}
		list = append(list, doc.toProduct())
	}

	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("iterate products: %w", err)
	}

	return list, nil
}

func (s *Mongo) GetByID(ctx context.Context, id string) (catalog.Product, error) {
	oid, err := parseObjectID(id)
	if err != nil {
		return catalog.Product{}, err
	}

	var doc productDoc
	if err := s.coll.FindOne(ctx, bson.D{{Key: "_id", Value: oid}}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return catalog.Product{}, catalog.ErrNotFound
		}
		return catalog.Product{}, fmt.Errorf("get product %s: %w", id, err)
	}
	return doc.toProduct(), nil
}

// InsertMany writes the whole batch as one ordered InsertMany command, the
// driver's batched-write primitive. Inputs are validated before they get
// here, so the batch carries no document that the collection can refuse.
func (s *Mongo) InsertMany(ctx context.Context, items []catalog.NewProduct) ([]catalog.Product, error) {
	docs := make([]interface{}, len(items))
	for i, item := range items {
		docs[i] = productDoc{ID: primitive.NewObjectID(), Name: item.Name, Price: item.Price}
	}

	res, err := s.coll.InsertMany(ctx, docs, options.InsertMany().SetOrdered(true))
	if err != nil {
		return nil, fmt.Errorf("insert products: %w", err)
	}

	created := make([]catalog.Product, len(items))
	for i, inserted := range res.InsertedIDs {
		oid, ok := inserted.(primitive.ObjectID)
		if !ok {
			return nil, fmt.Errorf("unexpected inserted id type %T", inserted)
		}
		created[i] = catalog.Product{ID: oid.Hex(), Name: items[i].Name, Price: items[i].Price}
	}

	return created, nil
}

func (s *Mongo) UpdateByID(ctx context.Context, id string, fields catalog.NewProduct) (catalog.Product, error) {
	oid, err := parseObjectID(id)
	if err != nil {
		return catalog.Product{}, err
	}

	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "name", Value: fields.Name},
		{Key: "price", Value: fields.Price},
	}}}

	var doc productDoc
	err = s.coll.FindOneAndUpdate(
		ctx,
		bson.D{{Key: "_id", Value: oid}},
		update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return catalog.Product{}, catalog.ErrNotFound
		}
		return catalog.Product{}, fmt.Errorf("update product %s: %w", id, err)
	}
	return doc.toProduct(), nil
}

func (s *Mongo) DeleteByID(ctx context.Context, id string) (catalog.Product, error) {
	oid, err := parseObjectID(id)
	if err != nil {
		return catalog.Product{}, err
	}

	var doc productDoc
	if err := s.coll.FindOneAndDelete(ctx, bson.D{{Key: "_id", Value: oid}}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return catalog.Product{}, catalog.ErrNotFound
		}
		return catalog.Product{}, fmt.Errorf("delete product %s: %w", id, err)
	}
	return doc.toProduct(), nil
}

// Reset drops every document. ObjectIDs carry no sequence, so there is
// nothing to restart.
func (s *Mongo) Reset(ctx context.Context) error {
	if _, err := s.coll.DeleteMany(ctx, bson.D{}); err != nil {
		return fmt.Errorf("reset products: %w", err)
	}
	return nil
}

func (s *Mongo) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()
	if err := s.client.Ping(ctx, nil); err != nil {
		return fmt.Errorf("%w: %v", catalog.ErrStoreUnavailable, err)
	}
	return nil
}
