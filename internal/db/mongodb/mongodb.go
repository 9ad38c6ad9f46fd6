// Package mongodb stores the biolink document in a MongoDB collection.
//
// The collection holds one record whose body is the JSON encoding of the
// document. Keeping the JSON text, rather than mapping the document onto
// BSON fields, preserves the key order of socials byte for byte.
package mongodb

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/patric-chuzhbe/biolink/internal/models"
)

const (
	collectionName = "documents"
	documentID     = "biolink"
)

type record struct {
	ID        string    `bson:"_id"`
	Body      string    `bson:"body"`
	UpdatedAt time.Time `bson:"updatedAt"`
}

// MongoDB is a MongoDB-backed document storage.
type MongoDB struct {
	client            *mongo.Client
	collection        *mongo.Collection
	connectionTimeout time.Duration
}

// New connects to uri and binds the storage to the given database.
func New(ctx context.Context, uri, database string, connectionTimeout time.Duration) (*MongoDB, error) {
	ctxWithTimeout, cancel := context.WithTimeout(ctx, connectionTimeout)
	defer cancel()

	client, err := mongo.Connect(ctxWithTimeout, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, models.NewStorageError("connect", err)
	}
	if err := client.Ping(ctxWithTimeout, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, models.NewStorageError("connect", err)
	}

	return &MongoDB{
		client:            client,
		collection:        client.Database(database).Collection(collectionName),
		connectionTimeout: connectionTimeout,
	}, nil
}

func (db *MongoDB) GetDocument(ctx context.Context) (*models.Document, error) {
	ctxWithTimeout, cancel := context.WithTimeout(ctx, db.connectionTimeout)
	defer cancel()

	body, err := db.findBody(ctxWithTimeout)
	if errors.Is(err, mongo.ErrNoDocuments) {
		body, err = db.insertDefault(ctxWithTimeout)
	}
	if err != nil {
		return nil, models.NewStorageError("read", err)
	}

	doc, err := models.DecodeDocument([]byte(body))
	if err != nil {
		return nil, models.NewStorageError("decode", err)
	}

	return doc, nil
}

func (db *MongoDB) SaveDocument(ctx context.Context, doc *models.Document) error {
	body, err := models.EncodeDocument(doc)
	if err != nil {
		return models.NewStorageError("encode", err)
	}

	ctxWithTimeout, cancel := context.WithTimeout(ctx, db.connectionTimeout)
	defer cancel()

	_, err = db.collection.ReplaceOne(
		ctxWithTimeout,
		bson.M{"_id": documentID},
		record{ID: documentID, Body: string(body), UpdatedAt: time.Now().UTC()},
		options.Replace().SetUpsert(true),
	)

	return models.NewStorageError("write", err)
}

func (db *MongoDB) findBody(ctx context.Context) (string, error) {
	var rec record
	if err := db.collection.FindOne(ctx, bson.M{"_id": documentID}).Decode(&rec); err != nil {
		return "", err
	}

	return rec.Body, nil
}

// insertDefault writes the default document only if no record exists, then
// returns whatever the collection holds.
func (db *MongoDB) insertDefault(ctx context.Context) (string, error) {
	body, err := models.EncodeDocument(models.DefaultDocument())
	if err != nil {
		return "", err
	}

	_, err = db.collection.UpdateOne(
		ctx,
		bson.M{"_id": documentID},
		bson.M{"$setOnInsert": bson.M{"body": string(body), "updatedAt": time.Now().UTC()}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return "", err
	}

	return db.findBody(ctx)
}

func (db *MongoDB) Ping(ctx context.Context) error {
	ctxWithTimeout, cancel := context.WithTimeout(ctx, db.connectionTimeout)
	defer cancel()

	return models.NewStorageError("ping", db.client.Ping(ctxWithTimeout, nil))
}

func (db *MongoDB) Close() error {
	return db.client.Disconnect(context.Background())
}

// drop removes the stored record. Used by tests to start from an empty collection.
func (db *MongoDB) drop(ctx context.Context) error {
	_, err := db.collection.DeleteOne(ctx, bson.M{"_id": documentID})
	return err
}
