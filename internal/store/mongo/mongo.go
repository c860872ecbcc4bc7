// Package mongo is the production document store. Each page collection maps
// to a Mongo collection; notes live in "<collection>_notes" keyed by recordId.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dme-bo/briskolive/internal/record"
	"github.com/dme-bo/briskolive/internal/store"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var _ store.Store = (*Store)(nil)

type Store struct {
	client   *mongo.Client
	database *mongo.Database
}

type noteDoc struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	RecordID     string             `bson:"recordId"`
	Author       string             `bson:"author"`
	Body         string             `bson:"body"`
	NextAction   string             `bson:"nextAction"`
	FollowUpDate string             `bson:"followUpDate,omitempty"`
	CreatedAt    time.Time          `bson:"createdAt"`
}

type contentDoc struct {
	ID                       string `bson:"_id"`
	record.NewsletterContent `bson:",inline"`
}

func Open(ctx context.Context, uri, database string) (*Store, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return &Store{client: client, database: client.Database(database)}, nil
}

func (s *Store) Close(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func (s *Store) ListRecords(ctx context.Context, collection string) ([]record.Record, error) {
	cursor, err := s.database.Collection(collection).Find(ctx, bson.D{})
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", collection, err)
	}
	defer func() { _ = cursor.Close(ctx) }()

	out := []record.Record{}
	for cursor.Next(ctx) {
		var doc bson.M
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode %s: %w", collection, err)
		}
		out = append(out, fromDocument(doc))
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor %s: %w", collection, err)
	}
	return out, nil
}

func (s *Store) GetRecord(ctx context.Context, collection, id string) (record.Record, error) {
	var doc bson.M
	err := s.database.Collection(collection).FindOne(ctx, bson.M{"_id": idFilter(id)}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return record.Record{}, store.ErrNotFound
	}
	if err != nil {
		return record.Record{}, fmt.Errorf("find %s/%s: %w", collection, id, err)
	}
	return fromDocument(doc), nil
}

func (s *Store) CreateRecord(ctx context.Context, collection string, fields map[string]any) (record.Record, error) {
	doc := bson.M{}
	for k, v := range fields {
		if k == "_id" {
			continue
		}
		doc[k] = v
	}
	res, err := s.database.Collection(collection).InsertOne(ctx, doc)
	if err != nil {
		return record.Record{}, fmt.Errorf("insert %s: %w", collection, err)
	}
	doc["_id"] = res.InsertedID
	return fromDocument(doc), nil
}

func (s *Store) ListNotes(ctx context.Context, collection, recordID string) ([]record.Note, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})
	cursor, err := s.database.Collection(store.NotesCollection(collection)).Find(ctx, bson.M{"recordId": recordID}, opts)
	if err != nil {
		return nil, fmt.Errorf("find notes: %w", err)
	}
	defer func() { _ = cursor.Close(ctx) }()

	var docs []noteDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode notes: %w", err)
	}
	out := make([]record.Note, 0, len(docs))
	for _, d := range docs {
		out = append(out, record.Note{
			ID:           d.ID.Hex(),
			RecordID:     d.RecordID,
			Author:       d.Author,
			Body:         d.Body,
			NextAction:   d.NextAction,
			FollowUpDate: d.FollowUpDate,
			CreatedAt:    d.CreatedAt.UTC(),
		})
	}
	return out, nil
}

func (s *Store) AddNote(ctx context.Context, collection, recordID string, draft record.NoteDraft) (record.Note, error) {
	draft = draft.Normalize()
	doc := noteDoc{
		ID:           primitive.NewObjectID(),
		RecordID:     recordID,
		Author:       draft.Author,
		Body:         draft.Body,
		NextAction:   draft.NextAction,
		FollowUpDate: draft.FollowUpDate,
		// Mongo keeps milliseconds; truncate so the returned note matches a re-read.
		CreatedAt: time.Now().UTC().Truncate(time.Millisecond),
	}
	if _, err := s.database.Collection(store.NotesCollection(collection)).InsertOne(ctx, doc); err != nil {
		return record.Note{}, fmt.Errorf("insert note: %w", err)
	}
	return record.Note{
		ID:           doc.ID.Hex(),
		RecordID:     recordID,
		Author:       doc.Author,
		Body:         doc.Body,
		NextAction:   doc.NextAction,
		FollowUpDate: doc.FollowUpDate,
		CreatedAt:    doc.CreatedAt,
	}, nil
}

func (s *Store) GetContent(ctx context.Context) (record.NewsletterContent, error) {
	var doc contentDoc
	err := s.database.Collection(store.ContentCollection).FindOne(ctx, bson.M{"_id": store.ContentID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return record.NewsletterContent{}, store.ErrNotFound
	}
	if err != nil {
		return record.NewsletterContent{}, fmt.Errorf("find newsletter content: %w", err)
	}
	return doc.NewsletterContent, nil
}

func (s *Store) SaveContent(ctx context.Context, content record.NewsletterContent) error {
	content.UpdatedAt = time.Now().UTC().Truncate(time.Millisecond)
	doc := contentDoc{ID: store.ContentID, NewsletterContent: content}
	opts := options.Replace().SetUpsert(true)
	if _, err := s.database.Collection(store.ContentCollection).ReplaceOne(ctx, bson.M{"_id": store.ContentID}, doc, opts); err != nil {
		return fmt.Errorf("save newsletter content: %w", err)
	}
	return nil
}

// idFilter matches both ObjectID and string primary keys, since records
// created outside this service may use either.
func idFilter(id string) any {
	if oid, err := primitive.ObjectIDFromHex(id); err == nil {
		return bson.M{"$in": bson.A{oid, id}}
	}
	return id
}

func fromDocument(doc bson.M) record.Record {
	rec := record.Record{Fields: make(map[string]any, len(doc))}
	for k, v := range doc {
		if k == "_id" {
			rec.ID = idString(v)
			continue
		}
		rec.Fields[k] = normalize(v)
	}
	return rec
}

func idString(v any) string {
	switch id := v.(type) {
	case primitive.ObjectID:
		return id.Hex()
	case string:
		return id
	default:
		return fmt.Sprint(id)
	}
}

// normalize turns driver specific scalar types into the plain values the
// filter and export code understand.
func normalize(v any) any {
	switch val := v.(type) {
	case primitive.DateTime:
		return val.Time().UTC()
	case primitive.ObjectID:
		return val.Hex()
	case primitive.Decimal128:
		return val.String()
	case primitive.A:
		parts := make([]string, 0, len(val))
		for _, item := range val {
			if text, ok := record.Text(normalize(item)); ok {
				parts = append(parts, text)
			}
		}
		return strings.Join(parts, ", ")
	default:
		return val
	}
}
