package mongo

import (
	"context"
	"errors"
	"fmt"
	"os"
	"reflect"
	"testing"
	"time"

	"github.com/dme-bo/briskolive/internal/store"
	"github.com/dme-bo/briskolive/internal/store/storetest"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func TestNormalize(t *testing.T) {
	when := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)
	oid := primitive.NewObjectID()
	dec, err := primitive.ParseDecimal128("12.50")
	if err != nil {
		t.Fatal(err)
	}

	cases := []struct {
		name string
		in   any
		want any
	}{
		{"string", "Pune", "Pune"},
		{"int32", int32(22), int32(22)},
		{"datetime", primitive.NewDateTimeFromTime(when), when},
		{"object id", oid, oid.Hex()},
		{"decimal", dec, "12.50"},
		{"array", primitive.A{"Driving", "Security"}, "Driving, Security"},
		{"mixed array", primitive.A{"Pune", int32(3), nil}, "Pune, 3"},
		{"empty array", primitive.A{}, ""},
	}
	for _, tc := range cases {
		got := normalize(tc.in)
		if want, ok := tc.want.(time.Time); ok {
			if at, isTime := got.(time.Time); !isTime || !at.Equal(want) {
				t.Errorf("%s: normalize(%#v) = %#v, want %v", tc.name, tc.in, got, want)
			}
			continue
		}
		if !reflect.DeepEqual(got, tc.want) {
			t.Errorf("%s: normalize(%#v) = %#v, want %#v", tc.name, tc.in, got, tc.want)
		}
	}
}

func TestIDFilter(t *testing.T) {
	oid := primitive.NewObjectID()
	want := bson.M{"$in": bson.A{oid, oid.Hex()}}
	if got := idFilter(oid.Hex()); !reflect.DeepEqual(got, want) {
		t.Fatalf("idFilter(hex) = %#v, want %#v", got, want)
	}
	if got := idFilter("legacy-7"); got != "legacy-7" {
		t.Fatalf("idFilter(string) = %#v", got)
	}
}

func TestFromDocument(t *testing.T) {
	oid := primitive.NewObjectID()
	rec := fromDocument(bson.M{
		"_id":    oid,
		"name":   "Col Rajesh Kumar",
		"skills": primitive.A{"Driving", "Security"},
	})
	if rec.ID != oid.Hex() {
		t.Fatalf("id = %q, want %q", rec.ID, oid.Hex())
	}
	if _, ok := rec.Fields["_id"]; ok {
		t.Fatalf("_id leaked into fields: %#v", rec.Fields)
	}
	if rec.String("skills") != "Driving, Security" || rec.String("name") != "Col Rajesh Kumar" {
		t.Fatalf("unexpected fields %#v", rec.Fields)
	}

	if got := fromDocument(bson.M{"_id": "M-104"}).ID; got != "M-104" {
		t.Fatalf("string id = %q", got)
	}
	if got := fromDocument(bson.M{"_id": int32(7)}).ID; got != "7" {
		t.Fatalf("numeric id = %q", got)
	}
}

func TestMockedQueries(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("record not found", func(mt *mtest.T) {
		s := &Store{client: mt.Client, database: mt.DB}
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "test.members", mtest.FirstBatch))
		if _, err := s.GetRecord(context.Background(), "members", primitive.NewObjectID().Hex()); !errors.Is(err, store.ErrNotFound) {
			mt.Fatalf("err = %v, want ErrNotFound", err)
		}
	})

	mt.Run("content not found", func(mt *mtest.T) {
		s := &Store{client: mt.Client, database: mt.DB}
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "test.newsletter", mtest.FirstBatch))
		if _, err := s.GetContent(context.Background()); !errors.Is(err, store.ErrNotFound) {
			mt.Fatalf("err = %v, want ErrNotFound", err)
		}
	})

	mt.Run("list records", func(mt *mtest.T) {
		s := &Store{client: mt.Client, database: mt.DB}
		first := primitive.NewObjectID()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "test.members", mtest.FirstBatch,
			bson.D{{Key: "_id", Value: first}, {Key: "name", Value: "Col Rajesh Kumar"}},
			bson.D{{Key: "_id", Value: "M-2"}, {Key: "name", Value: "Lt Col Priya Singh"}},
		))
		recs, err := s.ListRecords(context.Background(), "members")
		if err != nil {
			mt.Fatalf("list: %v", err)
		}
		if len(recs) != 2 || recs[0].ID != first.Hex() || recs[1].ID != "M-2" || recs[1].String("name") != "Lt Col Priya Singh" {
			mt.Fatalf("unexpected records %+v", recs)
		}
	})

	mt.Run("list notes newest first", func(mt *mtest.T) {
		s := &Store{client: mt.Client, database: mt.DB}
		newer := time.Date(2024, 3, 2, 10, 0, 0, 0, time.UTC)
		older := newer.Add(-24 * time.Hour)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "test.members_notes", mtest.FirstBatch,
			bson.D{{Key: "_id", Value: primitive.NewObjectID()}, {Key: "recordId", Value: "r1"}, {Key: "body", Value: "second call"}, {Key: "createdAt", Value: newer}},
			bson.D{{Key: "_id", Value: primitive.NewObjectID()}, {Key: "recordId", Value: "r1"}, {Key: "body", Value: "first call"}, {Key: "createdAt", Value: older}},
		))
		notes, err := s.ListNotes(context.Background(), "members", "r1")
		if err != nil {
			mt.Fatalf("list notes: %v", err)
		}
		if len(notes) != 2 || notes[0].Body != "second call" || !notes[0].CreatedAt.Equal(newer) || notes[1].RecordID != "r1" {
			mt.Fatalf("unexpected notes %+v", notes)
		}

		started := mt.GetStartedEvent()
		if started == nil || started.CommandName != "find" {
			mt.Fatalf("expected a find command, got %+v", started)
		}
		sort := started.Command.Lookup("sort").Document()
		elems, err := sort.Elements()
		if err != nil || len(elems) != 2 {
			mt.Fatalf("sort = %v (%v)", sort, err)
		}
		if elems[0].Key() != "createdAt" || elems[0].Value().AsInt64() != -1 {
			mt.Fatalf("notes must sort by createdAt descending, got %v", sort)
		}
	})

	mt.Run("create record", func(mt *mtest.T) {
		s := &Store{client: mt.Client, database: mt.DB}
		mt.AddMockResponses(mtest.CreateSuccessResponse())
		rec, err := s.CreateRecord(context.Background(), "members", map[string]any{"_id": "ignored", "name": "Col Rajesh Kumar"})
		if err != nil {
			mt.Fatalf("create: %v", err)
		}
		if _, err := primitive.ObjectIDFromHex(rec.ID); err != nil {
			mt.Fatalf("id %q is not an ObjectID hex", rec.ID)
		}
		if _, ok := rec.Fields["_id"]; ok || rec.String("name") != "Col Rajesh Kumar" {
			mt.Fatalf("unexpected fields %#v", rec.Fields)
		}
	})
}

// TestMongoStore runs the shared contract against a live server when
// MONGO_TEST_URI is set, using a throwaway database.
func TestMongoStore(t *testing.T) {
	uri := os.Getenv("MONGO_TEST_URI")
	if uri == "" {
		t.Skip("MONGO_TEST_URI not set")
	}
	ctx := context.Background()
	s, err := Open(ctx, uri, fmt.Sprintf("briskolive_test_%d", time.Now().UnixNano()))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() {
		_ = s.database.Drop(ctx)
		_ = s.Close(ctx)
	})
	storetest.Run(t, s, nil)
}
