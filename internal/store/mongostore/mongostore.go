// Package mongostore implements store.Store on MongoDB.
package mongostore

import (
	"context"
	"errors"
	"fmt"

	"github.com/JonMunkholm/PartsHole/internal/model"
	"github.com/JonMunkholm/PartsHole/internal/store"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collections names the collection for each entity.
type Collections struct {
	Invoices    string
	PartNumbers string
	Users       string
	Parts       string
	Bins        string
}

// DefaultCollections returns the standard collection names.
func DefaultCollections() Collections {
	return Collections{
		Invoices:    "invoices",
		PartNumbers: "part_numbers",
		Users:       "users",
		Parts:       "parts",
		Bins:        "bins",
	}
}

// Store is a store.Store backed by one MongoDB database.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
	cols   Collections
}

var _ store.Store = (*Store)(nil)

// Connect dials uri, verifies the connection and ensures the unique indexes.
func Connect(ctx context.Context, uri, database string, cols Collections) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect to mongo: %w", err)
	}

	s := &Store{client: client, db: client.Database(database), cols: cols}

	if err := s.Ping(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	if err := s.EnsureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return s, nil
}

// EnsureIndexes creates the unique indexes the store relies on.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.db.Collection(s.cols.Invoices).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "order_number", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("uniq_order_number"),
	})
	if err != nil {
		return fmt.Errorf("create invoice index: %w", err)
	}

	_, err = s.db.Collection(s.cols.PartNumbers).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    partNumberScopeKeys(),
		Options: options.Index().SetUnique(true).SetName("uniq_part_number_scope"),
	})
	if err != nil {
		return fmt.Errorf("create part number index: %w", err)
	}
	return nil
}

func partNumberScopeKeys() bson.D {
	return bson.D{
		{Key: "owner_id", Value: 1},
		{Key: "category", Value: 1},
		{Key: "subcategory", Value: 1},
		{Key: "sequence", Value: 1},
	}
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx, nil); err != nil {
		return fmt.Errorf("ping mongo: %w", err)
	}
	return nil
}

func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *Store) Invoices() store.InvoiceStore {
	return invoices{s.db.Collection(s.cols.Invoices)}
}

func (s *Store) PartNumbers() store.PartNumberStore {
	return partNumbers{s.db.Collection(s.cols.PartNumbers)}
}

func (s *Store) Users() store.UserStore {
	return users{s.db.Collection(s.cols.Users)}
}

func (s *Store) Parts() store.PartStore {
	return parts{s.db.Collection(s.cols.Parts)}
}

func (s *Store) Bins() store.BinStore {
	return bins{s.db.Collection(s.cols.Bins)}
}

// mapErr translates driver errors into store sentinels.
func mapErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return fmt.Errorf("%w: %w", store.ErrNotFound, err)
	case mongo.IsDuplicateKeyError(err):
		return fmt.Errorf("%w: %w", store.ErrDuplicateKey, err)
	case errors.Is(err, mongo.ErrUnacknowledgedWrite):
		return fmt.Errorf("%w: %w", store.ErrNotAcknowledged, err)
	default:
		return err
	}
}

// updateResult converts a driver result. An unacknowledged write reports
// Acknowledged=false with no error so callers decide how to treat it.
func updateResult(res *mongo.UpdateResult, err error) (store.WriteResult, error) {
	if errors.Is(err, mongo.ErrUnacknowledgedWrite) {
		return store.WriteResult{}, nil
	}
	if err != nil {
		return store.WriteResult{}, mapErr(err)
	}
	return store.WriteResult{
		Acknowledged: true,
		Matched:      res.MatchedCount,
		Modified:     res.ModifiedCount,
	}, nil
}

func byIDs(ids []string) bson.M {
	return bson.M{"_id": bson.M{"$in": ids}}
}

// findMany decodes every document matching ids and converts it with conv.
func findMany[D any, T model.Identifiable](ctx context.Context, col *mongo.Collection, ids []string, conv func(D) (T, error)) ([]T, error) {
	if len(ids) == 0 {
		return []T{}, nil
	}

	cursor, err := col.Find(ctx, byIDs(ids))
	if err != nil {
		return nil, mapErr(err)
	}
	defer cursor.Close(ctx)

	var docs []D
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, mapErr(err)
	}

	out := make([]T, 0, len(docs))
	for _, d := range docs {
		rec, err := conv(d)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return store.OrderByIDs(ids, out), nil
}

// --- invoices ---

type invoices struct{ col *mongo.Collection }

func (s invoices) Get(ctx context.Context, id string) (model.Invoice, error) {
	return s.findOne(ctx, bson.M{"_id": id})
}

func (s invoices) FindByOrderNumber(ctx context.Context, orderNumber uint64) (model.Invoice, error) {
	return s.findOne(ctx, bson.M{"order_number": orderKey(orderNumber)})
}

func (s invoices) findOne(ctx context.Context, filter bson.M) (model.Invoice, error) {
	var doc invoiceDoc
	if err := s.col.FindOne(ctx, filter).Decode(&doc); err != nil {
		return model.Invoice{}, mapErr(err)
	}
	return doc.model()
}

func (s invoices) GetMany(ctx context.Context, ids []string) ([]model.Invoice, error) {
	return findMany(ctx, s.col, ids, invoiceDoc.model)
}

func (s invoices) Insert(ctx context.Context, inv model.Invoice) error {
	doc, err := toInvoiceDoc(inv)
	if err != nil {
		return err
	}
	_, err = s.col.InsertOne(ctx, doc)
	return mapErr(err)
}

func (s invoices) Replace(ctx context.Context, inv model.Invoice) (store.WriteResult, error) {
	doc, err := toInvoiceDoc(inv)
	if err != nil {
		return store.WriteResult{}, err
	}
	return updateResult(s.col.ReplaceOne(ctx, bson.M{"_id": inv.ID}, doc))
}

// --- part numbers ---

type partNumbers struct{ col *mongo.Collection }

func (s partNumbers) Get(ctx context.Context, id string) (model.PartNumber, error) {
	var doc partNumberDoc
	if err := s.col.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		return model.PartNumber{}, mapErr(err)
	}
	return doc.model(), nil
}

func (s partNumbers) GetMany(ctx context.Context, ids []string) ([]model.PartNumber, error) {
	return findMany(ctx, s.col, ids, func(d partNumberDoc) (model.PartNumber, error) {
		return d.model(), nil
	})
}

func (s partNumbers) Insert(ctx context.Context, pn model.PartNumber) error {
	_, err := s.col.InsertOne(ctx, toPartNumberDoc(pn))
	return mapErr(err)
}

func scopeFilter(ownerID string, category, subCategory uint8) bson.M {
	return bson.M{
		"owner_id":    ownerID,
		"category":    int32(category),
		"subcategory": int32(subCategory),
	}
}

func (s partNumbers) MaxSequence(ctx context.Context, ownerID string, category, subCategory uint8) (uint32, error) {
	opts := options.FindOne().
		SetSort(bson.D{{Key: "sequence", Value: -1}}).
		SetProjection(bson.M{"sequence": 1})

	var doc partNumberDoc
	err := s.col.FindOne(ctx, scopeFilter(ownerID, category, subCategory), opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return 0, nil
	}
	if err != nil {
		return 0, mapErr(err)
	}
	return uint32(doc.Sequence), nil
}

// --- users ---

type users struct{ col *mongo.Collection }

func (s users) Get(ctx context.Context, id string) (model.User, error) {
	var doc userDoc
	if err := s.col.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		return model.User{}, mapErr(err)
	}
	return doc.model(), nil
}

func (s users) Insert(ctx context.Context, u model.User) error {
	_, err := s.col.InsertOne(ctx, toUserDoc(u))
	return mapErr(err)
}

// setField builds an update touching exactly one field.
func setField(field string, refs []string) bson.M {
	return bson.M{"$set": bson.M{field: nonNil(refs)}}
}

// refsFilter matches the user only while field still holds expected. An
// empty expected list also matches a null or missing field, which userDoc
// reads back as empty.
func refsFilter(userID, field string, expected []string) bson.M {
	if len(expected) == 0 {
		return bson.M{"_id": userID, field: bson.M{"$in": bson.A{nil, bson.A{}}}}
	}
	return bson.M{"_id": userID, field: expected}
}

func (s users) SetReferences(ctx context.Context, userID, field string, expected, refs []string) (store.WriteResult, error) {
	if !store.KnownReferenceField(field) {
		return store.WriteResult{}, fmt.Errorf("unknown reference field %q", field)
	}
	return updateResult(s.col.UpdateOne(ctx, refsFilter(userID, field, expected), setField(field, refs)))
}

// --- parts and bins ---

type parts struct{ col *mongo.Collection }

func (s parts) GetMany(ctx context.Context, ids []string) ([]model.Part, error) {
	return findMany(ctx, s.col, ids, func(d partDoc) (model.Part, error) { return d.model(), nil })
}

func (s parts) Insert(ctx context.Context, p model.Part) error {
	_, err := s.col.InsertOne(ctx, toPartDoc(p))
	return mapErr(err)
}

type bins struct{ col *mongo.Collection }

func (s bins) GetMany(ctx context.Context, ids []string) ([]model.Bin, error) {
	return findMany(ctx, s.col, ids, func(d binDoc) (model.Bin, error) { return d.model(), nil })
}

func (s bins) Insert(ctx context.Context, b model.Bin) error {
	_, err := s.col.InsertOne(ctx, toBinDoc(b))
	return mapErr(err)
}
