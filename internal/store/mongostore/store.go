// Package mongostore is the MongoDB product and order store.
//
// Products are documents keyed by their ID with search tokens stored as an
// indexed array, so token filters map to $in and $all directly. Units of
// work run as multi-document transactions and need a replica set.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/goliatone/go-catalog-cache/catalog"
	"github.com/goliatone/go-catalog-cache/errs"
	"github.com/goliatone/go-catalog-cache/internal/logging"
	"github.com/goliatone/go-catalog-cache/orders"
	"github.com/goliatone/go-catalog-cache/query"
	"github.com/goliatone/go-catalog-cache/uow"
)

const (
	productsCollection = "products"
	ordersCollection   = "orders"
)

// Config selects the deployment and database.
type Config struct {
	URI      string
	Database string
}

// Store implements catalog.Store and orders.Store on a Mongo database.
type Store struct {
	client   *mongo.Client
	db       *mongo.Database
	products *mongo.Collection
	orders   *mongo.Collection
	logger   zerolog.Logger
	now      func() time.Time
}

var (
	_ catalog.Store = (*Store)(nil)
	_ orders.Store  = (*Store)(nil)
)

// Option configures a Store.
type Option func(*Store)

// WithLogger overrides the component logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// Open connects to cfg.URI, verifies the connection and ensures indexes.
func Open(ctx context.Context, cfg Config, opts ...Option) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	s := New(client.Database(cfg.Database), opts...)
	if err := s.EnsureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return s, nil
}

// New wraps db.
func New(db *mongo.Database, opts ...Option) *Store {
	s := &Store{
		client:   db.Client(),
		db:       db,
		products: db.Collection(productsCollection),
		orders:   db.Collection(ordersCollection),
		logger:   logging.NewLogger("mongostore"),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DB returns the underlying database.
func (s *Store) DB() *mongo.Database {
	return s.db
}

// Close disconnects the client.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// EnsureIndexes creates the product identity and token indexes and the
// order product index.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.products.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "artist", Value: 1}, {Key: "album", Value: 1}, {Key: "format", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("products_identity"),
		},
		{
			Keys:    bson.D{{Key: "searchTokens", Value: 1}},
			Options: options.Index().SetName("products_tokens"),
		},
	})
	if err != nil {
		return fmt.Errorf("create product indexes: %w", err)
	}

	_, err = s.orders.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "productId", Value: 1}},
		Options: options.Index().SetUnique(false),
	})
	if err != nil {
		return fmt.Errorf("create order indexes: %w", err)
	}
	return nil
}

type session struct {
	client *mongo.Client
	sess   mongo.Session
}

// Begin starts a client session with an open transaction.
func (s *Store) Begin(ctx context.Context) (uow.Session, error) {
	sess, err := s.client.StartSession()
	if err != nil {
		return nil, fmt.Errorf("start session: %w", err)
	}
	if err := sess.StartTransaction(); err != nil {
		sess.EndSession(ctx)
		return nil, fmt.Errorf("start transaction: %w", err)
	}
	return &session{client: s.client, sess: sess}, nil
}

func (t *session) Commit(ctx context.Context) error {
	defer t.sess.EndSession(ctx)
	return t.sess.CommitTransaction(ctx)
}

func (t *session) Abort(ctx context.Context) error {
	defer t.sess.EndSession(ctx)
	return t.sess.AbortTransaction(ctx)
}

// sessionContext binds ctx to the transaction of the unit of work in ctx,
// when that unit belongs to this client.
func (s *Store) sessionContext(ctx context.Context) context.Context {
	if current, ok := uow.SessionFrom(ctx); ok {
		if t, ok := current.(*session); ok && t.client == s.client {
			return mongo.NewSessionContext(ctx, t.sess)
		}
	}
	return ctx
}

func (s *Store) FindIDs(ctx context.Context, filter query.Filter, limit int) ([]string, error) {
	doc, err := toBSON(filter)
	if err != nil {
		return nil, err
	}

	opts := options.Find().
		SetProjection(bson.D{{Key: "_id", Value: 1}}).
		SetSort(bson.D{{Key: "_id", Value: 1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	ctx = s.sessionContext(ctx)
	cursor, err := s.products.Find(ctx, doc, opts)
	if err != nil {
		return nil, fmt.Errorf("find product ids: %w", err)
	}

	var rows []struct {
		ID string `bson:"_id"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("decode product ids: %w", err)
	}

	ids := make([]string, len(rows))
	for i, row := range rows {
		ids[i] = row.ID
	}
	return ids, nil
}

func (s *Store) FindByID(ctx context.Context, id string) (catalog.Product, error) {
	var doc productDoc
	err := s.products.FindOne(s.sessionContext(ctx), bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return catalog.Product{}, errs.NotFound("product", id)
	}
	if err != nil {
		return catalog.Product{}, fmt.Errorf("find product %s: %w", id, err)
	}
	return doc.toProduct(), nil
}

func (s *Store) Find(ctx context.Context, filter query.Filter, skip, limit int) ([]catalog.Product, error) {
	doc, err := toBSON(filter)
	if err != nil {
		return nil, err
	}

	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	if skip > 0 {
		opts.SetSkip(int64(skip))
	}

	ctx = s.sessionContext(ctx)
	cursor, err := s.products.Find(ctx, doc, opts)
	if err != nil {
		return nil, fmt.Errorf("find products: %w", err)
	}

	var docs []productDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode products: %w", err)
	}

	out := make([]catalog.Product, len(docs))
	for i := range docs {
		out[i] = docs[i].toProduct()
	}
	return out, nil
}

func (s *Store) Count(ctx context.Context, filter query.Filter) (int, error) {
	doc, err := toBSON(filter)
	if err != nil {
		return 0, err
	}
	n, err := s.products.CountDocuments(s.sessionContext(ctx), doc)
	if err != nil {
		return 0, fmt.Errorf("count products: %w", err)
	}
	return int(n), nil
}

func (s *Store) Insert(ctx context.Context, p catalog.Product) error {
	_, err := s.products.InsertOne(s.sessionContext(ctx), toProductDoc(p))
	if mongo.IsDuplicateKeyError(err) {
		return errs.Conflict("product", identity(p))
	}
	if err != nil {
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

// Update sets every field but qty in one findAndModify, so decrements
// committed since p was read survive.
func (s *Store) Update(ctx context.Context, p catalog.Product) (catalog.Product, error) {
	d := toProductDoc(p)
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "artist", Value: d.Artist},
		{Key: "album", Value: d.Album},
		{Key: "format", Value: d.Format},
		{Key: "category", Value: d.Category},
		{Key: "price", Value: d.Price},
		{Key: "mbid", Value: d.MBID},
		{Key: "tracklist", Value: d.Tracklist},
		{Key: "searchTokens", Value: d.SearchTokens},
		{Key: "created", Value: d.Created},
		{Key: "lastModified", Value: d.LastModified},
	}}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc productDoc
	err := s.products.FindOneAndUpdate(s.sessionContext(ctx), bson.M{"_id": p.ID}, update, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return catalog.Product{}, errs.NotFound("product", p.ID)
	}
	if mongo.IsDuplicateKeyError(err) {
		return catalog.Product{}, errs.Conflict("product", identity(p))
	}
	if err != nil {
		return catalog.Product{}, fmt.Errorf("update product %s: %w", p.ID, err)
	}
	return doc.toProduct(), nil
}

// ConditionalDecrement is a single guarded findAndModify. No matching
// document means the product is absent or holds less than qty.
func (s *Store) ConditionalDecrement(ctx context.Context, id string, qty int) (catalog.Product, bool, error) {
	filter := bson.D{
		{Key: "_id", Value: id},
		{Key: "qty", Value: bson.D{{Key: query.OpGTE, Value: qty}}},
	}
	update := bson.D{
		{Key: "$inc", Value: bson.D{{Key: "qty", Value: -qty}}},
		{Key: "$set", Value: bson.D{{Key: "lastModified", Value: s.now().UTC()}}},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc productDoc
	err := s.products.FindOneAndUpdate(s.sessionContext(ctx), filter, update, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		s.logger.Debug().Str("id", id).Int("qty", qty).Msg("conditional decrement matched nothing")
		return catalog.Product{}, false, nil
	}
	if err != nil {
		return catalog.Product{}, false, fmt.Errorf("decrement product %s: %w", id, err)
	}
	return doc.toProduct(), true, nil
}

func (s *Store) InsertOrder(ctx context.Context, o orders.Order) error {
	_, err := s.orders.InsertOne(s.sessionContext(ctx), toOrderDoc(o))
	if mongo.IsDuplicateKeyError(err) {
		return errs.Conflict("order", o.ID)
	}
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

func (s *Store) FindOrder(ctx context.Context, id string) (orders.Order, error) {
	var doc orderDoc
	err := s.orders.FindOne(s.sessionContext(ctx), bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return orders.Order{}, errs.NotFound("order", id)
	}
	if err != nil {
		return orders.Order{}, fmt.Errorf("find order %s: %w", id, err)
	}
	return doc.toOrder(), nil
}

func identity(p catalog.Product) string {
	return p.Artist + " / " + p.Album + " / " + string(p.Format)
}
