package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/sig-0/remesas/storage"
	"github.com/sig-0/remesas/storage/types"
)

const (
	transactionsCollection = "transactions"
	accountsCollection     = "admin_accounts"
	configCollection       = "config"

	// marginsDocumentID is the config document holding the margins
	marginsDocumentID = "margins"

	defaultConnectTimeout = 10 * time.Second
)

var (
	errMissingURI      = errors.New("mongo URI cannot be empty")
	errMissingDatabase = errors.New("database name cannot be empty")
)

// Connect opens and verifies a client connection to the given database
func Connect(ctx context.Context, uri, database string, timeout time.Duration) (*mongo.Client, *mongo.Database, error) {
	if uri == "" {
		return nil, nil, errMissingURI
	}

	if database == "" {
		return nil, nil, errMissingDatabase
	}

	if timeout <= 0 {
		timeout = defaultConnectTimeout
	}

	connectCtx, cancelFn := context.WithTimeout(ctx, timeout)
	defer cancelFn()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, nil, fmt.Errorf("unable to connect to mongo: %w", err)
	}

	if err = client.Ping(connectCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx) //nolint:errcheck // connection is unusable anyway

		return nil, nil, fmt.Errorf("unable to ping mongo: %w", err)
	}

	return client, client.Database(database), nil
}

type Storage struct {
	transactions *mongo.Collection
	accounts     *mongo.Collection
	config       *mongo.Collection
}

func NewStorage(db *mongo.Database) *Storage {
	return &Storage{
		transactions: db.Collection(transactionsCollection),
		accounts:     db.Collection(accountsCollection),
		config:       db.Collection(configCollection),
	}
}

// EnsureIndexes creates the listing indexes, if missing
func (s *Storage) EnsureIndexes(ctx context.Context) error {
	_, err := s.transactions.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "user_id", Value: 1},
				{Key: "created_at", Value: -1},
			},
		},
		{
			Keys: bson.D{{Key: "created_at", Value: -1}},
		},
	})
	if err != nil {
		return fmt.Errorf("unable to create transaction indexes: %w", err)
	}

	return nil
}

func (s *Storage) SaveTransaction(ctx context.Context, tx *types.Transaction) error {
	if _, err := s.transactions.InsertOne(ctx, tx); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return storage.ErrDuplicate
		}

		return fmt.Errorf("unable to save transaction: %w", err)
	}

	return nil
}

func (s *Storage) UpdateTransaction(ctx context.Context, tx *types.Transaction, from types.Status) error {
	filter := bson.M{
		"_id":    tx.ID,
		"status": from,
	}

	res, err := s.transactions.ReplaceOne(ctx, filter, tx)
	if err != nil {
		return fmt.Errorf("unable to update transaction: %w", err)
	}

	if res.MatchedCount > 0 {
		return nil
	}

	// Nothing matched, the transaction is either missing
	// or no longer in the expected status
	if _, err = s.Transaction(ctx, tx.ID); err != nil {
		return err
	}

	return storage.ErrStatusConflict
}

func (s *Storage) Transaction(ctx context.Context, id string) (*types.Transaction, error) {
	var tx types.Transaction

	if err := s.transactions.FindOne(ctx, bson.M{"_id": id}).Decode(&tx); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, storage.ErrNotFound
		}

		return nil, fmt.Errorf("unable to fetch transaction: %w", err)
	}

	normalizeTransaction(&tx)

	return &tx, nil
}

func (s *Storage) Transactions(
	ctx context.Context,
	query *types.TransactionQuery,
) (*types.Page[*types.Transaction], error) {
	filter := bson.M{}

	var offset uint

	if query != nil {
		if query.UserID != nil {
			filter["user_id"] = *query.UserID
		}

		if query.Status != nil {
			filter["status"] = *query.Status
		}

		offset = query.Offset
	}

	total, err := s.transactions.CountDocuments(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("unable to count transactions: %w", err)
	}

	opts := options.Find().
		SetSort(bson.D{
			{Key: "created_at", Value: -1},
			{Key: "_id", Value: -1},
		}).
		SetSkip(int64(offset)).            //nolint:gosec // offsets are bound by the HTTP layer
		SetLimit(int64(query.PageLimit())) //nolint:gosec // bound by MaxPageLimit

	cursor, err := s.transactions.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("unable to fetch transactions: %w", err)
	}
	defer cursor.Close(ctx)

	var items []*types.Transaction
	if err = cursor.All(ctx, &items); err != nil {
		return nil, fmt.Errorf("unable to decode transactions: %w", err)
	}

	for _, tx := range items {
		normalizeTransaction(tx)
	}

	return &types.Page[*types.Transaction]{
		Results: items,
		Total:   total,
	}, nil
}

func (s *Storage) SaveAccount(ctx context.Context, acc *types.AdminAccount) error {
	opts := options.Replace().SetUpsert(true)

	if _, err := s.accounts.ReplaceOne(ctx, bson.M{"_id": acc.ID}, acc, opts); err != nil {
		return fmt.Errorf("unable to save account: %w", err)
	}

	return nil
}

func (s *Storage) DeleteAccount(ctx context.Context, id string) error {
	res, err := s.accounts.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("unable to delete account: %w", err)
	}

	if res.DeletedCount == 0 {
		return storage.ErrNotFound
	}

	return nil
}

func (s *Storage) Accounts(ctx context.Context) ([]*types.AdminAccount, error) {
	opts := options.Find().SetSort(bson.D{
		{Key: "created_at", Value: 1},
		{Key: "_id", Value: 1},
	})

	cursor, err := s.accounts.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("unable to fetch accounts: %w", err)
	}
	defer cursor.Close(ctx)

	out := make([]*types.AdminAccount, 0)
	if err = cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("unable to decode accounts: %w", err)
	}

	return out, nil
}

func (s *Storage) Margins(ctx context.Context) (types.MarginConfig, error) {
	var m types.MarginConfig

	if err := s.config.FindOne(ctx, bson.M{"_id": marginsDocumentID}).Decode(&m); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return types.MarginConfig{}, storage.ErrNotFound
		}

		return types.MarginConfig{}, fmt.Errorf("unable to fetch margins: %w", err)
	}

	m.UpdatedAt = m.UpdatedAt.UTC()

	return m, nil
}

func (s *Storage) SaveMargins(ctx context.Context, m types.MarginConfig) error {
	opts := options.Replace().SetUpsert(true)

	if _, err := s.config.ReplaceOne(ctx, bson.M{"_id": marginsDocumentID}, m, opts); err != nil {
		return fmt.Errorf("unable to save margins: %w", err)
	}

	return nil
}

// marginChange is the relevant part of a margins change event
type marginChange struct {
	FullDocument *types.MarginConfig `bson:"fullDocument"`
}

// WatchMargins opens a change stream over the margins document.
// Change streams require a replica set deployment
func (s *Storage) WatchMargins(ctx context.Context) (<-chan types.MarginConfig, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"documentKey._id": marginsDocumentID}}},
	}

	opts := options.ChangeStream().SetFullDocument(options.UpdateLookup)

	stream, err := s.config.Watch(ctx, pipeline, opts)
	if err != nil {
		return nil, fmt.Errorf("unable to watch margins: %w", err)
	}

	ch := make(chan types.MarginConfig, 1)

	go func() {
		defer close(ch)
		defer stream.Close(context.Background()) //nolint:errcheck // best effort

		for stream.Next(ctx) {
			var change marginChange
			if err := stream.Decode(&change); err != nil || change.FullDocument == nil {
				continue
			}

			m := *change.FullDocument
			m.UpdatedAt = m.UpdatedAt.UTC()

			select {
			case <-ch: // drop the unconsumed update
			default:
			}

			ch <- m
		}
	}()

	return ch, nil
}

// normalizeTransaction converts the decoded timestamps to UTC
func normalizeTransaction(tx *types.Transaction) {
	tx.CreatedAt = tx.CreatedAt.UTC()
	tx.UpdatedAt = tx.UpdatedAt.UTC()
}
