// Package mongo stores transactions and transfer records in MongoDB collections.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"moneymanager/internal/core"
	"moneymanager/internal/storage"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	TransactionsCollection = "transactions"
	AccountsCollection     = "accounts"
)

type transactionDoc struct {
	ID              primitive.ObjectID   `bson:"_id,omitempty"`
	Type            string               `bson:"type"`
	Amount          primitive.Decimal128 `bson:"amount"`
	Category        string               `bson:"category,omitempty"`
	Division        string               `bson:"division,omitempty"`
	Description     string               `bson:"description,omitempty"`
	FromAccount     string               `bson:"fromAccount,omitempty"`
	ToAccount       string               `bson:"toAccount,omitempty"`
	TransactionDate primitive.DateTime   `bson:"transactionDate"`
	CreatedAt       primitive.DateTime   `bson:"createdAt"`
	SyncStatus      string               `bson:"syncStatus"`
}

type accountDoc struct {
	ID              primitive.ObjectID   `bson:"_id,omitempty"`
	FromAccountID   string               `bson:"fromAccountId"`
	ToAccountID     string               `bson:"toAccountId"`
	Amount          primitive.Decimal128 `bson:"amount"`
	Description     string               `bson:"description,omitempty"`
	TransactionDate *primitive.DateTime  `bson:"transactionDate,omitempty"`
}

type Repository struct {
	client   *mongo.Client
	txs      *mongo.Collection
	accounts *mongo.Collection
}

// Connect dials uri and ensures the date index exists.
func Connect(ctx context.Context, uri, database string) (*Repository, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	db := client.Database(database)
	r := &Repository{
		client:   client,
		txs:      db.Collection(TransactionsCollection),
		accounts: db.Collection(AccountsCollection),
	}

	_, err = r.txs.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "transactionDate", Value: 1}}},
		{Keys: bson.D{{Key: "syncStatus", Value: 1}, {Key: "createdAt", Value: 1}}},
	})
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("create indexes: %w", err)
	}

	slog.InfoContext(ctx, "Connected to MongoDB", "database", database)
	return r, nil
}

func (r *Repository) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return r.client.Disconnect(ctx)
}

func (r *Repository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx, readpref.Primary())
}

func (r *Repository) InsertTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	doc, err := toTransactionDoc(t)
	if err != nil {
		return core.Transaction{}, err
	}
	doc.ID = primitive.NewObjectID()
	doc.SyncStatus = storage.SyncPending
	if _, err := r.txs.InsertOne(ctx, doc); err != nil {
		return core.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}
	t.ID = doc.ID.Hex()
	slog.InfoContext(ctx, "Transaction saved to MongoDB", "id", t.ID, "type", t.Type)
	return t, nil
}

func (r *Repository) GetTransaction(ctx context.Context, id string) (core.Transaction, error) {
	oid, err := objectID(id)
	if err != nil {
		return core.Transaction{}, err
	}
	var doc transactionDoc
	err = r.txs.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return core.Transaction{}, fmt.Errorf("transaction %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	return fromTransactionDoc(doc)
}

func (r *Repository) UpdateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	oid, err := objectID(t.ID)
	if err != nil {
		return core.Transaction{}, err
	}
	amount, err := primitive.ParseDecimal128(t.Amount.String())
	if err != nil {
		return core.Transaction{}, fmt.Errorf("encode amount: %w", err)
	}
	res, err := r.txs.UpdateByID(ctx, oid, bson.M{"$set": bson.M{
		"amount":      amount,
		"category":    t.Category,
		"division":    string(t.Division),
		"description": t.Description,
		"syncStatus":  storage.SyncPending,
	}})
	if err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction: %w", err)
	}
	if res.MatchedCount == 0 {
		return core.Transaction{}, fmt.Errorf("transaction %s: %w", t.ID, core.ErrNotFound)
	}
	return t, nil
}

func (r *Repository) DeleteTransaction(ctx context.Context, id string) error {
	oid, err := objectID(id)
	if err != nil {
		return err
	}
	res, err := r.txs.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("transaction %s: %w", id, core.ErrNotFound)
	}
	return nil
}

func (r *Repository) FindTransactions(ctx context.Context, f core.TransactionFilter) ([]core.Transaction, error) {
	opts := options.Find().SetSort(bson.D{{Key: "transactionDate", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := r.txs.Find(ctx, filterDoc(f), opts)
	if err != nil {
		return nil, fmt.Errorf("find transactions: %w", err)
	}
	defer cur.Close(ctx)

	out := []core.Transaction{}
	for cur.Next(ctx) {
		var doc transactionDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode transaction: %w", err)
		}
		t, err := fromTransactionDoc(doc)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return out, nil
}

func (r *Repository) InsertAccount(ctx context.Context, a core.Account) (core.Account, error) {
	amount, err := primitive.ParseDecimal128(a.Amount.String())
	if err != nil {
		return core.Account{}, fmt.Errorf("encode amount: %w", err)
	}
	doc := accountDoc{
		ID:            primitive.NewObjectID(),
		FromAccountID: a.FromAccountID,
		ToAccountID:   a.ToAccountID,
		Amount:        amount,
		Description:   a.Description,
	}
	if !a.TransactionDate.IsZero() {
		dt := primitive.NewDateTimeFromTime(a.TransactionDate)
		doc.TransactionDate = &dt
	}
	if _, err := r.accounts.InsertOne(ctx, doc); err != nil {
		return core.Account{}, fmt.Errorf("insert account: %w", err)
	}
	a.ID = doc.ID.Hex()
	return a, nil
}

func (r *Repository) PendingSync(ctx context.Context, limit int) ([]string, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: 1}}).
		SetLimit(int64(limit)).
		SetProjection(bson.M{"_id": 1})
	cur, err := r.txs.Find(ctx, bson.M{"syncStatus": storage.SyncPending}, opts)
	if err != nil {
		return nil, fmt.Errorf("get pending sync transactions: %w", err)
	}
	defer cur.Close(ctx)

	var ids []string
	for cur.Next(ctx) {
		var doc struct {
			ID primitive.ObjectID `bson:"_id"`
		}
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode pending id: %w", err)
		}
		ids = append(ids, doc.ID.Hex())
	}
	return ids, cur.Err()
}

func (r *Repository) MarkSynced(ctx context.Context, id string) error {
	return r.setSyncStatus(ctx, id, storage.SyncDone)
}

func (r *Repository) MarkSyncError(ctx context.Context, id string) error {
	return r.setSyncStatus(ctx, id, storage.SyncError)
}

func (r *Repository) setSyncStatus(ctx context.Context, id, status string) error {
	oid, err := objectID(id)
	if err != nil {
		return err
	}
	res, err := r.txs.UpdateByID(ctx, oid, bson.M{"$set": bson.M{"syncStatus": status}})
	if err != nil {
		return fmt.Errorf("set sync status: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("transaction %s: %w", id, core.ErrNotFound)
	}
	return nil
}

// objectID maps malformed ids to ErrNotFound; no document can carry them.
func objectID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("transaction %s: %w", id, core.ErrNotFound)
	}
	return oid, nil
}

func filterDoc(f core.TransactionFilter) bson.M {
	q := bson.M{
		"transactionDate": bson.M{
			"$gte": primitive.NewDateTimeFromTime(f.From),
			"$lte": primitive.NewDateTimeFromTime(f.To),
		},
	}
	if f.Category != "" {
		q["category"] = f.Category
	}
	if f.Division != "" {
		q["division"] = string(f.Division)
	}
	return q
}

func toTransactionDoc(t core.Transaction) (transactionDoc, error) {
	amount, err := primitive.ParseDecimal128(t.Amount.String())
	if err != nil {
		return transactionDoc{}, fmt.Errorf("encode amount: %w", err)
	}
	return transactionDoc{
		Type:            string(t.Type),
		Amount:          amount,
		Category:        t.Category,
		Division:        string(t.Division),
		Description:     t.Description,
		FromAccount:     t.FromAccount,
		ToAccount:       t.ToAccount,
		TransactionDate: primitive.NewDateTimeFromTime(t.TransactionDate),
		CreatedAt:       primitive.NewDateTimeFromTime(t.CreatedAt),
	}, nil
}

func fromTransactionDoc(doc transactionDoc) (core.Transaction, error) {
	amount, err := decimal.NewFromString(doc.Amount.String())
	if err != nil {
		return core.Transaction{}, fmt.Errorf("decode amount %s: %w", doc.Amount, err)
	}
	return core.Transaction{
		ID:              doc.ID.Hex(),
		Type:            core.TransactionType(doc.Type),
		Amount:          amount,
		Category:        doc.Category,
		Division:        core.Division(doc.Division),
		Description:     doc.Description,
		FromAccount:     doc.FromAccount,
		ToAccount:       doc.ToAccount,
		TransactionDate: doc.TransactionDate.Time().UTC(),
		CreatedAt:       doc.CreatedAt.Time().UTC(),
	}, nil
}
