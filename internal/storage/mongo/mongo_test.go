package mongo

import (
	"errors"
	"testing"
	"time"

	"moneymanager/internal/core"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestTransactionDocRoundTrip(t *testing.T) {
	at := time.Date(2025, 3, 4, 10, 30, 0, 250*int(time.Millisecond), time.UTC)
	in := core.NewTransaction(core.Expense, decimal.RequireFromString("1234.56"), "Fuel", core.Office, "diesel")
	in.FromAccount = "card"
	in = in.WithTimestamps(at, at)

	doc, err := toTransactionDoc(in)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	doc.ID = primitive.NewObjectID()

	// Through the wire format, as the driver would.
	raw, err := bson.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded transactionDoc
	if err := bson.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	out, err := fromTransactionDoc(decoded)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.ID != doc.ID.Hex() {
		t.Fatalf("id = %s, want %s", out.ID, doc.ID.Hex())
	}
	if !out.Amount.Equal(in.Amount) || out.Category != "Fuel" || out.Division != core.Office || out.FromAccount != "card" {
		t.Fatalf("unexpected transaction: %+v", out)
	}
	if !out.CreatedAt.Equal(at) || !out.TransactionDate.Equal(at) {
		t.Fatalf("timestamps = %v / %v", out.CreatedAt, out.TransactionDate)
	}
}

func TestFilterDoc(t *testing.T) {
	f := core.NewDayFilter(time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC), time.UTC)

	q := filterDoc(f)
	if _, ok := q["category"]; ok {
		t.Fatal("category should be absent when unset")
	}
	if _, ok := q["division"]; ok {
		t.Fatal("division should be absent when unset")
	}
	rng := q["transactionDate"].(bson.M)
	if rng["$lte"].(primitive.DateTime).Time().Before(time.Date(2025, 3, 31, 23, 59, 59, 0, time.UTC)) {
		t.Fatalf("upper bound should cover the whole end day: %v", rng["$lte"])
	}

	f.Category = "Food"
	f.Division = core.Personal
	q = filterDoc(f)
	if q["category"] != "Food" || q["division"] != "personal" {
		t.Fatalf("unexpected filter: %v", q)
	}
}

func TestObjectIDRejectsMalformed(t *testing.T) {
	if _, err := objectID("not-hex"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	id := primitive.NewObjectID()
	got, err := objectID(id.Hex())
	if err != nil || got != id {
		t.Fatalf("unexpected parse: %v err=%v", got, err)
	}
}
