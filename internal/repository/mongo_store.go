package repository

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/eaglebank/insights-service/shared/models"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const mongoCollection = "transactions"

// mongoTransaction is the document shape. Prices are Decimal128 so that sums
// and equality stay exact.
type mongoTransaction struct {
	ID          primitive.ObjectID   `bson:"_id,omitempty"`
	Title       string               `bson:"title"`
	Description string               `bson:"description"`
	Price       primitive.Decimal128 `bson:"price"`
	Category    string               `bson:"category"`
	Image       string               `bson:"image"`
	Sold        bool                 `bson:"sold"`
	DateOfSale  time.Time            `bson:"dateOfSale"`
}

// MongoStore is the MongoDB TransactionStore.
//
// ReplaceAll is DeleteMany followed by InsertMany and is not atomic: a reader
// may observe an empty collection between the two calls.
type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// NewMongoStore connects to uri and uses database.transactions.
func NewMongoStore(ctx context.Context, uri, database string) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}
	return &MongoStore{client: client, coll: client.Database(database).Collection(mongoCollection)}, nil
}

func toDecimal128(d decimal.Decimal) (primitive.Decimal128, error) {
	v, err := primitive.ParseDecimal128(d.String())
	if err != nil {
		return primitive.Decimal128{}, fmt.Errorf("price %s does not fit Decimal128: %w", d.String(), err)
	}
	return v, nil
}

func fromDecimal128(v primitive.Decimal128) decimal.Decimal {
	d, err := decimal.NewFromString(v.String())
	if err != nil {
		return decimal.Zero
	}
	return d
}

func monthMatch(month time.Month) bson.M {
	return bson.M{"$eq": bson.A{bson.M{"$month": "$dateOfSale"}, int(month)}}
}

// mongoFilter translates f into a query document.
func mongoFilter(f Filter) (bson.M, error) {
	q := bson.M{}
	if f.Month != 0 {
		q["$expr"] = monthMatch(f.Month)
	}
	if f.Sold != nil {
		q["sold"] = *f.Sold
	}
	if f.Search != nil {
		pattern := primitive.Regex{Pattern: regexp.QuoteMeta(f.Search.Text), Options: "i"}
		or := bson.A{
			bson.M{"title": pattern},
			bson.M{"description": pattern},
		}
		if f.Search.Price != nil {
			price, err := toDecimal128(*f.Search.Price)
			if err != nil {
				return nil, err
			}
			or = append(or, bson.M{"price": price})
		}
		q["$or"] = or
	}
	return q, nil
}

// bandSwitch renders bands as a $switch yielding the band index, or -1.
func bandSwitch(bands []models.PriceBand) bson.M {
	branches := bson.A{}
	def := -1
	for i, band := range bands {
		if band.Unbounded() {
			def = i
			break
		}
		branches = append(branches, bson.M{
			"case": bson.M{"$lte": bson.A{"$price", band.Max}},
			"then": i,
		})
	}
	return bson.M{"$switch": bson.M{"branches": branches, "default": def}}
}

func (s *MongoStore) Count(ctx context.Context, f Filter) (int64, error) {
	q, err := mongoFilter(f)
	if err != nil {
		return 0, err
	}
	n, err := s.coll.CountDocuments(ctx, q)
	if err != nil {
		return 0, fmt.Errorf("failed to count transactions: %w", err)
	}
	return n, nil
}

func (s *MongoStore) Find(ctx context.Context, f Filter, p Page) ([]models.Transaction, error) {
	q, err := mongoFilter(f)
	if err != nil {
		return nil, err
	}
	opts := options.Find()
	if p.Skip > 0 {
		opts.SetSkip(p.Skip)
	}
	if p.Limit > 0 {
		opts.SetLimit(p.Limit)
	}
	cur, err := s.coll.Find(ctx, q, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer cur.Close(ctx)

	txs := make([]models.Transaction, 0)
	for cur.Next(ctx) {
		var doc mongoTransaction
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode transaction: %w", err)
		}
		txs = append(txs, models.Transaction{
			ID:          doc.ID.Hex(),
			Title:       doc.Title,
			Description: doc.Description,
			Price:       fromDecimal128(doc.Price),
			Category:    doc.Category,
			Image:       doc.Image,
			Sold:        doc.Sold,
			DateOfSale:  doc.DateOfSale.UTC(),
		})
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transactions: %w", err)
	}
	return txs, nil
}

// ReplaceAll converts every record before clearing the collection, so a record
// that cannot be stored leaves the existing data untouched.
func (s *MongoStore) ReplaceAll(ctx context.Context, txs []models.Transaction) error {
	docs := make([]any, len(txs))
	for i, t := range txs {
		price, err := toDecimal128(t.Price)
		if err != nil {
			return fmt.Errorf("transaction %q: %w", t.Title, err)
		}
		docs[i] = mongoTransaction{
			Title:       t.Title,
			Description: t.Description,
			Price:       price,
			Category:    t.Category,
			Image:       t.Image,
			Sold:        t.Sold,
			DateOfSale:  t.DateOfSale.UTC(),
		}
	}

	if _, err := s.coll.DeleteMany(ctx, bson.M{}); err != nil {
		return fmt.Errorf("failed to clear transactions: %w", err)
	}
	if len(docs) == 0 {
		return nil
	}
	if _, err := s.coll.InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("failed to insert transactions: %w", err)
	}
	return nil
}

func (s *MongoStore) SoldSummary(ctx context.Context, month time.Month) (decimal.Decimal, int64, error) {
	pipeline := bson.A{
		bson.M{"$match": bson.M{"$expr": monthMatch(month), "sold": true}},
		bson.M{"$group": bson.M{
			"_id":         nil,
			"totalAmount": bson.M{"$sum": "$price"},
			"totalSold":   bson.M{"$sum": 1},
		}},
	}
	cur, err := s.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return decimal.Zero, 0, fmt.Errorf("failed to summarise sales: %w", err)
	}
	defer cur.Close(ctx)

	var out []struct {
		TotalAmount primitive.Decimal128 `bson:"totalAmount"`
		TotalSold   int64                `bson:"totalSold"`
	}
	if err := cur.All(ctx, &out); err != nil {
		return decimal.Zero, 0, fmt.Errorf("failed to decode sales summary: %w", err)
	}
	if len(out) == 0 {
		return decimal.Zero, 0, nil
	}
	return fromDecimal128(out[0].TotalAmount), out[0].TotalSold, nil
}

func (s *MongoStore) CountByPriceBand(ctx context.Context, month time.Month, bands []models.PriceBand) ([]int64, error) {
	pipeline := bson.A{
		bson.M{"$match": bson.M{"$expr": monthMatch(month), "price": bson.M{"$gte": 0}}},
		bson.M{"$group": bson.M{"_id": bandSwitch(bands), "count": bson.M{"$sum": 1}}},
	}
	cur, err := s.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to count price bands: %w", err)
	}
	defer cur.Close(ctx)

	var out []struct {
		Band  int64 `bson:"_id"`
		Count int64 `bson:"count"`
	}
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("failed to decode price bands: %w", err)
	}
	counts := make([]int64, len(bands))
	for _, o := range out {
		if o.Band >= 0 && o.Band < int64(len(counts)) {
			counts[o.Band] = o.Count
		}
	}
	return counts, nil
}

func (s *MongoStore) CountByCategory(ctx context.Context, month time.Month) ([]models.PieChartEntry, error) {
	pipeline := bson.A{
		bson.M{"$match": bson.M{"$expr": monthMatch(month)}},
		bson.M{"$group": bson.M{"_id": "$category", "count": bson.M{"$sum": 1}}},
		bson.M{"$sort": bson.M{"_id": 1}},
	}
	cur, err := s.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to count categories: %w", err)
	}
	defer cur.Close(ctx)

	var out []struct {
		Category string `bson:"_id"`
		Count    int64  `bson:"count"`
	}
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("failed to decode categories: %w", err)
	}
	entries := make([]models.PieChartEntry, len(out))
	for i, o := range out {
		entries[i] = models.PieChartEntry{Category: o.Category, Count: o.Count}
	}
	return entries, nil
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
