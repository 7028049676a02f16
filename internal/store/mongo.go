package store

import (
	"context"
	"errors"
	"time"

	"infrabeacon/internal/apperr"
	"infrabeacon/internal/logger"
	"infrabeacon/internal/report"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// CollectionReports holds one document per report, keyed by report id.
const CollectionReports = "reports"

// Mongo is the document-store report repository.
type Mongo struct {
	coll *mongo.Collection
	now  func() time.Time
}

func NewMongo(db *mongo.Database) *Mongo {
	return &Mongo{coll: db.Collection(CollectionReports), now: time.Now}
}

func (m *Mongo) Create(ctx context.Context, in *report.Report) (*report.Report, error) {
	r := in.Clone()
	report.PrepareNew(r, m.now())
	// mongo keeps milliseconds; truncate so the returned value matches what a later Get yields
	r.CreatedAt = r.CreatedAt.Truncate(time.Millisecond)
	r.UpdatedAt = r.CreatedAt
	if _, err := m.coll.InsertOne(ctx, r); err != nil {
		logger.L().WithError(err).Error("mongo_report_insert_error")
		return nil, apperr.Persistence("create report", err)
	}
	return r, nil
}

func (m *Mongo) Get(ctx context.Context, id string) (*report.Report, error) {
	var r report.Report
	err := m.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&r)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperr.NotFound(id)
	}
	if err != nil {
		return nil, apperr.Persistence("get report", err)
	}
	return normalizeTimes(&r), nil
}

func (m *Mongo) List(ctx context.Context, f report.Filter) ([]*report.Report, error) {
	f = f.Normalized()
	q := bson.M{}
	if f.Status != "" {
		q["status"] = f.Status
	}
	if f.IssueType != "" {
		q["issue_type"] = f.IssueType
	}
	if f.Severity != "" {
		q["severity"] = f.Severity
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: 1}}).
		SetLimit(int64(f.Limit))
	return m.find(ctx, "list reports", q, opts)
}

// Candidates matches anchored prefix regexes, which the geohash index serves as range scans.
func (m *Mongo) Candidates(ctx context.Context, prefixes []string) ([]*report.Report, error) {
	or := make(bson.A, 0, len(prefixes))
	for _, p := range prefixes {
		if p == "" {
			return m.find(ctx, "nearby candidates", bson.M{}, options.Find())
		}
		or = append(or, bson.M{"geohash": primitive.Regex{Pattern: "^" + p}})
	}
	return m.find(ctx, "nearby candidates", bson.M{"$or": or}, options.Find())
}

func (m *Mongo) FindNearby(ctx context.Context, lat, lng, radiusMeters float64) ([]report.Nearby, error) {
	return report.FindNearby(ctx, m, lat, lng, radiusMeters)
}

func (m *Mongo) Update(ctx context.Context, id string, p report.Patch) (*report.Report, error) {
	set := bson.M{"updated_at": m.now().UTC().Truncate(time.Millisecond)}
	for _, f := range p.Fields() {
		set[f.Name] = f.Value
	}
	var r report.Report
	err := m.coll.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&r)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperr.NotFound(id)
	}
	if err != nil {
		logger.L().WithError(err).WithField("id", id).Error("mongo_report_update_error")
		return nil, apperr.Persistence("update report", err)
	}
	return normalizeTimes(&r), nil
}

func (m *Mongo) Delete(ctx context.Context, id string) error {
	if _, err := m.coll.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return apperr.Persistence("delete report", err)
	}
	return nil
}

func (m *Mongo) Name() string { return "mongo" }

func (m *Mongo) Heartbeat(ctx context.Context) error {
	return m.coll.Database().Client().Ping(ctx, readpref.Primary())
}

func (m *Mongo) find(ctx context.Context, op string, q bson.M, opts *options.FindOptions) ([]*report.Report, error) {
	cur, err := m.coll.Find(ctx, q, opts)
	if err != nil {
		return nil, apperr.Persistence(op, err)
	}
	defer cur.Close(ctx)
	var out []*report.Report
	for cur.Next(ctx) {
		var r report.Report
		if err := cur.Decode(&r); err != nil {
			return nil, apperr.Persistence(op, err)
		}
		out = append(out, normalizeTimes(&r))
	}
	if err := cur.Err(); err != nil {
		return nil, apperr.Persistence(op, err)
	}
	return out, nil
}

func normalizeTimes(r *report.Report) *report.Report {
	r.CreatedAt = r.CreatedAt.UTC()
	r.UpdatedAt = r.UpdatedAt.UTC()
	return r
}
