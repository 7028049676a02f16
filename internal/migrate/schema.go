package migrate

import (
	"context"
	"database/sql"

	"infrabeacon/internal/logger"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// EnsureSchema creates the reports table and its indexes on first run.
// Statements are idempotent (IF NOT EXISTS) so it runs on every start.
func EnsureSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS reports (
            id TEXT PRIMARY KEY,
            latitude DOUBLE PRECISION NOT NULL,
            longitude DOUBLE PRECISION NOT NULL,
            geohash TEXT NOT NULL,
            issue_type TEXT NOT NULL,
            severity TEXT NOT NULL,
            description TEXT NOT NULL DEFAULT '',
            status TEXT NOT NULL DEFAULT 'new',
            image_url TEXT NOT NULL DEFAULT '',
            ai_analyzed BOOLEAN NOT NULL DEFAULT FALSE,
            ai_confidence DOUBLE PRECISION NOT NULL DEFAULT 0,
            ai_issue_type TEXT NOT NULL DEFAULT '',
            ai_description TEXT NOT NULL DEFAULT '',
            user_confirmed BOOLEAN NOT NULL DEFAULT FALSE,
            notes TEXT NOT NULL DEFAULT '',
            resolution_notes TEXT NOT NULL DEFAULT '',
            created_at TIMESTAMPTZ NOT NULL,
            updated_at TIMESTAMPTZ NOT NULL,
            CONSTRAINT reports_status_chk CHECK (status IN ('new','verified','resolved')),
            CONSTRAINT reports_severity_chk CHECK (severity IN ('low','medium','high')),
            CONSTRAINT reports_issue_type_chk CHECK (issue_type IN ('pothole','broken_light','garbage','waterlogging','other'))
        )`,
		// text_pattern_ops lets LIKE 'prefix%' use the index regardless of collation
		`CREATE INDEX IF NOT EXISTS idx_reports_geohash ON reports(geohash text_pattern_ops)`,
		`CREATE INDEX IF NOT EXISTS idx_reports_created_at ON reports(created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_reports_status ON reports(status)`,
	}
	for i, s := range stmts {
		logger.L().WithField("idx", i).Debug("schema_exec")
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	logger.L().Debug("schema_done")
	return nil
}

// EnsureMongoIndexes creates the reports collection indexes; existing ones are left alone.
func EnsureMongoIndexes(ctx context.Context, db *mongo.Database) error {
	models := []mongo.IndexModel{
		{Keys: bson.D{{Key: "geohash", Value: 1}}, Options: options.Index().SetName("geohash_1")},
		{Keys: bson.D{{Key: "created_at", Value: -1}}, Options: options.Index().SetName("created_at_-1")},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: -1}}, Options: options.Index().SetName("status_1_created_at_-1")},
	}
	names, err := db.Collection("reports").Indexes().CreateMany(ctx, models)
	if err != nil {
		return err
	}
	logger.L().WithField("indexes", names).Debug("mongo_indexes_done")
	return nil
}
