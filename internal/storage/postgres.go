package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/varmayadav12345678-cell/quicklead/internal/domain"
)

// PostgresStore archives finished result sets to PostgreSQL.
type PostgresStore struct {
	db *pgxpool.Pool
}

func NewPostgresStore(connStr string) (*PostgresStore, error) {
	db, err := pgxpool.New(context.Background(), connStr)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// ArchiveResults upserts a job's records within a single transaction.
// Records are keyed by (session, maps URL); a rerun of the same query
// space refreshes rather than duplicates.
func (s *PostgresStore) ArchiveResults(ctx context.Context, sessionID string, records []domain.BusinessRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, rec := range records {
		payload, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		batch.Queue(
			`INSERT INTO business_records
			   (session_id, maps_url, place_id, name, address, city, state,
			    category, phone, website, final_email, email_source, status,
			    scraped_at, payload)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
			 ON CONFLICT (session_id, maps_url) DO UPDATE SET
			   place_id = EXCLUDED.place_id, name = EXCLUDED.name,
			   address = EXCLUDED.address, city = EXCLUDED.city,
			   state = EXCLUDED.state, category = EXCLUDED.category,
			   phone = EXCLUDED.phone, website = EXCLUDED.website,
			   final_email = EXCLUDED.final_email,
			   email_source = EXCLUDED.email_source,
			   status = EXCLUDED.status, scraped_at = EXCLUDED.scraped_at,
			   payload = EXCLUDED.payload`,
			sessionID, rec.MapsURL, rec.PlaceID, rec.Name, rec.Address,
			rec.City, rec.State, rec.Category, rec.Phone, rec.Website,
			rec.Contact.FinalEmail, rec.Contact.Source, rec.Status,
			rec.ScrapedAt, payload,
		)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// ArchivedCount returns how many records a session has archived.
func (s *PostgresStore) ArchivedCount(ctx context.Context, sessionID string) (int, error) {
	var n int
	err := s.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM business_records WHERE session_id = $1`,
		sessionID,
	).Scan(&n)
	return n, err
}
