package listings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/willnicht/willnicht/internal/common"
	"github.com/willnicht/willnicht/internal/dbx"
	"github.com/willnicht/willnicht/internal/server/models"
)

const columns = `id, local_id, title, description, category,
		price_min, price_max, recommended_price, currency,
		image_key, webhook_id, confidence, user_language, marketplace_language,
		evaluated_at, created_at, updated_at`

// invalidTextRepresentation is what Postgres answers for an id that is not
// a UUID at all.
const invalidTextRepresentation = "22P02"

// notFound reports errors that mean the requested row cannot exist.
func notFound(err error) bool {
	if errors.Is(err, sql.ErrNoRows) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == invalidTextRepresentation
}

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// price stores amounts with cent precision; NUMERIC(12,2) rounds anyway.
func price(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v).Round(2)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanListing(s scanner, userID string) (*models.Listing, error) {
	l := &models.Listing{UserID: userID}
	var minP, maxP, recP decimal.Decimal
	var confidence sql.NullFloat64
	var evaluatedAt sql.NullTime
	err := s.Scan(&l.ID, &l.LocalID, &l.Title, &l.Description, &l.Category,
		&minP, &maxP, &recP, &l.Currency,
		&l.ImageKey, &l.WebhookID, &confidence, &l.UserLanguage, &l.MarketplaceLanguage,
		&evaluatedAt, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return nil, err
	}
	l.PriceMin = minP.InexactFloat64()
	l.PriceMax = maxP.InexactFloat64()
	l.RecommendedPrice = recP.InexactFloat64()
	if confidence.Valid {
		c := confidence.Float64
		l.Confidence = &c
	}
	if evaluatedAt.Valid {
		t := evaluatedAt.Time
		l.EvaluatedAt = &t
	}
	return l, nil
}

func (r *PostgresRepository) Create(ctx context.Context, l *models.Listing) (*models.Listing, error) {
	query := `
		INSERT INTO listings (user_id, local_id, title, description, category,
			price_min, price_max, recommended_price, currency,
			image_key, webhook_id, confidence, user_language, marketplace_language, evaluated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING ` + columns

	var confidence sql.NullFloat64
	if l.Confidence != nil {
		confidence = sql.NullFloat64{Float64: *l.Confidence, Valid: true}
	}
	var evaluatedAt sql.NullTime
	if l.EvaluatedAt != nil {
		evaluatedAt = sql.NullTime{Time: *l.EvaluatedAt, Valid: true}
	}

	row := r.db.QueryRowContext(ctx, query,
		l.UserID, l.LocalID, l.Title, l.Description, l.Category,
		price(l.PriceMin), price(l.PriceMax), price(l.RecommendedPrice), l.Currency,
		l.ImageKey, l.WebhookID, confidence, l.UserLanguage, l.MarketplaceLanguage, evaluatedAt)

	created, err := scanListing(row, l.UserID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return created, nil
}

// List returns the user's listings newest first.
func (r *PostgresRepository) List(ctx context.Context, userID string, limit, offset int) ([]*models.Listing, error) {
	query := `
		SELECT ` + columns + `
		FROM listings
		WHERE user_id = $1
		ORDER BY created_at DESC, id
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := make([]*models.Listing, 0, limit)
	for rows.Next() {
		l, err := scanListing(rows, userID)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

func (r *PostgresRepository) Get(ctx context.Context, userID, id string) (*models.Listing, error) {
	query := `
		SELECT ` + columns + `
		FROM listings
		WHERE user_id = $1 AND id = $2
	`
	l, err := scanListing(r.db.QueryRowContext(ctx, query, userID, id), userID)
	if err != nil {
		if notFound(err) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return l, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, userID, id string) (string, error) {
	query := `
		DELETE FROM listings
		WHERE user_id = $1 AND id = $2
		RETURNING image_key
	`
	var key string
	if err := r.db.QueryRowContext(ctx, query, userID, id).Scan(&key); err != nil {
		if notFound(err) {
			return "", common.ErrorNotFound
		}
		return "", fmt.Errorf("db error: %w", err)
	}
	return key, nil
}

func (r *PostgresRepository) DeleteAll(ctx context.Context, userID string) ([]string, error) {
	query := `
		DELETE FROM listings
		WHERE user_id = $1
		RETURNING image_key
	`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		if key != "" {
			keys = append(keys, key)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return keys, nil
}

func (r *PostgresRepository) CountSince(ctx context.Context, userID string, since time.Time) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM listings
		WHERE user_id = $1 AND created_at >= $2
	`
	var n int
	if err := r.db.QueryRowContext(ctx, query, userID, since).Scan(&n); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}
