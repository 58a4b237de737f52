package credential

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/JHEJIAZHANG/Project-sub001/internal/db"
)

// PostgresStore is the production credential store.
type PostgresStore struct {
	db *db.DB
}

func NewPostgresStore(db *db.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Get(ctx context.Context, subject string) (*Credential, error) {
	var (
		cred         Credential
		accessToken  sql.NullString
		refreshToken sql.NullString
		expiry       sql.NullTime
		metadata     []byte
	)

	err := s.db.QueryRowContext(ctx, `
		SELECT subject, display_name, role, email,
		       access_token, refresh_token, token_expiry, metadata
		FROM user_credentials
		WHERE subject = $1
	`, subject).Scan(
		&cred.Subject,
		&cred.DisplayName,
		&cred.Role,
		&cred.Email,
		&accessToken,
		&refreshToken,
		&expiry,
		&metadata,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	cred.AccessToken = accessToken.String
	cred.RefreshToken = refreshToken.String
	if expiry.Valid {
		cred.Expiry = expiry.Time.UTC()
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &cred.Metadata); err != nil {
			return nil, fmt.Errorf("credential: bad metadata for %s: %w", subject, err)
		}
	}
	return &cred, nil
}

func (s *PostgresStore) Upsert(ctx context.Context, cred Credential) error {
	metadata, err := json.Marshal(metadataOrEmpty(cred.Metadata))
	if err != nil {
		return err
	}

	// Empty refresh token becomes NULL so COALESCE keeps the stored one.
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO user_credentials
		    (subject, display_name, role, email,
		     access_token, refresh_token, token_expiry, metadata, updated_at)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), NULLIF($6, ''), $7, $8, NOW())
		ON CONFLICT (subject) DO UPDATE SET
		    display_name  = EXCLUDED.display_name,
		    role          = EXCLUDED.role,
		    email         = CASE WHEN EXCLUDED.email <> ''
		                         THEN EXCLUDED.email
		                         ELSE user_credentials.email END,
		    access_token  = EXCLUDED.access_token,
		    refresh_token = COALESCE(EXCLUDED.refresh_token, user_credentials.refresh_token),
		    token_expiry  = EXCLUDED.token_expiry,
		    metadata      = EXCLUDED.metadata,
		    updated_at    = NOW()
	`,
		cred.Subject,
		cred.DisplayName,
		cred.Role,
		cred.Email,
		cred.AccessToken,
		cred.RefreshToken,
		nullableTime(cred.Expiry),
		metadata,
	)
	return err
}

func (s *PostgresStore) UpdateTokens(ctx context.Context, subject, accessToken string, expiry time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE user_credentials
		SET access_token = $2, token_expiry = $3, updated_at = NOW()
		WHERE subject = $1
	`, subject, accessToken, nullableTime(expiry))
	return err
}

func (s *PostgresStore) ClearTokens(ctx context.Context, subject string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE user_credentials
		SET access_token = NULL, refresh_token = NULL, token_expiry = NULL,
		    updated_at = NOW()
		WHERE subject = $1
	`, subject)
	return err
}

func nullableTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func metadataOrEmpty(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}
