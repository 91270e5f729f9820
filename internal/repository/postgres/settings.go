package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

type SettingsStore struct {
	db *pgxpool.Pool
}

func NewSettingsStore(db *pgxpool.Pool) *SettingsStore {
	return &SettingsStore{db: db}
}

func (s *SettingsStore) All(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.Query(ctx, `SELECT key, value FROM settings`)
	if err != nil {
		return nil, translate("load settings", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, translate("scan setting", err)
		}
		out[key] = value
	}
	if err := rows.Err(); err != nil {
		return nil, translate("load settings", err)
	}
	return out, nil
}

func (s *SettingsStore) Set(ctx context.Context, key, value string) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO settings (key, value) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`,
		key, value)
	if err != nil {
		return translate("set setting", err)
	}
	return nil
}
