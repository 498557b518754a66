package contact

import (
	"context"
	"database/sql"
)

// PGStore implements Store using PostgreSQL.
type PGStore struct {
	db *sql.DB
}

func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) Insert(ctx context.Context, f *Form) error {
	return s.db.QueryRowContext(ctx,
		`insert into contact_forms(first_name, last_name, email, subject, message)
		 values($1,$2,$3,$4,$5)
		 returning id, unread, starred, created_at`,
		f.FirstName, f.LastName, f.Email, f.Subject, f.Message,
	).Scan(&f.ID, &f.Unread, &f.Starred, &f.CreatedAt)
}
