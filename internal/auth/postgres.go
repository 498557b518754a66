package auth

import (
	"context"
	"database/sql"
	"errors"
	"strings"
)

var _ Store = (*PGStore)(nil)

// PGStore implements Store using PostgreSQL.
type PGStore struct {
	db *sql.DB
}

func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) Principals() PrincipalStore { return &principalStore{db: s.db} }
func (s *PGStore) Tokens() Ledger { return &tokenLedger{db: s.db} }

// Principal store ----------------------------------------------------------
type principalStore struct{ db *sql.DB }

func (s *principalStore) Create(ctx context.Context, p *Principal) error {
	name := strings.TrimSpace(p.Name)
	if name == "" {
		return errors.New("auth: principal name is required")
	}
	return s.db.QueryRowContext(ctx,
		`insert into users(name, password) values($1,$2) returning id`,
		name, p.PasswordHash,
	).Scan(&p.ID)
}

func (s *principalStore) Find(ctx context.Context, id int64) (*Principal, error) {
	row := s.db.QueryRowContext(ctx, `select id, name, password from users where id=$1`, id)
	return scanPrincipal(row)
}

func (s *principalStore) FindByName(ctx context.Context, name string) (*Principal, error) {
	row := s.db.QueryRowContext(ctx, `select id, name, password from users where name=$1`, name)
	return scanPrincipal(row)
}

func scanPrincipal(row *sql.Row) (*Principal, error) {
	var p Principal
	if err := row.Scan(&p.ID, &p.Name, &p.PasswordHash); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// Token ledger -------------------------------------------------------------
type tokenLedger struct{ db *sql.DB }

func (l *tokenLedger) Insert(ctx context.Context, rec *TokenRecord) error {
	var agent sql.NullString
	if rec.ClientDescriptor != "" {
		agent = sql.NullString{String: rec.ClientDescriptor, Valid: true}
	}
	err := l.db.QueryRowContext(ctx,
		`insert into access_tokens(token, user_id, status, user_agent, expires_at)
		 values($1,$2,'active',$3,$4)
		 returning id, created_at`,
		rec.Token, rec.PrincipalID, agent, rec.ExpiresAt,
	).Scan(&rec.ID, &rec.IssuedAt)
	if err != nil {
		return err
	}
	rec.Status = TokenActive
	return nil
}

func (l *tokenLedger) IsActive(ctx context.Context, token string) (bool, error) {
	var status string
	err := l.db.QueryRowContext(ctx,
		`select status from access_tokens where token=$1`, token,
	).Scan(&status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return TokenStatus(status) == TokenActive, nil
}

func (l *tokenLedger) Revoke(ctx context.Context, token string) error {
	_, err := l.db.ExecContext(ctx,
		`update access_tokens set status='inactive', updated_at=now() where token=$1 and status='active'`,
		token,
	)
	return err
}
