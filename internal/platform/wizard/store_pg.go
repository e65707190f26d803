package wizard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/barangay/egov/internal/platform/db"
)

type pgStore struct {
	pool *pgxpool.Pool
}

// NewPGStore persists sessions in the wizard_draft table.
func NewPGStore(pool *pgxpool.Pool) Store {
	return &pgStore{pool: pool}
}

func (s *pgStore) conn(ctx context.Context) db.Queryable {
	return db.Conn(ctx, s.pool)
}

const draftCols = `id, kind, owner_id, params, step, state, created_at, updated_at`

func (s *pgStore) Save(ctx context.Context, r *Record) error {
	id, err := uuid.Parse(r.ID)
	if err != nil {
		return fmt.Errorf("save wizard draft: invalid id %q", r.ID)
	}
	params, err := json.Marshal(r.Params)
	if err != nil {
		return fmt.Errorf("save wizard draft: %w", err)
	}
	_, err = s.conn(ctx).Exec(ctx, `
		INSERT INTO wizard_draft (id, kind, owner_id, params, step, state, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			step = EXCLUDED.step,
			state = EXCLUDED.state,
			updated_at = EXCLUDED.updated_at`,
		id, r.Kind, r.OwnerID, params, r.Step, []byte(r.State), r.CreatedAt, r.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save wizard draft: %w", err)
	}
	return nil
}

func (s *pgStore) Load(ctx context.Context, id string) (*Record, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrNotFound
	}
	r, err := scanRecord(s.conn(ctx).QueryRow(ctx, `SELECT `+draftCols+` FROM wizard_draft WHERE id = $1`, uid))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load wizard draft: %w", err)
	}
	return r, nil
}

func (s *pgStore) Delete(ctx context.Context, id string) error {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil
	}
	if _, err := s.conn(ctx).Exec(ctx, `DELETE FROM wizard_draft WHERE id = $1`, uid); err != nil {
		return fmt.Errorf("delete wizard draft: %w", err)
	}
	return nil
}

func (s *pgStore) List(ctx context.Context, ownerID string) ([]*Record, error) {
	rows, err := s.conn(ctx).Query(ctx,
		`SELECT `+draftCols+` FROM wizard_draft WHERE owner_id = $1 ORDER BY updated_at DESC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list wizard drafts: %w", err)
	}
	defer rows.Close()

	var out []*Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan wizard draft: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *pgStore) Purge(ctx context.Context, before time.Time) (int, error) {
	tag, err := s.conn(ctx).Exec(ctx, `DELETE FROM wizard_draft WHERE updated_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("purge wizard drafts: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func scanRecord(row pgx.Row) (*Record, error) {
	var (
		r      Record
		id     uuid.UUID
		params []byte
		state  []byte
	)
	if err := row.Scan(&id, &r.Kind, &r.OwnerID, &params, &r.Step, &state, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}
	r.ID = id.String()
	if len(params) > 0 {
		if err := json.Unmarshal(params, &r.Params); err != nil {
			return nil, fmt.Errorf("decode params: %w", err)
		}
	}
	r.State = state
	return &r, nil
}
