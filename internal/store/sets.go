package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"audioserver/internal/catalog"
)

const setColumns = "id, membership_key, created_at"

// FindSetByMembership returns the set registered under the membership key, if any.
func (s *Store) FindSetByMembership(ctx context.Context, key string) (*catalog.ClipSet, error) {
	return s.getSet(ctx, `SELECT `+setColumns+` FROM clip_sets WHERE membership_key = ?`, key)
}

// GetSet fetches a clip set and its ordered members by identifier.
func (s *Store) GetSet(ctx context.Context, id string) (*catalog.ClipSet, error) {
	return s.getSet(ctx, `SELECT `+setColumns+` FROM clip_sets WHERE id = ?`, id)
}

func (s *Store) getSet(ctx context.Context, query string, arg any) (*catalog.ClipSet, error) {
	ctx = ensureContext(ctx)
	var (
		set        catalog.ClipSet
		createdRaw sql.NullString
	)
	err := s.db.QueryRowContext(ctx, query, arg).Scan(&set.ID, &set.MembershipKey, &createdRaw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get clip set: %w", err)
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		set.CreatedAt = created
	}
	members, err := s.setMembers(ctx, set.ID)
	if err != nil {
		return nil, err
	}
	set.ClipIDs = members
	return &set, nil
}

func (s *Store) setMembers(ctx context.Context, setID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT clip_id FROM clip_set_members WHERE set_id = ? ORDER BY position`, setID)
	if err != nil {
		return nil, fmt.Errorf("list set members: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// InsertSet registers set unless another set already holds its membership
// key. It returns the stored set for the key and whether this call created it.
// Members are written in the order of set.ClipIDs.
func (s *Store) InsertSet(ctx context.Context, set catalog.ClipSet) (catalog.ClipSet, bool, error) {
	var created bool
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		created = false
		res, err := tx.ExecContext(ctx,
			`INSERT INTO clip_sets (id, membership_key, created_at)
             VALUES (?, ?, ?)
             ON CONFLICT (membership_key) DO NOTHING`,
			set.ID, set.MembershipKey, formatTime(set.CreatedAt),
		)
		if err != nil {
			return fmt.Errorf("insert clip set: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("insert clip set rows affected: %w", err)
		}
		if affected == 0 {
			return nil
		}
		for position, clipID := range set.ClipIDs {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO clip_set_members (set_id, position, clip_id) VALUES (?, ?, ?)`,
				set.ID, position, clipID,
			); err != nil {
				if isForeignKeyViolation(err) {
					return fmt.Errorf("%w: clip %s", ErrUnknownReference, clipID)
				}
				return fmt.Errorf("insert set member: %w", err)
			}
		}
		created = true
		return nil
	})
	if err != nil {
		return catalog.ClipSet{}, false, err
	}

	stored, err := s.FindSetByMembership(ctx, set.MembershipKey)
	if err != nil {
		return catalog.ClipSet{}, false, err
	}
	if stored == nil {
		return catalog.ClipSet{}, false, fmt.Errorf("clip set %s vanished after insert", set.ID)
	}
	return *stored, created, nil
}

// ListSets returns every clip set with its members, oldest first.
func (s *Store) ListSets(ctx context.Context) ([]catalog.ClipSet, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx, `SELECT `+setColumns+` FROM clip_sets ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list clip sets: %w", err)
	}
	var sets []catalog.ClipSet
	for rows.Next() {
		var (
			set        catalog.ClipSet
			createdRaw sql.NullString
		)
		if err := rows.Scan(&set.ID, &set.MembershipKey, &createdRaw); err != nil {
			rows.Close()
			return nil, err
		}
		if created, err := parseTimeString(createdRaw.String); err == nil {
			set.CreatedAt = created
		}
		sets = append(sets, set)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	for i := range sets {
		members, err := s.setMembers(ctx, sets[i].ID)
		if err != nil {
			return nil, err
		}
		sets[i].ClipIDs = members
	}
	return sets, nil
}
