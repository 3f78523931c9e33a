// Package setcache registers clip sets by membership so that asking for the
// same clips twice, in any order, yields the same set.
package setcache

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"audioserver/internal/catalog"
	"audioserver/internal/keylock"
	"audioserver/internal/logging"
	"audioserver/internal/services"
	"audioserver/internal/store"
)

const component = "setcache"

// Persistence is the record storage the cache builds on.
type Persistence interface {
	FindSetByMembership(ctx context.Context, key string) (*catalog.ClipSet, error)
	InsertSet(ctx context.Context, set catalog.ClipSet) (catalog.ClipSet, bool, error)
	GetSet(ctx context.Context, id string) (*catalog.ClipSet, error)
}

// Cache resolves clip sets by membership.
type Cache struct {
	persist Persistence
	logger  *slog.Logger
	locks   keylock.Map
	now     func() time.Time
}

// New constructs a Cache over the given persistence.
func New(persist Persistence, logger *slog.Logger) *Cache {
	return &Cache{
		persist: persist,
		logger:  logging.NewComponentLogger(logger, component),
		now:     time.Now,
	}
}

// GetOrCreate returns the set whose membership equals clipIDs, registering a
// new one when none exists. Order and repeats in clipIDs do not affect the
// match. A new set keeps the given order with repeats dropped; an existing
// set is returned unchanged. The bool reports whether a set was created.
func (c *Cache) GetOrCreate(ctx context.Context, clipIDs []string) (catalog.ClipSet, bool, error) {
	members := catalog.UniqueIDs(clipIDs)
	for _, id := range members {
		if strings.TrimSpace(id) == "" {
			return catalog.ClipSet{}, false, services.Wrap(services.ErrValidation, component, "get or create", "empty clip id", nil)
		}
	}
	key := catalog.MembershipKey(members)

	if set, err := c.persist.FindSetByMembership(ctx, key); err != nil {
		return catalog.ClipSet{}, false, services.Wrap(nil, component, "get or create", "find set", err)
	} else if set != nil {
		return *set, false, nil
	}

	unlock := c.locks.Lock(key)
	defer unlock()

	if err := ctx.Err(); err != nil {
		return catalog.ClipSet{}, false, err
	}

	set, created, err := c.persist.InsertSet(ctx, catalog.ClipSet{
		ID:            uuid.NewString(),
		ClipIDs:       members,
		MembershipKey: key,
		CreatedAt:     c.now().UTC(),
	})
	if err != nil {
		if errors.Is(err, store.ErrUnknownReference) {
			return catalog.ClipSet{}, false, services.Wrap(services.ErrNotFound, component, "get or create", "set references an unknown clip", err)
		}
		return catalog.ClipSet{}, false, services.Wrap(nil, component, "get or create", "insert set", err)
	}
	if created {
		c.logger.Info("clip set registered",
			logging.String(logging.FieldSetID, set.ID),
			logging.Int("clips", set.Len()))
	}
	return set, created, nil
}

// Lookup returns the set registered under setID.
func (c *Cache) Lookup(ctx context.Context, setID string) (catalog.ClipSet, error) {
	setID = strings.TrimSpace(setID)
	if setID == "" {
		return catalog.ClipSet{}, services.Wrap(services.ErrValidation, component, "lookup", "set id is empty", nil)
	}
	set, err := c.persist.GetSet(ctx, setID)
	if err != nil {
		return catalog.ClipSet{}, services.Wrap(nil, component, "lookup", "get set", err)
	}
	if set == nil {
		return catalog.ClipSet{}, services.Wrap(services.ErrNotFound, component, "lookup", "set "+setID, nil)
	}
	return *set, nil
}
