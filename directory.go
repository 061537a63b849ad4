package presence

import (
	"context"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

// Directory reconciles the durable user store with the presence cache and
// owns the active-user set. All presence reads and mutations go through it;
// nothing else touches the cache keys directly.
//
// Store writes are authoritative and their failures propagate. Cache writes
// ride along best-effort: a failed cache operation is logged and absorbed,
// never rolled back into the store, and self-heals on the next cache-miss
// read.
type Directory struct {
	repo   Users
	cache  Cache
	logger Logger
	now    func() time.Time
}

type DirectoryOption func(*Directory)

// WithLogger replaces the default stdout logger.
func WithLogger(logger Logger) DirectoryOption {
	return func(d *Directory) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithClock overrides the time source. Used by tests.
func WithClock(now func() time.Time) DirectoryOption {
	return func(d *Directory) {
		if now != nil {
			d.now = now
		}
	}
}

// NewDirectory wires a Directory over its store and cache.
func NewDirectory(repo Users, cache Cache, opts ...DirectoryOption) *Directory {
	d := &Directory{
		repo:   repo,
		cache:  cache,
		logger: defLogger{},
		now:    time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	return d
}

// HandleConnection upserts the record identified by externalID as connected,
// writes it through to the cache, and adds it to the active set. Replaying
// the same event is safe: the terminal state is identical to a single call.
func (d *Directory) HandleConnection(ctx context.Context, externalID string, attrs ConnectionAttrs) (*User, error) {
	externalID = strings.TrimSpace(externalID)
	if externalID == "" {
		return nil, goerrors.New("external id is required", goerrors.CategoryBadInput)
	}

	now := d.now()

	user, err := d.repo.GetByExternalID(ctx, externalID)
	if err != nil && !IsNotFound(err) {
		return nil, err
	}
	if user == nil || IsNotFound(err) {
		user = &User{
			ExternalID: externalID,
			Role:       RoleClient,
		}
	}

	user.Status = StatusConnected
	user.LastActivityAt = &now
	if attrs.Username != "" {
		user.Name = attrs.Username
	}
	if attrs.Email != "" {
		user.Email = attrs.Email
	}
	if attrs.Role != "" {
		user.Role = attrs.Role
	}

	saved, err := d.repo.Upsert(ctx, user)
	if err != nil {
		return nil, err
	}

	if err := d.cache.SetUser(ctx, saved); err != nil {
		d.logger.Error("failed to cache user %d after connection: %v", saved.ID, err)
	}
	if err := d.cache.AddActive(ctx, saved.ID); err != nil {
		d.logger.Error("failed to mark user %d active: %v", saved.ID, err)
	}

	d.logger.Debug("user %s connected as %d", externalID, saved.ID)
	return saved, nil
}

// HandleDisconnection marks the record identified by externalID as
// disconnected and drops it from the active set. Unknown external ids are a
// silent no-op: disconnection events may race with deletion.
//
// The disconnect time is recorded in LastActivityAt; Status, not the
// timestamp, is the authoritative activity flag.
func (d *Directory) HandleDisconnection(ctx context.Context, externalID string) error {
	externalID = strings.TrimSpace(externalID)
	if externalID == "" {
		return goerrors.New("external id is required", goerrors.CategoryBadInput)
	}

	user, err := d.repo.GetByExternalID(ctx, externalID)
	if err != nil {
		if IsNotFound(err) {
			d.logger.Debug("disconnection for unknown user %s ignored", externalID)
			return nil
		}
		return err
	}

	now := d.now()
	user.Status = StatusDisconnected
	user.LastActivityAt = &now

	saved, err := d.repo.Upsert(ctx, user)
	if err != nil {
		return err
	}

	if err := d.cache.SetUser(ctx, saved); err != nil {
		d.logger.Error("failed to cache user %d after disconnection: %v", saved.ID, err)
	}
	if err := d.cache.RemoveActive(ctx, saved.ID); err != nil {
		d.logger.Error("failed to mark user %d inactive: %v", saved.ID, err)
	}

	d.logger.Debug("user %s disconnected", externalID)
	return nil
}

// DeleteUser removes the record identified by externalID from the store,
// evicts its snapshot, and drops it from the active set. Unknown external
// ids are a silent no-op.
func (d *Directory) DeleteUser(ctx context.Context, externalID string) error {
	externalID = strings.TrimSpace(externalID)
	if externalID == "" {
		return goerrors.New("external id is required", goerrors.CategoryBadInput)
	}

	user, err := d.repo.GetByExternalID(ctx, externalID)
	if err != nil {
		if IsNotFound(err) {
			d.logger.Debug("deletion for unknown user %s ignored", externalID)
			return nil
		}
		return err
	}

	if err := d.repo.Delete(ctx, externalID); err != nil && !IsNotFound(err) {
		return err
	}

	if err := d.cache.DeleteUser(ctx, user.ID); err != nil {
		d.logger.Error("failed to evict user %d from cache: %v", user.ID, err)
	}
	if err := d.cache.RemoveActive(ctx, user.ID); err != nil {
		d.logger.Error("failed to remove user %d from active set: %v", user.ID, err)
	}

	d.logger.Debug("user %s deleted", externalID)
	return nil
}

// GetUser is the cache-first lookup. On a miss it reads the store,
// repopulates the cache, and returns the result. A user neither cached nor
// stored yields (nil, nil): absence is a normal answer, not an error.
func (d *Directory) GetUser(ctx context.Context, id int64) (*User, error) {
	cached, err := d.cache.GetUser(ctx, id)
	if err == nil {
		return cached, nil
	}
	if !IsCacheMiss(err) {
		// A broken cache must not take lookups down with it.
		d.logger.Error("cache read for user %d failed, falling back to store: %v", id, err)
	}

	user, err := d.repo.GetByID(ctx, id)
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}

	if err := d.CacheUser(ctx, user); err != nil {
		d.logger.Error("failed to repopulate cache for user %d: %v", id, err)
	}
	return user, nil
}

// IsUserActive reports whether id is a current member of the active set.
// Membership is the single source of truth for activity; no staleness check
// against the record's LastActivityAt is layered on top.
func (d *Directory) IsUserActive(ctx context.Context, id int64) (bool, error) {
	return d.cache.IsActive(ctx, id)
}

// CacheUser writes the record through to the cache unconditionally,
// resetting its TTL. Used by read-repair and by mutation paths.
func (d *Directory) CacheUser(ctx context.Context, user *User) error {
	return d.cache.SetUser(ctx, user)
}
