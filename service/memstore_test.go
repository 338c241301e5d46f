package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mgmassand/life-curriculum-assistant/db"
	"github.com/mgmassand/life-curriculum-assistant/model"
	"github.com/mgmassand/life-curriculum-assistant/repository"
)

var errInjected = errors.New("injected failure")

// memStore is an in-memory stand-in for postgres. WithTx snapshots the state
// and restores it when the unit of work fails, like a rolled back transaction.
type memStore struct {
	mu       sync.Mutex
	families map[uuid.UUID]model.Family
	users    map[uuid.UUID]model.User
	refresh  map[uuid.UUID]model.RefreshToken
	oneTime  map[model.OneTimeTokenKind]map[uuid.UUID]model.OneTimeToken
	failOn   map[string]bool
	commits  int
}

func newMemStore() *memStore {
	return &memStore{
		families: map[uuid.UUID]model.Family{},
		users:    map[uuid.UUID]model.User{},
		refresh:  map[uuid.UUID]model.RefreshToken{},
		oneTime: map[model.OneTimeTokenKind]map[uuid.UUID]model.OneTimeToken{
			model.EmailVerificationToken: {},
			model.PasswordResetToken:     {},
		},
		failOn: map[string]bool{},
	}
}

func (s *memStore) fail(op string) error {
	if s.failOn[op] {
		return errInjected
	}
	return nil
}

func (s *memStore) Conn() db.DBTX { return nil }

func (s *memStore) WithTx(ctx context.Context, fn func(ctx context.Context, tx db.DBTX) error) error {
	s.mu.Lock()
	snapshot := s.copyState()
	s.mu.Unlock()

	if err := fn(ctx, nil); err != nil {
		s.mu.Lock()
		s.families, s.users, s.refresh, s.oneTime = snapshot.families, snapshot.users, snapshot.refresh, snapshot.oneTime
		s.mu.Unlock()
		return err
	}

	s.mu.Lock()
	s.commits++
	s.mu.Unlock()
	return nil
}

func (s *memStore) copyState() *memStore {
	c := &memStore{
		families: make(map[uuid.UUID]model.Family, len(s.families)),
		users:    make(map[uuid.UUID]model.User, len(s.users)),
		refresh:  make(map[uuid.UUID]model.RefreshToken, len(s.refresh)),
		oneTime:  map[model.OneTimeTokenKind]map[uuid.UUID]model.OneTimeToken{},
	}
	for k, v := range s.families {
		c.families[k] = v
	}
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.refresh {
		c.refresh[k] = v
	}
	for kind, m := range s.oneTime {
		c.oneTime[kind] = make(map[uuid.UUID]model.OneTimeToken, len(m))
		for k, v := range m {
			c.oneTime[kind][k] = v
		}
	}
	return c
}

func (s *memStore) userByEmail(email string) (model.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			return u, true
		}
	}
	return model.User{}, false
}

func (s *memStore) refreshRecords(userID uuid.UUID) []model.RefreshToken {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.RefreshToken
	for _, t := range s.refresh {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	return out
}

func (s *memStore) refreshByHash(hash string) (model.RefreshToken, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.refresh {
		if t.TokenHash == hash {
			return t, true
		}
	}
	return model.RefreshToken{}, false
}

func (s *memStore) setActive(userID uuid.UUID, active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.users[userID]
	u.IsActive = active
	s.users[userID] = u
}

type memUsers struct{ s *memStore }

func (r memUsers) Create(ctx context.Context, q db.DBTX, user *model.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("users.Create"); err != nil {
		return err
	}
	for _, u := range r.s.users {
		if u.Email == user.Email {
			return repository.ErrDuplicateEmail
		}
	}
	user.IsActive = true
	user.CreatedAt = time.Now().UTC()
	r.s.users[user.ID] = *user
	return nil
}

func (r memUsers) GetByEmail(ctx context.Context, q db.DBTX, email string) (*model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("users.GetByEmail"); err != nil {
		return nil, err
	}
	for _, u := range r.s.users {
		if u.Email == email {
			u := u
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r memUsers) GetByID(ctx context.Context, q db.DBTX, id uuid.UUID) (*model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("users.GetByID"); err != nil {
		return nil, err
	}
	u, ok := r.s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

func (r memUsers) update(id uuid.UUID, fn func(u *model.User)) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	fn(&u)
	r.s.users[id] = u
	return nil
}

func (r memUsers) UpdateLastLogin(ctx context.Context, q db.DBTX, id uuid.UUID, at time.Time) error {
	return r.update(id, func(u *model.User) { u.LastLogin = &at })
}

func (r memUsers) UpdatePassword(ctx context.Context, q db.DBTX, id uuid.UUID, hashedPassword string) error {
	return r.update(id, func(u *model.User) { u.HashedPassword = hashedPassword })
}

func (r memUsers) MarkEmailVerified(ctx context.Context, q db.DBTX, id uuid.UUID) error {
	return r.update(id, func(u *model.User) { u.EmailVerified = true })
}

type memFamilies struct{ s *memStore }

func (r memFamilies) Create(ctx context.Context, q db.DBTX, family *model.Family) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	family.SubscriptionTier = "free"
	family.IsActive = true
	r.s.families[family.ID] = *family
	return nil
}

func (r memFamilies) GetByID(ctx context.Context, q db.DBTX, id uuid.UUID) (*model.Family, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	f, ok := r.s.families[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &f, nil
}

type memRefreshTokens struct{ s *memStore }

func (r memRefreshTokens) Create(ctx context.Context, q db.DBTX, token *model.RefreshToken) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("refresh.Create"); err != nil {
		return err
	}
	r.s.refresh[token.ID] = *token
	return nil
}

func (r memRefreshTokens) FindActive(ctx context.Context, q db.DBTX, tokenHash string, now time.Time) (*model.RefreshToken, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, t := range r.s.refresh {
		if t.TokenHash == tokenHash && t.RevokedAt == nil && t.ExpiresAt.After(now) {
			t := t
			return &t, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r memRefreshTokens) Revoke(ctx context.Context, q db.DBTX, id uuid.UUID, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.refresh[id]
	if ok && t.RevokedAt == nil {
		t.RevokedAt = &at
		r.s.refresh[id] = t
	}
	return nil
}

func (r memRefreshTokens) RevokeAllForUser(ctx context.Context, q db.DBTX, userID uuid.UUID, at time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for id, t := range r.s.refresh {
		if t.UserID == userID && t.RevokedAt == nil {
			t.RevokedAt = &at
			r.s.refresh[id] = t
			n++
		}
	}
	return n, nil
}

type memOneTimeTokens struct {
	s    *memStore
	kind model.OneTimeTokenKind
}

func (r memOneTimeTokens) Create(ctx context.Context, q db.DBTX, token *model.OneTimeToken) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail(string(r.kind) + ".Create"); err != nil {
		return err
	}
	token.Kind = r.kind
	r.s.oneTime[r.kind][token.ID] = *token
	return nil
}

func (r memOneTimeTokens) FindValid(ctx context.Context, q db.DBTX, tokenHash string, now time.Time) (*model.OneTimeToken, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, t := range r.s.oneTime[r.kind] {
		if t.TokenHash == tokenHash && t.UsedAt == nil && t.ExpiresAt.After(now) {
			t := t
			return &t, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r memOneTimeTokens) MarkUsed(ctx context.Context, q db.DBTX, id uuid.UUID, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.oneTime[r.kind][id]
	if !ok || t.UsedAt != nil {
		return repository.ErrNotFound
	}
	t.UsedAt = &at
	r.s.oneTime[r.kind][id] = t
	return nil
}
