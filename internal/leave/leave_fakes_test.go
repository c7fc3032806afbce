package leave_test

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"leave-portal/internal/cache"
	"leave-portal/internal/leave"
	"leave-portal/internal/user"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

type memStore struct {
	mu   sync.Mutex
	data map[string]string
	down bool
}

func newMemStore() *memStore {
	return &memStore{data: map[string]string{}}
}

func (m *memStore) Get(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.down {
		return "", cache.ErrUnavailable
	}
	v, ok := m.data[key]
	if !ok {
		return "", cache.ErrMiss
	}
	return v, nil
}

func (m *memStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.down {
		return cache.ErrUnavailable
	}
	m.data[key] = value
	return nil
}

func (m *memStore) Del(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.down {
		return cache.ErrUnavailable
	}
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

func (m *memStore) has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.data[key]
	return ok
}

// fakeLeaveRepository keeps leaves in memory. The err fields override the
// matching method.
type fakeLeaveRepository struct {
	mu       sync.Mutex
	leaves   map[uuid.UUID]*leave.Leave
	users    *fakeUserRepository
	clock    time.Time
	findAlls int

	createErr  error
	findAllErr error
	updateErr  error
}

func newFakeLeaveRepository(users *fakeUserRepository) *fakeLeaveRepository {
	return &fakeLeaveRepository{
		leaves: map[uuid.UUID]*leave.Leave{},
		users:  users,
		clock:  time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC),
	}
}

func (f *fakeLeaveRepository) WithTx(tx *gorm.DB) leave.Repository {
	return f
}

func (f *fakeLeaveRepository) Create(ctx context.Context, l *leave.Leave) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clock = f.clock.Add(time.Minute)
	l.CreatedAt = f.clock
	l.UpdatedAt = f.clock
	stored := *l
	stored.Owner = nil
	stored.Approver = nil
	f.leaves[l.ID] = &stored
	return nil
}

func (f *fakeLeaveRepository) load(id string) (*leave.Leave, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, gorm.ErrRecordNotFound
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.leaves[parsed]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *l
	return &cp, nil
}

func (f *fakeLeaveRepository) expand(l *leave.Leave) {
	if f.users == nil {
		return
	}
	if u, ok := f.users.get(l.UserID.String()); ok {
		l.Owner = &leave.LeaveOwner{
			ID:                u.ID,
			Name:              u.Name,
			Email:             u.Email,
			Role:              u.Role,
			LeaveBalance:      u.LeaveBalance,
			TotalLeaveBalance: u.TotalLeaveBalance,
		}
	}
	if l.ApproverID != nil {
		if u, ok := f.users.get(l.ApproverID.String()); ok {
			l.Approver = &leave.LeaveApprover{ID: u.ID, Name: u.Name}
		}
	}
}

func (f *fakeLeaveRepository) FindByID(ctx context.Context, id string) (*leave.Leave, error) {
	l, err := f.load(id)
	if err != nil {
		return nil, err
	}
	f.expand(l)
	return l, nil
}

func (f *fakeLeaveRepository) FindByIDForUpdate(ctx context.Context, id string) (*leave.Leave, error) {
	return f.load(id)
}

func (f *fakeLeaveRepository) FindAll(ctx context.Context, userID string) ([]leave.Leave, error) {
	f.mu.Lock()
	f.findAlls++
	if f.findAllErr != nil {
		f.mu.Unlock()
		return nil, f.findAllErr
	}
	out := make([]leave.Leave, 0, len(f.leaves))
	for _, l := range f.leaves {
		if userID != "" && l.UserID.String() != userID {
			continue
		}
		out = append(out, *l)
	}
	f.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	for i := range out {
		f.expand(&out[i])
	}
	return out, nil
}

func (f *fakeLeaveRepository) UpdateDecision(ctx context.Context, id string, d leave.Decision) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	parsed, _ := uuid.Parse(id)
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.leaves[parsed]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	approver := d.ApproverID
	decidedAt := d.DecidedAt
	l.Status = d.Status
	l.ApproverID = &approver
	l.ApproverRemark = d.ApproverRemark
	l.DecidedAt = &decidedAt
	return nil
}

func (f *fakeLeaveRepository) listCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.findAlls
}

type fakeUserRepository struct {
	mu    sync.Mutex
	users map[string]*user.User
	reads int

	findErr error
}

func newFakeUserRepository(users ...user.User) *fakeUserRepository {
	f := &fakeUserRepository{users: map[string]*user.User{}}
	for i := range users {
		u := users[i]
		f.users[u.ID.String()] = &u
	}
	return f
}

func (f *fakeUserRepository) get(id string) (user.User, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return user.User{}, false
	}
	return *u, true
}

func (f *fakeUserRepository) balance(t *testing.T, id string) int {
	t.Helper()
	u, ok := f.get(id)
	assert.True(t, ok)
	return u.LeaveBalance
}

func (f *fakeUserRepository) readCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reads
}

func (f *fakeUserRepository) WithTx(tx *gorm.DB) user.Repository {
	return f
}

func (f *fakeUserRepository) Create(ctx context.Context, u *user.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *u
	f.users[u.ID.String()] = &cp
	return nil
}

func (f *fakeUserRepository) FindByID(ctx context.Context, id string) (*user.User, error) {
	f.mu.Lock()
	f.reads++
	f.mu.Unlock()
	if f.findErr != nil {
		return nil, f.findErr
	}
	u, ok := f.get(id)
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &u, nil
}

func (f *fakeUserRepository) FindByIDForUpdate(ctx context.Context, id string) (*user.User, error) {
	return f.FindByID(ctx, id)
}

func (f *fakeUserRepository) FindByEmail(ctx context.Context, email string) (*user.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeUserRepository) FindAll(ctx context.Context) ([]user.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]user.User, 0, len(f.users))
	for _, u := range f.users {
		out = append(out, *u)
	}
	return out, nil
}

func (f *fakeUserRepository) UpdateBalance(ctx context.Context, id string, balance int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	u.LeaveBalance = balance
	return nil
}

// recordingInvalidator deletes synchronously so tests can assert on the
// store right after a write.
type recordingInvalidator struct {
	mu     sync.Mutex
	client *cache.Client
	keys   []string
}

func (r *recordingInvalidator) Invalidate(ctx context.Context, keys ...string) {
	r.mu.Lock()
	r.keys = append(r.keys, keys...)
	r.mu.Unlock()
	for _, k := range cache.CompactKeys(keys) {
		_ = r.client.Delete(ctx, k)
	}
}

func (r *recordingInvalidator) invalidated() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.keys...)
}

func newGormMock(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	gdb, err := gorm.Open(postgres.New(postgres.Config{Conn: db}), &gorm.Config{DisableAutomaticPing: true})
	assert.NoError(t, err)
	return gdb, mock
}

func expectTx(mock sqlmock.Sqlmock, commit bool) {
	mock.ExpectBegin()
	if commit {
		mock.ExpectCommit()
	} else {
		mock.ExpectRollback()
	}
}
