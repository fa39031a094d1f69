package services

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/xrayportal/internal/common"
	"github.com/dmitrijs2005/xrayportal/internal/dbx"
	"github.com/dmitrijs2005/xrayportal/internal/server/models"
	"github.com/dmitrijs2005/xrayportal/internal/server/repositories/authlogs"
	"github.com/dmitrijs2005/xrayportal/internal/server/repositories/otpcodes"
	"github.com/dmitrijs2005/xrayportal/internal/server/repositories/users"
	"github.com/stretchr/testify/require"
)

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

// ---- users ----

type fakeUsersRepo struct {
	mu     sync.Mutex
	byID   map[int64]*models.User
	nextID int64

	existsErr error
	createErr error
	getErr    error
	updateErr error
	deleteErr error
	deleted   []int64
}

func newFakeUsersRepo() *fakeUsersRepo {
	return &fakeUsersRepo{byID: map[int64]*models.User{}, nextID: 1}
}

func (f *fakeUsersRepo) Create(ctx context.Context, u *models.User) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	for _, x := range f.byID {
		if x.Email == u.Email || x.UserName == u.UserName {
			return nil, common.ErrDuplicateIdentity
		}
	}
	u.ID = f.nextID
	f.nextID++
	cp := *u
	f.byID[u.ID] = &cp
	return u, nil
}

func (f *fakeUsersRepo) ExistsByEmailOrUsername(ctx context.Context, email, username string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.existsErr != nil {
		return false, f.existsErr
	}
	for _, x := range f.byID {
		if x.Email == email || x.UserName == username {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeUsersRepo) GetActiveByEmail(ctx context.Context, email string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	for _, x := range f.byID {
		if x.Email == email && x.IsActive {
			cp := *x
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeUsersRepo) GetPublicByID(ctx context.Context, id int64) (*models.PublicUser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	x, ok := f.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	p := x.Public()
	return &p, nil
}

func (f *fakeUsersRepo) UpdateLastLogin(ctx context.Context, id int64, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return f.updateErr
	}
	x, ok := f.byID[id]
	if !ok {
		return common.ErrorNotFound
	}
	x.LastLogin = &at
	return nil
}

func (f *fakeUsersRepo) Activate(ctx context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	x, ok := f.byID[id]
	if !ok {
		return common.ErrorNotFound
	}
	x.IsActive = true
	return nil
}

func (f *fakeUsersRepo) Delete(ctx context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	if _, ok := f.byID[id]; !ok {
		return common.ErrorNotFound
	}
	delete(f.byID, id)
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeUsersRepo) get(id int64) *models.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	if x, ok := f.byID[id]; ok {
		cp := *x
		return &cp
	}
	return nil
}

// ---- otp codes ----

type fakeOTPRepo struct {
	mu        sync.Mutex
	codes     []*models.OTPCode
	createErr error
	purgeErr  error
	purgedAt  []time.Time
	nextID    int64
}

func (f *fakeOTPRepo) Create(ctx context.Context, c *models.OTPCode) (*models.OTPCode, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.nextID++
	c.ID = f.nextID
	c.CreatedAt = time.Now().Add(time.Duration(f.nextID) * time.Millisecond)
	cp := *c
	f.codes = append(f.codes, &cp)
	return c, nil
}

func (f *fakeOTPRepo) Consume(ctx context.Context, email, code string, purpose models.OTPPurpose, now time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var best *models.OTPCode
	for _, c := range f.codes {
		if c.Email == email && c.Code == code && c.Purpose == purpose && c.Usable(now) {
			if best == nil || c.CreatedAt.After(best.CreatedAt) {
				best = c
			}
		}
	}
	if best == nil {
		return 0, common.ErrorNotFound
	}
	best.IsUsed = true
	return best.UserID, nil
}

func (f *fakeOTPRepo) DeleteExpiredBefore(ctx context.Context, before time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.purgedAt = append(f.purgedAt, before)
	if f.purgeErr != nil {
		return 0, f.purgeErr
	}
	kept := f.codes[:0]
	var n int64
	for _, c := range f.codes {
		if c.ExpiresAt.Before(before) {
			n++
			continue
		}
		kept = append(kept, c)
	}
	f.codes = kept
	return n, nil
}

func (f *fakeOTPRepo) purges() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.purgedAt)
}

func (f *fakeOTPRepo) last() *models.OTPCode {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.codes) == 0 {
		return nil
	}
	cp := *f.codes[len(f.codes)-1]
	return &cp
}

// ---- auth logs ----

type fakeAuthLogsRepo struct {
	mu      sync.Mutex
	entries []models.AuthLog
	err     error
}

func (f *fakeAuthLogsRepo) Create(ctx context.Context, e *models.AuthLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.entries = append(f.entries, *e)
	return nil
}

func (f *fakeAuthLogsRepo) actions() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.entries))
	for _, e := range f.entries {
		out = append(out, string(e.Action)+":"+string(e.Status))
	}
	return out
}

// ---- manager ----

type fakeRM struct {
	users    *fakeUsersRepo
	otps     *fakeOTPRepo
	authLogs *fakeAuthLogsRepo
}

func newFakeRM() *fakeRM {
	return &fakeRM{users: newFakeUsersRepo(), otps: &fakeOTPRepo{}, authLogs: &fakeAuthLogsRepo{}}
}

func (m *fakeRM) RunMigrations(context.Context, *sql.DB) error  { return nil }
func (m *fakeRM) Users(dbx.DBTX) users.Repository               { return m.users }
func (m *fakeRM) OTPCodes(dbx.DBTX) otpcodes.Repository         { return m.otps }
func (m *fakeRM) AuthLogs(dbx.DBTX) authlogs.Repository         { return m.authLogs }

// ---- mailer ----

type sentMail struct {
	to, code string
	validity time.Duration
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (f *fakeMailer) SendOTP(ctx context.Context, to, code string, validity time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentMail{to: to, code: code, validity: validity})
	return nil
}
