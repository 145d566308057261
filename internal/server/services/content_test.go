package services

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/antong314/dayly/internal/common"
	"github.com/antong314/dayly/internal/dbx"
	"github.com/antong314/dayly/internal/logging"
	"github.com/antong314/dayly/internal/server/config"
	"github.com/antong314/dayly/internal/server/models"
	"github.com/antong314/dayly/internal/server/repositories/dailysends"
	"github.com/antong314/dayly/internal/server/repositories/groups"
	"github.com/antong314/dayly/internal/server/repositories/photos"
	"github.com/antong314/dayly/internal/server/repositories/repomanager"
)

// -------- test fakes --------

type fakeGroupsRepo struct {
	groups.Repository
	member    bool
	memberErr error
	forUser   []*models.Group
	members   []string
}

func (f *fakeGroupsRepo) IsMember(ctx context.Context, groupID, userID string) (bool, error) {
	return f.member, f.memberErr
}
func (f *fakeGroupsRepo) ListForUser(ctx context.Context, userID string) ([]*models.Group, error) {
	return f.forUser, nil
}
func (f *fakeGroupsRepo) MembersOf(ctx context.Context, groupID string) ([]string, error) {
	return f.members, nil
}

type fakePhotosRepo struct {
	photos.Repository
	countOnDay int
	countErr   error

	created    []*models.Photo
	createNoop bool
	createErr  error
	listSince  []*models.Photo
	listErr    error
	expired    []*models.Photo
	deleted    []string
	deleteErr  error
	expiredErr error
}

func (f *fakePhotosRepo) CountOnDay(ctx context.Context, groupID, day string) (int, error) {
	return f.countOnDay, f.countErr
}
func (f *fakePhotosRepo) Create(ctx context.Context, p *models.Photo) (bool, error) {
	if f.createErr != nil {
		return false, f.createErr
	}
	if f.createNoop {
		return false, nil
	}
	f.created = append(f.created, p)
	return true, nil
}
func (f *fakePhotosRepo) ListByGroupSince(ctx context.Context, groupID string, since time.Time) ([]*models.Photo, error) {
	return f.listSince, f.listErr
}
func (f *fakePhotosRepo) ListExpired(ctx context.Context, now time.Time) ([]*models.Photo, error) {
	return f.expired, f.expiredErr
}
func (f *fakePhotosRepo) DeleteByID(ctx context.Context, id string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, id)
	return nil
}

type fakeSendsRepo struct {
	dailysends.Repository
	exists    bool
	existsErr error
	inserted  [][3]string
	insertErr error
}

func (f *fakeSendsRepo) Exists(ctx context.Context, userID, groupID, sentOn string) (bool, error) {
	return f.exists, f.existsErr
}
func (f *fakeSendsRepo) Insert(ctx context.Context, userID, groupID, sentOn string) (bool, error) {
	if f.insertErr != nil {
		return false, f.insertErr
	}
	f.inserted = append(f.inserted, [3]string{userID, groupID, sentOn})
	return true, nil
}

type fakeRepoManager struct {
	repomanager.RepositoryManager
	g *fakeGroupsRepo
	p *fakePhotosRepo
	d *fakeSendsRepo
}

func (m *fakeRepoManager) Groups(db dbx.DBTX) groups.Repository         { return m.g }
func (m *fakeRepoManager) Photos(db dbx.DBTX) photos.Repository         { return m.p }
func (m *fakeRepoManager) DailySends(db dbx.DBTX) dailysends.Repository { return m.d }

type fakeStorage struct {
	putURL  string
	putErr  error
	getURL  string
	getErr  error
	deleted []string
	delErr  error
}

func (f *fakeStorage) PresignPut(ctx context.Context, key string) (string, error) {
	return f.putURL, f.putErr
}
func (f *fakeStorage) PresignGet(ctx context.Context, key string) (string, error) {
	return f.getURL, f.getErr
}
func (f *fakeStorage) DeleteObject(ctx context.Context, key string) error {
	if f.delErr != nil {
		return f.delErr
	}
	f.deleted = append(f.deleted, key)
	return nil
}

type fakeNotifier struct {
	calls int
	last  []string
}

func (f *fakeNotifier) FirstContentOfDay(ctx context.Context, groupID, senderID, day string, recipientIDs []string) {
	f.calls++
	f.last = recipientIDs
}

// -------- helpers --------

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return db, mock
}

func newService(t *testing.T, db *sql.DB, m *fakeRepoManager, st *fakeStorage, n *fakeNotifier) *ContentService {
	t.Helper()
	cfg := &config.Config{
		S3Bucket:      "photos",
		MaxPhotoBytes: 10 << 20,
		PresignExpiry: 15 * time.Minute,
	}
	return NewContentService(db, m, st, n, cfg, logging.NewDiscard())
}

// -------- tests --------

func TestGroups_PopulatesMembers(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	g := &fakeGroupsRepo{
		forUser: []*models.Group{{ID: "g1", Name: "family"}},
		members: []string{"u1", "u2"},
	}
	m := &fakeRepoManager{g: g, p: &fakePhotosRepo{}, d: &fakeSendsRepo{}}
	s := newService(t, db, m, &fakeStorage{}, &fakeNotifier{})

	got, err := s.Groups(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Groups error: %v", err)
	}
	if len(got) != 1 || len(got[0].MemberIDs) != 2 {
		t.Fatalf("unexpected groups: %+v", got)
	}
}

func TestIssueUploadURL_Success(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	m := &fakeRepoManager{
		g: &fakeGroupsRepo{member: true},
		p: &fakePhotosRepo{},
		d: &fakeSendsRepo{exists: false},
	}
	st := &fakeStorage{putURL: "http://signed-put"}
	s := newService(t, db, m, st, &fakeNotifier{})

	grant, err := s.IssueUploadURL(context.Background(), "u1", "g1", "ph1", "2026-08-31", 1024)
	if err != nil {
		t.Fatalf("IssueUploadURL error: %v", err)
	}
	if grant.StorageKey != "groups/g1/ph1" {
		t.Fatalf("unexpected key: %q", grant.StorageKey)
	}
	if grant.URL != "http://signed-put" {
		t.Fatalf("unexpected url: %q", grant.URL)
	}
}

func TestIssueUploadURL_NotAMember(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	m := &fakeRepoManager{g: &fakeGroupsRepo{member: false}, p: &fakePhotosRepo{}, d: &fakeSendsRepo{}}
	s := newService(t, db, m, &fakeStorage{}, &fakeNotifier{})

	_, err := s.IssueUploadURL(context.Background(), "stranger", "g1", "ph1", "2026-08-31", 1024)
	if !errors.Is(err, common.ErrUnauthorized) {
		t.Fatalf("want ErrUnauthorized, got %v", err)
	}
}

func TestIssueUploadURL_QuotaAlreadySpent(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	m := &fakeRepoManager{
		g: &fakeGroupsRepo{member: true},
		p: &fakePhotosRepo{},
		d: &fakeSendsRepo{exists: true},
	}
	s := newService(t, db, m, &fakeStorage{}, &fakeNotifier{})

	_, err := s.IssueUploadURL(context.Background(), "u1", "g1", "ph1", "2026-08-31", 1024)
	if !errors.Is(err, common.ErrQuotaExceeded) {
		t.Fatalf("want ErrQuotaExceeded, got %v", err)
	}
}

func TestIssueUploadURL_RejectsBadInput(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	m := &fakeRepoManager{g: &fakeGroupsRepo{member: true}, p: &fakePhotosRepo{}, d: &fakeSendsRepo{}}
	s := newService(t, db, m, &fakeStorage{}, &fakeNotifier{})

	if _, err := s.IssueUploadURL(context.Background(), "u1", "g1", "ph1", "31-08-2026", 1024); !errors.Is(err, common.ErrPayloadInvalid) {
		t.Fatalf("bad day: want ErrPayloadInvalid, got %v", err)
	}
	if _, err := s.IssueUploadURL(context.Background(), "u1", "g1", "ph1", "2026-08-31", 0); !errors.Is(err, common.ErrPayloadInvalid) {
		t.Fatalf("zero size: want ErrPayloadInvalid, got %v", err)
	}
	if _, err := s.IssueUploadURL(context.Background(), "u1", "g1", "ph1", "2026-08-31", 100<<20); !errors.Is(err, common.ErrPayloadInvalid) {
		t.Fatalf("oversize: want ErrPayloadInvalid, got %v", err)
	}
}

func TestConfirmUpload_FirstOfDayNotifies(t *testing.T) {
	db, mock := newSQLMockDB(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectCommit()

	g := &fakeGroupsRepo{member: true, members: []string{"u1", "u2", "u3"}}
	p := &fakePhotosRepo{countOnDay: 0}
	d := &fakeSendsRepo{}
	m := &fakeRepoManager{g: g, p: p, d: d}
	n := &fakeNotifier{}
	s := newService(t, db, m, &fakeStorage{}, n)

	created := time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC)
	photo := &models.Photo{
		ID: "ph1", GroupID: "g1", StorageKey: "groups/g1/ph1",
		SizeBytes: 1024, Day: "2026-08-31", CreatedAt: created,
	}
	if err := s.ConfirmUpload(context.Background(), "u1", photo); err != nil {
		t.Fatalf("ConfirmUpload error: %v", err)
	}

	if photo.SenderID != "u1" {
		t.Fatalf("sender not set: %q", photo.SenderID)
	}
	if !photo.ExpiresAt.Equal(created.Add(common.ContentTTL)) {
		t.Fatalf("unexpected expiry: %v", photo.ExpiresAt)
	}
	if len(p.created) != 1 {
		t.Fatalf("photo not created")
	}
	if len(d.inserted) != 1 || d.inserted[0] != [3]string{"u1", "g1", "2026-08-31"} {
		t.Fatalf("daily send not recorded: %+v", d.inserted)
	}
	if n.calls != 1 {
		t.Fatalf("notifier calls = %d, want 1", n.calls)
	}
	if len(n.last) != 2 {
		t.Fatalf("sender should be excluded from recipients: %+v", n.last)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}

func TestConfirmUpload_SecondOfDayDoesNotNotify(t *testing.T) {
	db, mock := newSQLMockDB(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectCommit()

	m := &fakeRepoManager{
		g: &fakeGroupsRepo{member: true, members: []string{"u1", "u2"}},
		p: &fakePhotosRepo{countOnDay: 1},
		d: &fakeSendsRepo{},
	}
	n := &fakeNotifier{}
	s := newService(t, db, m, &fakeStorage{}, n)

	photo := &models.Photo{ID: "ph2", GroupID: "g1", Day: "2026-08-31", CreatedAt: time.Now().UTC()}
	if err := s.ConfirmUpload(context.Background(), "u2", photo); err != nil {
		t.Fatalf("ConfirmUpload error: %v", err)
	}
	if n.calls != 0 {
		t.Fatalf("notifier calls = %d, want 0", n.calls)
	}
}

func TestConfirmUpload_DuplicateIsNoop(t *testing.T) {
	db, mock := newSQLMockDB(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectCommit()

	m := &fakeRepoManager{
		g: &fakeGroupsRepo{member: true, members: []string{"u1", "u2"}},
		p: &fakePhotosRepo{countOnDay: 0, createNoop: true},
		d: &fakeSendsRepo{},
	}
	n := &fakeNotifier{}
	s := newService(t, db, m, &fakeStorage{}, n)

	photo := &models.Photo{ID: "ph1", GroupID: "g1", Day: "2026-08-31", CreatedAt: time.Now().UTC()}
	if err := s.ConfirmUpload(context.Background(), "u1", photo); err != nil {
		t.Fatalf("ConfirmUpload error: %v", err)
	}
	if n.calls != 0 {
		t.Fatalf("reconfirm must not notify, calls = %d", n.calls)
	}
}

func TestConfirmUpload_RollsBackOnSendInsertError(t *testing.T) {
	db, mock := newSQLMockDB(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectRollback()

	m := &fakeRepoManager{
		g: &fakeGroupsRepo{member: true},
		p: &fakePhotosRepo{},
		d: &fakeSendsRepo{insertErr: errors.New("boom")},
	}
	s := newService(t, db, m, &fakeStorage{}, &fakeNotifier{})

	photo := &models.Photo{ID: "ph1", GroupID: "g1", Day: "2026-08-31", CreatedAt: time.Now().UTC()}
	if err := s.ConfirmUpload(context.Background(), "u1", photo); err == nil {
		t.Fatalf("expected error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}

func TestListGroupContent_FiltersExpiredAndPresigns(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	now := time.Now().UTC()
	m := &fakeRepoManager{
		g: &fakeGroupsRepo{member: true},
		p: &fakePhotosRepo{listSince: []*models.Photo{
			{ID: "fresh", StorageKey: "groups/g1/fresh", ExpiresAt: now.Add(time.Hour)},
			{ID: "stale", StorageKey: "groups/g1/stale", ExpiresAt: now.Add(-time.Minute)},
		}},
		d: &fakeSendsRepo{},
	}
	st := &fakeStorage{getURL: "http://signed-get"}
	s := newService(t, db, m, st, &fakeNotifier{})

	items, err := s.ListGroupContent(context.Background(), "u1", "g1", now.Add(-48*time.Hour))
	if err != nil {
		t.Fatalf("ListGroupContent error: %v", err)
	}
	if len(items) != 1 || items[0].Photo.ID != "fresh" {
		t.Fatalf("unexpected items: %+v", items)
	}
	if items[0].FetchURL != "http://signed-get" {
		t.Fatalf("unexpected fetch url: %q", items[0].FetchURL)
	}
}

func TestListGroupContent_PresignFailureLeavesItemWithoutURL(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	m := &fakeRepoManager{
		g: &fakeGroupsRepo{member: true},
		p: &fakePhotosRepo{listSince: []*models.Photo{
			{ID: "ph1", StorageKey: "groups/g1/ph1", ExpiresAt: time.Now().Add(time.Hour)},
		}},
		d: &fakeSendsRepo{},
	}
	st := &fakeStorage{getErr: errors.New("presign down")}
	s := newService(t, db, m, st, &fakeNotifier{})

	items, err := s.ListGroupContent(context.Background(), "u1", "g1", time.Time{})
	if err != nil {
		t.Fatalf("ListGroupContent error: %v", err)
	}
	if len(items) != 1 || items[0].FetchURL != "" {
		t.Fatalf("unexpected items: %+v", items)
	}
}

func TestDailySend_CheckAndCommit(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	d := &fakeSendsRepo{exists: true}
	m := &fakeRepoManager{g: &fakeGroupsRepo{member: true}, p: &fakePhotosRepo{}, d: d}
	s := newService(t, db, m, &fakeStorage{}, &fakeNotifier{})

	sent, err := s.CheckDailySend(context.Background(), "u1", "g1", "2026-08-31")
	if err != nil || !sent {
		t.Fatalf("CheckDailySend = %v, %v", sent, err)
	}

	if err := s.CommitDailySend(context.Background(), "u1", "g1", "2026-08-31"); err != nil {
		t.Fatalf("CommitDailySend error: %v", err)
	}
	if len(d.inserted) != 1 {
		t.Fatalf("send not recorded")
	}

	if err := s.CommitDailySend(context.Background(), "u1", "g1", "not-a-day"); !errors.Is(err, common.ErrPayloadInvalid) {
		t.Fatalf("bad day: want ErrPayloadInvalid, got %v", err)
	}
}
