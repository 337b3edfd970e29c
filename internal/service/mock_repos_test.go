package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/baratadiego/appestagio/internal/model"
	"github.com/baratadiego/appestagio/internal/repository"
	pkgerrors "github.com/baratadiego/appestagio/pkg/errors"
	"github.com/baratadiego/appestagio/pkg/storage"
	"github.com/baratadiego/appestagio/pkg/timeutil"
)

// ── 测试环境 ──

// 固定的"现在"：2025-06-10 12:00（圣保罗时间）
var (
	testLoc, _ = time.LoadLocation("America/Sao_Paulo")
	testNow    = time.Date(2025, 6, 10, 12, 0, 0, 0, testLoc)
	testToday  = timeutil.DateOf(testNow, testLoc)
)

func testClock() clock {
	return clock{loc: testLoc, now: func() time.Time { return testNow }}
}

func date(s string) time.Time {
	t, err := timeutil.Parse(s)
	if err != nil {
		panic(err)
	}
	return t
}

type mockRepos struct {
	repo          *repository.Repository
	users         *mockUserRepo
	interns       *mockInternRepo
	agreements    *mockAgreementRepo
	internships   *mockInternshipRepo
	documents     *mockDocumentRepo
	notifications *mockNotificationRepo
	statistics    *mockStatisticsRepo
}

func newMockRepos() *mockRepos {
	m := &mockRepos{
		users:      &mockUserRepo{users: make(map[string]*model.User)},
		interns:    &mockInternRepo{interns: make(map[string]*model.Intern)},
		agreements: &mockAgreementRepo{agreements: make(map[string]*model.HostAgreement)},
		statistics: &mockStatisticsRepo{},
	}
	m.notifications = &mockNotificationRepo{items: make(map[string]*model.Notification), interns: m.interns}
	m.internships = &mockInternshipRepo{
		items:      make(map[string]*model.Internship),
		interns:    m.interns,
		agreements: m.agreements,
	}
	m.documents = &mockDocumentRepo{docs: make(map[string]*model.Document), internships: m.internships}
	m.repo = &repository.Repository{
		User:         m.users,
		Intern:       m.interns,
		Agreement:    m.agreements,
		Internship:   m.internships,
		Document:     m.documents,
		Notification: m.notifications,
		Statistics:   m.statistics,
	}
	return m
}

// seedIntern 插入一个进行中状态的实习生
func (m *mockRepos) seedIntern(id, email string) *model.Intern {
	in := &model.Intern{
		InternID:   id,
		Name:       "Aluno " + id,
		Email:      email,
		Phone:      "(11) 98765-4321",
		NationalID: "529.982.247-25",
		BirthDate:  date("2000-01-15"),
		Course:     "Engenharia de Software",
		Term:       "6",
		Status:     model.InternActive,
		BaseModel:  model.BaseModel{CreatedAt: testNow},
	}
	m.interns.interns[id] = in
	return in
}

func (m *mockRepos) seedAgreement(id, company string, active bool) *model.HostAgreement {
	a := &model.HostAgreement{
		AgreementID: id,
		CompanyName: company,
		TaxID:       "11.222.333/0001-81",
		Address:     "Rua A, 100",
		Phone:       "(11) 3333-4444",
		ContactName: "Contato",
		IsActive:    active,
	}
	m.agreements.agreements[id] = a
	return a
}

func (m *mockRepos) seedInternship(id, internID, agreementID string, status model.InternshipStatus, start, end string) *model.Internship {
	it := &model.Internship{
		InternshipID:   id,
		InternID:       internID,
		AgreementID:    agreementID,
		SupervisorName: "Orientador",
		WeeklyHours:    30,
		StartDate:      date(start),
		EndDate:        date(end),
		Status:         status,
		VersionedModel: model.VersionedModel{Version: 1},
	}
	m.internships.items[id] = it
	return it
}

// ── Mock UserRepository ──

type mockUserRepo struct {
	users map[string]*model.User
	seq   int
}

func (m *mockUserRepo) Create(_ context.Context, user *model.User) error {
	for _, u := range m.users {
		if strings.EqualFold(u.Email, user.Email) {
			return gorm.ErrDuplicatedKey
		}
	}
	if user.UserID == "" {
		m.seq++
		user.UserID = fmt.Sprintf("user-%d", m.seq)
	}
	cp := *user
	m.users[user.UserID] = &cp
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	if u, ok := m.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) Update(_ context.Context, user *model.User) error {
	if _, ok := m.users[user.UserID]; !ok {
		return gorm.ErrRecordNotFound
	}
	cp := *user
	m.users[user.UserID] = &cp
	return nil
}

func (m *mockUserRepo) List(_ context.Context, filter repository.UserFilter, offset, limit int) ([]model.User, int64, error) {
	var all []model.User
	for _, u := range m.users {
		if filter.Role != "" && u.Role != filter.Role {
			continue
		}
		if filter.Search != "" && !containsFold(u.Name, filter.Search) && !containsFold(u.Email, filter.Search) {
			continue
		}
		all = append(all, *u)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].UserID < all[j].UserID })
	return page(all, offset, limit), int64(len(all)), nil
}

// ── Mock InternRepository ──

type mockInternRepo struct {
	interns map[string]*model.Intern
	seq     int
	locked  []string
}

func (m *mockInternRepo) LockForUpdate(_ context.Context, id string) error {
	if _, ok := m.interns[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	m.locked = append(m.locked, id)
	return nil
}

func (m *mockInternRepo) Create(_ context.Context, intern *model.Intern) error {
	for _, in := range m.interns {
		if strings.EqualFold(in.Email, intern.Email) || in.NationalID == intern.NationalID {
			return gorm.ErrDuplicatedKey
		}
	}
	if intern.InternID == "" {
		m.seq++
		intern.InternID = fmt.Sprintf("intern-%d", m.seq)
	}
	cp := *intern
	m.interns[intern.InternID] = &cp
	return nil
}

func (m *mockInternRepo) GetByID(_ context.Context, id string) (*model.Intern, error) {
	if in, ok := m.interns[id]; ok {
		cp := *in
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockInternRepo) GetByEmail(_ context.Context, email string) (*model.Intern, error) {
	for _, in := range m.interns {
		if strings.EqualFold(in.Email, email) {
			cp := *in
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockInternRepo) Update(_ context.Context, intern *model.Intern) error {
	cp := *intern
	m.interns[intern.InternID] = &cp
	return nil
}

func (m *mockInternRepo) Delete(_ context.Context, id string) error {
	delete(m.interns, id)
	return nil
}

func (m *mockInternRepo) List(_ context.Context, filter repository.InternFilter, offset, limit int) ([]model.Intern, int64, error) {
	var all []model.Intern
	for _, in := range m.interns {
		if filter.Status != "" && in.Status != filter.Status {
			continue
		}
		if filter.Course != "" && in.Course != filter.Course {
			continue
		}
		if filter.CourseLike != "" && !containsFold(in.Course, filter.CourseLike) {
			continue
		}
		if filter.Email != "" && !strings.EqualFold(in.Email, filter.Email) {
			continue
		}
		if filter.Search != "" && !containsFold(in.Name, filter.Search) && !containsFold(in.Email, filter.Search) {
			continue
		}
		created := timeutil.DateOf(in.CreatedAt, time.UTC)
		if filter.CreatedFrom != nil && created.Before(*filter.CreatedFrom) {
			continue
		}
		if filter.CreatedTo != nil && created.After(*filter.CreatedTo) {
			continue
		}
		all = append(all, *in)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Name < all[j].Name })
	return page(all, offset, limit), int64(len(all)), nil
}

func (m *mockInternRepo) Count(ctx context.Context, filter repository.InternFilter) (int64, error) {
	_, total, err := m.List(ctx, filter, 0, 0)
	return total, err
}

func (m *mockInternRepo) CountByCourse(_ context.Context) ([]repository.GroupCount, error) {
	counts := make(map[string]int64)
	for _, in := range m.interns {
		counts[in.Course]++
	}
	return groupCounts(counts), nil
}

func (m *mockInternRepo) CountByMonth(_ context.Context) ([]repository.MonthCount, error) {
	counts := make(map[time.Time]int64)
	for _, in := range m.interns {
		month := time.Date(in.CreatedAt.Year(), in.CreatedAt.Month(), 1, 0, 0, 0, 0, time.UTC)
		counts[month]++
	}
	var result []repository.MonthCount
	for k, v := range counts {
		result = append(result, repository.MonthCount{Month: k, Total: v})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Month.Before(result[j].Month) })
	return result, nil
}

// ── Mock AgreementRepository ──

type mockAgreementRepo struct {
	agreements map[string]*model.HostAgreement
	seq        int
	locked     []string
}

func (m *mockAgreementRepo) LockForUpdate(_ context.Context, id string) error {
	if _, ok := m.agreements[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	m.locked = append(m.locked, id)
	return nil
}

func (m *mockAgreementRepo) Create(_ context.Context, a *model.HostAgreement) error {
	for _, existing := range m.agreements {
		if existing.TaxID == a.TaxID {
			return gorm.ErrDuplicatedKey
		}
	}
	if a.AgreementID == "" {
		m.seq++
		a.AgreementID = fmt.Sprintf("agreement-%d", m.seq)
	}
	cp := *a
	m.agreements[a.AgreementID] = &cp
	return nil
}

func (m *mockAgreementRepo) GetByID(_ context.Context, id string) (*model.HostAgreement, error) {
	if a, ok := m.agreements[id]; ok {
		cp := *a
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockAgreementRepo) Update(_ context.Context, a *model.HostAgreement) error {
	cp := *a
	m.agreements[a.AgreementID] = &cp
	return nil
}

func (m *mockAgreementRepo) SetActive(_ context.Context, id string, active bool) error {
	a, ok := m.agreements[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	a.IsActive = active
	return nil
}

func (m *mockAgreementRepo) Delete(_ context.Context, id string) error {
	delete(m.agreements, id)
	return nil
}

func (m *mockAgreementRepo) List(_ context.Context, filter repository.AgreementFilter, offset, limit int) ([]model.HostAgreement, int64, error) {
	var all []model.HostAgreement
	for _, a := range m.agreements {
		if filter.IsActive != nil && a.IsActive != *filter.IsActive {
			continue
		}
		if filter.Search != "" && !containsFold(a.CompanyName, filter.Search) {
			continue
		}
		all = append(all, *a)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CompanyName < all[j].CompanyName })
	return page(all, offset, limit), int64(len(all)), nil
}

func (m *mockAgreementRepo) Count(ctx context.Context, filter repository.AgreementFilter) (int64, error) {
	_, total, err := m.List(ctx, filter, 0, 0)
	return total, err
}

// ── Mock InternshipRepository ──

type mockInternshipRepo struct {
	items      map[string]*model.Internship
	interns    *mockInternRepo
	agreements *mockAgreementRepo
	seq        int
	updateErr  error
	locked     []string
	// deleteLocks 记录 LockForDelete 锁定的实习 ID
	deleteLocks []string
}

func (m *mockInternshipRepo) LockForDelete(_ context.Context, scope repository.DeleteScope) ([]string, error) {
	var ids []string
	for id, it := range m.items {
		if scope.InternshipID != "" && id != scope.InternshipID {
			continue
		}
		if scope.InternID != "" && it.InternID != scope.InternID {
			continue
		}
		if scope.AgreementID != "" && it.AgreementID != scope.AgreementID {
			continue
		}
		ids = append(ids, id)
	}
	sort.Strings(ids)
	m.deleteLocks = append(m.deleteLocks, ids...)
	return ids, nil
}

func (m *mockInternshipRepo) LockIntern(_ context.Context, internID string) error {
	m.locked = append(m.locked, internID)
	return nil
}

func (m *mockInternshipRepo) Create(_ context.Context, it *model.Internship) error {
	if it.InternshipID == "" {
		m.seq++
		it.InternshipID = fmt.Sprintf("internship-%d", m.seq)
	}
	it.Version = 1
	cp := *it
	cp.Intern, cp.Agreement = nil, nil
	m.items[it.InternshipID] = &cp
	return nil
}

// GetByID 返回副本并预加载实习生与协议
func (m *mockInternshipRepo) GetByID(_ context.Context, id string) (*model.Internship, error) {
	it, ok := m.items[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := m.preload(it)
	return &cp, nil
}

func (m *mockInternshipRepo) preload(it *model.Internship) model.Internship {
	cp := *it
	if in, ok := m.interns.interns[it.InternID]; ok {
		inCopy := *in
		cp.Intern = &inCopy
	}
	if a, ok := m.agreements.agreements[it.AgreementID]; ok {
		aCopy := *a
		cp.Agreement = &aCopy
	}
	return cp
}

func (m *mockInternshipRepo) Update(_ context.Context, it *model.Internship) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	stored, ok := m.items[it.InternshipID]
	if !ok || stored.Version != it.Version {
		return pkgerrors.ErrOptimisticLock
	}
	it.Version++
	cp := *it
	cp.Intern, cp.Agreement = nil, nil
	m.items[it.InternshipID] = &cp
	return nil
}

func (m *mockInternshipRepo) Delete(_ context.Context, id string) error {
	delete(m.items, id)
	return nil
}

func (m *mockInternshipRepo) List(_ context.Context, filter repository.InternshipFilter, offset, limit int) ([]model.Internship, int64, error) {
	var all []model.Internship
	for _, it := range m.items {
		if !m.matches(it, filter) {
			continue
		}
		all = append(all, m.preload(it))
	}
	sort.Slice(all, func(i, j int) bool { return all[i].InternshipID < all[j].InternshipID })
	return page(all, offset, limit), int64(len(all)), nil
}

func (m *mockInternshipRepo) matches(it *model.Internship, f repository.InternshipFilter) bool {
	if f.Status != "" && it.Status != f.Status {
		return false
	}
	if f.InternID != "" && it.InternID != f.InternID {
		return false
	}
	if f.AgreementID != "" && it.AgreementID != f.AgreementID {
		return false
	}
	if f.InternEmail != "" {
		in, ok := m.interns.interns[it.InternID]
		if !ok || !strings.EqualFold(in.Email, f.InternEmail) {
			return false
		}
	}
	if f.SupervisorEmail != "" && !strings.EqualFold(it.SupervisorEmailValue(), f.SupervisorEmail) {
		return false
	}
	if f.StartFrom != nil && it.StartDate.Before(*f.StartFrom) {
		return false
	}
	if f.StartTo != nil && it.StartDate.After(*f.StartTo) {
		return false
	}
	if f.EndFrom != nil && it.EndDate.Before(*f.EndFrom) {
		return false
	}
	if f.EndTo != nil && it.EndDate.After(*f.EndTo) {
		return false
	}
	return true
}

func (m *mockInternshipRepo) ListActiveByIntern(_ context.Context, internID, excludeID string) ([]model.Internship, error) {
	var result []model.Internship
	for _, it := range m.items {
		if it.InternID == internID && it.InternshipID != excludeID && it.Status == model.InternshipInProgress {
			result = append(result, *it)
		}
	}
	return result, nil
}

func (m *mockInternshipRepo) ListEndingBetween(ctx context.Context, from, to time.Time) ([]model.Internship, error) {
	list, _, err := m.List(ctx, repository.InternshipFilter{
		Status:  model.InternshipInProgress,
		EndFrom: &from,
		EndTo:   &to,
	}, 0, 0)
	return list, err
}

func (m *mockInternshipRepo) Count(ctx context.Context, filter repository.InternshipFilter) (int64, error) {
	_, total, err := m.List(ctx, filter, 0, 0)
	return total, err
}

func (m *mockInternshipRepo) CountByStatus(_ context.Context) ([]repository.GroupCount, error) {
	counts := make(map[string]int64)
	for _, it := range m.items {
		counts[string(it.Status)]++
	}
	return groupCounts(counts), nil
}

// ── Mock DocumentRepository ──

type mockDocumentRepo struct {
	docs        map[string]*model.Document
	internships *mockInternshipRepo
	seq         int
	createErr   error
}

func (m *mockDocumentRepo) Create(_ context.Context, doc *model.Document) error {
	if m.createErr != nil {
		return m.createErr
	}
	if doc.DocumentID == "" {
		m.seq++
		doc.DocumentID = fmt.Sprintf("doc-%d", m.seq)
	}
	cp := *doc
	m.docs[doc.DocumentID] = &cp
	return nil
}

func (m *mockDocumentRepo) GetByID(_ context.Context, id string) (*model.Document, error) {
	d, ok := m.docs[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *d
	if it, ok := m.internships.items[d.InternshipID]; ok {
		itCopy := m.internships.preload(it)
		cp.Internship = &itCopy
	}
	return &cp, nil
}

func (m *mockDocumentRepo) Delete(_ context.Context, id string) (int64, error) {
	if _, ok := m.docs[id]; !ok {
		return 0, nil
	}
	delete(m.docs, id)
	return 1, nil
}

func (m *mockDocumentRepo) List(_ context.Context, filter repository.DocumentFilter, offset, limit int) ([]model.Document, int64, error) {
	var all []model.Document
	for _, d := range m.docs {
		if filter.InternshipID != "" && d.InternshipID != filter.InternshipID {
			continue
		}
		if filter.DocType != "" && d.DocType != filter.DocType {
			continue
		}
		it, hasInternship := m.internships.items[d.InternshipID]
		if filter.InternID != "" && (!hasInternship || it.InternID != filter.InternID) {
			continue
		}
		if filter.AgreementID != "" && (!hasInternship || it.AgreementID != filter.AgreementID) {
			continue
		}
		if filter.SupervisorEmail != "" && (!hasInternship || !strings.EqualFold(it.SupervisorEmailValue(), filter.SupervisorEmail)) {
			continue
		}
		if filter.InternEmail != "" {
			if !hasInternship {
				continue
			}
			in, ok := m.internships.interns.interns[it.InternID]
			if !ok || !strings.EqualFold(in.Email, filter.InternEmail) {
				continue
			}
		}
		all = append(all, *d)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].DocumentID < all[j].DocumentID })
	return page(all, offset, limit), int64(len(all)), nil
}

func (m *mockDocumentRepo) Count(_ context.Context) (int64, error) {
	return int64(len(m.docs)), nil
}

func (m *mockDocumentRepo) CountUploadedSince(_ context.Context, since time.Time) (int64, error) {
	var n int64
	for _, d := range m.docs {
		if !d.UploadedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

// ── Mock NotificationRepository ──

type mockNotificationRepo struct {
	items     map[string]*model.Notification
	interns   *mockInternRepo
	seq       int
	createErr error
}

func (m *mockNotificationRepo) Create(_ context.Context, n *model.Notification) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.seq++
	n.NotificationID = fmt.Sprintf("notification-%d", m.seq)
	cp := *n
	m.items[n.NotificationID] = &cp
	return nil
}

func (m *mockNotificationRepo) GetOrCreate(ctx context.Context, n *model.Notification) (bool, error) {
	if n.DedupKey != nil {
		for _, existing := range m.items {
			if existing.InternID == n.InternID && existing.DedupKey != nil && *existing.DedupKey == *n.DedupKey {
				*n = *existing
				return false, nil
			}
		}
	}
	if err := m.Create(ctx, n); err != nil {
		return false, err
	}
	return true, nil
}

// GetByID 返回副本并预加载实习生
func (m *mockNotificationRepo) GetByID(_ context.Context, id string) (*model.Notification, error) {
	n, ok := m.items[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *n
	if in, ok := m.interns.interns[n.InternID]; ok {
		inCopy := *in
		cp.Intern = &inCopy
	}
	return &cp, nil
}

func (m *mockNotificationRepo) Delete(_ context.Context, id string) error {
	delete(m.items, id)
	return nil
}

func (m *mockNotificationRepo) List(_ context.Context, filter repository.NotificationFilter, offset, limit int) ([]model.Notification, int64, error) {
	var all []model.Notification
	for _, n := range m.items {
		if filter.InternID != "" && n.InternID != filter.InternID {
			continue
		}
		if filter.IsRead != nil && n.IsRead != *filter.IsRead {
			continue
		}
		if filter.Type != "" && n.Type != filter.Type {
			continue
		}
		if filter.InternEmail != "" {
			in, ok := m.interns.interns[n.InternID]
			if !ok || !strings.EqualFold(in.Email, filter.InternEmail) {
				continue
			}
		}
		all = append(all, *n)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].NotificationID < all[j].NotificationID })
	return page(all, offset, limit), int64(len(all)), nil
}

func (m *mockNotificationRepo) MarkRead(_ context.Context, id string, at time.Time) error {
	n, ok := m.items[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if !n.IsRead {
		n.IsRead = true
		n.ReadAt = &at
	}
	return nil
}

func (m *mockNotificationRepo) MarkUnread(_ context.Context, id string) error {
	n, ok := m.items[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	n.IsRead = false
	n.ReadAt = nil
	return nil
}

func (m *mockNotificationRepo) MarkAllRead(_ context.Context, internID string, at time.Time) (int64, error) {
	var affected int64
	for _, n := range m.items {
		if n.IsRead || (internID != "" && n.InternID != internID) {
			continue
		}
		n.IsRead = true
		readAt := at
		n.ReadAt = &readAt
		affected++
	}
	return affected, nil
}

func (m *mockNotificationRepo) CountUnread(_ context.Context) (int64, error) {
	var n int64
	for _, item := range m.items {
		if !item.IsRead {
			n++
		}
	}
	return n, nil
}

func (m *mockNotificationRepo) CountUnreadByType(_ context.Context) ([]repository.GroupCount, error) {
	counts := make(map[string]int64)
	for _, item := range m.items {
		if !item.IsRead {
			counts[item.Type]++
		}
	}
	return groupCounts(counts), nil
}

// byTitle 某个实习生指定标题的通知数
func (m *mockNotificationRepo) byTitle(internID, title string) []*model.Notification {
	var result []*model.Notification
	for _, n := range m.items {
		if n.InternID == internID && n.Title == title {
			result = append(result, n)
		}
	}
	return result
}

// ── Mock StatisticsRepository ──

type mockStatisticsRepo struct {
	snap    *model.StatisticsSnapshot
	saveErr error
	saves   int
}

func (m *mockStatisticsRepo) Get(_ context.Context) (*model.StatisticsSnapshot, error) {
	if m.snap == nil {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *m.snap
	return &cp, nil
}

func (m *mockStatisticsRepo) Save(_ context.Context, snap *model.StatisticsSnapshot) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	cp := *snap
	m.snap = &cp
	m.saves++
	return nil
}

// ── Mock Storage ──

type mockStorage struct {
	files     map[storage.Handle][]byte
	deleteErr error
}

func newMockStorage() *mockStorage {
	return &mockStorage{files: make(map[storage.Handle][]byte)}
}

func (m *mockStorage) Save(_ context.Context, path string, r io.Reader) (storage.Handle, int64, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", 0, err
	}
	h := storage.Handle(path)
	m.files[h] = data
	return h, int64(len(data)), nil
}

func (m *mockStorage) Open(_ context.Context, h storage.Handle) (io.ReadCloser, error) {
	data, ok := m.files[h]
	if !ok {
		return nil, storage.ErrStorage
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *mockStorage) Delete(_ context.Context, h storage.Handle) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	delete(m.files, h)
	return nil
}

// ── 通用辅助 ──

var errMockDB = errors.New("mock: 数据库不可用")

func nopLogger() *zap.Logger { return zap.NewNop() }

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

func page[T any](all []T, offset, limit int) []T {
	if limit <= 0 {
		return all
	}
	if offset >= len(all) {
		return []T{}
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end]
}

func groupCounts(counts map[string]int64) []repository.GroupCount {
	result := make([]repository.GroupCount, 0, len(counts))
	for k, v := range counts {
		result = append(result, repository.GroupCount{Key: k, Total: v})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Key < result[j].Key })
	return result
}
