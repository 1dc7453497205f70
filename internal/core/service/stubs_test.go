package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/coursereg/registration-system/internal/core/domain"
	"github.com/coursereg/registration-system/internal/core/ports"
)

// ---------------------------------------------------------------------------
// In-memory store implementing the user, course, ledger and stats ports.
// WithCourseLock holds a per-course mutex for the whole callback, which is
// what the SQL stores get from a row lock.
// ---------------------------------------------------------------------------

type memStore struct {
	mu       sync.Mutex
	locks    map[int64]*sync.Mutex
	users    map[int64]*domain.User
	courses  map[int64]*domain.Course
	sessions map[int64][]domain.ClassSession
	regs     map[int64]*domain.Registration
	nextID   int64
	clock    time.Time
}

func newMemStore() *memStore {
	return &memStore{
		locks:    make(map[int64]*sync.Mutex),
		users:    make(map[int64]*domain.User),
		courses:  make(map[int64]*domain.Course),
		sessions: make(map[int64][]domain.ClassSession),
		regs:     make(map[int64]*domain.Registration),
		clock:    time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC),
	}
}

// tick returns a strictly increasing timestamp so newest-first ordering is
// deterministic. Callers hold s.mu.
func (s *memStore) tick() time.Time {
	s.clock = s.clock.Add(time.Second)
	return s.clock
}

func (s *memStore) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *memStore) addUser(username, role string) *domain.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := &domain.User{
		ID:        s.id(),
		Username:  username,
		Email:     username + "@example.com",
		FullName:  strings.ToUpper(username[:1]) + username[1:],
		Role:      role,
		CreatedAt: s.tick(),
	}
	s.users[u.ID] = u
	return u
}

func (s *memStore) addCourse(code string, max int) *domain.Course {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := &domain.Course{ID: s.id(), CourseCode: code, Title: code + " title", MaxStudents: max, CreatedAt: s.tick()}
	s.courses[c.ID] = c
	return c
}

func (s *memStore) activeCount(courseID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.countLocked(courseID)
}

func (s *memStore) countLocked(courseID int64) int {
	n := 0
	for _, r := range s.regs {
		if r.CourseID == courseID && r.Status == domain.StatusRegistered {
			n++
		}
	}
	return n
}

func (s *memStore) rowsFor(studentID, courseID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range s.regs {
		if r.StudentID == studentID && r.CourseID == courseID {
			n++
		}
	}
	return n
}

// --- ports.UserRepository ---

func (s *memStore) Create(_ context.Context, user *domain.User) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == user.Email {
			return nil, domain.ErrDuplicateEmail
		}
		if u.Username == user.Username {
			return nil, domain.ErrDuplicateUsername
		}
	}
	cp := *user
	cp.ID = s.id()
	s.users[cp.ID] = &cp
	return &cp, nil
}

func (s *memStore) FindByID(_ context.Context, id int64) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *memStore) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	return s.findUser(func(u *domain.User) bool { return u.Email == email })
}

func (s *memStore) FindByUsername(_ context.Context, username string) (*domain.User, error) {
	return s.findUser(func(u *domain.User) bool { return u.Username == username })
}

func (s *memStore) findUser(match func(*domain.User) bool) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if match(u) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (s *memStore) List(_ context.Context) ([]*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*domain.User, 0, len(s.users))
	for _, u := range s.users {
		cp := *u
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (s *memStore) Update(_ context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[user.ID]; !ok {
		return domain.ErrUserNotFound
	}
	cp := *user
	s.users[user.ID] = &cp
	return nil
}

func (s *memStore) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return domain.ErrUserNotFound
	}
	delete(s.users, id)
	for rid, r := range s.regs {
		if r.StudentID == id {
			delete(s.regs, rid)
		}
	}
	return nil
}

// --- ports.CourseRepository (through courseRepo to avoid method clashes) ---

type courseRepo struct{ *memStore }

func (r courseRepo) Create(_ context.Context, c *domain.Course, sessions []domain.ClassSession) (*domain.Course, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *c
	cp.ID = r.id()
	cp.CreatedAt = r.tick()
	r.courses[cp.ID] = &cp
	for _, sess := range sessions {
		sess.ID = r.id()
		sess.CourseID = cp.ID
		r.sessions[cp.ID] = append(r.sessions[cp.ID], sess)
	}
	out := cp
	return &out, nil
}

func (r courseRepo) FindByID(_ context.Context, id int64) (*domain.Course, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.courses[id]
	if !ok {
		return nil, domain.ErrCourseNotFound
	}
	cp := *c
	cp.EnrolledCount = r.countLocked(id)
	return &cp, nil
}

func (r courseRepo) FindByCode(_ context.Context, code string) (*domain.Course, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.courses {
		if c.CourseCode == code {
			cp := *c
			return &cp, nil
		}
	}
	return nil, domain.ErrCourseNotFound
}

func (r courseRepo) List(_ context.Context) ([]*domain.Course, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domain.Course, 0, len(r.courses))
	for _, c := range r.courses {
		cp := *c
		cp.EnrolledCount = r.countLocked(c.ID)
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r courseRepo) Sessions(_ context.Context, courseID int64) ([]domain.ClassSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.ClassSession{}, r.sessions[courseID]...), nil
}

func (r courseRepo) EnrolledStudents(_ context.Context, courseID int64) ([]domain.EnrolledStudent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.EnrolledStudent
	for _, reg := range r.regs {
		if reg.CourseID != courseID || reg.Status != domain.StatusRegistered {
			continue
		}
		u := r.users[reg.StudentID]
		if u == nil {
			continue
		}
		out = append(out, domain.EnrolledStudent{ID: u.ID, FullName: u.FullName, Email: u.Email, RegistrationDate: reg.RegistrationDate})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RegistrationDate.After(out[j].RegistrationDate) })
	return out, nil
}

func (r courseRepo) StudentSchedule(_ context.Context, studentID int64) ([]domain.ScheduleEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.ScheduleEntry
	for _, reg := range r.regs {
		if reg.StudentID != studentID || reg.Status != domain.StatusRegistered {
			continue
		}
		c := r.courses[reg.CourseID]
		for _, sess := range r.sessions[reg.CourseID] {
			out = append(out, domain.ScheduleEntry{ClassSession: sess, CourseCode: c.CourseCode, Title: c.Title, Instructor: c.Instructor})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		di, dj := domain.WeekdayIndex(out[i].DayOfWeek), domain.WeekdayIndex(out[j].DayOfWeek)
		if di != dj {
			return di < dj
		}
		return out[i].StartTime < out[j].StartTime
	})
	return out, nil
}

// --- ports.RegistrationRepository ---

type ledgerRepo struct{ *memStore }

func (r ledgerRepo) courseLock(id int64) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.locks[id]
	if !ok {
		l = &sync.Mutex{}
		r.locks[id] = l
	}
	return l
}

func (r ledgerRepo) WithCourseLock(ctx context.Context, courseID int64, fn ports.CourseTxFunc) error {
	l := r.courseLock(courseID)
	l.Lock()
	defer l.Unlock()

	r.mu.Lock()
	c, ok := r.courses[courseID]
	var cp domain.Course
	if ok {
		cp = *c
	}
	r.mu.Unlock()
	if !ok {
		return domain.ErrCourseNotFound
	}
	return fn(ctx, &memTx{store: r.memStore, courseID: courseID}, &cp)
}

func (r ledgerRepo) FindByID(_ context.Context, id int64) (*domain.Registration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	reg, ok := r.regs[id]
	if !ok {
		return nil, domain.ErrRegistrationNotFound
	}
	cp := *reg
	return &cp, nil
}

func (r ledgerRepo) SetStatus(_ context.Context, id int64, status domain.RegistrationStatus) (*domain.Registration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	reg, ok := r.regs[id]
	if !ok {
		return nil, domain.ErrRegistrationNotFound
	}
	reg.Status = status
	reg.UpdatedAt = r.tick()
	cp := *reg
	return &cp, nil
}

func (r ledgerRepo) ListByStudent(ctx context.Context, studentID int64) ([]*domain.RegistrationView, error) {
	return r.views(func(reg *domain.Registration) bool { return reg.StudentID == studentID }, 0), nil
}

func (r ledgerRepo) ListAll(_ context.Context, limit int) ([]*domain.RegistrationView, error) {
	return r.views(func(*domain.Registration) bool { return true }, limit), nil
}

func (r ledgerRepo) views(match func(*domain.Registration) bool, limit int) []*domain.RegistrationView {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*domain.RegistrationView{}
	for _, reg := range r.regs {
		if !match(reg) {
			continue
		}
		v := &domain.RegistrationView{Registration: *reg}
		if c := r.courses[reg.CourseID]; c != nil {
			v.CourseCode, v.CourseTitle = c.CourseCode, c.Title
		}
		if u := r.users[reg.StudentID]; u != nil {
			v.StudentName, v.StudentEmail = u.FullName, u.Email
		}
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RegistrationDate.After(out[j].RegistrationDate) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (r ledgerRepo) Stats(_ context.Context, recentLimit int) (*domain.DashboardStats, error) {
	r.mu.Lock()
	stats := &domain.DashboardStats{TotalCourses: int64(len(r.courses))}
	for _, u := range r.users {
		if u.Role == domain.RoleStudent {
			stats.TotalStudents++
		}
	}
	for _, reg := range r.regs {
		if reg.Status == domain.StatusRegistered {
			stats.ActiveRegistrations++
		}
	}
	r.mu.Unlock()

	recent := r.views(func(reg *domain.Registration) bool { return reg.Status == domain.StatusRegistered }, recentLimit)
	stats.RecentRegistrations = recent
	return stats, nil
}

type memTx struct {
	store    *memStore
	courseID int64
}

func (t *memTx) CountActive(context.Context) (int, error) {
	return t.store.activeCount(t.courseID), nil
}

func (t *memTx) FindByStudent(_ context.Context, studentID int64) (*domain.Registration, error) {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	for _, reg := range t.store.regs {
		if reg.CourseID == t.courseID && reg.StudentID == studentID {
			cp := *reg
			return &cp, nil
		}
	}
	return nil, domain.ErrRegistrationNotFound
}

func (t *memTx) Insert(_ context.Context, studentID int64) (*domain.Registration, error) {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	now := t.store.tick()
	reg := &domain.Registration{
		ID:               t.store.id(),
		StudentID:        studentID,
		CourseID:         t.courseID,
		Status:           domain.StatusRegistered,
		RegistrationDate: now,
		UpdatedAt:        now,
	}
	t.store.regs[reg.ID] = reg
	cp := *reg
	return &cp, nil
}

func (t *memTx) SetStatus(ctx context.Context, id int64, status domain.RegistrationStatus) (*domain.Registration, error) {
	return ledgerRepo{t.store}.SetStatus(ctx, id, status)
}

func (t *memTx) UpdateCourse(_ context.Context, c *domain.Course, sessions []domain.ClassSession) error {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	cp := *c
	t.store.courses[t.courseID] = &cp
	if sessions != nil {
		t.store.sessions[t.courseID] = sessions
	}
	return nil
}

func (t *memTx) DeleteCourse(context.Context) error {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	delete(t.store.courses, t.courseID)
	delete(t.store.sessions, t.courseID)
	for id, reg := range t.store.regs {
		if reg.CourseID == t.courseID {
			delete(t.store.regs, id)
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Audit, idempotency and cache doubles.
// ---------------------------------------------------------------------------

type recordingAudit struct {
	mu     sync.Mutex
	events []domain.RegistrationEvent
}

func (a *recordingAudit) Publish(e domain.RegistrationEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, e)
}

func (a *recordingAudit) actions() []domain.LedgerAction {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]domain.LedgerAction, 0, len(a.events))
	for _, e := range a.events {
		out = append(out, e.Action)
	}
	return out
}

func (a *recordingAudit) Insert(_ context.Context, e *domain.RegistrationEvent) error {
	a.Publish(*e)
	return nil
}

func (a *recordingAudit) ListByRegistration(_ context.Context, id int64) ([]*domain.RegistrationEvent, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	var out []*domain.RegistrationEvent
	for i := range a.events {
		if a.events[i].RegistrationID == id {
			e := a.events[i]
			out = append(out, &e)
		}
	}
	return out, nil
}

type memIdempotency struct {
	mu      sync.Mutex
	results map[string]ports.RegistrationResult
	lookErr error
}

func newMemIdempotency() *memIdempotency {
	return &memIdempotency{results: make(map[string]ports.RegistrationResult)}
}

func (m *memIdempotency) Lookup(_ context.Context, scope, key string) (*ports.RegistrationResult, bool, error) {
	if m.lookErr != nil {
		return nil, false, m.lookErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.results[scope+":"+key]
	if !ok {
		return nil, false, nil
	}
	return &r, true, nil
}

func (m *memIdempotency) Save(_ context.Context, scope, key string, result *ports.RegistrationResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results[scope+":"+key] = *result
	return nil
}

type countingCache struct {
	courses     []*domain.Course
	ok          bool
	sets        int
	invalidated int
}

func (c *countingCache) Get() ([]*domain.Course, bool) { return c.courses, c.ok }

func (c *countingCache) Set(courses []*domain.Course) {
	c.courses, c.ok = courses, true
	c.sets++
}

func (c *countingCache) Invalidate() {
	c.courses, c.ok = nil, false
	c.invalidated++
}

func identityOf(u *domain.User) domain.Identity {
	return domain.Identity{UserID: u.ID, Username: u.Username, Email: u.Email, Role: u.Role, FullName: u.FullName}
}
