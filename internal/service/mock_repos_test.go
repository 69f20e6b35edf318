package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"gorm.io/gorm"

	"skillhub/internal/model"
	"skillhub/internal/repository"
	pkgerrors "skillhub/pkg/errors"
	"skillhub/pkg/slack"
)

// ── 内存数据库：所有 mock 仓库共享，事务回滚时整体还原 ──

type mockDB struct {
	users       map[string]model.User
	shifts      map[string]model.Shift
	attendances map[string]model.Attendance
	channels    map[string]model.SlackChannel
	settings    map[string]model.SystemSetting
	audits      []model.AuditLog
	seq         int

	// 故障注入
	failChannelCreate error
	failMarkInvited   error
	failMarkArchived  error
}

func newMockDB() *mockDB {
	return &mockDB{
		users:       make(map[string]model.User),
		shifts:      make(map[string]model.Shift),
		attendances: make(map[string]model.Attendance),
		channels:    make(map[string]model.SlackChannel),
		settings:    make(map[string]model.SystemSetting),
	}
}

func (db *mockDB) nextID(prefix string) string {
	db.seq++
	return fmt.Sprintf("%s-%04d", prefix, db.seq)
}

type mockSnapshot struct {
	users       map[string]model.User
	shifts      map[string]model.Shift
	attendances map[string]model.Attendance
	channels    map[string]model.SlackChannel
	settings    map[string]model.SystemSetting
	audits      []model.AuditLog
}

func copyMap[V any](src map[string]V) map[string]V {
	dst := make(map[string]V, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

func (db *mockDB) snapshot() *mockSnapshot {
	return &mockSnapshot{
		users:       copyMap(db.users),
		shifts:      copyMap(db.shifts),
		attendances: copyMap(db.attendances),
		channels:    copyMap(db.channels),
		settings:    copyMap(db.settings),
		audits:      append([]model.AuditLog(nil), db.audits...),
	}
}

func (db *mockDB) restore(s *mockSnapshot) {
	db.users = s.users
	db.shifts = s.shifts
	db.attendances = s.attendances
	db.channels = s.channels
	db.settings = s.settings
	db.audits = s.audits
}

func (db *mockDB) auditCount(event string) int {
	n := 0
	for _, a := range db.audits {
		if a.EventType == event {
			n++
		}
	}
	return n
}

func sameDay(a, b time.Time) bool {
	return a.Format(model.DateLayout) == b.Format(model.DateLayout)
}

// newMockRepository 组装全部 mock 仓库
func newMockRepository(db *mockDB) *repository.Repository {
	repo := &repository.Repository{
		User:          &mockUserRepo{db: db},
		Shift:         &mockShiftRepo{db: db},
		Attendance:    &mockAttendanceRepo{db: db},
		SlackChannel:  &mockSlackChannelRepo{db: db},
		SystemSetting: &mockSystemSettingRepo{db: db},
		AuditLog:      &mockAuditLogRepo{db: db},
	}
	repo.Tx = &mockTransactor{db: db, repo: repo}
	return repo
}

// ── Mock Transactor ──

type mockTransactor struct {
	db    *mockDB
	repo  *repository.Repository
	count int
}

func (t *mockTransactor) Transaction(_ context.Context, fn func(tx *repository.Repository) error) error {
	t.count++
	snap := t.db.snapshot()
	if err := fn(t.repo); err != nil {
		t.db.restore(snap)
		return err
	}
	return nil
}

// ── Mock UserRepository ──

type mockUserRepo struct{ db *mockDB }

func (m *mockUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	if u, ok := m.db.users[id]; ok {
		return &u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) ListWithoutSlackIdentity(_ context.Context, limit int) ([]model.User, error) {
	var result []model.User
	for _, u := range m.db.users {
		if !u.HasSlackIdentity() && u.Email != "" {
			result = append(result, u)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].UserID < result[j].UserID })
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (m *mockUserRepo) SetSlackUserID(_ context.Context, userID, slackUserID string) error {
	u, ok := m.db.users[userID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	u.SlackUserID = &slackUserID
	m.db.users[userID] = u
	return nil
}

// ── Mock ShiftRepository ──

type mockShiftRepo struct{ db *mockDB }

func (m *mockShiftRepo) Create(_ context.Context, shift *model.Shift) error {
	if shift.ShiftID == "" {
		shift.ShiftID = m.db.nextID("shift")
	}
	m.db.shifts[shift.ShiftID] = *shift
	return nil
}

func (m *mockShiftRepo) preload(s model.Shift) model.Shift {
	if u, ok := m.db.users[s.TeacherID]; ok {
		s.Teacher = &u
	}
	return s
}

func (m *mockShiftRepo) GetByID(_ context.Context, id string) (*model.Shift, error) {
	if s, ok := m.db.shifts[id]; ok {
		s = m.preload(s)
		return &s, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockShiftRepo) ExistsForTeacherOnDate(_ context.Context, teacherID string, date time.Time) (bool, error) {
	for _, s := range m.db.shifts {
		if s.TeacherID == teacherID && sameDay(s.ShiftDate, date) {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockShiftRepo) sorted(filter func(model.Shift) bool) []model.Shift {
	var result []model.Shift
	for _, s := range m.db.shifts {
		if filter(s) {
			result = append(result, m.preload(s))
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ShiftID < result[j].ShiftID })
	return result
}

func (m *mockShiftRepo) ListByDate(_ context.Context, date time.Time) ([]model.Shift, error) {
	return m.sorted(func(s model.Shift) bool { return sameDay(s.ShiftDate, date) }), nil
}

func (m *mockShiftRepo) ListPendingChannel(_ context.Context, date time.Time) ([]model.Shift, error) {
	return m.sorted(func(s model.Shift) bool {
		return sameDay(s.ShiftDate, date) && s.Status == model.ShiftStatusScheduled && !s.SlackChannelCreated
	}), nil
}

func (m *mockShiftRepo) MarkChannelCreated(_ context.Context, shiftID, channelID string) error {
	s, ok := m.db.shifts[shiftID]
	if !ok || s.SlackChannelCreated {
		return pkgerrors.ErrChannelAlreadyCreated
	}
	s.SlackChannelCreated = true
	s.SlackChannelID = &channelID
	m.db.shifts[shiftID] = s
	return nil
}

func (m *mockShiftRepo) Delete(_ context.Context, id string) error {
	delete(m.db.shifts, id)
	return nil
}

// ── Mock AttendanceRepository ──

type mockAttendanceRepo struct{ db *mockDB }

func (m *mockAttendanceRepo) Create(_ context.Context, a *model.Attendance) error {
	for _, existing := range m.db.attendances {
		if existing.UserID == a.UserID && sameDay(existing.AttendanceDate, a.AttendanceDate) {
			return errors.New("duplicate key value violates unique constraint")
		}
	}
	if a.AttendanceID == "" {
		a.AttendanceID = m.db.nextID("att")
	}
	m.db.attendances[a.AttendanceID] = *a
	return nil
}

func (m *mockAttendanceRepo) GetByUserAndDate(_ context.Context, userID string, date time.Time) (*model.Attendance, error) {
	for _, a := range m.db.attendances {
		if a.UserID == userID && sameDay(a.AttendanceDate, date) {
			return &a, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockAttendanceRepo) UpdateStatus(_ context.Context, attendanceID, status string) error {
	a, ok := m.db.attendances[attendanceID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	a.Status = status
	m.db.attendances[attendanceID] = a
	return nil
}

func (m *mockAttendanceRepo) MarkPresent(_ context.Context, attendanceID string, checkInTime *string) error {
	a, ok := m.db.attendances[attendanceID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	a.Status = model.AttendanceStatusPresent
	a.CheckInTime = checkInTime
	m.db.attendances[attendanceID] = a
	return nil
}

func (m *mockAttendanceRepo) ListByUserBetween(_ context.Context, userID string, from, to time.Time) ([]model.Attendance, error) {
	var result []model.Attendance
	lo, hi := from.Format(model.DateLayout), to.Format(model.DateLayout)
	for _, a := range m.db.attendances {
		d := a.AttendanceDate.Format(model.DateLayout)
		if a.UserID == userID && d >= lo && d <= hi {
			result = append(result, a)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].AttendanceDate.After(result[j].AttendanceDate) })
	return result, nil
}

func (m *mockAttendanceRepo) invitees(filter func(model.Attendance, model.User) bool) []model.AttendanceInvitee {
	var rows []model.AttendanceInvitee
	for _, a := range m.db.attendances {
		u, ok := m.db.users[a.UserID]
		if !ok || !u.HasSlackIdentity() || !filter(a, u) {
			continue
		}
		rows = append(rows, model.AttendanceInvitee{
			AttendanceID:   a.AttendanceID,
			UserID:         u.UserID,
			UserName:       u.Name,
			SlackUserID:    *u.SlackUserID,
			SlackChannelID: a.SlackChannelID,
		})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].AttendanceID < rows[j].AttendanceID })
	return rows
}

func (m *mockAttendanceRepo) ListPendingInvites(_ context.Context, date time.Time, companyID *string) ([]model.AttendanceInvitee, error) {
	return m.invitees(func(a model.Attendance, u model.User) bool {
		if companyID != nil && (u.CompanyID == nil || *u.CompanyID != *companyID) {
			return false
		}
		return sameDay(a.AttendanceDate, date) && a.Status == model.AttendanceStatusPresent && !a.SlackInvited
	}), nil
}

func (m *mockAttendanceRepo) MarkInvited(_ context.Context, attendanceIDs []string, channelID string, invitedAt time.Time) (int64, error) {
	if m.db.failMarkInvited != nil {
		return 0, m.db.failMarkInvited
	}
	var n int64
	for _, id := range attendanceIDs {
		a, ok := m.db.attendances[id]
		if !ok || a.SlackInvited {
			continue
		}
		ch := channelID
		at := invitedAt
		a.SlackInvited = true
		a.SlackChannelID = &ch
		a.SlackInvitedAt = &at
		m.db.attendances[id] = a
		n++
	}
	return n, nil
}

func (m *mockAttendanceRepo) ListPendingRemovals(_ context.Context, date time.Time) ([]model.AttendanceInvitee, error) {
	return m.invitees(func(a model.Attendance, _ model.User) bool {
		return sameDay(a.AttendanceDate, date) && a.Status == model.AttendanceStatusCancelled &&
			a.SlackInvited && a.SlackChannelID != nil
	}), nil
}

func (m *mockAttendanceRepo) MarkRemoved(_ context.Context, attendanceID string) (int64, error) {
	a, ok := m.db.attendances[attendanceID]
	if !ok || !a.SlackInvited {
		return 0, nil
	}
	a.SlackInvited = false
	m.db.attendances[attendanceID] = a
	return 1, nil
}

// ── Mock SlackChannelRepository ──

type mockSlackChannelRepo struct{ db *mockDB }

func (m *mockSlackChannelRepo) Create(_ context.Context, ch *model.SlackChannel) error {
	if m.db.failChannelCreate != nil {
		return m.db.failChannelCreate
	}
	for _, existing := range m.db.channels {
		if existing.ChannelID == ch.ChannelID {
			return errors.New("duplicate key value violates unique constraint")
		}
	}
	if ch.SlackChannelRowID == "" {
		ch.SlackChannelRowID = m.db.nextID("row")
	}
	m.db.channels[ch.SlackChannelRowID] = *ch
	return nil
}

func (m *mockSlackChannelRepo) ExistsDailyForShift(_ context.Context, shiftID string, date time.Time) (bool, error) {
	for _, ch := range m.db.channels {
		if ch.ShiftID != nil && *ch.ShiftID == shiftID && sameDay(ch.ChannelDate, date) && ch.Type == model.SlackChannelTypeDaily {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockSlackChannelRepo) sorted(filter func(model.SlackChannel) bool) []model.SlackChannel {
	var result []model.SlackChannel
	for _, ch := range m.db.channels {
		if !filter(ch) {
			continue
		}
		if ch.ShiftID != nil {
			if s, ok := m.db.shifts[*ch.ShiftID]; ok {
				ch.Shift = &s
			}
		}
		result = append(result, ch)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].SlackChannelRowID < result[j].SlackChannelRowID })
	return result
}

func (m *mockSlackChannelRepo) ListActiveDaily(_ context.Context, date time.Time) ([]model.SlackChannel, error) {
	return m.sorted(func(ch model.SlackChannel) bool {
		return sameDay(ch.ChannelDate, date) && ch.Type == model.SlackChannelTypeDaily && !ch.IsArchived
	}), nil
}

func (m *mockSlackChannelRepo) ListExpired(_ context.Context, before time.Time) ([]model.SlackChannel, error) {
	cut := before.Format(model.DateLayout)
	return m.sorted(func(ch model.SlackChannel) bool {
		return ch.ChannelDate.Format(model.DateLayout) < cut && !ch.IsArchived
	}), nil
}

func (m *mockSlackChannelRepo) MarkArchived(_ context.Context, rowID string) error {
	if m.db.failMarkArchived != nil {
		return m.db.failMarkArchived
	}
	ch, ok := m.db.channels[rowID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	ch.IsArchived = true
	m.db.channels[rowID] = ch
	return nil
}

// ── Mock SystemSettingRepository ──

type mockSystemSettingRepo struct{ db *mockDB }

func settingKey(category, key string) string { return category + "/" + key }

func (m *mockSystemSettingRepo) Get(_ context.Context, category, key string) (*model.SystemSetting, error) {
	if s, ok := m.db.settings[settingKey(category, key)]; ok {
		return &s, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockSystemSettingRepo) ListByCategory(_ context.Context, category string) ([]model.SystemSetting, error) {
	var result []model.SystemSetting
	for _, s := range m.db.settings {
		if s.Category == category {
			result = append(result, s)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Key < result[j].Key })
	return result, nil
}

func (m *mockSystemSettingRepo) Upsert(_ context.Context, setting *model.SystemSetting) error {
	if setting.SettingID == "" {
		setting.SettingID = m.db.nextID("setting")
	}
	m.db.settings[settingKey(setting.Category, setting.Key)] = *setting
	return nil
}

// ── Mock AuditLogRepository ──

type mockAuditLogRepo struct{ db *mockDB }

func (m *mockAuditLogRepo) Create(_ context.Context, log *model.AuditLog) error {
	if log.AuditLogID == "" {
		log.AuditLogID = m.db.nextID("audit")
	}
	m.db.audits = append(m.db.audits, *log)
	return nil
}

// ── Mock SlackGateway ──

type mockGateway struct {
	mu      sync.Mutex
	enabled bool
	calls   []string

	created  []string   // 频道名
	invites  [][]string // 每次邀请的用户
	kicked   []string   // channel/user
	archived []string
	posted   []string
	emails   map[string]string // email → Slack user id

	failCreate      map[string]error // 频道名 → 错误
	failInviteCalls map[int]error    // 第 n 次邀请（从 1 开始）→ 错误
	failKick        map[string]error // user id → 错误
	failArchive     error
	panicOnCreate   bool

	// 在外部调用进行中模拟并发写入
	duringInvite func()
	duringKick   func()
}

func newMockGateway() *mockGateway {
	return &mockGateway{
		enabled:         true,
		emails:          make(map[string]string),
		failCreate:      make(map[string]error),
		failInviteCalls: make(map[int]error),
		failKick:        make(map[string]error),
	}
}

func (g *mockGateway) factory() GatewayFactory {
	return func(*SlackSettings) SlackGateway { return g }
}

func (g *mockGateway) record(call string) {
	g.calls = append(g.calls, call)
}

func (g *mockGateway) IsEnabled() bool { return g.enabled }

func (g *mockGateway) FindUserByEmail(_ context.Context, email string) (*slack.User, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.record("users.lookupByEmail")
	if id, ok := g.emails[email]; ok {
		return &slack.User{ID: id, Email: email}, nil
	}
	return nil, &slack.APIError{Op: "users.lookupByEmail", Reason: "users_not_found"}
}

func (g *mockGateway) CreateChannel(_ context.Context, name, _ string) (*slack.Channel, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.record("conversations.create")
	if g.panicOnCreate {
		panic("boom")
	}
	if err, ok := g.failCreate[name]; ok {
		return nil, err
	}
	g.created = append(g.created, name)
	normalized := slack.NormalizeChannelName(name)
	return &slack.Channel{ID: fmt.Sprintf("C%03d", len(g.created)), Name: normalized}, nil
}

func (g *mockGateway) InviteToChannel(_ context.Context, _ string, userIDs []string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.record("conversations.invite")
	g.invites = append(g.invites, append([]string(nil), userIDs...))
	if err, ok := g.failInviteCalls[len(g.invites)]; ok {
		return err
	}
	if g.duringInvite != nil {
		g.duringInvite()
	}
	return nil
}

func (g *mockGateway) RemoveFromChannel(_ context.Context, channelID, userID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.record("conversations.kick")
	if err, ok := g.failKick[userID]; ok {
		return err
	}
	g.kicked = append(g.kicked, channelID+"/"+userID)
	if g.duringKick != nil {
		g.duringKick()
	}
	return nil
}

func (g *mockGateway) PostMessage(_ context.Context, channelID, text string, _ ...slack.Attachment) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.record("chat.postMessage")
	g.posted = append(g.posted, channelID+":"+text)
	return nil
}

func (g *mockGateway) ArchiveChannel(_ context.Context, channelID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.record("conversations.archive")
	g.archived = append(g.archived, channelID)
	return g.failArchive
}

func (g *mockGateway) countCalls(prefix string) int {
	n := 0
	for _, c := range g.calls {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return n
}

// ── Mock 其他依赖 ──

type fixedClock struct{ t time.Time }

func (c *fixedClock) Now() time.Time { return c.t }

type mockNotifier struct {
	titles []string
	errs   []error
}

func (n *mockNotifier) Notify(_ context.Context, title string, err error, _ map[string]interface{}) {
	n.titles = append(n.titles, title)
	n.errs = append(n.errs, err)
}

type mockLocker struct {
	held     map[string]bool
	acquired []string
	released int
}

func newMockLocker() *mockLocker {
	return &mockLocker{held: make(map[string]bool)}
}

func (l *mockLocker) Acquire(_ context.Context, name string) (func(), error) {
	if l.held[name] {
		return nil, ErrRunLocked
	}
	l.held[name] = true
	l.acquired = append(l.acquired, name)
	return func() {
		delete(l.held, name)
		l.released++
	}, nil
}

func userWithEmail(id, email string) model.User {
	return model.User{UserID: id, Name: id, Email: email, Role: model.RoleStudent}
}
