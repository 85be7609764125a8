package businessflow

import (
	"context"
	"fmt"
	"sync"

	"github.com/oliateam/leadfunnel/app/dto"
	"github.com/oliateam/leadfunnel/models"
	"github.com/oliateam/leadfunnel/repository"
)

// In-memory repository fakes. They mirror the conditional-update semantics
// of the SQL implementations so the flow tests exercise the same contracts.

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[int64]*models.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[int64]*models.User)}
}

func (r *fakeUserRepo) ByID(_ context.Context, id uint) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, nil
}

func (r *fakeUserRepo) Save(_ context.Context, u *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[u.TelegramID] = u
	return nil
}

func (r *fakeUserRepo) ByTelegramID(_ context.Context, telegramID int64) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[telegramID]; ok {
		copied := *u
		return &copied, nil
	}
	return nil, nil
}

func (r *fakeUserRepo) Upsert(_ context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.users[user.TelegramID]; ok {
		existing.FirstName = user.FirstName
		existing.LastName = user.LastName
		existing.Username = user.Username
		return nil
	}
	copied := *user
	r.users[user.TelegramID] = &copied
	return nil
}

func (r *fakeUserRepo) SetNotifyGroup(_ context.Context, telegramID int64, groupID *int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[telegramID]
	if !ok {
		return fmt.Errorf("user %d not found", telegramID)
	}
	u.NotifyGroupID = groupID
	return nil
}

func (r *fakeUserRepo) ListQualifiedLeads(_ context.Context, _, _ int) ([]*repository.LeadRow, error) {
	return nil, nil
}

type fakeGroupRepo struct {
	mu     sync.Mutex
	groups map[int64]*models.Group
}

func newFakeGroupRepo() *fakeGroupRepo {
	return &fakeGroupRepo{groups: make(map[int64]*models.Group)}
}

func (r *fakeGroupRepo) ByID(_ context.Context, _ uint) (*models.Group, error) { return nil, nil }

func (r *fakeGroupRepo) Save(_ context.Context, g *models.Group) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.groups[g.TelegramID] = g
	return nil
}

func (r *fakeGroupRepo) ByTelegramID(_ context.Context, telegramID int64) (*models.Group, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if g, ok := r.groups[telegramID]; ok {
		copied := *g
		return &copied, nil
	}
	return nil, nil
}

func (r *fakeGroupRepo) Upsert(_ context.Context, group *models.Group) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.groups[group.TelegramID]; ok {
		existing.Title = group.Title
		return nil
	}
	copied := *group
	r.groups[group.TelegramID] = &copied
	return nil
}

func (r *fakeGroupRepo) ListAll(_ context.Context) ([]*models.Group, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*models.Group, 0, len(r.groups))
	for _, g := range r.groups {
		copied := *g
		out = append(out, &copied)
	}
	return out, nil
}

type fakeNoteRepo struct {
	mu     sync.Mutex
	nextID uint
	notes  map[uint]*models.Note
}

func newFakeNoteRepo() *fakeNoteRepo {
	return &fakeNoteRepo{notes: make(map[uint]*models.Note)}
}

func (r *fakeNoteRepo) ByID(_ context.Context, id uint) (*models.Note, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if n, ok := r.notes[id]; ok {
		copied := *n
		return &copied, nil
	}
	return nil, nil
}

func (r *fakeNoteRepo) Save(_ context.Context, n *models.Note) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if n.ID == 0 {
		r.nextID++
		n.ID = r.nextID
	}
	copied := *n
	r.notes[n.ID] = &copied
	return nil
}

func (r *fakeNoteRepo) ListByOwner(_ context.Context, ownerID int64) ([]*models.Note, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Note
	for id := uint(1); id <= r.nextID; id++ {
		if n, ok := r.notes[id]; ok && n.OwnerID == ownerID {
			copied := *n
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *fakeNoteRepo) ListByGroup(_ context.Context, groupID int64) ([]*models.Note, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Note
	for id := uint(1); id <= r.nextID; id++ {
		if n, ok := r.notes[id]; ok && n.GroupID == groupID {
			copied := *n
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *fakeNoteRepo) DeleteByIDAndOwner(_ context.Context, id uint, ownerID int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.notes[id]
	if !ok || n.OwnerID != ownerID {
		return false, nil
	}
	delete(r.notes, id)
	return true, nil
}

type fakeReferralClickRepo struct {
	mu   sync.Mutex
	seen map[string]bool
}

func newFakeReferralClickRepo() *fakeReferralClickRepo {
	return &fakeReferralClickRepo{seen: make(map[string]bool)}
}

func (r *fakeReferralClickRepo) ByID(_ context.Context, _ uint) (*models.ReferralClick, error) {
	return nil, nil
}

func (r *fakeReferralClickRepo) Save(_ context.Context, _ *models.ReferralClick) error { return nil }

func (r *fakeReferralClickRepo) Record(_ context.Context, click *models.ReferralClick) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := fmt.Sprintf("%d:%d:%d", click.ReferrerID, click.ReferredID, click.NoteID)
	if r.seen[key] {
		return false, nil
	}
	r.seen[key] = true
	return true, nil
}

func (r *fakeReferralClickRepo) CountByReferrer(_ context.Context, referrerID int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	prefix := fmt.Sprintf("%d:", referrerID)
	for key := range r.seen {
		if len(key) > len(prefix) && key[:len(prefix)] == prefix {
			count++
		}
	}
	return count, nil
}

type fakeNoteClickRepo struct {
	mu     sync.Mutex
	clicks []*models.NoteClick
}

func newFakeNoteClickRepo() *fakeNoteClickRepo { return &fakeNoteClickRepo{} }

func (r *fakeNoteClickRepo) ByID(_ context.Context, _ uint) (*models.NoteClick, error) {
	return nil, nil
}

func (r *fakeNoteClickRepo) Save(_ context.Context, click *models.NoteClick) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clicks = append(r.clicks, click)
	return nil
}

func (r *fakeNoteClickRepo) CountByNote(_ context.Context, noteID uint) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for _, c := range r.clicks {
		if c.NoteID == noteID {
			count++
		}
	}
	return count, nil
}

func (r *fakeNoteClickRepo) CountsForNotes(ctx context.Context, noteIDs []uint) (map[uint]int64, error) {
	out := make(map[uint]int64, len(noteIDs))
	for _, id := range noteIDs {
		count, _ := r.CountByNote(ctx, id)
		out[id] = count
	}
	return out, nil
}

type fakePollRepo struct {
	mu   sync.Mutex
	rows map[int64]*models.PollResponse
}

func newFakePollRepo() *fakePollRepo {
	return &fakePollRepo{rows: make(map[int64]*models.PollResponse)}
}

func (r *fakePollRepo) ByID(_ context.Context, _ uint) (*models.PollResponse, error) {
	return nil, nil
}

func (r *fakePollRepo) Save(_ context.Context, row *models.PollResponse) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[row.UserID] = row
	return nil
}

func (r *fakePollRepo) ByUserID(_ context.Context, userID int64) (*models.PollResponse, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if row, ok := r.rows[userID]; ok {
		copied := *row
		return &copied, nil
	}
	return nil, nil
}

func (r *fakePollRepo) EnsureRow(_ context.Context, userID, referrerID int64, noteID uint, groupID int64) (*models.PollResponse, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if row, ok := r.rows[userID]; ok {
		copied := *row
		return &copied, nil
	}
	row := &models.PollResponse{
		UserID:     userID,
		ReferrerID: referrerID,
		NoteID:     noteID,
		GroupID:    groupID,
	}
	r.rows[userID] = row
	copied := *row
	return &copied, nil
}

func (r *fakePollRepo) ResetSession(_ context.Context, userID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[userID]
	if !ok {
		return nil
	}
	row.AgeBracket = nil
	row.IncomeBracket = nil
	row.DeviceAnswer = nil
	row.Notified = false
	row.ReminderSent = false
	row.CompletedAt = nil
	return nil
}

func (r *fakePollRepo) SetAgeBracket(_ context.Context, userID int64, bracket string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if row, ok := r.rows[userID]; ok {
		row.AgeBracket = &bracket
	}
	return nil
}

func (r *fakePollRepo) SetIncomeBracket(_ context.Context, userID int64, bracket string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if row, ok := r.rows[userID]; ok {
		row.IncomeBracket = &bracket
	}
	return nil
}

func (r *fakePollRepo) SetDeviceAnswer(_ context.Context, userID int64, answer string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if row, ok := r.rows[userID]; ok {
		row.DeviceAnswer = &answer
	}
	return nil
}

func (r *fakePollRepo) TryClaimNotification(_ context.Context, userID int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[userID]
	if !ok || row.Notified {
		return false, nil
	}
	row.Notified = true
	return true, nil
}

func (r *fakePollRepo) WasNotified(_ context.Context, userID int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[userID]
	return ok && row.Notified, nil
}

func (r *fakePollRepo) TryMarkReminderSent(_ context.Context, userID int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[userID]
	if !ok || row.ReminderSent || row.DeviceAnswer != nil {
		return false, nil
	}
	row.ReminderSent = true
	return true, nil
}

type fakeSettingsRepo struct {
	mu   sync.Mutex
	text string
}

func (r *fakeSettingsRepo) Get(_ context.Context) (*models.ReminderSettings, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	text := r.text
	if text == "" {
		text = models.DefaultReminderText
	}
	return &models.ReminderSettings{ID: models.ReminderSettingsID, Text: text}, nil
}

func (r *fakeSettingsRepo) SetText(_ context.Context, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.text = text
	return nil
}

type sentMessage struct {
	ChatID int64
	Text   string
}

type fakeMessenger struct {
	mu   sync.Mutex
	sent []sentMessage
	err  error
}

func (m *fakeMessenger) SendText(_ context.Context, chatID int64, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentMessage{ChatID: chatID, Text: text})
	return nil
}

func (m *fakeMessenger) messages() []sentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]sentMessage, len(m.sent))
	copy(out, m.sent)
	return out
}

type fakeReminderScheduler struct {
	mu        sync.Mutex
	scheduled []int64
	cancelled []int64
}

func (s *fakeReminderScheduler) Schedule(userID, _ int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scheduled = append(s.scheduled, userID)
}

func (s *fakeReminderScheduler) Cancel(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelled = append(s.cancelled, userID)
}

// fakeTransactor runs the function in place and counts invocations. The real
// implementation binds a database transaction to the context.
type fakeTransactor struct {
	mu    sync.Mutex
	calls int
}

func (t *fakeTransactor) InTransaction(ctx context.Context, fn func(context.Context) error) error {
	t.mu.Lock()
	t.calls++
	t.mu.Unlock()
	return fn(ctx)
}

type fakeSink struct {
	mu     sync.Mutex
	events []dto.SheetsReferralEvent
}

func (s *fakeSink) LogReferralClick(event dto.SheetsReferralEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
}
