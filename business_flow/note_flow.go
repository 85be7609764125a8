package businessflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/oliateam/leadfunnel/models"
	"github.com/oliateam/leadfunnel/repository"
)

// NoteURLSkipSentinel lets the owner create a note without a target URL
const NoteURLSkipSentinel = "-"

// CaptureResultKind tells the transport what a captured text did
type CaptureResultKind string

const (
	CaptureResultIgnored      CaptureResultKind = "ignored"
	CaptureResultTitleSaved   CaptureResultKind = "title_saved"
	CaptureResultNoteCreated  CaptureResultKind = "note_created"
	CaptureResultReminderSet  CaptureResultKind = "reminder_set"
	CaptureResultInvalidURL   CaptureResultKind = "invalid_url"
	CaptureResultTitleInvalid CaptureResultKind = "title_invalid"
)

// CaptureOutcome reports how a free-text message was consumed
type CaptureOutcome struct {
	Kind CaptureResultKind
	Note *models.Note
}

// NoteWithStats pairs a note with its click count for dashboards
type NoteWithStats struct {
	Note       *models.Note
	ClickCount int64
}

// NoteFlow owns note CRUD, the free-text capture side-states and the
// notification routing preference. All capture transitions go through the
// session store so the lifecycle is testable in isolation.
type NoteFlow interface {
	// BeginCreateNote enters the AWAITING_NOTE_TITLE side-state for the
	// destination group the owner picked.
	BeginCreateNote(ctx context.Context, ownerID, groupID int64) error
	// BeginEditReminderText enters the AWAITING_REMINDER_TEXT side-state.
	BeginEditReminderText(ctx context.Context, userID int64) error
	// HandleCapturedText consumes one free-text message according to the
	// active side-state. Without an active capture it reports
	// CaptureResultIgnored and does nothing.
	HandleCapturedText(ctx context.Context, userID int64, text string) (*CaptureOutcome, error)
	// CancelCapture exits any side-state without side effects and reports
	// whether one was active.
	CancelCapture(ctx context.Context, userID int64) (bool, error)

	ListNotes(ctx context.Context, ownerID int64) ([]*NoteWithStats, error)
	DeleteNote(ctx context.Context, ownerID int64, noteID uint) error
	// NoteLink renders the shareable deep link for a note.
	NoteLink(botUsername string, ownerID int64, noteID uint) string
	// ReferralLink renders the plain (note-less) deep link for an owner.
	ReferralLink(botUsername string, ownerID int64) string

	ListGroups(ctx context.Context) ([]*models.Group, error)
	SetNotifyGroup(ctx context.Context, ownerID, groupID int64) error
	// ObserveGroup refreshes the group roster from any observed activity.
	ObserveGroup(ctx context.Context, telegramID int64, title string) error
}

type NoteFlowImpl struct {
	notes      repository.NoteRepository
	noteClicks repository.NoteClickRepository
	groups     repository.GroupRepository
	users      repository.UserRepository
	settings   repository.ReminderSettingsRepository
	sessions   SessionStore
	validate   *validator.Validate
}

func NewNoteFlow(
	notes repository.NoteRepository,
	noteClicks repository.NoteClickRepository,
	groups repository.GroupRepository,
	users repository.UserRepository,
	settings repository.ReminderSettingsRepository,
	sessions SessionStore,
) NoteFlow {
	return &NoteFlowImpl{
		notes:      notes,
		noteClicks: noteClicks,
		groups:     groups,
		users:      users,
		settings:   settings,
		sessions:   sessions,
		validate:   validator.New(),
	}
}

func (f *NoteFlowImpl) BeginCreateNote(ctx context.Context, ownerID, groupID int64) error {
	group, err := f.groups.ByTelegramID(ctx, groupID)
	if err != nil {
		return NewBusinessError("GROUP_LOOKUP_FAILED", "Failed to lookup group", err)
	}
	if group == nil {
		return ErrGroupNotFound
	}
	return f.sessions.Put(ctx, ownerID, &Session{State: CaptureNoteTitle, GroupID: groupID})
}

func (f *NoteFlowImpl) BeginEditReminderText(ctx context.Context, userID int64) error {
	return f.sessions.Put(ctx, userID, &Session{State: CaptureReminderText})
}

func (f *NoteFlowImpl) HandleCapturedText(ctx context.Context, userID int64, text string) (*CaptureOutcome, error) {
	session, err := f.sessions.Get(ctx, userID)
	if err != nil {
		return nil, NewBusinessError("SESSION_READ_FAILED", "Failed to read capture session", err)
	}
	if session == nil || session.State == CaptureNone {
		return &CaptureOutcome{Kind: CaptureResultIgnored}, nil
	}

	text = strings.TrimSpace(text)

	switch session.State {
	case CaptureNoteTitle:
		if text == "" {
			return &CaptureOutcome{Kind: CaptureResultTitleInvalid}, nil
		}
		session.State = CaptureNoteURL
		session.NoteTitle = text
		if err := f.sessions.Put(ctx, userID, session); err != nil {
			return nil, NewBusinessError("SESSION_WRITE_FAILED", "Failed to advance capture session", err)
		}
		return &CaptureOutcome{Kind: CaptureResultTitleSaved}, nil

	case CaptureNoteURL:
		var url *string
		if text != NoteURLSkipSentinel {
			if err := f.validate.Var(text, "url"); err != nil {
				return &CaptureOutcome{Kind: CaptureResultInvalidURL}, nil
			}
			url = &text
		}
		note := &models.Note{
			OwnerID: userID,
			GroupID: session.GroupID,
			Title:   session.NoteTitle,
			URL:     url,
		}
		if err := f.notes.Save(ctx, note); err != nil {
			return nil, NewBusinessError("NOTE_CREATE_FAILED", "Failed to create note", err)
		}
		if err := f.sessions.Clear(ctx, userID); err != nil {
			return nil, NewBusinessError("SESSION_CLEAR_FAILED", "Failed to clear capture session", err)
		}
		return &CaptureOutcome{Kind: CaptureResultNoteCreated, Note: note}, nil

	case CaptureReminderText:
		if text == "" {
			return nil, ErrReminderTextEmpty
		}
		if err := f.settings.SetText(ctx, text); err != nil {
			return nil, NewBusinessError("REMINDER_SET_FAILED", "Failed to update reminder text", err)
		}
		if err := f.sessions.Clear(ctx, userID); err != nil {
			return nil, NewBusinessError("SESSION_CLEAR_FAILED", "Failed to clear capture session", err)
		}
		return &CaptureOutcome{Kind: CaptureResultReminderSet}, nil
	}

	return &CaptureOutcome{Kind: CaptureResultIgnored}, nil
}

func (f *NoteFlowImpl) CancelCapture(ctx context.Context, userID int64) (bool, error) {
	session, err := f.sessions.Get(ctx, userID)
	if err != nil {
		return false, NewBusinessError("SESSION_READ_FAILED", "Failed to read capture session", err)
	}
	if session == nil || session.State == CaptureNone {
		return false, nil
	}
	if err := f.sessions.Clear(ctx, userID); err != nil {
		return false, NewBusinessError("SESSION_CLEAR_FAILED", "Failed to clear capture session", err)
	}
	return true, nil
}

func (f *NoteFlowImpl) ListNotes(ctx context.Context, ownerID int64) ([]*NoteWithStats, error) {
	notes, err := f.notes.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, NewBusinessError("NOTE_LIST_FAILED", "Failed to list notes", err)
	}

	ids := make([]uint, 0, len(notes))
	for _, note := range notes {
		ids = append(ids, note.ID)
	}
	counts, err := f.noteClicks.CountsForNotes(ctx, ids)
	if err != nil {
		return nil, NewBusinessError("NOTE_STATS_FAILED", "Failed to count note clicks", err)
	}

	result := make([]*NoteWithStats, 0, len(notes))
	for _, note := range notes {
		result = append(result, &NoteWithStats{Note: note, ClickCount: counts[note.ID]})
	}
	return result, nil
}

func (f *NoteFlowImpl) DeleteNote(ctx context.Context, ownerID int64, noteID uint) error {
	deleted, err := f.notes.DeleteByIDAndOwner(ctx, noteID, ownerID)
	if err != nil {
		return NewBusinessError("NOTE_DELETE_FAILED", "Failed to delete note", err)
	}
	if !deleted {
		return ErrNoteNotFound
	}
	return nil
}

func (f *NoteFlowImpl) NoteLink(botUsername string, ownerID int64, noteID uint) string {
	return fmt.Sprintf("https://t.me/%s?start=ref_%d_note_%d", botUsername, ownerID, noteID)
}

func (f *NoteFlowImpl) ReferralLink(botUsername string, ownerID int64) string {
	return fmt.Sprintf("https://t.me/%s?start=ref_%d", botUsername, ownerID)
}

func (f *NoteFlowImpl) ObserveGroup(ctx context.Context, telegramID int64, title string) error {
	if err := f.groups.Upsert(ctx, &models.Group{TelegramID: telegramID, Title: title}); err != nil {
		return NewBusinessError("GROUP_UPSERT_FAILED", "Failed to upsert group", err)
	}
	return nil
}

func (f *NoteFlowImpl) ListGroups(ctx context.Context) ([]*models.Group, error) {
	groups, err := f.groups.ListAll(ctx)
	if err != nil {
		return nil, NewBusinessError("GROUP_LIST_FAILED", "Failed to list groups", err)
	}
	return groups, nil
}

func (f *NoteFlowImpl) SetNotifyGroup(ctx context.Context, ownerID, groupID int64) error {
	group, err := f.groups.ByTelegramID(ctx, groupID)
	if err != nil {
		return NewBusinessError("GROUP_LOOKUP_FAILED", "Failed to lookup group", err)
	}
	if group == nil {
		return ErrGroupNotFound
	}
	if err := f.users.SetNotifyGroup(ctx, ownerID, &groupID); err != nil {
		return NewBusinessError("ROUTING_UPDATE_FAILED", "Failed to set notification group", err)
	}
	return nil
}
