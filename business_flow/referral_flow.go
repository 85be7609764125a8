package businessflow

import (
	"context"
	"strconv"
	"strings"

	"github.com/oliateam/leadfunnel/app/dto"
	"github.com/oliateam/leadfunnel/models"
	"github.com/oliateam/leadfunnel/repository"
)

// StartPayload is the parsed deep-link payload of a /start command
type StartPayload struct {
	ReferrerID int64
	NoteID     uint
}

// ParseStartPayload parses "ref_<referrerId>" or
// "ref_<referrerId>_note_<noteId>". Anything else returns ok=false; the
// caller treats malformed payloads as plain /start.
func ParseStartPayload(payload string) (StartPayload, bool) {
	payload = strings.TrimSpace(payload)
	if !strings.HasPrefix(payload, "ref_") {
		return StartPayload{}, false
	}
	rest := payload[len("ref_"):]

	refPart := rest
	notePart := ""
	if idx := strings.Index(rest, "_note_"); idx >= 0 {
		refPart = rest[:idx]
		notePart = rest[idx+len("_note_"):]
	}

	referrerID, err := strconv.ParseInt(refPart, 10, 64)
	if err != nil || referrerID <= 0 {
		return StartPayload{}, false
	}

	parsed := StartPayload{ReferrerID: referrerID}
	if notePart != "" {
		noteID, err := strconv.ParseUint(notePart, 10, 32)
		if err != nil || noteID == 0 {
			return StartPayload{}, false
		}
		parsed.NoteID = uint(noteID)
	}
	return parsed, true
}

// StartOutcome reports what a /start event changed
type StartOutcome struct {
	ClickRecorded bool
	ReferrerID    int64
	NoteID        uint
}

// ReferralFlow handles /start events: user upsert, referral attribution,
// note click logging and the reporting sink export
// The sink export is asynchronous and best-effort
type ReferralFlow interface {
	HandleStart(ctx context.Context, user *models.User, payload string) (*StartOutcome, error)
}

type ReferralFlowImpl struct {
	users      repository.UserRepository
	notes      repository.NoteRepository
	groups     repository.GroupRepository
	clicks     repository.ReferralClickRepository
	noteClicks repository.NoteClickRepository
	polls      repository.PollResponseRepository
	tx         repository.Transactor
	sink       ReferralEventLogger
}

func NewReferralFlow(
	users repository.UserRepository,
	notes repository.NoteRepository,
	groups repository.GroupRepository,
	clicks repository.ReferralClickRepository,
	noteClicks repository.NoteClickRepository,
	polls repository.PollResponseRepository,
	tx repository.Transactor,
	sink ReferralEventLogger,
) ReferralFlow {
	return &ReferralFlowImpl{
		users:      users,
		notes:      notes,
		groups:     groups,
		clicks:     clicks,
		noteClicks: noteClicks,
		polls:      polls,
		tx:         tx,
		sink:       sink,
	}
}

func (f *ReferralFlowImpl) HandleStart(ctx context.Context, user *models.User, payload string) (*StartOutcome, error) {
	if err := f.users.Upsert(ctx, user); err != nil {
		return nil, NewBusinessError("USER_UPSERT_FAILED", "Failed to upsert user", err)
	}

	parsed, ok := ParseStartPayload(payload)
	if !ok || parsed.ReferrerID == user.TelegramID {
		// Malformed or self-referential payloads are silently ignored.
		return &StartOutcome{}, nil
	}

	var note *models.Note
	if parsed.NoteID != 0 {
		var err error
		note, err = f.notes.ByID(ctx, parsed.NoteID)
		if err != nil {
			return nil, NewBusinessError("NOTE_LOOKUP_FAILED", "Failed to lookup note", err)
		}
		if note == nil || note.OwnerID != parsed.ReferrerID {
			// A deleted or foreign note degrades to a plain referral.
			parsed.NoteID = 0
			note = nil
		}
	}

	var groupID int64
	if note != nil {
		groupID = note.GroupID
	}

	click := &models.ReferralClick{
		ReferrerID: parsed.ReferrerID,
		ReferredID: user.TelegramID,
		NoteID:     parsed.NoteID,
		GroupID:    groupID,
	}

	// The click log, the attribution row and the note click commit together.
	var inserted bool
	err := f.tx.InTransaction(ctx, func(txCtx context.Context) error {
		var err error
		inserted, err = f.clicks.Record(txCtx, click)
		if err != nil {
			return NewBusinessError("CLICK_RECORD_FAILED", "Failed to record referral click", err)
		}

		// First-attribution-wins lives in the insert: on conflict the
		// existing row keeps its referrer.
		if _, err := f.polls.EnsureRow(txCtx, user.TelegramID, parsed.ReferrerID, parsed.NoteID, groupID); err != nil {
			return NewBusinessError("POLL_ENSURE_FAILED", "Failed to ensure poll row", err)
		}

		if inserted && note != nil {
			if err := f.noteClicks.Save(txCtx, &models.NoteClick{NoteID: note.ID, UserID: user.TelegramID}); err != nil {
				return NewBusinessError("NOTE_CLICK_FAILED", "Failed to log note click", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	outcome := &StartOutcome{
		ClickRecorded: inserted,
		ReferrerID:    parsed.ReferrerID,
		NoteID:        parsed.NoteID,
	}
	if !inserted {
		return outcome, nil
	}

	if f.sink != nil {
		f.sink.LogReferralClick(f.buildSinkEvent(ctx, user, parsed, note, groupID))
	}

	return outcome, nil
}

func (f *ReferralFlowImpl) buildSinkEvent(ctx context.Context, user *models.User, parsed StartPayload, note *models.Note, groupID int64) dto.SheetsReferralEvent {
	event := dto.SheetsReferralEvent{
		GroupID:          groupID,
		ReferrerID:       parsed.ReferrerID,
		ReferredID:       user.TelegramID,
		ReferredUsername: derefString(user.Username),
		NoteID:           parsed.NoteID,
		Source:           ReferralSourceLink,
	}
	if note != nil {
		event.NoteTitle = note.Title
		event.NoteURL = derefString(note.URL)
	}
	if referrer, err := f.users.ByTelegramID(ctx, parsed.ReferrerID); err == nil && referrer != nil {
		event.ReferrerUsername = derefString(referrer.Username)
	}
	if groupID != 0 {
		if group, err := f.groups.ByTelegramID(ctx, groupID); err == nil && group != nil {
			event.GroupTitle = group.Title
		}
	}
	return event
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
