package dto

// SheetsReferralEvent carries one referral click to the reporting sink.
// GroupID 0 means the click had no group context; NoteID 0 means no note.
type SheetsReferralEvent struct {
	GroupID          int64  `json:"group_id"`
	GroupTitle       string `json:"group_title"`
	ReferrerID       int64  `json:"referrer_id"`
	ReferrerUsername string `json:"referrer_username"`
	ReferredID       int64  `json:"referred_id"`
	ReferredUsername string `json:"referred_username"`
	NoteID           uint   `json:"note_id"`
	NoteTitle        string `json:"note_title"`
	NoteURL          string `json:"note_url"`
	Source           string `json:"source"`
}

// NoteStatsDTO is the per-note click rollup exposed by the admin API
type NoteStatsDTO struct {
	NoteID     uint    `json:"note_id"`
	Title      string  `json:"title"`
	URL        *string `json:"url,omitempty"`
	OwnerID    int64   `json:"owner_id"`
	GroupID    int64   `json:"group_id"`
	ClickCount int64   `json:"click_count"`
}
