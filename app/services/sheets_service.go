// Package services contains external integrations used by the business flows
package services

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/oliateam/leadfunnel/app/dto"
	"github.com/oliateam/leadfunnel/app/metrics"
	"github.com/oliateam/leadfunnel/config"
	"github.com/oliateam/leadfunnel/utils"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// NoNoteKey marks rows of plain referral clicks that carried no note.
const NoNoteKey = "__NO_NOTE__"

const maxSheetNameLen = 95

// Column headers of the per-group event sheets. The spreadsheet is consumed
// by the marketing side, so the headers stay in their language.
var sheetEventHeaders = []string{
	"час_події_utc",
	"id_групи",
	"назва_групи",
	"id_реферера",
	"юзернейм_реферера",
	"id_запрошеного",
	"юзернейм_запрошеного",
	"id_примітки",
	"назва_примітки",
	"посилання_примітки",
	"джерело",
	"час_запису_ботом",
}

// Column headers of the per-group rollup sheets
var statsSheetHeaders = []string{"назва_примітки", "кліки"}

const statsSheetSuffix = " [Статистика]"

var invalidSheetChars = regexp.MustCompile(`[\[\]:*?/\\]`)

// SanitizeSheetName maps a group to its worksheet title: invalid characters
// become spaces, runs of whitespace collapse, and the group id rides in a
// " [id]" suffix that survives truncation to the 95 character limit.
// Group id 0 means the click had no group context.
func SanitizeSheetName(groupID int64, groupTitle string) string {
	if groupID == 0 {
		safe := collapseSpaces(invalidSheetChars.ReplaceAllString(groupTitle, " "))
		if safe == "" {
			safe = "group_unknown"
		}
		return truncateRunes(safe, maxSheetNameLen)
	}

	base := strings.TrimSpace(groupTitle)
	if base == "" {
		base = fmt.Sprintf("group_%d", groupID)
	}
	safe := collapseSpaces(invalidSheetChars.ReplaceAllString(base, " "))
	if safe == "" {
		safe = "group_unknown"
	}

	suffix := fmt.Sprintf(" [%d]", groupID)
	baseLimit := maxSheetNameLen - len(suffix)
	if baseLimit < 1 {
		baseLimit = 1
	}
	trimmed := strings.TrimRight(truncateRunes(safe, baseLimit), " ")
	if trimmed == "" {
		trimmed = "group"
	}
	return trimmed + suffix
}

// SanitizeStatsSheetName names the per-group rollup sheet. Same sanitize
// rules as SanitizeSheetName but with a fixed marker suffix.
func SanitizeStatsSheetName(groupID int64, groupTitle string) string {
	base := strings.TrimSpace(groupTitle)
	if base == "" && groupID != 0 {
		base = fmt.Sprintf("group_%d", groupID)
	}
	safe := collapseSpaces(invalidSheetChars.ReplaceAllString(base, " "))
	if safe == "" {
		safe = "group_unknown"
	}
	baseLimit := maxSheetNameLen - len([]rune(statsSheetSuffix))
	trimmed := strings.TrimRight(truncateRunes(safe, baseLimit), " ")
	if trimmed == "" {
		trimmed = "group"
	}
	return trimmed + statsSheetSuffix
}

// BuildEventRow renders one referral click as a sheet row matching
// sheetEventHeaders.
func BuildEventRow(event dto.SheetsReferralEvent, eventTS string) []string {
	noteTitle := strings.TrimSpace(event.NoteTitle)
	if noteTitle == "" {
		noteTitle = NoNoteKey
	}
	groupID := ""
	if event.GroupID != 0 {
		groupID = strconv.FormatInt(event.GroupID, 10)
	}
	noteID := ""
	if event.NoteID != 0 {
		noteID = strconv.FormatUint(uint64(event.NoteID), 10)
	}
	return []string{
		eventTS,
		groupID,
		event.GroupTitle,
		strconv.FormatInt(event.ReferrerID, 10),
		usernameCell(event.ReferrerUsername),
		strconv.FormatInt(event.ReferredID, 10),
		usernameCell(event.ReferredUsername),
		noteID,
		noteTitle,
		strings.TrimSpace(event.NoteURL),
		event.Source,
		eventTS,
	}
}

// sheetsAPI is the narrow surface of the Sheets client the logger needs.
// Tests swap in a fake.
type sheetsAPI interface {
	EnsureSheet(ctx context.Context, title string) error
	Rows(ctx context.Context, title, rng string) ([][]string, error)
	WriteHeaderRow(ctx context.Context, title string, headers []string) error
	UpdateCell(ctx context.Context, title, cell, value string) error
	AppendRow(ctx context.Context, title string, row []string) error
}

// SheetsReferralLogger mirrors referral clicks into a Google spreadsheet,
// one worksheet per destination group. Writes are serialized, bounded by the
// configured timeout and strictly best effort: a failure is logged and
// counted but never propagates to the Telegram flow.
type SheetsReferralLogger struct {
	cfg    config.SheetsConfig
	logger *log.Logger

	mu              sync.Mutex
	api             sheetsAPI
	configErrLogged bool
	wg              sync.WaitGroup
}

func NewSheetsReferralLogger(cfg config.SheetsConfig, logger *log.Logger) *SheetsReferralLogger {
	if logger == nil {
		logger = log.New(log.Writer(), "sheets ", log.LstdFlags|log.Lmicroseconds|log.LUTC)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	return &SheetsReferralLogger{cfg: cfg, logger: logger}
}

// LogReferralClick exports one click asynchronously. Safe to call from any
// goroutine.
func (l *SheetsReferralLogger) LogReferralClick(event dto.SheetsReferralEvent) {
	if !l.cfg.Enabled {
		return
	}
	if l.cfg.SpreadsheetID == "" || l.cfg.CredentialsFile == "" {
		l.mu.Lock()
		if !l.configErrLogged {
			l.logger.Printf("sheets: mirror enabled but SHEETS_SPREADSHEET_ID or SHEETS_CREDENTIALS_FILE is missing")
			l.configErrLogged = true
		}
		l.mu.Unlock()
		return
	}

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		l.mu.Lock()
		defer l.mu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), l.cfg.Timeout)
		defer cancel()

		if err := l.appendEvent(ctx, event); err != nil {
			metrics.SheetsErrorsTotal.Inc()
			l.logger.Printf("sheets: mirror write failed (group_id=%d referrer_id=%d referred_id=%d note_id=%d): %v",
				event.GroupID, event.ReferrerID, event.ReferredID, event.NoteID, err)
		}
	}()
}

// Stop waits for in-flight exports to finish.
func (l *SheetsReferralLogger) Stop() {
	l.wg.Wait()
}

func (l *SheetsReferralLogger) appendEvent(ctx context.Context, event dto.SheetsReferralEvent) error {
	api, err := l.apiClient(ctx)
	if err != nil {
		return fmt.Errorf("init sheets client: %w", err)
	}

	eventTS := utils.UTCNow().Format("2006-01-02T15:04:05Z")
	sheetName := SanitizeSheetName(event.GroupID, event.GroupTitle)
	row := BuildEventRow(event, eventTS)

	if err := api.EnsureSheet(ctx, sheetName); err != nil {
		return fmt.Errorf("ensure sheet %q: %w", sheetName, err)
	}
	if err := l.ensureHeaders(ctx, api, sheetName); err != nil {
		return fmt.Errorf("ensure headers in %q: %w", sheetName, err)
	}
	if err := api.AppendRow(ctx, sheetName, row); err != nil {
		return fmt.Errorf("append row to %q: %w", sheetName, err)
	}
	if err := l.upsertNoteStats(ctx, api, event); err != nil {
		return fmt.Errorf("upsert stats: %w", err)
	}
	return nil
}

// upsertNoteStats maintains the per-group rollup sheet: one row per note key
// with a running click count. The sheet is scanned by key; a known key gets
// its count bumped in place, a new key is appended at the first free row.
func (l *SheetsReferralLogger) upsertNoteStats(ctx context.Context, api sheetsAPI, event dto.SheetsReferralEvent) error {
	sheetName := SanitizeStatsSheetName(event.GroupID, event.GroupTitle)
	if err := api.EnsureSheet(ctx, sheetName); err != nil {
		return err
	}

	rows, err := api.Rows(ctx, sheetName, "A:B")
	if err != nil {
		return err
	}
	if len(rows) == 0 || len(rows[0]) == 0 || rows[0][0] != statsSheetHeaders[0] {
		if err := api.WriteHeaderRow(ctx, sheetName, statsSheetHeaders); err != nil {
			return err
		}
	}

	key := strings.TrimSpace(event.NoteTitle)
	if key == "" {
		key = NoNoteKey
	}
	for i := 1; i < len(rows); i++ {
		if len(rows[i]) == 0 || rows[i][0] != key {
			continue
		}
		count := int64(0)
		if len(rows[i]) > 1 {
			count, _ = strconv.ParseInt(strings.TrimSpace(rows[i][1]), 10, 64)
		}
		cell := fmt.Sprintf("B%d", i+1)
		return api.UpdateCell(ctx, sheetName, cell, strconv.FormatInt(count+1, 10))
	}
	return api.AppendRow(ctx, sheetName, []string{key, "1"})
}

func (l *SheetsReferralLogger) ensureHeaders(ctx context.Context, api sheetsAPI, sheetName string) error {
	rows, err := api.Rows(ctx, sheetName, "1:1")
	if err != nil {
		return err
	}
	var first []string
	if len(rows) > 0 {
		first = rows[0]
	}
	if headerRowMatches(first) {
		return nil
	}
	return api.WriteHeaderRow(ctx, sheetName, sheetEventHeaders)
}

func headerRowMatches(row []string) bool {
	if len(row) < len(sheetEventHeaders) {
		return false
	}
	for i, h := range sheetEventHeaders {
		if row[i] != h {
			return false
		}
	}
	return true
}

// apiClient lazily builds the real client on first use so a misconfigured
// credentials file surfaces as a logged error instead of a startup failure.
func (l *SheetsReferralLogger) apiClient(ctx context.Context) (sheetsAPI, error) {
	if l.api != nil {
		return l.api, nil
	}
	api, err := newGoogleSheetsAPI(ctx, l.cfg.CredentialsFile, l.cfg.SpreadsheetID)
	if err != nil {
		return nil, err
	}
	l.api = api
	return l.api, nil
}

type googleSheetsAPI struct {
	svc           *sheets.Service
	spreadsheetID string
	known         map[string]bool
}

func newGoogleSheetsAPI(ctx context.Context, credentialsFile, spreadsheetID string) (*googleSheetsAPI, error) {
	svc, err := sheets.NewService(ctx,
		option.WithCredentialsFile(credentialsFile),
		option.WithScopes(sheets.SpreadsheetsScope),
	)
	if err != nil {
		return nil, err
	}
	return &googleSheetsAPI{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		known:         make(map[string]bool),
	}, nil
}

func (g *googleSheetsAPI) EnsureSheet(ctx context.Context, title string) error {
	if g.known[title] {
		return nil
	}
	ss, err := g.svc.Spreadsheets.Get(g.spreadsheetID).
		Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return err
	}
	for _, sh := range ss.Sheets {
		if sh.Properties != nil {
			g.known[sh.Properties.Title] = true
		}
	}
	if g.known[title] {
		return nil
	}

	req := &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{{
			AddSheet: &sheets.AddSheetRequest{
				Properties: &sheets.SheetProperties{
					Title: title,
					GridProperties: &sheets.GridProperties{
						RowCount:    1000,
						ColumnCount: int64(len(sheetEventHeaders) + 4),
					},
				},
			},
		}},
	}
	if _, err := g.svc.Spreadsheets.BatchUpdate(g.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return err
	}
	g.known[title] = true
	return nil
}

func (g *googleSheetsAPI) Rows(ctx context.Context, title, rng string) ([][]string, error) {
	resp, err := g.svc.Spreadsheets.Values.Get(g.spreadsheetID, a1SheetRef(title)+"!"+rng).
		Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	rows := make([][]string, 0, len(resp.Values))
	for _, raw := range resp.Values {
		row := make([]string, 0, len(raw))
		for _, cell := range raw {
			row = append(row, fmt.Sprint(cell))
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (g *googleSheetsAPI) UpdateCell(ctx context.Context, title, cell, value string) error {
	vr := &sheets.ValueRange{Values: [][]any{{value}}}
	_, err := g.svc.Spreadsheets.Values.Update(g.spreadsheetID, a1SheetRef(title)+"!"+cell, vr).
		ValueInputOption("RAW").Context(ctx).Do()
	return err
}

func (g *googleSheetsAPI) WriteHeaderRow(ctx context.Context, title string, headers []string) error {
	values := make([]any, len(headers))
	for i, h := range headers {
		values[i] = h
	}
	vr := &sheets.ValueRange{Values: [][]any{values}}
	_, err := g.svc.Spreadsheets.Values.Update(g.spreadsheetID, a1SheetRef(title)+"!A1", vr).
		ValueInputOption("RAW").Context(ctx).Do()
	return err
}

func (g *googleSheetsAPI) AppendRow(ctx context.Context, title string, row []string) error {
	values := make([]any, len(row))
	for i, cell := range row {
		values[i] = cell
	}
	vr := &sheets.ValueRange{Values: [][]any{values}}
	_, err := g.svc.Spreadsheets.Values.Append(g.spreadsheetID, a1SheetRef(title)+"!A1", vr).
		ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	return err
}

// a1SheetRef quotes a sheet title for A1 notation.
func a1SheetRef(title string) string {
	return "'" + strings.ReplaceAll(title, "'", "''") + "'"
}

func usernameCell(username string) string {
	username = strings.TrimSpace(username)
	if username == "" {
		return ""
	}
	return "@" + username
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
