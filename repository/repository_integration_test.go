package repository_test

import (
	"context"
	"errors"
	"testing"

	"github.com/oliateam/leadfunnel/models"
	"github.com/oliateam/leadfunnel/repository"
	testhelpers "github.com/oliateam/leadfunnel/testing"
	"github.com/oliateam/leadfunnel/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupDB spins up a dedicated test database. Skipped when Postgres is not
// reachable (see TEST_DB_* environment variables).
func setupDB(t *testing.T) *testhelpers.TestDB {
	t.Helper()
	tdb, err := testhelpers.SetupTestDB()
	if err != nil {
		t.Skipf("postgres not available: %v", err)
	}
	t.Cleanup(func() {
		if err := tdb.TeardownTestDB(); err != nil {
			t.Logf("teardown: %v", err)
		}
	})
	return tdb
}

func TestPollResponseRepository_EnsureRowFirstAttributionWins(t *testing.T) {
	tdb := setupDB(t)
	repo := repository.NewPollResponseRepository(tdb.DB)
	ctx, cancel := testhelpers.CreateTestContext()
	defer cancel()

	first, err := repo.EnsureRow(ctx, 1, 100, 5, -200)
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.Equal(t, int64(100), first.ReferrerID)

	// A later attribution attempt does not overwrite the stored referrer.
	second, err := repo.EnsureRow(ctx, 1, 999, 7, -300)
	require.NoError(t, err)
	require.NotNil(t, second)
	assert.Equal(t, int64(100), second.ReferrerID)
	assert.Equal(t, uint(5), second.NoteID)
	assert.Equal(t, first.ID, second.ID)
}

func TestPollResponseRepository_ClaimAndReminderFlags(t *testing.T) {
	tdb := setupDB(t)
	repo := repository.NewPollResponseRepository(tdb.DB)
	ctx, cancel := testhelpers.CreateTestContext()
	defer cancel()

	_, err := repo.EnsureRow(ctx, 1, 0, 0, 0)
	require.NoError(t, err)

	claimed, err := repo.TryClaimNotification(ctx, 1)
	require.NoError(t, err)
	assert.True(t, claimed)

	claimed, err = repo.TryClaimNotification(ctx, 1)
	require.NoError(t, err)
	assert.False(t, claimed)

	// Reminder claim succeeds while the device question is open.
	won, err := repo.TryMarkReminderSent(ctx, 1)
	require.NoError(t, err)
	assert.True(t, won)
	won, err = repo.TryMarkReminderSent(ctx, 1)
	require.NoError(t, err)
	assert.False(t, won)

	// Structural reset reopens both one-shot flags.
	require.NoError(t, repo.ResetSession(ctx, 1))
	claimed, err = repo.TryClaimNotification(ctx, 1)
	require.NoError(t, err)
	assert.True(t, claimed)
	won, err = repo.TryMarkReminderSent(ctx, 1)
	require.NoError(t, err)
	assert.True(t, won)
}

func TestPollResponseRepository_ReminderBlockedAfterDeviceAnswer(t *testing.T) {
	tdb := setupDB(t)
	repo := repository.NewPollResponseRepository(tdb.DB)
	ctx, cancel := testhelpers.CreateTestContext()
	defer cancel()

	_, err := repo.EnsureRow(ctx, 1, 0, 0, 0)
	require.NoError(t, err)
	require.NoError(t, repo.SetDeviceAnswer(ctx, 1, models.DeviceAnswerYes))

	won, err := repo.TryMarkReminderSent(ctx, 1)
	require.NoError(t, err)
	assert.False(t, won)

	row, err := repo.ByUserID(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.NotNil(t, row.CompletedAt)
}

func TestReferralClickRepository_DuplicateTripleIsNoOp(t *testing.T) {
	tdb := setupDB(t)
	repo := repository.NewReferralClickRepository(tdb.DB)
	ctx, cancel := testhelpers.CreateTestContext()
	defer cancel()

	inserted, err := repo.Record(ctx, &models.ReferralClick{ReferrerID: 100, ReferredID: 1, NoteID: 5})
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = repo.Record(ctx, &models.ReferralClick{ReferrerID: 100, ReferredID: 1, NoteID: 5})
	require.NoError(t, err)
	assert.False(t, inserted)

	// Same pair through a different note is a distinct event.
	inserted, err = repo.Record(ctx, &models.ReferralClick{ReferrerID: 100, ReferredID: 1, NoteID: 6})
	require.NoError(t, err)
	assert.True(t, inserted)

	count, err := repo.CountByReferrer(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestUserRepository_UpsertKeepsNotifyGroup(t *testing.T) {
	tdb := setupDB(t)
	repo := repository.NewUserRepository(tdb.DB)
	ctx, cancel := testhelpers.CreateTestContext()
	defer cancel()

	require.NoError(t, repo.Upsert(ctx, &models.User{TelegramID: 100, FirstName: "Ref", Username: utils.ToPtr("ref_user")}))

	groupID := int64(-200)
	require.NoError(t, repo.SetNotifyGroup(ctx, 100, &groupID))

	// A later profile refresh must not clear the routing preference.
	require.NoError(t, repo.Upsert(ctx, &models.User{TelegramID: 100, FirstName: "Refat", Username: utils.ToPtr("ref_user_v2")}))

	user, err := repo.ByTelegramID(ctx, 100)
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, "Refat", user.FirstName)
	require.NotNil(t, user.Username)
	assert.Equal(t, "ref_user_v2", *user.Username)
	require.NotNil(t, user.NotifyGroupID)
	assert.Equal(t, int64(-200), *user.NotifyGroupID)
}

func TestNoteRepository_OwnershipScopedDelete(t *testing.T) {
	tdb := setupDB(t)
	repo := repository.NewNoteRepository(tdb.DB)
	ctx, cancel := testhelpers.CreateTestContext()
	defer cancel()

	note := &models.Note{OwnerID: 100, GroupID: -200, Title: "Promo"}
	require.NoError(t, repo.Save(ctx, note))

	deleted, err := repo.DeleteByIDAndOwner(ctx, note.ID, 999)
	require.NoError(t, err)
	assert.False(t, deleted)

	deleted, err = repo.DeleteByIDAndOwner(ctx, note.ID, 100)
	require.NoError(t, err)
	assert.True(t, deleted)

	remaining, err := repo.ListByOwner(ctx, 100)
	require.NoError(t, err)
	assert.Empty(t, remaining)
}

func TestTransactor_RollsBackOnError(t *testing.T) {
	tdb := setupDB(t)
	clicks := repository.NewReferralClickRepository(tdb.DB)
	polls := repository.NewPollResponseRepository(tdb.DB)
	tx := repository.NewTransactor(tdb.DB)
	ctx, cancel := testhelpers.CreateTestContext()
	defer cancel()

	boom := errors.New("boom")
	err := tx.InTransaction(ctx, func(txCtx context.Context) error {
		inserted, err := clicks.Record(txCtx, &models.ReferralClick{ReferrerID: 100, ReferredID: 1, NoteID: 5})
		require.NoError(t, err)
		require.True(t, inserted)
		if _, err := polls.EnsureRow(txCtx, 1, 100, 5, -200); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	// Neither write survives the rollback.
	count, err := clicks.CountByReferrer(ctx, 100)
	require.NoError(t, err)
	assert.Zero(t, count)

	row, err := polls.ByUserID(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, row)
}

func TestUserRepository_ListQualifiedLeads(t *testing.T) {
	tdb := setupDB(t)
	users := repository.NewUserRepository(tdb.DB)
	polls := repository.NewPollResponseRepository(tdb.DB)
	ctx, cancel := testhelpers.CreateTestContext()
	defer cancel()

	require.NoError(t, users.Upsert(ctx, &models.User{TelegramID: 1, FirstName: "Done"}))
	require.NoError(t, users.Upsert(ctx, &models.User{TelegramID: 2, FirstName: "Stalled"}))

	_, err := polls.EnsureRow(ctx, 1, 100, 0, 0)
	require.NoError(t, err)
	require.NoError(t, polls.SetAgeBracket(ctx, 1, models.AgeBracket25to34))
	require.NoError(t, polls.SetIncomeBracket(ctx, 1, models.IncomeBracket10to20))
	require.NoError(t, polls.SetDeviceAnswer(ctx, 1, models.DeviceAnswerYes))

	_, err = polls.EnsureRow(ctx, 2, 0, 0, 0)
	require.NoError(t, err)
	require.NoError(t, polls.SetAgeBracket(ctx, 2, models.AgeBracket18to24))

	rows, err := users.ListQualifiedLeads(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(1), rows[0].UserID)
	assert.Equal(t, "Done", rows[0].FirstName)
	assert.Equal(t, int64(100), rows[0].ReferrerID)
}
