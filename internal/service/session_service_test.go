package service

import (
	"context"
	"testing"
	"time"

	"tillpoint/internal/dto"
	"tillpoint/internal/model"
	"tillpoint/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func strPtr(s string) *string { return &s }

type sessionFixture struct {
	repo     *fakeSessionRepo
	interims *fakeInterimRepo
	location *model.Location
	svc      SessionService
}

func newSessionFixture(t *testing.T) *sessionFixture {
	t.Helper()
	location := &model.Location{
		ID:       uuid.New(),
		Code:     "MAIN",
		Name:     "Main Store",
		Timezone: "UTC",
		Active:   true,
	}
	repo := newFakeSessionRepo()
	interims := &fakeInterimRepo{}
	svc := NewSessionService(repo, interims, newFakeLocationRepo(location), nil, nil)
	return &sessionFixture{repo: repo, interims: interims, location: location, svc: svc}
}

func (f *sessionFixture) openSession(t *testing.T, openingCash string) *dto.SessionResponse {
	t.Helper()
	resp, err := f.svc.Open(context.Background(), uuid.New(), "Ana Diaz", dto.OpenSessionRequest{
		LocationID:  f.location.ID.String(),
		TerminalID:  "T3",
		OpeningCash: dec(openingCash),
	})
	require.NoError(t, err)
	return resp
}

func (f *sessionFixture) sessionID(t *testing.T, resp *dto.SessionResponse) uuid.UUID {
	t.Helper()
	id, err := uuid.Parse(resp.SessionID)
	require.NoError(t, err)
	return id
}

func TestOpenSession(t *testing.T) {
	f := newSessionFixture(t)

	resp := f.openSession(t, "500.00")

	assert.Equal(t, model.SessionOpen, resp.Status)
	assert.True(t, dec("500.00").Equal(resp.OpeningCash))
	assert.Regexp(t, `^T3-\d{8}-0001$`, resp.SessionNumber)
	assert.Nil(t, resp.ExpectedCash)
	assert.Nil(t, resp.CountedCash)
	assert.Nil(t, resp.Variance)
}

func TestOpenSessionSecondOnSameTerminalRejected(t *testing.T) {
	f := newSessionFixture(t)
	f.openSession(t, "500.00")

	_, err := f.svc.Open(context.Background(), uuid.New(), "Leo Paz", dto.OpenSessionRequest{
		LocationID:  f.location.ID.String(),
		TerminalID:  "T3",
		OpeningCash: dec("300.00"),
	})
	assert.ErrorIs(t, err, ErrInvalidStateTransition)
}

func TestSessionNumberSequence(t *testing.T) {
	f := newSessionFixture(t)

	first := f.openSession(t, "100.00")
	// Close the first so the terminal frees up for the second open.
	_, err := f.svc.Close(context.Background(), f.sessionID(t, first), dto.CloseSessionRequest{
		Mode:        CloseModePermanent,
		CountedCash: decPtr("100.00"),
	})
	require.NoError(t, err)

	second := f.openSession(t, "100.00")
	assert.Regexp(t, `-0002$`, second.SessionNumber)
}

// Opening float 500.00, sales totalling 1200.00, drawer counted at 1699.50:
// expected is 1700.00 and the 0.50 shortage must carry a reason.
func TestClosePermanentComputesVariance(t *testing.T) {
	f := newSessionFixture(t)
	resp := f.openSession(t, "500.00")
	id := f.sessionID(t, resp)

	require.NoError(t, f.svc.RecordMovement(context.Background(), id, dto.RecordMovementRequest{
		Amount: dec("700.00"), Reference: "sale-0001",
	}))
	require.NoError(t, f.svc.RecordMovement(context.Background(), id, dto.RecordMovementRequest{
		Amount: dec("500.00"), Reference: "sale-0002",
	}))

	_, err := f.svc.Close(context.Background(), id, dto.CloseSessionRequest{
		Mode:        CloseModePermanent,
		CountedCash: decPtr("1699.50"),
	})
	assert.ErrorIs(t, err, ErrMissingVarianceReason)

	closed, err := f.svc.Close(context.Background(), id, dto.CloseSessionRequest{
		Mode:           CloseModePermanent,
		CountedCash:    decPtr("1699.50"),
		VarianceReason: strPtr("rounding on cash returns"),
	})
	require.NoError(t, err)

	assert.Equal(t, model.SessionPermanentlyClosed, closed.Status)
	require.NotNil(t, closed.ExpectedCash)
	require.NotNil(t, closed.Variance)
	assert.True(t, dec("1700.00").Equal(*closed.ExpectedCash))
	assert.True(t, dec("1699.50").Equal(*closed.CountedCash))
	assert.True(t, dec("-0.50").Equal(*closed.Variance))
	assert.Equal(t, "rounding on cash returns", *closed.VarianceReason)
}

func TestClosePermanentZeroVarianceNeedsNoReason(t *testing.T) {
	f := newSessionFixture(t)
	resp := f.openSession(t, "500.00")
	id := f.sessionID(t, resp)

	closed, err := f.svc.Close(context.Background(), id, dto.CloseSessionRequest{
		Mode:        CloseModePermanent,
		CountedCash: decPtr("500.00"),
	})
	require.NoError(t, err)
	assert.True(t, closed.Variance.IsZero())
	assert.Nil(t, closed.VarianceReason)
}

func TestClosePermanentRequiresCountedCash(t *testing.T) {
	f := newSessionFixture(t)
	resp := f.openSession(t, "500.00")

	_, err := f.svc.Close(context.Background(), f.sessionID(t, resp), dto.CloseSessionRequest{
		Mode: CloseModePermanent,
	})
	assert.ErrorIs(t, err, ErrCountedCashRequired)
}

func TestTemporaryCloseAndReopen(t *testing.T) {
	f := newSessionFixture(t)
	resp := f.openSession(t, "250.00")
	id := f.sessionID(t, resp)

	paused, err := f.svc.Close(context.Background(), id, dto.CloseSessionRequest{Mode: CloseModeTemporary})
	require.NoError(t, err)
	assert.Equal(t, model.SessionTemporarilyClosed, paused.Status)
	assert.NotNil(t, paused.ClosedAt)

	reopened, err := f.svc.Reopen(context.Background(), id, dto.ReopenSessionRequest{Authorization: "supervisor-pin-ok"})
	require.NoError(t, err)
	assert.Equal(t, model.SessionOpen, reopened.Status)
	assert.Nil(t, reopened.ClosedAt)
}

func TestReopenRequiresAuthorization(t *testing.T) {
	f := newSessionFixture(t)
	resp := f.openSession(t, "250.00")
	id := f.sessionID(t, resp)

	_, err := f.svc.Close(context.Background(), id, dto.CloseSessionRequest{Mode: CloseModeTemporary})
	require.NoError(t, err)

	_, err = f.svc.Reopen(context.Background(), id, dto.ReopenSessionRequest{Authorization: ""})
	require.Error(t, err)

	// Session is untouched by the failed reopen.
	current, err := f.svc.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, model.SessionTemporarilyClosed, current.Status)
}

func TestReopenDeniedByAuthorizer(t *testing.T) {
	location := &model.Location{ID: uuid.New(), Code: "MAIN", Timezone: "UTC", Active: true}
	repo := newFakeSessionRepo()
	deny := ReopenAuthorizerFunc(func(_ context.Context, _ string) error {
		return assert.AnError
	})
	svc := NewSessionService(repo, &fakeInterimRepo{}, newFakeLocationRepo(location), nil, deny)

	resp, err := svc.Open(context.Background(), uuid.New(), "Ana Diaz", dto.OpenSessionRequest{
		LocationID: location.ID.String(), TerminalID: "T1", OpeningCash: dec("100.00"),
	})
	require.NoError(t, err)
	id, _ := uuid.Parse(resp.SessionID)

	_, err = svc.Close(context.Background(), id, dto.CloseSessionRequest{Mode: CloseModeTemporary})
	require.NoError(t, err)

	_, err = svc.Reopen(context.Background(), id, dto.ReopenSessionRequest{Authorization: "whatever"})
	assert.ErrorIs(t, err, assert.AnError)
}

func TestClosePermanentFromTemporarilyClosed(t *testing.T) {
	f := newSessionFixture(t)
	resp := f.openSession(t, "500.00")
	id := f.sessionID(t, resp)

	require.NoError(t, f.svc.RecordMovement(context.Background(), id, dto.RecordMovementRequest{
		Amount: dec("200.00"), Reference: "sale-0001",
	}))
	_, err := f.svc.Close(context.Background(), id, dto.CloseSessionRequest{Mode: CloseModeTemporary})
	require.NoError(t, err)

	closed, err := f.svc.Close(context.Background(), id, dto.CloseSessionRequest{
		Mode:        CloseModePermanent,
		CountedCash: decPtr("700.00"),
	})
	require.NoError(t, err)
	assert.Equal(t, model.SessionPermanentlyClosed, closed.Status)
	assert.True(t, dec("700.00").Equal(*closed.ExpectedCash))
}

func TestPermanentlyClosedIsTerminal(t *testing.T) {
	f := newSessionFixture(t)
	resp := f.openSession(t, "500.00")
	id := f.sessionID(t, resp)

	_, err := f.svc.Close(context.Background(), id, dto.CloseSessionRequest{
		Mode: CloseModePermanent, CountedCash: decPtr("500.00"),
	})
	require.NoError(t, err)

	_, err = f.svc.Close(context.Background(), id, dto.CloseSessionRequest{
		Mode: CloseModePermanent, CountedCash: decPtr("999.00"),
	})
	assert.ErrorIs(t, err, ErrAlreadyClosed)

	_, err = f.svc.Close(context.Background(), id, dto.CloseSessionRequest{Mode: CloseModeTemporary})
	assert.ErrorIs(t, err, ErrInvalidStateTransition)

	_, err = f.svc.Reopen(context.Background(), id, dto.ReopenSessionRequest{Authorization: "supervisor-pin-ok"})
	assert.ErrorIs(t, err, ErrInvalidStateTransition)

	// Settlement fields never changed by the rejected attempts.
	current, err := f.svc.Get(context.Background(), id)
	require.NoError(t, err)
	assert.True(t, dec("500.00").Equal(*current.CountedCash))
}

// Both closers read status=open; only the first conditional write applies, the
// loser gets AlreadyClosed instead of overwriting the counted amount.
func TestClosePermanentLostRace(t *testing.T) {
	f := newSessionFixture(t)
	resp := f.openSession(t, "500.00")
	id := f.sessionID(t, resp)

	session, err := f.repo.FindByID(context.Background(), id)
	require.NoError(t, err)

	// A competing close lands between our read and our write.
	applied, err := f.repo.ClosePermanent(context.Background(), id, session.Status, sessionCloseFields("500.00"))
	require.NoError(t, err)
	require.True(t, applied)

	_, err = f.svc.Close(context.Background(), id, dto.CloseSessionRequest{
		Mode: CloseModePermanent, CountedCash: decPtr("480.00"),
		VarianceReason: strPtr("till raided for change"),
	})
	assert.ErrorIs(t, err, ErrAlreadyClosed)

	current, err := f.svc.Get(context.Background(), id)
	require.NoError(t, err)
	assert.True(t, dec("500.00").Equal(*current.CountedCash))
}

func TestRecordMovementOnlyWhileOpen(t *testing.T) {
	f := newSessionFixture(t)
	resp := f.openSession(t, "100.00")
	id := f.sessionID(t, resp)

	_, err := f.svc.Close(context.Background(), id, dto.CloseSessionRequest{Mode: CloseModeTemporary})
	require.NoError(t, err)

	err = f.svc.RecordMovement(context.Background(), id, dto.RecordMovementRequest{
		Amount: dec("50.00"), Reference: "sale-0009",
	})
	assert.ErrorIs(t, err, ErrInvalidStateTransition)
}

func TestRecordInterimSequencesAndSigns(t *testing.T) {
	f := newSessionFixture(t)
	resp := f.openSession(t, "500.00")
	id := f.sessionID(t, resp)

	drop, err := f.svc.RecordInterim(context.Background(), id, dto.RecordInterimRequest{
		Amount: dec("300.00"), ReasonType: model.InterimCashDrop, ReasonName: "safe drop",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, drop.Sequence)
	assert.True(t, dec("-300.00").Equal(drop.Amount), "drops are stored signed")

	add, err := f.svc.RecordInterim(context.Background(), id, dto.RecordInterimRequest{
		Amount: dec("150.00"), ReasonType: model.InterimCashAddition, ReasonName: "change float top-up",
	})
	require.NoError(t, err)
	assert.Equal(t, 2, add.Sequence)
	assert.True(t, dec("150.00").Equal(add.Amount))
}

func TestRecordInterimRejectedAfterClose(t *testing.T) {
	f := newSessionFixture(t)
	resp := f.openSession(t, "500.00")
	id := f.sessionID(t, resp)

	_, err := f.svc.Close(context.Background(), id, dto.CloseSessionRequest{Mode: CloseModeTemporary})
	require.NoError(t, err)

	_, err = f.svc.RecordInterim(context.Background(), id, dto.RecordInterimRequest{
		Amount: dec("100.00"), ReasonType: model.InterimCashDrop, ReasonName: "safe drop",
	})
	assert.ErrorIs(t, err, ErrInvalidStateTransition)
}

func TestGetUnknownSession(t *testing.T) {
	f := newSessionFixture(t)
	_, err := f.svc.Get(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func sessionCloseFields(counted string) repository.SessionClose {
	return repository.SessionClose{
		ClosedAt:     time.Now(),
		ExpectedCash: dec(counted),
		CountedCash:  dec(counted),
		Variance:     decimal.Zero,
	}
}
