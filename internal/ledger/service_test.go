package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go-pos-backoffice/internal/apperrors"
	"go-pos-backoffice/internal/events"
	"go-pos-backoffice/internal/models"
	"go-pos-backoffice/internal/notify"
	"go-pos-backoffice/internal/store"
	"go-pos-backoffice/internal/store/memstore"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, evts ...events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evts...)
	return nil
}

type fakeNotifier struct {
	sendDebtReminderFn func(ctx context.Context, email string, r notify.DebtReminder) error
}

func (f *fakeNotifier) SendOrderConfirmation(context.Context, string, string, notify.OrderDetails) error {
	return nil
}

func (f *fakeNotifier) SendDebtReminder(ctx context.Context, email string, r notify.DebtReminder) error {
	if f.sendDebtReminderFn != nil {
		return f.sendDebtReminderFn(ctx, email, r)
	}
	return nil
}

type fixture struct {
	svc       *Service
	store     *memstore.Store
	publisher *recordingPublisher
	notifier  *fakeNotifier
	now       time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:     memstore.New(),
		publisher: &recordingPublisher{},
		notifier:  &fakeNotifier{},
		now:       time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC),
	}
	f.svc = NewService(f.store, f.notifier, f.publisher, nil, zap.NewNop(), 0)
	f.svc.now = func() time.Time { return f.now }
	return f
}

// settle stores a sale report and opens its debt as checkout would.
func (f *fixture) settle(t *testing.T, userID string, total, paid int64, at time.Time) (*models.Report, *models.Debt) {
	t.Helper()
	ctx := context.Background()
	amount := decimal.NewFromInt(paid)
	terms := models.SettlePayment(decimal.NewFromInt(total), &amount, nil, "")
	report := models.NewSaleReport(userID, "cash", models.CustomerInfo{}, terms, at)

	var debt *models.Debt
	require.NoError(t, f.store.Transact(ctx, func(tx store.Store) error {
		if err := tx.Reports().Create(ctx, report); err != nil {
			return err
		}
		var err error
		debt, err = f.svc.Open(ctx, tx, userID, report.ID, terms, at)
		return err
	}))
	return report, debt
}

func TestOpen_DueInThirtyDays(t *testing.T) {
	f := newFixture(t)
	_, d := f.settle(t, "u1", 100, 40, f.now)

	assert.Equal(t, f.now.Add(30*24*time.Hour), d.DueDate)
	assert.Equal(t, models.DebtCurrent, d.Status)
	assert.True(t, d.RemainingAmount.Equal(decimal.NewFromInt(60)))
}

func TestRecordPayment_SettlesDebtAndReport(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	report, d := f.settle(t, "u1", 100, 40, f.now)

	paid, err := f.svc.RecordPayment(ctx, Payment{DebtID: d.ID, OwnerID: "u1", Amount: decimal.NewFromInt(60), Method: "cash"})
	require.NoError(t, err)
	assert.Equal(t, models.DebtPaid, paid.Status)
	assert.True(t, paid.RemainingAmount.IsZero())
	assert.True(t, paid.AmountPaid.Add(paid.RemainingAmount).Equal(paid.OriginalAmount))
	assert.Len(t, paid.Payments, 2)

	stored, err := f.store.Reports().FindByID(ctx, report.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPaid, stored.PaymentStatus)
	assert.True(t, stored.AmountPaid.Equal(decimal.NewFromInt(100)))
	assert.True(t, stored.RemainingBalance.IsZero())

	require.Len(t, f.publisher.events, 1)
	assert.Equal(t, events.DebtPaymentRecorded, f.publisher.events[0].Type)
}

func TestRecordPayment_PartialKeepsReportPartial(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	report, d := f.settle(t, "u1", 100, 0, f.now)

	_, err := f.svc.RecordPayment(ctx, Payment{DebtID: d.ID, Amount: decimal.NewFromInt(25)})
	require.NoError(t, err)

	stored, err := f.store.Reports().FindByID(ctx, report.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPartial, stored.PaymentStatus)
	assert.True(t, stored.RemainingBalance.Equal(decimal.NewFromInt(75)))
}

func TestRecordPayment_Errors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, d := f.settle(t, "u1", 100, 40, f.now)

	tests := []struct {
		name    string
		payment Payment
		code    string
	}{
		{name: "zero amount", payment: Payment{DebtID: d.ID, Amount: decimal.Zero}, code: apperrors.CodeInvalidAmount},
		{name: "negative amount", payment: Payment{DebtID: d.ID, Amount: decimal.NewFromInt(-5)}, code: apperrors.CodeInvalidAmount},
		{name: "overpayment", payment: Payment{DebtID: d.ID, Amount: decimal.NewFromInt(61)}, code: apperrors.CodeOverPayment},
		{name: "unknown debt", payment: Payment{DebtID: "nope", Amount: decimal.NewFromInt(1)}, code: apperrors.CodeNotFound},
		{name: "other user's debt", payment: Payment{DebtID: d.ID, OwnerID: "u2", Amount: decimal.NewFromInt(1)}, code: apperrors.CodeNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.RecordPayment(ctx, tt.payment)
			assert.True(t, apperrors.HasCode(err, tt.code), "got %v", err)
		})
	}

	stored, err := f.store.Debts().FindByID(ctx, d.ID)
	require.NoError(t, err)
	assert.True(t, stored.RemainingAmount.Equal(decimal.NewFromInt(60)))
	assert.Len(t, stored.Payments, 1)

	_, err = f.svc.RecordPayment(ctx, Payment{DebtID: d.ID, Amount: decimal.NewFromInt(60)})
	require.NoError(t, err)
	_, err = f.svc.RecordPayment(ctx, Payment{DebtID: d.ID, Amount: decimal.NewFromInt(1)})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeDebtAlreadyPaid))
}

func TestRecordPayment_MissingReportIsSkipped(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, d := f.settle(t, "u1", 100, 40, f.now)
	_, err := f.store.Reports().DeleteAll(ctx)
	require.NoError(t, err)

	paid, err := f.svc.RecordPayment(ctx, Payment{DebtID: d.ID, Amount: decimal.NewFromInt(10)})
	require.NoError(t, err)
	assert.True(t, paid.RemainingAmount.Equal(decimal.NewFromInt(50)))
}

func TestRecomputeOverdueStatuses(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, late := f.settle(t, "u1", 100, 40, f.now.AddDate(0, 0, -31))
	_, onTime := f.settle(t, "u1", 100, 40, f.now)
	_, settled := f.settle(t, "u1", 100, 40, f.now.AddDate(0, 0, -31))
	_, err := f.svc.RecordPayment(ctx, Payment{DebtID: settled.ID, Amount: decimal.NewFromInt(60)})
	require.NoError(t, err)

	n, err := f.svc.RecomputeOverdueStatuses(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := f.store.Debts().FindByID(ctx, late.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DebtOverdue, got.Status)

	got, err = f.store.Debts().FindByID(ctx, onTime.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DebtCurrent, got.Status)

	got, err = f.store.Debts().FindByID(ctx, settled.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DebtPaid, got.Status)

	n, err = f.svc.RecomputeOverdueStatuses(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestPaymentAfterSweepStillSettles(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, d := f.settle(t, "u1", 100, 40, f.now.AddDate(0, 0, -31))

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, _ = f.svc.RecomputeOverdueStatuses(ctx)
	}()
	var payErr error
	go func() {
		defer wg.Done()
		_, payErr = f.svc.RecordPayment(ctx, Payment{DebtID: d.ID, Amount: decimal.NewFromInt(60)})
	}()
	wg.Wait()
	require.NoError(t, payErr)

	got, err := f.store.Debts().FindByID(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DebtPaid, got.Status)
	assert.True(t, got.RemainingAmount.IsZero())
}

func TestRepairStatuses(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, d := f.settle(t, "u1", 100, 40, f.now.AddDate(0, 0, -31))
	_, err := f.svc.RecomputeOverdueStatuses(ctx)
	require.NoError(t, err)

	extended := f.now.AddDate(0, 0, 10)
	stored, err := f.store.Debts().FindByID(ctx, d.ID)
	require.NoError(t, err)
	stored.DueDate = extended
	require.NoError(t, f.store.Debts().Update(ctx, stored))

	updated, skipped, err := f.svc.RepairStatuses(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, updated)
	assert.Zero(t, skipped)

	got, err := f.store.Debts().FindByID(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DebtCurrent, got.Status)
}

func TestStatistics(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.settle(t, "u1", 100, 40, f.now)                    // 60 current
	f.settle(t, "u2", 100, 70, f.now.AddDate(0, 0, -45)) // 30 past due, not yet swept
	_, paid := f.settle(t, "u1", 100, 90, f.now)
	_, err := f.svc.RecordPayment(ctx, Payment{DebtID: paid.ID, Amount: decimal.NewFromInt(10)})
	require.NoError(t, err)

	stats, err := f.svc.Statistics(ctx)
	require.NoError(t, err)
	assert.True(t, stats.TotalDebt.Equal(decimal.NewFromInt(90)))
	assert.Equal(t, 2, stats.ActiveDebtCount)
	assert.True(t, stats.OverdueAmount.Equal(decimal.NewFromInt(30)))
	assert.Equal(t, 1, stats.OverdueCount)
	assert.Equal(t, "33.33", stats.OverduePercentage.StringFixed(2))
	assert.Equal(t, StatusDistribution{Current: 1, Overdue: 1}, stats.StatusDistribution)
}

func TestOverdueReport_AgingBuckets(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	// due = opened + 30 days, so opened 40 days ago is 10 days overdue
	for _, daysAgo := range []int{40, 75, 100, 200} {
		f.settle(t, "u1", 100, 50, f.now.AddDate(0, 0, -daysAgo))
	}
	f.settle(t, "u1", 100, 50, f.now)

	report, err := f.svc.OverdueReport(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, report.Count)
	assert.True(t, report.TotalOverdueAmount.Equal(decimal.NewFromInt(200)))
	assert.Equal(t, 1, report.Groups[Bucket1To30].Count)
	assert.Equal(t, 1, report.Groups[Bucket31To60].Count)
	assert.Equal(t, 1, report.Groups[Bucket61To90].Count)
	assert.Equal(t, 1, report.Groups[BucketOver90].Count)
}

func TestUpdateDetails_RecomputesStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, d := f.settle(t, "u1", 100, 40, f.now)

	past := f.now.AddDate(0, 0, -1)
	notes := "called customer"
	got, err := f.svc.UpdateDetails(ctx, d.ID, DetailsUpdate{DueDate: &past, Notes: &notes})
	require.NoError(t, err)
	assert.Equal(t, models.DebtOverdue, got.Status)
	assert.Equal(t, notes, got.Notes)
}

func TestSendReminder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.Users().Create(ctx, &models.User{ID: "u1", Username: "ada", Email: "ada@example.com"}))
	_, d := f.settle(t, "u1", 100, 40, f.now)

	var got notify.DebtReminder
	f.notifier.sendDebtReminderFn = func(_ context.Context, email string, r notify.DebtReminder) error {
		assert.Equal(t, "ada@example.com", email)
		got = r
		return nil
	}
	require.NoError(t, f.svc.SendReminder(ctx, d.ID))
	assert.Equal(t, "ada", got.Username)
	assert.True(t, got.Amount.Equal(decimal.NewFromInt(60)))

	f.notifier.sendDebtReminderFn = func(context.Context, string, notify.DebtReminder) error {
		return errors.New("smtp down")
	}
	err := f.svc.SendReminder(ctx, d.ID)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeDependencyFailure))
}

func TestRecordPayment_KeepsPostedExpenditures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	report, d := f.settle(t, "u1", 100, 40, f.now)

	posted, err := f.store.Reports().FindByID(ctx, report.ID)
	require.NoError(t, err)
	e := models.NewExpenditure(decimal.NewFromInt(15), "cleaning", "Sam", "e1", models.CategorySupplies, "", f.now)
	posted.PostExpenditure(*e, f.now)
	require.NoError(t, f.store.Reports().Save(ctx, posted))

	_, err = f.svc.RecordPayment(ctx, Payment{DebtID: d.ID, Amount: decimal.NewFromInt(60)})
	require.NoError(t, err)

	stored, err := f.store.Reports().FindByID(ctx, report.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPaid, stored.PaymentStatus)
	assert.True(t, stored.TotalExpenditures.Equal(decimal.NewFromInt(15)))
	assert.True(t, stored.NetProfit.Equal(posted.NetProfit))
	assert.Len(t, stored.Expenditures, 1)
}
