package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"recall-watch/internal/recall_watch/model"
	"recall-watch/internal/recall_watch/notify"
)

type fakeFeed struct {
	recalls []model.Recall
	err     error
	called  bool
}

func (f *fakeFeed) FetchRecalls(ctx context.Context) ([]model.Recall, error) {
	f.called = true
	return f.recalls, f.err
}

type markCall struct {
	id       primitive.ObjectID
	recallID string
}

type fakeStore struct {
	products   []model.ScannedProduct
	findErr    error
	markErr    error
	findCalled bool
	marked     []markCall
	deleted    []primitive.ObjectID
	deleteRuns int
}

func (f *fakeStore) FindAll(ctx context.Context) ([]model.ScannedProduct, error) {
	f.findCalled = true
	return f.products, f.findErr
}

func (f *fakeStore) MarkRecalled(ctx context.Context, id primitive.ObjectID, recallID string, at time.Time) error {
	if f.markErr != nil {
		return f.markErr
	}
	f.marked = append(f.marked, markCall{id: id, recallID: recallID})
	return nil
}

func (f *fakeStore) DeleteByIDs(ctx context.Context, ids []primitive.ObjectID) (int64, error) {
	f.deleteRuns++
	f.deleted = ids
	return int64(len(ids)), nil
}

type sentPush struct {
	token string
	msg   notify.Message
}

type fakeNotifier struct {
	err  error
	sent []sentPush
}

func (f *fakeNotifier) SendToToken(ctx context.Context, token string, msg notify.Message) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentPush{token: token, msg: msg})
	return nil
}

func newWorker(st *fakeStore, fd *fakeFeed, nt *fakeNotifier) *Worker {
	return &Worker{
		Log:             zap.NewNop(),
		Store:           st,
		Feed:            fd,
		Notifier:        nt,
		RetentionMonths: 6,
	}
}

func TestRunSweepScenario(t *testing.T) {
	t.Parallel()

	recalled := model.ScannedProduct{
		ID:           primitive.NewObjectID(),
		Brand:        "danone",
		LotNumber:    "ab12",
		RecallStatus: model.StatusRecalled,
	}
	matching := model.ScannedProduct{
		ID:        primitive.NewObjectID(),
		Brand:     "danone yogurt",
		LotNumber: "cd34",
		FCMToken:  "tok-1",
	}
	unrelated := model.ScannedProduct{
		ID:        primitive.NewObjectID(),
		Brand:     "carrefour",
		LotNumber: "zz99",
	}

	st := &fakeStore{products: []model.ScannedProduct{recalled, matching, unrelated}}
	fd := &fakeFeed{recalls: []model.Recall{{
		ID:         "R1",
		Title:      "Yaourt nature",
		Brand:      "Danone",
		LotNumbers: []string{"AB12", "CD34, EF56"},
	}}}
	nt := &fakeNotifier{}

	res := newWorker(st, fd, nt).RunSweep(context.Background())

	assert.True(t, res.Success)
	assert.Equal(t, 1, res.RecallsChecked)
	assert.Equal(t, 3, res.ProductsScanned)
	assert.Equal(t, 1, res.ProductsUpdated)
	assert.Equal(t, 1, res.NotificationsSent)

	// 已召回的记录被跳过，即便它也能命中
	require.Len(t, st.marked, 1)
	assert.Equal(t, matching.ID, st.marked[0].id)
	assert.Equal(t, "R1", st.marked[0].recallID)

	require.Len(t, nt.sent, 1)
	assert.Equal(t, "tok-1", nt.sent[0].token)
	assert.True(t, nt.sent[0].msg.HighPriority)
	assert.Equal(t, "Yaourt nature", nt.sent[0].msg.Body)
	assert.Equal(t, map[string]string{
		"productId": matching.ID.Hex(),
		"recallId":  "R1",
		"brand":     "Danone",
		"lotNumber": "cd34",
	}, nt.sent[0].msg.Data)
}

func TestRunSweepFeedFailureTouchesNothing(t *testing.T) {
	t.Parallel()

	st := &fakeStore{}
	fd := &fakeFeed{err: errors.New("feed down")}
	nt := &fakeNotifier{}

	res := newWorker(st, fd, nt).RunSweep(context.Background())

	assert.False(t, res.Success)
	assert.NotEmpty(t, res.Error)
	assert.False(t, st.findCalled)
	assert.Empty(t, st.marked)
	assert.Empty(t, nt.sent)
}

func TestRunSweepFirstMatchInFeedOrderWins(t *testing.T) {
	t.Parallel()

	product := model.ScannedProduct{
		ID:        primitive.NewObjectID(),
		Brand:     "danone",
		LotNumber: "ab12",
	}
	st := &fakeStore{products: []model.ScannedProduct{product}}
	fd := &fakeFeed{recalls: []model.Recall{
		{ID: "R1", Brand: "Danone", LotNumbers: []string{"AB12"}},
		{ID: "R2", Brand: "Danone", LotNumbers: []string{"AB12"}},
	}}

	res := newWorker(st, fd, &fakeNotifier{}).RunSweep(context.Background())

	assert.Equal(t, 1, res.ProductsUpdated)
	require.Len(t, st.marked, 1)
	assert.Equal(t, "R1", st.marked[0].recallID)
}

func TestRunSweepNotificationFailureIsSwallowed(t *testing.T) {
	t.Parallel()

	product := model.ScannedProduct{
		ID:        primitive.NewObjectID(),
		Brand:     "danone",
		LotNumber: "ab12",
		FCMToken:  "tok-bad",
	}
	st := &fakeStore{products: []model.ScannedProduct{product}}
	fd := &fakeFeed{recalls: []model.Recall{{ID: "R1", Brand: "Danone", LotNumbers: []string{"AB12"}}}}
	nt := &fakeNotifier{err: errors.New("invalid token")}

	res := newWorker(st, fd, nt).RunSweep(context.Background())

	// 推送失败不影响状态更新，也不计入发送数
	assert.True(t, res.Success)
	assert.Equal(t, 1, res.ProductsUpdated)
	assert.Equal(t, 0, res.NotificationsSent)
	require.Len(t, st.marked, 1)
}

func TestRunSweepSkipsPushWithoutToken(t *testing.T) {
	t.Parallel()

	product := model.ScannedProduct{
		ID:        primitive.NewObjectID(),
		Brand:     "danone",
		LotNumber: "ab12",
	}
	st := &fakeStore{products: []model.ScannedProduct{product}}
	fd := &fakeFeed{recalls: []model.Recall{{ID: "R1", Brand: "Danone", LotNumbers: []string{"AB12"}}}}
	nt := &fakeNotifier{}

	res := newWorker(st, fd, nt).RunSweep(context.Background())

	assert.Equal(t, 1, res.ProductsUpdated)
	assert.Equal(t, 0, res.NotificationsSent)
	assert.Empty(t, nt.sent)
}

func TestRunSweepUpdateFailureReportedInResult(t *testing.T) {
	t.Parallel()

	product := model.ScannedProduct{
		ID:        primitive.NewObjectID(),
		Brand:     "danone",
		LotNumber: "ab12",
	}
	st := &fakeStore{
		products: []model.ScannedProduct{product},
		markErr:  errors.New("write conflict"),
	}
	fd := &fakeFeed{recalls: []model.Recall{{ID: "R1", Brand: "Danone", LotNumbers: []string{"AB12"}}}}

	res := newWorker(st, fd, &fakeNotifier{}).RunSweep(context.Background())

	assert.False(t, res.Success)
	assert.NotEmpty(t, res.Error)
	assert.Equal(t, 1, res.ProductsScanned)
	assert.Equal(t, 0, res.ProductsUpdated)
}

func scannedMonthsAgo(months int) time.Time {
	now := time.Now()
	return time.Date(now.Year(), now.Month()-time.Month(months), 15, 12, 0, 0, 0, time.UTC)
}

func TestPurgeOldScans(t *testing.T) {
	t.Parallel()

	seven := model.ScannedProduct{ID: primitive.NewObjectID(), ScannedAt: scannedMonthsAgo(7)}
	exactlySix := model.ScannedProduct{ID: primitive.NewObjectID(), ScannedAt: scannedMonthsAgo(6)}
	five := model.ScannedProduct{ID: primitive.NewObjectID(), ScannedAt: scannedMonthsAgo(5)}
	noTimestamp := model.ScannedProduct{ID: primitive.NewObjectID()}

	st := &fakeStore{products: []model.ScannedProduct{seven, exactlySix, five, noTimestamp}}
	w := newWorker(st, &fakeFeed{}, &fakeNotifier{})

	res, err := w.PurgeOldScans(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, res.Deleted)
	assert.Equal(t, 1, st.deleteRuns)
	assert.Equal(t, []primitive.ObjectID{seven.ID, exactlySix.ID}, st.deleted)
}

func TestPurgeOldScansNoBatchWhenNothingQualifies(t *testing.T) {
	t.Parallel()

	st := &fakeStore{products: []model.ScannedProduct{
		{ID: primitive.NewObjectID(), ScannedAt: scannedMonthsAgo(1)},
		{ID: primitive.NewObjectID()},
	}}
	w := newWorker(st, &fakeFeed{}, &fakeNotifier{})

	res, err := w.PurgeOldScans(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, res.Deleted)
	assert.Equal(t, 0, st.deleteRuns)
}

func TestMonthsBetweenIgnoresDayOfMonth(t *testing.T) {
	t.Parallel()

	tests := []struct {
		from, to time.Time
		want     int
	}{
		{
			from: time.Date(2026, time.January, 31, 0, 0, 0, 0, time.UTC),
			to:   time.Date(2026, time.July, 1, 0, 0, 0, 0, time.UTC),
			want: 6,
		},
		{
			from: time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC),
			to:   time.Date(2026, time.June, 30, 0, 0, 0, 0, time.UTC),
			want: 5,
		},
		{
			from: time.Date(2025, time.December, 10, 0, 0, 0, 0, time.UTC),
			to:   time.Date(2026, time.June, 9, 0, 0, 0, 0, time.UTC),
			want: 6,
		},
		{
			from: time.Date(2026, time.August, 1, 0, 0, 0, 0, time.UTC),
			to:   time.Date(2026, time.August, 31, 0, 0, 0, 0, time.UTC),
			want: 0,
		},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, monthsBetween(tt.from, tt.to))
	}
}
