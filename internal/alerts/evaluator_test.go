package alerts

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/armory-backend/internal/notify"
	"github.com/angelmondragon/armory-backend/pkg/db"
	"github.com/angelmondragon/armory-backend/pkg/db/models"
	"github.com/angelmondragon/armory-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/armory-backend/pkg/errors"
	"github.com/angelmondragon/armory-backend/pkg/metrics"
	"github.com/angelmondragon/armory-backend/pkg/outbox/payloads"
)

// pager serves fixed pages, using the page index as continuation token.
type pager[T any] struct {
	pages  [][]T
	failAt int
	err    error
	calls  int
}

func pagesOf[T any](pages ...[]T) *pager[T] {
	return &pager[T]{pages: pages, failAt: -1}
}

func (p *pager[T]) Pages(int) db.PageFunc[T] {
	return func(_ context.Context, token string) (db.Page[T], error) {
		p.calls++
		idx := 0
		if token != "" {
			idx, _ = strconv.Atoi(token)
		}
		if p.err != nil && idx == p.failAt {
			return db.Page[T]{}, p.err
		}
		if idx >= len(p.pages) {
			return db.Page[T]{}, nil
		}
		page := db.Page[T]{Items: p.pages[idx]}
		if idx+1 < len(p.pages) {
			page.NextToken = strconv.Itoa(idx + 1)
		}
		return page, nil
	}
}

type recordingDispatcher struct {
	mu    sync.Mutex
	calls []notify.Direct
}

func (r *recordingDispatcher) Dispatch(_ context.Context, req notify.Direct) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, req)
}

var modifyBatch = payloads.ChangeBatch{Records: []payloads.ChangeRecord{{EventName: enums.ChangeModify}}}

type fixture struct {
	lots       *pager[models.AmmoLot]
	rules      *pager[models.ThresholdRule]
	persons    *pager[models.Person]
	dispatcher *recordingDispatcher
	evaluator  *Evaluator
}

func newFixture(t *testing.T, lots []models.AmmoLot, rules []models.ThresholdRule, persons []models.Person) *fixture {
	t.Helper()
	f := &fixture{
		lots:       pagesOf(lots),
		rules:      pagesOf(rules),
		persons:    pagesOf(persons),
		dispatcher: &recordingDispatcher{},
	}
	var err error
	f.evaluator, err = NewEvaluator(Config{}, f.lots, f.rules, f.persons, f.dispatcher, nil, nil)
	require.NoError(t, err)
	return f
}

func boolPtr(v bool) *bool { return &v }

var p1 = uuid.MustParse("00000000-0000-0000-0000-000000000001")

func scenario(enabled *bool) ([]models.AmmoLot, []models.ThresholdRule, []models.Person) {
	lots := []models.AmmoLot{lot("9mm", 120), lot("9mm", 80)}
	rules := []models.ThresholdRule{{ID: uuid.New(), Caliber: "9mm", MinRounds: 300, PersonID: p1, Enabled: enabled}}
	sms := enums.ChannelSMS
	persons := []models.Person{{ID: p1, Name: "Dana", Phone: "+15550001111", PreferredChannel: &sms, Active: boolPtr(true)}}
	return lots, rules, persons
}

func newScenarioFixture(t *testing.T, enabled *bool) *fixture {
	t.Helper()
	lots, rules, persons := scenario(enabled)
	return newFixture(t, lots, rules, persons)
}

func TestEndToEndBreachDispatchesOnce(t *testing.T) {
	f := newScenarioFixture(t, boolPtr(true))

	summary, err := f.evaluator.HandleBatch(context.Background(), modifyBatch)
	require.NoError(t, err)
	assert.Equal(t, Summary{Triggered: true, Rules: 1, Breaches: 1, Dispatched: 1}, summary)

	require.Len(t, f.dispatcher.calls, 1)
	call := f.dispatcher.calls[0]
	assert.Equal(t, enums.ChannelSMS, call.Channel)
	assert.Equal(t, "+15550001111", call.Recipient)
	assert.Contains(t, call.Message, "9mm")
	assert.Contains(t, call.Message, "200")
	assert.Contains(t, call.Message, "300")
}

func TestDisabledRuleNeverDispatches(t *testing.T) {
	f := newScenarioFixture(t, boolPtr(false))

	summary, err := f.evaluator.HandleBatch(context.Background(), modifyBatch)
	require.NoError(t, err)
	assert.Empty(t, f.dispatcher.calls)
	assert.Zero(t, summary.Rules)
}

func TestMissingEnabledFlagMeansEnabled(t *testing.T) {
	f := newScenarioFixture(t, nil)

	_, err := f.evaluator.HandleBatch(context.Background(), modifyBatch)
	require.NoError(t, err)
	assert.Len(t, f.dispatcher.calls, 1)
}

func TestNoRulesShortCircuitsPersonRead(t *testing.T) {
	lots, _, persons := scenario(nil)
	f := newFixture(t, lots, nil, persons)

	summary, err := f.evaluator.HandleBatch(context.Background(), modifyBatch)
	require.NoError(t, err)
	assert.True(t, summary.Triggered)
	assert.Zero(t, f.persons.calls)
	assert.Empty(t, f.dispatcher.calls)
}

func TestBatchWithoutModifyIsIgnored(t *testing.T) {
	f := newScenarioFixture(t, nil)

	batch := payloads.ChangeBatch{Records: []payloads.ChangeRecord{
		{EventName: enums.ChangeInsert},
		{EventName: enums.ChangeRemove},
	}}
	summary, err := f.evaluator.HandleBatch(context.Background(), batch)
	require.NoError(t, err)
	assert.False(t, summary.Triggered)
	assert.Zero(t, f.lots.calls)
	assert.Empty(t, f.dispatcher.calls)

	_, err = f.evaluator.HandleBatch(context.Background(), payloads.ChangeBatch{})
	require.NoError(t, err)
	assert.Zero(t, f.lots.calls)
}

func TestMixedBatchTriggersEvaluation(t *testing.T) {
	f := newScenarioFixture(t, nil)

	batch := payloads.ChangeBatch{Records: []payloads.ChangeRecord{
		{EventName: enums.ChangeInsert},
		{EventName: enums.ChangeModify},
	}}
	_, err := f.evaluator.HandleBatch(context.Background(), batch)
	require.NoError(t, err)
	assert.Len(t, f.dispatcher.calls, 1)
}

func TestBreachIsStrict(t *testing.T) {
	for _, tc := range []struct {
		minimum int
		fires   bool
	}{
		{minimum: 499, fires: false},
		{minimum: 500, fires: false},
		{minimum: 501, fires: true},
	} {
		t.Run(strconv.Itoa(tc.minimum), func(t *testing.T) {
			_, _, persons := scenario(nil)
			rules := []models.ThresholdRule{{ID: uuid.New(), Caliber: "9mm", MinRounds: tc.minimum, PersonID: p1}}
			f := newFixture(t, []models.AmmoLot{lot("9mm", 500)}, rules, persons)

			_, err := f.evaluator.Evaluate(context.Background())
			require.NoError(t, err)
			if tc.fires {
				assert.Len(t, f.dispatcher.calls, 1)
			} else {
				assert.Empty(t, f.dispatcher.calls)
			}
		})
	}
}

func TestUnseenCaliberCountsAsZero(t *testing.T) {
	_, _, persons := scenario(nil)
	rules := []models.ThresholdRule{{ID: uuid.New(), Caliber: ".45 ACP", MinRounds: 1, PersonID: p1}}
	f := newFixture(t, []models.AmmoLot{lot("9mm", 500)}, rules, persons)

	_, err := f.evaluator.Evaluate(context.Background())
	require.NoError(t, err)
	require.Len(t, f.dispatcher.calls, 1)
	assert.Contains(t, f.dispatcher.calls[0].Message, ".45 ACP is down to 0 rounds")
}

func TestPersonSkips(t *testing.T) {
	missing := uuid.New()
	inactive := uuid.New()
	noAddress := uuid.New()
	emailOnly := uuid.New()
	email := enums.ChannelEmail
	whatsapp := enums.ChannelWhatsApp
	reachable := uuid.New()

	rule := func(person uuid.UUID) models.ThresholdRule {
		return models.ThresholdRule{ID: uuid.New(), Caliber: "9mm", MinRounds: 1000, PersonID: person}
	}
	persons := []models.Person{
		{ID: inactive, Name: "Inactive", Phone: "+1", Active: boolPtr(false)},
		{ID: noAddress, Name: "NoPhone", Email: "np@example.com"},
		{ID: emailOnly, Name: "Emailer", Phone: "+1", Email: "ops@example.com", PreferredChannel: &email},
		{ID: reachable, Name: "Whats", Phone: "+15550002222", PreferredChannel: &whatsapp},
	}
	reg := prometheus.NewRegistry()
	m := metrics.NewAlertMetrics(reg)
	dispatcher := &recordingDispatcher{}
	evaluator, err := NewEvaluator(Config{PageSize: 10},
		pagesOf([]models.AmmoLot{lot("9mm", 10)}),
		pagesOf([]models.ThresholdRule{rule(missing), rule(inactive), rule(noAddress), rule(emailOnly), rule(reachable)}),
		pagesOf(persons),
		dispatcher, m, nil)
	require.NoError(t, err)

	summary, err := evaluator.Evaluate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, summary.Breaches)
	assert.Equal(t, 3, summary.Skipped)
	assert.Equal(t, 2, summary.Dispatched)

	require.Len(t, dispatcher.calls, 2)
	byChannel := map[enums.Channel]string{}
	for _, call := range dispatcher.calls {
		byChannel[call.Channel] = call.Recipient
	}
	assert.Equal(t, map[enums.Channel]string{
		enums.ChannelEmail:    "ops@example.com",
		enums.ChannelWhatsApp: "+15550002222",
	}, byChannel)

	skipSeries, err := testutil.GatherAndCount(reg, "armory_threshold_skips_total")
	require.NoError(t, err)
	assert.Equal(t, 3, skipSeries, "one series per skip reason")
}

func TestRepeatBreachAlertsEveryBatch(t *testing.T) {
	f := newScenarioFixture(t, nil)

	for i := 0; i < 3; i++ {
		_, err := f.evaluator.HandleBatch(context.Background(), modifyBatch)
		require.NoError(t, err)
	}
	assert.Len(t, f.dispatcher.calls, 3)
}

func TestRulesForSamePersonEachDispatch(t *testing.T) {
	_, _, persons := scenario(nil)
	rules := []models.ThresholdRule{
		{ID: uuid.New(), Caliber: "9mm", MinRounds: 300, PersonID: p1},
		{ID: uuid.New(), Caliber: ".308", MinRounds: 20, PersonID: p1},
	}
	f := newFixture(t, []models.AmmoLot{lot("9mm", 10), lot(".308", 10)}, rules, persons)

	summary, err := f.evaluator.Evaluate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Dispatched)
}

func TestReadAllFollowsPages(t *testing.T) {
	_, rules, persons := scenario(nil)
	f := newFixture(t, nil, rules, nil)
	f.lots.pages = [][]models.AmmoLot{{lot("9mm", 100)}, {lot("9mm", 100)}, {lot("9mm", 50)}}
	f.persons.pages = [][]models.Person{nil, persons}

	_, err := f.evaluator.Evaluate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, f.lots.calls)
	assert.Equal(t, 2, f.persons.calls)
	require.Len(t, f.dispatcher.calls, 1)
	assert.Contains(t, f.dispatcher.calls[0].Message, "250")
}

func TestReadFailureAbortsWithoutDispatch(t *testing.T) {
	boom := errors.New("scan failed")
	for name, breakFixture := range map[string]func(f *fixture){
		"ammo second page": func(f *fixture) {
			f.lots.pages = [][]models.AmmoLot{{lot("9mm", 1)}, {lot("9mm", 1)}}
			f.lots.err, f.lots.failAt = boom, 1
		},
		"rules":   func(f *fixture) { f.rules.err, f.rules.failAt = boom, 0 },
		"persons": func(f *fixture) { f.persons.err, f.persons.failAt = boom, 0 },
	} {
		t.Run(name, func(t *testing.T) {
			f := newScenarioFixture(t, nil)
			breakFixture(f)

			_, err := f.evaluator.HandleBatch(context.Background(), modifyBatch)
			require.Error(t, err)
			assert.ErrorIs(t, err, boom)
			assert.Equal(t, pkgerrors.CodeDependency, pkgerrors.As(err).Code())
			assert.Empty(t, f.dispatcher.calls)
		})
	}
}

type parkedSender struct {
	release chan struct{}
	done    chan notify.Result
}

func (p *parkedSender) Send(context.Context, notify.Request) notify.Result {
	<-p.release
	result := notify.Result{OK: true, ID: "SM1"}
	p.done <- result
	return result
}

func TestEvaluatorDoesNotWaitForDelivery(t *testing.T) {
	sender := &parkedSender{release: make(chan struct{}), done: make(chan notify.Result, 1)}
	inline, err := notify.NewInlineDispatcher(sender, time.Minute, nil)
	require.NoError(t, err)

	lots, rules, persons := scenario(nil)
	evaluator, err := NewEvaluator(Config{}, pagesOf(lots), pagesOf(rules), pagesOf(persons), inline, nil, nil)
	require.NoError(t, err)

	summary, err := evaluator.HandleBatch(context.Background(), modifyBatch)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Dispatched)
	assert.Empty(t, sender.done, "evaluation returned while the send is still parked")

	close(sender.release)
	inline.Wait()
	assert.Len(t, sender.done, 1)
}

func TestEvaluationMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewAlertMetrics(reg)
	lots, rules, persons := scenario(nil)
	evaluator, err := NewEvaluator(Config{}, pagesOf(lots), pagesOf(rules), pagesOf(persons), &recordingDispatcher{}, m, nil)
	require.NoError(t, err)

	_, err = evaluator.HandleBatch(context.Background(), payloads.ChangeBatch{})
	require.NoError(t, err)
	_, err = evaluator.HandleBatch(context.Background(), modifyBatch)
	require.NoError(t, err)

	count, err := testutil.GatherAndCount(reg, "armory_threshold_evaluations_total", "armory_alert_dispatches_total", "armory_threshold_breaches_total")
	require.NoError(t, err)
	assert.Equal(t, 4, count, "ignored + evaluated outcomes, one channel, one caliber")
}

func TestNewEvaluatorValidates(t *testing.T) {
	_, err := NewEvaluator(Config{}, nil, pagesOf[models.ThresholdRule](), pagesOf[models.Person](), &recordingDispatcher{}, nil, nil)
	assert.Error(t, err)
	_, err = NewEvaluator(Config{}, pagesOf[models.AmmoLot](), pagesOf[models.ThresholdRule](), pagesOf[models.Person](), nil, nil, nil)
	assert.Error(t, err)

	e, err := NewEvaluator(Config{}, pagesOf[models.AmmoLot](), pagesOf[models.ThresholdRule](), pagesOf[models.Person](), &recordingDispatcher{}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, defaultPageSize, e.cfg.PageSize)
}
