package alerts

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/armory-backend/internal/notify"
	"github.com/angelmondragon/armory-backend/pkg/db"
	"github.com/angelmondragon/armory-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/armory-backend/pkg/errors"
	"github.com/angelmondragon/armory-backend/pkg/logger"
	"github.com/angelmondragon/armory-backend/pkg/metrics"
	"github.com/angelmondragon/armory-backend/pkg/outbox/payloads"
)

const defaultPageSize = 100

// AsyncDispatcher hands a notification off without waiting for, or seeing,
// the outcome.
type AsyncDispatcher interface {
	Dispatch(ctx context.Context, req notify.Direct)
}

type lotPager interface {
	Pages(pageSize int) db.PageFunc[models.AmmoLot]
}

type rulePager interface {
	Pages(pageSize int) db.PageFunc[models.ThresholdRule]
}

type personPager interface {
	Pages(pageSize int) db.PageFunc[models.Person]
}

type Config struct {
	PageSize int
}

// Summary describes one evaluation pass.
type Summary struct {
	Triggered  bool
	Rules      int
	Breaches   int
	Dispatched int
	Skipped    int
}

// Evaluator recomputes per-caliber stock on every triggering batch and alerts
// each contact whose enabled rule is breached. It keeps no state between runs,
// so a breach that persists alerts again on the next batch.
type Evaluator struct {
	cfg        Config
	lots       lotPager
	rules      rulePager
	persons    personPager
	dispatcher AsyncDispatcher
	metrics    *metrics.AlertMetrics
	logg       *logger.Logger
}

func NewEvaluator(cfg Config, lots lotPager, rules rulePager, persons personPager, dispatcher AsyncDispatcher, m *metrics.AlertMetrics, logg *logger.Logger) (*Evaluator, error) {
	if lots == nil || rules == nil || persons == nil {
		return nil, fmt.Errorf("ammo, threshold and person readers are required")
	}
	if dispatcher == nil {
		return nil, fmt.Errorf("dispatcher required")
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = defaultPageSize
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &Evaluator{
		cfg:        cfg,
		lots:       lots,
		rules:      rules,
		persons:    persons,
		dispatcher: dispatcher,
		metrics:    m,
		logg:       logg,
	}, nil
}

// HandleBatch evaluates thresholds when the batch holds at least one MODIFY.
// Inserts and removals on their own are ignored.
func (e *Evaluator) HandleBatch(ctx context.Context, batch payloads.ChangeBatch) (Summary, error) {
	if !batch.HasModify() {
		e.metrics.IncEvaluation(metrics.OutcomeIgnored)
		e.logg.Debug(e.logg.WithField(ctx, "records", len(batch.Records)), "change batch has no modifications")
		return Summary{}, nil
	}
	return e.Evaluate(ctx)
}

// Evaluate runs one full pass. Any read failure aborts the pass before a
// single dispatch.
func (e *Evaluator) Evaluate(ctx context.Context) (Summary, error) {
	started := time.Now()
	defer func() { e.metrics.ObserveDuration(time.Since(started)) }()

	summary := Summary{Triggered: true}

	lots, err := db.ReadAll(ctx, e.lots.Pages(e.cfg.PageSize))
	if err != nil {
		return summary, e.readFailure(err, "read ammo lots")
	}
	totals := Aggregate(lots)

	allRules, err := db.ReadAll(ctx, e.rules.Pages(e.cfg.PageSize))
	if err != nil {
		return summary, e.readFailure(err, "read threshold rules")
	}
	rules := enabledRules(allRules)
	summary.Rules = len(rules)
	if len(rules) == 0 {
		e.metrics.IncEvaluation(metrics.OutcomeNoRules)
		e.logg.Info(ctx, "no enabled threshold rules")
		return summary, nil
	}

	people, err := db.ReadAll(ctx, e.persons.Pages(e.cfg.PageSize))
	if err != nil {
		return summary, e.readFailure(err, "read persons")
	}
	byID := make(map[uuid.UUID]models.Person, len(people))
	for _, person := range people {
		byID[person.ID] = person
	}

	for _, rule := range rules {
		available := totals[rule.Caliber]
		if !rule.Breached(available) {
			continue
		}
		summary.Breaches++
		e.metrics.IncBreach(rule.Caliber)

		logCtx := e.logg.WithFields(ctx, map[string]any{
			"rule_id":   rule.ID.String(),
			"person_id": rule.PersonID.String(),
			"caliber":   rule.Caliber,
			"available": available,
			"minimum":   rule.MinRounds,
		})

		person, ok := byID[rule.PersonID]
		if !ok {
			e.skip(&summary, metrics.SkipMissingPerson)
			e.logg.Info(logCtx, "threshold breached but person not found")
			continue
		}
		if !person.IsActive() {
			e.skip(&summary, metrics.SkipInactivePerson)
			e.logg.Info(logCtx, "threshold breached but person inactive")
			continue
		}
		channel := person.Channel()
		recipient := person.AddressFor(channel)
		if recipient == "" {
			e.skip(&summary, metrics.SkipEmptyAddress)
			e.logg.Warn(e.logg.WithField(logCtx, "channel", channel), "threshold breached but person has no address")
			continue
		}

		e.dispatcher.Dispatch(ctx, notify.Direct{
			Channel:   channel,
			Recipient: recipient,
			Message:   FormatAlert(rule.Caliber, available, rule.MinRounds),
		})
		summary.Dispatched++
		e.metrics.IncDispatch(string(channel))
		e.logg.Info(e.logg.WithField(logCtx, "channel", channel), "threshold alert dispatched")
	}

	e.metrics.IncEvaluation(metrics.OutcomeEvaluated)
	e.logg.Info(e.logg.WithFields(ctx, map[string]any{
		"rules":      summary.Rules,
		"breaches":   summary.Breaches,
		"dispatched": summary.Dispatched,
		"skipped":    summary.Skipped,
	}), "threshold evaluation complete")
	return summary, nil
}

func (e *Evaluator) skip(summary *Summary, reason string) {
	summary.Skipped++
	e.metrics.IncSkip(reason)
}

func (e *Evaluator) readFailure(err error, action string) error {
	e.metrics.IncEvaluation(metrics.OutcomeFailed)
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, action)
}

func enabledRules(rules []models.ThresholdRule) []models.ThresholdRule {
	enabled := make([]models.ThresholdRule, 0, len(rules))
	for _, rule := range rules {
		if rule.IsEnabled() {
			enabled = append(enabled, rule)
		}
	}
	return enabled
}
