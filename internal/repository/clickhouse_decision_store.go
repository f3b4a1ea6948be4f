package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"SigFuse/internal/domain/models"
	domrepo "SigFuse/internal/domain/repository"
	pkgch "SigFuse/pkg/clickhouse"
	applogger "SigFuse/pkg/logger"
)

const (
	decisionsTable = "sigfuse.decisions"
	votesTable     = "sigfuse.decision_signals"
	outcomesTable  = "sigfuse.outcomes"
)

var schemaStatements = []string{
	`CREATE DATABASE IF NOT EXISTS sigfuse`,
	`CREATE TABLE IF NOT EXISTS sigfuse.decisions (
        prediction_id String,
        strategy_id String,
        instrument String,
        ts DateTime64(3),
        action String,
        confidence Float64,
        expected_move Float64,
        signals_agreeing Int32,
        total_signals Int32,
        trade_worthy UInt8,
        rationale String,
        context_adjustments String,
        thresholds String,
        signals String
    ) ENGINE = MergeTree() ORDER BY (instrument, ts, prediction_id)`,
	`CREATE TABLE IF NOT EXISTS sigfuse.decision_signals (
        prediction_id String,
        signal_name String,
        direction String,
        confidence Float64,
        predicted_move Float64,
        weight Float64,
        ts DateTime64(3)
    ) ENGINE = MergeTree() ORDER BY (signal_name, ts, prediction_id)`,
	`CREATE TABLE IF NOT EXISTS sigfuse.outcomes (
        prediction_id String,
        instrument String,
        horizon String,
        realized_move Float64,
        recorded_at DateTime64(3)
    ) ENGINE = MergeTree() ORDER BY (prediction_id, horizon)`,
}

// CHDecisionStore implements DecisionStore backed by ClickHouse. Decisions
// and outcomes are append-only and independently keyed by prediction id, so
// concurrent bucket writes need no coordination.
type CHDecisionStore struct {
	client *pkgch.Client
	db     *sql.DB
	l      *applogger.Logger
}

func NewCHDecisionStore(ch *pkgch.Client) *CHDecisionStore {
	return &CHDecisionStore{client: ch, db: ch.DB()}
}

// SetLogger injects a structured logger.
func (s *CHDecisionStore) SetLogger(l *applogger.Logger) { s.l = l }

func (s *CHDecisionStore) Init(ctx context.Context) error {
	return s.client.InitSchema(ctx, schemaStatements)
}

func (s *CHDecisionStore) SaveDecision(ctx context.Context, d *models.CombinedDecision) error {
	signals, err := json.Marshal(d.IndividualSignals)
	if err != nil {
		return fmt.Errorf("marshal signals: %w", err)
	}
	adjustments, err := json.Marshal(d.ContextAdjustments)
	if err != nil {
		return fmt.Errorf("marshal adjustments: %w", err)
	}
	thresholds, err := json.Marshal(d.Thresholds)
	if err != nil {
		return fmt.Errorf("marshal thresholds: %w", err)
	}

	q := fmt.Sprintf(`INSERT INTO %s
        (prediction_id, strategy_id, instrument, ts, action, confidence, expected_move,
         signals_agreeing, total_signals, trade_worthy, rationale, context_adjustments, thresholds, signals)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, decisionsTable)
	tradeWorthy := uint8(0)
	if d.TradeWorthy {
		tradeWorthy = 1
	}
	if _, err := s.db.ExecContext(ctx, q,
		d.PredictionID, d.StrategyID, d.Instrument, d.Timestamp,
		string(d.Action), d.Confidence, d.ExpectedMove,
		int32(d.SignalsAgreeing), int32(d.TotalSignals), tradeWorthy,
		d.Rationale, string(adjustments), string(thresholds), string(signals),
	); err != nil {
		if s.l != nil {
			s.l.Error("clickhouse save_decision error",
				applogger.String("prediction_id", d.PredictionID),
				applogger.Error(err),
			)
		}
		return fmt.Errorf("save decision: %w", err)
	}

	// One vote row per live observation so the learner can query per-signal
	// history without unpacking decision JSON.
	vq := fmt.Sprintf(`INSERT INTO %s
        (prediction_id, signal_name, direction, confidence, predicted_move, weight, ts)
        VALUES (?, ?, ?, ?, ?, ?, ?)`, votesTable)
	for _, obs := range d.IndividualSignals {
		if obs.SignalName == "" {
			continue
		}
		if _, err := s.db.ExecContext(ctx, vq,
			d.PredictionID, obs.SignalName, string(obs.Direction),
			obs.Confidence, obs.ExpectedMove, obs.WeightAtEvaluation, d.Timestamp,
		); err != nil {
			return fmt.Errorf("save vote %s: %w", obs.SignalName, err)
		}
	}
	return nil
}

func (s *CHDecisionStore) AttachOutcome(ctx context.Context, rec *models.OutcomeRecord) error {
	q := fmt.Sprintf(`INSERT INTO %s (prediction_id, instrument, horizon, realized_move, recorded_at)
        VALUES (?, ?, ?, ?, ?)`, outcomesTable)
	for horizon, move := range rec.RealizedMoves {
		if !domrepo.IsValidHorizon(domrepo.Horizon(horizon)) {
			return fmt.Errorf("unknown horizon %q for %s", horizon, rec.PredictionID)
		}
		if _, err := s.db.ExecContext(ctx, q,
			rec.PredictionID, rec.Instrument, horizon, move, rec.RecordedAt,
		); err != nil {
			if s.l != nil {
				s.l.Error("clickhouse attach_outcome error",
					applogger.String("prediction_id", rec.PredictionID),
					applogger.String("horizon", horizon),
					applogger.Error(err),
				)
			}
			return fmt.Errorf("attach outcome: %w", err)
		}
	}
	return nil
}

const decisionColumns = `prediction_id, strategy_id, instrument, ts, action, confidence,
    expected_move, signals_agreeing, total_signals, trade_worthy, rationale,
    context_adjustments, thresholds, signals`

func (s *CHDecisionStore) GetDecision(ctx context.Context, predictionID string) (*models.CombinedDecision, error) {
	q := fmt.Sprintf(`SELECT %s FROM %s WHERE prediction_id = ? LIMIT 1`, decisionColumns, decisionsTable)
	rows, err := s.db.QueryContext(ctx, q, predictionID)
	if err != nil {
		return nil, fmt.Errorf("get decision: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("rows: %w", err)
		}
		return nil, fmt.Errorf("decision %s not found", predictionID)
	}
	d, err := scanDecision(rows)
	if err != nil {
		return nil, err
	}
	return d, rows.Err()
}

func (s *CHDecisionStore) LatestDecisions(ctx context.Context, instrument string, limit int) ([]models.CombinedDecision, error) {
	if limit <= 0 {
		limit = 20
	}
	q := fmt.Sprintf(`SELECT %s FROM %s WHERE instrument = ? ORDER BY ts DESC LIMIT ?`,
		decisionColumns, decisionsTable)
	return s.queryDecisions(ctx, q, instrument, limit)
}

func (s *CHDecisionStore) DecisionsRange(ctx context.Context, instrument string, from, to time.Time, limit int) ([]models.CombinedDecision, error) {
	if limit <= 0 {
		limit = 500
	}
	q := fmt.Sprintf(`SELECT %s FROM %s WHERE instrument = ? AND ts >= ? AND ts <= ?
        ORDER BY ts DESC LIMIT ?`, decisionColumns, decisionsTable)
	return s.queryDecisions(ctx, q, instrument, from, to, limit)
}

func (s *CHDecisionStore) queryDecisions(ctx context.Context, q string, args ...interface{}) ([]models.CombinedDecision, error) {
	start := time.Now()
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse decisions query error", applogger.Error(err))
		}
		return nil, fmt.Errorf("query decisions: %w", err)
	}
	defer rows.Close()

	out := make([]models.CombinedDecision, 0, 64)
	for rows.Next() {
		d, err := scanDecision(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	if s.l != nil {
		s.l.Debug("clickhouse decisions query ok",
			applogger.Int("rows", len(out)),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return out, nil
}

func scanDecision(rows *sql.Rows) (*models.CombinedDecision, error) {
	var (
		d           models.CombinedDecision
		action      string
		tradeWorthy uint8
		adjustments string
		thresholds  string
		signals     string
	)
	if err := rows.Scan(&d.PredictionID, &d.StrategyID, &d.Instrument, &d.Timestamp,
		&action, &d.Confidence, &d.ExpectedMove, &d.SignalsAgreeing, &d.TotalSignals,
		&tradeWorthy, &d.Rationale, &adjustments, &thresholds, &signals,
	); err != nil {
		return nil, fmt.Errorf("scan decision: %w", err)
	}
	d.Action = models.Direction(action)
	d.TradeWorthy = tradeWorthy != 0
	if adjustments != "" {
		if err := json.Unmarshal([]byte(adjustments), &d.ContextAdjustments); err != nil {
			return nil, fmt.Errorf("unmarshal adjustments: %w", err)
		}
	}
	if thresholds != "" {
		if err := json.Unmarshal([]byte(thresholds), &d.Thresholds); err != nil {
			return nil, fmt.Errorf("unmarshal thresholds: %w", err)
		}
	}
	if signals != "" {
		if err := json.Unmarshal([]byte(signals), &d.IndividualSignals); err != nil {
			return nil, fmt.Errorf("unmarshal signals: %w", err)
		}
	}
	return &d, nil
}

// SignalHistory joins each vote the signal cast in the window with the
// realized move at the evaluation horizon. Votes without an outcome yet come
// back with has_outcome = 0 and are skipped by the scorer.
func (s *CHDecisionStore) SignalHistory(ctx context.Context, signalName string, from, to time.Time) ([]models.SignalOutcome, error) {
	q := fmt.Sprintf(`
        SELECT v.prediction_id, v.signal_name, v.direction, v.confidence,
               v.predicted_move, o.realized_move,
               if(o.prediction_id != '', 1, 0) AS has_outcome, v.ts
        FROM %s AS v
        ANY LEFT JOIN %s AS o
            ON v.prediction_id = o.prediction_id AND o.horizon = ?
        WHERE v.signal_name = ? AND v.ts >= ? AND v.ts <= ?
        ORDER BY v.ts ASC`, votesTable, outcomesTable)
	rows, err := s.db.QueryContext(ctx, q, string(domrepo.EvaluationHorizon), signalName, from, to)
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse signal_history query error",
				applogger.String("signal", signalName),
				applogger.Error(err),
			)
		}
		return nil, fmt.Errorf("signal history: %w", err)
	}
	defer rows.Close()

	out := make([]models.SignalOutcome, 0, 256)
	for rows.Next() {
		var (
			so        models.SignalOutcome
			direction string
			has       uint8
		)
		if err := rows.Scan(&so.PredictionID, &so.SignalName, &direction, &so.Confidence,
			&so.PredictedMove, &so.RealizedMove, &has, &so.Timestamp,
		); err != nil {
			return nil, fmt.Errorf("scan signal history: %w", err)
		}
		so.Direction = models.Direction(direction)
		so.HasOutcome = has != 0
		out = append(out, so)
	}
	return out, rows.Err()
}

func (s *CHDecisionStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *CHDecisionStore) Close() error {
	return nil // connection pool managed by pkg/clickhouse
}

var _ domrepo.DecisionStore = (*CHDecisionStore)(nil)
