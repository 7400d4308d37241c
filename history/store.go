// Package history records evaluations so results can be listed, revisited
// and downloaded after the request that produced them.
package history

import (
	"context"
	"database/sql"
	"encoding/base64"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/teranos/chrono/db"
	"github.com/teranos/chrono/errors"
	"github.com/teranos/chrono/evaluator"
	"github.com/teranos/chrono/logger"
)

// Evaluation is one recorded submission and its outcome
type Evaluation struct {
	ID           string                  `json:"id" yaml:"id"`
	Code         string                  `json:"code" yaml:"code"`
	Success      bool                    `json:"success" yaml:"success"`
	ErrorType    evaluator.Category      `json:"error_type,omitempty" yaml:"error_type,omitempty"`
	ErrorMessage string                  `json:"error_message,omitempty" yaml:"error_message,omitempty"`
	Errors       []evaluator.ErrorDetail `json:"errors,omitempty" yaml:"errors,omitempty"`
	DurationMS   int64                   `json:"duration_ms" yaml:"duration_ms"`
	CreatedAt    time.Time               `json:"created_at" yaml:"created_at"`
	Components   []evaluator.Component   `json:"components" yaml:"components"`
}

// Summary is the listing form of an Evaluation
type Summary struct {
	ID             string             `json:"id" yaml:"id"`
	Success        bool               `json:"success" yaml:"success"`
	ErrorType      evaluator.Category `json:"error_type,omitempty" yaml:"error_type,omitempty"`
	ComponentCount int                `json:"component_count" yaml:"component_count"`
	Preview        string             `json:"preview" yaml:"preview"`
	CreatedAt      time.Time          `json:"created_at" yaml:"created_at"`
}

// NewEvaluation builds a record from an evaluation outcome. Exactly one of
// res and evalErr is expected to be non-nil.
func NewEvaluation(code string, res *evaluator.Result, evalErr *evaluator.EvaluationError) *Evaluation {
	e := &Evaluation{
		ID:         uuid.NewString(),
		Code:       code,
		CreatedAt:  time.Now().UTC(),
		Components: []evaluator.Component{},
	}
	if res != nil {
		e.Success = true
		e.DurationMS = res.Duration.Milliseconds()
		e.Components = res.Components
	}
	if evalErr != nil {
		e.Success = false
		e.ErrorType = evalErr.Category
		e.ErrorMessage = evalErr.Message
		e.Errors = evalErr.Errors
	}
	return e
}

// Store persists evaluations in SQLite
type Store struct {
	db     *sql.DB
	limit  int
	logger *zap.SugaredLogger
}

// NewStore creates a store. When limit is positive, Save prunes all but
// the newest limit evaluations.
func NewStore(conn *sql.DB, limit int, log *zap.SugaredLogger) *Store {
	if log == nil {
		log = logger.Logger
	}
	return &Store{db: conn, limit: limit, logger: log.Named("history")}
}

// Save records an evaluation together with its components
func (s *Store) Save(ctx context.Context, e *Evaluation) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	errorsJSON, err := json.Marshal(nonNil(e.Errors))
	if err != nil {
		return errors.Wrap(err, "failed to encode evaluation errors")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storeError(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO evaluations (id, code, success, error_type, error_message, errors_json, duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Code, e.Success, string(e.ErrorType), e.ErrorMessage, string(errorsJSON),
		e.DurationMS, e.CreatedAt)
	if err != nil {
		return storeError(err, "failed to insert evaluation "+e.ID)
	}

	for i, c := range e.Components {
		var image []byte
		if c.HasImage() {
			if image, err = c.ImageBytes(); err != nil {
				return err
			}
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO components (evaluation_id, component_id, position, type, title, document, image)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			e.ID, c.ID, i, c.Type, c.Title, c.JSON, image)
		if err != nil {
			return storeError(err, "failed to insert component "+c.ID)
		}
	}

	if err := tx.Commit(); err != nil {
		return storeError(err, "failed to commit evaluation")
	}

	s.logger.Debugw("evaluation recorded",
		logger.FieldEvaluationID, e.ID,
		logger.FieldCount, len(e.Components))

	if s.limit > 0 {
		if _, err := s.Prune(ctx, s.limit); err != nil {
			s.logger.Warnw("failed to prune history", logger.FieldError, err)
		}
	}
	return nil
}

// Get loads an evaluation and its components
func (s *Store) Get(ctx context.Context, id string) (*Evaluation, error) {
	e := &Evaluation{ID: id}
	var (
		errorType  string
		errorsJSON string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT code, success, error_type, error_message, errors_json, duration_ms, created_at
		FROM evaluations WHERE id = ?`, id).
		Scan(&e.Code, &e.Success, &errorType, &e.ErrorMessage, &errorsJSON, &e.DurationMS, &e.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.NewNotFoundError("evaluation %s", id)
	}
	if err != nil {
		return nil, storeError(err, "failed to load evaluation "+id)
	}
	e.ErrorType = evaluator.Category(errorType)
	if err := json.Unmarshal([]byte(errorsJSON), &e.Errors); err != nil {
		return nil, errors.Wrapf(err, "corrupt errors for evaluation %s", id)
	}
	if len(e.Errors) == 0 {
		e.Errors = nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT component_id, type, title, document, image
		FROM components WHERE evaluation_id = ? ORDER BY position`, id)
	if err != nil {
		return nil, storeError(err, "failed to load components of "+id)
	}
	defer rows.Close()

	e.Components = []evaluator.Component{}
	for rows.Next() {
		c, err := scanComponent(rows)
		if err != nil {
			return nil, err
		}
		e.Components = append(e.Components, c)
	}
	return e, rows.Err()
}

// Component loads a single component of an evaluation
func (s *Store) Component(ctx context.Context, evaluationID, componentID string) (evaluator.Component, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT component_id, type, title, document, image
		FROM components WHERE evaluation_id = ? AND component_id = ?`,
		evaluationID, componentID)
	c, err := scanComponent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return evaluator.Component{}, errors.NewNotFoundError("component %s of evaluation %s", componentID, evaluationID)
	}
	return c, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanComponent(row scanner) (evaluator.Component, error) {
	var (
		c     evaluator.Component
		image []byte
	)
	if err := row.Scan(&c.ID, &c.Type, &c.Title, &c.JSON, &image); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c, err
		}
		return c, storeError(err, "failed to scan component")
	}
	if len(image) > 0 {
		c.Image = base64.StdEncoding.EncodeToString(image)
	}
	return c, nil
}

// List returns the newest evaluations first. limit <= 0 returns all.
func (s *Store) List(ctx context.Context, limit int) ([]Summary, error) {
	query := `
		SELECT e.id, e.success, e.error_type, e.code, e.created_at,
		       (SELECT COUNT(*) FROM components c WHERE c.evaluation_id = e.id)
		FROM evaluations e
		ORDER BY e.created_at DESC, e.rowid DESC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storeError(err, "failed to list evaluations")
	}
	defer rows.Close()

	summaries := []Summary{}
	for rows.Next() {
		var (
			sum       Summary
			errorType string
			code      string
		)
		if err := rows.Scan(&sum.ID, &sum.Success, &errorType, &code, &sum.CreatedAt, &sum.ComponentCount); err != nil {
			return nil, storeError(err, "failed to scan evaluation")
		}
		sum.ErrorType = evaluator.Category(errorType)
		sum.Preview = preview(code)
		summaries = append(summaries, sum)
	}
	return summaries, rows.Err()
}

// Prune deletes all but the newest keep evaluations and returns how many
// were removed. keep <= 0 is a no-op.
func (s *Store) Prune(ctx context.Context, keep int) (int64, error) {
	if keep <= 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, storeError(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	const stale = `SELECT id FROM evaluations ORDER BY created_at DESC, rowid DESC LIMIT -1 OFFSET ?`
	if _, err := tx.ExecContext(ctx, `DELETE FROM components WHERE evaluation_id IN (`+stale+`)`, keep); err != nil {
		return 0, storeError(err, "failed to prune components")
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM evaluations WHERE id IN (`+stale+`)`, keep)
	if err != nil {
		return 0, storeError(err, "failed to prune evaluations")
	}
	if err := tx.Commit(); err != nil {
		return 0, storeError(err, "failed to commit prune")
	}

	n, _ := res.RowsAffected()
	if n > 0 {
		s.logger.Debugw("pruned history", logger.FieldCount, n)
	}
	return n, nil
}

// storeError wraps err, marking closed-database failures as unavailable
func storeError(err error, msg string) error {
	if db.IsDatabaseClosed(err) {
		return errors.WrapUnavailable(err, msg)
	}
	return errors.Wrap(err, msg)
}

// preview is the first non-blank line of code, shortened for listings
func preview(code string) string {
	const maxRunes = 60
	for _, line := range strings.Split(code, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if r := []rune(line); len(r) > maxRunes {
			return string(r[:maxRunes-1]) + "…"
		}
		return line
	}
	return ""
}

func nonNil(details []evaluator.ErrorDetail) []evaluator.ErrorDetail {
	if details == nil {
		return []evaluator.ErrorDetail{}
	}
	return details
}
