package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dreschagin/evaluation-dashboard/internal/domain/entity"
	"github.com/dreschagin/evaluation-dashboard/internal/domain/repository"
	"github.com/dreschagin/evaluation-dashboard/internal/domain/valueobject"
)

const evaluationColumns = `id, project, stage, service, evaluated_at, bucket_label, score, results, created_at`

const insertEvaluation = `
	INSERT INTO evaluations (` + evaluationColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (id) DO NOTHING
`

// EvaluationRepository реализует repository.EvaluationRepository для PostgreSQL и SQLite
type EvaluationRepository struct {
	db     *sql.DB
	driver string
}

// NewEvaluationRepository создает repository поверх открытого соединения
func NewEvaluationRepository(db *sql.DB, driver string) *EvaluationRepository {
	return &EvaluationRepository{
		db:     db,
		driver: driver,
	}
}

// Save сохраняет одну оценку
func (r *EvaluationRepository) Save(ctx context.Context, record *entity.EvaluationRecord) error {
	model, err := ToDBModel(record)
	if err != nil {
		return fmt.Errorf("failed to convert to DB model: %w", err)
	}

	res, err := r.db.ExecContext(ctx, r.q(insertEvaluation), modelArgs(model)...)
	if err != nil {
		return fmt.Errorf("failed to insert evaluation: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", repository.ErrAlreadyExists, model.ID)
	}

	return nil
}

// SaveBatch сохраняет несколько оценок одной транзакцией; уже сохраненные пропускаются
func (r *EvaluationRepository) SaveBatch(ctx context.Context, records []*entity.EvaluationRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	stmt, err := tx.PrepareContext(ctx, r.q(insertEvaluation))
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, record := range records {
		model, err := ToDBModel(record)
		if err != nil {
			return fmt.Errorf("failed to convert evaluation to DB model: %w", err)
		}

		if _, err := stmt.ExecContext(ctx, modelArgs(model)...); err != nil {
			return fmt.Errorf("failed to insert evaluation: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// FindByID находит оценку по идентификатору
func (r *EvaluationRepository) FindByID(ctx context.Context, id string) (*entity.EvaluationRecord, error) {
	query := `SELECT ` + evaluationColumns + ` FROM evaluations WHERE id = ?`

	row := r.db.QueryRowContext(ctx, r.q(query), id)
	model, err := ScanEvaluationRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", repository.ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to scan evaluation: %w", err)
	}

	return ToEntity(model)
}

// FindHistory возвращает последние Limit оценок сервиса в возрастающем порядке времени
func (r *EvaluationRepository) FindHistory(
	ctx context.Context,
	query repository.HistoryQuery,
) ([]*entity.EvaluationRecord, error) {
	if query.Scope.IsZero() {
		return nil, valueobject.ErrInvalidScope
	}

	var sb strings.Builder
	sb.WriteString(`SELECT ` + evaluationColumns + ` FROM evaluations WHERE project = ? AND stage = ? AND service = ?`)
	args := []interface{}{query.Scope.Project(), query.Scope.Stage(), query.Scope.Service()}

	if !query.TimeRange.IsZero() {
		sb.WriteString(` AND evaluated_at >= ? AND evaluated_at <= ?`)
		args = append(args, query.TimeRange.Start().UnixMilli(), query.TimeRange.End().UnixMilli())
	}

	// Берем последние N и разворачиваем, чтобы колонки шли хронологически
	sb.WriteString(` ORDER BY evaluated_at DESC, created_at DESC, id DESC`)
	if query.Limit > 0 {
		sb.WriteString(` LIMIT ?`)
		args = append(args, query.Limit)
	}

	rows, err := r.db.QueryContext(ctx, r.q(sb.String()), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query evaluations: %w", err)
	}
	defer rows.Close()

	records, err := r.scanEvaluations(rows)
	if err != nil {
		return nil, err
	}

	for i, j := 0, len(records)-1; i < j; i, j = i+1, j-1 {
		records[i], records[j] = records[j], records[i]
	}
	return records, nil
}

// ListScopes возвращает все сервисы с сохраненными оценками
func (r *EvaluationRepository) ListScopes(ctx context.Context) ([]valueobject.Scope, error) {
	query := `
		SELECT DISTINCT project, stage, service
		FROM evaluations
		ORDER BY project, stage, service
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query scopes: %w", err)
	}
	defer rows.Close()

	scopes := make([]valueobject.Scope, 0)
	for rows.Next() {
		var project, stage, service string
		if err := rows.Scan(&project, &stage, &service); err != nil {
			return nil, fmt.Errorf("failed to scan scope: %w", err)
		}
		scope, err := valueobject.NewScope(project, stage, service)
		if err != nil {
			return nil, fmt.Errorf("stored scope %s/%s/%s: %w", project, stage, service, err)
		}
		scopes = append(scopes, scope)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return scopes, nil
}

// Count возвращает количество оценок сервиса
func (r *EvaluationRepository) Count(ctx context.Context, scope valueobject.Scope) (int64, error) {
	query := `SELECT COUNT(*) FROM evaluations WHERE project = ? AND stage = ? AND service = ?`

	var count int64
	err := r.db.QueryRowContext(ctx, r.q(query), scope.Project(), scope.Stage(), scope.Service()).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count evaluations: %w", err)
	}

	return count, nil
}

// Ping проверяет доступность БД (для readiness)
func (r *EvaluationRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *EvaluationRepository) q(query string) string {
	return rebind(r.driver, query)
}

func (r *EvaluationRepository) scanEvaluations(rows *sql.Rows) ([]*entity.EvaluationRecord, error) {
	records := make([]*entity.EvaluationRecord, 0)

	for rows.Next() {
		model, err := ScanEvaluationRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan evaluation: %w", err)
		}

		record, err := ToEntity(model)
		if err != nil {
			return nil, fmt.Errorf("failed to convert to entity: %w", err)
		}

		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return records, nil
}

func modelArgs(model *EvaluationDBModel) []interface{} {
	return []interface{}{
		model.ID,
		model.Project,
		model.Stage,
		model.Service,
		model.EvaluatedAt,
		model.BucketLabel,
		model.Score,
		string(model.Results),
		model.CreatedAt,
	}
}
