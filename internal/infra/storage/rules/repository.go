package rules

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Masterminds/squirrel"

	"github.com/vberezn/schedulebot/internal/domain"
	"github.com/vberezn/schedulebot/pkg/psqlbuilder"
	"github.com/vberezn/schedulebot/pkg/txmanager"
)

// Repository репозиторий правил доступности
// Правила не изменяются на месте: только добавление и удаление
type Repository struct {
	db txmanager.DBExecutor
}

// NewRepository создает новый экземпляр репозитория правил
func NewRepository(db txmanager.DBExecutor) *Repository {
	return &Repository{db: db}
}

// Create сохраняет новое правило и возвращает его с заполненным id
func (r *Repository) Create(ctx context.Context, rule *domain.AvailabilityRule) (*domain.AvailabilityRule, error) {
	executor := txmanager.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Insert("availability_rules").
		Columns("day_of_week", "specific_date", "start_time", "end_time", "is_blocked").
		Values(rule.DayOfWeek, rule.SpecificDate, rule.StartTime, rule.EndTime, rule.IsBlocked).
		Suffix("RETURNING id, created_at").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: Create - build insert query: %v", ErrBuildQuery, err)
	}

	var createdAt sql.NullTime
	if err := executor.QueryRowContext(ctx, query, args...).Scan(&rule.ID, &createdAt); err != nil {
		return nil, fmt.Errorf("%w: Create - execute insert: %v", ErrExecQuery, err)
	}
	rule.CreatedAt = createdAt.Time

	return rule, nil
}

// List возвращает все правила, сначала рекуррентные, затем по конкретным датам
func (r *Repository) List(ctx context.Context) ([]*domain.AvailabilityRule, error) {
	executor := txmanager.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Select(
		"id", "day_of_week", "specific_date", "start_time", "end_time", "is_blocked", "created_at",
	).
		From("availability_rules").
		OrderBy("specific_date ASC, day_of_week ASC, start_time ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: List - build select query: %v", ErrBuildQuery, err)
	}

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: List - execute query: %v", ErrExecQuery, err)
	}
	defer rows.Close()

	result := make([]*domain.AvailabilityRule, 0)
	for rows.Next() {
		var rule domain.AvailabilityRule
		var createdAt sql.NullTime

		if err := rows.Scan(
			&rule.ID,
			&rule.DayOfWeek,
			&rule.SpecificDate,
			&rule.StartTime,
			&rule.EndTime,
			&rule.IsBlocked,
			&createdAt,
		); err != nil {
			return nil, fmt.Errorf("%w: List - scan rule: %v", ErrScanRow, err)
		}
		rule.CreatedAt = createdAt.Time
		result = append(result, &rule)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: List - rows error: %v", ErrScanRow, err)
	}

	return result, nil
}

// Delete удаляет правило по id
func (r *Repository) Delete(ctx context.Context, id int64) error {
	executor := txmanager.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Delete("availability_rules").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("%w: Delete - build delete query: %v", ErrBuildQuery, err)
	}

	result, err := executor.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%w: Delete - execute delete: %v", ErrExecQuery, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: Delete - get rows affected: %v", ErrExecQuery, err)
	}
	if affected == 0 {
		return ErrRuleNotFound
	}

	return nil
}

// Clear удаляет правила по дню недели или конкретной дате
// Если оба параметра пустые, удаляет все правила
// Возвращает количество удалённых правил
func (r *Repository) Clear(ctx context.Context, dayOfWeek, specificDate string) (int64, error) {
	executor := txmanager.GetExecutor(ctx, r.db)

	deleteBuilder := psqlbuilder.Delete("availability_rules")
	if dayOfWeek != "" {
		deleteBuilder = deleteBuilder.Where(squirrel.Eq{"day_of_week": dayOfWeek})
	}
	if specificDate != "" {
		deleteBuilder = deleteBuilder.Where(squirrel.Eq{"specific_date": specificDate})
	}

	query, args, err := deleteBuilder.ToSql()
	if err != nil {
		return 0, fmt.Errorf("%w: Clear - build delete query: %v", ErrBuildQuery, err)
	}

	result, err := executor.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("%w: Clear - execute delete: %v", ErrExecQuery, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%w: Clear - get rows affected: %v", ErrExecQuery, err)
	}

	return affected, nil
}
