package repositories

import (
	"fmt"

	apperrors "gauge-system/pkg/errors"

	sq "github.com/Masterminds/squirrel"
)

// Схемный доступ: любые имена таблиц и колонок проверяются по allow-list
// до построения SQL. Непараметризованных подстановок пользовательских
// строк в текст запроса нет нигде.
//
// Сателлитные таблицы не обязаны иметь одинаковый набор колонок, поэтому
// возможности каждой таблицы описаны явно, а не предполагаются.

var tableColumns = map[string]map[string]struct{}{
	"gauges": colSet(
		"id", "number", "name", "category", "status", "sealed", "unsealed_at",
		"calibration_due_at", "calibration_interval_days", "companion_id",
		"pair_suffix", "location", "is_spare", "deleted_at", "created_at", "updated_at",
	),
	"gauge_checkouts": colSet(
		"id", "gauge_id", "actor_id", "holder_id", "note",
		"checked_out_at", "returned_at", "return_condition",
	),
	"unseal_requests": colSet(
		"id", "gauge_id", "requester_id", "reason", "status",
		"decided_by", "decided_at", "decision_reason", "created_at",
	),
	"calibration_records": colSet(
		"id", "gauge_id", "method", "passed", "certificate_ref",
		"notes", "technician_id", "performed_at",
	),
	"audit_entries": colSet(
		"id", "entity_type", "entity_id", "action", "old_value", "new_value",
		"actor_type", "actor_id", "actor_label", "reason", "tx_id", "created_at",
	),
	"category_counters": colSet("category", "last_value"),
}

// Таблицы с колонкой updated_at; для них UPDATE всегда трогает её.
var tablesWithUpdatedAt = map[string]struct{}{
	"gauges": {},
}

func colSet(names ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return set
}

func checkTable(table string) (map[string]struct{}, error) {
	cols, ok := tableColumns[table]
	if !ok {
		return nil, apperrors.NewValidationError("таблица %q не входит в список разрешённых", table)
	}
	return cols, nil
}

func checkColumn(table string, cols map[string]struct{}, column string) error {
	if _, ok := cols[column]; !ok {
		return apperrors.NewValidationError("колонка %q не разрешена для таблицы %q", column, table)
	}
	return nil
}

// BuildUpdateByID собирает параметризованный UPDATE ... WHERE id = $n
// только из разрешённых колонок.
func BuildUpdateByID(table string, set map[string]interface{}, id uint64) (string, []interface{}, error) {
	cols, err := checkTable(table)
	if err != nil {
		return "", nil, err
	}
	if len(set) == 0 {
		return "", nil, apperrors.NewValidationError("пустой набор изменений для таблицы %q", table)
	}

	builder := sq.Update(table).PlaceholderFormat(sq.Dollar)
	for column, value := range set {
		if err := checkColumn(table, cols, column); err != nil {
			return "", nil, err
		}
		builder = builder.Set(column, value)
	}
	if _, ok := tablesWithUpdatedAt[table]; ok {
		builder = builder.Set("updated_at", sq.Expr("NOW()"))
	}
	builder = builder.Where(sq.Eq{"id": id})

	sqlQuery, args, err := builder.ToSql()
	if err != nil {
		return "", nil, fmt.Errorf("ошибка сборки UPDATE для %q: %w", table, err)
	}
	return sqlQuery, args, nil
}
