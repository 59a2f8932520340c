package repository

import (
	"strings"

	"gorm.io/gorm"

	"task-tracker/internal/model"
)

const priorityRankSQL = "CASE tasks.priority WHEN 'high' THEN 1 WHEN 'medium' THEN 2 ELSE 3 END"

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// taskQuery builds the listing query for one owner. The owner scope is
// applied before any filter so no predicate can widen the result set.
type taskQuery struct {
	userID uint
	filter model.TaskFilter
}

func (q taskQuery) build(db *gorm.DB) *gorm.DB {
	stmt := db.Model(&model.Task{}).
		Select("tasks.*").
		Where("tasks.user_id = ?", q.userID)

	stmt = q.search(stmt)

	if q.filter.CategoryID != nil {
		stmt = stmt.Where("tasks.category_id = ?", *q.filter.CategoryID)
	}
	if q.filter.Priority != nil {
		stmt = stmt.Where("tasks.priority = ?", string(*q.filter.Priority))
	}
	if q.filter.Completed != nil {
		stmt = stmt.Where("tasks.is_completed = ?", *q.filter.Completed)
	}

	return q.order(stmt)
}

func (q taskQuery) search(stmt *gorm.DB) *gorm.DB {
	if q.filter.Search == nil {
		return stmt
	}
	pattern := "%" + likeEscaper.Replace(strings.ToLower(*q.filter.Search)) + "%"
	return stmt.
		Joins("LEFT JOIN categories ON categories.id = tasks.category_id").
		Where(`(LOWER(tasks.title) LIKE ? ESCAPE '\' OR LOWER(tasks.description) LIKE ? ESCAPE '\' OR LOWER(categories.name) LIKE ? ESCAPE '\')`,
			pattern, pattern, pattern)
}

func (q taskQuery) order(stmt *gorm.DB) *gorm.DB {
	switch q.filter.Sort {
	case model.SortDueDate:
		stmt = stmt.Order("tasks.due_date ASC NULLS LAST")
	case model.SortPriority:
		stmt = stmt.Order(priorityRankSQL + " ASC")
	}
	// created_at DESC is both the default order and the tie-break.
	return stmt.Order("tasks.created_at DESC").Order("tasks.id DESC")
}
