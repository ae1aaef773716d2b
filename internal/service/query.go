package service

import (
	"math"
	"slices"
	"strings"
	"time"

	"golang.org/x/text/cases"

	"github.com/Irene-03/todo-list-app/internal/model"
)

// FilterTodos returns the todos matching every supplied filter field, most
// recently created first. The input slice is left untouched.
func FilterTodos(todos []model.Todo, filter model.TodoFilter) []model.Todo {
	fold := cases.Fold()
	search := fold.String(strings.TrimSpace(filter.Search))

	result := make([]model.Todo, 0, len(todos))
	for _, todo := range todos {
		if !matchStatus(todo, filter.Status) {
			continue
		}
		if filter.Important != nil && todo.Important != *filter.Important {
			continue
		}
		if filter.Priority != "" && todo.Priority != filter.Priority {
			continue
		}
		if filter.Group != "" && !todo.HasGroup(filter.Group) {
			continue
		}
		if search != "" && !strings.Contains(fold.String(todo.Text), search) {
			continue
		}
		result = append(result, todo)
	}

	SortTodos(result)
	return result
}

// SortTodos orders todos by creation time, newest first. Ties keep their
// relative order.
func SortTodos(todos []model.Todo) {
	slices.SortStableFunc(todos, func(a, b model.Todo) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
}

func matchStatus(todo model.Todo, status string) bool {
	switch status {
	case model.StatusCompleted:
		return todo.Done
	case model.StatusUncompleted, model.StatusActive:
		return !todo.Done
	default:
		return true
	}
}

// ComputeStats aggregates the given todos. A todo counts as due today when its
// due date falls within the calendar day of now, in now's location.
func ComputeStats(todos []model.Todo, now time.Time) model.TodoStats {
	start := startOfDay(now)
	end := start.AddDate(0, 0, 1)

	var stats model.TodoStats
	for _, todo := range todos {
		stats.Total++
		if todo.Done {
			stats.Completed++
		}
		if todo.Important {
			stats.Important++
		}
		if todo.DueDate != nil && !todo.DueDate.Before(start) && todo.DueDate.Before(end) {
			stats.Today++
		}
	}

	stats.Uncompleted = stats.Total - stats.Completed
	if stats.Total > 0 {
		rate := float64(stats.Completed) / float64(stats.Total) * 100
		stats.CompletionRate = math.Round(rate*10) / 10
	}

	return stats
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// NormalizeGroups splits comma separated labels, trims them, drops empty ones
// and duplicates. The first occurrence of a label decides its position.
func NormalizeGroups(values []string) []string {
	groups := []string{}
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			part = strings.TrimSpace(part)
			if part == "" || slices.Contains(groups, part) {
				continue
			}
			groups = append(groups, part)
		}
	}
	return groups
}

// DistinctGroups lists the group labels used by the todos in first-seen order
func DistinctGroups(todos []model.Todo) []string {
	var labels []string
	for _, todo := range todos {
		labels = append(labels, todo.Groups...)
	}
	return NormalizeGroups(labels)
}
