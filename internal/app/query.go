package app

import (
	"context"
	"encoding/binary"
	"fmt"
	"hash/fnv"

	"todo-engine/internal/filter"
	"todo-engine/internal/model"
	"todo-engine/internal/search"
)

// Grouping selects how List partitions its result.
type Grouping string

const (
	GroupNone     Grouping = ""
	GroupCategory Grouping = "category"
	GroupPriority Grouping = "priority"
	GroupDate     Grouping = "date"
)

// Query describes a list request.
type Query struct {
	Criteria       filter.Criteria
	Search         string
	Fuzzy          bool
	FuzzyThreshold float64
	Sort           model.SortOption
	GroupBy        Grouping
	IncludeDeleted bool
}

// ListResult is the outcome of List.
type ListResult struct {
	Todos  []filter.View  `json:"todos"`
	Groups []filter.Group `json:"groups,omitempty"`
	Count  int            `json:"count"`
	Total  int            `json:"total"`
}

// List reads the collection and applies search, filters, sorting and
// grouping in that order.
func (a *App) List(ctx context.Context, q Query) (ListResult, error) {
	todos, err := a.Todos.GetAll(ctx, q.IncludeDeleted)
	if err != nil {
		return ListResult{}, err
	}
	total := len(todos)
	now := a.now()

	if q.Search != "" {
		if q.Fuzzy {
			threshold := q.FuzzyThreshold
			if threshold <= 0 {
				threshold = a.Config.Todo.FuzzyThreshold
			}
			matches := a.Search.FuzzySearch(todos, q.Search, threshold)
			todos = make([]model.TodoItem, len(matches))
			for i, m := range matches {
				todos[i] = m.Todo
			}
		} else {
			a.refreshIndex(todos)
			todos = a.Search.Search(todos, q.Search)
		}
	}

	todos = filter.Apply(todos, q.Criteria, now)
	if q.Sort.Field != "" {
		todos = filter.Sort(todos, q.Sort)
	}

	result := ListResult{Todos: filter.Annotate(todos, now), Count: len(todos), Total: total}
	switch q.GroupBy {
	case GroupNone:
	case GroupCategory:
		names, err := a.Categories.Names(ctx)
		if err != nil {
			return ListResult{}, err
		}
		result.Groups = filter.ByCategory(todos, names)
	case GroupPriority:
		result.Groups = filter.ByPriority(todos)
	case GroupDate:
		result.Groups = filter.ByDate(todos, now)
	default:
		return ListResult{}, fmt.Errorf("unknown grouping %q", q.GroupBy)
	}
	return result, nil
}

// SearchTodos returns scored matches for query over the live collection.
// Exact matches all score 1; fuzzy matches are ordered by score.
func (a *App) SearchTodos(ctx context.Context, query string, fuzzy bool, threshold float64) ([]search.Match, error) {
	todos, err := a.Todos.GetAll(ctx, false)
	if err != nil {
		return nil, err
	}
	if fuzzy {
		if threshold <= 0 {
			threshold = a.Config.Todo.FuzzyThreshold
		}
		return a.Search.FuzzySearch(todos, query, threshold), nil
	}

	a.refreshIndex(todos)
	hits := a.Search.Search(todos, query)
	matches := make([]search.Match, len(hits))
	for i, t := range hits {
		matches[i] = search.Match{Todo: t, Score: 1}
	}
	return matches, nil
}

// refreshIndex rebuilds the search index when the collection changed since
// the last build.
func (a *App) refreshIndex(todos []model.TodoItem) {
	fp := fingerprint(todos)

	a.indexMu.Lock()
	defer a.indexMu.Unlock()
	if fp == a.fingerprint && a.Search.Size() > 0 {
		return
	}
	a.Search.BuildIndex(todos)
	a.fingerprint = fp
}

func fingerprint(todos []model.TodoItem) uint64 {
	h := fnv.New64a()
	var buf [8]byte
	for _, t := range todos {
		h.Write([]byte(t.ID))
		binary.LittleEndian.PutUint64(buf[:], uint64(t.UpdatedAt.UnixNano()))
		h.Write(buf[:])
	}
	return h.Sum64()
}
