// Package search finds todos by their title, description and tags.
package search

import (
	"sort"
	"strings"
	"sync"

	"todo-engine/internal/model"
)

// MinQueryLength is the shortest query that filters anything.
const MinQueryLength = 2

// DefaultFuzzyThreshold is the minimum fuzzy score accepted by default.
const DefaultFuzzyThreshold = 0.6

// Match is a fuzzy search hit.
type Match struct {
	Todo  model.TodoItem `json:"todo"`
	Score float64        `json:"score" example:"0.8"`
}

// Service holds a word-level inverted index. The index is rebuilt on demand
// with BuildIndex; it is not maintained incrementally.
type Service struct {
	mu     sync.RWMutex
	tokens map[string]map[string]struct{}
	docs   map[string]string
}

// NewService returns a Service with an empty index.
func NewService() *Service {
	return &Service{
		tokens: make(map[string]map[string]struct{}),
		docs:   make(map[string]string),
	}
}

// Text returns the lowercased searchable text of a todo.
func Text(t model.TodoItem) string {
	parts := make([]string, 0, 2+len(t.Tags))
	parts = append(parts, t.Title, t.Description)
	parts = append(parts, t.Tags...)
	return strings.ToLower(strings.Join(parts, " "))
}

// BuildIndex replaces the index with one built from todos.
func (s *Service) BuildIndex(todos []model.TodoItem) {
	tokens := make(map[string]map[string]struct{})
	docs := make(map[string]string, len(todos))
	for _, t := range todos {
		text := Text(t)
		docs[t.ID] = text
		for _, tok := range strings.Fields(text) {
			ids, ok := tokens[tok]
			if !ok {
				ids = make(map[string]struct{})
				tokens[tok] = ids
			}
			ids[t.ID] = struct{}{}
		}
	}

	s.mu.Lock()
	s.tokens = tokens
	s.docs = docs
	s.mu.Unlock()
}

// Size returns the number of distinct indexed tokens.
func (s *Service) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tokens)
}

// idsContaining returns ids whose indexed tokens contain term.
func (s *Service) idsContaining(term string) map[string]struct{} {
	ids := make(map[string]struct{})
	for tok, docs := range s.tokens {
		if !strings.Contains(tok, term) {
			continue
		}
		for id := range docs {
			ids[id] = struct{}{}
		}
	}
	return ids
}

// Search returns the todos whose text contains every query term, keeping
// input order. Queries shorter than MinQueryLength return todos unchanged.
// Todos absent from the index are matched against their current text.
func (s *Service) Search(todos []model.TodoItem, query string) []model.TodoItem {
	query = strings.TrimSpace(query)
	if len([]rune(query)) < MinQueryLength {
		return todos
	}
	terms := strings.Fields(strings.ToLower(query))

	s.mu.RLock()
	defer s.mu.RUnlock()

	hits := make([]map[string]struct{}, len(terms))
	for i, term := range terms {
		hits[i] = s.idsContaining(term)
	}

	out := make([]model.TodoItem, 0)
	for _, t := range todos {
		text := Text(t)
		if doc, indexed := s.docs[t.ID]; indexed && doc == text {
			if inAll(hits, t.ID) {
				out = append(out, t)
			}
			continue
		}
		if containsAll(text, terms) {
			out = append(out, t)
		}
	}
	return out
}

func inAll(sets []map[string]struct{}, id string) bool {
	for _, set := range sets {
		if _, ok := set[id]; !ok {
			return false
		}
	}
	return true
}

func containsAll(text string, terms []string) bool {
	for _, term := range terms {
		if !strings.Contains(text, term) {
			return false
		}
	}
	return true
}

// Score returns the fraction of query characters found in text in order.
func Score(text, query string) float64 {
	q := []rune(strings.ToLower(query))
	if len(q) == 0 {
		return 0
	}
	matched := 0
	for _, r := range strings.ToLower(text) {
		if matched < len(q) && r == q[matched] {
			matched++
		}
	}
	return float64(matched) / float64(len(q))
}

// FuzzySearch scores every todo against query and returns those at or above
// threshold, best first. A non-positive threshold uses DefaultFuzzyThreshold.
func (s *Service) FuzzySearch(todos []model.TodoItem, query string, threshold float64) []Match {
	if threshold <= 0 {
		threshold = DefaultFuzzyThreshold
	}
	query = strings.Join(strings.Fields(query), " ")
	matches := make([]Match, 0)
	if len([]rune(query)) < MinQueryLength {
		for _, t := range todos {
			matches = append(matches, Match{Todo: t, Score: 1})
		}
		return matches
	}

	for _, t := range todos {
		if score := Score(Text(t), query); score >= threshold {
			matches = append(matches, Match{Todo: t, Score: score})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	return matches
}
