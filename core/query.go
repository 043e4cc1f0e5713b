package core

// QueryBuilder is a fluent filter/limit builder over working memory
// contents, per spec.md §4.7. It is not part of the match-resolve-act
// core; Actions use it only to read facts, never to mutate them.
type QueryBuilder struct {
	wm    *WorkingMemory
	typ   string
	pred  func(payload map[string]interface{}) bool
	limit int
}

// Where adds a filter predicate over fact payloads.
func (q *QueryBuilder) Where(pred func(payload map[string]interface{}) bool) *QueryBuilder {
	q.pred = pred
	return q
}

// Limit caps the number of facts Execute returns to n.
func (q *QueryBuilder) Limit(n int) *QueryBuilder {
	q.limit = n
	return q
}

// Execute runs the query and returns the matching facts, in working
// memory's iteration order.
func (q *QueryBuilder) Execute() []*Fact {
	var base []*Fact
	if q.typ != "" {
		base = q.wm.byTypeFacts(q.typ)
	} else {
		base = q.wm.all()
	}

	var acc []*Fact
	for _, f := range base {
		if q.pred != nil && !q.pred(f.Payload()) {
			continue
		}
		acc = append(acc, f)
		if q.limit > 0 && len(acc) >= q.limit {
			break
		}
	}

	return acc
}
