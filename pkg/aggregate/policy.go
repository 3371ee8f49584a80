package aggregate

// Policy decides what a set of retrieval outcomes amounts to once every
// retrieval has finished. It returns the records to order, or the failed
// outcome the whole aggregation is reported as.
type Policy interface {
	Resolve(outcomes []Outcome) (records []ObjectRecord, failure *Outcome)
}

// FailFast is the all-or-nothing policy: any failed retrieval fails the
// aggregation with the first failure in listing order, and no records are
// returned.
type FailFast struct{}

// Resolve returns every record, or the first failed outcome in listing order.
func (FailFast) Resolve(outcomes []Outcome) ([]ObjectRecord, *Outcome) {
	records := make([]ObjectRecord, 0, len(outcomes))
	for i := range outcomes {
		if !outcomes[i].Succeeded() {
			return nil, &outcomes[i]
		}
		records = append(records, outcomes[i].Record)
	}
	return records, nil
}
