package harness

import (
	"fmt"
	"sort"

	"github.com/roach88/gridsync/internal/engine"
	"github.com/roach88/gridsync/internal/ir"
	"github.com/roach88/gridsync/internal/ledger"
)

// checkExpect compares a receipt with a step's expect clause.
func checkExpect(index int, exp *ExpectClause, gotCase string, gotResult ir.IRObject) []string {
	var errs []string
	if gotCase != exp.Case {
		errs = append(errs, fmt.Sprintf("steps[%d]: expected case %q, got %q", index, exp.Case, gotCase))
	}
	for _, msg := range subsetMismatches(exp.Result, gotResult) {
		errs = append(errs, fmt.Sprintf("steps[%d]: result %s", index, msg))
	}
	return errs
}

// subsetMismatches checks that every expected key is present in actual with
// an equal value. Extra keys in actual are ignored. Values compare by their
// canonical JSON, so YAML ints match IR ints.
func subsetMismatches(expected map[string]any, actual ir.IRObject) []string {
	keys := make([]string, 0, len(expected))
	for k := range expected {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var errs []string
	for _, k := range keys {
		want, err := ir.FromAny(expected[k])
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s: bad expected value: %v", k, err))
			continue
		}
		got, ok := actual[k]
		if !ok {
			errs = append(errs, fmt.Sprintf("%s: missing", k))
			continue
		}
		if !valuesEqual(want, got) {
			errs = append(errs, fmt.Sprintf("%s: expected %s, got %s", k, render(want), render(got)))
		}
	}
	return errs
}

func valuesEqual(a, b ir.IRValue) bool {
	ca, errA := ir.MarshalCanonical(a)
	cb, errB := ir.MarshalCanonical(b)
	return errA == nil && errB == nil && string(ca) == string(cb)
}

func render(v ir.IRValue) string {
	data, err := ir.MarshalCanonical(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	l, err := ledger.FromState(result.State)
	if err != nil {
		return []string{fmt.Sprintf("assertions: %v", err)}
	}

	var errs []string
	for i, a := range assertions {
		var record ir.IRObject
		var found bool
		var label string

		switch a.Type {
		case AssertProducer:
			label = fmt.Sprintf("producer %s", a.Principal)
			if p, ok := l.ProducerInfo(ledger.Principal(a.Principal)); ok {
				record, found = engine.EncodeProducer(p), true
			}
		case AssertConsumer:
			label = fmt.Sprintf("consumer %s", a.Principal)
			if c, ok := l.ConsumerInfo(ledger.Principal(a.Principal)); ok {
				record, found = engine.EncodeConsumer(c), true
			}
		case AssertListing:
			label = fmt.Sprintf("listing %d", a.Listing)
			if lst, ok := l.Listing(a.Listing); ok {
				record, found = engine.EncodeListing(lst), true
			}
		case AssertTraceCount:
			if got := result.CountCase(a.Case); got != a.Count {
				errs = append(errs, fmt.Sprintf("assertions[%d]: expected %d receipts with case %q, got %d", i, a.Count, a.Case, got))
			}
			continue
		default:
			errs = append(errs, fmt.Sprintf("assertions[%d]: unknown assertion type %q", i, a.Type))
			continue
		}

		switch {
		case a.Absent && found:
			errs = append(errs, fmt.Sprintf("assertions[%d]: %s exists, expected absent", i, label))
		case !a.Absent && !found:
			errs = append(errs, fmt.Sprintf("assertions[%d]: %s not found", i, label))
		case found:
			for _, msg := range subsetMismatches(a.Expect, record) {
				errs = append(errs, fmt.Sprintf("assertions[%d]: %s %s", i, label, msg))
			}
		}
	}
	return errs
}
