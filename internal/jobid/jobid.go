// Package jobid classifies and parses job identifiers. An identifier either
// names a plain job ("1234"), a whole job array ("1234[]"), a single subjob
// ("1234[7]") or a range of subjobs ("1234[2-8:2]", with comma-separated
// sub-ranges allowed, e.g. "1234[1-3,7-15:4]").
package jobid

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Kind is the addressing form of a job identifier.
type Kind int

const (
	// KindPlain names an ordinary job with no array context.
	KindPlain Kind = iota
	// KindArray names the array job itself, addressing every subjob.
	KindArray
	// KindSingle names one subjob by index.
	KindSingle
	// KindRange names a set of subjobs via a start-end:step expression.
	KindRange
)

func (k Kind) String() string {
	switch k {
	case KindPlain:
		return "plain"
	case KindArray:
		return "array"
	case KindSingle:
		return "single"
	case KindRange:
		return "range"
	}
	return fmt.Sprintf("unknown(%d)", int(k))
}

// IndexRange is one start-end:step component of a range expression. Step is
// always positive; a bare index parses as Start == End.
type IndexRange struct {
	Start int
	End   int
	Step  int
}

// Classify determines the addressing form of the given identifier without
// fully parsing any contained range expression.
func Classify(jid string) (Kind, error) {
	open := strings.IndexByte(jid, '[')
	if open < 0 {
		if strings.IndexByte(jid, ']') >= 0 {
			return KindPlain, errors.Errorf("malformed job identifier %q", jid)
		}
		return KindPlain, nil
	}
	if open == 0 {
		return KindPlain, errors.Errorf("malformed job identifier %q", jid)
	}
	end := strings.LastIndexByte(jid, ']')
	if end != len(jid)-1 || end < open {
		return KindPlain, errors.Errorf("malformed job identifier %q", jid)
	}
	sub := jid[open+1 : end]
	if sub == "" {
		return KindArray, nil
	}
	if _, err := strconv.Atoi(sub); err == nil {
		return KindSingle, nil
	}
	return KindRange, nil
}

// ArrayId returns the canonical array job identifier ("1234[]") for any
// identifier carrying array context.
func ArrayId(jid string) string {
	open := strings.IndexByte(jid, '[')
	if open < 0 {
		return jid
	}
	return jid[:open] + "[]"
}

// Subscript returns the bracketed portion of the identifier, e.g. "2-8:2"
// for "1234[2-8:2]", or the empty string if there is none.
func Subscript(jid string) string {
	open := strings.IndexByte(jid, '[')
	if open < 0 || !strings.HasSuffix(jid, "]") {
		return ""
	}
	return jid[open+1 : len(jid)-1]
}

// Index returns the subjob index of a single-subjob identifier.
func Index(jid string) (int, error) {
	i, err := strconv.Atoi(Subscript(jid))
	if err != nil {
		return 0, errors.Errorf("identifier %q does not name a single subjob", jid)
	}
	return i, nil
}

// SubjobId builds the identifier of one subjob of the given array job.
func SubjobId(arrayId string, index int) string {
	open := strings.IndexByte(arrayId, '[')
	if open < 0 {
		return fmt.Sprintf("%s[%d]", arrayId, index)
	}
	return fmt.Sprintf("%s[%d]", arrayId[:open], index)
}

// ParseRange parses a full range expression, e.g. "1-3,7-15:4". The whole
// expression is validated before anything is returned, so a malformed suffix
// cannot result in partial expansion.
func ParseRange(expr string) ([]IndexRange, error) {
	if expr == "" {
		return nil, errors.New("empty subjob range")
	}
	parts := strings.Split(expr, ",")
	ranges := make([]IndexRange, 0, len(parts))
	for _, part := range parts {
		r, err := parseOneRange(part)
		if err != nil {
			return nil, err
		}
		ranges = append(ranges, r)
	}
	return ranges, nil
}

func parseOneRange(part string) (IndexRange, error) {
	r := IndexRange{Step: 1}
	body := part
	if colon := strings.IndexByte(part, ':'); colon >= 0 {
		step, err := strconv.Atoi(part[colon+1:])
		if err != nil || step <= 0 {
			return r, errors.Errorf("invalid step in subjob range %q", part)
		}
		r.Step = step
		body = part[:colon]
	}
	dash := strings.IndexByte(body, '-')
	if dash < 0 {
		start, err := strconv.Atoi(body)
		if err != nil || start < 0 {
			return r, errors.Errorf("invalid index in subjob range %q", part)
		}
		r.Start, r.End = start, start
		return r, nil
	}
	start, err := strconv.Atoi(body[:dash])
	if err != nil || start < 0 {
		return r, errors.Errorf("invalid start index in subjob range %q", part)
	}
	end, err := strconv.Atoi(body[dash+1:])
	if err != nil || end < start {
		return r, errors.Errorf("invalid end index in subjob range %q", part)
	}
	r.Start, r.End = start, end
	return r, nil
}

// Indices expands the parsed ranges into a sorted, de-duplicated list of
// indices, in ascending order.
func Indices(ranges []IndexRange) []int {
	seen := map[int]bool{}
	var indices []int
	for _, r := range ranges {
		for i := r.Start; i <= r.End; i += r.Step {
			if !seen[i] {
				seen[i] = true
				indices = append(indices, i)
			}
		}
	}
	sort.Ints(indices)
	return indices
}
