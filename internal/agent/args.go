package agent

import (
	"bytes"
	"encoding/json"
	"errors"
	"sort"
	"strconv"
	"strings"

	"github.com/tfta-mcp-server/internal/domain"
)

var (
	errNotEntity = errors.New("not an entity")
	errNested    = errors.New("nested entity lists are not supported")
)

// Args are the named arguments of a request. Values stay raw until a handler
// asks for them: an entity argument may be one grounded object, a list of
// objects, a list of names or a single delimited string of names.
type Args map[string]json.RawMessage

// NewArgs builds Args from plain Go values.
func NewArgs(values map[string]interface{}) Args {
	args := make(Args, len(values))
	for k, v := range values {
		raw, err := json.Marshal(v)
		if err != nil {
			continue
		}
		args[k] = raw
	}
	return args
}

// wireEntity accepts both the structured grounding list and the db_refs map
// emitted by upstream grounding services.
type wireEntity struct {
	Name       string             `json:"name"`
	Groundings []domain.Grounding `json:"groundings,omitempty"`
	DBRefs     map[string]string  `json:"db_refs,omitempty"`
}

func (w wireEntity) ref() domain.EntityRef {
	ref := domain.EntityRef{Name: strings.TrimSpace(w.Name), Groundings: w.Groundings}
	namespaces := make([]string, 0, len(w.DBRefs))
	for ns := range w.DBRefs {
		if strings.EqualFold(ns, "TEXT") {
			continue
		}
		namespaces = append(namespaces, ns)
	}
	sort.Strings(namespaces)
	for _, ns := range namespaces {
		ref.Groundings = append(ref.Groundings, domain.Grounding{Namespace: strings.ToUpper(ns), ID: w.DBRefs[ns]})
	}
	if ref.Name == "" {
		ref.Name = strings.TrimSpace(w.DBRefs["TEXT"])
	}
	return ref
}

// SplitNames splits a delimited list of names on commas, semicolons and
// newlines.
func SplitNames(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ';' || r == '\n'
	})
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

func (a Args) raw(key string) (json.RawMessage, bool) {
	raw, ok := a[key]
	if !ok {
		return nil, false
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, false
	}
	return raw, true
}

// Has reports whether key carries a non-null value.
func (a Args) Has(key string) bool {
	_, ok := a.raw(key)
	return ok
}

// Entities decodes an entity-valued argument. A missing argument yields no
// entities and no error.
func (a Args) Entities(key string) ([]domain.EntityRef, error) {
	raw, ok := a.raw(key)
	if !ok {
		return nil, nil
	}
	refs, err := decodeEntities(raw)
	if err != nil {
		return nil, domain.NewFailure(domain.ReasonInvalidArgument, key).
			WithMessage("argument %s is not an entity, a list of entities or a delimited string", key)
	}
	return refs, nil
}

func decodeEntities(raw json.RawMessage) ([]domain.EntityRef, error) {
	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, err
		}
		names := SplitNames(s)
		refs := make([]domain.EntityRef, 0, len(names))
		for _, n := range names {
			refs = append(refs, domain.EntityRef{Name: n})
		}
		return refs, nil
	case '{':
		var w wireEntity
		if err := json.Unmarshal(raw, &w); err != nil {
			return nil, err
		}
		ref := w.ref()
		if ref.Name == "" && len(ref.Groundings) == 0 {
			return nil, nil
		}
		return []domain.EntityRef{ref}, nil
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, err
		}
		var refs []domain.EntityRef
		for _, item := range items {
			item = bytes.TrimSpace(item)
			if len(item) == 0 || item[0] == '[' {
				return nil, errNested
			}
			decoded, err := decodeEntities(item)
			if err != nil {
				return nil, err
			}
			refs = append(refs, decoded...)
		}
		return refs, nil
	}
	return nil, errNotEntity
}

// Entity decodes an argument that must name exactly one entity. A missing
// argument yields an empty reference.
func (a Args) Entity(key string) (domain.EntityRef, error) {
	refs, err := a.Entities(key)
	if err != nil || len(refs) == 0 {
		return domain.EntityRef{}, err
	}
	if len(refs) > 1 {
		return domain.EntityRef{}, domain.NewFailure(domain.ReasonInvalidArgument, key).
			WithMessage("argument %s takes a single entity, got %d", key, len(refs))
	}
	return refs[0], nil
}

// Names decodes an entity-valued argument to bare names, as used by the
// of-those filter.
func (a Args) Names(key string) ([]string, error) {
	refs, err := a.Entities(key)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(refs))
	for _, r := range refs {
		name := r.Name
		for _, g := range r.Groundings {
			if g.IsGene() && g.Name != "" {
				name = g.Name
				break
			}
		}
		if name != "" {
			names = append(names, name)
		}
	}
	return names, nil
}

// String decodes a scalar argument. Numbers and booleans are rendered as
// text, and an entity object yields its name.
func (a Args) String(key string) string {
	raw, ok := a.raw(key)
	if !ok {
		return ""
	}
	switch raw[0] {
	case '"':
		var s string
		if json.Unmarshal(raw, &s) == nil {
			return strings.TrimSpace(s)
		}
	case '{':
		var w wireEntity
		if json.Unmarshal(raw, &w) == nil {
			return w.ref().Name
		}
	case '[':
		return ""
	default:
		return string(raw)
	}
	return ""
}

// Int decodes a numeric argument, accepting numbers and numeric strings.
// Anything else yields 0.
func (a Args) Int(key string) int {
	n, err := strconv.Atoi(a.String(key))
	if err != nil {
		return 0
	}
	return n
}

// First returns the first of keys present in args, or "".
func (a Args) First(keys ...string) string {
	for _, k := range keys {
		if a.Has(k) {
			return k
		}
	}
	return ""
}
