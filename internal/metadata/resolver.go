package metadata

import "github.com/joseph-ayodele/legal-ocr/internal/entity"

// Policy is how a field merges incoming values.
type Policy int

const (
	// Append keeps every value, duplicates included.
	Append Policy = iota
	// Dedup skips values whose identity key is already present.
	Dedup
)

// Field names a mergeable list of the metadata record.
type Field string

const (
	FieldDates         Field = "dates"
	FieldParties       Field = "parties"
	FieldClaimants     Field = "claimants"
	FieldTribunals     Field = "tribunals"
	FieldRelationships Field = "relationships"
	FieldClauses       Field = "clauses"
)

// FieldPolicies is the merge policy per field. Only parties and tribunals are
// deduplicated.
var FieldPolicies = map[Field]Policy{
	FieldDates:         Append,
	FieldParties:       Dedup,
	FieldClaimants:     Append,
	FieldTribunals:     Dedup,
	FieldRelationships: Append,
	FieldClauses:       Append,
}

// IdentityKey maps a surface string to the key used for membership checks.
type IdentityKey func(string) string

// ExactText is the identity key in use: no case or whitespace folding.
func ExactText(s string) string { return s }

// Resolver accumulates one page's metadata from several sources.
type Resolver struct {
	key   IdentityKey
	out   entity.Metadata
	index map[Field]map[string]struct{}
}

func NewResolver(key IdentityKey) *Resolver {
	if key == nil {
		key = ExactText
	}
	return &Resolver{
		key: key,
		out: entity.NewMetadata(),
		index: map[Field]map[string]struct{}{
			FieldParties:   {},
			FieldTribunals: {},
		},
	}
}

// Seed appends values to a dedup field without a membership check. They are
// still indexed, so later merges see them.
func (r *Resolver) Seed(f Field, values ...string) {
	for _, v := range values {
		r.appendString(f, v)
	}
}

// Merge adds values to f according to its policy.
func (r *Resolver) Merge(f Field, values ...string) {
	for _, v := range values {
		if FieldPolicies[f] == Dedup {
			if _, ok := r.index[f][r.key(v)]; ok {
				continue
			}
		}
		r.appendString(f, v)
	}
}

func (r *Resolver) appendString(f Field, v string) {
	switch f {
	case FieldDates:
		r.out.Dates = append(r.out.Dates, v)
	case FieldParties:
		r.out.Parties = append(r.out.Parties, v)
	case FieldClaimants:
		r.out.Claimants = append(r.out.Claimants, v)
	case FieldTribunals:
		r.out.Tribunals = append(r.out.Tribunals, v)
	default:
		return
	}
	if idx, ok := r.index[f]; ok {
		idx[r.key(v)] = struct{}{}
	}
}

func (r *Resolver) AddRelationship(rel entity.Relationship) {
	r.out.Relationships = append(r.out.Relationships, rel)
}

func (r *Resolver) AddClause(c entity.Clause) {
	r.out.Clauses = append(r.out.Clauses, c)
}

// Metadata returns the accumulated record.
func (r *Resolver) Metadata() entity.Metadata {
	return r.out
}
