package entity

// Relationship links a claimant to the object of a claim action.
type Relationship struct {
	Claimant string `json:"claimant"`
	Action   string `json:"action"`
	Object   string `json:"object"`
}

// Clause is a sentence the classifier placed in a recorded clause category.
type Clause struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Metadata is the fused per-page legal metadata record.
type Metadata struct {
	Dates         []string       `json:"dates"`
	Parties       []string       `json:"parties"`
	Claimants     []string       `json:"claimants"`
	Tribunals     []string       `json:"tribunals"`
	Relationships []Relationship `json:"relationships"`
	Clauses       []Clause       `json:"clauses"`

	// Degraded is set when a model step failed and its results are missing.
	Degraded bool `json:"-"`
}

// NewMetadata returns a record with every list initialized.
func NewMetadata() Metadata {
	return Metadata{
		Dates:         []string{},
		Parties:       []string{},
		Claimants:     []string{},
		Tribunals:     []string{},
		Relationships: []Relationship{},
		Clauses:       []Clause{},
	}
}

// Normalized replaces nil lists with empty ones so they marshal as [].
func (m Metadata) Normalized() Metadata {
	if m.Dates == nil {
		m.Dates = []string{}
	}
	if m.Parties == nil {
		m.Parties = []string{}
	}
	if m.Claimants == nil {
		m.Claimants = []string{}
	}
	if m.Tribunals == nil {
		m.Tribunals = []string{}
	}
	if m.Relationships == nil {
		m.Relationships = []Relationship{}
	}
	if m.Clauses == nil {
		m.Clauses = []Clause{}
	}
	return m
}
