package statement

import (
	"github.com/loykin/bridges/pkg/dialect"
	"github.com/loykin/bridges/pkg/record"
)

// EmptyUpdatePolicy decides what an upsert does on conflict when no field
// is left for its update branch.
type EmptyUpdatePolicy int

const (
	// ReassignTarget re-assigns a column target to its inserted value, so the
	// conflicting row is still returned. Constraint targets get DO NOTHING.
	ReassignTarget EmptyUpdatePolicy = iota
	// DoNothing always emits DO NOTHING.
	DoNothing
)

func (p EmptyUpdatePolicy) String() string {
	if p == DoNothing {
		return "do-nothing"
	}
	return "reassign-target"
}

// Option customizes a builder.
type Option func(*options)

type options struct {
	schema    string
	schemaSet bool
	returning *bool
	excluding []string
	policy    EmptyUpdatePolicy
}

// InSchema qualifies the table with schema, overriding the record's own.
func InSchema(schema string) Option {
	return func(o *options) {
		o.schema = schema
		o.schemaSet = true
	}
}

// NoReturning drops the RETURNING clause.
func NoReturning() Option {
	return func(o *options) {
		f := false
		o.returning = &f
	}
}

// Returning adds a RETURNING * clause.
func Returning() Option {
	return func(o *options) {
		t := true
		o.returning = &t
	}
}

// Excluding keeps the named columns out of an upsert's update branch.
func Excluding(columns ...string) Option {
	return func(o *options) {
		o.excluding = append(o.excluding, columns...)
	}
}

// OnEmptyUpdate sets the upsert policy for an empty update branch.
func OnEmptyUpdate(p EmptyUpdatePolicy) Option {
	return func(o *options) {
		o.policy = p
	}
}

func apply(r record.Record, returning bool, opts []Option) options {
	o := options{}
	for _, fn := range opts {
		fn(&o)
	}
	if !o.schemaSet && r != nil {
		o.schema = record.Schema(r)
	}
	if o.returning == nil {
		o.returning = &returning
	}
	return o
}

func (o options) table(d dialect.Dialect, name string) string {
	return dialect.Qualify(d, o.schema, name)
}
