package itypes

import (
	"sync"

	"github.com/wippyai/wasm-interface-types/errors"
)

// RecordField is a named field of a record type.
type RecordField struct {
	Name string
	Type IType
}

// RecordType describes a record layout. Fields are laid out in order
// without padding.
type RecordType struct {
	Name   string
	Fields []RecordField
}

// NewRecordType builds a record type, rejecting an empty field list.
func NewRecordType(name string, fields ...RecordField) (*RecordType, error) {
	if len(fields) == 0 {
		return nil, errors.EmptyRecord(errors.PhaseParse, []string{name})
	}
	return &RecordType{Name: name, Fields: fields}, nil
}

// Registry maps record type ids to record types. Safe for concurrent use.
type Registry struct {
	records map[RecordID]*RecordType
	next    RecordID
	mu      sync.RWMutex
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{records: make(map[RecordID]*RecordType)}
}

// Register stores rt under id, replacing any previous entry.
func (r *Registry) Register(id RecordID, rt *RecordType) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[id] = rt
	if id >= r.next {
		r.next = id + 1
	}
}

// Add stores rt under the next free id and returns it.
func (r *Registry) Add(rt *RecordType) RecordID {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.next
	r.records[id] = rt
	r.next++
	return id
}

// ResolveRecord returns the record type for id.
func (r *Registry) ResolveRecord(id RecordID) (*RecordType, error) {
	r.mu.RLock()
	rt, ok := r.records[id]
	r.mu.RUnlock()
	if !ok {
		return nil, errors.RecordNotFound(errors.PhaseLift, id)
	}
	return rt, nil
}

// Len returns the number of registered record types.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records)
}
