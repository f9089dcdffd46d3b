package core

import (
	"sort"
	"sync"
)

// VATTypeRegistry resolves a company's VAT types by ID.
type VATTypeRegistry interface {
	FindVATType(id int) (VATType, bool)
}

// AccountDirectory resolves chart-of-accounts entries. It is only used to label
// validation errors and to translate account codes; balancing works on opaque IDs.
type AccountDirectory interface {
	AccountByID(id int) (Account, bool)
	AccountByCode(code string) (Account, bool)
}

// VATTable is an in-memory VATTypeRegistry, loaded once per company and safe for concurrent reads.
type VATTable struct {
	mu    sync.RWMutex
	types map[int]VATType
}

func NewVATTable(types ...VATType) *VATTable {
	t := &VATTable{types: make(map[int]VATType, len(types))}
	t.Load(types)
	return t
}

// Load replaces the table contents.
func (t *VATTable) Load(types []VATType) {
	m := make(map[int]VATType, len(types))
	for _, vt := range types {
		m[vt.ID] = vt
	}
	t.mu.Lock()
	t.types = m
	t.mu.Unlock()
}

func (t *VATTable) FindVATType(id int) (VATType, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	vt, ok := t.types[id]
	return vt, ok
}

// All returns the VAT types ordered by ID.
func (t *VATTable) All() []VATType {
	t.mu.RLock()
	out := make([]VATType, 0, len(t.types))
	for _, vt := range t.types {
		out = append(out, vt)
	}
	t.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Chart is an in-memory AccountDirectory.
type Chart struct {
	byID   map[int]Account
	byCode map[string]Account
}

func NewChart(accounts ...Account) *Chart {
	c := &Chart{
		byID:   make(map[int]Account, len(accounts)),
		byCode: make(map[string]Account, len(accounts)),
	}
	for _, a := range accounts {
		c.byID[a.ID] = a
		c.byCode[a.Code] = a
	}
	return c
}

func (c *Chart) AccountByID(id int) (Account, bool) {
	a, ok := c.byID[id]
	return a, ok
}

func (c *Chart) AccountByCode(code string) (Account, bool) {
	a, ok := c.byCode[code]
	return a, ok
}

// Accounts returns every account ordered by code.
func (c *Chart) Accounts() []Account {
	out := make([]Account, 0, len(c.byID))
	for _, a := range c.byID {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}
