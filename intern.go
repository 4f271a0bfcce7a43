package pymarshal

import "github.com/puzpuzpuz/xsync/v4"

// InternPool deduplicates interned strings across decodes, so the thousands
// of repeated identifiers in a batch of module streams share backing storage.
// A pool is safe for concurrent use by any number of decoders.
//
// Pooling is opt-in per decoder and never changes decode results, only which
// string instances come back. Separate pools keep unrelated sessions
// isolated; the zero-configured decoder shares nothing.
type InternPool struct {
	m *xsync.Map[string, string]
}

// NewInternPool creates an empty pool.
func NewInternPool() *InternPool {
	return &InternPool{m: xsync.NewMap[string, string]()}
}

// Intern returns the pooled instance of s, adding s on first sight.
func (p *InternPool) Intern(s string) string {
	if v, ok := p.m.Load(s); ok {
		return v
	}
	v, _ := p.m.LoadOrStore(s, s)
	return v
}

// Len returns the number of distinct strings held.
func (p *InternPool) Len() int {
	return p.m.Size()
}
