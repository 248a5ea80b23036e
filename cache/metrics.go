package cache

// NoopMetrics não faz nada; é o padrão quando não há backend configurado.
type NoopMetrics struct{}

func (NoopMetrics) Hit()              {}
func (NoopMetrics) Miss()             {}
func (NoopMetrics) Coalesced()        {}
func (NoopMetrics) LoadFailed()       {}
func (NoopMetrics) Evict(EvictReason) {}
func (NoopMetrics) Size(int, int)     {}

var _ Metrics = NoopMetrics{}
