package reconcile

// auditInterval is the tick spacing of the round-robin audit. One slot is
// audited every auditInterval ticks, so every slot is independently checked
// at least once per auditInterval * size ticks regardless of activity.
const auditInterval = 5

// OnTick expires due verification entries and advances the bounded audit.
// It is invoked once per tick from the simulation loop and never re-entered
// concurrently for the same session; packet handlers may keep writing while
// it runs.
func (r *Reconciler) OnTick() {
	tick := r.ticks.CurrentTick()

	for _, entry := range r.ledger.dueVerifications(tick) {
		r.verifier.CheckSync(entry.slot)
		r.ledger.expire(entry)
		if r.metrics != nil {
			r.metrics.Add(MetricVerificationsDue, 1)
		}
	}

	if tick%auditInterval != 0 {
		return
	}
	size := r.store.Size()
	if size == 0 {
		return
	}
	slot := int((tick / auditInterval) % uint64(size))
	// Slots mid-verification or mid-correction already have a resolution
	// scheduled; the audit only sweeps slots nothing else is watching.
	if !r.ledger.IsClean(slot) {
		return
	}
	r.verifier.CheckSync(slot)
	if r.metrics != nil {
		r.metrics.Add(MetricAuditChecks, 1)
	}
}
