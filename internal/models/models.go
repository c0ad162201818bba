package models

// All lists every table owned by the reconciliation service, in migration order.
func All() []interface{} {
	return []interface{}{
		&LedgerTransaction{},
		&ReconciliationSession{},
		&StatementEntry{},
		&ReconciliationMatch{},
		&AuditLogEntry{},
	}
}
