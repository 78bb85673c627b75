package enum

// ── Order status state machine (CHECK constrained in DB) ──
//
// pending and process are the active states shown under the "in process" tab;
// completed and cancelled are terminal and shown under history. Transitions
// are one-directional: an order never leaves a terminal state.

const (
	OrderStatusPending   = "pending"
	OrderStatusProcess   = "process"
	OrderStatusCompleted = "completed"
	OrderStatusCancelled = "cancelled"
)

// ── User roles (CHECK constrained in DB, fixed at creation) ──

const (
	UserRoleAdmin    = "admin"
	UserRoleCustomer = "customer"
)
