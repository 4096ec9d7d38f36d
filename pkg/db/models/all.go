package models

// All lists every persisted model, in dependency order, for schema bootstrapping in tests.
func All() []any {
	return []any{
		&Vendor{},
		&Product{},
		&DeliveryProfile{},
		&Order{},
		&OrderLineItem{},
		&Delivery{},
		&DeliveryRejection{},
		&OutboxEvent{},
		&OutboxDLQ{},
	}
}
