package events

// Topic constants for domain events emitted by the point of sale.
const (
	TopicSaleCreated    = "sale.created"
	TopicSaleVoided     = "sale.voided"
	TopicRegisterOpened = "register.opened"
	TopicRegisterClosed = "register.closed"
	TopicRateUpdated    = "rate.updated"
)

// DefaultTopics returns the canonical list of topics the bus emits.
func DefaultTopics() []string {
	return []string{
		TopicSaleCreated,
		TopicSaleVoided,
		TopicRegisterOpened,
		TopicRegisterClosed,
		TopicRateUpdated,
	}
}
