package orders

// One topic carries both event types; consumers switch on the envelope.
const TopicOrderEvents = "orders.events"

// Partition key = order id, so one order's events keep their relative order.
func PartitionKey(orderID string) []byte { return []byte(orderID) }
