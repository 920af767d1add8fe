package pos

const (
	TopicOrderCreated = "pos.order.created"
	TopicOrderEdited  = "pos.order.edited"
)

// Partition key = order_id, supaya semua event 1 order maintain urutan.
func PartitionKey(orderID string) []byte { return []byte(orderID) }
