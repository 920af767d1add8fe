package redisx

import "time"

const (
	// Cache dokumen order: pos:order:{order_id} -> JSON order
	KeyOrder = "pos:order:%s"

	// Cache dokumen product: pos:product:{product_id} -> JSON product
	KeyProduct = "pos:product:%s"
)

var (
	TTLOrder   = 5 * time.Minute
	TTLProduct = 5 * time.Minute
)
