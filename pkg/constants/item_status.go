package constants

type ItemStatus string

const (
	ItemAvailable ItemStatus = "available"
	ItemClaimed   ItemStatus = "claimed"
	ItemAccepted  ItemStatus = "accepted"
	ItemInTransit ItemStatus = "in-transit"
	ItemDelivered ItemStatus = "delivered"
	ItemExpired   ItemStatus = "expired"
)

// Held reports whether a claimant currently holds the item.
func (s ItemStatus) Held() bool {
	switch s {
	case ItemClaimed, ItemAccepted, ItemInTransit, ItemDelivered:
		return true
	}
	return false
}
