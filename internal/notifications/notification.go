// Package notifications defines one payload type per state transition. Each
// type carries its own fan-out list, so adding a transition means adding a
// type here rather than threading untyped maps through the emitter.
package notifications

type Kind string

const (
	KindClaimPlaced         Kind = "claim.placed"
	KindClaimAccepted       Kind = "claim.accepted"
	KindClaimRejected       Kind = "claim.rejected"
	KindCarrierAssigned     Kind = "task.carrier_assigned"
	KindCarrierReleased     Kind = "task.carrier_released"
	KindPickedUp            Kind = "task.picked_up"
	KindDelivered           Kind = "task.delivered"
	KindSelfDeliveryStarted Kind = "item.self_delivery_started"
	KindReceiptConfirmed    Kind = "item.receipt_confirmed"
	KindItemExpired         Kind = "item.expired"
	KindBadgeEarned         Kind = "carrier.badge_earned"
)

// Notification is implemented only by the payload types in this package.
type Notification interface {
	Kind() Kind
	Recipients() []string
	sealed()
}

type ClaimPlaced struct {
	ItemID      string `json:"item_id"`
	TaskID      string `json:"task_id"`
	DonorID     string `json:"donor_id"`
	RecipientID string `json:"recipient_id"`
}

type ClaimAccepted struct {
	ItemID      string `json:"item_id"`
	TaskID      string `json:"task_id"`
	DonorID     string `json:"donor_id"`
	RecipientID string `json:"recipient_id"`
}

type ClaimRejected struct {
	ItemID      string `json:"item_id"`
	DonorID     string `json:"donor_id"`
	RecipientID string `json:"recipient_id"`
}

type CarrierAssigned struct {
	ItemID      string `json:"item_id"`
	TaskID      string `json:"task_id"`
	DonorID     string `json:"donor_id"`
	RecipientID string `json:"recipient_id"`
	CarrierID   string `json:"carrier_id"`
	Volunteer   bool   `json:"volunteer"`
}

// CarrierReleased goes to the parties still waiting on the task, and to the
// carrier too when the release was not their own doing.
type CarrierReleased struct {
	ItemID        string `json:"item_id"`
	TaskID        string `json:"task_id"`
	DonorID       string `json:"donor_id"`
	RecipientID   string `json:"recipient_id"`
	CarrierID     string `json:"carrier_id"`
	Reason        string `json:"reason"`
	NotifyCarrier bool   `json:"-"`
}

type PickedUp struct {
	ItemID      string `json:"item_id"`
	TaskID      string `json:"task_id"`
	DonorID     string `json:"donor_id"`
	RecipientID string `json:"recipient_id"`
	CarrierID   string `json:"carrier_id"`
}

type Delivered struct {
	ItemID      string `json:"item_id"`
	TaskID      string `json:"task_id"`
	DonorID     string `json:"donor_id"`
	RecipientID string `json:"recipient_id"`
	CarrierID   string `json:"carrier_id"`
}

type SelfDeliveryStarted struct {
	ItemID      string `json:"item_id"`
	TaskID      string `json:"task_id"`
	DonorID     string `json:"donor_id"`
	RecipientID string `json:"recipient_id"`
}

type ReceiptConfirmed struct {
	ItemID      string `json:"item_id"`
	DonorID     string `json:"donor_id"`
	RecipientID string `json:"recipient_id"`
	CarrierID   string `json:"carrier_id,omitempty"`
}

type ItemExpired struct {
	ItemID  string `json:"item_id"`
	DonorID string `json:"donor_id"`
}

type BadgeEarned struct {
	CarrierID string `json:"carrier_id"`
	Badge     string `json:"badge"`
}

func (ClaimPlaced) Kind() Kind         { return KindClaimPlaced }
func (ClaimAccepted) Kind() Kind       { return KindClaimAccepted }
func (ClaimRejected) Kind() Kind       { return KindClaimRejected }
func (CarrierAssigned) Kind() Kind     { return KindCarrierAssigned }
func (CarrierReleased) Kind() Kind     { return KindCarrierReleased }
func (PickedUp) Kind() Kind            { return KindPickedUp }
func (Delivered) Kind() Kind           { return KindDelivered }
func (SelfDeliveryStarted) Kind() Kind { return KindSelfDeliveryStarted }
func (ReceiptConfirmed) Kind() Kind    { return KindReceiptConfirmed }
func (ItemExpired) Kind() Kind         { return KindItemExpired }
func (BadgeEarned) Kind() Kind         { return KindBadgeEarned }

func (n ClaimPlaced) Recipients() []string   { return []string{n.DonorID} }
func (n ClaimAccepted) Recipients() []string { return []string{n.RecipientID} }
func (n ClaimRejected) Recipients() []string { return []string{n.RecipientID} }
func (n CarrierAssigned) Recipients() []string {
	return []string{n.DonorID, n.RecipientID}
}
func (n CarrierReleased) Recipients() []string {
	if n.NotifyCarrier {
		return []string{n.DonorID, n.RecipientID, n.CarrierID}
	}
	return []string{n.DonorID, n.RecipientID}
}
func (n PickedUp) Recipients() []string            { return []string{n.DonorID, n.RecipientID} }
func (n Delivered) Recipients() []string           { return []string{n.DonorID, n.RecipientID} }
func (n SelfDeliveryStarted) Recipients() []string { return []string{n.RecipientID} }
func (n ReceiptConfirmed) Recipients() []string {
	if n.CarrierID != "" {
		return []string{n.DonorID, n.CarrierID}
	}
	return []string{n.DonorID}
}
func (n ItemExpired) Recipients() []string { return []string{n.DonorID} }
func (n BadgeEarned) Recipients() []string { return []string{n.CarrierID} }

func (ClaimPlaced) sealed()         {}
func (ClaimAccepted) sealed()       {}
func (ClaimRejected) sealed()       {}
func (CarrierAssigned) sealed()     {}
func (CarrierReleased) sealed()     {}
func (PickedUp) sealed()            {}
func (Delivered) sealed()           {}
func (SelfDeliveryStarted) sealed() {}
func (ReceiptConfirmed) sealed()    {}
func (ItemExpired) sealed()         {}
func (BadgeEarned) sealed()         {}
