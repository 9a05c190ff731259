// Package transitions holds the legal state graph for items and their delivery
// tasks, plus the ownership checks every coordinator runs before writing.
// Nothing in here touches storage.
package transitions

import (
	"fmt"
	"time"

	apperrors "surplus-relay.com/surplus-relay/internal/errors"
	"surplus-relay.com/surplus-relay/pkg/constants"
	model "surplus-relay.com/surplus-relay/pkg/models"
)

type itemEdge struct{ from, to constants.ItemStatus }

type taskEdge struct{ from, to constants.TaskStatus }

var itemGraph = map[itemEdge]struct{}{
	{constants.ItemAvailable, constants.ItemClaimed}:   {},
	{constants.ItemAvailable, constants.ItemExpired}:   {},
	{constants.ItemClaimed, constants.ItemAccepted}:    {},
	{constants.ItemClaimed, constants.ItemAvailable}:   {}, // reject
	{constants.ItemAccepted, constants.ItemInTransit}:  {},
	{constants.ItemAccepted, constants.ItemDelivered}:  {}, // volunteer completion
	{constants.ItemInTransit, constants.ItemDelivered}: {},
}

var taskGraph = map[taskEdge]struct{}{
	{constants.TaskPending, constants.TaskAssigned}:       {},
	{constants.TaskAssigned, constants.TaskPickedUp}:      {},
	{constants.TaskAssigned, constants.TaskDelivered}:     {}, // volunteer completion
	{constants.TaskAssigned, constants.TaskSelfDelivery}:  {},
	{constants.TaskPickedUp, constants.TaskDelivered}:     {},
	{constants.TaskSelfDelivery, constants.TaskDelivered}: {},
}

// ItemEdge reports whether the item graph allows from -> to.
func ItemEdge(from, to constants.ItemStatus) bool {
	_, ok := itemGraph[itemEdge{from, to}]
	return ok
}

// TaskEdge reports whether the task graph allows from -> to.
func TaskEdge(from, to constants.TaskStatus) bool {
	_, ok := taskGraph[taskEdge{from, to}]
	return ok
}

func invalidItem(item *model.Item, to constants.ItemStatus) error {
	return apperrors.Detail(apperrors.ErrInvalidTransition,
		fmt.Sprintf("item %s cannot move from %s to %s", item.ID, item.Status, to))
}

func invalidTask(task *model.Task, to constants.TaskStatus) error {
	return apperrors.Detail(apperrors.ErrInvalidTransition,
		fmt.Sprintf("task %s cannot move from %s to %s", task.ID, task.Status, to))
}

func unauthorized(format string, args ...any) error {
	return apperrors.Detail(apperrors.ErrUnauthorized, fmt.Sprintf(format, args...))
}

func isClaimant(item *model.Item, recipientID string) bool {
	return item.ClaimantID != nil && *item.ClaimantID == recipientID
}

// CanClaim checks a recipient's claim. An item some other recipient already
// holds is reported as ErrClaimLost, not as an invalid transition. An available
// item past its expiry is no longer claimable even before the sweeper runs.
func CanClaim(item *model.Item, recipientID string, now time.Time) error {
	if item.OwnerID == recipientID {
		return unauthorized("donor %s cannot claim their own item", recipientID)
	}
	if item.Status == constants.ItemAvailable {
		if item.Overdue(now) {
			return apperrors.Detail(apperrors.ErrInvalidTransition,
				fmt.Sprintf("item %s expired at %s", item.ID, item.ExpiresAt.UTC().Format(time.RFC3339)))
		}
		return nil
	}
	if item.Status.Held() && item.Status != constants.ItemDelivered {
		return apperrors.Detail(apperrors.ErrClaimLost, "item "+item.ID)
	}
	return invalidItem(item, constants.ItemClaimed)
}

func CanAccept(item *model.Item, donorID string) error {
	if item.OwnerID != donorID {
		return unauthorized("only the owner may accept claims on item %s", item.ID)
	}
	if !ItemEdge(item.Status, constants.ItemAccepted) {
		return invalidItem(item, constants.ItemAccepted)
	}
	return nil
}

func CanReject(item *model.Item, donorID string) error {
	if item.OwnerID != donorID {
		return unauthorized("only the owner may reject claims on item %s", item.ID)
	}
	if item.Status != constants.ItemClaimed {
		return invalidItem(item, constants.ItemAvailable)
	}
	return nil
}

func CanExpire(item *model.Item, donorID string) error {
	if item.OwnerID != donorID {
		return unauthorized("only the owner may expire item %s", item.ID)
	}
	if !ItemEdge(item.Status, constants.ItemExpired) {
		return invalidItem(item, constants.ItemExpired)
	}
	return nil
}

// CanAssignCarrier checks carrier self-assignment. A task that already has a
// carrier is reported as ErrAssignmentLost.
func CanAssignCarrier(task *model.Task, carrierID string) error {
	if carrierID == task.OwnerID || carrierID == task.ClaimantID {
		return unauthorized("carrier %s is a party to task %s", carrierID, task.ID)
	}
	if task.Status != constants.TaskPending && task.Status != constants.TaskAssigned {
		return invalidTask(task, constants.TaskAssigned)
	}
	if task.HasCarrier() {
		return apperrors.Detail(apperrors.ErrAssignmentLost, "task "+task.ID)
	}
	return nil
}

// CanAdvance checks a carrier-driven task move. The task must currently be in
// from, from -> to must be an edge, and the caller must be the assigned carrier.
func CanAdvance(task *model.Task, carrierID string, from, to constants.TaskStatus) error {
	if !task.CarriedBy(carrierID) {
		return unauthorized("carrier %s is not assigned to task %s", carrierID, task.ID)
	}
	if task.Status != from || !TaskEdge(from, to) {
		return invalidTask(task, to)
	}
	return nil
}

func CanPickUp(task *model.Task, item *model.Item, carrierID string) error {
	if err := CanAdvance(task, carrierID, constants.TaskAssigned, constants.TaskPickedUp); err != nil {
		return err
	}
	if !ItemEdge(item.Status, constants.ItemInTransit) {
		return invalidItem(item, constants.ItemInTransit)
	}
	return nil
}

// CanDeliver accepts picked-up tasks, and assigned tasks when the carrier is a
// volunteer who completes in one step.
func CanDeliver(task *model.Task, item *model.Item, carrierID string) error {
	from := constants.TaskPickedUp
	if task.Status == constants.TaskAssigned && task.IsVolunteer {
		from = constants.TaskAssigned
	}
	if err := CanAdvance(task, carrierID, from, constants.TaskDelivered); err != nil {
		return err
	}
	if !ItemEdge(item.Status, constants.ItemDelivered) {
		return invalidItem(item, constants.ItemDelivered)
	}
	return nil
}

// CanDirectDeliver is the donor's own delivery path. It never consults the
// carrier-assignment rule: the item must be accepted and its task still
// carrier-free. task is nil when the item has no task.
func CanDirectDeliver(item *model.Item, task *model.Task, donorID string) error {
	if item.OwnerID != donorID {
		return unauthorized("only the owner may deliver item %s directly", item.ID)
	}
	if item.Status != constants.ItemAccepted || task == nil {
		return invalidItem(item, constants.ItemInTransit)
	}
	if task.HasCarrier() || !TaskEdge(task.Status, constants.TaskSelfDelivery) {
		return invalidTask(task, constants.TaskSelfDelivery)
	}
	return nil
}

// CanConfirmReceipt returns done=true when the item is already delivered, in
// which case the caller must not write anything.
func CanConfirmReceipt(item *model.Item, recipientID string) (done bool, err error) {
	if !isClaimant(item, recipientID) {
		return false, unauthorized("only the claimant may confirm receipt of item %s", item.ID)
	}
	if item.Status == constants.ItemDelivered {
		return true, nil
	}
	if item.Status != constants.ItemInTransit {
		return false, invalidItem(item, constants.ItemDelivered)
	}
	return false, nil
}

func CanAddFeedback(item *model.Item, recipientID string) error {
	if !isClaimant(item, recipientID) {
		return unauthorized("only the claimant may leave feedback on item %s", item.ID)
	}
	if item.Status != constants.ItemDelivered {
		return apperrors.Detail(apperrors.ErrInvalidTransition,
			fmt.Sprintf("feedback requires a delivered item, %s is %s", item.ID, item.Status))
	}
	if item.Feedback != "" {
		return apperrors.Detail(apperrors.ErrInvalidTransition, "feedback already recorded for item "+item.ID)
	}
	return nil
}

// CanRelease lets the assigned carrier hand an unpicked task back.
func CanRelease(task *model.Task, carrierID string) error {
	if !task.CarriedBy(carrierID) {
		return unauthorized("carrier %s is not assigned to task %s", carrierID, task.ID)
	}
	if task.Status != constants.TaskAssigned {
		return apperrors.Detail(apperrors.ErrInvalidTransition,
			fmt.Sprintf("task %s is %s and can no longer be released", task.ID, task.Status))
	}
	return nil
}
