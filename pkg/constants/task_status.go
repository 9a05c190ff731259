package constants

type TaskStatus string

const (
	TaskPending      TaskStatus = "pending"
	TaskAssigned     TaskStatus = "assigned"
	TaskPickedUp     TaskStatus = "picked-up"
	TaskSelfDelivery TaskStatus = "self-delivery"
	TaskDelivered    TaskStatus = "delivered"

	// Reserved: part of the stored status domain but no transition leads into
	// them. A moving task stays picked-up or self-delivery, and a released
	// task stays assigned with no carrier instead of being cancelled.
	TaskInTransit TaskStatus = "in-transit"
	TaskCancelled TaskStatus = "cancelled"
)
