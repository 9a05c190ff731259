package constants

type Role string

const (
	RoleDonor     Role = "donor"
	RoleRecipient Role = "recipient"
	RoleCarrier   Role = "carrier"
)

func (r Role) Valid() bool {
	switch r {
	case RoleDonor, RoleRecipient, RoleCarrier:
		return true
	}
	return false
}
