package core

// Role admin capability
type Role string

const (
	// RoleAdmin list markets, update parameters, collect treasury
	RoleAdmin Role = "admin"
	// RoleOracle register oracle signers
	RoleOracle Role = "oracle"
	// RolePauser pause and unpause markets
	RolePauser Role = "pauser"
)

// Policy role membership injected into operations; authorization is the
// pure function Allowed(caller, role, policy)
type Policy struct {
	Admins  []string `json:"admins"`
	Oracles []string `json:"oracles"`
	Pausers []string `json:"pausers"`
}

// Allowed whether caller holds role under policy. Admins hold every
// role.
func Allowed(caller string, role Role, policy *Policy) bool {
	if contains(policy.Admins, caller) {
		return true
	}

	switch role {
	case RoleOracle:
		return contains(policy.Oracles, caller)
	case RolePauser:
		return contains(policy.Pausers, caller)
	default:
		return false
	}
}

func contains(members []string, caller string) bool {
	for _, m := range members {
		if m == caller {
			return true
		}
	}
	return false
}
