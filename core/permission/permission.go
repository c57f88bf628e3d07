package permission

import "strings"

// Roles. Closed set; assigned by the identity provider.
const (
	RoleAdmin            = "ADMIN"
	RoleCoordinator      = "COORDINATOR"
	RoleLecturer         = "LECTURER"
	RoleClassRep         = "CLASS_REP"
	RoleSupervisor       = "SUPERVISOR"
	RoleOnlineSupervisor = "ONLINE_SUPERVISOR"
)

// Capabilities. A role may hold a capability unscoped, or restricted to
// records it owns (`:own`) or records of its class group (`:class`).
const (
	CapAttendanceCreate  = "attendance:create"
	CapAttendanceRead    = "attendance:read"
	CapAttendanceVerify  = "attendance:verify"
	CapEscalationOpen    = "escalation:open"
	CapEscalationResolve = "escalation:resolve"
	CapReportExport      = "report:export"
)

const (
	scopeOwn   = ":own"
	scopeClass = ":class"
)

var AllRoles = []string{
	RoleAdmin,
	RoleCoordinator,
	RoleLecturer,
	RoleClassRep,
	RoleSupervisor,
	RoleOnlineSupervisor,
}

// roleCapabilities is the single authorization source of truth. Static;
// never mutated at runtime.
var roleCapabilities = map[string][]string{
	RoleAdmin: {
		CapAttendanceRead,
		CapAttendanceVerify,
		CapEscalationResolve,
		CapReportExport,
	},
	RoleCoordinator: {
		CapAttendanceRead,
		CapEscalationResolve,
		CapReportExport,
	},
	RoleLecturer: {
		CapAttendanceCreate + scopeOwn,
		CapAttendanceRead + scopeOwn,
		CapEscalationResolve + scopeOwn,
	},
	RoleClassRep: {
		CapAttendanceRead + scopeClass,
		CapAttendanceVerify + scopeClass,
	},
	RoleSupervisor: {
		CapAttendanceRead,
		CapAttendanceVerify,
		CapEscalationOpen,
	},
	RoleOnlineSupervisor: {
		CapAttendanceRead,
		CapAttendanceVerify,
		CapEscalationOpen,
	},
}

// Facts are the ownership/membership inputs a scoped capability check needs.
// They are established by the caller from the record and schedule at hand.
type Facts struct {
	IsOwner       bool
	IsClassMember bool
}

// Can reports whether `role` may exercise `capability` given `facts`.
// Resolution order, first match wins:
//  1. the role holds the unscoped capability outright;
//  2. facts.IsOwner and the role holds the `:own`-scoped capability;
//  3. facts.IsClassMember and the role holds the `:class`-scoped capability;
// otherwise deny. Both base and scoped tags are accepted as `capability`;
// scoped tags resolve through their base.
func Can(role, capability string, facts Facts) bool {
	base := baseCapability(capability)
	caps, ok := roleCapabilities[role]
	if !ok {
		return false
	}

	if holds(caps, base) {
		return true
	}
	if facts.IsOwner && holds(caps, base+scopeOwn) {
		return true
	}
	if facts.IsClassMember && holds(caps, base+scopeClass) {
		return true
	}
	return false
}

// Capabilities returns the capability tags held by `role`.
func Capabilities(role string) []string {
	caps := roleCapabilities[role]
	out := make([]string, len(caps))
	copy(out, caps)
	return out
}

func baseCapability(capability string) string {
	if s := strings.TrimSuffix(capability, scopeOwn); s != capability {
		return s
	}
	return strings.TrimSuffix(capability, scopeClass)
}

func holds(caps []string, capability string) bool {
	for _, c := range caps {
		if c == capability {
			return true
		}
	}
	return false
}
