package rbac

const (
	PermSessionStart   = "session:start"
	PermSessionViewAll = "session:view-all"
	PermResultViewOwn  = "result:view-own"
	PermBankView       = "bank:view"
	PermBankImport     = "bank:import"
)

// Default policy. Candidates take exams, proctors watch every session and
// manage the item bank.
var RolePermissions = map[string][]string{
	"candidate": {
		PermSessionStart,
		PermResultViewOwn,
		PermBankView,
	},
	"proctor": {
		"session:*",
		"result:*",
		"bank:*",
	},
	"admin": {
		"*", // everything
	},
}
