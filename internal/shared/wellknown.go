package shared

// Well-known records and store tables.
const (
	// TopLevelParent is the sentinel parent id of top-of-tree roles.
	TopLevelParent = "TOP_LEVEL"

	// RootRoleID is the fixed id of the protected root role. The record is
	// seeded at startup and can never be edited or deleted.
	RootRoleID = "root"

	// RootAdminEmail keys the protected root-admin user record. Its role
	// set is frozen after seeding; only its name may change.
	RootAdminEmail = "root@grove.local"

	TableRoles  = "roles"
	TableUsers  = "users"
	TableTokens = "tokens"
)
