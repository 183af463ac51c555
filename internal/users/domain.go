package users

// User is one directory record, keyed by email. Roles holds role ids;
// order is irrelevant.
type User struct {
	Email       string   `json:"email"`
	Name        string   `json:"name"`
	Roles       []string `json:"roles"`
	IsRootAdmin bool     `json:"isRootAdmin"`
}

// DeleteStatus reports the outcome of the two-step user deletion.
type DeleteStatus string

const (
	// DeleteStatusDeleted means both the directory record and the identity
	// account are gone.
	DeleteStatusDeleted DeleteStatus = "deleted"
	// DeleteStatusPartial means the authoritative directory record is gone
	// but the identity-store cleanup failed and needs operator attention.
	DeleteStatusPartial DeleteStatus = "partially_deleted"
)
