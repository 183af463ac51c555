package roles

// Role is one node of the hierarchy. ParentID points at another role or at
// the TOP_LEVEL sentinel; the id is system-generated and immutable.
type Role struct {
	ID       string `json:"id"`
	RoleType string `json:"roleType"`
	Name     string `json:"name"`
	ParentID string `json:"parentId"`
}
