package rbac

// CheckRequest asks whether the caller's own role grants resource:action.
type CheckRequest struct {
	Resource string `json:"resource" binding:"required"`
	Action   string `json:"action" binding:"required"`
}
