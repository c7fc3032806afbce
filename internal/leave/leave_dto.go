package leave

type CreateLeaveRequest struct {
	Type string `json:"type" binding:"required"`
	From string `json:"from" binding:"required"`
	To   string `json:"to" binding:"required"`
	Days int    `json:"days" binding:"required"`
	// UserID is honoured only for managers and admins.
	UserID string `json:"userId"`
}

type DecisionRequest struct {
	Reason string `json:"reason"`
}

type OwnerResponse struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	Email             string `json:"email"`
	Role              string `json:"role"`
	LeaveBalance      int    `json:"leave_balance"`
	TotalLeaveBalance int    `json:"total_leave_balance"`
}

type ApproverResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type LeaveResponse struct {
	ID             string            `json:"id"`
	UserID         string            `json:"user_id"`
	Owner          *OwnerResponse    `json:"user,omitempty"`
	Type           string            `json:"type"`
	From           string            `json:"from"`
	To             string            `json:"to"`
	Days           int               `json:"days"`
	Status         string            `json:"status"`
	ApproverID     *string           `json:"approver_id,omitempty"`
	Approver       *ApproverResponse `json:"approver,omitempty"`
	ApproverRemark string            `json:"approver_remark,omitempty"`
	DecidedAt      *string           `json:"decided_at,omitempty"`
	CreatedAt      string            `json:"created_at"`
	UpdatedAt      string            `json:"updated_at"`
}

type BalanceOwner struct {
	ID                string `json:"id"`
	LeaveBalance      int    `json:"leave_balance"`
	TotalLeaveBalance int    `json:"total_leave_balance"`
}

type ApprovalResponse struct {
	Leave LeaveResponse `json:"leave"`
	// User is nil when the owner no longer exists.
	User *BalanceOwner `json:"user"`
}

type BalanceResponse struct {
	UserID  string `json:"user_id"`
	Balance int    `json:"balance"`
}
