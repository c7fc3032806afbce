package user

type UserResponse struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	Email             string `json:"email"`
	Role              string `json:"role"`
	LeaveBalance      int    `json:"leave_balance"`
	TotalLeaveBalance int    `json:"total_leave_balance"`
	CreatedAt         string `json:"created_at"`
}

// LeaveHistoryItem is one leave record as shown on the user details page.
type LeaveHistoryItem struct {
	ID             string  `json:"id"`
	Type           string  `json:"type"`
	From           string  `json:"from"`
	To             string  `json:"to"`
	Days           int     `json:"days"`
	Status         string  `json:"status"`
	ApproverID     *string `json:"approver_id,omitempty"`
	ApproverName   *string `json:"approver_name,omitempty"`
	ApproverRemark string  `json:"approver_remark,omitempty"`
	DecidedAt      *string `json:"decided_at,omitempty"`
	CreatedAt      string  `json:"created_at"`
}

type UserDetailsResponse struct {
	User   UserResponse       `json:"user"`
	Leaves []LeaveHistoryItem `json:"leaves"`
}

// SeedAccount describes a default account created on first boot.
type SeedAccount struct {
	Role     string
	Name     string
	Email    string
	Password string
}
