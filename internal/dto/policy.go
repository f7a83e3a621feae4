package dto

// UpdatePolicyRequest edits a classroom's progression policy. Operation
// codes are upper-cased before validation.
type UpdatePolicyRequest struct {
	EnabledOperations []string `json:"enabledOperations" validate:"required,min=1,dive,oneof=ADD SUB MUL DIV"`
	OperationOrder    []string `json:"operationOrder" validate:"omitempty,dive,oneof=ADD SUB MUL DIV"`
	MaxNumber         int      `json:"maxNumber" validate:"min=1,max=100"`
}

// PolicyResponse is the resolved policy of a classroom.
type PolicyResponse struct {
	ClassroomID       string   `json:"classroomId"`
	EnabledOperations []string `json:"enabledOperations"`
	OperationOrder    []string `json:"operationOrder"`
	PrimaryOperation  string   `json:"primaryOperation"`
	MaxNumber         int      `json:"maxNumber"`
}
