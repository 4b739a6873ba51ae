package rbac

type EnforceRequest struct {
	Role     string `json:"role" binding:"required"`
	Resource string `json:"resource" binding:"required"`
	Action   string `json:"action" binding:"required"`
}

type EnforceResponse struct {
	Allowed bool `json:"allowed"`
}

// Policy allows Role to perform Action on Resource.
type Policy struct {
	Role     string
	Resource string
	Action   string
}

// Inheritance makes Role hold every permission of Parent.
type Inheritance struct {
	Role   string
	Parent string
}
