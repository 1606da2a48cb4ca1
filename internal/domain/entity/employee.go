package entity

// Employee is an authenticated principal. Supervisor and department are
// plain identifiers resolved through repositories.
type Employee struct {
	EmployeeID        int64   `json:"EmployeeID"`
	SupervisorID      *int64  `json:"SupervisorID,omitempty"`
	DepartmentCode    *string `json:"DepartmentCode,omitempty"`
	PasswordHash      string  `json:"-"`
	FirstName         string  `json:"FirstName"`
	LastName          string  `json:"LastName"`
	BankAccountNumber string  `json:"BankAccountNumber,omitempty"`
}

// Department groups employees and is the default charge target of a claim
type Department struct {
	DepartmentCode string `json:"DepartmentCode"`
	DepartmentName string `json:"DepartmentName"`
}
