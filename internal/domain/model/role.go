package model

type Role string

const (
	RoleCustomer Role = "CUSTOMER"
	RoleVendor   Role = "VENDOR"
	RoleCSR      Role = "CSR"
	RoleAdmin    Role = "ADMIN"
)

// IsStaff はCSR/Adminか（注文の最終確定ができる）
func (r Role) IsStaff() bool {
	return r == RoleCSR || r == RoleAdmin
}
