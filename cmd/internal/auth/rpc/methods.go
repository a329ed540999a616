package rpc

import "fmt"

// Method identifies an RPC operation. The ids are fixed wire bytes shared
// with every client implementation.
type Method [4]byte

var (
	MethodInfo               = Method{'I', 'N', 'F', 'O'}
	MethodValidateToken      = Method{'V', 'A', 'L', 'I'}
	MethodGetRoles           = Method{'R', 'O', 'L', 'E'}
	MethodGetRolePermissions = Method{'P', 'E', 'R', 'M'}
	MethodCreateRole         = Method{'C', 'R', 'O', 'L'}
	MethodCreatePermission   = Method{'C', 'P', 'E', 'R'}
	MethodError              = Method{0x0F, 0x0F, 0x0F, 0x0F}
)

// String renders the method the way clients document it.
func (m Method) String() string {
	return fmt.Sprintf("0x%x 0x%x 0x%x 0x%x", m[0], m[1], m[2], m[3])
}
