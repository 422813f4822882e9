// Package proto describes the wire contract of accountkeeper.v1.AccountService
// shared by the server and the CLI. Every method is unary and carries a
// google.protobuf.Struct in both directions; account_service.proto documents
// the fields of each message.
package proto

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "accountkeeper.v1.AccountService"

// DescriptorPath names the proto file in the service descriptor.
const DescriptorPath = "accountkeeper/v1/account_service.proto"

// DateLayout is the wire format of birth dates.
const DateLayout = "2006-01-02"

// Method names.
const (
	MethodPing                   = "Ping"
	MethodStartRegistration      = "StartRegistration"
	MethodResendRegistrationCode = "ResendRegistrationCode"
	MethodConfirmRegistration    = "ConfirmRegistration"
	MethodSetPassword            = "SetPassword"
	MethodLogin                  = "Login"
	MethodCompleteProfile        = "CompleteProfile"
	MethodCheckProfileCompleted  = "CheckProfileCompleted"
	MethodStartRecovery          = "StartRecovery"
	MethodCompleteRecovery       = "CompleteRecovery"
	MethodCreateCompany          = "CreateCompany"
	MethodAssignUserToCompany    = "AssignUserToCompany"
	MethodListCompanyMembers     = "ListCompanyMembers"
	MethodCreateCompanyMember    = "CreateCompanyMember"
	MethodUpdateMemberProfile    = "UpdateMemberProfile"
	MethodDeactivateMember       = "DeactivateMember"
	MethodGetAccessLevel         = "GetAccessLevel"
)

// FullMethod returns the "/service/method" path of name.
func FullMethod(name string) string {
	return "/" + ServiceName + "/" + name
}
