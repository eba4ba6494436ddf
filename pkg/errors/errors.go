package errors

func (d Definition) Error() string {
	return d.Message
}

// Definition 表示业务错误码及默认信息。
type Definition struct {
	Code    string
	Message string
}

// 通用错误。
var (
	InternalError    = Definition{Code: "INTERNAL_ERROR", Message: "Internal server error"}
	InvalidRequest   = Definition{Code: "INVALID_REQUEST", Message: "Invalid request"}
	InvalidContactID = Definition{Code: "INVALID_CONTACT_ID", Message: "Invalid contact ID format"}
	InvalidEmail     = Definition{Code: "INVALID_EMAIL", Message: "Invalid email address"}
	InvalidDate      = Definition{Code: "INVALID_DATE", Message: "Invalid date, expected YYYY-MM-DD"}
)

// 联系人模块错误。
var (
	ContactNotFound        = Definition{Code: "CONTACT_NOT_FOUND", Message: "Contact not found"}
	ContactTypeUnsupported = Definition{Code: "CONTACT_TYPE_UNSUPPORTED", Message: "Only Individual contacts are supported"}
)

// 姓名重建错误。
var (
	RebuildRunning = Definition{Code: "REBUILD_RUNNING", Message: "Name rebuild already running"}
)

// 配置项模块错误。
var (
	SettingUnknown = Definition{Code: "SETTING_UNKNOWN", Message: "Setting unknown"}
	SettingInvalid = Definition{Code: "SETTING_INVALID", Message: "Setting value invalid"}
)

// 选项（前缀/后缀）模块错误。
var (
	OptionGroupUnknown = Definition{Code: "OPTION_GROUP_UNKNOWN", Message: "Option group unknown"}
)

// SkipMessageError 消费端遇到重复消息时返回，消息直接确认不再重试
type SkipMessageError struct {
	Reason string
}

func (e *SkipMessageError) Error() string {
	return e.Reason
}
