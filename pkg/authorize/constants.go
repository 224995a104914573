package authorize

type Action string
type Resource string
type Role string

// ----------------------------
// Actions
// ----------------------------

const (
	ActionRead    Action = "read"
	ActionCreate  Action = "create"
	ActionUpdate  Action = "update"
	ActionDelete  Action = "delete"
	ActionExecute Action = "execute" // start, close, call next
	ActionManage  Action = "manage"
)

const (
	WildcardAction Action = "*"
)

var KnownActions = map[Action]struct{}{
	ActionRead: {}, ActionCreate: {}, ActionUpdate: {}, ActionDelete: {},
	ActionExecute: {}, ActionManage: {},
}

// ----------------------------
// Resources
// ----------------------------

const (
	WildcardResource Resource = "*"

	ResourceClinic   Resource = "clinic"
	ResourceSettings Resource = "clinic_settings"
	ResourceQueue    Resource = "queue"
	ResourceEntry    Resource = "queue_entry"
	ResourcePatient  Resource = "patient"
	ResourceSystem   Resource = "system"
)

var KnownResources = map[Resource]struct{}{
	ResourceClinic: {}, ResourceSettings: {}, ResourceQueue: {}, ResourceEntry: {},
	ResourcePatient: {}, ResourceSystem: {},
}

// ----------------------------
// Roles
// ----------------------------
//
// Roles arrive in the "role" claim of the staff token. Each role inherits the
// permissions of the one before it.

const (
	RoleViewer Role = "viewer"
	RoleStaff  Role = "staff"
	RoleAdmin  Role = "admin"
)

var KnownRoles = map[Role]struct{}{
	RoleViewer: {},
	RoleStaff:  {},
	RoleAdmin:  {},
}

// Persian display names
var RoleDisplayNamesFA = map[Role]string{
	RoleViewer: "مشاهده‌گر",
	RoleStaff:  "پذیرش",
	RoleAdmin:  "مدیر کلینیک",
}

type PolicyEffect string

const (
	EffectAllow PolicyEffect = "allow"
	EffectDeny  PolicyEffect = "deny"
)
