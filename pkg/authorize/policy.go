package authorize

// modelText is the casbin model: role-based with inheritance and explicit deny.
const modelText = `[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act, eft

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow)) && !some(where (p.eft == deny))

[matchers]
m = g(r.sub, p.sub) && (p.obj == "*" || r.obj == p.obj) && (p.act == "*" || r.act == p.act)
`

// defaultPolicies is used unless authorization.policy_path points elsewhere.
var defaultPolicies = [][]string{
	{string(RoleViewer), string(ResourceClinic), string(ActionRead), string(EffectAllow)},
	{string(RoleViewer), string(ResourceQueue), string(ActionRead), string(EffectAllow)},

	{string(RoleStaff), string(ResourceQueue), string(ActionExecute), string(EffectAllow)},
	{string(RoleStaff), string(ResourceEntry), string(ActionCreate), string(EffectAllow)},
	{string(RoleStaff), string(ResourceEntry), string(ActionUpdate), string(EffectAllow)},
	{string(RoleStaff), string(ResourceEntry), string(ActionDelete), string(EffectAllow)},
	{string(RoleStaff), string(ResourcePatient), string(ActionRead), string(EffectAllow)},
	{string(RoleStaff), string(ResourcePatient), string(ActionCreate), string(EffectAllow)},

	{string(RoleAdmin), string(WildcardResource), string(WildcardAction), string(EffectAllow)},
}

var defaultGroupings = [][]string{
	{string(RoleStaff), string(RoleViewer)},
	{string(RoleAdmin), string(RoleStaff)},
}
