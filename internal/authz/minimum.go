package authz

// MinimumRole describes the least privilege that would have satisfied the
// check. Diagnostic logging only; it never feeds back into enforcement.
func MinimumRole(table, action string) string {
	switch table {
	case TableAuthUsers:
		switch action {
		case ActionUpdate:
			return "admin OR staff (staff cannot set role=admin, promote a tenant to staff, or self-promote)"
		default:
			return "admin"
		}
	case TableUserProfiles:
		if action == ActionCreate {
			return "owner (user_id must match acting identity)"
		}
		return "owner (profile owner only)"
	case TableMaintenance:
		if action == ActionCreate {
			return "tenant (own request) OR staff"
		}
		return "staff"
	}
	return "admin"
}
