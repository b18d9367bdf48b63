package rbac

// Simple default policy. Expand as needed.
var RolePermissions = map[string][]string{
	"student": {
		"lesson:view",
		"quiz:view",
		"attempt:create",
		"attempt:view-own",
		"progress:view-own",
	},
	"teacher": {
		"lesson:*",
		"quiz:*",
		"attempt:view-all",
		"progress:view-all",
	},
	"admin": {
		"*", // everything
	},
}
