package rbac

// Simple default policy. Expand as needed.
var RolePermissions = map[string][]string{
	"student": {
		"progress:update",
		"progress:view-own",
		"interaction:record",
		"quiz:submit",
		"assignment:submit",
	},
	"teacher": {
		"progress:view-own",
		"progress:view-all",
		"aggregation:retry",
	},
	"admin": {
		"*", // everything
	},
}
