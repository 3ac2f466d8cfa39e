package cnst

const (
	// AppName is the service name used for logging and tracing
	AppName = "substore-panel"

	// AuthCookieName is the session cookie carrying the JWT
	AuthCookieName = "auth_token"

	// SecretPathLength is the number of lowercase hex characters in a
	// tenant's secret path segment (16 random bytes, hex encoded)
	SecretPathLength = 32

	// DashboardPrefix is the locally served dashboard namespace
	DashboardPrefix = "/dashboard"

	// APIPrefix is the tenant-API namespace served by this process
	APIPrefix = "/api"

	// RoleAdmin and RoleUser are the only recognized tenant roles
	RoleAdmin = "admin"
	RoleUser  = "user"
)
