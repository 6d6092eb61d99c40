package auth

import (
	"fmt"

	"github.com/casbin/casbin/v2"

	"github.com/owaso30/ManualApp/internal/logger"
)

// Route-level roles. Authenticated users are granted the "user" role on
// first login (plus "admin" when flagged); resource-level decisions are
// made by the access evaluator, not here.
const (
	RoleAnonymous = "anonymous"
	RoleUser      = "user"
	RoleAdmin     = "admin"
)

// SeedDefaultPolicies ensures that the application has a baseline set of
// route authorization rules. It checks if each default policy exists
// before adding it, making the operation idempotent and safe to run on
// every application start.
func SeedDefaultPolicies(e casbin.IEnforcer, log logger.Logger) {
	log.Info("Seeding default authorization policies...")

	policies := [][]string{
		// Anonymous users can reach the auth flow and health/metrics probes.
		{RoleAnonymous, "/auth/login", "GET"},
		{RoleAnonymous, "/auth/callback", "GET"},
		{RoleAnonymous, "/healthz", "GET"},
		{RoleAnonymous, "/metrics", "GET"},

		// Authenticated users get the full API surface; resource-level
		// checks happen in the services.
		{RoleUser, "/auth/logout", "GET"},
		{RoleUser, "/api/*", "GET"},
		{RoleUser, "/api/*", "POST"},
		{RoleUser, "/api/*", "PUT"},
		{RoleUser, "/api/*", "DELETE"},
	}
	for _, p := range policies {
		if has, _ := e.HasPolicy(p); !has {
			if _, err := e.AddPolicy(p); err != nil {
				log.Error(err, fmt.Sprintf("Failed to add policy %v", p))
			}
		}
	}

	// Role hierarchy: user inherits anonymous, admin inherits user.
	inherits := [][2]string{
		{RoleUser, RoleAnonymous},
		{RoleAdmin, RoleUser},
	}
	for _, pair := range inherits {
		if has, _ := e.HasRoleForUser(pair[0], pair[1]); !has {
			if _, err := e.AddRoleForUser(pair[0], pair[1]); err != nil {
				log.Error(err, fmt.Sprintf("Failed to add role %s -> %s", pair[0], pair[1]))
			}
		}
	}
	log.Info("Policy seeding complete.")
}

// GrantLoginRoles assigns the route roles for a subject at login time.
func GrantLoginRoles(e casbin.IEnforcer, subject string, isAdmin bool) error {
	if _, err := e.AddRoleForUser(subject, RoleUser); err != nil {
		return err
	}
	if isAdmin {
		if _, err := e.AddRoleForUser(subject, RoleAdmin); err != nil {
			return err
		}
	}
	return nil
}
