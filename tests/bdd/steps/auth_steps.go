//go:build bdd

package steps

import (
	"encoding/base64"

	"github.com/cucumber/godog"
)

// RegisterAuthSteps registers the credential steps exercising the
// "simple" HTTP Basic scheme (spec §4.4) — the only scheme this
// module's auth BDD server configures for in-process testing; ldap,
// oidc, and jwt each talk to an external directory/IdP and are
// covered by internal/auth's own unit tests instead (grounded on
// RegisterAuthSteps in the teacher's steps package, trimmed down from
// its API-key/RBAC/user-management step set, which has no analog in
// this registry's single-permission auth model).
func RegisterAuthSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	ctx.Step(`^I authenticate as "([^"]*)" with password "([^"]*)"$`, func(username, password string) error {
		tc.AuthHeader = "Basic " + base64.StdEncoding.EncodeToString([]byte(username+":"+password))
		return nil
	})

	ctx.Step(`^I clear authentication$`, func() error {
		tc.AuthHeader = ""
		return nil
	})
}
