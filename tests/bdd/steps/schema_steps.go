//go:build bdd

package steps

import (
	"encoding/json"
	"fmt"

	"github.com/cucumber/godog"
)

// RegisterSchemaSteps registers step definitions over this registry's
// schema CRUD surface (spec §4.4): POST /, GET/DELETE
// /schemas/ids/{id}, GET/DELETE /names[/{name}[/versions]], GET
// /digests[/{digest}/versions].
func RegisterSchemaSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	ctx.Step(`^the schema registry is running$`, func() error {
		return tc.GET("/")
	})

	ctx.Step(`^no schemas are registered$`, func() error {
		// Each scenario gets a fresh in-process server (memory backend).
		return nil
	})

	ctx.Step(`^I register a schema document:$`, func(doc *godog.DocString) error {
		return tc.POST("/", json.RawMessage(doc.Content))
	})

	ctx.Step(`^I register schema "([^"]*)" under name "([^"]*)":$`, func(varName, name string, doc *godog.DocString) error {
		if err := tc.POST("/names/"+name+"/versions", json.RawMessage(doc.Content)); err != nil {
			return err
		}
		if tc.LastStatusCode == 200 {
			id, err := tc.JSONFieldString("id")
			if err == nil {
				tc.StoredValues[varName] = id
			}
		}
		return nil
	})

	ctx.Step(`^I store the registered id as "([^"]*)"$`, func(varName string) error {
		id, err := tc.JSONFieldString("id")
		if err != nil {
			return err
		}
		tc.StoredValues[varName] = id
		return nil
	})

	ctx.Step(`^I fetch schema "([^"]*)"$`, func(varName string) error {
		id, ok := tc.StoredValues[varName]
		if !ok {
			return fmt.Errorf("no stored id %q", varName)
		}
		return tc.GET(fmt.Sprintf("/schemas/ids/%v", id))
	})

	ctx.Step(`^I fetch schema id "([^"]*)"$`, func(id string) error {
		return tc.GET("/schemas/ids/" + id)
	})

	ctx.Step(`^I delete schema "([^"]*)"$`, func(varName string) error {
		id, ok := tc.StoredValues[varName]
		if !ok {
			return fmt.Errorf("no stored id %q", varName)
		}
		return tc.DELETE(fmt.Sprintf("/schemas/ids/%v", id))
	})

	ctx.Step(`^I delete schema id "([^"]*)"$`, func(id string) error {
		return tc.DELETE("/schemas/ids/" + id)
	})

	ctx.Step(`^I list registered names$`, func() error {
		return tc.GET("/names")
	})

	ctx.Step(`^I delete name "([^"]*)"$`, func(name string) error {
		return tc.DELETE("/names/" + name)
	})

	ctx.Step(`^I list versions under name "([^"]*)"$`, func(name string) error {
		return tc.GET("/names/" + name + "/versions")
	})

	ctx.Step(`^I list distinct content digests$`, func() error {
		return tc.GET("/digests")
	})

	ctx.Step(`^I list versions sharing digest "([^"]*)"$`, func(digest string) error {
		return tc.GET("/digests/" + digest + "/versions")
	})

	// --- Generic HTTP + response assertions ---

	ctx.Step(`^I GET "([^"]*)"$`, func(path string) error {
		return tc.GET(path)
	})

	ctx.Step(`^the response status should be (\d+)$`, func(expected int) error {
		if tc.LastStatusCode != expected {
			return fmt.Errorf("expected status %d, got %d: %s", expected, tc.LastStatusCode, string(tc.LastBody))
		}
		return nil
	})

	ctx.Step(`^the response should contain field "([^"]*)"$`, func(key string) error {
		_, err := tc.JSONField(key)
		return err
	})

	ctx.Step(`^the response field "([^"]*)" should equal "([^"]*)"$`, func(key, expected string) error {
		val, err := tc.JSONFieldString(key)
		if err != nil {
			return err
		}
		if val != expected {
			return fmt.Errorf("expected field %q to equal %q, got %q", key, expected, val)
		}
		return nil
	})

	ctx.Step(`^the response array should have length (\d+)$`, func(expected int) error {
		if tc.LastJSONArray == nil {
			return fmt.Errorf("no JSON array in last response: %s", string(tc.LastBody))
		}
		if len(tc.LastJSONArray) != expected {
			return fmt.Errorf("expected array of length %d, got %d: %v", expected, len(tc.LastJSONArray), tc.LastJSONArray)
		}
		return nil
	})

	ctx.Step(`^the response array should contain "([^"]*)"$`, func(want string) error {
		for _, v := range tc.LastJSONArray {
			if s, ok := v.(string); ok && s == want {
				return nil
			}
		}
		return fmt.Errorf("expected array to contain %q, got %v", want, tc.LastJSONArray)
	})

	ctx.Step(`^stored values "([^"]*)" and "([^"]*)" should be equal$`, func(a, b string) error {
		va, ok := tc.StoredValues[a]
		if !ok {
			return fmt.Errorf("no stored value %q", a)
		}
		vb, ok := tc.StoredValues[b]
		if !ok {
			return fmt.Errorf("no stored value %q", b)
		}
		if va != vb {
			return fmt.Errorf("expected %q (%v) to equal %q (%v)", a, va, b, vb)
		}
		return nil
	})

	ctx.Step(`^the response array should be empty$`, func() error {
		if len(tc.LastJSONArray) != 0 {
			return fmt.Errorf("expected empty array, got %v", tc.LastJSONArray)
		}
		return nil
	})
}
