package collections

import (
	"fmt"
	"log"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"

	"estimator/services"
)

// Setup programmatically creates/ensures the estimates and
// estimate_templates collections exist.
func Setup(app *pocketbase.PocketBase) {
	ensureCollection(app, "estimates", func(c *core.Collection) {
		c.Fields.Add(&core.TextField{Name: "title", Required: true})
		c.Fields.Add(&core.SelectField{
			Name:      "category",
			Required:  true,
			Values:    services.Categories,
			MaxSelect: 1,
		})
		c.Fields.Add(&core.TextField{Name: "schema_version", Required: false})
		c.Fields.Add(&core.NumberField{Name: "revision", Required: false, OnlyInt: true})
		c.Fields.Add(&core.JSONField{Name: "document", MaxSize: 5 << 20})
		c.Fields.Add(&core.AutodateField{Name: "created", OnCreate: true})
		c.Fields.Add(&core.AutodateField{Name: "updated", OnCreate: true, OnUpdate: true})
	})

	ensureCollection(app, "estimate_templates", func(c *core.Collection) {
		c.Fields.Add(&core.SelectField{
			Name:      "category",
			Required:  true,
			Values:    services.Categories,
			MaxSelect: 1,
		})
		c.Fields.Add(&core.BoolField{Name: "builtin"})
		c.Fields.Add(&core.JSONField{Name: "document", MaxSize: 5 << 20})
		c.Fields.Add(&core.AutodateField{Name: "created", OnCreate: true})
		c.Fields.Add(&core.AutodateField{Name: "updated", OnCreate: true, OnUpdate: true})
		c.AddIndex("idx_estimate_templates_category", true, "category", "")
	})
}

// ensureCollection checks if a collection already exists by name. If it does,
// the existing collection is returned. Otherwise a new base collection is
// created, the addFields callback is invoked to populate its fields, and the
// collection is saved.
func ensureCollection(app *pocketbase.PocketBase, name string, addFields func(*core.Collection)) *core.Collection {
	existing, err := app.FindCollectionByNameOrId(name)
	if err == nil && existing != nil {
		log.Printf("Collection %q already exists, skipping creation.\n", name)
		return existing
	}

	collection := core.NewBaseCollection(name)
	addFields(collection)

	if err := app.Save(collection); err != nil {
		log.Fatalf("Failed to create collection %q: %v", name, err)
	}

	fmt.Printf("Created collection %q (id=%s)\n", name, collection.Id)
	return collection
}
