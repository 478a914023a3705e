package collections

import (
	"fmt"

	"github.com/pocketbase/pocketbase"

	"estimator/services"
)

// Seed materializes the built-in default template for every estimate
// category through the template provider's lazy create-if-absent path, so
// a fresh install starts with all templates persisted. Safe to run on
// every startup: existing records are left alone.
func Seed(app *pocketbase.PocketBase) error {
	provider := services.NewTemplateProvider(
		services.NewTemplateStore(app),
		services.DefaultCalcPolicy(),
	)

	for _, category := range services.Categories {
		if _, err := provider.Get(category); err != nil {
			return fmt.Errorf("seed template %s: %w", category, err)
		}
	}
	return nil
}
