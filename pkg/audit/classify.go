package audit

import (
	"fmt"

	"github.com/jamesrpstewart1/missing-fields-report-sub000/pkg/model"
)

// Classify resolves every required field for every incident and keeps the
// ones with at least one blank, each paired with its missing field names in
// the required list's order. Fully documented incidents are dropped from the
// output, not kept with an empty list.
//
// A platform present in the input but absent from required is a setup
// defect: silently treating it as "zero required fields" would report every
// incident on that platform as fully documented.
func Classify(incidents []model.NormalizedIncident, required RequiredFields, resolver *Resolver) ([]model.ClassifiedIncident, error) {
	if resolver == nil {
		resolver = NewResolver(nil)
	}

	var out []model.ClassifiedIncident
	for _, inc := range incidents {
		fields, ok := required[inc.Platform]
		if !ok {
			return nil, fmt.Errorf("no required fields configured for platform %q", inc.Platform)
		}

		var missing []string
		for _, field := range fields {
			if resolver.Resolve(inc, field) == "" {
				missing = append(missing, field)
			}
		}
		if len(missing) == 0 {
			continue
		}
		out = append(out, model.ClassifiedIncident{
			NormalizedIncident: inc,
			MissingFields:      missing,
		})
	}
	return out, nil
}
