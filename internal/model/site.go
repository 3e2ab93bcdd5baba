package model

// Site is a coded reference entity: a plant or warehouse location.
type Site struct {
	CodedEntity
}

// SiteConfig drives the generic stack for sites. Sites are the baseline
// case: pure configuration, no entity-specific behavior.
func SiteConfig() EntityConfig {
	return EntityConfig{
		EntityName:       "site",
		TableName:        "sites",
		APIPath:          "/sites",
		CodeLength:       5,
		SearchableFields: []string{"code", "name"},
		DefaultLimit:     20,
		MaxLimit:         100,
		Roles:            DefaultRouteRoles(),
	}
}
