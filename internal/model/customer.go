package model

// Customer is a coded reference entity: a company whose orders run through
// the plant.
type Customer struct {
	CodedEntity
}

// CustomerConfig drives the generic stack for customers.
func CustomerConfig() EntityConfig {
	return EntityConfig{
		EntityName:       "customer",
		TableName:        "customers",
		APIPath:          "/customers",
		CodeLength:       8,
		SearchableFields: []string{"code", "name"},
		DefaultLimit:     20,
		MaxLimit:         100,
		Roles:            DefaultRouteRoles(),
	}
}
