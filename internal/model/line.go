package model

// ProductionLine is a coded reference entity: one assembly or processing
// line on the shop floor.
type ProductionLine struct {
	CodedEntity
}

// ProductionLineConfig drives the generic stack for production lines.
func ProductionLineConfig() EntityConfig {
	return EntityConfig{
		EntityName:       "production line",
		TableName:        "production_lines",
		APIPath:          "/lines",
		CodeLength:       10,
		SearchableFields: []string{"code", "name"},
		DefaultLimit:     20,
		MaxLimit:         100,
		Roles:            DefaultRouteRoles(),
	}
}
