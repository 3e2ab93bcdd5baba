package model

// DefectCode is a coded reference entity: a classification for inspection
// failures (scratch, misalignment, contamination, ...).
type DefectCode struct {
	CodedEntity
}

// DefectCodeConfig drives the generic stack for defect codes. Reads are
// restricted to managers, exercising the per-entity role override path.
func DefectCodeConfig() EntityConfig {
	roles := DefaultRouteRoles()
	roles.Read = RoleManager
	return EntityConfig{
		EntityName:       "defect code",
		TableName:        "defect_codes",
		APIPath:          "/defect-codes",
		CodeLength:       6,
		SearchableFields: []string{"code", "name"},
		DefaultLimit:     50,
		MaxLimit:         200,
		Roles:            roles,
	}
}
