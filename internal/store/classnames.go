package store

// Well-known class tags the object store's cascade and ownership logic
// branches on (spec.md §4.2, §4.3.4). These are reference-ontology class
// names, not core-defined types — the schema registry remains entirely
// data-driven; only this handful of cascade rules names specific classes,
// exactly as spec.md §4.2 "Referential cascades" does.
const (
	CNameThing               = "Thing"
	CNameProduct             = "Product"
	CNameHardwareProduct     = "HardwareProduct"
	CNameSoftwareProduct     = "SoftwareProduct"
	CNameTemplate            = "Template"
	CNameAcu                 = "Acu"
	CNamePort                = "Port"
	CNameFlow                = "Flow"
	CNameRequirement         = "Requirement"
	CNameRelation            = "Relation"
	CNameParameterRelation   = "ParameterRelation"
	CNameRoleAssignment      = "RoleAssignment"
	CNameProjectSystemUsage  = "ProjectSystemUsage"
	CNameProject             = "Project"
	CNameOrganization        = "Organization"
	CNamePerson              = "Person"
	CNameParameterDefinition = "ParameterDefinition"
	CNameParameterContext    = "ParameterContext"
	CNameDataElementDef      = "DataElementDefinition"
	CNameRequirementAncestry = "RequirementAncestry"
	CNameModel               = "Model"
	CNameDiscipline          = "Discipline"
	CNameRole                = "Role"
	CNameRoleAssignmentCtx   = "RoleAssignmentContext"

	// Serializer topological order / migration (spec.md §4.4).
	CNamePortType           = "PortType"
	CNamePortTemplate       = "PortTemplate"
	CNameProductType        = "ProductType"
	CNameActivityType       = "ActivityType"
	CNameDigitalProduct     = "DigitalProduct"
	CNameActivity           = "Activity"
	CNameMission            = "Mission"
	CNameActCompRel         = "ActCompRel"
	CNameRepresentation     = "Representation"
	CNameRepresentationFile = "RepresentationFile"

	// Reference-data and universally-modifiable-helper classes the
	// Permission Oracle branches on (spec.md §4.5 rules 8-9).
	CNameDisciplineProductType = "DisciplineProductType"
	CNameDisciplineRole        = "DisciplineRole"
	CNameModelType             = "ModelType"
	CNameModelFamily           = "ModelFamily"
)

// ReferenceDataClasses are the fixed, vendor-supplied classes present in
// every install (spec.md §4.5 rule 8, §GLOSSARY "Reference data"). The
// Serializer excludes instances of these unless explicitly requested; the
// Permission Oracle grants them {view} only.
var ReferenceDataClasses = []string{
	CNameActivityType, CNameDisciplineProductType, CNameDisciplineRole,
	CNameModelType, CNameModelFamily, CNameParameterContext, CNamePortTemplate,
	CNamePortType, CNameProductType, CNameRole, CNameDataElementDef, CNameDiscipline,
}

// HelperClasses are universally modifiable regardless of ownership (spec.md
// §4.5 rule 9).
var HelperClasses = []string{
	CNameActCompRel, CNameParameterRelation, CNameRelation,
	CNameRepresentation, CNameRequirementAncestry,
}

// CanonicalHardwareParameters are seeded with a value of 0 on every
// HardwareProduct that lacks them (spec.md §4.2 save()).
var CanonicalHardwareParameters = []string{"m", "P", "R_D"}

// PlatformRootOrganization is the owner of last resort when an
// Organization's parent chain is exhausted (spec.md §4.2, §9 supplement).
const PlatformRootOrganization = "platform-root"
