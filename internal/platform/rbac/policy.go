package rbac

// Policy is the static access-control configuration a Registry is built
// from. Every role must list every resource, even when the set is empty.
type Policy struct {
	Permissions   map[Role]map[Resource]ActionSet
	AllowedRoutes map[Role][]string
	DefaultRoutes map[Role]string
	// FallbackRoute is the landing route for unrecognized roles.
	FallbackRoute string
}

// SharedRoutePrefix is the common area every role may enter.
const SharedRoutePrefix = "/client"

var (
	createReadUpdate = Allow(ActionCreate, ActionRead, ActionUpdate)
	createRead       = Allow(ActionCreate, ActionRead)
	readUpdate       = Allow(ActionRead, ActionUpdate)
	readOnly         = Allow(ActionRead)
)

// DefaultPolicy returns the hospital permission matrix and route maps.
func DefaultPolicy() Policy {
	return Policy{
		Permissions: map[Role]map[Resource]ActionSet{
			RoleAdmin: {
				ResourcePatients:      CRUD,
				ResourceVisits:        CRUD,
				ResourceDiagnoses:     CRUD,
				ResourceTreatments:    CRUD,
				ResourceVitals:        CRUD,
				ResourceLabRequests:   CRUD,
				ResourceLabResults:    CRUD,
				ResourcePrescriptions: CRUD,
				ResourceUsers:         CRUD,
				ResourceAuditLogs:     readOnly,
				ResourceSettings:      readUpdate,
				ResourceOwnProfile:    readUpdate,
				ResourceOwnRecords:    readOnly,
			},
			RoleDoctor: {
				ResourcePatients:      createReadUpdate,
				ResourceVisits:        createReadUpdate,
				ResourceDiagnoses:     createReadUpdate,
				ResourceTreatments:    createReadUpdate,
				ResourceVitals:        readOnly,
				ResourceLabRequests:   createRead,
				ResourceLabResults:    readOnly,
				ResourcePrescriptions: createReadUpdate,
				ResourceUsers:         None,
				ResourceAuditLogs:     None,
				ResourceSettings:      None,
				ResourceOwnProfile:    readUpdate,
				ResourceOwnRecords:    readOnly,
			},
			RoleNurse: {
				ResourcePatients:      readUpdate,
				ResourceVisits:        createReadUpdate,
				ResourceDiagnoses:     readOnly,
				ResourceTreatments:    readOnly,
				ResourceVitals:        createReadUpdate,
				ResourceLabRequests:   readOnly,
				ResourceLabResults:    readOnly,
				ResourcePrescriptions: readOnly,
				ResourceUsers:         None,
				ResourceAuditLogs:     None,
				ResourceSettings:      None,
				ResourceOwnProfile:    readUpdate,
				ResourceOwnRecords:    readOnly,
			},
			RoleLabTechnician: {
				ResourcePatients:      readOnly,
				ResourceVisits:        None,
				ResourceDiagnoses:     None,
				ResourceTreatments:    None,
				ResourceVitals:        None,
				ResourceLabRequests:   readUpdate,
				ResourceLabResults:    createReadUpdate,
				ResourcePrescriptions: None,
				ResourceUsers:         None,
				ResourceAuditLogs:     None,
				ResourceSettings:      None,
				ResourceOwnProfile:    readUpdate,
				ResourceOwnRecords:    readOnly,
			},
			RolePharmacist: {
				ResourcePatients:      readOnly,
				ResourceVisits:        None,
				ResourceDiagnoses:     None,
				ResourceTreatments:    None,
				ResourceVitals:        None,
				ResourceLabRequests:   None,
				ResourceLabResults:    None,
				ResourcePrescriptions: readUpdate,
				ResourceUsers:         None,
				ResourceAuditLogs:     None,
				ResourceSettings:      None,
				ResourceOwnProfile:    readUpdate,
				ResourceOwnRecords:    readOnly,
			},
			RolePatient: {
				ResourcePatients:      None,
				ResourceVisits:        None,
				ResourceDiagnoses:     None,
				ResourceTreatments:    None,
				ResourceVitals:        None,
				ResourceLabRequests:   None,
				ResourceLabResults:    None,
				ResourcePrescriptions: None,
				ResourceUsers:         None,
				ResourceAuditLogs:     None,
				ResourceSettings:      None,
				ResourceOwnProfile:    readUpdate,
				ResourceOwnRecords:    readOnly,
			},
		},
		AllowedRoutes: map[Role][]string{
			RoleAdmin:         {"/admin", SharedRoutePrefix},
			RoleDoctor:        {"/clinician", SharedRoutePrefix},
			RoleNurse:         {"/clinician", SharedRoutePrefix},
			RoleLabTechnician: {"/lab", SharedRoutePrefix},
			RolePharmacist:    {"/pharmacy", SharedRoutePrefix},
			RolePatient:       {"/patient", SharedRoutePrefix},
		},
		DefaultRoutes: map[Role]string{
			RolePatient:       "/patient",
			RoleDoctor:        "/clinician",
			RoleNurse:         "/clinician",
			RoleLabTechnician: "/lab",
			RolePharmacist:    "/pharmacy",
			RoleAdmin:         "/admin",
		},
		FallbackRoute: "/patient",
	}
}
