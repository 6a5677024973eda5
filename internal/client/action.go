// Package client is the state layer of a vrt front end. Actions are
// dispatched into a Store; APIMiddleware turns request actions into HTTP
// calls and dispatches their outcomes; reducers fold outcomes into State;
// SyncSession mirrors the signed-in user to local storage.
package client

// Type identifies an action.
type Type string

// Action is a single intent or outcome. Actions are values and are not
// modified after dispatch.
type Action struct {
	Type    Type
	Payload any
	// Error marks failure outcomes. Their payload is the error text.
	Error bool
}

// Request types and their outcomes.
const (
	LoginRequest Type = "LOGIN_REQUEST"
	LoginSuccess Type = "LOGIN_SUCCESS"
	LoginFailure Type = "LOGIN_FAILURE"

	RegisterRequest Type = "REGISTER_REQUEST"
	RegisterSuccess Type = "REGISTER_SUCCESS"
	RegisterFailure Type = "REGISTER_FAILURE"

	LogoutRequest Type = "LOGOUT_REQUEST"
	LogoutSuccess Type = "LOGOUT_SUCCESS"
	LogoutFailure Type = "LOGOUT_FAILURE"

	LoadUserRequest Type = "LOAD_USER_REQUEST"
	LoadUserSuccess Type = "LOAD_USER_SUCCESS"
	LoadUserFailure Type = "LOAD_USER_FAILURE"

	UpdateUserRequest Type = "UPDATE_USER_REQUEST"
	UpdateUserSuccess Type = "UPDATE_USER_SUCCESS"
	UpdateUserFailure Type = "UPDATE_USER_FAILURE"

	DeleteUserRequest Type = "DELETE_USER_REQUEST"
	DeleteUserSuccess Type = "DELETE_USER_SUCCESS"
	DeleteUserFailure Type = "DELETE_USER_FAILURE"

	CreatePlantRequest Type = "CREATE_PLANT_REQUEST"
	CreatePlantSuccess Type = "CREATE_PLANT_SUCCESS"
	CreatePlantFailure Type = "CREATE_PLANT_FAILURE"

	UpdatePlantRequest Type = "UPDATE_PLANT_REQUEST"
	UpdatePlantSuccess Type = "UPDATE_PLANT_SUCCESS"
	UpdatePlantFailure Type = "UPDATE_PLANT_FAILURE"

	LoadPlantRequest Type = "LOAD_PLANT_REQUEST"
	LoadPlantSuccess Type = "LOAD_PLANT_SUCCESS"
	LoadPlantFailure Type = "LOAD_PLANT_FAILURE"

	LoadPlantsRequest Type = "LOAD_PLANTS_REQUEST"
	LoadPlantsSuccess Type = "LOAD_PLANTS_SUCCESS"
	LoadPlantsFailure Type = "LOAD_PLANTS_FAILURE"

	DeletePlantRequest Type = "DELETE_PLANT_REQUEST"
	DeletePlantSuccess Type = "DELETE_PLANT_SUCCESS"
	DeletePlantFailure Type = "DELETE_PLANT_FAILURE"

	UpsertNoteRequest Type = "UPSERT_NOTE_REQUEST"
	UpsertNoteSuccess Type = "UPSERT_NOTE_SUCCESS"
	UpsertNoteFailure Type = "UPSERT_NOTE_FAILURE"

	LoadNotesRequest Type = "LOAD_NOTES_REQUEST"
	LoadNotesSuccess Type = "LOAD_NOTES_SUCCESS"
	LoadNotesFailure Type = "LOAD_NOTES_FAILURE"

	DeleteNoteRequest Type = "DELETE_NOTE_REQUEST"
	DeleteNoteSuccess Type = "DELETE_NOTE_SUCCESS"
	DeleteNoteFailure Type = "DELETE_NOTE_FAILURE"

	CreateLocationRequest Type = "CREATE_LOCATION_REQUEST"
	CreateLocationSuccess Type = "CREATE_LOCATION_SUCCESS"
	CreateLocationFailure Type = "CREATE_LOCATION_FAILURE"

	UpdateLocationRequest Type = "UPDATE_LOCATION_REQUEST"
	UpdateLocationSuccess Type = "UPDATE_LOCATION_SUCCESS"
	UpdateLocationFailure Type = "UPDATE_LOCATION_FAILURE"

	LoadLocationsRequest Type = "LOAD_LOCATIONS_REQUEST"
	LoadLocationsSuccess Type = "LOAD_LOCATIONS_SUCCESS"
	LoadLocationsFailure Type = "LOAD_LOCATIONS_FAILURE"

	DeleteLocationRequest Type = "DELETE_LOCATION_REQUEST"
	DeleteLocationSuccess Type = "DELETE_LOCATION_SUCCESS"
	DeleteLocationFailure Type = "DELETE_LOCATION_FAILURE"
)

// Local actions that never reach the network.
const (
	// Logout forgets the session without contacting the server.
	Logout Type = "LOGOUT"
	// ClearFailure resets State.LastFailure.
	ClearFailure Type = "CLEAR_FAILURE"
)
