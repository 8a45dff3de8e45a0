package service

// Caller-facing messages of the coordinator operations.
const (
	MsgUserCreated       = "User created successfully"
	MsgUserExists        = "User already exists"
	MsgUserFound         = "User found"
	MsgUserNotFound      = "User not found"
	MsgUserUpdated       = "User updated successfully"
	MsgUserDeleted       = "User deleted successfully"
	MsgPatientsRetrieved = "Patients retrieved successfully"

	MsgPatientCreated   = "Patient created"
	MsgPatientFound     = "Patient found"
	MsgPatientUpdated   = "Patient updated"
	MsgPatientDeleted   = "Patient deleted"
	MsgPatientNotFound  = "Patient not found"
	MsgPatientTimelines = "Patient timelines found"

	MsgTimelineCreated  = "Timeline created"
	MsgTimelineFound    = "Timeline found"
	MsgTimelineUpdated  = "Timeline updated"
	MsgTimelineDeleted  = "Timeline deleted"
	MsgTimelineNotFound = "Timeline not found"
	MsgOccurrencesFound = "Occurrences found"

	MsgOccurrenceCreated  = "Occurrence created successfully"
	MsgOccurrenceFound    = "Occurrence found"
	MsgOccurrenceUpdated  = "Occurrence updated successfully"
	MsgOccurrenceDeleted  = "Occurrence deleted successfully"
	MsgOccurrenceNotFound = "Occurrence not found"

	MsgAuthenticated      = "You're authenticated!"
	MsgInvalidCredentials = "E-mail/password invalid"
	MsgTooManyAttempts    = "Too many login attempts, try again later"
)

// Entity kinds used for metrics and logs.
const (
	KindUser       = "user"
	KindPatient    = "patient"
	KindTimeline   = "timeline"
	KindOccurrence = "occurrence"
	KindFile       = "file"
)
