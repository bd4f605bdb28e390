package models

// AppointmentStatus represents the status of an appointment
type AppointmentStatus string

const (
	StatusPending   AppointmentStatus = "pending"
	StatusConfirmed AppointmentStatus = "confirmed"
	StatusRejected  AppointmentStatus = "rejected"
	StatusCompleted AppointmentStatus = "completed"
	StatusCancelled AppointmentStatus = "cancelled"
	StatusNoShow    AppointmentStatus = "no_show"
)

// AllStatuses lists every status in lifecycle order.
var AllStatuses = []AppointmentStatus{
	StatusPending, StatusConfirmed, StatusRejected, StatusCompleted, StatusCancelled, StatusNoShow,
}

func (s AppointmentStatus) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// Terminal reports whether no edge leaves s.
func (s AppointmentStatus) Terminal() bool {
	return s.Valid() && len(transitions[s]) == 0
}

// Actor classifies who may walk an edge.
type Actor uint8

const (
	ActorPatient Actor = 1 << iota
	ActorStaff
)

// ActorFor maps a role onto its actor class; unknown roles map to none.
func ActorFor(role Role) Actor {
	switch role {
	case RolePatient:
		return ActorPatient
	case RoleDoctor, RoleAdmin:
		return ActorStaff
	}
	return 0
}

// transitions is the whole state graph: from -> to -> actors allowed.
var transitions = map[AppointmentStatus]map[AppointmentStatus]Actor{
	StatusPending: {
		StatusConfirmed: ActorStaff,
		StatusRejected:  ActorStaff,
		StatusCancelled: ActorStaff | ActorPatient,
	},
	StatusConfirmed: {
		StatusCompleted: ActorStaff,
		StatusNoShow:    ActorStaff,
		StatusCancelled: ActorStaff | ActorPatient,
	},
	StatusRejected:  {},
	StatusCompleted: {},
	StatusCancelled: {},
	StatusNoShow:    {},
}

// HasEdge reports whether from -> to exists for any actor.
func HasEdge(from, to AppointmentStatus) bool {
	_, ok := transitions[from][to]
	return ok
}

// MayRequest reports whether the actor can move any appointment into target.
func MayRequest(actor Actor, target AppointmentStatus) bool {
	if actor == 0 {
		return false
	}
	for _, edges := range transitions {
		if allowed, ok := edges[target]; ok && allowed&actor != 0 {
			return true
		}
	}
	return false
}

// Allowed reports whether the actor may walk from -> to.
func Allowed(actor Actor, from, to AppointmentStatus) bool {
	allowed, ok := transitions[from][to]
	return ok && actor != 0 && allowed&actor != 0
}
