// Package presence defines the room and user state entities shared by the
// presence manager, its repositories, and the HTTP surface.
package presence

// RoomDef is one entry of the rooms config file. Rooms are fixed at startup;
// there is no dynamic room creation.
type RoomDef struct {
	ID         int      `json:"id"`
	Name       string   `json:"name"`
	Identifier string   `json:"identifier"`
	Maps       []string `json:"maps"`
}

// Room is a configured room together with its live (non-stale) user set.
type Room struct {
	ID         int                   `json:"room_id"`
	Name       string                `json:"room_name"`
	Identifier string                `json:"identifier"`
	Maps       []string              `json:"maps"`
	Users      map[string]*UserState `json:"users"`
}

// UserState is the last reported state of one user. Unreported fields stay
// nil so partial updates never clobber values a client sent earlier.
type UserState struct {
	Username string         `json:"username"`
	RoomID   int            `json:"room_id"`
	RoomName string         `json:"room_name,omitempty"`
	X        *float64       `json:"x"`
	Y        *float64       `json:"y"`
	SX       *float64       `json:"sx"`
	Costume  *string        `json:"costume"`
	Data     map[string]any `json:"data,omitempty"`
	LastSeen float64        `json:"timestamp"`
}

// PartialState carries the fields of a single position report. Nil means the
// client did not send the field in this report.
type PartialState struct {
	X       *float64       `json:"x"`
	Y       *float64       `json:"y"`
	SX      *float64       `json:"sx"`
	Costume *string        `json:"costume"`
	Data    map[string]any `json:"data"`
}

// MissingFields returns the names from required that are still unset on u.
func MissingFields(u *UserState, required []string) []string {
	var missing []string
	for _, field := range required {
		switch field {
		case "x":
			if u.X == nil {
				missing = append(missing, field)
			}
		case "y":
			if u.Y == nil {
				missing = append(missing, field)
			}
		case "sx":
			if u.SX == nil {
				missing = append(missing, field)
			}
		case "costume":
			if u.Costume == nil {
				missing = append(missing, field)
			}
		}
	}
	return missing
}
