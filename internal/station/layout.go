package station

import "sync"

// Room IDs of the standard station.
const (
	Cafeteria      RoomID = "cafeteria"
	Weapons        RoomID = "weapons"
	O2             RoomID = "o2"
	Navigation     RoomID = "navigation"
	Shields        RoomID = "shields"
	Communications RoomID = "communications"
	Storage        RoomID = "storage"
	Admin          RoomID = "admin"
	Electrical     RoomID = "electrical"
	LowerEngine    RoomID = "lower_engine"
	Reactor        RoomID = "reactor"
	Security       RoomID = "security"
	Medbay         RoomID = "medbay"
	UpperEngine    RoomID = "upper_engine"
)

// StandardRooms returns the room definitions of the standard station.
func StandardRooms() []Room {
	return []Room{
		{ID: Cafeteria, Name: "Cafeteria", Links: []RoomID{UpperEngine, Medbay, Weapons, Admin}, Vents: []RoomID{Admin},
			Chores: []string{"Fix Wiring", "Empty Garbage"}},
		{ID: Weapons, Name: "Weapons", Links: []RoomID{Cafeteria, O2, Navigation},
			Chores: []string{"Clear Asteroids", "Download Data"}},
		{ID: O2, Name: "O2", Links: []RoomID{Weapons, Navigation, Shields},
			Chores: []string{"Clean O2 Filter"}},
		{ID: Navigation, Name: "Navigation", Links: []RoomID{Weapons, O2, Shields},
			Chores: []string{"Chart Course", "Stabilize Steering"}},
		{ID: Shields, Name: "Shields", Links: []RoomID{O2, Navigation, Communications, Storage},
			Chores: []string{"Prime Shields"}},
		{ID: Communications, Name: "Communications", Links: []RoomID{Shields, Storage},
			Chores: []string{"Download Data"}},
		{ID: Storage, Name: "Storage", Links: []RoomID{Admin, Electrical, Communications, Shields, LowerEngine},
			Chores: []string{"Fuel Engines", "Empty Chute"}},
		{ID: Admin, Name: "Admin", Links: []RoomID{Cafeteria, Storage}, Vents: []RoomID{Cafeteria},
			Chores: []string{"Swipe Card", "Upload Data"}},
		{ID: Electrical, Name: "Electrical", Links: []RoomID{Storage, LowerEngine, Security}, Vents: []RoomID{Medbay, Security},
			Chores: []string{"Calibrate Distributor", "Divert Power"}},
		{ID: LowerEngine, Name: "Lower Engine", Links: []RoomID{Electrical, Reactor, Storage},
			Chores: []string{"Align Engine Output"}},
		{ID: Reactor, Name: "Reactor", Links: []RoomID{Security, LowerEngine, UpperEngine},
			Chores: []string{"Start Reactor", "Unlock Manifolds"}},
		{ID: Security, Name: "Security", Links: []RoomID{Reactor, Electrical, Medbay}, Vents: []RoomID{Electrical, Medbay},
			Chores: []string{"Review Logs"}},
		{ID: Medbay, Name: "MedBay", Links: []RoomID{Cafeteria, Security, UpperEngine}, Vents: []RoomID{Electrical, Security},
			Chores: []string{"Submit Scan"}},
		{ID: UpperEngine, Name: "Upper Engine", Links: []RoomID{Reactor, Medbay, Cafeteria},
			Chores: []string{"Engine Check"}},
	}
}

// Standard returns the standard station map. It is built once and shared by
// every caller in the process.
var Standard = sync.OnceValue(func() *Map {
	m, err := NewMap(StandardRooms())
	if err != nil {
		// The standard layout is static; a failure here is a programming error.
		panic(err)
	}
	return m
})
