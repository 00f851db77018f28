package station

// ShortestPath returns the fewest-hop route from start to goal over corridor
// links, including both endpoints. Vents are not considered. When start ==
// goal, or no route exists, the path is just [start].
func (m *Map) ShortestPath(start, goal RoomID) []RoomID {
	if start == goal {
		return []RoomID{start}
	}

	queue := [][]RoomID{{start}}
	seen := map[RoomID]bool{start: true}

	for len(queue) > 0 {
		path := queue[0]
		queue = queue[1:]
		last := path[len(path)-1]

		for _, next := range m.Links(last) {
			if seen[next] {
				continue
			}
			nextPath := make([]RoomID, len(path)+1)
			copy(nextPath, path)
			nextPath[len(path)] = next
			if next == goal {
				return nextPath
			}
			seen[next] = true
			queue = append(queue, nextPath)
		}
	}

	return []RoomID{start}
}

// NextHop returns the room one step along the shortest path to goal, or
// start itself if already there or unreachable.
func (m *Map) NextHop(start, goal RoomID) RoomID {
	path := m.ShortestPath(start, goal)
	if len(path) < 2 {
		return start
	}
	return path[1]
}

// Distance returns the number of hops between two rooms, or -1 if goal is
// unreachable.
func (m *Map) Distance(start, goal RoomID) int {
	path := m.ShortestPath(start, goal)
	if len(path) == 1 && start != goal {
		return -1
	}
	return len(path) - 1
}
