package session

import "sync"

// Hub tracks the live synchronizers of each room so empty rooms can be
// observed and torn down. One synchronizer per connected participant.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]map[*Synchronizer]struct{}
}

func NewHub() *Hub {
	return &Hub{rooms: make(map[string]map[*Synchronizer]struct{})}
}

func (h *Hub) Join(interviewID string, s *Synchronizer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.rooms[interviewID] == nil {
		h.rooms[interviewID] = make(map[*Synchronizer]struct{})
	}
	h.rooms[interviewID][s] = struct{}{}
}

// Leave detaches a synchronizer and returns the number of participants left
// in the room.
func (h *Hub) Leave(interviewID string, s *Synchronizer) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	if room, ok := h.rooms[interviewID]; ok {
		delete(room, s)
		if len(room) == 0 {
			delete(h.rooms, interviewID)
			return 0
		}
		return len(room)
	}
	return 0
}

func (h *Hub) Participants(interviewID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[interviewID])
}
