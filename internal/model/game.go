package model

// Participant is a player snapshotted into a game session at START
type Participant struct {
	ID    PlayerID
	Score int
}

// EndReason explains why a game session ended
type EndReason string

const (
	EndReasonCompleted EndReason = "completed"  // All configured rounds were played
	EndReasonNoPlayers EndReason = "no_players" // Every participant disconnected
	EndReasonAborted   EndReason = "aborted"    // Stopped by an external caller
)

// Question is the set of tiles dealt for a single turn
type Question struct {
	Numbers []int
	Target  int
}

// ParticipantIDs returns the ids of the given participants in order
func ParticipantIDs(participants []Participant) []PlayerID {
	ids := make([]PlayerID, len(participants))
	for i, p := range participants {
		ids[i] = p.ID
	}
	return ids
}
